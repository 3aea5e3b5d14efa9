//go:build !cgo

package render

// PreviewPNG needs mupdf, which is only linked in cgo builds.
func PreviewPNG(pdf []byte, dpi float64) ([]byte, error) {
	return nil, ErrPreviewUnavailable
}
