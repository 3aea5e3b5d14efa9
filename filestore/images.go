package filestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/disintegration/imaging"
)

const (
	// MaxImageSize is the largest accepted upload.
	MaxImageSize = 5 << 20
	// logoWidth is the stored width of profile images, wide enough for the
	// PDF header.
	logoWidth = 400
)

var ErrNotAnImage = errors.New("file is not a supported image")

// ProfileImages stores vendor logos as resized JPEGs.
type ProfileImages struct {
	store Store
}

func NewProfileImages(store Store) *ProfileImages {
	return &ProfileImages{store: store}
}

// ImageKey is the key of a vendor's logo.
func ImageKey(vendorID string) string {
	return "vendors/" + vendorID + "/logo.jpg"
}

// Save decodes data, scales it down to the logo width and stores it as
// JPEG. It returns the key.
func (p *ProfileImages) Save(ctx context.Context, vendorID string, data []byte) (string, error) {
	if len(data) > MaxImageSize {
		return "", fmt.Errorf("image exceeds %d MB", MaxImageSize>>20)
	}
	thumb, err := Thumbnail(data, logoWidth)
	if err != nil {
		return "", err
	}
	key := ImageKey(vendorID)
	if err := p.store.Put(ctx, key, thumb, "image/jpeg"); err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}
	return key, nil
}

// LoadImage returns the stored image for key.
func (p *ProfileImages) LoadImage(ctx context.Context, key string) ([]byte, error) {
	return p.store.Get(ctx, key)
}

// Thumbnail decodes an image (JPEG, PNG, GIF, BMP, TIFF), shrinks it to at
// most width pixels keeping the aspect ratio and encodes it as JPEG.
func Thumbnail(data []byte, width int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAnImage, err)
	}
	if img.Bounds().Dx() > width {
		img = imaging.Resize(img, width, 0, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
