package filestore

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/disintegration/imaging"
)

func TestLocal(t *testing.T) {
	ctx := context.Background()
	l, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if err := l.Put(ctx, "vendors/ven_1/logo.jpg", []byte("jpeg"), "image/jpeg"); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := l.Get(ctx, "vendors/ven_1/logo.jpg")
	if err != nil || string(got) != "jpeg" {
		t.Fatalf("get = %q, %v", got, err)
	}
	if err := l.Delete(ctx, "vendors/ven_1/logo.jpg"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := l.Get(ctx, "vendors/ven_1/logo.jpg"); !errors.Is(err, ErrNotFound) {
		t.Errorf("get after delete: err = %v", err)
	}
	if err := l.Delete(ctx, "vendors/ven_1/logo.jpg"); err != nil {
		t.Errorf("deleting a missing file: %v", err)
	}

	for _, key := range []string{"", "/etc/passwd", "../x", "a/../../x", "a//b", `a\b`} {
		if err := l.Put(ctx, key, nil, ""); err == nil {
			t.Errorf("key %q accepted", key)
		}
	}
}

func pngImage(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.NRGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestThumbnail(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		wantW, wantH int
	}{
		{"scaled down", 1200, 600, 400, 200},
		{"small stays", 120, 80, 120, 80},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := Thumbnail(pngImage(t, tc.w, tc.h), 400)
			if err != nil {
				t.Fatalf("thumbnail: %v", err)
			}
			img, err := imaging.Decode(bytes.NewReader(out))
			if err != nil {
				t.Fatalf("decode result: %v", err)
			}
			if b := img.Bounds(); b.Dx() != tc.wantW || b.Dy() != tc.wantH {
				t.Errorf("size = %dx%d, want %dx%d", b.Dx(), b.Dy(), tc.wantW, tc.wantH)
			}
		})
	}

	if _, err := Thumbnail([]byte("not an image"), 400); !errors.Is(err, ErrNotAnImage) {
		t.Errorf("err = %v", err)
	}
}

func TestProfileImages(t *testing.T) {
	ctx := context.Background()
	l, _ := NewLocal(t.TempDir())
	p := NewProfileImages(l)

	key, err := p.Save(ctx, "ven_1", pngImage(t, 50, 50))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if key != ImageKey("ven_1") {
		t.Errorf("key = %q", key)
	}
	data, err := p.LoadImage(ctx, key)
	if err != nil || len(data) == 0 {
		t.Fatalf("load: %d bytes, %v", len(data), err)
	}
	if _, err := p.Save(ctx, "ven_1", make([]byte, MaxImageSize+1)); err == nil {
		t.Error("oversized upload accepted")
	}
}
