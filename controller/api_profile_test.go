package controller

import (
	"bytes"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func (a *testAPI) upload(t *testing.T, path, field, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+a.token)
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestProfileUpdate(t *testing.T) {
	api := setupTestAPI(t)

	rec := api.do(t, http.MethodPut, "/api/v1/profile", api.token, profileInput{
		BrandName: "Corner Shop & Sons",
		Telephone: "+1 650 253 0000",
		Country:   "Germany",
		Website:   "https://corner.example",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d (%s)", rec.Code, rec.Body.String())
	}

	rec = api.do(t, http.MethodGet, "/api/v1/profile", api.token, nil)
	var got APIProfile
	decode(t, rec, &got)
	if got.BrandName != "Corner Shop & Sons" || got.Country != "DE" || got.Telephone != "+16502530000" {
		t.Errorf("profile = %+v", got)
	}
	if got.Email != "vendor@example.com" {
		t.Errorf("email changed: %q", got.Email)
	}

	rec = api.do(t, http.MethodPut, "/api/v1/profile", api.token, profileInput{BrandName: "X", Telephone: "12"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad phone: status %d, want 400", rec.Code)
	}
	var body errorBody
	decode(t, rec, &body)
	if _, ok := body.Fields["telephone"]; !ok {
		t.Errorf("fields = %v", body.Fields)
	}
}

func TestProfileImage(t *testing.T) {
	api := setupTestAPI(t)

	if rec := api.do(t, http.MethodGet, "/api/v1/profile/image", api.token, nil); rec.Code != http.StatusNotFound {
		t.Errorf("before upload: status %d, want 404", rec.Code)
	}

	rec := api.upload(t, "/api/v1/profile/image", "image", "logo.png", testPNG(t, 1200, 300))
	if rec.Code != http.StatusOK {
		t.Fatalf("upload: status %d (%s)", rec.Code, rec.Body.String())
	}
	var got APIProfile
	decode(t, rec, &got)
	if !got.HasImage {
		t.Error("HasImage = false after upload")
	}

	rec = api.do(t, http.MethodGet, "/api/v1/profile/image", api.token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status %d", rec.Code)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != "image/jpeg" {
		t.Errorf("Content-Type = %q", ct)
	}
	img, _, err := image.Decode(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("decode stored image: %v", err)
	}
	if w := img.Bounds().Dx(); w > 400 {
		t.Errorf("stored width = %d, want at most 400", w)
	}
}

func TestProfileImageRejectsOtherFiles(t *testing.T) {
	api := setupTestAPI(t)

	rec := api.upload(t, "/api/v1/profile/image", "image", "notes.txt", []byte("hello"))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", rec.Code)
	}
	rec = api.upload(t, "/api/v1/profile/image", "file", "logo.png", testPNG(t, 10, 10))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("wrong field: status %d, want 400", rec.Code)
	}
}
