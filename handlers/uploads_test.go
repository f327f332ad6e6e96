package handlers_test

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type uploadResult struct {
	ObjectKey    string `json:"object_key"`
	PhotoUrl     string `json:"photo_url"`
	ThumbnailUrl string `json:"thumbnail_url"`
}

func TestUploadPhoto(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("STORAGE_PROVIDER", "local")
	t.Setenv("LOCAL_STORAGE_DIR", dir)
	t.Setenv("STORAGE_ACCESS_BASE_URL", "https://files.example.test")
	r, token := newServer(t)

	img := image.NewRGBA(image.Rect(0, 0, 400, 300))
	for x := 0; x < 400; x++ {
		img.Set(x, 150, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	w := do(t, r, http.MethodPost, "/api/uploads/photo", token, map[string]string{
		"data_url": "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
		"folder":   "Slips",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("png upload = %d: %s", w.Code, w.Body.String())
	}
	var pngResult uploadResult
	decodeData(t, w, &pngResult)
	if !strings.HasPrefix(pngResult.ObjectKey, "slips/") || pngResult.ThumbnailUrl == "" {
		t.Fatalf("png result = %+v", pngResult)
	}
	if _, err := os.Stat(filepath.Join(dir, "thumbnails", strings.TrimSuffix(pngResult.ObjectKey, ".png")+".jpg")); err != nil {
		t.Fatalf("thumbnail not written: %v", err)
	}

	// stored as is, no thumbnail
	webp := append([]byte("RIFF\x24\x00\x00\x00WEBPVP8 "), bytes.Repeat([]byte{0}, 24)...)
	w = do(t, r, http.MethodPost, "/api/uploads/photo", token, map[string]string{
		"data_url": "data:image/webp;base64," + base64.StdEncoding.EncodeToString(webp),
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("webp upload = %d: %s", w.Code, w.Body.String())
	}
	var webpResult uploadResult
	decodeData(t, w, &webpResult)
	if !strings.HasSuffix(webpResult.ObjectKey, ".webp") || webpResult.ThumbnailUrl != "" {
		t.Fatalf("webp result = %+v", webpResult)
	}

	huge := "data:image/png;base64," + strings.Repeat("A", 8<<20)
	w = do(t, r, http.MethodPost, "/api/uploads/photo", token, map[string]string{"data_url": huge})
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("oversized body = %d", w.Code)
	}
}
