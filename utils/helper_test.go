package utils

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"
	"testing"
	"time"
)

func TestIsValidGSTIN(t *testing.T) {
	cases := []struct {
		gstin string
		want  bool
	}{
		{"27AAPFU0939F1ZV", true},
		{"29aagcr4375j1zu", true},
		{"27AAPFU0939F1XV", false},
		{"27AAPFU0939F1Z", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsValidGSTIN(tc.gstin); got != tc.want {
			t.Fatalf("IsValidGSTIN(%q) = %v, want %v", tc.gstin, got, tc.want)
		}
	}
	if code := GSTINStateCode("27AAPFU0939F1ZV"); code != "27" {
		t.Fatalf("state code = %q, want 27", code)
	}
}

func TestDecodeDataURL(t *testing.T) {
	pngBytes := []byte("\x89PNG\r\n\x1a\n0000000000000000")
	encoded := base64.StdEncoding.EncodeToString(pngBytes)

	data, contentType, err := DecodeDataURL("data:image/png;base64," + encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if contentType != "image/png" || len(data) != len(pngBytes) {
		t.Fatalf("got %s (%d bytes)", contentType, len(data))
	}

	_, _, err = DecodeDataURL("data:image/jpeg;base64," + encoded)
	if !IsValidationError(err) {
		t.Fatalf("mismatched mime should be a validation error, got %v", err)
	}

	_, _, err = DecodeDataURL("data:text/plain;base64," + base64.StdEncoding.EncodeToString([]byte("hello")))
	if !IsValidationError(err) {
		t.Fatalf("text upload should be rejected, got %v", err)
	}
}

func TestIsDuplicateKeyErr(t *testing.T) {
	if !IsDuplicateKeyErr(errors.New("UNIQUE constraint failed: sales.bill_serial_no")) {
		t.Fatalf("sqlite unique error not detected")
	}
	if IsDuplicateKeyErr(fmt.Errorf("wrapped: %w", ErrorRecordNotFound)) {
		t.Fatalf("not found must not be a duplicate")
	}
}

func TestQRCodePNG(t *testing.T) {
	out, err := QRCodePNG([]byte(`{"Version":"1.1"}`), 128)
	if err != nil {
		t.Fatalf("qr: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if img.Bounds().Dx() != 128 {
		t.Fatalf("width = %d, want 128", img.Bounds().Dx())
	}
}

func TestTruncateDayUsesLocalZone(t *testing.T) {
	saved := time.Local
	time.Local = time.FixedZone("IST", 5*3600+1800)
	t.Cleanup(func() { time.Local = saved })

	// 18:30 UTC is already past midnight in IST
	got := TruncateDay(time.Date(2026, 1, 4, 18, 30, 0, 0, time.UTC))
	want := time.Date(2026, 1, 5, 0, 0, 0, 0, time.Local)
	if !got.Equal(want) {
		t.Fatalf("TruncateDay = %v, want %v", got, want)
	}

	parsed, err := ParseDate("2026-01-05")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if !TruncateDay(parsed).Equal(got) {
		t.Fatalf("parsed day %v differs from truncated %v", parsed, got)
	}
}

func TestGCSPredefinedACL(t *testing.T) {
	cases := []struct {
		env  string
		want string
	}{
		{"", "publicRead"},
		{"none", ""},
		{"projectPrivate", "projectPrivate"},
	}
	for _, tc := range cases {
		t.Setenv("GCS_PREDEFINED_ACL", tc.env)
		if got := gcsPredefinedACL(); got != tc.want {
			t.Fatalf("GCS_PREDEFINED_ACL=%q gives %q, want %q", tc.env, got, tc.want)
		}
	}
}
