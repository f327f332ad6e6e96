package utils

import (
	"bytes"
	"image/png"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
)

// QRCodePNG renders content as a square PNG QR code of size x size pixels.
func QRCodePNG(content []byte, size int) ([]byte, error) {
	code, err := qr.Encode(string(content), qr.M, qr.Auto)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		size = 256
	}
	scaled, err := barcode.Scale(code, size, size)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
