package raster

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	apperrors "go-face-verifier/internal/errors"
)

func createTestImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 7), G: uint8(y * 5), B: uint8((x + y) * 3), A: 255})
		}
	}
	return img
}

func TestDecode(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, createTestImage(20, 10)); err != nil {
		t.Fatalf("encode: %v", err)
	}

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"empty buffer", nil, apperrors.ErrEmptyImage},
		{"garbage", []byte("not an image"), apperrors.ErrUnsupportedFormat},
		{"png", buf.Bytes(), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, format, err := Decode(tt.data)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if format != "png" {
				t.Errorf("Expected png format, got %s", format)
			}
			if img.Width != 20 || img.Height != 10 || img.Channels != 3 || img.Order != BGR {
				t.Errorf("Unexpected geometry %dx%dx%d %s", img.Width, img.Height, img.Channels, img.Order)
			}
		})
	}
}

func TestFromImageStoresBGR(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 1, 1))
	src.Set(0, 0, color.RGBA{R: 10, G: 20, B: 30, A: 255})

	img := FromImage(src)
	if img.Pix[0] != 30 || img.Pix[1] != 20 || img.Pix[2] != 10 {
		t.Errorf("Expected BGR [30 20 10], got %v", img.Pix[:3])
	}

	back := img.ToRGBA()
	if got := back.RGBAAt(0, 0); got.R != 10 || got.G != 20 || got.B != 30 {
		t.Errorf("Expected round trip to RGB, got %v", got)
	}
}

func TestCropCopiesPixels(t *testing.T) {
	img := FromImage(createTestImage(10, 10))

	crop, err := img.Crop(image.Rect(2, 3, 6, 8))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if crop.Width != 4 || crop.Height != 5 {
		t.Fatalf("Expected 4x5 crop, got %dx%d", crop.Width, crop.Height)
	}
	want := img.Pix[(3*10+2)*3]
	if crop.Pix[0] != want {
		t.Errorf("Expected first pixel %d, got %d", want, crop.Pix[0])
	}

	crop.Pix[0] ^= 0xff
	if img.Pix[(3*10+2)*3] != want {
		t.Error("Expected crop to be a copy, source was modified")
	}

	if _, err := img.Crop(image.Rect(20, 20, 30, 30)); !errors.Is(err, apperrors.ErrDegenerateCrop) {
		t.Errorf("Expected ErrDegenerateCrop, got %v", err)
	}
}

func TestMatRoundTrip(t *testing.T) {
	img := FromImage(createTestImage(16, 9))

	m, err := img.ToMat()
	if err != nil {
		t.Fatalf("ToMat: %v", err)
	}
	defer m.Close()

	if m.Rows() != 9 || m.Cols() != 16 || m.Channels() != 3 {
		t.Fatalf("Unexpected mat geometry %dx%dx%d", m.Cols(), m.Rows(), m.Channels())
	}

	back, err := FromMat(m)
	if err != nil {
		t.Fatalf("FromMat: %v", err)
	}
	if !bytes.Equal(back.Pix, img.Pix) {
		t.Error("Expected identical pixels after Mat round trip")
	}

	gray, err := img.GrayMat()
	if err != nil {
		t.Fatalf("GrayMat: %v", err)
	}
	defer gray.Close()
	if gray.Channels() != 1 {
		t.Errorf("Expected 1 channel, got %d", gray.Channels())
	}
}

func TestToMatRejectsEmpty(t *testing.T) {
	m, err := (&Image{}).ToMat()
	defer m.Close()
	if !errors.Is(err, apperrors.ErrEmptyImage) {
		t.Errorf("Expected ErrEmptyImage, got %v", err)
	}
}
