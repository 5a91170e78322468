package extract

import (
	"errors"
	"image"
	"image/color"
	"testing"

	apperrors "go-face-verifier/internal/errors"
	"go-face-verifier/internal/raster"
	"go-face-verifier/pkg/models"
)

func createTestImage(w, h int) *raster.Image {
	img := raster.New(w, h, raster.BGR)
	for i := range img.Pix {
		img.Pix[i] = uint8(i % 251)
	}
	return img
}

func TestExtractPadding(t *testing.T) {
	img := createTestImage(200, 100)

	tests := []struct {
		name   string
		box    models.BoundingBox
		pad    float64
		region image.Rectangle
	}{
		{"interior", models.BoundingBox{X: 50, Y: 30, Width: 50, Height: 40}, 0.2, image.Rect(40, 22, 110, 78)},
		{"no padding", models.BoundingBox{X: 50, Y: 30, Width: 50, Height: 40}, 0, image.Rect(50, 30, 100, 70)},
		{"top left edge", models.BoundingBox{X: 0, Y: 0, Width: 40, Height: 40}, 0.2, image.Rect(0, 0, 48, 48)},
		{"bottom right edge", models.BoundingBox{X: 170, Y: 80, Width: 30, Height: 20}, 0.5, image.Rect(155, 70, 200, 100)},
		{"box past the border", models.BoundingBox{X: 190, Y: 90, Width: 50, Height: 50}, 0.2, image.Rect(180, 80, 200, 100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			crop, err := Extract(img, tt.box, tt.pad)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if crop.Region != tt.region {
				t.Errorf("Expected region %v, got %v", tt.region, crop.Region)
			}
			if !crop.Region.In(img.Bounds()) {
				t.Errorf("Region %v escapes image bounds", crop.Region)
			}
			if crop.Image.Width != tt.region.Dx() || crop.Image.Height != tt.region.Dy() {
				t.Errorf("Expected %dx%d pixels, got %dx%d", tt.region.Dx(), tt.region.Dy(), crop.Image.Width, crop.Image.Height)
			}
			if crop.Image.Width < 1 || crop.Image.Height < 1 {
				t.Error("Expected crop of at least 1x1")
			}
		})
	}
}

func TestExtractRejects(t *testing.T) {
	img := createTestImage(50, 50)

	if _, err := Extract(img, models.BoundingBox{X: 1, Y: 1, Width: 10, Height: 10}, -0.1); !errors.Is(err, apperrors.ErrInvalidPadding) {
		t.Errorf("Expected ErrInvalidPadding, got %v", err)
	}
	if _, err := Extract(img, models.BoundingBox{X: 60, Y: 60, Width: 10, Height: 10}, 0.2); !errors.Is(err, apperrors.ErrDegenerateCrop) {
		t.Errorf("Expected ErrDegenerateCrop for box outside image, got %v", err)
	}
	if _, err := Extract(img, models.BoundingBox{X: 5, Y: 5, Width: 0, Height: 10}, 0.2); !errors.Is(err, apperrors.ErrDegenerateCrop) {
		t.Errorf("Expected ErrDegenerateCrop for zero width, got %v", err)
	}
}

func TestNormalizeCanonicalSize(t *testing.T) {
	sizes := []image.Point{{1, 1}, {3, 900}, {40, 30}, {600, 600}, {1200, 800}, {599, 1}}

	for _, s := range sizes {
		crop := &FaceCrop{Image: createTestImage(s.X, s.Y)}
		face, err := Normalize(crop, 600, 600)
		if err != nil {
			t.Fatalf("%v: unexpected error: %v", s, err)
		}
		if face.Image.Width != 600 || face.Image.Height != 600 {
			t.Errorf("%v: expected 600x600, got %dx%d", s, face.Image.Width, face.Image.Height)
		}
		if face.Scale > 1 {
			t.Errorf("%v: expected no upscaling, got scale %.3f", s, face.Scale)
		}
	}
}

func TestNormalizeCentersOnWhite(t *testing.T) {
	crop := &FaceCrop{Image: raster.Filled(100, 50, color.RGBA{R: 10, G: 20, B: 30, A: 255})}

	face, err := Normalize(crop, 200, 200)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	want := image.Rect(50, 75, 150, 125)
	if face.Placement != want {
		t.Errorf("Expected placement %v, got %v", want, face.Placement)
	}

	px := func(x, y int) []byte {
		i := (y*face.Image.Width + x) * 3
		return face.Image.Pix[i : i+3]
	}
	if p := px(0, 0); p[0] != 255 || p[1] != 255 || p[2] != 255 {
		t.Errorf("Expected white corner, got %v", p)
	}
	if p := px(100, 100); p[0] != 30 || p[1] != 20 || p[2] != 10 {
		t.Errorf("Expected face color at center, got %v", p)
	}
}

func TestNormalizeDownscalesKeepingAspect(t *testing.T) {
	crop := &FaceCrop{Image: createTestImage(1200, 600)}

	face, err := Normalize(crop, 600, 600)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if face.Placement.Dx() != 600 || face.Placement.Dy() != 300 {
		t.Errorf("Expected 600x300 placement, got %v", face.Placement)
	}
	if face.Scale != 0.5 {
		t.Errorf("Expected scale 0.5, got %v", face.Scale)
	}
}

func TestNormalizeRoundsThumbnailSize(t *testing.T) {
	// 330 * 600/700 = 282.86
	crop := &FaceCrop{Image: createTestImage(700, 330)}

	face, err := Normalize(crop, 600, 600)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if face.Placement.Dx() != 600 || face.Placement.Dy() != 283 {
		t.Errorf("Expected 600x283 placement, got %v", face.Placement)
	}
	if face.Image.Width != 600 || face.Image.Height != 600 {
		t.Errorf("Expected 600x600 canvas, got %dx%d", face.Image.Width, face.Image.Height)
	}
}

func TestNormalizeRejectsBadSize(t *testing.T) {
	crop := &FaceCrop{Image: createTestImage(10, 10)}
	if _, err := Normalize(crop, 0, 600); !errors.Is(err, apperrors.ErrInvalidSize) {
		t.Errorf("Expected ErrInvalidSize, got %v", err)
	}
}
