package analyzer

import (
	"math"
	"testing"

	"go-face-verifier/internal/raster"
)

func createGrayImage(w, h int, fill func(x, y int) uint8) *raster.Image {
	img := raster.New(w, h, raster.Gray)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Pix[y*w+x] = fill(x, y)
		}
	}
	return img
}

func TestSharpness(t *testing.T) {
	qc := NewQualityCalculator()

	flat := createGrayImage(50, 50, func(int, int) uint8 { return 128 })
	if got := qc.Sharpness(flat); got != 0 {
		t.Errorf("Expected 0 for a flat image, got %f", got)
	}

	checker := createGrayImage(50, 50, func(x, y int) uint8 {
		if (x+y)%2 == 0 {
			return 255
		}
		return 0
	})
	if got := qc.Sharpness(checker); got < 1000 {
		t.Errorf("Expected high sharpness for a checkerboard, got %f", got)
	}

	if got := qc.Sharpness(createGrayImage(2, 2, func(int, int) uint8 { return 1 })); got != 0 {
		t.Errorf("Expected 0 for a tiny image, got %f", got)
	}
}

func TestBrightness(t *testing.T) {
	qc := NewQualityCalculator()

	tests := []struct {
		name string
		w, h int
		fill func(x, y int) uint8
		want float64
	}{
		{"small flat", 10, 10, func(int, int) uint8 { return 200 }, 200},
		{"large flat", 400, 400, func(int, int) uint8 { return 50 }, 50},
		{"large halves", 500, 300, func(x, _ int) uint8 {
			if x < 250 {
				return 0
			}
			return 200
		}, 100},
		{"empty", 0, 0, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := raster.New(tt.w, tt.h, raster.Gray)
			if tt.fill != nil {
				img = createGrayImage(tt.w, tt.h, tt.fill)
			}
			if got := qc.Brightness(img); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Expected %f, got %f", tt.want, got)
			}
		})
	}
}
