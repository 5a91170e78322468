// Package preprocess enhances contrast and corrects skew on card images
// before face localization.
package preprocess

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"go-face-verifier/internal/logger"
	"go-face-verifier/internal/raster"
)

// Options tunes enhancement and skew estimation.
type Options struct {
	ClipLimit      float64
	TileGrid       int
	Denoise        bool
	CannyLow       float32
	CannyHigh      float32
	HoughThreshold int
	// MaxSkew bounds (exclusive) the line deviations that take part in the
	// median. Steeper lines are treated as vertical structure.
	MaxSkew float64
	// MinCorrection is the smallest absolute angle that triggers a rotation.
	MinCorrection float64
}

func DefaultOptions() Options {
	return Options{
		ClipLimit:      2.0,
		TileGrid:       8,
		Denoise:        true,
		CannyLow:       50,
		CannyHigh:      150,
		HoughThreshold: 100,
		MaxSkew:        45,
		MinCorrection:  5,
	}
}

// Result of preprocessing one image. Corrected is the color image the
// detector and extractor work on; Enhanced is its contrast-enhanced gray
// version.
type Result struct {
	Corrected *raster.Image
	Enhanced  *raster.Image
	Angle     float64
	Rotated   bool
	Lines     int
}

type Preprocessor struct {
	opts Options
}

func New(opts Options) *Preprocessor {
	return &Preprocessor{opts: opts}
}

// Preprocess estimates the skew of img, rotates it when the skew is large
// enough and returns the enhanced grayscale of the corrected image.
func (p *Preprocessor) Preprocess(img *raster.Image) (*Result, error) {
	angle, lines, err := p.EstimateSkew(img)
	if err != nil {
		return nil, err
	}

	res := &Result{Corrected: img, Angle: angle, Lines: lines}
	if math.Abs(angle) > p.opts.MinCorrection {
		rotated, err := Rotate(img, angle)
		if err != nil {
			return nil, err
		}
		res.Corrected = rotated
		res.Rotated = true
	}

	res.Enhanced, err = p.Enhance(res.Corrected)
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"angle":   angle,
		"lines":   lines,
		"rotated": res.Rotated,
	}).Debug("Preprocessed image")
	return res, nil
}

// Enhance applies CLAHE and, when enabled, non-local means denoising to the
// grayscale of img.
func (p *Preprocessor) Enhance(img *raster.Image) (*raster.Image, error) {
	gray, err := img.GrayMat()
	if err != nil {
		return nil, fmt.Errorf("enhance: %w", err)
	}
	defer gray.Close()

	clahe := gocv.NewCLAHEWithParams(p.opts.ClipLimit, image.Point{X: p.opts.TileGrid, Y: p.opts.TileGrid})
	defer clahe.Close()

	enhanced := gocv.NewMat()
	defer enhanced.Close()
	clahe.Apply(gray, &enhanced)

	if p.opts.Denoise {
		denoised := gocv.NewMat()
		defer denoised.Close()
		gocv.FastNlMeansDenoising(enhanced, &denoised)
		return raster.FromMat(denoised)
	}
	return raster.FromMat(enhanced)
}

// EstimateSkew returns the median deviation from horizontal of the lines
// found in img, in degrees, and how many lines took part. An image without
// usable lines has angle 0.
func (p *Preprocessor) EstimateSkew(img *raster.Image) (float64, int, error) {
	gray, err := img.GrayMat()
	if err != nil {
		return 0, 0, fmt.Errorf("estimate skew: %w", err)
	}
	defer gray.Close()

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(gray, &edges, p.opts.CannyLow, p.opts.CannyHigh)

	lines := gocv.NewMat()
	defer lines.Close()
	gocv.HoughLines(edges, &lines, 1, float32(math.Pi/180), p.opts.HoughThreshold)

	angles := make([]float64, 0, lines.Rows())
	for i := 0; i < lines.Rows(); i++ {
		theta := float64(lines.GetVecfAt(i, 0)[1])
		deviation := theta*180/math.Pi - 90
		if deviation > -p.opts.MaxSkew && deviation < p.opts.MaxSkew {
			angles = append(angles, deviation)
		}
	}
	if len(angles) == 0 {
		return 0, 0, nil
	}
	return median(angles), len(angles), nil
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// Rotate turns img by angle degrees (counter-clockwise for positive values)
// about its center, keeping the original size and replicating the border.
func Rotate(img *raster.Image, angle float64) (*raster.Image, error) {
	src, err := img.ToMat()
	if err != nil {
		return nil, fmt.Errorf("rotate: %w", err)
	}
	defer src.Close()

	center := image.Point{X: img.Width / 2, Y: img.Height / 2}
	m := gocv.GetRotationMatrix2D(center, angle, 1.0)
	defer m.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.WarpAffineWithParams(src, &dst, m, image.Point{X: img.Width, Y: img.Height},
		gocv.InterpolationCubic, gocv.BorderReplicate, color.RGBA{})

	return raster.FromMat(dst)
}

// Passthrough wraps img without enhancement or rotation. The gray plane is a
// plain color conversion.
func Passthrough(img *raster.Image) (*Result, error) {
	gray, err := img.GrayMat()
	if err != nil {
		return nil, fmt.Errorf("passthrough: %w", err)
	}
	defer gray.Close()
	enhanced, err := raster.FromMat(gray)
	if err != nil {
		return nil, err
	}
	return &Result{Corrected: img, Enhanced: enhanced}, nil
}
