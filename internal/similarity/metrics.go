package similarity

import (
	"fmt"
	"image"
	"math"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/stat"

	"go-face-verifier/internal/raster"
)

// Metric scores two face images in [0, 1], higher meaning more similar.
type Metric interface {
	Name() string
	Backend() string
	Score(a, b *raster.Image) (float64, error)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func resized(img *raster.Image, size int, gray bool) (gocv.Mat, error) {
	var (
		src gocv.Mat
		err error
	)
	if gray {
		src, err = img.GrayMat()
	} else {
		src, err = img.BGRMat()
	}
	if err != nil {
		return src, err
	}
	defer src.Close()
	dst := gocv.NewMat()
	gocv.Resize(src, &dst, image.Point{X: size, Y: size}, 0, 0, gocv.InterpolationLinear)
	return dst, nil
}

type histogramMetric struct {
	name    string
	backend string
	size    int
	bins    int
}

func (h *histogramMetric) Name() string    { return h.name }
func (h *histogramMetric) Backend() string { return h.backend }

// Score is one minus the Bhattacharyya distance between the L2 normalized
// joint BGR histograms of both images.
func (h *histogramMetric) Score(a, b *raster.Image) (float64, error) {
	ha, err := h.histogram(a)
	if err != nil {
		return 0, err
	}
	defer ha.Close()
	hb, err := h.histogram(b)
	if err != nil {
		return 0, err
	}
	defer hb.Close()

	d := gocv.CompareHist(ha, hb, gocv.HistCmpBhattacharya)
	return clamp01(1 - float64(d)), nil
}

func (h *histogramMetric) histogram(img *raster.Image) (gocv.Mat, error) {
	small, err := resized(img, h.size, false)
	if err != nil {
		return small, fmt.Errorf("histogram: %w", err)
	}
	defer small.Close()

	mask := gocv.NewMat()
	defer mask.Close()
	hist := gocv.NewMat()
	defer hist.Close()
	gocv.CalcHist([]gocv.Mat{small}, []int{0, 1, 2}, mask, &hist,
		[]int{h.bins, h.bins, h.bins}, []float64{0, 256, 0, 256, 0, 256}, false)

	normalized := gocv.NewMat()
	gocv.Normalize(hist, &normalized, 1, 0, gocv.NormL2)
	return normalized, nil
}

type ssimMetric struct {
	size   int
	window int
}

func (s *ssimMetric) Name() string    { return SSIM }
func (s *ssimMetric) Backend() string { return BackendStructural }

func (s *ssimMetric) Score(a, b *raster.Image) (float64, error) {
	ga, err := grayPixels(a, s.size)
	if err != nil {
		return 0, err
	}
	gb, err := grayPixels(b, s.size)
	if err != nil {
		return 0, err
	}
	return clamp01(structuralSimilarity(ga, gb, s.size, s.size, s.window)), nil
}

func grayPixels(img *raster.Image, size int) ([]float64, error) {
	m, err := resized(img, size, true)
	if err != nil {
		return nil, fmt.Errorf("ssim: %w", err)
	}
	defer m.Close()
	raw := m.ToBytes()
	out := make([]float64, len(raw))
	for i, v := range raw {
		out[i] = float64(v)
	}
	return out, nil
}

// structuralSimilarity is the mean SSIM over all window positions that lie
// fully inside the image, using uniform windows, sample covariance and an
// 8-bit data range.
func structuralSimilarity(x, y []float64, width, height, win int) float64 {
	const (
		dataRange = 255.0
		k1        = 0.01
		k2        = 0.03
	)
	c1 := (k1 * dataRange) * (k1 * dataRange)
	c2 := (k2 * dataRange) * (k2 * dataRange)
	np := float64(win * win)
	covNorm := np / (np - 1)

	if width < win || height < win {
		return 0
	}
	values := make([]float64, 0, (width-win+1)*(height-win+1))
	for top := 0; top+win <= height; top++ {
		for left := 0; left+win <= width; left++ {
			var sx, sy, sxx, syy, sxy float64
			for r := top; r < top+win; r++ {
				row := r * width
				for c := left; c < left+win; c++ {
					xv, yv := x[row+c], y[row+c]
					sx += xv
					sy += yv
					sxx += xv * xv
					syy += yv * yv
					sxy += xv * yv
				}
			}
			ux, uy := sx/np, sy/np
			vx := covNorm * (sxx/np - ux*ux)
			vy := covNorm * (syy/np - uy*uy)
			vxy := covNorm * (sxy/np - ux*uy)

			num := (2*ux*uy + c1) * (2*vxy + c2)
			den := (ux*ux + uy*uy + c1) * (vx + vy + c2)
			values = append(values, num/den)
		}
	}
	return stat.Mean(values, nil)
}

type featureMetric struct {
	size           int
	goodDistance   float64
	minDescriptors int
}

func (f *featureMetric) Name() string    { return Features }
func (f *featureMetric) Backend() string { return BackendORB }

// Score is the share of cross-checked ORB matches closer than goodDistance,
// relative to the larger keypoint set. Faces with too little texture score 0.
func (f *featureMetric) Score(a, b *raster.Image) (float64, error) {
	ga, err := resized(a, f.size, true)
	if err != nil {
		return 0, fmt.Errorf("features: %w", err)
	}
	defer ga.Close()
	gb, err := resized(b, f.size, true)
	if err != nil {
		return 0, fmt.Errorf("features: %w", err)
	}
	defer gb.Close()

	orb := gocv.NewORB()
	defer orb.Close()
	mask := gocv.NewMat()
	defer mask.Close()

	kpA, desA := orb.DetectAndCompute(ga, mask)
	defer desA.Close()
	kpB, desB := orb.DetectAndCompute(gb, mask)
	defer desB.Close()

	if desA.Rows() < f.minDescriptors || desB.Rows() < f.minDescriptors {
		return 0, nil
	}

	matcher := gocv.NewBFMatcherWithParams(gocv.NormHamming, true)
	defer matcher.Close()

	good := 0
	for _, m := range matcher.KnnMatch(desA, desB, 1) {
		if len(m) > 0 && m[0].Distance < f.goodDistance {
			good++
		}
	}
	return clamp01(float64(good) / float64(max(len(kpA), len(kpB)))), nil
}
