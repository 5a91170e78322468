package analyzer

import (
	"runtime"
	"sync"

	"gonum.org/v1/gonum/stat"

	"go-face-verifier/internal/raster"
)

// parallelThreshold is the pixel count above which brightness is summed in
// horizontal strips on several goroutines.
const parallelThreshold = 100000

type qualityCalculator struct {
	slicePool sync.Pool
}

// NewQualityCalculator returns the gonum backed face quality calculator.
func NewQualityCalculator() QualityCalculator {
	return &qualityCalculator{
		slicePool: sync.Pool{
			New: func() interface{} {
				s := make([]float64, 0, 64*1024)
				return &s
			},
		},
	}
}

// Sharpness is the variance of the 4-neighbour Laplacian over the interior
// of a grayscale image.
func (qc *qualityCalculator) Sharpness(gray *raster.Image) float64 {
	w, h := gray.Width, gray.Height
	if w < 3 || h < 3 {
		return 0
	}

	buf := qc.slicePool.Get().(*[]float64)
	defer qc.slicePool.Put(buf)
	data := (*buf)[:0]

	px := gray.Pix
	for y := 1; y < h-1; y++ {
		row := y * w
		for x := 1; x < w-1; x++ {
			i := row + x
			lap := -4*float64(px[i]) + float64(px[i-w]) + float64(px[i+w]) + float64(px[i-1]) + float64(px[i+1])
			data = append(data, lap)
		}
	}
	*buf = data
	return stat.Variance(data, nil)
}

// Brightness is the mean gray level, 0-255.
func (qc *qualityCalculator) Brightness(gray *raster.Image) float64 {
	w, h := gray.Width, gray.Height
	if w == 0 || h == 0 {
		return 0
	}
	if w*h < parallelThreshold {
		return sumRows(gray, 0, h) / float64(w*h)
	}

	workers := runtime.NumCPU()
	if h < workers {
		workers = h
	}
	rowsPerWorker := (h + workers - 1) / workers

	sums := make([]float64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		start := i * rowsPerWorker
		end := min(start+rowsPerWorker, h)
		if start >= end {
			continue
		}
		wg.Add(1)
		go func(i, start, end int) {
			defer wg.Done()
			sums[i] = sumRows(gray, start, end)
		}(i, start, end)
	}
	wg.Wait()

	var total float64
	for _, s := range sums {
		total += s
	}
	return total / float64(w*h)
}

func sumRows(gray *raster.Image, start, end int) float64 {
	var sum float64
	for _, v := range gray.Pix[start*gray.Width : end*gray.Width] {
		sum += float64(v)
	}
	return sum
}
