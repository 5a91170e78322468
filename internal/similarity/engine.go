// Package similarity scores how alike two normalized face images are with a
// fixed set of cheap, independent metrics.
package similarity

import (
	"fmt"
	"sort"

	apperrors "go-face-verifier/internal/errors"
	"go-face-verifier/internal/raster"
)

// Metric names.
const (
	Histogram = "histogram"
	SSIM      = "ssim"
	Features  = "features"
)

// Backends a metric name can resolve to.
const (
	BackendHistogram         = "bhattacharyya"
	BackendStructural        = "structural"
	BackendHistogramFallback = "histogram_fallback"
	BackendORB               = "orb"
)

// AllMetrics lists every metric in reporting order.
var AllMetrics = []string{Histogram, SSIM, Features}

// ScoreSet maps metric names to scores in [0, 1].
type ScoreSet map[string]float64

// Options configures metric backends. They are resolved once by NewEngine.
type Options struct {
	HistogramSize     int
	HistogramBins     int
	SSIMSize          int
	SSIMWindow        int
	FeatureSize       int
	GoodMatchDistance float64
	MinDescriptors    int
	// StructuralSimilarity selects the SSIM backend. When false the ssim
	// metric is served by the histogram comparison.
	StructuralSimilarity bool
}

func DefaultOptions() Options {
	return Options{
		HistogramSize:        100,
		HistogramBins:        8,
		SSIMSize:             100,
		SSIMWindow:           7,
		FeatureSize:          200,
		GoodMatchDistance:    50,
		MinDescriptors:       2,
		StructuralSimilarity: true,
	}
}

// Engine holds the resolved metric set. It is immutable and safe for
// concurrent use.
type Engine struct {
	metrics map[string]Metric
}

func NewEngine(opts Options) *Engine {
	e := &Engine{metrics: map[string]Metric{
		Histogram: &histogramMetric{name: Histogram, backend: BackendHistogram, size: opts.HistogramSize, bins: opts.HistogramBins},
		Features:  &featureMetric{size: opts.FeatureSize, goodDistance: opts.GoodMatchDistance, minDescriptors: opts.MinDescriptors},
	}}
	if opts.StructuralSimilarity {
		e.metrics[SSIM] = &ssimMetric{size: opts.SSIMSize, window: opts.SSIMWindow}
	} else {
		e.metrics[SSIM] = &histogramMetric{name: SSIM, backend: BackendHistogramFallback, size: opts.SSIMSize, bins: opts.HistogramBins}
	}
	return e
}

// Backends reports which implementation serves each metric name.
func (e *Engine) Backends() map[string]string {
	out := make(map[string]string, len(e.metrics))
	for name, m := range e.metrics {
		out[name] = m.Backend()
	}
	return out
}

// Compare scores a against b with the named metrics, or all of them when
// names is empty.
func (e *Engine) Compare(a, b *raster.Image, names ...string) (ScoreSet, error) {
	if a.Empty() || b.Empty() {
		return nil, apperrors.ErrEmptyImage
	}
	if len(names) == 0 {
		names = AllMetrics
	}
	scores := make(ScoreSet, len(names))
	for _, name := range names {
		m, ok := e.metrics[name]
		if !ok {
			return nil, fmt.Errorf("metric %q: %w", name, apperrors.ErrUnknownMethod)
		}
		score, err := m.Score(a, b)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		scores[name] = score
	}
	return scores, nil
}

// Mean is the unweighted mean of the named scores. Names absent from the
// set are ignored; an empty selection averages to 0.
func Mean(scores ScoreSet, names ...string) float64 {
	if len(names) == 0 {
		names = make([]string, 0, len(scores))
		for name := range scores {
			names = append(names, name)
		}
		sort.Strings(names)
	}
	var sum float64
	n := 0
	for _, name := range names {
		if v, ok := scores[name]; ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
