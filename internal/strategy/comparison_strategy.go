package strategy

import (
	"fmt"
	"sort"

	apperrors "go-face-verifier/internal/errors"
	"go-face-verifier/internal/similarity"
)

// Comparison method names accepted by the API and the CLI.
const (
	MethodEnsemble  = "ensemble"
	MethodHistogram = similarity.Histogram
	MethodSSIM      = similarity.SSIM
	MethodFeatures  = similarity.Features
)

// ComparisonStrategy selects which metrics a comparison computes and how
// their scores collapse into the aggregate that gets thresholded.
type ComparisonStrategy interface {
	GetStrategyName() string
	Metrics() []string
	Aggregate(scores similarity.ScoreSet) float64
}

// EnsembleStrategy averages every metric with equal weight.
type EnsembleStrategy struct{}

func NewEnsembleStrategy() ComparisonStrategy {
	return EnsembleStrategy{}
}

func (EnsembleStrategy) GetStrategyName() string { return MethodEnsemble }

func (EnsembleStrategy) Metrics() []string {
	return append([]string(nil), similarity.AllMetrics...)
}

func (s EnsembleStrategy) Aggregate(scores similarity.ScoreSet) float64 {
	return similarity.Mean(scores, s.Metrics()...)
}

// SingleMetricStrategy uses one metric's score as the aggregate.
type SingleMetricStrategy struct {
	metric string
}

func NewSingleMetricStrategy(metric string) ComparisonStrategy {
	return SingleMetricStrategy{metric: metric}
}

func (s SingleMetricStrategy) GetStrategyName() string { return s.metric }

func (s SingleMetricStrategy) Metrics() []string { return []string{s.metric} }

func (s SingleMetricStrategy) Aggregate(scores similarity.ScoreSet) float64 {
	return scores[s.metric]
}

var registry = map[string]func() ComparisonStrategy{
	MethodEnsemble:  NewEnsembleStrategy,
	MethodHistogram: func() ComparisonStrategy { return NewSingleMetricStrategy(MethodHistogram) },
	MethodSSIM:      func() ComparisonStrategy { return NewSingleMetricStrategy(MethodSSIM) },
	MethodFeatures:  func() ComparisonStrategy { return NewSingleMetricStrategy(MethodFeatures) },
}

// ForMethod resolves a method name. An empty name means ensemble.
func ForMethod(name string) (ComparisonStrategy, error) {
	if name == "" {
		name = MethodEnsemble
	}
	build, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, apperrors.ErrUnknownMethod)
	}
	return build(), nil
}

// Methods lists the accepted method names.
func Methods() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
