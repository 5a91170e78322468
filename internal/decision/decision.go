// Package decision turns similarity scores into a match verdict.
package decision

import (
	"fmt"
	"math"

	apperrors "go-face-verifier/internal/errors"
	"go-face-verifier/internal/similarity"
	"go-face-verifier/pkg/models"
)

// DefaultThreshold is the aggregate score at or above which two faces match.
const DefaultThreshold = 0.6

// ValidateThreshold rejects thresholds outside [0, 1].
func ValidateThreshold(threshold float64) error {
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return fmt.Errorf("%v: %w", threshold, apperrors.ErrInvalidThreshold)
	}
	return nil
}

// Decide reports whether aggregate reaches threshold. The boundary is
// inclusive.
func Decide(aggregate, threshold float64) bool {
	return aggregate >= threshold
}

// Verdict builds the full comparison result for a computed score set.
func Verdict(scores similarity.ScoreSet, aggregate, threshold float64, method string) (models.ComparisonResult, error) {
	if err := ValidateThreshold(threshold); err != nil {
		return models.ComparisonResult{}, err
	}
	match := Decide(aggregate, threshold)
	agg := aggregate
	out := make(map[string]float64, len(scores))
	for k, v := range scores {
		out[k] = v
	}
	return models.ComparisonResult{
		IsMatch:        &match,
		AggregateScore: &agg,
		Scores:         out,
		Threshold:      threshold,
		Method:         method,
	}, nil
}
