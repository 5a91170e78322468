package strategy

import (
	"errors"
	"math"
	"testing"

	apperrors "go-face-verifier/internal/errors"
	"go-face-verifier/internal/similarity"
)

func TestForMethod(t *testing.T) {
	scores := similarity.ScoreSet{
		similarity.Histogram: 0.8,
		similarity.SSIM:      0.5,
		similarity.Features:  0.2,
	}

	tests := []struct {
		method      string
		wantName    string
		wantMetrics int
		wantAgg     float64
	}{
		{"", MethodEnsemble, 3, 0.5},
		{MethodEnsemble, MethodEnsemble, 3, 0.5},
		{MethodHistogram, MethodHistogram, 1, 0.8},
		{MethodSSIM, MethodSSIM, 1, 0.5},
		{MethodFeatures, MethodFeatures, 1, 0.2},
	}

	for _, tt := range tests {
		t.Run(tt.wantName, func(t *testing.T) {
			s, err := ForMethod(tt.method)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if s.GetStrategyName() != tt.wantName {
				t.Errorf("Expected name %s, got %s", tt.wantName, s.GetStrategyName())
			}
			if len(s.Metrics()) != tt.wantMetrics {
				t.Errorf("Expected %d metrics, got %v", tt.wantMetrics, s.Metrics())
			}
			if got := s.Aggregate(scores); math.Abs(got-tt.wantAgg) > 1e-12 {
				t.Errorf("Expected aggregate %v, got %v", tt.wantAgg, got)
			}
		})
	}
}

func TestForMethodUnknown(t *testing.T) {
	if _, err := ForMethod("deep_embedding"); !errors.Is(err, apperrors.ErrUnknownMethod) {
		t.Errorf("Expected ErrUnknownMethod, got %v", err)
	}
}

func TestMethods(t *testing.T) {
	got := Methods()
	if len(got) != 4 || got[0] != MethodEnsemble {
		t.Errorf("Unexpected methods %v", got)
	}
}
