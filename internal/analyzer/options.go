package analyzer

import (
	"fmt"

	"go-face-verifier/internal/decision"
	apperrors "go-face-verifier/internal/errors"
	"go-face-verifier/internal/extract"
	"go-face-verifier/internal/strategy"
)

// ComparisonOptions configures one run of the verification pipeline.
type ComparisonOptions struct {
	// Method is a comparison strategy name: ensemble, histogram, ssim or
	// features.
	Method    string
	Threshold float64

	// Face extraction
	Padding       float64
	CanonicalSize int

	// Feature toggles
	Preprocess  bool
	SkipQuality bool
}

// DefaultOptions returns the ensemble comparison at the standard threshold.
func DefaultOptions() ComparisonOptions {
	return ComparisonOptions{
		Method:        strategy.MethodEnsemble,
		Threshold:     decision.DefaultThreshold,
		Padding:       extract.DefaultPadding,
		CanonicalSize: extract.DefaultSize,
		Preprocess:    true,
	}
}

// FastOptions compares with the color histogram only and skips the quality
// report.
func FastOptions() ComparisonOptions {
	opts := DefaultOptions()
	opts.Method = strategy.MethodHistogram
	opts.SkipQuality = true
	return opts
}

// StrictOptions raises the match threshold.
func StrictOptions() ComparisonOptions {
	opts := DefaultOptions()
	opts.Threshold = 0.7
	return opts
}

func (opts ComparisonOptions) WithThreshold(threshold float64) ComparisonOptions {
	opts.Threshold = threshold
	return opts
}

func (opts ComparisonOptions) WithMethod(method string) ComparisonOptions {
	opts.Method = method
	return opts
}

func (opts ComparisonOptions) WithPadding(padding float64) ComparisonOptions {
	opts.Padding = padding
	return opts
}

func (opts ComparisonOptions) WithCanonicalSize(size int) ComparisonOptions {
	opts.CanonicalSize = size
	return opts
}

// WithoutPreprocessing skips enhancement and skew correction.
func (opts ComparisonOptions) WithoutPreprocessing() ComparisonOptions {
	opts.Preprocess = false
	return opts
}

func (opts ComparisonOptions) WithoutQuality() ComparisonOptions {
	opts.SkipQuality = true
	return opts
}

// Validate rejects configurations that are programmer errors.
func (opts ComparisonOptions) Validate() error {
	if err := decision.ValidateThreshold(opts.Threshold); err != nil {
		return err
	}
	if opts.Padding < 0 {
		return fmt.Errorf("padding %v: %w", opts.Padding, apperrors.ErrInvalidPadding)
	}
	if opts.CanonicalSize <= 0 {
		return fmt.Errorf("canonical size %d: %w", opts.CanonicalSize, apperrors.ErrInvalidSize)
	}
	if _, err := strategy.ForMethod(opts.Method); err != nil {
		return err
	}
	return nil
}
