package validation

import (
	"fmt"

	apperrors "go-face-verifier/internal/errors"
	"go-face-verifier/pkg/models"
)

// QualityThresholds bounds acceptable inputs and face crops.
type QualityThresholds struct {
	// Face crop sharpness (variance of the Laplacian)
	MinSharpness float64

	// Face crop mean gray level, 0-255
	MinBrightness float64
	MaxBrightness float64

	// Input image geometry
	MinWidth     int
	MinHeight    int
	MaxPixels    int
	MaxFileBytes int64
}

func DefaultQualityThresholds() QualityThresholds {
	return QualityThresholds{
		MinSharpness:  100.0,
		MinBrightness: 60.0,
		MaxBrightness: 220.0,
		MinWidth:      64,
		MinHeight:     64,
		MaxPixels:     40_000_000,
		MaxFileBytes:  10 * 1024 * 1024,
	}
}

// QualityValidator applies QualityThresholds.
type QualityValidator struct {
	thresholds QualityThresholds
}

func NewQualityValidator() *QualityValidator {
	return &QualityValidator{thresholds: DefaultQualityThresholds()}
}

func NewQualityValidatorWithThresholds(thresholds QualityThresholds) *QualityValidator {
	return &QualityValidator{thresholds: thresholds}
}

func (v *QualityValidator) Thresholds() QualityThresholds {
	return v.thresholds
}

// ValidateFileSize rejects empty and oversized uploads.
func (v *QualityValidator) ValidateFileSize(size int64) error {
	if size <= 0 {
		return apperrors.NewValidationError("Image is empty", apperrors.ErrEmptyImage)
	}
	if v.thresholds.MaxFileBytes > 0 && size > v.thresholds.MaxFileBytes {
		return apperrors.NewValidationError("Image is too large", nil).
			WithDetails(fmt.Sprintf("%d bytes exceeds %d", size, v.thresholds.MaxFileBytes))
	}
	return nil
}

// ValidateDimensions rejects images too small to hold a usable face or too
// large to process.
func (v *QualityValidator) ValidateDimensions(width, height int) error {
	if width < v.thresholds.MinWidth || height < v.thresholds.MinHeight {
		return apperrors.NewValidationError("Image resolution too low", nil).
			WithDetails(fmt.Sprintf("%dx%d is below %dx%d", width, height, v.thresholds.MinWidth, v.thresholds.MinHeight))
	}
	if v.thresholds.MaxPixels > 0 && width*height > v.thresholds.MaxPixels {
		return apperrors.NewValidationError("Image resolution too high", nil).
			WithDetails(fmt.Sprintf("%dx%d exceeds %d pixels", width, height, v.thresholds.MaxPixels))
	}
	return nil
}

// AssessFace sets the quality flags and warnings of q from its measured
// sharpness and brightness. Poor quality never blocks a comparison.
func (v *QualityValidator) AssessFace(q *models.FaceQuality) {
	q.Blurry = q.Sharpness < v.thresholds.MinSharpness
	q.TooDark = q.Brightness < v.thresholds.MinBrightness
	q.TooBright = q.Brightness > v.thresholds.MaxBrightness

	q.Warnings = q.Warnings[:0]
	if q.Blurry {
		q.Warnings = append(q.Warnings, fmt.Sprintf("face is blurry (sharpness %.1f < %.1f)", q.Sharpness, v.thresholds.MinSharpness))
	}
	if q.TooDark {
		q.Warnings = append(q.Warnings, fmt.Sprintf("face is too dark (brightness %.1f < %.1f)", q.Brightness, v.thresholds.MinBrightness))
	}
	if q.TooBright {
		q.Warnings = append(q.Warnings, fmt.Sprintf("face is too bright (brightness %.1f > %.1f)", q.Brightness, v.thresholds.MaxBrightness))
	}
}
