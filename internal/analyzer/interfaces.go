package analyzer

import (
	"go-face-verifier/internal/extract"
	"go-face-verifier/internal/raster"
	"go-face-verifier/pkg/models"
)

// FaceAnalyzer is the verification pipeline: preprocessing, localization,
// extraction, similarity and decision.
type FaceAnalyzer interface {
	// Prepare takes one image up to its normalized primary face.
	Prepare(img *raster.Image, opts ComparisonOptions) (*PreparedFace, error)

	// Compare runs the full pipeline on both images. A missing face on
	// either side yields a null-valued result, not an error.
	Compare(portrait, document *raster.Image, opts ComparisonOptions) (models.ComparisonReport, error)

	// CompareFaces scores two already normalized faces.
	CompareFaces(a, b *raster.Image, opts ComparisonOptions) (models.ComparisonResult, error)

	// ProcessIDCard extracts the primary face of a card and hands it to
	// sink when one is given.
	ProcessIDCard(img *raster.Image, opts ComparisonOptions, sink FaceSink) (*IDCardResult, error)

	// Backends reports the implementation behind each metric name.
	Backends() map[string]string

	Close() error
}

// QualityCalculator measures face crops.
type QualityCalculator interface {
	Sharpness(gray *raster.Image) float64
	Brightness(gray *raster.Image) float64
}

// FaceSink receives a normalized face for audit storage and returns where
// it was put.
type FaceSink func(face *extract.NormalizedFace) (string, error)
