package analyzer

import (
	"go-face-verifier/internal/extract"
	"go-face-verifier/pkg/models"
)

// PreparedFace is one input image after the pipeline stages that run per
// image. Face is nil when no usable face was found.
type PreparedFace struct {
	Report models.FaceReport
	Face   *extract.NormalizedFace
}

// IDCardResult is the outcome of ProcessIDCard.
type IDCardResult struct {
	FacesDetected int
	Boxes         []models.BoundingBox
	Method        string
	Success       bool
	Message       string
	Face          *extract.NormalizedFace
	Quality       *models.FaceQuality
	SinkLocation  string
}
