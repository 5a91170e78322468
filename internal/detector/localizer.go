// Package detector locates faces with an ordered chain of detection
// strategies, falling through to the next strategy whenever one finds
// nothing.
package detector

import (
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"go-face-verifier/internal/logger"
	"go-face-verifier/internal/preprocess"
	"go-face-verifier/pkg/models"
)

// Localizer walks its strategies in order. It holds no per-call state and
// may be shared between goroutines as long as its strategies can.
type Localizer struct {
	strategies []Strategy
}

func NewLocalizer(strategies ...Strategy) *Localizer {
	return &Localizer{strategies: append([]Strategy(nil), strategies...)}
}

// Detect runs the chain over a preprocessed image. Grayscale inputs are
// expanded to three channels for the color strategies.
func (l *Localizer) Detect(res *preprocess.Result) (models.DetectionResult, error) {
	color, err := res.Corrected.BGRMat()
	if err != nil {
		return models.DetectionResult{}, fmt.Errorf("detect: %w", err)
	}
	defer color.Close()

	gray, err := res.Enhanced.GrayMat()
	if err != nil {
		return models.DetectionResult{}, fmt.Errorf("detect: %w", err)
	}
	defer gray.Close()

	result, state := l.DetectFrame(&Frame{Color: color, Gray: gray})
	result.Stage = state.String()
	return result, nil
}

// DetectFrame runs the chain and also returns the terminal state, which is
// always StateDone. Strategy errors are logged and treated as no detection.
func (l *Localizer) DetectFrame(f *Frame) (models.DetectionResult, State) {
	start := time.Now()
	state := StateNotStarted
	result := models.DetectionResult{Method: models.MethodNone, Boxes: []models.BoundingBox{}}

	for _, s := range l.strategies {
		boxes, detail, err := s.Detect(f)
		state = s.Stage()
		result.Attempts = append(result.Attempts, s.Method())
		if err != nil {
			logger.WithError(err).WithField("method", s.Method()).Warn("Detection strategy failed")
			continue
		}
		boxes = normalizeBoxes(boxes, f.Width(), f.Height())
		if len(boxes) == 0 {
			continue
		}
		result.Boxes = boxes
		result.Method = s.Method()
		result.Detail = detail
		break
	}
	lastStage := state
	state = StateDone
	result.FaceCount = len(result.Boxes)

	logger.WithFields(logrus.Fields{
		"method":      result.Method,
		"last_stage":  lastStage.String(),
		"detail":      result.Detail,
		"face_count":  result.FaceCount,
		"attempts":    len(result.Attempts),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Face localization finished")
	return result, state
}

// normalizeBoxes clamps boxes to the frame, drops empty ones and orders the
// rest by area, largest first. Equal areas keep their detector order.
func normalizeBoxes(boxes []models.BoundingBox, width, height int) []models.BoundingBox {
	out := make([]models.BoundingBox, 0, len(boxes))
	for _, b := range boxes {
		if clamped, ok := b.Clamp(width, height); ok {
			out = append(out, clamped)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Area() > out[j].Area()
	})
	return out
}
