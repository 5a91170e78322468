package detector

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"go-face-verifier/pkg/models"
)

// State is the position of the localizer in its fallback chain.
type State int

const (
	StateNotStarted State = iota
	StateDNNTried
	StateHaarDefaultTried
	StateHaarScalesTried
	StateProfileTried
	StateDone
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "NOT_STARTED"
	case StateDNNTried:
		return "DNN_TRIED"
	case StateHaarDefaultTried:
		return "HAAR_DEFAULT_TRIED"
	case StateHaarScalesTried:
		return "HAAR_SCALES_TRIED"
	case StateProfileTried:
		return "PROFILE_TRIED"
	case StateDone:
		return "DONE"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Frame is the per-call input shared by the strategies of one detect call.
// Color is the (rotation corrected) BGR image, Gray its enhanced grayscale.
type Frame struct {
	Color gocv.Mat
	Gray  gocv.Mat
}

func (f *Frame) Width() int  { return f.Gray.Cols() }
func (f *Frame) Height() int { return f.Gray.Rows() }

// Strategy is one link of the detection chain. Detect returns the boxes it
// found plus a free-form detail string for logs.
type Strategy interface {
	Method() string
	Stage() State
	Detect(f *Frame) ([]models.BoundingBox, string, error)
}

// CascadeParams are the DetectMultiScale parameters shared by the cascade
// strategies.
type CascadeParams struct {
	ScaleFactor  float64
	MinNeighbors int
	MinSize      image.Point
}

func DefaultCascadeParams() CascadeParams {
	return CascadeParams{ScaleFactor: 1.1, MinNeighbors: 5, MinSize: image.Point{X: 30, Y: 30}}
}

// DefaultSweepScales are tried in order by the scale sweep strategy.
var DefaultSweepScales = []float64{1.1, 1.05, 1.15}

func rectsToBoxes(rects []image.Rectangle) []models.BoundingBox {
	boxes := make([]models.BoundingBox, 0, len(rects))
	for _, r := range rects {
		boxes = append(boxes, models.BoxFromRect(r))
	}
	return boxes
}

type dnnStrategy struct {
	models     *Models
	inputSize  image.Point
	confidence float32
}

// NewDNNStrategy returns the SSD network strategy. It yields nothing when the
// network is not loaded.
func NewDNNStrategy(m *Models, confidence float32) Strategy {
	return &dnnStrategy{models: m, inputSize: image.Point{X: 300, Y: 300}, confidence: confidence}
}

func (s *dnnStrategy) Method() string { return models.MethodDNN }
func (s *dnnStrategy) Stage() State   { return StateDNNTried }

func (s *dnnStrategy) Detect(f *Frame) ([]models.BoundingBox, string, error) {
	if err := s.models.Load(); err != nil {
		return nil, "", err
	}
	if s.models.dnn == nil {
		return nil, "skipped: model unavailable", nil
	}

	blob := gocv.BlobFromImage(f.Color, 1.0, s.inputSize, gocv.NewScalar(104, 177, 123, 0), false, false)
	defer blob.Close()

	out := s.models.dnn.forward(blob)
	defer out.Close()

	// SSD output is 1x1xNx7: [image, class, confidence, x1, y1, x2, y2].
	detections := out.Reshape(1, out.Total()/7)
	defer detections.Close()

	w, h := float32(f.Width()), float32(f.Height())
	var boxes []models.BoundingBox
	var best float32
	for i := 0; i < detections.Rows(); i++ {
		conf := detections.GetFloatAt(i, 2)
		if conf <= s.confidence {
			continue
		}
		r := image.Rect(
			int(detections.GetFloatAt(i, 3)*w),
			int(detections.GetFloatAt(i, 4)*h),
			int(detections.GetFloatAt(i, 5)*w),
			int(detections.GetFloatAt(i, 6)*h),
		)
		boxes = append(boxes, models.BoxFromRect(r))
		if conf > best {
			best = conf
		}
	}
	return boxes, fmt.Sprintf("conf %.2f", best), nil
}

type cascadeStrategy struct {
	models *Models
	params CascadeParams
}

// NewCascadeStrategy runs the frontal cascade once with params.
func NewCascadeStrategy(m *Models, params CascadeParams) Strategy {
	return &cascadeStrategy{models: m, params: params}
}

func (s *cascadeStrategy) Method() string { return models.MethodHaarCascade }
func (s *cascadeStrategy) Stage() State   { return StateHaarDefaultTried }

func (s *cascadeStrategy) Detect(f *Frame) ([]models.BoundingBox, string, error) {
	if err := s.models.Load(); err != nil {
		return nil, "", err
	}
	rects := s.models.frontal.detect(f.Gray, s.params.ScaleFactor, s.params.MinNeighbors, s.params.MinSize)
	return rectsToBoxes(rects), fmt.Sprintf("scale %.2f", s.params.ScaleFactor), nil
}

type scaleSweepStrategy struct {
	models *Models
	params CascadeParams
	scales []float64
}

// NewScaleSweepStrategy retries the frontal cascade at each scale in turn and
// stops at the first scale that finds a face.
func NewScaleSweepStrategy(m *Models, params CascadeParams, scales []float64) Strategy {
	return &scaleSweepStrategy{models: m, params: params, scales: append([]float64(nil), scales...)}
}

func (s *scaleSweepStrategy) Method() string { return models.MethodHaarScales }
func (s *scaleSweepStrategy) Stage() State   { return StateHaarScalesTried }

func (s *scaleSweepStrategy) Detect(f *Frame) ([]models.BoundingBox, string, error) {
	if err := s.models.Load(); err != nil {
		return nil, "", err
	}
	for _, scale := range s.scales {
		rects := s.models.frontal.detect(f.Gray, scale, s.params.MinNeighbors, s.params.MinSize)
		if len(rects) > 0 {
			return rectsToBoxes(rects), fmt.Sprintf("scale %.2f", scale), nil
		}
	}
	return nil, "", nil
}

type profileStrategy struct {
	models *Models
	params CascadeParams
}

// NewProfileStrategy runs the profile cascade. It yields nothing when the
// cascade is not loaded.
func NewProfileStrategy(m *Models, params CascadeParams) Strategy {
	return &profileStrategy{models: m, params: params}
}

func (s *profileStrategy) Method() string { return models.MethodProfileCascade }
func (s *profileStrategy) Stage() State   { return StateProfileTried }

func (s *profileStrategy) Detect(f *Frame) ([]models.BoundingBox, string, error) {
	if err := s.models.Load(); err != nil {
		return nil, "", err
	}
	if s.models.profile == nil {
		return nil, "skipped: cascade unavailable", nil
	}
	rects := s.models.profile.detect(f.Gray, s.params.ScaleFactor, s.params.MinNeighbors, s.params.MinSize)
	return rectsToBoxes(rects), "", nil
}

// DefaultChain builds the standard DNN, frontal, sweep, profile chain over m.
func DefaultChain(m *Models, confidence float32) []Strategy {
	params := DefaultCascadeParams()
	return []Strategy{
		NewDNNStrategy(m, confidence),
		NewCascadeStrategy(m, params),
		NewScaleSweepStrategy(m, params, DefaultSweepScales),
		NewProfileStrategy(m, params),
	}
}
