package detector

import (
	"errors"
	"os"
	"testing"

	"gocv.io/x/gocv"

	"go-face-verifier/internal/preprocess"
	"go-face-verifier/internal/raster"
	"go-face-verifier/pkg/models"
)

type fakeStrategy struct {
	method string
	stage  State
	boxes  []models.BoundingBox
	err    error
	calls  int
}

func (f *fakeStrategy) Method() string { return f.method }
func (f *fakeStrategy) Stage() State   { return f.stage }
func (f *fakeStrategy) Detect(*Frame) ([]models.BoundingBox, string, error) {
	f.calls++
	return f.boxes, "fake", f.err
}

// channelStrategy records the channel counts of the frames it sees.
type channelStrategy struct {
	colorChannels int
	grayChannels  int
}

func (c *channelStrategy) Method() string { return models.MethodDNN }
func (c *channelStrategy) Stage() State   { return StateDNNTried }
func (c *channelStrategy) Detect(f *Frame) ([]models.BoundingBox, string, error) {
	c.colorChannels = f.Color.Channels()
	c.grayChannels = f.Gray.Channels()
	return nil, "", nil
}

func newFrame(t *testing.T, w, h int) *Frame {
	t.Helper()
	color := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), h, w, gocv.MatTypeCV8UC3)
	gray := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), h, w, gocv.MatTypeCV8UC1)
	t.Cleanup(func() {
		color.Close()
		gray.Close()
	})
	return &Frame{Color: color, Gray: gray}
}

func TestChainStopsAtFirstHit(t *testing.T) {
	dnn := &fakeStrategy{method: models.MethodDNN, stage: StateDNNTried}
	haar := &fakeStrategy{method: models.MethodHaarCascade, stage: StateHaarDefaultTried,
		boxes: []models.BoundingBox{{X: 10, Y: 10, Width: 20, Height: 20}}}
	profile := &fakeStrategy{method: models.MethodProfileCascade, stage: StateProfileTried,
		boxes: []models.BoundingBox{{X: 0, Y: 0, Width: 5, Height: 5}}}

	l := NewLocalizer(dnn, haar, profile)
	res, state := l.DetectFrame(newFrame(t, 100, 100))

	if res.Method != models.MethodHaarCascade {
		t.Errorf("Expected method %s, got %s", models.MethodHaarCascade, res.Method)
	}
	if res.FaceCount != 1 || len(res.Boxes) != 1 {
		t.Errorf("Expected 1 face, got %d", res.FaceCount)
	}
	if profile.calls != 0 {
		t.Error("Expected profile strategy not to run")
	}
	if state != StateDone {
		t.Errorf("Expected state DONE, got %s", state)
	}
	if len(res.Attempts) != 2 {
		t.Errorf("Expected 2 attempts, got %v", res.Attempts)
	}
}

func TestChainExhaustedReportsNone(t *testing.T) {
	strategies := []Strategy{
		&fakeStrategy{method: models.MethodDNN, stage: StateDNNTried},
		&fakeStrategy{method: models.MethodHaarCascade, stage: StateHaarDefaultTried, err: errors.New("broken")},
		&fakeStrategy{method: models.MethodHaarScales, stage: StateHaarScalesTried},
		&fakeStrategy{method: models.MethodProfileCascade, stage: StateProfileTried},
	}

	res, state := NewLocalizer(strategies...).DetectFrame(newFrame(t, 64, 64))

	if res.Method != models.MethodNone {
		t.Errorf("Expected method none, got %s", res.Method)
	}
	if res.FaceCount != 0 || res.Boxes == nil {
		t.Errorf("Expected empty non-nil boxes, got %v", res.Boxes)
	}
	if state != StateDone {
		t.Errorf("Expected state DONE, got %s", state)
	}
	for _, s := range strategies {
		if s.(*fakeStrategy).calls != 1 {
			t.Errorf("Expected %s to run once", s.Method())
		}
	}
}

func TestBoxesAreClampedAndOrdered(t *testing.T) {
	hit := &fakeStrategy{method: models.MethodDNN, stage: StateDNNTried, boxes: []models.BoundingBox{
		{X: 5, Y: 5, Width: 10, Height: 10},
		{X: 80, Y: 80, Width: 50, Height: 50},
		{X: 200, Y: 200, Width: 10, Height: 10},
		{X: 10, Y: 10, Width: 30, Height: 30},
	}}

	res, _ := NewLocalizer(hit).DetectFrame(newFrame(t, 100, 100))

	if res.FaceCount != 3 {
		t.Fatalf("Expected 3 boxes after clamping, got %d", res.FaceCount)
	}
	want := []models.BoundingBox{
		{X: 10, Y: 10, Width: 30, Height: 30},
		{X: 80, Y: 80, Width: 20, Height: 20},
		{X: 5, Y: 5, Width: 10, Height: 10},
	}
	for i, b := range want {
		if res.Boxes[i] != b {
			t.Errorf("Box %d: expected %+v, got %+v", i, b, res.Boxes[i])
		}
	}
}

func TestDetectExpandsGrayInput(t *testing.T) {
	tests := []struct {
		name  string
		order raster.ColorOrder
	}{
		{"gray", raster.Gray},
		{"bgr", raster.BGR},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pre, err := preprocess.Passthrough(raster.New(64, 48, tt.order))
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			recorder := &channelStrategy{}
			res, err := NewLocalizer(recorder).Detect(pre)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if recorder.colorChannels != 3 {
				t.Errorf("Expected 3 channel color frame, got %d", recorder.colorChannels)
			}
			if recorder.grayChannels != 1 {
				t.Errorf("Expected 1 channel gray frame, got %d", recorder.grayChannels)
			}
			if res.Stage != StateDone.String() {
				t.Errorf("Expected stage %s, got %q", StateDone, res.Stage)
			}
		})
	}
}

func TestStateString(t *testing.T) {
	if StateHaarScalesTried.String() != "HAAR_SCALES_TRIED" {
		t.Errorf("Unexpected state name %s", StateHaarScalesTried)
	}
}

func TestModelsWithoutCascadeFail(t *testing.T) {
	m := NewModels(ModelConfig{FrontalCascadePath: "/nonexistent/cascade.xml"})
	defer m.Close()

	if err := m.Load(); err == nil {
		t.Error("Expected error for missing frontal cascade")
	}
	if m.Availability().Frontal {
		t.Error("Expected frontal cascade to be unavailable")
	}
}

// TestDefaultChainOnBlankImage needs the OpenCV cascades installed.
func TestDefaultChainOnBlankImage(t *testing.T) {
	m := NewModels(ModelConfig{FrontalCascadePath: os.Getenv("FACE_CASCADE_PATH")})
	defer m.Close()
	if err := m.Load(); err != nil {
		t.Skipf("cascades not available: %v", err)
	}

	res, state := NewLocalizer(DefaultChain(m, 0.5)...).DetectFrame(newFrame(t, 100, 100))
	if res.FaceCount != 0 || res.Method != models.MethodNone {
		t.Errorf("Expected no faces on a blank frame, got %d via %s", res.FaceCount, res.Method)
	}
	if state != StateDone {
		t.Errorf("Expected state DONE, got %s", state)
	}
}
