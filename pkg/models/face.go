package models

import "image"

// Detection method tags. The tag of the strategy that found the faces is
// reported verbatim in DetectionResult.Method.
const (
	MethodDNN            = "dnn"
	MethodHaarCascade    = "haar_cascade"
	MethodHaarScales     = "haar_scales"
	MethodProfileCascade = "profile_cascade"
	MethodNone           = "none"
)

// BoundingBox is a face region in source-image pixel coordinates.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// BoxFromRect converts an image.Rectangle into a BoundingBox.
func BoxFromRect(r image.Rectangle) BoundingBox {
	r = r.Canon()
	return BoundingBox{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

func (b BoundingBox) Area() int {
	if b.Width <= 0 || b.Height <= 0 {
		return 0
	}
	return b.Width * b.Height
}

// Clamp intersects the box with a width x height image. The second return
// value is false when nothing of the box remains.
func (b BoundingBox) Clamp(width, height int) (BoundingBox, bool) {
	r := b.Rect().Intersect(image.Rect(0, 0, width, height))
	if r.Empty() {
		return BoundingBox{}, false
	}
	return BoxFromRect(r), true
}

// DetectionResult is produced fresh for every detect call. Boxes[0] is the
// primary (largest) face.
type DetectionResult struct {
	Boxes     []BoundingBox `json:"boxes"`
	Method    string        `json:"method"`
	FaceCount int           `json:"face_count"`
	Detail    string        `json:"detail,omitempty"`
	Attempts  []string      `json:"attempts,omitempty"`
	// Stage is the terminal state of the detection chain.
	Stage     string        `json:"stage,omitempty"`
}

// Primary returns the first box, if any.
func (d DetectionResult) Primary() (BoundingBox, bool) {
	if len(d.Boxes) == 0 {
		return BoundingBox{}, false
	}
	return d.Boxes[0], true
}

// FaceQuality describes a normalized face crop.
type FaceQuality struct {
	Sharpness  float64  `json:"sharpness"`
	Brightness float64  `json:"brightness"`
	Blurry     bool     `json:"blurry"`
	TooDark    bool     `json:"too_dark"`
	TooBright  bool     `json:"too_bright"`
	Warnings   []string `json:"warnings,omitempty"`
}

// FaceReport summarises what happened to one input image on its way to the
// similarity engine.
type FaceReport struct {
	Detection     DetectionResult `json:"detection"`
	RotationAngle float64         `json:"rotation_angle"`
	Rotated       bool            `json:"rotated"`
	FaceBox       *BoundingBox    `json:"face_box,omitempty"`
	Quality       *FaceQuality    `json:"quality,omitempty"`
}
