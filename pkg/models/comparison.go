package models

// NoFaceDetected is the marker placed in ComparisonResult.Error when either
// input had no detectable face.
const NoFaceDetected = "no face detected"

// ComparisonResult is the verdict of a face comparison. IsMatch and
// AggregateScore are nil when no comparison was possible.
type ComparisonResult struct {
	IsMatch        *bool              `json:"is_match"`
	AggregateScore *float64           `json:"aggregate_score"`
	Scores         map[string]float64 `json:"scores"`
	Threshold      float64            `json:"threshold"`
	Method         string             `json:"method"`
	Error          string             `json:"error,omitempty"`
}

// Compared reports whether a verdict was reached.
func (r ComparisonResult) Compared() bool {
	return r.IsMatch != nil && r.AggregateScore != nil
}

// NoFaceResult builds the null-valued result for a comparison that could
// not run.
func NoFaceResult(method string, threshold float64) ComparisonResult {
	return ComparisonResult{
		Scores:    map[string]float64{},
		Threshold: threshold,
		Method:    method,
		Error:     NoFaceDetected,
	}
}

// ComparisonReport is a ComparisonResult plus per-image diagnostics.
type ComparisonReport struct {
	Result   ComparisonResult  `json:"result"`
	Portrait FaceReport        `json:"portrait"`
	Document FaceReport        `json:"document"`
	Backends map[string]string `json:"backends,omitempty"`
}
