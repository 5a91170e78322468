package models

// CompareURLRequest asks for a comparison between two remote images.
type CompareURLRequest struct {
	PortraitURL string   `json:"portrait_url" binding:"required"`
	DocumentURL string   `json:"document_url" binding:"required"`
	Method      string   `json:"method,omitempty"`
	Threshold   *float64 `json:"threshold,omitempty"`
}

// ReconcileRequest carries user-entered fields and either OCR fields or a
// document image URL to read text from.
type ReconcileRequest struct {
	IDType      string            `json:"id_type" binding:"required"`
	UserFields  map[string]string `json:"user_fields" binding:"required"`
	OCRFields   map[string]string `json:"ocr_fields,omitempty"`
	DocumentURL string            `json:"document_url,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type ComparisonResponse struct {
	ComparisonReport
	Timestamp         string  `json:"timestamp"`
	ProcessingTimeSec float64 `json:"processing_time_sec"`
}

type DetectionResponse struct {
	Detection         DetectionResult `json:"detection"`
	RotationAngle     float64         `json:"rotation_angle"`
	ImageWidth        int             `json:"image_width"`
	ImageHeight       int             `json:"image_height"`
	Timestamp         string          `json:"timestamp"`
	ProcessingTimeSec float64         `json:"processing_time_sec"`
}

// ExtractionResponse describes an ID card face extraction. FacePNG holds the
// base64 encoded normalized face when one was found.
type ExtractionResponse struct {
	FacesDetected     int           `json:"faces_detected"`
	Boxes             []BoundingBox `json:"boxes"`
	Method            string        `json:"method"`
	Success           bool          `json:"success"`
	Message           string        `json:"message"`
	Quality           *FaceQuality  `json:"quality,omitempty"`
	FacePNG           string        `json:"face_png,omitempty"`
	SinkLocation      string        `json:"sink_location,omitempty"`
	Timestamp         string        `json:"timestamp"`
	ProcessingTimeSec float64       `json:"processing_time_sec"`
}

type CapabilitiesResponse struct {
	Metrics           map[string]string `json:"metrics"`
	ComparisonMethods []string          `json:"comparison_methods"`
	DNNAvailable      bool              `json:"dnn_available"`
	ProfileAvailable  bool              `json:"profile_available"`
	DefaultThreshold  float64           `json:"default_threshold"`
}

// ComparePair is one entry of a batch comparison.
type ComparePair struct {
	PortraitURL string `json:"portrait_url"`
	DocumentURL string `json:"document_url"`
}

type BatchItem struct {
	Index  int                 `json:"index"`
	Pair   ComparePair         `json:"pair"`
	Report *ComparisonResponse `json:"report,omitempty"`
	Error  string              `json:"error,omitempty"`
}
