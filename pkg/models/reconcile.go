package models

// FieldComparison is the outcome of comparing one user-entered field with
// the value read from the document.
type FieldComparison struct {
	UserValue string  `json:"user_value"`
	OCRValue  string  `json:"ocr_value"`
	Match     bool    `json:"match"`
	Score     float64 `json:"score"`
	Message   string  `json:"message"`
	Rule      string  `json:"rule"`
}

// ReconcileReport summarises a field reconciliation run.
type ReconcileReport struct {
	IDType        string                     `json:"id_type"`
	Valid         bool                       `json:"valid"`
	PassedFields  []string                   `json:"passed_fields"`
	FailedFields  []string                   `json:"failed_fields"`
	MissingFields []string                   `json:"missing_fields"`
	Comparisons   map[string]FieldComparison `json:"comparisons"`
}
