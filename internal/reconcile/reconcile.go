package reconcile

import (
	"strings"

	"github.com/sirupsen/logrus"

	"go-face-verifier/internal/logger"
	"go-face-verifier/pkg/models"
)

// Reconcile compares the required fields of idType between what the user
// entered and what was read from the document. The report is valid only
// when every required field passed.
func Reconcile(idType string, user, ocr map[string]string) (models.ReconcileReport, error) {
	fields, err := RequiredFields(idType)
	if err != nil {
		return models.ReconcileReport{}, err
	}

	report := newReport(idType)
	for _, field := range fields {
		report.add(field, CompareField(field, user[field], ocr[field]))
	}
	report.finish()
	return report.ReconcileReport, nil
}

// MatchAgainstText reconciles against unstructured document text, such as
// raw OCR output. Each user value is compared with every window of text
// tokens of a matching length and the best window stands in for the field.
func MatchAgainstText(idType string, user map[string]string, text string) (models.ReconcileReport, error) {
	fields, err := RequiredFields(idType)
	if err != nil {
		return models.ReconcileReport{}, err
	}

	tokens := tokenize(text)
	report := newReport(idType)
	for _, field := range fields {
		report.add(field, bestWindow(field, user[field], tokens))
	}
	report.finish()
	return report.ReconcileReport, nil
}

func tokenize(text string) []string {
	raw := strings.Fields(text)
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.Trim(t, ",;:|()[]")
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

func windowSizes(field, value string) []int {
	n := len(strings.Fields(value))
	switch RuleFor(field) {
	case RuleDate:
		return []int{1, 3}
	case RuleEnum:
		return []int{1}
	case RuleFuzzy:
		return []int{n, n + 1, max(n-1, 1)}
	}
	return []int{max(n, 1)}
}

func bestWindow(field, value string, tokens []string) models.FieldComparison {
	best := CompareField(field, value, "")
	if strings.TrimSpace(value) == "" {
		return best
	}

	rule := RuleFor(field)
	found := false
	for _, size := range windowSizes(field, value) {
		for i := 0; i+size <= len(tokens); i++ {
			candidate := strings.Join(tokens[i:i+size], " ")
			if rule == RuleEnum && !plausibleEnum(candidate) {
				continue
			}
			fc := CompareField(field, value, candidate)
			if !found || better(fc, best) {
				best, found = fc, true
			}
			if fc.Match && fc.Score == 1 {
				return fc
			}
		}
	}
	return best
}

func better(a, b models.FieldComparison) bool {
	if a.Match != b.Match {
		return a.Match
	}
	return a.Score > b.Score
}

// plausibleEnum keeps single words that can be an enum value on their own,
// so that any word starting with M does not read as male.
func plausibleEnum(token string) bool {
	switch strings.ToUpper(token) {
	case "MALE", "FEMALE":
		return true
	}
	return len([]rune(token)) <= 2
}

type reportBuilder struct {
	models.ReconcileReport
}

func newReport(idType string) *reportBuilder {
	return &reportBuilder{models.ReconcileReport{
		IDType:        idType,
		PassedFields:  []string{},
		FailedFields:  []string{},
		MissingFields: []string{},
		Comparisons:   make(map[string]models.FieldComparison),
	}}
}

func (r *reportBuilder) add(field string, fc models.FieldComparison) {
	r.Comparisons[field] = fc
	switch {
	case strings.TrimSpace(fc.UserValue) == "" || strings.TrimSpace(fc.OCRValue) == "":
		r.MissingFields = append(r.MissingFields, field)
	case fc.Match:
		r.PassedFields = append(r.PassedFields, field)
	default:
		r.FailedFields = append(r.FailedFields, field)
	}
}

func (r *reportBuilder) finish() {
	r.Valid = len(r.FailedFields) == 0 && len(r.MissingFields) == 0
	logger.WithFields(logrus.Fields{
		"id_type": r.IDType,
		"valid":   r.Valid,
		"passed":  len(r.PassedFields),
		"failed":  r.FailedFields,
		"missing": r.MissingFields,
	}).Info("Document reconciliation completed")
}
