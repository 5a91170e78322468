package reconcile

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/arbovm/levenshtein"
	"github.com/codycollier/wer"

	"go-face-verifier/pkg/models"
)

var dateLayouts = []string{
	"2006-1-2",
	"2-1-2006",
	"2/1/2006",
	"1/2/2006",
	"2006/1/2",
	"2.1.2006",
	"2 Jan 2006",
	"2 January 2006",
}

// NormalizeDate rewrites a date in any known layout as YYYY-MM-DD. Unknown
// layouts are returned trimmed.
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return s
}

// Similarity scores two strings in [0, 1]. It takes the better of the
// character level Levenshtein ratio and the word level 1 - WER, so both
// typos and dropped or extra name parts are tolerated.
func Similarity(a, b string) float64 {
	a, b = NormalizeText(a), NormalizeText(b)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	charScore := 1 - float64(levenshtein.Distance(a, b))/float64(longest)

	rate, _ := wer.WER(strings.Fields(a), strings.Fields(b))
	wordScore := 1 - min(rate, 1)

	return max(charScore, wordScore, 0)
}

// CompareField compares one user-entered value with the document value
// using the field's rule.
func CompareField(field, userValue, ocrValue string) models.FieldComparison {
	rule := RuleFor(field)
	fc := models.FieldComparison{
		UserValue: userValue,
		OCRValue:  ocrValue,
		Rule:      string(rule),
	}
	if strings.TrimSpace(userValue) == "" || strings.TrimSpace(ocrValue) == "" {
		fc.Message = "Missing value"
		return fc
	}

	switch rule {
	case RuleDate:
		u, o := NormalizeDate(userValue), NormalizeDate(ocrValue)
		fc.Match = u == o
		if fc.Match {
			fc.Message = "Date match"
		} else {
			fc.Message = fmt.Sprintf("Date mismatch: '%s' vs '%s'", u, o)
		}
	case RuleFuzzy:
		fc.Score = Similarity(userValue, ocrValue)
		fc.Match = fc.Score >= FuzzyThreshold
		if fc.Match {
			fc.Message = fmt.Sprintf("Fuzzy match (%.0f%%)", fc.Score*100)
		} else {
			fc.Message = fmt.Sprintf("No match: '%s' vs '%s' (%.0f%%)", userValue, ocrValue, fc.Score*100)
		}
	case RuleEnum:
		u, o := enumKey(userValue), enumKey(ocrValue)
		fc.Match = u == o
		if fc.Match {
			fc.Message = "Enum match: " + u
		} else {
			fc.Message = fmt.Sprintf("Enum mismatch: '%s' vs '%s'", u, o)
		}
	default:
		fc.Match = strings.EqualFold(strings.TrimSpace(userValue), strings.TrimSpace(ocrValue))
		if fc.Match {
			fc.Message = "Exact match"
		} else {
			fc.Message = fmt.Sprintf("Mismatch: '%s' vs '%s'", userValue, ocrValue)
		}
	}
	if rule != RuleFuzzy && fc.Match {
		fc.Score = 1
	}
	return fc
}

// enumKey reduces an enum value to its first letter, so M and Male agree.
func enumKey(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	r, _ := utf8.DecodeRuneInString(s)
	return string(r)
}
