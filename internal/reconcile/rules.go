package reconcile

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Rule names how a field is compared.
type Rule string

const (
	RuleExact   Rule = "exact"
	RuleDate    Rule = "date"
	RuleFuzzy   Rule = "fuzzy"
	RuleEnum    Rule = "enum"
	RuleDefault Rule = "default"
)

// FuzzyThreshold is the minimum similarity for a fuzzy field to pass.
const FuzzyThreshold = 0.85

// ID document types with reconciliation requirements.
const (
	GhanaCard      = "Ghana Card"
	GhanaPassport  = "Ghana Passport"
	VoterID        = "Voter ID"
	DriversLicense = "Driver's License"
	BankCard       = "Bank Card"
)

var ErrUnknownIDType = errors.New("unknown ID type")

var fieldRules = map[string]Rule{
	"ghana_pin":       RuleExact,
	"voter_id_number": RuleExact,
	"passport_number": RuleExact,
	"licence_number":  RuleExact,
	"date_of_birth":   RuleDate,
	"expiry_date":     RuleDate,
	"issue_date":      RuleDate,
	"issuance_date":   RuleDate,
	"full_name":       RuleFuzzy,
	"surname":         RuleFuzzy,
	"firstname":       RuleFuzzy,
	"cardholder_name": RuleFuzzy,
	"sex":             RuleEnum,
	"gender":          RuleEnum,
	"licence_class":   RuleEnum,
}

var requiredFields = map[string][]string{
	GhanaCard:      {"ghana_pin", "full_name", "date_of_birth", "sex"},
	GhanaPassport:  {"passport_number", "full_name", "date_of_birth", "sex"},
	VoterID:        {"voter_id_number", "full_name", "date_of_birth", "sex"},
	DriversLicense: {"licence_number", "full_name", "date_of_birth"},
	BankCard:       {"cardholder_name", "card_number", "expiry_date"},
}

// RuleFor returns the comparison rule of a field. Unlisted fields compare
// like exact ones under the default rule.
func RuleFor(field string) Rule {
	if r, ok := fieldRules[field]; ok {
		return r
	}
	return RuleDefault
}

// RequiredFields lists the fields that must match for idType.
func RequiredFields(idType string) ([]string, error) {
	fields, ok := requiredFields[idType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownIDType, idType)
	}
	return slices.Clone(fields), nil
}

// IDTypes lists the supported ID types in name order.
func IDTypes() []string {
	out := make([]string, 0, len(requiredFields))
	for k := range requiredFields {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// NormalizeText lowercases s and collapses whitespace.
func NormalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
