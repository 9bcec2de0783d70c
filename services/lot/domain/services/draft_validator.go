// Package services contains stateless domain services for the lot bounded context.
// Domain services enforce business rules that operate purely on domain types.
package services

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ghuser/lotdesk/services/lot/domain"
	"github.com/ghuser/lotdesk/services/lot/domain/models"
)

// Validation messages shown to the user verbatim.
const (
	MsgEstimateNotNumeric = "Both low and high estimates must be valid numbers"
	MsgEstimateOrder      = "Low estimate must be smaller than high estimate"
)

// ValidateDraft gates a draft before it may reach the collection or the
// remote store. It returns the parsed estimate; the draft itself is not
// modified.
//
// Rules, checked in order:
//   - low and high must both parse as numbers
//   - low must be strictly smaller than high
//   - title, description and consignor must be non-blank
func ValidateDraft(d models.Draft) (models.Estimate, error) {
	est, err := ParseEstimate(d.Estimate)
	if err != nil {
		return models.Estimate{}, err
	}

	required := []struct {
		field string
		value string
	}{
		{"title", d.Title},
		{"description", d.Description},
		{"consignor", d.Consignor},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return models.Estimate{}, &domain.ValidationError{
				Field:   r.field,
				Message: r.field + " is required",
			}
		}
	}

	return est, nil
}

// Bounds on a parsed estimate. Comparing two decimals rescales them to a
// common exponent, so an unbounded exponent like "1e400000000" would build an
// enormous integer.
const (
	maxEstimateExponent = 64
	maxEstimateDigits   = 40
)

// ParseEstimate parses and orders an estimate range.
func ParseEstimate(e models.EstimateDraft) (models.Estimate, error) {
	low, lowErr := parseAmount(e.Low.String())
	high, highErr := parseAmount(e.High.String())
	if lowErr != nil || highErr != nil {
		return models.Estimate{}, &domain.ValidationError{Field: "estimate", Message: MsgEstimateNotNumeric}
	}
	if low.GreaterThanOrEqual(high) {
		return models.Estimate{}, &domain.ValidationError{Field: "estimate", Message: MsgEstimateOrder}
	}
	return models.Estimate{Low: low, High: high}, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, err
	}
	if exp := d.Exponent(); exp > maxEstimateExponent || exp < -maxEstimateExponent {
		return decimal.Decimal{}, fmt.Errorf("amount %q: exponent %d out of range", s, exp)
	}
	if d.NumDigits() > maxEstimateDigits {
		return decimal.Decimal{}, fmt.Errorf("amount %q: too many digits", s)
	}
	return d, nil
}
