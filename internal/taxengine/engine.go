// Package taxengine computes federal tax results for the supported filing
// year. All functions are pure: same inputs, same outputs, no I/O.
package taxengine

import (
	"errors"
	"fmt"
	"math"

	"taxassist-workers/internal/models"
)

var ErrInvalidFilingStatus = errors.New("INVALID_FILING_STATUS")

// Outcome values for Settle.
const (
	OutcomeRefund = "refund"
	OutcomeOwed   = "owed"
	OutcomeEven   = "even"
)

// roundCents rounds to 2 decimal places, half away from zero.
func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// StandardDeduction returns the fixed deduction for a filing status.
func StandardDeduction(filingStatus string) (float64, error) {
	d, ok := standardDeductions[filingStatus]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrInvalidFilingStatus, filingStatus)
	}
	return d, nil
}

// TaxableIncome returns gross income less the standard deduction, floored
// at zero.
func TaxableIncome(grossIncome float64, filingStatus string) (float64, error) {
	deduction, err := StandardDeduction(filingStatus)
	if err != nil {
		return 0, err
	}
	return math.Max(0, grossIncome-deduction), nil
}

// TaxLiability walks the marginal brackets in order, taxing the slice of
// income inside each bracket at that bracket's rate. Rounding to cents
// happens once at the end, not per bracket.
func TaxLiability(taxableIncome float64, filingStatus string) (float64, error) {
	brackets, ok := taxBrackets[filingStatus]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrInvalidFilingStatus, filingStatus)
	}
	if taxableIncome <= 0 {
		return 0, nil
	}

	total := 0.0
	remaining := taxableIncome
	previousLimit := 0.0

	for _, b := range brackets {
		if remaining <= 0 {
			break
		}

		chunk := remaining
		if b.UpperLimit > 0 {
			chunk = math.Min(remaining, b.UpperLimit-previousLimit)
		}

		total += chunk * b.Rate
		remaining -= chunk

		if b.UpperLimit > 0 {
			previousLimit = b.UpperLimit
		}
	}

	return roundCents(total), nil
}

// Settle classifies the balance between liability and withholding.
// The returned amount is always non-negative; the outcome carries the sign.
func Settle(taxLiability, totalWithholding float64) (float64, string) {
	balance := taxLiability - totalWithholding

	switch {
	case balance < 0:
		return roundCents(-balance), OutcomeRefund
	case balance > 0:
		return roundCents(balance), OutcomeOwed
	default:
		return 0, OutcomeEven
	}
}

// Calculate runs the full engine for one aggregated snapshot.
func Calculate(agg models.AggregatedData, filingStatus string) (*models.CalculationResult, error) {
	grossIncome := agg.GrossIncome()

	deduction, err := StandardDeduction(filingStatus)
	if err != nil {
		return nil, err
	}

	taxable, err := TaxableIncome(grossIncome, filingStatus)
	if err != nil {
		return nil, err
	}

	liability, err := TaxLiability(taxable, filingStatus)
	if err != nil {
		return nil, err
	}

	amount, outcome := Settle(liability, agg.TotalWithholding)

	return &models.CalculationResult{
		GrossIncome:       grossIncome,
		StandardDeduction: deduction,
		TaxableIncome:     taxable,
		TaxLiability:      liability,
		TotalWithholding:  agg.TotalWithholding,
		RefundOrOwed:      amount,
		Outcome:           outcome,
	}, nil
}
