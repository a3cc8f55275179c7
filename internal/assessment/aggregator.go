// Package assessment implements the resumable tax-assessment workflow: field
// resolution, income aggregation, deterministic computation, advisory review
// and the persisted state machine that sequences them.
package assessment

import (
	"taxassist-workers/internal/models"
)

// Aggregate sums the per-document income figures and applies any user
// overrides field by field. Overrides replace the summed value outright, they
// are never merged numerically. A zero gross income flags income_data as
// missing and records a warning on the state; the caller decides whether that
// pauses the session.
func Aggregate(state *models.AssessmentState, docs []models.ParsedDocument) *models.AggregatedData {
	agg := &models.AggregatedData{}

	for _, doc := range docs {
		switch {
		case doc.W2 != nil:
			if doc.W2.WagesTipsOtherCompensation != nil {
				agg.TotalWages += *doc.W2.WagesTipsOtherCompensation
			}
			if doc.W2.FederalIncomeTaxWithheld != nil {
				agg.TotalWithholding += *doc.W2.FederalIncomeTaxWithheld
			}
		case doc.NEC != nil:
			if doc.NEC.NonemployeeCompensation != nil {
				agg.TotalNECIncome += *doc.NEC.NonemployeeCompensation
			}
			if doc.NEC.FederalIncomeTaxWithheld != nil {
				agg.TotalWithholding += *doc.NEC.FederalIncomeTaxWithheld
			}
		case doc.INT != nil:
			if doc.INT.InterestIncome != nil {
				agg.TotalInterest += *doc.INT.InterestIncome
			}
			if doc.INT.FederalIncomeTaxWithheld != nil {
				agg.TotalWithholding += *doc.INT.FederalIncomeTaxWithheld
			}
		}
	}

	if v, ok := state.UserInputs[models.AggTotalWages]; ok {
		agg.TotalWages = v
	}
	if v, ok := state.UserInputs[models.AggTotalInterest]; ok {
		agg.TotalInterest = v
	}
	if v, ok := state.UserInputs[models.AggTotalNECIncome]; ok {
		agg.TotalNECIncome = v
	}
	if v, ok := state.UserInputs[models.AggTotalWithholding]; ok {
		agg.TotalWithholding = v
	}

	if agg.GrossIncome() == 0 {
		state.MissingFields = append(state.MissingFields, models.FieldIncomeData)
		state.AppendWarning("No income data found in extracted documents. Please provide income information.")
	}

	return agg
}
