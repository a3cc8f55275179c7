package taxengine

import "taxassist-workers/internal/models"

// SupportedTaxYear is the only filing year the tables below cover.
const SupportedTaxYear = "2024"

// Bracket is one marginal segment: income up to UpperLimit is taxed at Rate.
// UpperLimit <= 0 means the bracket is unbounded.
type Bracket struct {
	Rate       float64
	UpperLimit float64
}

var standardDeductions = map[string]float64{
	models.FilingSingle:               14600,
	models.FilingMarriedFilingJointly: 29200,
	models.FilingHeadOfHousehold:      21900,
}

// 2024 federal brackets. Thresholds are strictly increasing; the last
// bracket has no upper bound.
var taxBrackets = map[string][]Bracket{
	models.FilingSingle: {
		{0.10, 11600},
		{0.12, 47150},
		{0.22, 100525},
		{0.24, 191950},
		{0.32, 243725},
		{0.35, 609350},
		{0.37, 0},
	},
	models.FilingMarriedFilingJointly: {
		{0.10, 23200},
		{0.12, 94300},
		{0.22, 201050},
		{0.24, 383900},
		{0.32, 487450},
		{0.35, 731200},
		{0.37, 0},
	},
	models.FilingHeadOfHousehold: {
		{0.10, 16550},
		{0.12, 63100},
		{0.22, 100500},
		{0.24, 191950},
		{0.32, 243700},
		{0.35, 609350},
		{0.37, 0},
	},
}

// FilingStatuses returns the statuses the engine supports.
func FilingStatuses() []string {
	return []string{
		models.FilingSingle,
		models.FilingMarriedFilingJointly,
		models.FilingHeadOfHousehold,
	}
}
