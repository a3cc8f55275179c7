package models

import "time"

// Status enumerates the workflow states of one assessment session.
type Status string

const (
	StatusInitialized    Status = "initialized"
	StatusWaitingForUser Status = "waiting_for_user"
	StatusAggregated     Status = "aggregated"
	StatusCalculated     Status = "calculated"
	StatusValidated      Status = "validated"
	StatusComplete       Status = "complete"
	StatusError          Status = "error"
)

// IsTerminal reports whether a status ends the current invocation.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusWaitingForUser, StatusComplete, StatusError:
		return true
	}
	return false
}

// Filing statuses supported by the computation engine.
const (
	FilingSingle               = "single"
	FilingMarriedFilingJointly = "married_filing_jointly"
	FilingHeadOfHousehold      = "head_of_household"
)

// Mandatory personal_info keys, in the order they are reported back to the
// caller when missing.
const (
	FieldFilerName     = "filer_name"
	FieldFilerSSN      = "filer_ssn"
	FieldHomeAddress   = "home_address"
	FieldDigitalAssets = "digital_assets"
	FieldOccupation    = "occupation"
	FieldFilingStatus  = "filing_status"
	FieldTaxYear       = "tax_year"
	FieldIncomeData    = "income_data"
)

// Aggregate field names, shared between aggregated_data and user_inputs
// overrides.
const (
	AggTotalWages       = "total_wages"
	AggTotalInterest    = "total_interest"
	AggTotalNECIncome   = "total_nec_income"
	AggTotalWithholding = "total_withholding"
)

// AggregatedData is the session's combined income snapshot after per-document
// summation and user overrides.
type AggregatedData struct {
	TotalWages       float64 `json:"total_wages"`
	TotalInterest    float64 `json:"total_interest"`
	TotalNECIncome   float64 `json:"total_nec_income"`
	TotalWithholding float64 `json:"total_withholding"`
}

// GrossIncome returns wages + interest + non-employee compensation.
func (a AggregatedData) GrossIncome() float64 {
	return a.TotalWages + a.TotalInterest + a.TotalNECIncome
}

// CalculationResult is the derived federal tax result for one session.
type CalculationResult struct {
	GrossIncome       float64 `json:"gross_income"`
	StandardDeduction float64 `json:"standard_deduction"`
	TaxableIncome     float64 `json:"taxable_income"`
	TaxLiability      float64 `json:"tax_liability"`
	TotalWithholding  float64 `json:"total_withholding"`
	RefundOrOwed      float64 `json:"refund_or_owed"`
	Outcome           string  `json:"outcome"` // "refund", "owed" or "even"
}

// AssessmentState is the persisted workflow record, one per session. It is
// mutated in place by the orchestrator stages and saved exactly once at the
// end of every invocation.
type AssessmentState struct {
	SessionID    string `json:"session_id"`
	FilingStatus string `json:"filing_status,omitempty"`
	TaxYear      string `json:"tax_year,omitempty"`

	PersonalInfo map[string]string  `json:"personal_info"`
	UserInputs   map[string]float64 `json:"user_inputs"`

	AggregatedData    *AggregatedData    `json:"aggregated_data,omitempty"`
	CalculationResult *CalculationResult `json:"calculation_result,omitempty"`
	ValidationResult  string             `json:"validation_result,omitempty"`

	MissingFields []string `json:"missing_fields"`
	Warnings      []string `json:"warnings"`
	Status        Status   `json:"status"`

	// PermanentError carries the error code of a non-recoverable failure
	// (unsupported tax year). Once set, no later invocation for this
	// session runs the pipeline again.
	PermanentError string `json:"permanent_error,omitempty"`

	// Version is the optimistic-concurrency stamp checked by the state
	// store on save.
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewAssessmentState creates the initial record for a session.
func NewAssessmentState(sessionID string) *AssessmentState {
	return &AssessmentState{
		SessionID:     sessionID,
		PersonalInfo:  make(map[string]string),
		UserInputs:    make(map[string]float64),
		MissingFields: []string{},
		Warnings:      []string{},
		Status:        StatusInitialized,
	}
}

// AppendWarning records a warning unless the exact message is already
// present. Warnings are never pruned within a session; skipping duplicates
// keeps re-runs of a terminal session from drifting.
func (s *AssessmentState) AppendWarning(msg string) {
	for _, w := range s.Warnings {
		if w == msg {
			return
		}
	}
	s.Warnings = append(s.Warnings, msg)
}
