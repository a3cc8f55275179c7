package models

import "encoding/json"

// Document kinds produced by the extraction service.
const (
	DocTypeW2      = "tax.us.w2"
	DocType1099NEC = "tax.us.1099NEC"
	DocType1099INT = "tax.us.1099INT"
)

// ExtractionRecord is one extracted document as stored by the document
// intelligence pipeline: a kind tag plus the raw structured payload.
type ExtractionRecord struct {
	DocumentID     string          `json:"documentId" db:"document_id"`
	DocumentType   string          `json:"documentType" db:"document_type"`
	StructuredData json.RawMessage `json:"structuredData" db:"structured_data"`
}

// W2Data holds the fields of a wage statement the aggregator cares about.
type W2Data struct {
	EmployeeName               string   `json:"employee_name,omitempty"`
	EmployeeSSN                string   `json:"employee_ssn,omitempty"`
	TaxYear                    string   `json:"tax_year,omitempty"`
	WagesTipsOtherCompensation *float64 `json:"wages_tips_other_compensation,omitempty"`
	FederalIncomeTaxWithheld   *float64 `json:"federal_income_tax_withheld,omitempty"`
}

// NEC1099Data holds the fields of a non-employee-compensation statement.
type NEC1099Data struct {
	RecipientName            string   `json:"recipient_name,omitempty"`
	RecipientTIN             string   `json:"recipient_tin,omitempty"`
	TaxYear                  string   `json:"tax_year,omitempty"`
	NonemployeeCompensation  *float64 `json:"nonemployee_compensation,omitempty"`
	FederalIncomeTaxWithheld *float64 `json:"federal_income_tax_withheld,omitempty"`
}

// INT1099Data holds the fields of an interest-income statement.
type INT1099Data struct {
	RecipientName            string   `json:"recipient_name,omitempty"`
	RecipientTIN             string   `json:"recipient_tin,omitempty"`
	TaxYear                  string   `json:"tax_year,omitempty"`
	InterestIncome           *float64 `json:"interest_income,omitempty"`
	FederalIncomeTaxWithheld *float64 `json:"federal_income_tax_withheld,omitempty"`
}

// ParsedDocument is one extraction record decoded into its typed shape.
// Exactly one of the payload fields is non-nil, matching DocumentType.
type ParsedDocument struct {
	DocumentID   string
	DocumentType string
	W2           *W2Data
	NEC          *NEC1099Data
	INT          *INT1099Data
}

// Name returns the filer name carried by the document, if any.
func (d ParsedDocument) Name() string {
	switch {
	case d.W2 != nil:
		return d.W2.EmployeeName
	case d.NEC != nil:
		return d.NEC.RecipientName
	case d.INT != nil:
		return d.INT.RecipientName
	}
	return ""
}

// TaxID returns the filer SSN/TIN carried by the document, if any.
func (d ParsedDocument) TaxID() string {
	switch {
	case d.W2 != nil:
		return d.W2.EmployeeSSN
	case d.NEC != nil:
		return d.NEC.RecipientTIN
	case d.INT != nil:
		return d.INT.RecipientTIN
	}
	return ""
}

// TaxYear returns the tax year carried by the document, if any.
func (d ParsedDocument) TaxYear() string {
	switch {
	case d.W2 != nil:
		return d.W2.TaxYear
	case d.NEC != nil:
		return d.NEC.TaxYear
	case d.INT != nil:
		return d.INT.TaxYear
	}
	return ""
}
