package assessment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxassist-workers/internal/models"
)

func f64(v float64) *float64 { return &v }

func sampleDocs() []models.ParsedDocument {
	return []models.ParsedDocument{
		{
			DocumentID:   "doc-w2-1",
			DocumentType: models.DocTypeW2,
			W2: &models.W2Data{
				WagesTipsOtherCompensation: f64(40000),
				FederalIncomeTaxWithheld:   f64(4000),
			},
		},
		{
			DocumentID:   "doc-w2-2",
			DocumentType: models.DocTypeW2,
			W2: &models.W2Data{
				WagesTipsOtherCompensation: f64(10000),
				FederalIncomeTaxWithheld:   f64(1000),
			},
		},
		{
			DocumentID:   "doc-int-1",
			DocumentType: models.DocType1099INT,
			INT: &models.INT1099Data{
				InterestIncome: f64(250.50),
			},
		},
		{
			DocumentID:   "doc-nec-1",
			DocumentType: models.DocType1099NEC,
			NEC: &models.NEC1099Data{
				NonemployeeCompensation:  f64(5000),
				FederalIncomeTaxWithheld: f64(500),
			},
		},
	}
}

func TestAggregate_SumsPerDocumentType(t *testing.T) {
	state := models.NewAssessmentState("sess-1")

	agg := Aggregate(state, sampleDocs())

	assert.Equal(t, 50000.0, agg.TotalWages)
	assert.Equal(t, 250.50, agg.TotalInterest)
	assert.Equal(t, 5000.0, agg.TotalNECIncome)
	assert.Equal(t, 5500.0, agg.TotalWithholding)
	assert.Empty(t, state.MissingFields)
}

func TestAggregate_UserOverrideReplacesOnlyThatField(t *testing.T) {
	state := models.NewAssessmentState("sess-1")
	state.UserInputs[models.AggTotalWages] = 60000

	agg := Aggregate(state, sampleDocs())

	assert.Equal(t, 60000.0, agg.TotalWages, "overridden field takes the user value")
	assert.Equal(t, 250.50, agg.TotalInterest, "other fields keep the document sums")
	assert.Equal(t, 5000.0, agg.TotalNECIncome)
	assert.Equal(t, 5500.0, agg.TotalWithholding)
}

func TestAggregate_OverrideReplacesNotMerges(t *testing.T) {
	state := models.NewAssessmentState("sess-1")
	state.UserInputs[models.AggTotalWithholding] = 100

	agg := Aggregate(state, sampleDocs())

	assert.Equal(t, 100.0, agg.TotalWithholding)
}

func TestAggregate_ZeroIncomeFlagsMissingData(t *testing.T) {
	state := models.NewAssessmentState("sess-1")

	docs := []models.ParsedDocument{
		{
			DocumentID:   "doc-w2-1",
			DocumentType: models.DocTypeW2,
			W2: &models.W2Data{
				FederalIncomeTaxWithheld: f64(100),
			},
		},
	}

	agg := Aggregate(state, docs)

	assert.Equal(t, 0.0, agg.GrossIncome())
	assert.Contains(t, state.MissingFields, models.FieldIncomeData)
	require.Len(t, state.Warnings, 1)
	assert.Contains(t, state.Warnings[0], "No income data found")
}

func TestAggregate_ZeroIncomeWarningNotDuplicatedOnRerun(t *testing.T) {
	state := models.NewAssessmentState("sess-1")

	Aggregate(state, nil)
	state.MissingFields = []string{}
	Aggregate(state, nil)

	assert.Len(t, state.Warnings, 1)
}

func TestAggregate_NilAmountsIgnored(t *testing.T) {
	state := models.NewAssessmentState("sess-1")

	docs := []models.ParsedDocument{
		{DocumentID: "doc-1", DocumentType: models.DocTypeW2, W2: &models.W2Data{}},
		{DocumentID: "doc-2", DocumentType: models.DocType1099INT, INT: &models.INT1099Data{InterestIncome: f64(10)}},
	}

	agg := Aggregate(state, docs)

	assert.Equal(t, 0.0, agg.TotalWages)
	assert.Equal(t, 10.0, agg.TotalInterest)
}
