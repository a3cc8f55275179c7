package assessment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	commonErrors "taxassist-workers/internal/common/errors"
	"taxassist-workers/internal/models"
)

const supportedYear = "2024"

func completeState(sessionID string) *models.AssessmentState {
	state := models.NewAssessmentState(sessionID)
	state.FilingStatus = models.FilingSingle
	state.TaxYear = supportedYear
	state.PersonalInfo[models.FieldFilerName] = "Jane Doe"
	state.PersonalInfo[models.FieldFilerSSN] = "123-45-6789"
	state.PersonalInfo[models.FieldHomeAddress] = "1 Main St"
	state.PersonalInfo[models.FieldDigitalAssets] = "no"
	state.PersonalInfo[models.FieldOccupation] = "engineer"
	return state
}

func TestResolveMandatoryFields_AllPresent(t *testing.T) {
	state := completeState("sess-1")

	err := ResolveMandatoryFields(state, nil, supportedYear)

	require.NoError(t, err)
	assert.Empty(t, state.MissingFields)
}

func TestResolveMandatoryFields_ReportsMissingInOrder(t *testing.T) {
	state := models.NewAssessmentState("sess-1")

	err := ResolveMandatoryFields(state, nil, supportedYear)

	require.NoError(t, err)
	assert.Equal(t, []string{
		models.FieldFilerName,
		models.FieldFilerSSN,
		models.FieldHomeAddress,
		models.FieldDigitalAssets,
		models.FieldOccupation,
		models.FieldFilingStatus,
		models.FieldTaxYear,
	}, state.MissingFields)
}

func TestResolveMandatoryFields_OpportunisticFillFromDocuments(t *testing.T) {
	state := models.NewAssessmentState("sess-1")

	docs := []models.ParsedDocument{
		{
			DocumentID:   "doc-1",
			DocumentType: models.DocTypeW2,
			W2: &models.W2Data{
				EmployeeName: "Jane Doe",
				EmployeeSSN:  "123-45-6789",
				TaxYear:      supportedYear,
			},
		},
	}

	err := ResolveMandatoryFields(state, docs, supportedYear)

	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", state.PersonalInfo[models.FieldFilerName])
	assert.Equal(t, "123-45-6789", state.PersonalInfo[models.FieldFilerSSN])
	assert.Equal(t, supportedYear, state.TaxYear)
	assert.NotContains(t, state.MissingFields, models.FieldFilerName)
	assert.NotContains(t, state.MissingFields, models.FieldTaxYear)
}

func TestResolveMandatoryFields_UserValuesNeverOverwritten(t *testing.T) {
	state := models.NewAssessmentState("sess-1")
	state.PersonalInfo[models.FieldFilerName] = "User Supplied"
	state.TaxYear = supportedYear

	docs := []models.ParsedDocument{
		{
			DocumentID:   "doc-1",
			DocumentType: models.DocTypeW2,
			W2: &models.W2Data{
				EmployeeName: "Document Name",
				TaxYear:      "2023",
			},
		},
	}

	err := ResolveMandatoryFields(state, docs, supportedYear)

	require.NoError(t, err)
	assert.Equal(t, "User Supplied", state.PersonalInfo[models.FieldFilerName])
	assert.Equal(t, supportedYear, state.TaxYear)
}

func TestResolveMandatoryFields_AmbiguousTaxYear(t *testing.T) {
	state := models.NewAssessmentState("sess-1")

	docs := []models.ParsedDocument{
		{
			DocumentID:   "doc-1",
			DocumentType: models.DocTypeW2,
			W2:           &models.W2Data{TaxYear: "2023"},
		},
		{
			DocumentID:   "doc-2",
			DocumentType: models.DocType1099INT,
			INT:          &models.INT1099Data{TaxYear: "2024"},
		},
	}

	err := ResolveMandatoryFields(state, docs, supportedYear)

	require.NoError(t, err)
	assert.Empty(t, state.TaxYear)
	assert.Contains(t, state.MissingFields, models.FieldTaxYear)
	require.NotEmpty(t, state.Warnings)
	assert.Contains(t, state.Warnings[0], "2023")
	assert.Contains(t, state.Warnings[0], "2024")
}

func TestResolveMandatoryFields_AmbiguityResolvedByPinnedYear(t *testing.T) {
	state := models.NewAssessmentState("sess-1")
	state.TaxYear = supportedYear

	docs := []models.ParsedDocument{
		{DocumentID: "doc-1", DocumentType: models.DocTypeW2, W2: &models.W2Data{TaxYear: "2023"}},
		{DocumentID: "doc-2", DocumentType: models.DocTypeW2, W2: &models.W2Data{TaxYear: "2024"}},
	}

	err := ResolveMandatoryFields(state, docs, supportedYear)

	require.NoError(t, err)
	assert.NotContains(t, state.MissingFields, models.FieldTaxYear)
}

func TestResolveMandatoryFields_UnsupportedYearIsPermanent(t *testing.T) {
	state := completeState("sess-1")
	state.TaxYear = "2019"

	err := ResolveMandatoryFields(state, nil, supportedYear)

	require.Error(t, err)
	stdErr, ok := err.(*commonErrors.StandardError)
	require.True(t, ok)
	assert.Equal(t, commonErrors.ErrCodeUnsupportedTaxYear, stdErr.Code)
	assert.False(t, stdErr.Retryable)
	assert.Contains(t, stdErr.Message, "2019")
}
