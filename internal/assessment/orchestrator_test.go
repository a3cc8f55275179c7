package assessment

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxassist-workers/internal/common/config"
	commonErrors "taxassist-workers/internal/common/errors"
	"taxassist-workers/internal/common/logger"
	"taxassist-workers/internal/models"
)

type fakeExtractionStore struct {
	records []models.ExtractionRecord
	err     error
	calls   int
}

func (f *fakeExtractionStore) ResultsBySession(ctx context.Context, sessionID string) ([]models.ExtractionRecord, error) {
	f.calls++
	return f.records, f.err
}

type fakeAdvisor struct {
	text  string
	err   error
	calls int
}

func (f *fakeAdvisor) Review(ctx context.Context, result *models.CalculationResult, filingStatus string) (string, error) {
	f.calls++
	return f.text, f.err
}

// conflictOnceStore forces a single save conflict to exercise the re-run loop.
type conflictOnceStore struct {
	StateStore
	conflicted bool
}

func (c *conflictOnceStore) Save(ctx context.Context, state *models.AssessmentState) error {
	if !c.conflicted {
		c.conflicted = true
		return commonErrors.NewStateConflictError(state.SessionID)
	}
	return c.StateStore.Save(ctx, state)
}

func w2Record(t *testing.T, id string, wages, withholding float64) models.ExtractionRecord {
	t.Helper()
	data, err := json.Marshal(map[string]interface{}{
		"employee_name":                 "Jane Doe",
		"employee_ssn":                  "123-45-6789",
		"tax_year":                      "2024",
		"wages_tips_other_compensation": wages,
		"federal_income_tax_withheld":   withholding,
	})
	require.NoError(t, err)
	return models.ExtractionRecord{DocumentID: id, DocumentType: models.DocTypeW2, StructuredData: data}
}

func necRecord(t *testing.T, id string, compensation float64) models.ExtractionRecord {
	t.Helper()
	data, err := json.Marshal(map[string]interface{}{
		"recipient_name":           "Jane Doe",
		"recipient_tin":            "123-45-6789",
		"tax_year":                 "2024",
		"nonemployee_compensation": compensation,
	})
	require.NoError(t, err)
	return models.ExtractionRecord{DocumentID: id, DocumentType: models.DocType1099NEC, StructuredData: data}
}

type orchestratorEnv struct {
	orchestrator *Orchestrator
	store        StateStore
	extraction   *fakeExtractionStore
	advisor      *fakeAdvisor
}

func newOrchestratorEnv(t *testing.T) *orchestratorEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := &config.Config{}
	cfg.Tax.SupportedYear = "2024"
	cfg.Tax.SaveRetries = 2

	env := &orchestratorEnv{
		store:      NewRedisStateStore(client, 0),
		extraction: &fakeExtractionStore{},
		advisor:    &fakeAdvisor{text: "VALID"},
	}
	env.orchestrator = NewOrchestrator(env.store, env.extraction, env.advisor, cfg, logger.NewNoOpLogger())
	return env
}

func fullInput(sessionID string) *RunInput {
	return &RunInput{
		SessionID:    sessionID,
		FilingStatus: models.FilingSingle,
		TaxYear:      "2024",
		PersonalInfo: map[string]string{
			models.FieldFilerName:     "Jane Doe",
			models.FieldFilerSSN:      "123-45-6789",
			models.FieldHomeAddress:   "1 Main St",
			models.FieldDigitalAssets: "no",
			models.FieldOccupation:    "engineer",
		},
	}
}

func TestOrchestrator_RequiresSessionID(t *testing.T) {
	env := newOrchestratorEnv(t)

	_, err := env.orchestrator.Run(context.Background(), &RunInput{})
	require.Error(t, err)
}

func TestOrchestrator_NewSessionWaitsForMissingFields(t *testing.T) {
	env := newOrchestratorEnv(t)

	resp, err := env.orchestrator.Run(context.Background(), &RunInput{SessionID: "sess-1"})
	require.NoError(t, err)

	assert.Equal(t, models.ResponseWaiting, resp.Response)
	assert.Equal(t, models.StatusWaitingForUser, resp.Status)
	assert.Contains(t, resp.MissingFields, models.FieldFilerName)
	assert.Contains(t, resp.MissingFields, models.FieldFilingStatus)
	assert.Contains(t, resp.MissingFields, models.FieldTaxYear)
}

func TestOrchestrator_SingleFilerRefundScenario(t *testing.T) {
	env := newOrchestratorEnv(t)
	env.extraction.records = []models.ExtractionRecord{w2Record(t, "doc-1", 50000, 5000)}

	resp, err := env.orchestrator.Run(context.Background(), fullInput("sess-1"))
	require.NoError(t, err)

	assert.Equal(t, models.ResponseComplete, resp.Response)
	require.NotNil(t, resp.CalculationResult)
	assert.Equal(t, 50000.0, resp.CalculationResult.GrossIncome)
	assert.Equal(t, 14600.0, resp.CalculationResult.StandardDeduction)
	assert.Equal(t, 35400.0, resp.CalculationResult.TaxableIncome)
	assert.Equal(t, 4016.0, resp.CalculationResult.TaxLiability)
	assert.Equal(t, 984.0, resp.CalculationResult.RefundOrOwed)
	assert.Equal(t, "refund", resp.CalculationResult.Outcome)
	assert.Equal(t, "VALID", resp.AdvisoryText)
}

func TestOrchestrator_FreelanceOwedScenario(t *testing.T) {
	env := newOrchestratorEnv(t)
	env.extraction.records = []models.ExtractionRecord{necRecord(t, "doc-1", 20000)}

	resp, err := env.orchestrator.Run(context.Background(), fullInput("sess-1"))
	require.NoError(t, err)

	assert.Equal(t, models.ResponseComplete, resp.Response)
	require.NotNil(t, resp.CalculationResult)
	assert.Equal(t, 5400.0, resp.CalculationResult.TaxableIncome)
	assert.Equal(t, 540.0, resp.CalculationResult.TaxLiability)
	assert.Equal(t, 540.0, resp.CalculationResult.RefundOrOwed)
	assert.Equal(t, "owed", resp.CalculationResult.Outcome)
}

func TestOrchestrator_ResumeWithOnlyMissingFields(t *testing.T) {
	env := newOrchestratorEnv(t)
	env.extraction.records = []models.ExtractionRecord{w2Record(t, "doc-1", 50000, 5000)}
	ctx := context.Background()

	// First call: the documents resolve the name, SSN and year
	// opportunistically, but the rest is still missing.
	first, err := env.orchestrator.Run(ctx, &RunInput{SessionID: "sess-1"})
	require.NoError(t, err)
	require.Equal(t, models.ResponseWaiting, first.Response)
	assert.NotContains(t, first.MissingFields, models.FieldFilerName)
	assert.Contains(t, first.MissingFields, models.FieldHomeAddress)
	assert.Contains(t, first.MissingFields, models.FieldFilingStatus)

	// Second call supplies only what was reported missing.
	second, err := env.orchestrator.Run(ctx, &RunInput{
		SessionID:    "sess-1",
		FilingStatus: models.FilingSingle,
		PersonalInfo: map[string]string{
			models.FieldHomeAddress:   "1 Main St",
			models.FieldDigitalAssets: "no",
			models.FieldOccupation:    "engineer",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, models.ResponseComplete, second.Response)
	require.NotNil(t, second.CalculationResult)
	assert.Equal(t, 984.0, second.CalculationResult.RefundOrOwed)
}

func TestOrchestrator_RerunIsIdempotent(t *testing.T) {
	env := newOrchestratorEnv(t)
	env.extraction.records = []models.ExtractionRecord{w2Record(t, "doc-1", 50000, 5000)}
	ctx := context.Background()

	first, err := env.orchestrator.Run(ctx, fullInput("sess-1"))
	require.NoError(t, err)
	second, err := env.orchestrator.Run(ctx, fullInput("sess-1"))
	require.NoError(t, err)

	assert.Equal(t, first.Response, second.Response)
	assert.Equal(t, *first.CalculationResult, *second.CalculationResult)
	assert.Equal(t, first.Warnings, second.Warnings)
}

func TestOrchestrator_NoDocumentsIsAggregationError(t *testing.T) {
	env := newOrchestratorEnv(t)

	resp, err := env.orchestrator.Run(context.Background(), fullInput("sess-1"))
	require.NoError(t, err)

	assert.Equal(t, models.ResponseError, resp.Response)
	require.NotEmpty(t, resp.Warnings)
	assert.Contains(t, resp.Warnings[0], "No extraction results found")
}

func TestOrchestrator_ErrorStatusRecoversOnceDocumentsExist(t *testing.T) {
	env := newOrchestratorEnv(t)
	ctx := context.Background()

	resp, err := env.orchestrator.Run(ctx, fullInput("sess-1"))
	require.NoError(t, err)
	require.Equal(t, models.ResponseError, resp.Response)

	env.extraction.records = []models.ExtractionRecord{w2Record(t, "doc-1", 50000, 5000)}

	resp, err = env.orchestrator.Run(ctx, fullInput("sess-1"))
	require.NoError(t, err)
	assert.Equal(t, models.ResponseComplete, resp.Response)
}

func TestOrchestrator_UnsupportedYearIsPermanent(t *testing.T) {
	env := newOrchestratorEnv(t)
	env.extraction.records = []models.ExtractionRecord{w2Record(t, "doc-1", 50000, 5000)}
	ctx := context.Background()

	input := fullInput("sess-1")
	input.TaxYear = "2019"

	resp, err := env.orchestrator.Run(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, models.ResponseError, resp.Response)
	require.NotEmpty(t, resp.Warnings)
	assert.Contains(t, resp.Warnings[0], "2019")

	callsAfterFirst := env.extraction.calls

	// Re-invoking with the same year never runs the pipeline again.
	resp, err = env.orchestrator.Run(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, models.ResponseError, resp.Response)
	assert.Equal(t, callsAfterFirst, env.extraction.calls)
}

func TestOrchestrator_AmbiguousYearsPause(t *testing.T) {
	env := newOrchestratorEnv(t)

	rec2023 := w2Record(t, "doc-1", 30000, 3000)
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(rec2023.StructuredData, &payload))
	payload["tax_year"] = "2023"
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	rec2023.StructuredData = data

	env.extraction.records = []models.ExtractionRecord{rec2023, w2Record(t, "doc-2", 20000, 2000)}

	input := fullInput("sess-1")
	input.TaxYear = ""

	resp, err := env.orchestrator.Run(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, models.ResponseWaiting, resp.Response)
	assert.Contains(t, resp.MissingFields, models.FieldTaxYear)
	require.NotEmpty(t, resp.Warnings)
	assert.Contains(t, resp.Warnings[0], "2023")
	assert.Contains(t, resp.Warnings[0], "2024")
}

func TestOrchestrator_ZeroIncomePauses(t *testing.T) {
	env := newOrchestratorEnv(t)
	env.extraction.records = []models.ExtractionRecord{w2Record(t, "doc-1", 0, 100)}

	resp, err := env.orchestrator.Run(context.Background(), fullInput("sess-1"))
	require.NoError(t, err)

	assert.Equal(t, models.ResponseWaiting, resp.Response)
	assert.Contains(t, resp.MissingFields, models.FieldIncomeData)
}

func TestOrchestrator_UserOverrideResolvesZeroIncome(t *testing.T) {
	env := newOrchestratorEnv(t)
	env.extraction.records = []models.ExtractionRecord{w2Record(t, "doc-1", 0, 100)}

	input := fullInput("sess-1")
	input.UserInputs = map[string]float64{models.AggTotalWages: 50000, models.AggTotalWithholding: 5000}

	resp, err := env.orchestrator.Run(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, models.ResponseComplete, resp.Response)
	require.NotNil(t, resp.CalculationResult)
	assert.Equal(t, 984.0, resp.CalculationResult.RefundOrOwed)
}

func TestOrchestrator_AdvisorFailureStillCompletes(t *testing.T) {
	env := newOrchestratorEnv(t)
	env.extraction.records = []models.ExtractionRecord{w2Record(t, "doc-1", 50000, 5000)}
	env.advisor.text = ""
	env.advisor.err = commonErrors.NewAdvisorTimeoutError()

	resp, err := env.orchestrator.Run(context.Background(), fullInput("sess-1"))
	require.NoError(t, err)

	assert.Equal(t, models.ResponseComplete, resp.Response)
	assert.Empty(t, resp.AdvisoryText)
	require.NotEmpty(t, resp.Warnings)
	assert.Contains(t, resp.Warnings[0], "Validation error")
}

func TestOrchestrator_ActionableReviewRecordedAsWarning(t *testing.T) {
	env := newOrchestratorEnv(t)
	env.extraction.records = []models.ExtractionRecord{w2Record(t, "doc-1", 50000, 5000)}
	env.advisor.text = "WARNING: withholding is unusually high for this income"

	resp, err := env.orchestrator.Run(context.Background(), fullInput("sess-1"))
	require.NoError(t, err)

	assert.Equal(t, models.ResponseComplete, resp.Response)
	assert.Equal(t, env.advisor.text, resp.AdvisoryText)
	assert.Contains(t, resp.Warnings, env.advisor.text)
}

func TestOrchestrator_MalformedDocumentSkippedWithWarning(t *testing.T) {
	env := newOrchestratorEnv(t)
	env.extraction.records = []models.ExtractionRecord{
		w2Record(t, "doc-1", 50000, 5000),
		{DocumentID: "doc-2", DocumentType: models.DocTypeW2, StructuredData: []byte(`not json`)},
	}

	resp, err := env.orchestrator.Run(context.Background(), fullInput("sess-1"))
	require.NoError(t, err)

	assert.Equal(t, models.ResponseComplete, resp.Response)
	assert.Equal(t, 50000.0, resp.CalculationResult.GrossIncome)
	require.NotEmpty(t, resp.Warnings)
	assert.Contains(t, resp.Warnings[0], "doc-2")
}

func TestOrchestrator_ExtractionFailureIsError(t *testing.T) {
	env := newOrchestratorEnv(t)
	env.extraction.err = errors.New("connection refused")

	resp, err := env.orchestrator.Run(context.Background(), fullInput("sess-1"))
	require.NoError(t, err)

	assert.Equal(t, models.ResponseError, resp.Response)
	require.NotEmpty(t, resp.Warnings)
	assert.Contains(t, resp.Warnings[0], "Aggregation error")
}

func TestOrchestrator_SaveConflictRetriesWholeRun(t *testing.T) {
	env := newOrchestratorEnv(t)
	env.extraction.records = []models.ExtractionRecord{w2Record(t, "doc-1", 50000, 5000)}

	cfg := &config.Config{}
	cfg.Tax.SupportedYear = "2024"
	cfg.Tax.SaveRetries = 2

	wrapped := &conflictOnceStore{StateStore: env.store}
	orchestrator := NewOrchestrator(wrapped, env.extraction, env.advisor, cfg, logger.NewNoOpLogger())

	resp, err := orchestrator.Run(context.Background(), fullInput("sess-1"))
	require.NoError(t, err)

	assert.Equal(t, models.ResponseComplete, resp.Response)
	assert.True(t, wrapped.conflicted)
	assert.Equal(t, 2, env.extraction.calls, "pipeline re-ran after the conflict")
}

func TestOrchestrator_ConflictRetriesExhausted(t *testing.T) {
	env := newOrchestratorEnv(t)
	env.extraction.records = []models.ExtractionRecord{w2Record(t, "doc-1", 50000, 5000)}

	cfg := &config.Config{}
	cfg.Tax.SupportedYear = "2024"
	cfg.Tax.SaveRetries = 1

	orchestrator := NewOrchestrator(alwaysConflictStore{}, env.extraction, env.advisor, cfg, logger.NewNoOpLogger())

	_, err := orchestrator.Run(context.Background(), fullInput("sess-1"))
	require.Error(t, err)

	stdErr, ok := err.(*commonErrors.StandardError)
	require.True(t, ok)
	assert.Equal(t, commonErrors.ErrCodeStateConflict, stdErr.Code)
}

type alwaysConflictStore struct{}

func (alwaysConflictStore) Load(ctx context.Context, sessionID string) (*models.AssessmentState, error) {
	return nil, nil
}

func (alwaysConflictStore) Save(ctx context.Context, state *models.AssessmentState) error {
	return commonErrors.NewStateConflictError(state.SessionID)
}
