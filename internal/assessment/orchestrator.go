package assessment

import (
	"context"
	"fmt"
	"time"

	"taxassist-workers/internal/common/config"
	commonErrors "taxassist-workers/internal/common/errors"
	"taxassist-workers/internal/common/logger"
	"taxassist-workers/internal/common/metrics"
	"taxassist-workers/internal/extraction"
	"taxassist-workers/internal/models"
	"taxassist-workers/internal/taxengine"
)

// RunInput is one invocation's worth of caller-supplied data. Every field is
// optional; whatever is present is merged into the session before the
// pipeline runs.
type RunInput struct {
	SessionID    string             `json:"sessionId"`
	FilingStatus string             `json:"filingStatus,omitempty"`
	TaxYear      string             `json:"taxYear,omitempty"`
	PersonalInfo map[string]string  `json:"personalInfo,omitempty"`
	UserInputs   map[string]float64 `json:"userInputs,omitempty"`
}

// Orchestrator sequences the assessment stages behind persisted per-session
// state. Every invocation re-runs the whole pipeline from the top; resumption
// is derived purely from what the merged state still needs.
type Orchestrator struct {
	store         StateStore
	extraction    extraction.Store
	advisor       Advisor
	logger        logger.Logger
	supportedYear string
	saveRetries   int
}

func NewOrchestrator(store StateStore, ext extraction.Store, advisor Advisor, cfg *config.Config, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		store:         store,
		extraction:    ext,
		advisor:       advisor,
		logger:        log.With(map[string]interface{}{"component": "orchestrator"}),
		supportedYear: cfg.Tax.SupportedYear,
		saveRetries:   cfg.Tax.SaveRetries,
	}
}

// Run executes one invocation for a session. The state is loaded (or
// created), the caller's inputs are merged, the pipeline runs, and the final
// state is persisted exactly once. A save conflict with a concurrent
// invocation reloads and re-runs the whole pipeline; the engine is
// deterministic, so re-running is safe.
func (o *Orchestrator) Run(ctx context.Context, input *RunInput) (*models.AssessmentResponse, error) {
	if input.SessionID == "" {
		return nil, commonErrors.NewBusinessRuleError("session id is required", "")
	}

	start := time.Now()

	for attempt := 0; attempt <= o.saveRetries; attempt++ {
		state, err := o.store.Load(ctx, input.SessionID)
		if err != nil {
			return nil, err
		}
		if state == nil {
			state = models.NewAssessmentState(input.SessionID)
		}

		mergeInput(state, input)

		if state.PermanentError != "" {
			state.Status = models.StatusError
		} else {
			o.runPipeline(ctx, state)
		}

		err = o.store.Save(ctx, state)
		if err == nil {
			status := string(state.Status)
			metrics.AssessmentRuns.WithLabelValues(status).Inc()
			metrics.AssessmentRunDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
			o.logger.Info("assessment run finished", map[string]interface{}{
				"sessionId": state.SessionID,
				"status":    status,
				"version":   state.Version,
			})
			return models.ResponseFromState(state), nil
		}

		if stdErr, ok := err.(*commonErrors.StandardError); ok && stdErr.Code == commonErrors.ErrCodeStateConflict {
			metrics.StateConflicts.Inc()
			o.logger.Warn("state save conflict, re-running", map[string]interface{}{
				"sessionId": state.SessionID,
				"attempt":   attempt + 1,
			})
			continue
		}

		return nil, err
	}

	return nil, commonErrors.NewStateConflictError(input.SessionID)
}

// mergeInput folds this call's data into the loaded state. Values supplied
// now always win over stored ones; absent values leave stored data untouched.
func mergeInput(state *models.AssessmentState, input *RunInput) {
	if input.FilingStatus != "" {
		state.FilingStatus = input.FilingStatus
	}
	if input.TaxYear != "" {
		state.TaxYear = input.TaxYear
	}
	for k, v := range input.PersonalInfo {
		if v != "" {
			state.PersonalInfo[k] = v
		}
	}
	for k, v := range input.UserInputs {
		state.UserInputs[k] = v
	}
}

// runPipeline drives the state machine through one invocation. No stage is
// allowed to raise past this method: every failure becomes a warning plus a
// status transition.
func (o *Orchestrator) runPipeline(ctx context.Context, state *models.AssessmentState) {
	state.MissingFields = []string{}

	records, err := o.extraction.ResultsBySession(ctx, state.SessionID)
	if err != nil {
		state.AppendWarning(fmt.Sprintf("Aggregation error: %v", err))
		state.Status = models.StatusError
		metrics.AssessmentStageFailures.WithLabelValues("aggregation", string(commonErrors.ErrCodeExtractionQueryFailed)).Inc()
		return
	}

	docs, skipWarnings := extraction.ParseRecords(records)
	for _, w := range skipWarnings {
		state.AppendWarning(w)
	}

	if err := ResolveMandatoryFields(state, docs, o.supportedYear); err != nil {
		stdErr, ok := err.(*commonErrors.StandardError)
		if ok {
			state.AppendWarning(stdErr.Message)
			state.PermanentError = string(stdErr.Code)
			metrics.AssessmentStageFailures.WithLabelValues("validation", string(stdErr.Code)).Inc()
		} else {
			state.AppendWarning(err.Error())
		}
		state.Status = models.StatusError
		return
	}

	if len(state.MissingFields) > 0 {
		state.Status = models.StatusWaitingForUser
		return
	}

	if len(records) == 0 {
		noDocsErr := commonErrors.NewNoDocumentsFoundError(state.SessionID)
		state.AppendWarning(fmt.Sprintf("Aggregation error: %s", noDocsErr.Message))
		state.Status = models.StatusError
		metrics.AssessmentStageFailures.WithLabelValues("aggregation", string(noDocsErr.Code)).Inc()
		return
	}

	state.AggregatedData = Aggregate(state, docs)

	if len(state.MissingFields) > 0 {
		state.Status = models.StatusWaitingForUser
		return
	}
	state.Status = models.StatusAggregated

	result, err := taxengine.Calculate(*state.AggregatedData, state.FilingStatus)
	if err != nil {
		state.AppendWarning(fmt.Sprintf("Calculation error: %v", err))
		state.Status = models.StatusError
		metrics.AssessmentStageFailures.WithLabelValues("calculation", string(commonErrors.ErrCodeCalculationFailed)).Inc()
		return
	}
	state.CalculationResult = result
	state.Status = models.StatusCalculated

	// The advisory stage is best-effort: a failed or timed-out review is
	// recorded as a warning and the session still completes.
	text, err := o.advisor.Review(ctx, result, state.FilingStatus)
	if err != nil {
		state.AppendWarning(fmt.Sprintf("Validation error: %v", err))
		if stdErr, ok := err.(*commonErrors.StandardError); ok {
			metrics.AssessmentStageFailures.WithLabelValues("advisory", string(stdErr.Code)).Inc()
		}
	} else {
		state.ValidationResult = text
		if IsActionableReview(text) {
			state.AppendWarning(text)
		}
	}

	// Terminal success regardless of the reviewer outcome.
	state.Status = models.StatusComplete
}
