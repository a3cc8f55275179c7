package runassessment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"taxassist-workers/internal/assessment"
	"taxassist-workers/internal/audit"
	commonErrors "taxassist-workers/internal/common/errors"
	"taxassist-workers/internal/common/logger"
	"taxassist-workers/internal/common/metrics"
	"taxassist-workers/internal/common/observability"
	"taxassist-workers/internal/models"
	"taxassist-workers/pkg/registry"
)

const TaskType = "run-assessment"

// Runner is the orchestrator contract the handler depends on.
type Runner interface {
	Run(ctx context.Context, input *assessment.RunInput) (*models.AssessmentResponse, error)
}

type Handler struct {
	config   *Config
	runner   Runner
	auditor  audit.Indexer
	activity *registry.Activity
	logger   logger.Logger
	errs     *commonErrors.ErrorHandler
	obs      *observability.Observability
}

// WithObservability attaches run-level telemetry. Optional; the handler works
// without it.
func (h *Handler) WithObservability(obs *observability.Observability) *Handler {
	h.obs = obs
	return h
}

// NewHandler wires the worker. The activity may be nil when no registry
// entry exists; input validation is skipped in that case.
func NewHandler(config *Config, runner Runner, auditor audit.Indexer, activity *registry.Activity, log logger.Logger) *Handler {
	if auditor == nil {
		auditor = audit.NoOpIndexer{}
	}
	scoped := log.With(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		runner:   runner,
		auditor:  auditor,
		activity: activity,
		logger:   scoped,
		errs:     commonErrors.NewErrorHandler(scoped),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":             job.Key,
		"processInstanceKey": job.ProcessInstanceKey,
	})

	if h.activity != nil {
		var raw map[string]interface{}
		if err := json.Unmarshal([]byte(job.Variables), &raw); err != nil {
			h.failJob(client, job, fmt.Errorf("parse variables: %w", err))
			return
		}
		if err := h.activity.ValidateInput(raw); err != nil {
			h.failJob(client, job, err)
			return
		}
	}

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, fmt.Errorf("parse input: %w", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	resp, err := h.Execute(ctx, &input)
	if err != nil {
		h.failJob(client, job, err)
		return
	}

	h.completeJob(client, job, resp)
}

// Execute runs one assessment invocation and indexes the outcome. The audit
// write is best-effort and never fails the job.
func (h *Handler) Execute(ctx context.Context, input *Input) (*models.AssessmentResponse, error) {
	started := time.Now()
	resp, err := h.runner.Run(ctx, input.toRunInput())
	if h.obs != nil {
		status := "error"
		if err == nil {
			status = resp.Response
		}
		h.obs.RecordRun(ctx, status)
		h.obs.RecordRunDuration(ctx, time.Since(started), status)
	}
	if err != nil {
		return nil, err
	}

	if err := h.auditor.IndexAssessment(ctx, resp); err != nil {
		h.logger.Warn("audit index failed", map[string]interface{}{
			"sessionId": resp.SessionID,
			"error":     err.Error(),
		})
	}

	return resp, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, resp *models.AssessmentResponse) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(resp)

	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, err error) {
	errorCode := "UNKNOWN_ERROR"
	if stdErr, ok := err.(*commonErrors.StandardError); ok {
		errorCode = string(stdErr.Code)
	}

	metrics.WorkerJobsFailed.WithLabelValues(TaskType, errorCode).Inc()
	h.errs.HandleJobError(context.Background(), client, job, err)
}
