package sendnotification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	commonErrors "taxassist-workers/internal/common/errors"
	"taxassist-workers/internal/common/logger"
	"taxassist-workers/internal/common/metrics"
	"taxassist-workers/pkg/registry"
)

const TaskType = "send-notification"

type Handler struct {
	config   *Config
	service  *Service
	activity *registry.Activity
	logger   logger.Logger
	errs     *commonErrors.ErrorHandler
}

func NewHandler(config *Config, service *Service, activity *registry.Activity, log logger.Logger) *Handler {
	scoped := log.With(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		service:  service,
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

	output, err := h.service.Execute(ctx, &input)
	if err != nil {
		h.failJob(client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)

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
