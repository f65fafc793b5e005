// internal/workers/advisor/reverse-geocode/handler.go
package reversegeocode

import (
	"context"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"github.com/MathNerdzRule/dietary-menu-advisor/internal/common/camunda"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/common/errors"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/common/logger"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/common/metrics"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/common/validation"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/genai"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/retry"
)

const (
	TaskType = "reverse-geocode"
)

type Handler struct {
	config       *Config
	advisor      genai.Advisor
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
}

func NewHandler(config *Config, advisor genai.Advisor, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		advisor:      advisor,
		logger:       l,
		errorHandler: errors.NewErrorHandler(l),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer func() {
		metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()
		metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	}()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := validation.DecodeJobVariables(job.Variables, h.config.InputSchema, &input); err != nil {
		h.failJob(client, job, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.failJob(client, job, err)
		return
	}

	if err := camunda.CompleteJob(context.Background(), client, job, output); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.Latitude < -90 || input.Latitude > 90 || input.Longitude < -180 || input.Longitude > 180 {
		return nil, errors.NewInputValidationError("Invalid coordinates",
			fmt.Sprintf("latitude %v, longitude %v", input.Latitude, input.Longitude))
	}

	policy := h.config.Retry.WithOnRetry(func(attempt int, err error) {
		metrics.AIRetries.WithLabelValues(genai.OpReverseGeocode).Inc()
		h.logger.Warn("retrying reverse geocode", map[string]interface{}{
			"attempt": attempt,
			"error":   err.Error(),
		})
	})
	location, err := retry.Do(ctx, policy, func(ctx context.Context) (string, error) {
		return h.advisor.ReverseGeocode(ctx, input.Latitude, input.Longitude)
	})
	if err != nil {
		return nil, err
	}
	if location == "" {
		return nil, errors.NewLocationUnavailableError("Could not identify your city. Please enter it manually.", nil)
	}

	h.logger.Debug("coordinates resolved", map[string]interface{}{"location": location})
	return &Output{Location: location}, nil
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.CodeOf(err))).Inc()
	h.errorHandler.HandleJobError(context.Background(), client, job, err)
}

// Execute resolves coordinates without a job.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
