// internal/workers/advisor/classify-menu-items/handler.go
package classifymenuitems

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"github.com/MathNerdzRule/dietary-menu-advisor/internal/common/camunda"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/common/errors"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/common/logger"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/common/metrics"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/common/validation"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/genai"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/models"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/retry"
)

const (
	TaskType = "classify-menu-items"

	sourceMenu  = "menu"
	sourceImage = "image"

	fallbackMessage = "Analysis failed."
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

// source picks what to classify. A photo wins over a menu snapshot.
func (h *Handler) source(input *Input) (models.MenuSource, string, error) {
	if input.Image != nil {
		data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(input.Image.Data))
		if err != nil {
			return nil, "", errors.NewInputValidationError("Image analysis failed. Please try again or use text analysis.",
				fmt.Sprintf("image data is not base64: %v", err))
		}
		if len(data) == 0 {
			return nil, "", errors.NewInputValidationError("The captured photo was empty.", "image has no data")
		}
		if h.config.MaxImageBytes > 0 && len(data) > h.config.MaxImageBytes {
			return nil, "", errors.NewInputValidationError("The captured photo is too large.",
				fmt.Sprintf("image is %d bytes, limit %d", len(data), h.config.MaxImageBytes))
		}
		return models.ImageInput{Data: data, MIMEType: input.Image.MIMEType}, sourceImage, nil
	}
	if input.Menu != nil {
		return models.MenuInput{Menu: input.Menu}, sourceMenu, nil
	}
	return nil, "", errors.NewInputValidationError("Nothing to analyze.", "neither menu nor image given")
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if !input.Restaurant.Valid() {
		return nil, errors.NewInputValidationError("Please select a restaurant first.", "restaurant name is empty")
	}
	src, kind, err := h.source(input)
	if err != nil {
		return nil, err
	}
	profile := input.Profile
	profile.Normalize()

	policy := h.config.Retry.WithOnRetry(func(attempt int, err error) {
		metrics.AIRetries.WithLabelValues(genai.OpClassifyMenu).Inc()
		h.logger.Warn("retrying classification", map[string]interface{}{
			"attempt": attempt,
			"source":  kind,
			"error":   err.Error(),
		})
	})
	set, err := retry.Do(ctx, policy, func(ctx context.Context) (*models.RecommendationSet, error) {
		return h.advisor.ClassifyMenuItems(ctx, input.Restaurant, src, profile)
	})
	if err != nil {
		return nil, err
	}
	if set == nil {
		return nil, errors.NewClassificationUnavailableError(fallbackMessage, "reply could not be decoded")
	}

	h.logger.Info("menu classified", map[string]interface{}{
		"restaurant":       input.Restaurant.Name,
		"source":           kind,
		"safe":             len(set.Safe),
		"caution":          len(set.Caution),
		"avoid":            len(set.Avoid),
		"ingredientsFound": set.IngredientsFound,
	})

	return &Output{
		RecommendationSet: *set,
		Restrictions:      profile.RestrictionString(),
		Source:            kind,
	}, nil
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.CodeOf(err))).Inc()
	h.errorHandler.HandleJobError(context.Background(), client, job, err)
}

// Execute classifies without a job.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
