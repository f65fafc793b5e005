// cmd/tools/worker-generator/templates.go
package main

const modelsTemplate = `// internal/workers/{{ .Dir }}/models.go
package {{ .PackageName }}

type Input struct {
{{- range .InputFields }}
	{{ .Name }} {{ .Type }} ` + "`" + `json:"{{ .JSONKey }}{{ if .Omit }},omitempty{{ end }}"` + "`" + `
{{- end }}
}

type Output struct {
{{- range .OutputFields }}
	{{ .Name }} {{ .Type }} ` + "`" + `json:"{{ .JSONKey }}{{ if .Omit }},omitempty{{ end }}"` + "`" + `
{{- end }}
}
`

const configTemplate = `// internal/workers/{{ .Dir }}/config.go
package {{ .PackageName }}

import (
	"time"

	"{{ .Module }}/internal/retry"
)

type Config struct {
	Timeout     time.Duration
	Retry       retry.Policy
	InputSchema map[string]interface{}
}

func LoadConfig() *Config {
	return &Config{
		Timeout: {{ printf "%d" .Timeout.Milliseconds }} * time.Millisecond,
		Retry:   retry.Default(),
	}
}
`

const handlerTemplate = `// internal/workers/{{ .Dir }}/handler.go
package {{ .PackageName }}

import (
	"context"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"{{ .Module }}/internal/common/camunda"
	"{{ .Module }}/internal/common/errors"
	"{{ .Module }}/internal/common/logger"
	"{{ .Module }}/internal/common/metrics"
	"{{ .Module }}/internal/common/validation"
	"{{ .Module }}/internal/genai"
)

const (
	TaskType = "{{ .TaskType }}"
)

// Handler serves {{ .Name }}: {{ .Description }}
{{- if .ErrorCodes }}
// Declared error codes:{{ range .ErrorCodes }} {{ . }}{{ end }}.
{{- end }}
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
		h.logger.Error("failed to complete job", map[string]interface{}{"jobKey": job.Key, "error": err.Error()})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	return nil, errors.NewInternalError(fmt.Errorf("%s is not implemented", TaskType))
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.CodeOf(err))).Inc()
	h.errorHandler.HandleJobError(context.Background(), client, job, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
`
