package genai

import (
	"context"
	"encoding/base64"
	stderrors "errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/MathNerdzRule/dietary-menu-advisor/internal/common/errors"
	commonhttp "github.com/MathNerdzRule/dietary-menu-advisor/internal/common/http"
)

// InlineImage is an image sent along with the prompt.
type InlineImage struct {
	MIMEType string
	Data     []byte
}

// Request is one model invocation.
type Request struct {
	Operation string
	Prompt    string
	Image     *InlineImage
	Grounded  bool
}

// Generator sends a prompt to a generative model and returns its text.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeminiConfig configures the Gemini REST transport.
type GeminiConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// GeminiGenerator calls models/{model}:generateContent.
type GeminiGenerator struct {
	config *GeminiConfig
	client *commonhttp.Client
}

func NewGeminiGenerator(config *GeminiConfig) *GeminiGenerator {
	return &GeminiGenerator{
		config: config,
		client: commonhttp.NewClient(config.Timeout).WithHeader("x-goog-api-key", config.APIKey),
	}
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	Tools            []geminiTool            `json:"tools,omitempty"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiTool struct {
	GoogleSearch *struct{} `json:"google_search,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature *float64 `json:"temperature,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

// ErrEmptyResponse is returned when the model produced no candidate text.
var ErrEmptyResponse = stderrors.New("model returned no candidates")

func (g *GeminiGenerator) endpoint() string {
	base := strings.TrimRight(g.config.BaseURL, "/")
	return fmt.Sprintf("%s/models/%s:generateContent", base, url.PathEscape(g.config.Model))
}

func (g *GeminiGenerator) buildRequest(req Request) geminiRequest {
	parts := []geminiPart{{Text: req.Prompt}}
	if req.Image != nil {
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{
			MimeType: req.Image.MIMEType,
			Data:     base64.StdEncoding.EncodeToString(req.Image.Data),
		}})
	}

	body := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: parts}},
	}
	if req.Grounded {
		body.Tools = []geminiTool{{GoogleSearch: &struct{}{}}}
	}
	if g.config.Temperature > 0 {
		temp := g.config.Temperature
		body.GenerationConfig = &geminiGenerationConfig{Temperature: &temp}
	}
	return body
}

func isTimeout(ctx context.Context, err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
		return true
	}
	var te interface{ Timeout() bool }
	return stderrors.As(err, &te) && te.Timeout()
}

// Generate returns the concatenated text parts of the first candidate.
func (g *GeminiGenerator) Generate(ctx context.Context, req Request) (string, error) {
	var resp geminiResponse
	if err := g.client.PostJSON(ctx, g.endpoint(), g.buildRequest(req), &resp); err != nil {
		if isTimeout(ctx, err) {
			return "", errors.NewAITimeoutError(req.Operation, err)
		}
		return "", errors.NewAIRequestFailedError(req.Operation, err)
	}

	if len(resp.Candidates) == 0 {
		err := ErrEmptyResponse
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			err = fmt.Errorf("%w: blocked (%s)", ErrEmptyResponse, resp.PromptFeedback.BlockReason)
		}
		return "", errors.NewAIRequestFailedError(req.Operation, err)
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}
