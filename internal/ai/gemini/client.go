package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spigell/hr-copilot/internal/ai"
	"github.com/spigell/hr-copilot/internal/logger"
	"github.com/spigell/hr-copilot/internal/utils"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	defaultModel      = "gemini-2.5-flash"
	defaultMaxRetries = 2
)

var retryBaseDelay = time.Second

// Generator wraps the Google GenAI client behind the ai.Completer contract.
type Generator struct {
	model      string
	maxRetries int
	logger     *zap.Logger

	// generate is swapped out in tests.
	generate func(ctx context.Context, model, prompt string) (*genai.GenerateContentResponse, error)
}

// NewGenerator creates a new Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, apiKey, model string, maxRetries int, log *zap.Logger) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	return &Generator{
		model:      model,
		maxRetries: maxRetries,
		logger:     logger.WithCommonFields(log, "gemini", model),
		generate: func(ctx context.Context, model, prompt string) (*genai.GenerateContentResponse, error) {
			return client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
		},
	}, nil
}

func (g *Generator) Name() string { return "gemini" }

// Complete sends the prompt to Gemini and returns the first textual response.
// Temporary server errors are retried up to maxRetries times; quota rejections
// are not retried and surface as ai.ErrRateLimited.
func (g *Generator) Complete(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", fmt.Errorf("%w: prompt must not be empty", ai.ErrProvider)
	}

	var lastErr error
	for attempt := 1; attempt <= g.maxRetries; attempt++ {
		resp, err := g.generate(ctx, g.model, prompt)
		if err == nil {
			output := collectText(resp)
			if output == "" {
				return "", fmt.Errorf("%w: gemini api returned empty response", ai.ErrProvider)
			}
			return output, nil
		}

		var apiErr genai.APIError
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
			return "", fmt.Errorf("%w: %v", ai.ErrRateLimited, err)
		}

		lastErr = err
		if !retryable(err) || attempt == g.maxRetries {
			break
		}

		g.logger.Warn("gemini call failed, retrying",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		if err := utils.WaitFor(ctx, retryBaseDelay*time.Duration(attempt)); err != nil {
			return "", fmt.Errorf("%w: %v", ai.ErrProvider, err)
		}
	}

	return "", fmt.Errorf("%w: %v", ai.ErrProvider, lastErr)
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

func retryable(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code >= http.StatusInternalServerError
	}
	return false
}

func collectText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	return strings.TrimSpace(builder.String())
}
