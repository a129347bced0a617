package deepseek

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"context"

	"github.com/spigell/hr-copilot/internal/ai"
	"github.com/spigell/hr-copilot/internal/logger"

	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://api.deepseek.com/v1"
	defaultModel   = "deepseek-chat"
	contentType    = "application/json"
)

// Client talks to the DeepSeek chat completions API. The API is
// OpenAI-compatible, so the request and response shapes follow that schema.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	logger  *zap.Logger

	HTTPClient *http.Client
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func New(apiKey, model, baseURL string, log *zap.Logger) *Client {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	if baseURL = strings.TrimSpace(strings.TrimSuffix(baseURL, "/")); baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		apiKey:  strings.TrimSpace(apiKey),
		model:   model,
		baseURL: baseURL,
		logger:  logger.WithCommonFields(log, "deepseek", model),
		HTTPClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (c *Client) Name() string { return "deepseek" }

func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %v", ai.ErrProvider, err)
	}

	url := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ai.ErrProvider, err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	req.Header.Set("Content-Type", contentType)

	c.logger.Debug("make request", zap.String("url", url))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ai.ErrProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("%w: bad status: %s", ai.ErrRateLimited, resp.Status)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: bad status: %s", ai.ErrProvider, resp.Status)
	}

	var response chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ai.ErrProvider, err)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("%w: deepseek api returned no choices", ai.ErrProvider)
	}

	output := strings.TrimSpace(response.Choices[0].Message.Content)
	if output == "" {
		return "", fmt.Errorf("%w: deepseek api returned empty message", ai.ErrProvider)
	}

	return output, nil
}
