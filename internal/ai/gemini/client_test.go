package gemini

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/spigell/hr-copilot/internal/ai"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

type fakeBackend struct {
	calls     int
	responses []fakeResponse
}

type fakeResponse struct {
	resp *genai.GenerateContentResponse
	err  error
}

func (f *fakeBackend) generate(_ context.Context, _, _ string) (*genai.GenerateContentResponse, error) {
	if f.calls >= len(f.responses) {
		return nil, errors.New("unexpected call")
	}
	res := f.responses[f.calls]
	f.calls++
	return res.resp, res.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func newTestGenerator(backend *fakeBackend, maxRetries int) *Generator {
	return &Generator{
		model:      "gemini-test",
		maxRetries: maxRetries,
		logger:     zap.NewNop(),
		generate:   backend.generate,
	}
}

func TestGeneratorRetriesOnTemporaryError(t *testing.T) {
	originalDelay := retryBaseDelay
	retryBaseDelay = 0
	defer func() { retryBaseDelay = originalDelay }()

	backend := &fakeBackend{responses: []fakeResponse{
		{err: genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}},
		{resp: textResponse("retry ok")},
	}}

	g := newTestGenerator(backend, 2)

	output, err := g.Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if output != "retry ok" {
		t.Fatalf("unexpected output: %q", output)
	}

	if backend.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", backend.calls)
	}
}

func TestGeneratorStopsAfterRetriesExhausted(t *testing.T) {
	originalDelay := retryBaseDelay
	retryBaseDelay = 0
	defer func() { retryBaseDelay = originalDelay }()

	tempErr := genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}
	backend := &fakeBackend{responses: []fakeResponse{{err: tempErr}, {err: tempErr}}}

	g := newTestGenerator(backend, 2)

	_, err := g.Complete(context.Background(), "prompt")
	if !errors.Is(err, ai.ErrProvider) {
		t.Fatalf("expected provider error, got %v", err)
	}

	if backend.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", backend.calls)
	}
}

func TestGeneratorDoesNotRetryOnQuotaError(t *testing.T) {
	backend := &fakeBackend{responses: []fakeResponse{
		{err: genai.APIError{Code: http.StatusTooManyRequests, Status: "RESOURCE_EXHAUSTED"}},
	}}

	g := newTestGenerator(backend, 3)

	start := time.Now()
	_, err := g.Complete(context.Background(), "prompt")
	if !errors.Is(err, ai.ErrRateLimited) {
		t.Fatalf("expected rate limited error, got %v", err)
	}

	if backend.calls != 1 {
		t.Fatalf("expected single call, got %d", backend.calls)
	}

	if time.Since(start) > time.Second {
		t.Fatal("quota errors must not trigger retry backoff")
	}
}

func TestGeneratorJoinsCandidateParts(t *testing.T) {
	backend := &fakeBackend{responses: []fakeResponse{{
		resp: &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []*genai.Part{
					{Text: " first "},
					{Text: ""},
					{Text: "second"},
				}},
			}},
		},
	}}}

	g := newTestGenerator(backend, 1)

	output, err := g.Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if output != "first\nsecond" {
		t.Fatalf("unexpected output: %q", output)
	}
}

func TestGeneratorEmptyResponse(t *testing.T) {
	backend := &fakeBackend{responses: []fakeResponse{{resp: &genai.GenerateContentResponse{}}}}

	g := newTestGenerator(backend, 1)

	_, err := g.Complete(context.Background(), "prompt")
	if !errors.Is(err, ai.ErrProvider) {
		t.Fatalf("expected provider error for empty response, got %v", err)
	}
}
