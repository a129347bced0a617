package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"
)

type stubProvider struct {
	name   string
	output string
	err    error
	calls  int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Complete(_ context.Context, _ string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.output, nil
}

func TestChainUsesPrimaryFirst(t *testing.T) {
	primary := &stubProvider{name: "primary", output: "primary answer"}
	fallback := &stubProvider{name: "fallback", output: "fallback answer"}

	chain := NewChain(zap.NewNop(), primary, fallback)

	output, err := chain.Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if output != "primary answer" {
		t.Fatalf("unexpected output: %q", output)
	}

	if fallback.calls != 0 {
		t.Fatalf("fallback should not be called, got %d calls", fallback.calls)
	}
}

func TestChainFallsBackOnFailure(t *testing.T) {
	primary := &stubProvider{name: "primary", err: fmt.Errorf("%w: boom", ErrProvider)}
	fallback := &stubProvider{name: "fallback", output: "fallback answer"}

	chain := NewChain(zap.NewNop(), primary, fallback)

	output, err := chain.Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if output != "fallback answer" {
		t.Fatalf("unexpected output: %q", output)
	}

	if primary.calls != 1 || fallback.calls != 1 {
		t.Fatalf("unexpected call counts: primary=%d fallback=%d", primary.calls, fallback.calls)
	}
}

func TestChainAllProvidersFail(t *testing.T) {
	primary := &stubProvider{name: "primary", err: fmt.Errorf("%w: quota", ErrRateLimited)}
	fallback := &stubProvider{name: "fallback", err: fmt.Errorf("%w: boom", ErrProvider)}

	chain := NewChain(zap.NewNop(), primary, fallback)

	_, err := chain.Complete(context.Background(), "prompt")
	if !errors.Is(err, ErrProvider) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestChainWrapsUntypedErrors(t *testing.T) {
	only := &stubProvider{name: "only", err: errors.New("plain failure")}

	chain := NewChain(zap.NewNop(), only)

	_, err := chain.Complete(context.Background(), "prompt")
	if !errors.Is(err, ErrProvider) {
		t.Fatalf("expected error wrapped as provider failure, got %v", err)
	}
}

func TestChainNoProviders(t *testing.T) {
	chain := NewChain(zap.NewNop())

	_, err := chain.Complete(context.Background(), "prompt")
	if !errors.Is(err, ErrProvider) {
		t.Fatalf("expected provider error, got %v", err)
	}
}
