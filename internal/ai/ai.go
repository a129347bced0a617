package ai

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrProvider indicates the provider failed to produce a completion.
var ErrProvider = errors.New("ai provider failure")

// ErrRateLimited indicates the provider rejected the request because of quota limits.
var ErrRateLimited = errors.New("ai provider rate limited")

// Completer is a single language-model backend able to answer a prompt.
type Completer interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// Chain tries providers in the configured order and returns the first answer.
// Callers never learn which provider ultimately answered.
type Chain struct {
	providers []Completer
	logger    *zap.Logger
}

func NewChain(logger *zap.Logger, providers ...Completer) *Chain {
	return &Chain{providers: providers, logger: logger}
}

func (c *Chain) Name() string { return "chain" }

func (c *Chain) Complete(ctx context.Context, prompt string) (string, error) {
	if len(c.providers) == 0 {
		return "", fmt.Errorf("%w: no providers configured", ErrProvider)
	}

	var last error
	for _, provider := range c.providers {
		output, err := provider.Complete(ctx, prompt)
		if err != nil {
			c.logger.Warn("provider failed, trying next",
				zap.String("provider", provider.Name()),
				zap.Error(err),
			)
			last = err
			continue
		}

		c.logger.Debug("provider answered", zap.String("provider", provider.Name()))
		return output, nil
	}

	if errors.Is(last, ErrProvider) || errors.Is(last, ErrRateLimited) {
		return "", last
	}

	return "", fmt.Errorf("%w: %v", ErrProvider, last)
}
