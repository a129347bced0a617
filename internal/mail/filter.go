package mail

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/hr-copilot/internal/ai"
)

// Filter represents a single filtering step applied to fetched summaries.
type Filter interface {
	Name() string
	Apply(ctx context.Context, emails []Summary) ([]Summary, Step, error)
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Email categories assigned by the classification filter.
const (
	CategorySpam          = "spam"
	CategoryUrgent        = "urgent"
	CategoryNeedsReview   = "needs_review"
	CategoryInformational = "informational"
)

// RunFilters executes the supplied filters sequentially.
func RunFilters(ctx context.Context, logger *zap.Logger, steps []Filter, emails []Summary) ([]Summary, error) {
	for _, step := range steps {
		next, info, err := step.Apply(ctx, emails)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		logger.Info("filter step",
			zap.String("name", step.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)

		emails = next
	}

	return emails, nil
}

type categoryFilter struct {
	completer ai.Completer
	dropSpam  bool
	logger    *zap.Logger
}

// NewCategoryFilter creates a step that classifies every email as spam,
// urgent, needs_review or informational, optionally dropping spam.
func NewCategoryFilter(completer ai.Completer, dropSpam bool, logger *zap.Logger) Filter {
	return &categoryFilter{completer: completer, dropSpam: dropSpam, logger: logger}
}

func (f *categoryFilter) Name() string { return "category" }

func (f *categoryFilter) Apply(ctx context.Context, emails []Summary) ([]Summary, Step, error) {
	initial := len(emails)
	kept := make([]Summary, 0, initial)

	for _, email := range emails {
		email.Category = f.classify(ctx, email)

		if f.dropSpam && email.Category == CategorySpam {
			f.logger.Debug("dropping spam email", zap.String("subject", email.Subject))
			continue
		}

		kept = append(kept, email)
	}

	return kept, Step{Initial: initial, Dropped: initial - len(kept), Left: len(kept)}, nil
}

func (f *categoryFilter) classify(ctx context.Context, email Summary) string {
	prompt := fmt.Sprintf(
		"Analyze the following email with subject: %s and content: %s "+
			"and classify the email type. "+
			"Classify it as 'spam', 'urgent', 'informational', or 'needs review'.",
		email.Subject, email.Body,
	)

	raw, err := f.completer.Complete(ctx, prompt)
	if err != nil {
		f.logger.Warn("email classification failed", zap.Error(err))
		return CategoryInformational
	}

	return ParseCategory(raw)
}

// ParseCategory maps a loose model response onto a known category. The
// needs-review check runs first because that phrase also contains no other
// category keyword while "not spam" style answers contain "spam".
func ParseCategory(raw string) string {
	lowered := strings.ToLower(raw)
	switch {
	case strings.Contains(lowered, "needs review"), strings.Contains(lowered, "needs_review"):
		return CategoryNeedsReview
	case strings.Contains(lowered, "urgent"):
		return CategoryUrgent
	case strings.Contains(lowered, "spam"):
		return CategorySpam
	default:
		return CategoryInformational
	}
}

type limitFilter struct {
	limit int
}

// NewLimitFilter creates a step that keeps only the newest n emails.
func NewLimitFilter(limit int) Filter {
	return &limitFilter{limit: limit}
}

func (f *limitFilter) Name() string { return "limit" }

func (f *limitFilter) Apply(_ context.Context, emails []Summary) ([]Summary, Step, error) {
	initial := len(emails)
	if f.limit <= 0 || initial <= f.limit {
		return emails, Step{Initial: initial, Dropped: 0, Left: initial}, nil
	}

	kept := emails[:f.limit]
	return kept, Step{Initial: initial, Dropped: initial - len(kept), Left: len(kept)}, nil
}
