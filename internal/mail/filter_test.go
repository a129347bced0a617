package mail

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
)

type stubCompleter struct {
	responses map[string]string
	err       error
}

func (s *stubCompleter) Name() string { return "stub" }

func (s *stubCompleter) Complete(_ context.Context, prompt string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	for subject, response := range s.responses {
		if strings.Contains(prompt, subject) {
			return response, nil
		}
	}
	return "informational", nil
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		input  string
		expect string
	}{
		{"This email needs review before acting", CategoryNeedsReview},
		{"classified as 'needs_review'", CategoryNeedsReview},
		{"this is clearly spam", CategorySpam},
		{"URGENT: reply required", CategoryUrgent},
		{"just an informational notice", CategoryInformational},
		{"no idea", CategoryInformational},
	}

	for _, tt := range tests {
		if got := ParseCategory(tt.input); got != tt.expect {
			t.Fatalf("ParseCategory(%q) = %q, expected %q", tt.input, got, tt.expect)
		}
	}
}

func TestCategoryFilterTagsAndDropsSpam(t *testing.T) {
	stub := &stubCompleter{responses: map[string]string{
		"Win a prize": "spam",
		"Interview":   "urgent",
	}}

	filter := NewCategoryFilter(stub, true, zap.NewNop())

	emails := []Summary{
		{Subject: "Win a prize", Body: "click here"},
		{Subject: "Interview", Body: "can we reschedule?"},
	}

	kept, step, err := filter.Apply(context.Background(), emails)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(kept) != 1 {
		t.Fatalf("expected 1 email left, got %d", len(kept))
	}

	if kept[0].Category != CategoryUrgent {
		t.Fatalf("expected urgent category, got %q", kept[0].Category)
	}

	if step.Dropped != 1 {
		t.Fatalf("expected 1 dropped, got %d", step.Dropped)
	}
}

func TestCategoryFilterKeepsSpamWhenNotDropping(t *testing.T) {
	stub := &stubCompleter{responses: map[string]string{"Win a prize": "spam"}}

	filter := NewCategoryFilter(stub, false, zap.NewNop())

	kept, _, err := filter.Apply(context.Background(), []Summary{{Subject: "Win a prize"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(kept) != 1 || kept[0].Category != CategorySpam {
		t.Fatalf("expected tagged spam email kept, got %+v", kept)
	}
}

func TestCategoryFilterDegradesOnProviderFailure(t *testing.T) {
	stub := &stubCompleter{err: errors.New("provider down")}

	filter := NewCategoryFilter(stub, true, zap.NewNop())

	kept, _, err := filter.Apply(context.Background(), []Summary{{Subject: "Hello"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(kept) != 1 || kept[0].Category != CategoryInformational {
		t.Fatalf("expected informational fallback, got %+v", kept)
	}
}

func TestLimitFilter(t *testing.T) {
	filter := NewLimitFilter(2)

	emails := []Summary{{Subject: "a"}, {Subject: "b"}, {Subject: "c"}}

	kept, step, err := filter.Apply(context.Background(), emails)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(kept) != 2 || kept[0].Subject != "a" || kept[1].Subject != "b" {
		t.Fatalf("unexpected kept emails: %+v", kept)
	}

	if step.Dropped != 1 {
		t.Fatalf("expected 1 dropped, got %d", step.Dropped)
	}
}

func TestRunFiltersSequence(t *testing.T) {
	stub := &stubCompleter{responses: map[string]string{"Win a prize": "spam"}}

	steps := []Filter{
		NewCategoryFilter(stub, true, zap.NewNop()),
		NewLimitFilter(1),
	}

	emails := []Summary{
		{Subject: "Win a prize"},
		{Subject: "Status update"},
		{Subject: "Another update"},
	}

	result, err := RunFilters(context.Background(), zap.NewNop(), steps, emails)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result) != 1 || result[0].Subject != "Status update" {
		t.Fatalf("unexpected result: %+v", result)
	}
}
