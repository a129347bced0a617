// Package intent maps a human utterance onto one of the fixed actions the
// conversational core can execute.
package intent

import (
	"context"
	"fmt"
	"strings"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/hr-copilot/internal/ai"
	"github.com/spigell/hr-copilot/internal/logger"
	"github.com/spigell/hr-copilot/internal/session"
)

// Action is one of the fixed intents a turn can resolve to.
type Action string

const (
	ActionAnswerQuestion Action = "ANSWER_QUESTION"
	ActionGenerateEmail  Action = "GENERATE_EMAIL"
	ActionSendEmail      Action = "SEND_EMAIL"
	ActionFetchEmails    Action = "FETCH_EMAILS"
	ActionSummarizeEmail Action = "SUMMARIZE_EMAIL"
	ActionUnknown        Action = "UNKNOWN"
)

//go:embed prompt.md
var promptTemplate string

// DefaultSendTriggers are the phrases that force SEND_EMAIL when a draft is
// pending. The set is configurable; this default mirrors common phrasings.
var DefaultSendTriggers = []string{
	"send it",
	"send email",
	"send the email",
	"send now",
	"send this",
	"dispatch email",
	"email send",
}

// generateTriggers short-circuit classification for imperative drafting
// requests so they do not depend on model availability. Every phrase names an
// email explicitly; anything vaguer goes to the model.
var generateTriggers = []string{
	"prepare email",
	"create email",
	"write email",
	"draft email",
	"generate email",
	"compose email",
	"make email",
	"email to candidate",
}

const (
	defaultMaxLogLength = 200
	historyWindow       = 6
)

// Classifier resolves utterances into actions. A deterministic override layer
// sits on top of the model call: send-trigger phrases resolve without the
// model, and the classifier degrades to UNKNOWN instead of failing when the
// provider chain is exhausted.
type Classifier struct {
	completer    ai.Completer
	sendTriggers []string
	logger       *zap.Logger
	maxLogLen    int
}

func NewClassifier(completer ai.Completer, sendTriggers []string, log *zap.Logger) *Classifier {
	if len(sendTriggers) == 0 {
		sendTriggers = DefaultSendTriggers
	}

	return &Classifier{
		completer:    completer,
		sendTriggers: sendTriggers,
		logger:       log,
		maxLogLen:    defaultMaxLogLength,
	}
}

// Classify never returns an error: model failures degrade to ActionUnknown.
func (c *Classifier) Classify(ctx context.Context, snap session.Snapshot, utterance string) Action {
	lowered := strings.ToLower(utterance)

	if containsAny(lowered, c.sendTriggers) {
		if snap.Draft != nil {
			return ActionSendEmail
		}
		// A send request without a pending draft needs clarification, not a
		// silent downgrade to question answering.
		c.logger.Debug("send trigger without pending draft")
		return ActionUnknown
	}

	if containsAny(lowered, generateTriggers) {
		return ActionGenerateEmail
	}

	prompt := buildPrompt(snap.History, utterance)

	c.logger.Debug("intent classification request",
		zap.String("prompt_preview", logger.TruncateForLog(prompt, c.maxLogLen)),
	)

	raw, err := c.completer.Complete(ctx, prompt)
	if err != nil {
		c.logger.Warn("intent classification failed, degrading to unknown", zap.Error(err))
		return ActionUnknown
	}

	action := parseAction(raw)
	c.logger.Debug("intent classified",
		zap.String("action", string(action)),
		zap.String("response_preview", logger.TruncateForLog(raw, c.maxLogLen)),
	)

	// The model may still claim SEND_EMAIL without a draft to send.
	if action == ActionSendEmail && snap.Draft == nil {
		return ActionUnknown
	}

	return action
}

func buildPrompt(history []session.Entry, utterance string) string {
	start := len(history) - historyWindow
	if start < 0 {
		start = 0
	}

	var builder strings.Builder
	for _, entry := range history[start:] {
		builder.WriteString(fmt.Sprintf("%s: %s\n", entry.Speaker, entry.Text))
	}

	transcript := builder.String()
	if transcript == "" {
		transcript = "(empty)\n"
	}

	prompt := strings.ReplaceAll(promptTemplate, "{{HISTORY}}", transcript)
	return strings.ReplaceAll(prompt, "{{UTTERANCE}}", utterance)
}

func parseAction(raw string) Action {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	normalized = strings.Trim(normalized, "`\" .")

	for _, action := range []Action{
		ActionAnswerQuestion,
		ActionGenerateEmail,
		ActionSendEmail,
		ActionFetchEmails,
		ActionSummarizeEmail,
		ActionUnknown,
	} {
		if strings.Contains(normalized, string(action)) {
			return action
		}
	}

	return ActionUnknown
}

func containsAny(lowered string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}
