// Package agent is the conversational orchestration engine. It classifies
// every incoming utterance into an action, executes the matching handler
// against a read-only snapshot of the session and commits the resulting
// state delta as a single unit.
package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/hr-copilot/internal/ai"
	"github.com/spigell/hr-copilot/internal/intent"
	"github.com/spigell/hr-copilot/internal/logger"
	"github.com/spigell/hr-copilot/internal/mail"
	"github.com/spigell/hr-copilot/internal/session"
)

// Classifier resolves an utterance into an action.
type Classifier interface {
	Classify(ctx context.Context, snap session.Snapshot, utterance string) intent.Action
}

// Mailer delivers outgoing messages.
type Mailer interface {
	Send(ctx context.Context, msg mail.Message, override *session.Credentials) error
}

// Fetcher reads summaries from the remote mailbox.
type Fetcher interface {
	Fetch(ctx context.Context, criteria mail.FetchCriteria, override *session.Credentials) ([]mail.Summary, error)
}

// Deps aggregates the collaborators of the orchestrator.
type Deps struct {
	Classifier Classifier
	Completer  ai.Completer
	Mailer     Mailer
	Fetcher    Fetcher
	Filters    []mail.Filter
	Logger     *zap.Logger
	Sanitizer  *logger.Sanitizer
}

// Options tunes the conversational behavior.
type Options struct {
	// HistoryWindow bounds how many recent turns are sent to the model.
	// The full history is always kept for display.
	HistoryWindow int
	// FetchLimit bounds how many mailbox entries one FETCH_EMAILS turn shows.
	FetchLimit int
	HRName     string
}

const (
	defaultHistoryWindow = 10
	defaultFetchLimit    = 10
	defaultHRName        = "HR Team"
)

// Canned replies for handled failure modes.
const (
	replyApology = "I am sorry, I could not reach the language model right now. Please try again in a moment."

	replyInternal = "Something went wrong while handling that request. Please try again."

	replyClarify = "I am not sure what you would like me to do. You can ask about the candidate, " +
		"ask me to prepare an email, check the inbox, or say \"send it\" once a draft exists."

	replyNothingToSend = "There is nothing to send. Ask me to prepare an email first."

	replyNoRecipient = "The draft has no recipient. I could not find the candidate's email in the resume; " +
		"please tell me where to send it."

	replyRephraseDraft = "I could not turn that into an email draft. Please rephrase the instruction."

	replyNoMailbox = "The mailbox is not configured. Set the imap section in the configuration to read emails."

	replyNoTransport = "Outgoing email is not configured. Set the smtp section in the configuration to send emails."
)

// Orchestrator owns one session context and processes its turns strictly
// sequentially. It must not be used from multiple goroutines.
type Orchestrator struct {
	session   *session.Session
	deps      Deps
	opts      Options
	sanitizer *logger.Sanitizer
	logger    *zap.Logger
}

func New(deps Deps, opts Options) *Orchestrator {
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = defaultHistoryWindow
	}
	if opts.FetchLimit <= 0 {
		opts.FetchLimit = defaultFetchLimit
	}
	if opts.HRName == "" {
		opts.HRName = defaultHRName
	}

	sanitizer := deps.Sanitizer
	if sanitizer == nil {
		sanitizer = logger.NewSanitizer()
	}

	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Orchestrator{
		session:   session.New(),
		deps:      deps,
		opts:      opts,
		sanitizer: sanitizer,
		logger:    log,
	}
}

// InitializeSession sets the immutable analysis context. It must be called
// exactly once before the first turn.
func (o *Orchestrator) InitializeSession(jobDescription string, analysis *session.Analysis) error {
	return o.session.Initialize(jobDescription, analysis)
}

// History returns the full conversation transcript.
func (o *Orchestrator) History() []session.Entry {
	return o.session.History()
}

// PendingDraft returns the current unsent draft, or nil.
func (o *Orchestrator) PendingDraft() *session.Draft {
	return o.session.Draft()
}

// SetCredentials overrides mail credentials for subsequent turns.
func (o *Orchestrator) SetCredentials(creds session.Credentials) {
	o.session.SetCredentials(creds)
}

// delta is the state change produced by one action handler. It is applied by
// the orchestrator only, so a failing handler cannot leave partial mutation
// visible.
type delta struct {
	human      string
	agent      string
	setDraft   *session.Draft
	clearDraft bool
}

// HandleTurn processes one human utterance and returns the agent reply.
// Handler failures are converted to natural-language replies; the human turn
// is always recorded, the would-be agent turn only on success.
func (o *Orchestrator) HandleTurn(ctx context.Context, utterance string) (string, error) {
	if !o.session.Initialized() {
		return "", session.ErrUninitialized
	}

	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return replyClarify, nil
	}

	snap := o.session.Snapshot()
	action := o.deps.Classifier.Classify(ctx, snap, utterance)

	o.logger.Debug("turn classified",
		zap.String("session_id", snap.ID),
		zap.String("action", string(action)),
		zap.String("utterance_preview", logger.TruncateForLog(utterance, 80)),
	)

	reply, d := o.dispatch(ctx, action, snap, utterance)

	o.apply(d)

	return reply, nil
}

// dispatch runs the handler matching the action. Panics are contained here:
// the session survives with the human turn recorded and a generic reply.
func (o *Orchestrator) dispatch(ctx context.Context, action intent.Action, snap session.Snapshot, utterance string) (reply string, d delta) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("handler panic",
				zap.String("action", string(action)),
				zap.Any("panic", r),
			)
			reply = replyInternal
			d = delta{human: utterance}
		}
	}()

	switch action {
	case intent.ActionAnswerQuestion:
		return o.answerQuestion(ctx, snap, utterance)
	case intent.ActionGenerateEmail:
		return o.generateEmail(ctx, snap, utterance)
	case intent.ActionSendEmail:
		return o.sendEmail(ctx, snap, utterance)
	case intent.ActionFetchEmails:
		return o.fetchEmails(ctx, snap, utterance)
	case intent.ActionSummarizeEmail:
		return o.summarizeEmail(ctx, snap, utterance)
	default:
		return replyClarify, delta{human: utterance}
	}
}

// apply commits the delta to the live session. Turns are serialized per
// session, so sequential application is atomic from the caller's view.
func (o *Orchestrator) apply(d delta) {
	if d.human != "" {
		o.session.AppendHistory(session.SpeakerHuman, d.human)
	}

	if d.setDraft != nil {
		o.session.SetDraft(*d.setDraft)
	}

	if d.clearDraft {
		o.session.ClearDraft()
	}

	if d.agent != "" {
		o.session.AppendHistory(session.SpeakerAgent, d.agent)
	}
}

func (o *Orchestrator) answerQuestion(ctx context.Context, snap session.Snapshot, utterance string) (string, delta) {
	prompt := answerPrompt(snap, utterance, o.opts.HistoryWindow)

	reply, err := o.deps.Completer.Complete(ctx, prompt)
	if err != nil {
		o.logger.Warn("answering question failed", zap.Error(err))
		return replyApology, delta{human: utterance}
	}

	return reply, delta{human: utterance, agent: reply}
}

func (o *Orchestrator) generateEmail(ctx context.Context, snap session.Snapshot, utterance string) (string, delta) {
	raw, err := o.deps.Completer.Complete(ctx, draftPrompt(snap, utterance, o.opts.HRName, false))
	if err != nil {
		o.logger.Warn("draft generation failed", zap.Error(err))
		return replyApology, delta{human: utterance}
	}

	draft, err := parseDraft(raw)
	if err != nil {
		o.logger.Warn("draft response malformed, retrying with strict instruction", zap.Error(err))

		raw, err = o.deps.Completer.Complete(ctx, draftPrompt(snap, utterance, o.opts.HRName, true))
		if err != nil {
			return replyApology, delta{human: utterance}
		}

		draft, err = parseDraft(raw)
		if err != nil {
			o.logger.Warn("draft response malformed after retry", zap.Error(err))
			return replyRephraseDraft, delta{human: utterance}
		}
	}

	if draft.Recipient == "" {
		draft.Recipient = snap.Analysis.CandidateEmail
	}

	var builder strings.Builder
	builder.WriteString("Here is the draft:\n\n")
	builder.WriteString(fmt.Sprintf("Subject: %s\n\n%s", draft.Subject, draft.Body))

	if snap.Draft != nil {
		builder.WriteString(fmt.Sprintf("\n\nThis replaces the previous draft %q.", snap.Draft.Subject))
	}

	if draft.Recipient != "" {
		builder.WriteString(fmt.Sprintf("\n\nSay \"send it\" to send this email to %s.", draft.Recipient))
	} else {
		builder.WriteString("\n\nNo recipient is set yet; tell me the candidate's email before sending.")
	}

	reply := builder.String()
	return reply, delta{human: utterance, agent: reply, setDraft: &draft}
}

func (o *Orchestrator) sendEmail(ctx context.Context, snap session.Snapshot, utterance string) (string, delta) {
	if snap.Draft == nil {
		return replyNothingToSend, delta{human: utterance}
	}

	recipient := strings.TrimSpace(snap.Draft.Recipient)
	if recipient == "" {
		return replyNoRecipient, delta{human: utterance}
	}

	if o.deps.Mailer == nil {
		return replyNoTransport, delta{human: utterance}
	}

	msg := mail.Message{
		To:      recipient,
		Subject: snap.Draft.Subject,
		Body:    snap.Draft.Body,
	}

	if err := o.deps.Mailer.Send(ctx, msg, snap.Credentials); err != nil {
		o.logger.Warn("sending email failed", zap.Error(err))

		reason := o.sanitizer.Sanitize(err.Error())
		reply := fmt.Sprintf("Sending failed: %s. The draft is kept; say \"send it\" to retry.", reason)
		return reply, delta{human: utterance}
	}

	reply := fmt.Sprintf("Email %q sent to %s.", snap.Draft.Subject, recipient)
	return reply, delta{human: utterance, agent: reply, clearDraft: true}
}

func (o *Orchestrator) fetchEmails(ctx context.Context, snap session.Snapshot, utterance string) (string, delta) {
	if o.deps.Fetcher == nil {
		return replyNoMailbox, delta{human: utterance}
	}

	emails, err := o.deps.Fetcher.Fetch(ctx, mail.FetchCriteria{Limit: o.opts.FetchLimit}, snap.Credentials)
	if err != nil {
		o.logger.Warn("fetching emails failed", zap.Error(err))

		reason := o.sanitizer.Sanitize(err.Error())
		return fmt.Sprintf("I could not read the mailbox: %s.", reason), delta{human: utterance}
	}

	emails, err = mail.RunFilters(ctx, o.logger, o.deps.Filters, emails)
	if err != nil {
		o.logger.Warn("filtering emails failed", zap.Error(err))

		reason := o.sanitizer.Sanitize(err.Error())
		return fmt.Sprintf("I could not read the mailbox: %s.", reason), delta{human: utterance}
	}

	if len(emails) == 0 {
		reply := "The inbox has no matching emails."
		return reply, delta{human: utterance, agent: reply}
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Latest %d emails:\n", len(emails)))
	for i, email := range emails {
		category := ""
		if email.Category != "" {
			category = fmt.Sprintf(" [%s]", email.Category)
		}
		builder.WriteString(fmt.Sprintf("%d.%s %s — %s\n", i+1, category, email.From, email.Subject))
	}

	reply := strings.TrimSpace(builder.String())
	return reply, delta{human: utterance, agent: reply}
}

func (o *Orchestrator) summarizeEmail(ctx context.Context, snap session.Snapshot, utterance string) (string, delta) {
	if o.deps.Fetcher == nil {
		return replyNoMailbox, delta{human: utterance}
	}

	emails, err := o.deps.Fetcher.Fetch(ctx, mail.FetchCriteria{Limit: 1}, snap.Credentials)
	if err != nil {
		o.logger.Warn("fetching email for summary failed", zap.Error(err))

		reason := o.sanitizer.Sanitize(err.Error())
		return fmt.Sprintf("I could not read the mailbox: %s.", reason), delta{human: utterance}
	}

	if len(emails) == 0 {
		reply := "There are no emails to summarize."
		return reply, delta{human: utterance, agent: reply}
	}

	latest := emails[0]

	summary, err := o.deps.Completer.Complete(ctx, summaryPrompt(latest))
	if err != nil {
		o.logger.Warn("summarizing email failed", zap.Error(err))
		return replyApology, delta{human: utterance}
	}

	reply := fmt.Sprintf("Latest email from %s (%s):\n%s", latest.From, latest.Subject, summary)
	return reply, delta{human: utterance, agent: reply}
}
