package mail

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-imap"
	imapclient "github.com/emersion/go-imap/client"
	gomessage "github.com/emersion/go-message/mail"
	"go.uber.org/zap"

	"github.com/spigell/hr-copilot/internal/session"
)

const defaultMaxEmails = 50

// Fetcher reads message summaries from an IMAP mailbox.
type Fetcher struct {
	cfg    IMAPConfig
	logger *zap.Logger
}

func NewFetcher(cfg IMAPConfig, logger *zap.Logger) *Fetcher {
	if cfg.Port == 0 {
		cfg.Port = 993
	}
	if cfg.MaxEmails <= 0 {
		cfg.MaxEmails = defaultMaxEmails
	}
	return &Fetcher{cfg: cfg, logger: logger}
}

// Fetch returns the newest messages from INBOX, newest first. The context is
// accepted for interface symmetry; the underlying IMAP library manages its
// own connection deadlines.
func (f *Fetcher) Fetch(_ context.Context, criteria FetchCriteria, override *session.Credentials) ([]Summary, error) {
	cfg := f.cfg.withOverride(override)

	if cfg.Server == "" || cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("%w: imap credentials are not configured", ErrFetch)
	}

	limit := criteria.Limit
	if limit <= 0 || limit > cfg.MaxEmails {
		limit = cfg.MaxEmails
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server, cfg.Port)
	f.logger.Debug("connecting to imap server", zap.String("addr", addr))

	c, err := imapclient.DialTLS(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrFetch, addr, err)
	}
	defer func() {
		if err := c.Logout(); err != nil {
			f.logger.Debug("imap logout failed", zap.Error(err))
		}
	}()

	if err := c.Login(cfg.Username, cfg.Password); err != nil {
		return nil, fmt.Errorf("%w: login: %v", ErrFetch, err)
	}

	mbox, err := c.Select("INBOX", true)
	if err != nil {
		return nil, fmt.Errorf("%w: select inbox: %v", ErrFetch, err)
	}

	if mbox.Messages == 0 {
		return nil, nil
	}

	from := uint32(1)
	if mbox.Messages > uint32(limit) {
		from = mbox.Messages - uint32(limit) + 1
	}

	seqset := new(imap.SeqSet)
	seqset.AddRange(from, mbox.Messages)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, section.FetchItem()}

	messages := make(chan *imap.Message, limit)
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, items, messages)
	}()

	summaries := make([]Summary, 0, limit)
	for msg := range messages {
		summary, err := buildSummary(msg, section)
		if err != nil {
			f.logger.Warn("skipping unreadable message", zap.Error(err))
			continue
		}
		summaries = append(summaries, summary)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("%w: fetch: %v", ErrFetch, err)
	}

	// Newest first.
	for i, j := 0, len(summaries)-1; i < j; i, j = i+1, j-1 {
		summaries[i], summaries[j] = summaries[j], summaries[i]
	}

	f.logger.Info("fetched emails", zap.Int("count", len(summaries)))

	return summaries, nil
}

func buildSummary(msg *imap.Message, section *imap.BodySectionName) (Summary, error) {
	if msg == nil || msg.Envelope == nil {
		return Summary{}, fmt.Errorf("message without envelope")
	}

	summary := Summary{
		Subject: msg.Envelope.Subject,
		Date:    msg.Envelope.Date,
	}

	if len(msg.Envelope.From) > 0 && msg.Envelope.From[0] != nil {
		from := msg.Envelope.From[0]
		summary.From = from.Address()
		if from.PersonalName != "" {
			summary.From = fmt.Sprintf("%s <%s>", from.PersonalName, from.Address())
		}
	}

	body := msg.GetBody(section)
	if body == nil {
		return summary, nil
	}

	text, err := extractPlainText(body)
	if err != nil {
		return Summary{}, err
	}
	summary.Body = text

	return summary, nil
}

// extractPlainText walks the MIME parts and returns the first text/plain one.
func extractPlainText(r io.Reader) (string, error) {
	reader, err := gomessage.CreateReader(r)
	if err != nil {
		return "", fmt.Errorf("parse message: %w", err)
	}

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read part: %w", err)
		}

		header, ok := part.Header.(*gomessage.InlineHeader)
		if !ok {
			continue
		}

		contentType, _, err := header.ContentType()
		if err != nil || contentType != "text/plain" {
			continue
		}

		content, err := io.ReadAll(part.Body)
		if err != nil {
			return "", fmt.Errorf("read body: %w", err)
		}

		return strings.TrimSpace(string(content)), nil
	}

	return "", nil
}
