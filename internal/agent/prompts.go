package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spigell/hr-copilot/internal/mail"
	"github.com/spigell/hr-copilot/internal/session"
)

// ErrMalformedDraft is returned when the model response cannot be parsed into
// a subject and body.
var ErrMalformedDraft = errors.New("malformed email draft")

const maxJobDescriptionChars = 2500

// answerPrompt assembles the grounding context for a free-form question: the
// job description, the analysis verdict and a bounded window of recent turns.
func answerPrompt(snap session.Snapshot, utterance string, window int) string {
	var b strings.Builder

	b.WriteString("You are an experienced HR assistant helping evaluate a candidate.\n\n")

	b.WriteString("Job description:\n")
	b.WriteString(truncateText(snap.JobDescription, maxJobDescriptionChars))
	b.WriteString("\n\n")

	writeAnalysis(&b, snap.Analysis)

	if history := formatHistory(snap.History, window); history != "" {
		b.WriteString("Recent conversation:\n")
		b.WriteString(history)
		b.WriteString("\n")
	}

	b.WriteString("Answer the HR specialist's question using the context above. ")
	b.WriteString("Be concise and concrete.\n\n")
	b.WriteString("Question: ")
	b.WriteString(utterance)

	return b.String()
}

// draftPrompt asks for an email as strict JSON. The strict variant is used on
// retry after a malformed response.
func draftPrompt(snap session.Snapshot, utterance, hrName string, strict bool) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are an experienced HR assistant writing an email on behalf of %s.\n\n", hrName)

	b.WriteString("Job description:\n")
	b.WriteString(truncateText(snap.JobDescription, maxJobDescriptionChars))
	b.WriteString("\n\n")

	writeAnalysis(&b, snap.Analysis)

	b.WriteString("Instruction from the HR specialist: ")
	b.WriteString(utterance)
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "Sign the email as %s.\n", hrName)
	b.WriteString(`Respond with a JSON object of the form {"subject": "...", "body": "..."}.`)
	b.WriteString("\n")

	if strict {
		b.WriteString("Return ONLY the JSON object. No markdown fences, no commentary, ")
		b.WriteString("exactly the keys subject and body.\n")
	}

	return b.String()
}

func summaryPrompt(email mail.Summary) string {
	return fmt.Sprintf(
		"Summarize the following email in 2 to 3 sentences.\n\nFrom: %s\nSubject: %s\n\n%s",
		email.From, email.Subject, email.Body,
	)
}

func writeAnalysis(b *strings.Builder, analysis session.Analysis) {
	b.WriteString("Candidate analysis:\n")
	fmt.Fprintf(b, "- match: %d%%\n", analysis.MatchPercentage)
	if analysis.PositionLevel != "" {
		fmt.Fprintf(b, "- position level: %s\n", analysis.PositionLevel)
	}
	fmt.Fprintf(b, "- acceptance probability: %.1f\n", analysis.AcceptanceProbability)
	if len(analysis.Strengths) > 0 {
		fmt.Fprintf(b, "- strengths: %s\n", strings.Join(analysis.Strengths, "; "))
	}
	if len(analysis.Gaps) > 0 {
		fmt.Fprintf(b, "- gaps: %s\n", strings.Join(analysis.Gaps, "; "))
	}
	if analysis.Recommendation != "" {
		fmt.Fprintf(b, "- recommendation: %s\n", analysis.Recommendation)
	}
	if analysis.DetailedAnalysis != "" {
		fmt.Fprintf(b, "\nDetailed analysis:\n%s\n", analysis.DetailedAnalysis)
	}
	b.WriteString("\n")
}

func formatHistory(history []session.Entry, window int) string {
	start := len(history) - window
	if start < 0 {
		start = 0
	}

	var b strings.Builder
	for _, entry := range history[start:] {
		fmt.Fprintf(&b, "%s: %s\n", entry.Speaker, entry.Text)
	}
	return b.String()
}

// parseDraft decodes the model response into a draft. Subject and body must
// both be present and non-empty.
func parseDraft(raw string) (session.Draft, error) {
	cleaned := stripFences(raw)

	var decoded struct {
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return session.Draft{}, fmt.Errorf("%w: %v", ErrMalformedDraft, err)
	}

	decoded.Subject = strings.TrimSpace(decoded.Subject)
	decoded.Body = strings.TrimSpace(decoded.Body)

	if decoded.Subject == "" || decoded.Body == "" {
		return session.Draft{}, fmt.Errorf("%w: subject and body are required", ErrMalformedDraft)
	}

	return session.Draft{Subject: decoded.Subject, Body: decoded.Body}, nil
}

// stripFences removes markdown code fences and surrounding prose so the JSON
// object can be decoded directly.
func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}

	raw = strings.Trim(raw, "`")
	raw = strings.TrimSpace(raw)

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start != -1 && end > start {
		raw = raw[start : end+1]
	}

	return raw
}

// truncateText shortens to limit runes so a multi-byte character is never cut
// in half.
func truncateText(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "…"
}
