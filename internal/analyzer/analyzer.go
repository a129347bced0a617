// Package analyzer produces the structured resume judgment consumed by the
// conversational core as its initial context.
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/hr-copilot/internal/ai"
	"github.com/spigell/hr-copilot/internal/logger"
	"github.com/spigell/hr-copilot/internal/session"
)

//go:embed prompt.md
var promptTemplate string

const defaultMaxLogLength = 200

var emailPattern = regexp.MustCompile(`\b[A-Za-z0-9][A-Za-z0-9._%+-]{1,}@[A-Za-z0-9][A-Za-z0-9.-]*\.[A-Za-z]{2,}\b`)

type Analyzer struct {
	completer ai.Completer
	logger    *zap.Logger
	maxLogLen int
}

func New(completer ai.Completer, log *zap.Logger) *Analyzer {
	return &Analyzer{
		completer: completer,
		logger:    log,
		maxLogLen: defaultMaxLogLength,
	}
}

// Analyze scores the resume against the job description. The model is asked
// for strict JSON; when the response cannot be parsed as JSON the assessment
// is recovered from the raw text instead of failing the session.
func (a *Analyzer) Analyze(ctx context.Context, resumeText, jobText string) (*session.Analysis, error) {
	prompt := buildPrompt(resumeText, jobText)

	a.logger.Debug("resume analysis request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, a.maxLogLen)),
	)

	raw, err := a.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("resume analysis: %w", err)
	}

	a.logger.Debug("resume analysis response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", logger.TruncateForLog(raw, a.maxLogLen)),
	)

	analysis, err := parseResponse(raw)
	if err != nil {
		a.logger.Warn("analysis response is not valid JSON, extracting manually", zap.Error(err))
		analysis = extractManually(raw)
	}

	analysis.CandidateEmail = ExtractEmail(resumeText)

	return analysis, nil
}

func buildPrompt(resumeText, jobText string) string {
	prompt := strings.ReplaceAll(promptTemplate, "{{RESUME}}", resumeText)
	return strings.ReplaceAll(prompt, "{{JOB_DESCRIPTION}}", jobText)
}

// rawAnalysis mirrors the JSON shape the prompt requests. Probability comes
// back as High/Medium/Low, match percentage occasionally as a string.
type rawAnalysis struct {
	MatchPercentage       any      `mapstructure:"match_percentage"`
	PositionLevel         string   `mapstructure:"position_level"`
	AcceptanceProbability any      `mapstructure:"acceptance_probability"`
	KeyStrengths          []string `mapstructure:"key_strengths"`
	KeyGaps               []string `mapstructure:"key_gaps"`
	DetailedAnalysis      string   `mapstructure:"detailed_analysis"`
	Recommendation        string   `mapstructure:"recommendation"`
}

func parseResponse(raw string) (*session.Analysis, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse analysis response: %w", err)
	}

	var decoded rawAnalysis
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &decoded,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(data); err != nil {
		return nil, fmt.Errorf("decode analysis response: %w", err)
	}

	return &session.Analysis{
		MatchPercentage:       clampPercentage(coercePercentage(decoded.MatchPercentage)),
		PositionLevel:         coerceLevel(decoded.PositionLevel),
		AcceptanceProbability: coerceProbability(decoded.AcceptanceProbability),
		Strengths:             decoded.KeyStrengths,
		Gaps:                  decoded.KeyGaps,
		DetailedAnalysis:      strings.TrimSpace(decoded.DetailedAnalysis),
		Recommendation:        strings.TrimSpace(decoded.Recommendation),
	}, nil
}

// extractManually recovers what it can from a free-text model response.
func extractManually(raw string) *session.Analysis {
	analysis := &session.Analysis{
		DetailedAnalysis: strings.TrimSpace(raw),
	}

	if match := regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`).FindStringSubmatch(raw); match != nil {
		if value, err := strconv.ParseFloat(match[1], 64); err == nil {
			analysis.MatchPercentage = clampPercentage(value)
		}
	}

	analysis.PositionLevel = detectLevel(raw)
	analysis.AcceptanceProbability = detectProbability(raw)

	return analysis
}

func detectLevel(text string) session.Level {
	patterns := []struct {
		level   session.Level
		pattern *regexp.Regexp
	}{
		{session.LevelJunior, regexp.MustCompile(`(?i)junior`)},
		{session.LevelMid, regexp.MustCompile(`(?i)mid[- ]?(level|senior)?`)},
		{session.LevelExecutive, regexp.MustCompile(`(?i)executive`)},
		{session.LevelLead, regexp.MustCompile(`(?i)lead`)},
		{session.LevelSenior, regexp.MustCompile(`(?i)senior`)},
	}

	for _, candidate := range patterns {
		if candidate.pattern.MatchString(text) {
			return candidate.level
		}
	}

	return ""
}

func detectProbability(text string) float64 {
	switch {
	case regexp.MustCompile(`(?i)\bhigh\b`).MatchString(text):
		return probabilityHigh
	case regexp.MustCompile(`(?i)\bmedium\b`).MatchString(text):
		return probabilityMedium
	case regexp.MustCompile(`(?i)\blow\b`).MatchString(text):
		return probabilityLow
	}
	return 0
}

const (
	probabilityHigh   = 0.9
	probabilityMedium = 0.6
	probabilityLow    = 0.3
)

func coercePercentage(v any) float64 {
	switch value := v.(type) {
	case float64:
		return value
	case int:
		return float64(value)
	case string:
		trimmed := strings.TrimSuffix(strings.TrimSpace(value), "%")
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

func clampPercentage(value float64) int {
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return int(value)
}

func coerceLevel(value string) session.Level {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch {
	case strings.HasPrefix(normalized, "junior"):
		return session.LevelJunior
	case strings.HasPrefix(normalized, "mid"):
		return session.LevelMid
	case strings.HasPrefix(normalized, "senior"):
		return session.LevelSenior
	case strings.HasPrefix(normalized, "lead"):
		return session.LevelLead
	case strings.HasPrefix(normalized, "executive"):
		return session.LevelExecutive
	default:
		return detectLevel(value)
	}
}

func coerceProbability(v any) float64 {
	switch value := v.(type) {
	case float64:
		if value > 1 {
			value /= 100
		}
		if value < 0 {
			return 0
		}
		if value > 1 {
			return 1
		}
		return value
	case string:
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "high":
			return probabilityHigh
		case "medium":
			return probabilityMedium
		case "low":
			return probabilityLow
		}
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return coerceProbability(parsed)
		}
	}
	return 0
}

// ExtractEmail returns the first plausible email address found in the text.
func ExtractEmail(text string) string {
	matches := emailPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return ""
	}

	// Prefer the longest match, most likely to be complete.
	longest := matches[0]
	for _, match := range matches[1:] {
		if len(match) > len(longest) {
			longest = match
		}
	}
	return longest
}

func extractJSON(raw string) string {
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

	// Cut to the outermost braces when the model wrapped JSON in prose.
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start != -1 && end > start {
		raw = raw[start : end+1]
	}

	return raw
}
