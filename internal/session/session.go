// Package session holds the per-conversation state: the immutable analysis
// inputs, the append-only conversation history and the pending email draft.
package session

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrAlreadyInitialized is returned when Initialize is called twice.
	ErrAlreadyInitialized = errors.New("session already initialized")
	// ErrUninitialized is returned when a turn arrives before initialization.
	ErrUninitialized = errors.New("session context is not initialized")
)

type Speaker string

const (
	SpeakerHuman Speaker = "human"
	SpeakerAgent Speaker = "agent"
)

// Level is the position seniority estimated by the resume analysis.
type Level string

const (
	LevelJunior    Level = "Junior"
	LevelMid       Level = "Mid"
	LevelSenior    Level = "Senior"
	LevelLead      Level = "Lead"
	LevelExecutive Level = "Executive"
)

// Analysis is the structured judgment of a resume against a job description.
// It is produced once by the analyzer and never mutated afterwards.
type Analysis struct {
	MatchPercentage       int      `mapstructure:"match_percentage"`
	PositionLevel         Level    `mapstructure:"position_level"`
	AcceptanceProbability float64  `mapstructure:"acceptance_probability"`
	Strengths             []string `mapstructure:"key_strengths"`
	Gaps                  []string `mapstructure:"key_gaps"`
	DetailedAnalysis      string   `mapstructure:"detailed_analysis"`
	Recommendation        string   `mapstructure:"recommendation"`
	CandidateEmail        string   `mapstructure:"-"`
}

// Entry is one recorded conversation turn half.
type Entry struct {
	Speaker Speaker
	Text    string
	Time    time.Time
}

// Draft is an unsent generated email awaiting explicit send confirmation.
type Draft struct {
	Subject   string
	Body      string
	Recipient string
}

// Credentials overrides the configured mail endpoints for one session.
// Values are never written to logs.
type Credentials struct {
	SMTPServer   string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	IMAPServer   string
	IMAPPort     int
	IMAPUsername string
	IMAPPassword string
}

// Session is the context store for one active conversation. Turns are
// serialized by the caller; the internal mutex only guards snapshot reads
// against delta application within the same process.
type Session struct {
	id string

	mu          sync.Mutex
	initialized bool
	job         string
	analysis    Analysis
	history     []Entry
	draft       *Draft
	creds       *Credentials

	now func() time.Time
}

// Snapshot is an immutable view of the session handed to action handlers.
type Snapshot struct {
	ID             string
	JobDescription string
	Analysis       Analysis
	History        []Entry
	Draft          *Draft
	Credentials    *Credentials
}

func New() *Session {
	return &Session{
		id:  uuid.NewString(),
		now: time.Now,
	}
}

func (s *Session) ID() string { return s.id }

// Initialize sets the immutable analysis inputs. It must be called exactly
// once, before any conversational turn is processed.
func (s *Session) Initialize(jobDescription string, analysis *Analysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return ErrAlreadyInitialized
	}

	if strings.TrimSpace(jobDescription) == "" {
		return errors.New("job description must not be empty")
	}
	if analysis == nil {
		return errors.New("resume analysis is required")
	}

	s.job = jobDescription
	s.analysis = *analysis
	s.initialized = true

	return nil
}

func (s *Session) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// AppendHistory records one turn half. History is append-only.
func (s *Session) AppendHistory(speaker Speaker, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, Entry{Speaker: speaker, Text: text, Time: s.now()})
}

func (s *Session) History() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyHistory(s.history)
}

func (s *Session) SetDraft(draft Draft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := draft
	s.draft = &d
}

func (s *Session) ClearDraft() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = nil
}

func (s *Session) Draft() *Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyDraft(s.draft)
}

// SetCredentials overrides the mail credentials for subsequent turns only.
func (s *Session) SetCredentials(creds Credentials) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := creds
	s.creds = &c
}

// Snapshot returns a deep copy of the current state so handlers never observe
// a state they are concurrently rewriting.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	analysis := s.analysis
	analysis.Strengths = append([]string(nil), s.analysis.Strengths...)
	analysis.Gaps = append([]string(nil), s.analysis.Gaps...)

	var creds *Credentials
	if s.creds != nil {
		c := *s.creds
		creds = &c
	}

	return Snapshot{
		ID:             s.id,
		JobDescription: s.job,
		Analysis:       analysis,
		History:        copyHistory(s.history),
		Draft:          copyDraft(s.draft),
		Credentials:    creds,
	}
}

func copyHistory(history []Entry) []Entry {
	return append([]Entry(nil), history...)
}

func copyDraft(draft *Draft) *Draft {
	if draft == nil {
		return nil
	}
	d := *draft
	return &d
}
