package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"resume-roaster/internal/roast"
	"resume-roaster/internal/shared/telemetry"
	"resume-roaster/internal/shared/util"
)

// State is the lifecycle position of a roast session.
type State string

const (
	StateIdle       State = "idle"
	StateGenerating State = "generating"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

var (
	// ErrNoResume is returned by RequestRoast before any résumé text is set.
	ErrNoResume = errors.New("no resume")
	// ErrBusy is returned while a roast is already being generated.
	ErrBusy = errors.New("roast already in progress")
	// ErrDiscarded is returned when the input changed while the request was in flight.
	ErrDiscarded = errors.New("roast result discarded: input changed")
)

// Notice is a short user-facing message.
type Notice struct {
	Title   string
	Message string
	Error   bool
}

// Notifier delivers notices to whatever surface shows them.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

type discardNotifier struct{}

func (discardNotifier) Notify(Notice) {}

// Option configures a Session.
type Option func(*Session)

// WithNotifier sets the notice sink.
func WithNotifier(n Notifier) Option {
	return func(s *Session) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithSpiciness sets the initial level.
func WithSpiciness(level roast.Spiciness) Option {
	return func(s *Session) {
		if level.Valid() {
			s.level = level
		}
	}
}

// Session holds one user's résumé, chosen level and latest outcome. It is safe
// for concurrent use; the generator is called without holding the lock.
type Session struct {
	mu        sync.Mutex
	id        string
	generator roast.Generator
	notifier  Notifier

	state  State
	resume string
	level  roast.Spiciness
	result string
	err    error
	epoch  uint64
}

// New creates an idle session that generates roasts with gen.
func New(gen roast.Generator, opts ...Option) *Session {
	s := &Session{
		id:        uuid.NewString(),
		generator: gen,
		notifier:  discardNotifier{},
		state:     StateIdle,
		level:     roast.DefaultSpiciness,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID identifies the session in logs.
func (s *Session) ID() string { return s.id }

// SubmitResume replaces the résumé text and drops any previous outcome.
func (s *Session) SubmitResume(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resume = text
	s.reset()
	telemetry.Debug("session.resume_submitted", map[string]any{
		"session_id":  s.id,
		"chars":       len([]rune(text)),
		"fingerprint": util.Fingerprint(text),
	})
}

// ChangeSpiciness selects a new level. An existing roast no longer matches the
// level and is cleared together with the error.
func (s *Session) ChangeSpiciness(level roast.Spiciness) error {
	if !level.Valid() {
		return roast.ErrInvalidRequest
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.level == level {
		return nil
	}
	s.level = level
	if s.result != "" || s.state == StateGenerating {
		s.reset()
	}
	return nil
}

// Clear drops the résumé and any outcome, returning to idle.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resume = ""
	s.reset()
}

// reset clears the outcome and invalidates any in-flight request. Callers hold mu.
func (s *Session) reset() {
	s.result = ""
	s.err = nil
	s.state = StateIdle
	s.epoch++
}

// RequestRoast generates a roast for the current résumé and level. Only one
// request runs at a time; a second call while generating gets ErrBusy.
func (s *Session) RequestRoast(ctx context.Context) (string, error) {
	s.mu.Lock()
	if strings.TrimSpace(s.resume) == "" {
		s.mu.Unlock()
		s.notifier.Notify(Notice{Title: "No Resume", Message: "Please upload a resume first.", Error: true})
		return "", ErrNoResume
	}
	if s.state == StateGenerating {
		s.mu.Unlock()
		return "", ErrBusy
	}
	s.state = StateGenerating
	s.err = nil
	s.epoch++
	epoch, resume, level := s.epoch, s.resume, s.level
	s.mu.Unlock()

	telemetry.Debug("session.roast_requested", map[string]any{
		"session_id": s.id,
		"spiciness":  string(level),
	})
	text, err := s.generator.Generate(ctx, resume, level)

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return "", ErrDiscarded
	}
	if err != nil {
		s.err = err
		s.state = StateFailed
		s.mu.Unlock()
		telemetry.Warn("session.roast_failed", map[string]any{
			"session_id": s.id,
			"spiciness":  string(level),
			"errorCode":  string(roast.KindOf(err)),
		})
		s.notifier.Notify(Notice{Title: "Roast Generation Failed", Message: err.Error(), Error: true})
		return "", err
	}
	s.result = text
	s.err = nil
	s.state = StateSucceeded
	s.mu.Unlock()
	return text, nil
}

// Snapshot returns a copy of the current session data.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		ID:         s.id,
		State:      s.state,
		ResumeText: s.resume,
		Spiciness:  s.level,
		Roast:      s.result,
		Err:        s.err,
	}
}

// View is an immutable copy of a session.
type View struct {
	ID         string
	State      State
	ResumeText string
	Spiciness  roast.Spiciness
	Roast      string
	Err        error
}

// Loading reports whether a roast is being generated.
func (v View) Loading() bool { return v.State == StateGenerating }

// HasResume reports whether there is text to roast.
func (v View) HasResume() bool { return strings.TrimSpace(v.ResumeText) != "" }

// DisplayKind selects what a view should render.
type DisplayKind int

const (
	DisplayNone DisplayKind = iota
	DisplayRoast
	DisplayError
)

// Display is the single thing to show for a view.
type Display struct {
	Kind DisplayKind
	Text string
	Err  error
}

// Active picks exactly one of the error, the roast, or nothing. The error
// wins when both are set.
func (v View) Active() Display {
	switch {
	case v.Err != nil:
		return Display{Kind: DisplayError, Text: v.Err.Error(), Err: v.Err}
	case v.Roast != "":
		return Display{Kind: DisplayRoast, Text: v.Roast}
	default:
		return Display{Kind: DisplayNone}
	}
}
