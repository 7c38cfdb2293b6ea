package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cchalm/cloudops-assistant/internal/logger"
	"github.com/cchalm/cloudops-assistant/internal/metrics"
	"github.com/cchalm/cloudops-assistant/internal/reply"
	"github.com/cchalm/cloudops-assistant/internal/telemetry"
	"github.com/sirupsen/logrus"
)

var (
	// ErrBusy is returned by Submit while a previous query is still awaiting its reply
	ErrBusy       = errors.New("a query is already awaiting a reply")
	ErrEmptyQuery = errors.New("query must not be empty")
)

// Hooks let a surface show and clear its busy indicator. Both run outside the session lock.
type Hooks struct {
	OnBusy func(query string)
	OnIdle func(reply Turn)
}

// Session owns one transcript and at most one pending query. Submit drives it from Idle to AwaitingReply and back.
type Session struct {
	id         string
	createdAt  time.Time
	invoker    Invoker
	transcript *Transcript
	hooks      Hooks
	metrics    *metrics.Recorder
	log        *logger.Logger

	mu      sync.Mutex
	state   State
	pending string
}

type SessionOption func(*Session)

func WithHooks(hooks Hooks) SessionOption {
	return func(s *Session) { s.hooks = hooks }
}

func WithLogger(log *logger.Logger) SessionOption {
	return func(s *Session) { s.log = log }
}

func WithMetrics(recorder *metrics.Recorder) SessionOption {
	return func(s *Session) { s.metrics = recorder }
}

func WithID(id string) SessionOption {
	return func(s *Session) { s.id = id }
}

// NewSession starts an idle session whose transcript holds only the seed turn
func NewSession(invoker Invoker, opts ...SessionOption) *Session {
	s := &Session{
		id:        telemetry.NewSessionID(),
		createdAt: time.Now(),
		invoker:   invoker,
		log:       logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.transcript = NewTranscript()
	s.log = s.log.With(logrus.Fields{"session_id": s.id})
	return s
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

func (s *Session) Transcript() *Transcript {
	return s.transcript
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Pending returns the in-flight query, if any
func (s *Session) Pending() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending, s.state == StateAwaitingReply
}

// Submit appends query as a user turn, calls the remote function and appends its reply, or the error, as a bot turn.
// Invocation failures never escape: they become the returned bot turn. Submit only fails for an empty query or when
// another query is pending, and in both cases the transcript is left untouched.
func (s *Session) Submit(ctx context.Context, query string) (Turn, error) {
	if strings.TrimSpace(query) == "" {
		return Turn{}, ErrEmptyQuery
	}

	s.mu.Lock()
	if s.state == StateAwaitingReply {
		s.mu.Unlock()
		s.metrics.RejectedSubmission()
		s.log.Warn("rejected submission while awaiting reply")
		return Turn{}, ErrBusy
	}
	if _, err := s.transcript.Append(Turn{Sender: SenderUser, Text: query}); err != nil {
		s.mu.Unlock()
		return Turn{}, fmt.Errorf("failed to record user turn: %w", err)
	}
	s.state = StateAwaitingReply
	s.pending = query
	s.mu.Unlock()

	if s.hooks.OnBusy != nil {
		s.hooks.OnBusy(query)
	}

	// The lock is not held across the call; the AwaitingReply state is what keeps other submissions out
	text := s.replyText(ctx, query)

	s.mu.Lock()
	botTurn, err := s.transcript.Append(Turn{Sender: SenderBot, Text: text})
	s.state = StateIdle
	s.pending = ""
	s.mu.Unlock()
	if err != nil {
		// replyText never returns an empty string
		return Turn{}, fmt.Errorf("failed to record bot turn: %w", err)
	}

	if s.hooks.OnIdle != nil {
		s.hooks.OnIdle(botTurn)
	}
	return botTurn, nil
}

func (s *Session) replyText(ctx context.Context, query string) string {
	payload, err := s.invoker.Invoke(ctx, query)
	if err != nil {
		s.log.Error("error contacting remote function", logrus.Fields{"error": err.Error()})
		return ErrorPrefix + err.Error()
	}
	if !payload.HasReply() {
		s.log.Warn("remote function returned no reply", logrus.Fields{"status": payload.StatusCode})
	}
	return reply.Format(payload)
}
