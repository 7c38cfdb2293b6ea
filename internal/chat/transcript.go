package chat

import (
	"errors"
	"sync"
	"time"

	"github.com/cchalm/cloudops-assistant/internal/telemetry"
)

var ErrEmptyTurn = errors.New("turn text must not be empty")

// Transcript is an append-only, insertion-ordered log of turns. It is safe for concurrent use.
type Transcript struct {
	mu    sync.RWMutex
	turns []Turn
	now   func() time.Time
}

// NewTranscript creates a transcript holding only the seed bot turn
func NewTranscript() *Transcript {
	return newTranscript(time.Now)
}

func newTranscript(now func() time.Time) *Transcript {
	t := &Transcript{now: now}
	// The seed text is a non-empty constant
	_, _ = t.Append(Turn{Sender: SenderBot, Text: SeedText})
	return t
}

// Append adds turn to the end of the transcript, assigning its ID and timestamp if unset, and returns the stored turn
func (t *Transcript) Append(turn Turn) (Turn, error) {
	if turn.Text == "" {
		return Turn{}, ErrEmptyTurn
	}
	if turn.ID == "" {
		turn.ID = telemetry.NewTurnID()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = t.now()
	}

	t.mu.Lock()
	t.turns = append(t.turns, turn)
	t.mu.Unlock()
	return turn, nil
}

// All returns a copy of the turns in insertion order
func (t *Transcript) All() []Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.turns)
}

// Last returns the most recent turn. A transcript always has at least the seed turn.
func (t *Transcript) Last() Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.turns[len(t.turns)-1]
}
