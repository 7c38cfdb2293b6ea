// Package chat holds the chat transcript and the per-session interaction state machine.
package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/cchalm/cloudops-assistant/internal/reply"
)

// SeedText is the bot turn every transcript starts with
const SeedText = "Hello, how can I help?"

// ErrorPrefix starts every bot turn produced from a failed invocation
const ErrorPrefix = "⚠️ Error contacting Lambda: "

type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Turn is one message in the transcript. Turns are never modified after they are appended.
type Turn struct {
	ID        string    `json:"id"`
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Invoker sends one query to the remote function
type Invoker interface {
	Invoke(ctx context.Context, query string) (reply.Payload, error)
}

// State of a session's interaction state machine
type State int

const (
	StateIdle State = iota
	StateAwaitingReply
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingReply:
		return "awaiting_reply"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "idle":
		*s = StateIdle
	case "awaiting_reply":
		*s = StateAwaitingReply
	default:
		return fmt.Errorf("unknown session state '%s'", string(b))
	}
	return nil
}
