package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/cchalm/cloudops-assistant/internal/reply"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type invokeResult struct {
	body string
	err  error
}

// scriptedInvoker returns canned results in order and records the queries it was given
type scriptedInvoker struct {
	mu      sync.Mutex
	results []invokeResult
	queries []string
}

func (s *scriptedInvoker) Invoke(_ context.Context, query string) (reply.Payload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, query)
	r := s.results[0]
	s.results = s.results[1:]
	if r.err != nil {
		return reply.Payload{}, r.err
	}
	p, err := reply.Parse([]byte(r.body))
	if err != nil {
		panic(err)
	}
	return p, nil
}

// blockingInvoker holds every call until release is closed
type blockingInvoker struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingInvoker) Invoke(ctx context.Context, _ string) (reply.Payload, error) {
	close(b.started)
	<-b.release
	return reply.Parse([]byte(`{"reply":"done"}`))
}

func TestSubmit_Success(t *testing.T) {
	inv := &scriptedInvoker{results: []invokeResult{{body: `{"reply":"2 instances found"}`}}}
	s := NewSession(inv)

	turn, err := s.Submit(context.Background(), "list ec2 instances")
	require.NoError(t, err)

	assert.Equal(t, SenderBot, turn.Sender)
	assert.Equal(t, "2 instances found", turn.Text)
	assert.Equal(t, []string{"list ec2 instances"}, inv.queries)

	turns := s.Transcript().All()
	require.Len(t, turns, 3)
	assert.Equal(t, Turn{ID: turns[1].ID, Sender: SenderUser, Text: "list ec2 instances", CreatedAt: turns[1].CreatedAt}, turns[1])
	assert.Equal(t, SenderBot, turns[2].Sender)
	assert.Equal(t, "2 instances found", turns[2].Text)

	_, pending := s.Pending()
	assert.False(t, pending)
	assert.Equal(t, StateIdle, s.State())
}

func TestSubmit_ErrorBecomesBotTurnAndSessionStaysUsable(t *testing.T) {
	inv := &scriptedInvoker{results: []invokeResult{
		{err: errors.New("dial tcp 10.0.0.1:443: connect: connection refused")},
		{body: `{"reply":"ok now"}`},
	}}
	s := NewSession(inv)

	turn, err := s.Submit(context.Background(), "show billing summary")
	require.NoError(t, err)
	assert.Equal(t, ErrorPrefix+"dial tcp 10.0.0.1:443: connect: connection refused", turn.Text)
	assert.True(t, strings.HasPrefix(s.Transcript().Last().Text, ErrorPrefix))
	assert.Equal(t, StateIdle, s.State())

	turn, err = s.Submit(context.Background(), "show billing summary")
	require.NoError(t, err)
	assert.Equal(t, "ok now", turn.Text)
	assert.Equal(t, 5, s.Transcript().Len())
}

func TestSubmit_EmptyReplyUsesSentinel(t *testing.T) {
	inv := &scriptedInvoker{results: []invokeResult{{body: `{"reply":"","summary":{"total":"$12"}}`}}}
	s := NewSession(inv)

	turn, err := s.Submit(context.Background(), "billing")
	require.NoError(t, err)
	assert.Equal(t, reply.NoResponse+"\n\n- **total**: $12", turn.Text)
}

func TestSubmit_RejectsEmptyQuery(t *testing.T) {
	s := NewSession(&scriptedInvoker{})

	_, err := s.Submit(context.Background(), "  \n")

	assert.ErrorIs(t, err, ErrEmptyQuery)
	assert.Equal(t, 1, s.Transcript().Len())
}

func TestSubmit_RejectsWhileAwaitingReply(t *testing.T) {
	inv := &blockingInvoker{started: make(chan struct{}), release: make(chan struct{})}
	s := NewSession(inv)

	done := make(chan Turn)
	go func() {
		turn, err := s.Submit(context.Background(), "first")
		assert.NoError(t, err)
		done <- turn
	}()
	<-inv.started

	assert.Equal(t, StateAwaitingReply, s.State())
	pending, ok := s.Pending()
	assert.True(t, ok)
	assert.Equal(t, "first", pending)

	_, err := s.Submit(context.Background(), "second")
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, 2, s.Transcript().Len())

	close(inv.release)
	turn := <-done
	assert.Equal(t, "done", turn.Text)
	assert.Equal(t, StateIdle, s.State())
	assert.Equal(t, 3, s.Transcript().Len())
}

func TestSubmit_Hooks(t *testing.T) {
	inv := &scriptedInvoker{results: []invokeResult{{body: `{"reply":"hi"}`}}}
	var events []string
	var s *Session
	s = NewSession(inv, WithHooks(Hooks{
		OnBusy: func(query string) {
			// The user turn is already visible while busy
			events = append(events, "busy:"+query+":"+s.Transcript().Last().Text+":"+s.State().String())
		},
		OnIdle: func(turn Turn) {
			events = append(events, "idle:"+turn.Text+":"+s.State().String())
		},
	}))

	_, err := s.Submit(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, []string{"busy:hello:hello:awaiting_reply", "idle:hi:idle"}, events)
}

func TestSession_IDsAreUnique(t *testing.T) {
	a := NewSession(&scriptedInvoker{})
	b := NewSession(&scriptedInvoker{})
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, "fixed", NewSession(&scriptedInvoker{}, WithID("fixed")).ID())
}

func TestSession_ToMarkdown(t *testing.T) {
	s := NewSession(&scriptedInvoker{}, WithID("s-1"))

	md, err := s.ToMarkdown()
	require.NoError(t, err)
	assert.Contains(t, md, "session `s-1`")
	assert.Contains(t, md, SeedText)
}
