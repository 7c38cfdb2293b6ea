package console

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cchalm/cloudops-assistant/internal/chat"
	"github.com/cchalm/cloudops-assistant/internal/reply"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeInvoker answers every query with a reply naming the query, or fails for queries listed in failures
type fakeInvoker struct {
	queries  []string
	failures map[string]error
}

func (f *fakeInvoker) Invoke(_ context.Context, query string) (reply.Payload, error) {
	f.queries = append(f.queries, query)
	if err, ok := f.failures[query]; ok {
		return reply.Payload{}, err
	}
	return reply.Parse([]byte(`{"reply":"answer to ` + query + `"}`))
}

func runREPL(t *testing.T, inv chat.Invoker, input string) (*REPL, string) {
	t.Helper()
	var out bytes.Buffer
	r := New(inv, strings.NewReader(input), &out, WithStyling(false))
	require.NoError(t, r.Run(context.Background()))
	return r, out.String()
}

func TestREPL_SeedAndQuery(t *testing.T) {
	inv := &fakeInvoker{}
	r, out := runREPL(t, inv, "list ec2 instances\n")

	assert.Contains(t, out, "🤖 Bot:\n"+chat.SeedText+"\n")
	assert.Contains(t, out, BusyText+"\n"+DoneText+"\n🤖 Bot:\nanswer to list ec2 instances\n")
	assert.Equal(t, []string{"list ec2 instances"}, inv.queries)

	turns := r.Session().Transcript().All()
	require.Len(t, turns, 3)
	assert.Equal(t, chat.StateIdle, r.Session().State())
}

func TestREPL_ErrorThenRecovery(t *testing.T) {
	inv := &fakeInvoker{failures: map[string]error{"boom": errors.New("connection reset by peer")}}
	r, out := runREPL(t, inv, "boom\nagain\n")

	assert.Contains(t, out, chat.ErrorPrefix+"connection reset by peer")
	assert.Contains(t, out, "answer to again")
	assert.Equal(t, 5, r.Session().Transcript().Len())
}

func TestREPL_QuickActionAndQuit(t *testing.T) {
	inv := &fakeInvoker{}
	_, out := runREPL(t, inv, "/billing\n/quit\nnever sent\n")

	action, ok := chat.FindQuickAction("billing")
	require.True(t, ok)
	assert.Equal(t, []string{action.Query}, inv.queries)
	assert.Contains(t, out, "answer to "+action.Query)
}

func TestREPL_BlankLinesAndUnknownCommands(t *testing.T) {
	inv := &fakeInvoker{}
	r, out := runREPL(t, inv, "\n   \n/bogus\n/save\n")

	assert.Empty(t, inv.queries)
	assert.Contains(t, out, "unknown command '/bogus'")
	assert.Contains(t, out, "usage: /save <path>")
	assert.Equal(t, 1, r.Session().Transcript().Len())
}

func TestREPL_HelpAboutActions(t *testing.T) {
	_, out := runREPL(t, &fakeInvoker{}, "/help\n/about\n/actions\n")

	assert.Contains(t, out, "/history")
	assert.Contains(t, out, chat.AboutTitle)
	assert.Contains(t, out, chat.AboutFooter)
	for _, a := range chat.QuickActions {
		assert.Contains(t, out, a.Query)
	}
}

func TestREPL_HistoryAndSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcript.md")
	_, out := runREPL(t, &fakeInvoker{}, "hello\n/history\n/save "+path+"\n")

	assert.Contains(t, out, "🧑 You: hello\n")
	assert.Contains(t, out, "Transcript written to "+path)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	md := string(b)
	assert.Contains(t, md, "### 🧑 You")
	assert.Contains(t, md, "answer to hello")
}

func TestREPL_StopsWhenContextCancelled(t *testing.T) {
	inv := &fakeInvoker{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	r := New(inv, strings.NewReader("never sent\n"), &out, WithStyling(false))
	require.NoError(t, r.Run(ctx))
	assert.Empty(t, inv.queries)
}

func TestREPL_StyledOutputStillCarriesText(t *testing.T) {
	var out bytes.Buffer
	r := New(&fakeInvoker{}, strings.NewReader("/about\n"), &out, WithStyling(true))
	require.NoError(t, r.Run(context.Background()))

	assert.Contains(t, out.String(), "Who am I")
	assert.Contains(t, out.String(), "EC2 analysis")
}
