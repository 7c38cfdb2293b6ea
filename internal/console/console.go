// Package console runs the interactive terminal chat.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/glamour"
	"github.com/cchalm/cloudops-assistant/internal/chat"
	"github.com/cchalm/cloudops-assistant/internal/logger"
	"github.com/cchalm/cloudops-assistant/internal/metrics"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

const (
	BusyText = "🤖 Your request is loading... this may take some time"
	DoneText = "✅ Response received"
)

// REPL reads queries and slash commands line by line and prints the bot's replies
type REPL struct {
	session *chat.Session
	in      io.Reader
	out     io.Writer
	styled  bool
	render  func(markdown string) string
	log     *logger.Logger
}

type Option func(*options)

type options struct {
	styled  *bool
	log     *logger.Logger
	metrics *metrics.Recorder
}

// WithStyling forces styled (glamour + lipgloss) or plain output. By default output is styled when it is a terminal.
func WithStyling(styled bool) Option {
	return func(o *options) { o.styled = &styled }
}

func WithLogger(log *logger.Logger) Option {
	return func(o *options) { o.log = log }
}

func WithMetrics(recorder *metrics.Recorder) Option {
	return func(o *options) { o.metrics = recorder }
}

// New creates a REPL with a fresh session that sends queries through invoker
func New(invoker chat.Invoker, in io.Reader, out io.Writer, opts ...Option) *REPL {
	o := options{log: logger.Discard()}
	for _, opt := range opts {
		opt(&o)
	}

	styled := isTerminal(out)
	if o.styled != nil {
		styled = *o.styled
	}

	r := &REPL{
		in:     in,
		out:    out,
		styled: styled,
		render: func(md string) string { return md },
		log:    o.log,
	}
	if styled {
		r.render = newMarkdownRenderer(o.log)
	}
	r.session = chat.NewSession(invoker,
		chat.WithLogger(o.log),
		chat.WithMetrics(o.metrics),
		chat.WithHooks(chat.Hooks{
			OnBusy: func(string) { r.println(r.dim(BusyText)) },
			OnIdle: func(chat.Turn) { r.println(r.dim(DoneText)) },
		}),
	)
	return r
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

func newMarkdownRenderer(log *logger.Logger) func(string) string {
	tr, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		log.Warn("markdown rendering disabled", logrus.Fields{"error": err.Error()})
		return func(md string) string { return md }
	}
	return func(md string) string {
		out, err := tr.Render(md)
		if err != nil {
			return md
		}
		return strings.TrimRight(out, "\n")
	}
}

// Session exposes the REPL's chat session
func (r *REPL) Session() *chat.Session {
	return r.session
}

// Run processes input until EOF, /quit, or ctx is cancelled
func (r *REPL) Run(ctx context.Context) error {
	r.println(r.title("🤖 CloudOps Assistant"))
	r.println(r.dim("Type a question, or /help for commands."))
	r.printTurn(r.session.Transcript().Last())

	scanner := bufio.NewScanner(r.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		if ctx.Err() != nil {
			return nil
		}
		r.print(r.prompt("🧑 You: "))
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := r.command(ctx, line)
			if err != nil {
				r.println(r.warn(err.Error()))
			}
			if quit {
				return nil
			}
			continue
		}
		r.submit(ctx, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	r.println("")
	return nil
}

func (r *REPL) submit(ctx context.Context, query string) {
	turn, err := r.session.Submit(ctx, query)
	if err != nil {
		// Only ErrEmptyQuery and ErrBusy reach here, neither of which touches the transcript
		r.println(r.warn(err.Error()))
		return
	}
	r.printTurn(turn)
}

func (r *REPL) command(ctx context.Context, line string) (quit bool, err error) {
	fields := strings.Fields(strings.TrimPrefix(line, "/"))
	if len(fields) == 0 {
		return false, errors.New("empty command, try /help")
	}
	name, args := strings.ToLower(fields[0]), fields[1:]

	if action, ok := chat.FindQuickAction(name); ok {
		r.println(r.prompt("🧑 You: ") + action.Query)
		r.submit(ctx, action.Query)
		return false, nil
	}

	switch name {
	case "quit", "exit":
		return true, nil
	case "help":
		r.printHelp()
	case "about":
		r.printAbout()
	case "actions":
		for _, a := range chat.QuickActions {
			r.println(fmt.Sprintf("  /%-8s %s: %s", a.Command, a.Label, a.Query))
		}
	case "history":
		for _, turn := range r.session.Transcript().All() {
			r.printTurn(turn)
		}
	case "save":
		if len(args) != 1 {
			return false, errors.New("usage: /save <path>")
		}
		if err := r.save(args[0]); err != nil {
			return false, err
		}
		r.println(r.dim("Transcript written to " + args[0]))
	default:
		return false, fmt.Errorf("unknown command '/%s', try /help", name)
	}
	return false, nil
}

func (r *REPL) save(path string) error {
	md, err := r.session.ToMarkdown()
	if err != nil {
		return fmt.Errorf("failed to render transcript: %w", err)
	}
	if err := os.WriteFile(path, []byte(md), 0644); err != nil {
		return fmt.Errorf("failed to write transcript: %w", err)
	}
	return nil
}

func (r *REPL) printTurn(turn chat.Turn) {
	if turn.Sender == chat.SenderUser {
		r.println(r.prompt("🧑 You: ") + turn.Text)
		return
	}
	r.println(r.botLabel("🤖 Bot:"))
	r.println(r.render(turn.Text))
}

func (r *REPL) printHelp() {
	r.println("Commands:")
	r.println("  /help            show this help")
	r.println("  /about           what the assistant can do")
	r.println("  /actions         list quick actions")
	for _, a := range chat.QuickActions {
		r.println(fmt.Sprintf("  /%-15s %s", a.Command, a.Label))
	}
	r.println("  /history         print the whole transcript")
	r.println("  /save <path>     write the transcript as markdown")
	r.println("  /quit            leave")
}

func (r *REPL) printAbout() {
	var b strings.Builder
	b.WriteString(AboutHeading(r.styled))
	b.WriteString("\nI am your CloudOps Assistant. I can:\n")
	for _, item := range chat.AboutItems {
		b.WriteString("  • " + item + "\n")
	}
	b.WriteString(chat.AboutFooter)
	if !r.styled {
		r.println(b.String())
		return
	}
	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#4CAF50")).
		Padding(1, 2)
	r.println(panel.Render(b.String()))
}

// AboutHeading is the panel title, colored when styled
func AboutHeading(styled bool) string {
	if !styled {
		return chat.AboutTitle
	}
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2E7D32")).Render(chat.AboutTitle)
}

func (r *REPL) title(s string) string {
	if !r.styled {
		return s
	}
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4CAF50")).Render(s)
}

func (r *REPL) prompt(s string) string {
	if !r.styled {
		return s
	}
	return lipgloss.NewStyle().Bold(true).Render(s)
}

func (r *REPL) botLabel(s string) string {
	if !r.styled {
		return s
	}
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2E7D32")).Render(s)
}

func (r *REPL) dim(s string) string {
	if !r.styled {
		return s
	}
	return lipgloss.NewStyle().Faint(true).Render(s)
}

func (r *REPL) warn(s string) string {
	if !r.styled {
		return "⚠️ " + s
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("#E65100")).Render("⚠️ " + s)
}

func (r *REPL) print(s string) {
	_, _ = io.WriteString(r.out, s)
}

func (r *REPL) println(s string) {
	_, _ = io.WriteString(r.out, s+"\n")
}
