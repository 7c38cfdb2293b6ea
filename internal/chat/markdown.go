package chat

import (
	"bytes"
	_ "embed"
	"fmt"
	"text/template"
)

//go:embed transcript_template.tmpl
var transcriptMarkdownTemplate string

var transcriptTemplate = template.Must(template.New("transcript").Parse(transcriptMarkdownTemplate))

// transcriptMarkdownData is the data the transcript template renders
type transcriptMarkdownData struct {
	SessionID  string
	ExportedAt string
	Turns      []Turn
}

// ToMarkdown renders the transcript as a markdown document
func (t *Transcript) ToMarkdown(sessionID string) (string, error) {
	data := transcriptMarkdownData{
		SessionID:  sessionID,
		ExportedAt: t.now().Format("2006-01-02 15:04:05 MST"),
		Turns:      t.All(),
	}

	var buf bytes.Buffer
	if err := transcriptTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute transcript template: %w", err)
	}
	return buf.String(), nil
}

// ToMarkdown renders the session's transcript
func (s *Session) ToMarkdown() (string, error) {
	return s.transcript.ToMarkdown(s.id)
}
