// Package prompt renders the fixed video summarization prompt.
package prompt

import (
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/atotto/clipboard"
)

// Unknown stands in for metadata that could not be retrieved.
const Unknown = "Unknown"

// TranscriptionFailed replaces the transcript when speech-to-text failed.
const TranscriptionFailed = "Transcription failed"

//go:embed prompt.tmpl
var promptText string

var promptTemplate = template.Must(template.New("prompt").Option("missingkey=error").Parse(promptText))

// Data is interpolated into the prompt.
type Data struct {
	Channel     string
	Title       string
	Views       string
	Likes       string
	Description string
	VideoURL    string
	Transcript  string
}

// Build renders the prompt. Empty metadata renders as "Unknown" and an
// empty transcript as "Transcription failed".
func Build(d Data) (string, error) {
	d.Channel = orUnknown(d.Channel)
	d.Title = orUnknown(d.Title)
	d.Views = orUnknown(d.Views)
	d.Likes = orUnknown(d.Likes)
	d.Description = orUnknown(d.Description)
	if strings.TrimSpace(d.Transcript) == "" {
		d.Transcript = TranscriptionFailed
	}

	var b strings.Builder
	if err := promptTemplate.Execute(&b, d); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return b.String(), nil
}

// CopyToClipboard places the prompt on the desktop clipboard. Failures are
// logged only: services and headless hosts have no clipboard.
func CopyToClipboard(text string) {
	if clipboard.Unsupported {
		slog.Warn("Clipboard is not supported on this system")
		return
	}
	if err := clipboard.WriteAll(text); err != nil {
		slog.Warn("Failed to copy prompt to clipboard", "error", err)
		return
	}
	slog.Info("Copied prompt to clipboard", "chars", len(text))
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return Unknown
	}
	return s
}
