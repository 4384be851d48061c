package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod/lib/proto"

	"youtube-transcription-service/internal/browser"
)

// BrowserRunner pastes the prompt into a web chat UI and scrapes the answer.
// Logins live in the browser profile (BROWSER_PROFILE_DIR).
type BrowserRunner struct {
	pool     *browser.Pool
	provider Provider

	PollInterval time.Duration
	// StableFor is how long the answer text must stay unchanged to count as finished.
	StableFor time.Duration
}

// NewBrowserRunner creates a runner for one provider.
func NewBrowserRunner(pool *browser.Pool, provider Provider) *BrowserRunner {
	return &BrowserRunner{
		pool:         pool,
		provider:     provider,
		PollInterval: time.Second,
		StableFor:    5 * time.Second,
	}
}

func (r *BrowserRunner) Name() string { return "browser" }

func (r *BrowserRunner) Generate(ctx context.Context, prompt string) (string, error) {
	p := r.provider
	if err := p.Validate(); err != nil {
		return "", err
	}

	b, err := r.pool.Get(ctx)
	if err != nil {
		return "", err
	}
	defer r.pool.Return(b)

	page, err := b.Page(proto.TargetCreateTarget{URL: p.URL})
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", p.URL, err)
	}
	defer page.Close()
	page = page.Context(ctx)

	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("failed to load %s: %w", p.URL, err)
	}

	slog.Info("Browser runner: waiting for input field", "provider", p.Name, "selector", p.InputSelector)
	input, err := page.Element(p.InputSelector)
	if err != nil {
		return "", fmt.Errorf("input field %q not found: %w", p.InputSelector, err)
	}
	if err := input.Input(prompt); err != nil {
		return "", fmt.Errorf("failed to type prompt: %w", err)
	}

	button, err := page.Element(p.ButtonSelector)
	if err != nil {
		return "", fmt.Errorf("submit button %q not found: %w", p.ButtonSelector, err)
	}
	if err := button.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return "", fmt.Errorf("failed to click submit: %w", err)
	}

	// Some providers ask to turn a long paste into an attachment.
	if p.ConfirmButtonSelector != "" {
		confirm, err := page.Timeout(5 * time.Second).Element(p.ConfirmButtonSelector)
		if err == nil {
			if err := confirm.Click(proto.InputMouseButtonLeft, 1); err != nil {
				slog.Warn("Browser runner: confirm click failed", "error", err)
			}
		}
	}

	slog.Info("Browser runner: waiting for answer", "provider", p.Name, "selector", p.ResultSelector)
	ticker := time.NewTicker(r.PollInterval)
	defer ticker.Stop()
	st := stabilizer{window: r.StableFor}
	for {
		select {
		case <-ctx.Done():
			if st.last != "" {
				return "", fmt.Errorf("answer still changing when deadline hit: %w", ctx.Err())
			}
			return "", ctx.Err()
		case now := <-ticker.C:
			els, err := page.Elements(p.ResultSelector)
			if err != nil || len(els) == 0 {
				continue
			}
			text, err := els.Last().Text()
			if err != nil {
				continue
			}
			if st.observe(strings.TrimSpace(text), now) {
				return st.last, nil
			}
		}
	}
}

// stabilizer reports when a polled value has stopped changing.
type stabilizer struct {
	window  time.Duration
	last    string
	changed time.Time
}

func (s *stabilizer) observe(text string, now time.Time) bool {
	if text != s.last {
		s.last, s.changed = text, now
		return false
	}
	return text != "" && now.Sub(s.changed) >= s.window
}
