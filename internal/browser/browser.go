package browser

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// ErrPoolClosed is returned by Get after Cleanup.
var ErrPoolClosed = errors.New("browser pool is closed")

// Options configures the Chrome instance behind the pool.
type Options struct {
	Headless bool
	// UserDataDir keeps logins to web chat providers between runs. Empty uses a throwaway profile.
	UserDataDir string
	Size        int
}

// Pool manages a pool of browser connections to one launched Chrome.
// Chrome is launched on the first Get, since most requests never need it.
type Pool struct {
	opts     Options
	launcher *launcher.Launcher
	url      string
	browsers chan *rod.Browser
	created  int
	closed   bool
	mu       sync.Mutex
}

// NewPool creates a browser pool. No browser is started yet.
func NewPool(opts Options) *Pool {
	if opts.Size < 1 {
		opts.Size = 1
	}
	return &Pool{
		opts:     opts,
		browsers: make(chan *rod.Browser, opts.Size),
	}
}

// Get retrieves a browser from the pool, connecting a new one while below Size.
func (p *Pool) Get(ctx context.Context) (*rod.Browser, error) {
	select {
	case b, ok := <-p.browsers:
		if !ok {
			return nil, ErrPoolClosed
		}
		return b, nil
	default:
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	if p.created < p.opts.Size {
		b, err := p.connect()
		if err == nil {
			p.created++
		}
		p.mu.Unlock()
		return b, err
	}
	p.mu.Unlock()

	select {
	case b, ok := <-p.browsers:
		if !ok {
			return nil, ErrPoolClosed
		}
		return b, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// connect must be called with mu held.
func (p *Pool) connect() (*rod.Browser, error) {
	if p.launcher == nil {
		l := NewLauncher(p.opts)
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
		p.launcher, p.url = l, u
		log.Printf("Browser launched (headless=%t).", p.opts.Headless)
	}

	b := rod.New().ControlURL(p.url)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	return b, nil
}

// Return gives a browser back to the pool.
func (p *Pool) Return(browser *rod.Browser) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		browser.Close()
		return
	}
	p.browsers <- browser
}

// Cleanup closes all browsers in the pool.
func (p *Pool) Cleanup() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true

	close(p.browsers)
	for browser := range p.browsers {
		if err := browser.Close(); err != nil {
			log.Printf("Failed to close browser: %v", err)
		}
	}
	if p.launcher != nil {
		p.launcher.Cleanup()
	}
	log.Println("Browser pool cleaned up.")
}

// NewLauncher creates and configures a new Rod launcher with standardized settings.
func NewLauncher(opts Options) *launcher.Launcher {
	l := launcher.New().
		Headless(opts.Headless).
		Set("disable-blink-features", "AutomationControlled").
		Set("no-sandbox").
		Set("disable-setuid-sandbox").
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("disable-extensions").
		Set("disable-background-networking")
	if opts.UserDataDir != "" {
		l = l.UserDataDir(opts.UserDataDir)
	}
	return l
}
