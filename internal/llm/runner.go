// Package llm sends a finished prompt to a language model and returns its answer.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"youtube-transcription-service/internal/browser"
	"youtube-transcription-service/internal/config"
)

var (
	// ErrUnknownRunner is returned for runner names that are not registered.
	ErrUnknownRunner = errors.New("unknown LLM runner")
	// ErrEmptyResponse is returned when a model produced no text.
	ErrEmptyResponse = errors.New("empty response from LLM")
)

// Runner generates a completion for a prompt.
type Runner interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// GPUBound is implemented by runners that compete with transcription for the GPU.
type GPUBound interface {
	UsesGPU() bool
}

// NeedsGPU reports whether r should run on the GPU worker queue.
func NeedsGPU(r Runner) bool {
	g, ok := r.(GPUBound)
	return ok && g.UsesGPU()
}

// Registry holds the runners available in this process.
type Registry struct {
	runners map[string]Runner
	def     string
}

// NewRegistry registers a runner for every backend that has enough configuration.
// The local and browser runners are always available.
func NewRegistry(cfg *config.AppConfig, pool *browser.Pool) (*Registry, error) {
	r := &Registry{runners: make(map[string]Runner), def: cfg.LLMRunner}

	local, err := NewLocalRunner(cfg)
	if err != nil {
		return nil, err
	}
	r.Register(local)

	if cfg.HasGeminiConfig() {
		r.Register(NewGeminiRunner(cfg.GeminiAPIKeys, cfg.GeminiModel))
	}
	if cfg.HasOpenAIConfig() {
		r.Register(NewOpenAIRunner(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel))
	}

	providers, err := LoadProviders(cfg.ProvidersFile)
	if err != nil {
		return nil, err
	}
	p, ok := providers[cfg.BrowserProvider]
	switch {
	case !ok:
		slog.Warn("Browser provider not found, browser runner disabled", "provider", cfg.BrowserProvider)
	case p.Validate() != nil:
		slog.Warn("Browser provider incomplete, browser runner disabled", "error", p.Validate())
	default:
		r.Register(NewBrowserRunner(pool, p))
	}

	if _, ok := r.runners[r.def]; !ok {
		slog.Warn("Default LLM runner is not configured", "runner", r.def, "available", r.Names())
	}
	return r, nil
}

// NewRegistryWith builds a registry from explicit runners. The first one is the default.
func NewRegistryWith(runners ...Runner) *Registry {
	r := &Registry{runners: make(map[string]Runner)}
	for i, runner := range runners {
		if i == 0 {
			r.def = runner.Name()
		}
		r.Register(runner)
	}
	return r
}

// Register adds or replaces a runner under its name.
func (r *Registry) Register(runner Runner) {
	r.runners[runner.Name()] = runner
}

// Get returns the runner called name, or the default runner when name is empty.
func (r *Registry) Get(name string) (Runner, error) {
	if name == "" {
		name = r.def
	}
	runner, ok := r.runners[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRunner, name)
	}
	return runner, nil
}

// Names lists registered runners.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.runners))
	for name := range r.runners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
