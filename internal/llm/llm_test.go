package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestFakeLLM is not a real test. It stands in for run_llama.py when the
// test binary is started by a LocalRunner.
func TestFakeLLM(t *testing.T) {
	if os.Getenv("GO_WANT_FAKE_LLM") != "1" {
		return
	}
	data, err := os.ReadFile(os.Getenv("PROMPT_FILE_PATH"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "cannot read prompt:", err)
		os.Exit(1)
	}
	if strings.Contains(string(data), "hang") {
		time.Sleep(time.Minute)
	}
	if strings.Contains(string(data), "fail") {
		fmt.Fprintln(os.Stderr, "model exploded")
		os.Exit(3)
	}
	fmt.Printf("  summary of %q (log=%s)  \n", string(data), os.Getenv("LOG_FILE_PATH"))
	os.Exit(0)
}

func newFakeLocal(t *testing.T) *LocalRunner {
	return &LocalRunner{
		Command: []string{os.Args[0], "-test.run=^TestFakeLLM$"},
		Env:     []string{"GO_WANT_FAKE_LLM=1", "LOG_FILE_PATH=svc.log"},
		TempDir: t.TempDir(),
	}
}

func TestLocalRunner(t *testing.T) {
	r := newFakeLocal(t)
	got, err := r.Generate(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	want := `summary of "hello world" (log=svc.log)`
	if got != want {
		t.Errorf("Generate() = %q, want %q", got, want)
	}

	entries, _ := os.ReadDir(r.TempDir)
	if len(entries) != 0 {
		t.Errorf("prompt file was not removed: %v", entries)
	}
	if !NeedsGPU(r) {
		t.Error("local runner should need the GPU queue")
	}
}

func TestLocalRunnerFailureIncludesStderr(t *testing.T) {
	r := newFakeLocal(t)
	_, err := r.Generate(context.Background(), "please fail")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "model exploded") {
		t.Errorf("error should carry stderr, got %v", err)
	}
}

func TestLocalRunnerDeadline(t *testing.T) {
	r := newFakeLocal(t)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := r.Generate(ctx, "hang forever")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Generate() error = %v, want DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > killWaitDelay+3*time.Second {
		t.Errorf("Generate() returned after %s", elapsed)
	}
}

func TestGeminiRotatesOnRateLimit(t *testing.T) {
	r := NewGeminiRunner([]string{"k1", "k2", "k3"}, "gemini-test")
	var tried []string
	r.generate = func(ctx context.Context, key, prompt string) (string, error) {
		tried = append(tried, key)
		if key == "k3" {
			return "answer for " + prompt, nil
		}
		return "", errors.New("Error 429, Message: quota exceeded, Status: RESOURCE_EXHAUSTED")
	}

	got, err := r.Generate(context.Background(), "p")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != "answer for p" {
		t.Errorf("Generate() = %q", got)
	}
	if strings.Join(tried, ",") != "k1,k2,k3" {
		t.Errorf("keys tried = %v", tried)
	}

	// The working key stays current.
	tried = nil
	if _, err := r.Generate(context.Background(), "p"); err != nil {
		t.Fatal(err)
	}
	if len(tried) != 1 || tried[0] != "k3" {
		t.Errorf("second call tried %v, want [k3]", tried)
	}
}

func TestGeminiStopsOnOtherErrors(t *testing.T) {
	r := NewGeminiRunner([]string{"k1", "k2"}, "gemini-test")
	calls := 0
	r.generate = func(ctx context.Context, key, prompt string) (string, error) {
		calls++
		return "", errors.New("Error 400, Message: invalid argument")
	}
	if _, err := r.Generate(context.Background(), "p"); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestGeminiAllKeysExhausted(t *testing.T) {
	r := NewGeminiRunner([]string{"k1", "k2"}, "gemini-test")
	r.generate = func(ctx context.Context, key, prompt string) (string, error) {
		return "", errors.New("429 Too Many Requests")
	}
	_, err := r.Generate(context.Background(), "p")
	if err == nil || !strings.Contains(err.Error(), "exhausted") {
		t.Errorf("Generate() error = %v", err)
	}
}

func TestOpenAIRunner(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), systemPrompt) || !strings.Contains(string(body), "the prompt") {
			t.Errorf("unexpected request body: %s", body)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"1","object":"chat.completion","model":"m","choices":[{"index":0,"message":{"role":"assistant","content":"  the answer \n"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	r := NewOpenAIRunner("sk-test", srv.URL+"/v1", "m")
	got, err := r.Generate(context.Background(), "the prompt")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != "the answer" {
		t.Errorf("Generate() = %q", got)
	}
	if NeedsGPU(r) {
		t.Error("openai runner should not need the GPU queue")
	}
}

func TestLoadProviders(t *testing.T) {
	providers, err := LoadProviders("")
	if err != nil {
		t.Fatalf("LoadProviders() error = %v", err)
	}
	for _, name := range []string{"you", "perplexity", "phind", "gemini", "chatgpt"} {
		p, ok := providers[name]
		if !ok {
			t.Errorf("missing preset %s", name)
			continue
		}
		if err := p.Validate(); err != nil {
			t.Errorf("preset %s invalid: %v", name, err)
		}
	}
	if providers["chatgpt"].InputSelector != "#prompt-textarea" {
		t.Errorf("chatgpt input = %q", providers["chatgpt"].InputSelector)
	}
	if err := providers["custom"].Validate(); err == nil {
		t.Error("empty custom provider should not validate")
	}
}

func TestLoadProvidersOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "providers.yaml")
	content := `
custom:
  url: http://localhost:3000
  inputSelector: textarea
  buttonSelector: button.send
  resultSelector: .answer
chatgpt:
  resultSelector: .markdown
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	providers, err := LoadProviders(path)
	if err != nil {
		t.Fatalf("LoadProviders() error = %v", err)
	}
	if err := providers["custom"].Validate(); err != nil {
		t.Errorf("custom should validate: %v", err)
	}
	chat := providers["chatgpt"]
	if chat.ResultSelector != ".markdown" || chat.URL != "https://chatgpt.com" {
		t.Errorf("chatgpt override not merged: %+v", chat)
	}
}

func TestLoadProvidersBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "providers.yaml")
	os.WriteFile(path, []byte("chatgpt: [unclosed"), 0o644)
	if _, err := LoadProviders(path); err == nil {
		t.Error("expected parse error")
	}
	if _, err := LoadProviders(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected read error")
	}
}

func TestStabilizer(t *testing.T) {
	s := stabilizer{window: 3 * time.Second}
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	steps := []struct {
		text string
		at   time.Duration
		want bool
	}{
		{"", 0, false},
		{"", 5 * time.Second, false},
		{"Hel", 6 * time.Second, false},
		{"Hello", 7 * time.Second, false},
		{"Hello", 9 * time.Second, false},
		{"Hello", 10 * time.Second, true},
	}
	for i, step := range steps {
		if got := s.observe(step.text, t0.Add(step.at)); got != step.want {
			t.Errorf("step %d observe(%q) = %t, want %t", i, step.text, got, step.want)
		}
	}
}

type staticRunner struct{ name string }

func (s staticRunner) Name() string { return s.name }
func (s staticRunner) Generate(ctx context.Context, prompt string) (string, error) {
	return s.name + ":" + prompt, nil
}

func TestRegistry(t *testing.T) {
	reg := NewRegistryWith(staticRunner{"gemini"}, staticRunner{"openai"})

	r, err := reg.Get("")
	if err != nil || r.Name() != "gemini" {
		t.Errorf("Get(\"\") = %v, %v; want default gemini", r, err)
	}
	r, err = reg.Get("openai")
	if err != nil || r.Name() != "openai" {
		t.Errorf("Get(openai) = %v, %v", r, err)
	}
	if _, err := reg.Get("ollama"); !errors.Is(err, ErrUnknownRunner) {
		t.Errorf("Get(ollama) error = %v, want ErrUnknownRunner", err)
	}
	if got := strings.Join(reg.Names(), ","); got != "gemini,openai" {
		t.Errorf("Names() = %s", got)
	}
}
