package llm

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"time"

	"youtube-transcription-service/internal/config"
	"youtube-transcription-service/internal/utils"
)

//go:embed scripts/run_llama.py
var llamaScript []byte

// killWaitDelay bounds the wait for the child's pipes after a cancelled run.
const killWaitDelay = 5 * time.Second

// LocalRunner runs a model in a child process. The prompt is too large for a
// command line, so it is handed over in a temp file named by PROMPT_FILE_PATH.
// The answer is the child's trimmed stdout.
type LocalRunner struct {
	Command []string
	Env     []string
	TempDir string
}

// NewLocalRunner runs LLM_SCRIPT, or the embedded llama.cpp script, with the configured python.
func NewLocalRunner(cfg *config.AppConfig) (*LocalRunner, error) {
	script := cfg.LLMScript
	if script == "" {
		path, err := utils.WriteScript(cfg.ScriptsDir(), "run_llama.py", llamaScript)
		if err != nil {
			return nil, err
		}
		script = path
	}

	env := []string{"LOG_FILE_PATH=" + cfg.LogFile, "PYTHONIOENCODING=utf-8"}
	if cfg.LlamaModelPath != "" {
		env = append(env, "LLAMA_MODEL_PATH="+cfg.LlamaModelPath)
	}

	return &LocalRunner{
		Command: []string{utils.ResolvePython(cfg.PythonPath, cfg.VenvDir()), script},
		Env:     env,
		TempDir: cfg.TempDir(),
	}, nil
}

func (r *LocalRunner) Name() string { return "local" }

func (r *LocalRunner) UsesGPU() bool { return true }

func (r *LocalRunner) Generate(ctx context.Context, prompt string) (string, error) {
	if len(r.Command) == 0 {
		return "", fmt.Errorf("local runner has no command")
	}
	if err := os.MkdirAll(r.TempDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}

	f, err := os.CreateTemp(r.TempDir, "prompt-*.txt")
	if err != nil {
		return "", fmt.Errorf("failed to create prompt file: %w", err)
	}
	promptPath := f.Name()
	defer func() {
		if err := os.Remove(promptPath); err != nil && !os.IsNotExist(err) {
			log.Printf("Failed to remove prompt file %s: %v", promptPath, err)
		}
	}()

	_, err = f.WriteString(prompt)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("failed to write prompt file: %w", err)
	}

	cmd := exec.CommandContext(ctx, r.Command[0], r.Command[1:]...)
	cmd.WaitDelay = killWaitDelay
	cmd.Env = append(append(os.Environ(), r.Env...), "PROMPT_FILE_PATH="+promptPath)
	var stdout bytes.Buffer
	stderr := utils.NewLogWriter("local llm")
	cmd.Stdout = &stdout
	cmd.Stderr = stderr

	log.Printf("Running local LLM: %s", strings.Join(r.Command, " "))
	err = cmd.Run()
	stderr.Flush()
	if ctxErr := ctx.Err(); err != nil && ctxErr != nil {
		return "", fmt.Errorf("local LLM stopped: %w", ctxErr)
	}
	if err != nil {
		return "", fmt.Errorf("local LLM failed: %w: %s", err, stderr.Tail())
	}

	out := strings.TrimSpace(stdout.String())
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}
