package utils

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"sync"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrHelperDead is returned once a helper process has exited or was killed.
var ErrHelperDead = errors.New("python helper is not running")

// PythonHelper manages a long-lived Python helper process speaking
// newline-delimited JSON over stdin/stdout.
type PythonHelper struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	mu     sync.Mutex
	dead   bool

	// State is free for the owner to track helper-side state, such as the loaded model.
	State string
}

// NewPythonHelper creates and starts a new Python helper process.
// Helper stderr is forwarded to the service log.
func NewPythonHelper(pythonCmd, scriptPath string, env []string) (*PythonHelper, error) {
	cmd := exec.Command(pythonCmd, scriptPath)
	cmd.Env = append(os.Environ(), env...)
	cmd.Stderr = NewLogWriter("python helper")

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start python helper: %w", err)
	}

	return &PythonHelper{
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewReaderSize(stdout, 1<<20),
	}, nil
}

// Call sends request as one JSON line and decodes the next line into response.
// If ctx ends first the process is killed, since the protocol cannot resync
// after an abandoned reply.
func (h *PythonHelper) Call(ctx context.Context, request, response interface{}) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.dead {
		return ErrHelperDead
	}

	reqBytes, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	if _, err := h.stdin.Write(append(reqBytes, '\n')); err != nil {
		h.kill()
		return fmt.Errorf("failed to write to python helper stdin: %w", err)
	}

	type readResult struct {
		line []byte
		err  error
	}
	done := make(chan readResult, 1)
	go func() {
		line, err := h.stdout.ReadBytes('\n')
		done <- readResult{line, err}
	}()

	select {
	case <-ctx.Done():
		h.kill()
		<-done
		return ctx.Err()
	case res := <-done:
		if res.err != nil {
			h.kill()
			return fmt.Errorf("failed to read from python helper stdout: %w", res.err)
		}
		if err := json.Unmarshal(res.line, response); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
		return nil
	}
}

// Alive reports whether the helper can still serve requests.
func (h *PythonHelper) Alive() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.dead
}

// Close terminates the Python helper process.
func (h *PythonHelper) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.kill()
}

func (h *PythonHelper) kill() {
	if h.dead {
		return
	}
	h.dead = true
	if h.stdin != nil {
		h.stdin.Close()
	}
	if h.cmd != nil && h.cmd.Process != nil {
		if err := h.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			log.Printf("Failed to kill python helper process: %v", err)
		}
		go h.cmd.Wait()
	}
}
