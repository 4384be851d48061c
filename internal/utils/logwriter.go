package utils

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
)

// LogWriter is an io.Writer that logs each complete line it receives.
// It is used for child process output.
type LogWriter struct {
	source string
	mu     sync.Mutex
	buf    bytes.Buffer
	lines  []string
	keep   int
}

// NewLogWriter returns a writer that logs lines under the given source name.
func NewLogWriter(source string) *LogWriter {
	return &LogWriter{source: source, keep: 20}
}

func (w *LogWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// Incomplete line; put it back until the rest arrives.
			w.buf.Reset()
			w.buf.WriteString(line)
			break
		}
		w.emit(line)
	}
	return len(p), nil
}

// Flush logs any trailing partial line.
func (w *LogWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() > 0 {
		w.emit(w.buf.String())
		w.buf.Reset()
	}
}

// Tail returns the last lines written, for error messages.
func (w *LogWriter) Tail() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return strings.Join(w.lines, "\n")
}

func (w *LogWriter) emit(line string) {
	// Progress output uses carriage returns; keep only the final state.
	if i := strings.LastIndex(strings.TrimRight(line, "\r\n"), "\r"); i >= 0 {
		line = line[i+1:]
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	slog.Info(line, "source", w.source)
	w.lines = append(w.lines, line)
	if len(w.lines) > w.keep {
		w.lines = w.lines[len(w.lines)-w.keep:]
	}
}
