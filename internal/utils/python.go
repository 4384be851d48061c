package utils

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

var (
	pythonCommand     string
	pythonCommandOnce sync.Once
)

// GetPythonCommand returns the appropriate Python command for the current platform
func GetPythonCommand() string {
	pythonCommandOnce.Do(func() {
		pythonCommand = detectPythonCommand()
	})
	return pythonCommand
}

// ResolvePython picks the interpreter for helper scripts: an explicit
// override, then the interpreter of venvDir if it exists, then the system one.
func ResolvePython(override, venvDir string) string {
	if override != "" {
		return override
	}
	if venvDir != "" {
		if _, err := os.Stat(VenvPython(venvDir)); err == nil {
			return VenvPython(venvDir)
		}
	}
	return GetPythonCommand()
}

// VenvPython returns the interpreter path inside a virtual environment.
func VenvPython(venvDir string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(venvDir, "Scripts", "python.exe")
	}
	return filepath.Join(venvDir, "bin", "python")
}

// detectPythonCommand detects the available Python command on the system
func detectPythonCommand() string {
	candidates := []string{"python3", "python"}

	// On Windows, prefer "python" over "python3"
	if runtime.GOOS == "windows" {
		candidates = []string{"python", "python3"}
	}

	for _, cmd := range candidates {
		if isPythonCommandValid(cmd) {
			return cmd
		}
	}

	return "python3"
}

// isPythonCommandValid checks if a Python command is valid and has the right version
func isPythonCommandValid(cmd string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, cmd, "--version").Output()
	if err != nil {
		return false
	}

	version := strings.TrimSpace(string(output))
	return strings.HasPrefix(version, "Python 3.")
}

// ValidateSystemDependencies checks the external tools the pipeline shells out to.
// All problems are reported together.
func ValidateSystemDependencies(pythonCmd, ytDlpPath string) error {
	var errs []error

	if !isPythonCommandValid(pythonCmd) {
		errs = append(errs, fmt.Errorf("python 3 not found (tried: %s)", pythonCmd))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := exec.CommandContext(ctx, ytDlpPath, "--version").Run(); err != nil {
		errs = append(errs, fmt.Errorf("yt-dlp not available at %s", ytDlpPath))
	}

	if err := exec.CommandContext(ctx, "ffmpeg", "-version").Run(); err != nil {
		errs = append(errs, errors.New("ffmpeg not found (required to convert audio to 16 kHz mono wav)"))
	}

	return errors.Join(errs...)
}

// EnsureVenvExists creates a virtual environment if it doesn't exist
func EnsureVenvExists(venvDir string) error {
	if _, err := os.Stat(VenvPython(venvDir)); err == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, GetPythonCommand(), "-m", "venv", venvDir)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("failed to create virtual environment: %w; output: %s", err, strings.TrimSpace(string(output)))
	}

	return nil
}

// InstallPythonPackages installs packages into the virtual environment at venvDir.
func InstallPythonPackages(ctx context.Context, venvDir string, packages ...string) error {
	if err := EnsureVenvExists(venvDir); err != nil {
		return fmt.Errorf("failed to ensure venv exists: %w", err)
	}

	args := append([]string{"-m", "pip", "install", "--quiet"}, packages...)
	cmd := exec.CommandContext(ctx, VenvPython(venvDir), args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("pip install %s failed: %w; output: %s", strings.Join(packages, " "), err, strings.TrimSpace(string(output)))
	}
	return nil
}

// WriteScript materializes an embedded helper script under dir and returns its path.
// The file is rewritten only when its content changed.
func WriteScript(dir, name string, content []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create scripts directory: %w", err)
	}
	path := filepath.Join(dir, name)
	if existing, err := os.ReadFile(path); err == nil && string(existing) == string(content) {
		return path, nil
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	return path, nil
}
