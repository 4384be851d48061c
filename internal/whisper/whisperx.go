package whisper

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"youtube-transcription-service/internal/transcript"
	"youtube-transcription-service/internal/utils"
)

//go:embed scripts/whisperx_worker.py
var workerScript []byte

type workerRequest struct {
	Cmd      string `json:"cmd"`
	Model    string `json:"model,omitempty"`
	Audio    string `json:"audio,omitempty"`
	Language string `json:"language,omitempty"`
}

type workerResponse struct {
	Error    string               `json:"error,omitempty"`
	OK       bool                 `json:"ok,omitempty"`
	Device   string               `json:"device,omitempty"`
	Language string               `json:"language,omitempty"`
	Segments []transcript.Segment `json:"segments,omitempty"`
}

// WhisperX keeps whisperx models resident in python helper processes.
// Each helper remembers its loaded model in PythonHelper.State and reloads
// when a request asks for a different one.
type WhisperX struct {
	pool *utils.PythonPool
}

// NewWhisperX creates the engine. Helpers start lazily on first use.
func NewWhisperX(pythonCmd, scriptsDir string, workers int, device, hfToken string) (*WhisperX, error) {
	scriptPath, err := utils.WriteScript(scriptsDir, "whisperx_worker.py", workerScript)
	if err != nil {
		return nil, err
	}

	env := []string{"WHISPER_DEVICE=" + device, "PYTHONIOENCODING=utf-8"}
	if hfToken != "" {
		env = append(env, "HF_AUTH_TOKEN="+hfToken)
	}

	pool, err := utils.NewPythonPool(workers, func() (*utils.PythonHelper, error) {
		slog.Info("Starting whisperx helper", "python", pythonCmd, "script", scriptPath)
		return utils.NewPythonHelper(pythonCmd, scriptPath, env)
	})
	if err != nil {
		return nil, err
	}
	return &WhisperX{pool: pool}, nil
}

func (w *WhisperX) Name() string { return "whisperx" }

// Warm starts one helper and loads model so the first request does not pay for it.
func (w *WhisperX) Warm(ctx context.Context, model string) error {
	helper, err := w.pool.Get(ctx)
	if err != nil {
		return err
	}
	defer w.pool.Put(helper)
	return w.ensureModel(ctx, helper, model)
}

// Transcribe runs whisperx with alignment (English only) and, when a
// Hugging Face token is configured, speaker diarization.
func (w *WhisperX) Transcribe(ctx context.Context, audioPath string, opts Options) ([]transcript.Segment, error) {
	helper, err := w.pool.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire whisperx helper: %w", err)
	}
	defer w.pool.Put(helper)

	if err := w.ensureModel(ctx, helper, opts.Model); err != nil {
		return nil, err
	}

	started := time.Now()
	var resp workerResponse
	if err := helper.Call(ctx, workerRequest{Cmd: "transcribe", Audio: audioPath, Language: opts.Language}, &resp); err != nil {
		return nil, fmt.Errorf("whisperx transcribe: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("whisperx transcribe: %s", resp.Error)
	}

	slog.Info("Transcription completed", "engine", "whisperx", "model", helper.State,
		"segments", len(resp.Segments), "language", resp.Language, "duration", time.Since(started).Round(10*time.Millisecond))
	return resp.Segments, nil
}

func (w *WhisperX) ensureModel(ctx context.Context, helper *utils.PythonHelper, model string) error {
	if model == "" {
		model = "base"
	}
	if helper.State == model {
		return nil
	}
	if helper.State != "" {
		slog.Info("Requested Whisper model differs from loaded model, reloading", "requested", model, "loaded", helper.State)
	}

	var resp workerResponse
	if err := helper.Call(ctx, workerRequest{Cmd: "load", Model: model}, &resp); err != nil {
		return fmt.Errorf("whisperx load %s: %w", model, err)
	}
	if resp.Error != "" {
		return errors.New("whisperx load " + model + ": " + resp.Error)
	}
	helper.State = model
	slog.Info("Whisper model loaded", "model", model, "device", resp.Device)
	return nil
}

// Close stops all helper processes.
func (w *WhisperX) Close() {
	w.pool.Close()
}
