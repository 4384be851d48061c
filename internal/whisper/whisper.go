// Package whisper runs speech-to-text over downloaded audio. Engines are
// external: a resident whisperx python process or an OpenAI-compatible
// transcription endpoint.
package whisper

import (
	"context"
	"fmt"

	"youtube-transcription-service/internal/config"
	"youtube-transcription-service/internal/transcript"
	"youtube-transcription-service/internal/utils"
)

// Options selects the model and spoken language for one transcription.
type Options struct {
	Model    string
	Language string
}

// Transcriber turns an audio file into timed segments.
type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, audioPath string, opts Options) ([]transcript.Segment, error)
	Close()
}

// New builds the engine selected by WHISPER_ENGINE.
func New(cfg *config.AppConfig) (Transcriber, error) {
	switch cfg.WhisperEngine {
	case "whisperx":
		python := utils.ResolvePython(cfg.PythonPath, cfg.VenvDir())
		return NewWhisperX(python, cfg.ScriptsDir(), cfg.GPUWorkers, cfg.WhisperDevice, cfg.HFAuthToken)
	case "openai":
		return NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown whisper engine: %s", cfg.WhisperEngine)
	}
}
