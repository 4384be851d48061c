package whisper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"youtube-transcription-service/internal/transcript"
)

// OpenAI transcribes through an OpenAI-compatible /audio/transcriptions
// endpoint. Segments carry no speaker labels.
type OpenAI struct {
	client *openai.Client
}

// NewOpenAI creates the engine. baseURL may point at a local server.
func NewOpenAI(apiKey, baseURL string) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg)}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Transcribe(ctx context.Context, audioPath string, opts Options) ([]transcript.Segment, error) {
	req := openai.AudioRequest{
		Model:    remoteModel(opts.Model),
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
		Language: opts.Language,
	}
	resp, err := o.client.CreateTranscription(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai transcription: %w", err)
	}

	segments := segmentsFromResponse(resp)
	slog.Info("Transcription completed", "engine", "openai", "model", req.Model, "segments", len(segments))
	return segments, nil
}

func (o *OpenAI) Close() {}

// remoteModel maps local whisper size names to the hosted model id.
func remoteModel(model string) string {
	if strings.HasPrefix(model, "whisper-") || strings.Contains(model, "transcribe") {
		return model
	}
	return openai.Whisper1
}

func segmentsFromResponse(resp openai.AudioResponse) []transcript.Segment {
	if len(resp.Segments) == 0 {
		if strings.TrimSpace(resp.Text) == "" {
			return nil
		}
		return []transcript.Segment{{Start: 0, End: resp.Duration, Text: resp.Text}}
	}
	segments := make([]transcript.Segment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		segments = append(segments, transcript.Segment{Start: s.Start, End: s.End, Text: s.Text})
	}
	return segments
}
