// Package pipeline turns a YouTube URL into a summarization prompt and,
// on request, a model's answer to it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"youtube-transcription-service/internal/cache"
	"youtube-transcription-service/internal/history"
	"youtube-transcription-service/internal/llm"
	"youtube-transcription-service/internal/logger"
	"youtube-transcription-service/internal/metrics"
	"youtube-transcription-service/internal/prompt"
	"youtube-transcription-service/internal/transcript"
	"youtube-transcription-service/internal/whisper"
	"youtube-transcription-service/internal/youtube"
)

const (
	MethodYouTube = "youtube"
	MethodWhisper = "whisper"
)

type DetailsFetcher interface {
	FetchDetails(ctx context.Context, videoID string) (*youtube.VideoDetails, error)
}

type CaptionFetcher interface {
	FetchCaptions(ctx context.Context, videoID, lang string) ([]transcript.Segment, error)
}

type AudioDownloader interface {
	Download(ctx context.Context, videoURL string) (string, error)
}

type HistoryRecorder interface {
	Record(ctx context.Context, e history.Entry) (string, error)
}

// JobQueue serializes GPU-bound work.
type JobQueue interface {
	Submit(ctx context.Context, name string, fn func(ctx context.Context) error) error
}

// Request is one /transcribe call.
type Request struct {
	URL                 string `json:"url"`
	TranscriptionMethod string `json:"transcriptionMethod"`
	WhisperModel        string `json:"whisperModel,omitempty"`
	ProcessLocally      bool   `json:"processLocally,omitempty"`
	LLMRunner           string `json:"llmRunner,omitempty"`
}

// Result carries either the prompt or the model response.
type Result struct {
	Prompt    string
	Response  string
	Cached    bool
	HistoryID string
}

// Service wires the pipeline stages together. History and Transcripts may be nil.
type Service struct {
	Details     DetailsFetcher
	Captions    CaptionFetcher
	Downloader  AudioDownloader
	Transcriber whisper.Transcriber
	Responses   cache.ResponseCache
	Transcripts *cache.TranscriptCache
	History     HistoryRecorder
	Runners     *llm.Registry
	Queue       JobQueue

	DefaultModel    string
	CopyToClipboard bool
}

// ParseMethod validates the transcription method. The browser extension
// encodes the whisper model into the method as "whisper:<model>".
func ParseMethod(method, model string) (string, string, error) {
	method = strings.TrimSpace(method)
	if method == "" {
		return "", "", ErrMissingMethod
	}
	name, suffix, found := strings.Cut(method, ":")
	name = strings.ToLower(name)
	switch {
	case name == MethodYouTube && !found:
		return MethodYouTube, "", nil
	case name == MethodWhisper:
		if found && suffix != "" {
			model = suffix
		}
		return MethodWhisper, strings.TrimSpace(model), nil
	}
	return "", "", fmt.Errorf("%w: %s", ErrInvalidMethod, method)
}

// Process runs the whole pipeline for req.
func (s *Service) Process(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.URL) == "" {
		return nil, ErrMissingURL
	}
	method, model, err := ParseMethod(req.TranscriptionMethod, req.WhisperModel)
	if err != nil {
		return nil, err
	}
	if method == MethodWhisper && model == "" {
		model = s.DefaultModel
	}

	log.Printf("Processing video URL: %s (method=%s, model=%s, processLocally=%t)", req.URL, method, model, req.ProcessLocally)

	// A repeated URL returns the stored prompt, even when a local answer was asked for.
	last, ok := s.Responses.Last(ctx)
	hit := ok && last.URL == req.URL
	metrics.CacheResult("response", hit)
	if hit {
		log.Printf("Returning cached response for %s", req.URL)
		return &Result{Prompt: last.Prompt, Cached: true}, nil
	}

	var runner llm.Runner
	if req.ProcessLocally {
		if runner, err = s.Runners.Get(req.LLMRunner); err != nil {
			return nil, err
		}
	}

	videoID := youtube.ExtractVideoID(req.URL)
	if videoID == "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidVideoID, req.URL)
	}

	start := time.Now()
	details, err := s.Details.FetchDetails(ctx, videoID)
	metrics.ObserveStage("details", start, err)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDetails, err)
	}

	text, err := s.transcript(ctx, req.URL, videoID, method, model, details.Language)
	if err != nil {
		return nil, err
	}

	p, err := prompt.Build(prompt.Data{
		Channel:     details.Channel,
		Title:       details.Title,
		Views:       details.Views,
		Likes:       details.Likes,
		Description: details.Description,
		VideoURL:    req.URL,
		Transcript:  text,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPromptRendering, err)
	}
	if s.CopyToClipboard {
		prompt.CopyToClipboard(p)
	}

	log.Printf("Updating cache with new response for %s", req.URL)
	s.Responses.Store(ctx, cache.Entry{URL: req.URL, Prompt: p})

	result := &Result{Prompt: p}
	if runner != nil {
		response, err := s.generate(ctx, runner, p)
		if err != nil {
			return nil, err
		}
		result.Prompt, result.Response = "", response
	}

	if s.History != nil {
		entry := history.Entry{
			URL: req.URL, VideoID: videoID, Title: details.Title, Channel: details.Channel,
			Method: method, Model: model, Prompt: p, Response: result.Response,
		}
		if runner != nil {
			entry.Runner = runner.Name()
		}
		id, err := s.History.Record(ctx, entry)
		if err != nil {
			logger.LogError("Failed to record history for %s: %v", videoID, err)
		}
		result.HistoryID = id
	}
	return result, nil
}

func (s *Service) transcript(ctx context.Context, videoURL, videoID, method, model, lang string) (string, error) {
	key := cache.TranscriptKey(videoID, method, model)
	if s.Transcripts != nil {
		text, ok := s.Transcripts.Get(key)
		metrics.CacheResult("transcript", ok)
		if ok {
			log.Printf("Using cached transcript for %s", videoID)
			return text, nil
		}
	}

	var text string
	switch method {
	case MethodYouTube:
		start := time.Now()
		segments, err := s.Captions.FetchCaptions(ctx, videoID, lang)
		metrics.ObserveStage("captions", start, err)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrCaptions, err)
		}
		text = transcript.Format(segments)

	case MethodWhisper:
		segments, err := s.transcribe(ctx, videoURL, videoID, model, lang)
		if err != nil {
			return "", err
		}
		if segments == nil {
			// Transcription failed; the prompt says so and nothing is cached.
			return "", nil
		}
		text = transcript.Format(segments)
	}

	if s.Transcripts != nil && text != "" {
		s.Transcripts.Set(key, text)
	}
	return text, nil
}

// transcribe downloads the audio and runs speech-to-text on the GPU queue.
// Only a failed download is an error; a failed transcription returns nil segments.
func (s *Service) transcribe(ctx context.Context, videoURL, videoID, model, lang string) ([]transcript.Segment, error) {
	start := time.Now()
	audioPath, err := s.Downloader.Download(ctx, youtube.WatchURL(videoID))
	metrics.ObserveStage("download", start, err)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDownload, err)
	}
	defer func() {
		log.Printf("Removing temporary audio file %s", audioPath)
		if err := os.Remove(audioPath); err != nil {
			logger.LogError("Error removing temporary file: %v", err)
		}
	}()

	var segments []transcript.Segment
	err = s.Queue.Submit(ctx, "transcribe "+videoID, func(ctx context.Context) error {
		start := time.Now()
		var err error
		segments, err = s.Transcriber.Transcribe(ctx, audioPath, whisper.Options{Model: model, Language: lang})
		metrics.ObserveStage("transcribe", start, err)
		return err
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		logger.LogError("Transcription of %s failed: %v", videoURL, err)
		return nil, nil
	}
	slog.Info("Transcription finished", "video_id", videoID, "segments", len(segments))
	return segments, nil
}

func (s *Service) generate(ctx context.Context, runner llm.Runner, p string) (string, error) {
	log.Printf("Processing prompt with %s runner", runner.Name())
	var response string
	run := func(ctx context.Context) error {
		start := time.Now()
		var err error
		response, err = runner.Generate(ctx, p)
		metrics.ObserveStage("llm", start, err)
		return err
	}

	var err error
	if llm.NeedsGPU(runner) {
		err = s.Queue.Submit(ctx, "llm "+runner.Name(), run)
	} else {
		err = run(ctx)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrLLM, err)
	}
	return response, nil
}
