package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"youtube-transcription-service/internal/api"
	"youtube-transcription-service/internal/browser"
	"youtube-transcription-service/internal/cache"
	"youtube-transcription-service/internal/config"
	"youtube-transcription-service/internal/history"
	"youtube-transcription-service/internal/llm"
	"youtube-transcription-service/internal/logger"
	"youtube-transcription-service/internal/pipeline"
	"youtube-transcription-service/internal/utils"
	"youtube-transcription-service/internal/whisper"
	"youtube-transcription-service/internal/worker"
	"youtube-transcription-service/internal/youtube"
)

// gpuQueueSize bounds how many GPU jobs may wait behind the running ones.
const gpuQueueSize = 16

// app is the wired pipeline plus everything that must be released on exit.
type app struct {
	cfg      *config.AppConfig
	pipeline *pipeline.Service
	history  *history.Store
	closers  []func()
}

// startup loads configuration and logging, shared by every command.
func startup(console bool) (*config.AppConfig, io.Closer, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logFile, err := logger.Setup(cfg.LogFile, cfg.LogLevel, console)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logFile, nil
}

func newApp(ctx context.Context, cfg *config.AppConfig) (*app, error) {
	a := &app{cfg: cfg}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	python := utils.ResolvePython(cfg.PythonPath, cfg.VenvDir())
	log.Println("Validating system dependencies...")
	if err := utils.ValidateSystemDependencies(python, cfg.YtDlpPath); err != nil {
		logger.LogError("System dependency validation failed: %v", err)
		log.Printf("Some features may not work correctly. Run the setup command or install the missing tools.")
	} else {
		log.Printf("System dependencies validated successfully (Python: %s)", python)
	}

	details, err := youtube.NewDetailsClient(ctx, cfg.YouTubeAPIKey, youtube.NewScrapers(cfg.MetadataFallback)...)
	if err != nil {
		return nil, err
	}
	captions, err := youtube.NewCaptionClient(cfg.TranscriptOrder, python, cfg.ScriptsDir())
	if err != nil {
		return nil, err
	}

	transcriber, err := whisper.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s engine: %w", cfg.WhisperEngine, err)
	}
	a.closers = append(a.closers, transcriber.Close)

	responses, err := cache.NewResponseCache(ctx, cfg.CacheBackend, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, err
	}
	if c, ok := responses.(io.Closer); ok {
		a.closers = append(a.closers, func() { c.Close() })
	}

	var recorder pipeline.HistoryRecorder
	if cfg.HistoryEnabled() {
		store, err := history.Open(cfg.HistoryDB)
		if err != nil {
			return nil, err
		}
		a.history = store
		recorder = store
		a.closers = append(a.closers, func() { store.Close() })
	}

	browserPool := browser.NewPool(browser.Options{
		Headless:    cfg.BrowserHeadless,
		UserDataDir: cfg.BrowserProfileDir,
		Size:        1,
	})
	a.closers = append(a.closers, browserPool.Cleanup)

	runners, err := llm.NewRegistry(cfg, browserPool)
	if err != nil {
		return nil, err
	}

	queue := worker.NewWorkerPool(cfg.GPUWorkers, gpuQueueSize)
	queue.Start()
	a.closers = append(a.closers, queue.Stop)

	a.pipeline = &pipeline.Service{
		Details:         details,
		Captions:        captions,
		Downloader:      youtube.NewDownloader(cfg.YtDlpPath, cfg.TempDir()),
		Transcriber:     transcriber,
		Responses:       responses,
		Transcripts:     cache.NewTranscriptCache(time.Hour),
		History:         recorder,
		Runners:         runners,
		Queue:           queue,
		DefaultModel:    cfg.WhisperModel,
		CopyToClipboard: cfg.CopyToClipboard,
	}

	log.Printf("Pipeline ready (engine=%s, runners=%v, cache=%s, history=%t)",
		transcriber.Name(), runners.Names(), cfg.CacheBackend, cfg.HistoryEnabled())
	ok = true
	return a, nil
}

// warm loads the default whisper model in the background, like the
// service always did at startup.
func (a *app) warm(ctx context.Context) {
	wx, ok := a.pipeline.Transcriber.(*whisper.WhisperX)
	if !ok {
		return
	}
	go func() {
		log.Printf("Loading whisper model %s", a.cfg.WhisperModel)
		if err := wx.Warm(ctx, a.cfg.WhisperModel); err != nil {
			logger.LogError("Failed to preload whisper model %s: %v", a.cfg.WhisperModel, err)
		}
	}()
}

func (a *app) handler() http.Handler {
	var reader api.HistoryReader
	if a.history != nil {
		reader = a.history
	}
	return api.NewRouter(api.NewHandler(a.pipeline, reader), a.cfg.CORSOrigins, a.cfg.RequestTimeout)
}

// Close releases resources in reverse order of creation.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// runServer serves until ctx is cancelled, then shuts down within shutdownTimeout.
func runServer(ctx context.Context, cfg *config.AppConfig, shutdownTimeout time.Duration) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	a.warm(ctx)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      a.handler(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s", cfg.Addr())
		log.Printf("API will be accessible at http://%s:%d", utils.GetLocalIP(), cfg.GetPort())
		log.Printf("Available endpoints:")
		log.Printf("  POST /transcribe   - Build a summary prompt (or answer) for a YouTube URL")
		log.Printf("  GET  /history      - Recently generated prompts")
		log.Printf("  GET  /history/{id} - One generated prompt and response")
		log.Printf("  GET  /health       - Health check endpoint")
		log.Printf("  GET  /metrics      - Prometheus metrics")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.LogError("Server forced to shutdown: %v", err)
		return err
	}
	log.Println("Server exited gracefully")
	return nil
}
