// Package api provides the HTTP handlers for the transcription service.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"

	"youtube-transcription-service/internal/history"
	"youtube-transcription-service/internal/llm"
	"youtube-transcription-service/internal/logger"
	"youtube-transcription-service/internal/metrics"
	"youtube-transcription-service/internal/pipeline"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Processor runs a transcription request.
type Processor interface {
	Process(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// HistoryReader serves recorded prompts.
type HistoryReader interface {
	List(ctx context.Context, limit int) ([]history.Entry, error)
	Get(ctx context.Context, id string) (*history.Entry, error)
}

// TranscribeResponse is the body of a successful /transcribe call.
// Exactly one of Prompt and Response is set.
type TranscribeResponse struct {
	Prompt    string `json:"prompt,omitempty"`
	Response  string `json:"response,omitempty"`
	Cached    bool   `json:"cached"`
	HistoryID string `json:"historyId,omitempty"`
}

// Handler holds dependencies for the HTTP handlers.
type Handler struct {
	Pipeline Processor
	// History is nil when HISTORY_DB=off.
	History HistoryReader
}

// NewHandler creates a new Handler with its dependencies.
func NewHandler(p Processor, h HistoryReader) *Handler {
	return &Handler{Pipeline: p, History: h}
}

func (h *Handler) HandleTranscribe(w http.ResponseWriter, r *http.Request) {
	slog.Info("Received transcription request", "remote", r.RemoteAddr)

	var req pipeline.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	res, err := h.Pipeline.Process(r.Context(), req)
	if err != nil {
		code, msg := statusFor(err)
		if errors.Is(r.Context().Err(), context.DeadlineExceeded) {
			code, msg = http.StatusGatewayTimeout, "Request timeout"
		}
		if code >= 500 {
			logger.LogError("Transcription request for %s failed: %v", req.URL, err)
		} else {
			slog.Warn("Rejected transcription request", "url", req.URL, "error", err)
		}
		h.respondWithError(w, code, msg)
		return
	}

	h.respondJSON(w, http.StatusOK, TranscribeResponse{
		Prompt:    res.Prompt,
		Response:  res.Response,
		Cached:    res.Cached,
		HistoryID: res.HistoryID,
	})
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (h *Handler) HandleHistoryList(w http.ResponseWriter, r *http.Request) {
	if h.History == nil {
		h.respondWithError(w, http.StatusNotFound, "History is disabled")
		return
	}
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			h.respondWithError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := h.History.List(r.Context(), limit)
	if err != nil {
		logger.LogError("Failed to list history: %v", err)
		h.respondWithError(w, http.StatusInternalServerError, "Failed to list history")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

func (h *Handler) HandleHistoryGet(w http.ResponseWriter, r *http.Request) {
	if h.History == nil {
		h.respondWithError(w, http.StatusNotFound, "History is disabled")
		return
	}
	id := chi.URLParam(r, "id")
	entry, err := h.History.Get(r.Context(), id)
	if errors.Is(err, history.ErrNotFound) {
		h.respondWithError(w, http.StatusNotFound, "History entry not found")
		return
	}
	if err != nil {
		logger.LogError("Failed to load history entry %s: %v", id, err)
		h.respondWithError(w, http.StatusInternalServerError, "Failed to load history entry")
		return
	}
	h.respondJSON(w, http.StatusOK, entry)
}

// statusFor maps pipeline errors to the status code and message sent to the client.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, pipeline.ErrMissingURL):
		return http.StatusBadRequest, "No URL provided"
	case errors.Is(err, pipeline.ErrMissingMethod):
		return http.StatusBadRequest, "transcriptionMethod is required"
	case errors.Is(err, pipeline.ErrInvalidMethod):
		return http.StatusBadRequest, "Invalid transcription method"
	case errors.Is(err, pipeline.ErrInvalidVideoID):
		return http.StatusBadRequest, "Could not extract video ID from URL"
	case errors.Is(err, llm.ErrUnknownRunner):
		return http.StatusBadRequest, "Unknown LLM runner"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Request timeout"
	case errors.Is(err, pipeline.ErrDetails):
		return http.StatusInternalServerError, "Failed to retrieve video details"
	case errors.Is(err, pipeline.ErrDownload):
		return http.StatusInternalServerError, "Failed to download audio"
	case errors.Is(err, pipeline.ErrCaptions):
		return http.StatusInternalServerError, "Failed to fetch transcript from YouTube API"
	case errors.Is(err, pipeline.ErrPromptRendering):
		return http.StatusInternalServerError, "Failed to generate prompt"
	case errors.Is(err, pipeline.ErrLLM):
		return http.StatusBadGateway, "Failed to process prompt with LLM"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func (h *Handler) respondJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func (h *Handler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondJSON(w, code, map[string]string{"error": message})
}

// countStatus records the /transcribe outcome.
func countStatus(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(sw, r)
		metrics.RequestsTotal.WithLabelValues(strconv.Itoa(sw.statusCode)).Inc()
	})
}
