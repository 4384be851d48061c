package pipeline

import "errors"

// Request errors. The HTTP layer maps each one to a status code and message.
var (
	ErrMissingURL      = errors.New("no URL provided")
	ErrMissingMethod   = errors.New("transcriptionMethod is required")
	ErrInvalidMethod   = errors.New("invalid transcription method")
	ErrInvalidVideoID  = errors.New("could not extract video ID from URL")
	ErrDetails         = errors.New("failed to retrieve video details")
	ErrDownload        = errors.New("failed to download audio")
	ErrCaptions        = errors.New("failed to fetch transcript from YouTube API")
	ErrPromptRendering = errors.New("failed to generate prompt")
	ErrLLM             = errors.New("failed to process prompt with LLM")
)
