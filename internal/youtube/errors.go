package youtube

import "errors"

var (
	// ErrNoDetails is returned when no source could describe the video.
	ErrNoDetails = errors.New("no video details found")
	// ErrNoTranscript is returned when every caption source failed.
	ErrNoTranscript = errors.New("no transcript available")
	// ErrTranscriptsDisabled is returned when the uploader disabled captions.
	ErrTranscriptsDisabled = errors.New("transcripts are disabled for this video")
	// ErrDownloadFailed is returned when yt-dlp produced no audio file.
	ErrDownloadFailed = errors.New("audio download failed")
)
