package youtube

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"youtube-transcription-service/internal/utils"
)

// killWaitDelay bounds how long Download waits for yt-dlp's output pipes
// after the context ends. ffmpeg children can hold them open.
const killWaitDelay = 2 * time.Second

// Downloader fetches the best audio stream of a video with yt-dlp and has
// ffmpeg convert it to 16 kHz mono WAV, the input format of the whisper models.
type Downloader struct {
	ytDlpPath string
	tempDir   string
}

// NewDownloader creates a Downloader writing into tempDir.
func NewDownloader(ytDlpPath, tempDir string) *Downloader {
	return &Downloader{ytDlpPath: ytDlpPath, tempDir: tempDir}
}

// Download saves the audio of videoURL under a random name and returns its path.
// The caller removes the file.
func (d *Downloader) Download(ctx context.Context, videoURL string) (string, error) {
	if err := os.MkdirAll(d.tempDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create temp directory: %w", err)
	}

	name := uuid.NewString()
	outTemplate := filepath.Join(d.tempDir, name+".%(ext)s")

	log.Printf("Downloading audio from URL: %s", videoURL)
	cmd := exec.CommandContext(ctx, d.ytDlpPath, d.args(videoURL, outTemplate)...)
	cmd.WaitDelay = killWaitDelay
	output := utils.NewLogWriter("yt-dlp")
	cmd.Stdout = output
	cmd.Stderr = output

	runErr := cmd.Run()
	output.Flush()

	matches, _ := filepath.Glob(filepath.Join(d.tempDir, name+".*"))
	audio := pickAudio(matches)
	if runErr != nil {
		removeAll(matches)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("%w: %w", ErrDownloadFailed, ctxErr)
		}
		return "", fmt.Errorf("%w: %v: %s", ErrDownloadFailed, runErr, output.Tail())
	}
	if audio == "" {
		removeAll(matches)
		return "", fmt.Errorf("%w: yt-dlp produced no file", ErrDownloadFailed)
	}
	return audio, nil
}

func (d *Downloader) args(videoURL, outTemplate string) []string {
	return []string{
		"--no-playlist",
		"--newline",
		"-f", "bestaudio/best",
		"-x",
		"--audio-format", "wav",
		"--audio-quality", "192K",
		"--postprocessor-args", "ffmpeg:-ar 16000 -ac 1",
		"-o", outTemplate,
		videoURL,
	}
}

// pickAudio prefers the converted .wav over leftovers of the original stream.
func pickAudio(paths []string) string {
	for _, p := range paths {
		if filepath.Ext(p) == ".wav" {
			return p
		}
	}
	if len(paths) > 0 {
		return paths[0]
	}
	return ""
}

func removeAll(paths []string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			log.Printf("Error removing temporary file %s: %v", p, err)
		}
	}
}
