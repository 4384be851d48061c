package youtube

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	ytdl "github.com/kkdai/youtube/v2"

	"youtube-transcription-service/internal/transcript"
	"youtube-transcription-service/internal/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

//go:embed scripts/captions.py
var captionsScript []byte

type captionSource func(ctx context.Context, videoID, lang string) ([]transcript.Segment, error)

// CaptionClient fetches published captions, trying sources in the configured order.
type CaptionClient struct {
	order   []string
	sources map[string]captionSource
}

// NewCaptionClient creates a CaptionClient. order is a comma-separated list of
// "innertube" (native Go client) and "ytapi" (python youtube_transcript_api).
func NewCaptionClient(order, pythonCmd, scriptsDir string) (*CaptionClient, error) {
	scriptPath, err := utils.WriteScript(scriptsDir, "captions.py", captionsScript)
	if err != nil {
		return nil, err
	}

	innertube := &ytdl.Client{}
	c := &CaptionClient{
		sources: map[string]captionSource{
			"innertube": func(ctx context.Context, videoID, lang string) ([]transcript.Segment, error) {
				return fetchInnertube(ctx, innertube, videoID, lang)
			},
			"ytapi": func(ctx context.Context, videoID, lang string) ([]transcript.Segment, error) {
				return fetchYTAPI(ctx, pythonCmd, scriptPath, videoID, lang)
			},
		},
	}
	c.order = c.parseOrder(order)
	return c, nil
}

func (c *CaptionClient) parseOrder(order string) []string {
	var methods []string
	for _, m := range strings.Split(order, ",") {
		m = strings.TrimSpace(strings.ToLower(m))
		switch m {
		case "youtube_api", "youtubeapi":
			m = "ytapi"
		case "kkdai", "native":
			m = "innertube"
		}
		if _, ok := c.sources[m]; ok {
			methods = append(methods, m)
		}
	}
	return methods
}

// FetchCaptions returns caption segments labelled SPEAKER_00.
// When a source reports that captions are disabled, the remaining sources are skipped.
func (c *CaptionClient) FetchCaptions(ctx context.Context, videoID, lang string) ([]transcript.Segment, error) {
	log.Printf("Configured caption order: %s for %s", strings.Join(c.order, ","), videoID)

	var errs []string
	for _, m := range c.order {
		log.Printf("Attempting caption extraction using %s for %s", m, videoID)
		segments, err := c.sources[m](ctx, videoID, lang)
		if err == nil && transcript.HasText(segments) {
			log.Printf("Fetched %d caption segments using %s for %s", len(segments), m, videoID)
			return transcript.WithSpeaker(segments, transcript.DefaultSpeaker), nil
		}
		if err == nil {
			err = errors.New("transcript is empty")
		}
		log.Printf("Failed to extract captions using %s for %s: %v", m, videoID, err)
		errs = append(errs, m+": "+err.Error())
		if errors.Is(err, ErrTranscriptsDisabled) {
			return nil, fmt.Errorf("%w: %w", ErrNoTranscript, err)
		}
		if ctx.Err() != nil {
			break
		}
	}

	if len(errs) == 0 {
		return nil, fmt.Errorf("%w: no caption sources configured", ErrNoTranscript)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("%w: %w: %s", ErrNoTranscript, ctxErr, strings.Join(errs, "; "))
	}
	return nil, fmt.Errorf("%w: %s", ErrNoTranscript, strings.Join(errs, "; "))
}

func fetchInnertube(ctx context.Context, client *ytdl.Client, videoID, lang string) ([]transcript.Segment, error) {
	video, err := client.GetVideoContext(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("get video: %w", err)
	}

	tr, err := client.GetTranscriptCtx(ctx, video, lang)
	if err != nil && lang != "en" && !errors.Is(err, ytdl.ErrTranscriptDisabled) {
		tr, err = client.GetTranscriptCtx(ctx, video, "en")
	}
	if errors.Is(err, ytdl.ErrTranscriptDisabled) {
		return nil, ErrTranscriptsDisabled
	}
	if err != nil {
		return nil, fmt.Errorf("get transcript: %w", err)
	}
	return segmentsFromInnertube(tr), nil
}

func segmentsFromInnertube(tr ytdl.VideoTranscript) []transcript.Segment {
	segments := make([]transcript.Segment, 0, len(tr))
	for _, s := range tr {
		start := float64(s.StartMs) / 1000
		segments = append(segments, transcript.Segment{
			Start: start,
			End:   start + float64(s.Duration)/1000,
			Text:  s.Text,
		})
	}
	return segments
}

func fetchYTAPI(ctx context.Context, pythonCmd, scriptPath, videoID, lang string) ([]transcript.Segment, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, pythonCmd, scriptPath, videoID, lang)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("youtube_transcript_api command failed: %w; stderr: %s", err, strings.TrimSpace(stderr.String()))
	}
	return parseYTAPIOutput(output)
}

// parseYTAPIOutput decodes the captions.py output.
func parseYTAPIOutput(output []byte) ([]transcript.Segment, error) {
	output = bytes.TrimSpace(output)

	if bytes.HasPrefix(output, []byte("{")) {
		var errorResp struct {
			Error string `json:"error"`
			Kind  string `json:"kind"`
		}
		if err := json.Unmarshal(output, &errorResp); err != nil {
			return nil, fmt.Errorf("failed to parse error json: %w", err)
		}
		if errorResp.Kind == "disabled" {
			return nil, ErrTranscriptsDisabled
		}
		return nil, fmt.Errorf("youtube_transcript_api error: %s", errorResp.Error)
	}

	var entries []struct {
		Text     string  `json:"text"`
		Start    float64 `json:"start"`
		Duration float64 `json:"duration"`
	}
	if err := json.Unmarshal(output, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse transcript json: %w; output: %.200s", err, output)
	}

	segments := make([]transcript.Segment, 0, len(entries))
	for _, e := range entries {
		segments = append(segments, transcript.Segment{Start: e.Start, End: e.Start + e.Duration, Text: e.Text})
	}
	return segments, nil
}
