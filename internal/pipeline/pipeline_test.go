package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"youtube-transcription-service/internal/cache"
	"youtube-transcription-service/internal/history"
	"youtube-transcription-service/internal/llm"
	"youtube-transcription-service/internal/transcript"
	"youtube-transcription-service/internal/whisper"
	"youtube-transcription-service/internal/worker"
	"youtube-transcription-service/internal/youtube"
)

const testURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

type fakeDetails struct {
	err   error
	calls int
}

func (f *fakeDetails) FetchDetails(ctx context.Context, videoID string) (*youtube.VideoDetails, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &youtube.VideoDetails{
		Channel: "Rick Astley", Title: "Never Gonna Give You Up", Views: "1500000000",
		Description: "The official video", Language: "en",
	}, nil
}

type fakeCaptions struct {
	err   error
	calls int
	lang  string
}

func (f *fakeCaptions) FetchCaptions(ctx context.Context, videoID, lang string) ([]transcript.Segment, error) {
	f.calls++
	f.lang = lang
	if f.err != nil {
		return nil, f.err
	}
	return []transcript.Segment{{Start: 0, End: 3.5, Speaker: transcript.DefaultSpeaker, Text: "We're no strangers to love"}}, nil
}

type fakeDownloader struct {
	dir   string
	err   error
	path  string
	calls int
}

func (f *fakeDownloader) Download(ctx context.Context, videoURL string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	f.path = filepath.Join(f.dir, "audio.wav")
	return f.path, os.WriteFile(f.path, []byte("RIFF"), 0o644)
}

type fakeTranscriber struct {
	mu    sync.Mutex
	err   error
	model string
}

func (f *fakeTranscriber) Name() string { return "fake" }
func (f *fakeTranscriber) Close()       {}
func (f *fakeTranscriber) Transcribe(ctx context.Context, audioPath string, opts whisper.Options) ([]transcript.Segment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.model = opts.Model
	if f.err != nil {
		return nil, f.err
	}
	return []transcript.Segment{{Start: 61, End: 65, Speaker: "SPEAKER_01", Text: "You know the rules"}}, nil
}

type fakeRunner struct {
	name  string
	err   error
	calls int
}

func (f *fakeRunner) Name() string { return f.name }
func (f *fakeRunner) Generate(ctx context.Context, prompt string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "summary", nil
}

type fixture struct {
	svc         *Service
	details     *fakeDetails
	captions    *fakeCaptions
	downloader  *fakeDownloader
	transcriber *fakeTranscriber
	runner      *fakeRunner
	history     *history.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	pool := worker.NewWorkerPool(1, 4)
	pool.Start()
	t.Cleanup(pool.Stop)

	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	f := &fixture{
		details:     &fakeDetails{},
		captions:    &fakeCaptions{},
		downloader:  &fakeDownloader{dir: t.TempDir()},
		transcriber: &fakeTranscriber{},
		runner:      &fakeRunner{name: "openai"},
		history:     store,
	}
	f.svc = &Service{
		Details:      f.details,
		Captions:     f.captions,
		Downloader:   f.downloader,
		Transcriber:  f.transcriber,
		Responses:    cache.NewMemoryCache(),
		Transcripts:  cache.NewTranscriptCache(time.Hour),
		History:      store,
		Runners:      llm.NewRegistryWith(f.runner),
		Queue:        pool,
		DefaultModel: "base",
	}
	return f
}

func TestParseMethod(t *testing.T) {
	tests := []struct {
		method, model     string
		wantMethod, wantM string
		wantErr           error
	}{
		{"youtube", "", MethodYouTube, "", nil},
		{"YouTube", "large", MethodYouTube, "", nil},
		{"whisper", "small", MethodWhisper, "small", nil},
		{"whisper:large-v2", "", MethodWhisper, "large-v2", nil},
		{"whisper:", "medium", MethodWhisper, "medium", nil},
		{"", "", "", "", ErrMissingMethod},
		{"vosk", "", "", "", ErrInvalidMethod},
		{"youtube:auto", "", "", "", ErrInvalidMethod},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			m, model, err := ParseMethod(tt.method, tt.model)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ParseMethod() error = %v, want %v", err, tt.wantErr)
			}
			if m != tt.wantMethod || model != tt.wantM {
				t.Errorf("ParseMethod() = %q, %q; want %q, %q", m, model, tt.wantMethod, tt.wantM)
			}
		})
	}
}

func TestProcessYouTubeCaptions(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Process(context.Background(), Request{URL: testURL, TranscriptionMethod: "youtube"})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if res.Cached || res.Response != "" {
		t.Errorf("unexpected result flags: %+v", res)
	}
	for _, want := range []string{
		"Channel name: Rick Astley",
		"Likes count: Unknown",
		"[00:00:00 - 00:00:03] SPEAKER_00: We're no strangers to love",
		"Video URL: " + testURL,
	} {
		if !strings.Contains(res.Prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if f.captions.lang != "en" {
		t.Errorf("captions requested in %q", f.captions.lang)
	}

	entry, err := f.history.Get(context.Background(), res.HistoryID)
	if err != nil {
		t.Fatalf("history Get() error = %v", err)
	}
	if entry.Method != MethodYouTube || entry.Prompt != res.Prompt {
		t.Errorf("history entry = %+v", entry)
	}
}

func TestProcessReturnsCachedPromptForSameURL(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, err := f.svc.Process(ctx, Request{URL: testURL, TranscriptionMethod: "youtube"})
	if err != nil {
		t.Fatal(err)
	}

	second, err := f.svc.Process(ctx, Request{URL: testURL, TranscriptionMethod: "whisper", ProcessLocally: true})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if !second.Cached || second.Prompt != first.Prompt {
		t.Errorf("expected cached prompt, got %+v", second)
	}
	if f.details.calls != 1 || f.runner.calls != 0 {
		t.Errorf("cached request did work: details=%d runner=%d", f.details.calls, f.runner.calls)
	}
}

func TestProcessSlotHoldsOnlyLastURL(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := "https://youtu.be/9bZkp7q19f0"

	for _, u := range []string{testURL, other, testURL} {
		res, err := f.svc.Process(ctx, Request{URL: u, TranscriptionMethod: "youtube"})
		if err != nil {
			t.Fatal(err)
		}
		if res.Cached {
			t.Errorf("%s should not be cached", u)
		}
	}
	// The third call fetched details again, but captions came from the transcript cache.
	if f.details.calls != 3 || f.captions.calls != 2 {
		t.Errorf("details=%d captions=%d, want 3 and 2", f.details.calls, f.captions.calls)
	}
}

func TestProcessWhisper(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Process(context.Background(), Request{URL: testURL, TranscriptionMethod: "whisper:small"})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if !strings.Contains(res.Prompt, "[00:01:01 - 00:01:05] SPEAKER_01: You know the rules") {
		t.Errorf("prompt missing whisper transcript:\n%s", res.Prompt)
	}
	if f.transcriber.model != "small" {
		t.Errorf("transcribed with model %q", f.transcriber.model)
	}
	if _, err := os.Stat(f.downloader.path); !os.IsNotExist(err) {
		t.Errorf("temporary audio not removed: %v", err)
	}
}

func TestProcessWhisperDefaultModel(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Process(context.Background(), Request{URL: testURL, TranscriptionMethod: "whisper"}); err != nil {
		t.Fatal(err)
	}
	if f.transcriber.model != "base" {
		t.Errorf("model = %q, want base", f.transcriber.model)
	}
}

func TestProcessTranscriptionFailureStillBuildsPrompt(t *testing.T) {
	f := newFixture(t)
	f.transcriber.err = errors.New("CUDA out of memory")

	res, err := f.svc.Process(context.Background(), Request{URL: testURL, TranscriptionMethod: "whisper"})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if !strings.Contains(res.Prompt, "Transcript: \nTranscription failed") {
		t.Errorf("prompt should mark transcription failure:\n%s", res.Prompt)
	}
	if _, err := os.Stat(f.downloader.path); !os.IsNotExist(err) {
		t.Error("temporary audio not removed after failure")
	}
}

func TestProcessLocally(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Process(context.Background(), Request{URL: testURL, TranscriptionMethod: "youtube", ProcessLocally: true})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if res.Response != "summary" || res.Prompt != "" || res.Cached {
		t.Errorf("Process() = %+v", res)
	}

	// The prompt is cached before the LLM ran.
	last, ok := f.svc.Responses.Last(context.Background())
	if !ok || last.URL != testURL || !strings.Contains(last.Prompt, "Rick Astley") {
		t.Errorf("cache slot = %+v, %t", last, ok)
	}

	entry, err := f.history.Get(context.Background(), res.HistoryID)
	if err != nil {
		t.Fatal(err)
	}
	if entry.Runner != "openai" || entry.Response != "summary" {
		t.Errorf("history entry = %+v", entry)
	}
}

func TestProcessErrors(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		setup   func(f *fixture)
		wantErr error
	}{
		{"missing url", Request{TranscriptionMethod: "youtube"}, nil, ErrMissingURL},
		{"missing method", Request{URL: testURL}, nil, ErrMissingMethod},
		{"invalid method", Request{URL: testURL, TranscriptionMethod: "vosk"}, nil, ErrInvalidMethod},
		{"bad url", Request{URL: "https://example.com/video", TranscriptionMethod: "youtube"}, nil, ErrInvalidVideoID},
		{"details", Request{URL: testURL, TranscriptionMethod: "youtube"},
			func(f *fixture) { f.details.err = youtube.ErrNoDetails }, ErrDetails},
		{"captions", Request{URL: testURL, TranscriptionMethod: "youtube"},
			func(f *fixture) { f.captions.err = youtube.ErrNoTranscript }, ErrCaptions},
		{"download", Request{URL: testURL, TranscriptionMethod: "whisper"},
			func(f *fixture) { f.downloader.err = youtube.ErrDownloadFailed }, ErrDownload},
		{"unknown runner", Request{URL: testURL, TranscriptionMethod: "youtube", ProcessLocally: true, LLMRunner: "ollama"}, nil, llm.ErrUnknownRunner},
		{"llm", Request{URL: testURL, TranscriptionMethod: "youtube", ProcessLocally: true},
			func(f *fixture) { f.runner.err = errors.New("boom") }, ErrLLM},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.setup != nil {
				tt.setup(f)
			}
			_, err := f.svc.Process(context.Background(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Process() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestProcessCaptionErrorKeepsCause(t *testing.T) {
	f := newFixture(t)
	f.captions.err = youtube.ErrTranscriptsDisabled
	_, err := f.svc.Process(context.Background(), Request{URL: testURL, TranscriptionMethod: "youtube"})
	if !errors.Is(err, ErrCaptions) || !errors.Is(err, youtube.ErrTranscriptsDisabled) {
		t.Errorf("error = %v", err)
	}
}
