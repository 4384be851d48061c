package config

import (
	"os"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATA_DIR", t.TempDir())
	unsetEnv(t, "LOG_FILE", "HISTORY_DB")
	t.Setenv("PORT", "5000")
	t.Setenv("HOST", "0.0.0.0")
	t.Setenv("WHISPER_ENGINE", "whisperx")
	t.Setenv("LLM_RUNNER", "local")
	t.Setenv("CACHE_BACKEND", "memory")
	t.Setenv("TRANSCRIPT_ORDER", "innertube,ytapi")
	t.Setenv("REQUEST_TIMEOUT", "10m")
	t.Setenv("GPU_WORKERS", "1")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.GetPort() != 5000 {
		t.Errorf("GetPort() = %d, want 5000", cfg.GetPort())
	}
	if cfg.Addr() != "0.0.0.0:5000" {
		t.Errorf("Addr() = %q", cfg.Addr())
	}
	if cfg.RequestTimeout != 10*time.Minute {
		t.Errorf("RequestTimeout = %s, want 10m", cfg.RequestTimeout)
	}
	if !strings.HasSuffix(cfg.LogFile, "youtube_transcription_service.log") {
		t.Errorf("LogFile = %q", cfg.LogFile)
	}
	if !cfg.HistoryEnabled() {
		t.Error("history should be enabled by default")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *AppConfig {
		return &AppConfig{
			Port:           "5000",
			WhisperEngine:  "whisperx",
			LLMRunner:      "local",
			CacheBackend:   "memory",
			GPUWorkers:     1,
			RequestTimeout: time.Minute,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *AppConfig)
		wantErr string
	}{
		{"valid", func(c *AppConfig) {}, ""},
		{"bad port", func(c *AppConfig) { c.Port = "abc" }, "invalid port"},
		{"bad engine", func(c *AppConfig) { c.WhisperEngine = "vosk" }, "invalid whisper engine"},
		{"bad runner", func(c *AppConfig) { c.LLMRunner = "ollama" }, "invalid LLM runner"},
		{"bad cache", func(c *AppConfig) { c.CacheBackend = "memcached" }, "invalid cache backend"},
		{"no workers", func(c *AppConfig) { c.GPUWorkers = 0 }, "GPU_WORKERS"},
		{"no timeout", func(c *AppConfig) { c.RequestTimeout = 0 }, "REQUEST_TIMEOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" key1, ,key2,")
	want := []string{"key1", "key2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitList() = %v, want %v", got, want)
	}
	if splitList("") != nil {
		t.Error("splitList(\"\") should be nil")
	}
}

func TestGetHelpersFallBackOnGarbage(t *testing.T) {
	t.Setenv("TEST_INT", "many")
	t.Setenv("TEST_BOOL", "perhaps")
	t.Setenv("TEST_DURATION", "soon")

	if got := getInt("TEST_INT", 3); got != 3 {
		t.Errorf("getInt() = %d, want 3", got)
	}
	if got := getBool("TEST_BOOL", true); !got {
		t.Error("getBool() should fall back to true")
	}
	if got := getDuration("TEST_DURATION", time.Second); got != time.Second {
		t.Errorf("getDuration() = %s, want 1s", got)
	}
}

func TestHistoryDisabled(t *testing.T) {
	c := &AppConfig{HistoryDB: "off"}
	if c.HistoryEnabled() {
		t.Error("HISTORY_DB=off should disable history")
	}
}

// unsetEnv removes keys for the duration of the test; t.Setenv restores them afterwards.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}
