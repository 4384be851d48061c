package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ServiceDirName is the per-machine data directory name, shared with the Windows service.
const ServiceDirName = "YouTubeTranscriptionService"

// AppConfig holds all configuration for the application
type AppConfig struct {
	Host           string
	Port           string
	RequestTimeout time.Duration
	CORSOrigins    []string

	YouTubeAPIKey string
	HFAuthToken   string
	// Comma-separated order for caption sources: innertube, ytapi
	TranscriptOrder string
	// Comma-separated order for metadata scrapers used without an API key: colly, chromedp
	MetadataFallback string
	YtDlpPath        string
	PythonPath       string

	WhisperEngine string
	WhisperModel  string
	WhisperDevice string
	GPUWorkers    int

	LLMRunner      string
	LLMScript      string
	LlamaModelPath string
	GeminiAPIKeys  []string
	GeminiModel    string
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	OpenAIModel    string

	BrowserProvider   string
	ProvidersFile     string
	BrowserHeadless   bool
	BrowserProfileDir string

	CacheBackend  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	DataDir         string
	LogFile         string
	LogLevel        string
	HistoryDB       string
	CopyToClipboard bool
}

// LoadConfig loads configuration from .env files and environment variables
func LoadConfig() (*AppConfig, error) {
	// The service runs with the system directory as its working directory,
	// so the .env next to the executable is tried first.
	for _, path := range envFileCandidates() {
		if err := godotenv.Load(path); err == nil {
			fmt.Printf("Info: loaded environment from %s\n", path)
		}
	}

	dataDir := getEnv("DATA_DIR", defaultDataDir())

	config := &AppConfig{
		Host:              getEnv("HOST", "0.0.0.0"),
		Port:              getEnv("PORT", "5000"),
		RequestTimeout:    getDuration("REQUEST_TIMEOUT", 10*time.Minute),
		CORSOrigins:       splitList(getEnv("CORS_ORIGINS", "*")),
		YouTubeAPIKey:     os.Getenv("YOUTUBE_API_KEY"),
		HFAuthToken:       os.Getenv("HF_AUTH_TOKEN"),
		TranscriptOrder:   getEnv("TRANSCRIPT_ORDER", "innertube,ytapi"),
		MetadataFallback:  getEnv("METADATA_FALLBACK", "colly,chromedp"),
		YtDlpPath:         getEnv("YTDLP_PATH", "yt-dlp"),
		PythonPath:        os.Getenv("PYTHON_PATH"),
		WhisperEngine:     strings.ToLower(getEnv("WHISPER_ENGINE", "whisperx")),
		WhisperModel:      getEnv("WHISPER_MODEL", "base"),
		WhisperDevice:     getEnv("WHISPER_DEVICE", "auto"),
		GPUWorkers:        getInt("GPU_WORKERS", 1),
		LLMRunner:         strings.ToLower(getEnv("LLM_RUNNER", "local")),
		LLMScript:         os.Getenv("LLM_SCRIPT"),
		LlamaModelPath:    os.Getenv("LLAMA_MODEL_PATH"),
		GeminiAPIKeys:     splitList(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:     os.Getenv("OPENAI_BASE_URL"),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		BrowserProvider:   strings.ToLower(getEnv("BROWSER_PROVIDER", "chatgpt")),
		ProvidersFile:     os.Getenv("PROVIDERS_FILE"),
		BrowserHeadless:   getBool("BROWSER_HEADLESS", true),
		BrowserProfileDir: os.Getenv("BROWSER_PROFILE_DIR"),
		CacheBackend:      strings.ToLower(getEnv("CACHE_BACKEND", "memory")),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           getInt("REDIS_DB", 0),
		DataDir:           dataDir,
		LogFile:           getEnv("LOG_FILE", filepath.Join(dataDir, "youtube_transcription_service.log")),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		HistoryDB:         getEnv("HISTORY_DB", filepath.Join(dataDir, "history.db")),
		CopyToClipboard:   getBool("COPY_TO_CLIPBOARD", false),
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate checks that the configuration is valid
func (c *AppConfig) Validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("invalid port number: %s", c.Port)
	}

	validEngines := map[string]bool{"whisperx": true, "openai": true}
	if !validEngines[c.WhisperEngine] {
		return fmt.Errorf("invalid whisper engine: %s (must be 'whisperx' or 'openai')", c.WhisperEngine)
	}

	validRunners := map[string]bool{"local": true, "gemini": true, "openai": true, "browser": true}
	if !validRunners[c.LLMRunner] {
		return fmt.Errorf("invalid LLM runner: %s (must be 'local', 'gemini', 'openai' or 'browser')", c.LLMRunner)
	}

	validBackends := map[string]bool{"memory": true, "redis": true}
	if !validBackends[c.CacheBackend] {
		return fmt.Errorf("invalid cache backend: %s (must be 'memory' or 'redis')", c.CacheBackend)
	}

	if c.GPUWorkers < 1 {
		return fmt.Errorf("GPU_WORKERS must be at least 1, got %d", c.GPUWorkers)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}

	// Warn about missing optional configurations
	if c.YouTubeAPIKey == "" {
		fmt.Println("Warning: YOUTUBE_API_KEY not set - video details will be scraped from the watch page")
	}

	if c.HFAuthToken == "" && c.WhisperEngine == "whisperx" {
		fmt.Println("Warning: HF_AUTH_TOKEN not set - speaker diarization will be skipped")
	}

	if c.LLMRunner == "gemini" && len(c.GeminiAPIKeys) == 0 {
		fmt.Println("Warning: LLM_RUNNER is 'gemini' but GEMINI_API_KEY is not set")
	}

	if (c.LLMRunner == "openai" || c.WhisperEngine == "openai") && c.OpenAIAPIKey == "" && c.OpenAIBaseURL == "" {
		fmt.Println("Warning: OpenAI runner or engine selected but neither OPENAI_API_KEY nor OPENAI_BASE_URL is set")
	}

	return nil
}

// GetPort returns the port as an integer
func (c *AppConfig) GetPort() int {
	port, _ := strconv.Atoi(c.Port) // Already validated in Validate()
	return port
}

// Addr returns the listen address for the HTTP server.
func (c *AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.GetPort())
}

// HasYouTubeConfig returns true if YouTube API configuration is available
func (c *AppConfig) HasYouTubeConfig() bool {
	return c.YouTubeAPIKey != ""
}

// HasGeminiConfig returns true if at least one Gemini API key is available
func (c *AppConfig) HasGeminiConfig() bool {
	return len(c.GeminiAPIKeys) > 0
}

// HasOpenAIConfig returns true if an OpenAI-compatible endpoint can be reached
func (c *AppConfig) HasOpenAIConfig() bool {
	return c.OpenAIAPIKey != "" || c.OpenAIBaseURL != ""
}

// HistoryEnabled reports whether prompts are recorded to the history database.
func (c *AppConfig) HistoryEnabled() bool {
	return c.HistoryDB != "" && !strings.EqualFold(c.HistoryDB, "off")
}

// TempDir is where downloaded audio and prompt hand-off files live.
func (c *AppConfig) TempDir() string {
	return filepath.Join(c.DataDir, "tmp")
}

// ScriptsDir is where embedded helper scripts are materialized.
func (c *AppConfig) ScriptsDir() string {
	return filepath.Join(c.DataDir, "scripts")
}

// VenvDir is the optional virtual environment used for python helpers.
func (c *AppConfig) VenvDir() string {
	return filepath.Join(c.DataDir, "venv")
}

func defaultDataDir() string {
	if runtime.GOOS == "windows" {
		if programData := os.Getenv("PROGRAMDATA"); programData != "" {
			return filepath.Join(programData, ServiceDirName)
		}
	}
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, ServiceDirName)
	}
	return filepath.Join(os.TempDir(), ServiceDirName)
}

func envFileCandidates() []string {
	var paths []string
	if exe, err := os.Executable(); err == nil {
		paths = append(paths, filepath.Join(filepath.Dir(exe), ".env"))
	}
	if wd, err := os.Getwd(); err == nil {
		path := filepath.Join(wd, ".env")
		if len(paths) == 0 || paths[0] != path {
			paths = append(paths, path)
		}
	}
	return paths
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		fmt.Printf("Warning: invalid integer for %s: %q, using %d\n", key, value, fallback)
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		fmt.Printf("Warning: invalid boolean for %s: %q, using %t\n", key, value, fallback)
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		fmt.Printf("Warning: invalid duration for %s: %q, using %s\n", key, value, fallback)
		return fallback
	}
	return d
}

// splitList splits a comma-separated value, dropping empty entries.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
