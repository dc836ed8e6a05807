package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server     ServerConfig
	Redis      RedisConfig
	Auth       AuthConfig
	Completion CompletionConfig
	Capture    CaptureConfig
	Client     ClientConfig
	Telemetry  TelemetryConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	RateLimitRPS   float64 // 0 disables rate limiting
	RateLimitBurst int
	CORSOrigins    []string
}

// RedisConfig is optional. An empty Addr disables the completion cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AuthConfig is optional. An empty JWTSecret leaves /api/gpt open.
type AuthConfig struct {
	JWTSecret string
}

type CompletionConfig struct {
	Provider       string // "keyword", "openai", "anthropic" or "ollama"
	Model          string
	MaxTokens      int
	PromptTemplate string
	KeywordsFile   string
	OpenAIKey      string
	AnthropicKey   string
	OllamaURL      string
	CacheTTL       time.Duration
}

// CaptureConfig selects the recognizer: Deepgram when DeepgramKey is set,
// otherwise Whisper when WhisperKey or WhisperURL is set. With none of them
// speech capture is unsupported.
type CaptureConfig struct {
	DeepgramKey  string
	Model        string
	SampleRate   int
	WhisperKey   string
	WhisperURL   string
	WhisperModel string
}

// Recognizer names the configured recognizer, or "" when none is.
func (c CaptureConfig) Recognizer() string {
	switch {
	case c.DeepgramKey != "":
		return "deepgram"
	case c.WhisperKey != "" || c.WhisperURL != "":
		return "whisper"
	}
	return ""
}

type ClientConfig struct {
	BackendURL string
	Token      string
	Timeout    time.Duration // 0 means no timeout
}

type TelemetryConfig struct {
	ServiceName string
	LogLevel    string
	LogFile     string
}

const DefaultPromptTemplate = "Give a short, helpful recommendation based on this conversation:\n\n{{text}}"

var providers = map[string]bool{
	"keyword":   true,
	"openai":    true,
	"anthropic": true,
	"ollama":    true,
}

func Load() (*Config, error) {
	port, err := getEnvInt("SERVER_PORT", 3000)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	rps, err := getEnvFloat("RATE_LIMIT_RPS", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}

	burst, err := getEnvInt("RATE_LIMIT_BURST", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxTokens, err := getEnvInt("COMPLETION_MAX_TOKENS", 150)
	if err != nil {
		return nil, fmt.Errorf("invalid COMPLETION_MAX_TOKENS: %w", err)
	}

	cacheTTL, err := getEnvDuration("COMPLETION_CACHE_TTL", 10*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid COMPLETION_CACHE_TTL: %w", err)
	}

	sampleRate, err := getEnvInt("DEEPGRAM_SAMPLE_RATE", 16000)
	if err != nil {
		return nil, fmt.Errorf("invalid DEEPGRAM_SAMPLE_RATE: %w", err)
	}

	clientTimeout, err := getEnvDuration("LIVEHINT_TIMEOUT", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid LIVEHINT_TIMEOUT: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           port,
			RateLimitRPS:   rps,
			RateLimitBurst: burst,
			CORSOrigins:    splitList(getEnv("CORS_ORIGINS", "*")),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Completion: CompletionConfig{
			Provider:       strings.ToLower(getEnv("COMPLETION_PROVIDER", "keyword")),
			Model:          getEnv("COMPLETION_MODEL", ""),
			MaxTokens:      maxTokens,
			PromptTemplate: getEnv("COMPLETION_PROMPT_TEMPLATE", DefaultPromptTemplate),
			KeywordsFile:   getEnv("COMPLETION_KEYWORDS_FILE", ""),
			OpenAIKey:      getEnv("OPENAI_API_KEY", ""),
			AnthropicKey:   getEnv("ANTHROPIC_API_KEY", ""),
			OllamaURL:      getEnv("OLLAMA_URL", "http://localhost:11434"),
			CacheTTL:       cacheTTL,
		},
		Capture: CaptureConfig{
			DeepgramKey:  getEnv("DEEPGRAM_API_KEY", ""),
			Model:        getEnv("DEEPGRAM_MODEL", "nova-2"),
			SampleRate:   sampleRate,
			WhisperKey:   getEnv("OPENAI_API_KEY", ""),
			WhisperURL:   getEnv("WHISPER_URL", ""),
			WhisperModel: getEnv("WHISPER_MODEL", "whisper-1"),
		},
		Client: ClientConfig{
			BackendURL: getEnv("LIVEHINT_BACKEND_URL", "http://localhost:3000"),
			Token:      getEnv("LIVEHINT_TOKEN", ""),
			Timeout:    clientTimeout,
		},
		Telemetry: TelemetryConfig{
			ServiceName: getEnv("OTEL_SERVICE_NAME", "livehint"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFile:     getEnv("LIVEHINT_LOG_FILE", "livehint.log"),
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Validate reports settings that cannot work together. Missing provider
// credentials are not an error here: they surface per request.
func (c *Config) Validate() error {
	var problems []string
	if !providers[c.Completion.Provider] {
		problems = append(problems, fmt.Sprintf("unknown COMPLETION_PROVIDER %q", c.Completion.Provider))
	}
	if c.Completion.MaxTokens <= 0 {
		problems = append(problems, "COMPLETION_MAX_TOKENS must be positive")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("SERVER_PORT %d out of range", c.Server.Port))
	}
	if c.Server.RateLimitRPS < 0 {
		problems = append(problems, "RATE_LIMIT_RPS must not be negative")
	}
	if u, err := url.Parse(c.Client.BackendURL); err != nil || u.Scheme == "" || u.Host == "" {
		problems = append(problems, fmt.Sprintf("invalid LIVEHINT_BACKEND_URL %q", c.Client.BackendURL))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Level parses LogLevel ("debug", "info", "warn" or "error"), falling back
// to info.
func (t TelemetryConfig) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(t.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
