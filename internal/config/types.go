package config

import "time"

// ProviderType identifies an LLM provider.
type ProviderType string

const (
	ProviderGoogle ProviderType = "google"
	ProviderOpenAI ProviderType = "openai"
	ProviderOllama ProviderType = "ollama"
)

// Config is the top-level gemchat configuration, corresponding to .gemchat.yml.
type Config struct {
	Server    ServerConfig    `yaml:"server" koanf:"server"`
	LLM       LLMConfig       `yaml:"llm" koanf:"llm"`
	Typing    TypingConfig    `yaml:"typing" koanf:"typing"`
	Render    RenderConfig    `yaml:"render" koanf:"render"`
	Upload    UploadConfig    `yaml:"upload" koanf:"upload"`
	Log       LogConfig       `yaml:"log" koanf:"log"`
	RateLimit RateLimitConfig `yaml:"rate_limit" koanf:"rate_limit"`
	DB        DBConfig        `yaml:"db" koanf:"db"`
}

// ServerConfig holds the HTTP listener settings. AllowedOrigins applies to
// CORS and to the dashboard websocket.
type ServerConfig struct {
	Host           string        `yaml:"host" koanf:"host"`
	Port           int           `yaml:"port" koanf:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout" koanf:"request_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins" koanf:"allowed_origins"`
}

// LLMConfig selects the model and how it is called.
type LLMConfig struct {
	Provider          ProviderType  `yaml:"provider" koanf:"provider"`
	Model             string        `yaml:"model" koanf:"model"`
	APIKey            string        `yaml:"api_key,omitempty" koanf:"api_key"`
	BaseURL           string        `yaml:"base_url,omitempty" koanf:"base_url"`
	SystemInstruction string        `yaml:"system_instruction" koanf:"system_instruction"`
	MaxTokens         int           `yaml:"max_tokens" koanf:"max_tokens"`
	Temperature       float64       `yaml:"temperature" koanf:"temperature"`
	RequestsPerMinute int           `yaml:"requests_per_minute" koanf:"requests_per_minute"`
	Breaker           BreakerConfig `yaml:"breaker" koanf:"breaker"`
}

// BreakerConfig tunes the circuit breaker around the provider.
type BreakerConfig struct {
	Enabled          bool          `yaml:"enabled" koanf:"enabled"`
	FailureThreshold uint32        `yaml:"failure_threshold" koanf:"failure_threshold"`
	Timeout          time.Duration `yaml:"timeout" koanf:"timeout"`
}

// TypingConfig controls the typing animation pace.
type TypingConfig struct {
	ShortDelay time.Duration `yaml:"short_delay" koanf:"short_delay"`
	LongDelay  time.Duration `yaml:"long_delay" koanf:"long_delay"`
	Threshold  int           `yaml:"threshold" koanf:"threshold"`
	// FrameInterval caps how often a typing bubble is redrawn.
	FrameInterval time.Duration `yaml:"frame_interval" koanf:"frame_interval"`
}

// RenderConfig selects the Markdown engine.
type RenderConfig struct {
	Engine string `yaml:"engine" koanf:"engine"`
}

// UploadConfig controls where images are stored and which are accepted.
type UploadConfig struct {
	Dir           string   `yaml:"dir" koanf:"dir"`
	MaxBytes      int64    `yaml:"max_bytes" koanf:"max_bytes"`
	Allow         []string `yaml:"allow" koanf:"allow"`
	DefaultPrompt string   `yaml:"default_prompt" koanf:"default_prompt"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string `yaml:"level" koanf:"level"`
	Format string `yaml:"format" koanf:"format"`
	Output string `yaml:"output" koanf:"output"`
}

// RateLimitConfig is the per-client limit on the /api endpoints.
// Zero RequestsPerSecond disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" koanf:"requests_per_second"`
	Burst             int     `yaml:"burst" koanf:"burst"`
	// TrustedProxies may set X-Forwarded-For. Empty ignores the header.
	TrustedProxies []string `yaml:"trusted_proxies,omitempty" koanf:"trusted_proxies"`
}

// DBConfig locates the SQLite database holding the exchange log.
type DBConfig struct {
	Path string `yaml:"path" koanf:"path"`
}
