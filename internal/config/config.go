package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/ziadkadry99/gemchat/internal/auth"
)

// DefaultPath is the config file looked up when --config is not given.
const DefaultPath = ".gemchat.yml"

// EnvPrefix prefixes environment overrides. Nested keys are separated by a
// double underscore: GEMCHAT_SERVER__PORT sets server.port.
const EnvPrefix = "GEMCHAT_"

// Options tunes Load. The zero value reads ".env" from the working directory.
type Options struct {
	// EnvFile is loaded into the process environment before the overlay.
	// Variables that are already set are not overwritten.
	EnvFile string
	// SkipEnvFile disables the .env lookup.
	SkipEnvFile bool
}

// Load reads configuration from the given YAML file, then overlays the
// .env file, PORT and GEMCHAT_* environment overrides.
func Load(path string) (*Config, error) {
	return LoadWithOptions(path, Options{})
}

// LoadWithOptions is Load with explicit options.
func LoadWithOptions(path string, opts Options) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	if !opts.SkipEnvFile {
		envFile := opts.EnvFile
		if envFile == "" {
			envFile = ".env"
		}
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading env file %s: %w", envFile, err)
		}
	}

	// PORT is the conventional platform override.
	if port := os.Getenv("PORT"); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", port, err)
		}
		if err := k.Set("server.port", n); err != nil {
			return nil, fmt.Errorf("applying PORT: %w", err)
		}
	}

	// Overlay environment variables: GEMCHAT_LLM__MODEL -> llm.model, etc.
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if cfg.LLM.Model == "" {
		cfg.LLM.Model = DefaultModel(cfg.LLM.Provider)
	}

	return cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Save writes the configuration to the given YAML file path. The API key
// is never written.
func (c *Config) Save(path string) error {
	out := *c
	out.LLM.APIKey = ""
	data, err := yamlv3.Marshal(&out)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validProviders is the set of recognized provider values.
var validProviders = map[ProviderType]bool{
	ProviderGoogle: true,
	ProviderOpenAI: true,
	ProviderOllama: true,
}

var validEngines = map[string]bool{
	"":           true,
	"simple":     true,
	"commonmark": true,
}

var validLogFormats = map[string]bool{
	"":     true,
	"text": true,
	"json": true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.LLM.Provider == "" {
		return fmt.Errorf("llm.provider is required")
	}
	if !validProviders[c.LLM.Provider] {
		return fmt.Errorf("invalid llm.provider %q: must be one of google, openai, ollama", c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.LLM.RequestsPerMinute < 0 {
		return fmt.Errorf("llm.requests_per_minute must be non-negative")
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}

	if c.Typing.ShortDelay < 0 || c.Typing.LongDelay < 0 || c.Typing.FrameInterval < 0 {
		return fmt.Errorf("typing delays must be non-negative")
	}
	if c.Typing.Threshold <= 0 {
		return fmt.Errorf("typing.threshold must be positive")
	}

	if !validEngines[c.Render.Engine] {
		return fmt.Errorf("invalid render.engine %q: must be simple or commonmark", c.Render.Engine)
	}

	if c.Upload.Dir == "" {
		return fmt.Errorf("upload.dir is required")
	}
	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("upload.max_bytes must be positive")
	}

	if !validLogFormats[strings.ToLower(c.Log.Format)] {
		return fmt.Errorf("invalid log.format %q: must be text or json", c.Log.Format)
	}

	if c.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("rate_limit.requests_per_second must be non-negative")
	}

	return nil
}

// APIKeyEnvVars returns the conventional environment variables holding
// the API key of the given provider, in lookup order.
func APIKeyEnvVars(provider ProviderType) []string {
	switch provider {
	case ProviderGoogle:
		return []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
	case ProviderOpenAI:
		return []string{"OPENAI_API_KEY"}
	default:
		return nil
	}
}

// ResolveAPIKey returns the configured key, falling back to the provider's
// conventional environment variables and then the credentials file.
func (c *Config) ResolveAPIKey() string {
	if c.LLM.APIKey != "" {
		return c.LLM.APIKey
	}
	for _, name := range APIKeyEnvVars(c.LLM.Provider) {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	if c.LLM.Provider == ProviderOllama {
		return ""
	}
	return auth.GetAPIKey(string(c.LLM.Provider))
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
