package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ziadkadry99/gemchat/internal/chat"
	"github.com/ziadkadry99/gemchat/internal/config"
	"github.com/ziadkadry99/gemchat/internal/llm"
	"github.com/ziadkadry99/gemchat/internal/logging"
	"github.com/ziadkadry99/gemchat/internal/presenter"
	"github.com/ziadkadry99/gemchat/internal/uploads"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `gemchat init` to create a config file", err)
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// newLogger builds the process logger from cfg.Log.
func newLogger(cfg *config.Config) (*slog.Logger, func() error, error) {
	logger, closer, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)
	return logger, closer, nil
}

// createLLMProviderFromConfig creates an LLM provider based on config
// settings, wrapped in the configured rate limiter and circuit breaker.
func createLLMProviderFromConfig(cfg *config.Config, logger *slog.Logger) (llm.Provider, error) {
	provider, err := llm.NewProvider(string(cfg.LLM.Provider), cfg.LLM.Model, cfg.ResolveAPIKey(), cfg.LLM.BaseURL)
	if err != nil {
		return nil, err
	}
	provider = llm.NewRateLimitedProvider(provider, cfg.LLM.RequestsPerMinute)
	if cfg.LLM.Breaker.Enabled {
		provider = llm.NewBreakerProvider(provider, llm.BreakerConfig{
			MaxFailures: cfg.LLM.Breaker.FailureThreshold,
			Timeout:     cfg.LLM.Breaker.Timeout,
		}, logger)
	}
	return provider, nil
}

// newUploadStore opens the upload directory from cfg.Upload.
func newUploadStore(cfg *config.Config, logger *slog.Logger) (*uploads.Store, error) {
	return uploads.New(uploads.Options{
		Dir:      cfg.Upload.Dir,
		MaxBytes: cfg.Upload.MaxBytes,
		Allow:    cfg.Upload.Allow,
		Logger:   logger,
	})
}

// newChatService wires provider and store into a chat.Service. recorder
// may be nil.
func newChatService(cfg *config.Config, provider llm.Provider, store *uploads.Store, recorder chat.Recorder, logger *slog.Logger) *chat.Service {
	return chat.NewService(provider, store, chat.Options{
		Model:             cfg.LLM.Model,
		SystemInstruction: cfg.LLM.SystemInstruction,
		MaxTokens:         cfg.LLM.MaxTokens,
		Temperature:       cfg.LLM.Temperature,
		DefaultPrompt:     cfg.Upload.DefaultPrompt,
		Recorder:          recorder,
		Logger:            logger,
	})
}

// typingFromConfig converts the typing section for the presenter.
func typingFromConfig(cfg *config.Config) presenter.TypingConfig {
	return presenter.TypingConfig{
		ShortDelay:    cfg.Typing.ShortDelay,
		LongDelay:     cfg.Typing.LongDelay,
		Threshold:     cfg.Typing.Threshold,
		FrameInterval: cfg.Typing.FrameInterval,
	}
}
