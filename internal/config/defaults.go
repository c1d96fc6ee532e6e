package config

import "time"

// DefaultSystemInstruction is the persona sent with every request.
const DefaultSystemInstruction = `You are an elegant person of noble bearing.
Your manner of speech is distinctive, refined and carefully measured.
As a noble, you occasionally use archaic turns of phrase.
If the user writes in English, answer in a posh, modern UK English register.`

// DefaultUploadAllow lists the file name patterns accepted by /api/upload.
var DefaultUploadAllow = []string{
	"*.{png,jpg,jpeg,gif,webp,heic,heif}",
	"*.{PNG,JPG,JPEG,GIF,WEBP,HEIC,HEIF}",
}

// defaultModels maps each provider to the model used when none is set.
var defaultModels = map[ProviderType]string{
	ProviderGoogle: "gemini-2.5-flash",
	ProviderOpenAI: "gpt-4o-mini",
	ProviderOllama: "llava",
}

// DefaultModel returns the default model for provider, or "" if unknown.
func DefaultModel(provider ProviderType) string {
	return defaultModels[provider]
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "",
			Port:           3000,
			RequestTimeout: 2 * time.Minute,
			AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		},
		LLM: LLMConfig{
			Provider:          ProviderGoogle,
			Model:             DefaultModel(ProviderGoogle),
			SystemInstruction: DefaultSystemInstruction,
			MaxTokens:         0,
			Temperature:       0,
			RequestsPerMinute: 0,
			Breaker: BreakerConfig{
				Enabled:          true,
				FailureThreshold: 5,
				Timeout:          30 * time.Second,
			},
		},
		Typing: TypingConfig{
			ShortDelay:    15 * time.Millisecond,
			LongDelay:     1 * time.Millisecond,
			Threshold:     1000,
			FrameInterval: 16 * time.Millisecond,
		},
		Render: RenderConfig{
			Engine: "simple",
		},
		Upload: UploadConfig{
			Dir:           "uploads",
			MaxBytes:      10 * 1024 * 1024,
			Allow:         DefaultUploadAllow,
			DefaultPrompt: "Please describe this image",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 0,
			Burst:             5,
		},
		DB: DBConfig{
			Path: ".gemchat/gemchat.db",
		},
	}
}
