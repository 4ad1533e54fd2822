// Package config provides the configuration schema and loader for the
// Valisia game server.
package config

// LogLevel controls log verbosity for the Valisia server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for Valisia.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
// String values may reference environment variables with ${VAR} syntax; the
// loader expands them before decoding, so API keys can stay out of the file.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	Game      GameConfig      `yaml:"game"`
}

// ServerConfig holds network and logging settings for the Valisia server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// CORS configures cross-origin access for browser clients.
	CORS CORSConfig `yaml:"cors"`

	// RateLimit caps per-client request throughput. Zero disables limiting.
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// CORSConfig controls which browser origins may call the game API.
type CORSConfig struct {
	// AllowedOrigins lists permitted origins. Empty means same-origin only;
	// use ["*"] to allow any origin during development.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// RateLimitConfig caps request throughput per client IP.
type RateLimitConfig struct {
	// RequestsPerMinute is the per-IP allowance for the game endpoints.
	// Zero disables rate limiting.
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

// ProvidersConfig declares which provider implementation to use for each
// pipeline stage.
type ProvidersConfig struct {
	STT STTConfig `yaml:"stt"`
	TTS TTSConfig `yaml:"tts"`
	LLM LLMConfig `yaml:"llm"`
}

// STTConfig selects and configures the speech-to-text backend.
type STTConfig struct {
	// Name selects the implementation: "azure" or "deepgram".
	Name string `yaml:"name"`

	// APIKey authenticates against the recognition service.
	APIKey string `yaml:"api_key"`

	// Region is the Azure service region (e.g., "westeurope"). Azure only.
	Region string `yaml:"region"`

	// Language is the recognition language tag (e.g., "en-US").
	Language string `yaml:"language"`

	// Model selects a specific recognition model (e.g., "nova-2"). Deepgram only.
	Model string `yaml:"model"`
}

// TTSConfig selects and configures the text-to-speech backend.
type TTSConfig struct {
	// Name selects the implementation. Currently only "elevenlabs".
	Name string `yaml:"name"`

	// APIKey authenticates against the synthesis service.
	APIKey string `yaml:"api_key"`

	// VoiceID selects the ElevenLabs voice.
	VoiceID string `yaml:"voice_id"`

	// Model selects the synthesis model (e.g., "eleven_multilingual_v2").
	Model string `yaml:"model"`
}

// LLMConfig selects and configures the rule-judge completion backend.
type LLMConfig struct {
	// Name selects the implementation: "openai" or "azure-openai".
	Name string `yaml:"name"`

	// APIKey authenticates against the completion service.
	APIKey string `yaml:"api_key"`

	// Model is the model name ("openai") or deployment name ("azure-openai").
	Model string `yaml:"model"`

	// Endpoint is the Azure OpenAI resource endpoint. Azure only.
	Endpoint string `yaml:"endpoint"`

	// APIVersion is the Azure OpenAI API version (e.g., "2024-02-01"). Azure only.
	APIVersion string `yaml:"api_version"`

	// BaseURL overrides the default API endpoint. OpenAI only.
	BaseURL string `yaml:"base_url"`
}

// GameConfig tunes the game rules and the turn pipeline.
type GameConfig struct {
	// WelcomeMessage overrides the spoken greeting for /api/game/start.
	WelcomeMessage string `yaml:"welcome_message"`

	// FFmpegPath overrides the ffmpeg executable used for transcoding.
	// Empty means look up "ffmpeg" on PATH.
	FFmpegPath string `yaml:"ffmpeg_path"`

	// PhoneticThreshold is the minimum similarity for phonetically matched
	// item repairs. Zero means the built-in default.
	PhoneticThreshold float64 `yaml:"phonetic_threshold"`

	// FuzzyThreshold is the minimum similarity for non-phonetic item repairs.
	// Zero means the built-in default.
	FuzzyThreshold float64 `yaml:"fuzzy_threshold"`
}
