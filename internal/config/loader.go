package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"stt": {"azure", "deepgram"},
	"tts": {"elevenlabs"},
	"llm": {"openai", "azure-openai"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and
// [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// ${VAR} references are expanded from the environment before decoding.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}
	expanded := os.ExpandEnv(string(raw))

	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.RateLimit.RequestsPerMinute < 0 {
		errs = append(errs, fmt.Errorf("server.rate_limit.requests_per_minute must not be negative"))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)
	validateProviderName("llm", cfg.Providers.LLM.Name)

	// A playable server needs all three stages; missing credentials are a
	// startup error, not a per-request surprise.
	switch cfg.Providers.STT.Name {
	case "":
		errs = append(errs, fmt.Errorf("providers.stt.name is required"))
	case "azure":
		if cfg.Providers.STT.APIKey == "" {
			errs = append(errs, fmt.Errorf("providers.stt.api_key is required for azure"))
		}
		if cfg.Providers.STT.Region == "" {
			errs = append(errs, fmt.Errorf("providers.stt.region is required for azure"))
		}
	default:
		if cfg.Providers.STT.APIKey == "" {
			errs = append(errs, fmt.Errorf("providers.stt.api_key is required"))
		}
	}

	if cfg.Providers.TTS.Name == "" {
		errs = append(errs, fmt.Errorf("providers.tts.name is required"))
	} else {
		if cfg.Providers.TTS.APIKey == "" {
			errs = append(errs, fmt.Errorf("providers.tts.api_key is required"))
		}
		if cfg.Providers.TTS.VoiceID == "" {
			errs = append(errs, fmt.Errorf("providers.tts.voice_id is required"))
		}
	}

	switch cfg.Providers.LLM.Name {
	case "":
		errs = append(errs, fmt.Errorf("providers.llm.name is required"))
	case "azure-openai":
		if cfg.Providers.LLM.Endpoint == "" {
			errs = append(errs, fmt.Errorf("providers.llm.endpoint is required for azure-openai"))
		}
		fallthrough
	default:
		if cfg.Providers.LLM.APIKey == "" {
			errs = append(errs, fmt.Errorf("providers.llm.api_key is required"))
		}
		if cfg.Providers.LLM.Model == "" {
			errs = append(errs, fmt.Errorf("providers.llm.model is required"))
		}
	}

	// Game thresholds
	if t := cfg.Game.PhoneticThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("game.phonetic_threshold %.2f is out of range [0, 1]", t))
	}
	if t := cfg.Game.FuzzyThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("game.fuzzy_threshold %.2f is out of range [0, 1]", t))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
