// Command valisia runs the "I'm packing my suitcase" voice game server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/MrWong99/valisia/internal/config"
	"github.com/MrWong99/valisia/internal/health"
	"github.com/MrWong99/valisia/internal/judge"
	"github.com/MrWong99/valisia/internal/observe"
	"github.com/MrWong99/valisia/internal/server"
	"github.com/MrWong99/valisia/internal/turn"
	"github.com/MrWong99/valisia/pkg/audio"
	"github.com/MrWong99/valisia/pkg/provider/llm"
	llmopenai "github.com/MrWong99/valisia/pkg/provider/llm/openai"
	"github.com/MrWong99/valisia/pkg/provider/stt"
	sttazure "github.com/MrWong99/valisia/pkg/provider/stt/azure"
	sttdeepgram "github.com/MrWong99/valisia/pkg/provider/stt/deepgram"
	"github.com/MrWong99/valisia/pkg/provider/tts"
	"github.com/MrWong99/valisia/pkg/provider/tts/elevenlabs"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// A local .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "valisia: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "valisia: %v\n", err)
		}
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("valisia starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "valisia",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(ctx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Providers ─────────────────────────────────────────────────────────────
	transcoder := &audio.FFmpeg{Path: cfg.Game.FFmpegPath}

	sttProvider, err := buildSTT(cfg, transcoder)
	if err != nil {
		slog.Error("failed to create stt provider", "err", err)
		return 1
	}
	ttsProvider, err := buildTTS(cfg)
	if err != nil {
		slog.Error("failed to create tts provider", "err", err)
		return 1
	}
	llmProvider, err := buildLLM(cfg)
	if err != nil {
		slog.Error("failed to create llm provider", "err", err)
		return 1
	}

	// ── Game pipeline ─────────────────────────────────────────────────────────
	var repairOpts []judge.RepairerOption
	if cfg.Game.PhoneticThreshold > 0 {
		repairOpts = append(repairOpts, judge.WithPhoneticThreshold(cfg.Game.PhoneticThreshold))
	}
	if cfg.Game.FuzzyThreshold > 0 {
		repairOpts = append(repairOpts, judge.WithFuzzyThreshold(cfg.Game.FuzzyThreshold))
	}
	gameJudge, err := judge.NewLLMJudge(llmProvider,
		judge.WithRepairer(judge.NewPhoneticRepairer(repairOpts...)),
	)
	if err != nil {
		slog.Error("failed to create judge", "err", err)
		return 1
	}

	orchestrator, err := turn.New(sttProvider, gameJudge, ttsProvider)
	if err != nil {
		slog.Error("failed to create turn orchestrator", "err", err)
		return 1
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	healthHandler := health.New(
		health.Checker{Name: "ffmpeg", Check: func(context.Context) error {
			bin := cfg.Game.FFmpegPath
			if bin == "" {
				bin = "ffmpeg"
			}
			_, err := exec.LookPath(bin)
			return err
		}},
	)

	serverOpts := []server.Option{
		server.WithAllowedOrigins(cfg.Server.CORS.AllowedOrigins),
		server.WithRateLimit(cfg.Server.RateLimit.RequestsPerMinute),
		server.WithHealth(healthHandler),
	}
	if cfg.Game.WelcomeMessage != "" {
		serverOpts = append(serverOpts, server.WithWelcomeMessage(cfg.Game.WelcomeMessage))
	}

	srv, err := server.New(orchestrator, ttsProvider, serverOpts...)
	if err != nil {
		slog.Error("failed to create server", "err", err)
		return 1
	}

	addr := cfg.Server.ListenAddr
	if addr == "" {
		addr = ":8080"
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(addr)
	}()

	slog.Info("server ready — press Ctrl+C to shut down")

	select {
	case err := <-errCh:
		if err != nil {
			slog.Error("server error", "err", err)
			return 1
		}
	case <-ctx.Done():
	}

	slog.Info("shutdown signal received, stopping…")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

func buildSTT(cfg *config.Config, transcoder *audio.FFmpeg) (stt.Provider, error) {
	entry := cfg.Providers.STT
	switch entry.Name {
	case "azure":
		opts := []sttazure.Option{sttazure.WithTranscoder(transcoder)}
		if entry.Language != "" {
			opts = append(opts, sttazure.WithLanguage(entry.Language))
		}
		return sttazure.New(entry.APIKey, entry.Region, opts...)
	case "deepgram":
		var opts []sttdeepgram.Option
		if entry.Model != "" {
			opts = append(opts, sttdeepgram.WithModel(entry.Model))
		}
		if entry.Language != "" {
			opts = append(opts, sttdeepgram.WithLanguage(entry.Language))
		}
		return sttdeepgram.New(entry.APIKey, opts...)
	default:
		return nil, fmt.Errorf("unknown stt provider %q", entry.Name)
	}
}

func buildTTS(cfg *config.Config) (tts.Provider, error) {
	entry := cfg.Providers.TTS
	switch entry.Name {
	case "elevenlabs":
		var opts []elevenlabs.Option
		if entry.Model != "" {
			opts = append(opts, elevenlabs.WithModel(entry.Model))
		}
		return elevenlabs.New(entry.APIKey, entry.VoiceID, opts...)
	default:
		return nil, fmt.Errorf("unknown tts provider %q", entry.Name)
	}
}

func buildLLM(cfg *config.Config) (llm.Provider, error) {
	entry := cfg.Providers.LLM
	switch entry.Name {
	case "openai":
		var opts []llmopenai.Option
		if entry.BaseURL != "" {
			opts = append(opts, llmopenai.WithBaseURL(entry.BaseURL))
		}
		return llmopenai.New(entry.APIKey, entry.Model, opts...)
	case "azure-openai":
		return llmopenai.NewAzure(entry.Endpoint, entry.APIKey, entry.Model, entry.APIVersion)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", entry.Name)
	}
}

// ── Logger ────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
