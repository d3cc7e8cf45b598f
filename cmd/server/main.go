package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"aistudio/internal/config"
	"aistudio/internal/httpapi"
	"aistudio/internal/inference"
	"aistudio/internal/metrics"
	"aistudio/internal/providers/huggingface"
	"aistudio/internal/providers/registry"
	"aistudio/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setupLogger(cfg.Log.Level)
	log.Info().
		Str("store", cfg.Store.Driver).
		Str("chat_provider", cfg.Chat.Provider).
		Bool("hf_token_set", cfg.Inference.APIKey != "").
		Msg("starting aistudio")
	if cfg.Inference.APIKey == "" {
		log.Warn().Msg("HUGGINGFACE_API_KEY is not set; requests to the inference API are unauthenticated")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := storage.Open(ctx, cfg.Store.Driver, storage.WithLogger(log.Logger))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize storage")
	}
	defer store.Close()

	text, err := registry.BuildText(registry.BuildOptions{
		Kind:         cfg.Chat.Provider,
		BaseURL:      cfg.Chat.BaseURL,
		APIKey:       cfg.Chat.APIKey,
		Headers:      cfg.Chat.Headers,
		Timeout:      cfg.Inference.Timeout,
		MaxRetries:   cfg.Inference.MaxRetries,
		BackoffBase:  cfg.Inference.BackoffBase,
		Logger:       log.Logger.With().Str("component", "chat_provider").Logger(),
		BodyTemplate: cfg.Chat.BodyTemplate,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build chat provider")
	}
	images := huggingface.New(huggingface.Config{
		BaseURL:     cfg.Inference.BaseURL,
		APIKey:      cfg.Inference.APIKey,
		Timeout:     cfg.Inference.Timeout,
		MaxRetries:  cfg.Inference.MaxRetries,
		BackoffBase: cfg.Inference.BackoffBase,
		Logger:      log.Logger.With().Str("component", "image_provider").Logger(),
	})

	m := metrics.Global()
	chatModels := registry.NewModelTable(cfg.Chat.DefaultModel, cfg.Chat.Models)
	imageModels := registry.NewModelTable(cfg.Image.DefaultModel, cfg.Image.Models)
	proxy := inference.NewService(inference.Options{
		Text:        text,
		Image:       images,
		ChatModels:  chatModels,
		ImageModels: imageModels,
		Params: inference.Params{
			MaxNewTokens:   cfg.Chat.MaxNewTokens,
			Temperature:    cfg.Chat.Temperature,
			DoSample:       cfg.Chat.DoSample,
			InferenceSteps: cfg.Image.InferenceSteps,
			GuidanceScale:  cfg.Image.GuidanceScale,
		},
		Logger:  log.Logger.With().Str("component", "inference").Logger(),
		Metrics: m,
	})

	api := httpapi.New(httpapi.Options{
		Store:             store,
		Proxy:             proxy,
		ChatModels:        chatModels,
		ImageModels:       imageModels,
		DefaultImageAlias: cfg.Image.DefaultAlias,
	})
	handler := httpapi.NewRouter(api, httpapi.RouterConfig{
		HealthPath:     cfg.HTTP.HealthPath,
		MetricsPath:    cfg.HTTP.MetricsPath,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	}, log.Logger)

	errCh := make(chan error, 1)
	httpServer := &http.Server{
		Addr:              cfg.HTTP.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		// Image generation can take most of HF_TIMEOUT.
		WriteTimeout: cfg.Inference.Timeout + 10*time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.HTTP.ListenAddr).Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("runtime error")
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to stop http server")
	}

	log.Info().Msg("stopped")
}

func setupLogger(level string) {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(parseLogLevel(level))
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
