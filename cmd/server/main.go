package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"interview-voice-service/internal/app"
	"interview-voice-service/internal/config"
	"interview-voice-service/internal/events"
	"interview-voice-service/internal/observability"
	"interview-voice-service/internal/server"
	"interview-voice-service/internal/service/llm"
	"interview-voice-service/internal/service/stream"
	"interview-voice-service/internal/service/stt"
	"interview-voice-service/internal/service/stt/google"
	"interview-voice-service/internal/service/stt/mock"
	"interview-voice-service/internal/service/synth"
	"interview-voice-service/internal/service/transcribe"
)

func main() {
	cfg := config.Load()
	application := app.New(cfg)
	logger := application.Logger

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}
	if err := application.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Application startup failed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Analytics publisher (log-only when Kafka is disabled)
	publisher := events.New(&events.Config{
		Enabled:          cfg.Kafka.Enabled,
		Brokers:          cfg.Kafka.Brokers,
		TopicTurns:       cfg.Kafka.TopicTurns,
		TopicTranscripts: cfg.Kafka.TopicTranscripts,
		Principal:        cfg.Kafka.Principal,
	})
	defer publisher.Close()

	// Response stream pipeline
	var streamer *stream.Streamer
	if cfg.CredentialsConfigured() {
		generator, err := llm.NewGeminiClient(ctx, cfg.Generation.APIKey, cfg.Generation.Model)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to create generation client")
		}
		defer generator.Close()

		synthClient, err := synth.NewClient(synth.ClientConfig{
			Endpoint: cfg.Synthesis.Endpoint,
			APIKey:   cfg.Synthesis.APIKey,
			Voice:    cfg.Synthesis.Voice,
			Format:   cfg.Synthesis.Format,
			Timeout:  cfg.Synthesis.Timeout,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to create synthesis client")
		}
		worker := synth.NewWorker(synthClient, synth.DefaultRetryPolicy(), logger)
		streamer = stream.New(generator, worker, publisher, logger)
	} else {
		logger.Warn().Msg("Generation/synthesis credentials unconfigured; stream endpoint will return 503")
	}

	// Transcription session factory
	adapterFactory := func(ctx context.Context) (stt.Adapter, error) {
		switch cfg.STT.Provider {
		case "google":
			return google.New(ctx, google.Config{
				LanguageCode:   cfg.STT.LanguageCode,
				SampleRateHz:   cfg.STT.SampleRateHz,
				InterimResults: cfg.STT.InterimResults,
				AudioEncoding:  cfg.STT.AudioEncoding,
			})
		default:
			return mock.New(), nil
		}
	}
	logger.Info().Str("provider", cfg.STT.Provider).Msg("STT provider configured")

	ids := server.NewSessionIDGenerator()
	streamHandler := server.NewStreamHandler(streamer, ids, logger, cfg.CredentialsConfigured)
	transcribeHandler := server.NewTranscribeHandler(
		adapterFactory,
		publisher,
		transcribe.SessionLimits{
			MaxAudioBytes: cfg.SessionLimits.MaxAudioBytes,
			MaxDuration:   cfg.SessionLimits.MaxDuration,
			MaxPartials:   cfg.SessionLimits.MaxPartials,
		},
		ids,
		logger,
		cfg.STT.SampleRateHz,
		cfg.Service.PublicHost,
	)

	router := server.NewRouter(streamHandler, transcribeHandler)
	httpServer := &http.Server{
		Addr:        ":" + cfg.Service.HTTPPort,
		Handler:     router,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	obsServer := observability.NewServer(":" + cfg.Service.MetricsPort)
	obsServer.Start()

	go func() {
		logger.Info().Str("port", cfg.Service.HTTPPort).Msg("HTTP server started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("HTTP serve failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP shutdown failed")
	}
	if err := obsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Observability shutdown failed")
	}
	application.Shutdown()
}
