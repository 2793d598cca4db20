package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator/v10"

	"github.com/voicekit/tts-gateway/internal/dashboard"
	"github.com/voicekit/tts-gateway/internal/health"
	"github.com/voicekit/tts-gateway/internal/metrics"
	"github.com/voicekit/tts-gateway/internal/observe"
	"github.com/voicekit/tts-gateway/internal/requestlog"
	"github.com/voicekit/tts-gateway/internal/shutdown"
	"github.com/voicekit/tts-gateway/internal/storage"
	"github.com/voicekit/tts-gateway/internal/synth"
)

const serviceName = "tts-gateway"

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg := loadConfig()

	registry := metrics.NewRegistry()
	coord := shutdown.NewCoordinator()

	// TTS engine backends
	ttsHTTP := synth.NewPooledHTTPClient(cfg.ttsPoolSize, cfg.synthTimeout)
	backends := map[string]synth.Synthesizer{}
	if cfg.piperURL != "" {
		backends["piper"] = synth.NewPiperSynthesizer(cfg.piperURL, cfg.piperVoice, ttsHTTP)
	}
	if cfg.kokoroURL != "" {
		backends["kokoro"] = synth.NewOpenAISynthesizer(cfg.kokoroURL, cfg.kokoroAPIKey, cfg.kokoroModel, cfg.kokoroVoice, ttsHTTP)
	}
	if cfg.elevenlabsAPIKey != "" {
		backends["elevenlabs"] = synth.NewElevenLabsSynthesizer(cfg.elevenlabsAPIKey, cfg.elevenlabsVoiceID, cfg.elevenlabsModelID, ttsHTTP)
	}
	if len(backends) == 0 {
		slog.Error("no TTS backends configured")
		os.Exit(1)
	}
	ttsRouter := synth.NewRouter(backends, cfg.defaultEngine)

	// audio storage
	var audioStore storage.Store
	if cfg.minioEndpoint != "" {
		ms, err := storage.NewMinioStore(context.Background(), storage.MinioConfig{
			Endpoint:  cfg.minioEndpoint,
			AccessKey: cfg.minioAccessKey,
			SecretKey: cfg.minioSecretKey,
			Bucket:    cfg.minioBucket,
			UseSSL:    cfg.minioUseSSL,
		})
		if err != nil {
			slog.Error("minio storage init failed", "error", err)
			os.Exit(1)
		}
		audioStore = ms
		slog.Info("audio storage: minio", "endpoint", cfg.minioEndpoint, "bucket", cfg.minioBucket)
	} else {
		fs, err := storage.NewFSStore(cfg.audioDir)
		if err != nil {
			slog.Error("audio dir init failed", "error", err)
			os.Exit(1)
		}
		audioStore = fs
		slog.Info("audio storage: filesystem", "dir", cfg.audioDir)
	}

	// request log persistence
	var sinks []observe.Sink
	fileSink, err := requestlog.NewFileSink(cfg.logDir)
	if err != nil {
		slog.Error("log dir init failed", "error", err)
		os.Exit(1)
	}
	sinks = append(sinks, fileSink)

	var logStore *requestlog.Store
	if cfg.requestLogDBURL != "" {
		logStore, err = requestlog.Open(cfg.requestLogDBURL)
		if err != nil {
			slog.Warn("request log database unavailable, continuing without it", "error", err)
			logStore = nil
		} else {
			sinks = append(sinks, logStore)
			slog.Info("request log database connected")
		}
	}

	recorder := requestlog.NewRecorder(registry.IncLogFailure, sinks...)
	logger := observe.NewLogger(slog.Default(), registry.IncLogFailure, recorder)
	observer := observe.NewObserver(registry, logger, coord)
	reporter := health.NewReporter(coord, cfg.defaultEngine)
	summarizer := dashboard.NewSummarizer(registry, coord, serviceName, cfg.defaultEngine)
	hub := dashboard.NewHub(summarizer, cfg.dashboardPush)

	mux := http.NewServeMux()
	registerRoutes(mux, deps{
		cfg:        cfg,
		registry:   registry,
		observer:   observer,
		reporter:   reporter,
		summarizer: summarizer,
		hub:        hub,
		tts:        ttsRouter,
		audio:      audioStore,
		logStore:   logStore,
		validate:   validator.New(),
	})

	addr := ":" + cfg.port
	srv := &http.Server{Addr: addr, Handler: mux}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)

		coord.BeginDrain(cfg.drainTimeout)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.drainTimeout)
		defer cancel()
		srv.Shutdown(ctx)

		if coord.WaitForDrain() {
			slog.Info("drain complete")
		} else {
			slog.Warn("drain deadline elapsed", "in_flight", coord.InFlight())
		}

		hub.Close()
		recorder.Close()
		if logStore != nil {
			logStore.Close()
		}
	}()

	slog.Info("gateway starting", "addr", addr, "engines", ttsRouter.Engines(), "drain_timeout", cfg.drainTimeout)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}

	<-shutdownDone
	slog.Info("gateway stopped")
}
