package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/suyashmankar/interview-studio/internal/agent"
	"github.com/suyashmankar/interview-studio/internal/capture"
	"github.com/suyashmankar/interview-studio/internal/config"
	"github.com/suyashmankar/interview-studio/internal/httpapi"
	"github.com/suyashmankar/interview-studio/internal/interview"
	"github.com/suyashmankar/interview-studio/internal/observability"
	"github.com/suyashmankar/interview-studio/internal/speech"
	"github.com/suyashmankar/interview-studio/internal/stt"
	"github.com/suyashmankar/interview-studio/internal/transcript"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	archive, err := transcript.NewArchive(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("transcript archive init failed: %v", err)
	}
	defer archive.Close()

	var (
		transcriber stt.Client
		dialogue    agent.Client
		synthesizer speech.Client
	)

	useRemote := func() bool {
		if cfg.TranscriptionKey == "" || cfg.AgentURL == "" || cfg.AgentKey == "" || cfg.SpeechKey == "" {
			return false
		}
		transcriber = stt.NewHTTPClient(stt.HTTPConfig{
			URL:    cfg.TranscriptionURL,
			APIKey: cfg.TranscriptionKey,
			Model:  cfg.TranscriptionModel,
		})
		dialogue = agent.NewHTTPClient(agent.HTTPConfig{
			URL:     cfg.AgentURL,
			APIKey:  cfg.AgentKey,
			AgentID: cfg.AgentID,
		})
		synthesizer = speech.NewHTTPClient(speech.HTTPConfig{
			URL:    cfg.SpeechURL,
			APIKey: cfg.SpeechKey,
			Model:  cfg.SpeechModel,
		})
		log.Printf("providers: remote (transcription=%s agent=%s speech=%s)",
			cfg.TranscriptionModel, cfg.AgentID, cfg.SpeechModel)
		return true
	}

	useMock := func() {
		transcriber = stt.NewMockClient()
		dialogue = agent.NewMockClient()
		synthesizer = speech.NewMockClient()
		log.Printf("providers: mock")
	}

	switch cfg.ProviderMode {
	case "remote":
		if !useRemote() {
			log.Fatalf("PROVIDER_MODE=remote but provider credentials are incomplete")
		}
	case "mock":
		useMock()
	default: // auto
		if !useRemote() {
			log.Printf("remote provider credentials incomplete, falling back to mocks")
			useMock()
		}
	}

	var source capture.Source
	if cfg.ProviderMode == "mock" {
		source = &capture.ScriptedSource{
			ChunkData: [][]byte{make([]byte, 3200)},
			Loop:      true,
		}
		log.Printf("capture source: scripted")
	} else {
		source = capture.NewFFmpegSource(capture.FFmpegConfig{
			Command:     cfg.FFmpegPath,
			InputFormat: cfg.AudioBackend,
			InputDevice: cfg.AudioDevice,
			SampleRate:  cfg.SampleRate,
		})
		log.Printf("capture source: ffmpeg (%s/%s)", cfg.AudioBackend, cfg.AudioDevice)
	}

	orch := interview.New(interview.Config{
		ParticipantID: cfg.ParticipantID,
		Source:        source,
		Transcriber:   transcriber,
		Agent:         dialogue,
		Speech:        synthesizer,
		Archive:       archive,
		Metrics:       metrics,
		Settings: interview.Settings{
			Voice:          cfg.DefaultVoice,
			Speed:          cfg.DefaultSpeed,
			AutoPlaySpeech: cfg.AutoPlaySpeech,
		},
		MaxCaptureDuration: cfg.CaptureMaxDuration,
		ChunkInterval:      cfg.CaptureChunkInterval,
		ToastTTL:           cfg.ToastTTL,
		CallTimeout:        cfg.CallTimeout,
	})
	defer orch.Close()

	api := httpapi.New(cfg, orch, metrics)
	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
