package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the interview service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	ParticipantID string

	// ProviderMode selects remote providers, local mocks, or auto
	// detection based on which API keys are present.
	ProviderMode string

	TranscriptionURL   string
	TranscriptionKey   string
	TranscriptionModel string

	AgentURL string
	AgentKey string
	AgentID  string

	SpeechURL   string
	SpeechKey   string
	SpeechModel string

	DefaultVoice   string
	DefaultSpeed   float64
	AutoPlaySpeech bool

	CaptureMaxDuration   time.Duration
	CaptureChunkInterval time.Duration

	FFmpegPath   string
	AudioBackend string
	AudioDevice  string
	SampleRate   int

	DatabaseURL string
	ToastTTL    time.Duration
	CallTimeout time.Duration
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:           envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:   envOrDefault("APP_METRICS_NAMESPACE", "interview_studio"),
		AllowAnyOrigin:     false,
		ParticipantID:      envOrDefault("APP_PARTICIPANT_ID", "candidate"),
		ProviderMode:       envOrDefault("PROVIDER_MODE", "auto"),
		TranscriptionURL:   trimmedEnv("TRANSCRIPTION_URL"),
		TranscriptionKey:   trimmedEnv("TRANSCRIPTION_API_KEY"),
		TranscriptionModel: envOrDefault("TRANSCRIPTION_MODEL", "whisper-1"),
		AgentURL:           trimmedEnv("AGENT_URL"),
		AgentKey:           trimmedEnv("AGENT_API_KEY"),
		AgentID:            envOrDefault("AGENT_ID", "mock-interviewer"),
		SpeechURL:          trimmedEnv("SPEECH_URL"),
		SpeechKey:          trimmedEnv("SPEECH_API_KEY"),
		SpeechModel:        envOrDefault("SPEECH_MODEL", "tts-1"),
		DefaultVoice:       envOrDefault("SPEECH_DEFAULT_VOICE", "onyx"),
		DefaultSpeed:       1.0,
		AutoPlaySpeech:     true,
		FFmpegPath:         envOrDefault("CAPTURE_FFMPEG_PATH", "ffmpeg"),
		AudioBackend:       envOrDefault("CAPTURE_AUDIO_BACKEND", "pulse"),
		AudioDevice:        envOrDefault("CAPTURE_AUDIO_DEVICE", "default"),
		SampleRate:         16000,
		DatabaseURL:        trimmedEnv("DATABASE_URL"),

		ShutdownTimeout:      15 * time.Second,
		CaptureMaxDuration:   5 * time.Minute,
		CaptureChunkInterval: 100 * time.Millisecond,
		ToastTTL:             5 * time.Second,
		CallTimeout:          60 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.CaptureMaxDuration, err = durationFromEnv("CAPTURE_MAX_DURATION", cfg.CaptureMaxDuration)
	if err != nil {
		return Config{}, err
	}
	cfg.CaptureChunkInterval, err = durationFromEnv("CAPTURE_CHUNK_INTERVAL", cfg.CaptureChunkInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.ToastTTL, err = durationFromEnv("APP_TOAST_TTL", cfg.ToastTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.CallTimeout, err = durationFromEnv("APP_CALL_TIMEOUT", cfg.CallTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.AutoPlaySpeech, err = boolFromEnv("SPEECH_AUTOPLAY", cfg.AutoPlaySpeech)
	if err != nil {
		return Config{}, err
	}
	cfg.DefaultSpeed, err = floatFromEnv("SPEECH_DEFAULT_SPEED", cfg.DefaultSpeed)
	if err != nil {
		return Config{}, err
	}
	cfg.SampleRate, err = intFromEnv("CAPTURE_SAMPLE_RATE", cfg.SampleRate)
	if err != nil {
		return Config{}, err
	}

	switch strings.ToLower(strings.TrimSpace(cfg.ProviderMode)) {
	case "auto", "remote", "mock":
		cfg.ProviderMode = strings.ToLower(strings.TrimSpace(cfg.ProviderMode))
	default:
		return Config{}, fmt.Errorf("PROVIDER_MODE must be auto, remote or mock")
	}
	if cfg.ProviderMode == "remote" {
		if cfg.TranscriptionKey == "" {
			return Config{}, fmt.Errorf("TRANSCRIPTION_API_KEY is required in remote mode")
		}
		if cfg.AgentURL == "" || cfg.AgentKey == "" {
			return Config{}, fmt.Errorf("AGENT_URL and AGENT_API_KEY are required in remote mode")
		}
		if cfg.SpeechKey == "" {
			return Config{}, fmt.Errorf("SPEECH_API_KEY is required in remote mode")
		}
	}
	if cfg.CaptureMaxDuration < time.Second {
		return Config{}, fmt.Errorf("CAPTURE_MAX_DURATION must be at least 1s")
	}
	if cfg.CaptureChunkInterval <= 0 {
		return Config{}, fmt.Errorf("CAPTURE_CHUNK_INTERVAL must be positive")
	}
	if cfg.DefaultSpeed < 0.25 || cfg.DefaultSpeed > 4.0 {
		return Config{}, fmt.Errorf("SPEECH_DEFAULT_SPEED must be within [0.25, 4.0]")
	}
	if cfg.SampleRate <= 0 {
		return Config{}, fmt.Errorf("CAPTURE_SAMPLE_RATE must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(trimmedEnv(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
