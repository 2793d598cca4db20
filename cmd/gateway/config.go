package main

import (
	"os"
	"strconv"
	"time"
)

type config struct {
	port string

	// TTS engine backends
	piperURL          string
	piperVoice        string
	kokoroURL         string
	kokoroModel       string
	kokoroVoice       string
	kokoroAPIKey      string
	elevenlabsAPIKey  string
	elevenlabsVoiceID string
	elevenlabsModelID string
	defaultEngine     string
	ttsPoolSize       int
	synthTimeout      time.Duration

	// audio storage
	audioDir       string
	minioEndpoint  string
	minioAccessKey string
	minioSecretKey string
	minioBucket    string
	minioUseSSL    bool

	// request log persistence
	logDir          string
	requestLogDBURL string

	// lifecycle and dashboard
	drainTimeout  time.Duration
	dashboardPush time.Duration
}

func loadConfig() config {
	return config{
		port:              envStr("GATEWAY_PORT", "8000"),
		piperURL:          envStr("PIPER_URL", "http://localhost:5100"),
		piperVoice:        envStr("PIPER_VOICE", "en_US-lessac-medium"),
		kokoroURL:         envStr("KOKORO_URL", ""),
		kokoroModel:       envStr("KOKORO_MODEL", "kokoro"),
		kokoroVoice:       envStr("KOKORO_VOICE", "af_heart"),
		kokoroAPIKey:      envStr("KOKORO_API_KEY", ""),
		elevenlabsAPIKey:  envStr("ELEVENLABS_API_KEY", ""),
		elevenlabsVoiceID: envStr("ELEVENLABS_VOICE_ID", "21m00Tcm4TlvDq8ikWAM"),
		elevenlabsModelID: envStr("ELEVENLABS_MODEL_ID", "eleven_turbo_v2_5"),
		defaultEngine:     envStr("TTS_DEFAULT_ENGINE", "piper"),
		ttsPoolSize:       envInt("TTS_POOL_SIZE", 50),
		synthTimeout:      envDur("SYNTH_TIMEOUT", 30*time.Second),
		audioDir:          envStr("AUDIO_DIR", "storage/audio"),
		minioEndpoint:     envStr("MINIO_ENDPOINT", ""),
		minioAccessKey:    envStr("MINIO_ACCESS_KEY", ""),
		minioSecretKey:    envStr("MINIO_SECRET_KEY", ""),
		minioBucket:       envStr("MINIO_BUCKET", "tts-audio"),
		minioUseSSL:       envBool("MINIO_USE_SSL", false),
		logDir:            envStr("LOG_DIR", "storage/logs"),
		requestLogDBURL:   envStr("REQUEST_LOG_DB_URL", ""),
		drainTimeout:      envDur("DRAIN_TIMEOUT", 30*time.Second),
		dashboardPush:     envDur("DASHBOARD_PUSH_INTERVAL", 2*time.Second),
	}
}

func envStr(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func envInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return b
}

func envDur(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return d
}
