package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	API          APIConfig
	Limits       LimitsConfig
	RateLimit    RateLimitConfig
	Capabilities CapabilityConfig
	Telemetry    TelemetryConfig
}

type APIConfig struct {
	Addr    string
	TempDir string
}

type LimitsConfig struct {
	MaxFileBytes   int64 // CLI ceiling
	MaxUploadBytes int64 // HTTP ceiling, stricter because uploads are untrusted
}

type RateLimitConfig struct {
	PerMinute     int
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

type CapabilityConfig struct {
	FontFile       string // TTF override for watermark/meme text
	CascadeFile    string // Haar cascade XML for face detection
	RembgBin       string
	BrowserBin     string
	BrowserTimeout time.Duration
}

type TelemetryConfig struct {
	Exporter     string
	OTLPEndpoint string
	OTLPInsecure bool
}

func Load() Config {
	return Config{
		API: APIConfig{
			Addr:    env("GIMG_API_ADDR", ":8080"),
			TempDir: env("GIMG_TMP_DIR", os.TempDir()),
		},
		Limits: LimitsConfig{
			MaxFileBytes:   envInt64("GIMG_MAX_FILE_BYTES", 50*1024*1024),
			MaxUploadBytes: envInt64("GIMG_MAX_UPLOAD_BYTES", 20*1024*1024),
		},
		RateLimit: RateLimitConfig{
			PerMinute:     envInt("GIMG_RATE_LIMIT_PER_MINUTE", 30),
			RedisAddr:     env("REDIS_ADDR", ""),
			RedisPassword: env("REDIS_PASSWORD", ""),
			RedisDB:       envInt("REDIS_DB", 0),
		},
		Capabilities: CapabilityConfig{
			FontFile:       env("GIMG_FONT_FILE", ""),
			CascadeFile:    env("GIMG_CASCADE_FILE", "haarcascade_frontalface_default.xml"),
			RembgBin:       env("GIMG_REMBG_BIN", "rembg"),
			BrowserBin:     env("GIMG_BROWSER_BIN", ""),
			BrowserTimeout: envDuration("GIMG_BROWSER_TIMEOUT", 30*time.Second),
		},
		Telemetry: TelemetryConfig{
			Exporter:     env("GIMG_TRACE_EXPORTER", "none"),
			OTLPEndpoint: env("GIMG_OTLP_ENDPOINT", ""),
			OTLPInsecure: envBool("GIMG_OTLP_INSECURE", false),
		},
	}
}

func env(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	return value
}

func envInt(key string, fallback int) int {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envInt64(key string, fallback int64) int64 {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func envBool(key string, fallback bool) bool {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envDuration(key string, fallback time.Duration) time.Duration {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
