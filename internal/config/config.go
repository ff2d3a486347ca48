package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App     AppConfig
	Backend BackendConfig
	Chat    ChatConfig
	Store   StoreConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	OtelEnabled        bool
	OtelEndpoint       string
}

type BackendConfig struct {
	BaseURL   string
	ProbePath string
	Timeout   time.Duration
}

type ChatConfig struct {
	Language       string
	PollInterval   time.Duration
	PollTimeout    time.Duration
	MaxUploadBytes int64
	TitleMaxLength int
}

type StoreConfig struct {
	Snapshot     string // "memory" | "redis"
	SnapshotTTL  time.Duration
	WorkspaceTTL time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/docchat.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			OtelEnabled:        getEnv("OTEL_ENABLED", "false") == "true",
			OtelEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
		Backend: BackendConfig{
			BaseURL:   getEnv("BACKEND_BASE_URL", "http://localhost:8000"),
			ProbePath: getEnv("BACKEND_PROBE_PATH", "/profile"),
			Timeout:   time.Duration(getEnvAsInt("BACKEND_TIMEOUT_SECONDS", 60)) * time.Second,
		},
		Chat: ChatConfig{
			Language:       getEnv("CHAT_LANGUAGE", "en-US"),
			PollInterval:   time.Duration(getEnvAsInt("POLL_INTERVAL_SECONDS", 2)) * time.Second,
			PollTimeout:    time.Duration(getEnvAsInt("POLL_TIMEOUT_SECONDS", 30)) * time.Second,
			MaxUploadBytes: int64(getEnvAsInt("MAX_UPLOAD_BYTES", 10*1024*1024)),
			TitleMaxLength: getEnvAsInt("TITLE_MAX_LENGTH", 50),
		},
		Store: StoreConfig{
			Snapshot:     getEnv("SNAPSHOT_STORE", "memory"),
			SnapshotTTL:  time.Duration(getEnvAsInt("SNAPSHOT_TTL_MINUTES", 12*60)) * time.Minute,
			WorkspaceTTL: time.Duration(getEnvAsInt("WORKSPACE_TTL_MINUTES", 12*60)) * time.Minute,
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}
