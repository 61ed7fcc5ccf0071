package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"auto-replier-be/internal/constant"

	"github.com/joho/godotenv"
)

type Config struct {
	App    AppConfig
	Model  ModelConfig
	Google GoogleConfig
	Bus    BusConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	BusLogFilePath     string
	CorsAllowedOrigins string
	OtelEnabled        bool
}

type ModelConfig struct {
	Name            string
	ProbeInterval   time.Duration
	ProbeTimeout    time.Duration
	GenerateTimeout time.Duration
	GenerateCeiling time.Duration
	BridgePort      string
	CandidatesFile  string // empty uses draft.DefaultCandidates
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	GmailBaseURL string
}

type BusConfig struct {
	NatsURL   string // empty disables the NATS mirror
	RedisURL  string // empty disables cross-instance fan-out
	JWTSecret string // empty leaves the bus open
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "4100"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			BusLogFilePath:     getEnv("BUS_LOG_FILE_PATH", "bus.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			OtelEnabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
		Model: ModelConfig{
			Name:            getEnv("LLM_MODEL", constant.DefaultModel),
			ProbeInterval:   getEnvAsSeconds("PROBE_INTERVAL_SECONDS", constant.DefaultProbeInterval),
			ProbeTimeout:    getEnvAsSeconds("PROBE_TIMEOUT_SECONDS", constant.DefaultProbeTimeout),
			GenerateTimeout: getEnvAsSeconds("GENERATE_TIMEOUT_SECONDS", constant.DefaultGenerateTimeout),
			GenerateCeiling: getEnvAsSeconds("GENERATE_CEILING_SECONDS", constant.DefaultGenerateCeiling),
			BridgePort:      getEnv("BRIDGE_PORT", "5000"),
			CandidatesFile:  getEnv("MODEL_CANDIDATES_FILE", ""),
		},
		Google: GoogleConfig{
			ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			RefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),
			GmailBaseURL: getEnv("GMAIL_API_BASE_URL", "https://www.googleapis.com"),
		},
		Bus: BusConfig{
			NatsURL:   getEnv("NATS_URL", ""),
			RedisURL:  getEnv("REDIS_URL", ""),
			JWTSecret: getEnv("BUS_JWT_SECRET", ""),
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

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsSeconds reads a whole number of seconds. Non-positive values fall back.
func getEnvAsSeconds(key string, fallback time.Duration) time.Duration {
	n := getEnvAsInt(key, 0)
	if n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}
