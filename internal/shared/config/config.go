package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds worker configuration.
type Config struct {
	Env         string
	DatabaseURL string
	LogLevel    string

	OpenAIAPIKey string
	GeminiAPIKey string

	BatchSize        int
	MaxWorkers       int
	AnalysisInterval time.Duration
	ErrorBackoff     time.Duration
	DryRun           bool

	CacheTTL      time.Duration
	ImageMaxBytes int
	PricingFile   string

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	AzureAccount    string
	AzureKey        string
	AzureContainer  string

	AlertSink     string
	AlertQueueURL string
	NATSURL       string
	AlertSubject  string

	OpsAddr string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Env:              env,
		DatabaseURL:      dbURL,
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		BatchSize:        getEnvInt("BATCH_SIZE", 10),
		MaxWorkers:       getEnvInt("MAX_WORKERS", 5),
		AnalysisInterval: time.Duration(getEnvInt("ANALYSIS_INTERVAL_MINUTES", 30)) * time.Minute,
		ErrorBackoff:     time.Duration(getEnvInt("ERROR_BACKOFF_SECONDS", 60)) * time.Second,
		DryRun:           getEnvBool("DRY_RUN", false),
		CacheTTL:         time.Duration(getEnvInt("CACHE_TTL_HOURS", 24)) * time.Hour,
		ImageMaxBytes:    getEnvInt("IMAGE_MAX_KB", 25) * 1024,
		PricingFile:      getEnv("PRICING_FILE", ""),
		ObjectStoreType:  normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:    getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:        getEnv("AWS_REGION", ""),
		S3Bucket:         getEnv("S3_BUCKET", ""),
		S3Prefix:         getEnv("S3_PREFIX", ""),
		AzureAccount:     getEnv("AZURE_STORAGE_ACCOUNT", ""),
		AzureKey:         getEnv("AZURE_STORAGE_KEY", ""),
		AzureContainer:   getEnv("AZURE_CONTAINER", "spypoint-images"),
		AlertSink:        normalizeAlertSink(getEnv("ALERT_SINK", "none")),
		AlertQueueURL:    getEnv("ALERT_SQS_QUEUE_URL", ""),
		NATSURL:          getEnv("NATS_URL", "nats://127.0.0.1:4222"),
		AlertSubject:     getEnv("ALERT_SUBJECT", "rancheye.alerts"),
		OpsAddr:          getEnv("OPS_ADDR", ""),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val <= 0 {
		log.Printf("config %s invalid positive int %q; using %d", key, raw, def)
		return def
	}
	return val
}

func getEnvBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return val
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "azblob", "azure":
		return "azblob"
	default:
		return "local"
	}
}

func normalizeAlertSink(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sqs":
		return "sqs"
	case "nats":
		return "nats"
	default:
		return "none"
	}
}
