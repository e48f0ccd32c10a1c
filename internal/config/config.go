package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server       ServerConfig
	Gemini       GeminiConfig
	Quota        QuotaConfig
	Fetcher      FetcherConfig
	Orchestrator OrchestratorConfig
	Redis        RedisConfig
	Supabase     SupabaseConfig
	RabbitMQ     RabbitMQConfig
	Logging      LoggingConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	InternalKey  string
	AllowOrigins []string
}

type GeminiConfig struct {
	APIKey     string
	BaseURL    string
	APIVersion string
	Model      string
	Timeout    time.Duration
	RetryDelay time.Duration
	MaxRetries int
}

type QuotaConfig struct {
	DailyLimit    int
	Backend       string // "memory" or "redis"
	SweepInterval time.Duration
}

type FetcherConfig struct {
	Timeout      time.Duration
	MaxImageSize int64
	UserAgent    string
}

type OrchestratorConfig struct {
	VisionEnabled bool
	ImageDelay    time.Duration
	CacheResults  bool
	CacheDuration time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type SupabaseConfig struct {
	URL    string
	KEY    string
	BUCKET string
}

type RabbitMQConfig struct {
	URL   string
	Queue string
}

type LoggingConfig struct {
	Environment string
	File        string
	MaxSizeMB   int
	MaxBackups  int
	MaxAgeDays  int
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "3000"),
			ReadTimeout:  getDuration("READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDuration("WRITE_TIMEOUT", 5*time.Minute),
			InternalKey:  getEnv("INTERNAL_KEY", ""),
			AllowOrigins: getEnvAsSlice("CORS_ALLOW_ORIGINS", []string{"*"}),
		},
		Gemini: GeminiConfig{
			APIKey:     getEnv("GEMINI_API_KEY", ""),
			BaseURL:    getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
			APIVersion: getEnv("GEMINI_API_VERSION", "v1"),
			Model:      getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
			Timeout:    getDuration("GEMINI_TIMEOUT", 20*time.Second),
			RetryDelay: getDuration("GEMINI_RETRY_DELAY", 1200*time.Millisecond),
			MaxRetries: getEnvAsInt("GEMINI_MAX_RETRIES", 1),
		},
		Quota: QuotaConfig{
			DailyLimit:    getEnvAsInt("DAILY_IMAGE_LIMIT", 30),
			Backend:       strings.ToLower(getEnv("QUOTA_BACKEND", "memory")),
			SweepInterval: getDuration("QUOTA_SWEEP_INTERVAL", time.Hour),
		},
		Fetcher: FetcherConfig{
			Timeout:      getDuration("FETCH_TIMEOUT", 10*time.Second),
			MaxImageSize: getEnvAsInt64("MAX_IMAGE_SIZE", 10*1024*1024), // 10MB
			UserAgent:    getEnv("FETCH_USER_AGENT", defaultUserAgent),
		},
		Orchestrator: OrchestratorConfig{
			VisionEnabled: getEnvAsBool("VISION_ENABLED", true),
			ImageDelay:    getDuration("IMAGE_DELAY", 1200*time.Millisecond),
			CacheResults:  getEnvAsBool("CACHE_RESULTS", false),
			CacheDuration: getDuration("CACHE_DURATION", 24*time.Hour),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Supabase: SupabaseConfig{
			URL:    getEnv("SUPABASE_URL", ""),
			KEY:    getEnv("SUPABASE_KEY", ""),
			BUCKET: getEnv("SUPABASE_BUCKET", ""),
		},
		RabbitMQ: RabbitMQConfig{
			URL:   getEnv("RABBITMQ_URL", ""),
			Queue: getEnv("RABBITMQ_QUEUE", "alt_text_batches"),
		},
		Logging: LoggingConfig{
			Environment: getEnv("APP_ENV", "production"),
			File:        getEnv("LOG_FILE", ""),
			MaxSizeMB:   getEnvAsInt("LOG_MAX_SIZE_MB", 100),
			MaxBackups:  getEnvAsInt("LOG_MAX_BACKUPS", 10),
			MaxAgeDays:  getEnvAsInt("LOG_MAX_AGE_DAYS", 30),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate reports configuration that would make the service unusable.
func (c *Config) Validate() error {
	if c.Gemini.APIKey == "" {
		return errors.New("GEMINI_API_KEY is required")
	}
	if c.Quota.DailyLimit <= 0 {
		return errors.New("DAILY_IMAGE_LIMIT must be a positive integer")
	}
	if c.Gemini.MaxRetries < 0 {
		return errors.New("GEMINI_MAX_RETRIES must not be negative")
	}
	switch c.Quota.Backend {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return errors.New("QUOTA_BACKEND=redis requires REDIS_ADDR")
		}
	default:
		return errors.New("QUOTA_BACKEND must be memory or redis")
	}
	if c.Orchestrator.CacheResults && c.Redis.Addr == "" {
		return errors.New("CACHE_RESULTS requires REDIS_ADDR")
	}
	return nil
}

// IsDevelopment reports whether the service runs with development logging.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Logging.Environment)
	return env == "dev" || env == "development" || env == "local"
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsInt64(key string, defaultVal int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsSlice(key string, defaultVal []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultVal
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}
