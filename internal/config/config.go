package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	ServerPort string
	JWTSecret  string

	UploadDir      string
	StorageBackend string
	SupabaseURL    string
	SupabaseKey    string
	SupabaseBucket string
	MaxUploadMB    int64

	RedisAddr     string
	RedisPassword string

	BotToken       string
	BotAdminChatID int64
	WebhookBaseURL string
	WebhookSecret  string
	BotPollTimeout int

	AdminEmail    string
	AdminPassword string
}

// Load reads the environment, after merging a .env file when one exists.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[Config] .env not loaded: %v", err)
	}

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "quizzarium"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		ServerPort: getEnv("SERVER_PORT", "8080"),
		JWTSecret:  getEnv("JWT_SECRET", "super-secret-key-change-me"),

		UploadDir:      getEnv("UPLOAD_DIR", "./uploads"),
		StorageBackend: getEnv("STORAGE_BACKEND", "disk"),
		SupabaseURL:    getEnv("SUPABASE_URL", ""),
		SupabaseKey:    getEnv("SUPABASE_KEY", ""),
		SupabaseBucket: getEnv("SUPABASE_BUCKET", "quizzarium"),
		MaxUploadMB:    getEnvInt64("MAX_UPLOAD_MB", 100),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		BotToken:       getEnv("BOT_TOKEN", ""),
		BotAdminChatID: getEnvInt64("BOT_ADMIN_CHAT_ID", 0),
		WebhookBaseURL: getEnv("WEBHOOK_BASE_URL", ""),
		WebhookSecret:  getEnv("WEBHOOK_SECRET", ""),
		BotPollTimeout: int(getEnvInt64("BOT_POLL_TIMEOUT", 30)),

		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		log.Printf("[Config] invalid %s=%q, using %d", key, val, fallback)
		return fallback
	}
	return n
}
