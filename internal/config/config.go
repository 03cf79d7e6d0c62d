package config

import (
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Config stores runtime configuration loaded from environment variables.
type Config struct {
	Port              string
	PingMessage       string
	GroqKey           string
	GroqEndpoint      string
	GroqModel         string
	Database          string
	CORSAllowedOrigin string
}

// Load reads configuration from the environment, providing sensible defaults.
// GroqKey may be empty; question generation reports its own configuration
// error in that case.
func Load() Config {
	// Load .env file if it exists (useful for development)
	_ = godotenv.Load()
	cfg := Config{
		Port:              getEnv("PORT", "8080"),
		PingMessage:       getEnv("PING_MESSAGE", "ping"),
		GroqKey:           os.Getenv("GROQ_API_KEY"),
		GroqEndpoint:      getEnv("GROQ_API_ENDPOINT", "https://api.groq.com/openai/v1"),
		GroqModel:         getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
		Database:          getEnv("DATABASE_PATH", "./data/studyprep.db"),
		CORSAllowedOrigin: getEnv("CORS_ALLOWED_ORIGIN", "*"),
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database), 0o755); err != nil {
		log.Fatalf("failed to ensure database dir %s: %v", cfg.Database, err)
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}
