package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port         int
	LogLevel     string
	APIKey       string
	GroqAPIKey   string
	GroqModel    string
	CollectorURL string
	DatabaseURL  string
	NatsURL      string
	NatsToken    string

	// Engagement policy overrides. Zero means "use the default".
	EngagementWindowTurns int
	MinTurnsBeforeStop    int
	MaxTurns              int
}

func Load() Config {
	// A local .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	return Config{
		Port:         envInt("PORT", 8080),
		LogLevel:     envStr("LOG_LEVEL", "info"),
		APIKey:       envStr("TRAPLINE_API_KEY", ""),
		GroqAPIKey:   envStr("GROQ_API_KEY", ""),
		GroqModel:    envStr("GROQ_MODEL", "llama-3.3-70b-versatile"),
		CollectorURL: envStr("COLLECTOR_URL", "https://hackathon.guvi.in/api/updateHoneyPotFinalResult"),
		DatabaseURL:  envStr("DATABASE_URL", ""),
		NatsURL:      envStr("NATS_URL", ""),
		NatsToken:    envStr("NATS_TOKEN", ""),

		EngagementWindowTurns: envInt("TRAPLINE_ENGAGEMENT_WINDOW", 0),
		MinTurnsBeforeStop:    envInt("TRAPLINE_MIN_TURNS", 0),
		MaxTurns:              envInt("TRAPLINE_MAX_TURNS", 0),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
