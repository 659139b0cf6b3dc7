package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// JWT
	JWTSecret string

	// Registration throttle (accounts per IP per day)
	RegistersPerDay int

	// Session tracking
	EphemeralProjectPrefix string
	SweepIntervalSeconds   int
	FlushWorkers           int

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:            getEnvOrDefault("PORT", "8080"),
		Env:             getEnvOrDefault("ENV", "development"),
		DatabaseURL:     mustGetEnv("DATABASE_URL"),
		RedisURL:        mustGetEnv("REDIS_URL"),
		JWTSecret:       mustGetEnv("JWT_SECRET"),
		RegistersPerDay: getEnvAsIntOrDefault("REGISTERS_PER_DAY", 3),

		EphemeralProjectPrefix: getEnvOrDefault("EPHEMERAL_PROJECT_PREFIX", "tmp."),
		SweepIntervalSeconds:   getEnvAsIntOrDefault("SWEEP_INTERVAL_SECONDS", 60),
		FlushWorkers:           getEnvAsIntOrDefault("FLUSH_WORKERS", 4),

		FrontendURL: getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	return cfg
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
