// Package config provides configuration for the pipeline backend.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the backend configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Database
	DatabaseURL string

	// Checkpoints
	CheckpointDir string

	// WebSocket settings
	APIToken       string
	MaxMessageSize int64
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	PingInterval   time.Duration

	// Pipeline defaults
	ScoreThreshold int
	MaxJobs        int
	HITLTimeout    time.Duration
	StepTimeout    time.Duration

	// Local collaborators
	ProfilePath  string
	TailorOutDir string

	// Scheduling
	SearchCron  string
	SearchQuery string

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		HTTPPort:       getEnvInt("HTTP_PORT", 8080),
		DatabaseURL:    getEnv("DATABASE_URL", "file:jobstream.db?cache=shared&mode=rwc"),
		CheckpointDir:  getEnv("CHECKPOINT_DIR", "checkpoints"),
		APIToken:       getEnv("API_TOKEN", ""),
		MaxMessageSize: int64(getEnvInt("MAX_MESSAGE_SIZE", 65536)),
		ReadTimeout:    time.Duration(getEnvInt("READ_TIMEOUT_MS", 60000)) * time.Millisecond,
		WriteTimeout:   time.Duration(getEnvInt("WRITE_TIMEOUT_MS", 10000)) * time.Millisecond,
		PingInterval:   time.Duration(getEnvInt("PING_INTERVAL_MS", 30000)) * time.Millisecond,
		ScoreThreshold: getEnvInt("SCORE_THRESHOLD", 70),
		MaxJobs:        getEnvInt("MAX_JOBS", 10),
		HITLTimeout:    time.Duration(getEnvInt("HITL_TIMEOUT_MS", 600000)) * time.Millisecond,
		StepTimeout:    time.Duration(getEnvInt("STEP_TIMEOUT_MS", 120000)) * time.Millisecond,
		ProfilePath:    getEnv("PROFILE_PATH", ""),
		TailorOutDir:   getEnv("TAILOR_OUT_DIR", "tailored"),
		SearchCron:     getEnv("SEARCH_CRON", ""),
		SearchQuery:    getEnv("SEARCH_QUERY", ""),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
