package server

import "time"

// Config holds server configuration
type Config struct {
	Port           string
	Env            string   // development exposes error details in responses
	AllowedOrigins []string // empty allows any origin
	ShutdownGrace  time.Duration
	StatsTTL       time.Duration // how long /api/stats answers are reused
}

// DefaultConfig returns settings for local use
func DefaultConfig() Config {
	return Config{
		Port:          "8080",
		Env:           "development",
		ShutdownGrace: 10 * time.Second,
		StatsTTL:      10 * time.Second,
	}
}

func (c Config) isDevelopment() bool {
	return c.Env == "development"
}
