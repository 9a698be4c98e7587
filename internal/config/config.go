// Package config reads runtime settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/neo/personasim/internal/logging"
	"github.com/neo/personasim/internal/reasoning"
	"github.com/neo/personasim/internal/sink"
	"github.com/neo/personasim/internal/types"
)

var (
	ErrMissingAPIKey = errors.New("OPENAI_API_KEY is not set in the environment variables")
	ErrInvalidValue  = errors.New("invalid configuration value")
)

// Config holds every setting the commands need
type Config struct {
	Env string

	// Text generation
	OpenAIKey           string
	OpenAIBaseURL       string
	Model               string
	RecommendationModel string
	Backend             types.ReasoningBackend
	RequestsPerSecond   float64 // 0 disables client-side rate limiting

	// Persistence
	SinkKind      types.SinkKind
	SupabaseURL   string
	SupabaseKey   string
	SupabaseTable string
	DatabasePath  string
	OutputDir     string

	// Simulation
	PersonasPath  string
	MaxIterations int
	TargetRating  float64

	// Server and logging
	Port     string
	LogLevel logging.LogLevel
	LogFile  string
}

// Load reads envFile (if present) and the environment. A missing file is
// not an error; values already in the environment win over the file.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
		logging.Debug("No env file found, using environment only", map[string]interface{}{"file": envFile})
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Env:                 getEnv("APP_ENV", "development"),
		OpenAIKey:           os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:       os.Getenv("OPENAI_BASE_URL"),
		Model:               getEnv("OPENAI_MODEL", reasoning.DefaultModel),
		RecommendationModel: getEnv("RECOMMENDATION_MODEL", reasoning.DefaultRecommendationModel),
		SupabaseURL:         os.Getenv("SUPABASE_URL"),
		SupabaseKey:         os.Getenv("SUPABASE_KEY"),
		SupabaseTable:       getEnv("SUPABASE_TABLE", sink.DefaultTable),
		DatabasePath:        getEnv("DATABASE_PATH", "data/personasim.db"),
		OutputDir:           getEnv("OUTPUT_DIR", "output"),
		PersonasPath:        getEnv("PERSONAS_PATH", "personas.json"),
		Port:                getEnv("PORT", "8080"),
		LogLevel:            logging.ParseLevel(getEnv("LOG_LEVEL", "INFO")),
		LogFile:             os.Getenv("LOG_FILE"),
	}

	var err error
	if cfg.Backend, err = types.ParseBackend(getEnv("REASONING_BACKEND", string(types.BackendOpenAI))); err != nil {
		return nil, fmt.Errorf("%w: REASONING_BACKEND: %v", ErrInvalidValue, err)
	}
	if cfg.SinkKind, err = types.ParseSinkKind(getEnv("SINK", string(types.SinkAuto))); err != nil {
		return nil, fmt.Errorf("%w: SINK: %v", ErrInvalidValue, err)
	}
	if cfg.MaxIterations, err = getEnvInt("MAX_ITERATIONS", 10); err != nil {
		return nil, err
	}
	if cfg.TargetRating, err = getEnvFloat("TARGET_RATING", 0.8); err != nil {
		return nil, err
	}
	if cfg.RequestsPerSecond, err = getEnvFloat("OPENAI_RPS", 0); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RequireAPIKey fails when no OpenAI key is configured
func (c *Config) RequireAPIKey() error {
	if c.OpenAIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// HasSupabase reports whether remote datastore credentials are present
func (c *Config) HasSupabase() bool {
	return c.SupabaseURL != "" && c.SupabaseKey != ""
}

// OpenAI returns completer options for model
func (c *Config) OpenAI(model string) reasoning.OpenAIOptions {
	return reasoning.OpenAIOptions{
		APIKey:  c.OpenAIKey,
		Model:   model,
		BaseURL: c.OpenAIBaseURL,
	}
}

// REST returns the remote datastore settings
func (c *Config) REST() sink.RESTConfig {
	return sink.RESTConfig{
		URL:   c.SupabaseURL,
		Key:   c.SupabaseKey,
		Table: c.SupabaseTable,
	}
}

// IsProduction reports whether APP_ENV is production
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Validate checks ranges that the environment cannot express
func (c *Config) Validate() error {
	if c.MaxIterations < 1 {
		return fmt.Errorf("%w: MAX_ITERATIONS must be at least 1, got %d", ErrInvalidValue, c.MaxIterations)
	}
	if c.TargetRating <= 0 || c.TargetRating > 1 {
		return fmt.Errorf("%w: TARGET_RATING must be in (0, 1], got %g", ErrInvalidValue, c.TargetRating)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: OPENAI_RPS must not be negative, got %g", ErrInvalidValue, c.RequestsPerSecond)
	}
	if c.SinkKind == types.SinkREST && !c.HasSupabase() {
		return fmt.Errorf("%w: SUPABASE_URL and SUPABASE_KEY are required for the rest sink", ErrInvalidValue)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidValue, key, v)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not a number", ErrInvalidValue, key, v)
	}
	return f, nil
}
