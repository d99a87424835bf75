package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"ctsim/domain/trial"
	"ctsim/internal"
	"ctsim/internal/errors"

	"github.com/go-playground/validator/v10"
)

// Config represents the complete application configuration
type Config struct {
	Simulation SimulationConfig
	Server     ServerConfig
	Output     OutputConfig
	Log        LogConfig
}

// SimulationConfig holds batch defaults and limits
type SimulationConfig struct {
	NumTrials   int     `validate:"gte=0"`
	SampleSize  int     `validate:"gt=0"`
	EffectSize  float64 `validate:"finite"`
	DropoutRate float64 `validate:"gte=0,lt=1"`
	Seed        int64   // 0 draws a fresh seed per batch
	Workers     int     `validate:"gte=0"` // 0 selects GOMAXPROCS
	Alpha       float64 `validate:"gt=0,lt=1"`
	Test        string  `validate:"oneof=student welch student_t welch_t"`
	MaxTrials   int     `validate:"gte=0"`
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port                 string        `validate:"required,numeric"`
	GinMode              string        `validate:"oneof=debug release test"`
	MaxConcurrentBatches int           `validate:"gte=1"`
	RequestTimeout       time.Duration `validate:"gt=0"`
}

// OutputConfig holds export settings
type OutputConfig struct {
	File string `validate:"omitempty,exportpath"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `validate:"omitempty,loglevel"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("exportpath", func(fl validator.FieldLevel) bool {
		switch strings.ToLower(filepath.Ext(fl.Field().String())) {
		case ".xlsx", ".csv":
			return true
		}
		return false
	})
	_ = v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	})
	_ = v.RegisterValidation("loglevel", func(fl validator.FieldLevel) bool {
		_, ok := internal.ParseLogLevel(fl.Field().String())
		return ok
	})
	return v
}

// Load reads configuration from environment variables and validates it.
// Call godotenv.Load first to pick up a .env file.
func Load() (*Config, error) {
	config := &Config{
		Simulation: loadSimulationConfig(),
		Server:     loadServerConfig(),
		Output:     loadOutputConfig(),
		Log:        loadLogConfig(),
	}

	if err := Validate(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

// Validate checks every section's constraints
func Validate(config *Config) error {
	if err := validate.Struct(config); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return errors.ConfigInvalid(fmt.Sprintf("%s fails %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
		}
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	return nil
}

// TrialConfig returns the per-trial parameters
func (s SimulationConfig) TrialConfig() trial.Config {
	return trial.Config{
		SampleSize:  s.SampleSize,
		EffectSize:  s.EffectSize,
		DropoutRate: s.DropoutRate,
	}
}

// SeedPtr returns nil when no fixed seed is configured
func (s SimulationConfig) SeedPtr() *int64 {
	if s.Seed == 0 {
		return nil
	}
	seed := s.Seed
	return &seed
}

func loadSimulationConfig() SimulationConfig {
	return SimulationConfig{
		NumTrials:   getEnvIntOrDefault("SIM_NUM_TRIALS", 1000),
		SampleSize:  getEnvIntOrDefault("SIM_SAMPLE_SIZE", 50),
		EffectSize:  getEnvFloatOrDefault("SIM_EFFECT_SIZE", 0.5),
		DropoutRate: getEnvFloatOrDefault("SIM_DROPOUT_RATE", 0.1),
		Seed:        getEnvInt64OrDefault("SIM_SEED", 0),
		Workers:     getEnvIntOrDefault("SIM_WORKERS", 0),
		Alpha:       getEnvFloatOrDefault("SIM_ALPHA", trial.DefaultAlpha),
		Test:        getEnvOrDefault("SIM_TEST", "student"),
		MaxTrials:   getEnvIntOrDefault("SIM_MAX_TRIALS", 1_000_000),
	}
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:                 getEnvOrDefault("PORT", "8080"),
		GinMode:              getEnvOrDefault("GIN_MODE", "release"),
		MaxConcurrentBatches: getEnvIntOrDefault("MAX_CONCURRENT_BATCHES", 2),
		RequestTimeout:       getEnvDurationOrDefault("REQUEST_TIMEOUT", 2*time.Minute),
	}
}

func loadOutputConfig() OutputConfig {
	return OutputConfig{
		File: getEnvOrDefault("OUTPUT_FILE", ""),
	}
}

func loadLogConfig() LogConfig {
	return LogConfig{
		Level: getEnvOrDefault("LOG_LEVEL", "INFO"),
	}
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
