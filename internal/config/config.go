package config

import (
	"os"
	"strconv"
	"time"

	"phaengine/domain/quantity"
	"phaengine/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Engine   EngineConfig
	Display  DisplayConfig
	Storage  StorageConfig
	Server   ServerConfig
	Paths    PathConfig
	LogLevel string
}

// EngineConfig holds the numeric tolerances handed to the engine.
type EngineConfig struct {
	ZeroThreshold     float64
	MatchPrecisionMin float64
	MatchPrecisionMax float64
	DefaultSigFigs    int
}

// DisplayConfig bounds the magnitudes printed in fixed notation. A zero
// bound is disabled.
type DisplayConfig struct {
	SciUpper float64
	SciLower float64
}

// StorageConfig selects the workspace store. DatabaseURL wins over
// SQLitePath when both are set.
type StorageConfig struct {
	DatabaseURL string
	SQLitePath  string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	ReloadDebounce time.Duration
}

// PathConfig holds file system paths
type PathConfig struct {
	UnitCatalog   string
	WorkspaceFile string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Engine:   loadEngineConfig(),
		Display:  loadDisplayConfig(),
		Storage:  loadStorageConfig(),
		Server:   loadServerConfig(),
		Paths:    loadPathConfig(),
		LogLevel: getEnvOrDefault("LOG_LEVEL", "INFO"),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadEngineConfig() EngineConfig {
	def := quantity.DefaultSettings()
	return EngineConfig{
		ZeroThreshold:     getEnvFloatOrDefault("ZERO_THRESHOLD", def.ZeroThreshold),
		MatchPrecisionMin: getEnvFloatOrDefault("MATCH_PRECISION_MIN", def.MatchPrecisionMin),
		MatchPrecisionMax: getEnvFloatOrDefault("MATCH_PRECISION_MAX", def.MatchPrecisionMax),
		DefaultSigFigs:    getEnvIntOrDefault("DEFAULT_SIG_FIGS", def.DefaultSigFigs),
	}
}

func loadDisplayConfig() DisplayConfig {
	return DisplayConfig{
		SciUpper: getEnvFloatOrDefault("SCI_UPPER", 1e6),
		SciLower: getEnvFloatOrDefault("SCI_LOWER", 1e-4),
	}
}

func loadStorageConfig() StorageConfig {
	return StorageConfig{
		DatabaseURL: getEnvOrDefault("DATABASE_URL", ""),
		SQLitePath:  getEnvOrDefault("SQLITE_PATH", ""),
	}
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:           getEnvOrDefault("PORT", "8080"),
		ReadTimeout:    getEnvDurationOrDefault("READ_TIMEOUT", 15*time.Second),
		ReloadDebounce: getEnvDurationOrDefault("RELOAD_DEBOUNCE", 250*time.Millisecond),
	}
}

func loadPathConfig() PathConfig {
	return PathConfig{
		UnitCatalog:   getEnvOrDefault("UNIT_CATALOG", ""),
		WorkspaceFile: getEnvOrDefault("WORKSPACE_FILE", ""),
	}
}

func validateConfig(config *Config) error {
	e := config.Engine
	if e.ZeroThreshold <= 0 {
		return errors.ConfigInvalid("ZERO_THRESHOLD must be positive")
	}
	if e.MatchPrecisionMin >= 1 || e.MatchPrecisionMax <= 1 {
		return errors.ConfigInvalid("MATCH_PRECISION_MIN must be below 1 and MATCH_PRECISION_MAX above 1")
	}
	if e.DefaultSigFigs < 1 {
		return errors.ConfigInvalid("DEFAULT_SIG_FIGS must be at least 1")
	}
	d := config.Display
	if d.SciUpper > 0 && d.SciLower > 0 && d.SciLower >= d.SciUpper {
		return errors.ConfigInvalid("SCI_LOWER must be below SCI_UPPER")
	}
	return nil
}

// Settings converts the engine section into engine settings.
func (c *Config) Settings() quantity.Settings {
	return quantity.Settings{
		ZeroThreshold:     c.Engine.ZeroThreshold,
		MatchPrecisionMin: c.Engine.MatchPrecisionMin,
		MatchPrecisionMax: c.Engine.MatchPrecisionMax,
		DefaultSigFigs:    c.Engine.DefaultSigFigs,
	}
}

// SciBounds returns the display bounds, nil where disabled.
func (c *Config) SciBounds() (upper, lower *float64) {
	if c.Display.SciUpper > 0 {
		u := c.Display.SciUpper
		upper = &u
	}
	if c.Display.SciLower > 0 {
		l := c.Display.SciLower
		lower = &l
	}
	return upper, lower
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
