// Package config provides process-level settings for the stackd binary
// (Task 1.2). Settings cover the tool itself — logging, default manifest
// path, client target — never distribution content; distributions live in
// their manifests.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Settings holds runtime configuration for the stackd process.
type Settings struct {
	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level"`    // STACKD_LOG_LEVEL — default: "info"
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format"` // STACKD_LOG_FORMAT — default: "console"
	Manifest  string `json:"manifest" yaml:"manifest" toml:"manifest"`       // STACKD_MANIFEST — default: "run.yaml"
	BaseURL   string `json:"base_url" yaml:"base_url" toml:"base_url"`       // STACKD_BASE_URL — default: "http://localhost:8321"
}

const (
	envKeyLogLevel  = "STACKD_LOG_LEVEL"
	envKeyLogFormat = "STACKD_LOG_FORMAT"
	envKeyManifest  = "STACKD_MANIFEST"
	envKeyBaseURL   = "STACKD_BASE_URL"
)

// Load reads configuration from environment variables, applying defaults
// for missing values.
func Load() Settings {
	return Settings{
		LogLevel:  envOr(envKeyLogLevel, "info"),
		LogFormat: envOr(envKeyLogFormat, "console"),
		Manifest:  envOr(envKeyManifest, "run.yaml"),
		BaseURL:   envOr(envKeyBaseURL, "http://localhost:8321"),
	}
}

// LoadFile reads a settings file based on its extension and fills missing
// fields from environment defaults.
// Supports: .yaml/.yml, .json, .toml
func LoadFile(path string) (Settings, error) {
	cfg := Load()
	if path == "" {
		return cfg, fmt.Errorf("empty settings path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported settings extension: %s", ext)
	}
	return cfg, nil
}

// LoadEnvFile loads variables from a dotenv file without overriding
// variables already present in the environment. Called before manifest
// resolution so ${env...} references can come from the file.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

// envOr returns the value of the environment variable key, or fallback if not set.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
