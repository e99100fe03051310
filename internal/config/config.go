package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"building-lca/analyzer-backend/internal/catalog"
	"building-lca/analyzer-backend/internal/matching"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig    `json:"server"`
	Catalogs CatalogsConfig  `json:"catalogs"`
	Matching matching.Config `json:"matching"`
	Logging  LoggingConfig   `json:"logging"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

// CatalogsConfig describes the configured catalog sources. File-backed
// sources are a path; the remote API source is a base URL plus an optional
// credential.
type CatalogsConfig struct {
	ActiveSource     catalog.Source             `json:"active_source"`
	KBOBPath         string                     `json:"kbob_path"`
	OkobaudatCSVPath string                     `json:"okobaudat_csv_path"`
	CustomPath       string                     `json:"custom_path"`
	OkobaudatAPI     catalog.OkobaudatAPIConfig `json:"okobaudat_api"`
	RefreshSchedule  string                     `json:"refresh_schedule"`
}

// LoggingConfig
type LoggingConfig struct {
	Level string `json:"level"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// Default config
	config := &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Catalogs: CatalogsConfig{
			ActiveSource:    catalog.SourceKBOB,
			RefreshSchedule: "@hourly",
			OkobaudatAPI: catalog.OkobaudatAPIConfig{
				BaseURL: catalog.DefaultOkobaudatBaseURL,
				Timeout: 15 * time.Second,
			},
		},
		Matching: matching.DefaultConfig(),
		Logging:  LoggingConfig{Level: "info"},
	}

	// Load from file if exists
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Override with environment variables
	overrideWithEnv(config)

	return config, nil
}

func overrideWithEnv(config *Config) {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if source := os.Getenv("CATALOG_SOURCE"); source != "" {
		config.Catalogs.ActiveSource = catalog.Source(source)
	}
	if path := os.Getenv("KBOB_PATH"); path != "" {
		config.Catalogs.KBOBPath = path
	}
	if path := os.Getenv("OKOBAUDAT_CSV_PATH"); path != "" {
		config.Catalogs.OkobaudatCSVPath = path
	}
	if path := os.Getenv("CUSTOM_CATALOG_PATH"); path != "" {
		config.Catalogs.CustomPath = path
	}
	if url := os.Getenv("OKOBAUDAT_API_URL"); url != "" {
		config.Catalogs.OkobaudatAPI.BaseURL = url
	}
	if key := os.Getenv("OKOBAUDAT_API_KEY"); key != "" {
		config.Catalogs.OkobaudatAPI.APIKey = key
	}
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
