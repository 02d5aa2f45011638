// Package config loads client configuration from an optional YAML file with
// environment variable overrides on top.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	API      APIConfig      `yaml:"api"`
	Location LocationConfig `yaml:"location"`
	Storage  StorageConfig  `yaml:"storage"`
}

type APIConfig struct {
	// BaseURL includes the /api/v1 prefix.
	BaseURL string `yaml:"base_url"`
	// Timeout is the transport-level request timeout.
	Timeout time.Duration `yaml:"timeout"`
}

type LocationConfig struct {
	// UploadInterval gates how often a position sample is sent upstream.
	UploadInterval time.Duration `yaml:"upload_interval"`
	// MinDisplacementMeters uploads early when the courier has moved at
	// least this far since the last upload.
	MinDisplacementMeters float64 `yaml:"min_displacement_meters"`
	// SampleInterval is how often the position source is polled.
	SampleInterval time.Duration `yaml:"sample_interval"`
}

type StorageConfig struct {
	// Path is the SQLite device-store location.
	Path string `yaml:"path"`
}

func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8080/api/v1",
			Timeout: 30 * time.Second,
		},
		Location: LocationConfig{
			UploadInterval:        10 * time.Second,
			MinDisplacementMeters: 10,
			SampleInterval:        2 * time.Second,
		},
		Storage: StorageConfig{
			Path: filepath.Join(home, ".shivdhaba", "app.db"),
		},
	}
}

// Load reads path if it exists, then applies env overrides. A missing file
// is not an error; defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DELIVERY_API_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("DELIVERY_API_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.API.Timeout = d
		}
	}
	if v := os.Getenv("DELIVERY_LOCATION_UPLOAD_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Location.UploadInterval = d
		}
	}
	if v := os.Getenv("DELIVERY_LOCATION_MIN_DISPLACEMENT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Location.MinDisplacementMeters = f
		}
	}
	if v := os.Getenv("DELIVERY_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}
}

func (c *Config) validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url must not be empty")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}
	if c.Location.UploadInterval <= 0 {
		return fmt.Errorf("location.upload_interval must be positive")
	}
	if c.Location.MinDisplacementMeters < 0 {
		return fmt.Errorf("location.min_displacement_meters must not be negative")
	}
	return nil
}
