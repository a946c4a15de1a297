// Copyright 2020 Daniel Erat <dan@erat.org>.
// All rights reserved.

// Package config loads the YAML configuration shared by the dashboard and infplot.
package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/derat/covidtraj/infect"
	"github.com/derat/covidtraj/owid"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultDataset           = "data/owid-covid-data.csv"
	DefaultHTTPPort          = 8050
	DefaultRefreshInterval   = 6 * time.Hour
	DefaultBroadcastInterval = 30 * time.Second
)

// Config is the top-level configuration.
type Config struct {
	Model   ModelConfig   `yaml:"model"`
	Dataset DatasetConfig `yaml:"dataset"`
	Server  ServerConfig  `yaml:"server"`
	Cache   CacheConfig   `yaml:"cache"`
}

// ModelConfig holds the published duration estimates used to build infect.Params.
type ModelConfig struct {
	MeanRecovery float64 `yaml:"mean_recovery"` // days
	CVRecovery   float64 `yaml:"cv_recovery"`
	MeanDeath    float64 `yaml:"mean_death"` // days
	CVDeath      float64 `yaml:"cv_death"`
	IFR          float64 `yaml:"ifr"` // infection-fatality ratio δ

	// Horizon is the length of the survival table in days.
	Horizon int `yaml:"horizon"`
}

// Params returns the model's infect.Params.
func (m ModelConfig) Params() infect.Params {
	return infect.ParamsFromMeans(m.MeanRecovery, m.CVRecovery, m.MeanDeath, m.CVDeath, m.IFR)
}

// DatasetConfig describes where the OWID dataset comes from.
type DatasetConfig struct {
	// Location is a local path, an http(s) URL or an s3://bucket/key URL.
	Location string `yaml:"source"`

	// Watch reloads a local Location whenever the file changes.
	Watch bool `yaml:"watch"`

	// RefreshInterval controls how often a remote Location is refetched.
	// Zero disables refetching.
	RefreshInterval time.Duration `yaml:"refresh_interval"`

	S3 S3Config `yaml:"s3"`
}

// S3Config holds settings for s3:// sources.
type S3Config struct {
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`

	// KeyIDEnv and SecretEnv name environment variables holding static credentials.
	// The default AWS credential chain is used if they're unset.
	KeyIDEnv  string `yaml:"key_id_env"`
	SecretEnv string `yaml:"secret_env"`
}

// Source returns the owid.Source described by d.
func (d DatasetConfig) Source() owid.Source {
	src := owid.Source{
		Location:    d.Location,
		S3Region:    d.S3.Region,
		S3Endpoint:  d.S3.Endpoint,
		S3PathStyle: d.S3.PathStyle,
	}
	if d.S3.KeyIDEnv != "" {
		src.S3AccessKeyID = os.Getenv(d.S3.KeyIDEnv)
	}
	if d.S3.SecretEnv != "" {
		src.S3SecretKey = os.Getenv(d.S3.SecretEnv)
	}
	return src
}

// ServerConfig holds dashboard settings.
type ServerConfig struct {
	HTTPPort int `yaml:"http_port"`

	// BroadcastInterval controls how often the current dataset status is pushed
	// to connected WebSocket clients.
	BroadcastInterval time.Duration `yaml:"broadcast_interval"`

	// Workers is the number of locations estimated concurrently.
	Workers int `yaml:"workers"`
}

// CacheConfig configures the estimate cache.
type CacheConfig struct {
	// Path is the SQLite database file. Empty disables caching.
	Path string `yaml:"path"`
}

// Default returns a Config pre-populated with default values.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			MeanRecovery: infect.DefaultMeanRecovery,
			CVRecovery:   infect.DefaultCVRecovery,
			MeanDeath:    infect.DefaultMeanDeath,
			CVDeath:      infect.DefaultCVDeath,
			IFR:          infect.DefaultIFR,
			Horizon:      infect.DefaultHorizon,
		},
		Dataset: DatasetConfig{
			Location:        DefaultDataset,
			RefreshInterval: DefaultRefreshInterval,
		},
		Server: ServerConfig{
			HTTPPort:          DefaultHTTPPort,
			BroadcastInterval: DefaultBroadcastInterval,
			Workers:           runtime.NumCPU(),
		},
	}
}

// Load reads and parses the YAML config file at path.
// Missing fields are filled with defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Validate checks required fields and structural constraints.
func (cfg *Config) Validate() error {
	if err := cfg.Model.Params().Validate(); err != nil {
		return fmt.Errorf("model: %w", err)
	}
	if cfg.Model.Horizon < 1 {
		return fmt.Errorf("model.horizon must be positive")
	}
	if cfg.Dataset.Location == "" {
		return fmt.Errorf("dataset.source is required")
	}
	if cfg.Dataset.RefreshInterval < 0 {
		return fmt.Errorf("dataset.refresh_interval must not be negative")
	}
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d out of range", cfg.Server.HTTPPort)
	}
	if cfg.Server.BroadcastInterval <= 0 {
		return fmt.Errorf("server.broadcast_interval must be positive")
	}
	if cfg.Server.Workers <= 0 {
		return fmt.Errorf("server.workers must be positive")
	}
	return nil
}
