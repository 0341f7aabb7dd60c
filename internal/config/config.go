package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server" envconfig:"SERVER"`
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
	Paths   PathsConfig   `yaml:"paths" envconfig:"PATHS"`
	Report  ReportConfig  `yaml:"report" envconfig:"REPORT"`
}

// ServerConfig contains HTTP server configuration for the site server
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" validate:"gt=0,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps" envconfig:"RATE_LIMIT_RPS"`
	RateLimitBurst  int           `yaml:"rate_limit_burst" envconfig:"RATE_LIMIT_BURST"`
	LiveReload      bool          `yaml:"live_reload" envconfig:"LIVE_RELOAD"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Format   string `yaml:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	DataDir   string `yaml:"data_dir" envconfig:"DATA_DIR"`
	SiteDir   string `yaml:"site_dir" envconfig:"SITE_DIR"`
	TablesDir string `yaml:"tables_dir" envconfig:"TABLES_DIR"`
	LogsDir   string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// ReportConfig contains knobs for report generation
type ReportConfig struct {
	Title           string  `yaml:"title" envconfig:"TITLE"`
	HeatmapWidth    int     `yaml:"heatmap_width" envconfig:"HEATMAP_WIDTH" validate:"gt=0"`
	HeatmapHeight   int     `yaml:"heatmap_height" envconfig:"HEATMAP_HEIGHT" validate:"gt=0"`
	SnapshotWidth   int     `yaml:"snapshot_width" envconfig:"SNAPSHOT_WIDTH" validate:"gt=0"`
	SnapshotHeight  int     `yaml:"snapshot_height" envconfig:"SNAPSHOT_HEIGHT" validate:"gt=0"`
	MaxParallel     int     `yaml:"max_parallel" envconfig:"MAX_PARALLEL" validate:"gt=0"`
	SnapshotTimeout float64 `yaml:"snapshot_timeout_seconds" envconfig:"SNAPSHOT_TIMEOUT_SECONDS"`
}

// Load builds the configuration in precedence order: built-in defaults,
// overlaid by the YAML file when one exists, overlaid by CLINVIZ_ environment
// variables.
func Load() (*Config, error) {
	cfg := Default()

	if configFile := getConfigFilePath(); configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// The struct carries no envconfig defaults, so Process only touches
	// fields whose variables are actually set.
	if err := envconfig.Process("CLINVIZ", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays YAML file settings onto cfg. Keys absent from the
// file leave the existing values in place.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// normalize applies defaults the envconfig pass could not reach and runs
// struct validation.
func (c *Config) normalize() error {
	// JSON dual output is the house logging convention
	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output != "both" && c.Logging.Output != "file" && c.Logging.Output != "console" {
		c.Logging.Output = "both"
	}
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = filepath.Join(c.Paths.LogsDir, "clinviz.log")
	}
	if c.Paths.TablesDir == "" {
		c.Paths.TablesDir = filepath.Join(c.Paths.SiteDir, "tables")
	}

	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}
	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"clinviz.yaml",
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RateLimitRPS:    100,
			RateLimitBurst:  50,
			LiveReload:      true,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "both",
			FilePath: "logs/clinviz.log",
		},
		Paths: PathsConfig{
			DataDir:   "data",
			SiteDir:   "site",
			TablesDir: "site/tables",
			LogsDir:   "logs",
		},
		Report: ReportConfig{
			Title:           "Survey Analysis Report",
			HeatmapWidth:    900,
			HeatmapHeight:   900,
			SnapshotWidth:   1200,
			SnapshotHeight:  800,
			MaxParallel:     4,
			SnapshotTimeout: 30,
		},
	}
}
