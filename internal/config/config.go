package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/reclaimd/reclaim/pkg/utils"
)

// Config represents the application configuration
type Config struct {
	ScanPaths       []string         `yaml:"scan_paths"`
	Categories      Categories       `yaml:"categories"`
	AgeThresholds   AgeThresholds    `yaml:"age_thresholds"`
	Duplicates      DuplicatesConfig `yaml:"duplicates"`
	Quarantine      QuarantineConfig `yaml:"quarantine"`
	CustomPaths     []string         `yaml:"custom_paths"`
	ExcludePatterns []string         `yaml:"exclude_patterns"`
	ProtectedPaths  []string         `yaml:"protected_paths"`
	HistoryPath     string           `yaml:"history_path"`
	DryRun          bool             `yaml:"dry_run"`
	Verbose         bool             `yaml:"verbose"`
}

// Categories defines which cleanup categories are enabled
type Categories struct {
	Temp  bool `yaml:"temp"`
	Cache bool `yaml:"cache"`
	Logs  bool `yaml:"logs"`
}

// AgeThresholds defines age thresholds for different categories (in days)
type AgeThresholds struct {
	Temp  int `yaml:"temp"`
	Cache int `yaml:"cache"`
	Logs  int `yaml:"logs"`
}

// DuplicatesConfig controls duplicate detection
type DuplicatesConfig struct {
	MinFileSize string   `yaml:"min_file_size"` // e.g., "1KB"
	Extensions  []string `yaml:"extensions"`
}

// QuarantineConfig controls the quarantine store
type QuarantineConfig struct {
	Root          string `yaml:"root"`
	RetentionDays int    `yaml:"retention_days"`
	Strict        bool   `yaml:"strict"`
}

// MinFileSizeBytes parses the configured duplicate size floor.
func (c *Config) MinFileSizeBytes() (int64, error) {
	if c.Duplicates.MinFileSize == "" {
		return 0, nil
	}
	return utils.ParseSize(c.Duplicates.MinFileSize)
}

// Retention returns the configured quarantine retention as a duration.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Quarantine.RetentionDays) * 24 * time.Hour
}

// Load loads configuration from a file
func Load(configPath string) (*Config, error) {
	// If config doesn't exist, return default config
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return GetDefault(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Save saves configuration to a file
func Save(config *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.AgeThresholds.Temp < 0 {
		return fmt.Errorf("temp age threshold must be >= 0")
	}
	if c.AgeThresholds.Cache < 0 {
		return fmt.Errorf("cache age threshold must be >= 0")
	}
	if c.AgeThresholds.Logs < 0 {
		return fmt.Errorf("logs age threshold must be >= 0")
	}

	if c.Quarantine.RetentionDays < 0 {
		return fmt.Errorf("quarantine retention must be >= 0")
	}

	if c.Duplicates.MinFileSize != "" {
		if _, err := utils.ParseSize(c.Duplicates.MinFileSize); err != nil {
			return fmt.Errorf("invalid min_file_size %q: %w", c.Duplicates.MinFileSize, err)
		}
	}

	for _, pattern := range c.ExcludePatterns {
		if _, err := filepath.Match(pattern, "probe"); err != nil {
			return fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
	}

	for _, path := range c.ProtectedPaths {
		if !filepath.IsAbs(path) {
			return fmt.Errorf("protected path must be absolute: %s", path)
		}
	}

	for _, path := range c.ScanPaths {
		if !filepath.IsAbs(path) {
			return fmt.Errorf("scan path must be absolute: %s", path)
		}
	}

	for _, path := range c.CustomPaths {
		if !filepath.IsAbs(path) {
			return fmt.Errorf("custom path must be absolute: %s", path)
		}
	}

	return nil
}

// GetConfigPath returns the default config path
func GetConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	configDir := filepath.Join(homeDir, ".config", "reclaim")
	return filepath.Join(configDir, "config.yaml"), nil
}

// EnsureConfigExists creates a default config file if it doesn't exist
func EnsureConfigExists() (string, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		defaultConfig := GetDefault()
		if err := Save(defaultConfig, configPath); err != nil {
			return "", err
		}
	}

	return configPath, nil
}
