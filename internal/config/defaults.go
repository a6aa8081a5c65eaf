package config

import (
	"os"
	"path/filepath"
)

// GetDefault returns the default configuration
func GetDefault() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		ScanPaths: []string{
			homeDir,
		},
		Categories: Categories{
			Temp:  true,
			Cache: true,
			Logs:  true,
		},
		AgeThresholds: AgeThresholds{
			Temp:  7,  // 7 days
			Cache: 30, // 30 days
			Logs:  30, // 30 days
		},
		Duplicates: DuplicatesConfig{
			MinFileSize: "1KB",
			Extensions:  []string{},
		},
		Quarantine: QuarantineConfig{
			Root:          "", // empty = platform default
			RetentionDays: 30,
			Strict:        false,
		},
		CustomPaths: []string{},
		ExcludePatterns: []string{
			"*.keep",
			"*/important/*",
		},
		ProtectedPaths: []string{},
		HistoryPath:    filepath.Join(homeDir, ".local", "share", "reclaim", "history.db"),
		DryRun:         false,
		Verbose:        false,
	}
}

// GetExampleConfig returns an example configuration with comments
func GetExampleConfig() string {
	return `# Reclaim Configuration File
# Location: ~/.config/reclaim/config.yaml

# Paths scanned for duplicates (absolute paths)
scan_paths:
  - "/home/user"

# Enable/disable cleanup categories
categories:
  temp: true   # Temporary files
  cache: true  # Application and system caches
  logs: true   # Old and rotated log files

# Age thresholds (in days) - Only clean files older than these thresholds
age_thresholds:
  temp: 7
  cache: 30
  logs: 30

# Duplicate detection
duplicates:
  min_file_size: "1KB" # Ignore files smaller than this
  extensions: []       # Limit to extensions, e.g. [".jpg", ".mp4"]; empty = all

# Quarantine store
quarantine:
  root: ""           # Empty = platform default location
  retention_days: 30 # Quarantined items expire after this many days
  strict: false      # When true, a quarantine failure never falls back to direct deletion

# Extra paths (files or directory trees, absolute) included as cleanup
# candidates by scan and clean
custom_paths: []

# Exclude patterns (glob patterns or substrings)
exclude_patterns:
  - "*.keep"
  - "*/important/*"

# Protected paths - never deleted, in addition to the platform defaults
protected_paths: []

# Scan history and hash cache database
history_path: "~/.local/share/reclaim/history.db"

# Dry-run mode - show what would be deleted without deleting
dry_run: false

# Verbose output
verbose: false
`
}
