package config

import (
	"runtime"
	"time"

	"github.com/sdejongh/rdt/pkg/ignore"
	"github.com/sdejongh/rdt/pkg/models"
	"github.com/sdejongh/rdt/pkg/ratelimit"
)

// Config represents the application configuration
type Config struct {
	Walk    WalkConfig    `yaml:"walk"`
	Compare CompareConfig `yaml:"compare"`
	Sync    SyncConfig    `yaml:"sync"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
	Exclude []string      `yaml:"exclude"`
}

// WalkConfig holds traversal settings
type WalkConfig struct {
	Concurrency    int      `yaml:"concurrency"`
	FollowSymlinks bool     `yaml:"follow_symlinks"`
	IncludeHidden  bool     `yaml:"include_hidden"`
	NoIgnore       bool     `yaml:"no_ignore"`
	RuleFiles      []string `yaml:"rule_files"` // Looked up in every directory, later files win
}

// CompareConfig holds comparison settings
type CompareConfig struct {
	Exact         bool          `yaml:"exact"`          // Hash equal-sized files
	TimeTolerance time.Duration `yaml:"time_tolerance"` // e.g. "2s" for FAT destinations
	BufferSize    int           `yaml:"buffer_size"`
}

// SyncConfig holds sync-related settings
type SyncConfig struct {
	Delete      bool `yaml:"delete"`      // Remove destination paths missing from the source
	CreateDest  bool `yaml:"create_dest"` // Create the destination root when missing
	Concurrency int  `yaml:"concurrency"`

	// BandwidthLimit caps the copy rate, e.g. "10M". Empty = unlimited.
	BandwidthLimit string `yaml:"bandwidth_limit"`
}

// OutputConfig holds output-related settings
type OutputConfig struct {
	Format   string `yaml:"format"`   // "human" or "json"
	Progress bool   `yaml:"progress"` // Show a progress bar during sync
	Quiet    bool   `yaml:"quiet"`    // Suppress non-error output
	NoColor  bool   `yaml:"no_color"`
}

// LoggingConfig holds logging-related settings
type LoggingConfig struct {
	Enabled    bool   `yaml:"enabled"`     // Write a log file
	Format     string `yaml:"format"`      // "json" or "text"
	Level      string `yaml:"level"`       // "debug", "info", "warn", "error"
	File       string `yaml:"file"`        // Empty = $XDG_STATE_HOME/rdt/rdt.log
	MaxSize    int64  `yaml:"max_size"`    // Bytes before rotation, 0 = never
	MaxBackups int    `yaml:"max_backups"` // Rotated files kept
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Walk: WalkConfig{
			Concurrency: runtime.GOMAXPROCS(0),
			RuleFiles:   append([]string(nil), ignore.DefaultRuleFiles...),
		},
		Compare: CompareConfig{
			BufferSize: 65536,
		},
		Sync: SyncConfig{
			Delete:      true,
			Concurrency: runtime.GOMAXPROCS(0),
		},
		Output: OutputConfig{
			Format:   "human",
			Progress: true,
		},
		Logging: LoggingConfig{
			Enabled:    false,
			Format:     "text",
			Level:      "info",
			MaxSize:    10 * 1024 * 1024,
			MaxBackups: 3,
		},
		Exclude: []string{},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Walk.Concurrency < 1 {
		return &models.ValidationError{
			Field:   "walk.concurrency",
			Message: "must be at least 1",
		}
	}

	if c.Sync.Concurrency < 1 {
		return &models.ValidationError{
			Field:   "sync.concurrency",
			Message: "must be at least 1",
		}
	}

	if c.Compare.BufferSize < 1024 {
		return &models.ValidationError{
			Field:   "compare.buffer_size",
			Message: "must be at least 1024 bytes",
		}
	}

	if c.Compare.TimeTolerance < 0 {
		return &models.ValidationError{
			Field:   "compare.time_tolerance",
			Message: "cannot be negative",
		}
	}

	for _, name := range c.Walk.RuleFiles {
		if name == "" || name == "." || name == ".." || containsSeparator(name) {
			return &models.ValidationError{
				Field:   "walk.rule_files",
				Message: "entries must be plain file names",
			}
		}
	}

	if _, err := ratelimit.ParseRate(c.Sync.BandwidthLimit); err != nil {
		return &models.ValidationError{
			Field:   "sync.bandwidth_limit",
			Message: err.Error(),
		}
	}

	validFormats := map[string]bool{"human": true, "json": true}
	if !validFormats[c.Output.Format] {
		return &models.ValidationError{
			Field:   "output.format",
			Message: "must be 'human' or 'json'",
		}
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return &models.ValidationError{
			Field:   "logging.format",
			Message: "must be 'json' or 'text'",
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return &models.ValidationError{
			Field:   "logging.level",
			Message: "must be 'debug', 'info', 'warn', or 'error'",
		}
	}

	if c.Logging.MaxSize < 0 || c.Logging.MaxBackups < 0 {
		return &models.ValidationError{
			Field:   "logging.max_size",
			Message: "rotation settings cannot be negative",
		}
	}

	return nil
}

func containsSeparator(name string) bool {
	for _, r := range name {
		if r == '/' || r == '\\' {
			return true
		}
	}
	return false
}
