package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// JournalConfig represents run-history journal configuration
type JournalConfig struct {
	// Enabled enables recording run summaries to the journal database
	Enabled bool `yaml:"enabled"`

	// DBPath overrides the journal database file location.
	// Empty uses $DISTILL_HOME/history/runs.db
	DBPath string `yaml:"db_path"`

	// KeepRuns is the number of most recent runs to retain (0 = keep all)
	KeepRuns int `yaml:"keep_runs"`
}

// Config represents distill configuration options
type Config struct {
	// Command is the external extraction tool to invoke per document
	Command string `yaml:"command"`

	// QuietFlag is the single flag passed to the tool (its quiet/print mode)
	QuietFlag string `yaml:"quiet_flag"`

	// DocExt is the document extension to discover (with leading dot)
	DocExt string `yaml:"doc_ext"`

	// SidecarExt is the companion-file extension (with leading dot)
	SidecarExt string `yaml:"sidecar_ext"`

	// ExcludeDirs lists directory names skipped during discovery
	ExcludeDirs []string `yaml:"exclude_dirs"`

	// Timeout is the maximum execution time per document (0 = unlimited)
	Timeout time.Duration `yaml:"timeout"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir is the directory where run logs will be written
	LogDir string `yaml:"log_dir"`

	// PromptFile is an optional markdown file overriding the built-in
	// instruction block sent to the tool
	PromptFile string `yaml:"prompt_file"`

	// Journal contains run-history journal configuration
	Journal JournalConfig `yaml:"journal"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		Command:    "claude",
		QuietFlag:  "-p",
		DocExt:     ".pdf",
		SidecarExt: ".json",
		ExcludeDirs: []string{
			".git", ".svn", ".hg", "node_modules", "vendor", "__pycache__", ".venv",
		},
		Timeout:    0, // Unlimited
		LogLevel:   "info",
		LogDir:     ".distill/logs",
		PromptFile: "",
		Journal: JournalConfig{
			Enabled:  true,
			DBPath:   "",
			KeepRuns: 50,
		},
	}
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	// Start with defaults
	cfg := DefaultConfig()

	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		// File doesn't exist, return defaults (not an error)
		return cfg, nil
	}

	// Read the file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML
	// Use a temporary struct to handle duration parsing
	type yamlConfig struct {
		Command     string        `yaml:"command"`
		QuietFlag   string        `yaml:"quiet_flag"`
		DocExt      string        `yaml:"doc_ext"`
		SidecarExt  string        `yaml:"sidecar_ext"`
		ExcludeDirs []string      `yaml:"exclude_dirs"`
		Timeout     string        `yaml:"timeout"`
		LogLevel    string        `yaml:"log_level"`
		LogDir      string        `yaml:"log_dir"`
		PromptFile  string        `yaml:"prompt_file"`
		Journal     JournalConfig `yaml:"journal"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply non-zero values from file (merging with defaults)
	if yamlCfg.Command != "" {
		cfg.Command = yamlCfg.Command
	}
	if yamlCfg.DocExt != "" {
		cfg.DocExt = yamlCfg.DocExt
	}
	if yamlCfg.SidecarExt != "" {
		cfg.SidecarExt = yamlCfg.SidecarExt
	}
	if yamlCfg.Timeout != "" {
		timeout, err := time.ParseDuration(yamlCfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout format %q: %w", yamlCfg.Timeout, err)
		}
		cfg.Timeout = timeout
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	if yamlCfg.LogDir != "" {
		cfg.LogDir = yamlCfg.LogDir
	}
	if yamlCfg.PromptFile != "" {
		cfg.PromptFile = yamlCfg.PromptFile
	}

	// quiet_flag and exclude_dirs accept empty values with meaning (no flag,
	// no exclusions), so detect presence rather than comparing to zero
	var rawMap map[string]interface{}
	if err := yaml.Unmarshal(data, &rawMap); err == nil {
		if _, exists := rawMap["quiet_flag"]; exists {
			cfg.QuietFlag = yamlCfg.QuietFlag
		}
		if _, exists := rawMap["exclude_dirs"]; exists {
			cfg.ExcludeDirs = yamlCfg.ExcludeDirs
		}

		if journalSection, exists := rawMap["journal"]; exists && journalSection != nil {
			// Journal section exists in YAML, merge it field by field
			journal := yamlCfg.Journal
			journalMap, _ := journalSection.(map[string]interface{})

			if _, exists := journalMap["enabled"]; exists {
				cfg.Journal.Enabled = journal.Enabled
			}
			if _, exists := journalMap["db_path"]; exists {
				// Explicitly set db_path, even if empty string
				cfg.Journal.DBPath = journal.DBPath
			}
			if _, exists := journalMap["keep_runs"]; exists {
				cfg.Journal.KeepRuns = journal.KeepRuns
			}
		}
	}

	return cfg, nil
}

// LoadConfigFromDir loads configuration from .distill/config.yaml in the specified directory
// If the directory or file doesn't exist, returns default configuration without error
func LoadConfigFromDir(dir string) (*Config, error) {
	configPath := filepath.Join(dir, ".distill", "config.yaml")
	return LoadConfig(configPath)
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
// This allows CLI flags to take precedence over config file settings
func (c *Config) MergeWithFlags(command *string, docExt *string, sidecarExt *string, timeout *time.Duration, logDir *string, promptFile *string) {
	if command != nil {
		c.Command = *command
	}
	if docExt != nil {
		c.DocExt = *docExt
	}
	if sidecarExt != nil {
		c.SidecarExt = *sidecarExt
	}
	if timeout != nil {
		c.Timeout = *timeout
	}
	if logDir != nil {
		c.LogDir = *logDir
	}
	if promptFile != nil {
		c.PromptFile = *promptFile
	}
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	if c.Command == "" {
		return fmt.Errorf("command cannot be empty")
	}

	// Validate extensions
	if err := validateExtension("doc_ext", c.DocExt); err != nil {
		return err
	}
	if err := validateExtension("sidecar_ext", c.SidecarExt); err != nil {
		return err
	}
	if strings.EqualFold(c.DocExt, c.SidecarExt) {
		return fmt.Errorf("doc_ext and sidecar_ext must differ, both are %q", c.DocExt)
	}

	// Validate log_level
	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	// Timeout can be 0 (no timeout) or positive, negative is invalid
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %v", c.Timeout)
	}

	// Validate journal configuration
	if c.Journal.KeepRuns < 0 {
		return fmt.Errorf("journal.keep_runs must be >= 0, got %d", c.Journal.KeepRuns)
	}

	return nil
}

// validateExtension checks that an extension value is usable for matching:
// a leading dot followed by at least one character
func validateExtension(name, ext string) error {
	if ext == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	if !strings.HasPrefix(ext, ".") {
		return fmt.Errorf("%s must start with a dot, got %q", name, ext)
	}
	if len(ext) < 2 {
		return fmt.Errorf("%s must name an extension, got %q", name, ext)
	}
	return nil
}
