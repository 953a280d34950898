package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestDefaultConfig verifies default configuration values
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Command != "claude" {
		t.Errorf("Command = %q, want %q", cfg.Command, "claude")
	}
	if cfg.QuietFlag != "-p" {
		t.Errorf("QuietFlag = %q, want %q", cfg.QuietFlag, "-p")
	}
	if cfg.DocExt != ".pdf" {
		t.Errorf("DocExt = %q, want %q", cfg.DocExt, ".pdf")
	}
	if cfg.SidecarExt != ".json" {
		t.Errorf("SidecarExt = %q, want %q", cfg.SidecarExt, ".json")
	}
	if cfg.Timeout != 0 {
		t.Errorf("Timeout = %v, want 0", cfg.Timeout)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.LogDir != ".distill/logs" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, ".distill/logs")
	}
	if !cfg.Journal.Enabled {
		t.Error("Journal.Enabled = false, want true")
	}
	if cfg.Journal.KeepRuns != 50 {
		t.Errorf("Journal.KeepRuns = %d, want 50", cfg.Journal.KeepRuns)
	}

	wantExcludes := []string{".git", ".svn", ".hg", "node_modules", "vendor", "__pycache__", ".venv"}
	if len(cfg.ExcludeDirs) != len(wantExcludes) {
		t.Fatalf("ExcludeDirs = %v, want %v", cfg.ExcludeDirs, wantExcludes)
	}
	for i, dir := range wantExcludes {
		if cfg.ExcludeDirs[i] != dir {
			t.Errorf("ExcludeDirs[%d] = %q, want %q", i, cfg.ExcludeDirs[i], dir)
		}
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got: %v", err)
	}
}

// TestLoadConfigValidFile tests loading a valid YAML config file
func TestLoadConfigValidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `command: pdftool
quiet_flag: --quiet
doc_ext: .docx
sidecar_ext: .meta.json
timeout: 30m
log_level: debug
log_dir: /tmp/logs
prompt_file: prompts/extract.md
journal:
  enabled: false
  db_path: /tmp/history/runs.db
  keep_runs: 10
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Command != "pdftool" {
		t.Errorf("Command = %q, want %q", cfg.Command, "pdftool")
	}
	if cfg.QuietFlag != "--quiet" {
		t.Errorf("QuietFlag = %q, want %q", cfg.QuietFlag, "--quiet")
	}
	if cfg.DocExt != ".docx" {
		t.Errorf("DocExt = %q, want %q", cfg.DocExt, ".docx")
	}
	if cfg.SidecarExt != ".meta.json" {
		t.Errorf("SidecarExt = %q, want %q", cfg.SidecarExt, ".meta.json")
	}
	if cfg.Timeout != 30*time.Minute {
		t.Errorf("Timeout = %v, want 30m", cfg.Timeout)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.LogDir != "/tmp/logs" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/tmp/logs")
	}
	if cfg.PromptFile != "prompts/extract.md" {
		t.Errorf("PromptFile = %q, want %q", cfg.PromptFile, "prompts/extract.md")
	}
	if cfg.Journal.Enabled {
		t.Error("Journal.Enabled = true, want false")
	}
	if cfg.Journal.DBPath != "/tmp/history/runs.db" {
		t.Errorf("Journal.DBPath = %q, want %q", cfg.Journal.DBPath, "/tmp/history/runs.db")
	}
	if cfg.Journal.KeepRuns != 10 {
		t.Errorf("Journal.KeepRuns = %d, want 10", cfg.Journal.KeepRuns)
	}
}

// TestLoadConfigMissingFile tests that a missing file returns defaults
func TestLoadConfigMissingFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "does-not-exist.yaml")

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v, want nil for missing file", err)
	}

	defaults := DefaultConfig()
	if cfg.Command != defaults.Command {
		t.Errorf("Command = %q, want default %q", cfg.Command, defaults.Command)
	}
	if cfg.DocExt != defaults.DocExt {
		t.Errorf("DocExt = %q, want default %q", cfg.DocExt, defaults.DocExt)
	}
}

// TestLoadConfigMalformedFile tests that malformed YAML returns an error
func TestLoadConfigMalformedFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("command: [unclosed"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := LoadConfig(configPath)
	if err == nil {
		t.Fatal("LoadConfig() expected error for malformed YAML, got nil")
	}
}

// TestLoadConfigInvalidTimeout tests that a bad duration string returns an error
func TestLoadConfigInvalidTimeout(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("timeout: not-a-duration\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := LoadConfig(configPath)
	if err == nil {
		t.Fatal("LoadConfig() expected error for invalid timeout, got nil")
	}
}

// TestLoadConfigPartialFile tests that unspecified fields keep defaults
func TestLoadConfigPartialFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("log_level: trace\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.LogLevel != "trace" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "trace")
	}
	if cfg.Command != "claude" {
		t.Errorf("Command = %q, want default %q", cfg.Command, "claude")
	}
	if cfg.QuietFlag != "-p" {
		t.Errorf("QuietFlag = %q, want default %q", cfg.QuietFlag, "-p")
	}
	if !cfg.Journal.Enabled {
		t.Error("Journal.Enabled should keep default true")
	}
}

// TestLoadConfigEmptyQuietFlag tests that an explicitly empty quiet_flag
// means "no flag" rather than falling back to the default
func TestLoadConfigEmptyQuietFlag(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte(`quiet_flag: ""`+"\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.QuietFlag != "" {
		t.Errorf("QuietFlag = %q, want empty (explicitly cleared)", cfg.QuietFlag)
	}
}

// TestLoadConfigEmptyExcludeDirs tests that an explicitly empty exclude list
// disables the default exclusions
func TestLoadConfigEmptyExcludeDirs(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("exclude_dirs: []\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if len(cfg.ExcludeDirs) != 0 {
		t.Errorf("ExcludeDirs = %v, want empty", cfg.ExcludeDirs)
	}
}

// TestLoadConfigCustomExcludeDirs tests overriding the exclusion set
func TestLoadConfigCustomExcludeDirs(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `exclude_dirs:
  - build
  - dist
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if len(cfg.ExcludeDirs) != 2 || cfg.ExcludeDirs[0] != "build" || cfg.ExcludeDirs[1] != "dist" {
		t.Errorf("ExcludeDirs = %v, want [build dist]", cfg.ExcludeDirs)
	}
}

// TestLoadConfigPartialJournalSection tests merging a partial journal section
func TestLoadConfigPartialJournalSection(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `journal:
  keep_runs: 5
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Journal.KeepRuns != 5 {
		t.Errorf("Journal.KeepRuns = %d, want 5", cfg.Journal.KeepRuns)
	}
	if !cfg.Journal.Enabled {
		t.Error("Journal.Enabled should keep default true")
	}
	if cfg.Journal.DBPath != "" {
		t.Errorf("Journal.DBPath = %q, want empty default", cfg.Journal.DBPath)
	}
}

// TestLoadConfigFromDir tests loading from .distill/config.yaml under a directory
func TestLoadConfigFromDir(t *testing.T) {
	tmpDir := t.TempDir()

	distillDir := filepath.Join(tmpDir, ".distill")
	if err := os.MkdirAll(distillDir, 0755); err != nil {
		t.Fatalf("failed to create .distill dir: %v", err)
	}

	configContent := `command: extractor
log_level: warn
`
	configPath := filepath.Join(distillDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadConfigFromDir(tmpDir)
	if err != nil {
		t.Fatalf("LoadConfigFromDir() error = %v", err)
	}

	if cfg.Command != "extractor" {
		t.Errorf("Command = %q, want %q", cfg.Command, "extractor")
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "warn")
	}
}

// TestLoadConfigFromDirMissing tests that a directory without config returns defaults
func TestLoadConfigFromDirMissing(t *testing.T) {
	cfg, err := LoadConfigFromDir(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfigFromDir() error = %v", err)
	}
	if cfg.Command != "claude" {
		t.Errorf("Command = %q, want default %q", cfg.Command, "claude")
	}
}

// TestMergeWithFlags tests CLI flag precedence over config values
func TestMergeWithFlags(t *testing.T) {
	cfg := DefaultConfig()

	command := "othertool"
	docExt := ".tiff"
	timeout := 2 * time.Minute
	promptFile := "custom.md"

	cfg.MergeWithFlags(&command, &docExt, nil, &timeout, nil, &promptFile)

	if cfg.Command != "othertool" {
		t.Errorf("Command = %q, want %q", cfg.Command, "othertool")
	}
	if cfg.DocExt != ".tiff" {
		t.Errorf("DocExt = %q, want %q", cfg.DocExt, ".tiff")
	}
	if cfg.SidecarExt != ".json" {
		t.Errorf("SidecarExt = %q, want default %q (nil flag)", cfg.SidecarExt, ".json")
	}
	if cfg.Timeout != 2*time.Minute {
		t.Errorf("Timeout = %v, want 2m", cfg.Timeout)
	}
	if cfg.LogDir != ".distill/logs" {
		t.Errorf("LogDir = %q, want default (nil flag)", cfg.LogDir)
	}
	if cfg.PromptFile != "custom.md" {
		t.Errorf("PromptFile = %q, want %q", cfg.PromptFile, "custom.md")
	}
}

// TestMergeWithFlagsAllNil tests that nil flags leave config untouched
func TestMergeWithFlagsAllNil(t *testing.T) {
	cfg := DefaultConfig()
	want := *cfg

	cfg.MergeWithFlags(nil, nil, nil, nil, nil, nil)

	if cfg.Command != want.Command || cfg.DocExt != want.DocExt ||
		cfg.SidecarExt != want.SidecarExt || cfg.Timeout != want.Timeout ||
		cfg.LogDir != want.LogDir || cfg.PromptFile != want.PromptFile {
		t.Errorf("config changed by all-nil merge: %+v", cfg)
	}
}

// TestValidate tests configuration validation rules
func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "defaults are valid",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "empty command",
			mutate:  func(c *Config) { c.Command = "" },
			wantErr: true,
		},
		{
			name:    "doc_ext without dot",
			mutate:  func(c *Config) { c.DocExt = "pdf" },
			wantErr: true,
		},
		{
			name:    "doc_ext bare dot",
			mutate:  func(c *Config) { c.DocExt = "." },
			wantErr: true,
		},
		{
			name:    "empty sidecar_ext",
			mutate:  func(c *Config) { c.SidecarExt = "" },
			wantErr: true,
		},
		{
			name:    "equal extensions",
			mutate:  func(c *Config) { c.DocExt, c.SidecarExt = ".json", ".json" },
			wantErr: true,
		},
		{
			name:    "equal extensions different case",
			mutate:  func(c *Config) { c.DocExt, c.SidecarExt = ".JSON", ".json" },
			wantErr: true,
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.LogLevel = "verbose" },
			wantErr: true,
		},
		{
			name:    "negative timeout",
			mutate:  func(c *Config) { c.Timeout = -1 * time.Second },
			wantErr: true,
		},
		{
			name:    "empty db_path falls back to the default location",
			mutate:  func(c *Config) { c.Journal.DBPath = "" },
			wantErr: false,
		},
		{
			name:    "negative keep_runs",
			mutate:  func(c *Config) { c.Journal.KeepRuns = -1 },
			wantErr: true,
		},
		{
			name:    "zero keep_runs keeps all",
			mutate:  func(c *Config) { c.Journal.KeepRuns = 0 },
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
