package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearEnvVars(t *testing.T) {
	t.Helper()
	vars := []string{
		"GRAPHDB_DATA_DIR", "GRAPHDB_NAMESPACE", "GRAPHDB_IN_MEMORY",
		"GRAPHDB_LOG_LEVEL", "GRAPHDB_LOG_FORMAT", "GRAPHDB_LOG_OUTPUT",
	}
	for _, v := range vars {
		os.Unsetenv(v)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg := LoadDefaults()

	if cfg.Database.DataDir != "./data" {
		t.Errorf("expected data dir './data', got %q", cfg.Database.DataDir)
	}
	if cfg.Database.Namespace != "default" {
		t.Errorf("expected namespace 'default', got %q", cfg.Database.Namespace)
	}
	if cfg.Database.InMemory {
		t.Error("expected InMemory to be false by default")
	}
	if cfg.Logging.Level != "INFO" {
		t.Errorf("expected log level 'INFO', got %q", cfg.Logging.Level)
	}
}

func TestLoadFromFile_MissingFileUsesDefaults(t *testing.T) {
	clearEnvVars(t)

	cfg, err := LoadFromFile(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.Database.Namespace != "default" {
		t.Errorf("expected default namespace when file is missing, got %q", cfg.Database.Namespace)
	}
}

func TestLoadFromFile_Overlay(t *testing.T) {
	clearEnvVars(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "database:\n  data_dir: /var/lib/graphdb\n  namespace: prod\nlogging:\n  level: DEBUG\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.Database.DataDir != "/var/lib/graphdb" {
		t.Errorf("expected data dir '/var/lib/graphdb', got %q", cfg.Database.DataDir)
	}
	if cfg.Database.Namespace != "prod" {
		t.Errorf("expected namespace 'prod', got %q", cfg.Database.Namespace)
	}
	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("expected log level 'DEBUG', got %q", cfg.Logging.Level)
	}
}

func TestLoadFromFile_EnvOverridesFile(t *testing.T) {
	clearEnvVars(t)
	defer clearEnvVars(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "database:\n  namespace: from-file\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	os.Setenv("GRAPHDB_NAMESPACE", "from-env")

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.Database.Namespace != "from-env" {
		t.Errorf("expected env var to win over file, got %q", cfg.Database.Namespace)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"empty data dir without in-memory", func(c *Config) { c.Database.DataDir = "" }, true},
		{"empty data dir with in-memory is fine", func(c *Config) {
			c.Database.DataDir = ""
			c.Database.InMemory = true
		}, false},
		{"empty namespace", func(c *Config) { c.Database.Namespace = "" }, true},
		{"invalid log level", func(c *Config) { c.Logging.Level = "VERBOSE" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := LoadDefaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected an error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	os.Setenv("TEST_BOOL_FLAG", "true")
	defer os.Unsetenv("TEST_BOOL_FLAG")

	if !getEnvBool("TEST_BOOL_FLAG", false) {
		t.Error("expected getEnvBool to parse 'true' as true")
	}
	if !getEnvBool("TEST_BOOL_UNSET", true) {
		t.Error("expected getEnvBool to fall back to default when unset")
	}
}

func TestFindConfigFile_NoneFoundReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	defer os.Chdir(wd)

	t.Setenv("HOME", dir)

	if got := FindConfigFile(); got != "" {
		t.Errorf("expected no config file found, got %q", got)
	}
}
