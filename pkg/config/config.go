// Package config handles graphdb configuration via YAML files and
// environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Command-line flags (--data-dir, --namespace, etc., bound by cmd/graphdb)
//  2. Environment variables (GRAPHDB_*)
//  3. Config file (config.yaml)
//  4. Built-in defaults
//
// spec §6 names exactly one configuration surface the core accepts at
// open: "one environment-like configuration map at open: database path
// and namespace." This package is trimmed to that surface plus the
// logging settings every ambient concern needs, following the
// teacher's config.go precedence chain and env var naming convention
// (GRAPHDB_* in place of NORNICDB_*).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all graphdb configuration.
type Config struct {
	Database DatabaseConfig
	Logging  LoggingConfig
}

// DatabaseConfig is the storage engine's open-time configuration (spec
// §4.1 Open(path, graph), spec §6's "database path and namespace").
type DatabaseConfig struct {
	// DataDir is the directory the badger-backed store is opened at.
	DataDir string
	// Namespace is the {graph} component of every key (spec §4.1's key
	// schema table).
	Namespace string
	// InMemory opens the store purely in memory (storage.OpenInMemory),
	// bypassing DataDir entirely. Used by tests and the REPL's --memory
	// flag.
	InMemory bool
}

// LoggingConfig holds logging settings. They are loaded and Level is
// validated, but nothing in the module applies them: the storage engine
// logs through a standard-library logger to stderr regardless.
type LoggingConfig struct {
	// Level (DEBUG, INFO, WARN, ERROR).
	Level string
	// Format (json, text).
	Format string
	// Output path (stdout, stderr, or file path).
	Output string
}

// YAMLConfig is the on-disk shape of config.yaml, a strict subset of
// Config's fields (field names chosen to read naturally in YAML,
// mirroring the teacher's YAMLConfig).
type YAMLConfig struct {
	Database struct {
		DataDir   string `yaml:"data_dir"`
		Namespace string `yaml:"namespace"`
	} `yaml:"database"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
}

// LoadDefaults returns the built-in default configuration.
func LoadDefaults() *Config {
	return &Config{
		Database: DatabaseConfig{
			DataDir:   "./data",
			Namespace: "default",
			InMemory:  false,
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
			Output: "stderr",
		},
	}
}

// LoadFromFile implements the precedence chain: defaults, then the
// YAML file at configPath (if it exists), then environment variables.
// A missing file is not an error — it just means the defaults (as
// overridden by env vars) are used, matching the teacher's
// LoadFromFile.
func LoadFromFile(configPath string) (*Config, error) {
	cfg := LoadDefaults()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: failed to read %s: %w", configPath, err)
			}
		} else {
			var yamlCfg YAMLConfig
			if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
				return nil, fmt.Errorf("config: failed to parse %s: %w", configPath, err)
			}
			applyYAML(cfg, &yamlCfg)
		}
	}

	applyEnvVars(cfg)
	return cfg, nil
}

func applyYAML(cfg *Config, y *YAMLConfig) {
	if y.Database.DataDir != "" {
		cfg.Database.DataDir = y.Database.DataDir
	}
	if y.Database.Namespace != "" {
		cfg.Database.Namespace = y.Database.Namespace
	}
	if y.Logging.Level != "" {
		cfg.Logging.Level = y.Logging.Level
	}
	if y.Logging.Format != "" {
		cfg.Logging.Format = y.Logging.Format
	}
	if y.Logging.Output != "" {
		cfg.Logging.Output = y.Logging.Output
	}
}

// applyEnvVars overrides cfg with any GRAPHDB_* environment variable
// that is set, the last layer LoadFromFile applies; command-line flags
// are overlaid on top of it by cmd/graphdb.
func applyEnvVars(cfg *Config) {
	cfg.Database.DataDir = getEnv("GRAPHDB_DATA_DIR", cfg.Database.DataDir)
	cfg.Database.Namespace = getEnv("GRAPHDB_NAMESPACE", cfg.Database.Namespace)
	cfg.Database.InMemory = getEnvBool("GRAPHDB_IN_MEMORY", cfg.Database.InMemory)

	cfg.Logging.Level = getEnv("GRAPHDB_LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("GRAPHDB_LOG_FORMAT", cfg.Logging.Format)
	cfg.Logging.Output = getEnv("GRAPHDB_LOG_OUTPUT", cfg.Logging.Output)
}

// Validate checks the configuration for logical errors.
func (c *Config) Validate() error {
	if !c.Database.InMemory && c.Database.DataDir == "" {
		return fmt.Errorf("config: database.data_dir must be set unless database.in_memory is true")
	}
	if c.Database.Namespace == "" {
		return fmt.Errorf("config: database.namespace must not be empty")
	}
	switch strings.ToUpper(c.Logging.Level) {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("config: invalid logging.level %q", c.Logging.Level)
	}
	return nil
}

// FindConfigFile searches standard locations for a config file,
// returning the first one found or "" if none exists. Search order
// follows the teacher's FindConfigFile: user home, executable
// directory, then current working directory.
func FindConfigFile() string {
	var candidates []string

	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".graphdb", "config.yaml"))
	}
	if exe, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exe), "config.yaml"))
	}
	candidates = append(candidates, "config.yaml")

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}
