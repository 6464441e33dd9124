// Package config loads djconv settings from a YAML file, a .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"djconv/database"
	"djconv/rekordbox"
)

// Export formats.
const (
	FormatXML  = "xml"
	FormatJSON = "json"
)

// FileName is the config file looked up in the user config directory.
const FileName = "djconv.yml"

// envPrefix namespaces every environment override.
const envPrefix = "DJCONV_"

// Config stores the exporter configuration.
type Config struct {
	MixxxDB            string `yaml:"mixxx_db"`
	TargetDirectory    string `yaml:"target_directory"`
	SourceFilesystem   string `yaml:"source_filesystem"`
	TargetFilesystem   string `yaml:"target_filesystem"`
	SourceLibraryRoot  string `yaml:"source_library_root"`
	TargetLibraryRoot  string `yaml:"target_library_root"`
	ExportFormat       string `yaml:"export_format"`
	PositionSampleRate int64  `yaml:"position_sample_rate"`
	Workers            int    `yaml:"workers"`
	LogLevel           string `yaml:"log_level"`
	LogFile            string `yaml:"log_file"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		MixxxDB:            database.DefaultDBPath,
		TargetDirectory:    ".",
		SourceFilesystem:   string(rekordbox.FilesystemUnix),
		TargetFilesystem:   string(rekordbox.FilesystemUnix),
		ExportFormat:       FormatXML,
		PositionSampleRate: 88200,
		Workers:            4,
		LogLevel:           "warn",
	}
}

// DefaultPath returns <user config dir>/djconv.yml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(dir, FileName), nil
}

// Load builds the configuration: defaults, then the YAML file at path, then .env, then
// DJCONV_* variables. An empty path reads the default file if it exists; an explicit path
// must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}
	if err := cfg.readFile(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	// .env never overrides variables that are already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	cfg.applyEnv()

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(envPrefix + key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int64) int64 {
	if value, exists := os.LookupEnv(envPrefix + key); exists {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return fallback
}

func (c *Config) applyEnv() {
	c.MixxxDB = getEnv("MIXXX_DB", c.MixxxDB)
	c.TargetDirectory = getEnv("TARGET_DIRECTORY", c.TargetDirectory)
	c.SourceFilesystem = getEnv("SOURCE_FILESYSTEM", c.SourceFilesystem)
	c.TargetFilesystem = getEnv("TARGET_FILESYSTEM", c.TargetFilesystem)
	c.SourceLibraryRoot = getEnv("SOURCE_LIBRARY_ROOT", c.SourceLibraryRoot)
	c.TargetLibraryRoot = getEnv("TARGET_LIBRARY_ROOT", c.TargetLibraryRoot)
	c.ExportFormat = getEnv("EXPORT_FORMAT", c.ExportFormat)
	c.PositionSampleRate = getEnvInt("POSITION_SAMPLE_RATE", c.PositionSampleRate)
	c.Workers = int(getEnvInt("WORKERS", int64(c.Workers)))
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnv("LOG_FILE", c.LogFile)
}

func (c *Config) expandPaths() error {
	for _, p := range []*string{&c.MixxxDB, &c.TargetDirectory, &c.SourceLibraryRoot, &c.LogFile} {
		expanded, err := expandHome(*p)
		if err != nil {
			return err
		}
		*p = expanded
	}
	return nil
}

func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}

// PathTranslator builds the location translator described by the configuration.
func (c *Config) PathTranslator() (rekordbox.PathTranslator, error) {
	src, err := rekordbox.ParseFilesystem(c.SourceFilesystem)
	if err != nil {
		return rekordbox.PathTranslator{}, fmt.Errorf("source_filesystem: %w", err)
	}
	dst, err := rekordbox.ParseFilesystem(c.TargetFilesystem)
	if err != nil {
		return rekordbox.PathTranslator{}, fmt.Errorf("target_filesystem: %w", err)
	}
	return rekordbox.PathTranslator{
		SourceFilesystem: src,
		TargetFilesystem: dst,
		SourceRoot:       c.SourceLibraryRoot,
		TargetRoot:       c.TargetLibraryRoot,
	}, nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	if c.MixxxDB == "" {
		return errors.New("mixxx_db must be set")
	}
	if c.TargetDirectory == "" {
		return errors.New("target_directory must be set")
	}
	switch c.ExportFormat {
	case FormatXML, FormatJSON:
	default:
		return fmt.Errorf("export_format %q is not one of xml, json", c.ExportFormat)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.PositionSampleRate < 0 {
		return fmt.Errorf("position_sample_rate must not be negative, got %d", c.PositionSampleRate)
	}

	paths, err := c.PathTranslator()
	if err != nil {
		return err
	}
	if paths.SourceFilesystem != paths.TargetFilesystem {
		if c.SourceLibraryRoot == "" || c.TargetLibraryRoot == "" {
			return errors.New("source_library_root and target_library_root are required when the filesystems differ")
		}
	}
	return nil
}
