package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"djconv/rekordbox"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	return home
}

func TestLoadDefaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.MixxxDB != filepath.Join(home, ".mixxx/mixxxdb.sqlite") {
		t.Errorf("MixxxDB = %q", cfg.MixxxDB)
	}
	if cfg.ExportFormat != FormatXML || cfg.Workers != 4 || cfg.PositionSampleRate != 88200 {
		t.Errorf("Unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "djconv.yml")
	content := `mixxx_db: /data/mixxxdb.sqlite
target_directory: /out
source_filesystem: unix
target_filesystem: windows
source_library_root: /home/dj/Music
target_library_root: 'C:\Music'
workers: 8
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	t.Setenv("DJCONV_WORKERS", "2")
	t.Setenv("DJCONV_EXPORT_FORMAT", "json")
	t.Setenv("DJCONV_POSITION_SAMPLE_RATE", "not-a-number")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.MixxxDB != "/data/mixxxdb.sqlite" || cfg.TargetDirectory != "/out" {
		t.Errorf("File values not applied: %+v", cfg)
	}
	if cfg.Workers != 2 {
		t.Errorf("Workers = %d, want env override 2", cfg.Workers)
	}
	if cfg.ExportFormat != FormatJSON {
		t.Errorf("ExportFormat = %q, want json", cfg.ExportFormat)
	}
	if cfg.PositionSampleRate != 88200 {
		t.Errorf("Invalid env value should keep 88200, got %d", cfg.PositionSampleRate)
	}

	paths, err := cfg.PathTranslator()
	if err != nil {
		t.Fatalf("PathTranslator failed: %v", err)
	}
	if paths.TargetFilesystem != rekordbox.FilesystemWindows || paths.TargetRoot != `C:\Music` {
		t.Errorf("Unexpected translator: %+v", paths)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestLoadExplicitMissingFile(t *testing.T) {
	isolate(t)
	_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Expected not-exist error, got %v", err)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "bad.yml")
	if err := os.WriteFile(path, []byte("workers: [1, 2\n"), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"empty database", func(c *Config) { c.MixxxDB = "" }},
		{"empty target", func(c *Config) { c.TargetDirectory = "" }},
		{"unknown format", func(c *Config) { c.ExportFormat = "csv" }},
		{"no workers", func(c *Config) { c.Workers = 0 }},
		{"negative rate", func(c *Config) { c.PositionSampleRate = -1 }},
		{"unknown filesystem", func(c *Config) { c.TargetFilesystem = "hfs" }},
		{"missing roots", func(c *Config) { c.TargetFilesystem = "windows" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}
