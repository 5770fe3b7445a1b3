package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTablePrefix(t *testing.T) {
	tests := []struct {
		name     string
		env      string
		override string
		want     string
	}{
		{"prod", "prod", "", "prod_"},
		{"test", "test", "", "test_"},
		{"dev", "dev", "", "dev_"},
		{"unknown falls back to dev", "staging", "", "dev_"},
		{"override wins", "prod", "custom_", "custom_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TABLE_PREFIX", tt.override)
			if got := getTablePrefix(tt.env); got != tt.want {
				t.Errorf("getTablePrefix(%q) = %q, want %q", tt.env, got, tt.want)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"ENVIRONMENT", "PORT", "DEBUG", "TABLE_PREFIX", "JWKS_URL"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.Environment != "dev" || cfg.TablePrefix != "dev_" {
		t.Errorf("Environment/TablePrefix = %q/%q, want dev/dev_", cfg.Environment, cfg.TablePrefix)
	}
	if !cfg.Debug {
		t.Error("Debug should default to true outside prod")
	}

	t.Setenv("ENVIRONMENT", "prod")
	if Load().Debug {
		t.Error("Debug should default to false in prod")
	}
}

func TestSetupLogFileKeepsNewest(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"stagectl-2020-01-01T00-00-00.000.log",
		"stagectl-2020-01-02T00-00-00.000.log",
		"stagectl-2020-01-03T00-00-00.000.log",
		"server-2020-01-01T00-00-00.000.log",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	f, err := SetupLogFile(dir, "stagectl", 2)
	if err != nil {
		t.Fatalf("SetupLogFile() error = %v", err)
	}
	defer f.Close()

	files, _ := filepath.Glob(filepath.Join(dir, "stagectl-*.log"))
	if len(files) != 2 {
		t.Fatalf("kept %d stagectl logs, want 2: %v", len(files), files)
	}
	if _, err := os.Stat(filepath.Join(dir, "server-2020-01-01T00-00-00.000.log")); err != nil {
		t.Errorf("other prefixes must be left alone: %v", err)
	}
	if filepath.Base(files[1]) != filepath.Base(f.Name()) {
		t.Errorf("newest file %s is not the one just created (%s)", files[1], f.Name())
	}
}
