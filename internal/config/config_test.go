package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New(), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AuthorName != "" || cfg.AuthorEmail != "" || cfg.Trace {
		t.Errorf("Load with no file/env = %+v, want zero values", cfg)
	}
}

func TestLoadFromConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "telos.yaml")
	contents := "author_name: Ada\nauthor_email: ada@example.com\ntrace: true\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := Load(viper.New(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AuthorName != "Ada" || cfg.AuthorEmail != "ada@example.com" || !cfg.Trace {
		t.Errorf("Load from file = %+v, want Ada/ada@example.com/true", cfg)
	}
}

func TestLoadMissingConfigFileIsNotAnError(t *testing.T) {
	if _, err := Load(viper.New(), filepath.Join(t.TempDir(), "does-not-exist.yaml")); err != nil {
		t.Fatalf("Load with missing file: %v", err)
	}
}

func TestLoadEnvironmentOverridesDefault(t *testing.T) {
	t.Setenv("TELOS_AUTHOR_NAME", "Grace")
	cfg, err := Load(viper.New(), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AuthorName != "Grace" {
		t.Errorf("AuthorName = %q, want %q", cfg.AuthorName, "Grace")
	}
}
