package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/yourorg/f1etl/pkg/types"
)

func TestSetDefaults(t *testing.T) {
	c := &Config{}
	c.SetDefaults()
	if c.Session.Year != 2025 {
		t.Fatalf("expected 2025, got %d", c.Session.Year)
	}
	if c.Session.Event != "Hungarian Grand Prix" {
		t.Fatalf("unexpected default event %q", c.Session.Event)
	}
	if c.Session.Kind != "R" {
		t.Fatalf("expected race by default")
	}
	if c.Cache.Dir != "cache" || !c.CacheEnabled() {
		t.Fatalf("expected cache enabled at ./cache")
	}
	if c.Provider.MaxRetries != 0 {
		t.Fatalf("expected no retries by default")
	}
	if c.Log.Level != "info" {
		t.Fatalf("expected info level")
	}
}

func TestLoadFromYAML(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "f1etl.yaml")
	if err := os.WriteFile(cfgPath, []byte("session:\n  year: 2024\n  event: Monaco Grand Prix\n  kind: Q\ncache:\n  enabled: false\noutput:\n  weather: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	ref, err := cfg.SessionRef()
	if err != nil {
		t.Fatal(err)
	}
	if ref != (types.SessionRef{Year: 2024, Event: "Monaco Grand Prix", Kind: types.KindQualifying}) {
		t.Fatalf("unexpected session ref %+v", ref)
	}
	if cfg.CacheEnabled() {
		t.Fatalf("expected cache disabled")
	}
	if !cfg.Output.Weather {
		t.Fatalf("expected weather output on")
	}
	if cfg.Provider.BaseURL != "https://api.openf1.org/v1" {
		t.Fatalf("defaults not applied after load: %s", cfg.Provider.BaseURL)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing explicit config")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("F1ETL_PROVIDER_MAX_RETRIES", "2")
	t.Setenv("F1ETL_LOG_LEVEL", "debug")
	chdir(t, t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Provider.MaxRetries != 2 {
		t.Fatalf("expected env retries, got %d", cfg.Provider.MaxRetries)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("expected env log level")
	}
}

func TestValidate(t *testing.T) {
	tmp := t.TempDir()
	c := &Config{}
	c.SetDefaults()
	c.Cache.Dir = filepath.Join(tmp, "cache")
	c.Output.RawDir = filepath.Join(tmp, "raw")
	c.Output.ProcessedDir = filepath.Join(tmp, "processed")
	if err := c.Validate(); err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	c.Session.Kind = "FP9"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected kind validation error")
	}
	c.Session.Kind = "fp1"
	c.Log.Level = "loud"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected log level validation error")
	}
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(wd); err != nil {
			t.Fatal(err)
		}
	})
}
