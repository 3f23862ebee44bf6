package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yourorg/f1etl/pkg/types"
)

// DefaultConfigPath is read when no --config flag is given.
const DefaultConfigPath = "f1etl.yaml"

type ProviderConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxRetries     int    `yaml:"max_retries"`
	SessionFile    string `yaml:"session_file"`
}

type CacheConfig struct {
	Dir     string `yaml:"dir"`
	Enabled *bool  `yaml:"enabled"`
}

type OutputConfig struct {
	RawDir       string `yaml:"raw_dir"`
	ProcessedDir string `yaml:"processed_dir"`
	Weather      bool   `yaml:"weather"`
}

type SessionConfig struct {
	Year    int      `yaml:"year"`
	Event   string   `yaml:"event"`
	Kind    string   `yaml:"kind"`
	Drivers []string `yaml:"drivers"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type Config struct {
	Provider ProviderConfig `yaml:"provider"`
	Cache    CacheConfig    `yaml:"cache"`
	Output   OutputConfig   `yaml:"output"`
	Session  SessionConfig  `yaml:"session"`
	Log      LogConfig      `yaml:"log"`
}

// Load loads YAML config, then applies env overrides.
// A missing file at the default path is not an error.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	explicit := configPath != ""
	if !explicit {
		configPath = DefaultConfigPath
	}

	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	} else if explicit || !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg.SetDefaults()
	applyEnvOverrides(cfg)
	return cfg, nil
}

func (c *Config) SetDefaults() {
	if c.Provider.BaseURL == "" {
		c.Provider.BaseURL = "https://api.openf1.org/v1"
	}
	if c.Provider.TimeoutSeconds == 0 {
		c.Provider.TimeoutSeconds = 120
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir = "cache"
	}
	if c.Cache.Enabled == nil {
		enabled := true
		c.Cache.Enabled = &enabled
	}
	if c.Output.RawDir == "" {
		c.Output.RawDir = "data/raw"
	}
	if c.Output.ProcessedDir == "" {
		c.Output.ProcessedDir = "data/processed"
	}
	if c.Session.Year == 0 {
		c.Session.Year = 2025
	}
	if c.Session.Event == "" {
		c.Session.Event = "Hungarian Grand Prix"
	}
	if c.Session.Kind == "" {
		c.Session.Kind = string(types.KindRace)
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// CacheEnabled reports whether provider responses are cached on disk.
func (c *Config) CacheEnabled() bool {
	return c.Cache.Enabled == nil || *c.Cache.Enabled
}

// SessionRef builds the session reference from the session section.
func (c *Config) SessionRef() (types.SessionRef, error) {
	kind, err := types.ParseSessionKind(c.Session.Kind)
	if err != nil {
		return types.SessionRef{}, err
	}
	return types.SessionRef{Year: c.Session.Year, Event: c.Session.Event, Kind: kind}, nil
}

func (c *Config) Validate() error {
	if c.Session.Year < 1950 || c.Session.Year > 2100 {
		return fmt.Errorf("session.year out of range: %d", c.Session.Year)
	}
	if strings.TrimSpace(c.Session.Event) == "" {
		return errors.New("session.event cannot be empty")
	}
	if _, err := types.ParseSessionKind(c.Session.Kind); err != nil {
		return fmt.Errorf("session.kind: %w", err)
	}
	if c.Provider.MaxRetries < 0 {
		return errors.New("provider.max_retries cannot be negative")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error: %q", c.Log.Level)
	}

	for name, dir := range map[string]string{
		"cache.dir":            c.Cache.Dir,
		"output.raw_dir":       c.Output.RawDir,
		"output.processed_dir": c.Output.ProcessedDir,
	} {
		if strings.TrimSpace(dir) == "" {
			return fmt.Errorf("%s cannot be empty", name)
		}
		if err := ensureWritableDir(dir); err != nil {
			return fmt.Errorf("%s not writable: %w", name, err)
		}
	}
	return nil
}

func ensureWritableDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".writable-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

func applyEnvOverrides(c *Config) {
	setString(&c.Provider.BaseURL, "F1ETL_PROVIDER_BASE_URL")
	setInt(&c.Provider.TimeoutSeconds, "F1ETL_PROVIDER_TIMEOUT_SECONDS")
	setInt(&c.Provider.MaxRetries, "F1ETL_PROVIDER_MAX_RETRIES")
	setString(&c.Provider.SessionFile, "F1ETL_SESSION_FILE")
	setString(&c.Cache.Dir, "F1ETL_CACHE_DIR")
	setString(&c.Output.RawDir, "F1ETL_RAW_DIR")
	setString(&c.Output.ProcessedDir, "F1ETL_PROCESSED_DIR")
	setBool(&c.Output.Weather, "F1ETL_WEATHER")
	setString(&c.Log.Level, "F1ETL_LOG_LEVEL")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
