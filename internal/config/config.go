package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Calendar backends.
const (
	BackendGoogle = "google"
	BackendICS    = "ics"
)

// ActivityWatchConfig points at the local activity tracker.
type ActivityWatchConfig struct {
	URL string `yaml:"url" json:"url"`
	// Bucket is discovered from the tracker when empty.
	Bucket string `yaml:"bucket" json:"bucket"`
}

// SummarizerConfig configures the Ollama server used for narratives.
type SummarizerConfig struct {
	URL            string `yaml:"url" json:"url"`
	Model          string `yaml:"model" json:"model"`
	Stream         bool   `yaml:"stream" json:"stream"`
	MaxChars       int    `yaml:"max_chars" json:"max_chars"`
	TimeoutSeconds int    `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// Timeout returns the request timeout as a duration.
func (s SummarizerConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// CalendarConfig selects where derived events are written and read.
type CalendarConfig struct {
	// Backend is "google" (REST API with a stored token) or "ics" (local file).
	Backend    string `yaml:"backend" json:"backend"`
	APIBase    string `yaml:"api_base" json:"api_base"`
	CalendarID string `yaml:"calendar_id" json:"calendar_id"`
	ICSPath    string `yaml:"ics_path" json:"ics_path"`
}

// SubscriptionConfig is one read-only ICS feed shown on the timeline.
type SubscriptionConfig struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
	URL  string `yaml:"url" json:"url"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the web surface.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone hours and days are aligned to. Empty means
	// the host's local zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// Schedule is a five-field cron expression for the periodic run.
	Schedule string `yaml:"schedule" json:"schedule"`

	ActivityWatch ActivityWatchConfig `yaml:"activitywatch" json:"activitywatch"`
	Summarizer    SummarizerConfig    `yaml:"summarizer" json:"summarizer"`
	Calendar      CalendarConfig      `yaml:"calendar" json:"calendar"`

	Subscriptions []SubscriptionConfig `yaml:"subscriptions" json:"subscriptions"`

	// TokenDB is the SQLite database holding calendar tokens.
	TokenDB string `yaml:"token_db" json:"token_db"`

	// CacheDir holds ICS subscription caches.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// Browsers are app names whose window titles count as browser tabs.
	Browsers []string `yaml:"browsers" json:"browsers"`

	// BasicAuth, if non-nil, protects every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultDir is the directory holding config, tokens and caches.
func DefaultDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "actcal")
	}
	return ".actcal"
}

// DefaultPath is the config file used when --config is not given.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Normalize()
	return cfg
}

// Normalize fills in missing values with defaults so partially-filled
// configs still behave.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.Schedule == "" {
		c.Schedule = "0 * * * *"
	}

	if c.ActivityWatch.URL == "" {
		c.ActivityWatch.URL = "http://localhost:5600"
	}

	if c.Summarizer.URL == "" {
		c.Summarizer.URL = "http://localhost:11434"
	}
	if c.Summarizer.Model == "" {
		c.Summarizer.Model = "mistral"
	}
	if c.Summarizer.MaxChars <= 0 {
		c.Summarizer.MaxChars = 600
	}
	if c.Summarizer.TimeoutSeconds <= 0 {
		c.Summarizer.TimeoutSeconds = 120
	}

	switch strings.ToLower(c.Calendar.Backend) {
	case BackendICS:
		c.Calendar.Backend = BackendICS
	default:
		// Unknown values fall back to the hosted calendar.
		c.Calendar.Backend = BackendGoogle
	}
	if c.Calendar.APIBase == "" {
		c.Calendar.APIBase = "https://www.googleapis.com/calendar/v3"
	}
	if c.Calendar.CalendarID == "" {
		c.Calendar.CalendarID = "primary"
	}
	if c.Calendar.ICSPath == "" {
		c.Calendar.ICSPath = filepath.Join(DefaultDir(), "activity.ics")
	}

	if c.Subscriptions == nil {
		c.Subscriptions = []SubscriptionConfig{}
	}
	for i := range c.Subscriptions {
		if c.Subscriptions[i].ID == "" {
			c.Subscriptions[i].ID = fmt.Sprintf("sub-%d", i+1)
		}
	}

	if c.TokenDB == "" {
		c.TokenDB = filepath.Join(DefaultDir(), "tokens.db")
	}
	if c.CacheDir == "" {
		c.CacheDir = filepath.Join(DefaultDir(), "ics-cache")
	}
	if len(c.Browsers) == 0 {
		c.Browsers = []string{"chrome.exe", "msedge.exe", "brave.exe", "firefox.exe"}
	}
}

// Location resolves Timezone. Empty means time.Local.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Load reads the YAML config at path. A missing file is created with
// defaults (0600) and the defaults are returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// The defaults are still usable; the caller decides.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()
	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions, creating the parent directory if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".actcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
