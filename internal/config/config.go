package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"timegrid/internal/layout"
	appLog "timegrid/internal/log"
	"timegrid/internal/week"
)

// ICSConfig describes a single ICS feed whose events populate the week view.
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID tags events from this feed and keys its logs.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
}

// FeedID returns ID, falling back to Name and then URL.
func (c ICSConfig) FeedID() string {
	switch {
	case c.ID != "":
		return c.ID
	case c.Name != "":
		return c.Name
	default:
		return c.URL
	}
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone events are normalized into before layout.
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart is "monday" (default) or "sunday".
	WeekStart string `yaml:"week_start" json:"week_start"`

	// StartHour is the first visible hour of the grid (0-23).
	StartHour int `yaml:"start_hour" json:"start_hour"`

	// RefreshCron is the cron schedule for re-fetching ICS feeds.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// ColumnMode is "uncapped" (default) or "capped"; see layout.ColumnMode.
	ColumnMode string `yaml:"column_mode" json:"column_mode"`

	// InvertedPolicy is "permissive" (default), "normalize" or "reject".
	InvertedPolicy string `yaml:"inverted_policy" json:"inverted_policy"`

	// SnapTolerance is the drag snapping distance in hours.
	SnapTolerance float64 `yaml:"snap_tolerance" json:"snap_tolerance"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	// CacheDir holds the per-feed HTTP cache.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// BasicAuth, if set, guards every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen      = "127.0.0.1:8080"
	defaultTimezone    = "UTC"
	defaultRefreshCron = "*/15 * * * *"
	defaultCacheDir    = "./var/ics-cache"
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:         defaultListen,
		Timezone:       defaultTimezone,
		WeekStart:      "monday",
		StartHour:      0,
		RefreshCron:    defaultRefreshCron,
		ColumnMode:     string(layout.ColumnsUncapped),
		InvertedPolicy: string(layout.InvertedPermissive),
		SnapTolerance:  layout.SnapTolerance,
		LogLevel:       "info",
		CacheDir:       defaultCacheDir,
		ICS:            []ICSConfig{},
	}
}

// Normalize fills in missing values and replaces invalid ones with defaults,
// so older or hand-edited files still load.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if _, err := week.ParseWeekday(c.WeekStart); err != nil || c.WeekStart == "" {
		c.WeekStart = "monday"
	}
	if c.StartHour < 0 || c.StartHour > 23 {
		appLog.Warn("config: start_hour out of range, using 0", "start_hour", c.StartHour)
		c.StartHour = 0
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if m, err := layout.ParseColumnMode(c.ColumnMode); err != nil {
		appLog.Warn("config: unknown column_mode, using uncapped", "column_mode", c.ColumnMode)
		c.ColumnMode = string(layout.ColumnsUncapped)
	} else {
		c.ColumnMode = string(m)
	}
	if p, err := layout.ParseInvertedPolicy(c.InvertedPolicy); err != nil {
		appLog.Warn("config: unknown inverted_policy, using permissive", "inverted_policy", c.InvertedPolicy)
		c.InvertedPolicy = string(layout.InvertedPermissive)
	} else {
		c.InvertedPolicy = string(p)
	}
	if c.SnapTolerance <= 0 {
		c.SnapTolerance = layout.SnapTolerance
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
}

// LayoutOptions converts the layout-related fields into engine options.
// Call Normalize first; unparsable values fall back to the defaults.
func (c *Config) LayoutOptions() layout.Options {
	mode, _ := layout.ParseColumnMode(c.ColumnMode)
	policy, _ := layout.ParseInvertedPolicy(c.InvertedPolicy)
	return layout.Options{
		StartHour: c.StartHour,
		Columns:   mode,
		Inverted:  policy,
	}
}

// Load reads the YAML file at path. A missing file is created with the
// defaults (0600) and those defaults are returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save normalizes cfg and writes it atomically (temp file + rename) with
// 0600 permissions, creating the parent directory (0700) if needed.
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

	tmp, err := os.CreateTemp(dir, ".timegrid-config-*.tmp")
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

// Save delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
