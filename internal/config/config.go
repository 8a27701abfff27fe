// Package config defines votetracker's configuration file and its defaults.
package config

import (
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"time"

	"votetracker/internal/tracker"
	"votetracker/lib/configutil"
	configlibsql "votetracker/lib/configutil/libsql"
)

type Entity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Alerts configures the leader change email.
type Alerts struct {
	Enabled  bool     `json:"enabled"`
	SmtpHost string   `json:"smtp_host"`
	SmtpPort int      `json:"smtp_port"`
	Username string   `json:"username"`
	Password string   `json:"password"`
	From     string   `json:"from"`
	To       []string `json:"to"`
}

type Config struct {
	BaseUrl   string   `json:"base_url"`
	ContestId string   `json:"contest_id"`
	Entities  []Entity `json:"entities"`

	IntervalMs       int `json:"interval_ms"`
	Window           int `json:"window"`
	RequestTimeoutMs int `json:"request_timeout_ms"`
	// AutoStartDelayMs delays the first Start of `votetracker run`, negative disables auto start.
	AutoStartDelayMs int `json:"auto_start_delay_ms"`

	UserAgent         string  `json:"user_agent"`
	CloudflareBypass  bool    `json:"cloudflare_bypass"`
	RequestsPerSecond float64 `json:"requests_per_second"`

	// Database is where every cycle's samples are recorded, disabled when empty.
	Database configlibsql.Struct `json:"database"`
	Alerts   Alerts              `json:"alerts"`

	Verbose bool `json:"verbose"`
	// DumpDir receives full http exchanges when verbose.
	DumpDir string `json:"dump_dir"`
}

func Default() Config {
	return Config{
		BaseUrl:   "https://motionimefest.id/contest/newcomer-streamer-of-the-year/submission",
		ContestId: "23816",
		Entities: []Entity{
			{ID: "24087", Name: "xxknjt"},
			{ID: "24084", Name: "boo"},
			{ID: "24081", Name: "JustDani"},
			{ID: "24078", Name: "SonMV"},
			{ID: "24075", Name: "KekeLawar"},
			{ID: "24066", Name: "searchforemma"},
			{ID: "24072", Name: "YaraYay"},
			{ID: "24069", Name: "Wasawho"},
		},
		IntervalMs:       10_000,
		Window:           tracker.DefaultWindow,
		RequestTimeoutMs: 30_000,
		AutoStartDelayMs: 2_000,
		Alerts: Alerts{
			SmtpPort: 587,
		},
	}
}

// Load overlays the config file at path (and its .local override) on top of Default.
// A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg, err := configutil.Overlay(path, Default())
	if errors.Is(err, configutil.ErrNotFound) {
		cfg = Default()
	} else if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	err = cfg.Validate()
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	if _, err := url.ParseRequestURI(c.BaseUrl); err != nil {
		errs = append(errs, fmt.Errorf("base_url: %w", err))
	}
	if c.IntervalMs <= 0 {
		errs = append(errs, fmt.Errorf("interval_ms must be positive, got %d", c.IntervalMs))
	}
	if c.Window <= 0 {
		errs = append(errs, fmt.Errorf("window must be positive, got %d", c.Window))
	}
	if c.RequestTimeoutMs < 0 {
		errs = append(errs, fmt.Errorf("request_timeout_ms must not be negative, got %d", c.RequestTimeoutMs))
	}
	if c.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("requests_per_second must not be negative"))
	}
	if _, err := c.Registry(); err != nil {
		errs = append(errs, err)
	}
	if c.Alerts.Enabled {
		errs = append(errs, c.Alerts.validate()...)
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func (a Alerts) validate() []error {
	var errs []error
	if a.SmtpHost == "" {
		errs = append(errs, fmt.Errorf("alerts.smtp_host is required"))
	}
	if _, err := mail.ParseAddress(a.From); err != nil {
		errs = append(errs, fmt.Errorf("alerts.from: %w", err))
	}
	if len(a.To) == 0 {
		errs = append(errs, fmt.Errorf("alerts.to needs at least one address"))
	}
	for _, to := range a.To {
		if _, err := mail.ParseAddress(to); err != nil {
			errs = append(errs, fmt.Errorf("alerts.to %q: %w", to, err))
		}
	}
	return errs
}

func (c Config) Registry() (tracker.Registry, error) {
	entities := make([]tracker.Entity, len(c.Entities))
	for i, e := range c.Entities {
		entities[i] = tracker.Entity{ID: e.ID, Name: e.Name}
	}
	return tracker.NewRegistry(entities)
}

func (c Config) Interval() time.Duration {
	return time.Duration(c.IntervalMs) * time.Millisecond
}

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

func (c Config) AutoStartDelay() time.Duration {
	return time.Duration(c.AutoStartDelayMs) * time.Millisecond
}
