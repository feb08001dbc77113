// Package config loads grantdash settings from a .grantdash file and
// GRANTDASH_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"grant-dashboard/dashboard"
	"grant-dashboard/listview"
)

type Config struct {
	APIURL        string        `mapstructure:"api_url"`
	Listen        string        `mapstructure:"listen"`
	DataDir       string        `mapstructure:"data_dir"`
	QueryLimit    int           `mapstructure:"query_limit"`
	PageSize      int           `mapstructure:"page_size"`
	Locale        string        `mapstructure:"locale"`
	ReloadWindow  time.Duration `mapstructure:"reload_window"`
	HTTPTimeout   time.Duration `mapstructure:"http_timeout"`
	AnalyticsDays int           `mapstructure:"analytics_days"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_url", "http://localhost:8000/api/v1")
	v.SetDefault("listen", ":8090")
	v.SetDefault("data_dir", "~/.grantdash")
	v.SetDefault("query_limit", 100)
	v.SetDefault("page_size", 25)
	v.SetDefault("locale", "es")
	v.SetDefault("reload_window", 30*time.Millisecond)
	v.SetDefault("http_timeout", 30*time.Second)
	v.SetDefault("analytics_days", 30)
}

// Load reads the configuration. A missing config file is not an error. v
// may carry flag bindings; nil starts from a fresh viper instance.
func Load(v *viper.Viper) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	setDefaults(v)
	v.SetConfigName(".grantdash") // .yaml is implicit
	v.SetEnvPrefix("GRANTDASH")
	v.AutomaticEnv()

	if override := os.Getenv("GRANTDASH_CONFIG_PATH"); override != "" {
		v.AddConfigPath(override)
	}
	v.AddConfigPath("./")
	if home, err := homedir.Dir(); err == nil {
		v.AddConfigPath(home)
		v.AddConfigPath(filepath.Join(home, ".grantdash"))
	}

	var cfg Config
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("reading config file: %w", err)
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	dir, err := homedir.Expand(cfg.DataDir)
	if err != nil {
		return cfg, fmt.Errorf("expanding data_dir: %w", err)
	}
	cfg.DataDir = dir

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api_url %q must be an http or https URL", c.APIURL)
	}
	if c.QueryLimit < 1 || c.QueryLimit > 500 {
		return fmt.Errorf("query_limit %d must be between 1 and 500", c.QueryLimit)
	}
	validSize := false
	for _, n := range listview.PageSizes {
		validSize = validSize || n == c.PageSize
	}
	if !validSize {
		return fmt.Errorf("page_size %d must be one of %v", c.PageSize, listview.PageSizes)
	}
	if c.ReloadWindow < 0 {
		return fmt.Errorf("reload_window must not be negative")
	}
	if c.AnalyticsDays < 1 || c.AnalyticsDays > 365 {
		return fmt.Errorf("analytics_days %d must be between 1 and 365", c.AnalyticsDays)
	}
	return nil
}

// DatabasePath is the local sqlite file.
func (c Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "grantdash.db")
}

// IdentityDir holds the persisted client id.
func (c Config) IdentityDir() string {
	return filepath.Join(c.DataDir, "identity")
}

// Session is the dashboard part of the configuration.
func (c Config) Session() dashboard.Config {
	return dashboard.Config{
		QueryLimit:    c.QueryLimit,
		PageSize:      c.PageSize,
		Locale:        c.Locale,
		ReloadWindow:  c.ReloadWindow,
		AnalyticsDays: c.AnalyticsDays,
	}
}
