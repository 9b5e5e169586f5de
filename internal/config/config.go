// Package config loads td's configuration.
//
// Settings come from, in increasing order of precedence: built-in
// defaults, the config file and TD_* environment variables (TD_REPO_PATH,
// TD_CHANGELOG_BACKEND, TD_LOG_FILE, ...). The config file is the one
// given with --config, or else the first of config.toml, config.yaml and
// config.yml found in $XDG_CONFIG_HOME/td.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"

	"github.com/taskdepot/td/internal/depgraph"
)

// ProgName names the config and data directories.
const ProgName = "td"

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "TD"

// Config is td's effective configuration.
type Config struct {
	RepoPath  string            `mapstructure:"repo_path" toml:"repo_path"`
	ChangeLog ChangeLogConfig   `mapstructure:"changelog" toml:"changelog"`
	Log       LogConfig         `mapstructure:"log" toml:"log"`
	Urgency   UrgencyConfig     `mapstructure:"urgency" toml:"urgency"`
	Reports   map[string]Report `mapstructure:"reports" toml:"reports"`

	// path of the file the settings were read from, empty for defaults only
	path string
}

// ChangeLogConfig selects the change log backend for new repositories.
type ChangeLogConfig struct {
	Backend string `mapstructure:"backend" toml:"backend"`
}

// LogConfig configures the diagnostic log.
type LogConfig struct {
	// File enables logging to a size-rotated file.
	File       string `mapstructure:"file" toml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" toml:"max_backups"`
}

// UrgencyConfig holds the urgency coefficients.
type UrgencyConfig struct {
	Factors Factors `mapstructure:"factors" toml:"factors"`
}

// Factors mirrors depgraph.UrgencyConfig with durations in seconds.
type Factors struct {
	Dependents          float64            `mapstructure:"dependents" toml:"dependents"`
	Blocked             float64            `mapstructure:"blocked" toml:"blocked"`
	ScheduledHigh       float64            `mapstructure:"scheduled_high" toml:"scheduled_high"`
	ScheduledLow        float64            `mapstructure:"scheduled_low" toml:"scheduled_low"`
	ScheduledActiveTime float64            `mapstructure:"scheduled_active_time" toml:"scheduled_active_time"`
	DueHigh             float64            `mapstructure:"due_high" toml:"due_high"`
	DueTimePre          float64            `mapstructure:"due_time_pre" toml:"due_time_pre"`
	DueTimePost         float64            `mapstructure:"due_time_post" toml:"due_time_post"`
	Tags                map[string]float64 `mapstructure:"tags" toml:"tags"`
}

// Report is a named, preconfigured listing.
type Report struct {
	// Filter is a filter expression, split on whitespace.
	Filter  string   `mapstructure:"filter" toml:"filter"`
	// Sort is a column name followed by + (ascending) or - (descending).
	Sort    string   `mapstructure:"sort" toml:"sort"`
	Columns []string `mapstructure:"columns" toml:"columns"`
}

// DefaultColumns is the column set of reports that name none.
var DefaultColumns = []string{"id", "tags", "urgency", "text"}

// DefaultReport is the report td runs when invoked without a command.
const DefaultReport = "next"

// Default returns the built-in configuration.
func Default() *Config {
	u := depgraph.DefaultUrgencyConfig()
	return &Config{
		RepoPath: DefaultRepoPath(),
		ChangeLog: ChangeLogConfig{
			Backend: "journal",
		},
		Log: LogConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Urgency: UrgencyConfig{
			Factors: Factors{
				Dependents:          u.Dependents,
				Blocked:             u.Blocked,
				ScheduledHigh:       u.ScheduledHigh,
				ScheduledLow:        u.ScheduledLow,
				ScheduledActiveTime: u.ScheduledActiveTime.Seconds(),
				DueHigh:             u.DueHigh,
				DueTimePre:          u.DueTimePre.Seconds(),
				DueTimePost:         u.DueTimePost.Seconds(),
				Tags:                u.Tags,
			},
		},
		Reports: map[string]Report{
			DefaultReport: {Sort: "urgency-", Columns: DefaultColumns},
		},
	}
}

// DefaultRepoPath returns $XDG_DATA_HOME/td, falling back to
// ~/.local/share/td.
func DefaultRepoPath() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, ProgName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ProgName
	}
	return filepath.Join(home, ".local", "share", ProgName)
}

// Dir returns the directory searched for a config file.
func Dir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, ProgName)
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, ProgName)
}

// findFile returns the first config file present in Dir, or "".
func findFile() string {
	dir := Dir()
	if dir == "" {
		return ""
	}
	for _, name := range []string{"config.toml", "config.yaml", "config.yml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Load builds the effective configuration. An explicit path must exist;
// with path empty, a missing config file just means defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = findFile()
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.path = v.ConfigFileUsed()

	for name, rc := range cfg.Reports {
		if len(rc.Columns) == 0 {
			rc.Columns = DefaultColumns
			cfg.Reports[name] = rc
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so environment overrides apply to it.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("repo_path", d.RepoPath)
	v.SetDefault("changelog.backend", d.ChangeLog.Backend)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)

	f := d.Urgency.Factors
	v.SetDefault("urgency.factors.dependents", f.Dependents)
	v.SetDefault("urgency.factors.blocked", f.Blocked)
	v.SetDefault("urgency.factors.scheduled_high", f.ScheduledHigh)
	v.SetDefault("urgency.factors.scheduled_low", f.ScheduledLow)
	v.SetDefault("urgency.factors.scheduled_active_time", f.ScheduledActiveTime)
	v.SetDefault("urgency.factors.due_high", f.DueHigh)
	v.SetDefault("urgency.factors.due_time_pre", f.DueTimePre)
	v.SetDefault("urgency.factors.due_time_post", f.DueTimePost)
	v.SetDefault("urgency.factors.tags", f.Tags)

	for name, rc := range d.Reports {
		v.SetDefault("reports."+name+".filter", rc.Filter)
		v.SetDefault("reports."+name+".sort", rc.Sort)
		v.SetDefault("reports."+name+".columns", rc.Columns)
	}
}

// Validate rejects settings that cannot work.
func (c *Config) Validate() error {
	var errs []error
	if c.RepoPath == "" {
		errs = append(errs, errors.New("repo_path must not be empty"))
	}
	if c.ChangeLog.Backend == "" {
		errs = append(errs, errors.New("changelog.backend must not be empty"))
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 {
		errs = append(errs, errors.New("log.max_size_mb and log.max_backups must not be negative"))
	}

	f := c.Urgency.Factors
	if f.ScheduledActiveTime < 0 || f.DueTimePre < 0 || f.DueTimePost < 0 {
		errs = append(errs, errors.New("urgency time windows must not be negative"))
	}

	names := make([]string, 0, len(c.Reports))
	for name := range c.Reports {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		sort := c.Reports[name].Sort
		if sort != "" && !strings.HasSuffix(sort, "+") && !strings.HasSuffix(sort, "-") {
			errs = append(errs, fmt.Errorf("reports.%s.sort: %q must end in + or -", name, sort))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Path returns the config file the settings came from, or "" if none.
func (c *Config) Path() string {
	return c.path
}

// UrgencyFactors converts the urgency section for the urgency engine.
func (c *Config) UrgencyFactors() depgraph.UrgencyConfig {
	f := c.Urgency.Factors
	return depgraph.UrgencyConfig{
		Dependents:          f.Dependents,
		Blocked:             f.Blocked,
		ScheduledHigh:       f.ScheduledHigh,
		ScheduledLow:        f.ScheduledLow,
		ScheduledActiveTime: seconds(f.ScheduledActiveTime),
		DueHigh:             f.DueHigh,
		DueTimePre:          seconds(f.DueTimePre),
		DueTimePost:         seconds(f.DueTimePost),
		Tags:                f.Tags,
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// ReportNames returns the configured report names, sorted.
func (c *Config) ReportNames() []string {
	names := make([]string, 0, len(c.Reports))
	for name := range c.Reports {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// WriteTOML writes the effective configuration as TOML.
func (c *Config) WriteTOML(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}
