// Package config loads rollindex settings. Precedence, lowest first:
// defaults, the YAML file, environment variables, command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jsphweid/rollindex/constants"
	"github.com/jsphweid/rollindex/fraction"
	"github.com/jsphweid/rollindex/logging"
	"gopkg.in/yaml.v3"
)

type Config struct {
	TicksPerQuarter int64         `yaml:"ticks_per_quarter"`
	Grid            string        `yaml:"grid"`
	IndexDir        string        `yaml:"index_dir"`
	DBPath          string        `yaml:"db_path"`
	Listen          string        `yaml:"listen"`
	Workers         int           `yaml:"workers"`
	LogLevel        string        `yaml:"log_level"`
	LogFormat       string        `yaml:"log_format"`
	AutosaveDelay   time.Duration `yaml:"autosave_delay"`
}

func Default() Config {
	return Config{
		TicksPerQuarter: constants.DefaultTicksPerQuarter,
		Grid:            "1/16",
		IndexDir:        constants.GetIndexDir(),
		DBPath:          constants.GetDBPath(),
		Listen:          ":8080",
		Workers:         4,
		LogLevel:        "info",
		LogFormat:       "text",
		AutosaveDelay:   2 * time.Second,
	}
}

// Load reads path over the defaults. An empty path skips the file. The
// result is validated.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv("INDEX_PATH"); ok && v != "" {
		c.IndexDir = v
	}
	if v, ok := os.LookupEnv("ROLLINDEX_DB"); ok && v != "" {
		c.DBPath = v
	}
	if v, ok := os.LookupEnv("LOG_LEVEL"); ok && v != "" {
		c.LogLevel = v
	}
}

// GridFraction parses Grid. Call Validate first.
func (c Config) GridFraction() (fraction.Fraction, error) {
	return fraction.Parse(c.Grid)
}

func (c Config) Validate() error {
	var errs []error
	if c.TicksPerQuarter <= 0 {
		errs = append(errs, fmt.Errorf("ticks_per_quarter must be positive, got %d", c.TicksPerQuarter))
	}
	if g, err := c.GridFraction(); err != nil {
		errs = append(errs, fmt.Errorf("grid: %w", err))
	} else if g.Sign() <= 0 {
		errs = append(errs, fmt.Errorf("grid must be positive, got %s", g))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.AutosaveDelay < 0 {
		errs = append(errs, fmt.Errorf("autosave_delay must not be negative, got %s", c.AutosaveDelay))
	}
	if c.IndexDir == "" {
		errs = append(errs, errors.New("index_dir is required"))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path is required"))
	}
	return errors.Join(errs...)
}

func (c Config) Logging() logging.Config {
	lc := logging.DefaultConfig()
	lc.Level = c.LogLevel
	lc.Format = c.LogFormat
	return lc
}
