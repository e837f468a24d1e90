// Package config loads the meanface settings from YAML files, .env files and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "MEANFACE_"

// Config holds all configuration options of the face averaging tool.
type Config struct {
	Average   AverageConfig   `yaml:"average"`
	Landmarks LandmarksConfig `yaml:"landmarks"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// AverageConfig holds the averaging run options.
type AverageConfig struct {
	Width     int     `yaml:"width"`
	Height    int     `yaml:"height"`
	Layout    string  `yaml:"layout"`
	Tolerance float64 `yaml:"tolerance"`
	Workers   int     `yaml:"workers"`
	Quality   int     `yaml:"quality"`
}

// LandmarksConfig holds the landmark database builder options.
type LandmarksConfig struct {
	CascadeDir   string `yaml:"cascade_dir"`
	DeleteErrors bool   `yaml:"delete_errors"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Default returns a Config instance with the default settings.
func Default() *Config {
	return &Config{
		Average: AverageConfig{
			Width:     600,
			Height:    600,
			Layout:    "dlib68",
			Tolerance: 1.0,
			Workers:   0, // 0 means one worker per CPU
			Quality:   95,
		},
		Landmarks: LandmarksConfig{
			CascadeDir: "./cascade",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads the YAML file at path over the default settings.
// An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// ApplyEnv loads the .env file of the working directory, when there is one,
// and overrides the settings with the MEANFACE_* environment variables.
func (c *Config) ApplyEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env file: %w", err)
	}

	var errs []error
	envInt := func(name string, dst *int) {
		if v, ok := lookup(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}

	envInt("WIDTH", &c.Average.Width)
	envInt("HEIGHT", &c.Average.Height)
	envInt("WORKERS", &c.Average.Workers)
	envInt("QUALITY", &c.Average.Quality)

	if v, ok := lookup("TOLERANCE"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sTOLERANCE: %w", EnvPrefix, err))
		} else {
			c.Average.Tolerance = f
		}
	}
	if v, ok := lookup("LAYOUT"); ok {
		c.Average.Layout = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok {
		c.Logging.Level = v
	}
	if v, ok := lookup("CASCADE_DIR"); ok {
		c.Landmarks.CascadeDir = v
	}
	return errors.Join(errs...)
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Average.Width <= 0 || c.Average.Height <= 0 {
		errs = append(errs, errors.New("canvas width and height must be positive"))
	}
	if c.Average.Tolerance <= 0 {
		errs = append(errs, errors.New("vertex tolerance must be positive"))
	}
	if c.Average.Workers < 0 {
		errs = append(errs, errors.New("workers cannot be negative"))
	}
	if c.Average.Quality < 1 || c.Average.Quality > 100 {
		errs = append(errs, errors.New("quality must be between 1 and 100"))
	}
	validLayouts := map[string]bool{"dlib68": true, "dlib5": true, "pigo": true}
	if !validLayouts[c.Average.Layout] {
		errs = append(errs, fmt.Errorf("invalid landmark layout %q", c.Average.Layout))
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Logging.Level))
	}
	validFormats := map[string]bool{"console": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Errorf("invalid log format %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}
