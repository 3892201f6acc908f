package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v2"

	"github.com/liamcoop/costpredictor/internal/logger"
)

// Config is the server configuration. Values come from, in increasing
// precedence: built-in defaults, the YAML file given by --config, then flags
// and their environment variables.
type Config struct {
	Host        string    `yaml:"host"`
	Port        int       `yaml:"port"`
	ModelPath   string    `yaml:"model_path"`
	WatchModel  bool      `yaml:"watch_model"`
	CORSOrigins []string  `yaml:"cors_origins"`
	MaxBodySize int64     `yaml:"max_body_bytes"`
	Log         LogConfig `yaml:"log"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

func DefaultConfig() Config {
	return Config{
		Host:        "0.0.0.0",
		Port:        5000,
		ModelPath:   "models/travel_cost_predictor.json",
		CORSOrigins: []string{"*"},
		MaxBodySize: 1 << 20,
		Log: LogConfig{
			Level:      "debug",
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Addr is the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoggerOptions maps the log section onto logger.Setup options.
func (c Config) LoggerOptions() logger.Options {
	return logger.Options{
		Level:      c.Log.Level,
		Format:     c.Log.Format,
		File:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
	}
}

func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if strings.TrimSpace(c.ModelPath) == "" {
		return fmt.Errorf("model path is required")
	}
	if c.MaxBodySize <= 0 {
		return fmt.Errorf("max body size must be positive")
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// loadConfigFile overlays the YAML file at path onto cfg.
func loadConfigFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
		return fmt.Errorf("failed to decode config file %s: %w", path, err)
	}
	return nil
}

const envPrefix = "COSTPREDICTOR_"

func serverFlags() []cli.Flag {
	def := DefaultConfig()
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to a YAML config file",
			EnvVars: []string{envPrefix + "CONFIG"},
		},
		&cli.StringFlag{
			Name:    "host",
			Value:   def.Host,
			Usage:   "Interface to listen on",
			EnvVars: []string{envPrefix + "HOST"},
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   def.Port,
			Usage:   "Port to listen on",
			EnvVars: []string{envPrefix + "PORT", "PORT"},
		},
		&cli.StringFlag{
			Name:    "model-path",
			Value:   def.ModelPath,
			Usage:   "Path to the serialized cost model",
			EnvVars: []string{envPrefix + "MODEL_PATH"},
		},
		&cli.BoolFlag{
			Name:    "watch-model",
			Usage:   "Reload the model when the artifact file changes",
			EnvVars: []string{envPrefix + "WATCH_MODEL"},
		},
		&cli.StringSliceFlag{
			Name:    "cors-origins",
			Value:   cli.NewStringSlice(def.CORSOrigins...),
			Usage:   "Allowed CORS origins (* for any)",
			EnvVars: []string{envPrefix + "CORS_ORIGINS"},
		},
		&cli.Int64Flag{
			Name:    "max-body-bytes",
			Value:   def.MaxBodySize,
			Usage:   "Maximum request body size",
			EnvVars: []string{envPrefix + "MAX_BODY_BYTES"},
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   def.Log.Level,
			Usage:   "Log level (trace, debug, info, warn, error)",
			EnvVars: []string{envPrefix + "LOG_LEVEL", "LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   def.Log.Format,
			Usage:   "Log format (json, text, discard)",
			EnvVars: []string{envPrefix + "LOG_FORMAT"},
		},
		&cli.StringFlag{
			Name:    "log-file",
			Usage:   "Also write logs to this file, rotated by size",
			EnvVars: []string{envPrefix + "LOG_FILE"},
		},
	}
}

// configFromCLI resolves the effective configuration. Flags only override
// the file when they were set explicitly or through their environment variable.
func configFromCLI(c *cli.Context) (Config, error) {
	cfg := DefaultConfig()

	if path := c.String("config"); path != "" {
		if err := loadConfigFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if c.IsSet("host") {
		cfg.Host = c.String("host")
	}
	if c.IsSet("port") {
		cfg.Port = c.Int("port")
	}
	if c.IsSet("model-path") {
		cfg.ModelPath = c.String("model-path")
	}
	if c.IsSet("watch-model") {
		cfg.WatchModel = c.Bool("watch-model")
	}
	if c.IsSet("cors-origins") {
		cfg.CORSOrigins = c.StringSlice("cors-origins")
	}
	if c.IsSet("max-body-bytes") {
		cfg.MaxBodySize = c.Int64("max-body-bytes")
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.Log.Format = c.String("log-format")
	}
	if c.IsSet("log-file") {
		cfg.Log.File = c.String("log-file")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
