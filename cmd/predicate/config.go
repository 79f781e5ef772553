package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Logger  LoggerConfig      `yaml:"logger"`
	Codec   CodecConfig       `yaml:"codec"`
	Scripts map[string]string `yaml:"scripts"`
	Metrics MetricsConfig     `yaml:"metrics"`
}

type LoggerConfig struct {
	Level string `yaml:"level"`
	Type  string `yaml:"type"`
}

type CodecConfig struct {
	AllowCodeReconstruction bool `yaml:"allowCodeReconstruction"`
}

type MetricsConfig struct {
	Namespace string `yaml:"namespace"`
	File      string `yaml:"file"`
}

func DefaultConfig() *Config {
	return &Config{
		Logger: LoggerConfig{
			Level: "info",
			Type:  "text",
		},
		Metrics: MetricsConfig{
			Namespace: "predicate",
		},
	}
}

// LoadConfig reads a YAML config file over the defaults. An empty path
// yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config: %w", err)
	}
	return cfg, nil
}

func parseLoggerConfig(cfg LoggerConfig, w io.Writer) (*slog.Logger, error) {
	var handler slog.Handler

	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid log level: %s", cfg.Level)
	}

	switch cfg.Type {
	case "json":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	case "text":
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	case "colored-text":
		handler = tint.NewHandler(w, &tint.Options{Level: level})
	default:
		return nil, fmt.Errorf("invalid log type: %s", cfg.Type)
	}

	return slog.New(handler), nil
}
