package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"zip-resizer/internal/domain"
)

const (
	defaultPort     = 8080
	defaultLogLevel = "info"
)

// ServerConfig describes runtime configuration for the headless daemon.
type ServerConfig struct {
	Port        int    `yaml:"port"`
	WatchDir    string `yaml:"watch_dir"`
	InitialScan bool   `yaml:"initial_scan"`
	OutputDir   string `yaml:"output_dir"`
	LogLevel    string `yaml:"log_level"`
	MaxWidth    string `yaml:"max_width"`
	MaxHeight   string `yaml:"max_height"`
	Quality     string `yaml:"quality"`
}

// DefaultServer returns daemon defaults.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:     defaultPort,
		LogLevel: defaultLogLevel,
		Quality:  "80",
	}
}

// RawOptions returns the configured option inputs for the resolver.
func (c ServerConfig) RawOptions() domain.RawOptions {
	return domain.RawOptions{
		MaxWidth:  c.MaxWidth,
		MaxHeight: c.MaxHeight,
		Quality:   c.Quality,
	}
}

// LoadServer reads YAML config from the provided path. If the file does not
// exist or is empty, defaults are returned with no error.
func LoadServer(path string) (ServerConfig, error) {
	cfg := DefaultServer()
	if path == "" {
		return cfg, errors.New("empty config path")
	}
	fileData, err := os.ReadFile(path) //nolint:gosec // config path is controlled by deployment
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if len(fileData) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(fileData, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}

	cfg.WatchDir = strings.TrimSpace(cfg.WatchDir)
	cfg.OutputDir = strings.TrimSpace(cfg.OutputDir)
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return cfg, fmt.Errorf("invalid port: %d", cfg.Port)
	}
	return cfg, nil
}
