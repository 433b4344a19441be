package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ============================================================
// Configuration
// ============================================================

// ConfigFileEnv указывает на необязательный YAML с теми же ключами.
const ConfigFileEnv = "VIEWER_CONFIG"

type Config struct {
	Port         string `koanf:"port"`
	Environment  string `koanf:"env"`
	ReadTimeout  int    `koanf:"read_timeout"`
	WriteTimeout int    `koanf:"write_timeout"`

	// Viewer
	AssetPath      string        `koanf:"asset_path"`
	PanoramaRoot   string        `koanf:"panorama_root"`
	WebRoot        string        `koanf:"web_root"`
	ViewsDBPath    string        `koanf:"views_db_path"`
	MigrationsPath string        `koanf:"migrations_path"`
	WatchAsset     bool          `koanf:"watch_asset"`
	TickInterval   time.Duration `koanf:"tick_interval"`
	LoadTimeout    time.Duration `koanf:"load_timeout"`

	// Gateway
	ViewerURL string `koanf:"viewer_url"`
}

func Default() *Config {
	return &Config{
		Port:           "3000",
		Environment:    "development",
		ReadTimeout:    10,
		WriteTimeout:   10,
		AssetPath:      "building.glb",
		PanoramaRoot:   ".",
		WebRoot:        "web",
		MigrationsPath: "migrations/001_init_views.sql",
		TickInterval:   time.Second / 60,
		LoadTimeout:    30 * time.Second,
		ViewerURL:      "http://localhost:3001",
	}
}

// ViewerDefault - то же, что Default, но сервис просмотра слушает свой порт,
// чтобы жить рядом с gateway без настройки.
func ViewerDefault() *Config {
	cfg := Default()
	cfg.Port = "3001"
	return cfg
}

// Load: значения по умолчанию сервиса (nil - Default), затем YAML из
// VIEWER_CONFIG, затем переменные окружения.
func Load(defaults *Config) (*Config, error) {
	return LoadFrom(os.Getenv(ConfigFileEnv), defaults)
}

func LoadFrom(path string, defaults *Config) (*Config, error) {
	k := koanf.New(".")
	cfg := Default()
	if defaults != nil {
		c := *defaults
		cfg = &c
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	keys := knownKeys()
	if err := k.Load(env.Provider("", ".", func(s string) string {
		key := strings.ToLower(s)
		if _, ok := keys[key]; !ok {
			return ""
		}
		return key
	}), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// knownKeys - ключи, которые берутся из окружения; остальные переменные
// игнорируются.
func knownKeys() map[string]struct{} {
	keys := []string{
		"port", "env", "read_timeout", "write_timeout",
		"asset_path", "panorama_root", "web_root", "views_db_path",
		"migrations_path", "watch_asset", "tick_interval", "load_timeout",
		"viewer_url",
	}
	out := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		out[k] = struct{}{}
	}
	return out
}

func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 {
		return fmt.Errorf("timeouts must be non-negative")
	}
	if c.TickInterval < 0 {
		return fmt.Errorf("tick_interval must be non-negative")
	}
	if c.LoadTimeout < 0 {
		return fmt.Errorf("load_timeout must be non-negative")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
