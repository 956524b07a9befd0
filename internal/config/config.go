// Package config provides configuration for the lowering layer: device
// runtime selection and diagnostics settings, loaded from defaults, an
// optional YAML file, and NPLIFT_-prefixed environment variables.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// envPrefix is stripped from environment overrides: NPLIFT_DEVICE=webgpu
// sets the device key.
const envPrefix = "NPLIFT_"

// Config holds the lowering layer's settings.
type Config struct {
	// Device selects the runtime: "host" or "webgpu".
	Device string `koanf:"device"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Device:   "host",
		LogLevel: "info",
	}
}

// defaultsMap mirrors Default for the confmap provider.
func defaultsMap() map[string]any {
	d := Default()
	return map[string]any{
		"device":    d.Device,
		"log_level": d.LogLevel,
	}
}

// FindFile returns the config file to use: the explicit path if given,
// otherwise nplift.yaml or nplift.yml in the working directory.
func FindFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"nplift.yaml", "nplift.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load builds the configuration: defaults, then the YAML file at path (if
// any), then environment overrides.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaultsMap(), "."), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	switch cfg.Device {
	case "host", "webgpu":
	default:
		return nil, fmt.Errorf("config: unknown device %q", cfg.Device)
	}

	return &cfg, nil
}
