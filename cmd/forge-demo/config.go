package main

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config is the demo's TOML configuration: host settings plus the
// component manifest handed to the lifecycle manager.
type Config struct {
	Log        LogConfig         `toml:"log"`
	Components []ComponentConfig `toml:"component"`
}

type LogConfig struct {
	// Level: "debug", "info", or "error". Defaults to info.
	Level string `toml:"level"`
}

// ComponentConfig is one manifest entry. Module names a built-in demo
// module the resolver can turn into a creation function.
type ComponentConfig struct {
	Name     string   `toml:"name"`
	Version  string   `toml:"version"`
	Module   string   `toml:"module"`
	Provides []string `toml:"provides"`
	Requires []string `toml:"requires"`
}

func LoadConfig(path string) (Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	for i, c := range cfg.Components {
		if c.Name == "" {
			return Config{}, fmt.Errorf("config %s: component %d has no name", path, i)
		}
		if c.Module == "" {
			return Config{}, fmt.Errorf("config %s: component %q has no module", path, c.Name)
		}
	}
	return cfg, nil
}

// DefaultConfig is used when no config file is given: a greeter offering
// the greeting capability, decorated and consumed by an announcer.
func DefaultConfig() Config {
	return Config{
		Log: LogConfig{Level: "info"},
		Components: []ComponentConfig{
			{Name: "announcer", Module: "builtin:announcer", Requires: []string{"demo.greeting"}},
			{Name: "greeter", Module: "builtin:greeter", Provides: []string{"demo.greeting"}},
			{Name: "shouter", Module: "builtin:shouter", Requires: []string{"demo.greeting"}},
		},
	}
}
