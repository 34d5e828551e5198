package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v2"
)

// Config is the global tool configuration.
// Every key can be overridden by the flag with the same name.
type Config struct {
	LogLevel string `yaml:"log-level"`
	Output   string `yaml:"output"`
	Strict   bool   `yaml:"strict"`
}

var defaultConfig = Config{
	LogLevel: "info",
	Output:   outputTree,
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "fattree", "config.yml")
}

// readConfig loads the config file. A missing file just results in the defaults.
func readConfig(afs afero.Fs, path string) (Config, error) {
	cfg := defaultConfig
	if path == "" {
		return cfg, nil
	}

	raw, err := afero.ReadFile(afs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read %q: %w", path, err)
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %q: %w", path, err)
	}

	return cfg, nil
}
