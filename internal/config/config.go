// Package config holds version constants and the optional rc file the CLI
// reads at startup.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the shape of oolong.yaml.
type Config struct {
	REPL struct {
		Prompt string `yaml:"prompt"`
		Color  bool   `yaml:"color"`
	} `yaml:"repl"`

	Debug struct {
		// PrintCode disassembles every compiled chunk to stdout.
		PrintCode bool `yaml:"print_code"`
	} `yaml:"debug"`
}

// Default returns the configuration used when no rc file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.REPL.Prompt = ">>> "
	cfg.REPL.Color = true
	return cfg
}

// Load reads and decodes the rc file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault looks for oolong.yaml in the working directory, then in the
// user config directory. A missing file is not an error.
func LoadDefault() (*Config, error) {
	paths := []string{"oolong.yaml"}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "oolong", "oolong.yaml"))
	}

	for _, path := range paths {
		cfg, err := Load(path)
		if err == nil {
			return cfg, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return Default(), nil
}
