package config

import (
	"os"

	"github.com/rileyhilliard/portctl/internal/errors"
	"gopkg.in/yaml.v3"
)

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to encode config",
			"This is a bug; please report it")
	}
	return data, nil
}

// Write saves cfg to path, replacing any existing file.
func Write(path string, cfg *Config) error {
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to write config file "+path,
			"Check directory permissions")
	}
	return nil
}
