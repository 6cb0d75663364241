package cliconfig

import (
	"os"
)

// ReadFile reads a configuration file. Failures are returned as *LoadError.
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return data, nil
}

// ParseConfig parses and validates the contents of a test configuration file.
func ParseConfig(path string, data []byte) (*PartialConfig, error) {
	var cfg PartialConfig
	if err := DecodeStrict(TestConfigSchema, path, data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfigFile reads and parses a test configuration file.
func LoadConfigFile(path string) (*PartialConfig, error) {
	data, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(path, data)
}

// Resolve merges user onto the defaults, applies environment overrides and
// validates the result.
func Resolve(user *PartialConfig) (CLIConfig, error) {
	cfg := Merge(Defaults(), user)
	if err := LoadEnvConfig(&cfg); err != nil {
		return CLIConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return CLIConfig{}, err
	}
	return cfg, nil
}
