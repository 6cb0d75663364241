// Package bundle derives the bundler configuration for a test run and
// packages script sources into a single deployable program.
package bundle

import (
	"github.com/getmockd/urtest/pkg/cliconfig"
)

// Conventions used when no bundle configuration file is given.
const (
	DefaultBundleKey = "test-harness"
	DefaultFileName  = "default"
	DefaultOutDir    = ".urscript-test"
	DefaultSuffix    = "script"
)

// Config is the bundler configuration.
type Config struct {
	Schema  string                           `json:"$schema,omitempty" yaml:"-"`
	Sources map[string]cliconfig.SourceGroup `json:"sources" yaml:"sources"`
	Options Options                          `json:"options" yaml:"options"`
}

// Options controls where and how a bundle is written.
type Options struct {
	BundleKey   string `json:"bundleKey" yaml:"bundleKey"`
	FileName    string `json:"fileName" yaml:"fileName"`
	OutDir      string `json:"outDir" yaml:"outDir"`
	Suffix      string `json:"suffix" yaml:"suffix"`
	WriteToDisk bool   `json:"writeToDisk" yaml:"writeToDisk"`
}

// DefaultOptions returns the options of a synthesized bundle configuration.
func DefaultOptions() Options {
	return Options{
		BundleKey:   DefaultBundleKey,
		FileName:    DefaultFileName,
		OutDir:      DefaultOutDir,
		Suffix:      DefaultSuffix,
		WriteToDisk: true,
	}
}

// ParseConfig parses and validates the contents of a bundle configuration file.
func ParseConfig(path string, data []byte) (*Config, error) {
	var cfg Config
	if err := cliconfig.DecodeStrict(cliconfig.BundleConfigSchema, path, data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfigFile reads and parses a bundle configuration file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := cliconfig.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(path, data)
}

// Derive returns the effective bundler configuration.
//
// An explicit configuration is used as the starting point; without one the
// sources of cli are bundled with DefaultOptions. The global source group of
// the result is the concatenation of the starting point's global group and
// the global group of cli, in that order, so scripts named in either file are
// bundled. With "a.script" included by the test configuration and "b.script"
// by the bundle file, the global group is ["b.script", "a.script"]. Sources
// is never nil in the result.
func Derive(explicit *Config, cli cliconfig.CLIConfig) Config {
	var cfg Config
	if explicit != nil {
		cfg = Config{
			Sources: cliconfig.CloneSources(explicit.Sources),
			Options: explicit.Options,
		}
	} else {
		cfg = Config{
			Sources: cliconfig.CloneSources(cli.Sources),
			Options: DefaultOptions(),
		}
	}

	if cfg.Sources == nil {
		cfg.Sources = make(map[string]cliconfig.SourceGroup)
	}

	cfg.Sources[cliconfig.GlobalSourceGroup] = MergeSourceGroups(
		cfg.Sources[cliconfig.GlobalSourceGroup],
		cli.Sources[cliconfig.GlobalSourceGroup],
	)
	return cfg
}

// MergeSourceGroups merges groups in order into a new group. List fields are
// concatenated so no pattern is lost; Root is taken from the last group that
// sets it.
func MergeSourceGroups(groups ...cliconfig.SourceGroup) cliconfig.SourceGroup {
	merged := cliconfig.SourceGroup{
		Scripts: cliconfig.GlobSet{Include: []string{}, Exclude: []string{}},
	}
	for _, g := range groups {
		if g.Root != "" {
			merged.Root = g.Root
		}
		merged.Scripts.Include = append(merged.Scripts.Include, g.Scripts.Include...)
		merged.Scripts.Exclude = append(merged.Scripts.Exclude, g.Scripts.Exclude...)
	}
	return merged
}

// Validate checks that the options needed to write a bundle are set.
func (c *Config) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"options.bundleKey", c.Options.BundleKey},
		{"options.fileName", c.Options.FileName},
		{"options.outDir", c.Options.OutDir},
		{"options.suffix", c.Options.Suffix},
	}
	for _, r := range required {
		if r.value == "" {
			return &cliconfig.ValidationError{Field: "bundle " + r.field, Message: "is required"}
		}
	}
	if c.Sources == nil {
		return &cliconfig.ValidationError{Field: "bundle sources", Message: "is required"}
	}
	return nil
}
