package cli

import (
	"fmt"
	"io"

	"github.com/getmockd/urtest/pkg/bundle"
	"github.com/getmockd/urtest/pkg/cliconfig"
	"github.com/getmockd/urtest/pkg/execution"
	"github.com/getmockd/urtest/pkg/scriptrunner"
	"gopkg.in/yaml.v3"
)

type testRunnerView struct {
	Port             int    `yaml:"port"`
	DefaultTimeout   string `yaml:"defaultTimeout"`
	RestartThreshold *int   `yaml:"restartThreshold"`
}

type printedConfig struct {
	Config       cliconfig.CLIConfig   `yaml:"config"`
	Bundler      bundle.Config         `yaml:"bundler"`
	ScriptRunner scriptrunner.Config   `yaml:"scriptRunner"`
	TestRunner   testRunnerView        `yaml:"testRunner"`
	Environment  execution.Environment `yaml:"environment"`
	TestPattern  string                `yaml:"testPattern"`
}

// printConfig writes the resolved configuration and its projections as YAML.
func printConfig(w io.Writer, r *Resolved) error {
	tr := execution.TestRunnerConfig(r.Config, nil)
	doc := printedConfig{
		Config:       r.Config,
		Bundler:      r.Bundler,
		ScriptRunner: execution.ScriptRunnerConfig(r.Config),
		TestRunner: testRunnerView{
			Port:             tr.Port,
			DefaultTimeout:   tr.DefaultTimeout.String(),
			RestartThreshold: tr.RestartThreshold,
		},
		Environment: execution.Environment{
			Host: r.Config.TestServer.Host,
			Port: r.Config.TestServer.Port,
		},
		TestPattern: r.TestPattern,
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding configuration: %w", err)
	}
	return enc.Close()
}
