// Package execution turns a resolved configuration into the collaborators of
// a test run and runs it.
package execution

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/getmockd/urtest/pkg/bundle"
	"github.com/getmockd/urtest/pkg/cliconfig"
	"github.com/getmockd/urtest/pkg/report"
	"github.com/getmockd/urtest/pkg/scriptrunner"
	"github.com/getmockd/urtest/pkg/testrunner"
)

// ScriptRunner delivers programs to the controller.
type ScriptRunner = testrunner.ScriptRunner

// TestRunner runs single tests against the test server.
type TestRunner interface {
	Start(ctx context.Context, host string) error
	Run(ctx context.Context, c testrunner.Case) report.Result
	Close(ctx context.Context) error
}

// ResultWriter records results and produces the run summary.
type ResultWriter interface {
	Record(r report.Result)
	Flush() (*report.Summary, error)
}

// Environment is where the test server runs.
type Environment struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Config is the test execution configuration. It owns the test runner and
// the result writer.
type Config struct {
	TestRunner   TestRunner
	Environment  Environment
	TestPattern  string
	Mocks        cliconfig.GlobSet
	Bundler      bundle.Config
	ResultWriter ResultWriter
}

// Factories create the collaborators of a run.
type Factories struct {
	ScriptRunner func(cfg scriptrunner.Config) (ScriptRunner, error)
	TestRunner   func(cfg testrunner.Config) (TestRunner, error)
	ResultWriter func() (ResultWriter, error)
}

// DefaultFactories returns factories for the concrete collaborators.
func DefaultFactories(logger *slog.Logger, writerOpts ...report.Option) Factories {
	return Factories{
		ScriptRunner: func(cfg scriptrunner.Config) (ScriptRunner, error) {
			return scriptrunner.New(cfg, scriptrunner.WithLogger(logger)), nil
		},
		TestRunner: func(cfg testrunner.Config) (TestRunner, error) {
			return testrunner.New(cfg, logger), nil
		},
		ResultWriter: func() (ResultWriter, error) {
			return report.NewWriter(writerOpts...), nil
		},
	}
}

// ScriptRunnerConfig projects the controller section. The stored flag says
// whether auto-launch is disabled; the script runner wants the inverse.
func ScriptRunnerConfig(cli cliconfig.CLIConfig) scriptrunner.Config {
	c := cli.Controller
	return scriptrunner.Config{
		Host:          c.Host,
		Port:          c.Ports.Primary,
		DashboardPort: c.Ports.Dashboard,
		Controller: scriptrunner.ControllerConfig{
			AutoLaunch: !c.AutoLaunch.Disabled,
			Version:    c.AutoLaunch.Version,
			AutoStop:   c.AutoLaunch.AutoStop,
		},
	}
}

// TestRunnerConfig projects the test server section around sr. A nil
// restart threshold is passed through and means no restarts.
func TestRunnerConfig(cli cliconfig.CLIConfig, sr ScriptRunner) testrunner.Config {
	ts := cli.TestServer
	cfg := testrunner.Config{
		ScriptRunner:   sr,
		Port:           ts.Port,
		DefaultTimeout: time.Duration(ts.DefaultTimeout) * time.Millisecond,
	}
	if ts.RestartThreshold != nil {
		threshold := *ts.RestartThreshold
		cfg.RestartThreshold = &threshold
	}
	return cfg
}

// Assemble builds the execution configuration. The script runner, the test
// runner and the result writer are created once each, in that order. The
// script runner is owned by the test runner and not kept here.
func Assemble(cli cliconfig.CLIConfig, bundler bundle.Config, pattern string, f Factories) (*Config, error) {
	sr, err := f.ScriptRunner(ScriptRunnerConfig(cli))
	if err != nil {
		return nil, fmt.Errorf("creating script runner: %w", err)
	}

	tr, err := f.TestRunner(TestRunnerConfig(cli, sr))
	if err != nil {
		return nil, fmt.Errorf("creating test runner: %w", err)
	}

	rw, err := f.ResultWriter()
	if err != nil {
		return nil, fmt.Errorf("creating result writer: %w", err)
	}

	return &Config{
		TestRunner: tr,
		Environment: Environment{
			Host: cli.TestServer.Host,
			Port: cli.TestServer.Port,
		},
		TestPattern:  pattern,
		Mocks:        cli.Mocks.Clone(),
		Bundler:      bundler,
		ResultWriter: rw,
	}, nil
}
