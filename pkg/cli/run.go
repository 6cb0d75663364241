package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/getmockd/urtest/pkg/bundle"
	"github.com/getmockd/urtest/pkg/cliconfig"
	"github.com/getmockd/urtest/pkg/execution"
	"github.com/getmockd/urtest/pkg/report"
	"github.com/getmockd/urtest/pkg/testpattern"
)

// Resolved is the configuration of a run before any collaborator exists.
type Resolved struct {
	Config      cliconfig.CLIConfig
	Bundler     bundle.Config
	TestPattern string
}

// Resolve reads both configuration files, parses them, merges the test
// configuration onto the defaults, derives the bundler configuration and
// resolves the test pattern. bundlePath may be empty.
func Resolve(configPath, bundlePath, fragment string) (*Resolved, error) {
	configData, err := cliconfig.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	var bundleData []byte
	if bundlePath != "" {
		if bundleData, err = cliconfig.ReadFile(bundlePath); err != nil {
			return nil, err
		}
	}

	user, err := cliconfig.ParseConfig(configPath, configData)
	if err != nil {
		return nil, err
	}
	var explicit *bundle.Config
	if bundlePath != "" {
		if explicit, err = bundle.ParseConfig(bundlePath, bundleData); err != nil {
			return nil, err
		}
	}

	cfg, err := cliconfig.Resolve(user)
	if err != nil {
		return nil, err
	}

	bcfg := bundle.Derive(explicit, cfg)
	if err := bcfg.Validate(); err != nil {
		return nil, err
	}

	return &Resolved{
		Config:      cfg,
		Bundler:     bcfg,
		TestPattern: testpattern.Resolve(fragment),
	}, nil
}

func (a *App) run(ctx context.Context, out io.Writer, opts *options, fragment string) error {
	resolved, err := Resolve(opts.configPath, opts.bundlePath, fragment)
	if err != nil {
		return err
	}
	if opts.printConfig {
		return printConfig(out, resolved)
	}

	logger := a.logger(opts)
	logger.Debug("configuration resolved", "config", opts.configPath, "bundle", opts.bundlePath, "pattern", resolved.TestPattern)

	writerOpts := []report.Option{report.WithOutput(out)}
	if opts.junitPath != "" {
		writerOpts = append(writerOpts, report.WithJUnit(opts.junitPath))
	}
	newFactories := a.Factories
	if newFactories == nil {
		newFactories = execution.DefaultFactories
	}

	execCfg, err := execution.Assemble(resolved.Config, resolved.Bundler, resolved.TestPattern, newFactories(logger, writerOpts...))
	if err != nil {
		return fmt.Errorf("assembling test run: %w", err)
	}

	serviceOpts := []execution.ServiceOption{execution.WithLogger(logger)}
	if a.BaseDir != "" {
		serviceOpts = append(serviceOpts, execution.WithBaseDir(a.BaseDir))
	}
	_, err = execution.NewService(execCfg, serviceOpts...).Execute(ctx)
	return err
}
