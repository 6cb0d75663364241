package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/getmockd/urtest/pkg/cliconfig"
	"github.com/getmockd/urtest/pkg/execution"
	"github.com/getmockd/urtest/pkg/logging"
	"github.com/getmockd/urtest/pkg/report"
	"github.com/spf13/cobra"
)

var (
	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// FactoriesFunc creates the collaborators of a run.
type FactoriesFunc func(logger *slog.Logger, writerOpts ...report.Option) execution.Factories

// App is one invocation of the command line.
type App struct {
	Stdout io.Writer
	Stderr io.Writer
	// Factories defaults to execution.DefaultFactories.
	Factories FactoriesFunc
	// BaseDir is the directory test patterns are resolved against.
	// Defaults to the working directory.
	BaseDir string
}

type options struct {
	configPath  string
	bundlePath  string
	junitPath   string
	printConfig bool
	logLevel    string
	logFormat   string
}

// Run runs urtest with args and returns the process exit code.
func Run(args []string, stdout, stderr io.Writer) int {
	app := &App{Stdout: stdout, Stderr: stderr}
	return app.Run(args)
}

// Run runs the command line with args and returns the exit code. SIGINT
// and SIGTERM cancel a run in progress.
func (a *App) Run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if args == nil {
		// cobra falls back to os.Args for nil.
		args = []string{}
	}
	cmd := a.newRootCommand()
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(a.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func (a *App) newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "urtest [flags] [test path]",
		Short: "Run URScript tests on a robot controller",
		Long: `urtest runs URScript test scripts (*.test.script) on a Universal Robots
controller or a simulator it launches for the run.

The test configuration only needs the values that differ from the defaults.
The optional test path selects the tests to run:
  (none)               every *.test.script below the working directory
  tests/motion         every test below tests/motion
  tests/motion/home.t  test files whose path starts with tests/motion/home.t`,
		Example: `  urtest --config urtest.json
  urtest -c urtest.json -b bundle.json tests/motion
  urtest -c urtest.json --junit report.xml
  urtest -c urtest.json --print-config`,
		Args:          cobra.MaximumNArgs(1),
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true, // Reported by Run.
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.configPath == "" {
				return cmd.Help()
			}
			var fragment string
			if len(args) > 0 {
				fragment = args[0]
			}
			return a.run(cmd.Context(), cmd.OutOrStdout(), opts, fragment)
		},
	}
	cmd.SetOut(a.Stdout)
	cmd.SetErr(a.Stderr)
	cmd.SetVersionTemplate(fmt.Sprintf("urtest %s (commit %s, built %s)\n", Version, Commit, BuildDate))

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Test configuration file (JSON)")
	flags.StringVarP(&opts.bundlePath, "bundle", "b", "", "Bundle configuration file (JSON)")
	flags.StringVar(&opts.junitPath, "junit", "", "Also write a JUnit XML report to this file")
	flags.BoolVar(&opts.printConfig, "print-config", false, "Print the resolved configuration as YAML and exit")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error (default warn, or $"+cliconfig.EnvLogLevel+")")
	flags.StringVar(&opts.logFormat, "log-format", "text", "Log format: text or json")

	return cmd
}

func (a *App) logger(opts *options) *slog.Logger {
	cfg := logging.DefaultConfig()
	level := opts.logLevel
	if level == "" {
		level = os.Getenv(cliconfig.EnvLogLevel)
	}
	if level != "" {
		cfg.Level = logging.ParseLevel(level)
	}
	if opts.logFormat != "" {
		cfg.Format = logging.ParseFormat(opts.logFormat)
	}
	if a.Stderr != nil {
		cfg.Output = a.Stderr
	}
	return logging.New(cfg)
}
