// Package scriptrunner pushes URScript programs to a robot controller and,
// when asked to, launches a controller simulator for the duration of a run.
package scriptrunner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/getmockd/urtest/pkg/cliconfig"
	"github.com/getmockd/urtest/pkg/logging"
)

// Config is the script runner configuration. It is a projection of the
// controller section of the test configuration.
type Config struct {
	Host          string           `yaml:"host"`
	Port          int              `yaml:"port"`
	DashboardPort int              `yaml:"dashboardPort"`
	Controller    ControllerConfig `yaml:"controller"`
}

// ControllerConfig controls the lifecycle of a launched controller.
type ControllerConfig struct {
	AutoLaunch bool   `yaml:"autoLaunch"`
	Version    string `yaml:"version"`
	AutoStop   bool   `yaml:"autoStop"`
}

// Controller is a running controller instance.
type Controller interface {
	// Endpoint returns the address of the primary and dashboard interfaces.
	Endpoint(ctx context.Context) (host string, primary, dashboard int, err error)
	// CallbackHost is the host programs running on the controller use to
	// reach this machine.
	CallbackHost() string
	Stop(ctx context.Context) error
}

// Launcher starts controller instances.
type Launcher interface {
	Launch(ctx context.Context, version string) (Controller, error)
}

// ErrNotStarted is returned when the runner is used before Start.
var ErrNotStarted = errors.New("script runner not started")

// Runner sends programs to the controller primary interface.
type Runner struct {
	cfg      Config
	logger   *slog.Logger
	launcher Launcher
	dialer   net.Dialer

	started       bool
	controller    Controller
	host          string
	port          int
	dashboardPort int
}

// Option configures a Runner.
type Option func(*Runner)

// WithLauncher replaces the container launcher used for auto-launch.
func WithLauncher(l Launcher) Option {
	return func(r *Runner) { r.launcher = l }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) { r.logger = logging.OrNop(logger) }
}

// New creates a script runner.
func New(cfg Config, opts ...Option) *Runner {
	r := &Runner{
		cfg:      cfg,
		logger:   logging.Nop(),
		launcher: NewContainerLauncher(),
		dialer:   net.Dialer{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Config returns the configuration the runner was created with.
func (r *Runner) Config() Config { return r.cfg }

// Start launches a controller when auto-launch is enabled and resolves the
// address programs are sent to.
func (r *Runner) Start(ctx context.Context) error {
	if r.started {
		return nil
	}
	if !r.cfg.Controller.AutoLaunch {
		r.host, r.port, r.dashboardPort = r.cfg.Host, r.cfg.Port, r.cfg.DashboardPort
		r.started = true
		r.logger.Info("using running controller", "host", r.host, "port", r.port)
		return nil
	}
	if err := r.launch(ctx); err != nil {
		return err
	}
	r.started = true
	return nil
}

func (r *Runner) launch(ctx context.Context) error {
	r.logger.Info("launching controller", "version", r.cfg.Controller.Version)
	c, err := r.launcher.Launch(ctx, r.cfg.Controller.Version)
	if err != nil {
		return fmt.Errorf("launching controller %s: %w", r.cfg.Controller.Version, err)
	}
	r.controller = c

	host, primary, dashboard, err := c.Endpoint(ctx)
	if err != nil {
		return fmt.Errorf("resolving controller endpoint: %w", err)
	}
	r.host, r.port, r.dashboardPort = host, primary, dashboard
	r.logger.Info("controller launched", "host", host, "port", primary)

	if err := r.PowerOn(ctx); err != nil {
		return fmt.Errorf("powering on controller: %w", err)
	}
	return nil
}

// Send opens a connection to the primary interface and writes program.
// The controller starts running the program once the connection delivers it.
func (r *Runner) Send(ctx context.Context, program string) error {
	if !r.started {
		return ErrNotStarted
	}

	addr := net.JoinHostPort(r.host, strconv.Itoa(r.port))
	conn, err := r.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connecting to controller at %s: %w", addr, err)
	}
	defer func() { _ = conn.Close() }()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	}
	if !strings.HasSuffix(program, "\n") {
		program += "\n"
	}
	if _, err := conn.Write([]byte(program)); err != nil {
		return fmt.Errorf("sending program to %s: %w", addr, err)
	}
	r.logger.Debug("program sent", "addr", addr, "bytes", len(program))
	return nil
}

// CallbackHost resolves the host test programs connect back to. Any value
// other than "autodiscover" is returned unchanged. For a launched controller
// the launcher decides; otherwise it is the local address used to reach the
// controller.
func (r *Runner) CallbackHost(configured string) (string, error) {
	if configured != cliconfig.AutoDiscoverHost {
		return configured, nil
	}
	if !r.started {
		return "", ErrNotStarted
	}
	if r.controller != nil {
		return r.controller.CallbackHost(), nil
	}

	// A UDP dial sends nothing; it only selects the outgoing interface.
	conn, err := net.Dial("udp", net.JoinHostPort(r.host, strconv.Itoa(r.port)))
	if err != nil {
		return "", fmt.Errorf("discovering local address for %s: %w", r.host, err)
	}
	defer func() { _ = conn.Close() }()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "", fmt.Errorf("discovering local address for %s: unexpected address %v", r.host, conn.LocalAddr())
	}
	return addr.IP.String(), nil
}

// Restart replaces a launched controller with a fresh instance. With a
// controller that was not launched by urtest it does nothing.
func (r *Runner) Restart(ctx context.Context) error {
	if !r.started {
		return ErrNotStarted
	}
	if r.controller == nil {
		r.logger.Debug("restart skipped, controller not launched by urtest")
		return nil
	}

	r.logger.Info("restarting controller")
	if err := r.controller.Stop(ctx); err != nil {
		return fmt.Errorf("stopping controller: %w", err)
	}
	r.controller = nil
	return r.launch(ctx)
}

// Close stops a launched controller when auto-stop is enabled.
func (r *Runner) Close(ctx context.Context) error {
	if r.controller == nil || !r.cfg.Controller.AutoStop {
		return nil
	}
	r.logger.Info("stopping controller")
	err := r.controller.Stop(ctx)
	r.controller = nil
	r.started = false
	return err
}
