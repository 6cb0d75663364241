// Package testrunner runs URScript tests on a controller. Each test is
// wrapped in a harness program that connects back to a TCP test server and
// reports log lines and the outcome.
package testrunner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/getmockd/urtest/pkg/logging"
	"github.com/getmockd/urtest/pkg/report"
	"github.com/google/uuid"
)

// ScriptRunner delivers programs to the controller.
type ScriptRunner interface {
	Start(ctx context.Context) error
	Send(ctx context.Context, program string) error
	CallbackHost(configured string) (string, error)
	Restart(ctx context.Context) error
	Close(ctx context.Context) error
}

// Config is the test runner configuration.
type Config struct {
	// ScriptRunner is owned by the test runner once passed in.
	ScriptRunner ScriptRunner
	// Port the test server listens on.
	Port int
	// DefaultTimeout bounds each test. Zero means no limit.
	DefaultTimeout time.Duration
	// RestartThreshold restarts the controller after that many tests.
	// Nil disables restarts.
	RestartThreshold *int
}

// ErrNotStarted is returned by Run before Start.
var ErrNotStarted = errors.New("test runner not started")

var errNoResult = errors.New("connection closed before the test reported a result")

// Runner runs tests one at a time.
type Runner struct {
	cfg    Config
	logger *slog.Logger
	newID  func() string
	now    func() time.Time

	listener *net.TCPListener
	host     string
	executed int
}

// New creates a test runner.
func New(cfg Config, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:    cfg,
		logger: logging.OrNop(logger),
		newID:  uuid.NewString,
		now:    time.Now,
	}
}

// Config returns the configuration the runner was created with.
func (r *Runner) Config() Config { return r.cfg }

// Start starts the script runner, resolves the host test programs connect
// back to and starts listening on the test server port. When a later step
// fails the script runner is closed again.
func (r *Runner) Start(ctx context.Context, host string) (err error) {
	if err := r.cfg.ScriptRunner.Start(ctx); err != nil {
		return fmt.Errorf("starting script runner: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if cerr := r.cfg.ScriptRunner.Close(context.WithoutCancel(ctx)); cerr != nil {
			err = errors.Join(err, fmt.Errorf("closing script runner: %w", cerr))
		}
	}()

	callback, err := r.cfg.ScriptRunner.CallbackHost(host)
	if err != nil {
		return fmt.Errorf("resolving test server host: %w", err)
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", net.JoinHostPort("", strconv.Itoa(r.cfg.Port)))
	if err != nil {
		return fmt.Errorf("starting test server on port %d: %w", r.cfg.Port, err)
	}
	r.listener = ln.(*net.TCPListener)
	r.host = callback

	r.logger.Info("test server listening", "addr", ln.Addr().String(), "callbackHost", callback)
	return nil
}

// Addr returns the test server address, nil before Start.
func (r *Runner) Addr() net.Addr {
	if r.listener == nil {
		return nil
	}
	return r.listener.Addr()
}

// Run sends c to the controller and waits for its result. Failures to
// deliver the program are reported as errored results, not returned.
func (r *Runner) Run(ctx context.Context, c Case) report.Result {
	start := r.now()
	result := report.Result{Name: c.Name, File: c.File}
	finish := func(status report.Status, message string) report.Result {
		result.Status = status
		result.Message = message
		result.Duration = r.now().Sub(start)
		return result
	}

	if r.listener == nil {
		return finish(report.StatusError, ErrNotStarted.Error())
	}

	if r.restartDue() {
		if err := r.cfg.ScriptRunner.Restart(ctx); err != nil {
			return finish(report.StatusError, fmt.Sprintf("restarting controller: %v", err))
		}
	}
	r.executed++

	if r.cfg.DefaultTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.DefaultTimeout)
		defer cancel()
	}

	id := r.newID()
	port := r.listener.Addr().(*net.TCPAddr).Port
	r.logger.Debug("running test", "name", c.Name, "id", id)

	if err := r.cfg.ScriptRunner.Send(ctx, Harness(c, r.host, port, id)); err != nil {
		return finish(report.StatusError, err.Error())
	}

	out, err := r.await(ctx, id)
	result.Output = out.output
	switch {
	case err == nil:
		return finish(out.status, out.message)
	case errors.Is(err, context.Canceled):
		return finish(report.StatusError, "canceled")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return finish(report.StatusTimedOut, fmt.Sprintf("no result within %s", r.cfg.DefaultTimeout))
	default:
		return finish(report.StatusError, err.Error())
	}
}

func (r *Runner) restartDue() bool {
	t := r.cfg.RestartThreshold
	return t != nil && *t > 0 && r.executed > 0 && r.executed%*t == 0
}

type outcome struct {
	status  report.Status
	message string
	output  []string
}

// await accepts callback connections until one identifies itself with id.
// Connections from earlier tests are dropped.
func (r *Runner) await(ctx context.Context, id string) (outcome, error) {
	deadline, _ := ctx.Deadline()
	_ = r.listener.SetDeadline(deadline)
	stop := context.AfterFunc(ctx, func() { _ = r.listener.SetDeadline(time.Now()) })
	defer stop()

	for {
		conn, err := r.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return outcome{}, ctx.Err()
			}
			return outcome{}, err
		}
		out, ok, err := r.read(ctx, conn, id)
		if ok {
			return out, err
		}
	}
}

// read consumes the callback lines of one connection. ok is false when the
// connection belongs to another test.
func (r *Runner) read(ctx context.Context, conn net.Conn, id string) (out outcome, ok bool, err error) {
	defer func() { _ = conn.Close() }()

	deadline, _ := ctx.Deadline()
	_ = conn.SetDeadline(deadline)
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() || strings.TrimSpace(scanner.Text()) != lineStart+" "+id {
		r.logger.Debug("dropping callback connection", "remote", conn.RemoteAddr().String())
		return outcome{}, false, nil
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		word, rest, _ := strings.Cut(line, " ")
		switch word {
		case lineLog:
			out.output = append(out.output, rest)
		case linePass:
			out.status = report.StatusPassed
			return out, true, nil
		case lineFail:
			out.status = report.StatusFailed
			out.message = rest
			return out, true, nil
		default:
			r.logger.Debug("ignoring callback line", "line", line)
		}
	}

	if ctx.Err() != nil {
		return out, true, ctx.Err()
	}
	if err := scanner.Err(); err != nil {
		return out, true, err
	}
	return out, true, errNoResult
}

// Close stops the test server and the script runner.
func (r *Runner) Close(ctx context.Context) error {
	var errs []error
	if r.listener != nil {
		if err := r.listener.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing test server: %w", err))
		}
		r.listener = nil
	}
	if err := r.cfg.ScriptRunner.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("closing script runner: %w", err))
	}
	return errors.Join(errs...)
}
