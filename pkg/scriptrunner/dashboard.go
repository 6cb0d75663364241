package scriptrunner

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// dashboardRetryInterval is the pause between attempts while the dashboard
// server is still booting.
const dashboardRetryInterval = 2 * time.Second

// PowerOn powers the robot arm on and releases the brakes through the
// dashboard server so the controller accepts programs. It retries until ctx
// is done because the dashboard server comes up after the primary interface.
func (r *Runner) PowerOn(ctx context.Context) error {
	var lastErr error
	for {
		lastErr = r.dashboard(ctx, "power on", "brake release")
		if lastErr == nil {
			return nil
		}
		r.logger.Debug("dashboard not ready", "error", lastErr)

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr)
		case <-time.After(dashboardRetryInterval):
		}
	}
}

// dashboard sends commands to the dashboard server, one line each, and
// checks that every reply is not an error.
func (r *Runner) dashboard(ctx context.Context, commands ...string) error {
	addr := net.JoinHostPort(r.host, strconv.Itoa(r.dashboardPort))
	conn, err := r.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()
	_ = conn.SetDeadline(time.Now().Add(30 * time.Second))

	reader := bufio.NewReader(conn)
	// Welcome banner.
	if _, err := reader.ReadString('\n'); err != nil {
		return fmt.Errorf("reading dashboard banner: %w", err)
	}

	for _, cmd := range commands {
		if _, err := conn.Write([]byte(cmd + "\n")); err != nil {
			return fmt.Errorf("dashboard %q: %w", cmd, err)
		}
		reply, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("dashboard %q: %w", cmd, err)
		}
		reply = strings.TrimSpace(reply)
		if isDashboardError(reply) {
			return fmt.Errorf("dashboard %q: %s", cmd, reply)
		}
		r.logger.Debug("dashboard", "command", cmd, "reply", reply)
	}
	return nil
}

func isDashboardError(reply string) bool {
	lower := strings.ToLower(reply)
	return strings.HasPrefix(lower, "could not") ||
		strings.HasPrefix(lower, "failed") ||
		strings.Contains(lower, "error")
}
