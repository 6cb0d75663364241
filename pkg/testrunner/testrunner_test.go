package testrunner

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/getmockd/urtest/pkg/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	socketOpenRe = regexp.MustCompile(`socket_open\("([^"]+)", (\d+), "urtest"\)`)
	startRe      = regexp.MustCompile(`"START ([^"]+)"`)
)

// fakeScriptRunner plays the controller: every program it receives is
// answered by dialing the test server and writing lines.
type fakeScriptRunner struct {
	mu       sync.Mutex
	programs []string
	restarts int
	closed   bool
	sendErr  error
	hostErr  error
	// reply returns the lines to send for the n-th program, START excluded.
	// A nil result means the program never connects back.
	reply func(n int) []string
	wg    sync.WaitGroup
}

func (f *fakeScriptRunner) Start(context.Context) error { return nil }

func (f *fakeScriptRunner) CallbackHost(configured string) (string, error) {
	if f.hostErr != nil {
		return "", f.hostErr
	}
	if configured == "autodiscover" {
		return "127.0.0.1", nil
	}
	return configured, nil
}

func (f *fakeScriptRunner) Restart(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restarts++
	return nil
}

func (f *fakeScriptRunner) Close(context.Context) error {
	f.wg.Wait()
	f.closed = true
	return nil
}

func (f *fakeScriptRunner) Send(_ context.Context, program string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.mu.Lock()
	f.programs = append(f.programs, program)
	n := len(f.programs)
	f.mu.Unlock()

	lines := f.reply(n)
	if lines == nil {
		return nil
	}
	open := socketOpenRe.FindStringSubmatch(program)
	start := startRe.FindStringSubmatch(program)
	if open == nil || start == nil {
		return errors.New("program has no callback")
	}

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		conn, err := net.Dial("tcp", net.JoinHostPort(open[1], open[2]))
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		_, _ = fmt.Fprintf(conn, "START %s\n", start[1])
		for _, line := range lines {
			_, _ = fmt.Fprintln(conn, line)
		}
	}()
	return nil
}

func startRunner(t *testing.T, sr *fakeScriptRunner, timeout time.Duration, threshold *int) *Runner {
	t.Helper()
	r := New(Config{ScriptRunner: sr, DefaultTimeout: timeout, RestartThreshold: threshold}, nil)
	require.NoError(t, r.Start(context.Background(), "autodiscover"))
	t.Cleanup(func() { _ = r.Close(context.Background()) })
	return r
}

func TestRunner_Pass(t *testing.T) {
	sr := &fakeScriptRunner{reply: func(int) []string {
		return []string{"LOG moving to home", "LOG done", "PASS"}
	}}
	r := startRunner(t, sr, 5*time.Second, nil)

	res := r.Run(context.Background(), Case{Name: "home.test.script", File: "/t/home.test.script", Body: "movej(home)"})
	assert.Equal(t, report.StatusPassed, res.Status)
	assert.Equal(t, "home.test.script", res.Name)
	assert.Equal(t, "/t/home.test.script", res.File)
	assert.Equal(t, []string{"moving to home", "done"}, res.Output)
	assert.Empty(t, res.Message)

	require.Len(t, sr.programs, 1)
	port := strconv.Itoa(r.Addr().(*net.TCPAddr).Port)
	assert.Contains(t, sr.programs[0], `socket_open("127.0.0.1", `+port+`, "urtest")`)
	assert.Contains(t, sr.programs[0], "  movej(home)\n")
}

func TestRunner_Fail(t *testing.T) {
	sr := &fakeScriptRunner{reply: func(int) []string {
		return []string{"LOG checking", "FAIL expected 3 got 4", "PASS"}
	}}
	r := startRunner(t, sr, 5*time.Second, nil)

	res := r.Run(context.Background(), Case{Name: "math"})
	assert.Equal(t, report.StatusFailed, res.Status)
	assert.Equal(t, "expected 3 got 4", res.Message)
	assert.Equal(t, []string{"checking"}, res.Output)
}

func TestRunner_Timeout(t *testing.T) {
	sr := &fakeScriptRunner{reply: func(int) []string { return nil }}
	r := startRunner(t, sr, 100*time.Millisecond, nil)

	res := r.Run(context.Background(), Case{Name: "slow"})
	assert.Equal(t, report.StatusTimedOut, res.Status)
	assert.Contains(t, res.Message, "100ms")
}

func TestRunner_ConnectionClosedWithoutResult(t *testing.T) {
	// Connects and logs, then hangs up without a result.
	sr := &fakeScriptRunner{reply: func(int) []string { return []string{"LOG started"} }}
	r := New(Config{ScriptRunner: sr, DefaultTimeout: 200 * time.Millisecond}, nil)
	require.NoError(t, r.Start(context.Background(), "127.0.0.1"))
	defer func() { _ = r.Close(context.Background()) }()

	res := r.Run(context.Background(), Case{Name: "closed"})
	assert.Equal(t, report.StatusError, res.Status)
	assert.Equal(t, errNoResult.Error(), res.Message)
	assert.Equal(t, []string{"started"}, res.Output)
}

func TestRunner_Canceled(t *testing.T) {
	sr := &fakeScriptRunner{reply: func(int) []string { return nil }}
	r := startRunner(t, sr, time.Minute, nil)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	res := r.Run(ctx, Case{Name: "canceled"})
	assert.Equal(t, report.StatusError, res.Status)
	assert.Equal(t, "canceled", res.Message)
}

func TestRunner_SendError(t *testing.T) {
	sr := &fakeScriptRunner{sendErr: errors.New("connection refused")}
	r := startRunner(t, sr, time.Second, nil)

	res := r.Run(context.Background(), Case{Name: "unreachable"})
	assert.Equal(t, report.StatusError, res.Status)
	assert.Equal(t, "connection refused", res.Message)
}

func TestRunner_DropsStaleConnections(t *testing.T) {
	sr := &fakeScriptRunner{reply: func(int) []string { return []string{"PASS"} }}
	r := startRunner(t, sr, 5*time.Second, nil)

	// A late callback from an earlier program.
	stale, err := net.Dial("tcp", r.Addr().String())
	require.NoError(t, err)
	_, _ = fmt.Fprintln(stale, "START some-old-test")
	_ = stale.Close()

	res := r.Run(context.Background(), Case{Name: "fresh"})
	assert.Equal(t, report.StatusPassed, res.Status)
}

func TestRunner_RestartThreshold(t *testing.T) {
	sr := &fakeScriptRunner{reply: func(int) []string { return []string{"PASS"} }}
	threshold := 2
	r := startRunner(t, sr, 5*time.Second, &threshold)

	for i := 0; i < 5; i++ {
		res := r.Run(context.Background(), Case{Name: fmt.Sprintf("t%d", i)})
		require.Equal(t, report.StatusPassed, res.Status)
	}
	// Restarted before the third and the fifth test.
	assert.Equal(t, 2, sr.restarts)
}

func TestRunner_NoRestartWithoutThreshold(t *testing.T) {
	sr := &fakeScriptRunner{reply: func(int) []string { return []string{"PASS"} }}
	r := startRunner(t, sr, 5*time.Second, nil)

	for i := 0; i < 4; i++ {
		r.Run(context.Background(), Case{Name: fmt.Sprintf("t%d", i)})
	}
	assert.Zero(t, sr.restarts)
}

func TestRunner_NotStarted(t *testing.T) {
	r := New(Config{ScriptRunner: &fakeScriptRunner{}}, nil)
	res := r.Run(context.Background(), Case{Name: "x"})
	assert.Equal(t, report.StatusError, res.Status)
	assert.Equal(t, ErrNotStarted.Error(), res.Message)
	assert.Nil(t, r.Addr())
}

func TestRunner_StartClosesScriptRunnerWhenPortBusy(t *testing.T) {
	busy, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer busy.Close()

	sr := &fakeScriptRunner{}
	r := New(Config{ScriptRunner: sr, Port: busy.Addr().(*net.TCPAddr).Port}, nil)
	err = r.Start(context.Background(), "autodiscover")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "starting test server")
	assert.True(t, sr.closed)
	assert.Nil(t, r.Addr())
}

func TestRunner_StartClosesScriptRunnerWhenHostUnresolved(t *testing.T) {
	sr := &fakeScriptRunner{hostErr: errors.New("no route to controller")}
	r := New(Config{ScriptRunner: sr}, nil)
	err := r.Start(context.Background(), "autodiscover")
	require.Error(t, err)
	assert.ErrorIs(t, err, sr.hostErr)
	assert.True(t, sr.closed)
}

func TestRunner_Close(t *testing.T) {
	sr := &fakeScriptRunner{}
	r := New(Config{ScriptRunner: sr}, nil)
	require.NoError(t, r.Start(context.Background(), "10.0.0.5"))
	addr := r.Addr().String()

	require.NoError(t, r.Close(context.Background()))
	assert.True(t, sr.closed)

	_, err := net.DialTimeout("tcp", addr, time.Second)
	assert.Error(t, err, "test server should be closed")
}

func TestHarness(t *testing.T) {
	program := Harness(Case{
		Name:    "grip.test.script",
		Prelude: "# bundle: default\ndef open_gripper():\n  set_digital_out(0, True)\nend\n",
		Body:    "open_gripper()\n\nassert_true(get_digital_out(0), \"gripper open\")\n",
	}, "192.168.1.10", 24493, "abc")

	assert.Equal(t, `def urtest_main():
  socket_open("192.168.1.10", 24493, "urtest")
  socket_send_line("START abc", "urtest")
  def test_log(msg):
    socket_send_line(str_cat("LOG ", msg), "urtest")
  end
  def test_fail(msg):
    socket_send_line(str_cat("FAIL ", msg), "urtest")
    socket_close("urtest")
    halt
  end
  def assert_true(cond, msg):
    if not cond:
      test_fail(msg)
    end
  end
  def assert_equal(actual, expected, msg):
    if actual != expected:
      test_fail(str_cat(str_cat(msg, ": got "), to_str(actual)))
    end
  end
  # bundle: default
  def open_gripper():
    set_digital_out(0, True)
  end
  # test: grip.test.script
  open_gripper()

  assert_true(get_digital_out(0), "gripper open")
  socket_send_line("PASS", "urtest")
  socket_close("urtest")
end
`, program)
}
