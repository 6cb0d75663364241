package testrunner

import (
	"fmt"
	"strings"
)

// socketName is the controller-side name of the callback socket.
const socketName = "urtest"

// Callback protocol. Every line the harness sends starts with one of these
// words; PASS and FAIL end the test.
const (
	lineStart = "START"
	lineLog   = "LOG"
	linePass  = "PASS"
	lineFail  = "FAIL"
)

// Case is one test to run.
type Case struct {
	// Name identifies the test in results.
	Name string
	// File is the path of the test script.
	File string
	// Prelude is program text placed before the test body, usually the
	// source bundle and mocks.
	Prelude string
	// Body is the test script.
	Body string
}

// Harness wraps a test in a program that connects back to host:port,
// identifies itself with id and reports the outcome. Test scripts use
// test_log, test_fail, assert_true and assert_equal.
func Harness(c Case, host string, port int, id string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "def urtest_main():\n")
	fmt.Fprintf(&b, "  socket_open(%q, %d, %q)\n", host, port, socketName)
	fmt.Fprintf(&b, "  socket_send_line(%q, %q)\n", lineStart+" "+id, socketName)

	writeIndented(&b, fmt.Sprintf(`def test_log(msg):
  socket_send_line(str_cat(%[1]q, msg), %[2]q)
end
def test_fail(msg):
  socket_send_line(str_cat(%[3]q, msg), %[2]q)
  socket_close(%[2]q)
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
`, lineLog+" ", socketName, lineFail+" "))

	if c.Prelude != "" {
		writeIndented(&b, c.Prelude)
	}
	fmt.Fprintf(&b, "  # test: %s\n", c.Name)
	writeIndented(&b, c.Body)

	fmt.Fprintf(&b, "  socket_send_line(%q, %q)\n", linePass, socketName)
	fmt.Fprintf(&b, "  socket_close(%q)\n", socketName)
	b.WriteString("end\n")
	return b.String()
}

func writeIndented(b *strings.Builder, text string) {
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return
	}
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			b.WriteString("\n")
			continue
		}
		b.WriteString("  ")
		b.WriteString(line)
		b.WriteString("\n")
	}
}
