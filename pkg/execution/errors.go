package execution

import "errors"

var (
	// ErrNoTests is returned when the test pattern matches no file.
	ErrNoTests = errors.New("no tests found")
	// ErrTestsFailed is returned when at least one test did not pass.
	ErrTestsFailed = errors.New("tests failed")
)

// ExecutionError wraps any failure of a run.
type ExecutionError struct {
	Err error
}

func (e *ExecutionError) Error() string {
	return "execution failed: " + e.Err.Error()
}

func (e *ExecutionError) Unwrap() error { return e.Err }
