// Package report records test results, prints them and writes JUnit XML
// reports.
package report

import (
	"time"
)

// Status is the outcome of a single test.
type Status string

// Test outcomes.
const (
	StatusPassed   Status = "passed"
	StatusFailed   Status = "failed"
	StatusTimedOut Status = "timeout"
	StatusError    Status = "error"
)

// Result is the outcome of running one test script.
type Result struct {
	// Name identifies the test, usually its path relative to the working directory.
	Name string
	// File is the path of the test script.
	File    string
	Status  Status
	Message string
	// Output holds log lines the test program sent while running.
	Output   []string
	Duration time.Duration
}

// Passed reports whether the test passed.
func (r Result) Passed() bool { return r.Status == StatusPassed }

// Summary aggregates the results of a run.
type Summary struct {
	RunID    string
	Total    int
	Passed   int
	Failed   int
	TimedOut int
	Errored  int
	Duration time.Duration
	Results  []Result
}

// OK reports whether every test passed.
func (s *Summary) OK() bool {
	return s.Total == s.Passed
}

func (s *Summary) add(r Result) {
	s.Total++
	switch r.Status {
	case StatusPassed:
		s.Passed++
	case StatusFailed:
		s.Failed++
	case StatusTimedOut:
		s.TimedOut++
	default:
		s.Errored++
	}
	s.Results = append(s.Results, r)
}
