package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/getmockd/urtest/pkg/bundle"
	"github.com/getmockd/urtest/pkg/logging"
	"github.com/getmockd/urtest/pkg/report"
	"github.com/getmockd/urtest/pkg/testrunner"
)

// Service runs the tests selected by an execution configuration.
type Service struct {
	cfg     *Config
	baseDir string
	logger  *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithBaseDir sets the directory patterns are resolved against. Defaults to
// the working directory.
func WithBaseDir(dir string) ServiceOption {
	return func(s *Service) { s.baseDir = dir }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logging.OrNop(logger) }
}

// NewService creates an execution service for cfg.
func NewService(cfg *Config, opts ...ServiceOption) *Service {
	s := &Service{
		cfg:     cfg,
		baseDir: ".",
		logger:  logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Execute bundles the sources, runs every selected test in path order and
// flushes the result writer. Every error is an *ExecutionError; a run where
// a test did not pass returns the summary together with ErrTestsFailed.
func (s *Service) Execute(ctx context.Context) (*report.Summary, error) {
	summary, err := s.execute(ctx)
	if err != nil {
		return summary, &ExecutionError{Err: err}
	}
	return summary, nil
}

func (s *Service) execute(ctx context.Context) (summary *report.Summary, err error) {
	mocks, err := bundle.Collect(s.baseDir, s.cfg.Mocks)
	if err != nil {
		return nil, fmt.Errorf("collecting mocks: %w", err)
	}

	tests, err := s.findTests(mocks)
	if err != nil {
		return nil, err
	}
	if len(tests) == 0 {
		return nil, fmt.Errorf("%w matching %q", ErrNoTests, s.cfg.TestPattern)
	}
	s.logger.Info("found tests", "pattern", s.cfg.TestPattern, "count", len(tests))

	prelude, err := s.prelude(mocks)
	if err != nil {
		return nil, err
	}

	tr := s.cfg.TestRunner
	if err := tr.Start(ctx, s.cfg.Environment.Host); err != nil {
		return nil, err
	}
	defer func() {
		// Close even when the run was canceled.
		if cerr := tr.Close(context.WithoutCancel(ctx)); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	for _, file := range tests {
		body, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading test: %w", err)
		}
		result := tr.Run(ctx, testrunner.Case{
			Name:    s.name(file),
			File:    file,
			Prelude: prelude,
			Body:    string(body),
		})
		s.cfg.ResultWriter.Record(result)
		if ctx.Err() != nil {
			break
		}
	}

	summary, err = s.cfg.ResultWriter.Flush()
	if err != nil {
		return summary, fmt.Errorf("writing results: %w", err)
	}
	if ctx.Err() != nil {
		return summary, ctx.Err()
	}
	if !summary.OK() {
		return summary, fmt.Errorf("%w: %d of %d", ErrTestsFailed, summary.Total-summary.Passed, summary.Total)
	}
	return summary, nil
}

// findTests expands the test pattern, skipping mock scripts.
func (s *Service) findTests(mocks []string) ([]string, error) {
	pattern := s.cfg.TestPattern
	if !filepath.IsAbs(pattern) {
		pattern = filepath.Join(s.baseDir, pattern)
	}
	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("expanding test pattern %q: %w", s.cfg.TestPattern, err)
	}

	isMock := make(map[string]bool, len(mocks))
	for _, m := range mocks {
		isMock[m] = true
	}

	tests := matches[:0]
	for _, m := range matches {
		if !isMock[m] {
			tests = append(tests, m)
		}
	}
	sort.Strings(tests)
	return tests, nil
}

// prelude is the bundled sources followed by the mocks.
func (s *Service) prelude(mocks []string) (string, error) {
	b, err := bundle.New(s.cfg.Bundler, s.baseDir, s.logger).Bundle()
	if err != nil {
		return "", fmt.Errorf("bundling sources: %w", err)
	}
	s.logger.Debug("bundled sources", "files", len(b.Files), "mocks", len(mocks))

	mockScript, err := bundle.Concat(s.baseDir, mocks)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(b.Script, "\n") + "\n" + mockScript, nil
}

func (s *Service) name(file string) string {
	if rel, err := filepath.Rel(s.baseDir, file); err == nil {
		return filepath.ToSlash(rel)
	}
	return file
}
