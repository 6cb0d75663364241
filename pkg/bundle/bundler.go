package bundle

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/getmockd/urtest/pkg/cliconfig"
	"github.com/getmockd/urtest/pkg/logging"
)

// Bundle is a packaged program.
type Bundle struct {
	// Key identifies the bundle in logs and in the program header.
	Key string
	// Files are the source files, in the order they appear in Script.
	Files []string
	// Script is the concatenated program text.
	Script string
	// Path is where the bundle was written, empty when not written.
	Path string
}

// Bundler packages source groups into a single script.
type Bundler struct {
	cfg     Config
	baseDir string
	logger  *slog.Logger
}

// New creates a bundler. Relative globs and the output directory are resolved
// against baseDir.
func New(cfg Config, baseDir string, logger *slog.Logger) *Bundler {
	return &Bundler{
		cfg:     cfg,
		baseDir: baseDir,
		logger:  logging.OrNop(logger),
	}
}

// OutputPath returns the file a bundle is written to.
func (b *Bundler) OutputPath() string {
	name := b.cfg.Options.FileName + "." + strings.TrimPrefix(b.cfg.Options.Suffix, ".")
	return resolve(b.baseDir, filepath.Join(b.cfg.Options.OutDir, name))
}

// Collect returns the files of a glob set resolved against the bundler's
// base directory.
func (b *Bundler) Collect(set cliconfig.GlobSet) ([]string, error) {
	return Collect(b.baseDir, set)
}

// Bundle collects every source group, the global group first and the rest
// by name, and concatenates the files. A file matched by several groups is
// included once. The bundle is written to OutputPath when WriteToDisk is set.
func (b *Bundler) Bundle() (*Bundle, error) {
	names := make([]string, 0, len(b.cfg.Sources))
	for name := range b.cfg.Sources {
		if name != cliconfig.GlobalSourceGroup {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if _, ok := b.cfg.Sources[cliconfig.GlobalSourceGroup]; ok {
		names = append([]string{cliconfig.GlobalSourceGroup}, names...)
	}

	seen := make(map[string]bool)
	var files []string
	for _, name := range names {
		group := b.cfg.Sources[name]
		matches, err := Collect(resolve(b.baseDir, group.Root), group.Scripts)
		if err != nil {
			return nil, fmt.Errorf("source group %q: %w", name, err)
		}
		b.logger.Debug("collected source group", "group", name, "files", len(matches))
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}

	script, err := Concat(b.baseDir, files)
	if err != nil {
		return nil, err
	}

	bundle := &Bundle{
		Key:    b.cfg.Options.BundleKey,
		Files:  files,
		Script: "# bundle: " + b.cfg.Options.BundleKey + "\n" + script,
	}

	if b.cfg.Options.WriteToDisk {
		path := b.OutputPath()
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating bundle directory: %w", err)
		}
		if err := os.WriteFile(path, []byte(bundle.Script), 0o644); err != nil {
			return nil, fmt.Errorf("writing bundle: %w", err)
		}
		bundle.Path = path
		b.logger.Info("wrote bundle", "key", bundle.Key, "path", path, "files", len(files))
	}

	return bundle, nil
}

// Collect expands the include globs of set under dir, drops files matching
// any exclude glob and returns the remaining files sorted and without
// duplicates. Globs support ** for recursive matching. No match is not an
// error.
func Collect(dir string, set cliconfig.GlobSet) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range set.Include {
		matches, err := doublestar.FilepathGlob(resolve(dir, pattern), doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("expanding glob pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if seen[m] {
				continue
			}
			seen[m] = true
			excluded, err := isExcluded(dir, m, set.Exclude)
			if err != nil {
				return nil, err
			}
			if !excluded {
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

func isExcluded(dir, file string, patterns []string) (bool, error) {
	rel, err := filepath.Rel(dir, file)
	if err != nil {
		rel = file
	}
	for _, pattern := range patterns {
		target := rel
		if filepath.IsAbs(pattern) {
			target = file
		}
		ok, err := doublestar.PathMatch(filepath.FromSlash(pattern), target)
		if err != nil {
			return false, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// Concat reads files and joins them, each preceded by a comment naming the
// file relative to baseDir.
func Concat(baseDir string, files []string) (string, error) {
	var sb strings.Builder
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return "", fmt.Errorf("reading source: %w", err)
		}
		name := f
		if rel, err := filepath.Rel(baseDir, f); err == nil {
			name = filepath.ToSlash(rel)
		}
		sb.WriteString("# file: " + name + "\n")
		sb.Write(data)
		if len(data) > 0 && data[len(data)-1] != '\n' {
			sb.WriteByte('\n')
		}
	}
	return sb.String(), nil
}

func resolve(baseDir, p string) string {
	if p == "" {
		return baseDir
	}
	if filepath.IsAbs(p) || baseDir == "" {
		return p
	}
	return filepath.Join(baseDir, p)
}
