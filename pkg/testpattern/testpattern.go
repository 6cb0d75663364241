// Package testpattern turns the optional path argument of the CLI into the
// glob expression that selects which test scripts run.
package testpattern

import (
	"path"
	"path/filepath"
	"strings"
)

// TestSuffix is the file suffix that marks a script as a test.
const TestSuffix = ".test.script"

// Default matches every test script in the tree.
const Default = "**/*" + TestSuffix

// Resolve maps a path fragment to a glob pattern.
//
//   - ""           -> "**/*.test.script"
//   - "foo.bar"    -> "foo.bar*"   (fragment names a file; prefix match)
//   - "name."      -> "name.*"
//   - ".hidden"    -> ".hidden/**/*.test.script"
//   - "dir/"       -> "dir/**/*.test.script"
//   - "dir"        -> "dir/**/*.test.script"
func Resolve(fragment string) string {
	switch {
	case fragment == "":
		return Default
	case hasExtension(fragment):
		return fragment + "*"
	case endsWithSeparator(fragment):
		return fragment + Default
	default:
		return fragment + "/" + Default
	}
}

// hasExtension reports whether the last path element has an extension.
// A dot that only opens the name, as in ".hidden", does not count and
// neither does "..". A trailing dot, as in "name.", does.
func hasExtension(fragment string) bool {
	if endsWithSeparator(fragment) {
		return false
	}
	base := path.Base(filepath.ToSlash(fragment))
	return strings.LastIndexByte(base, '.') > 0 && base != ".."
}

func endsWithSeparator(fragment string) bool {
	return strings.HasSuffix(fragment, "/") || strings.HasSuffix(fragment, string(filepath.Separator))
}
