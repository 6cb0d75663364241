package cliconfig

import (
	"fmt"
	"strconv"
)

// LoadError reports a configuration file that could not be read.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return "cannot read configuration " + e.Path + ": " + e.Err.Error()
}

func (e *LoadError) Unwrap() error { return e.Err }

// ParseError reports a configuration file that is not valid JSON or does not
// match its schema. Line and Column are set when the position is known.
type ParseError struct {
	Path    string
	Line    int
	Column  int
	Message string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return e.Path + " (line " + strconv.Itoa(e.Line) + ", column " + strconv.Itoa(e.Column) + "): " + e.Message
	}
	return e.Path + ": " + e.Message
}

// ValidationError reports a resolved configuration value that is out of range.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Message)
}

// FindLineColumn finds the 1-based line and column for a byte offset.
func FindLineColumn(data []byte, offset int64) (line, col int) {
	line = 1
	col = 1
	for i := int64(0); i < offset && int(i) < len(data); i++ {
		if data[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}
