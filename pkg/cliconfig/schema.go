package cliconfig

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Schema identifies one of the embedded configuration schemas.
type Schema string

// Embedded schemas.
const (
	TestConfigSchema   Schema = "config.schema.json"
	BundleConfigSchema Schema = "bundle.schema.json"
)

var compiledSchemas sync.Map // Schema -> func() (*jsonschema.Schema, error)

func compiled(name Schema) (*jsonschema.Schema, error) {
	fn, _ := compiledSchemas.LoadOrStore(name, sync.OnceValues(func() (*jsonschema.Schema, error) {
		return compileSchema(name)
	}))
	return fn.(func() (*jsonschema.Schema, error))()
}

func compileSchema(name Schema) (*jsonschema.Schema, error) {
	data, err := schemaFS.ReadFile("schemas/" + string(name))
	if err != nil {
		return nil, fmt.Errorf("reading schema %s: %w", name, err)
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(string(name), bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("adding schema %s: %w", name, err)
	}
	return compiler.Compile(string(name))
}

// DecodeStrict parses data as JSON, validates it against schema and decodes
// it into v. Syntax errors and schema violations are returned as *ParseError
// carrying path.
func DecodeStrict(schema Schema, path string, data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return syntaxError(path, data, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		line, col := FindLineColumn(data, dec.InputOffset())
		return &ParseError{Path: path, Line: line, Column: col, Message: "unexpected data after top-level value"}
	}

	s, err := compiled(schema)
	if err != nil {
		return err
	}
	if err := s.Validate(doc); err != nil {
		return &ParseError{Path: path, Message: describeSchemaError(err)}
	}

	if err := json.Unmarshal(data, v); err != nil {
		return syntaxError(path, data, err)
	}
	return nil
}

func syntaxError(path string, data []byte, err error) error {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		line, col := FindLineColumn(data, syntaxErr.Offset)
		return &ParseError{Path: path, Line: line, Column: col, Message: syntaxErr.Error()}
	case errors.As(err, &typeErr):
		line, col := FindLineColumn(data, typeErr.Offset)
		return &ParseError{Path: path, Line: line, Column: col, Message: typeErr.Error()}
	case errors.Is(err, io.EOF):
		return &ParseError{Path: path, Message: "file is empty"}
	case errors.Is(err, io.ErrUnexpectedEOF):
		return &ParseError{Path: path, Message: "unexpected end of JSON input"}
	default:
		return &ParseError{Path: path, Message: err.Error()}
	}
}

// describeSchemaError flattens a schema validation error into one line per
// failing location, sorted for stable output.
func describeSchemaError(err error) string {
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return err.Error()
	}

	var msgs []string
	collectSchemaErrors(verr, &msgs)
	sort.Strings(msgs)
	return strings.Join(msgs, "; ")
}

func collectSchemaErrors(err *jsonschema.ValidationError, msgs *[]string) {
	if len(err.Causes) == 0 {
		location := err.InstanceLocation
		if location == "" {
			location = "/"
		}
		*msgs = append(*msgs, location+": "+err.Message)
		return
	}
	for _, cause := range err.Causes {
		collectSchemaErrors(cause, msgs)
	}
}
