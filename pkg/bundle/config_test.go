package bundle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/getmockd/urtest/pkg/cliconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cliWithGlobal(include ...string) cliconfig.CLIConfig {
	cfg := cliconfig.Defaults()
	cfg.Sources[cliconfig.GlobalSourceGroup] = cliconfig.SourceGroup{
		Scripts: cliconfig.GlobSet{Include: include, Exclude: []string{}},
	}
	return cfg
}

func TestDerive_WithoutBundleFile(t *testing.T) {
	cli := cliWithGlobal("lib/*.script")

	cfg := Derive(nil, cli)

	assert.Equal(t, DefaultOptions(), cfg.Options)
	assert.Equal(t, "test-harness", cfg.Options.BundleKey)
	assert.Equal(t, "default", cfg.Options.FileName)
	assert.Equal(t, ".urscript-test", cfg.Options.OutDir)
	assert.Equal(t, "script", cfg.Options.Suffix)
	assert.True(t, cfg.Options.WriteToDisk)
	require.Contains(t, cfg.Sources, cliconfig.GlobalSourceGroup)
	// The synthesized sources are the CLI's own, so the concatenation sees
	// them twice; the bundler dedupes matched files.
	assert.Equal(t, []string{"lib/*.script", "lib/*.script"}, cfg.Sources[cliconfig.GlobalSourceGroup].Scripts.Include)
	require.NoError(t, cfg.Validate())
}

func TestDerive_BundleFileWithoutSources(t *testing.T) {
	explicit, err := ParseConfig("bundle.json", []byte(`{
		"options": {"bundleKey": "lib", "fileName": "lib", "outDir": "out", "suffix": "urp"}
	}`))
	require.NoError(t, err)
	require.Nil(t, explicit.Sources)

	cfg := Derive(explicit, cliWithGlobal("a.script"))

	require.NotNil(t, cfg.Sources)
	assert.Equal(t, []string{"a.script"}, cfg.Sources[cliconfig.GlobalSourceGroup].Scripts.Include)
	assert.Equal(t, []string{}, cfg.Sources[cliconfig.GlobalSourceGroup].Scripts.Exclude)
	assert.Equal(t, "lib", cfg.Options.BundleKey)
	assert.False(t, cfg.Options.WriteToDisk)
}

func TestDerive_ConcatenatesBundleThenCLI(t *testing.T) {
	explicit, err := ParseConfig("bundle.json", []byte(`{
		"sources": {
			"global": {"scripts": {"include": ["b.script"], "exclude": ["skip/**"]}},
			"vendor": {"root": "third_party", "scripts": {"include": ["**/*.script"]}}
		},
		"options": {"bundleKey": "k", "fileName": "f", "outDir": "o", "suffix": "script", "writeToDisk": true}
	}`))
	require.NoError(t, err)

	cli := cliWithGlobal("a.script")
	cfg := Derive(explicit, cli)

	global := cfg.Sources[cliconfig.GlobalSourceGroup]
	assert.Equal(t, []string{"b.script", "a.script"}, global.Scripts.Include)
	assert.Equal(t, []string{"skip/**"}, global.Scripts.Exclude)
	assert.Equal(t, "third_party", cfg.Sources["vendor"].Root)

	// Derivation must not alias either input.
	assert.Equal(t, []string{"b.script"}, explicit.Sources[cliconfig.GlobalSourceGroup].Scripts.Include)
	assert.Equal(t, []string{"a.script"}, cli.Sources[cliconfig.GlobalSourceGroup].Scripts.Include)
}

func TestDerive_CLIWithoutSources(t *testing.T) {
	cli := cliconfig.Defaults()
	cli.Sources = nil

	cfg := Derive(nil, cli)

	require.NotNil(t, cfg.Sources)
	global := cfg.Sources[cliconfig.GlobalSourceGroup]
	assert.NotNil(t, global.Scripts.Include)
	assert.Empty(t, global.Scripts.Include)
}

func TestMergeSourceGroups(t *testing.T) {
	a := cliconfig.SourceGroup{
		Root:    "a",
		Scripts: cliconfig.GlobSet{Include: []string{"a1", "a2"}, Exclude: []string{"ax"}},
	}
	b := cliconfig.SourceGroup{
		Scripts: cliconfig.GlobSet{Include: []string{"b1"}, Exclude: []string{"bx", "by"}},
	}

	merged := MergeSourceGroups(a, b)

	assert.Len(t, merged.Scripts.Include, len(a.Scripts.Include)+len(b.Scripts.Include))
	assert.Equal(t, []string{"a1", "a2", "b1"}, merged.Scripts.Include)
	assert.Equal(t, []string{"ax", "bx", "by"}, merged.Scripts.Exclude)
	assert.Equal(t, "a", merged.Root, "empty root must not overwrite")

	b.Root = "b"
	assert.Equal(t, "b", MergeSourceGroups(a, b).Root)
}

func TestMergeSourceGroups_DoesNotAliasInputs(t *testing.T) {
	a := cliconfig.SourceGroup{Scripts: cliconfig.GlobSet{Include: make([]string, 1, 10)}}
	a.Scripts.Include[0] = "a"

	merged := MergeSourceGroups(a, cliconfig.SourceGroup{Scripts: cliconfig.GlobSet{Include: []string{"b"}}})
	merged.Scripts.Include[0] = "changed"

	assert.Equal(t, "a", a.Scripts.Include[0])
}

func TestMergeSourceGroups_Empty(t *testing.T) {
	merged := MergeSourceGroups()
	assert.NotNil(t, merged.Scripts.Include)
	assert.NotNil(t, merged.Scripts.Exclude)
}

func TestParseConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{name: "malformed", input: `{"options":`, wantMsg: "unexpected end"},
		{name: "missing options", input: `{"sources":{}}`, wantMsg: "options"},
		{name: "missing option field", input: `{"options":{"bundleKey":"k","fileName":"f","outDir":"o"}}`, wantMsg: "suffix"},
		{name: "bad include type", input: `{"sources":{"global":{"scripts":{"include":"a"}}},"options":{"bundleKey":"k","fileName":"f","outDir":"o","suffix":"s"}}`, wantMsg: "/sources/global/scripts/include"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig("bundle.json", []byte(tt.input))

			var parseErr *cliconfig.ParseError
			require.ErrorAs(t, err, &parseErr)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.json"))
	var loadErr *cliconfig.LoadError
	require.ErrorAs(t, err, &loadErr)

	path := filepath.Join(t.TempDir(), "bundle.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"options":{"bundleKey":"k","fileName":"f","outDir":"o","suffix":"s"}}`), 0o644))
	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "k", cfg.Options.BundleKey)
}

func TestConfig_Validate(t *testing.T) {
	cfg := Config{Sources: map[string]cliconfig.SourceGroup{}, Options: DefaultOptions()}
	require.NoError(t, cfg.Validate())

	cfg.Options.OutDir = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "options.outDir")

	cfg = Config{Options: DefaultOptions()}
	assert.Error(t, cfg.Validate())
}
