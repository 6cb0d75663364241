// Package cliconfig provides configuration types, defaults, merging and
// loading for the urtest CLI.
//
// A test run is configured by a JSON file that only needs to contain the
// values that differ from the built-in defaults. The file is parsed into a
// PartialConfig, validated against an embedded JSON schema and merged onto
// Defaults. Environment variables (URTEST_* prefix) are applied last.
package cliconfig

// GlobalSourceGroup is the name of the source group shared between the test
// configuration and the bundle configuration.
const GlobalSourceGroup = "global"

// CLIConfig is the fully resolved test configuration.
// After Merge every field except TestServer.RestartThreshold holds a value.
type CLIConfig struct {
	Controller ControllerConfig       `json:"controller" yaml:"controller"`
	TestServer TestServerConfig       `json:"testServer" yaml:"testServer"`
	Mocks      GlobSet                `json:"mocks" yaml:"mocks"`
	Sources    map[string]SourceGroup `json:"sources" yaml:"sources"`
}

// ControllerConfig describes how to reach the robot controller.
type ControllerConfig struct {
	Host       string           `json:"host" yaml:"host"`
	Ports      PortsConfig      `json:"ports" yaml:"ports"`
	AutoLaunch AutoLaunchConfig `json:"autoLaunch" yaml:"autoLaunch"`
}

// PortsConfig holds the controller interface ports.
type PortsConfig struct {
	// Primary is the interface programs are pushed to.
	Primary int `json:"primary" yaml:"primary"`
	// Dashboard is used to power on a freshly launched controller.
	Dashboard int `json:"dashboard" yaml:"dashboard"`
}

// AutoLaunchConfig controls starting a controller simulator for the run.
// The stored flag is Disabled so that the zero value of a user file keeps
// auto-launch on.
type AutoLaunchConfig struct {
	Disabled bool   `json:"disabled" yaml:"disabled"`
	Version  string `json:"version" yaml:"version"`
	AutoStop bool   `json:"autoStop" yaml:"autoStop"`
}

// TestServerConfig configures the server test programs report back to.
type TestServerConfig struct {
	Host string `json:"host" yaml:"host"`
	Port int    `json:"port" yaml:"port"`
	// DefaultTimeout is the per-test execution timeout in milliseconds.
	DefaultTimeout int `json:"defaultTimeout" yaml:"defaultTimeout"`
	// RestartThreshold restarts the controller after that many tests.
	// Nil disables restarts.
	RestartThreshold *int `json:"restartThreshold,omitempty" yaml:"restartThreshold,omitempty"`
}

// GlobSet is an include/exclude pair of glob patterns.
type GlobSet struct {
	Include []string `json:"include" yaml:"include"`
	Exclude []string `json:"exclude" yaml:"exclude"`
}

// SourceGroup is a named set of script files that belong together.
type SourceGroup struct {
	// Root is the directory the globs are resolved against. Empty means the
	// working directory.
	Root    string  `json:"root,omitempty" yaml:"root,omitempty"`
	Scripts GlobSet `json:"scripts" yaml:"scripts"`
}

// PartialConfig is the shape of a user supplied test configuration file.
// Nil fields were absent from the file and keep their default on Merge.
type PartialConfig struct {
	Schema     string                        `json:"$schema,omitempty"`
	Controller *PartialController            `json:"controller,omitempty"`
	TestServer *PartialTestServer            `json:"testServer,omitempty"`
	Mocks      *PartialGlobSet               `json:"mocks,omitempty"`
	Sources    map[string]PartialSourceGroup `json:"sources,omitempty"`
}

// PartialController is the user file shape of ControllerConfig.
type PartialController struct {
	Host       *string            `json:"host,omitempty"`
	Ports      *PartialPorts      `json:"ports,omitempty"`
	AutoLaunch *PartialAutoLaunch `json:"autoLaunch,omitempty"`
}

// PartialPorts is the user file shape of PortsConfig.
type PartialPorts struct {
	Primary   *int `json:"primary,omitempty"`
	Dashboard *int `json:"dashboard,omitempty"`
}

// PartialAutoLaunch is the user file shape of AutoLaunchConfig.
type PartialAutoLaunch struct {
	Disabled *bool   `json:"disabled,omitempty"`
	Version  *string `json:"version,omitempty"`
	AutoStop *bool   `json:"autoStop,omitempty"`
}

// PartialTestServer is the user file shape of TestServerConfig.
type PartialTestServer struct {
	Host             *string `json:"host,omitempty"`
	Port             *int    `json:"port,omitempty"`
	DefaultTimeout   *int    `json:"defaultTimeout,omitempty"`
	RestartThreshold *int    `json:"restartThreshold,omitempty"`
}

// PartialGlobSet is the user file shape of GlobSet. A nil slice was absent.
type PartialGlobSet struct {
	Include []string `json:"include,omitempty"`
	Exclude []string `json:"exclude,omitempty"`
}

// PartialSourceGroup is the user file shape of SourceGroup.
type PartialSourceGroup struct {
	Root    *string         `json:"root,omitempty"`
	Scripts *PartialGlobSet `json:"scripts,omitempty"`
}

// Clone returns a deep copy of the configuration.
func (c CLIConfig) Clone() CLIConfig {
	out := c
	out.Mocks = c.Mocks.Clone()
	if c.TestServer.RestartThreshold != nil {
		v := *c.TestServer.RestartThreshold
		out.TestServer.RestartThreshold = &v
	}
	out.Sources = CloneSources(c.Sources)
	return out
}

// Clone returns a deep copy of the glob set. Nil slices become empty slices.
func (g GlobSet) Clone() GlobSet {
	return GlobSet{
		Include: append([]string{}, g.Include...),
		Exclude: append([]string{}, g.Exclude...),
	}
}

// Clone returns a deep copy of the source group.
func (s SourceGroup) Clone() SourceGroup {
	return SourceGroup{Root: s.Root, Scripts: s.Scripts.Clone()}
}

// CloneSources deep copies a source group map. A nil map stays nil.
func CloneSources(src map[string]SourceGroup) map[string]SourceGroup {
	if src == nil {
		return nil
	}
	out := make(map[string]SourceGroup, len(src))
	for name, group := range src {
		out[name] = group.Clone()
	}
	return out
}
