package cliconfig

import "sync"

// DefaultControllerHost is the default robot controller host.
const DefaultControllerHost = "localhost"

// DefaultPrimaryPort is the controller primary interface port.
const DefaultPrimaryPort = 30001

// DefaultDashboardPort is the controller dashboard server port.
const DefaultDashboardPort = 29999

// DefaultControllerVersion is the simulator version launched by default.
const DefaultControllerVersion = "5.17.1"

// AutoDiscoverHost asks the test runner to work out the address the
// controller can reach this machine on.
const AutoDiscoverHost = "autodiscover"

// DefaultTestServerPort is the port the test server listens on.
const DefaultTestServerPort = 24493

// DefaultTimeoutMillis is the default per-test execution timeout.
const DefaultTimeoutMillis = 10000

// DefaultMockPattern selects mock scripts kept next to the code they mock.
const DefaultMockPattern = "**/__mocks__/**/*.mock.script"

var defaults = sync.OnceValue(func() CLIConfig {
	return CLIConfig{
		Controller: ControllerConfig{
			Host: DefaultControllerHost,
			Ports: PortsConfig{
				Primary:   DefaultPrimaryPort,
				Dashboard: DefaultDashboardPort,
			},
			AutoLaunch: AutoLaunchConfig{
				Disabled: false,
				Version:  DefaultControllerVersion,
				AutoStop: false,
			},
		},
		TestServer: TestServerConfig{
			Host:           AutoDiscoverHost,
			Port:           DefaultTestServerPort,
			DefaultTimeout: DefaultTimeoutMillis,
		},
		Mocks: GlobSet{
			Include: []string{DefaultMockPattern},
			Exclude: []string{},
		},
		Sources: map[string]SourceGroup{
			GlobalSourceGroup: {
				Scripts: GlobSet{Include: []string{}, Exclude: []string{}},
			},
		},
	}
})

// Defaults returns the built-in configuration. Each call returns an
// independent copy, so callers may modify the result freely.
func Defaults() CLIConfig {
	return defaults().Clone()
}
