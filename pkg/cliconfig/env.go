package cliconfig

import (
	"os"
	"strconv"
)

// Environment variable names
const (
	EnvControllerHost     = "URTEST_CONTROLLER_HOST"
	EnvControllerPort     = "URTEST_CONTROLLER_PORT"
	EnvAutoLaunchDisabled = "URTEST_AUTO_LAUNCH_DISABLED"
	EnvTestServerHost     = "URTEST_TEST_SERVER_HOST"
	EnvTestServerPort     = "URTEST_TEST_SERVER_PORT"
	EnvLogLevel           = "URTEST_LOG_LEVEL"
)

// LoadEnvConfig applies environment variable overrides to cfg.
// It only sets values that are present in the environment.
func LoadEnvConfig(cfg *CLIConfig) error {
	if v := os.Getenv(EnvControllerHost); v != "" {
		cfg.Controller.Host = v
	}

	if v := os.Getenv(EnvControllerPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return &ValidationError{Field: EnvControllerPort, Message: "must be a number, got " + strconv.Quote(v)}
		}
		cfg.Controller.Ports.Primary = port
	}

	if v := os.Getenv(EnvAutoLaunchDisabled); v != "" {
		cfg.Controller.AutoLaunch.Disabled = v == "true" || v == "1" || v == "yes"
	}

	if v := os.Getenv(EnvTestServerHost); v != "" {
		cfg.TestServer.Host = v
	}

	if v := os.Getenv(EnvTestServerPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return &ValidationError{Field: EnvTestServerPort, Message: "must be a number, got " + strconv.Quote(v)}
		}
		cfg.TestServer.Port = port
	}

	return nil
}
