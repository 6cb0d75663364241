package cliconfig

import "fmt"

// Validate checks the ranges of a resolved configuration.
func (c *CLIConfig) Validate() error {
	if c.Controller.Host == "" {
		return &ValidationError{Field: "controller.host", Message: "is required"}
	}
	if err := validatePort("controller.ports.primary", c.Controller.Ports.Primary); err != nil {
		return err
	}
	if err := validatePort("controller.ports.dashboard", c.Controller.Ports.Dashboard); err != nil {
		return err
	}
	if !c.Controller.AutoLaunch.Disabled && c.Controller.AutoLaunch.Version == "" {
		return &ValidationError{Field: "controller.autoLaunch.version", Message: "is required when auto-launch is enabled"}
	}
	if c.TestServer.Host == "" {
		return &ValidationError{Field: "testServer.host", Message: "is required"}
	}
	if err := validatePort("testServer.port", c.TestServer.Port); err != nil {
		return err
	}
	if c.TestServer.DefaultTimeout <= 0 {
		return &ValidationError{Field: "testServer.defaultTimeout", Message: fmt.Sprintf("must be positive, got %d", c.TestServer.DefaultTimeout)}
	}
	if t := c.TestServer.RestartThreshold; t != nil && *t < 1 {
		return &ValidationError{Field: "testServer.restartThreshold", Message: fmt.Sprintf("must be at least 1, got %d", *t)}
	}
	return nil
}

func validatePort(field string, port int) error {
	if port < 1 || port > 65535 {
		return &ValidationError{Field: field, Message: fmt.Sprintf("%d is out of range", port)}
	}
	return nil
}
