// Package logging configures the structured logger used across urtest.
//
// It wraps log/slog so every component logs through the same handler, level
// and format. Components accept a *slog.Logger in their constructor; when
// none is given they fall back to Nop.
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.ParseLevel("debug"),
//	    Format: logging.FormatJSON,
//	})
//	logger.Info("controller ready", "host", host, "port", port)
//
// Log output goes to stderr so that test results printed on stdout stay
// machine readable.
package logging
