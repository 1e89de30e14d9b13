// Package logging provides structured logging utilities for odoocal.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "favorites.add")
//	logger.Info("favorite added",
//	    logging.Partner(12),
//	    logging.Status(logging.StatusSuccess))
//
// Server logins are hashed before logging:
//
//	logger.Info("authenticated", logging.UserHash(login))
//
// Passwords and session ids are never logged directly; use SanitizeSecret.
package logging
