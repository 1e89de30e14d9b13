package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation = "operation"
	KeyService   = "service"
	KeyPartner   = "partner_id"
	KeyEvent     = "event_id"
	KeyUserHash  = "user_hash"
	KeyDuration  = "duration"
	KeyStatus    = "status"
	KeyError     = "error"
	KeyTool      = "tool"
)

// Status values for consistent logging.
// Note: These are intentionally duplicated from instrumentation package
// to avoid circular dependencies (instrumentation imports logging).
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusAborted = "aborted"
)

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithTool returns a logger with the tool attribute set.
func WithTool(logger *slog.Logger, tool string) *slog.Logger {
	return logger.With(slog.String(KeyTool, tool))
}

// WithService returns a logger with the service attribute set.
func WithService(logger *slog.Logger, service string) *slog.Logger {
	return logger.With(slog.String(KeyService, service))
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Service returns a slog attribute for the service name.
func Service(svc string) slog.Attr {
	return slog.String(KeyService, svc)
}

// Tool returns a slog attribute for the tool name.
func Tool(tool string) slog.Attr {
	return slog.String(KeyTool, tool)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// Partner returns a slog attribute for a partner identifier.
func Partner(id int64) slog.Attr {
	return slog.Int64(KeyPartner, id)
}

// Event returns a slog attribute for a calendar event identifier.
func Event(id int64) slog.Attr {
	return slog.Int64(KeyEvent, id)
}

// Err returns a slog attribute for an error.
// If err is nil, returns an empty Group attribute that will be omitted from output.
//
// Usage:
//
//	logger.Info("operation", logging.Err(err))  // Safe even if err is nil
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeLogin returns a hashed representation of a server login for logging purposes.
// Logins are usually email addresses, so they are never logged in clear text.
func AnonymizeLogin(login string) string {
	if login == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(login))
	return "user:" + hex.EncodeToString(hash[:8])
}

// UserHash returns a slog attribute with the anonymized login.
//
// Usage:
//
//	logger.Info("authenticated", logging.UserHash(cfg.Login))
func UserHash(login string) slog.Attr {
	return slog.String(KeyUserHash, AnonymizeLogin(login))
}

// SanitizeSecret returns a masked version of a password or session id for logging.
// Only the length is exposed.
func SanitizeSecret(secret string) string {
	if secret == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[secret:%d chars]", len(secret))
}

// ExtractDomain extracts the domain part from an email-style login.
func ExtractDomain(login string) string {
	if login == "" {
		return ""
	}
	parts := strings.Split(login, "@")
	if len(parts) != 2 {
		return ""
	}
	return parts[1]
}

// Domain returns a slog attribute for the login domain (lower cardinality than the full login).
func Domain(login string) slog.Attr {
	return slog.String("user_domain", ExtractDomain(login))
}
