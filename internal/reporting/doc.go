// Package reporting forwards unexpected errors to Sentry, or to the log when
// no DSN is configured.
package reporting
