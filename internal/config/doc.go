// Package config loads the server connection settings from a .env file and
// the environment.
//
// Supported variables:
//
//	ODOO_URL            server base URL (required)
//	ODOO_DB             database name (required)
//	ODOO_LOGIN          user login (required)
//	ODOO_PASSWORD       user password
//	ODOO_TIMEOUT        RPC timeout, default 30s
//	NOTIFY_INTERVAL     notification poll interval, default 5m
//	SENTRY_DSN          enables error reporting to Sentry
//	SENTRY_ENVIRONMENT  Sentry environment name
//
// Command-line flags override these values.
package config
