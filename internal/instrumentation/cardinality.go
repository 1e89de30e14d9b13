package instrumentation

import "strings"

// Cardinality management helpers for metrics.
// These functions reduce high-cardinality label values to prevent metrics explosion.
//
// Always use these helpers when recording metrics with user identifiers or
// request paths.

const callKWPrefix = "/web/dataset/call_kw/"

// ExtractUserDomain extracts the domain part from an email-style login.
//
// Example:
//
//	ExtractUserDomain("jane@example.com")  // "example.com"
//	ExtractUserDomain("admin")             // "unknown"
//	ExtractUserDomain("")                  // "unknown"
func ExtractUserDomain(login string) string {
	if login == "" {
		return "unknown"
	}

	parts := strings.Split(login, "@")
	if len(parts) == 2 && parts[1] != "" {
		return parts[1]
	}

	return "unknown"
}

// RPCOperation returns the low-cardinality operation label for a JSON-RPC route.
//
// Model method routes collapse to "<model>.<method>"; other routes drop the
// leading slash and use dots as separators.
//
// Example:
//
//	RPCOperation("/web/dataset/call_kw/calendar.contacts/create")  // "calendar.contacts.create"
//	RPCOperation("/calendar/notify")                               // "calendar.notify"
func RPCOperation(route string) string {
	if rest, ok := strings.CutPrefix(route, callKWPrefix); ok {
		model, method, found := strings.Cut(rest, "/")
		if !found || model == "" || method == "" {
			return "call_kw"
		}
		if i := strings.IndexByte(method, '/'); i >= 0 {
			method = method[:i]
		}
		return model + "." + method
	}

	trimmed := strings.Trim(route, "/")
	if trimmed == "" {
		return StatusUnknown
	}
	return strings.ReplaceAll(trimmed, "/", ".")
}
