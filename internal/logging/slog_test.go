package logging

import (
	"errors"
	"log/slog"
	"testing"
)

func TestWithOperation(t *testing.T) {
	logger := slog.Default()
	result := WithOperation(logger, "favorites.reload")
	if result == nil {
		t.Error("WithOperation returned nil")
	}
}

func TestWithTool(t *testing.T) {
	result := WithTool(slog.Default(), "calendar_list_favorites")
	if result == nil {
		t.Error("WithTool returned nil")
	}
}

func TestWithService(t *testing.T) {
	result := WithService(slog.Default(), "notify")
	if result == nil {
		t.Error("WithService returned nil")
	}
}

func TestStringAttrs(t *testing.T) {
	tests := []struct {
		name    string
		attr    slog.Attr
		wantKey string
		wantVal string
	}{
		{"operation", Operation("favorites.add"), KeyOperation, "favorites.add"},
		{"service", Service("notify"), KeyService, "notify"},
		{"tool", Tool("calendar_add_favorites"), KeyTool, "calendar_add_favorites"},
		{"status", Status(StatusAborted), KeyStatus, "aborted"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.attr.Key != tt.wantKey {
				t.Errorf("key = %q, want %q", tt.attr.Key, tt.wantKey)
			}
			if tt.attr.Value.String() != tt.wantVal {
				t.Errorf("value = %q, want %q", tt.attr.Value.String(), tt.wantVal)
			}
		})
	}
}

func TestIDAttrs(t *testing.T) {
	attr := Partner(12)
	if attr.Key != KeyPartner || attr.Value.Int64() != 12 {
		t.Errorf("Partner(12) = %v", attr)
	}

	attr = Event(5)
	if attr.Key != KeyEvent || attr.Value.Int64() != 5 {
		t.Errorf("Event(5) = %v", attr)
	}
}

func TestErr(t *testing.T) {
	attr := Err(errors.New("test error"))
	if attr.Key != KeyError {
		t.Errorf("Err key = %q, want %q", attr.Key, KeyError)
	}
	if attr.Value.String() != "test error" {
		t.Errorf("Err value = %q, want %q", attr.Value.String(), "test error")
	}

	attr = Err(nil)
	if attr.Key != "" {
		t.Errorf("Err(nil) key = %q, want empty string (empty group)", attr.Key)
	}
}

func TestAnonymizeLogin(t *testing.T) {
	tests := []struct {
		login    string
		wantLen  int
		hasValue bool
	}{
		{"admin@example.com", 21, true},
		{"admin", 21, true},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.login, func(t *testing.T) {
			result := AnonymizeLogin(tt.login)
			if !tt.hasValue {
				if result != "" {
					t.Errorf("AnonymizeLogin(%q) = %q, want empty string", tt.login, result)
				}
				return
			}
			if len(result) != tt.wantLen {
				t.Errorf("AnonymizeLogin(%q) length = %d, want %d", tt.login, len(result), tt.wantLen)
			}
			if result[:5] != "user:" {
				t.Errorf("AnonymizeLogin(%q) should start with 'user:', got %q", tt.login, result)
			}
		})
	}

	if AnonymizeLogin("a@example.com") != AnonymizeLogin("a@example.com") {
		t.Error("AnonymizeLogin should be deterministic")
	}
	if AnonymizeLogin("a@example.com") == AnonymizeLogin("b@example.com") {
		t.Error("different logins should produce different hashes")
	}
}

func TestUserHash(t *testing.T) {
	attr := UserHash("admin@example.com")
	if attr.Key != KeyUserHash {
		t.Errorf("UserHash key = %q, want %q", attr.Key, KeyUserHash)
	}
	if len(attr.Value.String()) != 21 {
		t.Errorf("UserHash value length = %d, want 21", len(attr.Value.String()))
	}
}

func TestSanitizeSecret(t *testing.T) {
	tests := []struct {
		secret   string
		expected string
	}{
		{"", "<empty>"},
		{"abc123", "[secret:6 chars]"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := SanitizeSecret(tt.secret); got != tt.expected {
				t.Errorf("SanitizeSecret(%q) = %q, want %q", tt.secret, got, tt.expected)
			}
		})
	}
}

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		login    string
		expected string
	}{
		{"admin@example.com", "example.com"},
		{"admin", ""},
		{"", ""},
		{"@", ""},
	}

	for _, tt := range tests {
		t.Run(tt.login, func(t *testing.T) {
			if got := ExtractDomain(tt.login); got != tt.expected {
				t.Errorf("ExtractDomain(%q) = %q, want %q", tt.login, got, tt.expected)
			}
		})
	}

	attr := Domain("admin@example.com")
	if attr.Key != "user_domain" || attr.Value.String() != "example.com" {
		t.Errorf("Domain() = %v", attr)
	}
}
