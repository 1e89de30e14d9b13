package rpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// CodeLocalAbort is the error code reported for a request abandoned by the
// client before the server answered.
const CodeLocalAbort = -32098

// Session identifies the authenticated user of a calendar server.
type Session struct {
	// UID is the server user id, 0 for an anonymous session
	UID int64 `json:"uid"`

	// PartnerID is the partner record linked to the user
	PartnerID int64 `json:"partner_id"`

	// Name is the display name of the user
	Name string `json:"name"`

	// DB is the database the session is bound to
	DB string `json:"db"`

	// Login is the user's login, usually an email address
	Login string `json:"username"`

	// Context is the user context sent with every model call
	Context map[string]any `json:"user_context,omitempty"`
}

// Anonymous reports whether the session carries no authenticated user.
func (s *Session) Anonymous() bool {
	return s == nil || s.UID == 0
}

// ValidFor reports whether the session is bound to the given database.
func (s *Session) ValidFor(db string) bool {
	return s != nil && s.DB != "" && s.DB == db
}

// sessionPayload mirrors the server's session info, where ids may be false.
type sessionPayload struct {
	UID       json.RawMessage `json:"uid"`
	PartnerID json.RawMessage `json:"partner_id"`
	Name      string          `json:"name"`
	DB        string          `json:"db"`
	Login     string          `json:"username"`
	Context   map[string]any  `json:"user_context"`
}

func (p sessionPayload) session() (*Session, error) {
	uid, err := decodeID(p.UID)
	if err != nil {
		return nil, fmt.Errorf("invalid uid: %w", err)
	}
	partnerID, err := decodeID(p.PartnerID)
	if err != nil {
		return nil, fmt.Errorf("invalid partner_id: %w", err)
	}
	return &Session{
		UID:       uid,
		PartnerID: partnerID,
		Name:      p.Name,
		DB:        p.DB,
		Login:     p.Login,
		Context:   p.Context,
	}, nil
}

// Many2One is a relational field value, encoded by the server either as
// [id, display_name] or as false when empty.
type Many2One struct {
	ID   int64
	Name string
}

// IsZero reports whether the relation is empty.
func (m Many2One) IsZero() bool {
	return m.ID == 0
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Many2One) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("false")) || bytes.Equal(trimmed, []byte("null")) {
		*m = Many2One{}
		return nil
	}

	// A bare id is accepted as well
	if len(trimmed) > 0 && trimmed[0] != '[' {
		var id int64
		if err := json.Unmarshal(trimmed, &id); err != nil {
			return fmt.Errorf("invalid many2one value %s: %w", trimmed, err)
		}
		*m = Many2One{ID: id}
		return nil
	}

	var pair []json.RawMessage
	if err := json.Unmarshal(trimmed, &pair); err != nil {
		return fmt.Errorf("invalid many2one value %s: %w", trimmed, err)
	}
	if len(pair) == 0 {
		*m = Many2One{}
		return nil
	}
	if err := json.Unmarshal(pair[0], &m.ID); err != nil {
		return fmt.Errorf("invalid many2one id: %w", err)
	}
	m.Name = ""
	if len(pair) > 1 {
		if err := json.Unmarshal(pair[1], &m.Name); err != nil {
			return fmt.Errorf("invalid many2one name: %w", err)
		}
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (m Many2One) MarshalJSON() ([]byte, error) {
	if m.IsZero() {
		return []byte("false"), nil
	}
	return json.Marshal([]any{m.ID, m.Name})
}

// decodeID decodes an integer id that may be false or null.
func decodeID(raw json.RawMessage) (int64, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("false")) || bytes.Equal(trimmed, []byte("null")) {
		return 0, nil
	}
	var id int64
	if err := json.Unmarshal(trimmed, &id); err != nil {
		return 0, err
	}
	return id, nil
}

// ErrorData carries the server-side exception details of an Error.
type ErrorData struct {
	Name      string `json:"name,omitempty"`
	Debug     string `json:"debug,omitempty"`
	Message   string `json:"message,omitempty"`
	Arguments []any  `json:"arguments,omitempty"`
}

// Error is a JSON-RPC error, either returned by the server or produced
// locally when a request is aborted.
type Error struct {
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Data    *ErrorData `json:"data,omitempty"`

	// Err is the local cause of an aborted request
	Err error `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Data != nil && e.Data.Message != "" {
		return fmt.Sprintf("rpc error %d: %s: %s", e.Code, e.Message, e.Data.Message)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *Error) Unwrap() error {
	return e.Err
}

// IsLocalAbort reports whether err is a request the client abandoned itself.
func IsLocalAbort(err error) bool {
	var rpcErr *Error
	return errors.As(err, &rpcErr) && rpcErr.Code == CodeLocalAbort
}

// ErrAuthenticationFailed is returned when the server rejects the credentials.
var ErrAuthenticationFailed = errors.New("authentication failed")

// ErrNotAuthenticated is returned by operations that need a session before
// Authenticate succeeded.
var ErrNotAuthenticated = errors.New("not authenticated")

type request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      string `json:"id"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *Error          `json:"error"`
}
