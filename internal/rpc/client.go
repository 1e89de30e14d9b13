package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/odoocal/internal/instrumentation"
	"github.com/teemow/odoocal/internal/logging"
)

const (
	routeAuthenticate   = "/web/session/authenticate"
	routeSessionInfo    = "/web/session/get_session_info"
	routeDestroySession = "/web/session/destroy"
	routeCallKW         = "/web/dataset/call_kw"
)

// LoadingIndicator is notified around every non-shadow call.
type LoadingIndicator interface {
	Begin()
	End()
}

type noopIndicator struct{}

func (noopIndicator) Begin() {}
func (noopIndicator) End()   {}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
// A cookie jar is installed when the client has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLoadingIndicator sets the indicator toggled by non-shadow calls.
func WithLoadingIndicator(ind LoadingIndicator) Option {
	return func(c *Client) {
		if ind != nil {
			c.indicator = ind
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// CallOption configures a single call.
type CallOption func(*callOptions)

type callOptions struct {
	shadow bool
}

// WithShadow marks a call as a background call. Shadow calls never touch the
// loading indicator or the in-flight gauge.
func WithShadow() CallOption {
	return func(o *callOptions) {
		o.shadow = true
	}
}

// Client talks JSON-RPC to a calendar server and holds its session.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	indicator  LoadingIndicator
	metrics    *instrumentation.Metrics
	logger     *slog.Logger

	mu      sync.RWMutex
	session *Session
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("server URL cannot be empty")
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported server URL scheme %q", u.Scheme)
	}

	c := &Client{
		baseURL:   u,
		indicator: noopIndicator{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		c.httpClient.Jar = jar
	}

	c.logger = logging.WithService(c.logger, "rpc")
	return c, nil
}

// BaseURL returns the server URL without trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Session returns a copy of the current session, or nil before Authenticate.
func (c *Client) Session() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

// Authenticate opens a session for login on db.
func (c *Client) Authenticate(ctx context.Context, db, login, password string) (*Session, error) {
	params := map[string]any{
		"db":       db,
		"login":    login,
		"password": password,
	}

	c.logger.Debug("authenticating",
		logging.UserHash(login),
		slog.String("db", db),
		slog.String("password", logging.SanitizeSecret(password)))

	var payload sessionPayload
	if err := c.Call(ctx, routeAuthenticate, params, &payload); err != nil {
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}

	sess, err := payload.session()
	if err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if sess.Anonymous() {
		return nil, ErrAuthenticationFailed
	}
	if sess.DB == "" {
		sess.DB = db
	}
	if sess.Login == "" {
		sess.Login = login
	}

	c.setSession(sess)
	c.logger.Info("authenticated",
		logging.UserHash(sess.Login),
		slog.String("db", sess.DB),
		slog.Int64("uid", sess.UID))
	return c.Session(), nil
}

// SessionInfo refreshes the session from the server.
func (c *Client) SessionInfo(ctx context.Context) (*Session, error) {
	var payload sessionPayload
	if err := c.Call(ctx, routeSessionInfo, nil, &payload, WithShadow()); err != nil {
		return nil, fmt.Errorf("failed to get session info: %w", err)
	}

	sess, err := payload.session()
	if err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	c.setSession(sess)
	return c.Session(), nil
}

// Logout destroys the server session and forgets the local one.
func (c *Client) Logout(ctx context.Context) error {
	err := c.Call(ctx, routeDestroySession, nil, nil, WithShadow())
	c.setSession(nil)
	if err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	return nil
}

func (c *Client) setSession(s *Session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
}

// CallKW invokes method on model with positional and keyword arguments.
// The session's user context is merged into kwargs unless already present.
func (c *Client) CallKW(ctx context.Context, model, method string, args []any, kwargs map[string]any, dst any, opts ...CallOption) error {
	if model == "" || method == "" {
		return fmt.Errorf("model and method are required")
	}
	if args == nil {
		args = []any{}
	}

	merged := make(map[string]any, len(kwargs)+1)
	for k, v := range kwargs {
		merged[k] = v
	}
	if _, ok := merged["context"]; !ok {
		if sess := c.Session(); sess != nil && sess.Context != nil {
			merged["context"] = sess.Context
		}
	}

	params := map[string]any{
		"model":  model,
		"method": method,
		"args":   args,
		"kwargs": merged,
	}
	route := fmt.Sprintf("%s/%s/%s", routeCallKW, model, method)
	return c.Call(ctx, route, params, dst, opts...)
}

// Call posts a JSON-RPC request to route and decodes the result into dst.
// dst may be nil when the result is not needed.
func (c *Client) Call(ctx context.Context, route string, params any, dst any, opts ...CallOption) error {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}

	operation := instrumentation.RPCOperation(route)
	ctx, span := instrumentation.StartRPCSpan(ctx, route, o.shadow)
	defer span.End()

	if !o.shadow {
		c.indicator.Begin()
		c.metrics.IncrementRPCInFlight(ctx)
		defer func() {
			c.metrics.DecrementRPCInFlight(ctx)
			c.indicator.End()
		}()
	}

	start := time.Now()
	err := c.do(ctx, route, params, dst)
	duration := time.Since(start)

	status := instrumentation.StatusSuccess
	switch {
	case IsLocalAbort(err):
		status = instrumentation.StatusAborted
	case err != nil:
		status = instrumentation.StatusError
	}
	c.metrics.RecordRPCCall(ctx, operation, status, duration)

	if err != nil {
		var rpcErr *Error
		if errors.As(err, &rpcErr) {
			span.SetAttributes(attribute.Int(instrumentation.SpanAttrRPCCode, rpcErr.Code))
		}
		instrumentation.SetSpanError(span, err)
		c.logger.Debug("rpc call failed",
			logging.Operation(operation),
			logging.Status(status),
			slog.Duration(logging.KeyDuration, duration),
			logging.Err(err))
		return err
	}

	instrumentation.SetSpanSuccess(span)
	return nil
}

func (c *Client) do(ctx context.Context, route string, params any, dst any) error {
	if params == nil {
		params = map[string]any{}
	}

	id := uuid.NewString()
	body, err := json.Marshal(request{
		JSONRPC: "2.0",
		Method:  "call",
		Params:  params,
		ID:      id,
	})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL.String()+route, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return &Error{Code: CodeLocalAbort, Message: "request aborted", Err: ctxErr}
		}
		return fmt.Errorf("failed to send request to %s: %w", route, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("unexpected HTTP status %d from %s: %s", res.StatusCode, route, strings.TrimSpace(string(snippet)))
	}

	var resp response
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return &Error{Code: CodeLocalAbort, Message: "request aborted", Err: ctxErr}
		}
		return fmt.Errorf("failed to decode response from %s: %w", route, err)
	}

	if resp.Error != nil {
		return resp.Error
	}

	if len(resp.ID) > 0 && string(resp.ID) != "null" {
		var gotID string
		if err := json.Unmarshal(resp.ID, &gotID); err != nil || gotID != id {
			return fmt.Errorf("response id %s does not match request id %q", resp.ID, id)
		}
	}

	if dst == nil || len(resp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Result, dst); err != nil {
		return fmt.Errorf("failed to decode result from %s: %w", route, err)
	}
	return nil
}
