// Package rpctest provides a fake JSON-RPC server for testing rpc clients.
package rpctest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/teemow/odoocal/internal/rpc"
)

// HandlerFunc answers one JSON-RPC call. Returning a non-nil *rpc.Error sends
// it as the error member of the response.
type HandlerFunc func(r *http.Request, params json.RawMessage) (any, *rpc.Error)

// Call is a request recorded by the server.
type Call struct {
	Route  string
	Params json.RawMessage
	ID     string
}

// Server is a fake JSON-RPC server. Routes are registered with Handle;
// unknown routes answer with a 404 error object.
type Server struct {
	*httptest.Server

	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	calls    []Call
}

// NewServer starts a fake server.
func NewServer() *Server {
	s := &Server{
		handlers: make(map[string]HandlerFunc),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handleRequest))
	return s
}

// Handle registers the handler for a route, replacing any previous one.
func (s *Server) Handle(route string, h HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[route] = h
}

// HandleResult registers a route that always answers with result.
func (s *Server) HandleResult(route string, result any) {
	s.Handle(route, func(*http.Request, json.RawMessage) (any, *rpc.Error) {
		return result, nil
	})
}

// HandleError registers a route that always answers with err.
func (s *Server) HandleError(route string, err *rpc.Error) {
	s.Handle(route, func(*http.Request, json.RawMessage) (any, *rpc.Error) {
		return nil, err
	})
}

// Calls returns the recorded calls in arrival order.
func (s *Server) Calls() []Call {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallsTo returns the recorded calls to route.
func (s *Server) CallsTo(route string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Route == route {
			out = append(out, c)
		}
	}
	return out
}

// Reset forgets recorded calls.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		JSONRPC string          `json:"jsonrpc"`
		Method  string          `json:"method"`
		Params  json.RawMessage `json:"params"`
		ID      string          `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.calls = append(s.calls, Call{Route: r.URL.Path, Params: req.Params, ID: req.ID})
	h, ok := s.handlers[r.URL.Path]
	s.mu.Unlock()

	resp := map[string]any{
		"jsonrpc": "2.0",
		"id":      req.ID,
	}

	switch {
	case req.JSONRPC != "2.0" || req.Method != "call":
		resp["error"] = &rpc.Error{Code: -32600, Message: "Invalid Request"}
	case !ok:
		resp["error"] = &rpc.Error{Code: 404, Message: "404: Not Found"}
	default:
		result, rpcErr := h(r, req.Params)
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
