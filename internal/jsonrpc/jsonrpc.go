// Package jsonrpc implements the JSON-RPC 2.0 request layer: a method table
// with per-method param schemas, single and batch dispatch, and the error
// taxonomy used across the server.
package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"
)

// Handler executes a method with validated params.
type Handler func(ctx context.Context, params Params) (any, error)

// Method describes one registered method.
type Method struct {
	Group   string
	Name    string
	Params  []Param
	Handler Handler
}

// Registry holds the method table.
type Registry struct {
	log *zap.Logger

	mu      sync.RWMutex
	methods map[string]Method
}

// NewRegistry creates an empty method table.
func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{log: log, methods: map[string]Method{}}
}

// Register adds a method under group.name. Registering a taken name fails.
func (r *Registry) Register(m Method) error {
	if m.Group == "" || m.Name == "" || m.Handler == nil {
		return fmt.Errorf("method group, name and handler are required")
	}
	key := m.Group + "." + m.Name
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.methods[key]; ok {
		return fmt.Errorf("method %s already registered", key)
	}
	r.methods[key] = m
	return nil
}

// MustRegister registers a method and panics on programmer error. Only used
// at startup while wiring the method table.
func (r *Registry) MustRegister(m Method) {
	if err := r.Register(m); err != nil {
		panic(err)
	}
}

// Unregister removes every method of a group.
func (r *Registry) Unregister(group string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, m := range r.methods {
		if m.Group == group {
			delete(r.methods, key)
		}
	}
}

func (r *Registry) lookup(name string) (Method, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.methods[name]
	return m, ok
}

// request is the wire form of a single JSON-RPC request object.
type request struct {
	Version string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
}

type response struct {
	Version string          `json:"jsonrpc"`
	Result  any             `json:"result,omitempty"`
	Error   *respError      `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

// Handle processes a request buffer, single or batch, and returns the
// response buffer. A nil return means no response body is due (notification
// or empty batch).
func (r *Registry) Handle(ctx context.Context, data []byte) []byte {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return marshalResponse(errorResponse(nil, CodeParseError, "Parse error"))
	}

	if trimmed[0] == '[' {
		var batch []json.RawMessage
		if err := json.Unmarshal(trimmed, &batch); err != nil {
			return marshalResponse(errorResponse(nil, CodeParseError, "Parse error"))
		}
		if len(batch) == 0 {
			return nil
		}
		responses := make([]response, 0, len(batch))
		for _, raw := range batch {
			if resp, ok := r.handleOne(ctx, raw); ok {
				responses = append(responses, resp)
			}
		}
		if len(responses) == 0 {
			return nil
		}
		out, err := json.Marshal(responses)
		if err != nil {
			r.log.Error("marshal batch response", zap.Error(err))
			return marshalResponse(errorResponse(nil, CodeInternalError, "Internal error"))
		}
		return out
	}

	resp, ok := r.handleOne(ctx, trimmed)
	if !ok {
		return nil
	}
	return marshalResponse(resp)
}

// handleOne processes one request object. The second return is false when the
// request is a notification and no response must be emitted.
func (r *Registry) handleOne(ctx context.Context, raw json.RawMessage) (response, bool) {
	if firstByte(raw) != '{' {
		return errorResponse(nil, CodeInvalidRequest, "Invalid request"), true
	}
	var req request
	if err := json.Unmarshal(raw, &req); err != nil {
		return errorResponse(nil, CodeInvalidRequest, "Invalid request"), true
	}
	if req.Version != "2.0" || req.Method == "" {
		return errorResponse(req.ID, CodeInvalidRequest, "Invalid request"), true
	}
	if !validID(req.ID) {
		return errorResponse(nil, CodeInvalidRequest, "Invalid request"), true
	}
	notification := len(req.ID) == 0

	method, ok := r.lookup(req.Method)
	if !ok {
		if notification {
			return response{}, false
		}
		return errorResponse(req.ID, CodeMethodNotFound, "Method not found"), true
	}

	params, err := validateParams(method.Params, req.Params)
	if err != nil {
		if notification {
			return response{}, false
		}
		code, msg := codeForError(err)
		return errorResponse(req.ID, code, msg), true
	}

	result, err := method.Handler(ctx, params)
	if notification {
		return response{}, false
	}
	if err != nil {
		code, msg := codeForError(err)
		r.log.Debug("method failed",
			zap.String("method", req.Method),
			zap.Int("code", code),
			zap.Error(err))
		return errorResponse(req.ID, code, msg), true
	}
	if result == nil {
		result = true
	}
	return response{Version: "2.0", Result: result, ID: req.ID}, true
}

// validID accepts an absent id, a string or an integer.
func validID(id json.RawMessage) bool {
	if len(id) == 0 {
		return true
	}
	switch firstByte(id) {
	case '"':
		return json.Valid(id)
	case '{', '[', 't', 'f', 'n':
		return false
	default:
		var v float64
		return json.Unmarshal(id, &v) == nil && v == math.Trunc(v)
	}
}

func errorResponse(id json.RawMessage, code int, message string) response {
	if len(id) == 0 {
		id = json.RawMessage("null")
	}
	return response{
		Version: "2.0",
		Error:   &respError{Code: code, Message: message},
		ID:      id,
	}
}

func marshalResponse(resp response) []byte {
	out, err := json.Marshal(resp)
	if err != nil {
		return []byte(`{"jsonrpc":"2.0","error":{"code":-32603,"message":"Internal error"},"id":null}`)
	}
	return out
}
