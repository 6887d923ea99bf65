package jsonrpc

import "fmt"

// Standard JSON-RPC 2.0 error codes plus the generic server error.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeServerError    = -32000
)

// Kind classifies an error independently of its transport representation.
type Kind int

// Error kinds reported by browser, player and playlist operations.
const (
	KindBadRequest Kind = iota
	KindInvalidParams
	KindNotFound
	KindConflict
	KindUnauthorized
	KindBackend
	KindCanceled
	KindInternal
)

// Error is a classified error carried through method handlers.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds a classified error.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// codeForError maps a handler error to a transport error code and message.
// NotFound on a resource (as opposed to a method) maps to the generic server
// error, same as backend failures.
func codeForError(err error) (int, string) {
	if e, ok := err.(*Error); ok {
		switch e.Kind {
		case KindBadRequest:
			return CodeInvalidRequest, "Invalid request"
		case KindInvalidParams:
			return CodeInvalidParams, "Invalid params"
		case KindNotFound, KindConflict, KindUnauthorized, KindBackend, KindCanceled:
			return CodeServerError, e.Error()
		default:
			return CodeInternalError, "Internal error"
		}
	}
	return CodeInternalError, "Internal error"
}

// respError is the wire form of a JSON-RPC error object.
type respError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
