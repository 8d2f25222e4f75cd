package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// LSPError represents a server-reported JSON-RPC failure for one call.
// It never affects other in-flight calls.
type LSPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *LSPError) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("LSP error %d: %s (data: %v)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("LSP error %d: %s", e.Code, e.Message)
}

// TimeoutError represents a call that produced no response within its deadline.
// The pending call is discarded; a late response is dropped, not an error.
type TimeoutError struct {
	Operation string        `json:"operation"`
	Language  string        `json:"language,omitempty"`
	Timeout   time.Duration `json:"timeout,omitempty"`
}

func (e *TimeoutError) Error() string {
	if e.Language != "" {
		return fmt.Sprintf("timeout after %v for %s operation on %s", e.Timeout, e.Operation, e.Language)
	}
	return fmt.Sprintf("timeout after %v for %s operation", e.Timeout, e.Operation)
}

// ConnectionClosedError is fatal to the session: the process exited or the
// stream ended. It is broadcast to every outstanding and future call.
type ConnectionClosedError struct {
	Language string `json:"language"`
	Cause    error  `json:"cause,omitempty"`
}

func (e *ConnectionClosedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("connection to %s server closed: %v", e.Language, e.Cause)
	}
	return fmt.Sprintf("connection to %s server closed", e.Language)
}

func (e *ConnectionClosedError) Unwrap() error {
	return e.Cause
}

// HandshakeError represents a capability assertion mismatch during startup.
// It is fatal and never retried since it indicates an incompatible server.
type HandshakeError struct {
	Language  string `json:"language"`
	Assertion string `json:"assertion"`
	Detail    string `json:"detail,omitempty"`
}

func (e *HandshakeError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("handshake with %s server failed: %s: %s", e.Language, e.Assertion, e.Detail)
	}
	return fmt.Sprintf("handshake with %s server failed: %s", e.Language, e.Assertion)
}

// ProcessError represents a server process lifecycle failure.
// Type "start" means the session never started.
type ProcessError struct {
	Language string `json:"language"`
	Command  string `json:"command"`
	Type     string `json:"type"` // "start", "stop"
	Cause    error  `json:"cause,omitempty"`
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("process error for %s server (%s): %s: %v", e.Language, e.Type, e.Command, e.Cause)
}

func (e *ProcessError) Unwrap() error {
	return e.Cause
}

// FramingError represents a malformed header or body on the wire.
// It is fatal to the connection.
type FramingError struct {
	Detail string `json:"detail"`
	Cause  error  `json:"cause,omitempty"`
}

func (e *FramingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("framing error: %s: %v", e.Detail, e.Cause)
	}
	return fmt.Sprintf("framing error: %s", e.Detail)
}

func (e *FramingError) Unwrap() error {
	return e.Cause
}

// Constructors

func NewLSPError(code int, message string, data interface{}) *LSPError {
	return &LSPError{Code: code, Message: message, Data: data}
}

func NewTimeoutError(operation, language string, timeout time.Duration) *TimeoutError {
	return &TimeoutError{Operation: operation, Language: language, Timeout: timeout}
}

func NewConnectionClosedError(language string, cause error) *ConnectionClosedError {
	return &ConnectionClosedError{Language: language, Cause: cause}
}

func NewHandshakeError(language, assertion, detail string) *HandshakeError {
	return &HandshakeError{Language: language, Assertion: assertion, Detail: detail}
}

func NewProcessError(language, command, errType string, cause error) *ProcessError {
	return &ProcessError{Language: language, Command: command, Type: errType, Cause: cause}
}

func NewFramingError(detail string, cause error) *FramingError {
	return &FramingError{Detail: detail, Cause: cause}
}

// Classification helpers

func IsLSPError(err error) bool {
	var target *LSPError
	return stderrors.As(err, &target)
}

func IsTimeoutError(err error) bool {
	var target *TimeoutError
	return stderrors.As(err, &target)
}

func IsConnectionClosed(err error) bool {
	var target *ConnectionClosedError
	return stderrors.As(err, &target)
}

func IsHandshakeError(err error) bool {
	var target *HandshakeError
	return stderrors.As(err, &target)
}

func IsProcessError(err error) bool {
	var target *ProcessError
	return stderrors.As(err, &target)
}

func IsStartupError(err error) bool {
	var target *ProcessError
	if stderrors.As(err, &target) {
		return target.Type == "start"
	}
	return false
}

func IsFramingError(err error) bool {
	var target *FramingError
	return stderrors.As(err, &target)
}
