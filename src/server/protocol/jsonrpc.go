// Package protocol implements the JSON-RPC 2.0 envelope and the
// Content-Length frame codec used on the wire between client and server.
package protocol

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"lsp-client/src/internal/errors"
)

// JSONRPCVersion is the protocol version carried in every envelope.
const JSONRPCVersion = "2.0"

// Message represents a JSON-RPC 2.0 message: a request (ID and Method),
// a notification (Method only) or a response (ID with Result or Error).
type Message struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id,omitempty"`
	Method  string      `json:"method,omitempty"`
	Params  interface{} `json:"params,omitempty"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

// IsRequest reports whether the message is a server- or client-initiated
// request expecting a reply.
func (m *Message) IsRequest() bool {
	return m.Method != "" && m.ID != nil
}

// IsNotification reports whether the message expects no reply.
func (m *Message) IsNotification() bool {
	return m.Method != "" && m.ID == nil
}

// IsResponse reports whether the message resolves an outstanding request.
func (m *Message) IsResponse() bool {
	return m.Method == "" && m.ID != nil
}

// RPCError represents a JSON-RPC error object.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// NewRequest creates a request message with the given correlation id.
func NewRequest(id interface{}, method string, params interface{}) Message {
	return Message{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Method:  method,
		Params:  params,
	}
}

// NewNotification creates a notification message (no id, no reply).
func NewNotification(method string, params interface{}) Message {
	return Message{
		JSONRPC: JSONRPCVersion,
		Method:  method,
		Params:  params,
	}
}

// NewResponse creates a response message carrying a result or an error.
func NewResponse(id interface{}, result interface{}, err *RPCError) Message {
	return Message{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Result:  result,
		Error:   err,
	}
}

// NewRPCError creates an RPCError with the specified code and message.
func NewRPCError(code int, message string, data interface{}) *RPCError {
	return &RPCError{Code: code, Message: message, Data: data}
}

// NewMethodNotFoundError creates a method not found error (-32601).
func NewMethodNotFoundError(method string) *RPCError {
	return NewRPCError(errors.MethodNotFound, "Method not found", method)
}

// NewInternalError creates an internal error (-32603).
func NewInternalError(data interface{}) *RPCError {
	return NewRPCError(errors.InternalError, "Internal error", data)
}

// WriteMessage encodes one message as a Content-Length delimited frame.
// The caller is responsible for serializing concurrent writers.
func WriteMessage(w io.Writer, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(data)); err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// ReadMessage consumes exactly one frame from the reader and decodes its
// envelope. The reader may deliver bytes in arbitrary chunks; ReadMessage
// blocks until a full frame is available and never reads past the frame
// boundary. A missing or malformed header, or a body that is not a valid
// envelope, yields a *errors.FramingError. io.EOF is returned unchanged
// when the stream ends cleanly between frames.
func ReadMessage(r *bufio.Reader) (*Message, error) {
	contentLength := -1

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if err == io.EOF && line == "" && contentLength < 0 {
				return nil, io.EOF
			}
			return nil, errors.NewFramingError("stream ended inside header block", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			break
		}

		if name, value, found := strings.Cut(line, ":"); found {
			if strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
				length, err := strconv.Atoi(strings.TrimSpace(value))
				if err != nil || length < 0 {
					return nil, errors.NewFramingError(fmt.Sprintf("invalid Content-Length %q", strings.TrimSpace(value)), err)
				}
				contentLength = length
			}
			// Other headers (Content-Type) are permitted and ignored.
		} else {
			return nil, errors.NewFramingError(fmt.Sprintf("malformed header line %q", line), nil)
		}
	}

	if contentLength < 0 {
		return nil, errors.NewFramingError("missing Content-Length header", nil)
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, errors.NewFramingError("stream ended inside frame body", err)
	}

	return DecodeMessage(body)
}

// DecodeMessage parses one frame body into a Message and validates the
// envelope shape.
func DecodeMessage(body []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, errors.NewFramingError("body is not valid JSON", err)
	}
	if msg.Method == "" && msg.ID == nil {
		return nil, errors.NewFramingError("message has neither method nor id", nil)
	}
	return &msg, nil
}

// MarshalResult re-encodes a decoded result value for delivery to callers.
func MarshalResult(v interface{}) json.RawMessage {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
