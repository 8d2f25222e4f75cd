// Package errors provides the unified error taxonomy for the client.
package errors

// Standard JSON-RPC error codes
const (
	ParseError     = -32700 // Invalid JSON was received
	InvalidRequest = -32600 // The JSON sent is not a valid Request object
	MethodNotFound = -32601 // The method does not exist / is not available
	InvalidParams  = -32602 // Invalid method parameter(s)
	InternalError  = -32603 // Internal JSON-RPC error
)

// LSP-specific error codes as defined in the LSP specification
const (
	ServerNotInitialized = -32002 // Server not initialized
	UnknownErrorCode     = -32001 // Unknown error code
	RequestCancelled     = -32800 // Request was cancelled
	ContentModified      = -32801 // Content was modified
	RequestFailed        = -32803 // Request failed with unrecoverable error
)

// Client-local error codes (range: -33000 to -33099)
const (
	ConnectionFailure   = -33001 // Connection to the server was lost
	ProcessStartFailure = -33002 // Failed to start the server process
	ProcessStopFailure  = -33003 // Failed to stop the server process
	CommunicationError  = -33004 // Communication error with the server

	InitializationTimeout = -33010 // Server initialization timeout
	OperationTimeout      = -33011 // Operation timeout
	ShutdownTimeout       = -33012 // Server shutdown timeout

	HandshakeFailure = -33030 // Capability assertion failed during startup
	FramingFailure   = -33031 // Malformed frame on the wire
)
