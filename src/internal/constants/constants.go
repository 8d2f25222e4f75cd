package constants

import (
	"time"

	"lsp-client/src/internal/registry"
)

// Timeout constants for LSP operations
const (
	// Fallbacks for languages without a registry entry
	DefaultRequestTimeout    = 30 * time.Second
	DefaultInitializeTimeout = 15 * time.Second

	// Process management timeouts
	ProcessShutdownTimeout = 5 * time.Second
	ShutdownRequestTimeout = 2 * time.Second
	ExitNotifyTimeout      = 1 * time.Second
)

// Wire protocol constants
const (
	// Read buffer for inbound frames. Large workspace/symbol responses can
	// exceed the bufio default.
	ResponseBufferSize = 1024 * 1024

	// How long a timed-out request id is remembered so a late response can
	// be told apart from a true protocol violation.
	RecentTimeoutWindow = 30 * time.Second
)

// GetRequestTimeout returns the per-call timeout for a language. The
// language registry is the source of truth for per-language values.
func GetRequestTimeout(language string) time.Duration {
	if info, ok := registry.GetLanguageByName(language); ok && info.RequestTimeout > 0 {
		return info.RequestTimeout
	}
	return DefaultRequestTimeout
}

// GetInitializeTimeout returns the handshake timeout for a language.
func GetInitializeTimeout(language string) time.Duration {
	if info, ok := registry.GetLanguageByName(language); ok && info.InitializeTimeout > 0 {
		return info.InitializeTimeout
	}
	return DefaultInitializeTimeout
}
