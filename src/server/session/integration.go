package session

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"

	"lsp-client/src/server/dispatch"
)

// CapabilityAssertion validates one aspect of the initialize response.
// Assertions are fatal: a failing assertion means an incompatible server
// version or configuration, and the session never reaches Ready.
type CapabilityAssertion struct {
	Path   string
	Check  func(value gjson.Result) bool
	Detail string
}

// RequirePresent asserts that a capability path exists in the response.
func RequirePresent(path string) CapabilityAssertion {
	return CapabilityAssertion{
		Path:   path,
		Check:  func(v gjson.Result) bool { return v.Exists() },
		Detail: fmt.Sprintf("%s must be present", path),
	}
}

// RequireAbsent asserts that a capability path is not in the response.
func RequireAbsent(path string) CapabilityAssertion {
	return CapabilityAssertion{
		Path:   path,
		Check:  func(v gjson.Result) bool { return !v.Exists() },
		Detail: fmt.Sprintf("%s must be absent", path),
	}
}

// RequireValue asserts that a capability path holds an exact integer value.
func RequireValue(path string, want int64) CapabilityAssertion {
	return CapabilityAssertion{
		Path:   path,
		Check:  func(v gjson.Result) bool { return v.Exists() && v.Int() == want },
		Detail: fmt.Sprintf("%s must equal %d", path, want),
	}
}

// Integration is the declarative per-language handshake extension: handler
// registrations, capability assertions, named gates that must be set before
// Ready, and an optional multi-step activation sequence. A single generic
// Session runs any Integration; per-server variation never subclasses the
// state machine.
type Integration struct {
	// Language names the integration for logging and error context.
	Language string

	// InitializeTemplate overrides the default handshake payload template.
	InitializeTemplate []byte

	// Assertions are checked against the raw initialize response.
	Assertions []CapabilityAssertion

	// RequestHandlers are registered on the dispatcher before the handshake
	// begins, so server-initiated requests arriving mid-handshake are
	// serviced. Handlers are pure functions from params to a result; side
	// effects are limited to setting readiness gates.
	RequestHandlers func(s *Session) map[string]dispatch.RequestHandler

	// NotificationHandlers are registered alongside the request handlers.
	NotificationHandlers func(s *Session) map[string]dispatch.NotificationHandler

	// PostInitialize runs after the initialized notification, before the
	// required gates are awaited. Used for enable-feature commands that are
	// themselves gated on inbound registration notifications.
	PostInitialize func(ctx context.Context, s *Session) error

	// RequiredGates must all be set before the session is Ready.
	RequiredGates []string
}
