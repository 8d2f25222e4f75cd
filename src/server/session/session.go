// Package session drives a language-server connection through launch,
// handshake, steady-state operation and shutdown.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/tidwall/gjson"

	"lsp-client/src/internal/common"
	"lsp-client/src/internal/constants"
	"lsp-client/src/internal/errors"
	"lsp-client/src/internal/types"
	"lsp-client/src/server/dispatch"
	"lsp-client/src/server/process"
)

// State is the session lifecycle state.
type State int32

const (
	StateCreated State = iota
	StateLaunching
	StateAwaitingInitializeResponse
	StateInitialized
	StateCustomHandshake
	StateReady
	StateShuttingDown
	StateStopped
	StateCrashed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateLaunching:
		return "launching"
	case StateAwaitingInitializeResponse:
		return "awaiting-initialize-response"
	case StateInitialized:
		return "initialized"
	case StateCustomHandshake:
		return "custom-handshake"
	case StateReady:
		return "ready"
	case StateShuttingDown:
		return "shutting-down"
	case StateStopped:
		return "stopped"
	case StateCrashed:
		return "crashed"
	default:
		return "unknown"
	}
}

// Session aggregates the process handle, the dispatcher, the readiness
// gates and the handshake state machine for one language server. Its
// lifecycle bounds the lifetime of all of them.
type Session struct {
	config      types.ClientConfig
	language    string
	rootPath    string
	integration Integration

	procMgr *process.Manager
	proc    *process.Info

	dispatcher *dispatch.Dispatcher
	gates      *gateSet

	mu    sync.Mutex
	state State

	// Handlers registered before Start are buffered until the dispatcher
	// exists; the handshake only begins after they are installed.
	pendingReqHandlers   map[string]dispatch.RequestHandler
	pendingNotifHandlers map[string]dispatch.NotificationHandler

	initializeParams json.RawMessage
	initializeResult json.RawMessage
}

// NewSession creates a session in the Created state. Nothing is launched
// until Start.
func NewSession(config types.ClientConfig, language, rootPath string, integration Integration) *Session {
	return &Session{
		config:               config,
		language:             language,
		rootPath:             rootPath,
		integration:          integration,
		procMgr:              process.NewManager(),
		gates:                newGateSet(),
		state:                StateCreated,
		pendingReqHandlers:   make(map[string]dispatch.RequestHandler),
		pendingNotifHandlers: make(map[string]dispatch.NotificationHandler),
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Language returns the language this session serves.
func (s *Session) Language() string {
	return s.language
}

// RootPath returns the repository root path.
func (s *Session) RootPath() string {
	return s.rootPath
}

// Dispatcher exposes the dispatch core for steady-state calls. Nil before
// Start.
func (s *Session) Dispatcher() *dispatch.Dispatcher {
	return s.dispatcher
}

// Gate returns the named readiness gate, creating it on first reference.
func (s *Session) Gate(name string) *ReadinessGate {
	return s.gates.gate(name)
}

// WaitGate suspends until the named gate is set, the context ends, or the
// session crashes. A crash fails the wait with a connection-closed error:
// a gate left unset on a dead connection is never satisfied.
func (s *Session) WaitGate(ctx context.Context, name string) error {
	gate := s.gates.gate(name)
	select {
	case <-gate.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.dispatcher.Closed():
		return errors.NewConnectionClosedError(s.language, fmt.Errorf("gate %q never satisfied", name))
	}
}

// OnRequest registers a server-initiated request handler. Before Start the
// registration is buffered and installed ahead of the handshake.
func (s *Session) OnRequest(method string, handler dispatch.RequestHandler) {
	if s.dispatcher != nil {
		s.dispatcher.OnRequest(method, handler)
		return
	}
	s.pendingReqHandlers[method] = handler
}

// OnNotification registers a server-initiated notification handler.
func (s *Session) OnNotification(method string, handler dispatch.NotificationHandler) {
	if s.dispatcher != nil {
		s.dispatcher.OnNotification(method, handler)
		return
	}
	s.pendingNotifHandlers[method] = handler
}

// InitializeParams returns the resolved handshake payload sent to the
// server. Empty before the handshake.
func (s *Session) InitializeParams() json.RawMessage {
	return s.initializeParams
}

// InitializeResult returns the raw initialize response. Empty before the
// handshake completes.
func (s *Session) InitializeResult() json.RawMessage {
	return s.initializeResult
}

// Supports probes the initialize response for a capability path.
func (s *Session) Supports(capabilityPath string) bool {
	if len(s.initializeResult) == 0 {
		return false
	}
	value := gjson.GetBytes(s.initializeResult, "capabilities."+capabilityPath)
	if !value.Exists() {
		return false
	}
	if value.Type == gjson.False {
		return false
	}
	return true
}

// Start launches the server process and drives the handshake through to
// Ready: initialize call, capability assertions, initialized notification,
// the integration's activation sequence, and the required readiness gates.
func (s *Session) Start(ctx context.Context) error {
	if state := s.State(); state != StateCreated {
		return fmt.Errorf("session already started (state %s)", state)
	}

	s.setState(StateLaunching)
	proc, err := s.procMgr.StartProcess(s.config, s.language)
	if err != nil {
		// Launch failure is fatal but the state machine never progressed.
		s.setState(StateCreated)
		return err
	}
	s.proc = proc

	s.dispatcher = dispatch.NewDispatcher(s.language, proc.Stdin, proc.StopCh)
	s.installHandlers()

	go func() {
		if err := s.dispatcher.Run(proc.Stdout); err != nil && !proc.IntentionalStop {
			common.LSPLogger.Error("Reader loop for %s ended: %v", s.language, err)
		}
	}()
	go s.procMgr.DrainStderr(proc)
	go s.procMgr.MonitorProcess(proc, func(exitErr error) {
		if proc.IntentionalStop {
			return
		}
		s.crash(exitErr)
	})

	if err := s.handshake(ctx); err != nil {
		s.crash(err)
		s.procMgr.StopProcess(proc, nil)
		return err
	}

	s.setState(StateReady)
	common.LSPLogger.Info("%s session ready", s.language)
	return nil
}

func (s *Session) handshake(ctx context.Context) error {
	s.setState(StateAwaitingInitializeResponse)

	params, err := BuildInitializeParams(
		s.integration.InitializeTemplate,
		s.rootPath,
		s.config.InitializationOptions,
		s.config.Settings,
	)
	if err != nil {
		return fmt.Errorf("failed to build initialize params: %w", err)
	}
	s.initializeParams = params

	initCtx, cancel := common.WithTimeout(ctx, constants.GetInitializeTimeout(s.language))
	defer cancel()

	result, err := s.dispatcher.Call(initCtx, types.MethodInitialize, params)
	if err != nil {
		return fmt.Errorf("initialize failed: %w", err)
	}
	s.initializeResult = result

	for _, assertion := range s.integration.Assertions {
		value := gjson.GetBytes(result, assertion.Path)
		if !assertion.Check(value) {
			return errors.NewHandshakeError(s.language, assertion.Detail, value.Raw)
		}
	}

	if err := s.dispatcher.Notify(ctx, types.MethodInitialized, map[string]interface{}{}); err != nil {
		return fmt.Errorf("initialized notification failed: %w", err)
	}
	s.setState(StateInitialized)

	s.setState(StateCustomHandshake)
	if s.integration.PostInitialize != nil {
		if err := s.integration.PostInitialize(ctx, s); err != nil {
			return fmt.Errorf("activation sequence failed: %w", err)
		}
	}
	for _, gateName := range s.integration.RequiredGates {
		if err := s.WaitGate(ctx, gateName); err != nil {
			return fmt.Errorf("waiting for gate %q: %w", gateName, err)
		}
	}

	return nil
}

func (s *Session) installHandlers() {
	for method, handler := range s.pendingReqHandlers {
		s.dispatcher.OnRequest(method, handler)
	}
	for method, handler := range s.pendingNotifHandlers {
		s.dispatcher.OnNotification(method, handler)
	}

	if s.integration.RequestHandlers != nil {
		for method, handler := range s.integration.RequestHandlers(s) {
			s.dispatcher.OnRequest(method, handler)
		}
	}
	if s.integration.NotificationHandlers != nil {
		for method, handler := range s.integration.NotificationHandlers(s) {
			s.dispatcher.OnNotification(method, handler)
		}
	}
}

// Stop closes the session: shutdown request, exit notification, process
// termination. Idempotent; safe after a crash.
func (s *Session) Stop(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateStopped, StateCreated:
		s.mu.Unlock()
		return nil
	case StateCrashed:
		s.mu.Unlock()
		if s.proc != nil {
			s.proc.IntentionalStop = true
			s.procMgr.StopProcess(s.proc, nil)
		}
		return nil
	}
	s.state = StateShuttingDown
	s.mu.Unlock()

	err := s.procMgr.StopProcess(s.proc, s)
	s.setState(StateStopped)
	return err
}

// SendShutdownRequest implements process.ShutdownSender.
func (s *Session) SendShutdownRequest(ctx context.Context) error {
	_, err := s.dispatcher.Call(ctx, types.MethodShutdown, nil)
	return err
}

// SendExitNotification implements process.ShutdownSender.
func (s *Session) SendExitNotification(ctx context.Context) error {
	return s.dispatcher.Notify(ctx, types.MethodExit, nil)
}

// crash transitions to the terminal Crashed state and broadcasts a
// connection-closed failure to every outstanding call and gate wait.
func (s *Session) crash(cause error) {
	s.mu.Lock()
	if s.state == StateCrashed || s.state == StateStopped {
		s.mu.Unlock()
		return
	}
	s.state = StateCrashed
	s.mu.Unlock()

	common.LSPLogger.Error("%s session crashed: %v", s.language, cause)
	if s.dispatcher != nil {
		s.dispatcher.Close(cause)
	}
}
