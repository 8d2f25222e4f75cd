// Package workspace presents file/position-oriented operations on top of a
// session, hiding protocol method names and document synchronization.
package workspace

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"

	"go.lsp.dev/protocol"

	"lsp-client/src/internal/common"
	"lsp-client/src/internal/types"
	"lsp-client/src/server/session"
)

// Workspace wraps one language server session and tracks the open/version
// state of its documents.
type Workspace struct {
	session  *session.Session
	language string
	rootPath string

	// mu guards the docs map only; each document serializes its own sync
	// traffic under its own lock.
	mu   sync.Mutex
	docs map[string]*document

	diagMu      sync.RWMutex
	diagnostics map[string][]protocol.Diagnostic
}

// NewWorkspace creates a workspace over a new session for the given
// integration. The publishDiagnostics mailbox is registered before the
// session starts so diagnostics arriving mid-handshake are not lost.
func NewWorkspace(config types.ClientConfig, language, rootPath string, integration session.Integration) *Workspace {
	ws := &Workspace{
		session:     session.NewSession(config, language, rootPath, integration),
		language:    language,
		rootPath:    rootPath,
		docs:        make(map[string]*document),
		diagnostics: make(map[string][]protocol.Diagnostic),
	}
	ws.session.OnNotification(types.MethodTextDocumentPublishDiagnostics, ws.storePublishedDiagnostics)
	return ws
}

// Session exposes the underlying session for state inspection and gates.
func (ws *Workspace) Session() *session.Session {
	return ws.session
}

// Start launches the server and completes the handshake.
func (ws *Workspace) Start(ctx context.Context) error {
	return ws.session.Start(ctx)
}

// Stop discards all open document state and shuts the session down.
func (ws *Workspace) Stop(ctx context.Context) error {
	ws.mu.Lock()
	ws.docs = make(map[string]*document)
	ws.mu.Unlock()
	return ws.session.Stop(ctx)
}

func (ws *Workspace) absPath(relPath string) string {
	if filepath.IsAbs(relPath) {
		return filepath.Clean(relPath)
	}
	return filepath.Join(ws.rootPath, relPath)
}

// storePublishedDiagnostics feeds the per-URI diagnostics mailbox from
// textDocument/publishDiagnostics notifications.
func (ws *Workspace) storePublishedDiagnostics(params interface{}) {
	data, err := json.Marshal(params)
	if err != nil {
		return
	}
	var published protocol.PublishDiagnosticsParams
	if err := json.Unmarshal(data, &published); err != nil {
		common.LSPLogger.Warn("Malformed publishDiagnostics from %s: %v", ws.language, err)
		return
	}

	ws.diagMu.Lock()
	ws.diagnostics[string(published.URI)] = published.Diagnostics
	ws.diagMu.Unlock()
}
