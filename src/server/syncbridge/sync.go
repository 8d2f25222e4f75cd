// Package syncbridge exposes the asynchronous workspace engine to callers
// that want plain blocking calls without managing contexts. The engine's
// goroutines (reader loop, process monitor, handlers) keep running in the
// background; each public method is one blocking bridge bounded by the
// configured timeout.
package syncbridge

import (
	"time"

	"go.lsp.dev/protocol"

	"lsp-client/src/internal/common"
	"lsp-client/src/internal/constants"
	"lsp-client/src/server/workspace"
)

// Client is the synchronous façade over one workspace.
type Client struct {
	ws             *workspace.Workspace
	requestTimeout time.Duration
	startTimeout   time.Duration
}

// NewClient wraps a workspace. Zero timeouts fall back to the per-language
// defaults.
func NewClient(ws *workspace.Workspace, requestTimeout, startTimeout time.Duration) *Client {
	language := ws.Session().Language()
	if requestTimeout <= 0 {
		requestTimeout = constants.GetRequestTimeout(language)
	}
	if startTimeout <= 0 {
		// The handshake may include server-side indexing before the ready
		// gates are set; give it headroom beyond the initialize timeout.
		startTimeout = constants.GetInitializeTimeout(language) * 4
	}
	return &Client{ws: ws, requestTimeout: requestTimeout, startTimeout: startTimeout}
}

// Workspace returns the wrapped asynchronous façade.
func (c *Client) Workspace() *workspace.Workspace {
	return c.ws
}

// RequestTimeout reports the per-operation deadline in effect.
func (c *Client) RequestTimeout() time.Duration {
	return c.requestTimeout
}

// Start launches the server and blocks until the session is Ready.
func (c *Client) Start() error {
	ctx, cancel := common.CreateContext(c.startTimeout)
	defer cancel()
	return c.ws.Start(ctx)
}

// Stop blocks until the session is shut down.
func (c *Client) Stop() error {
	ctx, cancel := common.CreateContext(c.requestTimeout)
	defer cancel()
	return c.ws.Stop(ctx)
}

// OpenFile blocks until the document is registered as open.
func (c *Client) OpenFile(relPath string) error {
	ctx, cancel := common.CreateContext(c.requestTimeout)
	defer cancel()
	return c.ws.OpenFile(ctx, relPath)
}

// UpdateFile blocks until the edited content is synchronized.
func (c *Client) UpdateFile(relPath, content string) error {
	ctx, cancel := common.CreateContext(c.requestTimeout)
	defer cancel()
	return c.ws.UpdateFile(ctx, relPath, content)
}

// CloseFile blocks until the document is closed.
func (c *Client) CloseFile(relPath string) error {
	ctx, cancel := common.CreateContext(c.requestTimeout)
	defer cancel()
	return c.ws.CloseFile(ctx, relPath)
}

// Definition blocks until the definition locations are resolved.
func (c *Client) Definition(relPath string, line, character uint32) ([]protocol.Location, error) {
	ctx, cancel := common.CreateContext(c.requestTimeout)
	defer cancel()
	return c.ws.Definition(ctx, relPath, line, character)
}

// References blocks until all reference locations are resolved.
func (c *Client) References(relPath string, line, character uint32) ([]protocol.Location, error) {
	ctx, cancel := common.CreateContext(c.requestTimeout)
	defer cancel()
	return c.ws.References(ctx, relPath, line, character)
}

// Hover blocks until hover information is available.
func (c *Client) Hover(relPath string, line, character uint32) (*protocol.Hover, error) {
	ctx, cancel := common.CreateContext(c.requestTimeout)
	defer cancel()
	return c.ws.Hover(ctx, relPath, line, character)
}

// Completion blocks until completion items are available.
func (c *Client) Completion(relPath string, line, character uint32) (*protocol.CompletionList, error) {
	ctx, cancel := common.CreateContext(c.requestTimeout)
	defer cancel()
	return c.ws.Completion(ctx, relPath, line, character)
}

// DocumentSymbols blocks until the document outline is available.
func (c *Client) DocumentSymbols(relPath string) ([]protocol.SymbolInformation, error) {
	ctx, cancel := common.CreateContext(c.requestTimeout)
	defer cancel()
	return c.ws.DocumentSymbols(ctx, relPath)
}

// WorkspaceSymbols blocks until the workspace search completes.
func (c *Client) WorkspaceSymbols(query string) ([]protocol.SymbolInformation, error) {
	ctx, cancel := common.CreateContext(c.requestTimeout)
	defer cancel()
	return c.ws.WorkspaceSymbols(ctx, query)
}

// Diagnostics blocks until the latest diagnostics are available.
func (c *Client) Diagnostics(relPath string) ([]protocol.Diagnostic, error) {
	ctx, cancel := common.CreateContext(c.requestTimeout)
	defer cancel()
	return c.ws.Diagnostics(ctx, relPath)
}
