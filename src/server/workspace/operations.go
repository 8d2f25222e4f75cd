package workspace

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"lsp-client/src/internal/common"
	"lsp-client/src/internal/constants"
	"lsp-client/src/internal/types"
)

// call ensures the document is in sync, then issues one feature request
// with the per-language timeout.
func (ws *Workspace) call(ctx context.Context, relPath, method string, params interface{}) (json.RawMessage, error) {
	if relPath != "" {
		if err := ws.ensureOpen(ctx, relPath); err != nil {
			return nil, err
		}
	}

	callCtx, cancel := common.WithTimeout(ctx, constants.GetRequestTimeout(ws.language))
	defer cancel()
	return ws.session.Dispatcher().Call(callCtx, method, params)
}

func (ws *Workspace) positionParams(relPath string, line, character uint32) protocol.TextDocumentPositionParams {
	return protocol.TextDocumentPositionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri.File(ws.absPath(relPath))},
		Position:     protocol.Position{Line: line, Character: character},
	}
}

// Definition resolves the definition locations of the symbol at a
// zero-based position.
func (ws *Workspace) Definition(ctx context.Context, relPath string, line, character uint32) ([]protocol.Location, error) {
	raw, err := ws.call(ctx, relPath, types.MethodTextDocumentDefinition, protocol.DefinitionParams{
		TextDocumentPositionParams: ws.positionParams(relPath, line, character),
	})
	if err != nil {
		return nil, err
	}
	return decodeLocations(raw)
}

// References finds all references to the symbol at a zero-based position,
// including the declaration.
func (ws *Workspace) References(ctx context.Context, relPath string, line, character uint32) ([]protocol.Location, error) {
	raw, err := ws.call(ctx, relPath, types.MethodTextDocumentReferences, protocol.ReferenceParams{
		TextDocumentPositionParams: ws.positionParams(relPath, line, character),
		Context:                    protocol.ReferenceContext{IncludeDeclaration: true},
	})
	if err != nil {
		return nil, err
	}
	return decodeLocations(raw)
}

// Hover returns hover information at a zero-based position, or nil when the
// server has nothing to show.
func (ws *Workspace) Hover(ctx context.Context, relPath string, line, character uint32) (*protocol.Hover, error) {
	raw, err := ws.call(ctx, relPath, types.MethodTextDocumentHover, protocol.HoverParams{
		TextDocumentPositionParams: ws.positionParams(relPath, line, character),
	})
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var hover protocol.Hover
	if err := json.Unmarshal(raw, &hover); err != nil {
		return nil, fmt.Errorf("malformed hover result: %w", err)
	}
	return &hover, nil
}

// Completion requests completion items at a zero-based position. Servers
// returning a bare item array are normalized into a CompletionList.
func (ws *Workspace) Completion(ctx context.Context, relPath string, line, character uint32) (*protocol.CompletionList, error) {
	raw, err := ws.call(ctx, relPath, types.MethodTextDocumentCompletion, protocol.CompletionParams{
		TextDocumentPositionParams: ws.positionParams(relPath, line, character),
	})
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return &protocol.CompletionList{}, nil
	}

	var list protocol.CompletionList
	if err := json.Unmarshal(raw, &list); err == nil && gjson.GetBytes(raw, "items").Exists() {
		return &list, nil
	}

	var items []protocol.CompletionItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("malformed completion result: %w", err)
	}
	return &protocol.CompletionList{Items: items}, nil
}

// DocumentSymbols returns the flat symbol outline of one document.
// Hierarchical DocumentSymbol responses are flattened depth-first.
func (ws *Workspace) DocumentSymbols(ctx context.Context, relPath string) ([]protocol.SymbolInformation, error) {
	raw, err := ws.call(ctx, relPath, types.MethodTextDocumentDocumentSymbol, protocol.DocumentSymbolParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri.File(ws.absPath(relPath))},
	})
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	// Servers answer with either SymbolInformation[] or DocumentSymbol[];
	// only the former carries a location field.
	if gjson.GetBytes(raw, "0.location").Exists() {
		var symbols []protocol.SymbolInformation
		if err := json.Unmarshal(raw, &symbols); err != nil {
			return nil, fmt.Errorf("malformed documentSymbol result: %w", err)
		}
		return symbols, nil
	}

	var tree []protocol.DocumentSymbol
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("malformed documentSymbol result: %w", err)
	}
	docURI := uri.File(ws.absPath(relPath))
	var flat []protocol.SymbolInformation
	flattenSymbols(docURI, tree, "", &flat)
	return flat, nil
}

// WorkspaceSymbols searches symbols across the workspace by query string.
func (ws *Workspace) WorkspaceSymbols(ctx context.Context, query string) ([]protocol.SymbolInformation, error) {
	raw, err := ws.call(ctx, "", types.MethodWorkspaceSymbol, protocol.WorkspaceSymbolParams{Query: query})
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var symbols []protocol.SymbolInformation
	if err := json.Unmarshal(raw, &symbols); err != nil {
		return nil, fmt.Errorf("malformed workspace/symbol result: %w", err)
	}
	return symbols, nil
}

// Diagnostics returns the latest diagnostics for a document. When the
// server advertises pull diagnostics they are requested on demand;
// otherwise the mailbox fed by publishDiagnostics is consulted.
func (ws *Workspace) Diagnostics(ctx context.Context, relPath string) ([]protocol.Diagnostic, error) {
	docURI := uri.File(ws.absPath(relPath))

	if ws.session.Supports("diagnosticProvider") {
		raw, err := ws.call(ctx, relPath, types.MethodTextDocumentDiagnostic, map[string]interface{}{
			"textDocument": map[string]interface{}{"uri": string(docURI)},
		})
		if err != nil {
			common.LSPLogger.Warn("Pull diagnostics failed for %s, using published set: %v", relPath, err)
		} else if items := gjson.GetBytes(raw, "items"); items.Exists() {
			var diagnostics []protocol.Diagnostic
			if err := json.Unmarshal([]byte(items.Raw), &diagnostics); err != nil {
				return nil, fmt.Errorf("malformed diagnostic report: %w", err)
			}
			return diagnostics, nil
		}
	}

	if err := ws.ensureOpen(ctx, relPath); err != nil {
		return nil, err
	}

	ws.diagMu.RLock()
	defer ws.diagMu.RUnlock()
	return ws.diagnostics[string(docURI)], nil
}

// decodeLocations normalizes the three shapes feature calls answer with:
// Location, Location[] and LocationLink[].
func decodeLocations(raw json.RawMessage) ([]protocol.Location, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var locations []protocol.Location
	if err := json.Unmarshal(raw, &locations); err == nil {
		if len(locations) == 0 || locations[0].URI != "" {
			return locations, nil
		}
	}

	var single protocol.Location
	if err := json.Unmarshal(raw, &single); err == nil && single.URI != "" {
		return []protocol.Location{single}, nil
	}

	var links []protocol.LocationLink
	if err := json.Unmarshal(raw, &links); err == nil {
		locations = make([]protocol.Location, 0, len(links))
		for _, link := range links {
			locations = append(locations, protocol.Location{
				URI:   link.TargetURI,
				Range: link.TargetRange,
			})
		}
		return locations, nil
	}

	return nil, fmt.Errorf("malformed location result: %s", string(raw))
}

// flattenSymbols converts a DocumentSymbol tree to SymbolInformation
// records in document order.
func flattenSymbols(docURI uri.URI, tree []protocol.DocumentSymbol, container string, out *[]protocol.SymbolInformation) {
	for _, node := range tree {
		*out = append(*out, protocol.SymbolInformation{
			Name:          node.Name,
			Kind:          node.Kind,
			ContainerName: container,
			Location: protocol.Location{
				URI:   docURI,
				Range: node.Range,
			},
		})
		if len(node.Children) > 0 {
			flattenSymbols(docURI, node.Children, node.Name, out)
		}
	}
}
