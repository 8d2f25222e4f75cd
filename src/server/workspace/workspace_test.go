package workspace

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	lspproto "go.lsp.dev/protocol"

	"lsp-client/src/internal/types"
	"lsp-client/src/server/protocol"
	"lsp-client/src/server/session"
)

// TestHelperFeatureServer is re-executed as a subprocess. It answers every
// feature request with a canned result and echoes the document sync
// notifications it received through the hover result, so tests can assert
// on what reached the server and in which order.
func TestHelperFeatureServer(t *testing.T) {
	if os.Getenv("LSP_TEST_HELPER") != "1" {
		return
	}
	runFeatureServer()
	os.Exit(0)
}

func runFeatureServer() {
	reader := bufio.NewReader(os.Stdin)
	write := func(msg protocol.Message) {
		protocol.WriteMessage(os.Stdout, msg)
	}
	mkRange := func(line, char, endLine, endChar int) map[string]interface{} {
		return map[string]interface{}{
			"start": map[string]interface{}{"line": line, "character": char},
			"end":   map[string]interface{}{"line": endLine, "character": endChar},
		}
	}

	var syncLog []string

	for {
		msg, err := protocol.ReadMessage(reader)
		if err != nil {
			return
		}
		params := gjsonParams(msg)

		switch {
		case msg.IsRequest():
			switch msg.Method {
			case types.MethodInitialize:
				write(protocol.NewResponse(msg.ID, map[string]interface{}{
					"capabilities": map[string]interface{}{
						"textDocumentSync":        map[string]interface{}{"openClose": true, "change": 1},
						"hoverProvider":           true,
						"definitionProvider":      true,
						"referencesProvider":      true,
						"documentSymbolProvider":  true,
						"workspaceSymbolProvider": true,
						"completionProvider":      map[string]interface{}{},
					},
				}, nil))
			case types.MethodTextDocumentHover:
				write(protocol.NewResponse(msg.ID, map[string]interface{}{
					"contents": map[string]interface{}{
						"kind":  "plaintext",
						"value": strings.Join(syncLog, "|"),
					},
				}, nil))
			case types.MethodTextDocumentDefinition:
				// A bare Location object, not an array.
				write(protocol.NewResponse(msg.ID, map[string]interface{}{
					"uri":   params.Get("textDocument.uri").String(),
					"range": mkRange(10, 2, 10, 8),
				}, nil))
			case types.MethodTextDocumentReferences:
				docURI := params.Get("textDocument.uri").String()
				write(protocol.NewResponse(msg.ID, []map[string]interface{}{
					{"uri": docURI, "range": mkRange(1, 0, 1, 4)},
					{"uri": docURI, "range": mkRange(7, 0, 7, 4)},
				}, nil))
			case types.MethodTextDocumentDocumentSymbol:
				// Hierarchical DocumentSymbol form.
				write(protocol.NewResponse(msg.ID, []map[string]interface{}{
					{
						"name":           "Greeter",
						"kind":           5,
						"range":          mkRange(0, 0, 9, 1),
						"selectionRange": mkRange(0, 6, 0, 13),
						"children": []map[string]interface{}{
							{
								"name":           "greet",
								"kind":           6,
								"range":          mkRange(2, 1, 4, 2),
								"selectionRange": mkRange(2, 5, 2, 10),
							},
						},
					},
				}, nil))
			case types.MethodWorkspaceSymbol:
				write(protocol.NewResponse(msg.ID, []map[string]interface{}{
					{
						"name": "Greeter",
						"kind": 5,
						"location": map[string]interface{}{
							"uri":   "file:///greeter.go",
							"range": mkRange(0, 0, 0, 7),
						},
					},
				}, nil))
			case types.MethodTextDocumentCompletion:
				// Bare item array, no CompletionList envelope.
				write(protocol.NewResponse(msg.ID, []map[string]interface{}{
					{"label": "Println"},
					{"label": "Printf"},
				}, nil))
			case types.MethodShutdown:
				write(protocol.NewResponse(msg.ID, nil, nil))
			}
		case msg.IsNotification():
			switch msg.Method {
			case types.MethodTextDocumentDidOpen:
				version := params.Get("textDocument.version").Int()
				syncLog = append(syncLog, "didOpen:"+strconv.FormatInt(version, 10))
				write(protocol.NewNotification(types.MethodTextDocumentPublishDiagnostics, map[string]interface{}{
					"uri": params.Get("textDocument.uri").String(),
					"diagnostics": []map[string]interface{}{
						{
							"range":    mkRange(0, 0, 0, 1),
							"severity": 2,
							"message":  "unused variable",
						},
					},
				}))
			case types.MethodTextDocumentDidChange:
				version := params.Get("textDocument.version").Int()
				syncLog = append(syncLog, "didChange:"+strconv.FormatInt(version, 10))
			case types.MethodTextDocumentDidClose:
				syncLog = append(syncLog, "didClose")
			case types.MethodExit:
				os.Exit(0)
			}
		}
	}
}

func gjsonParams(msg *protocol.Message) gjson.Result {
	return gjson.ParseBytes(protocol.MarshalResult(msg.Params))
}

func startTestWorkspace(t *testing.T) (*Workspace, context.Context) {
	t.Helper()

	config := types.ClientConfig{
		Command: os.Args[0],
		Args:    []string{"-test.run=TestHelperFeatureServer"},
		Env: map[string]string{
			"LSP_TEST_HELPER": "1",
		},
	}

	ws := NewWorkspace(config, "go", t.TempDir(), session.GenericIntegration("go"))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	require.NoError(t, ws.Start(ctx))
	t.Cleanup(func() { ws.Stop(ctx) })

	return ws, ctx
}

func writeTestFile(t *testing.T, ws *Workspace, name, content string) string {
	t.Helper()
	path := filepath.Join(ws.rootPath, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return name
}

func TestDocumentSyncOrdering(t *testing.T) {
	ws, ctx := startTestWorkspace(t)
	rel := writeTestFile(t, ws, "a.go", "package a\n")

	require.NoError(t, ws.OpenFile(ctx, rel))
	require.NoError(t, ws.UpdateFile(ctx, rel, "package a\n\nvar x = 1\n"))
	require.NoError(t, ws.UpdateFile(ctx, rel, "package a\n\nvar x = 2\n"))
	require.NoError(t, ws.UpdateFile(ctx, rel, "package a\n\nvar x = 3\n"))

	hover, err := ws.Hover(ctx, rel, 0, 1)
	require.NoError(t, err)
	require.NotNil(t, hover)
	assert.Equal(t, "didOpen:1|didChange:2|didChange:3|didChange:4", hover.Contents.Value)
}

func TestImplicitOpenBeforeFeatureCall(t *testing.T) {
	ws, ctx := startTestWorkspace(t)
	rel := writeTestFile(t, ws, "b.go", "package b\n")

	// No explicit OpenFile; the feature call must sync the document first.
	hover, err := ws.Hover(ctx, rel, 0, 1)
	require.NoError(t, err)
	require.NotNil(t, hover)
	assert.Equal(t, "didOpen:1", hover.Contents.Value)

	docs := ws.OpenDocuments()
	require.Len(t, docs, 1)
	assert.Equal(t, int32(1), docs[0].Version)
}

func TestCloseAndReopenResetsVersion(t *testing.T) {
	ws, ctx := startTestWorkspace(t)
	rel := writeTestFile(t, ws, "c.go", "package c\n")

	require.NoError(t, ws.OpenFile(ctx, rel))
	require.NoError(t, ws.UpdateFile(ctx, rel, "package c\n\nvar y = 1\n"))
	require.NoError(t, ws.CloseFile(ctx, rel))
	require.NoError(t, ws.CloseFile(ctx, rel)) // closing twice is a no-op

	hover, err := ws.Hover(ctx, rel, 0, 1)
	require.NoError(t, err)
	require.NotNil(t, hover)
	assert.Equal(t, "didOpen:1|didChange:2|didClose|didOpen:1", hover.Contents.Value)
}

func TestConcurrentOpenSendsSingleDidOpen(t *testing.T) {
	ws, ctx := startTestWorkspace(t)
	rel := writeTestFile(t, ws, "i.go", "package i\n")

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for n := range errs {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			errs[n] = ws.OpenFile(ctx, rel)
		}(n)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	hover, err := ws.Hover(ctx, rel, 0, 1)
	require.NoError(t, err)
	require.NotNil(t, hover)
	assert.Equal(t, "didOpen:1", hover.Contents.Value)
}

func TestConcurrentSyncAcrossDocuments(t *testing.T) {
	ws, ctx := startTestWorkspace(t)

	names := []string{"j1.go", "j2.go", "j3.go", "j4.go"}
	for _, name := range names {
		writeTestFile(t, ws, name, "package j\n")
	}

	var wg sync.WaitGroup
	errs := make([]error, len(names))
	for n, name := range names {
		wg.Add(1)
		go func(n int, name string) {
			defer wg.Done()
			if err := ws.OpenFile(ctx, name); err != nil {
				errs[n] = err
				return
			}
			errs[n] = ws.UpdateFile(ctx, name, "package j\n\nvar n = 1\n")
		}(n, name)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	docs := ws.OpenDocuments()
	require.Len(t, docs, len(names))
	for _, doc := range docs {
		assert.Equal(t, int32(2), doc.Version)
	}
}

func TestDefinitionNormalizesSingleLocation(t *testing.T) {
	ws, ctx := startTestWorkspace(t)
	rel := writeTestFile(t, ws, "d.go", "package d\n")

	locations, err := ws.Definition(ctx, rel, 0, 1)
	require.NoError(t, err)
	require.Len(t, locations, 1)
	assert.Equal(t, uint32(10), locations[0].Range.Start.Line)
	assert.Contains(t, string(locations[0].URI), "d.go")
}

func TestReferencesReturnsAllLocations(t *testing.T) {
	ws, ctx := startTestWorkspace(t)
	rel := writeTestFile(t, ws, "e.go", "package e\n")

	locations, err := ws.References(ctx, rel, 0, 1)
	require.NoError(t, err)
	require.Len(t, locations, 2)
	assert.Equal(t, uint32(1), locations[0].Range.Start.Line)
	assert.Equal(t, uint32(7), locations[1].Range.Start.Line)
}

func TestDocumentSymbolsFlattensHierarchy(t *testing.T) {
	ws, ctx := startTestWorkspace(t)
	rel := writeTestFile(t, ws, "f.go", "package f\n")

	symbols, err := ws.DocumentSymbols(ctx, rel)
	require.NoError(t, err)
	require.Len(t, symbols, 2)

	assert.Equal(t, "Greeter", symbols[0].Name)
	assert.Equal(t, "", symbols[0].ContainerName)
	assert.Equal(t, "greet", symbols[1].Name)
	assert.Equal(t, "Greeter", symbols[1].ContainerName)
	assert.Contains(t, string(symbols[1].Location.URI), "f.go")
}

func TestWorkspaceSymbols(t *testing.T) {
	ws, ctx := startTestWorkspace(t)

	symbols, err := ws.WorkspaceSymbols(ctx, "Greeter")
	require.NoError(t, err)
	require.Len(t, symbols, 1)
	assert.Equal(t, "Greeter", symbols[0].Name)
	assert.Equal(t, "file:///greeter.go", string(symbols[0].Location.URI))
}

func TestCompletionNormalizesBareItemArray(t *testing.T) {
	ws, ctx := startTestWorkspace(t)
	rel := writeTestFile(t, ws, "g.go", "package g\n")

	list, err := ws.Completion(ctx, rel, 0, 1)
	require.NoError(t, err)
	require.NotNil(t, list)
	require.Len(t, list.Items, 2)
	assert.Equal(t, "Println", list.Items[0].Label)
	assert.Equal(t, "Printf", list.Items[1].Label)
}

func TestDiagnosticsFromMailbox(t *testing.T) {
	ws, ctx := startTestWorkspace(t)
	rel := writeTestFile(t, ws, "h.go", "package h\n")

	require.NoError(t, ws.OpenFile(ctx, rel))

	// The publish notification races with the open round-trip.
	require.Eventually(t, func() bool {
		diagnostics, err := ws.Diagnostics(ctx, rel)
		return err == nil && len(diagnostics) == 1
	}, 10*time.Second, 50*time.Millisecond)

	diagnostics, err := ws.Diagnostics(ctx, rel)
	require.NoError(t, err)
	require.Len(t, diagnostics, 1)
	assert.Equal(t, "unused variable", diagnostics[0].Message)
	assert.Equal(t, lspproto.DiagnosticSeverityWarning, diagnostics[0].Severity)
}
