package workspace

import (
	"context"
	"fmt"
	"os"
	"sync"

	"go.lsp.dev/uri"

	"lsp-client/src/internal/registry"
	"lsp-client/src/internal/types"
)

// DocumentState is a snapshot of a file's open/version/content as known to
// the server. The version sent to the server always equals the local version
// before any request that references the uri.
type DocumentState struct {
	URI        uri.URI
	Path       string
	LanguageID string
	Version    int32
	Content    string
}

// document is the live tracked state. Each document carries its own lock
// serializing the didOpen/didChange/didClose traffic for that file, so a
// slow notification write never stalls synchronization of other documents.
// ws.mu covers only the map itself.
type document struct {
	mu sync.Mutex
	DocumentState

	// dirty marks a buffer modified through UpdateFile; the disk copy no
	// longer overrides it.
	dirty bool

	// opened flips once didOpen reached the server; closed marks a state
	// removed from the map, forcing racers to start over with a fresh one.
	opened bool
	closed bool
}

// OpenFile registers a file as open with the server, reading its content
// from disk. Opening an already-open file is a no-op.
func (ws *Workspace) OpenFile(ctx context.Context, relPath string) error {
	return ws.ensureOpen(ctx, relPath)
}

// UpdateFile replaces the full content of a document and notifies the
// server with an incremented version. The in-memory buffer is authoritative
// here; the disk copy is not consulted. A file not yet open is opened
// directly with the given content. Every update bumps the version even if
// the text is equal.
func (ws *Workspace) UpdateFile(ctx context.Context, relPath, content string) error {
	abs := ws.absPath(relPath)
	key := string(uri.File(abs))

	for {
		doc := ws.getOrCreate(key, abs)
		doc.mu.Lock()
		if doc.closed {
			doc.mu.Unlock()
			continue
		}

		var err error
		if !doc.opened {
			if err = ws.sendOpen(ctx, doc, content); err != nil {
				ws.discard(key, doc)
			}
		} else {
			err = ws.sendChange(ctx, doc, content)
		}
		if err == nil {
			doc.dirty = true
		}
		doc.mu.Unlock()
		return err
	}
}

// CloseFile removes the document state and notifies the server. Operating
// on the file afterwards re-opens it as new.
func (ws *Workspace) CloseFile(ctx context.Context, relPath string) error {
	key := string(uri.File(ws.absPath(relPath)))

	ws.mu.Lock()
	doc, open := ws.docs[key]
	ws.mu.Unlock()
	if !open {
		return nil
	}

	doc.mu.Lock()
	defer doc.mu.Unlock()
	if doc.closed {
		return nil
	}
	var err error
	if doc.opened {
		err = ws.session.Dispatcher().Notify(ctx, types.MethodTextDocumentDidClose, map[string]interface{}{
			"textDocument": map[string]interface{}{"uri": string(doc.URI)},
		})
	}
	// The state is discarded even when the notify failed; the session is
	// unusable in that case anyway.
	ws.discard(key, doc)
	return err
}

// OpenDocuments returns a snapshot of the open document states.
func (ws *Workspace) OpenDocuments() []DocumentState {
	ws.mu.Lock()
	docs := make([]*document, 0, len(ws.docs))
	for _, doc := range ws.docs {
		docs = append(docs, doc)
	}
	ws.mu.Unlock()

	snapshot := make([]DocumentState, 0, len(docs))
	for _, doc := range docs {
		doc.mu.Lock()
		if doc.opened && !doc.closed {
			snapshot = append(snapshot, doc.DocumentState)
		}
		doc.mu.Unlock()
	}
	return snapshot
}

// ensureOpen guarantees the server's view of the document matches the
// local one before a request referencing it is issued: didOpen with version
// 1 on first use, or didChange with a bumped version when the on-disk
// content differs from the cached copy. A buffer already modified through
// UpdateFile is left as-is; the unsaved edit outranks the disk copy.
func (ws *Workspace) ensureOpen(ctx context.Context, relPath string) error {
	abs := ws.absPath(relPath)
	key := string(uri.File(abs))

	for {
		doc := ws.getOrCreate(key, abs)
		doc.mu.Lock()
		if doc.closed {
			doc.mu.Unlock()
			continue
		}

		content, readErr := os.ReadFile(abs)
		if readErr != nil {
			if !doc.opened {
				ws.discard(key, doc)
				doc.mu.Unlock()
				return fmt.Errorf("cannot open %s: %w", relPath, readErr)
			}
			// The file vanished from disk but the server still has our copy.
			doc.mu.Unlock()
			return nil
		}

		var err error
		if !doc.opened {
			if err = ws.sendOpen(ctx, doc, string(content)); err != nil {
				ws.discard(key, doc)
			}
		} else if !doc.dirty && string(content) != doc.Content {
			err = ws.sendChange(ctx, doc, string(content))
		}
		doc.mu.Unlock()
		return err
	}
}

// getOrCreate returns the tracked document for a uri key, inserting an
// unopened placeholder when absent. Holds ws.mu for the map access only.
func (ws *Workspace) getOrCreate(key, abs string) *document {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if doc, ok := ws.docs[key]; ok {
		return doc
	}
	doc := &document{DocumentState: DocumentState{
		URI:        uri.File(abs),
		Path:       abs,
		LanguageID: registry.LanguageIDForPath(abs),
	}}
	ws.docs[key] = doc
	return doc
}

// discard marks a document closed and drops it from the map unless a newer
// state already replaced it. Callers hold doc.mu.
func (ws *Workspace) discard(key string, doc *document) {
	doc.closed = true
	ws.mu.Lock()
	if ws.docs[key] == doc {
		delete(ws.docs, key)
	}
	ws.mu.Unlock()
}

// sendOpen sends didOpen with version 1 and marks the document open.
// Callers hold doc.mu.
func (ws *Workspace) sendOpen(ctx context.Context, doc *document, content string) error {
	doc.Version = 1
	doc.Content = content
	err := ws.session.Dispatcher().Notify(ctx, types.MethodTextDocumentDidOpen, map[string]interface{}{
		"textDocument": map[string]interface{}{
			"uri":        string(doc.URI),
			"languageId": doc.LanguageID,
			"version":    doc.Version,
			"text":       doc.Content,
		},
	})
	if err != nil {
		return err
	}
	doc.opened = true
	return nil
}

// sendChange bumps the version and sends a full-content didChange.
// Callers hold doc.mu.
func (ws *Workspace) sendChange(ctx context.Context, doc *document, content string) error {
	doc.Version++
	doc.Content = content
	return ws.session.Dispatcher().Notify(ctx, types.MethodTextDocumentDidChange, map[string]interface{}{
		"textDocument": map[string]interface{}{
			"uri":     string(doc.URI),
			"version": doc.Version,
		},
		"contentChanges": []map[string]interface{}{
			{"text": doc.Content},
		},
	})
}
