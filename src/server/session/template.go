package session

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/tidwall/sjson"

	"lsp-client/src/utils"
)

// defaultInitializeTemplate is the static handshake payload sent to servers
// that do not ship their own template. Dynamic fields (processId, root
// path/URI, workspace folders, option trees) are substituted at send time.
const defaultInitializeTemplate = `{
  "processId": null,
  "clientInfo": {"name": "lsp-client", "version": "1.0.0"},
  "rootPath": null,
  "rootUri": null,
  "workspaceFolders": [],
  "initializationOptions": {},
  "capabilities": {
    "workspace": {
      "applyEdit": true,
      "workspaceEdit": {"documentChanges": true},
      "didChangeConfiguration": {"dynamicRegistration": true},
      "didChangeWatchedFiles": {"dynamicRegistration": true},
      "symbol": {"dynamicRegistration": true},
      "executeCommand": {"dynamicRegistration": true},
      "configuration": true,
      "workspaceFolders": true
    },
    "textDocument": {
      "publishDiagnostics": {
        "relatedInformation": true,
        "versionSupport": false,
        "tagSupport": {"valueSet": [1, 2]}
      },
      "synchronization": {
        "dynamicRegistration": true,
        "willSave": true,
        "willSaveWaitUntil": true,
        "didSave": true
      },
      "completion": {
        "dynamicRegistration": true,
        "contextSupport": true,
        "completionItem": {
          "snippetSupport": true,
          "commitCharactersSupport": true,
          "documentationFormat": ["markdown", "plaintext"],
          "preselectSupport": true
        },
        "completionItemKind": {"valueSet": [1,2,3,4,5,6,7,8,9,10,11,12,13,14,15,16,17,18,19,20,21,22,23,24,25]}
      },
      "hover": {
        "dynamicRegistration": true,
        "contentFormat": ["markdown", "plaintext"]
      },
      "definition": {"dynamicRegistration": true, "linkSupport": true},
      "references": {"dynamicRegistration": true},
      "documentSymbol": {
        "dynamicRegistration": true,
        "hierarchicalDocumentSymbolSupport": true,
        "symbolKind": {"valueSet": [1,2,3,4,5,6,7,8,9,10,11,12,13,14,15,16,17,18,19,20,21,22,23,24,25,26]}
      }
    }
  },
  "trace": "off"
}`

// BuildInitializeParams resolves a handshake template into the concrete
// initialize payload: process id, repository root path/URI and workspace
// folder metadata are substituted in place, and the configured option trees
// are grafted onto the template at their nested paths.
func BuildInitializeParams(template []byte, rootPath string, initOptions, settings interface{}) (json.RawMessage, error) {
	if len(template) == 0 {
		template = []byte(defaultInitializeTemplate)
	}

	abs, err := filepath.Abs(rootPath)
	if err == nil {
		rootPath = abs
	}
	rootURI := utils.FilePathToURI(rootPath)

	params := template
	for _, sub := range []struct {
		path  string
		value interface{}
	}{
		{"processId", os.Getpid()},
		{"rootPath", rootPath},
		{"rootUri", rootURI},
		{"workspaceFolders", []map[string]interface{}{{
			"uri":  rootURI,
			"name": filepath.Base(rootPath),
		}}},
	} {
		if params, err = sjson.SetBytes(params, sub.path, sub.value); err != nil {
			return nil, err
		}
	}

	if initOptions != nil {
		if params, err = sjson.SetBytes(params, "initializationOptions", initOptions); err != nil {
			return nil, err
		}
	}
	if settings != nil {
		if params, err = sjson.SetBytes(params, "initializationOptions.settings", settings); err != nil {
			return nil, err
		}
	}

	return params, nil
}
