package registry

import (
	"path/filepath"
	"strings"
	"time"
)

// LanguageInfo describes one supported language integration.
type LanguageInfo struct {
	Name           string   // Language name (go, python, javascript, typescript, java)
	LanguageID     string   // languageId used in textDocument/didOpen
	Extensions     []string // File extensions for this language
	DefaultCommand string   // Default LSP server command
	DefaultArgs    []string // Default arguments for the LSP server

	InitializationOptions map[string]interface{}
	RequestTimeout        time.Duration
	InitializeTimeout     time.Duration
}

var languageRegistry = map[string]LanguageInfo{
	"go": {
		Name:           "go",
		LanguageID:     "go",
		Extensions:     []string{".go"},
		DefaultCommand: "gopls",
		DefaultArgs:    []string{"serve"},
		InitializationOptions: map[string]interface{}{
			"usePlaceholders":    false,
			"completeUnimported": true,
		},
		RequestTimeout:    15 * time.Second,
		InitializeTimeout: 15 * time.Second,
	},
	"python": {
		Name:           "python",
		LanguageID:     "python",
		Extensions:     []string{".py", ".pyi"},
		DefaultCommand: "jedi-language-server",
		DefaultArgs:    []string{},
		InitializationOptions: map[string]interface{}{
			"markupKindPreferred": "markdown",
		},
		RequestTimeout:    30 * time.Second,
		InitializeTimeout: 30 * time.Second,
	},
	"javascript": {
		Name:              "javascript",
		LanguageID:        "javascript",
		Extensions:        []string{".js", ".jsx", ".mjs"},
		DefaultCommand:    "typescript-language-server",
		DefaultArgs:       []string{"--stdio"},
		RequestTimeout:    15 * time.Second,
		InitializeTimeout: 15 * time.Second,
	},
	"typescript": {
		Name:              "typescript",
		LanguageID:        "typescript",
		Extensions:        []string{".ts", ".tsx"},
		DefaultCommand:    "typescript-language-server",
		DefaultArgs:       []string{"--stdio"},
		RequestTimeout:    15 * time.Second,
		InitializeTimeout: 15 * time.Second,
	},
	"java": {
		Name:              "java",
		LanguageID:        "java",
		Extensions:        []string{".java"},
		DefaultCommand:    "jdtls",
		DefaultArgs:       []string{},
		RequestTimeout:    60 * time.Second,
		InitializeTimeout: 60 * time.Second,
	},
}

// GetLanguageByName returns registry information for a language name.
func GetLanguageByName(name string) (LanguageInfo, bool) {
	info, ok := languageRegistry[strings.ToLower(name)]
	return info, ok
}

// DetectLanguageByPath maps a file path to a language name by extension.
// Returns "" when the extension is not registered.
func DetectLanguageByPath(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	for name, info := range languageRegistry {
		for _, e := range info.Extensions {
			if e == ext {
				return name
			}
		}
	}
	return ""
}

// LanguageIDForPath returns the languageId used in didOpen for a file path.
func LanguageIDForPath(path string) string {
	if name := DetectLanguageByPath(path); name != "" {
		return languageRegistry[name].LanguageID
	}
	return "plaintext"
}

// SupportedLanguages lists all registered language names.
func SupportedLanguages() []string {
	names := make([]string, 0, len(languageRegistry))
	for name := range languageRegistry {
		names = append(names, name)
	}
	return names
}
