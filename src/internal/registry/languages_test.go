package registry

import (
	"testing"
)

func TestGetLanguageByName(t *testing.T) {
	info, ok := GetLanguageByName("go")
	if !ok {
		t.Fatal("go must be registered")
	}
	if info.DefaultCommand != "gopls" {
		t.Errorf("command = %q", info.DefaultCommand)
	}

	// Lookup is case-insensitive.
	if _, ok := GetLanguageByName("Java"); !ok {
		t.Error("case-insensitive lookup failed")
	}

	if _, ok := GetLanguageByName("cobol"); ok {
		t.Error("unknown language must not resolve")
	}
}

func TestDetectLanguageByPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"main.go", "go"},
		{"/src/app/server.py", "python"},
		{"types.pyi", "python"},
		{"component.tsx", "typescript"},
		{"Index.JS", "javascript"},
		{"App.java", "java"},
		{"README.md", ""},
		{"Makefile", ""},
	}

	for _, tt := range tests {
		if got := DetectLanguageByPath(tt.path); got != tt.want {
			t.Errorf("DetectLanguageByPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestLanguageIDForPath(t *testing.T) {
	if got := LanguageIDForPath("x.ts"); got != "typescript" {
		t.Errorf("languageId = %q", got)
	}
	if got := LanguageIDForPath("notes.txt"); got != "plaintext" {
		t.Errorf("fallback languageId = %q", got)
	}
}

func TestSupportedLanguages(t *testing.T) {
	names := SupportedLanguages()
	if len(names) != 5 {
		t.Fatalf("registered languages = %d, want 5", len(names))
	}
	seen := make(map[string]bool)
	for _, name := range names {
		seen[name] = true
	}
	for _, want := range []string{"go", "python", "javascript", "typescript", "java"} {
		if !seen[want] {
			t.Errorf("missing language %q", want)
		}
	}
}
