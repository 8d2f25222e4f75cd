package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"testing"
	"time"
)

func TestClassificationHelpers(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"lsp error", NewLSPError(MethodNotFound, "Method not found", nil), IsLSPError},
		{"timeout", NewTimeoutError("textDocument/hover", "go", 15*time.Second), IsTimeoutError},
		{"connection closed", NewConnectionClosedError("go", io.EOF), IsConnectionClosed},
		{"handshake", NewHandshakeError("java", "capabilities must be present", ""), IsHandshakeError},
		{"process", NewProcessError("go", "gopls", "start", io.EOF), IsProcessError},
		{"framing", NewFramingError("missing Content-Length header", nil), IsFramingError},
	}

	checks := []func(error) bool{IsLSPError, IsTimeoutError, IsConnectionClosed, IsHandshakeError, IsProcessError, IsFramingError}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.check(tt.err) {
				t.Errorf("helper rejected its own type: %v", tt.err)
			}
			matched := 0
			for _, check := range checks {
				if check(tt.err) {
					matched++
				}
			}
			if matched != 1 {
				t.Errorf("%v matched %d classifications, want exactly 1", tt.err, matched)
			}
		})
	}
}

func TestClassificationThroughWrapping(t *testing.T) {
	err := fmt.Errorf("initialize failed: %w", NewTimeoutError("initialize", "java", time.Minute))
	if !IsTimeoutError(err) {
		t.Error("wrapped timeout not classified")
	}
	if IsConnectionClosed(err) {
		t.Error("wrapped timeout misclassified")
	}
}

func TestStartupErrorRequiresStartType(t *testing.T) {
	start := NewProcessError("go", "gopls", "start", io.EOF)
	stop := NewProcessError("go", "gopls", "stop", io.EOF)

	if !IsStartupError(start) {
		t.Error("start-type process error must classify as startup")
	}
	if IsStartupError(stop) {
		t.Error("stop-type process error must not classify as startup")
	}
	if IsStartupError(io.EOF) {
		t.Error("unrelated error must not classify as startup")
	}
}

func TestUnwrapPreservesCause(t *testing.T) {
	cause := io.ErrUnexpectedEOF
	err := NewConnectionClosedError("python", cause)
	if !stderrors.Is(err, cause) {
		t.Error("cause lost through ConnectionClosedError")
	}

	framing := NewFramingError("stream ended inside frame body", cause)
	if !stderrors.Is(framing, cause) {
		t.Error("cause lost through FramingError")
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{NewTimeoutError("textDocument/definition", "go", 15 * time.Second), "timeout after 15s for textDocument/definition operation on go"},
		{NewConnectionClosedError("java", nil), "connection to java server closed"},
		{NewHandshakeError("java", "capabilities.textDocumentSync.change must equal 2", "1"), "handshake with java server failed: capabilities.textDocumentSync.change must equal 2: 1"},
	}

	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}
