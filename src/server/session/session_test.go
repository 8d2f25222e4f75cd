package session

import (
	"bufio"
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lsp-client/src/internal/errors"
	"lsp-client/src/internal/types"
	"lsp-client/src/server/protocol"
)

// TestHelperLSPServer is re-executed as a subprocess and speaks the wire
// protocol on its own stdio, scripted by scenario. It is a no-op under the
// normal test run.
func TestHelperLSPServer(t *testing.T) {
	if os.Getenv("LSP_TEST_HELPER") != "1" {
		return
	}
	runScriptedServer(os.Getenv("LSP_TEST_SCENARIO"))
	os.Exit(0)
}

func runScriptedServer(scenario string) {
	reader := bufio.NewReader(os.Stdin)
	write := func(msg protocol.Message) {
		protocol.WriteMessage(os.Stdout, msg)
	}

	genericResult := map[string]interface{}{
		"capabilities": map[string]interface{}{
			"textDocumentSync": map[string]interface{}{"openClose": true, "change": 1},
			"hoverProvider":    true,
		},
	}
	jdtlsResult := map[string]interface{}{
		"capabilities": map[string]interface{}{
			"textDocumentSync": map[string]interface{}{"openClose": true, "change": 2},
		},
	}

	for {
		msg, err := protocol.ReadMessage(reader)
		if err != nil {
			return
		}

		switch {
		case msg.IsRequest():
			switch msg.Method {
			case types.MethodInitialize:
				switch scenario {
				case "no-capabilities":
					write(protocol.NewResponse(msg.ID, map[string]interface{}{}, nil))
				case "exit-before-response":
					return
				case "jdtls":
					write(protocol.NewResponse(msg.ID, jdtlsResult, nil))
				default:
					write(protocol.NewResponse(msg.ID, genericResult, nil))
				}
			case types.MethodShutdown:
				write(protocol.NewResponse(msg.ID, nil, nil))
			case types.MethodWorkspaceExecuteCommand:
				write(protocol.NewResponse(msg.ID, true, nil))
				write(protocol.NewNotification(types.MethodLanguageStatus, map[string]interface{}{
					"type":    "ServiceReady",
					"message": "ServiceReady",
				}))
			}
		case msg.IsNotification():
			switch msg.Method {
			case types.MethodInitialized:
				if scenario == "jdtls" {
					write(protocol.NewRequest(int64(9001), types.MethodClientRegisterCapability, map[string]interface{}{
						"registrations": []map[string]interface{}{
							{"id": "r1", "method": types.MethodTextDocumentCompletion, "registerOptions": map[string]interface{}{}},
							{"id": "r2", "method": types.MethodWorkspaceExecuteCommand, "registerOptions": map[string]interface{}{
								"commands": []string{"java.intellicode.enable"},
							}},
						},
					}))
				}
			case types.MethodExit:
				os.Exit(0)
			}
		}
	}
}

func helperConfig(scenario string) types.ClientConfig {
	return types.ClientConfig{
		Command: os.Args[0],
		Args:    []string{"-test.run=TestHelperLSPServer"},
		Env: map[string]string{
			"LSP_TEST_HELPER":   "1",
			"LSP_TEST_SCENARIO": scenario,
		},
	}
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestSessionReachesReady(t *testing.T) {
	s := NewSession(helperConfig("generic"), "go", t.TempDir(), GenericIntegration("go"))
	require.Equal(t, StateCreated, s.State())

	ctx := testContext(t)
	require.NoError(t, s.Start(ctx))
	assert.Equal(t, StateReady, s.State())

	assert.True(t, s.Supports("hoverProvider"))
	assert.True(t, s.Supports("textDocumentSync"))
	assert.False(t, s.Supports("definitionProvider"))

	require.NoError(t, s.Stop(ctx))
	assert.Equal(t, StateStopped, s.State())

	// Stop is idempotent.
	require.NoError(t, s.Stop(ctx))
}

func TestSessionRejectsSecondStart(t *testing.T) {
	s := NewSession(helperConfig("generic"), "go", t.TempDir(), GenericIntegration("go"))

	ctx := testContext(t)
	require.NoError(t, s.Start(ctx))
	defer s.Stop(ctx)

	err := s.Start(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already started")
}

func TestFailedAssertionNeverReachesReady(t *testing.T) {
	s := NewSession(helperConfig("no-capabilities"), "go", t.TempDir(), GenericIntegration("go"))

	err := s.Start(testContext(t))
	require.Error(t, err)
	assert.True(t, errors.IsHandshakeError(err), "err = %v", err)
	assert.Equal(t, StateCrashed, s.State())
}

func TestCrashDuringHandshakeFailsStart(t *testing.T) {
	s := NewSession(helperConfig("exit-before-response"), "go", t.TempDir(), GenericIntegration("go"))

	err := s.Start(testContext(t))
	require.Error(t, err)
	assert.Equal(t, StateCrashed, s.State())

	// Stop after a crash only reaps the process.
	require.NoError(t, s.Stop(testContext(t)))
}

func TestLaunchFailureStaysCreated(t *testing.T) {
	config := types.ClientConfig{Command: "/nonexistent/language-server-binary"}
	s := NewSession(config, "go", t.TempDir(), GenericIntegration("go"))

	err := s.Start(testContext(t))
	require.Error(t, err)
	assert.True(t, errors.IsStartupError(err), "err = %v", err)
	assert.Equal(t, StateCreated, s.State())
}

func TestJDTLSActivationSequence(t *testing.T) {
	s := NewSession(helperConfig("jdtls"), "java", t.TempDir(), JDTLSIntegration("/models/members.bin"))

	ctx := testContext(t)
	require.NoError(t, s.Start(ctx))
	assert.Equal(t, StateReady, s.State())

	// Every scripted precondition must have been observed on the way up.
	assert.True(t, s.Gate(GateCompletionsRegistered).IsSet())
	assert.True(t, s.Gate(GateIntellicodeCommand).IsSet())
	assert.True(t, s.Gate(GateServiceReady).IsSet())

	require.NoError(t, s.Stop(ctx))
}

func TestWaitGateFailsOnCrash(t *testing.T) {
	s := NewSession(helperConfig("generic"), "go", t.TempDir(), GenericIntegration("go"))

	ctx := testContext(t)
	require.NoError(t, s.Start(ctx))

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- s.WaitGate(ctx, "never.set")
	}()

	// Kill the server out from under the waiter.
	s.proc.Cmd.Process.Kill()

	select {
	case err := <-waitErr:
		require.Error(t, err)
		assert.True(t, errors.IsConnectionClosed(err), "err = %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("gate wait never failed after crash")
	}

	assert.Equal(t, StateCrashed, s.State())
	require.NoError(t, s.Stop(ctx))
}
