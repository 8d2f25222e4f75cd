package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"lsp-client/src/internal/common"
	"lsp-client/src/internal/types"
	"lsp-client/src/server/dispatch"
)

// Gate names used by the Eclipse JDTLS activation sequence.
const (
	// GateCompletionsRegistered is set when the server dynamically registers
	// textDocument/completion.
	GateCompletionsRegistered = "jdtls.completions.registered"
	// GateIntellicodeCommand is set when java.intellicode.enable becomes
	// executable on the server.
	GateIntellicodeCommand = "jdtls.intellicode.command"
	// GateServiceReady is set when the server reports its internal indexing
	// service is ready.
	GateServiceReady = "jdtls.service.ready"
)

// JDTLSIntegration drives the Eclipse JDTLS multi-step activation: the
// server is not safe to query until it has registered its capabilities,
// accepted the intellicode enable command, and reported ServiceReady.
// intelliSenseMembersPath may be empty when intellicode models are not
// configured; the enable command is then sent without a model path.
func JDTLSIntegration(intelliSenseMembersPath string) Integration {
	return Integration{
		Language: "java",
		Assertions: []CapabilityAssertion{
			// JDTLS must offer incremental sync and must defer completion
			// and command registration to the dynamic phase.
			RequireValue("capabilities.textDocumentSync.change", 2),
			RequireAbsent("capabilities.completionProvider"),
			RequireAbsent("capabilities.executeCommandProvider"),
		},
		RequestHandlers: func(s *Session) map[string]dispatch.RequestHandler {
			return map[string]dispatch.RequestHandler{
				types.MethodClientRegisterCapability: func(params interface{}) (interface{}, error) {
					data, err := json.Marshal(params)
					if err != nil {
						return nil, err
					}
					for _, registration := range gjson.GetBytes(data, "registrations").Array() {
						switch registration.Get("method").String() {
						case types.MethodTextDocumentCompletion:
							s.Gate(GateCompletionsRegistered).Set()
						case types.MethodWorkspaceExecuteCommand:
							for _, cmd := range registration.Get("registerOptions.commands").Array() {
								if cmd.String() == "java.intellicode.enable" {
									s.Gate(GateIntellicodeCommand).Set()
								}
							}
						}
					}
					return nil, nil
				},
				types.MethodWorkspaceExecuteClientCommand: func(params interface{}) (interface{}, error) {
					data, _ := json.Marshal(params)
					if cmd := gjson.GetBytes(data, "command").String(); cmd != "_java.reloadBundles.command" {
						common.LSPLogger.Warn("Unexpected client command from jdtls: %s", cmd)
					}
					return []interface{}{}, nil
				},
			}
		},
		NotificationHandlers: func(s *Session) map[string]dispatch.NotificationHandler {
			return map[string]dispatch.NotificationHandler{
				types.MethodLanguageStatus: func(params interface{}) {
					data, err := json.Marshal(params)
					if err != nil {
						return
					}
					if gjson.GetBytes(data, "type").String() == "ServiceReady" &&
						gjson.GetBytes(data, "message").String() == "ServiceReady" {
						s.Gate(GateServiceReady).Set()
					}
				},
				types.MethodWindowLogMessage: func(params interface{}) {
					common.LSPLogger.Debug("jdtls window/logMessage: %v", params)
				},
				types.MethodProgress:                       func(params interface{}) {},
				types.MethodLanguageActionableNotification: func(params interface{}) {},
			}
		},
		PostInitialize: func(ctx context.Context, s *Session) error {
			// Push the settings subtree from the resolved handshake payload;
			// jdtls reads most options from didChangeConfiguration, not from
			// initialize.
			if settings := gjson.GetBytes(s.InitializeParams(), "initializationOptions.settings"); settings.Exists() {
				err := s.Dispatcher().Notify(ctx, types.MethodWorkspaceDidChangeConfiguration, map[string]interface{}{
					"settings": json.RawMessage(settings.Raw),
				})
				if err != nil {
					return err
				}
			}

			if err := s.WaitGate(ctx, GateIntellicodeCommand); err != nil {
				return err
			}

			arguments := []interface{}{true}
			if intelliSenseMembersPath != "" {
				arguments = append(arguments, intelliSenseMembersPath)
			}
			result, err := s.Dispatcher().Call(ctx, types.MethodWorkspaceExecuteCommand, map[string]interface{}{
				"command":   "java.intellicode.enable",
				"arguments": arguments,
			})
			if err != nil {
				return fmt.Errorf("java.intellicode.enable failed: %w", err)
			}
			if len(result) == 0 || string(result) == "null" || string(result) == "false" {
				common.LSPLogger.Warn("java.intellicode.enable returned %s", string(result))
			}
			return nil
		},
		RequiredGates: []string{GateServiceReady},
	}
}
