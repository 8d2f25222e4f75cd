package session

import (
	"encoding/json"

	"lsp-client/src/internal/common"
	"lsp-client/src/internal/types"
	"lsp-client/src/server/dispatch"
)

// GenericIntegration covers servers with a plain initialize/initialized
// handshake and no activation sequence (gopls, jedi-language-server,
// typescript-language-server).
func GenericIntegration(language string) Integration {
	return Integration{
		Language: language,
		Assertions: []CapabilityAssertion{
			RequirePresent("capabilities"),
			RequirePresent("capabilities.textDocumentSync"),
		},
		RequestHandlers: func(s *Session) map[string]dispatch.RequestHandler {
			return map[string]dispatch.RequestHandler{
				// Servers commonly poll configuration sections; answer with
				// an empty section per requested item.
				types.MethodWorkspaceConfiguration: func(params interface{}) (interface{}, error) {
					count := 1
					if data, err := json.Marshal(params); err == nil {
						var req struct {
							Items []json.RawMessage `json:"items"`
						}
						if json.Unmarshal(data, &req) == nil && len(req.Items) > 0 {
							count = len(req.Items)
						}
					}
					sections := make([]interface{}, count)
					for i := range sections {
						sections[i] = map[string]interface{}{}
					}
					return sections, nil
				},
			}
		},
		NotificationHandlers: func(s *Session) map[string]dispatch.NotificationHandler {
			return map[string]dispatch.NotificationHandler{
				types.MethodWindowLogMessage: func(params interface{}) {
					common.LSPLogger.Debug("%s window/logMessage: %v", language, params)
				},
				types.MethodProgress: func(params interface{}) {},
			}
		},
	}
}
