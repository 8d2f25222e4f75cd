package types

// LSP protocol lifecycle methods
const (
	// MethodInitialize is sent as the first request from client to server
	MethodInitialize = "initialize"
	// MethodInitialized is sent from client to server after the initialize response
	MethodInitialized = "initialized"
	// MethodShutdown is sent from client to server to shutdown the server
	MethodShutdown = "shutdown"
	// MethodExit is sent from client to server to exit the server process
	MethodExit = "exit"
	// MethodCancelRequest asks the server to abandon a still-running request
	MethodCancelRequest = "$/cancelRequest"
)

// LSP document synchronization methods
const (
	// MethodTextDocumentDidOpen is sent when a document is opened
	MethodTextDocumentDidOpen = "textDocument/didOpen"
	// MethodTextDocumentDidChange is sent when an open document is edited
	MethodTextDocumentDidChange = "textDocument/didChange"
	// MethodTextDocumentDidClose is sent when a document is closed
	MethodTextDocumentDidClose = "textDocument/didClose"
)

// LSP language feature methods
const (
	// MethodTextDocumentDefinition provides go-to-definition functionality
	MethodTextDocumentDefinition = "textDocument/definition"
	// MethodTextDocumentReferences finds all references to a symbol
	MethodTextDocumentReferences = "textDocument/references"
	// MethodTextDocumentHover provides hover information for symbols
	MethodTextDocumentHover = "textDocument/hover"
	// MethodTextDocumentDocumentSymbol returns document symbols outline
	MethodTextDocumentDocumentSymbol = "textDocument/documentSymbol"
	// MethodTextDocumentCompletion provides auto-completion suggestions
	MethodTextDocumentCompletion = "textDocument/completion"
	// MethodTextDocumentDiagnostic pulls diagnostics for a single document
	MethodTextDocumentDiagnostic = "textDocument/diagnostic"
	// MethodWorkspaceSymbol provides workspace-wide symbol search
	MethodWorkspaceSymbol = "workspace/symbol"
	// MethodWorkspaceExecuteCommand executes a server-provided command
	MethodWorkspaceExecuteCommand = "workspace/executeCommand"
)

// Methods initiated by the server
const (
	// MethodClientRegisterCapability registers a capability dynamically on the client
	MethodClientRegisterCapability = "client/registerCapability"
	// MethodWorkspaceConfiguration asks the client for configuration sections
	MethodWorkspaceConfiguration = "workspace/configuration"
	// MethodWorkspaceExecuteClientCommand asks the client to run a command
	MethodWorkspaceExecuteClientCommand = "workspace/executeClientCommand"
	// MethodTextDocumentPublishDiagnostics pushes diagnostics for a document
	MethodTextDocumentPublishDiagnostics = "textDocument/publishDiagnostics"
	// MethodWindowLogMessage carries a server log line
	MethodWindowLogMessage = "window/logMessage"
	// MethodProgress reports partial progress for long-running work
	MethodProgress = "$/progress"
	// MethodLanguageStatus is the JDTLS status notification
	MethodLanguageStatus = "language/status"
	// MethodLanguageActionableNotification is the JDTLS actionable notification
	MethodLanguageActionableNotification = "language/actionableNotification"
)

// Client-to-server configuration notifications
const (
	// MethodWorkspaceDidChangeConfiguration pushes settings to the server
	MethodWorkspaceDidChangeConfiguration = "workspace/didChangeConfiguration"
)
