// Package cli implements the lsp-client command tree.
package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"lsp-client/src/config"
	"lsp-client/src/internal/common"
	"lsp-client/src/internal/registry"
	"lsp-client/src/server/session"
	"lsp-client/src/server/syncbridge"
	"lsp-client/src/server/workspace"
)

// Version is the client version reported by the version command and the
// handshake clientInfo.
const Version = "1.0.0"

var (
	configPath    string
	workspacePath string
	language      string
	jsonOutput    bool
	verbose       bool
)

var rootCmd = &cobra.Command{
	Use:   "lsp-client",
	Short: "Query language servers for definitions, references, hover, completions, symbols and diagnostics",
	Long: `lsp-client launches a language server for your workspace, completes the
protocol handshake, and answers file/position queries against it.

Positions are zero-based: line 0 is the first line, character 0 the first
column.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			common.LSPLogger.SetLevel(common.LogDebug)
			common.CLILogger.SetLevel(common.LogDebug)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config (defaults to built-in registry defaults)")
	rootCmd.PersistentFlags().StringVarP(&workspacePath, "workspace", "w", ".", "workspace root directory")
	rootCmd.PersistentFlags().StringVarP(&language, "language", "l", "", "language server to use (default: detect from file extension)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(definitionCmd)
	rootCmd.AddCommand(referencesCmd)
	rootCmd.AddCommand(hoverCmd)
	rootCmd.AddCommand(completionCmd)
	rootCmd.AddCommand(symbolsCmd)
	rootCmd.AddCommand(workspaceSymbolsCmd)
	rootCmd.AddCommand(diagnosticsCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the command tree.
func Execute() error {
	return rootCmd.Execute()
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.GetDefaultConfig(), nil
	}
	return config.LoadConfig(configPath)
}

func resolveLanguage(filePath string) (string, error) {
	if language != "" {
		return language, nil
	}
	if filePath == "" {
		return "", fmt.Errorf("--language is required for workspace-wide queries")
	}
	if detected := registry.DetectLanguageByPath(filePath); detected != "" {
		return detected, nil
	}
	return "", fmt.Errorf("cannot detect language for %s; pass --language", filePath)
}

// buildClient assembles an unstarted synchronous client for one language.
// A configured request timeout overrides the per-language default.
func buildClient(cfg *config.Config, lang string) (*syncbridge.Client, error) {
	serverConfig, err := cfg.GetServer(lang)
	if err != nil {
		return nil, err
	}

	var integration session.Integration
	if lang == "java" {
		integration = session.JDTLSIntegration(serverConfig.IntelliSenseMembersPath)
	} else {
		integration = session.GenericIntegration(lang)
	}

	ws := workspace.NewWorkspace(serverConfig.ClientConfig(), lang, workspacePath, integration)
	return syncbridge.NewClient(ws, cfg.RequestTimeout(), 0), nil
}

// newClient builds a started synchronous client for one language. The
// caller must Stop it.
func newClient(lang string) (*syncbridge.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	client, err := buildClient(cfg, lang)
	if err != nil {
		return nil, err
	}
	if err := client.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s server: %w", lang, err)
	}
	return client, nil
}

// withClient runs fn against a started client and always shuts it down.
func withClient(filePath string, fn func(client *syncbridge.Client) error) error {
	lang, err := resolveLanguage(filePath)
	if err != nil {
		return err
	}
	client, err := newClient(lang)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Stop(); err != nil {
			common.CLILogger.Warn("Shutdown error: %v", err)
		}
	}()
	return fn(client)
}

func parsePosition(args []string) (string, uint32, uint32, error) {
	file := args[0]
	line, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		return "", 0, 0, fmt.Errorf("invalid line %q: %w", args[1], err)
	}
	character, err := strconv.ParseUint(args[2], 10, 32)
	if err != nil {
		return "", 0, 0, fmt.Errorf("invalid character %q: %w", args[2], err)
	}
	return file, uint32(line), uint32(character), nil
}

func printResult(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the client version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("lsp-client %s\n", Version)
	},
}
