package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.lsp.dev/protocol"

	"lsp-client/src/server/syncbridge"
	"lsp-client/src/utils"
)

var definitionCmd = &cobra.Command{
	Use:   "definition FILE LINE CHARACTER",
	Short: "Find the definition of the symbol at a position",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, line, character, err := parsePosition(args)
		if err != nil {
			return err
		}
		return withClient(file, func(client *syncbridge.Client) error {
			locations, err := client.Definition(file, line, character)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printResult(locations)
			}
			printLocations(locations)
			return nil
		})
	},
}

var referencesCmd = &cobra.Command{
	Use:   "references FILE LINE CHARACTER",
	Short: "Find all references to the symbol at a position",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, line, character, err := parsePosition(args)
		if err != nil {
			return err
		}
		return withClient(file, func(client *syncbridge.Client) error {
			locations, err := client.References(file, line, character)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printResult(locations)
			}
			printLocations(locations)
			return nil
		})
	},
}

var hoverCmd = &cobra.Command{
	Use:   "hover FILE LINE CHARACTER",
	Short: "Show hover documentation for the symbol at a position",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, line, character, err := parsePosition(args)
		if err != nil {
			return err
		}
		return withClient(file, func(client *syncbridge.Client) error {
			hover, err := client.Hover(file, line, character)
			if err != nil {
				return err
			}
			if hover == nil {
				fmt.Println("No hover information")
				return nil
			}
			if jsonOutput {
				return printResult(hover)
			}
			fmt.Println(hover.Contents.Value)
			return nil
		})
	},
}

var completionCmd = &cobra.Command{
	Use:   "completion FILE LINE CHARACTER",
	Short: "List completions at a position",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, line, character, err := parsePosition(args)
		if err != nil {
			return err
		}
		return withClient(file, func(client *syncbridge.Client) error {
			list, err := client.Completion(file, line, character)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printResult(list)
			}
			if list == nil || len(list.Items) == 0 {
				fmt.Println("No completions")
				return nil
			}
			for _, item := range list.Items {
				if item.Detail != "" {
					fmt.Printf("%s\t%s\n", item.Label, item.Detail)
				} else {
					fmt.Println(item.Label)
				}
			}
			return nil
		})
	},
}

var symbolsCmd = &cobra.Command{
	Use:   "symbols FILE",
	Short: "List symbols defined in a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(args[0], func(client *syncbridge.Client) error {
			symbols, err := client.DocumentSymbols(args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return printResult(symbols)
			}
			printSymbols(symbols)
			return nil
		})
	},
}

var workspaceSymbolsCmd = &cobra.Command{
	Use:   "workspace-symbols QUERY",
	Short: "Search symbols across the workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient("", func(client *syncbridge.Client) error {
			symbols, err := client.WorkspaceSymbols(args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return printResult(symbols)
			}
			printSymbols(symbols)
			return nil
		})
	},
}

var diagnosticsCmd = &cobra.Command{
	Use:   "diagnostics FILE",
	Short: "Report diagnostics for a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(args[0], func(client *syncbridge.Client) error {
			diagnostics, err := client.Diagnostics(args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return printResult(diagnostics)
			}
			if len(diagnostics) == 0 {
				fmt.Println("No diagnostics")
				return nil
			}
			for _, d := range diagnostics {
				fmt.Printf("%s:%d:%d: %s: %s\n",
					args[0], d.Range.Start.Line+1, d.Range.Start.Character+1,
					severityName(d.Severity), strings.TrimSpace(d.Message))
			}
			return nil
		})
	},
}

func printLocations(locations []protocol.Location) {
	if len(locations) == 0 {
		fmt.Println("No results")
		return
	}
	for _, loc := range locations {
		path := utils.URIToFilePath(string(loc.URI))
		fmt.Printf("%s:%d:%d\n", path, loc.Range.Start.Line+1, loc.Range.Start.Character+1)
	}
}

func printSymbols(symbols []protocol.SymbolInformation) {
	if len(symbols) == 0 {
		fmt.Println("No symbols")
		return
	}
	for _, sym := range symbols {
		path := utils.URIToFilePath(string(sym.Location.URI))
		fmt.Printf("%s\t%v\t%s:%d\n", sym.Name, sym.Kind, path, sym.Location.Range.Start.Line+1)
	}
}

func severityName(severity protocol.DiagnosticSeverity) string {
	switch severity {
	case protocol.DiagnosticSeverityError:
		return "error"
	case protocol.DiagnosticSeverityWarning:
		return "warning"
	case protocol.DiagnosticSeverityInformation:
		return "info"
	case protocol.DiagnosticSeverityHint:
		return "hint"
	default:
		return "unknown"
	}
}
