package cmd

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/korima-app/korima/internal/briefing"
	"github.com/korima-app/korima/internal/server"
	"github.com/korima-app/korima/internal/tools/briefing_tools"
)

func newGenerateDocsCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate MCP tool documentation",
		Long: `Write a markdown reference of the MCP tools served at /mcp.

The tools are registered exactly as serve registers them, without Google
credentials, and rendered from their definitions.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			markdown, err := generateDocs()
			if err != nil {
				return err
			}
			if outputFile == "" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), markdown)
				return err
			}
			if err := os.WriteFile(outputFile, []byte(markdown), 0644); err != nil {
				return fmt.Errorf("failed to write output file: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Documentation written to: %s\n", outputFile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

// offlineBriefer lets tools register without credentials; it is never called.
type offlineBriefer struct{}

func (offlineBriefer) Daily(context.Context) (*briefing.Briefing, error) {
	return nil, errors.New("documentation mode")
}

func generateDocs() (string, error) {
	mcpSrv := mcpserver.NewMCPServer("korima", version,
		mcpserver.WithToolCapabilities(true),
	)
	if err := briefing_tools.RegisterBriefingTools(mcpSrv, offlineBriefer{}, nil); err != nil {
		return "", fmt.Errorf("failed to register briefing tools: %w", err)
	}

	tools := make([]mcp.Tool, 0)
	for _, st := range mcpSrv.ListTools() {
		tools = append(tools, st.Tool)
	}
	slices.SortFunc(tools, func(a, b mcp.Tool) int {
		return cmp.Or(cmp.Compare(toolCategory(a.Name), toolCategory(b.Name)), cmp.Compare(a.Name, b.Name))
	})

	return renderToolsMarkdown(tools), nil
}

// toolCategory groups tools by the Google product in their name prefix.
func toolCategory(name string) string {
	prefix, _, _ := strings.Cut(name, "_")
	if prefix == "calendar" {
		return "Google Calendar"
	}
	return "Other"
}

// renderToolsMarkdown expects tools sorted by category, then name.
func renderToolsMarkdown(tools []mcp.Tool) string {
	var b strings.Builder

	b.WriteString("# MCP Tools Reference\n\n")
	b.WriteString("Tools served at `" + server.MCPEndpointPath + "` by `korima serve`. ")
	b.WriteString("Generated from the tool definitions by `korima generate-docs`.\n\n")
	b.WriteString("They read the Google account connected through `/api/auth/google` ")
	b.WriteString("and return an `unauthenticated` error until someone has logged in.\n\n")

	b.WriteString("| Tool | Category | Read-only |\n|---|---|---|\n")
	for _, tool := range tools {
		fmt.Fprintf(&b, "| [`%s`](#%s) | %s | %s |\n", tool.Name, tool.Name, toolCategory(tool.Name), yesNo(isReadOnly(tool)))
	}
	b.WriteString("\n")

	category := ""
	for _, tool := range tools {
		if c := toolCategory(tool.Name); c != category {
			category = c
			fmt.Fprintf(&b, "## %s\n\n", category)
		}
		writeTool(&b, tool)
	}
	return b.String()
}

func writeTool(b *strings.Builder, tool mcp.Tool) {
	fmt.Fprintf(b, "### %s\n\n", tool.Name)
	if tool.Description != "" {
		fmt.Fprintf(b, "%s\n\n", tool.Description)
	}

	props := tool.InputSchema.Properties
	if len(props) == 0 {
		b.WriteString("Arguments: none.\n\n")
		return
	}

	b.WriteString("| Argument | Type | Required | Description |\n|---|---|---|---|\n")
	for _, name := range slices.Sorted(maps.Keys(props)) {
		prop, _ := props[name].(map[string]any)
		typ, _ := prop["type"].(string)
		if typ == "" {
			typ = "any"
		}
		desc, _ := prop["description"].(string)
		fmt.Fprintf(b, "| `%s` | %s | %s | %s |\n", name, typ, yesNo(slices.Contains(tool.InputSchema.Required, name)), desc)
	}
	b.WriteString("\n")
}

func isReadOnly(tool mcp.Tool) bool {
	return tool.Annotations.ReadOnlyHint != nil && *tool.Annotations.ReadOnlyHint
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
