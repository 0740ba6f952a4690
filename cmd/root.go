package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var version = "dev"

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "korima",
		Short: "Daily calendar briefing backend",
		Long: `korima connects a Google account through OAuth and serves a short
briefing of the next upcoming events on its calendar.

It exposes a JSON API for the korima frontend and, optionally, the same
briefing as an MCP (Model Context Protocol) tool for AI assistants.`,
		SilenceUsage: true,
	}
	root.SetVersionTemplate("korima version {{.Version}}\n")
	root.AddCommand(newServeCmd(), newVersionCmd(), newGenerateDocsCmd())
	return root
}

// SetVersion is called from main with the release version.
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		return 1
	}
	return 0
}
