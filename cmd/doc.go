// Package cmd implements the command-line interface for korima.
//
// This package provides the following commands:
//   - serve: Start the HTTP API (and the optional MCP endpoint)
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for the MCP tools
package cmd
