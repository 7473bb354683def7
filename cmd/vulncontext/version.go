package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/osvquery/vulncontext-mcp/internal/mcp"
	"github.com/osvquery/vulncontext-mcp/internal/storage"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("vulncontext MCP server\n")
		fmt.Printf("Version:       %s\n", version)
		fmt.Printf("Server:        %s %s\n", mcp.ServerName, mcp.ServerVersion)
		fmt.Printf("Build Time:    %s\n", buildTime)
		fmt.Printf("Build Mode:    %s\n", storage.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", storage.DriverName)
	},
}
