package main

import (
	"github.com/spf13/cobra"

	"github.com/osvquery/vulncontext-mcp/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server on stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		log.WithField("version", mcp.ServerVersion).Info("starting MCP server")

		server, err := mcp.NewServer(cfg, log)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		errChan := make(chan error, 1)
		go func() {
			log.Info("MCP server ready, listening on stdio")
			errChan <- server.Serve(ctx)
		}()

		select {
		case <-ctx.Done():
			log.Info("shutdown signal received")
			return nil
		case err := <-errChan:
			return err
		}
	},
}
