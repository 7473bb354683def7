package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/osvquery/vulncontext-mcp/internal/config"
)

var (
	configPath string
	cfg        *config.Config
	log        *logrus.Entry
)

var rootCmd = &cobra.Command{
	Use:   "vulncontext",
	Short: "Vulnerability retrieval and risk-scoring MCP server",
	Long: `vulncontext serves hybrid semantic + keyword search over a corpus
of OSV vulnerability advisories, with multi-factor risk scoring, over
the Model Context Protocol (stdio).`,
	PersistentPreRunE: loadConfig,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

// Execute runs the root command with signal handling
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return rootCmd.ExecuteContext(ctx)
}

// loadConfig is called before any command runs to load configuration
// and set up logging. stdout carries the MCP protocol, so logs always
// go to stderr.
func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	log = logger.WithField("component", "vulncontext")
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(versionCmd)
}
