package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/samsaffron/sql2pyspark/internal/config"
	"github.com/samsaffron/sql2pyspark/internal/logging"
	"github.com/samsaffron/sql2pyspark/internal/mcpserve"
	"github.com/samsaffron/sql2pyspark/internal/session"
)

var (
	mcpAddr     string
	mcpToken    string
	mcpBackend  string
	mcpProvider string
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Expose conversion as an MCP tool",
	Long: `Run a Model Context Protocol server with a single tool, convert_sql.
Each call is converted in a fresh conversation.

By default the server speaks MCP over stdin/stdout. With --addr it serves
streamable HTTP at /mcp instead.

Examples:
  sql2pyspark mcp
  sql2pyspark mcp --addr 127.0.0.1:8090 --token s3cret`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpAddr, "addr", "", "Serve streamable HTTP on this address instead of stdio")
	mcpCmd.Flags().StringVar(&mcpToken, "token", "", "Require this bearer token (HTTP only, default serve.token)")
	mcpCmd.Flags().StringVar(&mcpBackend, "backend", "", "Backend: remote or local")
	mcpCmd.Flags().StringVar(&mcpProvider, "provider", "", "Override provider, optionally with model (e.g., openai:gpt-4o)")
	_ = mcpCmd.RegisterFlagCompletionFunc("provider", ProviderFlagCompletion)
	_ = mcpCmd.RegisterFlagCompletionFunc("backend", BackendFlagCompletion)
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, stop := notifyContext()
	defer stop()

	// Console logs go to stderr; stdout carries the protocol in stdio mode.
	a, err := newApp(bootstrapOptions{backend: mcpBackend, provider: mcpProvider, console: true})
	if err != nil {
		return err
	}
	defer a.Close()

	opts := mcpserve.Options{
		NewSession: func() *session.Session {
			return a.newSession(a.adapter, a.cfg.Backend)
		},
		Version: Version,
		Logger:  logging.Component(a.logger, "mcp"),
	}
	if mcpAddr == "" {
		return mcpserve.RunStdio(ctx, opts)
	}

	opts.Token = mcpToken
	if opts.Token == "" {
		opts.Token, err = config.ResolveValue(a.cfg.Serve.Token)
		if err != nil {
			return fmt.Errorf("resolve serve.token: %w", err)
		}
	}
	return mcpserve.ListenAndServe(ctx, mcpAddr, opts)
}
