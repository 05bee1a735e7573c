package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/samsaffron/sql2pyspark/internal/config"
	"github.com/samsaffron/sql2pyspark/internal/llm"
	"github.com/samsaffron/sql2pyspark/internal/logging"
	servechat "github.com/samsaffron/sql2pyspark/internal/serve/chat"
)

var (
	serveAddr     string
	serveToken    string
	serveBackend  string
	serveProvider string
	serveMaxConns int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat in a browser",
	Long: `Start an HTTP server with a single-page chat at / and a WebSocket
endpoint at /chat/ws. Every connection gets its own conversation, which
ends when the connection closes.

Examples:
  sql2pyspark serve
  sql2pyspark serve --addr 127.0.0.1:9000 --token s3cret
  sql2pyspark chat --connect 127.0.0.1:9000 --token s3cret`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, :8080)")
	serveCmd.Flags().StringVar(&serveToken, "token", "", "Require this bearer token")
	serveCmd.Flags().IntVar(&serveMaxConns, "max-conns", 0, "Maximum simultaneous connections (default from config, 64)")
	serveCmd.Flags().StringVar(&serveBackend, "backend", "", "Backend: remote or local")
	serveCmd.Flags().StringVar(&serveProvider, "provider", "", "Override provider, optionally with model (e.g., openai:gpt-4o)")
	_ = serveCmd.RegisterFlagCompletionFunc("provider", ProviderFlagCompletion)
	_ = serveCmd.RegisterFlagCompletionFunc("backend", BackendFlagCompletion)
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := notifyContext()
	defer stop()

	a, err := newApp(bootstrapOptions{backend: serveBackend, provider: serveProvider, console: true})
	if err != nil {
		return err
	}
	defer a.Close()

	addr := serveAddr
	if addr == "" {
		addr = a.cfg.Serve.Addr
	}
	token := serveToken
	if token == "" {
		token, err = config.ResolveValue(a.cfg.Serve.Token)
		if err != nil {
			return fmt.Errorf("resolve serve.token: %w", err)
		}
	}

	maxConns := serveMaxConns
	if maxConns == 0 {
		maxConns = a.cfg.Serve.MaxConns
	}

	srv := servechat.NewServer(servechat.Options{
		Adapter:    a.adapter,
		Seed:       llm.SeedMessages(a.cfg.Backend),
		Token:      token,
		Logger:     logging.Component(a.logger, "serve"),
		OnExchange: a.recordExchange(a.cfg.Backend),
		MaxConns:   maxConns,
	})
	a.logger.Info().Str("adapter", a.adapter.Name()).Bool("auth", token != "").Msg("starting chat server")
	return srv.ListenAndServe(ctx, addr)
}
