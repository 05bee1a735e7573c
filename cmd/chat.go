package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/samsaffron/sql2pyspark/internal/exitcode"
	"github.com/samsaffron/sql2pyspark/internal/session"
	"github.com/samsaffron/sql2pyspark/internal/tui/chat"
	"github.com/samsaffron/sql2pyspark/internal/ui"
)

var (
	chatBackend  string
	chatProvider string
	chatConnect  string
	chatToken    string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversion chat",
	Long: `Start an interactive chat. Each SQL query you enter is sent to the
model together with the conversation so far and the reply is shown as it
streams in.

Examples:
  sql2pyspark chat
  sql2pyspark chat --provider anthropic:claude-sonnet-4-5
  sql2pyspark chat --backend local
  sql2pyspark chat --connect localhost:8080      # use a running serve

Slash commands:
  /help        - Show help
  /new         - Start a new conversation
  /model       - Show or switch the provider/model
  /quit        - Exit chat`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatBackend, "backend", "", "Backend: remote or local")
	chatCmd.Flags().StringVar(&chatProvider, "provider", "", "Override provider, optionally with model (e.g., openai:gpt-4o)")
	chatCmd.Flags().StringVar(&chatConnect, "connect", "", "Chat through a running `sql2pyspark serve` at this address")
	chatCmd.Flags().StringVar(&chatToken, "token", "", "Bearer token for --connect")
	_ = chatCmd.RegisterFlagCompletionFunc("provider", ProviderFlagCompletion)
	_ = chatCmd.RegisterFlagCompletionFunc("backend", BackendFlagCompletion)
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := notifyContext()
	defer stop()

	opts := chat.Options{
		Styles:   ui.NewStyles(os.Stdout),
		Markdown: ui.MarkdownEnabled(),
	}

	if chatConnect != "" {
		backend, err := chat.NewRemoteBackend(ctx, chatConnect, chatToken)
		if err != nil {
			return err
		}
		final, err := chat.Run(ctx, backend, opts)
		_ = final.Close()
		return err
	}

	a, err := newApp(bootstrapOptions{backend: chatBackend, provider: chatProvider, setup: true})
	if err != nil {
		return err
	}
	defer a.Close()

	backendName := a.cfg.Backend
	adapter := a.adapter
	backend := chat.NewLocalBackend(func() *session.Session {
		return a.newSession(adapter, backendName)
	})
	opts.SwitchBackend = func(target string) (chat.Backend, error) {
		next, name, err := a.switchAdapter(target)
		if err != nil {
			return nil, err
		}
		a.logger.Info().Str("adapter", next.Name()).Msg("switched model")
		return chat.NewLocalBackend(func() *session.Session {
			return a.newSession(next, name)
		}), nil
	}

	final, err := chat.Run(ctx, backend, opts)
	if final != nil {
		_ = final.Close()
	}
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return exitcode.Cancel()
	}
	return nil
}
