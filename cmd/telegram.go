package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/samsaffron/sql2pyspark/internal/logging"
	"github.com/samsaffron/sql2pyspark/internal/serve/telegram"
	"github.com/samsaffron/sql2pyspark/internal/session"
)

var (
	telegramBackend  string
	telegramProvider string
	telegramAllow    []int64
)

var telegramCmd = &cobra.Command{
	Use:   "telegram",
	Short: "Run the converter as a Telegram bot",
	Long: `Long-poll the Telegram Bot API and answer SQL queries in chat. Each
chat keeps its own conversation until /new or until the bot stops.

The bot token comes from telegram.token in the config file or the
TELEGRAM_BOT_TOKEN environment variable.

Examples:
  TELEGRAM_BOT_TOKEN=123:abc sql2pyspark telegram
  sql2pyspark telegram --allow 1234567 --provider anthropic`,
	Args: cobra.NoArgs,
	RunE: runTelegram,
}

func init() {
	telegramCmd.Flags().StringVar(&telegramBackend, "backend", "", "Backend: remote or local")
	telegramCmd.Flags().StringVar(&telegramProvider, "provider", "", "Override provider, optionally with model (e.g., openai:gpt-4o)")
	telegramCmd.Flags().Int64SliceVar(&telegramAllow, "allow", nil, "Telegram user IDs allowed to use the bot (default from config, everyone)")
	_ = telegramCmd.RegisterFlagCompletionFunc("provider", ProviderFlagCompletion)
	_ = telegramCmd.RegisterFlagCompletionFunc("backend", BackendFlagCompletion)
	rootCmd.AddCommand(telegramCmd)
}

func runTelegram(cmd *cobra.Command, args []string) error {
	ctx, stop := notifyContext()
	defer stop()

	a, err := newApp(bootstrapOptions{backend: telegramBackend, provider: telegramProvider, console: true})
	if err != nil {
		return err
	}
	defer a.Close()

	token, err := a.cfg.TelegramToken()
	if err != nil {
		return err
	}
	if token == "" {
		return errors.New("no Telegram bot token: set telegram.token or TELEGRAM_BOT_TOKEN")
	}

	allowed := telegramAllow
	if len(allowed) == 0 {
		allowed = a.cfg.Telegram.AllowedUsers
	}

	bot, err := telegram.New(token, telegram.Options{
		NewSession: func() *session.Session {
			return a.newSession(a.adapter, a.cfg.Backend)
		},
		AllowedUsers: allowed,
		Logger:       logging.Component(a.logger, "telegram"),
	})
	if err != nil {
		return err
	}
	a.logger.Info().
		Str("bot", bot.Username()).
		Str("adapter", a.adapter.Name()).
		Int("allowed_users", len(allowed)).
		Msg("starting telegram bot")
	return bot.Run(ctx)
}
