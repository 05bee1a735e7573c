package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/samsaffron/sql2pyspark/internal/exitcode"
)

var debugLog bool

func init() {
	rootCmd.PersistentFlags().BoolVarP(&debugLog, "debug", "d", false, "Write debug logs (and request dumps) to the state directory")
}

var rootCmd = &cobra.Command{
	Use:   "sql2pyspark",
	Short: "Convert SQL queries to PySpark with a language model",
	Long: `sql2pyspark sends SQL queries to a language model and shows the
PySpark DataFrame code it suggests.

Examples:
  sql2pyspark chat                                  # interactive chat
  sql2pyspark chat --provider anthropic             # another provider
  sql2pyspark chat --backend local                  # local GGUF model
  sql2pyspark convert "SELECT id FROM users WHERE age > 30"
  echo "SELECT * FROM t" | sql2pyspark convert
  sql2pyspark serve --addr :8080                    # browser front-end
  sql2pyspark history                               # archived exchanges`,
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}
	code := exitcode.Code(err)
	var exitErr exitcode.ExitError
	switch {
	case errors.As(err, &exitErr):
		if exitErr.Message != "" {
			fmt.Fprintln(os.Stderr, exitErr.Message)
		}
	case errors.Is(err, context.Canceled):
		code = exitcode.Cancelled
	default:
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(code)
}

// notifyContext is cancelled on SIGINT or SIGTERM.
func notifyContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
