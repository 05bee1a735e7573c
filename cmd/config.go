package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/samsaffron/sql2pyspark/internal/config"
	"github.com/samsaffron/sql2pyspark/internal/llm"
	"github.com/samsaffron/sql2pyspark/internal/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or edit configuration",
	Long: `Show the effective configuration, or create one with the setup wizard.

Examples:
  sql2pyspark config            # show effective config
  sql2pyspark config init       # run the setup wizard
  sql2pyspark config path       # print the config file path`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Run the setup wizard and save config.yaml",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.GetConfigPath()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	styles := ui.DefaultStyles()

	path, _ := config.GetConfigPath()
	if config.Exists() {
		fmt.Fprintf(out, "# %s\n", path)
	} else {
		fmt.Fprintf(out, "# %s (not created, showing defaults)\n", path)
	}

	shown := *cfg
	shown.Remote.APIKey = maskSecret(shown.Remote.APIKey)
	shown.Serve.Token = maskSecret(shown.Serve.Token)
	shown.Telegram.Token = maskSecret(shown.Telegram.Token)
	data, err := yaml.Marshal(&shown)
	if err != nil {
		return err
	}
	fmt.Fprint(out, string(data))

	if cfg.Backend == llm.BackendLocal {
		fmt.Fprintf(out, "\nlocal backend: %s\n", localSupport())
		return nil
	}
	envName := llm.CredentialEnv(cfg.ProviderName())
	key, err := cfg.Credential()
	switch {
	case err != nil:
		fmt.Fprintln(out, "\n"+styles.FormatResult(false, "API key: "+err.Error()))
	case key == "":
		fmt.Fprintln(out, "\n"+styles.FormatResult(false, "API key: missing. "+ui.MissingKeyHint(envName)))
	default:
		fmt.Fprintln(out, "\n"+styles.FormatResult(true, "API key: found ("+maskSecret(key)+")"))
	}
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	updated, err := ui.RunSetupWizard(cfg)
	if err != nil {
		return fmt.Errorf("setup cancelled: %w", err)
	}
	if err := config.Save(updated); err != nil {
		return err
	}
	path, _ := config.GetConfigPath()
	fmt.Fprintln(cmd.OutOrStdout(), ui.DefaultStyles().FormatResult(true, "Saved "+path))
	return nil
}

// maskSecret keeps references such as $VAR or op:// readable and hides
// literal values.
func maskSecret(s string) string {
	if s == "" || strings.HasPrefix(s, "$") || strings.HasPrefix(s, "op://") {
		return s
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "…" + s[len(s)-4:]
}
