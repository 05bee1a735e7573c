package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/samsaffron/sql2pyspark/internal/llm"
)

// ProviderFlagCompletion handles --provider flag completion
func ProviderFlagCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var completions []string
	for _, p := range llm.Providers() {
		if strings.HasPrefix(p, toComplete) {
			completions = append(completions, p)
		}
	}

	// If completing provider name (no colon), don't add space so user can type ":"
	if !strings.Contains(toComplete, ":") {
		return completions, cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
	}
	provider, _ := llm.ParseProviderModel(toComplete)
	if model := llm.DefaultModel(provider); model != "" {
		completions = append(completions, provider+":"+model)
	}
	return completions, cobra.ShellCompDirectiveNoFileComp
}

func BackendFlagCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return []string{llm.BackendRemote, llm.BackendLocal}, cobra.ShellCompDirectiveNoFileComp
}
