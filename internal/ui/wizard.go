package ui

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"

	"github.com/samsaffron/sql2pyspark/internal/config"
	"github.com/samsaffron/sql2pyspark/internal/llm"
)

type providerOption struct {
	name  string
	value string
	env   string
}

func providerOptions() []huh.Option[string] {
	providers := []providerOption{
		{"OpenAI", "openai", "OPENAI_API_KEY"},
		{"Anthropic", "anthropic", "ANTHROPIC_API_KEY"},
		{"Gemini", "gemini", "GEMINI_API_KEY"},
		{"OpenAI-compatible server", "openai-compat", "OPENAI_COMPAT_API_KEY"},
	}
	opts := make([]huh.Option[string], 0, len(providers))
	for _, p := range providers {
		label := p.name
		if os.Getenv(p.env) != "" {
			label += " " + SuccessIcon
		} else {
			label += " (" + p.env + " not set)"
		}
		opts = append(opts, huh.NewOption(label, p.value))
	}
	return opts
}

// RunSetupWizard asks for the settings config.yaml holds and returns the
// updated config. API keys are not asked for; they belong in the
// environment, a .env file or secrets.toml.
func RunSetupWizard(cfg *config.Config) (*config.Config, error) {
	out := *cfg
	backend := out.Backend
	if backend == "" {
		backend = llm.BackendRemote
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Where should SQL be converted?").
				Options(
					huh.NewOption("Remote model (streams the reply)", llm.BackendRemote),
					huh.NewOption("Local GGUF model (needs a llama build)", llm.BackendLocal),
				).
				Value(&backend),
		),
	)
	if err := form.Run(); err != nil {
		return nil, err
	}
	out.Backend = backend

	if backend == llm.BackendRemote {
		provider := out.ProviderName()
		model := out.Remote.Model
		baseURL := out.Remote.BaseURL
		remote := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title("Which provider?").
					Description("Providers marked "+SuccessIcon+" have a key in the environment").
					Options(providerOptions()...).
					Value(&provider),
				huh.NewInput().
					Title("Model").
					Description("Leave empty for the provider default").
					Value(&model),
			),
			huh.NewGroup(
				huh.NewInput().
					Title("Base URL").
					Placeholder("http://localhost:11434/v1").
					Value(&baseURL),
			).WithHideFunc(func() bool { return provider != "openai-compat" }),
		)
		if err := remote.Run(); err != nil {
			return nil, err
		}
		if provider != out.ProviderName() && model == out.Remote.Model {
			model = ""
		}
		out.Remote.Provider = provider
		out.Remote.Model = model
		out.Remote.BaseURL = baseURL
	} else {
		modelPath := out.Local.Model
		maxLength := strconv.Itoa(out.Local.MaxLength)
		local := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Path to GGUF model").
					Value(&modelPath),
				huh.NewInput().
					Title("Maximum reply length (tokens)").
					Value(&maxLength).
					Validate(func(s string) error {
						n, err := strconv.Atoi(s)
						if err != nil || n < 1 {
							return fmt.Errorf("enter a positive number")
						}
						return nil
					}),
			),
		)
		if err := local.Run(); err != nil {
			return nil, err
		}
		out.Local.Model = modelPath
		out.Local.MaxLength, _ = strconv.Atoi(maxLength)
	}

	archive := out.Archive.Enabled
	confirm := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Keep a local archive of conversions?").
				Description("Stored in SQLite; browse with `sql2pyspark history`").
				Value(&archive),
		),
	)
	if err := confirm.Run(); err != nil {
		return nil, err
	}
	out.Archive.Enabled = archive
	return &out, nil
}
