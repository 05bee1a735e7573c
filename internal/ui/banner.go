package ui

import "strings"

const (
	AppTitle = "SQL to PySpark Converter Chatbot"

	AppDescription = "This chatbot sends your SQL to a language model and shows the PySpark it suggests. " +
		"The remote backend needs an API key, which you can get at https://platform.openai.com/account/api-keys. " +
		"Replies are not checked: review the code before running it."

	InputPlaceholder = "Enter your SQL query:"

	MissingKeyNotice = "Please add your OpenAI API key to continue."
)

var providerTitles = map[string]string{
	"openai-compat": "OpenAI-compatible",
	"anthropic":     "Anthropic",
	"gemini":        "Gemini",
}

// MissingKeyNoticeFor names provider in the missing-key notice.
func MissingKeyNoticeFor(provider string) string {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" || provider == "openai" {
		return MissingKeyNotice
	}
	title, ok := providerTitles[provider]
	if !ok {
		title = provider
	}
	return "Please add your " + title + " API key to continue."
}

// MissingKeyHint explains where the key for provider is read from.
func MissingKeyHint(envVar string) string {
	return "Set " + envVar + ", add it to a .env file or .streamlit/secrets.toml, or set remote.api_key in the config file."
}

// RenderMissingKey is the persistent notice shown instead of the chat when
// no API key is configured.
func (s *Styles) RenderMissingKey(provider, envVar string) string {
	body := s.Bold.Render(KeyIcon+"  "+MissingKeyNoticeFor(provider)) + "\n" + s.Muted.Render(MissingKeyHint(envVar))
	return s.Notice.Render(body)
}

// RenderHeader is the title and description block.
func (s *Styles) RenderHeader(width int) string {
	desc := s.Subtitle
	if width > 4 {
		desc = desc.Width(width - 2)
	}
	return s.Title.Render(TitleIcon+" "+AppTitle) + "\n" + desc.Render(AppDescription)
}
