package chat

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"

	"github.com/samsaffron/sql2pyspark/internal/llm"
)

// Command represents a slash command
type Command struct {
	Name        string
	Aliases     []string
	Description string
	Usage       string
}

// AllCommands returns all available slash commands
func AllCommands() []Command {
	return []Command{
		{
			Name:        "help",
			Aliases:     []string{"h", "?"},
			Description: "Show help and available commands",
			Usage:       "/help",
		},
		{
			Name:        "new",
			Aliases:     []string{"n", "clear"},
			Description: "Start a new conversation",
			Usage:       "/new",
		},
		{
			Name:        "model",
			Aliases:     []string{"m"},
			Description: "Show or switch the provider/model",
			Usage:       "/model [provider[:model]]",
		},
		{
			Name:        "quit",
			Aliases:     []string{"q", "exit"},
			Description: "Exit chat",
			Usage:       "/quit",
		},
	}
}

// CommandSource implements fuzzy.Source for command searching
type CommandSource []Command

func (c CommandSource) String(i int) string {
	return c[i].Name
}

func (c CommandSource) Len() int {
	return len(c)
}

// FilterCommands returns commands matching the query using fuzzy search
func FilterCommands(query string) []Command {
	commands := AllCommands()
	query = strings.TrimPrefix(query, "/")
	if query == "" {
		return commands
	}

	queryLower := strings.ToLower(query)
	for _, cmd := range commands {
		if cmd.Name == queryLower {
			return []Command{cmd}
		}
		for _, alias := range cmd.Aliases {
			if alias == queryLower {
				return []Command{cmd}
			}
		}
	}

	var result []Command
	for _, match := range fuzzy.FindFrom(queryLower, CommandSource(commands)) {
		result = append(result, commands[match.Index])
	}
	return result
}

// lookupCommand resolves a name, alias or unique prefix.
func lookupCommand(name string) (*Command, []Command) {
	for _, c := range AllCommands() {
		if c.Name == name {
			return &c, nil
		}
		for _, alias := range c.Aliases {
			if alias == name {
				return &c, nil
			}
		}
	}
	var prefixMatches []Command
	for _, c := range AllCommands() {
		if strings.HasPrefix(c.Name, name) {
			prefixMatches = append(prefixMatches, c)
		}
	}
	if len(prefixMatches) == 1 {
		return &prefixMatches[0], nil
	}
	return nil, prefixMatches
}

// ExecuteCommand handles slash command execution
func (m *Model) ExecuteCommand(input string) (tea.Model, tea.Cmd) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return m, nil
	}
	m.input.SetValue("")

	cmdName := strings.ToLower(strings.TrimPrefix(parts[0], "/"))
	args := parts[1:]

	cmd, candidates := lookupCommand(cmdName)
	if cmd == nil {
		if len(candidates) > 1 {
			var names []string
			for _, c := range candidates {
				names = append(names, "/"+c.Name)
			}
			return m.showSystemMessage(fmt.Sprintf("Ambiguous command: /%s\nDid you mean: %s?", cmdName, strings.Join(names, ", ")))
		}
		return m.showSystemMessage(fmt.Sprintf("Unknown command: /%s\nType /help for available commands.", cmdName))
	}

	switch cmd.Name {
	case "help":
		return m.cmdHelp()
	case "new":
		return m.cmdNew()
	case "model":
		return m.cmdModel(args)
	case "quit":
		return m.cmdQuit()
	default:
		return m.showSystemMessage(fmt.Sprintf("Command /%s is not yet implemented.", cmd.Name))
	}
}

func (m *Model) showSystemMessage(content string) (tea.Model, tea.Cmd) {
	m.info = content
	m.refresh()
	return m, nil
}

func (m *Model) cmdHelp() (tea.Model, tea.Cmd) {
	var b strings.Builder
	b.WriteString("Commands:\n")
	for _, cmd := range AllCommands() {
		fmt.Fprintf(&b, "  %-28s %s", cmd.Usage, cmd.Description)
		if len(cmd.Aliases) > 0 {
			fmt.Fprintf(&b, " (aliases: %s)", strings.Join(cmd.Aliases, ", "))
		}
		b.WriteString("\n")
	}
	b.WriteString("\nKeys:\n")
	b.WriteString("  Enter          send the query\n")
	b.WriteString("  PgUp/PgDn      scroll the conversation\n")
	b.WriteString("  Ctrl+C         quit\n")
	b.WriteString("\nThe conversion rules are instructions to the model. Replies are not\n")
	b.WriteString("checked, so review generated PySpark before running it.")
	return m.showSystemMessage(b.String())
}

func (m *Model) cmdNew() (tea.Model, tea.Cmd) {
	if err := m.backend.Reset(); err != nil {
		m.notice = err.Error()
		m.refresh()
		return m, nil
	}
	m.notice = ""
	m.info = "Started a new conversation."
	m.refresh()
	return m, refreshAfterReset()
}

func (m *Model) cmdModel(args []string) (tea.Model, tea.Cmd) {
	if len(args) == 0 {
		return m.showSystemMessage(fmt.Sprintf("Current: %s\nProviders: %s\nSwitch with /model <provider>[:model].",
			m.backend.Name(), strings.Join(llm.Providers(), ", ")))
	}
	if m.switchBackend == nil {
		return m.showSystemMessage("Switching models is not available for this backend.")
	}
	next, err := m.switchBackend(args[0])
	if err != nil {
		m.notice = err.Error()
		m.refresh()
		return m, nil
	}
	_ = m.backend.Close()
	m.backend = next
	m.notice = ""
	m.info = "Switched to " + next.Name() + ". Started a new conversation."
	m.refresh()
	return m, nil
}

func (m *Model) cmdQuit() (tea.Model, tea.Cmd) {
	m.quitting = true
	return m, tea.Quit
}
