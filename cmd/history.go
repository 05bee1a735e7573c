package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/samsaffron/sql2pyspark/internal/archive"
	"github.com/samsaffron/sql2pyspark/internal/session"
	"github.com/samsaffron/sql2pyspark/internal/ui"
)

var (
	historyLimit   int
	historySession string
	historyJSON    bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List archived exchanges",
	Long: `List exchanges recorded in the archive. Recording is off unless
archive.enabled is set in the config; the archive is only ever read here.

Examples:
  sql2pyspark history
  sql2pyspark history --limit 5
  sql2pyspark history --session 3f2a9c1d
  sql2pyspark history search "GROUP BY"`,
	Args: cobra.NoArgs,
	RunE: runHistoryList,
}

var historySearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over archived exchanges",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runHistorySearch,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of exchanges")
	historyCmd.Flags().StringVar(&historySession, "session", "", "Only show one session, oldest first")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Output JSON")
	historySearchCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of results")
	historyCmd.AddCommand(historySearchCmd)
	rootCmd.AddCommand(historyCmd)
}

// openArchive opens the archive for reading. It returns nil when there is
// nothing to read.
func openArchive(w io.Writer) (archive.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	path := cfg.Archive.Path
	if path == "" {
		if path, err = archive.DefaultPath(); err != nil {
			return nil, err
		}
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if cfg.Archive.Enabled {
			fmt.Fprintln(w, "No exchanges archived yet.")
		} else {
			fmt.Fprintln(w, "The archive is disabled. Set archive.enabled: true in the config to record exchanges.")
		}
		return nil, nil
	}
	return archive.Open(true, path)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	store, err := openArchive(out)
	if err != nil || store == nil {
		return err
	}
	defer store.Close()

	exchanges, err := store.List(context.Background(), archive.ListOptions{
		SessionID: historySession,
		Limit:     historyLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to list exchanges: %w", err)
	}

	if historyJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(exchanges)
	}
	if len(exchanges) == 0 {
		fmt.Fprintln(out, "No exchanges found.")
		return nil
	}
	printExchanges(out, exchanges)
	return nil
}

func printExchanges(w io.Writer, exchanges []archive.Exchange) {
	fmt.Fprintf(w, "%-10s %-4s %-28s %-10s %s\n", "Session", "#", "Model", "When", "Prompt")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, ex := range exchanges {
		fmt.Fprintf(w, "%-10s %-4d %-28s %-10s %s\n",
			session.ShortID(ex.SessionID),
			ex.Sequence,
			ui.Truncate(ex.Model, 28),
			formatRelativeTime(ex.CreatedAt),
			ui.Truncate(oneLine(ex.Prompt), 40))
	}
}

func runHistorySearch(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	store, err := openArchive(out)
	if err != nil || store == nil {
		return err
	}
	defer store.Close()

	query := strings.Join(args, " ")
	results, err := store.Search(context.Background(), query, historyLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if len(results) == 0 {
		fmt.Fprintf(out, "No results found for '%s'\n", query)
		return nil
	}

	fmt.Fprintf(out, "Found %d matches for '%s':\n\n", len(results), query)
	for _, r := range results {
		fmt.Fprintf(out, "%s #%d (%s)\n", session.ShortID(r.SessionID), r.Sequence, r.Model)
		fmt.Fprintf(out, "  %s\n\n", oneLine(r.Snippet))
	}
	return nil
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func formatRelativeTime(t time.Time) string {
	dur := time.Since(t)
	switch {
	case dur < time.Minute:
		return "just now"
	case dur < time.Hour:
		return fmt.Sprintf("%dm ago", int(dur.Minutes()))
	case dur < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(dur.Hours()))
	case dur < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(dur.Hours()/24))
	default:
		return t.Format("Jan 2")
	}
}
