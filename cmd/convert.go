package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/samsaffron/sql2pyspark/internal/exitcode"
	"github.com/samsaffron/sql2pyspark/internal/ui"
)

var (
	convertBackend  string
	convertProvider string
	convertCode     bool
	convertFiles    string
	convertWrite    bool
)

var convertCmd = &cobra.Command{
	Use:   "convert [SQL...]",
	Short: "Convert one SQL query and print the reply",
	Long: `Send a single SQL query and stream the model's reply to stdout.
The query is taken from the arguments, or from stdin when it is piped.

Examples:
  sql2pyspark convert "SELECT id FROM users WHERE age > 30"
  sql2pyspark convert < query.sql
  sql2pyspark convert --provider gemini "SELECT COUNT(*) FROM orders"
  sql2pyspark convert --code "SELECT a FROM t" > job.py
  sql2pyspark convert --files 'queries/**/*.sql' --code --write`,
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringVar(&convertBackend, "backend", "", "Backend: remote or local")
	convertCmd.Flags().StringVar(&convertProvider, "provider", "", "Override provider, optionally with model (e.g., openai:gpt-4o)")
	convertCmd.Flags().BoolVar(&convertCode, "code", false, "Print only the Python code blocks from the reply")
	convertCmd.Flags().StringVar(&convertFiles, "files", "", "Convert every file matching this glob (supports **) instead of one query")
	convertCmd.Flags().BoolVar(&convertWrite, "write", false, "With --files, write each reply next to its source as .py")
	_ = convertCmd.RegisterFlagCompletionFunc("provider", ProviderFlagCompletion)
	_ = convertCmd.RegisterFlagCompletionFunc("backend", BackendFlagCompletion)
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	if convertWrite && convertFiles == "" {
		return errors.New("--write needs --files")
	}
	var query string
	var files []string
	var err error
	if convertFiles != "" {
		files, err = expandQueryFiles(convertFiles)
	} else {
		query, err = readQuery(args, cmd.InOrStdin(), term.IsTerminal(int(os.Stdin.Fd())))
	}
	if err != nil {
		return err
	}

	ctx, stop := notifyContext()
	defer stop()

	a, err := newApp(bootstrapOptions{backend: convertBackend, provider: convertProvider})
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	if files != nil {
		err = convertFileSet(ctx, a, files, out)
	} else {
		err = convertOne(ctx, a, query, out)
	}
	if ctx.Err() != nil {
		return exitcode.Cancel()
	}
	return err
}

func convertOne(ctx context.Context, a *app, query string, out io.Writer) error {
	sess := a.newSession(a.adapter, a.cfg.Backend)
	onFragment := func(fragment string) {
		fmt.Fprint(out, fragment)
	}
	if convertCode {
		onFragment = nil
	}
	reply, err := sess.Submit(ctx, query, onFragment)
	if err != nil {
		fmt.Fprintln(out)
		return err
	}
	if convertCode {
		fmt.Fprint(out, codeOnly(reply))
		return nil
	}
	fmt.Fprintln(out)
	return nil
}

// convertFileSet converts each file in its own conversation. A failure is
// reported and the remaining files still run.
func convertFileSet(ctx context.Context, a *app, files []string, out io.Writer) error {
	failed := 0
	for _, path := range files {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if convertWrite && sameFile(path, outputPath(path)) {
			fmt.Fprintf(out, "%s: output would overwrite the input, skipped\n", path)
			failed++
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", path, err)
			failed++
			continue
		}
		reply, err := a.newSession(a.adapter, a.cfg.Backend).Submit(ctx, string(data), nil)
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", path, err)
			failed++
			continue
		}
		text := strings.TrimRight(reply, "\n") + "\n"
		if convertCode {
			text = codeOnly(reply)
		}
		if convertWrite {
			dest := outputPath(path)
			if err := os.WriteFile(dest, []byte(text), 0644); err != nil {
				fmt.Fprintf(out, "%s: %v\n", path, err)
				failed++
				continue
			}
			fmt.Fprintf(out, "%s -> %s\n", path, dest)
			continue
		}
		fmt.Fprintf(out, "==> %s <==\n%s\n", path, text)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}
	return nil
}

// expandQueryFiles resolves a glob such as "queries/**/*.sql" to regular
// files, in lexical order.
func expandQueryFiles(pattern string) ([]string, error) {
	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("bad --files pattern: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no files match %q", pattern)
	}
	slices.Sort(matches)
	return matches, nil
}

// outputPath swaps the extension of src for .py.
func outputPath(src string) string {
	return strings.TrimSuffix(src, filepath.Ext(src)) + ".py"
}

func sameFile(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}

// codeOnly returns the Python blocks of reply, or the whole reply when it
// has none.
func codeOnly(reply string) string {
	blocks := ui.CodeBlocks(reply, ui.PythonLanguages...)
	if len(blocks) == 0 {
		return strings.TrimRight(reply, "\n") + "\n"
	}
	return strings.Join(blocks, "\n")
}

// readQuery joins args, or reads stdin when there are none and it is not a
// terminal.
func readQuery(args []string, stdin io.Reader, stdinIsTerminal bool) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if stdinIsTerminal {
		return "", errors.New("no query: pass SQL as arguments or pipe it on stdin")
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	query := strings.TrimSpace(string(data))
	if query == "" {
		return "", errors.New("no query: stdin was empty")
	}
	return query, nil
}
