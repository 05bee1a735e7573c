package cmd

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"

	"github.com/samsaffron/sql2pyspark/internal/llm"
)

// Set with -ldflags "-X github.com/samsaffron/sql2pyspark/cmd.Version=...".
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build details",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		printVersion(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func printVersion(w io.Writer) {
	version, commit := Version, Commit
	// `go install` builds carry no ldflags; fall back to module metadata.
	if info, ok := debug.ReadBuildInfo(); ok {
		if version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			version = info.Main.Version
		}
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && commit == "unknown" {
				commit = s.Value
			}
		}
	}
	fmt.Fprintf(w, "sql2pyspark %s\n", version)
	fmt.Fprintf(w, "  commit:    %s\n", commit)
	fmt.Fprintf(w, "  built:     %s\n", Date)
	fmt.Fprintf(w, "  go:        %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(w, "  providers: %s\n", strings.Join(llm.Providers(), ", "))
	fmt.Fprintf(w, "  local:     %s\n", localSupport())
}
