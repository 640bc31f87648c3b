package cli

import (
	"context"
	"fmt"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	version string // semantic version (e.g., "v1.2.3")
	commit  string // git commit SHA
	date    string // build timestamp
)

// SetVersion sets the version information displayed by --version.
// This is typically called by the main package with values injected via
// ldflags at build time.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// NewRootCommand builds the patriline command tree.
func NewRootCommand() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:          "patriline",
		Short:        "Patriline simulates patrilineal genealogies and analyzes their pedigrees",
		Long:         `Patriline is a forward-time Wright-Fisher simulator for patrilineal genealogies. It builds pedigrees from the simulated ancestry, propagates Y-STR and autosomal haplotypes through them, and estimates population-structure statistics.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			ctx := withLogger(cmd.Context(), newLogger(os.Stderr, level))
			cmd.SetContext(ctx)
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("patriline %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newSimulateCmd())
	root.AddCommand(newEstimateCmd())
	root.AddCommand(newRenderCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newRunsCmd())
	root.AddCommand(newCacheCmd())

	return root
}

// Execute runs the patriline CLI and returns an error if any command fails.
func Execute() error {
	return NewRootCommand().ExecuteContext(context.Background())
}
