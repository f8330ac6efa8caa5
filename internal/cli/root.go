// Package cli wires the bookcatalog subcommands.
package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mrlokans/bookcatalog/internal/config"
	"github.com/mrlokans/bookcatalog/internal/entrypoint"
)

// BuildInfo is set at build time via ldflags.
type BuildInfo struct {
	Version string
	Commit  string
}

var flagNoColor bool

// NewRootCommand builds the command tree. With no subcommand it serves HTTP.
func NewRootCommand(info BuildInfo) *cobra.Command {
	root := &cobra.Command{
		Use:   "bookcatalog",
		Short: "Personal book catalog with Google Sheets sync",
		Long: `bookcatalog keeps a personal catalog of books, libraries, categories and keywords.

Sign in with Google to sync everything to a spreadsheet, or sign in locally
to keep the catalog on this machine only.

Run 'bookcatalog' with no arguments to start the HTTP server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if flagNoColor {
				color.NoColor = true
			}
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			return entrypoint.Run(config.NewConfig(), info.Version)
		},
	}
	root.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")

	root.AddCommand(
		newServeCmd(info),
		newLookupCmd(),
		newExportCmd(),
		newVersionCmd(info),
	)
	return root
}

// Execute is the entry point called from main.
func Execute(info BuildInfo) {
	if err := NewRootCommand(info).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(1)
	}
}

func newServeCmd(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server (default if no command given)",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return entrypoint.Run(config.NewConfig(), info.Version)
		},
	}
}

func newVersionCmd(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "bookcatalog %s (commit %s)\n", info.Version, info.Commit)
		},
	}
}
