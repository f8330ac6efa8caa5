package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mrlokans/bookcatalog/internal/config"
	"github.com/mrlokans/bookcatalog/internal/entrypoint"
	"github.com/mrlokans/bookcatalog/internal/metadata"
	"github.com/mrlokans/bookcatalog/internal/scanner"
)

func newLookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <isbn>... | lookup -",
		Short: "Look up book metadata by ISBN",
		Long: `Looks each code up on OpenLibrary, then Google Books.

Pass '-' to read codes from stdin, one per line, as a handheld barcode
reader types them. Codes shorter than 8 characters are skipped.`,
		Example: `  bookcatalog lookup 9780441172719
  bookcatalog lookup - < scans.txt`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.NewConfig()
			log := entrypoint.NewLogger(cfg.Global)
			lookup := entrypoint.NewLookup(cfg.Metadata, log)

			var src scanner.Scanner
			if len(args) == 1 && args[0] == "-" {
				src = scanner.NewManualScanner(cmd.InOrStdin())
			} else {
				src = scanner.NewManualScanner(strings.NewReader(strings.Join(args, "\n")))
			}
			return runLookup(cmd.Context(), cmd.OutOrStdout(), lookup, src)
		},
	}
}

// runLookup resolves every accepted code from src and prints one block per code.
func runLookup(ctx context.Context, out io.Writer, lookup *metadata.Lookup, src scanner.Scanner) error {
	if ctx == nil {
		ctx = context.Background()
	}

	found, missed := 0, 0
	err := scanner.Consume(ctx, src, func(code string) {
		outcome := lookup.Lookup(ctx, code)
		if !outcome.Found {
			missed++
			fmt.Fprintf(out, "%s  %s\n", code, color.YellowString("not found"))
			return
		}

		found++
		m := outcome.Metadata
		fmt.Fprintf(out, "%s  %s (%s)\n", code, color.GreenString("found"), outcome.Source)
		printField(out, "title", m.Title)
		printField(out, "author", m.Author)
		printField(out, "publisher", m.Publisher)
		printField(out, "year", m.Year)
	})
	if err != nil {
		return fmt.Errorf("read codes: %w", err)
	}

	fmt.Fprintf(out, "\n%d found, %d not found\n", found, missed)
	return nil
}

func printField(out io.Writer, name, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(out, "  %-10s %s\n", name+":", value)
}
