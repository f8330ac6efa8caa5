package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mrlokans/bookcatalog/internal/config"
	"github.com/mrlokans/bookcatalog/internal/entities"
	"github.com/mrlokans/bookcatalog/internal/entrypoint"
	"github.com/mrlokans/bookcatalog/internal/localstore"
)

// UserExport is the locally cached catalog of one user.
type UserExport struct {
	UserID     string          `yaml:"user_id" json:"userId"`
	Books      []entities.Book `yaml:"books" json:"books"`
	Libraries  []string        `yaml:"libraries" json:"libraries"`
	Categories []string        `yaml:"categories" json:"categories"`
	Keywords   []string        `yaml:"keywords" json:"keywords"`
}

func newExportCmd() *cobra.Command {
	var (
		userID string
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the locally cached catalog as YAML or JSON",
		Long: `Writes the catalog held in the local store. For google users this is the
copy cached at their last sync, which may lag behind the spreadsheet.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != "yaml" && format != "json" {
				return fmt.Errorf("unknown format %q, use yaml or json", format)
			}

			cfg := config.NewConfig()
			log := entrypoint.NewLogger(cfg.Global)
			db, store, err := entrypoint.OpenStore(cfg, log)
			if err != nil {
				return err
			}
			defer db.Close()

			ids := []string{userID}
			if userID == "" {
				if ids, err = cachedUsers(store); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create %s: %w", output, err)
				}
				defer f.Close()
				out = f
			}

			exports := buildExport(store, ids)
			if err := writeExport(out, format, exports); err != nil {
				return err
			}
			if output != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s exported %d users to %s\n", color.GreenString("ok"), len(exports), output)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "Only export this user id (default: every cached user)")
	cmd.Flags().StringVar(&format, "format", "yaml", "Output format: yaml or json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")
	return cmd
}

// cachedUsers lists every user with at least one cached collection.
func cachedUsers(store *localstore.Store) ([]string, error) {
	var ids []string
	for _, kind := range append([]entities.Kind{entities.KindBook}, entities.TaxonomyKinds...) {
		kindIDs, err := store.UserIDs(kind)
		if err != nil {
			return nil, fmt.Errorf("list cached %s: %w", kind.Plural(), err)
		}
		ids = append(ids, kindIDs...)
	}
	slices.Sort(ids)
	return slices.Compact(ids), nil
}

func buildExport(store *localstore.Store, userIDs []string) []UserExport {
	exports := make([]UserExport, 0, len(userIDs))
	for _, id := range userIDs {
		exports = append(exports, UserExport{
			UserID:     id,
			Books:      store.LoadBooks(id),
			Libraries:  names(store.LoadTaxonomies(entities.KindLibrary, id)),
			Categories: names(store.LoadTaxonomies(entities.KindCategory, id)),
			Keywords:   names(store.LoadTaxonomies(entities.KindKeyword, id)),
		})
	}
	return exports
}

func names(items []entities.Taxonomy) []string {
	out := make([]string, 0, len(items))
	for _, t := range items {
		out = append(out, t.Name)
	}
	return out
}

func writeExport(w io.Writer, format string, exports []UserExport) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(exports)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(exports); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}
