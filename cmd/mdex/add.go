package cmd

import (
	"fmt"
	"strings"

	"github.com/kerbaras/mdex/pkg/data"
	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add [manga-id or title]",
	Short: "Add a manga to your library",
	Long:  "Add a manga by id, or the best search match for a title, to your library (metadata only)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		query := strings.Join(args, " ")

		d, err := newDeps(ctx)
		if err != nil {
			return err
		}
		defer d.Close()

		var manga *data.Manga
		if isUUID(query) {
			if manga, err = d.controller.GetManga(ctx, query); err != nil {
				return err
			}
		} else {
			results, err := d.controller.SearchManga(ctx, query, 1)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			if len(results) == 0 {
				return fmt.Errorf("no manga found for %q", query)
			}
			manga = results[0]
		}

		n, err := d.controller.AddToLibrary(ctx, manga)
		if err != nil {
			return err
		}

		fmt.Printf("Added '%s' to library with %d chapters\n", manga.Name, n)
		fmt.Printf("To download chapters, use: mdex download %s\n", manga.ID)
		return nil
	},
}
