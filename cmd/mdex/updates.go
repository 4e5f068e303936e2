package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/kerbaras/mdex/pkg/app"
	"github.com/kerbaras/mdex/pkg/data"
	"github.com/kerbaras/mdex/pkg/services"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var updatesCmd = &cobra.Command{
	Use:   "updates",
	Short: "Download new chapters of many manga",
	Long: `Download the chapters not yet on disk for every manga in your library,
in a MangaDex custom list (--list) or followed by your account (--follows).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		listID, _ := cmd.Flags().GetString("list")
		follows, _ := cmd.Flags().GetBool("follows")
		if listID != "" {
			if err := requireUUID("list", listID); err != nil {
				return err
			}
		}

		d, err := newDeps(ctx)
		if err != nil {
			return err
		}
		defer d.Close()

		var ids []string
		switch {
		case listID != "":
			ids, err = d.source.ListMangaIDs(ctx, listID)
		case follows:
			ids, err = d.source.FollowedMangaIDs(ctx)
		default:
			mangas, lerr := d.controller.ListLibrary()
			ids, err = lo.Map(mangas, func(m *data.Manga, _ int) string { return m.ID }), lerr
		}
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			fmt.Println("No manga to update.")
			return nil
		}

		var results map[string]int
		title := fmt.Sprintf("Checking %d manga for new chapters", len(ids))
		err = app.NewApp(title, d.controller.GetProgressChannel()).
			WithOutput(os.Stdout, interactive()).
			Run(ctx, func(ctx context.Context) error {
				var err error
				results, err = d.controller.Updates(ctx, ids, services.DownloadOptions{})
				return err
			})

		rows := make([][]string, 0, len(ids))
		for _, id := range ids {
			n, ok := results[id]
			if !ok || n == 0 {
				continue
			}
			name := id
			if m, _ := d.repo.GetManga(id); m != nil {
				name = m.Name
			}
			rows = append(rows, []string{name, strconv.Itoa(n)})
		}
		if len(rows) > 0 {
			printTable([]string{"Manga", "New chapters"}, rows)
		} else {
			fmt.Println("Everything is up to date.")
		}
		return err
	},
}

func init() {
	updatesCmd.Flags().String("list", "", "Update the manga of this custom list")
	updatesCmd.Flags().Bool("follows", false, "Update the manga you follow (requires login)")
	updatesCmd.MarkFlagsMutuallyExclusive("list", "follows")
}
