package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/kerbaras/mdex/pkg/app"
	"github.com/kerbaras/mdex/pkg/config"
	"github.com/kerbaras/mdex/pkg/services"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var downloadCmd = &cobra.Command{
	Use:   "download [manga-id or name]",
	Short: "Download manga chapters",
	Long: `Download the chapters of a manga from your library or by id. Chapters
already on disk are skipped unless --overwrite is given.

Examples:
  mdex download 32d76d19-8a05-4db0-9fc2-e0b0648fe9d0
  mdex download "Solo Leveling" --chapters 1-10
  mdex download "Solo Leveling" --chapters 50- --epub`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := viper.BindPFlag(config.DownloadLanguage, cmd.Flags().Lookup("language")); err != nil {
			return err
		}
		opts := services.DownloadOptions{}
		opts.ChapterRange, _ = cmd.Flags().GetString("chapters")
		opts.ChapterIDs, _ = cmd.Flags().GetStringSlice("id")
		opts.Overwrite, _ = cmd.Flags().GetBool("overwrite")
		makeBook, _ := cmd.Flags().GetBool("epub")

		for _, id := range opts.ChapterIDs {
			if err := requireUUID("chapter", id); err != nil {
				return err
			}
		}

		d, err := newDeps(ctx)
		if err != nil {
			return err
		}
		defer d.Close()

		manga, err := d.resolveManga(ctx, args[0])
		if err != nil {
			return err
		}

		var downloaded int
		title := fmt.Sprintf("Downloading %s (%s)", manga.Name, viper.GetString(config.DownloadLanguage))
		err = app.NewApp(title, d.controller.GetProgressChannel()).
			WithOutput(os.Stdout, interactive()).
			Run(ctx, func(ctx context.Context) error {
				var err error
				downloaded, err = d.controller.DownloadManga(ctx, manga.ID, opts)
				return err
			})
		switch {
		case errors.Is(err, services.ErrNoChapters):
			fmt.Println("Nothing to download.")
			return nil
		case err != nil:
			return fmt.Errorf("download failed after %d chapters: %w", downloaded, err)
		}
		fmt.Printf("Downloaded %d chapters to %s\n", downloaded, d.controller.GetDownloadDirectory())

		if !makeBook {
			return nil
		}
		path, err := d.controller.ComposeEPUB(manga.ID)
		if err != nil {
			return fmt.Errorf("EPUB generation failed: %w", err)
		}
		fmt.Printf("EPUB created: %s\n", path)
		return nil
	},
}

func init() {
	downloadCmd.Flags().StringP("language", "l", "", "Language code (e.g., en, ja, es), defaults to download.language")
	downloadCmd.Flags().StringP("chapters", "c", "", "Chapter range (e.g., 1-10, 5-, -20 or 7)")
	downloadCmd.Flags().StringSlice("id", nil, "Only download these chapter ids")
	downloadCmd.Flags().Bool("overwrite", false, "Download chapters already on disk again")
	downloadCmd.Flags().Bool("epub", false, "Package the downloaded chapters as EPUB afterwards")
}
