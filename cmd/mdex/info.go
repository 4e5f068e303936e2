package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/kerbaras/mdex/pkg/app/styles"
	"github.com/kerbaras/mdex/pkg/config"
	"github.com/kerbaras/mdex/pkg/mangadex"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var infoCmd = &cobra.Command{
	Use:   "info [manga-id]",
	Short: "Show details of a manga",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireUUID("manga", args[0]); err != nil {
			return err
		}
		ctx := cmd.Context()
		client := newClient()

		manga, err := client.GetManga(ctx, args[0], "author", "artist", "cover_art")
		if err != nil {
			return err
		}

		fmt.Println(styles.TitleStyle.Render(manga.DisplayTitle()))
		if desc := manga.Description.Any("en"); desc != "" {
			fmt.Println(styles.TextStyle.Render(desc))
			fmt.Println()
		}

		authors := lo.FilterMap(manga.Authors, func(r mangadex.Ref[mangadex.Author], _ int) (string, bool) {
			if !r.Resolved() {
				return "", false
			}
			return r.Value.Name, true
		})

		field := func(name, value string) {
			fmt.Printf("%s %s\n", styles.KeyStyle.Render(fmt.Sprintf("%-10s", name)), orDash(value))
		}
		field("ID", manga.ID)
		field("Authors", strings.Join(authors, ", "))
		field("Status", manga.Status)
		field("Year", lo.Ternary(manga.Year > 0, fmt.Sprint(manga.Year), ""))
		field("Rating", manga.ContentRating)
		field("Language", manga.OriginalLanguage)
		field("Tags", strings.Join(lo.Map(manga.Tags, func(t mangadex.Tag, _ int) string { return t.Name.Any("en") }), ", "))
		if manga.Cover.Resolved() {
			field("Cover", client.CoverURL(*manga.Cover.Value, 0))
		}

		lang := viper.GetString(config.DownloadLanguage)
		volumes, err := client.MangaAggregate(ctx, manga.ID, lang)
		if err != nil {
			return err
		}
		chapters := 0
		for _, v := range volumes {
			chapters += len(v.Chapters)
		}
		field("Chapters", fmt.Sprintf("%d in %d volumes (%s)", chapters, len(volumes), lang))

		if perVolume, _ := cmd.Flags().GetBool("volumes"); perVolume {
			names := lo.Keys(volumes)
			slices.Sort(names)
			for _, name := range names {
				fmt.Printf("  %s: %d chapters\n", lo.Ternary(name == "none", "No Volume", "Volume "+name), len(volumes[name].Chapters))
			}
		}
		return nil
	},
}

func init() {
	infoCmd.Flags().Bool("volumes", false, "List chapter counts per volume")
}
