package cmd

import (
	"strconv"

	"github.com/kerbaras/mdex/pkg/config"
	"github.com/kerbaras/mdex/pkg/data"
	"github.com/kerbaras/mdex/pkg/services"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var chaptersCmd = &cobra.Command{
	Use:   "chapters [manga-id or name]",
	Short: "List the chapters of a manga",
	Long: `List the chapters of a manga available on MangaDex in one language.
With --selected only the chapters 'download' would fetch are shown.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		language, _ := cmd.Flags().GetString("language")
		if language == "" {
			language = viper.GetString(config.DownloadLanguage)
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
		chapters, err := d.controller.GetChapters(ctx, manga, language)
		if err != nil {
			return err
		}

		if selected, _ := cmd.Flags().GetBool("selected"); selected {
			rangeStr, _ := cmd.Flags().GetString("chapters")
			excluded := viper.GetStringSlice(config.DownloadExcludedUploaders)
			if len(excluded) == 0 {
				excluded = services.DefaultExcludedUploaders
			}
			chapters = services.SelectChapters(chapters, services.DownloadOptions{
				Language:          language,
				ChapterRange:      rangeStr,
				ExcludedUploaders: excluded,
			})
		}

		rows := make([][]string, 0, len(chapters))
		for _, ch := range chapters {
			rows = append(rows, chapterRow(ch))
		}
		printTable([]string{"Vol", "Ch", "Title", "Uploader", "Pages", "ID"}, rows)
		return nil
	},
}

func chapterRow(ch *data.Chapter) []string {
	return []string{orDash(ch.Volume), orDash(ch.Number), orDash(ch.Title), orDash(ch.Uploader), strconv.Itoa(ch.Pages), ch.ID}
}

func init() {
	chaptersCmd.Flags().StringP("language", "l", "", "Language code, defaults to download.language")
	chaptersCmd.Flags().Bool("selected", false, "Apply the download selection rules")
	chaptersCmd.Flags().StringP("chapters", "c", "", "Chapter range used with --selected (e.g. 1-10)")
}
