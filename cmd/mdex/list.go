package cmd

import (
	"fmt"
	"strconv"

	"github.com/kerbaras/mdex/pkg/app/styles"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all manga in your library",
	Long:  "Display all manga in your library in a formatted table",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps(cmd.Context())
		if err != nil {
			return err
		}
		defer d.Close()

		mangas, err := d.controller.ListLibrary()
		if err != nil {
			return err
		}
		if len(mangas) == 0 {
			fmt.Println("No manga in library. Use 'mdex search' to find manga to add.")
			return nil
		}

		rows := make([][]string, 0, len(mangas))
		for _, manga := range mangas {
			_, total, downloaded, err := d.repo.GetMangaWithChapterCount(manga.ID)
			if err != nil {
				logrus.WithField("manga", manga.ID).WithError(err).Warn("failed to count chapters")
			}
			status := manga.Status
			if status == "" {
				status = "ready"
			}
			rows = append(rows, []string{
				manga.Name,
				status,
				strconv.Itoa(total),
				strconv.Itoa(downloaded),
				manga.ID,
			})
		}

		fmt.Println(styles.TitleStyle.Render(fmt.Sprintf("Library (%d manga)", len(mangas))))
		printTable([]string{"Name", "Status", "Chapters", "Downloaded", "ID"}, rows)
		return nil
	},
}
