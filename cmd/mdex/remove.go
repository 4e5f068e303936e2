package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:     "remove [manga-id or name]",
	Aliases: []string{"rm"},
	Short:   "Remove a manga from your library",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deleteFiles, _ := cmd.Flags().GetBool("files")

		d, err := newDeps(cmd.Context())
		if err != nil {
			return err
		}
		defer d.Close()

		manga, err := d.controller.GetMangaFromLibrary(args[0])
		if err != nil {
			if manga, err = d.controller.FindMangaByName(args[0]); err != nil {
				return err
			}
		}

		if err := d.controller.RemoveFromLibrary(manga.ID, deleteFiles); err != nil {
			return err
		}
		fmt.Printf("Removed '%s' from library\n", manga.Name)
		return nil
	},
}

func init() {
	removeCmd.Flags().Bool("files", false, "Also delete downloaded chapters")
}
