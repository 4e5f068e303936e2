package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search for manga",
	Long:  "Search for manga on MangaDex and display results in a table",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		limit, _ := cmd.Flags().GetInt("limit")

		d, err := newDeps(cmd.Context())
		if err != nil {
			return err
		}
		defer d.Close()

		results, err := d.controller.SearchManga(cmd.Context(), query, limit)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		if len(results) == 0 {
			fmt.Println("No results found.")
			return nil
		}

		rows := make([][]string, 0, len(results))
		for i, manga := range results {
			rows = append(rows, []string{strconv.Itoa(i + 1), manga.Name, manga.ID})
		}
		printTable([]string{"#", "Name", "ID"}, rows)
		return nil
	},
}

func init() {
	searchCmd.Flags().IntP("limit", "n", 10, "Maximum number of results")
}
