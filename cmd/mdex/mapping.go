package cmd

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var legacyKinds = []string{"manga", "chapter", "group", "tag"}

var mappingCmd = &cobra.Command{
	Use:   "mapping [manga|chapter|group|tag] [legacy-id...]",
	Short: "Translate legacy numeric ids to current ids",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := args[0]
		if !slices.Contains(legacyKinds, kind) {
			return fmt.Errorf("unknown id type %q, expected one of %v", kind, legacyKinds)
		}
		ids, err := parseLegacyIDs(args[1:])
		if err != nil {
			return err
		}

		mapped, err := newClient().TransformIDs(cmd.Context(), kind, ids)
		if err != nil {
			return err
		}

		rows := lo.Map(ids, func(id int, _ int) []string {
			return []string{strconv.Itoa(id), orDash(mapped[id])}
		})
		printTable([]string{"Legacy", "ID"}, rows)
		return nil
	},
}

func parseLegacyIDs(args []string) ([]int, error) {
	ids := make([]int, 0, len(args))
	for _, arg := range args {
		id, err := strconv.Atoi(arg)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid legacy id %q", arg)
		}
		ids = append(ids, id)
	}
	return lo.Uniq(ids), nil
}
