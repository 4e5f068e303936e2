package cmd

import (
	"fmt"
	"strconv"

	"github.com/kerbaras/mdex/pkg/config"
	"github.com/kerbaras/mdex/pkg/integrations"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var epubCmd = &cobra.Command{
	Use:   "epub [manga-id or name]",
	Short: "Generate an EPUB from downloaded chapters",
	Long: `Package the downloaded chapters of a library manga into one EPUB file.
With --device the pages are resized and toned for that e-reader.

Examples:
  mdex epub "Solo Leveling"
  mdex epub "Solo Leveling" --device kindle-paperwhite
  mdex epub --list-devices`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if list, _ := cmd.Flags().GetBool("list-devices"); list {
			printDevices()
			return nil
		}
		if len(args) == 0 {
			return fmt.Errorf("manga id or name is required (use --list-devices to see supported devices)")
		}
		if err := viper.BindPFlag(config.EPUBDevice, cmd.Flags().Lookup("device")); err != nil {
			return err
		}
		if err := viper.BindPFlag(config.EPUBDir, cmd.Flags().Lookup("output")); err != nil {
			return err
		}

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

		path, err := d.controller.ComposeEPUB(manga.ID)
		if err != nil {
			return fmt.Errorf("EPUB generation failed: %w", err)
		}
		fmt.Printf("EPUB created: %s\n", path)
		return nil
	},
}

func printDevices() {
	rows := make([][]string, 0, len(integrations.Devices))
	for _, id := range integrations.DeviceIDs() {
		device := integrations.Devices[id]
		rows = append(rows, []string{
			id,
			device.Name,
			fmt.Sprintf("%dx%d", device.Width, device.Height),
			strconv.Itoa(device.DPI),
			lo.Ternary(device.Grayscale, "yes", "no"),
		})
	}
	printTable([]string{"ID", "Device", "Resolution", "DPI", "Grayscale"}, rows)
}

func init() {
	epubCmd.Flags().StringP("device", "d", "", "Optimise pages for this e-reader")
	epubCmd.Flags().StringP("output", "o", "", "Directory to write the EPUB to")
	epubCmd.Flags().Bool("list-devices", false, "List supported e-readers")
}
