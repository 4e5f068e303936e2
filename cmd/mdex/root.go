package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/kerbaras/mdex/pkg/config"
	"github.com/kerbaras/mdex/pkg/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "mdex",
	Short: "Download manga from MangaDex",
	Long: `Search MangaDex, keep a local library of manga and download chapters
from the MangaDex@Home network, optionally packaged as EPUB.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Setup(); err != nil {
			return err
		}
		verbose, _ := cmd.Flags().GetBool("verbose")
		return log.Setup(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log to stderr at debug level")

	rootCmd.AddCommand(
		searchCmd,
		infoCmd,
		chaptersCmd,
		addCmd,
		listCmd,
		removeCmd,
		downloadCmd,
		chapterCmd,
		updatesCmd,
		epubCmd,
		loginCmd,
		logoutCmd,
		whoamiCmd,
		mappingCmd,
		configCmd,
	)
}

// Execute runs the CLI. An interrupt cancels the running command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
