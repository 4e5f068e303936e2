package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kerbaras/mdex/pkg/app"
	"github.com/kerbaras/mdex/pkg/data"
	"github.com/kerbaras/mdex/pkg/filesystem"
	"github.com/kerbaras/mdex/pkg/services"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var chapterCmd = &cobra.Command{
	Use:   "chapter [chapter-id]",
	Short: "Download a single chapter",
	Long: `Download one chapter by id without adding it to the library. Pages go to
--output, or to the chapter directory under download.dir.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		chapterID := args[0]
		if err := requireUUID("chapter", chapterID); err != nil {
			return err
		}
		output, _ := cmd.Flags().GetString("output")

		client := newClient()
		restoreSession(ctx, client)

		ch, err := client.GetChapter(ctx, chapterID, "manga")
		if err != nil {
			return err
		}
		if ch.ExternalURL != "" {
			return fmt.Errorf("chapter %s is hosted at %s", chapterID, ch.ExternalURL)
		}

		if output == "" {
			manga := &data.Manga{ID: chapterID, Name: chapterID}
			if ch.Manga.Resolved() {
				manga = &data.Manga{ID: ch.Manga.Value.ID, Name: ch.Manga.Value.DisplayTitle()}
			}
			output = services.ChapterDir(downloadDir(), manga, &data.Chapter{Volume: ch.Volume, Number: ch.Number, Title: ch.Title})
		}

		fs := filesystem.API().Fs
		before, err := snapshotDir(fs, output)
		if err != nil {
			return err
		}

		downloader := services.NewDownloader(client, fs, client.HTTPClient(), logrus.StandardLogger(), downloaderOptions())
		defer downloader.Close()

		title := fmt.Sprintf("Downloading chapter %s", orDash(ch.Number))
		err = app.NewApp(title, downloader.GetProgressChannel()).
			WithOutput(os.Stdout, interactive()).
			Run(ctx, func(ctx context.Context) error {
				return downloader.DownloadChapter(ctx, chapterID, output)
			})
		if err != nil {
			if cleanErr := before.restore(); cleanErr != nil {
				logrus.WithField("dir", output).WithError(cleanErr).Warn("failed to remove partial chapter")
			}
			return err
		}
		fmt.Printf("Chapter saved to %s\n", output)
		return nil
	},
}

// dirSnapshot records the files of a directory before a download writes to it.
type dirSnapshot struct {
	fs      afero.Fs
	dir     string
	existed bool
	files   map[string]bool
}

func snapshotDir(fs afero.Fs, dir string) (*dirSnapshot, error) {
	s := &dirSnapshot{fs: fs, dir: dir, files: make(map[string]bool)}
	exists, err := afero.DirExists(fs, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect %s: %w", dir, err)
	}
	if !exists {
		return s, nil
	}
	s.existed = true
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}
	for _, e := range entries {
		s.files[e.Name()] = true
	}
	return s, nil
}

// restore removes what was written since the snapshot: the whole directory
// when it did not exist before, otherwise only the new files.
func (s *dirSnapshot) restore() error {
	if !s.existed {
		return s.fs.RemoveAll(s.dir)
	}
	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return err
	}
	var errs []error
	for _, e := range entries {
		if s.files[e.Name()] {
			continue
		}
		if err := s.fs.RemoveAll(filepath.Join(s.dir, e.Name())); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func init() {
	chapterCmd.Flags().StringP("output", "o", "", "Directory to write the pages to")
}
