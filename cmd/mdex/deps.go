package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/kerbaras/mdex/pkg/app/components"
	"github.com/kerbaras/mdex/pkg/auth"
	"github.com/kerbaras/mdex/pkg/config"
	"github.com/kerbaras/mdex/pkg/data"
	"github.com/kerbaras/mdex/pkg/filesystem"
	"github.com/kerbaras/mdex/pkg/integrations"
	"github.com/kerbaras/mdex/pkg/mangadex"
	"github.com/kerbaras/mdex/pkg/services"
	"github.com/kerbaras/mdex/pkg/sources"
	"github.com/kerbaras/mdex/pkg/where"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// newClient builds an API client from the api.* settings.
func newClient() *mangadex.Client {
	return mangadex.NewClient(
		mangadex.WithHTTPClient(&http.Client{Timeout: viper.GetDuration(config.APITimeout)}),
		mangadex.WithBaseURL(viper.GetString(config.APIBaseURL)),
		mangadex.WithNetworkURL(viper.GetString(config.APINetworkURL)),
		mangadex.WithUploadsURL(viper.GetString(config.APIUploadsURL)),
		mangadex.WithRateLimit(viper.GetDuration(config.APIRateLimit)),
		mangadex.WithPageSize(viper.GetInt(config.APIPageSize)),
		mangadex.WithLogger(logrus.StandardLogger()),
	)
}

// restoreSession logs client in with the saved refresh token, if any.
func restoreSession(ctx context.Context, client *mangadex.Client) {
	err := auth.Restore(ctx, client)
	switch {
	case err == nil:
		logrus.Debug("restored mangadex session")
	case errors.Is(err, auth.ErrNoToken):
	default:
		logrus.WithError(err).Warn("could not restore mangadex session")
	}
}

func downloadDir() string {
	if dir := viper.GetString(config.DownloadDir); dir != "" {
		return dir
	}
	return where.Downloads()
}

func epubDir() string {
	if dir := viper.GetString(config.EPUBDir); dir != "" {
		return dir
	}
	return where.Books()
}

func libraryPath() string {
	if path := viper.GetString(config.LibraryPath); path != "" {
		return path
	}
	return where.Library()
}

// deps are the components a command works with.
type deps struct {
	source     *sources.MangaDex
	repo       *data.Repository
	controller *services.MangaController
}

func downloaderOptions() services.DownloaderOptions {
	return services.DownloaderOptions{
		Workers:        viper.GetInt(config.DownloadWorkers),
		MaxNodeRetries: viper.GetInt(config.DownloadMaxNodeRetries),
		DataSaver:      viper.GetBool(config.DownloadDataSaver),
		ForcePort443:   viper.GetBool(config.DownloadForcePort443),
	}
}

// newComposer builds the EPUB builder, fitting pages to epub.device when set.
func newComposer(fs afero.Fs, log logrus.FieldLogger) (*integrations.EPubBuilder, error) {
	builder := integrations.NewEPubBuilder(fs, epubDir(), log).WithLanguage(viper.GetString(config.DownloadLanguage))
	id := viper.GetString(config.EPUBDevice)
	if id == "" {
		return builder, nil
	}
	device, ok := integrations.GetDevice(id)
	if !ok {
		return nil, fmt.Errorf("unknown device %q, see 'mdex epub --list-devices'", id)
	}
	return builder.WithProcessor(integrations.NewImageProcessor(device.ImageSettings())), nil
}

func newDeps(ctx context.Context) (*deps, error) {
	fs := filesystem.API().Fs
	log := logrus.StandardLogger()

	composer, err := newComposer(fs, log)
	if err != nil {
		return nil, err
	}

	client := newClient()
	restoreSession(ctx, client)

	repo, err := data.NewDuckDBRepository(libraryPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open library: %w", err)
	}

	downloader := services.NewDownloader(client, fs, client.HTTPClient(), log, downloaderOptions())

	var excluded []string
	if list := viper.GetStringSlice(config.DownloadExcludedUploaders); len(list) > 0 {
		excluded = list
	}

	source := sources.NewMangaDex(client)
	controller := services.NewMangaController(services.ControllerConfig{
		Source:            source,
		Repo:              repo,
		Downloader:        downloader,
		Composer:          composer,
		Fs:                fs,
		Log:               log,
		DownloadDir:       downloadDir(),
		Language:          viper.GetString(config.DownloadLanguage),
		ExcludedUploaders: excluded,
	})

	return &deps{source: source, repo: repo, controller: controller}, nil
}

func (d *deps) Close() {
	d.controller.Close()
	if err := d.repo.Close(); err != nil {
		logrus.WithError(err).Warn("failed to close library")
	}
}

// resolveManga finds a manga by id, or by name in the library.
func (d *deps) resolveManga(ctx context.Context, ref string) (*data.Manga, error) {
	if isUUID(ref) {
		manga, err := d.repo.GetManga(ref)
		if err != nil {
			return nil, err
		}
		if manga != nil {
			return manga, nil
		}
		return d.controller.GetManga(ctx, ref)
	}
	return d.controller.FindMangaByName(ref)
}

func isUUID(s string) bool {
	return uuid.Validate(s) == nil
}

func requireUUID(kind, s string) error {
	if !isUUID(s) {
		return fmt.Errorf("invalid %s id %q", kind, s)
	}
	return nil
}

func interactive() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 100
	}
	return width
}

// printTable writes a table sized to the terminal.
func printTable(headers []string, rows [][]string) {
	maxWidth := max(20, terminalWidth()/2)
	fmt.Println(components.Table(headers, rows, maxWidth))
}

func orDash(s string) string {
	return lo.Ternary(strings.TrimSpace(s) == "", "-", s)
}
