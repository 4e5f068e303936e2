package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kerbaras/mdex/pkg/data"
	"github.com/kerbaras/mdex/pkg/sources"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// ErrNoChapters is returned when nothing is left to download after selection.
var ErrNoChapters = errors.New("no chapters match the selection")

// Repository is the library storage the controller needs.
type Repository interface {
	SaveManga(manga *data.Manga) error
	GetManga(id string) (*data.Manga, error)
	ListMangas() ([]*data.Manga, error)
	DeleteManga(mangaID string) error
	SaveChapter(chapter *data.Chapter) error
	GetChapters(mangaID string) ([]*data.Chapter, error)
	UpdateChapterStatus(chapterID string, downloaded bool, filePath string) error
}

// Composer packages downloaded chapters into a book.
type Composer interface {
	CreateEPub(manga *data.Manga, chapters []*data.Chapter) (string, error)
}

type ControllerConfig struct {
	Source     sources.Source
	Repo       Repository
	Downloader *Downloader
	Composer   Composer
	Fs         afero.Fs
	Log        logrus.FieldLogger

	DownloadDir string
	// Language and ExcludedUploaders apply when DownloadOptions leave them empty.
	Language          string
	ExcludedUploaders []string
}

// MangaController ties the catalogue, the library and the downloader together.
type MangaController struct {
	source     sources.Source
	repo       Repository
	downloader *Downloader
	composer   Composer
	fs         afero.Fs
	log        logrus.FieldLogger

	downloadDir string
	language    string
	excluded    []string
}

func NewMangaController(cfg ControllerConfig) *MangaController {
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}
	if cfg.ExcludedUploaders == nil {
		cfg.ExcludedUploaders = DefaultExcludedUploaders
	}
	return &MangaController{
		source:      cfg.Source,
		repo:        cfg.Repo,
		downloader:  cfg.Downloader,
		composer:    cfg.Composer,
		fs:          cfg.Fs,
		log:         cfg.Log,
		downloadDir: cfg.DownloadDir,
		language:    cfg.Language,
		excluded:    cfg.ExcludedUploaders,
	}
}

func (c *MangaController) SearchManga(ctx context.Context, query string, limit int) ([]*data.Manga, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("search query cannot be empty")
	}
	return c.source.Search(ctx, query, limit)
}

// GetManga fetches a manga from the source.
func (c *MangaController) GetManga(ctx context.Context, id string) (*data.Manga, error) {
	if id == "" {
		return nil, errors.New("manga id cannot be empty")
	}
	return c.source.GetManga(ctx, id)
}

// GetMangaFromLibrary returns a stored manga or an error when it is not in the library.
func (c *MangaController) GetMangaFromLibrary(id string) (*data.Manga, error) {
	if id == "" {
		return nil, errors.New("manga id cannot be empty")
	}
	manga, err := c.repo.GetManga(id)
	if err != nil {
		return nil, err
	}
	if manga == nil {
		return nil, fmt.Errorf("manga %s is not in the library", id)
	}
	return manga, nil
}

// FindMangaByName looks a library manga up by case-insensitive name.
func (c *MangaController) FindMangaByName(name string) (*data.Manga, error) {
	if name == "" {
		return nil, errors.New("manga name cannot be empty")
	}
	mangas, err := c.repo.ListMangas()
	if err != nil {
		return nil, err
	}
	for _, m := range mangas {
		if strings.EqualFold(m.Name, name) {
			return m, nil
		}
	}
	return nil, fmt.Errorf("manga %q is not in the library", name)
}

func (c *MangaController) ListLibrary() ([]*data.Manga, error) {
	return c.repo.ListMangas()
}

// GetChapters lists the chapters of a manga from the source.
func (c *MangaController) GetChapters(ctx context.Context, manga *data.Manga, language string) ([]*data.Chapter, error) {
	if manga == nil {
		return nil, errors.New("manga cannot be nil")
	}
	return c.source.GetChapters(ctx, manga, language)
}

// AddToLibrary stores a manga and the metadata of its chapters in the
// configured language. It returns the number of chapters stored. Adding a
// manga already in the library refreshes its metadata and keeps the library
// status and the download state of known chapters.
func (c *MangaController) AddToLibrary(ctx context.Context, manga *data.Manga) (int, error) {
	if manga == nil {
		return 0, errors.New("manga cannot be nil")
	}
	stored, err := c.repo.GetManga(manga.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to read library: %w", err)
	}
	if stored != nil && stored.Status != "" {
		manga.Status = stored.Status
	}
	if manga.Status == "" {
		manga.Status = "added"
	}
	if err := c.repo.SaveManga(manga); err != nil {
		return 0, fmt.Errorf("failed to save manga: %w", err)
	}

	chapters, err := c.source.GetChapters(ctx, manga, c.language)
	if err != nil {
		return 0, fmt.Errorf("failed to get chapters: %w", err)
	}
	known, err := c.repo.GetChapters(manga.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to read chapters: %w", err)
	}
	byID := lo.KeyBy(known, func(ch *data.Chapter) string { return ch.ID })
	for _, ch := range chapters {
		if prev, ok := byID[ch.ID]; ok {
			ch.Downloaded, ch.FilePath = prev.Downloaded, prev.FilePath
		}
		if err := c.repo.SaveChapter(ch); err != nil {
			return 0, fmt.Errorf("failed to save chapter %s: %w", ch.Number, err)
		}
	}
	return len(chapters), nil
}

// RemoveFromLibrary forgets a manga, deleting its files when deleteFiles is set.
func (c *MangaController) RemoveFromLibrary(mangaID string, deleteFiles bool) error {
	if deleteFiles {
		chapters, err := c.repo.GetChapters(mangaID)
		if err != nil {
			return err
		}
		for _, ch := range chapters {
			if ch.FilePath == "" {
				continue
			}
			if err := c.fs.RemoveAll(ch.FilePath); err != nil {
				return fmt.Errorf("failed to remove %s: %w", ch.FilePath, err)
			}
		}
	}
	return c.repo.DeleteManga(mangaID)
}

// DownloadManga downloads the selected chapters of a manga that are not on
// disk yet and returns how many were downloaded. Chapter failures do not stop
// the remaining chapters; they are returned joined.
func (c *MangaController) DownloadManga(ctx context.Context, mangaID string, opts DownloadOptions) (int, error) {
	if mangaID == "" {
		return 0, errors.New("manga id cannot be empty")
	}
	if opts.Language == "" {
		opts.Language = c.language
	}
	if opts.ExcludedUploaders == nil {
		opts.ExcludedUploaders = c.excluded
	}

	manga, err := c.repo.GetManga(mangaID)
	if err != nil {
		return 0, fmt.Errorf("failed to read library: %w", err)
	}
	if manga == nil {
		if manga, err = c.source.GetManga(ctx, mangaID); err != nil {
			return 0, fmt.Errorf("failed to get manga: %w", err)
		}
	}

	chapters, err := c.source.GetChapters(ctx, manga, opts.Language)
	if err != nil {
		return 0, fmt.Errorf("failed to get chapters: %w", err)
	}
	selected := SelectChapters(chapters, opts)
	if len(selected) == 0 {
		return 0, fmt.Errorf("%s: %w", manga.Name, ErrNoChapters)
	}

	manga.Status = "downloading"
	if err := c.repo.SaveManga(manga); err != nil {
		return 0, fmt.Errorf("failed to save manga: %w", err)
	}

	log := c.log.WithField("manga", manga.Name)
	var (
		downloaded int
		errs       []error
	)
	for _, ch := range selected {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}

		ok, err := c.downloadChapter(ctx, manga, ch, opts.Overwrite)
		if err != nil {
			log.WithField("chapter", ch.Number).WithError(err).Error("chapter download failed")
			errs = append(errs, fmt.Errorf("chapter %s: %w", ch.Number, err))
			continue
		}
		if ok {
			downloaded++
		}
	}

	manga.Status = "completed"
	if len(errs) > 0 {
		manga.Status = "partial"
	}
	if err := c.repo.SaveManga(manga); err != nil {
		errs = append(errs, fmt.Errorf("failed to save manga: %w", err))
	}
	log.WithField("downloaded", downloaded).Info("manga download finished")

	return downloaded, errors.Join(errs...)
}

// downloadChapter reports false when the chapter was already on disk.
func (c *MangaController) downloadChapter(ctx context.Context, manga *data.Manga, ch *data.Chapter, overwrite bool) (bool, error) {
	dir := ChapterDir(c.downloadDir, manga, ch)
	ch.MangaID = manga.ID

	exists, err := afero.DirExists(c.fs, dir)
	if err != nil {
		return false, fmt.Errorf("failed to inspect %s: %w", dir, err)
	}
	if exists && !overwrite {
		ch.Downloaded, ch.FilePath = true, dir
		c.downloader.sendProgress(DownloadProgress{
			MangaID:       manga.ID,
			ChapterID:     ch.ID,
			ChapterNumber: ch.Number,
			Status:        "skipped",
		})
		return false, c.repo.SaveChapter(ch)
	}
	if exists {
		if err := c.fs.RemoveAll(dir); err != nil {
			return false, fmt.Errorf("failed to clear %s: %w", dir, err)
		}
	}

	if err := c.repo.SaveChapter(ch); err != nil {
		return false, fmt.Errorf("failed to save chapter: %w", err)
	}
	c.downloader.sendProgress(DownloadProgress{
		MangaID:       manga.ID,
		ChapterID:     ch.ID,
		ChapterNumber: ch.Number,
		TotalPages:    ch.Pages,
		Status:        "downloading",
	})

	if err := c.downloader.DownloadChapter(ctx, ch.ID, dir); err != nil {
		if rmErr := c.fs.RemoveAll(dir); rmErr != nil {
			c.log.WithField("dir", dir).WithError(rmErr).Warn("failed to remove partial chapter")
		}
		return false, err
	}

	ch.Downloaded, ch.FilePath = true, dir
	if err := c.repo.UpdateChapterStatus(ch.ID, true, dir); err != nil {
		return false, fmt.Errorf("failed to update chapter status: %w", err)
	}
	return true, nil
}

// Updates downloads new chapters for each manga id. A manga with nothing left
// to download is not an error. The result maps manga ids to new chapter counts.
func (c *MangaController) Updates(ctx context.Context, mangaIDs []string, opts DownloadOptions) (map[string]int, error) {
	results := make(map[string]int, len(mangaIDs))
	var errs []error
	for _, id := range mangaIDs {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		n, err := c.DownloadManga(ctx, id, opts)
		results[id] = n
		if err != nil && !errors.Is(err, ErrNoChapters) {
			errs = append(errs, fmt.Errorf("manga %s: %w", id, err))
		}
	}
	return results, errors.Join(errs...)
}

// ComposeEPUB packages the downloaded chapters of a library manga.
func (c *MangaController) ComposeEPUB(mangaID string) (string, error) {
	manga, err := c.GetMangaFromLibrary(mangaID)
	if err != nil {
		return "", err
	}
	chapters, err := c.repo.GetChapters(mangaID)
	if err != nil {
		return "", fmt.Errorf("failed to get chapters: %w", err)
	}
	return c.composer.CreateEPub(manga, chapters)
}

func (c *MangaController) SaveManga(manga *data.Manga) error {
	if manga == nil {
		return errors.New("manga cannot be nil")
	}
	return c.repo.SaveManga(manga)
}

func (c *MangaController) SaveChapter(chapter *data.Chapter) error {
	if chapter == nil {
		return errors.New("chapter cannot be nil")
	}
	return c.repo.SaveChapter(chapter)
}

func (c *MangaController) UpdateChapterStatus(chapterID string, downloaded bool, filePath string) error {
	if chapterID == "" {
		return errors.New("chapter id cannot be empty")
	}
	return c.repo.UpdateChapterStatus(chapterID, downloaded, filePath)
}

// GetProgressChannel returns the downloader progress updates.
func (c *MangaController) GetProgressChannel() <-chan DownloadProgress {
	return c.downloader.GetProgressChannel()
}

func (c *MangaController) GetDownloadDirectory() string {
	return c.downloadDir
}

// Close stops progress reporting.
func (c *MangaController) Close() {
	if c.downloader != nil {
		c.downloader.Close()
	}
}
