package integrations

import (
	"encoding/base64"
	"errors"
	"fmt"
	"html"
	"net/http"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/go-shiori/go-epub"
	"github.com/kerbaras/mdex/pkg/data"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// ErrNothingToCompile is returned when no chapter of a manga is on disk.
var ErrNothingToCompile = errors.New("no downloaded chapters to compile")

type EPubBuilder struct {
	fs        afero.Fs
	outputDir string
	processor *ImageProcessor
	log       logrus.FieldLogger
	language  string
}

// NewEPubBuilder writes books to outputDir on fs. Pages are added as
// downloaded unless WithProcessor is set.
func NewEPubBuilder(fs afero.Fs, outputDir string, log logrus.FieldLogger) *EPubBuilder {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &EPubBuilder{fs: fs, outputDir: outputDir, log: log, language: "en"}
}

// WithProcessor optimises every page with proc before it is added.
func (p *EPubBuilder) WithProcessor(proc *ImageProcessor) *EPubBuilder {
	p.processor = proc
	return p
}

// WithLanguage sets the book language metadata.
func (p *EPubBuilder) WithLanguage(lang string) *EPubBuilder {
	if lang != "" {
		p.language = lang
	}
	return p
}

// CreateEPub compiles the downloaded chapters of a manga into a single EPub
// file named after the manga and returns its path.
func (p *EPubBuilder) CreateEPub(manga *data.Manga, chapters []*data.Chapter) (string, error) {
	if manga == nil {
		return "", errors.New("manga cannot be nil")
	}

	downloaded := make([]*data.Chapter, 0, len(chapters))
	for _, ch := range chapters {
		if ch != nil && ch.Downloaded && ch.FilePath != "" {
			downloaded = append(downloaded, ch)
		}
	}
	if len(downloaded) == 0 {
		return "", ErrNothingToCompile
	}
	slices.SortStableFunc(downloaded, compareChapters)

	title := manga.Name
	if title == "" {
		title = manga.ID
	}
	e, err := epub.NewEpub(title)
	if err != nil {
		return "", fmt.Errorf("failed to create EPub: %w", err)
	}
	e.SetAuthor("MangaDex")
	if manga.Description != "" {
		e.SetDescription(manga.Description)
	}
	e.SetLang(p.language)
	e.SetIdentifier("urn:mangadex:" + manga.ID)

	for i, chapter := range downloaded {
		if err := p.addChapter(e, i, chapter); err != nil {
			return "", fmt.Errorf("failed to add chapter %s: %w", chapter.Number, err)
		}
	}

	if err := p.fs.MkdirAll(p.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(p.outputDir, SanitizeFilename(title)+".epub")

	f, err := p.fs.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", outputPath, err)
	}
	if _, err := e.WriteTo(f); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write EPub: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write EPub: %w", err)
	}

	p.log.WithFields(logrus.Fields{
		"manga":    title,
		"chapters": len(downloaded),
		"path":     outputPath,
	}).Info("epub written")
	return outputPath, nil
}

// addChapter adds the pages of one chapter as a section.
func (p *EPubBuilder) addChapter(e *epub.Epub, index int, chapter *data.Chapter) error {
	entries, err := afero.ReadDir(p.fs, chapter.FilePath)
	if err != nil {
		return fmt.Errorf("failed to read chapter directory: %w", err)
	}

	var pages []string
	for _, entry := range entries {
		if !entry.IsDir() && isImageFile(entry.Name()) {
			pages = append(pages, entry.Name())
		}
	}
	if len(pages) == 0 {
		return fmt.Errorf("no images found in %s", chapter.FilePath)
	}
	slices.Sort(pages)

	var body strings.Builder
	fmt.Fprintf(&body, "<h1>%s</h1>\n", html.EscapeString(chapterTitle(chapter)))

	for i, name := range pages {
		source, ext, err := p.pageSource(filepath.Join(chapter.FilePath, name))
		if err != nil {
			return err
		}
		internal, err := e.AddImage(source, fmt.Sprintf("c%04d_p%04d%s", index+1, i+1, ext))
		if err != nil {
			return fmt.Errorf("failed to add image %s: %w", name, err)
		}
		fmt.Fprintf(&body,
			`<div class="page"><img src="%s" alt="Page %d" style="width:100%%;height:auto;"/></div>%s`,
			internal, i+1, "\n",
		)
	}

	if _, err := e.AddSection(body.String(), chapterTitle(chapter), "", ""); err != nil {
		return fmt.Errorf("failed to add section: %w", err)
	}
	return nil
}

// pageSource reads a page from the filesystem and returns it as a data URI
// along with the extension it should be stored under.
func (p *EPubBuilder) pageSource(path string) (string, string, error) {
	content, err := afero.ReadFile(p.fs, path)
	if err != nil {
		return "", "", fmt.Errorf("failed to read page: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if p.processor != nil {
		processed, err := p.processor.ProcessBytes(content)
		if err != nil {
			p.log.WithField("page", path).WithError(err).Warn("keeping unprocessed page")
		} else {
			content, ext = processed, p.processor.Extension()
		}
	}

	mime := http.DetectContentType(content)
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(content), ext, nil
}

func chapterTitle(chapter *data.Chapter) string {
	title := fmt.Sprintf("Chapter %s", chapter.Number)
	if chapter.Volume != "" && chapter.Volume != "0" {
		title = fmt.Sprintf("Vol. %s, %s", chapter.Volume, title)
	}
	if chapter.Title != "" {
		title = fmt.Sprintf("%s: %s", title, chapter.Title)
	}
	return title
}

// compareChapters orders by volume, then number. Chapters without a volume
// come first, as MangaDex lists them.
func compareChapters(a, b *data.Chapter) int {
	if c := compareNumeric(a.Volume, b.Volume); c != 0 {
		return c
	}
	return compareNumeric(a.Number, b.Number)
}

func compareNumeric(a, b string) int {
	na, errA := strconv.ParseFloat(a, 64)
	nb, errB := strconv.ParseFloat(b, 64)
	switch {
	case errA != nil && errB != nil:
		return strings.Compare(a, b)
	case errA != nil:
		return -1
	case errB != nil:
		return 1
	case na < nb:
		return -1
	case na > nb:
		return 1
	}
	return 0
}

// isImageFile checks if a file has an image extension
func isImageFile(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return true
	}
	return false
}

// SanitizeFilename removes characters that are invalid in filenames
func SanitizeFilename(name string) string {
	invalid := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|"}
	result := name
	for _, char := range invalid {
		result = strings.ReplaceAll(result, char, "_")
	}
	result = strings.TrimSpace(result)
	result = strings.Trim(result, ".")
	return result
}
