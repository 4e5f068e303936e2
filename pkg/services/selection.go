package services

import (
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/kerbaras/mdex/pkg/data"
	"github.com/kerbaras/mdex/pkg/integrations"
	"github.com/samber/lo"
)

// DefaultExcludedUploaders are accounts that publish official or externally
// hosted releases.
var DefaultExcludedUploaders = []string{"MangaDex", "comikey", "NotXunder", "AzukiTeam", "inkrcomics"}

type DownloadOptions struct {
	Language   string
	ChapterIDs []string
	// ChapterRange is "a-b", "a-", "-b" or a single number, bounds inclusive.
	ChapterRange      string
	ExcludedUploaders []string
	Overwrite         bool
}

// SelectChapters keeps the chapters worth downloading: numbered, in the
// requested language, not from an excluded uploader and inside the range. The
// result is sorted by chapter number with one chapter per number and language.
func SelectChapters(chapters []*data.Chapter, opts DownloadOptions) []*data.Chapter {
	selected := lo.Filter(chapters, func(ch *data.Chapter, _ int) bool {
		if ch == nil || ch.Number == "" {
			return false
		}
		if opts.Language != "" && !strings.EqualFold(ch.Language, opts.Language) {
			return false
		}
		if ch.Uploader != "" && lo.ContainsBy(opts.ExcludedUploaders, func(u string) bool {
			return strings.EqualFold(u, ch.Uploader)
		}) {
			return false
		}
		if len(opts.ChapterIDs) > 0 && !lo.Contains(opts.ChapterIDs, ch.ID) {
			return false
		}
		return true
	})

	selected = filterByRange(selected, opts.ChapterRange)

	slices.SortStableFunc(selected, func(a, b *data.Chapter) int {
		na, errA := strconv.ParseFloat(a.Number, 64)
		nb, errB := strconv.ParseFloat(b.Number, 64)
		switch {
		case errA != nil && errB != nil:
			return strings.Compare(a.Number, b.Number)
		case errA != nil:
			return 1
		case errB != nil:
			return -1
		case na < nb:
			return -1
		case na > nb:
			return 1
		}
		return 0
	})

	return lo.UniqBy(selected, func(ch *data.Chapter) string {
		return strings.ToLower(ch.Language) + "/" + numberKey(ch.Number)
	})
}

// numberKey makes "1" and "1.0" the same chapter.
func numberKey(number string) string {
	if n, err := strconv.ParseFloat(number, 64); err == nil {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return number
}

// filterByRange returns all chapters when rangeStr is empty or malformed.
func filterByRange(chapters []*data.Chapter, rangeStr string) []*data.Chapter {
	low, high, ok := parseRange(rangeStr)
	if !ok {
		return chapters
	}
	return lo.Filter(chapters, func(ch *data.Chapter, _ int) bool {
		n, err := strconv.ParseFloat(ch.Number, 64)
		return err == nil && n >= low && n <= high
	})
}

func parseRange(rangeStr string) (float64, float64, bool) {
	rangeStr = strings.TrimSpace(rangeStr)
	if rangeStr == "" {
		return 0, 0, false
	}

	start, end, isRange := strings.Cut(rangeStr, "-")
	if !isRange {
		n, err := strconv.ParseFloat(start, 64)
		return n, n, err == nil
	}

	low, high := 0.0, float64(1<<53)
	var err error
	if start = strings.TrimSpace(start); start != "" {
		if low, err = strconv.ParseFloat(start, 64); err != nil {
			return 0, 0, false
		}
	}
	if end = strings.TrimSpace(end); end != "" {
		if high, err = strconv.ParseFloat(end, 64); err != nil {
			return 0, 0, false
		}
	}
	if (start == "" && end == "") || low > high {
		return 0, 0, false
	}
	return low, high, true
}

// ChapterDir is where a chapter of manga is stored below root:
// <title>/<Volume N | No Volume>/<number>[ <chapter title>].
func ChapterDir(root string, manga *data.Manga, chapter *data.Chapter) string {
	volume := "No Volume"
	if chapter.Volume != "" {
		volume = integrations.SanitizeFilename("Volume " + chapter.Volume)
	}
	name := chapter.Number
	if chapter.Title != "" {
		name += " " + chapter.Title
	}
	title := manga.Name
	if title == "" {
		title = manga.ID
	}
	return filepath.Join(
		root,
		integrations.SanitizeFilename(title),
		volume,
		integrations.SanitizeFilename(name),
	)
}
