package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/kerbaras/mdex/pkg/app/styles"
	"github.com/kerbaras/mdex/pkg/services"
)

// ProgressTracker folds download progress events into per-chapter bars.
type ProgressTracker struct {
	order     []string
	downloads map[string]*services.DownloadProgress
	bar       progress.Model
	width     int

	completed int
	skipped   int
	failures  []string
}

func NewProgressTracker(width int) *ProgressTracker {
	t := &ProgressTracker{
		downloads: make(map[string]*services.DownloadProgress),
		bar:       progress.New(progress.WithGradient(string(styles.Secondary), string(styles.Primary))),
	}
	t.SetWidth(width)
	return t
}

func (p *ProgressTracker) SetWidth(width int) {
	p.width = width
	p.bar.Width = max(10, width-30)
}

// Update applies one event. Events without a chapter id are ignored.
func (p *ProgressTracker) Update(event services.DownloadProgress) {
	key := event.ChapterID
	if key == "" {
		return
	}

	current, active := p.downloads[key]
	if active {
		// Downloader events carry no chapter number.
		if event.ChapterNumber == "" {
			event.ChapterNumber = current.ChapterNumber
		}
		if event.MangaID == "" {
			event.MangaID = current.MangaID
		}
	}

	switch event.Status {
	case "complete":
		p.completed++
		p.remove(key)
	case "skipped":
		p.skipped++
		p.remove(key)
	case "error":
		msg := fmt.Sprintf("Chapter %s", chapterLabel(&event))
		if event.Error != nil {
			msg += ": " + event.Error.Error()
		}
		p.failures = append(p.failures, msg)
		p.remove(key)
	default:
		if !active {
			p.order = append(p.order, key)
		}
		p.downloads[key] = &event
	}
}

func (p *ProgressTracker) remove(key string) {
	if _, ok := p.downloads[key]; !ok {
		return
	}
	delete(p.downloads, key)
	for i, k := range p.order {
		if k == key {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

func (p *ProgressTracker) Clear() {
	p.order = nil
	p.downloads = make(map[string]*services.DownloadProgress)
	p.completed, p.skipped, p.failures = 0, 0, nil
}

func (p *ProgressTracker) HasActive() bool {
	return len(p.downloads) > 0
}

// Counts returns how many chapters completed, were skipped and failed.
func (p *ProgressTracker) Counts() (completed, skipped, failed int) {
	return p.completed, p.skipped, len(p.failures)
}

func (p *ProgressTracker) View() string {
	var b strings.Builder

	for _, key := range p.order {
		event := p.downloads[key]
		b.WriteString(styles.TextStyle.Render(fmt.Sprintf("Chapter %-8s", chapterLabel(event))))
		b.WriteString(" ")
		if event.TotalPages > 0 {
			b.WriteString(p.bar.ViewAs(float64(event.CurrentPage) / float64(event.TotalPages)))
			b.WriteString(styles.MutedStyle.Render(fmt.Sprintf(" %d/%d", event.CurrentPage, event.TotalPages)))
		} else {
			b.WriteString(styles.StatusStyle(event.Status).Render(event.Status))
		}
		b.WriteString("\n")
	}

	for _, failure := range p.failures {
		b.WriteString(styles.StatusError.Render(failure))
		b.WriteString("\n")
	}

	summary := fmt.Sprintf("%s %s %s",
		styles.StatusCompleted.Render(fmt.Sprintf("%d downloaded", p.completed)),
		styles.StatusSkipped.Render(fmt.Sprintf("%d skipped", p.skipped)),
		styles.StatusStyle("error").Render(fmt.Sprintf("%d failed", len(p.failures))),
	)
	b.WriteString(summary)
	return b.String()
}

func chapterLabel(event *services.DownloadProgress) string {
	if event.ChapterNumber != "" {
		return event.ChapterNumber
	}
	return event.ChapterID
}
