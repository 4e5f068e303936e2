package components

import (
	"errors"
	"strings"
	"testing"

	"github.com/kerbaras/mdex/pkg/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProgressTracker(t *testing.T) {
	tracker := NewProgressTracker(80)

	require.NotNil(t, tracker)
	assert.Equal(t, 80, tracker.width)
	assert.Equal(t, 50, tracker.bar.Width)
	assert.False(t, tracker.HasActive())

	tracker.SetWidth(20)
	assert.Equal(t, 10, tracker.bar.Width)
}

func TestProgressTracker_Update(t *testing.T) {
	tracker := NewProgressTracker(80)

	tracker.Update(services.DownloadProgress{MangaID: "manga-1", ChapterID: "ch-1", ChapterNumber: "7", Status: "downloading", TotalPages: 10})
	// Page events from the downloader carry only the chapter id.
	tracker.Update(services.DownloadProgress{ChapterID: "ch-1", Status: "downloading", CurrentPage: 5, TotalPages: 10})

	require.True(t, tracker.HasActive())
	event := tracker.downloads["ch-1"]
	assert.Equal(t, "7", event.ChapterNumber)
	assert.Equal(t, "manga-1", event.MangaID)
	assert.Equal(t, 5, event.CurrentPage)
	assert.Equal(t, []string{"ch-1"}, tracker.order)
}

func TestProgressTracker_IgnoresEventsWithoutChapter(t *testing.T) {
	tracker := NewProgressTracker(80)
	tracker.Update(services.DownloadProgress{Status: "downloading"})
	assert.False(t, tracker.HasActive())
}

func TestProgressTracker_TerminalStates(t *testing.T) {
	tracker := NewProgressTracker(80)

	for _, id := range []string{"ch-1", "ch-2", "ch-3"} {
		tracker.Update(services.DownloadProgress{ChapterID: id, ChapterNumber: strings.TrimPrefix(id, "ch-"), Status: "downloading"})
	}
	tracker.Update(services.DownloadProgress{ChapterID: "ch-1", Status: "complete"})
	tracker.Update(services.DownloadProgress{ChapterID: "ch-3", Status: "error", Error: errors.New("node gone")})
	tracker.Update(services.DownloadProgress{ChapterID: "ch-4", ChapterNumber: "4", Status: "skipped"})

	completed, skipped, failed := tracker.Counts()
	assert.Equal(t, 1, completed)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, 1, failed)
	assert.Equal(t, []string{"ch-2"}, tracker.order)
	assert.Equal(t, []string{"Chapter 3: node gone"}, tracker.failures)

	tracker.Clear()
	assert.False(t, tracker.HasActive())
	completed, skipped, failed = tracker.Counts()
	assert.Zero(t, completed+skipped+failed)
}

func TestProgressTracker_View(t *testing.T) {
	tracker := NewProgressTracker(80)

	assert.Contains(t, tracker.View(), "0 downloaded")

	tracker.Update(services.DownloadProgress{ChapterID: "ch-1", ChapterNumber: "12", Status: "downloading", CurrentPage: 3, TotalPages: 12})
	tracker.Update(services.DownloadProgress{ChapterID: "ch-2", Status: "downloading"})
	tracker.Update(services.DownloadProgress{ChapterID: "ch-3", ChapterNumber: "9", Status: "error", Error: errors.New("boom")})

	view := tracker.View()
	assert.Contains(t, view, "Chapter 12")
	assert.Contains(t, view, "3/12")
	assert.Contains(t, view, "Chapter ch-2")
	assert.Contains(t, view, "Chapter 9: boom")
	assert.Contains(t, view, "1 failed")
	assert.Less(t, strings.Index(view, "Chapter 12"), strings.Index(view, "Chapter ch-2"))
}
