package sources

import (
	"context"

	"github.com/kerbaras/mdex/pkg/data"
)

// Source maps a catalogue onto library models.
type Source interface {
	Search(ctx context.Context, query string, limit int) ([]*data.Manga, error)
	GetManga(ctx context.Context, id string) (*data.Manga, error)
	// GetChapters lists downloadable chapters; an empty language means all.
	GetChapters(ctx context.Context, manga *data.Manga, language string) ([]*data.Chapter, error)
}
