package sources

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/kerbaras/mdex/pkg/data"
	"github.com/kerbaras/mdex/pkg/mangadex"
	"github.com/samber/lo"
)

const sourceName = "mangadex"

type MangaDex struct {
	client *mangadex.Client
}

func NewMangaDex(client *mangadex.Client) *MangaDex {
	return &MangaDex{client: client}
}

// Client exposes the underlying API client.
func (m *MangaDex) Client() *mangadex.Client {
	return m.client
}

func (m *MangaDex) Search(ctx context.Context, query string, limit int) ([]*data.Manga, error) {
	params := url.Values{
		"title":            {query},
		"includes[]":       {"cover_art"},
		"order[relevance]": {"desc"},
	}
	found, err := m.client.SearchManga(ctx, params, limit)
	if errors.Is(err, mangadex.ErrNoResults) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to search %q: %w", query, err)
	}
	return lo.Map(found, func(md mangadex.Manga, _ int) *data.Manga {
		return m.toManga(&md)
	}), nil
}

func (m *MangaDex) GetManga(ctx context.Context, id string) (*data.Manga, error) {
	md, err := m.client.GetManga(ctx, id, "cover_art", "author")
	if err != nil {
		return nil, fmt.Errorf("failed to get manga %s: %w", id, err)
	}
	return m.toManga(md), nil
}

// GetChapters returns the feed of a manga in reading order. Chapters hosted
// off-site carry no pages and are left out.
func (m *MangaDex) GetChapters(ctx context.Context, manga *data.Manga, language string) ([]*data.Chapter, error) {
	if manga == nil {
		return nil, errors.New("manga cannot be nil")
	}
	params := url.Values{
		"order[volume]":  {"asc"},
		"order[chapter]": {"asc"},
	}
	if language != "" {
		params.Set("translatedLanguage[]", language)
	}

	feed, err := m.client.MangaFeed(ctx, manga.ID, params, []string{"user", "scanlation_group"})
	if errors.Is(err, mangadex.ErrNoResults) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chapters of %s: %w", manga.ID, err)
	}

	hosted := lo.Filter(feed, func(ch mangadex.Chapter, _ int) bool {
		return ch.ExternalURL == ""
	})
	return lo.Map(hosted, func(ch mangadex.Chapter, _ int) *data.Chapter {
		return toChapter(manga.ID, &ch)
	}), nil
}

// ListMangaIDs returns the manga ids of a custom list, in list order.
func (m *MangaDex) ListMangaIDs(ctx context.Context, listID string) ([]string, error) {
	list, err := m.client.GetCustomList(ctx, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to get list %s: %w", listID, err)
	}
	return list.MangaIDs(), nil
}

// FollowedMangaIDs returns the ids of every manga the logged in user follows.
func (m *MangaDex) FollowedMangaIDs(ctx context.Context) ([]string, error) {
	followed, err := m.client.FollowedManga(ctx, 0)
	if errors.Is(err, mangadex.ErrNoResults) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get followed manga: %w", err)
	}
	return lo.Map(followed, func(md mangadex.Manga, _ int) string { return md.ID }), nil
}

func (m *MangaDex) toManga(md *mangadex.Manga) *data.Manga {
	out := &data.Manga{
		ID:          md.ID,
		Name:        md.DisplayTitle(),
		Description: md.Description.Any("en"),
		Source:      sourceName,
		UpdatedAt:   md.UpdatedAt,
	}
	if md.Cover.Resolved() {
		out.CoverURL = m.client.CoverURL(*md.Cover.Value, 512)
	}
	return out
}

func toChapter(mangaID string, ch *mangadex.Chapter) *data.Chapter {
	out := &data.Chapter{
		ID:       ch.ID,
		MangaID:  mangaID,
		Title:    ch.Title,
		Language: ch.Language,
		Volume:   ch.Volume,
		Number:   ch.Number,
		Pages:    ch.Pages,
	}
	if ch.Uploader.Resolved() {
		out.Uploader = ch.Uploader.Value.Username
	}
	return out
}
