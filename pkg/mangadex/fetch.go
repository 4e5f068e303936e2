package mangadex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/samber/lo"
)

// chapterBatch is the number of ids the /chapter endpoint accepts per call.
const chapterBatch = 100

// GetManga fetches one manga. Relations default to IncludeAll.
func (c *Client) GetManga(ctx context.Context, id string, includes ...string) (*Manga, error) {
	e, err := c.fetchEntity(ctx, "/manga/"+url.PathEscape(id), includesParams(includes))
	if err != nil {
		return nil, err
	}
	m, err := parseManga(e)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// RandomManga fetches a random manga.
func (c *Client) RandomManga(ctx context.Context, includes ...string) (*Manga, error) {
	e, err := c.fetchEntity(ctx, "/manga/random", includesParams(includes))
	if err != nil {
		return nil, err
	}
	m, err := parseManga(e)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetChapter fetches one chapter. Relations default to IncludeAll.
func (c *Client) GetChapter(ctx context.Context, id string, includes ...string) (*Chapter, error) {
	e, err := c.fetchEntity(ctx, "/chapter/"+url.PathEscape(id), includesParams(includes))
	if err != nil {
		return nil, err
	}
	ch, err := parseChapter(e)
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

// GetChapters fetches chapters by id, batching the ids. Pages answered with
// 204 are skipped.
func (c *Client) GetChapters(ctx context.Context, ids []string, includes ...string) ([]Chapter, error) {
	var out []Chapter
	batches := lo.Chunk(ids, chapterBatch)
	for i, batch := range batches {
		query := mergeValues(url.Values{"ids[]": batch}, includesParams(includes))
		query.Set("limit", strconv.Itoa(chapterBatch))

		resp, err := c.send(ctx, http.MethodGet, "/chapter", query, nil)
		if err != nil {
			return nil, err
		}
		switch resp.StatusCode {
		case http.StatusOK:
			var doc listDocument
			if err := resp.decode(&doc); err != nil {
				return nil, err
			}
			for _, e := range doc.Data {
				ch, err := parseChapter(e)
				if err != nil {
					return nil, err
				}
				out = append(out, ch)
			}
		case http.StatusNoContent:
		default:
			return nil, newAPIError(resp.Response, resp.body, nil)
		}

		if i < len(batches)-1 {
			if err := c.wait(ctx); err != nil {
				return nil, err
			}
		}
	}
	if len(out) == 0 {
		return nil, ErrNoResults
	}
	return out, nil
}

func (c *Client) GetCover(ctx context.Context, id string) (*Cover, error) {
	e, err := c.fetchEntity(ctx, "/cover/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	cv, err := parseCover(e)
	if err != nil {
		return nil, err
	}
	return &cv, nil
}

// CoverURL resolves a cover image on the configured uploads host.
func (c *Client) CoverURL(cv Cover, size int) string {
	return cv.FileURL(c.uploadsURL, size)
}

// GetGroup fetches one scanlation group. Relations default to IncludeAll.
func (c *Client) GetGroup(ctx context.Context, id string, includes ...string) (*Group, error) {
	e, err := c.fetchEntity(ctx, "/group/"+url.PathEscape(id), includesParams(includes))
	if err != nil {
		return nil, err
	}
	g, err := parseGroup(e)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// GetUser fetches a user. The id "me" resolves to the logged in user and
// requires a session.
func (c *Client) GetUser(ctx context.Context, id string) (*User, error) {
	if id == "me" {
		if err := c.requireLogin(); err != nil {
			return nil, err
		}
	}
	e, err := c.fetchEntity(ctx, "/user/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	u, err := parseUser(e)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) GetAuthor(ctx context.Context, id string) (*Author, error) {
	e, err := c.fetchEntity(ctx, "/author/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	a, err := parseAuthor(e)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetArtist is GetAuthor: artists are authors in the API.
func (c *Client) GetArtist(ctx context.Context, id string) (*Author, error) {
	return c.GetAuthor(ctx, id)
}

// GetCustomList fetches a user list; its manga relations are ids only.
func (c *Client) GetCustomList(ctx context.Context, id string) (*CustomList, error) {
	e, err := c.fetchEntity(ctx, "/list/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	l, err := parseCustomList(e)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Tags returns every manga tag.
func (c *Client) Tags(ctx context.Context) ([]Tag, error) {
	resp, err := c.send(ctx, http.MethodGet, "/manga/tag", nil, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp.Response, resp.body, nil)
	}
	var doc listDocument
	if err := resp.decode(&doc); err != nil {
		return nil, err
	}
	if len(doc.Data) == 0 {
		return nil, ErrNoResults
	}
	tags := make([]Tag, 0, len(doc.Data))
	for _, e := range doc.Data {
		t, err := parseTag(e)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, nil
}

// AggregateChapter is one chapter entry of a manga aggregate.
type AggregateChapter struct {
	Chapter string   `json:"chapter"`
	ID      string   `json:"id"`
	Others  []string `json:"others"`
	Count   int      `json:"count"`
}

type AggregateVolume struct {
	Volume   string                      `json:"volume"`
	Count    int                         `json:"count"`
	Chapters map[string]AggregateChapter `json:"-"`
}

// UnmarshalJSON tolerates the empty array the API sends for chapter-less volumes.
func (v *AggregateVolume) UnmarshalJSON(b []byte) error {
	var raw struct {
		Volume   string          `json:"volume"`
		Count    int             `json:"count"`
		Chapters json.RawMessage `json:"chapters"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	v.Volume, v.Count = raw.Volume, raw.Count
	v.Chapters = map[string]AggregateChapter{}
	return decodeObjectOrArray(raw.Chapters, &v.Chapters)
}

// MangaAggregate returns volumes and chapter ids of a manga, optionally
// restricted to translated languages.
func (c *Client) MangaAggregate(ctx context.Context, mangaID string, languages ...string) (map[string]AggregateVolume, error) {
	var query url.Values
	if len(languages) > 0 {
		query = url.Values{"translatedLanguage[]": languages}
	}
	resp, err := c.send(ctx, http.MethodGet, "/manga/"+url.PathEscape(mangaID)+"/aggregate", query, nil)
	if err != nil {
		return nil, err
	}
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, newAPIError(resp.Response, resp.body, ErrNoContent)
	default:
		return nil, newAPIError(resp.Response, resp.body, nil)
	}

	var doc struct {
		Volumes json.RawMessage `json:"volumes"`
	}
	if err := resp.decode(&doc); err != nil {
		return nil, err
	}
	volumes := map[string]AggregateVolume{}
	if err := decodeObjectOrArray(doc.Volumes, &volumes); err != nil {
		return nil, fmt.Errorf("failed to decode aggregate: %w", err)
	}
	return volumes, nil
}

// TransformIDs maps legacy numeric ids of kind (manga, chapter, group, tag)
// to their current uuids.
func (c *Client) TransformIDs(ctx context.Context, kind string, ids []int) (map[int]string, error) {
	payload := map[string]any{"type": kind, "ids": ids}
	resp, err := c.send(ctx, http.MethodPost, "/legacy/mapping", nil, payload)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp.Response, resp.body, nil)
	}

	var doc struct {
		Data []struct {
			Attributes struct {
				LegacyID int    `json:"legacyId"`
				NewID    string `json:"newId"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := resp.decode(&doc); err != nil {
		return nil, err
	}
	out := make(map[int]string, len(doc.Data))
	for _, d := range doc.Data {
		out[d.Attributes.LegacyID] = d.Attributes.NewID
	}
	return out, nil
}

func decodeObjectOrArray(raw json.RawMessage, v any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] == '[' || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return json.Unmarshal(trimmed, v)
}
