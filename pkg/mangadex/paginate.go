package mangadex

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

type listDocument struct {
	Data   []entity `json:"data"`
	Limit  int      `json:"limit"`
	Offset int      `json:"offset"`
	Total  int      `json:"total"`
}

// retrieve walks an offset/limit listing until the server total is reached or
// limit items were collected (limit <= 0 means no cap). Items keep server
// order; an id seen on an earlier page is dropped.
func retrieve[T any](ctx context.Context, c *Client, path string, params url.Values, limit int, parse func(entity) (T, error)) ([]T, error) {
	query := url.Values{}
	for k, v := range params {
		query[k] = append([]string(nil), v...)
	}
	query.Del("limit")
	query.Del("offset")

	pageSize := c.pageSize
	if limit > 0 && limit < pageSize {
		pageSize = limit
	}

	var (
		items  []entity
		total  = -1
		offset = 0
	)
	for {
		query.Set("limit", strconv.Itoa(pageSize))
		query.Set("offset", strconv.Itoa(offset))

		resp, err := c.send(ctx, http.MethodGet, path, query, nil)
		if err != nil {
			return nil, err
		}

		switch resp.StatusCode {
		case http.StatusOK:
			var doc listDocument
			if err := resp.decode(&doc); err != nil {
				return nil, err
			}
			items = lo.UniqBy(append(items, doc.Data...), func(e entity) string { return e.ID })
			total = doc.Total
		case http.StatusNoContent:
			// nothing on this page
		default:
			return nil, newAPIError(resp.Response, resp.body, nil)
		}

		c.log.WithFields(logrus.Fields{
			"path":   path,
			"offset": offset,
			"total":  total,
			"count":  len(items),
		}).Debug("listing page fetched")

		if limit > 0 && len(items) >= limit {
			items = items[:limit]
			break
		}
		if total < 0 || total <= offset+pageSize {
			break
		}
		offset += pageSize
		if err := c.wait(ctx); err != nil {
			return nil, err
		}
	}

	if len(items) == 0 {
		return nil, ErrNoResults
	}

	out := make([]T, 0, len(items))
	for _, e := range items {
		v, err := parse(e)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// MangaFeed returns every chapter of a manga. Relations default to IncludeAll.
func (c *Client) MangaFeed(ctx context.Context, mangaID string, params url.Values, includes []string) ([]Chapter, error) {
	query := mergeValues(params, includesParams(includes))
	return retrieve(ctx, c, "/manga/"+url.PathEscape(mangaID)+"/feed", query, 0, parseChapter)
}

// MangaCovers returns every cover of a manga.
func (c *Client) MangaCovers(ctx context.Context, mangaID string, params url.Values) ([]Cover, error) {
	query := mergeValues(params, url.Values{"manga[]": {mangaID}})
	return retrieve(ctx, c, "/cover", query, 0, parseCover)
}

func (c *Client) SearchManga(ctx context.Context, params url.Values, limit int) ([]Manga, error) {
	return retrieve(ctx, c, "/manga", params, limit, parseManga)
}

func (c *Client) SearchChapters(ctx context.Context, params url.Values, limit int) ([]Chapter, error) {
	return retrieve(ctx, c, "/chapter", params, limit, parseChapter)
}

func (c *Client) SearchGroups(ctx context.Context, params url.Values, limit int) ([]Group, error) {
	return retrieve(ctx, c, "/group", params, limit, parseGroup)
}

func (c *Client) SearchAuthors(ctx context.Context, params url.Values, limit int) ([]Author, error) {
	return retrieve(ctx, c, "/author", params, limit, parseAuthor)
}

func (c *Client) SearchCovers(ctx context.Context, params url.Values, limit int) ([]Cover, error) {
	return retrieve(ctx, c, "/cover", params, limit, parseCover)
}

func (c *Client) SearchUsers(ctx context.Context, params url.Values, limit int) ([]User, error) {
	return retrieve(ctx, c, "/user", params, limit, parseUser)
}

// FollowedManga lists the manga followed by the logged in user.
func (c *Client) FollowedManga(ctx context.Context, limit int) ([]Manga, error) {
	if err := c.requireLogin(); err != nil {
		return nil, err
	}
	return retrieve(ctx, c, "/user/follows/manga", nil, limit, parseManga)
}

// FollowedFeed lists recent chapters of the manga followed by the logged in user.
func (c *Client) FollowedFeed(ctx context.Context, params url.Values, limit int) ([]Chapter, error) {
	if err := c.requireLogin(); err != nil {
		return nil, err
	}
	return retrieve(ctx, c, "/user/follows/manga/feed", params, limit, parseChapter)
}

func mergeValues(sets ...url.Values) url.Values {
	out := url.Values{}
	for _, set := range sets {
		for k, v := range set {
			out[k] = append(out[k], v...)
		}
	}
	return out
}
