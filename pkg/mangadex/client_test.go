package mangadex

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger, _ := test.NewNullLogger()
	base := []Option{
		WithBaseURL(srv.URL),
		WithNetworkURL(srv.URL + "/network"),
		WithUploadsURL(srv.URL + "/uploads"),
		WithRateLimit(0),
		WithLogger(logger),
	}
	return NewClient(append(base, opts...)...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func mangaObject(id string, rels ...map[string]any) map[string]any {
	if rels == nil {
		rels = []map[string]any{}
	}
	return map[string]any{
		"id":   id,
		"type": "manga",
		"attributes": map[string]any{
			"title":            map[string]string{"en": "Manga " + id},
			"altTitles":        []map[string]string{},
			"description":      []any{},
			"originalLanguage": "JA",
			"status":           "ongoing",
			"year":             2020,
			"tags": []map[string]any{
				{"id": "tag-1", "type": "tag", "attributes": map[string]any{"name": map[string]string{"en": "Action"}, "group": "genre"}},
			},
			"createdAt": "2021-04-19T21:45:59+00:00",
		},
		"relationships": rels,
	}
}

func TestLogin(t *testing.T) {
	t.Run("stores tokens", func(t *testing.T) {
		var authHeader string
		mux := http.NewServeMux()
		mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "reader", body["username"])
			assert.Equal(t, "secret", body["password"])
			writeJSON(w, http.StatusOK, map[string]any{
				"result": "ok",
				"token":  map[string]string{"session": "sess-1", "refresh": "ref-1"},
			})
		})
		mux.HandleFunc("/auth/check", func(w http.ResponseWriter, r *http.Request) {
			authHeader = r.Header.Get("Authorization")
			writeJSON(w, http.StatusOK, map[string]any{"isAuthenticated": true})
		})
		c := newTestClient(t, mux)

		require.NoError(t, c.Login(t.Context(), "reader", "secret"))
		assert.True(t, c.LoggedIn())
		assert.Equal(t, Tokens{Session: "sess-1", Refresh: "ref-1"}, c.Tokens())

		ok, err := c.Check(t.Context())
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "Bearer sess-1", authHeader)
	})

	t.Run("wrong credentials", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{
				"result": "error",
				"errors": []map[string]string{{"title": "unauthorized", "detail": "bad credentials"}},
			})
		}))

		err := c.Login(t.Context(), "reader", "wrong")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrAuthentication)
		assert.False(t, c.LoggedIn())
		assert.Empty(t, c.Tokens().Session)

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
		assert.Equal(t, "bad credentials", apiErr.Detail())
	})

	t.Run("server error is generic", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(w, "maintenance")
		}))

		err := c.Login(t.Context(), "reader", "secret")
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.NotErrorIs(t, err, ErrAuthentication)
		assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
		assert.Equal(t, "maintenance", string(apiErr.Body))
	})
}

func TestLoginWithTokenAndRefresh(t *testing.T) {
	var refreshTokens []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/refresh", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		refreshTokens = append(refreshTokens, body["token"])
		// The second refresh omits a new refresh token.
		token := map[string]string{"session": "sess-" + strconv.Itoa(len(refreshTokens))}
		if len(refreshTokens) == 1 {
			token["refresh"] = "ref-new"
		}
		writeJSON(w, http.StatusOK, map[string]any{"token": token})
	}))

	assert.ErrorIs(t, c.Refresh(t.Context()), ErrNotLoggedIn)

	require.NoError(t, c.LoginWithToken(t.Context(), "ref-old"))
	require.NoError(t, c.Refresh(t.Context()))

	assert.Equal(t, []string{"ref-old", "ref-new"}, refreshTokens)
	assert.Equal(t, Tokens{Session: "sess-2", Refresh: "ref-new"}, c.Tokens())

	c.Logout()
	assert.False(t, c.LoggedIn())
	assert.Equal(t, Tokens{}, c.Tokens())
}

func TestCheckNon200(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	_, err := c.Check(t.Context())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
}

func TestAuthRequired(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request to %s", r.URL.Path)
	}))

	_, err := c.GetUser(t.Context(), "me")
	assert.ErrorIs(t, err, ErrNotLoggedIn)
	_, err = c.FollowedManga(t.Context(), 10)
	assert.ErrorIs(t, err, ErrNotLoggedIn)
	_, err = c.FollowedFeed(t.Context(), nil, 10)
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestGetManga(t *testing.T) {
	t.Run("resolved and bare relations", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/manga/m-1", r.URL.Path)
			assert.ElementsMatch(t, IncludeAll, r.URL.Query()["includes[]"])
			writeJSON(w, http.StatusOK, map[string]any{"data": mangaObject("m-1",
				map[string]any{"id": "a-1", "type": "author", "attributes": map[string]any{"name": "Kishimoto"}},
				map[string]any{"id": "a-2", "type": "artist"},
				map[string]any{"id": "c-1", "type": "cover_art", "attributes": map[string]any{"fileName": "cover.jpg", "volume": "1"}},
			)})
		}))

		m, err := c.GetManga(t.Context(), "m-1")
		require.NoError(t, err)
		assert.Equal(t, "Manga m-1", m.DisplayTitle())
		assert.Equal(t, "ja", m.OriginalLanguage)
		assert.Equal(t, 2020, m.Year)
		assert.Empty(t, m.Description)
		require.Len(t, m.Tags, 1)
		assert.Equal(t, "Action", m.Tags[0].Name["en"])
		assert.Equal(t, 2021, m.CreatedAt.Year())

		require.Len(t, m.Authors, 1)
		assert.True(t, m.Authors[0].Resolved())
		assert.Equal(t, "Kishimoto", m.Authors[0].Value.Name)

		require.Len(t, m.Artists, 1)
		assert.False(t, m.Artists[0].Resolved())
		assert.Equal(t, "a-2", m.Artists[0].ID)

		require.True(t, m.Cover.Resolved())
		assert.Equal(t, "m-1", m.Cover.Value.MangaID)
		assert.Equal(t, c.uploadsURL+"/covers/m-1/cover.jpg.512.jpg", c.CoverURL(*m.Cover.Value, 512))
	})

	t.Run("not found", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		_, err := c.GetManga(t.Context(), "missing")
		assert.ErrorIs(t, err, ErrNoContent)
	})

	t.Run("forbidden", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		_, err := c.GetManga(t.Context(), "m-1")
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.NotErrorIs(t, err, ErrNoContent)
		assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	})
}

func TestGetChapterRelations(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
			"id":   "ch-1",
			"type": "chapter",
			"attributes": map[string]any{
				"volume": "2", "chapter": "10.5", "title": "Extra",
				"translatedLanguage": "EN", "pages": 12,
				"publishAt": "2022-01-01T00:00:00+00:00",
			},
			"relationships": []map[string]any{
				{"id": "m-1", "type": "manga"},
				{"id": "g-1", "type": "scanlation_group", "attributes": map[string]any{"name": "Scans"}},
				{"id": "u-1", "type": "user", "attributes": map[string]any{"username": "uploader"}},
			},
		}})
	}))

	ch, err := c.GetChapter(t.Context(), "ch-1")
	require.NoError(t, err)
	assert.Equal(t, "10.5", ch.Number)
	assert.Equal(t, "en", ch.Language)
	assert.Equal(t, 12, ch.Pages)
	assert.Equal(t, "m-1", ch.Manga.ID)
	assert.False(t, ch.Manga.Resolved())
	require.Len(t, ch.Groups, 1)
	assert.Equal(t, "Scans", ch.Groups[0].Value.Name)
	require.True(t, ch.Uploader.Resolved())
	assert.Equal(t, "uploader", ch.Uploader.Value.Username)
}

func chapterObject(id string) map[string]any {
	return map[string]any{
		"id":            id,
		"type":          "chapter",
		"attributes":    map[string]any{"chapter": id, "translatedLanguage": "en"},
		"relationships": []any{},
	}
}

// pagedHandler serves total chapters with ids "0".."total-1".
func pagedHandler(t *testing.T, total int, mu *sync.Mutex, offsets *[]int, noContent map[int]bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
		require.NoError(t, err)
		offset, err := strconv.Atoi(r.URL.Query().Get("offset"))
		require.NoError(t, err)

		mu.Lock()
		*offsets = append(*offsets, offset)
		mu.Unlock()

		if noContent[offset] {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		var data []map[string]any
		for i := offset; i < offset+limit && i < total; i++ {
			data = append(data, chapterObject(strconv.Itoa(i)))
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"data": data, "limit": limit, "offset": offset, "total": total,
		})
	}
}

func TestPagination(t *testing.T) {
	t.Run("walks every page", func(t *testing.T) {
		var (
			mu      sync.Mutex
			offsets []int
		)
		c := newTestClient(t, pagedHandler(t, 250, &mu, &offsets, nil))

		chapters, err := c.SearchChapters(t.Context(), nil, 0)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 100, 200}, offsets)
		require.Len(t, chapters, 250)

		seen := map[string]bool{}
		for i, ch := range chapters {
			assert.Equal(t, strconv.Itoa(i), ch.ID, "server order kept")
			assert.False(t, seen[ch.ID], "duplicate id %s", ch.ID)
			seen[ch.ID] = true
		}
	})

	t.Run("no content page is skipped", func(t *testing.T) {
		var (
			mu      sync.Mutex
			offsets []int
		)
		c := newTestClient(t, pagedHandler(t, 250, &mu, &offsets, map[int]bool{100: true}))

		chapters, err := c.SearchChapters(t.Context(), nil, 0)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 100, 200}, offsets)
		assert.Len(t, chapters, 150)
		assert.Equal(t, "200", chapters[100].ID)
	})

	t.Run("limit caps results", func(t *testing.T) {
		var (
			mu      sync.Mutex
			offsets []int
		)
		c := newTestClient(t, pagedHandler(t, 250, &mu, &offsets, nil))

		chapters, err := c.SearchChapters(t.Context(), nil, 150)
		require.NoError(t, err)
		assert.Len(t, chapters, 150)
		assert.Equal(t, []int{0, 100}, offsets)

		offsets = nil
		chapters, err = c.SearchChapters(t.Context(), nil, 20)
		require.NoError(t, err)
		assert.Len(t, chapters, 20)
		assert.Equal(t, []int{0}, offsets)
	})

	t.Run("page size is capped", func(t *testing.T) {
		var (
			mu      sync.Mutex
			offsets []int
		)
		c := newTestClient(t, pagedHandler(t, 1200, &mu, &offsets, nil), WithPageSize(5000))

		chapters, err := c.SearchChapters(t.Context(), nil, 0)
		require.NoError(t, err)
		assert.Len(t, chapters, 1200)
		assert.Equal(t, []int{0, 500, 1000}, offsets)
	})

	t.Run("duplicates across pages are dropped", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			offset := r.URL.Query().Get("offset")
			// The second page repeats the last item of the first.
			data := []map[string]any{chapterObject("a"), chapterObject("b")}
			if offset == "2" {
				data = []map[string]any{chapterObject("b"), chapterObject("c")}
			}
			writeJSON(w, http.StatusOK, map[string]any{"data": data, "total": 4})
		}), WithPageSize(2))

		chapters, err := c.SearchChapters(t.Context(), nil, 0)
		require.NoError(t, err)
		ids := make([]string, len(chapters))
		for i, ch := range chapters {
			ids[i] = ch.ID
		}
		assert.Equal(t, []string{"a", "b", "c"}, ids)
	})

	t.Run("no results", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"data": []any{}, "total": 0})
		}))
		_, err := c.SearchManga(t.Context(), nil, 10)
		assert.ErrorIs(t, err, ErrNoResults)
		var apiErr *APIError
		assert.False(t, errors.As(err, &apiErr))
	})

	t.Run("first page no content", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
		_, err := c.SearchManga(t.Context(), nil, 0)
		assert.ErrorIs(t, err, ErrNoResults)
	})

	t.Run("error aborts", func(t *testing.T) {
		calls := 0
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if r.URL.Query().Get("offset") == "100" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = io.WriteString(w, `{"errors":[{"detail":"bad offset"}]}`)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"data": []any{chapterObject("x")}, "total": 300})
		}))

		_, err := c.SearchChapters(t.Context(), nil, 0)
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
		assert.Contains(t, apiErr.Error(), "bad offset")
		assert.Equal(t, 2, calls)
	})

	t.Run("rate limit between pages only", func(t *testing.T) {
		var (
			mu    sync.Mutex
			stamp []time.Time
		)
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			stamp = append(stamp, time.Now())
			mu.Unlock()
			offset := r.URL.Query().Get("offset")
			writeJSON(w, http.StatusOK, map[string]any{"data": []any{chapterObject(offset)}, "total": 2})
		})
		c := newTestClient(t, handler, WithPageSize(1), WithRateLimit(30*time.Millisecond))

		chapters, err := c.SearchChapters(t.Context(), nil, 0)
		require.NoError(t, err)
		assert.Len(t, chapters, 2)
		require.Len(t, stamp, 2)
		assert.GreaterOrEqual(t, stamp[1].Sub(stamp[0]), 30*time.Millisecond)
	})
}

func TestMangaFeedParams(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/manga/m-1/feed", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, []string{"en"}, q["translatedLanguage[]"])
		assert.Equal(t, []string{"user"}, q["includes[]"])
		assert.Equal(t, "100", q.Get("limit"))
		assert.Equal(t, "0", q.Get("offset"))
		writeJSON(w, http.StatusOK, map[string]any{"data": []any{chapterObject("1")}, "total": 1})
	}))

	params := map[string][]string{"translatedLanguage[]": {"en"}, "limit": {"7"}, "offset": {"9"}}
	chapters, err := c.MangaFeed(t.Context(), "m-1", params, []string{"user"})
	require.NoError(t, err)
	assert.Len(t, chapters, 1)
}

func TestGetChaptersBatches(t *testing.T) {
	var batches []int
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids := r.URL.Query()["ids[]"]
		batches = append(batches, len(ids))
		if len(batches) == 2 {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		data := make([]map[string]any, len(ids))
		for i, id := range ids {
			data[i] = chapterObject(id)
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": data, "total": len(ids)})
	}))

	ids := make([]string, 150)
	for i := range ids {
		ids[i] = fmt.Sprintf("ch-%d", i)
	}
	chapters, err := c.GetChapters(t.Context(), ids)
	require.NoError(t, err)
	assert.Equal(t, []int{100, 50}, batches)
	assert.Len(t, chapters, 100)
}

func TestTransformIDs(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/legacy/mapping", r.URL.Path)
		var body struct {
			Type string `json:"type"`
			IDs  []int  `json:"ids"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "manga", body.Type)
		assert.Equal(t, []int{1, 2}, body.IDs)
		writeJSON(w, http.StatusOK, map[string]any{"data": []map[string]any{
			{"attributes": map[string]any{"legacyId": 1, "newId": "uuid-1"}},
			{"attributes": map[string]any{"legacyId": 2, "newId": "uuid-2"}},
		}})
	}))

	mapping, err := c.TransformIDs(t.Context(), "manga", []int{1, 2})
	require.NoError(t, err)
	assert.Equal(t, map[int]string{1: "uuid-1", 2: "uuid-2"}, mapping)
}

func TestMangaAggregate(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, []string{"en"}, r.URL.Query()["translatedLanguage[]"])
		writeJSON(w, http.StatusOK, map[string]any{"volumes": map[string]any{
			"1":    map[string]any{"volume": "1", "count": 2, "chapters": map[string]any{"1": map[string]any{"chapter": "1", "id": "ch-1", "count": 1}}},
			"none": map[string]any{"volume": "none", "count": 0, "chapters": []any{}},
		}})
	}))

	volumes, err := c.MangaAggregate(t.Context(), "m-1", "en")
	require.NoError(t, err)
	require.Contains(t, volumes, "1")
	assert.Equal(t, "ch-1", volumes["1"].Chapters["1"].ID)
	assert.Empty(t, volumes["none"].Chapters)
}

func TestTags(t *testing.T) {
	tag := map[string]any{"id": "tag-1", "type": "tag", "attributes": map[string]any{"name": map[string]string{"en": "Action"}, "group": "genre"}}

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/manga/tag", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{"data": []any{tag}})
	}))
	tags, err := c.Tags(t.Context())
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "tag-1", tags[0].ID)
	assert.Equal(t, "genre", tags[0].Group)

	bare := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": []any{tag, map[string]any{"id": "tag-2", "type": "tag"}}})
	}))
	_, err = bare.Tags(t.Context())
	assert.ErrorContains(t, err, "tag tag-2 has no attributes")
}

func TestGetCustomList(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
			"id": "l-1", "type": "custom_list",
			"attributes": map[string]any{"name": "reading", "visibility": "public"},
			"relationships": []map[string]any{
				{"id": "m-1", "type": "manga"},
				{"id": "u-1", "type": "user"},
				{"id": "m-2", "type": "manga"},
			},
		}})
	}))

	l, err := c.GetCustomList(t.Context(), "l-1")
	require.NoError(t, err)
	assert.Equal(t, "reading", l.Name)
	assert.Equal(t, []string{"m-1", "m-2"}, l.MangaIDs())
	assert.Equal(t, "u-1", l.Owner.ID)
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	logger, _ := test.NewNullLogger()
	logger.SetLevel(logrus.TraceLevel)
	c := NewClient(WithBaseURL(srv.URL), WithLogger(logger))

	_, err := c.GetManga(t.Context(), "m-1")
	var tErr *TransportError
	require.ErrorAs(t, err, &tErr)
	assert.Contains(t, tErr.URL, "/manga/m-1")
}
