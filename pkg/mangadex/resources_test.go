package mangadex

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalizedString(t *testing.T) {
	var empty LocalizedString
	require.NoError(t, json.Unmarshal([]byte(`[]`), &empty))
	assert.Empty(t, empty)
	assert.Equal(t, "", empty.Any())

	var l LocalizedString
	require.NoError(t, json.Unmarshal([]byte(`{"ko":"한국어","fr":"","de":"Deutsch"}`), &l))

	v, ok := l.Get("en", "ko")
	assert.True(t, ok)
	assert.Equal(t, "한국어", v)

	_, ok = l.Get("fr")
	assert.False(t, ok, "empty translations do not count")

	assert.Equal(t, "Deutsch", l.Any("en"))
}

func TestDisplayTitle(t *testing.T) {
	tests := []struct {
		name  string
		manga Manga
		want  string
	}{
		{
			name:  "english first",
			manga: Manga{Title: LocalizedString{"ja": "進撃の巨人", "en": "Attack on Titan"}},
			want:  "Attack on Titan",
		},
		{
			name:  "romaji before japanese",
			manga: Manga{Title: LocalizedString{"ja": "進撃の巨人", "ja-ro": "Shingeki no Kyojin"}},
			want:  "Shingeki no Kyojin",
		},
		{
			name: "alt title",
			manga: Manga{
				Title:     LocalizedString{"zh": "进击的巨人"},
				AltTitles: []LocalizedString{{"de": "Angriff"}, {"fr": "L'Attaque des Titans"}},
			},
			want: "L'Attaque des Titans",
		},
		{
			name:  "any language",
			manga: Manga{Title: LocalizedString{"zh": "进击的巨人"}},
			want:  "进击的巨人",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.manga.DisplayTitle())
		})
	}
}

func TestCoverFileURL(t *testing.T) {
	cv := Cover{MangaID: "m-1", FileName: "f.png"}
	assert.Equal(t, "https://uploads/covers/m-1/f.png", cv.FileURL("https://uploads/", 0))
	assert.Equal(t, "https://uploads/covers/m-1/f.png.256.jpg", cv.FileURL("https://uploads", 256))
}

func TestParseCoverMangaRelation(t *testing.T) {
	var e entity
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": "c-1", "type": "cover_art",
		"attributes": {"fileName": "f.jpg", "volume": "3"},
		"relationships": [{"id": "u-1", "type": "user"}, {"id": "m-9", "type": "manga"}]
	}`), &e))

	cv, err := parseCover(e)
	require.NoError(t, err)
	assert.Equal(t, "m-9", cv.MangaID)
	assert.Equal(t, "3", cv.Volume)
}

func TestParseWithoutAttributes(t *testing.T) {
	_, err := parseManga(entity{ID: "m-1", Type: "manga"})
	assert.Error(t, err)

	_, err = parseManga(entity{ID: "m-1", Type: "manga", Attributes: json.RawMessage("null")})
	assert.Error(t, err)
}

func TestParseGroupRelations(t *testing.T) {
	var e entity
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": "g-1", "type": "scanlation_group",
		"attributes": {"name": "Scans", "official": true},
		"relationships": [
			{"id": "u-1", "type": "leader", "attributes": {"username": "boss"}},
			{"id": "u-2", "type": "member"},
			{"id": "u-3", "type": "member", "attributes": {"username": "helper"}}
		]
	}`), &e))

	g, err := parseGroup(e)
	require.NoError(t, err)
	assert.True(t, g.Official)
	assert.Equal(t, "boss", g.Leader.Value.Username)
	require.Len(t, g.Members, 2)
	assert.False(t, g.Members[0].Resolved())
	assert.True(t, g.Members[0].Present())
	assert.Equal(t, "helper", g.Members[1].Value.Username)
}
