package mangadex

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// IncludeAll lists every relation type the API can embed.
var IncludeAll = []string{
	"cover_art", "manga", "chapter", "scanlation_group", "author", "artist", "user", "leader", "member",
}

// TitleLanguages is the preference order used by DisplayTitle.
var TitleLanguages = []string{"en", "ja-ro", "es", "fr", "ko", "ja"}

// entity is the raw shape shared by every API object and relationship.
type entity struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Related       string          `json:"related,omitempty"`
	Attributes    json.RawMessage `json:"attributes"`
	Relationships []entity        `json:"relationships"`
}

func (e entity) hasAttributes() bool {
	trimmed := bytes.TrimSpace(e.Attributes)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

func (e entity) attributes(v any) error {
	if !e.hasAttributes() {
		return fmt.Errorf("%s %s has no attributes", e.Type, e.ID)
	}
	return json.Unmarshal(e.Attributes, v)
}

// Ref is a related resource. Value is set only when the API embedded the
// relation's attributes, which happens when the request asked for it through
// includes[]; otherwise only ID is known.
type Ref[T any] struct {
	ID    string
	Value *T
}

// Resolved reports whether the full related object is available.
func (r Ref[T]) Resolved() bool {
	return r.Value != nil
}

// Present reports whether the relation exists at all.
func (r Ref[T]) Present() bool {
	return r.ID != ""
}

func relations[T any](e entity, kind string, parse func(entity) (T, error)) ([]Ref[T], error) {
	var out []Ref[T]
	for _, rel := range e.Relationships {
		if rel.Type != kind {
			continue
		}
		ref := Ref[T]{ID: rel.ID}
		if rel.hasAttributes() {
			v, err := parse(rel)
			if err != nil {
				return nil, fmt.Errorf("failed to parse %s relation %s: %w", kind, rel.ID, err)
			}
			ref.Value = &v
		}
		out = append(out, ref)
	}
	return out, nil
}

func relation[T any](e entity, kind string, parse func(entity) (T, error)) (Ref[T], error) {
	refs, err := relations(e, kind, parse)
	if err != nil || len(refs) == 0 {
		return Ref[T]{}, err
	}
	return refs[0], nil
}

// LocalizedString maps language codes to text.
type LocalizedString map[string]string

// UnmarshalJSON accepts the empty array the API sends instead of an empty object.
func (l *LocalizedString) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		*l = LocalizedString{}
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return err
	}
	*l = m
	return nil
}

// Get returns the first translation found for langs, in order.
func (l LocalizedString) Get(langs ...string) (string, bool) {
	for _, lang := range langs {
		if v, ok := l[lang]; ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// Any returns a translation, preferring langs, then the lowest language code.
func (l LocalizedString) Any(langs ...string) string {
	if v, ok := l.Get(langs...); ok {
		return v
	}
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if l[k] != "" {
			return l[k]
		}
	}
	return ""
}

type Tag struct {
	ID    string
	Name  LocalizedString
	Group string
}

func parseTag(e entity) (Tag, error) {
	var attrs struct {
		Name  LocalizedString `json:"name"`
		Group string          `json:"group"`
	}
	if err := e.attributes(&attrs); err != nil {
		return Tag{}, err
	}
	return Tag{ID: e.ID, Name: attrs.Name, Group: attrs.Group}, nil
}

type Manga struct {
	ID               string
	Title            LocalizedString
	AltTitles        []LocalizedString
	Description      LocalizedString
	Links            map[string]string
	OriginalLanguage string
	LastVolume       string
	LastChapter      string
	Demographic      string
	Status           string
	Year             int
	ContentRating    string
	Tags             []Tag
	CreatedAt        time.Time
	UpdatedAt        time.Time

	Authors []Ref[Author]
	Artists []Ref[Author]
	Cover   Ref[Cover]
}

// DisplayTitle picks a title in TitleLanguages order, falling back to alt titles.
func (m *Manga) DisplayTitle() string {
	if v, ok := m.Title.Get(TitleLanguages...); ok {
		return v
	}
	for _, alt := range m.AltTitles {
		if v, ok := alt.Get(TitleLanguages...); ok {
			return v
		}
	}
	return m.Title.Any()
}

func parseManga(e entity) (Manga, error) {
	var attrs struct {
		Title                  LocalizedString   `json:"title"`
		AltTitles              []LocalizedString `json:"altTitles"`
		Description            LocalizedString   `json:"description"`
		Links                  map[string]string `json:"links"`
		OriginalLanguage       string            `json:"originalLanguage"`
		LastVolume             string            `json:"lastVolume"`
		LastChapter            string            `json:"lastChapter"`
		PublicationDemographic string            `json:"publicationDemographic"`
		Status                 string            `json:"status"`
		Year                   int               `json:"year"`
		ContentRating          string            `json:"contentRating"`
		Tags                   []entity          `json:"tags"`
		CreatedAt              time.Time         `json:"createdAt"`
		UpdatedAt              time.Time         `json:"updatedAt"`
	}
	if err := e.attributes(&attrs); err != nil {
		return Manga{}, err
	}

	m := Manga{
		ID:               e.ID,
		Title:            attrs.Title,
		AltTitles:        attrs.AltTitles,
		Description:      attrs.Description,
		Links:            attrs.Links,
		OriginalLanguage: strings.ToLower(attrs.OriginalLanguage),
		LastVolume:       attrs.LastVolume,
		LastChapter:      attrs.LastChapter,
		Demographic:      attrs.PublicationDemographic,
		Status:           attrs.Status,
		Year:             attrs.Year,
		ContentRating:    attrs.ContentRating,
		CreatedAt:        attrs.CreatedAt,
		UpdatedAt:        attrs.UpdatedAt,
	}
	for _, t := range attrs.Tags {
		tag, err := parseTag(t)
		if err != nil {
			return Manga{}, err
		}
		m.Tags = append(m.Tags, tag)
	}

	var err error
	if m.Authors, err = relations(e, "author", parseAuthor); err != nil {
		return Manga{}, err
	}
	if m.Artists, err = relations(e, "artist", parseAuthor); err != nil {
		return Manga{}, err
	}
	if m.Cover, err = relation(e, "cover_art", parseCover); err != nil {
		return Manga{}, err
	}
	// Embedded covers carry no relationships of their own.
	if m.Cover.Resolved() {
		m.Cover.Value.MangaID = m.ID
	}
	return m, nil
}

type Chapter struct {
	ID          string
	Volume      string
	Number      string
	Title       string
	Language    string
	ExternalURL string
	Pages       int
	PublishAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Manga    Ref[Manga]
	Groups   []Ref[Group]
	Uploader Ref[User]
}

func parseChapter(e entity) (Chapter, error) {
	var attrs struct {
		Volume             string    `json:"volume"`
		Chapter            string    `json:"chapter"`
		Title              string    `json:"title"`
		TranslatedLanguage string    `json:"translatedLanguage"`
		ExternalURL        string    `json:"externalUrl"`
		Pages              int       `json:"pages"`
		PublishAt          time.Time `json:"publishAt"`
		CreatedAt          time.Time `json:"createdAt"`
		UpdatedAt          time.Time `json:"updatedAt"`
	}
	if err := e.attributes(&attrs); err != nil {
		return Chapter{}, err
	}

	ch := Chapter{
		ID:          e.ID,
		Volume:      attrs.Volume,
		Number:      attrs.Chapter,
		Title:       attrs.Title,
		Language:    strings.ToLower(attrs.TranslatedLanguage),
		ExternalURL: attrs.ExternalURL,
		Pages:       attrs.Pages,
		PublishAt:   attrs.PublishAt,
		CreatedAt:   attrs.CreatedAt,
		UpdatedAt:   attrs.UpdatedAt,
	}

	var err error
	if ch.Manga, err = relation(e, "manga", parseManga); err != nil {
		return Chapter{}, err
	}
	if ch.Groups, err = relations(e, "scanlation_group", parseGroup); err != nil {
		return Chapter{}, err
	}
	if ch.Uploader, err = relation(e, "user", parseUser); err != nil {
		return Chapter{}, err
	}
	return ch, nil
}

type Group struct {
	ID           string
	Name         string
	Description  string
	Website      string
	IRCServer    string
	IRCChannel   string
	Discord      string
	ContactEmail string
	Locked       bool
	Official     bool
	Verified     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Leader  Ref[User]
	Members []Ref[User]
}

func parseGroup(e entity) (Group, error) {
	var attrs struct {
		Name         string    `json:"name"`
		Description  string    `json:"description"`
		Website      string    `json:"website"`
		IRCServer    string    `json:"ircServer"`
		IRCChannel   string    `json:"ircChannel"`
		Discord      string    `json:"discord"`
		ContactEmail string    `json:"contactEmail"`
		Locked       bool      `json:"locked"`
		Official     bool      `json:"official"`
		Verified     bool      `json:"verified"`
		CreatedAt    time.Time `json:"createdAt"`
		UpdatedAt    time.Time `json:"updatedAt"`
	}
	if err := e.attributes(&attrs); err != nil {
		return Group{}, err
	}

	g := Group{
		ID:           e.ID,
		Name:         attrs.Name,
		Description:  attrs.Description,
		Website:      attrs.Website,
		IRCServer:    attrs.IRCServer,
		IRCChannel:   attrs.IRCChannel,
		Discord:      attrs.Discord,
		ContactEmail: attrs.ContactEmail,
		Locked:       attrs.Locked,
		Official:     attrs.Official,
		Verified:     attrs.Verified,
		CreatedAt:    attrs.CreatedAt,
		UpdatedAt:    attrs.UpdatedAt,
	}

	var err error
	if g.Leader, err = relation(e, "leader", parseUser); err != nil {
		return Group{}, err
	}
	if g.Members, err = relations(e, "member", parseUser); err != nil {
		return Group{}, err
	}
	return g, nil
}

type User struct {
	ID       string
	Username string
	Roles    []string
}

func parseUser(e entity) (User, error) {
	var attrs struct {
		Username string   `json:"username"`
		Roles    []string `json:"roles"`
	}
	if err := e.attributes(&attrs); err != nil {
		return User{}, err
	}
	return User{ID: e.ID, Username: attrs.Username, Roles: attrs.Roles}, nil
}

// Author is used for both authors and artists.
type Author struct {
	ID        string
	Name      string
	ImageURL  string
	Biography LocalizedString
	CreatedAt time.Time
	UpdatedAt time.Time
}

func parseAuthor(e entity) (Author, error) {
	var attrs struct {
		Name      string          `json:"name"`
		ImageURL  string          `json:"imageUrl"`
		Biography LocalizedString `json:"biography"`
		CreatedAt time.Time       `json:"createdAt"`
		UpdatedAt time.Time       `json:"updatedAt"`
	}
	if err := e.attributes(&attrs); err != nil {
		return Author{}, err
	}
	return Author{
		ID:        e.ID,
		Name:      attrs.Name,
		ImageURL:  attrs.ImageURL,
		Biography: attrs.Biography,
		CreatedAt: attrs.CreatedAt,
		UpdatedAt: attrs.UpdatedAt,
	}, nil
}

type Cover struct {
	ID          string
	Description string
	Volume      string
	FileName    string
	Locale      string
	MangaID     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FileURL builds the image URL on the uploads host. size is 0 for the
// original, or 256/512 for thumbnails.
func (cv Cover) FileURL(uploadsURL string, size int) string {
	u := fmt.Sprintf("%s/covers/%s/%s", strings.TrimRight(uploadsURL, "/"), cv.MangaID, cv.FileName)
	if size > 0 {
		u = fmt.Sprintf("%s.%d.jpg", u, size)
	}
	return u
}

func parseCover(e entity) (Cover, error) {
	var attrs struct {
		Description string    `json:"description"`
		Volume      string    `json:"volume"`
		FileName    string    `json:"fileName"`
		Locale      string    `json:"locale"`
		CreatedAt   time.Time `json:"createdAt"`
		UpdatedAt   time.Time `json:"updatedAt"`
	}
	if err := e.attributes(&attrs); err != nil {
		return Cover{}, err
	}
	cv := Cover{
		ID:          e.ID,
		Description: attrs.Description,
		Volume:      attrs.Volume,
		FileName:    attrs.FileName,
		Locale:      attrs.Locale,
		CreatedAt:   attrs.CreatedAt,
		UpdatedAt:   attrs.UpdatedAt,
	}
	for _, rel := range e.Relationships {
		if rel.Type == "manga" {
			cv.MangaID = rel.ID
			break
		}
	}
	return cv, nil
}

type CustomList struct {
	ID         string
	Name       string
	Visibility string

	Owner Ref[User]
	Manga []Ref[Manga]
}

func parseCustomList(e entity) (CustomList, error) {
	var attrs struct {
		Name       string `json:"name"`
		Visibility string `json:"visibility"`
	}
	if err := e.attributes(&attrs); err != nil {
		return CustomList{}, err
	}
	l := CustomList{ID: e.ID, Name: attrs.Name, Visibility: attrs.Visibility}

	var err error
	if l.Owner, err = relation(e, "user", parseUser); err != nil {
		return CustomList{}, err
	}
	if l.Manga, err = relations(e, "manga", parseManga); err != nil {
		return CustomList{}, err
	}
	return l, nil
}

// MangaIDs returns the ids of every manga in the list, in list order.
func (l *CustomList) MangaIDs() []string {
	ids := make([]string, len(l.Manga))
	for i, m := range l.Manga {
		ids[i] = m.ID
	}
	return ids
}
