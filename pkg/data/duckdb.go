package data

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"
)

const schema = `
CREATE TABLE IF NOT EXISTS mangas (
	id          VARCHAR PRIMARY KEY,
	name        VARCHAR NOT NULL,
	description VARCHAR,
	cover_url   VARCHAR,
	source      VARCHAR,
	status      VARCHAR,
	updated_at  TIMESTAMP
);
CREATE TABLE IF NOT EXISTS chapters (
	id         VARCHAR PRIMARY KEY,
	manga_id   VARCHAR NOT NULL,
	title      VARCHAR,
	language   VARCHAR,
	volume     VARCHAR,
	number     VARCHAR,
	uploader   VARCHAR,
	pages      INTEGER,
	downloaded BOOLEAN DEFAULT false,
	file_path  VARCHAR
);
`

// InitDuckDB opens (creating if needed) the library database at path.
func InitDuckDB(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return db, nil
}

type Repository struct {
	db *sql.DB
}

// NewDuckDBRepository opens the library stored at path.
func NewDuckDBRepository(path string) (*Repository, error) {
	db, err := InitDuckDB(path)
	if err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// SaveManga inserts or replaces a manga.
func (r *Repository) SaveManga(manga *Manga) error {
	if manga == nil {
		return errors.New("manga cannot be nil")
	}
	if manga.UpdatedAt.IsZero() {
		manga.UpdatedAt = time.Now().UTC()
	}
	_, err := r.db.Exec(`
		INSERT OR REPLACE INTO mangas (id, name, description, cover_url, source, status, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		manga.ID, manga.Name, manga.Description, manga.CoverURL, manga.Source, manga.Status, manga.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save manga %s: %w", manga.ID, err)
	}
	return nil
}

// GetManga returns nil, nil when the manga is not in the library.
func (r *Repository) GetManga(id string) (*Manga, error) {
	row := r.db.QueryRow(`
		SELECT id, name, description, cover_url, source, status, updated_at
		FROM mangas WHERE id = ?`, id)
	m, err := scanManga(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get manga %s: %w", id, err)
	}
	return m, nil
}

func (r *Repository) ListMangas() ([]*Manga, error) {
	rows, err := r.db.Query(`
		SELECT id, name, description, cover_url, source, status, updated_at
		FROM mangas ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list mangas: %w", err)
	}
	defer rows.Close()

	var mangas []*Manga
	for rows.Next() {
		m, err := scanManga(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan manga: %w", err)
		}
		mangas = append(mangas, m)
	}
	return mangas, rows.Err()
}

// DeleteManga removes a manga and all of its chapters.
func (r *Repository) DeleteManga(mangaID string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM chapters WHERE manga_id = ?`, mangaID); err != nil {
		return fmt.Errorf("failed to delete chapters: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM mangas WHERE id = ?`, mangaID); err != nil {
		return fmt.Errorf("failed to delete manga: %w", err)
	}
	return tx.Commit()
}

// SaveChapter inserts or replaces a chapter.
func (r *Repository) SaveChapter(chapter *Chapter) error {
	if chapter == nil {
		return errors.New("chapter cannot be nil")
	}
	_, err := r.db.Exec(`
		INSERT OR REPLACE INTO chapters (id, manga_id, title, language, volume, number, uploader, pages, downloaded, file_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		chapter.ID, chapter.MangaID, chapter.Title, chapter.Language, chapter.Volume, chapter.Number,
		chapter.Uploader, chapter.Pages, chapter.Downloaded, chapter.FilePath,
	)
	if err != nil {
		return fmt.Errorf("failed to save chapter %s: %w", chapter.ID, err)
	}
	return nil
}

// GetChapter returns nil, nil when the chapter is unknown.
func (r *Repository) GetChapter(id string) (*Chapter, error) {
	row := r.db.QueryRow(`
		SELECT id, manga_id, title, language, volume, number, uploader, pages, downloaded, file_path
		FROM chapters WHERE id = ?`, id)
	ch, err := scanChapter(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chapter %s: %w", id, err)
	}
	return ch, nil
}

// GetChapters returns the chapters of a manga ordered by volume then number.
// Volumes and numbers are compared numerically; chapters without a volume come first.
func (r *Repository) GetChapters(mangaID string) ([]*Chapter, error) {
	rows, err := r.db.Query(`
		SELECT id, manga_id, title, language, volume, number, uploader, pages, downloaded, file_path
		FROM chapters WHERE manga_id = ?
		ORDER BY TRY_CAST(volume AS DOUBLE) NULLS FIRST, TRY_CAST(number AS DOUBLE) NULLS LAST, number`, mangaID)
	if err != nil {
		return nil, fmt.Errorf("failed to get chapters: %w", err)
	}
	defer rows.Close()

	var chapters []*Chapter
	for rows.Next() {
		ch, err := scanChapter(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chapter: %w", err)
		}
		chapters = append(chapters, ch)
	}
	return chapters, rows.Err()
}

func (r *Repository) UpdateChapterStatus(chapterID string, downloaded bool, filePath string) error {
	res, err := r.db.Exec(`UPDATE chapters SET downloaded = ?, file_path = ? WHERE id = ?`, downloaded, filePath, chapterID)
	if err != nil {
		return fmt.Errorf("failed to update chapter %s: %w", chapterID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("chapter %s not found", chapterID)
	}
	return nil
}

// GetMangaWithChapterCount returns a manga with its total and downloaded chapter counts.
func (r *Repository) GetMangaWithChapterCount(mangaID string) (*Manga, int, int, error) {
	manga, err := r.GetManga(mangaID)
	if err != nil || manga == nil {
		return manga, 0, 0, err
	}

	var total, downloaded int64
	err = r.db.QueryRow(`
		SELECT COUNT(*), COUNT(*) FILTER (WHERE downloaded)
		FROM chapters WHERE manga_id = ?`, mangaID).Scan(&total, &downloaded)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to count chapters: %w", err)
	}
	return manga, int(total), int(downloaded), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanManga(s scanner) (*Manga, error) {
	var (
		m                                     Manga
		description, coverURL, source, status sql.NullString
		updatedAt                             sql.NullTime
	)
	if err := s.Scan(&m.ID, &m.Name, &description, &coverURL, &source, &status, &updatedAt); err != nil {
		return nil, err
	}
	m.Description = description.String
	m.CoverURL = coverURL.String
	m.Source = source.String
	m.Status = status.String
	m.UpdatedAt = updatedAt.Time
	return &m, nil
}

func scanChapter(s scanner) (*Chapter, error) {
	var (
		ch                              Chapter
		title, language, volume, number sql.NullString
		uploader, filePath              sql.NullString
		pages                           sql.NullInt64
		downloaded                      sql.NullBool
	)
	err := s.Scan(&ch.ID, &ch.MangaID, &title, &language, &volume, &number, &uploader, &pages, &downloaded, &filePath)
	if err != nil {
		return nil, err
	}
	ch.Title = title.String
	ch.Language = language.String
	ch.Volume = volume.String
	ch.Number = number.String
	ch.Uploader = uploader.String
	ch.Pages = int(pages.Int64)
	ch.Downloaded = downloaded.Bool
	ch.FilePath = filePath.String
	return &ch, nil
}
