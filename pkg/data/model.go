package data

import "time"

type Manga struct {
	ID          string
	Name        string
	Description string
	CoverURL    string
	Source      string
	Status      string // "downloading", "completed", "partial", "error"
	UpdatedAt   time.Time
}

type Chapter struct {
	ID         string
	MangaID    string
	Title      string
	Language   string
	Volume     string
	Number     string
	Uploader   string // uploader username, empty when unknown
	Pages      int
	Downloaded bool
	FilePath   string // Path to downloaded images directory
}
