package data

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInitDuckDB(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "test-init-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	dbPath := filepath.Join(tmpDir, "test.db")
	
	db, err := InitDuckDB(dbPath)
	if err != nil {
		t.Fatalf("Failed to initialize DB: %v", err)
	}
	defer db.Close()

	// Verify tables exist
	var tableCount int
	err = db.QueryRow(`SELECT COUNT(*) FROM information_schema.tables WHERE table_name IN ('mangas', 'chapters')`).Scan(&tableCount)
	if err != nil {
		t.Fatalf("Failed to query tables: %v", err)
	}

	if tableCount != 2 {
		t.Errorf("Expected 2 tables, got %d", tableCount)
	}
}

func TestInitDuckDBCreatesDirectory(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "test-init-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	// Use nested directory that doesn't exist
	dbPath := filepath.Join(tmpDir, "nested", "dir", "test.db")
	
	db, err := InitDuckDB(dbPath)
	if err != nil {
		t.Fatalf("Failed to initialize DB with nested path: %v", err)
	}
	defer db.Close()

	// Verify file was created
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("DB file was not created")
	}
}

func TestNewDuckDBRepository(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "library.db")

	repo, err := NewDuckDBRepository(dbPath)
	if err != nil {
		t.Fatalf("Failed to open repository: %v", err)
	}
	if err := repo.SaveManga(&Manga{ID: "m-1", Name: "Persisted"}); err != nil {
		t.Fatalf("Failed to save manga: %v", err)
	}
	if err := repo.Close(); err != nil {
		t.Fatalf("Failed to close repository: %v", err)
	}

	// Reopening sees the same library
	repo, err = NewDuckDBRepository(dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen repository: %v", err)
	}
	defer repo.Close()

	manga, err := repo.GetManga("m-1")
	if err != nil {
		t.Fatalf("Failed to get manga: %v", err)
	}
	if manga == nil || manga.Name != "Persisted" {
		t.Errorf("Expected persisted manga, got %+v", manga)
	}
}
