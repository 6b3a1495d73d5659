package store

import (
	"database/sql"
	"fmt"
	"html"
	"strings"

	"github.com/google/uuid"

	"bookshelf/internal/models"
)

// BookStore handles the shared book catalog table.
type BookStore struct {
	db *sql.DB
}

// NewBookStore creates a new BookStore with the given database connection.
func NewBookStore(db *sql.DB) *BookStore {
	return &BookStore{db: db}
}

// NewBook describes a book to find or create. Title and author are
// mandatory; everything else is optional.
type NewBook struct {
	Title      string
	Author     string
	Year       *int
	ISBN       *string
	CoverURL   *string
	ExternalID *string
}

// FindOrCreate resolves a book to a single catalog row. Lookup order:
// external ID when provided, then the exact (title, author) pair. An
// existing row is returned unchanged, ignoring any differing optional
// fields in b. Title and author are HTML-escaped here; the store is the
// sanitization boundary, callers pass raw input.
//
// The insert uses ON CONFLICT DO UPDATE so two concurrent submissions of
// the same (title, author) converge on one row instead of racing a prior
// read.
func (s *BookStore) FindOrCreate(b NewBook) (*models.Book, error) {
	title := html.EscapeString(strings.TrimSpace(b.Title))
	author := html.EscapeString(strings.TrimSpace(b.Author))
	if title == "" || author == "" {
		return nil, fmt.Errorf("find or create book: title and author are required")
	}

	if b.ExternalID != nil && *b.ExternalID != "" {
		existing, err := s.findByExternalID(*b.ExternalID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	book := &models.Book{}
	err := s.db.QueryRow(`
		INSERT INTO books (title, author, year, isbn, cover_url, external_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (title, author) DO UPDATE SET title = EXCLUDED.title
		RETURNING id, title, author, year, isbn, cover_url, external_id
	`, title, author, b.Year, b.ISBN, b.CoverURL, normalizeExternalID(b.ExternalID)).Scan(
		&book.ID, &book.Title, &book.Author, &book.Year, &book.ISBN, &book.CoverURL, &book.ExternalID,
	)
	if err != nil {
		// A different row already owns this external ID; reuse it.
		if uniqueViolation(err, "books_external_id_key") {
			return s.findByExternalID(*b.ExternalID)
		}
		return nil, fmt.Errorf("find or create book: %w", err)
	}
	return book, nil
}

// FindByID retrieves a book by its UUID. Returns nil if not found.
func (s *BookStore) FindByID(id uuid.UUID) (*models.Book, error) {
	book := &models.Book{}
	err := s.db.QueryRow(`
		SELECT id, title, author, year, isbn, cover_url, external_id
		FROM books WHERE id = $1
	`, id).Scan(
		&book.ID, &book.Title, &book.Author, &book.Year, &book.ISBN, &book.CoverURL, &book.ExternalID,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find book by id: %w", err)
	}
	return book, nil
}

// Count returns the total number of catalog rows (admin dashboard).
func (s *BookStore) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM books`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count books: %w", err)
	}
	return n, nil
}

func (s *BookStore) findByExternalID(externalID string) (*models.Book, error) {
	book := &models.Book{}
	err := s.db.QueryRow(`
		SELECT id, title, author, year, isbn, cover_url, external_id
		FROM books WHERE external_id = $1
	`, externalID).Scan(
		&book.ID, &book.Title, &book.Author, &book.Year, &book.ISBN, &book.CoverURL, &book.ExternalID,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find book by external id: %w", err)
	}
	return book, nil
}

// normalizeExternalID maps empty external IDs to NULL so the unique
// constraint only applies to real catalog links.
func normalizeExternalID(id *string) *string {
	if id == nil || *id == "" {
		return nil
	}
	return id
}
