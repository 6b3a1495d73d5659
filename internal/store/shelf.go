package store

import (
	"database/sql"
	"fmt"
	"html"

	"github.com/google/uuid"

	"bookshelf/internal/models"
)

// ShelfStore handles per-user shelf entries and the aggregate statistics
// built on them.
type ShelfStore struct {
	db *sql.DB
}

// NewShelfStore creates a new ShelfStore with the given database connection.
func NewShelfStore(db *sql.DB) *ShelfStore {
	return &ShelfStore{db: db}
}

// Add puts a book on a user's shelf. Rating, when present, must be in
// [1,5]. A duplicate (user, book) pair is rejected by the unique
// constraint and surfaces as ErrAlreadyOnShelf. There is no prior read,
// so concurrent double submissions cannot slip through. The review is
// HTML-escaped at this boundary.
func (s *ShelfStore) Add(userID, bookID uuid.UUID, rating *int, review *string) (*models.ShelfEntry, error) {
	if err := validRating(rating); err != nil {
		return nil, err
	}

	e := &models.ShelfEntry{}
	err := s.db.QueryRow(`
		INSERT INTO shelf_entries (user_id, book_id, rating, review)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, book_id, rating, review, date_added
	`, userID, bookID, rating, escapeReview(review)).Scan(
		&e.ID, &e.UserID, &e.BookID, &e.Rating, &e.Review, &e.DateAdded,
	)
	if err != nil {
		if uniqueViolation(err, "shelf_entries_user_book_key") {
			return nil, ErrAlreadyOnShelf
		}
		return nil, fmt.Errorf("add shelf entry: %w", err)
	}
	return e, nil
}

// Update changes the rating and review of an existing entry. Returns
// ErrNotFound when the (user, book) pair is not on the shelf.
func (s *ShelfStore) Update(userID, bookID uuid.UUID, rating *int, review *string) (*models.ShelfEntry, error) {
	if err := validRating(rating); err != nil {
		return nil, err
	}

	e := &models.ShelfEntry{}
	err := s.db.QueryRow(`
		UPDATE shelf_entries
		SET rating = $3, review = $4
		WHERE user_id = $1 AND book_id = $2
		RETURNING id, user_id, book_id, rating, review, date_added
	`, userID, bookID, rating, escapeReview(review)).Scan(
		&e.ID, &e.UserID, &e.BookID, &e.Rating, &e.Review, &e.DateAdded,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update shelf entry: %w", err)
	}
	return e, nil
}

// Remove deletes a shelf entry. Idempotent: removing an absent entry is
// not an error.
func (s *ShelfStore) Remove(userID, bookID uuid.UUID) error {
	_, err := s.db.Exec(`
		DELETE FROM shelf_entries WHERE user_id = $1 AND book_id = $2
	`, userID, bookID)
	if err != nil {
		return fmt.Errorf("remove shelf entry: %w", err)
	}
	return nil
}

// Get retrieves a single shelf item (book + personal fields) for the edit
// page. Returns nil if the book is not on the user's shelf.
func (s *ShelfStore) Get(userID, bookID uuid.UUID) (*models.ShelfItem, error) {
	item := &models.ShelfItem{}
	err := s.db.QueryRow(`
		SELECT b.id, b.title, b.author, b.year, b.isbn, b.cover_url, b.external_id,
		       se.rating, se.review, se.date_added
		FROM books b
		JOIN shelf_entries se ON b.id = se.book_id
		WHERE se.user_id = $1 AND b.id = $2
	`, userID, bookID).Scan(
		&item.Book.ID, &item.Book.Title, &item.Book.Author, &item.Book.Year,
		&item.Book.ISBN, &item.Book.CoverURL, &item.Book.ExternalID,
		&item.Rating, &item.Review, &item.DateAdded,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get shelf entry: %w", err)
	}
	return item, nil
}

// List returns all of a user's shelf items, newest first.
func (s *ShelfStore) List(userID uuid.UUID) ([]models.ShelfItem, error) {
	return s.listShelf(userID, 0)
}

// Summary builds the dashboard panels: the five most recently added books
// and the five highest rated among rated entries.
func (s *ShelfStore) Summary(userID uuid.UUID) (*models.DashboardSummary, error) {
	recent, err := s.listShelf(userID, 5)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`
		SELECT b.id, b.title, b.author, b.year, b.isbn, b.cover_url, b.external_id,
		       se.rating, se.review, se.date_added
		FROM books b
		JOIN shelf_entries se ON b.id = se.book_id
		WHERE se.user_id = $1 AND se.rating IS NOT NULL
		ORDER BY se.rating DESC, se.date_added DESC
		LIMIT 5
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("top rated books: %w", err)
	}
	defer rows.Close()

	topRated, err := scanShelfItems(rows)
	if err != nil {
		return nil, err
	}

	return &models.DashboardSummary{RecentBooks: recent, TopRated: topRated}, nil
}

// ReviewCount returns how many entries carry a non-empty review (admin
// dashboard).
func (s *ShelfStore) ReviewCount() (int, error) {
	var n int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM shelf_entries
		WHERE review IS NOT NULL AND review != ''
	`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count reviews: %w", err)
	}
	return n, nil
}

// TopAuthors returns up to limit distinct authors from a user's shelf,
// best-rated first. Feeds the recommendations page.
func (s *ShelfStore) TopAuthors(userID uuid.UUID, limit int) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT b.author
		FROM books b
		JOIN shelf_entries se ON b.id = se.book_id
		WHERE se.user_id = $1
		GROUP BY b.author
		ORDER BY MAX(se.rating) DESC NULLS LAST, b.author
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("top authors: %w", err)
	}
	defer rows.Close()

	var authors []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, fmt.Errorf("scan author: %w", err)
		}
		authors = append(authors, a)
	}
	return authors, rows.Err()
}

// Stats builds the admin statistics page: most popular books (by reader
// count, then average rating), top rated books (among books with at least
// one rating, by average then rating count), and most active users (by
// shelf entry count). Remaining ties are broken by row ID so the order
// is stable.
func (s *ShelfStore) Stats() (*models.AdminStats, error) {
	stats := &models.AdminStats{}

	rows, err := s.db.Query(`
		SELECT b.title, b.author, COUNT(se.id) AS reader_count, AVG(se.rating) AS avg_rating
		FROM books b
		JOIN shelf_entries se ON b.id = se.book_id
		GROUP BY b.id
		ORDER BY reader_count DESC, avg_rating DESC NULLS LAST, b.id
		LIMIT 10
	`)
	if err != nil {
		return nil, fmt.Errorf("popular books: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p models.PopularBook
		if err := rows.Scan(&p.Title, &p.Author, &p.ReaderCount, &p.AvgRating); err != nil {
			return nil, fmt.Errorf("scan popular book: %w", err)
		}
		stats.PopularBooks = append(stats.PopularBooks, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.Query(`
		SELECT b.title, b.author, AVG(se.rating) AS avg_rating, COUNT(se.id) AS rating_count
		FROM books b
		JOIN shelf_entries se ON b.id = se.book_id
		WHERE se.rating IS NOT NULL
		GROUP BY b.id
		ORDER BY avg_rating DESC, rating_count DESC, b.id
		LIMIT 10
	`)
	if err != nil {
		return nil, fmt.Errorf("top rated books: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var t models.TopRatedBook
		if err := rows.Scan(&t.Title, &t.Author, &t.AvgRating, &t.RatingCount); err != nil {
			return nil, fmt.Errorf("scan top rated book: %w", err)
		}
		stats.TopRatedBooks = append(stats.TopRatedBooks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.Query(`
		SELECT u.username, COUNT(se.id) AS book_count
		FROM users u
		JOIN shelf_entries se ON u.id = se.user_id
		GROUP BY u.id
		ORDER BY book_count DESC, u.id
		LIMIT 10
	`)
	if err != nil {
		return nil, fmt.Errorf("active users: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var a models.ActiveUser
		if err := rows.Scan(&a.Username, &a.BookCount); err != nil {
			return nil, fmt.Errorf("scan active user: %w", err)
		}
		stats.ActiveUsers = append(stats.ActiveUsers, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}

// listShelf lists a user's shelf, newest first. limit <= 0 means no limit.
func (s *ShelfStore) listShelf(userID uuid.UUID, limit int) ([]models.ShelfItem, error) {
	q := `
		SELECT b.id, b.title, b.author, b.year, b.isbn, b.cover_url, b.external_id,
		       se.rating, se.review, se.date_added
		FROM books b
		JOIN shelf_entries se ON b.id = se.book_id
		WHERE se.user_id = $1
		ORDER BY se.date_added DESC`
	args := []any{userID}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list shelf: %w", err)
	}
	defer rows.Close()

	return scanShelfItems(rows)
}

func scanShelfItems(rows *sql.Rows) ([]models.ShelfItem, error) {
	var items []models.ShelfItem
	for rows.Next() {
		var item models.ShelfItem
		if err := rows.Scan(
			&item.Book.ID, &item.Book.Title, &item.Book.Author, &item.Book.Year,
			&item.Book.ISBN, &item.Book.CoverURL, &item.Book.ExternalID,
			&item.Rating, &item.Review, &item.DateAdded,
		); err != nil {
			return nil, fmt.Errorf("scan shelf item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// validRating enforces the 1–5 range on optional ratings.
func validRating(rating *int) error {
	if rating == nil {
		return nil
	}
	if *rating < 1 || *rating > 5 {
		return ErrInvalidRating
	}
	return nil
}

// escapeReview HTML-escapes a review at the store boundary. Nil and empty
// reviews stay NULL.
func escapeReview(review *string) *string {
	if review == nil || *review == "" {
		return nil
	}
	escaped := html.EscapeString(*review)
	return &escaped
}
