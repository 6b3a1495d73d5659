package models

import (
	"time"

	"github.com/google/uuid"
)

// Book represents a catalog entry shared by all users' shelves.
// Optional fields are pointers so absent values map to SQL NULL.
type Book struct {
	ID         uuid.UUID `json:"id"`
	Title      string    `json:"title"`
	Author     string    `json:"author"`
	Year       *int      `json:"year,omitempty"`
	ISBN       *string   `json:"isbn,omitempty"`
	CoverURL   *string   `json:"cover_url,omitempty"`
	ExternalID *string   `json:"external_id,omitempty"` // catalog adapter ID
}

// ShelfEntry associates one user with one book, carrying that user's
// personal rating and review.
type ShelfEntry struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	BookID    uuid.UUID `json:"book_id"`
	Rating    *int      `json:"rating,omitempty"`
	Review    *string   `json:"review,omitempty"`
	DateAdded time.Time `json:"date_added"`
}

// ShelfItem is a shelf entry joined with its book, as listed on the
// bookshelf and dashboard pages.
type ShelfItem struct {
	Book      Book
	Rating    *int
	Review    *string
	DateAdded time.Time
}

// DashboardSummary holds the per-user dashboard panels.
type DashboardSummary struct {
	RecentBooks []ShelfItem // top 5 by date added desc
	TopRated    []ShelfItem // top 5 by rating desc among rated entries
}

// PopularBook is a row of the admin "most popular" statistic.
type PopularBook struct {
	Title       string
	Author      string
	ReaderCount int
	AvgRating   *float64
}

// TopRatedBook is a row of the admin "top rated" statistic.
type TopRatedBook struct {
	Title       string
	Author      string
	AvgRating   float64
	RatingCount int
}

// ActiveUser is a row of the admin "most active users" statistic.
type ActiveUser struct {
	Username  string
	BookCount int
}

// AdminStats aggregates the admin statistics page.
type AdminStats struct {
	PopularBooks  []PopularBook
	TopRatedBooks []TopRatedBook
	ActiveUsers   []ActiveUser
}
