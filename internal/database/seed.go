package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost matches the work factor used for regular registrations.
const bcryptCost = 12

// Seed populates the database with initial data on first run: one admin
// account, one guest account, and two sample shelf entries for the guest.
// It is a no-op when any user already exists.
func Seed(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return fmt.Errorf("seed check users: %w", err)
	}

	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	adminHash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcryptCost)
	if err != nil {
		return fmt.Errorf("seed bcrypt: %w", err)
	}
	guestHash, err := bcrypt.GenerateFromPassword([]byte("guest123"), bcryptCost)
	if err != nil {
		return fmt.Errorf("seed bcrypt: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO users (username, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
	`, "admin", "admin@bookshelf.local", string(adminHash), "admin")
	if err != nil {
		return fmt.Errorf("seed insert admin: %w", err)
	}

	var guestID string
	err = db.QueryRow(`
		INSERT INTO users (username, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, "guest", "guest@bookshelf.local", string(guestHash), "guest").Scan(&guestID)
	if err != nil {
		return fmt.Errorf("seed insert guest: %w", err)
	}

	samples := []struct {
		title, author, isbn string
		year                int
		rating              int
		review              string
	}{
		{
			title: "The Great Gatsby", author: "F. Scott Fitzgerald",
			isbn: "9780743273565", year: 1925, rating: 4,
			review: "A classic that captures the essence of the Jazz Age.",
		},
		{
			title: "To Kill a Mockingbird", author: "Harper Lee",
			isbn: "9780061120084", year: 1960, rating: 5,
			review: "A powerful exploration of racial injustice and moral growth.",
		},
	}

	for _, s := range samples {
		var bookID string
		err = db.QueryRow(`
			INSERT INTO books (title, author, year, isbn)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`, s.title, s.author, s.year, s.isbn).Scan(&bookID)
		if err != nil {
			return fmt.Errorf("seed insert book %q: %w", s.title, err)
		}

		_, err = db.Exec(`
			INSERT INTO shelf_entries (user_id, book_id, rating, review)
			VALUES ($1, $2, $3, $4)
		`, guestID, bookID, s.rating, s.review)
		if err != nil {
			return fmt.Errorf("seed shelf entry %q: %w", s.title, err)
		}
	}

	slog.Info("database seeded with default accounts",
		"admin", "admin@bookshelf.local",
		"guest", "guest@bookshelf.local",
	)

	return nil
}
