package store

import (
	"database/sql"
	"fmt"
	"html"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"bookshelf/internal/models"
)

// bcryptCost is the work factor for password hashing. High enough to
// resist offline brute force on leaked hashes.
const bcryptCost = 12

// UserStore handles all user-related database operations.
type UserStore struct {
	db *sql.DB
}

// NewUserStore creates a new UserStore with the given database connection.
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// Create inserts a new user with a bcrypt-hashed password and the guest
// role. Username and email are HTML-escaped before storage. Returns
// ErrDuplicateUsername or ErrDuplicateEmail on uniqueness conflicts;
// the plaintext password is never stored or logged.
func (s *UserStore) Create(username, email, password string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &models.User{}
	err = s.db.QueryRow(`
		INSERT INTO users (username, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, username, email, password_hash, role, created_at
	`, html.EscapeString(username), html.EscapeString(email), string(hash), models.RoleGuest).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt,
	)
	if err != nil {
		switch {
		case uniqueViolation(err, "users_username_key"):
			return nil, ErrDuplicateUsername
		case uniqueViolation(err, "users_email_key"):
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// VerifyCredentials checks a username/password pair. Returns ErrNotFound
// for an unknown username and ErrWrongPassword for a bad password; the
// login handler collapses both into one generic message. Comparison uses
// bcrypt's constant-time verification, never plaintext equality.
func (s *UserStore) VerifyCredentials(username, password string) (*models.User, error) {
	u, err := s.FindByUsername(username)
	if err != nil {
		return nil, err
	}
	if u == nil {
		// Equalize timing between unknown-user and wrong-password failures.
		bcrypt.CompareHashAndPassword([]byte("$2a$12$invalidinvalidinvalidinvalidinvalidinvalidinvalidinva"), []byte(password))
		return nil, ErrNotFound
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrWrongPassword
	}
	return u, nil
}

// FindByUsername retrieves a user by username. Returns nil if not found.
func (s *UserStore) FindByUsername(username string) (*models.User, error) {
	u := &models.User{}
	err := s.db.QueryRow(`
		SELECT id, username, email, password_hash, role, created_at
		FROM users WHERE username = $1
	`, html.EscapeString(username)).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user by username: %w", err)
	}
	return u, nil
}

// FindByID retrieves a user by their UUID. Returns nil if not found.
func (s *UserStore) FindByID(id uuid.UUID) (*models.User, error) {
	u := &models.User{}
	err := s.db.QueryRow(`
		SELECT id, username, email, password_hash, role, created_at
		FROM users WHERE id = $1
	`, id).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return u, nil
}

// List returns all users ordered by creation date.
func (s *UserStore) List() ([]models.User, error) {
	rows, err := s.db.Query(`
		SELECT id, username, email, password_hash, role, created_at
		FROM users ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(
			&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ToggleRole flips a user between guest and admin. Returns ErrSelfAction
// when an admin targets their own account and ErrNotFound for unknown IDs.
func (s *UserStore) ToggleRole(actingID, userID uuid.UUID) (*models.User, error) {
	if actingID == userID {
		return nil, ErrSelfAction
	}

	u := &models.User{}
	err := s.db.QueryRow(`
		UPDATE users
		SET role = CASE WHEN role = 'admin' THEN 'guest' ELSE 'admin' END
		WHERE id = $1
		RETURNING id, username, email, password_hash, role, created_at
	`, userID).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("toggle role: %w", err)
	}
	return u, nil
}

// Delete removes a user; their shelf entries go with them via the
// ON DELETE CASCADE foreign key. Returns ErrSelfAction when an admin
// targets their own account and ErrNotFound for unknown IDs.
func (s *UserStore) Delete(actingID, userID uuid.UUID) error {
	if actingID == userID {
		return ErrSelfAction
	}

	res, err := s.db.Exec(`DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats returns the shelf entry count and average rating for a user.
func (s *UserStore) Stats(userID uuid.UUID) (*models.UserStats, error) {
	st := &models.UserStats{}
	err := s.db.QueryRow(`
		SELECT COUNT(*), AVG(rating)
		FROM shelf_entries
		WHERE user_id = $1
	`, userID).Scan(&st.BookCount, &st.AvgRating)
	if err != nil {
		return nil, fmt.Errorf("user stats: %w", err)
	}
	return st, nil
}
