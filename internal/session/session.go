// Package session provides Valkey-backed HTTP session management.
// Sessions are identified by a secure cookie and stored as JSON in Valkey.
// Two clocks bound a session's life: the Valkey TTL (refreshed on every
// request, so it acts as the inactivity timeout) and an absolute lifetime
// measured from creation, enforced by Touch.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// CookieName is the name of the session cookie sent to the browser.
	CookieName = "bs_session"

	// ReturnToCookieName holds the path a visitor originally requested
	// before being sent through login.
	ReturnToCookieName = "bs_return_to"

	// DefaultReturnPath is where ConsumeReturnPath lands when no path was
	// remembered.
	DefaultReturnPath = "/dashboard"

	// IdleTTL is the inactivity timeout: the Valkey key and the cookie
	// both expire this long after the last request.
	IdleTTL = 1 * time.Hour

	// AbsoluteTTL is the maximum session age from creation, regardless of
	// activity.
	AbsoluteTTL = 24 * time.Hour

	// keyPrefix namespaces session keys in Valkey to avoid collisions.
	keyPrefix = "session:"

	// idLength is the byte length of the random session ID (32 bytes = 64 hex chars).
	idLength = 32
)

// ErrExpired is returned by Touch when a session has exceeded its absolute
// lifetime. The session is already destroyed when this is returned; the
// caller must redirect to login.
var ErrExpired = errors.New("session: absolute lifetime exceeded")

// Data holds the session payload stored in Valkey: the authenticated
// user's identity snapshot and the creation time the absolute lifetime is
// measured from.
type Data struct {
	UserID    uuid.UUID `json:"user_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// IsAdmin returns true if the session belongs to an admin user.
func (d *Data) IsAdmin() bool {
	return d.Role == "admin"
}

// Store manages session lifecycle in Valkey.
type Store struct {
	client *redis.Client
	secure bool // mark cookies Secure (HTTPS-only) outside development
}

// NewStore creates a session store backed by the given Valkey client.
func NewStore(client *redis.Client, secure bool) *Store {
	return &Store{client: client, secure: secure}
}

// Connect creates a Valkey client and verifies the connection with a ping.
func Connect(host, port, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("valkey ping: %w", err)
	}

	slog.Info("valkey connected", "addr", fmt.Sprintf("%s:%s", host, port))
	return client, nil
}

// Create generates a fresh session ID, stores the payload in Valkey, and
// sets the session cookie on the response. Any session referenced by the
// request's existing cookie is destroyed first, so establishing a new
// authenticated identity always regenerates the identifier (fixation
// defense). Returns the new session ID.
func (s *Store) Create(ctx context.Context, w http.ResponseWriter, r *http.Request, data *Data) (string, error) {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		s.client.Del(ctx, keyPrefix+cookie.Value)
	}

	id, err := generateID()
	if err != nil {
		return "", fmt.Errorf("session create: %w", err)
	}

	data.CreatedAt = time.Now()

	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("session marshal: %w", err)
	}

	if err := s.client.Set(ctx, keyPrefix+id, payload, IdleTTL).Err(); err != nil {
		return "", fmt.Errorf("session store: %w", err)
	}

	s.setCookie(w, id, int(IdleTTL.Seconds()))
	return id, nil
}

// Get retrieves session data from Valkey using the session ID from the
// request cookie. Returns nil if no valid session exists.
func (s *Store) Get(ctx context.Context, r *http.Request) (*Data, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil, nil // No cookie = no session (not an error)
	}

	payload, err := s.client.Get(ctx, keyPrefix+cookie.Value).Bytes()
	if err == redis.Nil {
		return nil, nil // Session expired or doesn't exist
	}
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}

	var data Data
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("session unmarshal: %w", err)
	}

	return &data, nil
}

// Touch validates and refreshes a session on each request. A session past
// its absolute lifetime is destroyed and reported via ErrExpired; an
// active one gets its idle TTL and cookie lifetime reset and is returned.
// (nil, nil) means no session at all.
func (s *Store) Touch(ctx context.Context, w http.ResponseWriter, r *http.Request) (*Data, error) {
	data, err := s.Get(ctx, r)
	if err != nil || data == nil {
		return nil, err
	}

	if time.Since(data.CreatedAt) > AbsoluteTTL {
		if derr := s.Destroy(ctx, w, r); derr != nil {
			slog.Error("destroy expired session failed", "error", derr)
		}
		return nil, ErrExpired
	}

	cookie, _ := r.Cookie(CookieName)
	if err := s.client.Expire(ctx, keyPrefix+cookie.Value, IdleTTL).Err(); err != nil {
		return nil, fmt.Errorf("session touch: %w", err)
	}
	s.setCookie(w, cookie.Value, int(IdleTTL.Seconds()))

	return data, nil
}

// Destroy removes the session from Valkey and clears the cookie. Used by
// logout; safe to call for requests without a session.
func (s *Store) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil // No cookie, nothing to destroy
	}

	if err := s.client.Del(ctx, keyPrefix+cookie.Value).Err(); err != nil {
		return fmt.Errorf("session destroy: %w", err)
	}

	// Expire the cookie immediately.
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	return nil
}

// RememberReturnPath stores the path an unauthenticated visitor requested
// so login can send them back. Only local absolute paths are remembered.
func (s *Store) RememberReturnPath(w http.ResponseWriter, path string) {
	if !validReturnPath(path) {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     ReturnToCookieName,
		Value:    path,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int((15 * time.Minute).Seconds()),
	})
}

// ConsumeReturnPath returns the remembered path (or DefaultReturnPath)
// and clears it, so it is used exactly once.
func (s *Store) ConsumeReturnPath(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(ReturnToCookieName)
	if err != nil || !validReturnPath(cookie.Value) {
		return DefaultReturnPath
	}

	http.SetCookie(w, &http.Cookie{
		Name:     ReturnToCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	return cookie.Value
}

func (s *Store) setCookie(w http.ResponseWriter, id string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

// validReturnPath accepts only local absolute paths, rejecting
// protocol-relative ("//evil.example") and external URLs so the post-login
// redirect cannot be an open redirect.
func validReturnPath(path string) bool {
	return strings.HasPrefix(path, "/") && !strings.HasPrefix(path, "//")
}

// generateID creates a cryptographically random session identifier.
func generateID() (string, error) {
	b := make([]byte, idLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
