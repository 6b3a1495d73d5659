// Package handlers contains the HTTP handlers for all pages, grouped by
// area (auth, books, search, admin) with their dependencies injected.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"bookshelf/internal/middleware"
	"bookshelf/internal/render"
	"bookshelf/internal/session"
	"bookshelf/internal/store"
)

// genericLoginError is shown for both unknown usernames and wrong
// passwords so the form does not reveal which accounts exist.
const genericLoginError = "Invalid username or password."

// AuthHandlers serves login, registration and logout.
type AuthHandlers struct {
	users    *store.UserStore
	sessions *session.Store
	render   *render.Renderer
}

// NewAuthHandlers creates the auth handler group.
func NewAuthHandlers(users *store.UserStore, sessions *session.Store, render *render.Renderer) *AuthHandlers {
	return &AuthHandlers{users: users, sessions: sessions, render: render}
}

// registerForm carries submitted values back into the form on validation
// failure. The password is never echoed.
type registerForm struct {
	Username string
	Email    string
}

// ShowLogin renders the login page. Authenticated visitors are sent to
// their dashboard instead.
func (h *AuthHandlers) ShowLogin(w http.ResponseWriter, r *http.Request) {
	if middleware.SessionFromCtx(r.Context()) != nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	h.render.Render(w, r, http.StatusOK, "login.html", &render.PageData{
		Title: "Login",
		Data:  registerForm{},
	})
}

// Login verifies credentials, establishes a fresh session (the ID is
// always regenerated) and redirects to the page the visitor originally
// asked for.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	u, err := h.users.VerifyCredentials(username, password)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrWrongPassword) {
			h.render.Render(w, r, http.StatusUnauthorized, "login.html", &render.PageData{
				Title: "Login",
				Error: genericLoginError,
				Data:  registerForm{Username: username},
			})
			return
		}
		slog.Error("login failed", "error", err)
		h.render.Error(w, r, http.StatusInternalServerError, "Something went wrong. Please try again.")
		return
	}

	if _, err := h.sessions.Create(r.Context(), w, r, &session.Data{
		UserID:   u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     string(u.Role),
	}); err != nil {
		slog.Error("session create failed", "error", err)
		h.render.Error(w, r, http.StatusInternalServerError, "Something went wrong. Please try again.")
		return
	}

	http.Redirect(w, r, h.sessions.ConsumeReturnPath(w, r), http.StatusSeeOther)
}

// ShowRegister renders the registration page.
func (h *AuthHandlers) ShowRegister(w http.ResponseWriter, r *http.Request) {
	if middleware.SessionFromCtx(r.Context()) != nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	h.render.Render(w, r, http.StatusOK, "register.html", &render.PageData{
		Title: "Register",
		Data:  registerForm{},
	})
}

// Register validates the submitted account details, creates the user and
// logs them straight in.
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.FormValue("username"))
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	confirm := r.FormValue("confirm_password")

	form := registerForm{Username: username, Email: email}

	fail := func(status int, message string) {
		h.render.Render(w, r, status, "register.html", &render.PageData{
			Title: "Register",
			Error: message,
			Data:  form,
		})
	}

	// Check order: required fields, password match, password strength,
	// email format, then uniqueness at the store.
	if msg := validateUsername(username); msg != "" {
		fail(http.StatusBadRequest, msg)
		return
	}
	if password != confirm {
		fail(http.StatusBadRequest, "Passwords do not match.")
		return
	}
	if msg := validatePassword(password); msg != "" {
		fail(http.StatusBadRequest, msg)
		return
	}
	if msg := validateEmail(email); msg != "" {
		fail(http.StatusBadRequest, msg)
		return
	}

	u, err := h.users.Create(username, email, password)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateUsername):
			fail(http.StatusConflict, "That username is already taken.")
		case errors.Is(err, store.ErrDuplicateEmail):
			fail(http.StatusConflict, "That email is already registered.")
		default:
			slog.Error("register failed", "error", err)
			h.render.Error(w, r, http.StatusInternalServerError, "Something went wrong. Please try again.")
		}
		return
	}

	if _, err := h.sessions.Create(r.Context(), w, r, &session.Data{
		UserID:   u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     string(u.Role),
	}); err != nil {
		slog.Error("session create failed", "error", err)
		// Account exists; let them log in manually.
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// ShowLogout renders the logout confirmation page. Logout itself is a
// POST so a CSRF-protected form, not a crawled link, ends the session.
func (h *AuthHandlers) ShowLogout(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, r, http.StatusOK, "logout.html", &render.PageData{Title: "Logout"})
}

// Logout destroys the session and returns to the login page.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Destroy(r.Context(), w, r); err != nil {
		slog.Error("logout failed", "error", err)
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
