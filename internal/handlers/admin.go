package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"bookshelf/internal/middleware"
	"bookshelf/internal/models"
	"bookshelf/internal/render"
	"bookshelf/internal/store"
)

// AdminHandlers serves the admin area: the user overview, per-user
// management and community statistics.
type AdminHandlers struct {
	users  *store.UserStore
	books  *store.BookStore
	shelf  *store.ShelfStore
	render *render.Renderer
}

// NewAdminHandlers creates the admin handler group.
func NewAdminHandlers(users *store.UserStore, books *store.BookStore, shelf *store.ShelfStore, render *render.Renderer) *AdminHandlers {
	return &AdminHandlers{users: users, books: books, shelf: shelf, render: render}
}

// adminDashboardPage is the payload for the admin overview.
type adminDashboardPage struct {
	Users       []models.User
	BookCount   int
	ReviewCount int
}

// Dashboard shows all users with management actions plus catalog totals.
func (h *AdminHandlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	h.renderDashboard(w, r, http.StatusOK, "")
}

// renderDashboard builds and renders the admin overview, optionally with
// an inline error from a failed management action.
func (h *AdminHandlers) renderDashboard(w http.ResponseWriter, r *http.Request, status int, errMsg string) {
	users, err := h.users.List()
	if err != nil {
		slog.Error("list users failed", "error", err)
		h.render.Error(w, r, http.StatusInternalServerError, "Could not load the admin dashboard.")
		return
	}

	bookCount, err := h.books.Count()
	if err != nil {
		slog.Error("count books failed", "error", err)
		h.render.Error(w, r, http.StatusInternalServerError, "Could not load the admin dashboard.")
		return
	}

	reviewCount, err := h.shelf.ReviewCount()
	if err != nil {
		slog.Error("count reviews failed", "error", err)
		h.render.Error(w, r, http.StatusInternalServerError, "Could not load the admin dashboard.")
		return
	}

	h.render.Render(w, r, status, "admin_dashboard.html", &render.PageData{
		Title: "Admin Dashboard",
		Error: errMsg,
		Data: adminDashboardPage{
			Users:       users,
			BookCount:   bookCount,
			ReviewCount: reviewCount,
		},
	})
}

// Stats shows community-wide reading statistics.
func (h *AdminHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.shelf.Stats()
	if err != nil {
		slog.Error("admin stats failed", "error", err)
		h.render.Error(w, r, http.StatusInternalServerError, "Could not load the statistics.")
		return
	}

	h.render.Render(w, r, http.StatusOK, "admin_stats.html", &render.PageData{
		Title: "Community Statistics",
		Data:  stats,
	})
}

// adminUserPage is the payload for the per-user detail view.
type adminUserPage struct {
	User  models.User
	Stats models.UserStats
	Items []models.ShelfItem
}

// UserDetail shows one user's account, shelf statistics and full shelf.
func (h *AdminHandlers) UserDetail(w http.ResponseWriter, r *http.Request) {
	u := h.targetUser(w, r)
	if u == nil {
		return
	}

	stats, err := h.users.Stats(u.ID)
	if err != nil {
		slog.Error("user stats failed", "error", err)
		h.render.Error(w, r, http.StatusInternalServerError, "Could not load this user.")
		return
	}

	items, err := h.shelf.List(u.ID)
	if err != nil {
		slog.Error("list shelf failed", "error", err)
		h.render.Error(w, r, http.StatusInternalServerError, "Could not load this user.")
		return
	}

	h.render.Render(w, r, http.StatusOK, "admin_user.html", &render.PageData{
		Title: u.Username,
		Data:  adminUserPage{User: *u, Stats: *stats, Items: items},
	})
}

// adminAddBookPage is the payload for the add-book-for-user form.
type adminAddBookPage struct {
	User models.User
	Form bookForm
}

// ShowAddBookFor renders the form for adding a book to another user's shelf.
func (h *AdminHandlers) ShowAddBookFor(w http.ResponseWriter, r *http.Request) {
	u := h.targetUser(w, r)
	if u == nil {
		return
	}

	h.render.Render(w, r, http.StatusOK, "admin_add_book.html", &render.PageData{
		Title: "Add Book for " + u.Username,
		Data:  adminAddBookPage{User: *u, Form: emptyBookForm()},
	})
}

// AddBookFor adds a book to another user's shelf on their behalf.
func (h *AdminHandlers) AddBookFor(w http.ResponseWriter, r *http.Request) {
	u := h.targetUser(w, r)
	if u == nil {
		return
	}

	form := bookFormFromRequest(r)

	fail := func(status int, message string) {
		h.render.Render(w, r, status, "admin_add_book.html", &render.PageData{
			Title: "Add Book for " + u.Username,
			Error: message,
			Data:  adminAddBookPage{User: *u, Form: form},
		})
	}

	if form.Title == "" || form.Author == "" {
		fail(http.StatusBadRequest, "Title and author are required.")
		return
	}
	year, msg := parseYear(form.Year)
	if msg != "" {
		fail(http.StatusBadRequest, msg)
		return
	}
	rating, msg := parseRating(form.Rating)
	if msg != "" {
		fail(http.StatusBadRequest, msg)
		return
	}

	book, err := h.books.FindOrCreate(store.NewBook{
		Title:  form.Title,
		Author: form.Author,
		Year:   year,
		ISBN:   optString(form.ISBN),
	})
	if err != nil {
		slog.Error("find or create book failed", "error", err)
		fail(http.StatusInternalServerError, "Could not save the book. Please try again.")
		return
	}

	if _, err := h.shelf.Add(u.ID, book.ID, rating, optString(form.Review)); err != nil {
		if errors.Is(err, store.ErrAlreadyOnShelf) {
			fail(http.StatusConflict, "That book is already on this user's shelf.")
			return
		}
		slog.Error("add shelf entry failed", "error", err)
		fail(http.StatusInternalServerError, "Could not save the book. Please try again.")
		return
	}

	http.Redirect(w, r, "/admin/user/"+u.ID.String(), http.StatusSeeOther)
}

// ToggleRole flips a user between guest and admin. Admins cannot change
// their own role; that failure shows inline on the dashboard.
func (h *AdminHandlers) ToggleRole(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.render.Error(w, r, http.StatusNotFound, "User not found.")
		return
	}

	if _, err := h.users.ToggleRole(sess.UserID, userID); err != nil {
		switch {
		case errors.Is(err, store.ErrSelfAction):
			h.renderDashboard(w, r, http.StatusBadRequest, "You cannot change your own role.")
		case errors.Is(err, store.ErrNotFound):
			h.render.Error(w, r, http.StatusNotFound, "User not found.")
		default:
			slog.Error("toggle role failed", "error", err)
			h.render.Error(w, r, http.StatusInternalServerError, "Could not change the user's role.")
		}
		return
	}

	http.Redirect(w, r, "/admin/dashboard", http.StatusSeeOther)
}

// DeleteUser removes a user and, via the cascading foreign key, their
// entire shelf. Admins cannot delete their own account.
func (h *AdminHandlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.render.Error(w, r, http.StatusNotFound, "User not found.")
		return
	}

	if err := h.users.Delete(sess.UserID, userID); err != nil {
		switch {
		case errors.Is(err, store.ErrSelfAction):
			h.renderDashboard(w, r, http.StatusBadRequest, "You cannot delete your own account.")
		case errors.Is(err, store.ErrNotFound):
			h.render.Error(w, r, http.StatusNotFound, "User not found.")
		default:
			slog.Error("delete user failed", "error", err)
			h.render.Error(w, r, http.StatusInternalServerError, "Could not delete the user.")
		}
		return
	}

	http.Redirect(w, r, "/admin/dashboard", http.StatusSeeOther)
}

// targetUser resolves the {id} route parameter to a user, rendering 404
// or 500 itself and returning nil when the caller should stop.
func (h *AdminHandlers) targetUser(w http.ResponseWriter, r *http.Request) *models.User {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.render.Error(w, r, http.StatusNotFound, "User not found.")
		return nil
	}

	u, err := h.users.FindByID(id)
	if err != nil {
		slog.Error("find user failed", "error", err)
		h.render.Error(w, r, http.StatusInternalServerError, "Could not load this user.")
		return nil
	}
	if u == nil {
		h.render.Error(w, r, http.StatusNotFound, "User not found.")
		return nil
	}
	return u
}
