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

// ratingOptions feeds the rating dropdowns. Form values are strings.
var ratingOptions = []string{"1", "2", "3", "4", "5"}

// BookHandlers serves the dashboard, the bookshelf and its CRUD pages,
// and public per-user shelf views.
type BookHandlers struct {
	books  *store.BookStore
	shelf  *store.ShelfStore
	users  *store.UserStore
	render *render.Renderer
}

// NewBookHandlers creates the book handler group.
func NewBookHandlers(books *store.BookStore, shelf *store.ShelfStore, users *store.UserStore, render *render.Renderer) *BookHandlers {
	return &BookHandlers{books: books, shelf: shelf, users: users, render: render}
}

// bookForm carries add-book form values, echoed back on validation failure.
type bookForm struct {
	Title         string
	Author        string
	Year          string
	ISBN          string
	Rating        string
	Review        string
	RatingOptions []string
}

func emptyBookForm() bookForm {
	return bookForm{RatingOptions: ratingOptions}
}

func bookFormFromRequest(r *http.Request) bookForm {
	return bookForm{
		Title:         r.FormValue("title"),
		Author:        r.FormValue("author"),
		Year:          r.FormValue("year"),
		ISBN:          r.FormValue("isbn"),
		Rating:        r.FormValue("rating"),
		Review:        r.FormValue("review"),
		RatingOptions: ratingOptions,
	}
}

// editPage is the payload for the edit form.
type editPage struct {
	Item          *models.ShelfItem
	RatingOptions []string
}

// Home routes the root URL: authenticated visitors to their dashboard,
// everyone else to login.
func (h *BookHandlers) Home(w http.ResponseWriter, r *http.Request) {
	if middleware.SessionFromCtx(r.Context()) != nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// Dashboard shows the five most recent and five top rated shelf entries.
func (h *BookHandlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	summary, err := h.shelf.Summary(sess.UserID)
	if err != nil {
		slog.Error("dashboard summary failed", "error", err)
		h.render.Error(w, r, http.StatusInternalServerError, "Could not load your dashboard.")
		return
	}

	h.render.Render(w, r, http.StatusOK, "dashboard.html", &render.PageData{
		Title: "Dashboard",
		Data:  summary,
	})
}

// Bookshelf lists the user's full shelf, newest first.
func (h *BookHandlers) Bookshelf(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	items, err := h.shelf.List(sess.UserID)
	if err != nil {
		slog.Error("list shelf failed", "error", err)
		h.render.Error(w, r, http.StatusInternalServerError, "Could not load your bookshelf.")
		return
	}

	h.render.Render(w, r, http.StatusOK, "bookshelf.html", &render.PageData{
		Title: "My Bookshelf",
		Data:  items,
	})
}

// ShowAddBook renders the manual add-book form.
func (h *BookHandlers) ShowAddBook(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, r, http.StatusOK, "book_form.html", &render.PageData{
		Title: "Add a Book",
		Data:  emptyBookForm(),
	})
}

// AddBook validates the form, resolves the book against the shared
// catalog and puts it on the user's shelf.
func (h *BookHandlers) AddBook(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	form := bookFormFromRequest(r)

	fail := func(status int, message string) {
		h.render.Render(w, r, status, "book_form.html", &render.PageData{
			Title: "Add a Book",
			Error: message,
			Data:  form,
		})
	}

	book, rating, review, msg := h.resolveBookForm(form)
	if msg != "" {
		fail(http.StatusBadRequest, msg)
		return
	}
	if book == nil {
		fail(http.StatusInternalServerError, "Could not save the book. Please try again.")
		return
	}

	if _, err := h.shelf.Add(sess.UserID, book.ID, rating, review); err != nil {
		if errors.Is(err, store.ErrAlreadyOnShelf) {
			fail(http.StatusConflict, "That book is already on your shelf.")
			return
		}
		slog.Error("add shelf entry failed", "error", err)
		fail(http.StatusInternalServerError, "Could not save the book. Please try again.")
		return
	}

	http.Redirect(w, r, "/bookshelf", http.StatusSeeOther)
}

// resolveBookForm validates a book form and resolves it to a catalog row.
// Returns a message on validation failure and a nil book on store failure.
func (h *BookHandlers) resolveBookForm(form bookForm) (*models.Book, *int, *string, string) {
	if form.Title == "" || form.Author == "" {
		return nil, nil, nil, "Title and author are required."
	}

	year, msg := parseYear(form.Year)
	if msg != "" {
		return nil, nil, nil, msg
	}
	rating, msg := parseRating(form.Rating)
	if msg != "" {
		return nil, nil, nil, msg
	}

	book, err := h.books.FindOrCreate(store.NewBook{
		Title:  form.Title,
		Author: form.Author,
		Year:   year,
		ISBN:   optString(form.ISBN),
	})
	if err != nil {
		slog.Error("find or create book failed", "error", err)
		return nil, nil, nil, ""
	}

	return book, rating, optString(form.Review), ""
}

// ShowEditBook renders the edit form for a shelf entry.
func (h *BookHandlers) ShowEditBook(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	bookID, err := uuid.Parse(chi.URLParam(r, "bookID"))
	if err != nil {
		h.render.Error(w, r, http.StatusNotFound, "Book not found.")
		return
	}

	item, err := h.shelf.Get(sess.UserID, bookID)
	if err != nil {
		slog.Error("get shelf entry failed", "error", err)
		h.render.Error(w, r, http.StatusInternalServerError, "Could not load the book.")
		return
	}
	if item == nil {
		h.render.Error(w, r, http.StatusNotFound, "That book is not on your shelf.")
		return
	}

	h.render.Render(w, r, http.StatusOK, "book_edit.html", &render.PageData{
		Title: "Edit Book",
		Data:  editPage{Item: item, RatingOptions: ratingOptions},
	})
}

// EditBook updates the rating and review of a shelf entry.
func (h *BookHandlers) EditBook(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	bookID, err := uuid.Parse(chi.URLParam(r, "bookID"))
	if err != nil {
		h.render.Error(w, r, http.StatusNotFound, "Book not found.")
		return
	}

	rating, msg := parseRating(r.FormValue("rating"))
	if msg != "" {
		item, gerr := h.shelf.Get(sess.UserID, bookID)
		if gerr != nil || item == nil {
			h.render.Error(w, r, http.StatusNotFound, "That book is not on your shelf.")
			return
		}
		h.render.Render(w, r, http.StatusBadRequest, "book_edit.html", &render.PageData{
			Title: "Edit Book",
			Error: msg,
			Data:  editPage{Item: item, RatingOptions: ratingOptions},
		})
		return
	}

	if _, err := h.shelf.Update(sess.UserID, bookID, rating, optString(r.FormValue("review"))); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.render.Error(w, r, http.StatusNotFound, "That book is not on your shelf.")
			return
		}
		slog.Error("update shelf entry failed", "error", err)
		h.render.Error(w, r, http.StatusInternalServerError, "Could not save your changes.")
		return
	}

	http.Redirect(w, r, "/bookshelf", http.StatusSeeOther)
}

// RemoveBook takes a book off the user's shelf. Removing a book that is
// not there is a no-op.
func (h *BookHandlers) RemoveBook(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	bookID, err := uuid.Parse(chi.URLParam(r, "bookID"))
	if err != nil {
		h.render.Error(w, r, http.StatusNotFound, "Book not found.")
		return
	}

	if err := h.shelf.Remove(sess.UserID, bookID); err != nil {
		slog.Error("remove shelf entry failed", "error", err)
		h.render.Error(w, r, http.StatusInternalServerError, "Could not remove the book.")
		return
	}

	http.Redirect(w, r, "/bookshelf", http.StatusSeeOther)
}

// userShelfPage is the payload for another user's public shelf view.
type userShelfPage struct {
	Username string
	Items    []models.ShelfItem
}

// UserShelf shows another member's shelf, read-only.
func (h *BookHandlers) UserShelf(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	u, err := h.users.FindByUsername(username)
	if err != nil {
		slog.Error("find user failed", "error", err)
		h.render.Error(w, r, http.StatusInternalServerError, "Could not load this shelf.")
		return
	}
	if u == nil {
		h.render.Error(w, r, http.StatusNotFound, "User not found.")
		return
	}

	items, err := h.shelf.List(u.ID)
	if err != nil {
		slog.Error("list shelf failed", "error", err)
		h.render.Error(w, r, http.StatusInternalServerError, "Could not load this shelf.")
		return
	}

	h.render.Render(w, r, http.StatusOK, "user_shelf.html", &render.PageData{
		Title: u.Username + "'s Bookshelf",
		Data:  userShelfPage{Username: u.Username, Items: items},
	})
}
