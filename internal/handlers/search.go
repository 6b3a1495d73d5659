package handlers

import (
	"errors"
	"html"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"bookshelf/internal/catalog"
	"bookshelf/internal/middleware"
	"bookshelf/internal/render"
	"bookshelf/internal/store"
)

// catalogDownMessage is shown whenever the external catalog cannot be
// reached. The rest of the application keeps working.
const catalogDownMessage = "The book catalog is temporarily unavailable. Please try again later."

// maxRecommendationAuthors bounds how many favourite authors feed the
// recommendations page.
const maxRecommendationAuthors = 3

// SearchHandlers serves catalog search, add-from-search and the
// recommendations page.
type SearchHandlers struct {
	catalog *catalog.Client
	books   *store.BookStore
	shelf   *store.ShelfStore
	render  *render.Renderer
}

// NewSearchHandlers creates the search handler group.
func NewSearchHandlers(client *catalog.Client, books *store.BookStore, shelf *store.ShelfStore, render *render.Renderer) *SearchHandlers {
	return &SearchHandlers{catalog: client, books: books, shelf: shelf, render: render}
}

// searchPage is the payload for the search template.
type searchPage struct {
	Query   string
	Results []catalog.Result
	Message string
}

// Search renders the search form and, when a query is present, the
// catalog results. Upstream failures degrade to an inline message.
func (h *SearchHandlers) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	page := searchPage{Query: query}
	if query != "" {
		results, err := h.catalog.Search(r.Context(), query)
		switch {
		case errors.Is(err, catalog.ErrUnavailable):
			page.Message = catalogDownMessage
		case err != nil:
			slog.Error("catalog search failed", "error", err)
			page.Message = catalogDownMessage
		case len(results) == 0:
			page.Message = "No books found for \"" + query + "\"."
		default:
			page.Results = results
		}
	}

	h.render.Render(w, r, http.StatusOK, "search.html", &render.PageData{
		Title: "Search",
		Data:  page,
	})
}

// AddFromSearch puts a catalog search result on the user's shelf, with
// an optional rating and review. The book's external ID keeps repeated
// adds of the same result on one catalog row. A book already on the
// shelf is left as is.
func (h *SearchHandlers) AddFromSearch(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	title := strings.TrimSpace(r.FormValue("title"))
	author := strings.TrimSpace(r.FormValue("author"))
	if title == "" || author == "" {
		h.render.Error(w, r, http.StatusBadRequest, "Title and author are required.")
		return
	}

	year, msg := parseYear(r.FormValue("year"))
	if msg != "" {
		h.render.Error(w, r, http.StatusBadRequest, msg)
		return
	}
	rating, msg := parseRating(r.FormValue("rating"))
	if msg != "" {
		h.render.Error(w, r, http.StatusBadRequest, msg)
		return
	}

	book, err := h.books.FindOrCreate(store.NewBook{
		Title:      title,
		Author:     author,
		Year:       year,
		ISBN:       optString(r.FormValue("isbn")),
		CoverURL:   optString(r.FormValue("cover_url")),
		ExternalID: optString(r.FormValue("external_id")),
	})
	if err != nil {
		slog.Error("find or create book failed", "error", err)
		h.render.Error(w, r, http.StatusInternalServerError, "Could not save the book. Please try again.")
		return
	}

	if _, err := h.shelf.Add(sess.UserID, book.ID, rating, optString(r.FormValue("review"))); err != nil && !errors.Is(err, store.ErrAlreadyOnShelf) {
		slog.Error("add shelf entry failed", "error", err)
		h.render.Error(w, r, http.StatusInternalServerError, "Could not add the book to your shelf.")
		return
	}

	http.Redirect(w, r, "/bookshelf", http.StatusSeeOther)
}

// authorGroup is one recommendations section: an author from the user's
// shelf and a few of their other books.
type authorGroup struct {
	Author  string
	Results []catalog.Result
}

// recommendationsPage is the payload for the recommendations template.
// Fallback carries general suggestions for visitors with an empty shelf.
type recommendationsPage struct {
	Groups   []authorGroup
	Fallback []catalog.Result
	Message  string
}

// fallbackQuery feeds general suggestions when a shelf has no authors to
// recommend from yet.
const fallbackQuery = "subject:fiction"

// Recommendations suggests more books by the user's best rated authors.
// Books already on the shelf are filtered out of the suggestions. An
// empty shelf gets general fiction picks instead.
func (h *SearchHandlers) Recommendations(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	authors, err := h.shelf.TopAuthors(sess.UserID, maxRecommendationAuthors)
	if err != nil {
		slog.Error("top authors failed", "error", err)
		h.render.Error(w, r, http.StatusInternalServerError, "Could not load recommendations.")
		return
	}

	page := recommendationsPage{}
	if len(authors) == 0 {
		results, err := h.catalog.Search(r.Context(), fallbackQuery)
		switch {
		case err != nil:
			page.Message = catalogDownMessage
		case len(results) == 0:
			page.Message = "Add some books to your shelf to get recommendations."
		default:
			page.Fallback = results
			page.Message = "Your shelf is empty, so here are some popular picks to get you started."
		}

		h.render.Render(w, r, http.StatusOK, "recommendations.html", &render.PageData{
			Title: "Recommendations",
			Data:  page,
		})
		return
	}

	owned, err := h.ownedTitles(sess.UserID)
	if err != nil {
		slog.Error("list shelf failed", "error", err)
		h.render.Error(w, r, http.StatusInternalServerError, "Could not load recommendations.")
		return
	}

	unavailable := false
	for _, author := range authors {
		results, err := h.catalog.ByAuthor(r.Context(), html.UnescapeString(author))
		if err != nil {
			unavailable = true
			break
		}

		filtered := results[:0]
		for _, res := range results {
			if !owned[strings.ToLower(res.Title)] {
				filtered = append(filtered, res)
			}
		}
		if len(filtered) > 0 {
			page.Groups = append(page.Groups, authorGroup{Author: author, Results: filtered})
		}
	}

	if unavailable {
		page.Groups = nil
		page.Message = catalogDownMessage
	} else if page.Message == "" && len(page.Groups) == 0 {
		page.Message = "No new recommendations right now. Check back later."
	}

	h.render.Render(w, r, http.StatusOK, "recommendations.html", &render.PageData{
		Title: "Recommendations",
		Data:  page,
	})
}

// ownedTitles returns a lowercase set of the titles already on the
// user's shelf, unescaped back to their raw form for comparison against
// catalog results.
func (h *SearchHandlers) ownedTitles(userID uuid.UUID) (map[string]bool, error) {
	items, err := h.shelf.List(userID)
	if err != nil {
		return nil, err
	}
	owned := make(map[string]bool, len(items))
	for _, item := range items {
		owned[strings.ToLower(html.UnescapeString(item.Book.Title))] = true
	}
	return owned, nil
}
