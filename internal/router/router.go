// Package router wires the HTTP routes to their handlers and middleware.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"bookshelf/internal/handlers"
	"bookshelf/internal/middleware"
	"bookshelf/internal/session"
)

// Deps bundles everything the route tree needs.
type Deps struct {
	Sessions    *session.Store
	Auth        *handlers.AuthHandlers
	Books       *handlers.BookHandlers
	Search      *handlers.SearchHandlers
	Admin       *handlers.AdminHandlers
	Health      *handlers.HealthHandler
	AuthLimiter *middleware.RateLimiter
	Secure      bool // mark cookies Secure outside development
}

// New builds the full route tree.
//
// Access levels: anonymous (login, register, health), authenticated
// (everything under RequireAuth) and admin (the /admin subtree).
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.LoadSession(d.Sessions))
	r.Use(middleware.NewCSRF(d.Secure))

	r.Get("/", d.Books.Home)
	r.Get("/health", d.Health.Check)

	// Credential submissions are rate limited per client IP.
	r.Get("/login", d.Auth.ShowLogin)
	r.With(d.AuthLimiter.Middleware).Post("/login", d.Auth.Login)
	r.Get("/register", d.Auth.ShowRegister)
	r.With(d.AuthLimiter.Middleware).Post("/register", d.Auth.Register)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(d.Sessions))

		r.Get("/logout", d.Auth.ShowLogout)
		r.Post("/logout", d.Auth.Logout)

		r.Get("/dashboard", d.Books.Dashboard)
		r.Get("/bookshelf", d.Books.Bookshelf)
		r.Get("/books/add", d.Books.ShowAddBook)
		r.Post("/books/add", d.Books.AddBook)
		r.Get("/books/edit/{bookID}", d.Books.ShowEditBook)
		r.Post("/books/edit/{bookID}", d.Books.EditBook)
		r.Post("/books/remove/{bookID}", d.Books.RemoveBook)
		r.Get("/books/user/{username}", d.Books.UserShelf)

		r.Get("/search", d.Search.Search)
		r.Post("/search/add", d.Search.AddFromSearch)
		r.Get("/recommendations", d.Search.Recommendations)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin)

			r.Get("/dashboard", d.Admin.Dashboard)
			r.Get("/stats", d.Admin.Stats)
			r.Get("/user/{id}", d.Admin.UserDetail)
			r.Get("/user/{id}/add-book", d.Admin.ShowAddBookFor)
			r.Post("/user/{id}/add-book", d.Admin.AddBookFor)
			r.Post("/user/{id}/toggle-role", d.Admin.ToggleRole)
			r.Post("/user/{id}/delete", d.Admin.DeleteUser)
		})
	})

	return r
}
