package render

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bookshelf/internal/middleware"
)

func TestNewParsesAllTemplates(t *testing.T) {
	rn, err := New()
	if err != nil {
		t.Fatalf("parse templates: %v", err)
	}

	pages := []string{
		"login.html", "register.html", "logout.html",
		"dashboard.html", "bookshelf.html", "book_form.html", "book_edit.html",
		"user_shelf.html", "search.html", "recommendations.html",
		"admin_dashboard.html", "admin_user.html", "admin_add_book.html", "admin_stats.html",
		"error.html",
	}
	for _, page := range pages {
		if _, ok := rn.templates[page]; !ok {
			t.Errorf("template %s not parsed", page)
		}
	}
}

func TestRenderLoginPage(t *testing.T) {
	rn, err := New()
	if err != nil {
		t.Fatalf("parse templates: %v", err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/login", nil)

	rn.Render(rec, req, http.StatusOK, "login.html", &PageData{Title: "Login"})

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `action="/login"`) {
		t.Error("login form missing")
	}
	if !strings.Contains(body, `name="csrf_token"`) {
		t.Error("CSRF field missing")
	}
	// Anonymous layout shows login and register links.
	if !strings.Contains(body, `href="/register"`) {
		t.Error("register link missing")
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	rn, err := New()
	if err != nil {
		t.Fatalf("parse templates: %v", err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	rn.Render(rec, req, http.StatusOK, "nope.html", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestRenderErrorPage(t *testing.T) {
	rn, err := New()
	if err != nil {
		t.Fatalf("parse templates: %v", err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/missing", nil)

	rn.Error(rec, req, http.StatusNotFound, "User not found.")

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "User not found.") {
		t.Error("error message missing from body")
	}
}

func TestRenderEscapesUntrustedData(t *testing.T) {
	rn, err := New()
	if err != nil {
		t.Fatalf("parse templates: %v", err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/missing", nil)

	rn.Error(rec, req, http.StatusNotFound, "<script>alert(1)</script>")

	if strings.Contains(rec.Body.String(), "<script>alert") {
		t.Error("untrusted message rendered unescaped")
	}
}

func TestStars(t *testing.T) {
	if got := stars(nil); got != "Not rated" {
		t.Errorf("stars(nil) = %q", got)
	}
	three := 3
	if got := stars(&three); got != "★★★☆☆" {
		t.Errorf("stars(3) = %q", got)
	}
}

func TestCSRFTokenInjectedFromContext(t *testing.T) {
	rn, err := New()
	if err != nil {
		t.Fatalf("parse templates: %v", err)
	}

	// Run through the CSRF middleware so the token lands in the context.
	handler := middleware.NewCSRF(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rn.Render(w, r, http.StatusOK, "login.html", &PageData{Title: "Login"})
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))

	var token string
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.CSRFCookieName {
			token = c.Value
		}
	}
	if token == "" {
		t.Fatal("no CSRF cookie")
	}
	if !strings.Contains(rec.Body.String(), token) {
		t.Error("CSRF token from context not rendered into the form")
	}
}
