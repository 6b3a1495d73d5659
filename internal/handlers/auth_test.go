package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"bookshelf/internal/render"
	"bookshelf/internal/store"
)

// testAuthHandlers builds the auth group with a renderer but no backing
// stores. Validation-failure paths return before any store is touched.
func testAuthHandlers(t *testing.T) *AuthHandlers {
	t.Helper()

	renderer, err := render.New()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	return NewAuthHandlers(store.NewUserStore(nil), nil, renderer)
}

func postRegister(t *testing.T, h *AuthHandlers, form url.Values) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	h.Register(rec, req)
	return rec
}

// The checks run in a fixed order: required fields, password match,
// password strength, email format. When several fail at once, the
// earliest one's message wins.
func TestRegisterValidationOrder(t *testing.T) {
	h := testAuthHandlers(t)

	tests := []struct {
		name string
		form url.Values
		want string
	}{
		{
			name: "everything wrong reports username first",
			form: url.Values{
				"username":         {"x"},
				"email":            {"not-an-email"},
				"password":         {"short"},
				"confirm_password": {"different"},
			},
			want: "Username must be between 3 and 30 characters.",
		},
		{
			name: "mismatch beats weak password and bad email",
			form: url.Values{
				"username":         {"reader"},
				"email":            {"not-an-email"},
				"password":         {"short"},
				"confirm_password": {"different"},
			},
			want: "Passwords do not match.",
		},
		{
			name: "weak password beats bad email",
			form: url.Values{
				"username":         {"reader"},
				"email":            {"not-an-email"},
				"password":         {"allletters"},
				"confirm_password": {"allletters"},
			},
			want: "Password must contain at least one letter and one digit.",
		},
		{
			name: "bad email reported last",
			form: url.Values{
				"username":         {"reader"},
				"email":            {"not-an-email"},
				"password":         {"password1"},
				"confirm_password": {"password1"},
			},
			want: "Please enter a valid email address.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postRegister(t, h, tt.form)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.want) {
				t.Errorf("body missing %q", tt.want)
			}
		})
	}
}

// Submitted values are echoed back into the form so the visitor does not
// retype everything; the password never is.
func TestRegisterEchoesFormOnFailure(t *testing.T) {
	h := testAuthHandlers(t)

	rec := postRegister(t, h, url.Values{
		"username":         {"reader"},
		"email":            {"reader@example.com"},
		"password":         {"secretpw1"},
		"confirm_password": {"other"},
	})

	body := rec.Body.String()
	if !strings.Contains(body, `value="reader"`) || !strings.Contains(body, `value="reader@example.com"`) {
		t.Error("username/email not echoed back")
	}
	if strings.Contains(body, "secretpw1") {
		t.Error("password echoed back into the page")
	}
}
