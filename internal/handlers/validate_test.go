package handlers

import "testing"

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		username string
		valid    bool
	}{
		{"alice", true},
		{"book_worm_99", true},
		{"ab", false},
		{"", false},
		{"this_username_is_way_too_long_to_use", false},
		{"bad name", false},
		{"<script>", false},
	}

	for _, tt := range tests {
		msg := validateUsername(tt.username)
		if (msg == "") != tt.valid {
			t.Errorf("validateUsername(%q) = %q, valid should be %v", tt.username, msg, tt.valid)
		}
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"reader@example.com", true},
		{"first.last@sub.example.co.uk", true},
		{"no-at-sign.example.com", false},
		{"spaces in@example.com", false},
		{"missing@tld", false},
		{"", false},
	}

	for _, tt := range tests {
		msg := validateEmail(tt.email)
		if (msg == "") != tt.valid {
			t.Errorf("validateEmail(%q) = %q, valid should be %v", tt.email, msg, tt.valid)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		valid    bool
	}{
		{"password1", true},
		{"1a345678", true},
		{"short1a", false},
		{"allletters", false},
		{"123456789", false},
		{"", false},
	}

	for _, tt := range tests {
		msg := validatePassword(tt.password)
		if (msg == "") != tt.valid {
			t.Errorf("validatePassword(%q) = %q, valid should be %v", tt.password, msg, tt.valid)
		}
	}
}

func TestParseRating(t *testing.T) {
	if got, msg := parseRating(""); got != nil || msg != "" {
		t.Errorf("empty rating = %v, %q", got, msg)
	}
	if got, msg := parseRating("4"); msg != "" || got == nil || *got != 4 {
		t.Errorf("rating 4 = %v, %q", got, msg)
	}
	for _, bad := range []string{"0", "6", "abc", "4.5"} {
		if _, msg := parseRating(bad); msg == "" {
			t.Errorf("parseRating(%q) accepted", bad)
		}
	}
}

func TestParseYear(t *testing.T) {
	if got, msg := parseYear(""); got != nil || msg != "" {
		t.Errorf("empty year = %v, %q", got, msg)
	}
	if got, msg := parseYear("1969"); msg != "" || got == nil || *got != 1969 {
		t.Errorf("year 1969 = %v, %q", got, msg)
	}
	for _, bad := range []string{"999", "2026", "MCMLXIX"} {
		if _, msg := parseYear(bad); msg == "" {
			t.Errorf("parseYear(%q) accepted", bad)
		}
	}
}

func TestOptString(t *testing.T) {
	if got := optString("  "); got != nil {
		t.Errorf("blank = %v, want nil", got)
	}
	if got := optString(" text "); got == nil || *got != "text" {
		t.Errorf("trimmed = %v, want text", got)
	}
}
