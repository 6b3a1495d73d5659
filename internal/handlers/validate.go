package handlers

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// emailRe is deliberately loose: something@something.tld. Real validation
// happens when mail bounces.
var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const (
	minUsernameLength = 3
	maxUsernameLength = 30
	minPasswordLength = 8

	minYear = 1000
	maxYear = 2025
)

// validateUsername returns an error message, or "" when the username is
// acceptable: 3 to 30 characters, letters, digits and underscores only.
func validateUsername(username string) string {
	if len(username) < minUsernameLength || len(username) > maxUsernameLength {
		return "Username must be between 3 and 30 characters."
	}
	for _, r := range username {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return "Username may only contain letters, digits and underscores."
		}
	}
	return ""
}

// validateEmail returns an error message, or "" when the email looks valid.
func validateEmail(email string) string {
	if !emailRe.MatchString(email) {
		return "Please enter a valid email address."
	}
	return ""
}

// validatePassword enforces the strength policy: at least 8 characters
// with at least one letter and one digit.
func validatePassword(password string) string {
	if len(password) < minPasswordLength {
		return "Password must be at least 8 characters long."
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return "Password must contain at least one letter and one digit."
	}
	return ""
}

// parseRating converts an optional rating form value. Empty means unrated.
func parseRating(value string) (*int, string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, ""
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 || n > 5 {
		return nil, "Rating must be between 1 and 5."
	}
	return &n, ""
}

// parseYear converts an optional publication year form value.
func parseYear(value string) (*int, string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, ""
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < minYear || n > maxYear {
		return nil, "Publication year must be between 1000 and 2025."
	}
	return &n, ""
}

// optString maps an empty form value to nil so it stores as NULL.
func optString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
