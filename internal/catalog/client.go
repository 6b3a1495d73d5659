// Package catalog provides a client for the Google Books volumes API,
// used for searching books and fetching author-based recommendations.
// The catalog is an optional enrichment: callers treat ErrUnavailable as
// "no results" and keep the rest of the application working.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// maxQueryLength caps user-supplied search queries before they reach
	// the upstream API.
	maxQueryLength = 100

	// searchLimit is the maximum number of results per search.
	searchLimit = 10

	// authorLimit is the number of results fetched per author for
	// recommendations.
	authorLimit = 3
)

// ErrUnavailable is returned when the upstream catalog cannot be reached
// or answers with a non-200 status. Callers degrade to an empty result.
var ErrUnavailable = errors.New("catalog: service unavailable")

// Result is one book returned by the catalog, normalized from the
// upstream volume shape into the fields the application uses.
type Result struct {
	ExternalID string `json:"external_id"`
	Title      string `json:"title"`
	Author     string `json:"author"`
	Year       *int   `json:"year,omitempty"`
	ISBN       string `json:"isbn,omitempty"`
	CoverURL   string `json:"cover_url,omitempty"`
}

// Client talks to the Google Books volumes endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a catalog client. baseURL points at the API root
// (".../books/v1"); timeout bounds each request.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Search queries the catalog by free-text query and returns up to ten
// results. The query is trimmed and truncated to 100 characters; an empty
// query returns no results without calling upstream.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	query = truncateQuery(query)

	return c.volumes(ctx, query, searchLimit)
}

// ByAuthor returns up to three of an author's books, used to build the
// recommendations page from a reader's favourite authors.
func (c *Client) ByAuthor(ctx context.Context, author string) ([]Result, error) {
	author = strings.TrimSpace(author)
	if author == "" {
		return nil, nil
	}

	return c.volumes(ctx, fmt.Sprintf("inauthor:%q", author), authorLimit)
}

// volumeList mirrors the subset of the upstream response the client reads.
type volumeList struct {
	Items []struct {
		ID         string `json:"id"`
		VolumeInfo struct {
			Title               string   `json:"title"`
			Authors             []string `json:"authors"`
			PublishedDate       string   `json:"publishedDate"`
			IndustryIdentifiers []struct {
				Type       string `json:"type"`
				Identifier string `json:"identifier"`
			} `json:"industryIdentifiers"`
			ImageLinks struct {
				Thumbnail string `json:"thumbnail"`
			} `json:"imageLinks"`
		} `json:"volumeInfo"`
	} `json:"items"`
}

func (c *Client) volumes(ctx context.Context, query string, limit int) ([]Result, error) {
	endpoint := fmt.Sprintf("%s/volumes?q=%s&maxResults=%d",
		c.baseURL, url.QueryEscape(query), limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("catalog request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Warn("catalog request failed", "error", err)
		return nil, ErrUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		slog.Warn("catalog returned non-200", "status", resp.StatusCode)
		return nil, ErrUnavailable
	}

	var list volumeList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		slog.Warn("catalog decode failed", "error", err)
		return nil, ErrUnavailable
	}

	results := make([]Result, 0, len(list.Items))
	for _, item := range list.Items {
		info := item.VolumeInfo
		if info.Title == "" {
			continue
		}

		r := Result{
			ExternalID: item.ID,
			Title:      info.Title,
			Author:     "Unknown Author",
			CoverURL:   info.ImageLinks.Thumbnail,
		}
		if len(info.Authors) > 0 {
			r.Author = strings.Join(info.Authors, ", ")
		}
		if y := publicationYear(info.PublishedDate); y != nil {
			r.Year = y
		}
		if len(info.IndustryIdentifiers) > 0 {
			r.ISBN = info.IndustryIdentifiers[0].Identifier
		}

		results = append(results, r)
	}
	return results, nil
}

// truncateQuery caps a query at maxQueryLength characters. Counting
// runes, not bytes, so a multi-byte character is never split.
func truncateQuery(query string) string {
	if utf8.RuneCountInString(query) <= maxQueryLength {
		return query
	}
	runes := []rune(query)
	return string(runes[:maxQueryLength])
}

// publicationYear extracts the year from an upstream date, which may be
// "2006", "2006-01" or "2006-01-02".
func publicationYear(date string) *int {
	if len(date) < 4 {
		return nil
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil {
		return nil
	}
	return &y
}
