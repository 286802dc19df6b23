// ABOUTME: History and bookmark operations.
// ABOUTME: Applies result-count defaults and validates time bounds before sending.

package tools

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	defaultSearchResults = 50
	defaultRecentResults = 20
	maxHistoryResults    = 1000
)

// SearchHistoryParams is sent with history.search.
type SearchHistoryParams struct {
	Query      string `json:"query"`
	MaxResults int    `json:"maxResults"`
	StartTime  string `json:"startTime,omitempty"`
}

func (p *SearchHistoryParams) Normalize() error {
	p.Query = strings.TrimSpace(p.Query)
	if p.Query == "" {
		return errors.New("query must not be blank")
	}
	if p.MaxResults == 0 {
		p.MaxResults = defaultSearchResults
	}
	if p.StartTime != "" {
		t, err := time.Parse(time.RFC3339, p.StartTime)
		if err != nil {
			return fmt.Errorf("startTime must be RFC 3339: %w", err)
		}
		p.StartTime = t.UTC().Format(time.RFC3339)
	}
	return nil
}

// RecentHistoryParams is sent with history.recent.
type RecentHistoryParams struct {
	MaxResults int `json:"maxResults"`
}

func (p *RecentHistoryParams) Normalize() error {
	if p.MaxResults == 0 {
		p.MaxResults = defaultRecentResults
	}
	return nil
}

// HistoryURLParams is sent with history.delete_url.
type HistoryURLParams struct {
	URL string `json:"url"`
}

// Normalize only trims: deletion matches the stored URL exactly.
func (p *HistoryURLParams) Normalize() error {
	p.URL = strings.TrimSpace(p.URL)
	if p.URL == "" {
		return errors.New("url must not be blank")
	}
	return nil
}

// QueryParams carries a free-text query.
type QueryParams struct {
	Query string `json:"query"`
}

func (p *QueryParams) Normalize() error {
	p.Query = strings.TrimSpace(p.Query)
	if p.Query == "" {
		return errors.New("query must not be blank")
	}
	return nil
}

// CreateBookmarkParams is sent with bookmarks.create.
type CreateBookmarkParams struct {
	URL      string `json:"url"`
	Title    string `json:"title,omitempty"`
	ParentID string `json:"parentId,omitempty"`
}

func (p *CreateBookmarkParams) Normalize() error {
	u, err := NormalizeURL(p.URL)
	if err != nil {
		return err
	}
	p.URL = u
	p.Title = strings.TrimSpace(p.Title)
	return nil
}

// BookmarkParams names one bookmark node.
type BookmarkParams struct {
	ID string `json:"id"`
}

func (p *BookmarkParams) Normalize() error {
	if strings.TrimSpace(p.ID) == "" {
		return errors.New("id must not be blank")
	}
	return nil
}

func historyDescriptors() []Descriptor {
	return []Descriptor{
		{
			Name:        "search_history",
			Action:      "history.search",
			Description: "Search browsing history by text.",
			Schema: object(map[string]any{
				"query":      nonEmptyStr("Text to match against titles and URLs."),
				"maxResults": intRange("Maximum entries to return. Defaults to 50.", 1, maxHistoryResults),
				"startTime":  str("Only entries visited after this RFC 3339 time."),
			}, "query"),
			NewParams: func() Params { return &SearchHistoryParams{} },
		},
		{
			Name:        "get_recent_history",
			Action:      "history.recent",
			Description: "List the most recently visited pages.",
			Schema: object(map[string]any{
				"maxResults": intRange("Maximum entries to return. Defaults to 20.", 1, maxHistoryResults),
			}),
			NewParams: func() Params { return &RecentHistoryParams{} },
		},
		{
			Name:        "delete_history_url",
			Action:      "history.delete_url",
			Description: "Remove every visit to a URL from history.",
			Schema:      object(map[string]any{"url": nonEmptyStr("Exact URL to remove.")}, "url"),
			NewParams:   func() Params { return &HistoryURLParams{} },
		},
	}
}

func bookmarkDescriptors() []Descriptor {
	return []Descriptor{
		{
			Name:        "search_bookmarks",
			Action:      "bookmarks.search",
			Description: "Search bookmarks by title or URL.",
			Schema:      object(map[string]any{"query": nonEmptyStr("Text to search for.")}, "query"),
			NewParams:   func() Params { return &QueryParams{} },
		},
		{
			Name:        "create_bookmark",
			Action:      "bookmarks.create",
			Description: "Bookmark a URL.",
			Schema: object(map[string]any{
				"url":      nonEmptyStr("URL to bookmark."),
				"title":    str("Bookmark title."),
				"parentId": str("Folder id. Defaults to Other Bookmarks."),
			}, "url"),
			NewParams: func() Params { return &CreateBookmarkParams{} },
		},
		{
			Name:        "delete_bookmark",
			Action:      "bookmarks.remove",
			Description: "Delete a bookmark.",
			Schema:      object(map[string]any{"id": nonEmptyStr("Bookmark id.")}, "id"),
			NewParams:   func() Params { return &BookmarkParams{} },
		},
	}
}
