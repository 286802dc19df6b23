// ABOUTME: Navigation and page content operations, including screenshots.
// ABOUTME: Page reads default to the active tab when no tabId is given.

package tools

import (
	"errors"
	"strings"
	"time"
)

const (
	defaultTextLength = 100000
	contentTimeout    = 30 * time.Second
)

// NavigateParams is sent with navigation.go.
type NavigateParams struct {
	URL   string `json:"url"`
	TabID *int   `json:"tabId,omitempty"`
}

func (p *NavigateParams) Normalize() error {
	u, err := NormalizeURL(p.URL)
	if err != nil {
		return err
	}
	p.URL = u
	return nil
}

// OptionalTabParams targets one tab, or the active tab when TabID is nil.
type OptionalTabParams struct {
	TabID *int `json:"tabId,omitempty"`
}

func (*OptionalTabParams) Normalize() error { return nil }

// PageTextParams is sent with content.get_text.
type PageTextParams struct {
	TabID     *int `json:"tabId,omitempty"`
	MaxLength int  `json:"maxLength"`
}

func (p *PageTextParams) Normalize() error {
	if p.MaxLength == 0 {
		p.MaxLength = defaultTextLength
	}
	return nil
}

// PageHTMLParams is sent with content.get_html.
type PageHTMLParams struct {
	TabID    *int   `json:"tabId,omitempty"`
	Selector string `json:"selector,omitempty"`
}

func (p *PageHTMLParams) Normalize() error {
	p.Selector = strings.TrimSpace(p.Selector)
	return nil
}

// FindParams is sent with content.find.
type FindParams struct {
	Text          string `json:"text"`
	TabID         *int   `json:"tabId,omitempty"`
	CaseSensitive bool   `json:"caseSensitive,omitempty"`
}

func (p *FindParams) Normalize() error {
	if p.Text == "" {
		return errors.New("text must not be empty")
	}
	return nil
}

// ScreenshotParams is sent with content.screenshot.
type ScreenshotParams struct {
	TabID   *int   `json:"tabId,omitempty"`
	Format  string `json:"format"`
	Quality *int   `json:"quality,omitempty"`
}

func (p *ScreenshotParams) Normalize() error {
	if p.Format == "" {
		p.Format = "png"
	}
	if p.Quality != nil && p.Format != "jpeg" {
		return errors.New("quality applies only to jpeg screenshots")
	}
	return nil
}

func navigationDescriptors() []Descriptor {
	return []Descriptor{
		{
			Name:        "navigate",
			Action:      "navigation.go",
			Description: "Load a URL in a tab.",
			Schema: object(map[string]any{
				"url":   nonEmptyStr("URL to load. A bare host is loaded over https."),
				"tabId": tabIDProp,
			}, "url"),
			NewParams: func() Params { return &NavigateParams{} },
		},
		{
			Name:        "go_back",
			Action:      "navigation.back",
			Description: "Go back one entry in a tab's history.",
			Schema:      object(map[string]any{"tabId": tabIDProp}),
			NewParams:   func() Params { return &OptionalTabParams{} },
		},
		{
			Name:        "go_forward",
			Action:      "navigation.forward",
			Description: "Go forward one entry in a tab's history.",
			Schema:      object(map[string]any{"tabId": tabIDProp}),
			NewParams:   func() Params { return &OptionalTabParams{} },
		},
	}
}

func contentDescriptors() []Descriptor {
	return []Descriptor{
		{
			Name:        "get_page_text",
			Action:      "content.get_text",
			Description: "Extract the visible text of a page.",
			Schema: object(map[string]any{
				"tabId":     tabIDProp,
				"maxLength": intMin("Truncate the text to this many characters. Defaults to 100000.", 1),
			}),
			NewParams: func() Params { return &PageTextParams{} },
		},
		{
			Name:        "get_page_html",
			Action:      "content.get_html",
			Description: "Get the HTML of a page or of the first element matching a selector.",
			Schema: object(map[string]any{
				"tabId":    tabIDProp,
				"selector": str("CSS selector. Defaults to the whole document."),
			}),
			Timeout:   contentTimeout,
			NewParams: func() Params { return &PageHTMLParams{} },
		},
		{
			Name:        "get_page_links",
			Action:      "content.get_links",
			Description: "List the links on a page.",
			Schema:      object(map[string]any{"tabId": tabIDProp}),
			NewParams:   func() Params { return &OptionalTabParams{} },
		},
		{
			Name:        "find_in_page",
			Action:      "content.find",
			Description: "Find text on a page and report the matches.",
			Schema: object(map[string]any{
				"text":          nonEmptyStr("Text to find."),
				"tabId":         tabIDProp,
				"caseSensitive": boolean("Match case."),
			}, "text"),
			NewParams: func() Params { return &FindParams{} },
		},
		{
			Name:        "take_screenshot",
			Action:      "content.screenshot",
			Description: "Capture the visible area of a tab as an image.",
			Schema: object(map[string]any{
				"tabId":   tabIDProp,
				"format":  enum("Image format. Defaults to png.", "png", "jpeg"),
				"quality": intRange("JPEG quality.", 0, 100),
			}),
			Timeout:   contentTimeout,
			NewParams: func() Params { return &ScreenshotParams{} },
		},
	}
}
