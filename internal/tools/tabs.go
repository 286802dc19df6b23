// ABOUTME: Tab operations: listing, opening, closing, activating, and grouping tabs.
// ABOUTME: Defines the typed params sent with each tabs.* action.

package tools

import (
	"errors"
	"strings"
)

const maxTabIDs = 100

// ListTabsParams filters tabs.list to one window.
type ListTabsParams struct {
	WindowID *int `json:"windowId,omitempty"`
}

func (*ListTabsParams) Normalize() error { return nil }

// OpenTabParams is sent with tabs.create.
type OpenTabParams struct {
	URL      string `json:"url"`
	Active   *bool  `json:"active,omitempty"`
	WindowID *int   `json:"windowId,omitempty"`
}

func (p *OpenTabParams) Normalize() error {
	u, err := NormalizeURL(p.URL)
	if err != nil {
		return err
	}
	p.URL = u
	if p.Active == nil {
		active := true
		p.Active = &active
	}
	return nil
}

// TabIDsParams names a set of tabs.
type TabIDsParams struct {
	TabIDs []int `json:"tabIds"`
}

func (p *TabIDsParams) Normalize() error {
	return checkTabIDs(p.TabIDs)
}

// GroupTabsParams is sent with tabs.group.
type GroupTabsParams struct {
	TabIDs []int  `json:"tabIds"`
	Title  string `json:"title,omitempty"`
}

func (p *GroupTabsParams) Normalize() error {
	p.Title = strings.TrimSpace(p.Title)
	return checkTabIDs(p.TabIDs)
}

func checkTabIDs(ids []int) error {
	if len(ids) == 0 {
		return errors.New("tabIds must not be empty")
	}
	if len(ids) > maxTabIDs {
		return errors.New("too many tabIds")
	}
	seen := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return errors.New("tabIds must be unique")
		}
		seen[id] = struct{}{}
	}
	return nil
}

// TabParams names exactly one tab.
type TabParams struct {
	TabID int `json:"tabId"`
}

func (*TabParams) Normalize() error { return nil }

// ReloadTabParams is sent with tabs.reload.
type ReloadTabParams struct {
	TabID       int  `json:"tabId"`
	BypassCache bool `json:"bypassCache,omitempty"`
}

func (*ReloadTabParams) Normalize() error { return nil }

func tabDescriptors() []Descriptor {
	return []Descriptor{
		{
			Name:        "list_tabs",
			Action:      "tabs.list",
			Description: "List open tabs, optionally restricted to one window.",
			Schema:      object(map[string]any{"windowId": windowIDProp}),
			NewParams:   func() Params { return &ListTabsParams{} },
		},
		{
			Name:        "get_active_tab",
			Action:      "tabs.get_active",
			Description: "Get the active tab of the focused window.",
			Schema:      emptyObject(),
			NewParams:   newNoParams,
		},
		{
			Name:        "open_tab",
			Action:      "tabs.create",
			Description: "Open a URL in a new tab.",
			Schema: object(map[string]any{
				"url":      nonEmptyStr("URL to open. A bare host is opened over https."),
				"active":   boolean("Focus the new tab. Defaults to true."),
				"windowId": windowIDProp,
			}, "url"),
			NewParams: func() Params { return &OpenTabParams{} },
		},
		{
			Name:        "close_tabs",
			Action:      "tabs.close",
			Description: "Close one or more tabs.",
			Schema:      object(map[string]any{"tabIds": idList("Tab ids to close.", maxTabIDs)}, "tabIds"),
			NewParams:   func() Params { return &TabIDsParams{} },
		},
		{
			Name:        "activate_tab",
			Action:      "tabs.activate",
			Description: "Focus a tab and its window.",
			Schema:      object(map[string]any{"tabId": integer("Tab id.")}, "tabId"),
			NewParams:   func() Params { return &TabParams{} },
		},
		{
			Name:        "reload_tab",
			Action:      "tabs.reload",
			Description: "Reload a tab.",
			Schema: object(map[string]any{
				"tabId":       integer("Tab id."),
				"bypassCache": boolean("Skip the browser cache."),
			}, "tabId"),
			NewParams: func() Params { return &ReloadTabParams{} },
		},
		{
			Name:        "duplicate_tab",
			Action:      "tabs.duplicate",
			Description: "Duplicate a tab.",
			Schema:      object(map[string]any{"tabId": integer("Tab id.")}, "tabId"),
			NewParams:   func() Params { return &TabParams{} },
		},
		{
			Name:        "group_tabs",
			Action:      "tabs.group",
			Description: "Put tabs into a new tab group.",
			Schema: object(map[string]any{
				"tabIds": idList("Tab ids to group.", maxTabIDs),
				"title":  str("Group title."),
			}, "tabIds"),
			NewParams: func() Params { return &GroupTabsParams{} },
		},
	}
}
