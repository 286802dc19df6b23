// ABOUTME: Window management and network request monitoring operations.
// ABOUTME: Monitoring is scoped to one tab or, with no tabId, the active tab.

package tools

import "strings"

const (
	defaultRequestLimit = 100
	maxRequestLimit     = 1000
)

// CreateWindowParams is sent with windows.create.
type CreateWindowParams struct {
	URL       string `json:"url,omitempty"`
	Incognito bool   `json:"incognito,omitempty"`
}

func (p *CreateWindowParams) Normalize() error {
	if strings.TrimSpace(p.URL) == "" {
		p.URL = ""
		return nil
	}
	u, err := NormalizeURL(p.URL)
	if err != nil {
		return err
	}
	p.URL = u
	return nil
}

// WindowParams names one window.
type WindowParams struct {
	WindowID int `json:"windowId"`
}

func (*WindowParams) Normalize() error { return nil }

// StartMonitoringParams is sent with requests.start_monitoring.
type StartMonitoringParams struct {
	TabID     *int   `json:"tabId,omitempty"`
	URLFilter string `json:"urlFilter,omitempty"`
}

func (p *StartMonitoringParams) Normalize() error {
	p.URLFilter = strings.TrimSpace(p.URLFilter)
	return nil
}

// MonitoredRequestsParams is sent with requests.get.
type MonitoredRequestsParams struct {
	TabID *int `json:"tabId,omitempty"`
	Limit int  `json:"limit"`
}

func (p *MonitoredRequestsParams) Normalize() error {
	if p.Limit == 0 {
		p.Limit = defaultRequestLimit
	}
	return nil
}

func windowDescriptors() []Descriptor {
	return []Descriptor{
		{
			Name:        "list_windows",
			Action:      "windows.list",
			Description: "List browser windows and their tabs.",
			Schema:      emptyObject(),
			NewParams:   newNoParams,
		},
		{
			Name:        "create_window",
			Action:      "windows.create",
			Description: "Open a new browser window.",
			Schema: object(map[string]any{
				"url":       str("URL to open in the window."),
				"incognito": boolean("Open a private window."),
			}),
			NewParams: func() Params { return &CreateWindowParams{} },
		},
		{
			Name:        "close_window",
			Action:      "windows.close",
			Description: "Close a window and all of its tabs.",
			Schema:      object(map[string]any{"windowId": integer("Window id.")}, "windowId"),
			NewParams:   func() Params { return &WindowParams{} },
		},
		{
			Name:        "focus_window",
			Action:      "windows.focus",
			Description: "Bring a window to the front.",
			Schema:      object(map[string]any{"windowId": integer("Window id.")}, "windowId"),
			NewParams:   func() Params { return &WindowParams{} },
		},
	}
}

func requestDescriptors() []Descriptor {
	return []Descriptor{
		{
			Name:        "start_request_monitoring",
			Action:      "requests.start_monitoring",
			Description: "Start recording network requests made by a tab.",
			Schema: object(map[string]any{
				"tabId":     tabIDProp,
				"urlFilter": str("Only record requests whose URL contains this text."),
			}),
			NewParams: func() Params { return &StartMonitoringParams{} },
		},
		{
			Name:        "stop_request_monitoring",
			Action:      "requests.stop_monitoring",
			Description: "Stop recording network requests for a tab.",
			Schema:      object(map[string]any{"tabId": tabIDProp}),
			NewParams:   func() Params { return &OptionalTabParams{} },
		},
		{
			Name:        "get_monitored_requests",
			Action:      "requests.get",
			Description: "Return the network requests recorded for a tab.",
			Schema: object(map[string]any{
				"tabId": tabIDProp,
				"limit": intRange("Maximum requests to return. Defaults to 100.", 1, maxRequestLimit),
			}),
			NewParams: func() Params { return &MonitoredRequestsParams{} },
		},
	}
}
