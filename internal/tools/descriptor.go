// ABOUTME: Operation descriptors: name, agent action, schema, and typed params.
// ABOUTME: Params implementations normalize decoded arguments before sending.

package tools

import "time"

// Category groups operations by the browser surface they touch.
type Category string

const (
	CategoryTabs       Category = "tabs"
	CategoryHistory    Category = "history"
	CategoryBookmarks  Category = "bookmarks"
	CategoryNavigation Category = "navigation"
	CategoryContent    Category = "content"
	CategoryWindows    Category = "windows"
	CategoryRequests   Category = "requests"
)

// Params is the decoded argument set of one operation. Normalize applies
// defaults and rejects values the schema cannot express.
type Params interface {
	Normalize() error
}

// Descriptor describes one tool.
type Descriptor struct {
	Name        string
	Action      string
	Category    Category
	Description string
	// Schema is the JSON schema for the tool arguments.
	Schema map[string]any
	// Timeout overrides the invoker default when non-zero.
	Timeout time.Duration
	// NewParams returns an empty params value to decode arguments into.
	NewParams func() Params
}

// noParams is used by operations that take no arguments.
type noParams struct{}

func (noParams) Normalize() error { return nil }

func newNoParams() Params { return &noParams{} }
