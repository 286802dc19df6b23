// ABOUTME: Helpers for building tool argument JSON schemas.
// ABOUTME: Objects are closed: unknown argument names are rejected.

package tools

func object(props map[string]any, required ...string) map[string]any {
	s := map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func emptyObject() map[string]any {
	return object(map[string]any{})
}

func str(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func nonEmptyStr(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc, "minLength": 1}
}

func boolean(desc string) map[string]any {
	return map[string]any{"type": "boolean", "description": desc}
}

func integer(desc string) map[string]any {
	return map[string]any{"type": "integer", "description": desc}
}

func intRange(desc string, minimum, maximum int) map[string]any {
	return map[string]any{"type": "integer", "description": desc, "minimum": minimum, "maximum": maximum}
}

func intMin(desc string, minimum int) map[string]any {
	return map[string]any{"type": "integer", "description": desc, "minimum": minimum}
}

func enum(desc string, values ...string) map[string]any {
	return map[string]any{"type": "string", "description": desc, "enum": values}
}

func idList(desc string, maxItems int) map[string]any {
	return map[string]any{
		"type":        "array",
		"description": desc,
		"items":       map[string]any{"type": "integer"},
		"minItems":    1,
		"maxItems":    maxItems,
		"uniqueItems": true,
	}
}

// Properties shared by several operations.
var (
	tabIDProp    = integer("Tab id. Defaults to the active tab.")
	windowIDProp = integer("Window id.")
)
