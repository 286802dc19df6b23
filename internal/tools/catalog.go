// ABOUTME: Immutable set of tool descriptors with compiled argument schemas.
// ABOUTME: Enforces one-to-one names and actions and validates raw arguments.

package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Catalog is an immutable, ordered set of descriptors.
type Catalog struct {
	order  []string
	byName map[string]*entry
}

type entry struct {
	desc   Descriptor
	schema *gojsonschema.Schema
}

// Builtin returns the browser operation descriptors, tagged with their category.
func Builtin() []Descriptor {
	groups := []struct {
		category Category
		descs    []Descriptor
	}{
		{CategoryTabs, tabDescriptors()},
		{CategoryHistory, historyDescriptors()},
		{CategoryBookmarks, bookmarkDescriptors()},
		{CategoryNavigation, navigationDescriptors()},
		{CategoryContent, contentDescriptors()},
		{CategoryWindows, windowDescriptors()},
		{CategoryRequests, requestDescriptors()},
	}

	var all []Descriptor
	for _, g := range groups {
		for _, d := range g.descs {
			d.Category = g.category
			all = append(all, d)
		}
	}
	return all
}

// NewCatalog validates descs and compiles their schemas.
func NewCatalog(descs []Descriptor) (*Catalog, error) {
	c := &Catalog{byName: make(map[string]*entry, len(descs))}
	actions := make(map[string]string, len(descs))

	for _, d := range descs {
		if d.Name == "" || d.Action == "" {
			return nil, fmt.Errorf("descriptor %q: name and action are required", d.Name)
		}
		if d.NewParams == nil {
			return nil, fmt.Errorf("descriptor %q: NewParams is required", d.Name)
		}
		if _, dup := c.byName[d.Name]; dup {
			return nil, fmt.Errorf("duplicate tool name %q", d.Name)
		}
		if other, dup := actions[d.Action]; dup {
			return nil, fmt.Errorf("action %q used by both %q and %q", d.Action, other, d.Name)
		}
		if d.Schema == nil {
			d.Schema = emptyObject()
		}

		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(d.Schema))
		if err != nil {
			return nil, fmt.Errorf("compiling schema for %q: %w", d.Name, err)
		}

		actions[d.Action] = d.Name
		c.byName[d.Name] = &entry{desc: d, schema: schema}
		c.order = append(c.order, d.Name)
	}
	return c, nil
}

// MustBuiltin builds the builtin catalog, panicking on a broken descriptor.
func MustBuiltin() *Catalog {
	c, err := NewCatalog(Builtin())
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup returns the descriptor named name.
func (c *Catalog) Lookup(name string) (Descriptor, bool) {
	e, ok := c.byName[name]
	if !ok {
		return Descriptor{}, false
	}
	return e.desc, true
}

// All returns the descriptors in registration order.
func (c *Catalog) All() []Descriptor {
	out := make([]Descriptor, len(c.order))
	for i, name := range c.order {
		out[i] = c.byName[name].desc
	}
	return out
}

// Len returns the number of tools.
func (c *Catalog) Len() int {
	return len(c.order)
}

// Without returns a catalog lacking the named tools. Unknown names are an error.
func (c *Catalog) Without(names ...string) (*Catalog, error) {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		if _, ok := c.byName[n]; !ok {
			return nil, fmt.Errorf("cannot disable unknown tool %q", n)
		}
		drop[n] = true
	}

	out := &Catalog{byName: make(map[string]*entry, len(c.order))}
	for _, name := range c.order {
		if drop[name] {
			continue
		}
		out.byName[name] = c.byName[name]
		out.order = append(out.order, name)
	}
	return out, nil
}

// errInvalidArguments wraps schema and decode failures.
var errInvalidArguments = errors.New("invalid arguments")

// decode validates raw against the tool schema and returns normalized params.
func (e *entry) decode(raw json.RawMessage) (Params, error) {
	if len(raw) == 0 || string(raw) == "null" {
		raw = json.RawMessage(`{}`)
	}

	result, err := e.schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidArguments, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, re := range result.Errors() {
			msgs = append(msgs, re.String())
		}
		return nil, fmt.Errorf("%w: %s", errInvalidArguments, strings.Join(msgs, "; "))
	}

	params := e.desc.NewParams()
	if err := json.Unmarshal(raw, params); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidArguments, err)
	}
	if err := params.Normalize(); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidArguments, err)
	}
	return params, nil
}
