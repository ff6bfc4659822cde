// Package allowlist holds the closed mapping from target collection to the fields
// an approved proposal item may write. It is configuration, never computed.
package allowlist

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"safetyagent/internal/model"
)

//go:embed default.yaml
var defaultYAML []byte

type fileFormat struct {
	Collections []struct {
		Name   string   `yaml:"name"`
		Fields []string `yaml:"fields"`
	} `yaml:"collections"`
}

// AllowList maps a collection identifier to its ordered permitted fields.
// It is immutable after construction and safe for concurrent use.
type AllowList struct {
	fields map[string][]string
}

// Default returns the built-in allow-list.
func Default() *AllowList {
	al, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("allowlist: embedded default is invalid: %v", err))
	}
	return al
}

// Load reads an allow-list from a YAML file. An empty path returns the defaults.
func Load(path string) (*AllowList, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read allowlist: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML allow-list content.
func Parse(b []byte) (*AllowList, error) {
	var ff fileFormat
	if err := yaml.Unmarshal(b, &ff); err != nil {
		return nil, fmt.Errorf("parse allowlist: %w", err)
	}
	al := &AllowList{fields: make(map[string][]string, len(ff.Collections))}
	for _, c := range ff.Collections {
		if c.Name == "" {
			return nil, fmt.Errorf("parse allowlist: collection without name")
		}
		if _, dup := al.fields[c.Name]; dup {
			return nil, fmt.Errorf("parse allowlist: duplicate collection %q", c.Name)
		}
		seen := make(map[string]struct{}, len(c.Fields))
		fields := make([]string, 0, len(c.Fields))
		for _, f := range c.Fields {
			if f == "" {
				return nil, fmt.Errorf("parse allowlist: empty field in %q", c.Name)
			}
			if _, ok := seen[f]; ok {
				continue
			}
			seen[f] = struct{}{}
			fields = append(fields, f)
		}
		al.fields[c.Name] = fields
	}
	return al, nil
}

// Fields returns a copy of the permitted fields of a collection.
func (a *AllowList) Fields(collection string) ([]string, bool) {
	f, ok := a.fields[collection]
	if !ok {
		return nil, false
	}
	out := make([]string, len(f))
	copy(out, f)
	return out, true
}

// Known reports whether the collection is approvable.
func (a *AllowList) Known(collection string) bool {
	_, ok := a.fields[collection]
	return ok
}

// Collections returns a copy of every approvable collection with its fields.
func (a *AllowList) Collections() map[string][]string {
	out := make(map[string][]string, len(a.fields))
	for name := range a.fields {
		out[name], _ = a.Fields(name)
	}
	return out
}

// Names returns the approvable collection identifiers in sorted order.
func (a *AllowList) Names() []string {
	names := make([]string, 0, len(a.fields))
	for name := range a.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Filter intersects payload keys with the collection's allow-list, in allow-list order.
// ok is false when the collection is unknown. Keys not on the list are dropped.
// Object and array values are flattened to JSON text; scalars pass through untouched.
func (a *AllowList) Filter(collection string, payload model.Payload) (cols []string, vals []any, ok bool) {
	allowed, ok := a.fields[collection]
	if !ok {
		return nil, nil, false
	}
	for _, f := range allowed {
		v, present := payload[f]
		if !present {
			continue
		}
		cols = append(cols, f)
		vals = append(vals, columnValue(v))
	}
	return cols, vals, true
}

func columnValue(v any) any {
	switch v.(type) {
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		return string(b)
	}
	return v
}
