// Package dataset loads record collections for the CLI. Records are YAML or
// JSON objects; field kinds are inferred from the values present so that a
// MapResolver can check field references.
package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/abhisek/gradeval/internal/fieldpath"
	"github.com/abhisek/gradeval/internal/values"
)

// ErrKindConflict indicates a field holding values of different kinds
// across records.
type ErrKindConflict struct {
	Field string
	First values.Kind
	Other values.Kind
}

func (e *ErrKindConflict) Error() string {
	return fmt.Sprintf("field %q holds both %s and %s values", e.Field, e.First, e.Other)
}

// Dataset is a loaded record collection.
type Dataset struct {
	Records []map[string]any
	Kinds   map[string]values.Kind
}

type envelope struct {
	Records []map[string]any `yaml:"records"`
}

// Load reads records from a .yaml, .yml or .json file.
func Load(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	ds, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return ds, nil
}

// Parse decodes either a top-level list of objects or an object with a
// "records" list. JSON input is accepted as YAML.
func Parse(data []byte) (*Dataset, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}

	var recs []map[string]any
	root := &node
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	switch root.Kind {
	case 0:
	case yaml.SequenceNode:
		if err := root.Decode(&recs); err != nil {
			return nil, fmt.Errorf("decode records: %w", err)
		}
	case yaml.MappingNode:
		var env envelope
		if err := root.Decode(&env); err != nil {
			return nil, fmt.Errorf("decode records: %w", err)
		}
		recs = env.Records
	default:
		return nil, fmt.Errorf("decode records: want a list or a mapping with records")
	}

	for i, r := range recs {
		if r == nil {
			recs[i] = make(map[string]any)
		}
	}
	kinds, err := InferKinds(recs)
	if err != nil {
		return nil, err
	}
	return &Dataset{Records: recs, Kinds: kinds}, nil
}

// InferKinds derives field kinds from the values present. Nested objects
// contribute "field.sub" entries. Nulls are ignored and ints widen to
// doubles when mixed with them.
func InferKinds(recs []map[string]any) (map[string]values.Kind, error) {
	kinds := make(map[string]values.Kind)
	var visit func(prefix string, m map[string]any, depth int) error
	visit = func(prefix string, m map[string]any, depth int) error {
		for k, v := range m {
			name := k
			if prefix != "" {
				name = prefix + "." + k
			}
			if sub, ok := v.(map[string]any); ok && depth+1 < fieldpath.MaxSegments {
				if err := visit(name, sub, depth+1); err != nil {
					return err
				}
				kinds[name] = values.KindMap
				continue
			}
			if err := merge(kinds, name, values.KindOf(v)); err != nil {
				return err
			}
		}
		return nil
	}
	for _, r := range recs {
		if err := visit("", r, 0); err != nil {
			return nil, err
		}
	}
	return kinds, nil
}

func merge(kinds map[string]values.Kind, name string, k values.Kind) error {
	if k == values.KindNull {
		return nil
	}
	prev, ok := kinds[name]
	switch {
	case !ok || prev == k:
		kinds[name] = k
	case numeric(prev) && numeric(k):
		kinds[name] = values.KindFloat
	default:
		return &ErrKindConflict{Field: name, First: prev, Other: k}
	}
	return nil
}

func numeric(k values.Kind) bool {
	return k == values.KindInt || k == values.KindUint || k == values.KindFloat
}

// Resolver returns a MapResolver over the inferred kinds plus extra, which
// declares fields the records may not carry yet, such as result fields. A
// Dataset that was not loaded from records resolves every path.
func (d *Dataset) Resolver(extra map[string]values.Kind) *fieldpath.MapResolver {
	if d.Kinds == nil {
		return fieldpath.NewMapResolver(nil)
	}
	types := make(map[string]values.Kind, len(d.Kinds)+len(extra))
	for k, v := range d.Kinds {
		types[k] = v
	}
	for k, v := range extra {
		if _, ok := types[k]; !ok {
			types[k] = v
		}
	}
	return fieldpath.NewMapResolver(types)
}

// Fields returns the known field paths in sorted order.
func (d *Dataset) Fields() []string {
	out := make([]string, 0, len(d.Kinds))
	for k := range d.Kinds {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Write encodes the records as YAML, or as indented JSON when format is
// "json".
func (d *Dataset) Write(w io.Writer, format string) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(d.Records)
	case "", "yaml", "yml":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(d.Records); err != nil {
			return err
		}
		if err := enc.Close(); err != nil {
			return err
		}
		_, err := w.Write(buf.Bytes())
		return err
	}
	return fmt.Errorf("unknown output format %q", format)
}
