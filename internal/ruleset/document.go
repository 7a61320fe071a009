// Package ruleset loads classification rule documents. A document is YAML,
// validated against an embedded JSON schema, and names every field path,
// the group predicate, the script and the categories of a run.
package ruleset

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/abhisek/gradeval/internal/engine"
	"github.com/abhisek/gradeval/internal/fieldpath"
	"github.com/abhisek/gradeval/internal/rules"
	"github.com/abhisek/gradeval/internal/values"
)

// SupportedMajor is the document version major this build reads.
const SupportedMajor = "v1"

//go:embed schema.json
var schemaJSON []byte

// ErrInvalidDocument indicates a rule document that cannot be used.
type ErrInvalidDocument struct {
	Source string
	Reason string
	Err    error
}

func (e *ErrInvalidDocument) Error() string {
	msg := "invalid rule document"
	if e.Source != "" {
		msg += " " + e.Source
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ErrInvalidDocument) Unwrap() error {
	return e.Err
}

// Document is a parsed rule document.
type Document struct {
	Version       string            `yaml:"version"`
	Name          string            `yaml:"name,omitempty"`
	Description   string            `yaml:"description,omitempty"`
	Key           string            `yaml:"key"`
	Value         string            `yaml:"value"`
	CategoryKey   string            `yaml:"category_key,omitempty"`
	CategoryName  string            `yaml:"category_name"`
	Result        string            `yaml:"result"`
	Notes         string            `yaml:"notes"`
	GroupBy       []string          `yaml:"group_by,omitempty"`
	GroupMode     string            `yaml:"group_mode,omitempty"`
	Script        string            `yaml:"script"`
	Categories    rules.RuleSet     `yaml:"categories"`
	Subcategories rules.RuleSet     `yaml:"subcategories,omitempty"`
	Fields        map[string]string `yaml:"fields,omitempty"`
}

// Load reads and validates the document at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule document: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		var inv *ErrInvalidDocument
		if errors.As(err, &inv) && inv.Source == "" {
			inv.Source = path
		}
		return nil, err
	}
	return doc, nil
}

// Parse decodes and validates a document.
func Parse(data []byte) (*Document, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ErrInvalidDocument{Reason: "malformed YAML", Err: err}
	}
	if err := validateSchema(raw); err != nil {
		return nil, err
	}

	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, &ErrInvalidDocument{Reason: "decode", Err: err}
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks what the schema cannot: the version, path syntax, group
// mode and rule-set consistency.
func (d *Document) Validate() error {
	v := d.Version
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return &ErrInvalidDocument{Reason: fmt.Sprintf("version %q is not a semantic version", d.Version)}
	}
	if major := semver.Major(v); major != SupportedMajor {
		return &ErrInvalidDocument{Reason: fmt.Sprintf("version %s is not supported (want %s.x)", d.Version, SupportedMajor)}
	}

	for name, p := range map[string]string{
		"key": d.Key, "value": d.Value, "category_name": d.CategoryName,
		"result": d.Result, "notes": d.Notes,
	} {
		if _, err := fieldpath.Parse(p); err != nil {
			return &ErrInvalidDocument{Reason: name, Err: err}
		}
	}
	if _, err := d.groupMode(); err != nil {
		return &ErrInvalidDocument{Reason: "group_mode", Err: err}
	}

	all := append(append(rules.RuleSet{}, d.Categories...), d.Subcategories...)
	if err := all.Validate(); err != nil {
		return &ErrInvalidDocument{Reason: "categories", Err: err}
	}
	return nil
}

func (d *Document) groupMode() (engine.GroupMode, error) {
	return engine.ParseGroupMode(d.GroupMode)
}

// GroupModeOr returns the configured grouping, or def when none is set.
func (d *Document) GroupModeOr(def engine.GroupMode) engine.GroupMode {
	if d.GroupMode == "" {
		return def
	}
	m, err := d.groupMode()
	if err != nil {
		return def
	}
	return m
}

// FieldPaths returns the extra names exposed to rule text.
func (d *Document) FieldPaths() (map[string]fieldpath.Path, error) {
	out := make(map[string]fieldpath.Path, len(d.Fields))
	for name, text := range d.Fields {
		p, err := fieldpath.Parse(text)
		if err != nil {
			return nil, &ErrInvalidDocument{Reason: "fields." + name, Err: err}
		}
		out[name] = p
	}
	return out, nil
}

// CheckFields verifies that every record field the document names is known
// to r: key, value, category_key, category_name, result, notes, group_by and
// the extra fields.
func CheckFields[T any](d *Document, r fieldpath.Resolver[T]) error {
	named := []struct{ name, text string }{
		{"key", d.Key},
		{"value", d.Value},
		{"category_key", d.CategoryKey},
		{"category_name", d.CategoryName},
		{"result", d.Result},
		{"notes", d.Notes},
	}
	for i, text := range d.GroupBy {
		named = append(named, struct{ name, text string }{fmt.Sprintf("group_by[%d]", i), text})
	}
	for _, name := range sortedKeys(d.Fields) {
		named = append(named, struct{ name, text string }{"fields." + name, d.Fields[name]})
	}

	for _, n := range named {
		if n.text == "" {
			continue
		}
		p, err := fieldpath.Parse(n.text)
		if err != nil {
			return &ErrInvalidDocument{Reason: n.name, Err: err}
		}
		if _, err := r.Kind(p); err != nil {
			return &ErrInvalidDocument{Reason: n.name, Err: err}
		}
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Input builds the engine input for records resolved by r. Records belong
// to the same group when every group_by field is equal; without group_by
// they are grouped by key.
func Input[T any](d *Document, r fieldpath.Resolver[T]) (engine.Input[T], error) {
	var in engine.Input[T]
	paths := []struct {
		text string
		dst  *fieldpath.Path
		opt  bool
	}{
		{d.Key, &in.Key, false},
		{d.Value, &in.Value, false},
		{d.CategoryKey, &in.CategoryKey, true},
		{d.CategoryName, &in.CategoryName, false},
		{d.Result, &in.Result, false},
		{d.Notes, &in.Notes, false},
	}
	for _, p := range paths {
		if p.opt && p.text == "" {
			continue
		}
		parsed, err := fieldpath.Parse(p.text)
		if err != nil {
			return in, &ErrInvalidDocument{Reason: "path", Err: err}
		}
		*p.dst = parsed
	}

	groupBy := []fieldpath.Path{in.Key}
	if len(d.GroupBy) > 0 {
		groupBy = groupBy[:0]
		for _, text := range d.GroupBy {
			p, err := fieldpath.Parse(text)
			if err != nil {
				return in, &ErrInvalidDocument{Reason: "group_by", Err: err}
			}
			groupBy = append(groupBy, p)
		}
	}
	in.SameGroup = SameFields(r, groupBy...)
	in.Script = d.Script
	in.Categories = d.Categories
	in.Subcategories = d.Subcategories
	return in, nil
}

// SameFields returns a group predicate that holds when a and b have equal
// values at every path. Unreadable fields never match.
func SameFields[T any](r fieldpath.Resolver[T], paths ...fieldpath.Path) func(a, b T) bool {
	return func(a, b T) bool {
		for _, p := range paths {
			va, err := r.Get(a, p)
			if err != nil {
				return false
			}
			vb, err := r.Get(b, p)
			if err != nil {
				return false
			}
			if !values.Equal(va, vb) {
				return false
			}
		}
		return true
	}
}

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func documentSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		var def any
		if err := json.Unmarshal(schemaJSON, &def); err != nil {
			schemaErr = fmt.Errorf("parse schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		const url = "schema://gradeval/ruleset.json"
		if err := c.AddResource(url, def); err != nil {
			schemaErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiledSchema, schemaErr = c.Compile(url)
	})
	return compiledSchema, schemaErr
}

// validateSchema checks a decoded YAML value against the document schema.
// The value round-trips through JSON so that numbers and maps take the
// shapes the validator expects.
func validateSchema(raw any) error {
	s, err := documentSchema()
	if err != nil {
		return err
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return &ErrInvalidDocument{Reason: "not representable as JSON", Err: err}
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return &ErrInvalidDocument{Reason: "not representable as JSON", Err: err}
	}
	if err := s.Validate(v); err != nil {
		return &ErrInvalidDocument{Reason: "schema validation failed", Err: err}
	}
	return nil
}
