// Package binder is the symbol table of the rule language. A Binder lives as
// long as its evaluator and holds builtin operators, field paths and host
// settings. Each group evaluation gets its own Scope layered over the Binder,
// so per-group bindings never leak into the next group.
package binder

import (
	"fmt"
	"strings"
)

// Operator is a builtin callable from rule text. It receives the scope of
// the evaluation that invoked it and its arguments in call order.
type Operator func(s *Scope, args []any) (any, error)

// Builtin registers an Operator under a name. MaxArgs < 0 means variadic.
type Builtin struct {
	Name    string
	MinArgs int
	MaxArgs int
	Fn      Operator
}

// Records marks a value as a record sequence.
type Records []any

// Record marks a value as a single record.
type Record struct {
	Value any
}

// Names bound by the engine. Names starting with '$' are host-internal and
// are never exposed to rule text.
const (
	ValuePath  = "$value"
	ResultPath = "$result"
	NotesPath  = "$notes"
	SameGroup  = "$same_group"
	Matches    = "$matches"
	Fields     = "$fields"

	Item         = "item"
	Group        = "group"
	All          = "records"
	Value        = "value"
	Candidate    = "record"
	ValueKey     = "value_key"
	CategoryKey  = "category_key"
	CategoryName = "category_name"
)

// Internal reports whether name is hidden from rule text.
func Internal(name string) bool {
	return strings.HasPrefix(name, "$")
}

// ErrNotBound is returned when a required name has no binding.
type ErrNotBound struct {
	Name string
}

func (e *ErrNotBound) Error() string {
	return fmt.Sprintf("name %q is not bound", e.Name)
}

type table struct {
	entries map[string]any
	order   []string
}

func newTable() table {
	return table{entries: make(map[string]any)}
}

func (t *table) bind(name string, v any) {
	if _, ok := t.entries[name]; !ok {
		t.order = append(t.order, name)
	}
	t.entries[name] = v
}

// Binder is the evaluator-wide symbol table.
type Binder struct {
	table
}

// New creates a Binder seeded with the builtin operators and the
// placeholder entries the engine later overwrites.
func New(builtins ...Builtin) *Binder {
	b := &Binder{table: newTable()}
	for _, bi := range builtins {
		b.Bind(bi.Name, bi)
	}
	b.Bind(ValuePath, nil)
	b.Bind(ResultPath, nil)
	b.Bind(NotesPath, nil)
	b.Bind(SameGroup, nil)
	b.Bind(Item, Record{})
	b.Bind(Group, Records{})
	b.Bind(All, Records{})
	return b
}

// Bind inserts or overwrites name.
func (b *Binder) Bind(name string, v any) {
	b.bind(name, v)
}

// SetValue overwrites an existing entry. Unregistered names are left alone
// and SetValue returns false.
func (b *Binder) SetValue(name string, v any) bool {
	if _, ok := b.entries[name]; !ok {
		return false
	}
	b.entries[name] = v
	return true
}

// Lookup returns the value bound to name.
func (b *Binder) Lookup(name string) (any, bool) {
	v, ok := b.entries[name]
	return v, ok
}

// Names returns the bound names in registration order.
func (b *Binder) Names() []string {
	return append([]string(nil), b.order...)
}

// Operators returns the builtins currently bound, in registration order.
func (b *Binder) Operators() []Builtin {
	var out []Builtin
	for _, name := range b.order {
		if bi, ok := b.entries[name].(Builtin); ok {
			out = append(out, bi)
		}
	}
	return out
}

// NewScope starts an evaluation scope over b.
func (b *Binder) NewScope() *Scope {
	return &Scope{table: newTable(), binder: b}
}

// Scope is a per-evaluation overlay. Binds are local to the scope; lookups
// fall through to the enclosing scope and then the Binder.
type Scope struct {
	table
	binder *Binder
	outer  *Scope
}

// NewScope opens a nested scope.
func (s *Scope) NewScope() *Scope {
	return &Scope{table: newTable(), binder: s.binder, outer: s}
}

// Binder returns the Binder at the root of the scope chain.
func (s *Scope) Binder() *Binder {
	return s.binder
}

// Bind binds name in this scope only.
func (s *Scope) Bind(name string, v any) {
	s.bind(name, v)
}

// SetValue shadows an existing name in this scope. It returns false and
// does nothing when name is bound nowhere in the chain.
func (s *Scope) SetValue(name string, v any) bool {
	if _, ok := s.Lookup(name); !ok {
		return false
	}
	s.bind(name, v)
	return true
}

// Lookup resolves name through the scope chain.
func (s *Scope) Lookup(name string) (any, bool) {
	for sc := s; sc != nil; sc = sc.outer {
		if v, ok := sc.entries[name]; ok {
			return v, true
		}
	}
	if s.binder == nil {
		return nil, false
	}
	return s.binder.Lookup(name)
}

// Names returns every name visible from this scope: Binder names first,
// then scope names from the outermost scope inwards.
func (s *Scope) Names() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(names []string) {
		for _, n := range names {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	if s.binder != nil {
		add(s.binder.order)
	}
	var chain []*Scope
	for sc := s; sc != nil; sc = sc.outer {
		chain = append(chain, sc)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		add(chain[i].order)
	}
	return out
}

// Get looks up name and asserts its type.
func Get[V any](s *Scope, name string) (V, error) {
	var zero V
	raw, ok := s.Lookup(name)
	if !ok {
		return zero, &ErrNotBound{Name: name}
	}
	v, ok := raw.(V)
	if !ok {
		return zero, fmt.Errorf("name %q: bound to %T, want %T", name, raw, zero)
	}
	return v, nil
}
