package fieldpath

import (
	"fmt"
	"strings"

	"github.com/abhisek/gradeval/internal/values"
)

// Resolver reads and writes record fields by Path. Kind reports the declared
// kind of a field independent of any record, i.e. the kind the field has on
// a zero-valued record.
type Resolver[T any] interface {
	Get(rec T, p Path) (any, error)
	Set(rec T, p Path, v any) error
	Kind(p Path) (values.Kind, error)
}

// ErrUnknownField is returned when a resolver has no field at a path.
// Composite is set when Path is a single segment that heads declared
// nested fields, so a caller may select one of those instead.
type ErrUnknownField struct {
	Path      Path
	Composite bool
}

func (e *ErrUnknownField) Error() string {
	return fmt.Sprintf("unknown field %q", e.Path.String())
}

// ErrReadOnly is returned by Set on a field without a setter.
type ErrReadOnly struct {
	Path Path
}

func (e *ErrReadOnly) Error() string {
	return fmt.Sprintf("field %q is read-only", e.Path.String())
}

// MapResolver resolves paths on map[string]any records. A two-segment path
// descends into a nested map[string]any.
type MapResolver struct {
	// Types declares field kinds by dotted path. When non-nil, paths absent
	// from Types are unknown fields.
	Types map[string]values.Kind
}

// NewMapResolver creates a MapResolver with the given declared kinds.
func NewMapResolver(types map[string]values.Kind) *MapResolver {
	return &MapResolver{Types: types}
}

func (r *MapResolver) known(p Path) error {
	if p.IsZero() {
		return &ErrUnknownField{Path: p}
	}
	if r.Types == nil {
		return nil
	}
	if _, ok := r.Types[p.String()]; !ok {
		return &ErrUnknownField{Path: p, Composite: headsNested(r.Types, p)}
	}
	return nil
}

// headsNested reports whether a single-segment p is the head of some
// two-segment key of table.
func headsNested[V any](table map[string]V, p Path) bool {
	if len(p) != 1 {
		return false
	}
	prefix := p.Head() + "."
	for k := range table {
		if strings.HasPrefix(k, prefix) {
			return true
		}
	}
	return false
}

func (r *MapResolver) Get(rec map[string]any, p Path) (any, error) {
	if err := r.known(p); err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	v := rec[p.Head()]
	if !p.Nested() {
		return v, nil
	}
	if v == nil {
		return nil, nil
	}
	sub, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("field %q: %T is not a composite", p.Head(), v)
	}
	return sub[p.Leaf()], nil
}

func (r *MapResolver) Set(rec map[string]any, p Path, v any) error {
	if err := r.known(p); err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("set %q on nil record", p.String())
	}
	if !p.Nested() {
		rec[p.Head()] = v
		return nil
	}
	sub, ok := rec[p.Head()].(map[string]any)
	if !ok {
		if rec[p.Head()] != nil {
			return fmt.Errorf("field %q: %T is not a composite", p.Head(), rec[p.Head()])
		}
		sub = make(map[string]any)
		rec[p.Head()] = sub
	}
	sub[p.Leaf()] = v
	return nil
}

func (r *MapResolver) Kind(p Path) (values.Kind, error) {
	if r.Types == nil {
		return values.KindInvalid, &ErrUnknownField{Path: p}
	}
	k, ok := r.Types[p.String()]
	if !ok {
		return values.KindInvalid, &ErrUnknownField{Path: p}
	}
	return k, nil
}

// Accessor is the getter/setter pair for one field of T.
type Accessor[T any] struct {
	Kind values.Kind
	Get  func(rec T) any
	// Set is nil for read-only fields.
	Set func(rec T, v any) error
}

// Accessors is a Resolver built from an explicit accessor table keyed by
// dotted path.
type Accessors[T any] map[string]Accessor[T]

func (a Accessors[T]) lookup(p Path) (Accessor[T], error) {
	acc, ok := a[p.String()]
	if !ok || acc.Get == nil {
		return Accessor[T]{}, &ErrUnknownField{Path: p, Composite: headsNested(map[string]Accessor[T](a), p)}
	}
	return acc, nil
}

func (a Accessors[T]) Get(rec T, p Path) (any, error) {
	acc, err := a.lookup(p)
	if err != nil {
		return nil, err
	}
	return acc.Get(rec), nil
}

func (a Accessors[T]) Set(rec T, p Path, v any) error {
	acc, err := a.lookup(p)
	if err != nil {
		return err
	}
	if acc.Set == nil {
		return &ErrReadOnly{Path: p}
	}
	return acc.Set(rec, v)
}

func (a Accessors[T]) Kind(p Path) (values.Kind, error) {
	acc, err := a.lookup(p)
	if err != nil {
		return values.KindInvalid, err
	}
	return acc.Kind, nil
}
