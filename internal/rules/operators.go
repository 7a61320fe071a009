// Package rules implements the builtin operators of the rule language and
// the classification rule-set model.
//
// The operators keep the semantics of the grading engine they come from,
// including two that are not textbook logic: every() is true when its
// arguments are uniformly true or uniformly false, and has_none() is true
// when the candidates are uniformly unmatched or uniformly matched.
package rules

import (
	"fmt"

	"github.com/abhisek/gradeval/internal/binder"
	"github.com/abhisek/gradeval/internal/fieldpath"
	"github.com/abhisek/gradeval/internal/values"
)

// Operator names as written in rule text.
const (
	OpHasAny  = "has_any"
	OpHasNone = "has_none"
	OpEvery   = "every"
	OpSome    = "some"
	OpCommit  = "commit"
)

// WriteFunc observes each field written by commit. index is the position of
// rec in the full record collection.
type WriteFunc[T any] func(index int, rec T, p fieldpath.Path, v any)

// Operators binds the builtin operators to a record type.
type Operators[T any] struct {
	resolver fieldpath.Resolver[T]
	onWrite  WriteFunc[T]
}

// NewOperators creates the operator set for records resolved by r.
func NewOperators[T any](r fieldpath.Resolver[T]) *Operators[T] {
	return &Operators[T]{resolver: r}
}

// OnWrite registers fn to observe commit writes.
func (o *Operators[T]) OnWrite(fn WriteFunc[T]) {
	o.onWrite = fn
}

// Builtins returns the operators for registration in a Binder.
func (o *Operators[T]) Builtins() []binder.Builtin {
	return []binder.Builtin{
		guard(binder.Builtin{Name: OpHasAny, MinArgs: 3, MaxArgs: 3, Fn: o.HasAny}),
		guard(binder.Builtin{Name: OpHasNone, MinArgs: 3, MaxArgs: 3, Fn: o.HasNone}),
		guard(binder.Builtin{Name: OpEvery, MinArgs: 2, MaxArgs: -1, Fn: o.Every}),
		guard(binder.Builtin{Name: OpSome, MinArgs: 2, MaxArgs: -1, Fn: o.Some}),
		guard(binder.Builtin{Name: OpCommit, MinArgs: 1, MaxArgs: 1, Fn: o.Commit}),
	}
}

// guard wraps the builtin with its arity check.
func guard(bi binder.Builtin) binder.Builtin {
	fn := bi.Fn
	bi.Fn = func(s *binder.Scope, args []any) (any, error) {
		if err := checkArity(bi, len(args)); err != nil {
			return nil, err
		}
		return fn(s, args)
	}
	return bi
}

func checkArity(bi binder.Builtin, n int) error {
	switch {
	case bi.MaxArgs < 0 && n < bi.MinArgs:
		return &ErrArgumentCount{Op: bi.Name, Want: fmt.Sprintf("at least %d", bi.MinArgs), Got: n}
	case bi.MaxArgs >= 0 && (n < bi.MinArgs || n > bi.MaxArgs):
		want := fmt.Sprintf("%d", bi.MinArgs)
		if bi.MinArgs != bi.MaxArgs {
			want = fmt.Sprintf("%d to %d", bi.MinArgs, bi.MaxArgs)
		}
		return &ErrArgumentCount{Op: bi.Name, Want: want, Got: n}
	}
	return nil
}

// HasAny reports whether some candidate equals the field value of some
// record in the list: has_any(list, candidates, field).
func (o *Operators[T]) HasAny(_ *binder.Scope, args []any) (any, error) {
	cands := candidates(args[1])
	if err := sameKind(OpHasAny, cands); err != nil {
		return nil, err
	}
	field, err := asPath(OpHasAny, args[2])
	if err != nil {
		return nil, err
	}

	list, ok := o.records(args[0])
	if !ok || len(list) == 0 || len(cands) == 0 {
		return false, nil
	}

	for _, c := range cands {
		n, err := o.countMatches(list, field, c)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			return true, nil
		}
	}
	return false, nil
}

// HasNone evaluates has_none(list, candidates, field). Unlike has_any a null
// comparison list is an error, and each candidate must have the declared
// kind of the field. An empty or non-record list is vacuously true.
// Otherwise it is true when either every candidate or no candidate is
// absent from the list.
func (o *Operators[T]) HasNone(_ *binder.Scope, args []any) (any, error) {
	cands := candidates(args[1])
	if err := sameKind(OpHasNone, cands); err != nil {
		return nil, err
	}
	field, err := asPath(OpHasNone, args[2])
	if err != nil {
		return nil, err
	}
	if len(cands) == 0 {
		return nil, &ErrNilCandidates{Op: OpHasNone}
	}

	declared, err := o.resolver.Kind(field)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", OpHasNone, err)
	}
	if k := values.KindOf(cands[0]); k != declared {
		return nil, &ErrTypeMismatch{
			Op:     OpHasNone,
			Detail: fmt.Sprintf("candidates are %s but field %q is %s", k, field.String(), declared),
		}
	}

	list, ok := o.records(args[0])
	if !ok || len(list) == 0 {
		return true, nil
	}

	var absent, present int
	for _, c := range cands {
		n, err := o.countMatches(list, field, c)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			absent++
		} else {
			present++
		}
	}
	return (absent > 0 && present == 0) || (absent == 0 && present > 0), nil
}

// Every evaluates every(a, b, ...): true when the arguments contain true and
// no false, or false and no true.
func (o *Operators[T]) Every(_ *binder.Scope, args []any) (any, error) {
	if err := sameKind(OpEvery, args); err != nil {
		return nil, err
	}
	var hasTrue, hasFalse bool
	for _, a := range args {
		if b, ok := a.(bool); ok {
			if b {
				hasTrue = true
			} else {
				hasFalse = true
			}
		}
	}
	return (hasTrue && !hasFalse) || (!hasTrue && hasFalse), nil
}

// Some folds its arguments with logical OR. Arguments after the first true
// are not inspected.
func (o *Operators[T]) Some(_ *binder.Scope, args []any) (any, error) {
	acc := false
	for i, a := range args {
		if acc {
			break
		}
		b, ok := a.(bool)
		if !ok {
			return nil, &ErrTypeMismatch{
				Op:     OpSome,
				Detail: fmt.Sprintf("argument %d is %s, want bool", i, values.KindOf(a)),
			}
		}
		acc = b
	}
	return acc, nil
}

func (o *Operators[T]) countMatches(list []T, field fieldpath.Path, want any) (int, error) {
	n := 0
	for _, rec := range list {
		v, err := o.resolver.Get(rec, field)
		if err != nil {
			return 0, err
		}
		if values.Equal(v, want) {
			n++
		}
	}
	return n, nil
}

// records converts a rule value into a typed record list.
func (o *Operators[T]) records(v any) ([]T, bool) {
	switch l := v.(type) {
	case []T:
		return l, true
	case binder.Records:
		return typed[T](l)
	case []any:
		return typed[T](l)
	}
	return nil, false
}

func typed[T any](l []any) ([]T, bool) {
	out := make([]T, 0, len(l))
	for _, e := range l {
		if r, ok := e.(binder.Record); ok {
			e = r.Value
		}
		t, ok := e.(T)
		if !ok {
			return nil, false
		}
		out = append(out, t)
	}
	return out, true
}

// candidates converts a comparison list. Non-list values are absent.
func candidates(v any) []any {
	switch l := v.(type) {
	case []any:
		return l
	case binder.Records:
		return l
	case []string:
		return spread(l)
	case []int:
		return spread(l)
	case []int64:
		return spread(l)
	case []float64:
		return spread(l)
	case []bool:
		return spread(l)
	}
	return nil
}

func spread[E any](l []E) []any {
	out := make([]any, len(l))
	for i, e := range l {
		out[i] = e
	}
	return out
}

func sameKind(op string, vs []any) error {
	if i, ok := values.SameKind(vs); !ok {
		return &ErrTypeMismatch{
			Op: op,
			Detail: fmt.Sprintf("values must share one type, got %s and %s",
				values.KindOf(vs[i]), values.KindOf(vs[i+1])),
		}
	}
	return nil
}

func asPath(op string, v any) (fieldpath.Path, error) {
	switch p := v.(type) {
	case fieldpath.Path:
		return p, nil
	case []string:
		return fieldpath.Path(p), nil
	case string:
		return fieldpath.Parse(p)
	}
	return nil, &ErrTypeMismatch{Op: op, Detail: fmt.Sprintf("field reference is %s, want a field path", values.KindOf(v))}
}
