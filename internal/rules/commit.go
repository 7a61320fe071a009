package rules

import (
	"fmt"
	"strings"

	"github.com/abhisek/gradeval/internal/binder"
	"github.com/abhisek/gradeval/internal/fieldpath"
	"github.com/abhisek/gradeval/internal/values"
)

// Commit evaluates commit(label). It renders an annotation from the matched
// subsets of the current group and writes it, then the label, onto every
// record of the full collection that the group predicate relates to the
// group's representative. Write-back is scoped by querying the predicate
// against the whole collection at write time, not by the group captured
// earlier.
func (o *Operators[T]) Commit(s *binder.Scope, args []any) (any, error) {
	label, ok := args[0].(string)
	if !ok {
		return nil, &ErrTypeMismatch{
			Op:     OpCommit,
			Detail: fmt.Sprintf("label is %s, want string", values.KindOf(args[0])),
		}
	}

	group, err := binder.Get[binder.Records](s, binder.Group)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", OpCommit, err)
	}
	all, err := binder.Get[binder.Records](s, binder.All)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", OpCommit, err)
	}
	paths, err := commitPaths(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", OpCommit, err)
	}
	var matches *Matches
	if raw, ok := s.Lookup(binder.Matches); ok {
		matches, _ = raw.(*Matches)
	}
	var same func(a, b T) bool
	if raw, ok := s.Lookup(binder.SameGroup); ok {
		same, _ = raw.(func(a, b T) bool)
	}

	note, err := o.Annotate(label, matches, paths.value, paths.name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", OpCommit, err)
	}

	members, ok := o.records(group)
	if !ok {
		return nil, &ErrTypeMismatch{Op: OpCommit, Detail: "current group is not a record sequence"}
	}
	if same == nil || len(members) == 0 {
		return nil, nil
	}
	rep := members[0]

	for i, raw := range all {
		rec, ok := raw.(T)
		if !ok {
			return nil, &ErrTypeMismatch{Op: OpCommit, Detail: fmt.Sprintf("record %d is %T", i, raw)}
		}
		if !same(rec, rep) {
			continue
		}
		if err := o.write(i, rec, paths.notes, note); err != nil {
			return nil, fmt.Errorf("%s: %w", OpCommit, err)
		}
		if err := o.write(i, rec, paths.result, label); err != nil {
			return nil, fmt.Errorf("%s: %w", OpCommit, err)
		}
	}
	return nil, nil
}

func (o *Operators[T]) write(i int, rec T, p fieldpath.Path, v any) error {
	if err := o.resolver.Set(rec, p, v); err != nil {
		return err
	}
	if o.onWrite != nil {
		o.onWrite(i, rec, p, v)
	}
	return nil
}

type commitFields struct {
	value, name, notes, result fieldpath.Path
}

func commitPaths(s *binder.Scope) (commitFields, error) {
	var f commitFields
	var err error
	if f.value, err = binder.Get[fieldpath.Path](s, binder.ValuePath); err != nil {
		return f, err
	}
	if f.name, err = binder.Get[fieldpath.Path](s, binder.CategoryName); err != nil {
		return f, err
	}
	if f.notes, err = binder.Get[fieldpath.Path](s, binder.NotesPath); err != nil {
		return f, err
	}
	if f.result, err = binder.Get[fieldpath.Path](s, binder.ResultPath); err != nil {
		return f, err
	}
	return f, nil
}

// Annotate renders the rationale written next to a classification:
//
//	Result -> <label>
//	<symbol> -> <count> [ <name>(<value>),... ]
//
// with one line per stored subset, framed by blank lines.
func (o *Operators[T]) Annotate(label string, m *Matches, value, name fieldpath.Path) (string, error) {
	var b strings.Builder
	b.WriteString("\n")
	fmt.Fprintf(&b, "    Result -> %s\n", label)
	for _, match := range m.All() {
		recs, ok := o.records(match.Records)
		if !ok {
			return "", &ErrTypeMismatch{Op: OpCommit, Detail: fmt.Sprintf("subset %s is not a record sequence", match.Symbol)}
		}
		list, err := o.showList(recs, value, name)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "    %s -> %d %s\n", match.Symbol, len(recs), list)
	}
	b.WriteString("\n")
	return b.String(), nil
}

func (o *Operators[T]) showList(recs []T, value, name fieldpath.Path) (string, error) {
	items := make([]string, 0, len(recs))
	for _, rec := range recs {
		n, err := o.resolver.Get(rec, name)
		if err != nil {
			return "", err
		}
		raw, err := o.resolver.Get(rec, value)
		if err != nil {
			return "", err
		}
		v, err := values.ToFloat(raw)
		if err != nil {
			return "", err
		}
		items = append(items, fmt.Sprintf("%s(%s)", values.String(n), values.FormatFloat(v)))
	}
	return "[ " + strings.Join(items, ",") + " ]", nil
}
