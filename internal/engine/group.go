package engine

import (
	"fmt"
	"reflect"
	"time"

	"github.com/abhisek/gradeval/internal/fieldpath"
	"github.com/abhisek/gradeval/internal/values"
)

// Group is a representative record and the members its group predicate
// relates to it. Index is the group's position in the run.
type Group[T any] struct {
	Index          int
	Representative T
	Members        []T
}

// distinct returns the first record of each distinct key value, in input
// order.
func distinct[T any](records []T, r fieldpath.Resolver[T], key fieldpath.Path) ([]T, error) {
	seen := make(map[any]bool)
	var reps []T
	for i, rec := range records {
		v, err := r.Get(rec, key)
		if err != nil {
			return nil, fmt.Errorf("record %d: key %s: %w", i, key.String(), err)
		}
		k := dedupeKey(v)
		if seen[k] {
			continue
		}
		seen[k] = true
		reps = append(reps, rec)
	}
	return reps, nil
}

// dedupeKey normalizes a key value so that values.Equal values collide.
func dedupeKey(v any) any {
	switch values.KindOf(v) {
	case values.KindInt, values.KindUint, values.KindFloat:
		f, _ := values.ToFloat(v)
		return f
	case values.KindTime:
		return v.(time.Time).UnixNano()
	}
	if v != nil && reflect.TypeOf(v).Comparable() {
		return v
	}
	return fmt.Sprintf("%T:%v", v, v)
}

// groups builds one group per representative.
func groups[T any](reps, records []T, same func(a, b T) bool, mode GroupMode) []Group[T] {
	var out []Group[T]
	switch mode {
	case GroupPartition:
		claimed := make([]bool, len(records))
		for _, rep := range reps {
			if i := indexOf(records, rep); i >= 0 && claimed[i] {
				continue
			}
			g := Group[T]{Index: len(out), Representative: rep}
			for i, rec := range records {
				if !claimed[i] && same(rec, rep) {
					claimed[i] = true
					g.Members = append(g.Members, rec)
				}
			}
			out = append(out, g)
		}
	default:
		for _, rep := range reps {
			g := Group[T]{Index: len(out), Representative: rep}
			for _, rec := range records {
				if same(rec, rep) {
					g.Members = append(g.Members, rec)
				}
			}
			out = append(out, g)
		}
	}
	return out
}

func indexOf[T any](records []T, rec T) int {
	for i, r := range records {
		if identical(any(r), any(rec)) {
			return i
		}
	}
	return -1
}

func identical(a, b any) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if !va.IsValid() || !vb.IsValid() {
		return !va.IsValid() && !vb.IsValid()
	}
	if va.Type() != vb.Type() {
		return false
	}
	switch va.Kind() {
	case reflect.Map, reflect.Pointer, reflect.Slice:
		return va.Pointer() == vb.Pointer()
	}
	if va.Comparable() {
		return a == b
	}
	return false
}
