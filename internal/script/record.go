package script

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"

	"github.com/abhisek/gradeval/internal/fieldpath"
)

// FieldGetter reads a field of a host record. The engine binds one under
// binder.Fields so rule text can select record fields.
type FieldGetter func(rec any, p fieldpath.Path) (any, error)

// RecordType is the CEL type of record handles.
var RecordType = types.NewOpaqueType("gradeval.Record")

// handle exposes a host record to rule text. Selecting a field resolves it
// through get; when the resolver reports the name as the head of nested
// fields, the first selection yields a nested handle carrying the prefix.
// Any other unknown field is an evaluation error.
type handle struct {
	rec    any
	get    FieldGetter
	prefix string
}

func (h handle) ConvertToNative(t reflect.Type) (any, error) {
	if h.rec != nil && reflect.TypeOf(h.rec).AssignableTo(t) {
		return h.rec, nil
	}
	return nil, fmt.Errorf("record %T cannot convert to %v", h.rec, t)
}

func (h handle) ConvertToType(t ref.Type) ref.Val {
	if t == types.TypeType {
		return RecordType
	}
	return types.NewErr("type conversion error from record to '%s'", t.TypeName())
}

func (h handle) Equal(other ref.Val) ref.Val {
	o, ok := other.(handle)
	if !ok {
		return types.False
	}
	return types.Bool(h.prefix == o.prefix && sameRecord(h.rec, o.rec))
}

func (h handle) Type() ref.Type {
	return RecordType
}

func (h handle) Value() any {
	return h.rec
}

// Get implements traits.Indexer for record.field selection.
func (h handle) Get(index ref.Val) ref.Val {
	name, ok := index.(types.String)
	if !ok {
		return types.NewErr("record field name must be a string, got %s", index.Type().TypeName())
	}
	if h.get == nil {
		return types.NewErr("no field resolver bound")
	}
	text := string(name)
	if h.prefix != "" {
		text = h.prefix + "." + text
	}
	p, err := fieldpath.Parse(text)
	if err != nil {
		return types.WrapErr(err)
	}
	v, err := h.get(h.rec, p)
	if err != nil {
		var unknown *fieldpath.ErrUnknownField
		if h.prefix == "" && errors.As(err, &unknown) && unknown.Composite {
			return handle{rec: h.rec, get: h.get, prefix: text}
		}
		return types.WrapErr(err)
	}
	return types.DefaultTypeAdapter.NativeToValue(v)
}

// sameRecord compares records by identity for reference types.
func sameRecord(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	switch va.Kind() {
	case reflect.Map, reflect.Pointer, reflect.Slice, reflect.Func, reflect.Chan:
		return va.Pointer() == vb.Pointer()
	}
	if va.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}
