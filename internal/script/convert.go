package script

import (
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"

	"github.com/abhisek/gradeval/internal/binder"
	"github.com/abhisek/gradeval/internal/fieldpath"
)

// toCEL converts a bound host value into a CEL value. Record sequences and
// single records become handles; field paths become their dotted text.
func toCEL(v any, get FieldGetter) ref.Val {
	switch x := v.(type) {
	case ref.Val:
		return x
	case binder.Records:
		elems := make([]ref.Val, len(x))
		for i, e := range x {
			if r, ok := e.(binder.Record); ok {
				e = r.Value
			}
			elems[i] = handle{rec: e, get: get}
		}
		return types.NewRefValList(types.DefaultTypeAdapter, elems)
	case binder.Record:
		if x.Value == nil {
			return types.NullValue
		}
		return handle{rec: x.Value, get: get}
	case fieldpath.Path:
		return types.String(x.String())
	case int:
		return types.Int(x)
	}
	return types.DefaultTypeAdapter.NativeToValue(v)
}

// fromCEL converts a CEL value into the host representation operators
// expect. Lists made only of record handles become binder.Records.
func fromCEL(v ref.Val) any {
	switch x := v.(type) {
	case nil:
		return nil
	case handle:
		if x.prefix != "" {
			return x
		}
		return binder.Record{Value: x.rec}
	case types.Null:
		return nil
	case types.Bool:
		return bool(x)
	case types.Int:
		return int64(x)
	case types.Uint:
		return uint64(x)
	case types.Double:
		return float64(x)
	case types.String:
		return string(x)
	case types.Bytes:
		return []byte(x)
	case types.Timestamp:
		return x.Time
	case types.Duration:
		return x.Duration
	case traits.Lister:
		return fromList(x)
	case traits.Mapper:
		return fromMap(x)
	}
	return v.Value()
}

func fromList(l traits.Lister) any {
	var items []any
	recs := binder.Records{}
	onlyRecords := true
	for it := l.Iterator(); it.HasNext() == types.True; {
		e := it.Next()
		if h, ok := e.(handle); ok && h.prefix == "" {
			recs = append(recs, h.rec)
		} else {
			onlyRecords = false
		}
		items = append(items, fromCEL(e))
	}
	if onlyRecords && len(recs) > 0 {
		return recs
	}
	if items == nil {
		return []any{}
	}
	return items
}

func fromMap(m traits.Mapper) map[string]any {
	out := make(map[string]any)
	for it := m.Iterator(); it.HasNext() == types.True; {
		k := it.Next()
		out[toKey(k)] = fromCEL(m.Get(k))
	}
	return out
}

func toKey(k ref.Val) string {
	if s, ok := k.(types.String); ok {
		return string(s)
	}
	if s, ok := k.ConvertToType(types.StringType).(types.String); ok {
		return string(s)
	}
	return ""
}
