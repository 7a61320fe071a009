package values

import (
	"math"
	"reflect"
	"time"
)

// Equal is the domain comparison used by the set operators. Numbers compare
// by value across int, uint and float widths; strings compare byte-wise
// (case sensitive); nil equals only nil.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ka, kb := KindOf(a), KindOf(b)
	if isNumeric(ka) && isNumeric(kb) {
		return numericEqual(a, b)
	}
	if ka != kb {
		return false
	}
	switch ka {
	case KindBool:
		return a.(bool) == b.(bool)
	case KindString:
		return a.(string) == b.(string)
	case KindTime:
		return a.(time.Time).Equal(b.(time.Time))
	}
	return reflect.DeepEqual(a, b)
}

func isNumeric(k Kind) bool {
	return k == KindInt || k == KindUint || k == KindFloat
}

func numericEqual(a, b any) bool {
	ia, aInt := asInt64(a)
	ib, bInt := asInt64(b)
	if aInt && bInt {
		return ia == ib
	}
	ua, aUint := asUint64(a)
	ub, bUint := asUint64(b)
	if aUint && bUint {
		return ua == ub
	}
	fa, _ := ToFloat(a)
	fb, _ := ToFloat(b)
	if math.IsNaN(fa) || math.IsNaN(fb) {
		return false
	}
	return fa == fb
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}

func asUint64(v any) (uint64, bool) {
	switch n := v.(type) {
	case uint:
		return uint64(n), true
	case uint8:
		return uint64(n), true
	case uint16:
		return uint64(n), true
	case uint32:
		return uint64(n), true
	case uint64:
		return n, true
	}
	if i, ok := asInt64(v); ok && i >= 0 {
		return uint64(i), true
	}
	return 0, false
}
