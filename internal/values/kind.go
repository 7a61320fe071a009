package values

import (
	"fmt"
	"time"
)

// Kind is the runtime type class of a rule value. Two values share a type
// when their kinds are equal; the Go width of a number does not matter.
type Kind int

const (
	KindInvalid Kind = iota
	KindNull
	KindBool
	KindInt
	KindUint
	KindFloat
	KindString
	KindTime
	KindList
	KindMap
	KindRecord
	KindOther
)

var kindNames = map[Kind]string{
	KindInvalid: "invalid",
	KindNull:    "null",
	KindBool:    "bool",
	KindInt:     "int",
	KindUint:    "uint",
	KindFloat:   "double",
	KindString:  "string",
	KindTime:    "timestamp",
	KindList:    "list",
	KindMap:     "map",
	KindRecord:  "record",
	KindOther:   "other",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind maps a kind name (as printed by String) back to a Kind.
// Unknown names return KindInvalid.
func ParseKind(name string) Kind {
	for k, n := range kindNames {
		if n == name {
			return k
		}
	}
	switch name {
	case "float", "number":
		return KindFloat
	case "integer":
		return KindInt
	case "boolean":
		return KindBool
	}
	return KindInvalid
}

// KindOf classifies a Go value.
func KindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return KindNull
	case bool:
		return KindBool
	case int, int8, int16, int32, int64:
		return KindInt
	case uint, uint8, uint16, uint32, uint64:
		return KindUint
	case float32, float64:
		return KindFloat
	case string:
		return KindString
	case time.Time:
		return KindTime
	case []any, []string, []int, []int64, []float64, []bool:
		return KindList
	case map[string]any:
		return KindMap
	}
	return KindOther
}

// SameKind reports whether every element of vs has the same kind as its
// neighbour. It returns the index of the first offending pair otherwise.
func SameKind(vs []any) (int, bool) {
	for i := 0; i+1 < len(vs); i++ {
		if KindOf(vs[i]) != KindOf(vs[i+1]) {
			return i, false
		}
	}
	return -1, true
}
