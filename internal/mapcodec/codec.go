// Package mapcodec translates between Go maps and rule-language map
// literals, e.g. {"Pass": "value >= 10.0", "Fail": "value < 10.0"}. It is a
// transport convenience for passing rule-sets through text channels and plays
// no part in evaluation.
package mapcodec

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/ast"
	"github.com/google/cel-go/common/operators"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"

	"github.com/abhisek/gradeval/internal/rules"
)

// ErrFormat indicates text that is not a map literal of the supported shape.
type ErrFormat struct {
	Text   string
	Reason string
	Err    error
}

func (e *ErrFormat) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("map literal: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("map literal: %s", e.Reason)
}

func (e *ErrFormat) Unwrap() error {
	return e.Err
}

// ErrUnsupportedValue indicates a Go value with no literal form.
type ErrUnsupportedValue struct {
	Key   string
	Value any
}

func (e *ErrUnsupportedValue) Error() string {
	return fmt.Sprintf("key %q: %T has no literal form", e.Key, e.Value)
}

// Entry is one key/value pair of a map literal.
type Entry struct {
	Key   string
	Value any
}

// Encode renders m as a map literal with keys in sorted order. A nil or empty
// map encodes as the empty string.
func Encode(m map[string]any) (string, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]Entry, len(keys))
	for i, k := range keys {
		entries[i] = Entry{Key: k, Value: m[k]}
	}
	return EncodeEntries(entries)
}

// EncodeEntries renders entries as a map literal in the given order.
func EncodeEntries(entries []Entry) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}
	var b strings.Builder
	b.WriteByte('{')
	for i, e := range entries {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.Quote(e.Key))
		b.WriteString(": ")
		if err := literal(&b, e.Key, e.Value); err != nil {
			return "", err
		}
	}
	b.WriteByte('}')
	return b.String(), nil
}

func literal(b *strings.Builder, key string, v any) error {
	switch x := v.(type) {
	case nil:
		b.WriteString("null")
	case bool:
		b.WriteString(strconv.FormatBool(x))
	case string:
		b.WriteString(strconv.Quote(x))
	case int:
		b.WriteString(strconv.FormatInt(int64(x), 10))
	case int8:
		b.WriteString(strconv.FormatInt(int64(x), 10))
	case int16:
		b.WriteString(strconv.FormatInt(int64(x), 10))
	case int32:
		b.WriteString(strconv.FormatInt(int64(x), 10))
	case int64:
		b.WriteString(strconv.FormatInt(x, 10))
	case uint:
		b.WriteString(strconv.FormatUint(uint64(x), 10) + "u")
	case uint8:
		b.WriteString(strconv.FormatUint(uint64(x), 10) + "u")
	case uint16:
		b.WriteString(strconv.FormatUint(uint64(x), 10) + "u")
	case uint32:
		b.WriteString(strconv.FormatUint(uint64(x), 10) + "u")
	case uint64:
		b.WriteString(strconv.FormatUint(x, 10) + "u")
	case float32:
		return double(b, key, float64(x))
	case float64:
		return double(b, key, x)
	case time.Time:
		fmt.Fprintf(b, "timestamp(%s)", strconv.Quote(x.UTC().Format(time.RFC3339Nano)))
	case []byte:
		bytesLiteral(b, x)
	case []bool:
		return list(b, key, spread(x))
	case []string:
		return list(b, key, spread(x))
	case []int:
		return list(b, key, spread(x))
	case []int64:
		return list(b, key, spread(x))
	case []float64:
		return list(b, key, spread(x))
	case []any:
		return list(b, key, x)
	case map[string]any:
		s, err := Encode(x)
		if err != nil {
			return err
		}
		if s == "" {
			s = "{}"
		}
		b.WriteString(s)
	default:
		return &ErrUnsupportedValue{Key: key, Value: v}
	}
	return nil
}

func double(b *strings.Builder, key string, f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return &ErrUnsupportedValue{Key: key, Value: f}
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	b.WriteString(s)
	return nil
}

// bytesLiteral writes a b"..." literal, escaping everything outside
// printable ASCII as \xHH.
func bytesLiteral(b *strings.Builder, data []byte) {
	const hex = "0123456789abcdef"
	b.WriteString(`b"`)
	for _, c := range data {
		switch {
		case c == '"' || c == '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case c >= 0x20 && c < 0x7f:
			b.WriteByte(c)
		default:
			b.WriteString(`\x`)
			b.WriteByte(hex[c>>4])
			b.WriteByte(hex[c&0x0f])
		}
	}
	b.WriteByte('"')
}

func list(b *strings.Builder, key string, items []any) error {
	b.WriteByte('[')
	for i, it := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		if err := literal(b, key, it); err != nil {
			return err
		}
	}
	b.WriteByte(']')
	return nil
}

func spread[E any](l []E) []any {
	out := make([]any, len(l))
	for i, e := range l {
		out[i] = e
	}
	return out
}

var (
	parserOnce sync.Once
	parser     *cel.Env
	parserErr  error
)

func env() (*cel.Env, error) {
	parserOnce.Do(func() {
		parser, parserErr = cel.NewEnv()
	})
	return parser, parserErr
}

// Decode parses a map literal. Blank text decodes to an empty map.
func Decode(text string) (map[string]any, error) {
	entries, err := DecodeEntries(text)
	if err != nil {
		return nil, err
	}
	m := make(map[string]any, len(entries))
	for _, e := range entries {
		m[e.Key] = e.Value
	}
	return m, nil
}

// DecodeEntries parses a map literal keeping the source order of its keys.
func DecodeEntries(text string) ([]Entry, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	e, err := env()
	if err != nil {
		return nil, err
	}
	parsed, issues := e.Parse(text)
	if issues != nil && issues.Err() != nil {
		return nil, &ErrFormat{Text: text, Reason: "syntax error", Err: issues.Err()}
	}
	root := parsed.NativeRep().Expr()
	if root.Kind() != ast.MapKind {
		return nil, &ErrFormat{Text: text, Reason: "root is not a map literal"}
	}
	return entriesOf(text, root)
}

func entriesOf(text string, m ast.Expr) ([]Entry, error) {
	seen := make(map[string]bool)
	var out []Entry
	for _, ent := range m.AsMap().Entries() {
		if ent.Kind() != ast.MapEntryKind {
			return nil, &ErrFormat{Text: text, Reason: "unexpected map entry"}
		}
		me := ent.AsMapEntry()
		if me.IsOptional() {
			return nil, &ErrFormat{Text: text, Reason: "optional entries are not supported"}
		}
		key, ok := stringLiteral(me.Key())
		if !ok {
			return nil, &ErrFormat{Text: text, Reason: "keys must be string literals"}
		}
		if seen[key] {
			return nil, &ErrFormat{Text: text, Reason: fmt.Sprintf("duplicate key %q", key)}
		}
		seen[key] = true
		v, err := valueOf(text, key, me.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, Entry{Key: key, Value: v})
	}
	return out, nil
}

func valueOf(text, key string, e ast.Expr) (any, error) {
	switch e.Kind() {
	case ast.LiteralKind:
		return native(text, key, e.AsLiteral())
	case ast.ListKind:
		elems := e.AsList().Elements()
		out := make([]any, 0, len(elems))
		for _, el := range elems {
			v, err := valueOf(text, key, el)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case ast.MapKind:
		entries, err := entriesOf(text, e)
		if err != nil {
			return nil, err
		}
		m := make(map[string]any, len(entries))
		for _, en := range entries {
			m[en.Key] = en.Value
		}
		return m, nil
	case ast.CallKind:
		return callValue(text, key, e.AsCall())
	}
	return nil, &ErrFormat{Text: text, Reason: fmt.Sprintf("key %q: value is not a literal", key)}
}

func callValue(text, key string, c ast.CallExpr) (any, error) {
	args := c.Args()
	switch {
	case c.FunctionName() == operators.Negate && len(args) == 1 && args[0].Kind() == ast.LiteralKind:
		switch n := args[0].AsLiteral().(type) {
		case types.Int:
			return -int64(n), nil
		case types.Double:
			return -float64(n), nil
		}
	case c.FunctionName() == "timestamp" && len(args) == 1:
		if s, ok := stringLiteral(args[0]); ok {
			t, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return nil, &ErrFormat{Text: text, Reason: fmt.Sprintf("key %q: bad timestamp", key), Err: err}
			}
			return t, nil
		}
	}
	return nil, &ErrFormat{Text: text, Reason: fmt.Sprintf("key %q: value is not a literal", key)}
}

func stringLiteral(e ast.Expr) (string, bool) {
	if e.Kind() != ast.LiteralKind {
		return "", false
	}
	s, ok := e.AsLiteral().(types.String)
	return string(s), ok
}

func native(text, key string, v ref.Val) (any, error) {
	switch x := v.(type) {
	case types.Null:
		return nil, nil
	case types.Bool:
		return bool(x), nil
	case types.Int:
		return int64(x), nil
	case types.Uint:
		return uint64(x), nil
	case types.Double:
		return float64(x), nil
	case types.String:
		return string(x), nil
	case types.Bytes:
		return []byte(x), nil
	}
	return nil, &ErrFormat{Text: text, Reason: fmt.Sprintf("key %q: unsupported literal %s", key, v.Type().TypeName())}
}

// RuleSetText encodes a rule-set as a map literal in rule order.
func RuleSetText(rs rules.RuleSet) (string, error) {
	entries := make([]Entry, len(rs))
	for i, r := range rs {
		entries[i] = Entry{Key: r.Label, Value: r.Expr}
	}
	return EncodeEntries(entries)
}

// RuleSetFromText decodes a map literal of label -> expression text into a
// validated rule-set, keeping the source order.
func RuleSetFromText(text string) (rules.RuleSet, error) {
	entries, err := DecodeEntries(text)
	if err != nil {
		return nil, err
	}
	rs := make(rules.RuleSet, 0, len(entries))
	for _, e := range entries {
		expr, ok := e.Value.(string)
		if !ok {
			return nil, &ErrFormat{Text: text, Reason: fmt.Sprintf("key %q: rule must be a string", e.Key)}
		}
		rs = append(rs, rules.Rule{Label: e.Key, Expr: expr})
	}
	if err := rs.Validate(); err != nil {
		return nil, err
	}
	return rs, nil
}
