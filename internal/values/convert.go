package values

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ToFloat coerces a field value to float64 the way rule predicates expect
// their input. nil becomes 0; numeric strings are parsed.
func ToFloat(v any) (float64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("convert %q to double: %w", n, err)
		}
		return f, nil
	}
	if i, ok := asInt64(v); ok {
		return float64(i), nil
	}
	if u, ok := asUint64(v); ok {
		return float64(u), nil
	}
	return 0, fmt.Errorf("convert %T to double: unsupported type", v)
}

// FormatFloat renders a double with the shortest exact representation
// ("12", "7.5", "33.333333333333336").
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// String renders a field value as a classification label or display name.
func String(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return FormatFloat(s)
	case float32:
		return FormatFloat(float64(s))
	case time.Time:
		return s.Format(time.RFC3339)
	case fmt.Stringer:
		return s.String()
	}
	return fmt.Sprint(v)
}
