package values

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Kind
	}{
		{"nil", nil, KindNull},
		{"bool", true, KindBool},
		{"int", 3, KindInt},
		{"int64", int64(3), KindInt},
		{"uint8", uint8(3), KindUint},
		{"float32", float32(1.5), KindFloat},
		{"string", "a", KindString},
		{"time", time.Unix(0, 0), KindTime},
		{"list", []any{1}, KindList},
		{"map", map[string]any{}, KindMap},
		{"struct", struct{}{}, KindOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.in))
		})
	}
}

func TestParseKindRoundTrip(t *testing.T) {
	for _, k := range []Kind{KindNull, KindBool, KindInt, KindUint, KindFloat, KindString, KindTime} {
		assert.Equal(t, k, ParseKind(k.String()))
	}
	assert.Equal(t, KindFloat, ParseKind("number"))
	assert.Equal(t, KindInvalid, ParseKind("blob"))
}

func TestSameKind(t *testing.T) {
	_, ok := SameKind([]any{1, int64(2), int8(3)})
	assert.True(t, ok)

	i, ok := SameKind([]any{1, 2, "x"})
	assert.False(t, ok)
	assert.Equal(t, 1, i)

	_, ok = SameKind(nil)
	assert.True(t, ok)
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"int vs int64", 2, int64(2), true},
		{"int vs float", 2, 2.0, true},
		{"int vs float fraction", 2, 2.5, false},
		{"uint vs int", uint(7), 7, true},
		{"negative vs uint", -1, uint(1), false},
		{"strings", "Pass", "Pass", true},
		{"case sensitive", "pass", "Pass", false},
		{"number vs string", 1, "1", false},
		{"nil vs nil", nil, nil, true},
		{"nil vs zero", nil, 0, false},
		{"bools", true, true, true},
		{"nan", math.NaN(), math.NaN(), false},
		{"times", time.Unix(10, 0).UTC(), time.Unix(10, 0), true},
		{"lists", []any{1, 2}, []any{1, 2}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
		})
	}
}

func TestToFloat(t *testing.T) {
	f, err := ToFloat(12)
	require.NoError(t, err)
	assert.Equal(t, 12.0, f)

	f, err = ToFloat(" 7.5 ")
	require.NoError(t, err)
	assert.Equal(t, 7.5, f)

	f, err = ToFloat(nil)
	require.NoError(t, err)
	assert.Zero(t, f)

	_, err = ToFloat("abc")
	assert.Error(t, err)

	_, err = ToFloat(true)
	assert.Error(t, err)
}

func TestString(t *testing.T) {
	assert.Equal(t, "", String(nil))
	assert.Equal(t, "12", String(12.0))
	assert.Equal(t, "7.5", String(7.5))
	assert.Equal(t, "Pass", String("Pass"))
	assert.Equal(t, "3", String(3))
	assert.Equal(t, "33.333333333333336", FormatFloat(100.0/3))
}
