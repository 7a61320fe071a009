package fieldpath

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/gradeval/internal/values"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Path
		wantErr bool
	}{
		{"single", "Score", Path{"Score"}, false},
		{"nested", "Subject.Name", Path{"Subject", "Name"}, false},
		{"underscore", "_id", Path{"_id"}, false},
		{"empty", "", nil, true},
		{"empty segment", "Subject.", nil, true},
		{"too deep", "a.b.c", nil, true},
		{"bad ident", "1abc", nil, true},
		{"dash", "first-name", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, got.String())
		})
	}
}

func TestPathHelpers(t *testing.T) {
	p := MustParse("Subject.Name")
	assert.True(t, p.Nested())
	assert.Equal(t, "Subject", p.Head())
	assert.Equal(t, "Name", p.Leaf())
	assert.True(t, p.Equal(Path{"Subject", "Name"}))
	assert.False(t, p.Equal(Path{"Subject"}))
	assert.True(t, Path(nil).IsZero())
	assert.Panics(t, func() { MustParse("") })
}

func TestMapResolver(t *testing.T) {
	r := NewMapResolver(map[string]values.Kind{
		"Score":        values.KindFloat,
		"Subject.Name": values.KindString,
		"Result":       values.KindString,
	})
	rec := map[string]any{
		"Score":   12.5,
		"Subject": map[string]any{"Name": "Math"},
	}

	v, err := r.Get(rec, MustParse("Score"))
	require.NoError(t, err)
	assert.Equal(t, 12.5, v)

	v, err = r.Get(rec, MustParse("Subject.Name"))
	require.NoError(t, err)
	assert.Equal(t, "Math", v)

	v, err = r.Get(rec, MustParse("Result"))
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, r.Set(rec, MustParse("Result"), "Pass"))
	assert.Equal(t, "Pass", rec["Result"])

	_, err = r.Get(rec, MustParse("Missing"))
	var unknown *ErrUnknownField
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "Missing", unknown.Path.String())

	k, err := r.Kind(MustParse("Subject.Name"))
	require.NoError(t, err)
	assert.Equal(t, values.KindString, k)
}

func TestMapResolverCreatesComposite(t *testing.T) {
	r := &MapResolver{}
	rec := map[string]any{}
	require.NoError(t, r.Set(rec, MustParse("Outcome.Label"), "Fail"))
	v, err := r.Get(rec, MustParse("Outcome.Label"))
	require.NoError(t, err)
	assert.Equal(t, "Fail", v)

	rec["Flat"] = 3
	_, err = r.Get(rec, MustParse("Flat.Inner"))
	assert.Error(t, err)

	_, err = r.Kind(MustParse("Flat"))
	assert.Error(t, err)
}

type grade struct {
	Score  float64
	Result string
}

func TestAccessors(t *testing.T) {
	acc := Accessors[*grade]{
		"Score": {
			Kind: values.KindFloat,
			Get:  func(g *grade) any { return g.Score },
		},
		"Result": {
			Kind: values.KindString,
			Get:  func(g *grade) any { return g.Result },
			Set: func(g *grade, v any) error {
				g.Result, _ = v.(string)
				return nil
			},
		},
	}
	g := &grade{Score: 9}

	v, err := acc.Get(g, MustParse("Score"))
	require.NoError(t, err)
	assert.Equal(t, 9.0, v)

	require.NoError(t, acc.Set(g, MustParse("Result"), "Pass"))
	assert.Equal(t, "Pass", g.Result)

	err = acc.Set(g, MustParse("Score"), 1.0)
	var ro *ErrReadOnly
	assert.True(t, errors.As(err, &ro))

	k, err := acc.Kind(MustParse("Score"))
	require.NoError(t, err)
	assert.Equal(t, values.KindFloat, k)

	_, err = acc.Get(g, MustParse("Nope"))
	assert.Error(t, err)
}

func TestUnknownFieldMarksComposites(t *testing.T) {
	types := map[string]values.Kind{"Score": values.KindFloat, "Subject.Name": values.KindString}
	acc := Accessors[*grade]{
		"Score":        {Kind: values.KindFloat, Get: func(g *grade) any { return g.Score }},
		"Subject.Name": {Kind: values.KindString, Get: func(g *grade) any { return "" }},
	}

	tests := []struct {
		path string
		want bool
	}{
		{"Subject", true},
		{"Scroe", false},
		{"Sub", false},
		{"Subject.Code", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			var unknown *ErrUnknownField

			_, err := NewMapResolver(types).Get(map[string]any{}, MustParse(tt.path))
			require.True(t, errors.As(err, &unknown), "got %v", err)
			assert.Equal(t, tt.want, unknown.Composite)

			_, err = acc.Get(&grade{}, MustParse(tt.path))
			require.True(t, errors.As(err, &unknown), "got %v", err)
			assert.Equal(t, tt.want, unknown.Composite)
		})
	}
}
