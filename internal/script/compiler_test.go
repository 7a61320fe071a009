package script

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/gradeval/internal/binder"
	"github.com/abhisek/gradeval/internal/fieldpath"
	"github.com/abhisek/gradeval/internal/rules"
	"github.com/abhisek/gradeval/internal/values"
)

func mapGetter(types map[string]values.Kind) FieldGetter {
	r := fieldpath.NewMapResolver(types)
	return func(rec any, p fieldpath.Path) (any, error) {
		m, _ := rec.(map[string]any)
		return r.Get(m, p)
	}
}

func students() binder.Records {
	return binder.Records{
		map[string]any{"name": "Ann", "score": 7.5},
		map[string]any{"name": "Bob", "score": 3.0},
		map[string]any{"name": "Cid", "score": 9.0},
	}
}

func newScope(b *binder.Binder) *binder.Scope {
	s := b.NewScope()
	s.Bind(binder.Fields, mapGetter(nil))
	return s
}

func TestCompileErrors(t *testing.T) {
	b := binder.New()

	tests := []struct {
		name string
		text string
	}{
		{"syntax", "1 +"},
		{"undeclared name", "unknown_name > 1"},
		{"unknown function", "frobnicate(1)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.text, b)
			var ce *ErrCompile
			require.True(t, errors.As(err, &ce), "got %v", err)
			assert.Equal(t, tt.text, ce.Source)
		})
	}
}

func TestEvalResolvesScopeChain(t *testing.T) {
	b := binder.New()
	b.Bind("limit", int64(10))

	c, err := NewCompiler(b, "value")
	require.NoError(t, err)

	p, err := c.Compile("value >= 5 && value < limit")
	require.NoError(t, err)
	assert.Equal(t, "value >= 5 && value < limit", p.Source())

	s := newScope(b)
	s.Bind("value", 7.5)
	got, err := p.EvalBool(s)
	require.NoError(t, err)
	assert.True(t, got)

	inner := s.NewScope()
	inner.Bind("value", 12.0)
	got, err = p.EvalBool(inner)
	require.NoError(t, err)
	assert.False(t, got)

	// The outer scope is untouched by the inner binding.
	got, err = p.EvalBool(s)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestEvalBoolRejectsOtherResults(t *testing.T) {
	b := binder.New()
	p, err := Compile("1 + 2", b)
	require.NoError(t, err)

	out, err := p.Eval(newScope(b))
	require.NoError(t, err)
	assert.Equal(t, int64(3), out)

	_, err = p.EvalBool(newScope(b))
	var re *ErrRuntime
	assert.True(t, errors.As(err, &re))
}

func TestRecordFieldSelection(t *testing.T) {
	b := binder.New()
	c, err := NewCompiler(b, "record")
	require.NoError(t, err)

	s := newScope(b)
	s.Bind(binder.Group, students())
	s.Bind("record", binder.Record{Value: students()[0]})

	p, err := c.Compile(`record.name == "Ann" && record.score > 7`)
	require.NoError(t, err)
	ok, err := p.EvalBool(s)
	require.NoError(t, err)
	assert.True(t, ok)

	p, err = c.Compile(`group.filter(r, r.score >= 5.0)`)
	require.NoError(t, err)
	out, err := p.Eval(s)
	require.NoError(t, err)
	recs, ok := out.(binder.Records)
	require.True(t, ok, "got %T", out)
	require.Len(t, recs, 2)
	assert.Equal(t, "Cid", recs[1].(map[string]any)["name"])

	p, err = c.Compile(`group.exists(r, r.name == "Bob")`)
	require.NoError(t, err)
	ok, err = p.EvalBool(s)
	require.NoError(t, err)
	assert.True(t, ok)
}

type pupil struct {
	Name    string
	Subject string
}

func TestNestedFieldSelection(t *testing.T) {
	acc := fieldpath.Accessors[*pupil]{
		"Name":         {Kind: values.KindString, Get: func(p *pupil) any { return p.Name }},
		"Subject.Name": {Kind: values.KindString, Get: func(p *pupil) any { return p.Subject }},
	}
	b := binder.New()
	c, err := NewCompiler(b, "record")
	require.NoError(t, err)

	s := b.NewScope()
	s.Bind(binder.Fields, FieldGetter(func(rec any, p fieldpath.Path) (any, error) {
		return acc.Get(rec.(*pupil), p)
	}))
	s.Bind("record", binder.Record{Value: &pupil{Name: "Ann", Subject: "Math"}})

	p, err := c.Compile(`record.Subject.Name == "Math" && record.Name == "Ann"`)
	require.NoError(t, err)
	ok, err := p.EvalBool(s)
	require.NoError(t, err)
	assert.True(t, ok)

	p, err = c.Compile(`record.Missing.Field == 1`)
	require.NoError(t, err)
	_, err = p.Eval(s)
	var unknown *fieldpath.ErrUnknownField
	assert.True(t, errors.As(err, &unknown))
}

func TestMisspelledFieldFailsEvaluation(t *testing.T) {
	acc := fieldpath.Accessors[*pupil]{
		"Name":         {Kind: values.KindString, Get: func(p *pupil) any { return p.Name }},
		"Subject.Name": {Kind: values.KindString, Get: func(p *pupil) any { return p.Subject }},
	}
	b := binder.New()
	c, err := NewCompiler(b, "record")
	require.NoError(t, err)

	s := b.NewScope()
	s.Bind(binder.Fields, FieldGetter(func(rec any, p fieldpath.Path) (any, error) {
		return acc.Get(rec.(*pupil), p)
	}))
	s.Bind("record", binder.Record{Value: &pupil{Name: "Ann", Subject: "Math"}})
	s.Bind(binder.Group, binder.Records{&pupil{Name: "Ann"}})

	for _, text := range []string{
		`record.Nmae == "Ann"`,
		`record.Nmae != "Ann"`,
		`record.Subjct.Name == "Math"`,
		`group.exists(r, r.Nmae == "Ann")`,
	} {
		t.Run(text, func(t *testing.T) {
			p, err := c.Compile(text)
			require.NoError(t, err)
			_, err = p.Eval(s)
			var unknown *fieldpath.ErrUnknownField
			require.True(t, errors.As(err, &unknown), "got %v", err)
			var re *ErrRuntime
			assert.True(t, errors.As(err, &re))
		})
	}
}

func TestOperatorsReceiveScopeAndRecords(t *testing.T) {
	var seen []any
	count := binder.Builtin{
		Name: "count", MinArgs: 1, MaxArgs: 1,
		Fn: func(s *binder.Scope, args []any) (any, error) {
			secret, _ := s.Lookup("$secret")
			seen = append(seen, secret)
			recs, ok := args[0].(binder.Records)
			if !ok {
				return nil, errors.New("not records")
			}
			return len(recs), nil
		},
	}
	b := binder.New(count)
	p, err := Compile("count(group) + count(group.filter(r, r.score > 5.0))", b)
	require.NoError(t, err)

	s := newScope(b)
	s.Bind(binder.Group, students())
	s.Bind("$secret", "per-group")
	out, err := p.Eval(s)
	require.NoError(t, err)
	assert.Equal(t, int64(5), out)
	assert.Equal(t, []any{"per-group", "per-group"}, seen)
}

func TestOperatorErrorsReachCaller(t *testing.T) {
	ops := rules.NewOperators[map[string]any](fieldpath.NewMapResolver(map[string]values.Kind{"score": values.KindFloat}))
	b := binder.New(ops.Builtins()...)
	c, err := NewCompiler(b)
	require.NoError(t, err)

	s := newScope(b)
	s.Bind(binder.Group, students())

	p, err := c.Compile(`has_any(group, [9.0])`)
	require.NoError(t, err, "arity is checked by the operator, not the compiler")
	_, err = p.Eval(s)
	var argc *rules.ErrArgumentCount
	require.True(t, errors.As(err, &argc), "got %v", err)
	assert.Equal(t, 2, argc.Got)
	var re *ErrRuntime
	assert.True(t, errors.As(err, &re))

	p, err = c.Compile(`has_any(group, [9.0], "score") && !has_any(group, [1.0], "score")`)
	require.NoError(t, err)
	ok, err := p.EvalBool(s)
	require.NoError(t, err)
	assert.True(t, ok)

	p, err = c.Compile(`some(false, false, true) && !some(false, false) && every(false, false)`)
	require.NoError(t, err)
	ok, err = p.EvalBool(s)
	require.NoError(t, err)
	assert.True(t, ok)

	p, err = c.Compile(`has_none(group, null, "score")`)
	require.NoError(t, err)
	_, err = p.Eval(s)
	var nc *rules.ErrNilCandidates
	assert.True(t, errors.As(err, &nc))
}

func TestLogicalOperatorsAbsorbOperatorErrors(t *testing.T) {
	ops := rules.NewOperators[map[string]any](fieldpath.NewMapResolver(map[string]values.Kind{"score": values.KindFloat}))
	b := binder.New(ops.Builtins()...)
	c, err := NewCompiler(b)
	require.NoError(t, err)

	s := newScope(b)
	s.Bind(binder.Group, students())

	// A decided || or && short-circuits an erroring operand on either side.
	for _, text := range []string{
		`has_any(group, [1, "a"], "score") || true`,
		`true || has_any(group, [1, "a"], "score")`,
		`!(has_any(group, [1, "a"], "score") && false)`,
	} {
		t.Run(text, func(t *testing.T) {
			p, err := c.Compile(text)
			require.NoError(t, err)
			ok, err := p.EvalBool(s)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}

	p, err := c.Compile(`has_any(group, [1, "a"], "score") || false`)
	require.NoError(t, err)
	_, err = p.Eval(s)
	var tm *rules.ErrTypeMismatch
	assert.True(t, errors.As(err, &tm), "got %v", err)
}

func TestVariadicOperatorsTakeManyArguments(t *testing.T) {
	ops := rules.NewOperators[map[string]any](fieldpath.NewMapResolver(nil))
	b := binder.New(ops.Builtins()...)
	c, err := NewCompiler(b)
	require.NoError(t, err)

	args := strings.TrimSuffix(strings.Repeat("false, ", 20), ", ")
	p, err := c.Compile("some(" + args + ", true) && every(" + args + ")")
	require.NoError(t, err)
	ok, err := p.EvalBool(newScope(b))
	require.NoError(t, err)
	assert.True(t, ok)

	p, err = c.Compile(`has_any(group, [1.0], "score", 1, 2, 3, 4, 5)`)
	require.NoError(t, err)
	_, err = p.Eval(newScope(b))
	var argc *rules.ErrArgumentCount
	require.True(t, errors.As(err, &argc), "got %v", err)
	assert.Equal(t, 8, argc.Got)
}

func TestPlaceholdersAreDeclared(t *testing.T) {
	b := binder.New()
	_, err := Compile(`item`, b)
	require.NoError(t, err, "placeholders are declared")
}
