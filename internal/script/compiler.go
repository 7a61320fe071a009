// Package script compiles rule text into executable programs. Rule text is
// CEL. The environment is derived from a binder.Binder: builtin operators
// become functions and the other visible names become dynamic variables.
package script

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"

	"github.com/abhisek/gradeval/internal/binder"
)

// CEL has no variadic functions, so every operator is declared with one
// overload per argument count up to these bounds. Fixed-arity operators get
// a few spare overloads so that a wrong count reaches the operator and fails
// with its own error.
const (
	maxArity         = 8
	maxVariadicArity = 64
)

// Compiler turns rule text into Programs over one Binder. Programs built by
// the same Compiler share its operator dispatch and therefore serialize
// their evaluations.
type Compiler struct {
	env  *cel.Env
	disp *dispatch
}

// dispatch routes operator calls to the scope of the evaluation in flight.
type dispatch struct {
	mu    sync.Mutex
	scope *binder.Scope
}

// NewCompiler builds a compiler for the names bound in b plus the extra
// variable names, which are bound per evaluation.
func NewCompiler(b *binder.Binder, extra ...string) (*Compiler, error) {
	d := &dispatch{}
	opts := []cel.EnvOption{cel.CrossTypeNumericComparisons(true)}

	declared := make(map[string]bool)
	declare := func(name string) {
		if declared[name] || binder.Internal(name) {
			return
		}
		declared[name] = true
		opts = append(opts, cel.Variable(name, cel.DynType))
	}

	for _, name := range b.Names() {
		v, _ := b.Lookup(name)
		switch x := v.(type) {
		case binder.Builtin:
			declared[name] = true
			opts = append(opts, function(x, d))
		case binder.Operator:
			declared[name] = true
			opts = append(opts, function(binder.Builtin{Name: name, MinArgs: 0, MaxArgs: -1, Fn: x}, d))
		default:
			declare(name)
		}
	}
	for _, name := range extra {
		declare(name)
	}

	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating rule environment: %w", err)
	}
	return &Compiler{env: env, disp: d}, nil
}

// function declares an operator with one dynamic overload per arity, so an
// arity error surfaces from the operator rather than from type-checking.
func function(bi binder.Builtin, d *dispatch) cel.EnvOption {
	impl := func(args ...ref.Val) ref.Val {
		in := make([]any, len(args))
		for i, a := range args {
			in[i] = fromCEL(a)
		}
		s := d.scope
		if s == nil {
			return types.NewErr("%s called outside an evaluation", bi.Name)
		}
		out, err := bi.Fn(s, in)
		if err != nil {
			return types.WrapErr(err)
		}
		return toCEL(out, fieldGetter(s))
	}

	limit := maxArity
	if bi.MaxArgs < 0 {
		limit = maxVariadicArity
	}
	overloads := make([]cel.FunctionOpt, 0, limit+1)
	for n := 0; n <= limit; n++ {
		params := make([]*cel.Type, n)
		for i := range params {
			params[i] = cel.DynType
		}
		overloads = append(overloads, cel.Overload(
			fmt.Sprintf("%s_%d", bi.Name, n), params, cel.DynType,
			cel.FunctionBinding(impl),
		))
	}
	return cel.Function(bi.Name, overloads...)
}

// Compile parses and checks text.
func (c *Compiler) Compile(text string) (*Program, error) {
	ast, issues := c.env.Compile(text)
	if issues != nil && issues.Err() != nil {
		return nil, &ErrCompile{Source: text, Err: issues.Err()}
	}
	prg, err := c.env.Program(ast)
	if err != nil {
		return nil, &ErrCompile{Source: text, Err: err}
	}
	return &Program{src: text, prg: prg, disp: c.disp}, nil
}

// Compile is shorthand for NewCompiler(b, extra...).Compile(text).
func Compile(text string, b *binder.Binder, extra ...string) (*Program, error) {
	c, err := NewCompiler(b, extra...)
	if err != nil {
		return nil, err
	}
	return c.Compile(text)
}

// Program is compiled rule text.
type Program struct {
	src  string
	prg  cel.Program
	disp *dispatch
}

// Source returns the rule text the program was compiled from.
func (p *Program) Source() string {
	return p.src
}

// Eval runs the program against s. Names resolve through the scope chain;
// operators receive s as their scope.
func (p *Program) Eval(s *binder.Scope) (any, error) {
	p.disp.mu.Lock()
	defer p.disp.mu.Unlock()
	p.disp.scope = s
	defer func() { p.disp.scope = nil }()

	out, _, err := p.prg.Eval(&activation{scope: s, get: fieldGetter(s)})
	if err != nil {
		return nil, &ErrRuntime{Source: p.src, Err: err}
	}
	return fromCEL(out), nil
}

// EvalBool runs the program and requires a boolean result.
func (p *Program) EvalBool(s *binder.Scope) (bool, error) {
	out, err := p.Eval(s)
	if err != nil {
		return false, err
	}
	b, ok := out.(bool)
	if !ok {
		return false, &ErrRuntime{Source: p.src, Err: fmt.Errorf("result is %T, want bool", out)}
	}
	return b, nil
}

// activation resolves CEL variables from a binder scope.
type activation struct {
	scope *binder.Scope
	get   FieldGetter
}

func (a *activation) ResolveName(name string) (any, bool) {
	if binder.Internal(name) {
		return nil, false
	}
	v, ok := a.scope.Lookup(name)
	if !ok {
		return nil, false
	}
	switch v.(type) {
	case binder.Builtin, binder.Operator:
		return nil, false
	}
	return toCEL(v, a.get), true
}

func (a *activation) Parent() cel.Activation {
	return nil
}

func fieldGetter(s *binder.Scope) FieldGetter {
	if s == nil {
		return nil
	}
	raw, ok := s.Lookup(binder.Fields)
	if !ok {
		return nil
	}
	get, _ := raw.(FieldGetter)
	return get
}
