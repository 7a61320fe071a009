// Package engine classifies a collection of records with rule text.
//
// A run deduplicates the records by a key field, groups them around each
// distinct representative, evaluates every category predicate over the
// group's members and then runs a script that commits a label. The commit
// writes the label and an annotation back onto the records, after which all
// records are bucketed by their written label and reported as percentages
// of the distinct record count.
package engine

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/abhisek/gradeval/internal/binder"
	"github.com/abhisek/gradeval/internal/fieldpath"
	"github.com/abhisek/gradeval/internal/rules"
	"github.com/abhisek/gradeval/internal/script"
)

// ErrNotConfigured is returned by Reevaluate before any successful
// Evaluate.
var ErrNotConfigured = errors.New("engine: no prior full run to reuse categories from")

// ErrInvalidInput indicates a missing or inconsistent run input.
type ErrInvalidInput struct {
	Field  string
	Reason string
}

func (e *ErrInvalidInput) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

// Hooks are called around the classification of each group.
type Hooks[T any] struct {
	BeforeGroup func(g Group[T])
	AfterGroup  func(g Group[T])
}

// Option configures an Engine.
type Option[T any] func(*Engine[T])

// WithLogger sets the logger. The default discards everything.
func WithLogger[T any](l *zap.Logger) Option[T] {
	return func(e *Engine[T]) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithGroupMode selects how groups are formed.
func WithGroupMode[T any](m GroupMode) Option[T] {
	return func(e *Engine[T]) {
		e.mode = m
	}
}

// WithFields exposes extra field paths to rule text under the given names.
func WithFields[T any](fields map[string]fieldpath.Path) Option[T] {
	return func(e *Engine[T]) {
		for name, p := range fields {
			e.fields[name] = p
		}
	}
}

// WithHooks installs per-group callbacks.
func WithHooks[T any](h Hooks[T]) Option[T] {
	return func(e *Engine[T]) {
		e.hooks = h
	}
}

// Input is the full set of parameters of a classification run.
type Input[T any] struct {
	// Key identifies distinct records. The first record of each key value
	// represents its group.
	Key fieldpath.Path
	// Value is the evaluated field, bound as `value` in category rules and
	// shown in annotations.
	Value fieldpath.Path
	// CategoryKey and CategoryName are exposed to rule text as
	// category_key and category_name. CategoryName labels records in
	// annotations.
	CategoryKey  fieldpath.Path
	CategoryName fieldpath.Path
	// Result receives the committed label and Notes the annotation.
	Result fieldpath.Path
	Notes  fieldpath.Path
	// SameGroup reports whether a record belongs to a representative's group.
	SameGroup func(a, b T) bool
	// Script runs once per group, typically calling commit.
	Script string
	// Categories are evaluated in order over each group's members.
	Categories rules.RuleSet
	// Subcategories are bound like categories but left out of annotations.
	Subcategories rules.RuleSet
}

// RerunInput reruns classification with the categories of the last full
// run. Zero Result and Notes keep the previous paths.
type RerunInput[T any] struct {
	Key       fieldpath.Path
	SameGroup func(a, b T) bool
	Script    string
	Result    fieldpath.Path
	Notes     fieldpath.Path
}

type compiledRule struct {
	rule   rules.Rule
	symbol string
	prg    *script.Program
}

// schema is what a full run leaves for later reruns.
type schema[T any] struct {
	input         Input[T]
	compiler      *script.Compiler
	categories    []compiledRule
	subcategories []compiledRule
}

// Engine evaluates classification runs over records of type T. T should be
// a pointer or map type so that committed labels are visible to the caller.
// An Engine is not safe for concurrent use.
type Engine[T any] struct {
	resolver fieldpath.Resolver[T]
	ops      *rules.Operators[T]
	binder   *binder.Binder
	logger   *zap.Logger
	mode     GroupMode
	fields   map[string]fieldpath.Path
	hooks    Hooks[T]

	schema  *schema[T]
	buckets *Buckets[T]
	report  Report
	journal journal
}

// New creates an Engine resolving record fields through r.
func New[T any](r fieldpath.Resolver[T], opts ...Option[T]) *Engine[T] {
	e := &Engine[T]{
		resolver: r,
		logger:   zap.NewNop(),
		fields:   make(map[string]fieldpath.Path),
		buckets:  newBuckets[T](),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.ops = rules.NewOperators[T](r)
	e.ops.OnWrite(func(index int, _ T, p fieldpath.Path, v any) {
		e.journal.record(index, p, v)
	})

	e.binder = binder.New(e.ops.Builtins()...)
	e.binder.Bind(binder.Fields, script.FieldGetter(e.getField))
	for name, p := range e.fields {
		e.binder.Bind(name, p)
	}
	return e
}

func (e *Engine[T]) getField(rec any, p fieldpath.Path) (any, error) {
	t, ok := rec.(T)
	if !ok {
		return nil, fmt.Errorf("record is %T, not a %T", rec, *new(T))
	}
	return e.resolver.Get(t, p)
}

// Binder returns the evaluator-wide symbol table.
func (e *Engine[T]) Binder() *binder.Binder {
	return e.binder
}

// Buckets returns the buckets of the last run.
func (e *Engine[T]) Buckets() *Buckets[T] {
	return e.buckets
}

// Report returns the report of the last run.
func (e *Engine[T]) Report() Report {
	return e.report
}

// ResultDescription renders the report of the last run.
func (e *Engine[T]) ResultDescription() string {
	return e.report.String()
}

// Effects lists the writes applied by the last run, including a run that
// failed part way.
func (e *Engine[T]) Effects() []Effect {
	return e.journal.list()
}
