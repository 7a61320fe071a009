package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abhisek/gradeval/internal/binder"
	"github.com/abhisek/gradeval/internal/fieldpath"
	"github.com/abhisek/gradeval/internal/rules"
	"github.com/abhisek/gradeval/internal/script"
	"github.com/abhisek/gradeval/internal/values"
)

// Outcome summarizes a completed run.
type Outcome[T any] struct {
	RunID    uuid.UUID
	Elapsed  time.Duration
	Distinct int
	Groups   int
	Buckets  *Buckets[T]
	Report   Report
	Effects  []Effect
}

// Message is the human-readable completion message of the run.
func (o *Outcome[T]) Message() string {
	return fmt.Sprintf("classification finished in %s (run %s)", o.Elapsed, o.RunID)
}

// Run evaluates records and reports the result as a message. It never
// returns an error or panics: any failure becomes the message. Buckets,
// Report and Effects reflect whatever the run got to.
func (e *Engine[T]) Run(records []T, in Input[T]) (msg string) {
	defer e.recoverInto(&msg)
	out, err := e.Evaluate(records, in)
	if err != nil {
		return err.Error()
	}
	return out.Message()
}

// Rerun is the never-failing form of Reevaluate.
func (e *Engine[T]) Rerun(records []T, in RerunInput[T]) (msg string) {
	defer e.recoverInto(&msg)
	out, err := e.Reevaluate(records, in)
	if err != nil {
		return err.Error()
	}
	return out.Message()
}

func (e *Engine[T]) recoverInto(msg *string) {
	if r := recover(); r != nil {
		e.logger.Error("classification panicked", zap.Any("panic", r))
		*msg = fmt.Sprintf("classification failed: %v", r)
	}
}

// Evaluate runs a full classification: it binds the field paths, compiles
// the category rules and the script, and classifies every group.
func (e *Engine[T]) Evaluate(records []T, in Input[T]) (*Outcome[T], error) {
	e.resetResults()
	if err := checkInput(in); err != nil {
		return nil, err
	}

	e.binder.Bind(binder.CategoryKey, in.CategoryKey)
	e.binder.Bind(binder.CategoryName, in.CategoryName)
	e.binder.Bind(binder.ValueKey, in.Value)
	e.binder.SetValue(binder.ValuePath, in.Value)

	extra := []string{binder.Value, binder.Candidate}
	for _, r := range in.Categories {
		extra = append(extra, rules.Symbol(r.Label))
	}
	for _, r := range in.Subcategories {
		extra = append(extra, rules.Symbol(r.Label))
	}
	c, err := script.NewCompiler(e.binder, extra...)
	if err != nil {
		return nil, err
	}
	cats, err := compileRules(c, in.Categories)
	if err != nil {
		return nil, err
	}
	subs, err := compileRules(c, in.Subcategories)
	if err != nil {
		return nil, err
	}
	prg, err := c.Compile(in.Script)
	if err != nil {
		return nil, err
	}

	e.schema = &schema[T]{input: in, compiler: c, categories: cats, subcategories: subs}
	return e.classify(records, in.Key, in.SameGroup, in.Result, in.Notes, prg)
}

// Reevaluate reruns classification with a new key, group predicate and
// script, reusing the categories compiled by the last full run.
func (e *Engine[T]) Reevaluate(records []T, in RerunInput[T]) (*Outcome[T], error) {
	e.resetResults()
	if e.schema == nil {
		return nil, ErrNotConfigured
	}
	if in.Key.IsZero() {
		return nil, &ErrInvalidInput{Field: "Key", Reason: "path is required"}
	}
	if in.SameGroup == nil {
		return nil, &ErrInvalidInput{Field: "SameGroup", Reason: "predicate is required"}
	}
	result, notes := in.Result, in.Notes
	if result.IsZero() {
		result = e.schema.input.Result
	}
	if notes.IsZero() {
		notes = e.schema.input.Notes
	}

	prg, err := e.schema.compiler.Compile(in.Script)
	if err != nil {
		return nil, err
	}
	return e.classify(records, in.Key, in.SameGroup, result, notes, prg)
}

func checkInput[T any](in Input[T]) error {
	paths := []struct {
		name string
		p    fieldpath.Path
	}{
		{"Key", in.Key},
		{"Value", in.Value},
		{"CategoryName", in.CategoryName},
		{"Result", in.Result},
		{"Notes", in.Notes},
	}
	for _, p := range paths {
		if p.p.IsZero() {
			return &ErrInvalidInput{Field: p.name, Reason: "path is required"}
		}
	}
	if in.SameGroup == nil {
		return &ErrInvalidInput{Field: "SameGroup", Reason: "predicate is required"}
	}
	if err := in.Categories.Validate(); err != nil {
		return err
	}
	if err := in.Subcategories.Validate(); err != nil {
		return err
	}
	all := append(append(rules.RuleSet{}, in.Categories...), in.Subcategories...)
	return all.Validate()
}

func compileRules(c *script.Compiler, rs rules.RuleSet) ([]compiledRule, error) {
	out := make([]compiledRule, 0, len(rs))
	for _, r := range rs {
		prg, err := c.Compile(r.Expr)
		if err != nil {
			return nil, fmt.Errorf("category %q: %w", r.Label, err)
		}
		out = append(out, compiledRule{rule: r, symbol: rules.Symbol(r.Label), prg: prg})
	}
	return out, nil
}

func (e *Engine[T]) resetResults() {
	e.buckets = newBuckets[T]()
	e.report = Report{}
	e.journal.reset()
}

func (e *Engine[T]) classify(records []T, key fieldpath.Path, same func(a, b T) bool, result, notes fieldpath.Path, prg *script.Program) (*Outcome[T], error) {
	start := time.Now()
	runID := uuid.New()
	log := e.logger.With(zap.String("run_id", runID.String()))

	e.binder.SetValue(binder.ResultPath, result)
	e.binder.SetValue(binder.NotesPath, notes)
	e.binder.SetValue(binder.SameGroup, same)
	all := make(binder.Records, len(records))
	for i, r := range records {
		all[i] = r
	}
	e.binder.SetValue(binder.All, all)

	reps, err := distinct(records, e.resolver, key)
	if err != nil {
		return nil, err
	}
	gs := groups(reps, records, same, e.mode)
	log.Info("classification started",
		zap.Int("records", len(records)),
		zap.Int("distinct", len(reps)),
		zap.Int("groups", len(gs)),
		zap.Stringer("group_mode", e.mode),
	)

	for _, g := range gs {
		if err := e.classifyGroup(g, prg); err != nil {
			log.Warn("classification failed", zap.Int("group", g.Index), zap.Error(err))
			return nil, fmt.Errorf("group %d: %w", g.Index, err)
		}
	}

	for i, rec := range records {
		v, err := e.resolver.Get(rec, result)
		if err != nil {
			return nil, fmt.Errorf("record %d: result %s: %w", i, result.String(), err)
		}
		if label := values.String(v); label != "" {
			e.buckets.add(label, rec)
		}
	}
	e.report = buildReport(e.buckets, len(reps))

	out := &Outcome[T]{
		RunID:    runID,
		Elapsed:  time.Since(start),
		Distinct: len(reps),
		Groups:   len(gs),
		Buckets:  e.buckets,
		Report:   e.report,
		Effects:  e.journal.list(),
	}
	log.Info("classification finished",
		zap.Duration("elapsed", out.Elapsed),
		zap.Int("buckets", e.buckets.Len()),
		zap.Int("effects", len(out.Effects)),
	)
	return out, nil
}

func (e *Engine[T]) classifyGroup(g Group[T], prg *script.Program) error {
	s := e.binder.NewScope()
	s.Bind(binder.Item, binder.Record{Value: g.Representative})
	members := make(binder.Records, len(g.Members))
	for i, m := range g.Members {
		members[i] = m
	}
	s.Bind(binder.Group, members)

	if e.hooks.BeforeGroup != nil {
		e.hooks.BeforeGroup(g)
	}

	matches := &rules.Matches{}
	for _, c := range e.schema.categories {
		subset, err := e.selectMembers(s, c, g.Members)
		if err != nil {
			return err
		}
		s.Bind(c.symbol, subset)
		matches.Add(c.symbol, subset)
	}
	for _, c := range e.schema.subcategories {
		subset, err := e.selectMembers(s, c, g.Members)
		if err != nil {
			return err
		}
		s.Bind(c.symbol, subset)
	}
	s.Bind(binder.Matches, matches)

	e.logger.Debug("classifying group",
		zap.Int("group", g.Index),
		zap.Int("members", len(g.Members)),
	)
	if _, err := prg.Eval(s); err != nil {
		return err
	}

	if e.hooks.AfterGroup != nil {
		e.hooks.AfterGroup(g)
	}
	return nil
}

// selectMembers returns the members satisfying a category rule. Each member
// is evaluated in its own scope with `value` and `record` bound.
func (e *Engine[T]) selectMembers(s *binder.Scope, c compiledRule, members []T) (binder.Records, error) {
	valuePath := e.schema.input.Value
	subset := binder.Records{}
	for _, m := range members {
		raw, err := e.resolver.Get(m, valuePath)
		if err != nil {
			return nil, fmt.Errorf("category %q: %w", c.rule.Label, err)
		}
		v, err := values.ToFloat(raw)
		if err != nil {
			return nil, fmt.Errorf("category %q: value %s: %w", c.rule.Label, valuePath.String(), err)
		}
		ms := s.NewScope()
		ms.Bind(binder.Value, v)
		ms.Bind(binder.Candidate, binder.Record{Value: m})
		ok, err := c.prg.EvalBool(ms)
		if err != nil {
			return nil, fmt.Errorf("category %q: %w", c.rule.Label, err)
		}
		if ok {
			subset = append(subset, m)
		}
	}
	return subset, nil
}
