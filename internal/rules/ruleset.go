package rules

import (
	"sort"
	"strings"

	"github.com/abhisek/gradeval/internal/binder"
)

// Rule maps a category label to the predicate text selecting its members.
type Rule struct {
	Label string `yaml:"label" json:"label"`
	Expr  string `yaml:"expr" json:"expr"`
}

// RuleSet is an ordered classification rule-set. Order decides annotation
// order and, when several categories commit the same record, which write
// lands last.
type RuleSet []Rule

// FromMap builds a RuleSet from an unordered map, sorted by label.
func FromMap(m map[string]string) RuleSet {
	labels := make([]string, 0, len(m))
	for l := range m {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	rs := make(RuleSet, 0, len(labels))
	for _, l := range labels {
		rs = append(rs, Rule{Label: l, Expr: m[l]})
	}
	return rs
}

// Map returns the rule-set as label -> expression.
func (rs RuleSet) Map() map[string]string {
	m := make(map[string]string, len(rs))
	for _, r := range rs {
		m[r.Label] = r.Expr
	}
	return m
}

// Labels returns the labels in order.
func (rs RuleSet) Labels() []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Label
	}
	return out
}

// Validate checks that labels are present and unique, that their symbols do
// not collide and that every rule has an expression.
func (rs RuleSet) Validate() error {
	labels := make(map[string]bool, len(rs))
	symbols := make(map[string]string, len(rs))
	for _, r := range rs {
		if strings.TrimSpace(r.Label) == "" {
			return &ErrInvalidRuleSet{Reason: "empty label"}
		}
		if labels[r.Label] {
			return &ErrInvalidRuleSet{Label: r.Label, Reason: "duplicate label"}
		}
		labels[r.Label] = true
		if strings.TrimSpace(r.Expr) == "" {
			return &ErrInvalidRuleSet{Label: r.Label, Reason: "empty expression"}
		}
		sym := Symbol(r.Label)
		if other, ok := symbols[sym]; ok {
			return &ErrInvalidRuleSet{Label: r.Label, Reason: "symbol " + sym + " collides with category " + other}
		}
		if binder.Internal(sym) || reserved[sym] {
			return &ErrInvalidRuleSet{Label: r.Label, Reason: "symbol " + sym + " is reserved"}
		}
		symbols[sym] = r.Label
	}
	return nil
}

var reserved = map[string]bool{
	binder.Item: true, binder.Group: true, binder.All: true,
	binder.Value: true, binder.Candidate: true,
	"as": true,
}

// Symbol is the rule-text name under which the members matched by a
// category are bound: the label made into an identifier, plus "s".
func Symbol(label string) string {
	var b strings.Builder
	for i, r := range label {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	b.WriteByte('s')
	return b.String()
}

// Match is the subset of a group selected by one category.
type Match struct {
	Symbol  string
	Records binder.Records
}

// Matches is the per-group map from category symbol to matched records,
// in rule order.
type Matches struct {
	items []Match
}

// Add appends or replaces the subset stored under sym.
func (m *Matches) Add(sym string, recs binder.Records) {
	for i := range m.items {
		if m.items[i].Symbol == sym {
			m.items[i].Records = recs
			return
		}
	}
	m.items = append(m.items, Match{Symbol: sym, Records: recs})
}

// Get returns the subset stored under sym.
func (m *Matches) Get(sym string) (binder.Records, bool) {
	for _, it := range m.items {
		if it.Symbol == sym {
			return it.Records, true
		}
	}
	return nil, false
}

// All returns the stored subsets in insertion order.
func (m *Matches) All() []Match {
	if m == nil {
		return nil
	}
	return append([]Match(nil), m.items...)
}

// Len is the number of stored subsets.
func (m *Matches) Len() int {
	if m == nil {
		return 0
	}
	return len(m.items)
}
