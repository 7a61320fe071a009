package rules

import "fmt"

// ErrArgumentCount indicates an operator was called with the wrong arity.
type ErrArgumentCount struct {
	Op   string
	Want string
	Got  int
}

func (e *ErrArgumentCount) Error() string {
	return fmt.Sprintf("%s: expected %s argument(s), got %d", e.Op, e.Want, e.Got)
}

// ErrTypeMismatch indicates heterogeneous comparison values, or a value whose
// kind does not fit where it is used.
type ErrTypeMismatch struct {
	Op     string
	Detail string
}

func (e *ErrTypeMismatch) Error() string {
	return fmt.Sprintf("%s: type mismatch: %s", e.Op, e.Detail)
}

// ErrNilCandidates indicates has_none received no comparison values.
type ErrNilCandidates struct {
	Op string
}

func (e *ErrNilCandidates) Error() string {
	return fmt.Sprintf("%s: the comparison list cannot be null or empty", e.Op)
}

// ErrInvalidRuleSet indicates a malformed classification rule-set.
type ErrInvalidRuleSet struct {
	Label  string
	Reason string
}

func (e *ErrInvalidRuleSet) Error() string {
	if e.Label == "" {
		return fmt.Sprintf("invalid rule set: %s", e.Reason)
	}
	return fmt.Sprintf("invalid rule set: category %q: %s", e.Label, e.Reason)
}
