package script

import "fmt"

// ErrCompile indicates rule text that does not parse or type-check.
type ErrCompile struct {
	Source string
	Err    error
}

func (e *ErrCompile) Error() string {
	return fmt.Sprintf("compile %q: %v", e.Source, e.Err)
}

func (e *ErrCompile) Unwrap() error {
	return e.Err
}

// ErrRuntime indicates a failure while evaluating compiled rule text. Err is
// the operator or resolver error when one caused the failure.
type ErrRuntime struct {
	Source string
	Err    error
}

func (e *ErrRuntime) Error() string {
	return fmt.Sprintf("evaluate %q: %v", e.Source, e.Err)
}

func (e *ErrRuntime) Unwrap() error {
	return e.Err
}
