package expr

import "fmt"

// SyntaxError reports a malformed expression at compile time.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d: %s", e.Pos, e.Msg)
}

// UnknownFunctionError reports a call to a function outside the closed set of
// builtins and resolver-provided lookups.
type UnknownFunctionError struct {
	Name string
}

func (e *UnknownFunctionError) Error() string {
	return fmt.Sprintf("unknown function %q", e.Name)
}
