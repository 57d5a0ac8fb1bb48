package sheet

import "fmt"

// ParseError indicates a malformed cell address or malformed range syntax.
// it is always local to one expression and carries the offending text.
type ParseError struct {
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in %q: %s", e.Text, e.Reason)
}

// NewParseError creates a new parse error for the given source text
func NewParseError(text, reason string) *ParseError {
	return &ParseError{Text: text, Reason: reason}
}

// NotImplementedError indicates syntax that is recognized but deliberately
// unsupported (currently cell unions like "A1&A2"). the construct is rejected
// outright rather than silently mistranslated.
type NotImplementedError struct {
	Construct string
}

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("not implemented: %s", e.Construct)
}

// NewNotImplementedError creates a new not-implemented error
func NewNotImplementedError(construct string) *NotImplementedError {
	return &NotImplementedError{Construct: construct}
}

// CircularDependencyError indicates that an update would introduce a cycle
// into the dependency graph. the update is rejected atomically; ID names a
// cell that lies on the detected cycle.
type CircularDependencyError struct {
	ID    string
	Cycle []string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("circular dependency involving cell %s", e.ID)
}

// NewCircularDependencyError creates a new circular dependency error. the
// cycle slice lists the cells on the cycle in reference order.
func NewCircularDependencyError(id string, cycle []string) *CircularDependencyError {
	return &CircularDependencyError{ID: id, Cycle: cycle}
}

// EvaluationError indicates the external execution engine failed to evaluate
// a cell's expression. it is recorded on the cell, not thrown, so a sheet
// with one broken cell still reports correct values for independent cells.
type EvaluationError struct {
	ID      string
	Message string
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluation of cell %s failed: %s", e.ID, e.Message)
}

// NewEvaluationError creates a new evaluation error for the given cell
func NewEvaluationError(id, message string) *EvaluationError {
	return &EvaluationError{ID: id, Message: message}
}
