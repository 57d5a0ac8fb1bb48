package sheet

// Spread is the external execution engine a Sheet evaluates against (an R
// or Python interpreter bridge, for example). the core only ever calls this
// interface; it never implements a language runtime itself. a single Spread
// instance is injected at construction and held for the Sheet's lifetime,
// and it is not assumed reentrant, so no two calls are ever made
// concurrently.
type Spread interface {
	// Set evaluates expression and binds the result under id (and name, if
	// non-empty). it returns the result as a "type value" string, or an
	// error when evaluation failed.
	Set(id, expression, name string) (string, error)

	// Get reads back a previously set variable by name
	Get(name string) (string, error)

	// Collect renders a host-language collection literal from a list of
	// cell ids, e.g. [A1,A2] or c(A1,A2). the literal syntax is engine
	// specific, which is why range expansion goes through this call.
	Collect(ids []string) (string, error)

	// Depends returns every bare identifier referenced in expression. an
	// over-approximation that includes non-cell identifiers is acceptable;
	// the Sheet filters the result against its actual cells.
	Depends(expression string) ([]string, error)

	// Clear removes the bindings for id (and name, if non-empty)
	Clear(id, name string) error

	// List enumerates engine-side bindings, for diagnostics
	List() ([]string, error)
}
