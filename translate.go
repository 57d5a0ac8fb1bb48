package sheet

import (
	"regexp"
	"strings"
)

var (
	// rangePattern matches a cell range reference like "A1:B2" where both
	// sides independently satisfy the address grammar
	rangePattern = regexp.MustCompile(`([A-Z]+[1-9][0-9]*):([A-Z]+[1-9][0-9]*)`)

	// unionPattern recognizes cell-union syntax: two addresses or ranges
	// joined by "&". recognized so it can be rejected explicitly.
	unionPattern = regexp.MustCompile(`[A-Z]+[1-9][0-9]*(:[A-Z]+[1-9][0-9]*)? *& *[A-Z]+[1-9][0-9]*(:[A-Z]+[1-9][0-9]*)?`)
)

// collector is the subset of Spread the translator needs
type collector interface {
	Collect(ids []string) (string, error)
}

// translate rewrites an expression into the execution engine's syntax by
// expanding every cell-range reference into the engine's own collection
// literal. bare cell addresses outside ranges are left untouched; the
// engine resolves those directly by name. union syntax is recognized but
// unsupported and fails with a NotImplementedError.
func translate(expression string, c collector) (string, error) {
	if m := unionPattern.FindString(expression); m != "" {
		return "", NewNotImplementedError("cell union syntax: " + m)
	}

	var firstErr error
	translated := rangePattern.ReplaceAllStringFunc(expression, func(match string) string {
		if firstErr != nil {
			return match
		}
		parts := strings.SplitN(match, ":", 2)
		ids, err := interpolateRange(parts[0], parts[1])
		if err != nil {
			firstErr = err
			return match
		}
		literal, err := c.Collect(ids)
		if err != nil {
			firstErr = err
			return match
		}
		return literal
	})
	if firstErr != nil {
		return "", firstErr
	}
	return translated, nil
}
