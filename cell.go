package sheet

import (
	"regexp"
	"strings"
)

// CellKind classifies a cell's raw source text
type CellKind uint8

const (
	// KindEmpty is a cell whose source is empty or all whitespace
	KindEmpty CellKind = iota

	// KindNamedExpression is a "name = expression" cell; the result is
	// bound under both the cell id and the name
	KindNamedExpression

	// KindDynamicExpression is a leading "=" cell
	KindDynamicExpression

	// KindLiteralNumber is a bare numeric literal
	KindLiteralNumber

	// KindLiteralString is an explicitly quoted string, quotes retained
	KindLiteralString

	// KindImplicitString is any other text, wrapped in double quotes with
	// its original spacing preserved
	KindImplicitString
)

// kindNames maps cell kinds to their wire representations
var kindNames = map[CellKind]string{
	KindEmpty:             "empty",
	KindNamedExpression:   "named-expression",
	KindDynamicExpression: "dynamic-expression",
	KindLiteralNumber:     "literal-number",
	KindLiteralString:     "literal-string",
	KindImplicitString:    "implicit-string",
}

func (k CellKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Cell is one addressable unit of a Sheet. ID is the spreadsheet-style
// address and is immutable once assigned; Row and Col are the zero-based
// coordinate it encodes. Source is the raw user-supplied text; Kind, Name
// and Expression are derived from it by parsing, Translated by translation,
// and Depends by dependency analysis. Value, Type and Error are outputs of
// the last evaluation, not inputs.
type Cell struct {
	ID  string
	Row int
	Col int

	Source     string
	Kind       CellKind
	Name       string
	Expression string
	Translated string
	Depends    []string

	Value string
	Type  string
	Error string
}

var (
	// namedPattern matches "name = expression" where name is a bare
	// identifier and the "=" is single (so "x == y" is not an assignment).
	// the expression runs to the end of the source, newlines included.
	namedPattern = regexp.MustCompile(`(?s)^ *([A-Za-z_][A-Za-z0-9_]*) *= *([^=].*|$)$`)

	// numberPattern matches a numeric literal with optional sign and fraction
	numberPattern = regexp.MustCompile(`^[+-]?([0-9]+(\.[0-9]*)?|\.[0-9]+)$`)

	// quoted patterns allow an escaped matching-quote sequence inside
	doubleQuotedPattern = regexp.MustCompile(`^"(\\"|[^"])*"$`)
	singleQuotedPattern = regexp.MustCompile(`^'(\\'|[^'])*'$`)
)

// parseSource classifies raw cell source text into a kind, an optional name
// and a normalized expression. any input is classifiable, so parsing never
// fails: text that matches no other rule is an implicit string.
func parseSource(source string) (kind CellKind, name, expression string) {
	// tabs become single spaces before any other processing
	source = strings.ReplaceAll(source, "\t", " ")

	trimmed := strings.TrimSpace(source)
	if trimmed == "" {
		return KindEmpty, "", ""
	}

	if m := namedPattern.FindStringSubmatch(source); m != nil {
		return KindNamedExpression, m[1], strings.TrimSpace(m[2])
	}

	if strings.HasPrefix(trimmed, "=") {
		return KindDynamicExpression, "", strings.TrimSpace(trimmed[1:])
	}

	if numberPattern.MatchString(trimmed) {
		return KindLiteralNumber, "", trimmed
	}

	if doubleQuotedPattern.MatchString(trimmed) || singleQuotedPattern.MatchString(trimmed) {
		return KindLiteralString, "", trimmed
	}

	// implicit string: the original, untrimmed source is wrapped in double
	// quotes so internal and surrounding whitespace stays significant
	return KindImplicitString, "", quoteImplicit(source)
}

// quoteImplicit wraps implicit-string source in double quotes, escaping
// embedded quotes and backslashes so the result is a valid string literal
func quoteImplicit(source string) string {
	var b strings.Builder
	b.Grow(len(source) + 2)
	b.WriteByte('"')
	for i := 0; i < len(source); i++ {
		switch source[i] {
		case '"', '\\':
			b.WriteByte('\\')
		}
		b.WriteByte(source[i])
	}
	b.WriteByte('"')
	return b.String()
}
