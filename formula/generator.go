package formula

import "strings"

// rFunctions maps spreadsheet function names to their R equivalents. names
// absent here fall back to lower-casing. T is remapped because R already
// binds T to TRUE.
var rFunctions = map[string]string{
	"AVERAGE":     "mean",
	"STDEV":       "sd",
	"STDEVP":      "sd",
	"MEDIAN":      "median",
	"COUNT":       "length",
	"CONCATENATE": "paste0",
	"POWER":       "^",
	"LN":          "log",
	"T":           "TEXT",
}

// pythonFunctions maps spreadsheet function names to their Python
// equivalents. names absent here fall back to lower-casing.
var pythonFunctions = map[string]string{
	"AVERAGE":     "mean",
	"STDEV":       "stdev",
	"MEDIAN":      "median",
	"COUNT":       "len",
	"CONCATENATE": "concat",
	"LN":          "log",
}

// Generator renders a formula AST as source text for a target language
type Generator struct {
	language string
}

// NewGenerator creates a generator for the given target language ("r" or
// "python")
func NewGenerator(language string) *Generator {
	return &Generator{language: strings.ToLower(language)}
}

// Translate parses foreign spreadsheet formula text and renders it in the
// given target language
func Translate(formulaText, language string) (string, error) {
	node, err := Parse(formulaText)
	if err != nil {
		return "", err
	}
	return NewGenerator(language).Generate(node), nil
}

// Generate renders a node as target-language source text
func (g *Generator) Generate(n *Node) string {
	switch n.Kind {
	case KindBoolean:
		return g.boolean(n.Bool)
	case KindNumber:
		return n.Text
	case KindString:
		return quote(n.Text)
	case KindIdentifier, KindRange:
		// references pass through verbatim; the sheet's own translator
		// expands ranges for the engine afterwards
		return n.Text
	case KindBinary:
		return g.binary(n)
	case KindCall:
		return g.call(n)
	}
	return ""
}

func (g *Generator) boolean(v bool) string {
	switch g.language {
	case "python":
		if v {
			return "True"
		}
		return "False"
	default:
		if v {
			return "TRUE"
		}
		return "FALSE"
	}
}

// binary renders an infix expression, mapping the spreadsheet operator
// spelling to the target language and parenthesizing operands whose own
// operator binds looser
func (g *Generator) binary(n *Node) string {
	// string concatenation has no shared infix spelling across targets
	if n.Op == "&" {
		left, right := g.Generate(n.Left), g.Generate(n.Right)
		if g.language == "python" {
			return left + " + " + right
		}
		return "paste0(" + left + ", " + right + ")"
	}

	op := n.Op
	switch op {
	case "=":
		op = "=="
	case "<>":
		op = "!="
	case "^":
		if g.language == "python" {
			op = "**"
		}
	}

	precedence := binaryPrecedence(n.Op)
	left := g.operand(n.Left, precedence, false)
	right := g.operand(n.Right, precedence, true)
	return left + " " + op + " " + right
}

// operand renders a binary operand, adding parentheses when its operator
// binds looser than the parent (or equally, on the right side)
func (g *Generator) operand(n *Node, parentPrecedence int, rightSide bool) string {
	text := g.Generate(n)
	if n.Kind != KindBinary {
		return text
	}
	if n.Op == "&" && g.language != "python" {
		// R concatenation renders as a call, which delimits itself
		return text
	}
	precedence := binaryPrecedence(n.Op)
	if precedence < parentPrecedence || (precedence == parentPrecedence && rightSide) {
		return "(" + text + ")"
	}
	return text
}

// call renders a function call, consulting the per-language translation
// table and lower-casing unknown names as the default heuristic
func (g *Generator) call(n *Node) string {
	table := rFunctions
	if g.language == "python" {
		table = pythonFunctions
	}
	name, ok := table[strings.ToUpper(n.Name)]
	if !ok {
		name = strings.ToLower(n.Name)
	}

	args := make([]string, len(n.Args))
	for i, arg := range n.Args {
		args[i] = g.Generate(arg)
	}

	// some spreadsheet functions map to operators rather than calls
	if name == "^" && len(args) == 2 {
		return args[0] + " ^ " + args[1]
	}

	return name + "(" + strings.Join(args, ", ") + ")"
}

// quote renders a string literal with double quotes, escaping embedded
// quotes and backslashes
func quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"', '\\':
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	b.WriteByte('"')
	return b.String()
}
