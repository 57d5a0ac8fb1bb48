package sheet

import "testing"

func TestParseSource(t *testing.T) {
	cases := []struct {
		name       string
		source     string
		kind       CellKind
		cellName   string
		expression string
	}{
		{"empty", "", KindEmpty, "", ""},
		{"whitespace only", "   \t ", KindEmpty, "", ""},

		{"named expression", "answer = 6*7", KindNamedExpression, "answer", "6*7"},
		{"named expression tight", "x=1", KindNamedExpression, "x", "1"},
		{"named expression padded", "  total  =  sum(A1:A3) ", KindNamedExpression, "total", "sum(A1:A3)"},
		{"underscore name", "_x1 = 2", KindNamedExpression, "_x1", "2"},
		// the expression runs to the end of the source, newlines included
		{"multi-line named expression", "x = a\nb", KindNamedExpression, "x", "a\nb"},

		{"dynamic expression", "=42", KindDynamicExpression, "", "42"},
		{"dynamic expression padded", "  =  A1 + A2 ", KindDynamicExpression, "", "A1 + A2"},

		{"integer", "42", KindLiteralNumber, "", "42"},
		{"signed", "-3.14", KindLiteralNumber, "", "-3.14"},
		{"padded number", "  42  ", KindLiteralNumber, "", "42"},
		{"fraction only", ".5", KindLiteralNumber, "", ".5"},

		{"double quoted", `"hello"`, KindLiteralString, "", `"hello"`},
		{"single quoted", `'hello'`, KindLiteralString, "", `'hello'`},
		{"escaped quote", `"a \" b"`, KindLiteralString, "", `"a \" b"`},

		{"implicit string", "An implicit string", KindImplicitString, "", `"An implicit string"`},
		// implicit strings keep their original spacing, unlike other kinds
		{"implicit keeps spacing", "  spaced out  ", KindImplicitString, "", `"  spaced out  "`},
		{"implicit with quote", `it's "fine"`, KindImplicitString, "", `"it's \"fine\""`},
		// a doubled "=" is comparison, not assignment
		{"not an assignment", "a == b", KindImplicitString, "", `"a == b"`},
		{"tabs become spaces", "a\tb", KindImplicitString, "", `"a b"`},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			kind, name, expression := parseSource(c.source)
			if kind != c.kind {
				t.Errorf("kind = %v, want %v", kind, c.kind)
			}
			if name != c.cellName {
				t.Errorf("name = %q, want %q", name, c.cellName)
			}
			if expression != c.expression {
				t.Errorf("expression = %q, want %q", expression, c.expression)
			}
		})
	}
}

func TestCellKindString(t *testing.T) {
	cases := map[CellKind]string{
		KindEmpty:             "empty",
		KindNamedExpression:   "named-expression",
		KindDynamicExpression: "dynamic-expression",
		KindLiteralNumber:     "literal-number",
		KindLiteralString:     "literal-string",
		KindImplicitString:    "implicit-string",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Errorf("CellKind(%d).String() = %q, want %q", kind, got, want)
		}
	}
}
