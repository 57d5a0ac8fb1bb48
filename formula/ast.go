// Package formula parses foreign spreadsheet formula syntax (as found in
// imported xlsx workbooks) into a small expression AST and renders that AST
// as source text for a target execution language.
package formula

// NodeKind enumerates the closed set of AST node kinds
type NodeKind uint8

const (
	KindBoolean NodeKind = iota
	KindNumber
	KindString
	KindIdentifier
	KindRange
	KindBinary
	KindCall
)

// Node is a tagged union over the formula node kinds. which fields are
// meaningful depends on Kind:
//
//	KindBoolean     Bool
//	KindNumber      Text (raw numeric text)
//	KindString      Text (contents, unquoted)
//	KindIdentifier  Text (cell reference or name)
//	KindRange       Text (reference text like "A1:B2")
//	KindBinary      Op, Left, Right (Op in spreadsheet spelling: = <> & ^ ...)
//	KindCall        Name, Args (Name in spreadsheet spelling)
//
// traversal is an exhaustive switch over Kind, never runtime type inspection.
type Node struct {
	Kind NodeKind

	Bool bool
	Text string

	Op    string
	Left  *Node
	Right *Node

	Name string
	Args []*Node
}
