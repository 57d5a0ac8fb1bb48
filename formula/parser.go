package formula

import (
	"fmt"
	"strings"

	"github.com/xuri/efp"
)

// SyntaxError indicates formula text that could not be parsed
type SyntaxError struct {
	Formula string
	Reason  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error in formula %q: %s", e.Formula, e.Reason)
}

// parser consumes the efp token stream and builds the AST
type parser struct {
	formula string
	tokens  []efp.Token
	pos     int
}

// Parse tokenizes spreadsheet formula text (with or without a leading "=")
// and builds its AST
func Parse(formulaText string) (*Node, error) {
	text := strings.TrimSpace(formulaText)
	text = strings.TrimPrefix(text, "=")
	if strings.TrimSpace(text) == "" {
		return nil, &SyntaxError{Formula: formulaText, Reason: "empty formula"}
	}

	ps := efp.ExcelParser()
	raw := ps.Parse(text)
	if raw == nil {
		return nil, &SyntaxError{Formula: formulaText, Reason: "cannot tokenize"}
	}

	tokens := make([]efp.Token, 0, len(raw))
	for _, tok := range raw {
		if tok.TType == efp.TokenTypeWhitespace {
			continue
		}
		tokens = append(tokens, tok)
	}

	p := &parser{formula: formulaText, tokens: tokens}
	node, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.tokens) {
		return nil, p.errorf("unexpected %q", p.tokens[p.pos].TValue)
	}
	return node, nil
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Formula: p.formula, Reason: fmt.Sprintf(format, args...)}
}

func (p *parser) peek() (efp.Token, bool) {
	if p.pos >= len(p.tokens) {
		return efp.Token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *parser) next() (efp.Token, bool) {
	tok, ok := p.peek()
	if ok {
		p.pos++
	}
	return tok, ok
}

// binaryPrecedence orders infix operators in their spreadsheet spelling.
// zero means not an infix operator.
func binaryPrecedence(op string) int {
	switch op {
	case "^":
		return 5
	case "*", "/":
		return 4
	case "+", "-":
		return 3
	case "&":
		return 2
	case "=", "<>", "<", "<=", ">", ">=":
		return 1
	}
	return 0
}

// parseExpression is a precedence-climbing parser over the token stream
func (p *parser) parseExpression(minPrecedence int) (*Node, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for {
		tok, ok := p.peek()
		if !ok {
			break
		}

		// postfix percent binds tighter than any infix operator
		if tok.TType == efp.TokenTypeOperatorPostfix {
			p.pos++
			left = &Node{Kind: KindBinary, Op: "/", Left: left, Right: &Node{Kind: KindNumber, Text: "100"}}
			continue
		}

		if tok.TType != efp.TokenTypeOperatorInfix {
			break
		}
		precedence := binaryPrecedence(tok.TValue)
		if precedence == 0 {
			return nil, p.errorf("unsupported operator %q", tok.TValue)
		}
		if precedence < minPrecedence {
			break
		}
		p.pos++

		// exponentiation is right-associative, everything else left
		nextMin := precedence + 1
		if tok.TValue == "^" {
			nextMin = precedence
		}
		right, err := p.parseExpression(nextMin)
		if err != nil {
			return nil, err
		}
		left = &Node{Kind: KindBinary, Op: tok.TValue, Left: left, Right: right}
	}
	return left, nil
}

// parsePrimary parses one operand: a literal, reference, prefixed operand,
// function call or parenthesized subexpression
func (p *parser) parsePrimary() (*Node, error) {
	tok, ok := p.next()
	if !ok {
		return nil, p.errorf("unexpected end of formula")
	}

	switch tok.TType {
	case efp.TokenTypeOperatorPrefix:
		operand, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		if tok.TValue == "+" {
			return operand, nil
		}
		// negation folds into numeric literals; otherwise it is subtraction
		// from zero, since the node set has no unary kind
		if operand.Kind == KindNumber && !strings.HasPrefix(operand.Text, "-") {
			return &Node{Kind: KindNumber, Text: "-" + operand.Text}, nil
		}
		return &Node{Kind: KindBinary, Op: "-", Left: &Node{Kind: KindNumber, Text: "0"}, Right: operand}, nil

	case efp.TokenTypeOperand:
		switch tok.TSubType {
		case efp.TokenSubTypeNumber:
			return &Node{Kind: KindNumber, Text: tok.TValue}, nil
		case efp.TokenSubTypeText:
			return &Node{Kind: KindString, Text: tok.TValue}, nil
		case efp.TokenSubTypeLogical:
			return &Node{Kind: KindBoolean, Bool: strings.EqualFold(tok.TValue, "TRUE")}, nil
		case efp.TokenSubTypeRange:
			if strings.Contains(tok.TValue, ":") {
				return &Node{Kind: KindRange, Text: tok.TValue}, nil
			}
			return &Node{Kind: KindIdentifier, Text: tok.TValue}, nil
		default:
			return nil, p.errorf("unsupported operand %q", tok.TValue)
		}

	case efp.TokenTypeFunction:
		if tok.TSubType != efp.TokenSubTypeStart {
			return nil, p.errorf("unexpected function token %q", tok.TValue)
		}
		return p.parseCall(tok.TValue)

	case efp.TokenTypeSubexpression:
		if tok.TSubType != efp.TokenSubTypeStart {
			return nil, p.errorf("unbalanced parenthesis")
		}
		inner, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		closing, ok := p.next()
		if !ok || closing.TType != efp.TokenTypeSubexpression || closing.TSubType != efp.TokenSubTypeStop {
			return nil, p.errorf("unbalanced parenthesis")
		}
		return inner, nil
	}

	return nil, p.errorf("unexpected %q", tok.TValue)
}

// parseCall parses the argument list of a function whose opening token was
// already consumed
func (p *parser) parseCall(name string) (*Node, error) {
	call := &Node{Kind: KindCall, Name: name}

	// empty argument list
	if tok, ok := p.peek(); ok && tok.TType == efp.TokenTypeFunction && tok.TSubType == efp.TokenSubTypeStop {
		p.pos++
		return call, nil
	}

	for {
		arg, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)

		tok, ok := p.next()
		if !ok {
			return nil, p.errorf("unterminated call to %s", name)
		}
		switch {
		case tok.TType == efp.TokenTypeArgument:
			continue
		case tok.TType == efp.TokenTypeFunction && tok.TSubType == efp.TokenSubTypeStop:
			return call, nil
		default:
			return nil, p.errorf("unexpected %q in call to %s", tok.TValue, name)
		}
	}
}
