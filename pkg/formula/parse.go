package formula

import "strconv"

// maxDepth bounds nesting so evaluation stays O(size) on the goroutine stack.
const maxDepth = 200

type parser struct {
	tokens []Token
	pos    int
	depth  int
}

// ParseTokens builds an AST from a token stream produced by Tokenize.
func ParseTokens(tokens []Token) (Node, error) {
	if len(tokens) == 0 || tokens[len(tokens)-1].Kind != TokenEOF {
		end := 0
		if len(tokens) > 0 {
			end = tokens[len(tokens)-1].End()
		}
		tokens = append(tokens[:len(tokens):len(tokens)], Token{Kind: TokenEOF, Offset: end})
	}

	p := &parser{tokens: tokens}
	root, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	if tok := p.peek(); tok.Kind != TokenEOF {
		if tok.Kind == TokenRParen {
			return nil, p.errorAt(tok, ErrUnbalancedParens, "")
		}
		return nil, p.errorAt(tok, ErrUnexpectedToken, "operator or end of expression")
	}
	return root, nil
}

func (p *parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos]
}

func (p *parser) advance() Token {
	t := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return t
}

func (p *parser) peekOperator(ops string) (byte, bool) {
	tok := p.peek()
	if tok.Kind != TokenOperator {
		return 0, false
	}
	for i := 0; i < len(ops); i++ {
		if tok.Literal[0] == ops[i] {
			return ops[i], true
		}
	}
	return 0, false
}

func (p *parser) errorAt(tok Token, kind error, expected string) *ParseError {
	return &ParseError{Offset: tok.Offset, Expected: expected, Found: tok.String(), Err: kind}
}

// parseExpression: term ( ("+" | "-") term )*
func (p *parser) parseExpression() (Node, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxDepth {
		return nil, p.errorAt(p.peek(), ErrNestingTooDeep, "")
	}

	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.peekOperator("+-")
		if !ok {
			return left, nil
		}
		tok := p.advance()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: op, Left: left, Right: right, Offset: tok.Offset}
	}
}

// parseTerm: unary ( ("*" | "/" | "%") unary )*
func (p *parser) parseTerm() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.peekOperator("*/%")
		if !ok {
			return left, nil
		}
		tok := p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: op, Left: left, Right: right, Offset: tok.Offset}
	}
}

// parseUnary: ("-" | "+") unary | power
func (p *parser) parseUnary() (Node, error) {
	if op, ok := p.peekOperator("+-"); ok {
		p.depth++
		defer func() { p.depth-- }()
		if p.depth > maxDepth {
			return nil, p.errorAt(p.peek(), ErrNestingTooDeep, "")
		}

		tok := p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryOp{Op: op, Operand: operand, Offset: tok.Offset}, nil
	}
	return p.parsePower()
}

// parsePower: primary ( "^" unary )?
// The right operand recurses through unary, which makes '^' right-associative
// and lets "2^-1" parse.
func (p *parser) parsePower() (Node, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if _, ok := p.peekOperator("^"); !ok {
		return base, nil
	}
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxDepth {
		return nil, p.errorAt(p.peek(), ErrNestingTooDeep, "")
	}

	tok := p.advance()
	exp, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &BinaryOp{Op: '^', Left: base, Right: exp, Offset: tok.Offset}, nil
}

// parsePrimary: number | identifier | call | "(" expression ")"
func (p *parser) parsePrimary() (Node, error) {
	tok := p.peek()

	switch tok.Kind {
	case TokenNumber:
		p.advance()
		return &Literal{Value: tok.Value, Offset: tok.Offset}, nil

	case TokenIdentifier:
		if p.pos+1 < len(p.tokens) && p.tokens[p.pos+1].Kind == TokenLParen {
			return p.parseCall()
		}
		p.advance()
		return &Variable{Name: tok.Literal, Offset: tok.Offset}, nil

	case TokenLParen:
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if next := p.peek(); next.Kind != TokenRParen {
			if next.Kind == TokenEOF {
				return nil, p.errorAt(next, ErrUnbalancedParens, "')'")
			}
			return nil, p.errorAt(next, ErrUnexpectedToken, "operator or ')'")
		}
		p.advance()
		return expr, nil

	default:
		return nil, p.errorAt(tok, ErrUnexpectedToken, "number, identifier or '('")
	}
}

// parseCall: identifier "(" [ expression ( "," expression )* ] ")"
func (p *parser) parseCall() (Node, error) {
	name := p.advance()
	spec, ok := Lookup(name.Literal)
	if !ok {
		return nil, &ParseError{Offset: name.Offset, Found: strconv.Quote(name.Literal), Err: ErrUnknownFunction}
	}
	p.advance() // '('

	var args []Node
	if p.peek().Kind != TokenRParen {
		for {
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.peek().Kind != TokenComma {
				break
			}
			p.advance()
		}
	}

	if next := p.peek(); next.Kind != TokenRParen {
		if next.Kind == TokenEOF {
			return nil, p.errorAt(next, ErrUnbalancedParens, "')'")
		}
		return nil, p.errorAt(next, ErrUnexpectedToken, "',' or ')'")
	}
	p.advance()

	if !spec.Accepts(len(args)) {
		return nil, &ParseError{
			Offset:   name.Offset,
			Expected: spec.Signature(),
			Found:    strconv.Quote(name.Literal) + " with " + strconv.Itoa(len(args)) + " argument(s)",
			Err:      ErrArityMismatch,
		}
	}
	return &Call{Function: spec.Name, Args: args, Offset: name.Offset}, nil
}
