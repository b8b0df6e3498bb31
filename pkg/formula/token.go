package formula

import "fmt"

// TokenKind represents the kind of a lexer token.
type TokenKind int

const (
	TokenNumber TokenKind = iota
	TokenIdentifier
	TokenOperator
	TokenLParen
	TokenRParen
	TokenComma
	TokenEOF
)

var tokenKindNames = [...]string{
	TokenNumber:     "number",
	TokenIdentifier: "identifier",
	TokenOperator:   "operator",
	TokenLParen:     "'('",
	TokenRParen:     "')'",
	TokenComma:      "','",
	TokenEOF:        "end of expression",
}

func (k TokenKind) String() string {
	if int(k) < len(tokenKindNames) {
		return tokenKindNames[k]
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// Token is a single lexical unit of a formula.
type Token struct {
	Kind    TokenKind
	Literal string
	Value   float64 // set for TokenNumber
	Offset  int     // byte offset in the source
}

// End returns the byte offset just past the token.
func (t Token) End() int {
	return t.Offset + len(t.Literal)
}

func (t Token) String() string {
	if t.Kind == TokenEOF {
		return t.Kind.String()
	}
	return fmt.Sprintf("%q", t.Literal)
}
