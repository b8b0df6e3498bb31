package formula

import (
	"strconv"
	"unicode/utf8"
)

// Tokenize splits a formula into tokens, always ending with a TokenEOF
// positioned at len(source). Whitespace is skipped.
func Tokenize(source string) ([]Token, error) {
	var tokens []Token
	i := 0
	for i < len(source) {
		ch := source[i]

		if isSpace(ch) {
			i++
			continue
		}

		switch ch {
		case '+', '-', '*', '/', '%', '^':
			tokens = append(tokens, Token{Kind: TokenOperator, Literal: source[i : i+1], Offset: i})
			i++
		case '(':
			tokens = append(tokens, Token{Kind: TokenLParen, Literal: "(", Offset: i})
			i++
		case ')':
			tokens = append(tokens, Token{Kind: TokenRParen, Literal: ")", Offset: i})
			i++
		case ',':
			tokens = append(tokens, Token{Kind: TokenComma, Literal: ",", Offset: i})
			i++
		default:
			switch {
			case isDigit(ch) || (ch == '.' && i+1 < len(source) && isDigit(source[i+1])):
				tok, err := lexNumber(source, i)
				if err != nil {
					return nil, err
				}
				tokens = append(tokens, tok)
				i = tok.End()
			case isIdentStart(ch):
				start := i
				for i < len(source) && isIdentContinue(source[i]) {
					i++
				}
				tokens = append(tokens, Token{Kind: TokenIdentifier, Literal: source[start:i], Offset: start})
			default:
				r, _ := utf8.DecodeRuneInString(source[i:])
				return nil, &LexError{Offset: i, Char: r}
			}
		}
	}
	tokens = append(tokens, Token{Kind: TokenEOF, Offset: len(source)})
	return tokens, nil
}

// lexNumber scans digits, an optional single '.', more digits and an
// optional exponent. A trailing 'e' not followed by digits is left for the
// identifier rule.
func lexNumber(source string, start int) (Token, error) {
	i := start
	for i < len(source) && isDigit(source[i]) {
		i++
	}
	if i < len(source) && source[i] == '.' {
		i++
		for i < len(source) && isDigit(source[i]) {
			i++
		}
	}
	if i < len(source) && (source[i] == 'e' || source[i] == 'E') {
		j := i + 1
		if j < len(source) && (source[j] == '+' || source[j] == '-') {
			j++
		}
		if j < len(source) && isDigit(source[j]) {
			for j < len(source) && isDigit(source[j]) {
				j++
			}
			i = j
		}
	}

	lit := source[start:i]
	v, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		// Only reachable on exponent overflow such as 1e999.
		return Token{}, &LexError{Offset: start, Char: rune(source[start]), Literal: lit}
	}
	return Token{Kind: TokenNumber, Literal: lit, Value: v, Offset: start}, nil
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isIdentContinue(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}

// IsIdentifier reports whether name is a valid formula identifier.
func IsIdentifier(name string) bool {
	if name == "" || !isIdentStart(name[0]) {
		return false
	}
	for i := 1; i < len(name); i++ {
		if !isIdentContinue(name[i]) {
			return false
		}
	}
	return true
}
