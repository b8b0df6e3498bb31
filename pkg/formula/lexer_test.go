package formula

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize_Kinds(t *testing.T) {
	tokens, err := Tokenize("area2 + 3.5*(x, y)")
	require.NoError(t, err)

	want := []struct {
		kind   TokenKind
		lit    string
		offset int
	}{
		{TokenIdentifier, "area2", 0},
		{TokenOperator, "+", 6},
		{TokenNumber, "3.5", 8},
		{TokenOperator, "*", 11},
		{TokenLParen, "(", 12},
		{TokenIdentifier, "x", 13},
		{TokenComma, ",", 14},
		{TokenIdentifier, "y", 16},
		{TokenRParen, ")", 17},
		{TokenEOF, "", 18},
	}
	require.Len(t, tokens, len(want))
	for i, w := range want {
		assert.Equal(t, w.kind, tokens[i].Kind, "token %d kind", i)
		assert.Equal(t, w.lit, tokens[i].Literal, "token %d literal", i)
		assert.Equal(t, w.offset, tokens[i].Offset, "token %d offset", i)
	}
	assert.Equal(t, 3.5, tokens[2].Value)
}

func TestTokenize_Numbers(t *testing.T) {
	testCases := []struct {
		source string
		value  float64
	}{
		{"42", 42},
		{"0.25", 0.25},
		{".5", 0.5},
		{"5.", 5},
		{"1e3", 1000},
		{"2.5E-2", 0.025},
		{"7e+1", 70},
	}

	for _, tc := range testCases {
		t.Run(tc.source, func(t *testing.T) {
			tokens, err := Tokenize(tc.source)
			require.NoError(t, err)
			require.Len(t, tokens, 2)
			assert.Equal(t, TokenNumber, tokens[0].Kind)
			assert.Equal(t, tc.value, tokens[0].Value)
		})
	}
}

func TestTokenize_ExponentWithoutDigitsIsIdentifier(t *testing.T) {
	tokens, err := Tokenize("2e")
	require.NoError(t, err)
	require.Len(t, tokens, 3)
	assert.Equal(t, TokenNumber, tokens[0].Kind)
	assert.Equal(t, TokenIdentifier, tokens[1].Kind)
	assert.Equal(t, "e", tokens[1].Literal)
}

func TestTokenize_EOFAtEnd(t *testing.T) {
	tokens, err := Tokenize("  ")
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, TokenEOF, tokens[0].Kind)
	assert.Equal(t, 2, tokens[0].Offset)
}

func TestTokenize_UnknownCharacter(t *testing.T) {
	testCases := []struct {
		source string
		offset int
		char   rune
	}{
		{"2 # 3", 2, '#'},
		{"Área * 2", 0, 'Á'},
		{"a > b", 2, '>'},
		{"price $", 6, '$'},
	}

	for _, tc := range testCases {
		t.Run(tc.source, func(t *testing.T) {
			_, err := Tokenize(tc.source)
			require.Error(t, err)

			var lexErr *LexError
			require.True(t, errors.As(err, &lexErr))
			assert.Equal(t, tc.offset, lexErr.Offset)
			assert.Equal(t, tc.char, lexErr.Char)
			assert.Equal(t, "lex_error", Kind(err))
		})
	}
}

func TestTokenize_NumberOutOfRange(t *testing.T) {
	testCases := []struct {
		source  string
		offset  int
		literal string
	}{
		{"1e999", 0, "1e999"},
		{"2 * 1.5E+400 + x", 4, "1.5E+400"},
	}

	for _, tc := range testCases {
		t.Run(tc.source, func(t *testing.T) {
			_, err := Tokenize(tc.source)
			require.Error(t, err)

			var lexErr *LexError
			require.True(t, errors.As(err, &lexErr))
			assert.Equal(t, tc.offset, lexErr.Offset)
			assert.Equal(t, tc.literal, lexErr.Literal)
			assert.Contains(t, err.Error(), "number "+tc.literal+" out of range")
			assert.Equal(t, "lex_error", Kind(err))
		})
	}

	toks, err := Tokenize("1e-999")
	require.NoError(t, err)
	assert.Equal(t, 0.0, toks[0].Value)
}

func TestIsIdentifier(t *testing.T) {
	assert.True(t, IsIdentifier("area"))
	assert.True(t, IsIdentifier("_x1"))
	assert.False(t, IsIdentifier(""))
	assert.False(t, IsIdentifier("2x"))
	assert.False(t, IsIdentifier("Quantidade Desejada"))
	assert.False(t, IsIdentifier("área"))
}
