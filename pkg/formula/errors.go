package formula

import (
	"errors"
	"fmt"
	"strings"
)

// Parse-time error kinds.
var (
	ErrUnexpectedToken  = errors.New("unexpected token")
	ErrUnbalancedParens = errors.New("unbalanced parentheses")
	ErrUnknownFunction  = errors.New("unknown function")
	ErrArityMismatch    = errors.New("wrong number of arguments")
	ErrNestingTooDeep   = errors.New("expression nested too deeply")
)

// Evaluation-time error kinds.
var (
	ErrUndefinedVariable = errors.New("undefined variable")
	ErrDivisionByZero    = errors.New("division by zero")
	ErrDomain            = errors.New("domain error")
)

// LexError reports a character the tokenizer does not recognize, or a
// numeric literal (Literal set) that does not fit a float64.
type LexError struct {
	Offset  int
	Char    rune
	Literal string
}

func (e *LexError) Error() string {
	if e.Literal != "" {
		return fmt.Sprintf("number %s out of range at offset %d", e.Literal, e.Offset)
	}
	return fmt.Sprintf("unexpected character %q at offset %d", e.Char, e.Offset)
}

// ParseError reports a syntax violation at a source offset. Err is one of
// the parse-time sentinels.
type ParseError struct {
	Offset   int
	Expected string
	Found    string
	Err      error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString(e.Err.Error())
	if e.Found != "" {
		fmt.Fprintf(&b, " %s", e.Found)
	}
	fmt.Fprintf(&b, " at offset %d", e.Offset)
	if e.Expected != "" {
		fmt.Fprintf(&b, ", expected %s", e.Expected)
	}
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

// EvalError reports why an expression could not produce a number.
type EvalError struct {
	Err      error
	Name     string    // undefined variable name
	Function string    // function or operator that failed
	Args     []float64 // operands of the failing operation
}

func (e *EvalError) Error() string {
	switch {
	case errors.Is(e.Err, ErrUndefinedVariable):
		return fmt.Sprintf("%s: %s", e.Err, e.Name)
	case e.Function != "":
		return fmt.Sprintf("%s in %s%s", e.Err, e.Function, formatArgs(e.Args))
	default:
		return e.Err.Error()
	}
}

func (e *EvalError) Unwrap() error { return e.Err }

func formatArgs(args []float64) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = FormatNumber(a)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Kinder is implemented by errors outside this package that want a stable
// kind string from Kind.
type Kinder interface {
	Kind() string
}

// Kind maps an error produced while parsing or evaluating formulas to a
// stable machine-readable string. It returns "" for nil and "error" for
// anything it does not recognize.
func Kind(err error) string {
	var (
		lexErr *LexError
		kinder Kinder
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &lexErr):
		return "lex_error"
	case errors.Is(err, ErrUnknownFunction):
		return "unknown_function"
	case errors.Is(err, ErrArityMismatch):
		return "arity_mismatch"
	case errors.Is(err, ErrUnexpectedToken), errors.Is(err, ErrUnbalancedParens), errors.Is(err, ErrNestingTooDeep):
		return "parse_error"
	case errors.Is(err, ErrUndefinedVariable):
		return "undefined_variable"
	case errors.Is(err, ErrDivisionByZero):
		return "division_by_zero"
	case errors.Is(err, ErrDomain):
		return "domain_error"
	case errors.As(err, &kinder):
		return kinder.Kind()
	default:
		return "error"
	}
}
