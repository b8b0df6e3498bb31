package formula

import (
	"fmt"
	"math"
	"strconv"
)

// Env maps variable names to values for a single evaluation. Registry
// constants are always visible and take precedence over entries here.
type Env map[string]float64

// Eval evaluates an AST node in the given environment. It is pure: the same
// node and environment always produce the same value or the same error.
func Eval(node Node, env Env) (float64, error) {
	switch n := node.(type) {
	case *Literal:
		return n.Value, nil

	case *Variable:
		if v, ok := Constant(n.Name); ok {
			return v, nil
		}
		v, ok := env[n.Name]
		if !ok {
			return 0, &EvalError{Err: ErrUndefinedVariable, Name: n.Name}
		}
		return v, nil

	case *UnaryOp:
		v, err := Eval(n.Operand, env)
		if err != nil {
			return 0, err
		}
		if n.Op == '-' {
			return -v, nil
		}
		return v, nil

	case *BinaryOp:
		left, err := Eval(n.Left, env)
		if err != nil {
			return 0, err
		}
		right, err := Eval(n.Right, env)
		if err != nil {
			return 0, err
		}
		return applyBinary(n.Op, left, right)

	case *Call:
		spec, ok := Lookup(n.Function)
		if !ok {
			// Unreachable for parsed trees; hand-built ones may still lie.
			return 0, &EvalError{Err: ErrUnknownFunction, Function: n.Function}
		}
		args := make([]float64, len(n.Args))
		for i, a := range n.Args {
			v, err := Eval(a, env)
			if err != nil {
				return 0, err
			}
			args[i] = v
		}
		if !spec.Accepts(len(args)) {
			return 0, &EvalError{Err: ErrArityMismatch, Function: n.Function, Args: args}
		}
		return checkDomain(n.Function, spec.Apply(args), args)

	case nil:
		return 0, fmt.Errorf("empty expression")

	default:
		return 0, fmt.Errorf("unsupported node %T", node)
	}
}

func applyBinary(op byte, left, right float64) (float64, error) {
	switch op {
	case '+':
		return left + right, nil
	case '-':
		return left - right, nil
	case '*':
		return left * right, nil
	case '/':
		if right == 0 {
			return 0, &EvalError{Err: ErrDivisionByZero, Function: "/", Args: []float64{left, right}}
		}
		return left / right, nil
	case '%':
		if right == 0 {
			return 0, &EvalError{Err: ErrDivisionByZero, Function: "%", Args: []float64{left, right}}
		}
		return math.Mod(left, right), nil
	case '^':
		return checkDomain("^", math.Pow(left, right), []float64{left, right})
	default:
		return 0, fmt.Errorf("unsupported operator %q", op)
	}
}

// checkDomain turns NaN results, and infinities produced from finite
// inputs, into ErrDomain.
func checkDomain(fn string, result float64, args []float64) (float64, error) {
	if math.IsNaN(result) {
		return 0, &EvalError{Err: ErrDomain, Function: fn, Args: args}
	}
	if math.IsInf(result, 0) {
		for _, a := range args {
			if math.IsInf(a, 0) || math.IsNaN(a) {
				return result, nil
			}
		}
		return 0, &EvalError{Err: ErrDomain, Function: fn, Args: args}
	}
	return result, nil
}

// FormatNumber renders v without a trailing exponent for everyday
// magnitudes: 1024 -> "1024", 0.5 -> "0.5".
func FormatNumber(v float64) string {
	if a := math.Abs(v); a != 0 && (a >= 1e15 || a < 1e-6) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
