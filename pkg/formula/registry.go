package formula

import (
	"math"
	"sort"
	"strconv"
)

// Variadic marks a FunctionSpec with no upper arity bound.
const Variadic = -1

// FunctionSpec describes a built-in function.
type FunctionSpec struct {
	Name        string
	MinArity    int
	MaxArity    int // Variadic for unbounded
	Description string
	Apply       func(args []float64) float64
}

// Accepts reports whether n arguments satisfy the arity.
func (f FunctionSpec) Accepts(n int) bool {
	if n < f.MinArity {
		return false
	}
	return f.MaxArity == Variadic || n <= f.MaxArity
}

// Signature renders the arity for error messages, e.g. "pow(2)" or "max(1+)".
func (f FunctionSpec) Signature() string {
	switch {
	case f.MaxArity == Variadic:
		return f.Name + "(" + strconv.Itoa(f.MinArity) + "+)"
	case f.MinArity == f.MaxArity:
		return f.Name + "(" + strconv.Itoa(f.MinArity) + ")"
	default:
		return f.Name + "(" + strconv.Itoa(f.MinArity) + ".." + strconv.Itoa(f.MaxArity) + ")"
	}
}

func unary(name, desc string, fn func(float64) float64) FunctionSpec {
	return FunctionSpec{
		Name:        name,
		MinArity:    1,
		MaxArity:    1,
		Description: desc,
		Apply:       func(args []float64) float64 { return fn(args[0]) },
	}
}

// functions is the closed allow-list of callable names.
var functions = map[string]FunctionSpec{
	"pow": {
		Name: "pow", MinArity: 2, MaxArity: 2,
		Description: "base raised to exponent",
		Apply:       func(args []float64) float64 { return math.Pow(args[0], args[1]) },
	},
	"sqrt":  unary("sqrt", "square root", math.Sqrt),
	"abs":   unary("abs", "absolute value", math.Abs),
	"log":   unary("log", "natural logarithm", math.Log),
	"log10": unary("log10", "base-10 logarithm", math.Log10),
	"exp":   unary("exp", "e raised to x", math.Exp),
	"sin":   unary("sin", "sine (radians)", math.Sin),
	"cos":   unary("cos", "cosine (radians)", math.Cos),
	"tan":   unary("tan", "tangent (radians)", math.Tan),
	"floor": unary("floor", "round down", math.Floor),
	"ceil":  unary("ceil", "round up", math.Ceil),
	"round": unary("round", "round half away from zero", math.Round),
	"min": {
		Name: "min", MinArity: 1, MaxArity: Variadic,
		Description: "smallest argument",
		Apply: func(args []float64) float64 {
			m := args[0]
			for _, v := range args[1:] {
				m = math.Min(m, v)
			}
			return m
		},
	},
	"max": {
		Name: "max", MinArity: 1, MaxArity: Variadic,
		Description: "largest argument",
		Apply: func(args []float64) float64 {
			m := args[0]
			for _, v := range args[1:] {
				m = math.Max(m, v)
			}
			return m
		},
	},
}

// constants are pre-bound in every environment and cannot be shadowed.
var constants = map[string]float64{
	"pi": math.Pi,
	"e":  math.E,
}

// Lookup returns the function registered under name.
func Lookup(name string) (FunctionSpec, bool) {
	f, ok := functions[name]
	return f, ok
}

// Constant returns the value of a built-in constant.
func Constant(name string) (float64, bool) {
	v, ok := constants[name]
	return v, ok
}

// IsReserved reports whether name is a built-in constant and therefore
// unavailable as a parameter name.
func IsReserved(name string) bool {
	_, ok := constants[name]
	return ok
}

// Functions returns all registered functions sorted by name.
func Functions() []FunctionSpec {
	out := make([]FunctionSpec, 0, len(functions))
	for _, f := range functions {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Constants returns the built-in constant names sorted.
func Constants() []string {
	out := make([]string, 0, len(constants))
	for name := range constants {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
