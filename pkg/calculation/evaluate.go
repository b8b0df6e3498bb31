package calculation

import (
	"github.com/ilramdhan/farmcalc/pkg/formula"
)

// Outcome is the value or the failure of one result.
type Outcome struct {
	Name        string
	Unit        string
	Description string
	Value       float64
	Err         error
}

// OK reports whether the result evaluated.
func (o Outcome) OK() bool { return o.Err == nil }

// Evaluate evaluates every result against the same environment. A failing
// result never stops the others.
func Evaluate(results []NormalizedResult, env formula.Env) []Outcome {
	outcomes := make([]Outcome, len(results))
	for i, r := range results {
		v, err := r.Expression.Evaluate(env)
		outcomes[i] = Outcome{
			Name:        r.Name,
			Unit:        r.Unit,
			Description: r.Description,
			Value:       v,
			Err:         err,
		}
	}
	return outcomes
}

// Preview is the rendered formula of one result.
type Preview struct {
	Name string
	Unit string
	Text string
}

// PreviewAll renders every result with vars substituted.
func PreviewAll(results []NormalizedResult, vars map[string]string) []Preview {
	out := make([]Preview, len(results))
	for i, r := range results {
		out[i] = Preview{Name: r.Name, Unit: r.Unit, Text: r.Expression.Preview(vars)}
	}
	return out
}

// Run normalizes def, builds the environment from inputs and evaluates every
// result. The error covers definition and strict-input problems only;
// per-result failures are in the outcomes.
func Run(def Definition, inputs map[string]string, parser *formula.Parser, opts EnvOptions) ([]Outcome, error) {
	results, err := Normalize(def, parser)
	if err != nil {
		return nil, err
	}
	env, err := BuildEnvironment(def.Parameters, inputs, opts)
	if err != nil {
		return nil, err
	}
	return Evaluate(results, env), nil
}
