package calculation

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ilramdhan/farmcalc/pkg/formula"
)

// EnvOptions controls how raw form input becomes numbers.
type EnvOptions struct {
	// Strict reports missing required values, unparseable numbers and select
	// values outside the options instead of coercing them to zero.
	Strict bool
}

// ParseNumber parses a user-entered number. Surrounding whitespace is
// ignored and a single comma without a dot is read as the decimal
// separator ("2,5" is 2.5). NaN and infinities are rejected.
func ParseNumber(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not a finite number", raw)
	}
	return v, nil
}

// CoerceNumber parses raw leniently: anything unparseable is 0.
func CoerceNumber(raw string) float64 {
	v, err := ParseNumber(raw)
	if err != nil {
		return 0
	}
	return v
}

// BuildEnvironment maps every declared parameter to a number. Inputs are
// looked up by name, then by label. A missing or blank input falls back to
// the parameter default and then to 0. Inputs for undeclared names are
// ignored.
func BuildEnvironment(params []Parameter, inputs map[string]string, opts EnvOptions) (formula.Env, error) {
	env := make(formula.Env, len(params))
	var errs []error

	for _, p := range params {
		raw := inputFor(p, inputs)
		if raw == "" {
			raw = strings.TrimSpace(p.Default)
		}
		if raw == "" {
			if opts.Strict && p.Required {
				errs = append(errs, fieldErr(p.Name, fmt.Errorf("%w: %s is required", ErrInvalidInput, p.DisplayName())))
			}
			env[p.Name] = 0
			continue
		}

		if opts.Strict && p.EffectiveType() == ParamSelect && !p.hasOption(raw) {
			errs = append(errs, fieldErr(p.Name, fmt.Errorf("%w: %q is not an option of %s", ErrInvalidInput, raw, p.DisplayName())))
			env[p.Name] = 0
			continue
		}

		v, err := ParseNumber(raw)
		if err != nil && opts.Strict {
			errs = append(errs, fieldErr(p.Name, fmt.Errorf("%w: %q is not a number", ErrInvalidInput, raw)))
		}
		env[p.Name] = v
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return env, nil
}

// RawValues returns the text each parameter would contribute to a preview:
// the trimmed input, or the default when the input is blank. Parameters with
// neither are left out so the preview keeps their names.
func RawValues(params []Parameter, inputs map[string]string) map[string]string {
	out := make(map[string]string, len(params))
	for _, p := range params {
		raw := inputFor(p, inputs)
		if raw == "" {
			raw = strings.TrimSpace(p.Default)
		}
		if raw != "" {
			out[p.Name] = raw
		}
	}
	return out
}

// inputFor reads the input of p by key, falling back to its label so forms
// built before MigrateNames still fill the renamed parameter.
func inputFor(p Parameter, inputs map[string]string) string {
	raw, ok := inputs[p.Name]
	if !ok && p.Label != "" {
		raw = inputs[p.Label]
	}
	return strings.TrimSpace(raw)
}
