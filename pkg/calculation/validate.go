package calculation

import (
	"errors"
	"fmt"

	"github.com/ilramdhan/farmcalc/pkg/formula"
)

// Report is the outcome of a successful Validate. Undeclared variables and
// unused parameters are warnings: they do not block saving.
type Report struct {
	Results             []NormalizedResult
	UndeclaredVariables []string
	UnusedParameters    []string
}

// Validate checks a definition at authoring time. All field errors are
// joined so an editor can flag every problem at once.
func Validate(def Definition, parser *formula.Parser) (*Report, error) {
	var errs []error

	seen := make(map[string]bool)
	for i, p := range def.Parameters {
		field := fmt.Sprintf("parameters[%d]", i)
		switch {
		case p.Name == "":
			errs = append(errs, fieldErr(field+".name", schemaErr("parameter name is required")))
			continue
		case formula.IsReserved(p.Name):
			errs = append(errs, fieldErr(field+".name", fmt.Errorf("%w: %q is a built-in constant", ErrReservedName, p.Name)))
		case !formula.IsIdentifier(p.Name):
			errs = append(errs, fieldErr(field+".name", schemaErr("%q is not an identifier; use a key such as %q and keep the text as label", p.Name, Keyify(p.Name))))
		case seen[p.Name]:
			errs = append(errs, fieldErr(field+".name", schemaErr("duplicate parameter %q", p.Name)))
		}
		seen[p.Name] = true

		if err := validateParameterValues(p); err != nil {
			errs = append(errs, fieldErr(field, err))
		}
	}

	if def.IsLegacy() {
		keys := make(map[string]bool)
		for i, ar := range def.AdditionalResults {
			if keys[ar.Key] {
				errs = append(errs, fieldErr(fmt.Sprintf("additionalResults[%d].key", i), schemaErr("duplicate additional result %q", ar.Key)))
			}
			keys[ar.Key] = true
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	results, err := Normalize(def, parser)
	if err != nil {
		return nil, err
	}

	report := &Report{Results: results}
	used := make(map[string]bool)
	undeclared := make(map[string]bool)
	for _, r := range results {
		for _, name := range r.Expression.Variables() {
			used[name] = true
			if !seen[name] && !undeclared[name] {
				undeclared[name] = true
				report.UndeclaredVariables = append(report.UndeclaredVariables, name)
			}
		}
	}
	for _, p := range def.Parameters {
		if !used[p.Name] {
			report.UnusedParameters = append(report.UnusedParameters, p.Name)
		}
	}
	return report, nil
}

func validateParameterValues(p Parameter) error {
	switch p.EffectiveType() {
	case ParamNumber:
		if p.Default != "" {
			if _, err := ParseNumber(p.Default); err != nil {
				return schemaErr("default %q is not a number", p.Default)
			}
		}
	case ParamSelect:
		if len(p.Options) == 0 {
			return schemaErr("select parameter %q needs at least one option", p.Name)
		}
		for _, o := range p.Options {
			if _, err := ParseNumber(o.Value); err != nil {
				return schemaErr("option %q has non-numeric value %q", o.Label, o.Value)
			}
		}
		if p.Default != "" && !p.hasOption(p.Default) {
			return schemaErr("default %q is not one of the options", p.Default)
		}
	default:
		return schemaErr("unknown parameter type %q", p.Type)
	}
	return nil
}

func (p Parameter) hasOption(value string) bool {
	for _, o := range p.Options {
		if o.Value == value {
			return true
		}
	}
	return false
}
