package calculation

import (
	"fmt"

	"github.com/ilramdhan/farmcalc/pkg/formula"
)

// DefaultResultName names the primary result of a legacy definition that
// does not set resultName.
const DefaultResultName = "Resultado"

// NormalizedResult is one parsed result, whatever format it was stored in.
type NormalizedResult struct {
	Name        string
	Unit        string
	Description string
	Expression  *formula.Expression
}

// legacyTransform derives an additional result from the primary expression.
type legacyTransform struct {
	template    string // %s is the primary expression source
	name        string
	unit        string
	description string
}

// legacyTransforms is closed: stored additionalResults may only reference
// these keys.
var legacyTransforms = map[string]legacyTransform{
	"coleta50": {
		template:    "(%s) * 50 / 1000",
		name:        "Coleta (50 unidades)",
		description: "resultado principal coletado sobre 50 unidades, em milhares",
	},
}

// LegacyKeys returns the additionalResults keys understood by Normalize.
func LegacyKeys() []string {
	keys := make([]string, 0, len(legacyTransforms))
	for k := range legacyTransforms {
		keys = append(keys, k)
	}
	return keys
}

// Normalize parses every result of def into the same ordered sequence,
// reading the current results[] when present and the legacy fields
// otherwise. A nil parser uses formula.DefaultParser.
func Normalize(def Definition, parser *formula.Parser) ([]NormalizedResult, error) {
	if parser == nil {
		parser = formula.DefaultParser
	}

	for i, p := range def.Parameters {
		if formula.IsReserved(p.Name) {
			return nil, fieldErr(fmt.Sprintf("parameters[%d].name", i), fmt.Errorf("%w: %q is a built-in constant", ErrReservedName, p.Name))
		}
	}

	if !def.IsLegacy() {
		results := make([]NormalizedResult, 0, len(def.Results))
		for i, r := range def.Results {
			if r.Name == "" {
				return nil, fieldErr(fmt.Sprintf("results[%d].name", i), schemaErr("result name is required"))
			}
			expr, err := parser.Parse(r.Expression)
			if err != nil {
				return nil, fieldErr(fmt.Sprintf("results[%d].expression", i), err)
			}
			results = append(results, NormalizedResult{
				Name:        r.Name,
				Unit:        r.Unit,
				Description: r.Description,
				Expression:  expr,
			})
		}
		return results, nil
	}

	if def.Expression == "" {
		return nil, fieldErr("results", schemaErr("a calculation needs results or an expression"))
	}
	primary, err := parser.Parse(def.Expression)
	if err != nil {
		return nil, fieldErr("expression", err)
	}
	name := def.ResultName
	if name == "" {
		name = DefaultResultName
	}
	results := []NormalizedResult{{Name: name, Unit: def.ResultUnit, Expression: primary}}

	for i, ar := range def.AdditionalResults {
		tr, ok := legacyTransforms[ar.Key]
		if !ok {
			return nil, fieldErr(fmt.Sprintf("additionalResults[%d].key", i), schemaErr("unknown additional result %q", ar.Key))
		}
		derived, err := parser.Parse(fmt.Sprintf(tr.template, primary.Source))
		if err != nil {
			return nil, fieldErr(fmt.Sprintf("additionalResults[%d]", i), err)
		}
		results = append(results, NormalizedResult{
			Name:        firstNonEmpty(ar.Name, tr.name),
			Unit:        firstNonEmpty(ar.Unit, tr.unit, def.ResultUnit),
			Description: firstNonEmpty(ar.Description, tr.description),
			Expression:  derived,
		})
	}
	return results, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
