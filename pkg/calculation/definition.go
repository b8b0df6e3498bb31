// Package calculation binds parameter and result declarations to the formula
// engine: it normalizes stored definitions (current and legacy shapes),
// builds evaluation environments from raw form input and evaluates every
// result independently.
package calculation

// ParamType is the declared input type of a parameter.
type ParamType string

const (
	ParamNumber ParamType = "number"
	ParamSelect ParamType = "select"
)

// Option is one choice of a select parameter. Value is what feeds the
// evaluation; Label is what the user sees.
type Option struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

// Parameter declares a named input of a calculation.
type Parameter struct {
	Name        string    `json:"name" yaml:"name"`
	Label       string    `json:"label,omitempty" yaml:"label,omitempty"`
	Type        ParamType `json:"type,omitempty" yaml:"type,omitempty"`
	Unit        string    `json:"unit,omitempty" yaml:"unit,omitempty"`
	Options     []Option  `json:"options,omitempty" yaml:"options,omitempty"`
	Required    bool      `json:"required,omitempty" yaml:"required,omitempty"`
	Default     string    `json:"default,omitempty" yaml:"default,omitempty"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
}

// DisplayName returns Label, falling back to Name.
func (p Parameter) DisplayName() string {
	if p.Label != "" {
		return p.Label
	}
	return p.Name
}

// EffectiveType treats an empty type as number.
func (p Parameter) EffectiveType() ParamType {
	if p.Type == "" {
		return ParamNumber
	}
	return p.Type
}

// Result declares a named output computed by Expression.
type Result struct {
	Name        string `json:"name" yaml:"name"`
	Expression  string `json:"expression" yaml:"expression"`
	Unit        string `json:"unit,omitempty" yaml:"unit,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// AdditionalResult is a legacy derived result identified by Key.
type AdditionalResult struct {
	Key         string `json:"key" yaml:"key"`
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	Unit        string `json:"unit,omitempty" yaml:"unit,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Definition is the stored shape of a calculation's formulas. Results is the
// current format; Expression/ResultName/ResultUnit/AdditionalResults is the
// legacy single-result format and is only read when Results is empty.
type Definition struct {
	Parameters        []Parameter        `json:"parameters" yaml:"parameters"`
	Results           []Result           `json:"results,omitempty" yaml:"results,omitempty"`
	Expression        string             `json:"expression,omitempty" yaml:"expression,omitempty"`
	ResultName        string             `json:"resultName,omitempty" yaml:"resultName,omitempty"`
	ResultUnit        string             `json:"resultUnit,omitempty" yaml:"resultUnit,omitempty"`
	AdditionalResults []AdditionalResult `json:"additionalResults,omitempty" yaml:"additionalResults,omitempty"`
}

// IsLegacy reports whether the definition uses the single-expression shape.
func (d Definition) IsLegacy() bool {
	return len(d.Results) == 0
}

// Parameter returns the declaration named name.
func (d Definition) Parameter(name string) (Parameter, bool) {
	for _, p := range d.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}
