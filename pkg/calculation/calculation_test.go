package calculation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilramdhan/farmcalc/pkg/formula"
)

func harvestDefinition() Definition {
	return Definition{
		Parameters: []Parameter{
			{Name: "area", Label: "Área", Unit: "ha", Required: true},
			{Name: "produtividade", Label: "Produtividade", Unit: "sc/ha", Required: true},
			{Name: "preco", Label: "Preço", Unit: "R$/sc", Default: "120"},
		},
		Results: []Result{
			{Name: "Produção", Expression: "area * produtividade", Unit: "sc"},
			{Name: "Receita", Expression: "area * produtividade * preco", Unit: "R$"},
		},
	}
}

func TestNormalize_CurrentFormat(t *testing.T) {
	results, err := Normalize(harvestDefinition(), formula.NewParser())
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "Produção", results[0].Name)
	assert.Equal(t, "sc", results[0].Unit)
	assert.Equal(t, "area * produtividade", results[0].Expression.Source)
	assert.Equal(t, "Receita", results[1].Name)
}

func TestNormalize_ResultsWinOverLegacyFields(t *testing.T) {
	def := harvestDefinition()
	def.Expression = "area"
	def.ResultName = "ignored"

	results, err := Normalize(def, nil)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestNormalize_Legacy(t *testing.T) {
	def := Definition{
		Parameters: []Parameter{{Name: "lado"}},
		Expression: "pow(lado, 3)",
		ResultName: "Volume",
		ResultUnit: "m³",
	}

	results, err := Normalize(def, formula.NewParser())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Volume", results[0].Name)
	assert.Equal(t, "m³", results[0].Unit)

	env := formula.Env{"lado": 4}
	direct, err := formula.Evaluate(def.Expression, env)
	require.NoError(t, err)
	outcomes := Evaluate(results, env)
	require.Len(t, outcomes, 1)
	require.NoError(t, outcomes[0].Err)
	assert.Equal(t, direct, outcomes[0].Value)
}

func TestNormalize_LegacyDefaultName(t *testing.T) {
	results, err := Normalize(Definition{Expression: "2 * 2"}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultResultName, results[0].Name)
}

func TestNormalize_LegacyAdditionalResult(t *testing.T) {
	def := Definition{
		Parameters:        []Parameter{{Name: "plantas"}, {Name: "peso"}},
		Expression:        "plantas * peso",
		ResultName:        "Total",
		ResultUnit:        "g",
		AdditionalResults: []AdditionalResult{{Key: "coleta50", Unit: "kg"}},
	}

	results, err := Normalize(def, formula.NewParser())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Coleta (50 unidades)", results[1].Name)
	assert.Equal(t, "kg", results[1].Unit)
	assert.Equal(t, "(plantas * peso) * 50 / 1000", results[1].Expression.Source)

	outcomes := Evaluate(results, formula.Env{"plantas": 10, "peso": 4})
	assert.Equal(t, 40.0, outcomes[0].Value)
	assert.Equal(t, 2.0, outcomes[1].Value)
}

func TestNormalize_UnknownLegacyKey(t *testing.T) {
	def := Definition{
		Expression:        "1",
		AdditionalResults: []AdditionalResult{{Key: "custom"}},
	}

	_, err := Normalize(def, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchema))
	assert.Equal(t, "schema_error", formula.Kind(err))

	var fe *FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "additionalResults[0].key", fe.Field)
}

func TestNormalize_Errors(t *testing.T) {
	testCases := []struct {
		name  string
		def   Definition
		kind  error
		field string
	}{
		{
			name:  "reserved parameter",
			def:   Definition{Parameters: []Parameter{{Name: "pi"}}, Expression: "pi * 2"},
			kind:  ErrReservedName,
			field: "parameters[0].name",
		},
		{
			name:  "no results",
			def:   Definition{Parameters: []Parameter{{Name: "x"}}},
			kind:  ErrSchema,
			field: "results",
		},
		{
			name:  "bad expression",
			def:   Definition{Results: []Result{{Name: "ok", Expression: "x + 1"}, {Name: "bad", Expression: "x +"}}},
			kind:  formula.ErrUnexpectedToken,
			field: "results[1].expression",
		},
		{
			name:  "unknown function",
			def:   Definition{Expression: "eval(x)"},
			kind:  formula.ErrUnknownFunction,
			field: "expression",
		},
		{
			name:  "unnamed result",
			def:   Definition{Results: []Result{{Expression: "1"}}},
			kind:  ErrSchema,
			field: "results[0].name",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Normalize(tc.def, formula.NewParser())
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.kind), "got %v", err)

			var fe *FieldError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tc.field, fe.Field)
		})
	}
}

func TestNormalize_ReservedNameKind(t *testing.T) {
	_, err := Normalize(Definition{Parameters: []Parameter{{Name: "e"}}, Expression: "e"}, nil)
	assert.Equal(t, "reserved_name", formula.Kind(err))
}

func TestEvaluate_ResultsAreIndependent(t *testing.T) {
	def := Definition{
		Results: []Result{
			{Name: "ok", Expression: "x+1"},
			{Name: "bad", Expression: "y/0"},
			{Name: "missing", Expression: "z * 2"},
		},
	}
	results, err := Normalize(def, formula.NewParser())
	require.NoError(t, err)

	outcomes := Evaluate(results, formula.Env{"x": 1, "y": 4})
	require.Len(t, outcomes, 3)

	assert.True(t, outcomes[0].OK())
	assert.Equal(t, 2.0, outcomes[0].Value)

	assert.False(t, outcomes[1].OK())
	assert.True(t, errors.Is(outcomes[1].Err, formula.ErrDivisionByZero))

	assert.True(t, errors.Is(outcomes[2].Err, formula.ErrUndefinedVariable))
}

func TestRun(t *testing.T) {
	outcomes, err := Run(harvestDefinition(), map[string]string{"area": "100", "produtividade": "50"}, nil, EnvOptions{})
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.Equal(t, 5000.0, outcomes[0].Value)
	assert.Equal(t, 600000.0, outcomes[1].Value)

	_, err = Run(harvestDefinition(), map[string]string{}, nil, EnvOptions{Strict: true})
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestRun_FailingResultKeepsOthers(t *testing.T) {
	def := Definition{
		Parameters: []Parameter{{Name: "x"}, {Name: "y"}},
		Results: []Result{
			{Name: "ok", Expression: "x + 1"},
			{Name: "bad", Expression: "x / y"},
		},
	}

	outcomes, err := Run(def, map[string]string{"x": "1"}, nil, EnvOptions{})
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	assert.Equal(t, "ok", outcomes[0].Name)
	assert.True(t, outcomes[0].OK())
	assert.Equal(t, 2.0, outcomes[0].Value)

	assert.Equal(t, "bad", outcomes[1].Name)
	assert.False(t, outcomes[1].OK())
	assert.True(t, errors.Is(outcomes[1].Err, formula.ErrDivisionByZero))
	assert.Equal(t, "division_by_zero", formula.Kind(outcomes[1].Err))
}

func TestPreviewAll(t *testing.T) {
	def := harvestDefinition()
	results, err := Normalize(def, nil)
	require.NoError(t, err)

	previews := PreviewAll(results, RawValues(def.Parameters, map[string]string{"area": " 100 "}))
	require.Len(t, previews, 2)
	assert.Equal(t, "100 * produtividade", previews[0].Text)
	assert.Equal(t, "100 * produtividade * 120", previews[1].Text)
	assert.Equal(t, "R$", previews[1].Unit)
}
