package calculation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilramdhan/farmcalc/pkg/formula"
)

var soilParams = []Parameter{
	{Name: "area", Required: true},
	{Name: "dose", Default: "2.5"},
	{
		Name: "textura",
		Type: ParamSelect,
		Options: []Option{
			{Label: "Arenosa", Value: "0.8"},
			{Label: "Argilosa", Value: "1.2"},
		},
		Required: true,
	},
}

func TestBuildEnvironment_Lenient(t *testing.T) {
	env, err := BuildEnvironment(soilParams, map[string]string{
		"area":    "abc",
		"textura": "1.2",
		"extra":   "99",
	}, EnvOptions{})
	require.NoError(t, err)

	assert.Equal(t, formula.Env{"area": 0, "dose": 2.5, "textura": 1.2}, env)
}

func TestBuildEnvironment_EmptyAndWhitespace(t *testing.T) {
	env, err := BuildEnvironment(soilParams, map[string]string{"area": "  12.5 ", "dose": "  "}, EnvOptions{})
	require.NoError(t, err)
	assert.Equal(t, 12.5, env["area"])
	assert.Equal(t, 2.5, env["dose"])
	assert.Equal(t, 0.0, env["textura"])
}

func TestBuildEnvironment_Strict(t *testing.T) {
	testCases := []struct {
		name    string
		inputs  map[string]string
		wantErr bool
		fields  []string
	}{
		{
			name:   "valid",
			inputs: map[string]string{"area": "10", "textura": "0.8"},
		},
		{
			name:    "missing required",
			inputs:  map[string]string{"textura": "0.8"},
			wantErr: true,
			fields:  []string{"area"},
		},
		{
			name:    "not a number",
			inputs:  map[string]string{"area": "dez", "textura": "0.8"},
			wantErr: true,
			fields:  []string{"area"},
		},
		{
			name:    "not an option",
			inputs:  map[string]string{"area": "10", "textura": "3"},
			wantErr: true,
			fields:  []string{"textura"},
		},
		{
			name:    "infinite",
			inputs:  map[string]string{"area": "Inf", "textura": "NaN"},
			wantErr: true,
			fields:  []string{"area", "textura"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := BuildEnvironment(soilParams, tc.inputs, EnvOptions{Strict: true})
			if !tc.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput))
			assert.Equal(t, "invalid_input", formula.Kind(err))
			for _, f := range tc.fields {
				assert.Contains(t, err.Error(), f+":")
			}
		})
	}
}

func TestParseNumber(t *testing.T) {
	testCases := []struct {
		raw     string
		want    float64
		wantErr bool
	}{
		{raw: " 3.75 ", want: 3.75},
		{raw: "-2", want: -2},
		{raw: "2,5", want: 2.5},
		{raw: " 0,75 ", want: 0.75},
		{raw: "1,234.5", wantErr: true},
		{raw: "1,2,3", wantErr: true},
		{raw: "10kg", wantErr: true},
		{raw: "NaN", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			v, err := ParseNumber(tc.raw)
			if tc.wantErr {
				assert.Error(t, err)
				assert.Equal(t, 0.0, CoerceNumber(tc.raw))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, v)
			assert.Equal(t, tc.want, CoerceNumber(tc.raw))
		})
	}
}

func TestBuildEnvironment_DecimalComma(t *testing.T) {
	env, err := BuildEnvironment(soilParams, map[string]string{"area": "2,5", "textura": "0.8"}, EnvOptions{Strict: true})
	require.NoError(t, err)
	assert.Equal(t, 2.5, env["area"])
}

func TestBuildEnvironment_LabelFallback(t *testing.T) {
	params := []Parameter{
		{Name: "area", Label: "Área", Required: true},
		{Name: "dose", Label: "Dose"},
	}

	env, err := BuildEnvironment(params, map[string]string{"Área": "10", "dose": "3", "Dose": "99"}, EnvOptions{Strict: true})
	require.NoError(t, err)
	assert.Equal(t, formula.Env{"area": 10, "dose": 3}, env)

	assert.Equal(t, map[string]string{"area": "10"}, RawValues(params, map[string]string{"Área": " 10 "}))
}

func TestRawValues(t *testing.T) {
	got := RawValues(soilParams, map[string]string{"area": "7", "textura": ""})
	assert.Equal(t, map[string]string{"area": "7", "dose": "2.5"}, got)
}
