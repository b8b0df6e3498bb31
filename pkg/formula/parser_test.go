package formula

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_Evaluate_SimpleAddition(t *testing.T) {
	parser := NewParser()

	result, err := parser.Evaluate("a + b", Env{
		"a": 10.0,
		"b": 5.0,
	})

	require.NoError(t, err)
	assert.Equal(t, 15.0, result)
}

func TestParser_Evaluate_ComplexFormula(t *testing.T) {
	parser := NewParser()

	// Fertilizer cost for a plot
	expression := "(area * dose_kg_ha * preco_kg) + (horas_trator * custo_hora) + frete"
	env := Env{
		"area":         12.0,
		"dose_kg_ha":   250.0,
		"preco_kg":     3.2,
		"horas_trator": 6.0,
		"custo_hora":   180.0,
		"frete":        450.0,
	}

	result, err := parser.Evaluate(expression, env)

	require.NoError(t, err)
	// 12*250*3.2 + 6*180 + 450 = 9600 + 1080 + 450
	assert.InDelta(t, 11130.0, result, 1e-9)
}

func TestParser_Evaluate_WithPercentage(t *testing.T) {
	parser := NewParser()

	expression := "custo_base * (1 + margem / 100)"
	env := Env{
		"custo_base": 1000.0,
		"margem":     15.0,
	}

	result, err := parser.Evaluate(expression, env)

	require.NoError(t, err)
	assert.InDelta(t, 1150.0, result, 1e-9)
}

func TestParser_Evaluate_ConditionalsRejected(t *testing.T) {
	parser := NewParser()

	_, err := parser.Evaluate("quantity > 100 ? price * 0.9 : price", Env{
		"quantity": 150.0,
		"price":    100.0,
	})

	var lexErr *LexError
	require.True(t, errors.As(err, &lexErr))
	assert.Equal(t, 9, lexErr.Offset)
}

func TestParser_Evaluate_MissingParam(t *testing.T) {
	parser := NewParser()

	_, err := parser.Evaluate("a + b", Env{
		"a": 10.0,
		// "b" is missing
	})

	assert.True(t, errors.Is(err, ErrUndefinedVariable))
}

func TestParser_Evaluate_InvalidExpression(t *testing.T) {
	parser := NewParser()

	_, err := parser.Evaluate("((a + b", Env{
		"a": 10.0,
		"b": 5.0,
	})

	assert.True(t, errors.Is(err, ErrUnbalancedParens))
	assert.Contains(t, err.Error(), "failed to parse expression")
}

func TestParser_Evaluate_FarmFormulas(t *testing.T) {
	parser := NewParser()

	testCases := []struct {
		name       string
		expression string
		env        Env
		expected   float64
	}{
		{
			name:       "Harvest Revenue",
			expression: "area * produtividade * preco",
			env: Env{
				"area":          100.0,
				"produtividade": 50.0,
				"preco":         120.0,
			},
			expected: 600000.0,
		},
		{
			name:       "Cube Volume",
			expression: "pow(lado, 3)",
			env:        Env{"lado": 3.0},
			expected:   27.0,
		},
		{
			name:       "Liming Need",
			expression: "(v2 - v1) * ctc / (10 * prnt) * 100",
			env: Env{
				"v2":   70.0,
				"v1":   40.0,
				"ctc":  8.0,
				"prnt": 80.0,
			},
			expected: 30.0, // (30*8)/800*100
		},
		{
			name:       "Circular Pivot Area",
			expression: "pi * raio^2 / 10000",
			env:        Env{"raio": 100.0},
			expected:   3.141592653589793,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := parser.Evaluate(tc.expression, tc.env)
			require.NoError(t, err)
			assert.InDelta(t, tc.expected, result, 0.001)
		})
	}
}

func TestParser_CachesByExactSource(t *testing.T) {
	parser := NewParser()

	first, err := parser.Parse("a * b")
	require.NoError(t, err)
	second, err := parser.Parse("a * b")
	require.NoError(t, err)
	assert.Same(t, first, second)

	spaced, err := parser.Parse("a*b")
	require.NoError(t, err)
	assert.NotSame(t, first, spaced)
	assert.Equal(t, 2, parser.Len())
}

func TestParser_DoesNotCacheFailures(t *testing.T) {
	parser := NewParser()

	_, err := parser.Parse("2 +")
	require.Error(t, err)
	assert.Equal(t, 0, parser.Len())

	assert.Error(t, parser.ValidateExpression("foo(1)"))
	assert.NoError(t, parser.ValidateExpression("sqrt(x)"))
	assert.Equal(t, 1, parser.Len())
}

func TestParser_ConcurrentMissesShareResult(t *testing.T) {
	parser := NewParser()

	var wg sync.WaitGroup
	exprs := make([]*Expression, 32)
	for i := range exprs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			exprs[i], _ = parser.Parse("area * produtividade * preco")
		}(i)
	}
	wg.Wait()

	for _, e := range exprs {
		require.NotNil(t, e)
		assert.Same(t, exprs[0], e)
	}
	assert.Equal(t, 1, parser.Len())
}

func TestParser_CachedMatchesFresh(t *testing.T) {
	parser := NewParser()
	source := "max(a, b) / min(a, b) + a % b"
	env := Env{"a": 7, "b": 3}

	cached, err := parser.Parse(source)
	require.NoError(t, err)
	fresh, err := Parse(source)
	require.NoError(t, err)
	assert.Equal(t, fresh.Root, cached.Root)

	want, err := fresh.Evaluate(env)
	require.NoError(t, err)
	got, err := parser.Evaluate(source, env)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestParser_Preview(t *testing.T) {
	parser := NewParser()

	got, err := parser.Preview("area * produtividade * preco", map[string]string{"area": "100", "produtividade": "50"})
	require.NoError(t, err)
	assert.Equal(t, "100 * 50 * preco", got)

	_, err = parser.Preview("area *", nil)
	assert.Error(t, err)
}

func TestDefaultParser_Evaluate(t *testing.T) {
	result, err := Evaluate("x * 2", Env{"x": 21})
	require.NoError(t, err)
	assert.Equal(t, 42.0, result)
}

func BenchmarkParser_Evaluate(b *testing.B) {
	parser := NewParser()
	expression := "(area * dose_kg_ha * preco_kg) + (horas_trator * custo_hora) + frete"
	env := Env{
		"area":         12.0,
		"dose_kg_ha":   250.0,
		"preco_kg":     3.2,
		"horas_trator": 6.0,
		"custo_hora":   180.0,
		"frete":        450.0,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		parser.Evaluate(expression, env)
	}
}

func BenchmarkParse(b *testing.B) {
	expression := "(area * dose_kg_ha * preco_kg) + (horas_trator * custo_hora) + frete"
	for i := 0; i < b.N; i++ {
		Parse(expression)
	}
}
