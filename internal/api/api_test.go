package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilramdhan/farmcalc/internal/infrastructure/memory"
	"github.com/ilramdhan/farmcalc/internal/modules/calculator"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	store := memory.NewStore()
	svc := calculator.NewService(store.Calculations(), store.Categories(), store.Logs(),
		calculator.Options{LogSubmissions: true}, nil)
	pool := calculator.NewWorkerPool(svc, store.Calculations(), store.Jobs(), 2, 10, nil)
	return NewApp(Config{Service: svc, Pool: pool, Jobs: store.Jobs(), InlineJobs: true})
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]interface{}{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

var seedingCalculation = map[string]interface{}{
	"name":        "Sementes por hectare",
	"description": "Quantidade de sementes para o plantio",
	"tags":        []string{"plantio"},
	"definition": map[string]interface{}{
		"parameters": []map[string]interface{}{
			{"name": "populacao", "label": "População desejada", "unit": "plantas/ha", "required": true},
			{"name": "germinacao", "label": "Germinação", "unit": "%", "default": "90"},
			{
				"name": "cultura", "type": "select", "default": "1",
				"options": []map[string]string{{"label": "Soja", "value": "1"}, {"label": "Milho", "value": "1.1"}},
			},
		},
		"results": []map[string]string{
			{"name": "Sementes", "expression": "populacao / (germinacao / 100) * cultura", "unit": "sementes/ha"},
			{"name": "Sacos", "expression": "round(populacao / (germinacao / 100) * cultura / 60000)"},
		},
	},
}

func createSeeding(t *testing.T, app *fiber.App) string {
	t.Helper()
	status, body := doJSON(t, app, http.MethodPost, "/api/v1/calculations", seedingCalculation)
	require.Equal(t, http.StatusCreated, status, body)
	calc := body["calculation"].(map[string]interface{})
	return calc["id"].(string)
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	status, body := doJSON(t, app, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])
}

func TestCalculationLifecycle(t *testing.T) {
	app := newTestApp(t)
	id := createSeeding(t, app)

	status, body := doJSON(t, app, http.MethodGet, "/api/v1/calculations/"+id, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Sementes por hectare", body["name"])
	assert.Equal(t, true, body["is_active"])

	status, body = doJSON(t, app, http.MethodPost, "/api/v1/calculations/"+id+"/calculate", map[string]interface{}{
		"inputs": map[string]interface{}{"populacao": 270000, "germinacao": "90", "cultura": "1"},
	})
	require.Equal(t, http.StatusOK, status, body)
	results := body["results"].([]interface{})
	require.Len(t, results, 2)
	first := results[0].(map[string]interface{})
	assert.Equal(t, "Sementes", first["name"])
	assert.InDelta(t, 300000.0, first["value"], 1e-6)
	second := results[1].(map[string]interface{})
	assert.Equal(t, 5.0, second["value"])

	status, body = doJSON(t, app, http.MethodPost, "/api/v1/calculations/"+id+"/preview", map[string]interface{}{
		"inputs": map[string]interface{}{"populacao": "270000"},
	})
	require.Equal(t, http.StatusOK, status)
	previews := body["data"].([]interface{})
	assert.Equal(t, "270000 / (90 / 100) * 1", previews[0].(map[string]interface{})["preview"])

	status, body = doJSON(t, app, http.MethodGet, "/api/v1/calculations/"+id+"/logs", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["data"], 1)

	status, body = doJSON(t, app, http.MethodGet, "/api/v1/calculations?q=sementes", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1.0, body["total"])

	status, _ = doJSON(t, app, http.MethodDelete, "/api/v1/calculations/"+id, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, body = doJSON(t, app, http.MethodGet, "/api/v1/calculations/"+id, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", body["kind"])
}

func TestCreateCalculation_Rejected(t *testing.T) {
	app := newTestApp(t)

	status, body := doJSON(t, app, http.MethodPost, "/api/v1/calculations", map[string]interface{}{
		"name": "Quebrada",
		"definition": map[string]interface{}{
			"parameters": []map[string]string{{"name": "x"}},
			"results": []map[string]string{
				{"name": "ok", "expression": "x * 2"},
				{"name": "bad", "expression": "x * (2 + 1"},
			},
		},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "parse_error", body["kind"])
	assert.Equal(t, "results[1].expression", body["field"])
	assert.Equal(t, 10.0, body["offset"])

	status, body = doJSON(t, app, http.MethodPost, "/api/v1/calculations", map[string]interface{}{
		"definition": map[string]interface{}{"expression": "1"},
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_request", body["kind"])
}

func TestUpdateCalculation(t *testing.T) {
	app := newTestApp(t)
	id := createSeeding(t, app)

	update := map[string]interface{}{
		"name": "Sementes (legado)",
		"definition": map[string]interface{}{
			"parameters":        []map[string]string{{"name": "populacao"}},
			"expression":        "populacao * 1.1",
			"resultName":        "Sementes",
			"additionalResults": []map[string]string{{"key": "coleta50"}},
		},
	}
	status, body := doJSON(t, app, http.MethodPut, "/api/v1/calculations/"+id, update)
	require.Equal(t, http.StatusOK, status, body)

	status, body = doJSON(t, app, http.MethodPost, "/api/v1/calculations/"+id+"/calculate", map[string]interface{}{
		"inputs": map[string]interface{}{"populacao": "1000"},
	})
	require.Equal(t, http.StatusOK, status)
	results := body["results"].([]interface{})
	require.Len(t, results, 2)
	assert.InDelta(t, 1100.0, results[0].(map[string]interface{})["value"], 1e-9)
	assert.InDelta(t, 55.0, results[1].(map[string]interface{})["value"], 1e-9)

	update["definition"].(map[string]interface{})["additionalResults"] = []map[string]string{{"key": "desconhecido"}}
	status, body = doJSON(t, app, http.MethodPut, "/api/v1/calculations/"+id, update)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "schema_error", body["kind"])
}

func TestCalculate_PerResultErrors(t *testing.T) {
	app := newTestApp(t)

	status, body := doJSON(t, app, http.MethodPost, "/api/v1/calculations", map[string]interface{}{
		"name": "Dois resultados",
		"definition": map[string]interface{}{
			"parameters": []map[string]string{{"name": "x"}, {"name": "y"}},
			"results": []map[string]string{
				{"name": "ok", "expression": "x+1"},
				{"name": "bad", "expression": "y/0"},
			},
		},
	})
	require.Equal(t, http.StatusCreated, status, body)
	id := body["calculation"].(map[string]interface{})["id"].(string)

	status, body = doJSON(t, app, http.MethodPost, "/api/v1/calculations/"+id+"/calculate", map[string]interface{}{
		"inputs": map[string]interface{}{"x": 1},
	})
	require.Equal(t, http.StatusOK, status)
	results := body["results"].([]interface{})
	ok := results[0].(map[string]interface{})
	bad := results[1].(map[string]interface{})
	assert.Equal(t, 2.0, ok["value"])
	assert.Nil(t, bad["value"])
	assert.Equal(t, "division_by_zero", bad["kind"])
}

func TestFormulaEndpoints(t *testing.T) {
	app := newTestApp(t)

	testCases := []struct {
		name   string
		path   string
		body   map[string]interface{}
		status int
		check  func(t *testing.T, body map[string]interface{})
	}{
		{
			name:   "validate ok",
			path:   "/api/v1/formulas/validate",
			body:   map[string]interface{}{"expression": "area * dose", "parameters": []string{"area"}},
			status: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, true, body["valid"])
				assert.Equal(t, []interface{}{"dose"}, body["undeclared"])
			},
		},
		{
			name:   "validate lex error",
			path:   "/api/v1/formulas/validate",
			body:   map[string]interface{}{"expression": "area > 3 ? 1 : 0"},
			status: http.StatusUnprocessableEntity,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "lex_error", body["kind"])
				assert.Equal(t, 5.0, body["offset"])
			},
		},
		{
			name:   "validate arity",
			path:   "/api/v1/formulas/validate",
			body:   map[string]interface{}{"expression": "pow(2)"},
			status: http.StatusUnprocessableEntity,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "arity_mismatch", body["kind"])
			},
		},
		{
			name:   "evaluate",
			path:   "/api/v1/formulas/evaluate",
			body:   map[string]interface{}{"expression": "2 + 3 * 4 ^ 2", "variables": map[string]float64{}},
			status: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, 50.0, body["value"])
				assert.Equal(t, "50", body["formatted"])
			},
		},
		{
			name:   "evaluate undefined",
			path:   "/api/v1/formulas/evaluate",
			body:   map[string]interface{}{"expression": "x * 2"},
			status: http.StatusUnprocessableEntity,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "undefined_variable", body["kind"])
			},
		},
		{
			name:   "evaluate domain",
			path:   "/api/v1/formulas/evaluate",
			body:   map[string]interface{}{"expression": "sqrt(-1)"},
			status: http.StatusUnprocessableEntity,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "domain_error", body["kind"])
			},
		},
		{
			name:   "preview",
			path:   "/api/v1/formulas/preview",
			body:   map[string]interface{}{"expression": "(area+dose)*2", "values": map[string]string{"area": "10"}},
			status: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "(10+dose)*2", body["preview"])
			},
		},
		{
			name:   "missing expression",
			path:   "/api/v1/formulas/evaluate",
			body:   map[string]interface{}{},
			status: http.StatusBadRequest,
			check:  func(t *testing.T, body map[string]interface{}) {},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := doJSON(t, app, http.MethodPost, tc.path, tc.body)
			assert.Equal(t, tc.status, status, body)
			tc.check(t, body)
		})
	}
}

func TestListFunctions(t *testing.T) {
	app := newTestApp(t)
	status, body := doJSON(t, app, http.MethodGet, "/api/v1/functions", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []interface{}{"e", "pi"}, body["constants"])
	functions := body["functions"].([]interface{})
	assert.Len(t, functions, 14)
}

func TestCategories(t *testing.T) {
	app := newTestApp(t)

	status, body := doJSON(t, app, http.MethodPost, "/api/v1/categories", map[string]string{"name": "Solo", "icon": "layers"})
	require.Equal(t, http.StatusCreated, status)
	catID := body["id"].(string)

	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/categories", map[string]string{"name": ""})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = doJSON(t, app, http.MethodGet, "/api/v1/categories", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["data"], 1)

	calc := map[string]interface{}{
		"name":        "pH",
		"category_id": catID,
		"definition":  map[string]interface{}{"parameters": []map[string]string{{"name": "ph"}}, "expression": "ph"},
	}
	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/calculations", calc)
	require.Equal(t, http.StatusCreated, status)

	status, body = doJSON(t, app, http.MethodGet, "/api/v1/calculations?category_id="+catID, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1.0, body["total"])

	status, _ = doJSON(t, app, http.MethodGet, "/api/v1/calculations?category_id=nope", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRevalidateJob(t *testing.T) {
	app := newTestApp(t)
	createSeeding(t, app)

	status, body := doJSON(t, app, http.MethodPost, "/api/v1/revalidate", nil)
	require.Equal(t, http.StatusAccepted, status)
	jobID := body["job_id"].(string)

	assert.Eventually(t, func() bool {
		status, body := doJSON(t, app, http.MethodGet, "/api/v1/jobs/"+jobID, nil)
		if status != http.StatusOK {
			return false
		}
		job := body["job"].(map[string]interface{})
		return job["status"] == "COMPLETED" && body["progress"] == 100.0
	}, 2*time.Second, 10*time.Millisecond)

	status, body = doJSON(t, app, http.MethodGet, "/api/v1/jobs", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["data"], 1)
}

func TestInvalidID(t *testing.T) {
	app := newTestApp(t)
	status, body := doJSON(t, app, http.MethodPost, "/api/v1/calculations/not-a-uuid/calculate", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid id", body["error"])
}
