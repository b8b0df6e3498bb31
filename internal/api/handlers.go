package api

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ilramdhan/farmcalc/internal/domain/entity"
	"github.com/ilramdhan/farmcalc/pkg/calculation"
	"github.com/ilramdhan/farmcalc/pkg/formula"
)

const maxPageSize = 100

func (h *Handler) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func paging(c *fiber.Ctx) (int, int) {
	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > maxPageSize {
		limit = maxPageSize
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func paramID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params("id"))
	return id, err == nil
}

// Categories

func (h *Handler) listCategories(c *fiber.Ctx) error {
	categories, err := h.service.ListCategories(c.UserContext())
	if err != nil {
		return h.writeError(c, err)
	}
	if categories == nil {
		categories = []*entity.Category{}
	}
	return c.JSON(fiber.Map{"data": categories})
}

func (h *Handler) createCategory(c *fiber.Ctx) error {
	var category entity.Category
	if err := c.BodyParser(&category); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := h.service.CreateCategory(c.UserContext(), &category); err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(category)
}

// Calculations

type calculationRequest struct {
	CategoryID  *uuid.UUID             `json:"category_id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Tags        []string               `json:"tags"`
	Definition  calculation.Definition `json:"definition"`
}

func (r calculationRequest) toEntity(id uuid.UUID) *entity.Calculation {
	return &entity.Calculation{
		ID:          id,
		CategoryID:  r.CategoryID,
		Name:        r.Name,
		Description: r.Description,
		Tags:        r.Tags,
		Definition:  r.Definition,
	}
}

func (h *Handler) listCalculations(c *fiber.Ctx) error {
	limit, offset := paging(c)
	filter := entity.CalculationFilter{
		Search:     c.Query("q"),
		ActiveOnly: c.QueryBool("active", false),
	}
	if raw := c.Query("category_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return badRequest(c, "invalid category_id")
		}
		filter.CategoryID = &id
	}

	calcs, total, err := h.service.List(c.UserContext(), filter, limit, offset)
	if err != nil {
		return h.writeError(c, err)
	}
	if calcs == nil {
		calcs = []*entity.Calculation{}
	}
	return c.JSON(fiber.Map{
		"data":   calcs,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *Handler) getCalculation(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	calc, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(calc)
}

func (h *Handler) createCalculation(c *fiber.Ctx) error {
	var req calculationRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	result, err := h.service.Create(c.UserContext(), req.toEntity(uuid.Nil))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *Handler) updateCalculation(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req calculationRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	result, err := h.service.Update(c.UserContext(), req.toEntity(id))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(result)
}

func (h *Handler) deleteCalculation(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return h.writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type inputsRequest struct {
	Inputs map[string]interface{} `json:"inputs"`
}

// stringInputs accepts form values sent as strings or as JSON numbers
func stringInputs(raw map[string]interface{}) map[string]string {
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			out[k] = val
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			if val {
				out[k] = "1"
			} else {
				out[k] = "0"
			}
		}
	}
	return out
}

func (h *Handler) calculate(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req inputsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	result, err := h.service.Calculate(c.UserContext(), id, stringInputs(req.Inputs))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(result)
}

func (h *Handler) preview(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req inputsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	previews, err := h.service.Preview(c.UserContext(), id, stringInputs(req.Inputs))
	if err != nil {
		return h.writeError(c, err)
	}
	data := make([]fiber.Map, len(previews))
	for i, p := range previews {
		data[i] = fiber.Map{"name": p.Name, "unit": p.Unit, "preview": p.Text}
	}
	return c.JSON(fiber.Map{"data": data})
}

// Logs

func (h *Handler) listLogs(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	limit, offset := paging(c)
	logs, err := h.service.ListLogs(c.UserContext(), id, limit, offset)
	if err != nil {
		return h.writeError(c, err)
	}
	if logs == nil {
		logs = []*entity.CalculationLog{}
	}
	return c.JSON(fiber.Map{"data": logs, "limit": limit, "offset": offset})
}

func (h *Handler) clearLogs(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	deleted, err := h.service.ClearLogs(c.UserContext(), id)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(fiber.Map{"deleted": deleted})
}

func (h *Handler) deleteLog(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	if err := h.service.DeleteLog(c.UserContext(), id); err != nil {
		return h.writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Ad-hoc formulas

type formulaRequest struct {
	Expression string             `json:"expression"`
	Parameters []string           `json:"parameters"`
	Variables  map[string]float64 `json:"variables"`
	Values     map[string]string  `json:"values"`
}

func (h *Handler) parseFormulaRequest(c *fiber.Ctx) (*formulaRequest, error) {
	var req formulaRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, badRequest(c, "invalid body")
	}
	if strings.TrimSpace(req.Expression) == "" {
		return nil, badRequest(c, "expression is required")
	}
	return &req, nil
}

func (h *Handler) validateFormula(c *fiber.Ctx) error {
	req, err := h.parseFormulaRequest(c)
	if req == nil {
		return err
	}
	report, err := h.service.ValidateExpression(req.Expression, req.Parameters)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(fiber.Map{"valid": true, "variables": report.Variables, "undeclared": report.Undeclared})
}

func (h *Handler) evaluateFormula(c *fiber.Ctx) error {
	req, err := h.parseFormulaRequest(c)
	if req == nil {
		return err
	}
	value, err := h.service.EvaluateExpression(req.Expression, req.Variables)
	if err != nil {
		return h.writeError(c, err)
	}
	body := fiber.Map{"formatted": formula.FormatNumber(value)}
	if !math.IsInf(value, 0) && !math.IsNaN(value) {
		body["value"] = value
	}
	return c.JSON(body)
}

func (h *Handler) previewFormula(c *fiber.Ctx) error {
	req, err := h.parseFormulaRequest(c)
	if req == nil {
		return err
	}
	text, err := h.service.PreviewExpression(req.Expression, req.Values)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(fiber.Map{"preview": text})
}

func (h *Handler) listFunctions(c *fiber.Ctx) error {
	specs := formula.Functions()
	functions := make([]fiber.Map, len(specs))
	for i, f := range specs {
		functions[i] = fiber.Map{
			"name":        f.Name,
			"signature":   f.Signature(),
			"description": f.Description,
		}
	}
	return c.JSON(fiber.Map{
		"functions": functions,
		"constants": formula.Constants(),
		"operators": []string{"+", "-", "*", "/", "%", "^"},
	})
}

// Revalidation jobs

func (h *Handler) revalidate(c *fiber.Ctx) error {
	job, err := h.pool.Enqueue(c.UserContext(), "api")
	if err != nil {
		return h.writeError(c, err)
	}

	if h.inlineJobs {
		h.pool.Start(h.jobCtx, job.ID)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"job_id":  job.ID,
		"message": "Revalidation queued",
		"status":  job.Status,
	})
}

func (h *Handler) listJobs(c *fiber.Ctx) error {
	jobs, err := h.jobs.ListRecent(c.UserContext(), 20)
	if err != nil {
		return h.writeError(c, err)
	}
	if jobs == nil {
		jobs = []*entity.BatchJob{}
	}
	return c.JSON(fiber.Map{"data": jobs})
}

func (h *Handler) getJob(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	job, err := h.jobs.GetByID(c.UserContext(), id)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"job":      job,
		"progress": job.Progress(),
	})
}
