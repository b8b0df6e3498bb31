package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/ilramdhan/farmcalc/internal/domain/repository"
	"github.com/ilramdhan/farmcalc/internal/modules/calculator"
	"github.com/ilramdhan/farmcalc/pkg/calculation"
	"github.com/ilramdhan/farmcalc/pkg/formula"
)

// writeError maps an error to a status code and a JSON body carrying the
// machine-readable kind, plus the offset or field when one is known.
func (h *Handler) writeError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	kind := formula.Kind(err)

	switch {
	case errors.Is(err, repository.ErrNotFound):
		status, kind = fiber.StatusNotFound, "not_found"
	case errors.Is(err, calculator.ErrInvalidRequest):
		status, kind = fiber.StatusBadRequest, "invalid_request"
	case errors.Is(err, calculator.ErrInactive):
		status, kind = fiber.StatusConflict, "inactive"
	case kind != "error":
		status = fiber.StatusUnprocessableEntity
	}

	if status == fiber.StatusInternalServerError {
		h.logger.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}

	body := fiber.Map{"error": err.Error(), "kind": kind}

	var (
		lexErr   *formula.LexError
		parseErr *formula.ParseError
		fieldErr *calculation.FieldError
	)
	if errors.As(err, &lexErr) {
		body["offset"] = lexErr.Offset
	} else if errors.As(err, &parseErr) {
		body["offset"] = parseErr.Offset
	}
	if errors.As(err, &fieldErr) {
		body["field"] = fieldErr.Field
	}
	return c.Status(status).JSON(body)
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg, "kind": "invalid_request"})
}
