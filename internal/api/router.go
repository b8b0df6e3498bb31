package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ilramdhan/farmcalc/internal/domain/repository"
	"github.com/ilramdhan/farmcalc/internal/modules/calculator"
)

// Config wires the router to its dependencies
type Config struct {
	Service *calculator.Service
	Pool    *calculator.WorkerPool
	Jobs    repository.BatchJobRepository
	// InlineJobs runs revalidation jobs in this process as soon as they are requested
	InlineJobs bool
	// JobContext bounds inline jobs; cancel it on shutdown and wait on the pool
	JobContext context.Context
	AccessLog  bool
	Logger     *slog.Logger
}

// Handler serves the calculator HTTP API
type Handler struct {
	service    *calculator.Service
	pool       *calculator.WorkerPool
	jobs       repository.BatchJobRepository
	inlineJobs bool
	jobCtx     context.Context
	logger     *slog.Logger
}

// NewApp builds the fiber app with middleware and every route registered
func NewApp(cfg Config) *fiber.App {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.JobContext == nil {
		cfg.JobContext = context.Background()
	}
	h := &Handler{
		service:    cfg.Service,
		pool:       cfg.Pool,
		jobs:       cfg.Jobs,
		inlineJobs: cfg.InlineJobs,
		jobCtx:     cfg.JobContext,
		logger:     cfg.Logger,
	}

	app := fiber.New(fiber.Config{
		AppName:               "Farm Calculator API",
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		IdleTimeout:           120 * time.Second,
		DisableStartupMessage: true,
	})

	// Middleware
	app.Use(recover.New())
	if cfg.AccessLog {
		app.Use(logger.New())
	}
	app.Use(cors.New())

	app.Get("/health", h.health)

	api := app.Group("/api/v1")

	api.Get("/categories", h.listCategories)
	api.Post("/categories", h.createCategory)

	api.Get("/calculations", h.listCalculations)
	api.Post("/calculations", h.createCalculation)
	api.Get("/calculations/:id", h.getCalculation)
	api.Put("/calculations/:id", h.updateCalculation)
	api.Delete("/calculations/:id", h.deleteCalculation)
	api.Post("/calculations/:id/calculate", h.calculate)
	api.Post("/calculations/:id/preview", h.preview)
	api.Get("/calculations/:id/logs", h.listLogs)
	api.Delete("/calculations/:id/logs", h.clearLogs)
	api.Delete("/logs/:id", h.deleteLog)

	api.Post("/formulas/validate", h.validateFormula)
	api.Post("/formulas/evaluate", h.evaluateFormula)
	api.Post("/formulas/preview", h.previewFormula)
	api.Get("/functions", h.listFunctions)

	api.Post("/revalidate", h.revalidate)
	api.Get("/jobs", h.listJobs)
	api.Get("/jobs/:id", h.getJob)

	return app
}
