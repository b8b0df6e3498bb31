package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ilramdhan/farmcalc/config"
	"github.com/ilramdhan/farmcalc/internal/api"
	"github.com/ilramdhan/farmcalc/internal/domain/repository"
	"github.com/ilramdhan/farmcalc/internal/infrastructure/memory"
	"github.com/ilramdhan/farmcalc/internal/infrastructure/persistence"
	"github.com/ilramdhan/farmcalc/internal/modules/calculator"
	"github.com/ilramdhan/farmcalc/pkg/database"
)

func main() {
	godotenv.Load()

	cfg := config.Load()
	ctx := context.Background()
	logger := cfg.App.NewLogger()

	var (
		categoryRepo repository.CategoryRepository
		calcRepo     repository.CalculationRepository
		logRepo      repository.CalculationLogRepository
		jobRepo      repository.BatchJobRepository
	)

	switch cfg.App.StorageDriver {
	case "memory":
		log.Println("Using in-memory storage; data is lost on restart")
		store := memory.NewStore()
		categoryRepo = store.Categories()
		calcRepo = store.Calculations()
		logRepo = store.Logs()
		jobRepo = store.Jobs()
	case "postgres":
		pool, err := database.NewPool(ctx, &cfg.Database)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer pool.Close()

		categoryRepo = persistence.NewCategoryRepository(pool)
		calcRepo = persistence.NewCalculationRepository(pool)
		logRepo = persistence.NewCalculationLogRepository(pool)
		jobRepo = persistence.NewBatchJobRepository(pool)
	default:
		log.Fatalf("Unknown storage driver %q", cfg.App.StorageDriver)
	}

	// In-memory storage cannot be shared with a separate worker process
	inline := cfg.Worker.Inline || cfg.App.StorageDriver == "memory"

	service := calculator.NewService(calcRepo, categoryRepo, logRepo, calculator.Options{
		StrictInputs:   cfg.Calculator.StrictInputs,
		LogSubmissions: cfg.Calculator.LogSubmissions,
	}, logger)
	workerPool := calculator.NewWorkerPool(service, calcRepo, jobRepo, cfg.Worker.Count, cfg.Worker.BatchSize, logger)

	jobCtx, cancelJobs := context.WithCancel(ctx)
	defer cancelJobs()

	app := api.NewApp(api.Config{
		Service:    service,
		Pool:       workerPool,
		Jobs:       jobRepo,
		InlineJobs: inline,
		JobContext: jobCtx,
		AccessLog:  true,
		Logger:     logger,
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		app.Shutdown()
	}()

	// Start server
	log.Printf("Starting API server on :%s (storage=%s, inline jobs=%t)", cfg.App.Port, cfg.App.StorageDriver, inline)
	if err := app.Listen(":" + cfg.App.Port); err != nil {
		log.Printf("Server stopped: %v", err)
	}

	// Interrupted jobs are marked FAILED instead of staying RUNNING
	cancelJobs()
	workerPool.Wait()
	log.Println("Background jobs stopped")
}
