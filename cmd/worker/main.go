package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ilramdhan/farmcalc/config"
	"github.com/ilramdhan/farmcalc/internal/infrastructure/persistence"
	"github.com/ilramdhan/farmcalc/internal/modules/calculator"
	"github.com/ilramdhan/farmcalc/pkg/database"
)

// pendingPerTick bounds how many queued jobs one poll picks up
const pendingPerTick = 10

func main() {
	godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	logger := cfg.App.NewLogger()

	log.Printf("Starting worker service with %d workers and batch size %d",
		cfg.Worker.Count, cfg.Worker.BatchSize)

	// Database connection
	pool, err := database.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Initialize repositories
	categoryRepo := persistence.NewCategoryRepository(pool)
	calcRepo := persistence.NewCalculationRepository(pool)
	logRepo := persistence.NewCalculationLogRepository(pool)
	jobRepo := persistence.NewBatchJobRepository(pool)

	service := calculator.NewService(calcRepo, categoryRepo, logRepo, calculator.Options{
		StrictInputs: cfg.Calculator.StrictInputs,
	}, logger)
	workerPool := calculator.NewWorkerPool(service, calcRepo, jobRepo, cfg.Worker.Count, cfg.Worker.BatchSize, logger)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// The API already runs every job it enqueues; polling too would race it
	if cfg.Worker.Inline {
		log.Println("WORKER_INLINE is enabled, jobs run inside the API. Worker idle.")
		<-quit
		log.Println("Shutting down worker service...")
		return
	}

	log.Printf("Worker service ready. Polling for jobs every %v...", cfg.Worker.PollInterval)

	ticker := time.NewTicker(cfg.Worker.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-quit:
			log.Println("Shutting down worker service...")
			cancel()
			return

		case <-ticker.C:
			startTime := time.Now()
			processed, err := workerPool.ProcessPending(ctx, pendingPerTick)
			if err != nil {
				log.Printf("Failed to process pending jobs: %v", err)
				continue
			}
			if processed > 0 {
				log.Printf("Processed %d job(s) in %v", processed, time.Since(startTime))
			}
		}
	}
}
