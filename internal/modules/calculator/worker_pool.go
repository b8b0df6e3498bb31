package calculator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ilramdhan/farmcalc/internal/domain/entity"
	"github.com/ilramdhan/farmcalc/internal/domain/repository"
)

// ErrJobNotPending is returned by Run when another consumer already took the job
var ErrJobNotPending = errors.New("job is not pending")

// WorkerPool re-validates the whole catalogue with a bounded number of workers
type WorkerPool struct {
	service     *Service
	calcRepo    repository.CalculationRepository
	jobRepo     repository.BatchJobRepository
	workerCount int
	batchSize   int
	logger      *slog.Logger
	inflight    sync.WaitGroup // jobs started with Start
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(
	service *Service,
	calcRepo repository.CalculationRepository,
	jobRepo repository.BatchJobRepository,
	workerCount, batchSize int,
	logger *slog.Logger,
) *WorkerPool {
	if workerCount < 1 {
		workerCount = 1
	}
	if batchSize < 1 {
		batchSize = 100
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &WorkerPool{
		service:     service,
		calcRepo:    calcRepo,
		jobRepo:     jobRepo,
		workerCount: workerCount,
		batchSize:   batchSize,
		logger:      logger,
	}
}

// Enqueue creates a pending revalidation job
func (wp *WorkerPool) Enqueue(ctx context.Context, requestedBy string) (*entity.BatchJob, error) {
	job := &entity.BatchJob{
		ID:        uuid.New(),
		JobType:   entity.JobTypeRevalidate,
		Status:    entity.JobStatusPending,
		Metadata:  map[string]interface{}{"requested_by": requestedBy},
		CreatedAt: time.Now(),
	}
	if err := wp.jobRepo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	return job, nil
}

// Run claims a pending job, executes it and records its failure on the job
// itself. A job that is no longer pending is left alone with ErrJobNotPending.
func (wp *WorkerPool) Run(ctx context.Context, jobID uuid.UUID) error {
	claimed, err := wp.jobRepo.Claim(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to claim job: %w", err)
	}
	if !claimed {
		wp.logger.Info("job already taken", "job", jobID)
		return ErrJobNotPending
	}

	start := time.Now()
	if err := wp.RevalidateAll(ctx, jobID); err != nil {
		wp.logger.Error("revalidation failed", "job", jobID, "error", err)
		if ferr := wp.jobRepo.Fail(context.WithoutCancel(ctx), jobID, err.Error()); ferr != nil {
			wp.logger.Error("failed to mark job failed", "job", jobID, "error", ferr)
		}
		return err
	}
	wp.logger.Info("revalidation finished", "job", jobID, "elapsed", time.Since(start))
	return nil
}

// Start runs a job in the background. Wait blocks until every started job
// has returned; cancelling ctx makes them stop and record FAILED.
func (wp *WorkerPool) Start(ctx context.Context, jobID uuid.UUID) {
	wp.inflight.Add(1)
	go func() {
		defer wp.inflight.Done()
		_ = wp.Run(ctx, jobID)
	}()
}

// Wait blocks until jobs launched with Start have finished
func (wp *WorkerPool) Wait() {
	wp.inflight.Wait()
}

// RevalidateAll pages through every calculation id, re-validates each
// definition and marks invalid calculations inactive with their error.
func (wp *WorkerPool) RevalidateAll(ctx context.Context, jobID uuid.UUID) error {
	totalCount, err := wp.calcRepo.Count(ctx, entity.CalculationFilter{})
	if err != nil {
		return fmt.Errorf("failed to count calculations: %w", err)
	}

	if err := wp.jobRepo.UpdateStatus(ctx, jobID, entity.JobStatusRunning, totalCount, 0, 0); err != nil {
		return fmt.Errorf("failed to start job: %w", err)
	}

	idChan := make(chan uuid.UUID, wp.batchSize*2)
	resultChan := make(chan *entity.ValidationResult, wp.batchSize*2)

	var processedCount, failedCount, invalidCount int64

	g, gctx := errgroup.WithContext(ctx)

	// Dispatcher: fetch IDs and send to workers
	g.Go(func() error {
		defer close(idChan)
		offset := 0
		for {
			if err := gctx.Err(); err != nil {
				return err
			}
			ids, err := wp.calcRepo.ListIDs(gctx, wp.batchSize, offset)
			if err != nil {
				return fmt.Errorf("failed to list calculation IDs: %w", err)
			}
			if len(ids) == 0 {
				return nil
			}
			for _, id := range ids {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case idChan <- id:
				}
			}
			offset += len(ids)
		}
	})

	var workers sync.WaitGroup
	for i := 0; i < wp.workerCount; i++ {
		workers.Add(1)
		workerID := i
		g.Go(func() error {
			defer workers.Done()
			for id := range idChan {
				calc, err := wp.calcRepo.GetByID(gctx, id)
				if err != nil {
					wp.logger.Warn("failed to load calculation", "worker", workerID, "id", id, "error", err)
					atomic.AddInt64(&failedCount, 1)
					continue
				}
				result := wp.service.Check(calc)
				if !result.IsActive {
					atomic.AddInt64(&invalidCount, 1)
					wp.logger.Info("calculation deactivated", "id", id, "name", calc.Name, "error", result.ValidationError)
				}
				select {
				case <-gctx.Done():
					return gctx.Err()
				case resultChan <- result:
				}
			}
			return nil
		})
	}

	go func() {
		workers.Wait()
		close(resultChan)
	}()

	// Collector: buffer outcomes and write them in batches
	var collectErr error
	buffer := make([]*entity.ValidationResult, 0, wp.batchSize)
	flush := func() {
		if len(buffer) == 0 || collectErr != nil {
			return
		}
		if _, err := wp.calcRepo.UpdateValidationBatch(ctx, buffer); err != nil {
			collectErr = fmt.Errorf("failed to store validation batch: %w", err)
			return
		}
		atomic.AddInt64(&processedCount, int64(len(buffer)))
		if err := wp.jobRepo.UpdateProgress(ctx, jobID, int64(len(buffer)), 0); err != nil {
			wp.logger.Warn("failed to update job progress", "job", jobID, "error", err)
		}
		buffer = buffer[:0]
	}
	for result := range resultChan {
		buffer = append(buffer, result)
		if len(buffer) >= wp.batchSize {
			flush()
		}
	}
	flush()

	if err := g.Wait(); err != nil {
		return err
	}
	if collectErr != nil {
		return collectErr
	}

	if err := wp.jobRepo.UpdateStatus(ctx, jobID, entity.JobStatusRunning, totalCount, processedCount, failedCount); err != nil {
		return fmt.Errorf("failed to record job progress: %w", err)
	}
	if err := wp.jobRepo.Complete(ctx, jobID); err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}

	wp.logger.Info("revalidation complete",
		"job", jobID, "processed", processedCount, "invalid", invalidCount, "failed", failedCount, "total", totalCount)
	return nil
}

// ProcessPending runs pending jobs in creation order and returns how many
// it executed. Jobs claimed by another consumer meanwhile are skipped.
func (wp *WorkerPool) ProcessPending(ctx context.Context, limit int) (int, error) {
	jobs, err := wp.jobRepo.ListPending(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending jobs: %w", err)
	}
	ran := 0
	for _, job := range jobs {
		wp.logger.Info("found pending job", "job", job.ID, "type", job.JobType)
		err := wp.Run(ctx, job.ID)
		if errors.Is(err, ErrJobNotPending) {
			continue
		}
		if err != nil && ctx.Err() != nil {
			return ran, ctx.Err()
		}
		ran++
	}
	return ran, nil
}
