package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ilramdhan/farmcalc/internal/domain/entity"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("record not found")

// CategoryRepository defines the interface for category operations
type CategoryRepository interface {
	// Create creates a new category
	Create(ctx context.Context, category *entity.Category) error
	// CreateBatch creates multiple categories using COPY protocol
	CreateBatch(ctx context.Context, categories []*entity.Category) (int64, error)
	// GetByID retrieves a category by ID
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Category, error)
	// List retrieves all categories ordered by name
	List(ctx context.Context) ([]*entity.Category, error)
}

// CalculationRepository defines the interface for calculation operations
type CalculationRepository interface {
	// Create creates a new calculation
	Create(ctx context.Context, calc *entity.Calculation) error
	// CreateBatch creates multiple calculations using COPY protocol
	CreateBatch(ctx context.Context, calcs []*entity.Calculation) (int64, error)
	// GetByID retrieves a calculation by ID
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Calculation, error)
	// List retrieves calculations with pagination
	List(ctx context.Context, filter entity.CalculationFilter, limit, offset int) ([]*entity.Calculation, error)
	// Count returns the number of calculations matching filter
	Count(ctx context.Context, filter entity.CalculationFilter) (int64, error)
	// ListIDs retrieves calculation IDs with pagination (for batch processing)
	ListIDs(ctx context.Context, limit, offset int) ([]uuid.UUID, error)
	// Update replaces a calculation's editable fields
	Update(ctx context.Context, calc *entity.Calculation) error
	// Delete deletes a calculation and its logs
	Delete(ctx context.Context, id uuid.UUID) error
	// IncrementViews bumps the view counter
	IncrementViews(ctx context.Context, id uuid.UUID) error
	// UpdateValidationBatch records revalidation outcomes using COPY protocol
	UpdateValidationBatch(ctx context.Context, results []*entity.ValidationResult) (int64, error)
}

// CalculationLogRepository defines the interface for submission log operations
type CalculationLogRepository interface {
	// Create stores a submission log
	Create(ctx context.Context, entry *entity.CalculationLog) error
	// ListByCalculation retrieves the most recent logs of a calculation
	ListByCalculation(ctx context.Context, calculationID uuid.UUID, limit, offset int) ([]*entity.CalculationLog, error)
	// Delete deletes a single log
	Delete(ctx context.Context, id uuid.UUID) error
	// DeleteByCalculation deletes every log of a calculation
	DeleteByCalculation(ctx context.Context, calculationID uuid.UUID) (int64, error)
}

// BatchJobRepository defines the interface for batch job operations
type BatchJobRepository interface {
	// Create creates a new batch job
	Create(ctx context.Context, job *entity.BatchJob) error
	// GetByID retrieves a job by ID
	GetByID(ctx context.Context, id uuid.UUID) (*entity.BatchJob, error)
	// Claim moves a pending job to RUNNING. It reports false when the job was
	// no longer pending, i.e. another consumer took it first.
	Claim(ctx context.Context, id uuid.UUID) (bool, error)
	// UpdateStatus updates a job's status and progress
	UpdateStatus(ctx context.Context, id uuid.UUID, status entity.JobStatus, total, processed, failed int64) error
	// UpdateProgress updates a job's progress atomically
	UpdateProgress(ctx context.Context, id uuid.UUID, processed, failed int64) error
	// Complete marks a job as completed
	Complete(ctx context.Context, id uuid.UUID) error
	// Fail marks a job as failed
	Fail(ctx context.Context, id uuid.UUID, errorMsg string) error
	// ListRecent retrieves recent jobs
	ListRecent(ctx context.Context, limit int) ([]*entity.BatchJob, error)
	// ListPending retrieves pending jobs, oldest first
	ListPending(ctx context.Context, limit int) ([]*entity.BatchJob, error)
}
