package persistence

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ilramdhan/farmcalc/internal/domain/entity"
	"github.com/ilramdhan/farmcalc/internal/domain/repository"
)

const batchJobColumns = `id, job_type, status, total_records, processed_records, failed_records, metadata, error_message, started_at, finished_at, created_at`

// batchJobRepo implements repository.BatchJobRepository
type batchJobRepo struct {
	pool *pgxpool.Pool
}

// NewBatchJobRepository creates a new batch job repository
func NewBatchJobRepository(pool *pgxpool.Pool) repository.BatchJobRepository {
	return &batchJobRepo{pool: pool}
}

func (r *batchJobRepo) Create(ctx context.Context, job *entity.BatchJob) error {
	query := `
		INSERT INTO batch_jobs (` + batchJobColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	metadata, err := json.Marshal(job.Metadata)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, query,
		job.ID, job.JobType, job.Status, job.TotalRecords, job.ProcessedRecords, job.FailedRecords, metadata, job.ErrorMessage, job.StartedAt, job.FinishedAt, job.CreatedAt)
	return err
}

func (r *batchJobRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.BatchJob, error) {
	query := `SELECT ` + batchJobColumns + ` FROM batch_jobs WHERE id = $1`
	job, err := scanBatchJob(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return job, nil
}

func (r *batchJobRepo) Claim(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE batch_jobs SET status = $2, started_at = NOW()
		WHERE id = $1 AND status = $3
	`
	tag, err := r.pool.Exec(ctx, query, id, entity.JobStatusRunning, entity.JobStatusPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *batchJobRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.JobStatus, total, processed, failed int64) error {
	query := `
		UPDATE batch_jobs SET status = $2, total_records = $3, processed_records = $4, failed_records = $5,
			started_at = COALESCE(started_at, NOW())
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id, status, total, processed, failed)
	return err
}

func (r *batchJobRepo) UpdateProgress(ctx context.Context, id uuid.UUID, processed, failed int64) error {
	query := `
		UPDATE batch_jobs SET processed_records = processed_records + $2, failed_records = failed_records + $3
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id, processed, failed)
	return err
}

func (r *batchJobRepo) Complete(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	query := `
		UPDATE batch_jobs SET status = $2, finished_at = $3
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id, entity.JobStatusCompleted, now)
	return err
}

func (r *batchJobRepo) Fail(ctx context.Context, id uuid.UUID, errorMsg string) error {
	now := time.Now()
	query := `
		UPDATE batch_jobs SET status = $2, error_message = $3, finished_at = $4
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id, entity.JobStatusFailed, errorMsg, now)
	return err
}

func (r *batchJobRepo) ListRecent(ctx context.Context, limit int) ([]*entity.BatchJob, error) {
	query := `SELECT ` + batchJobColumns + ` FROM batch_jobs ORDER BY created_at DESC LIMIT $1`
	return r.list(ctx, query, limit)
}

func (r *batchJobRepo) ListPending(ctx context.Context, limit int) ([]*entity.BatchJob, error) {
	query := `SELECT ` + batchJobColumns + ` FROM batch_jobs WHERE status = 'PENDING' ORDER BY created_at LIMIT $1`
	return r.list(ctx, query, limit)
}

func (r *batchJobRepo) list(ctx context.Context, query string, args ...interface{}) ([]*entity.BatchJob, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*entity.BatchJob
	for rows.Next() {
		job, err := scanBatchJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func scanBatchJob(row pgx.Row) (*entity.BatchJob, error) {
	var (
		job      entity.BatchJob
		metadata []byte
	)
	err := row.Scan(&job.ID, &job.JobType, &job.Status, &job.TotalRecords, &job.ProcessedRecords, &job.FailedRecords,
		&metadata, &job.ErrorMessage, &job.StartedAt, &job.FinishedAt, &job.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &job.Metadata); err != nil {
			return nil, err
		}
	}
	return &job, nil
}
