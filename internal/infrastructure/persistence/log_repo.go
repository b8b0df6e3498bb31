package persistence

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ilramdhan/farmcalc/internal/domain/entity"
	"github.com/ilramdhan/farmcalc/internal/domain/repository"
)

// calculationLogRepo implements repository.CalculationLogRepository
type calculationLogRepo struct {
	pool *pgxpool.Pool
}

// NewCalculationLogRepository creates a new submission log repository
func NewCalculationLogRepository(pool *pgxpool.Pool) repository.CalculationLogRepository {
	return &calculationLogRepo{pool: pool}
}

func (r *calculationLogRepo) Create(ctx context.Context, entry *entity.CalculationLog) error {
	query := `
		INSERT INTO calculation_logs (id, calculation_id, inputs, results, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	inputs, err := json.Marshal(entry.Inputs)
	if err != nil {
		return fmt.Errorf("failed to encode inputs: %w", err)
	}
	results, err := json.Marshal(entry.Results)
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	_, err = r.pool.Exec(ctx, query, entry.ID, entry.CalculationID, inputs, results, entry.CreatedAt)
	return err
}

func (r *calculationLogRepo) ListByCalculation(ctx context.Context, calculationID uuid.UUID, limit, offset int) ([]*entity.CalculationLog, error) {
	query := `
		SELECT id, calculation_id, inputs, results, created_at
		FROM calculation_logs WHERE calculation_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, calculationID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*entity.CalculationLog
	for rows.Next() {
		var (
			e               entity.CalculationLog
			inputs, results []byte
		)
		if err := rows.Scan(&e.ID, &e.CalculationID, &inputs, &results, &e.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(inputs, &e.Inputs); err != nil {
			return nil, fmt.Errorf("failed to decode inputs of log %s: %w", e.ID, err)
		}
		if err := json.Unmarshal(results, &e.Results); err != nil {
			return nil, fmt.Errorf("failed to decode results of log %s: %w", e.ID, err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func (r *calculationLogRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM calculation_logs WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *calculationLogRepo) DeleteByCalculation(ctx context.Context, calculationID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, "DELETE FROM calculation_logs WHERE calculation_id = $1", calculationID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
