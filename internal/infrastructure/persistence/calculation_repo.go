package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ilramdhan/farmcalc/internal/domain/entity"
	"github.com/ilramdhan/farmcalc/internal/domain/repository"
)

const calculationColumns = `id, category_id, name, description, tags, definition, is_active, validation_error, view_count, version_hash, created_at, updated_at`

// calculationRepo implements repository.CalculationRepository
type calculationRepo struct {
	pool *pgxpool.Pool
}

// NewCalculationRepository creates a new calculation repository
func NewCalculationRepository(pool *pgxpool.Pool) repository.CalculationRepository {
	return &calculationRepo{pool: pool}
}

func (r *calculationRepo) Create(ctx context.Context, calc *entity.Calculation) error {
	query := `
		INSERT INTO calculations (id, category_id, name, description, tags, definition, is_active, validation_error, view_count, version_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	definition, err := json.Marshal(calc.Definition)
	if err != nil {
		return fmt.Errorf("failed to encode definition: %w", err)
	}
	_, err = r.pool.Exec(ctx, query,
		calc.ID, calc.CategoryID, calc.Name, calc.Description, tagsOrEmpty(calc.Tags), definition, calc.IsActive,
		calc.ValidationError, calc.ViewCount, calc.VersionHash, calc.CreatedAt, calc.UpdatedAt)
	return err
}

// CreateBatch uses PostgreSQL COPY protocol for high-performance bulk inserts
func (r *calculationRepo) CreateBatch(ctx context.Context, calcs []*entity.Calculation) (int64, error) {
	columns := []string{"id", "category_id", "name", "description", "tags", "definition", "is_active", "validation_error", "view_count", "version_hash", "created_at", "updated_at"}

	rows := make([][]interface{}, len(calcs))
	for i, c := range calcs {
		definition, err := json.Marshal(c.Definition)
		if err != nil {
			return 0, fmt.Errorf("failed to encode definition of %q: %w", c.Name, err)
		}
		rows[i] = []interface{}{
			c.ID, c.CategoryID, c.Name, c.Description, tagsOrEmpty(c.Tags), definition, c.IsActive,
			c.ValidationError, c.ViewCount, c.VersionHash, c.CreatedAt, c.UpdatedAt,
		}
	}

	copyCount, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"calculations"},
		columns,
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to copy calculations: %w", err)
	}

	return copyCount, nil
}

func (r *calculationRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Calculation, error) {
	query := `SELECT ` + calculationColumns + ` FROM calculations WHERE id = $1`
	calc, err := scanCalculation(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return calc, nil
}

func (r *calculationRepo) List(ctx context.Context, filter entity.CalculationFilter, limit, offset int) ([]*entity.Calculation, error) {
	where, args := filterClause(filter)
	args = append(args, limit, offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM calculations
		%s
		ORDER BY view_count DESC, name
		LIMIT $%d OFFSET $%d
	`, calculationColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var calcs []*entity.Calculation
	for rows.Next() {
		calc, err := scanCalculation(rows)
		if err != nil {
			return nil, err
		}
		calcs = append(calcs, calc)
	}
	return calcs, rows.Err()
}

func (r *calculationRepo) Count(ctx context.Context, filter entity.CalculationFilter) (int64, error) {
	where, args := filterClause(filter)
	var count int64
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM calculations "+where, args...).Scan(&count)
	return count, err
}

func (r *calculationRepo) ListIDs(ctx context.Context, limit, offset int) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, "SELECT id FROM calculations ORDER BY id LIMIT $1 OFFSET $2", limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *calculationRepo) Update(ctx context.Context, calc *entity.Calculation) error {
	query := `
		UPDATE calculations SET category_id = $2, name = $3, description = $4, tags = $5, definition = $6,
			is_active = $7, validation_error = $8, version_hash = $9, updated_at = $10
		WHERE id = $1
	`
	definition, err := json.Marshal(calc.Definition)
	if err != nil {
		return fmt.Errorf("failed to encode definition: %w", err)
	}
	tag, err := r.pool.Exec(ctx, query, calc.ID, calc.CategoryID, calc.Name, calc.Description, tagsOrEmpty(calc.Tags),
		definition, calc.IsActive, calc.ValidationError, calc.VersionHash, calc.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *calculationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM calculations WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *calculationRepo) IncrementViews(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "UPDATE calculations SET view_count = view_count + 1 WHERE id = $1", id)
	return err
}

// UpdateValidationBatch copies outcomes into a temp table and applies them in
// one UPDATE. Rows whose definition changed since the check are skipped.
func (r *calculationRepo) UpdateValidationBatch(ctx context.Context, results []*entity.ValidationResult) (int64, error) {
	if len(results) == 0 {
		return 0, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tempTable := fmt.Sprintf("temp_validation_%d", time.Now().UnixNano())
	_, err = tx.Exec(ctx, fmt.Sprintf(`
		CREATE TEMP TABLE %s (
			id UUID,
			is_active BOOLEAN,
			validation_error TEXT,
			version_hash VARCHAR(64),
			checked_at TIMESTAMPTZ
		) ON COMMIT DROP
	`, tempTable))
	if err != nil {
		return 0, fmt.Errorf("failed to create temp table: %w", err)
	}

	columns := []string{"id", "is_active", "validation_error", "version_hash", "checked_at"}
	rows := make([][]interface{}, len(results))
	for i, v := range results {
		rows[i] = []interface{}{v.CalculationID, v.IsActive, v.ValidationError, v.VersionHash, v.CheckedAt}
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{tempTable}, columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, fmt.Errorf("failed to copy to temp table: %w", err)
	}

	tag, err := tx.Exec(ctx, fmt.Sprintf(`
		UPDATE calculations c SET
			is_active = t.is_active,
			validation_error = t.validation_error,
			updated_at = t.checked_at
		FROM %s t
		WHERE c.id = t.id AND c.version_hash = t.version_hash
	`, tempTable))
	if err != nil {
		return 0, fmt.Errorf("failed to update from temp table: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return tag.RowsAffected(), nil
}

func scanCalculation(row pgx.Row) (*entity.Calculation, error) {
	var (
		calc       entity.Calculation
		definition []byte
	)
	err := row.Scan(&calc.ID, &calc.CategoryID, &calc.Name, &calc.Description, &calc.Tags, &definition,
		&calc.IsActive, &calc.ValidationError, &calc.ViewCount, &calc.VersionHash, &calc.CreatedAt, &calc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(definition, &calc.Definition); err != nil {
		return nil, fmt.Errorf("failed to decode definition of %s: %w", calc.ID, err)
	}
	return &calc, nil
}

func filterClause(filter entity.CalculationFilter) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		conds = append(conds, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+s+"%")
		conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}
	if filter.ActiveOnly {
		conds = append(conds, "is_active = true")
	}
	if len(conds) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	return err
}
