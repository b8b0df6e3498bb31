package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ilramdhan/farmcalc/internal/domain/entity"
	"github.com/ilramdhan/farmcalc/internal/domain/repository"
)

// categoryRepo implements repository.CategoryRepository
type categoryRepo struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(pool *pgxpool.Pool) repository.CategoryRepository {
	return &categoryRepo{pool: pool}
}

func (r *categoryRepo) Create(ctx context.Context, category *entity.Category) error {
	query := `INSERT INTO categories (id, name, description, icon, created_at) VALUES ($1, $2, $3, $4, $5)`
	_, err := r.pool.Exec(ctx, query, category.ID, category.Name, category.Description, category.Icon, category.CreatedAt)
	return err
}

func (r *categoryRepo) CreateBatch(ctx context.Context, categories []*entity.Category) (int64, error) {
	columns := []string{"id", "name", "description", "icon", "created_at"}
	rows := make([][]interface{}, len(categories))
	for i, c := range categories {
		rows[i] = []interface{}{c.ID, c.Name, c.Description, c.Icon, c.CreatedAt}
	}
	copyCount, err := r.pool.CopyFrom(ctx, pgx.Identifier{"categories"}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("failed to copy categories: %w", err)
	}
	return copyCount, nil
}

func (r *categoryRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Category, error) {
	query := `SELECT id, name, description, icon, created_at FROM categories WHERE id = $1`
	var c entity.Category
	err := r.pool.QueryRow(ctx, query, id).Scan(&c.ID, &c.Name, &c.Description, &c.Icon, &c.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *categoryRepo) List(ctx context.Context) ([]*entity.Category, error) {
	query := `SELECT id, name, description, icon, created_at FROM categories ORDER BY name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []*entity.Category
	for rows.Next() {
		var c entity.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Icon, &c.CreatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, &c)
	}
	return categories, rows.Err()
}
