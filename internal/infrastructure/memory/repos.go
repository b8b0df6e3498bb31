// Package memory holds map-backed repositories for development and tests.
package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ilramdhan/farmcalc/internal/domain/entity"
	"github.com/ilramdhan/farmcalc/internal/domain/repository"
)

// Store is the shared state of the in-memory repositories.
type Store struct {
	mu           sync.RWMutex
	categories   map[uuid.UUID]*entity.Category
	calculations map[uuid.UUID]*entity.Calculation
	logs         map[uuid.UUID]*entity.CalculationLog
	jobs         map[uuid.UUID]*entity.BatchJob
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		categories:   make(map[uuid.UUID]*entity.Category),
		calculations: make(map[uuid.UUID]*entity.Calculation),
		logs:         make(map[uuid.UUID]*entity.CalculationLog),
		jobs:         make(map[uuid.UUID]*entity.BatchJob),
	}
}

// Categories returns the category repository view of the store
func (s *Store) Categories() repository.CategoryRepository { return (*categoryRepo)(s) }

// Calculations returns the calculation repository view of the store
func (s *Store) Calculations() repository.CalculationRepository { return (*calculationRepo)(s) }

// Logs returns the submission log repository view of the store
func (s *Store) Logs() repository.CalculationLogRepository { return (*logRepo)(s) }

// Jobs returns the batch job repository view of the store
func (s *Store) Jobs() repository.BatchJobRepository { return (*jobRepo)(s) }

type categoryRepo Store

func (r *categoryRepo) Create(_ context.Context, category *entity.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *category
	r.categories[c.ID] = &c
	return nil
}

func (r *categoryRepo) CreateBatch(ctx context.Context, categories []*entity.Category) (int64, error) {
	for _, c := range categories {
		if err := r.Create(ctx, c); err != nil {
			return 0, err
		}
	}
	return int64(len(categories)), nil
}

func (r *categoryRepo) GetByID(_ context.Context, id uuid.UUID) (*entity.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.categories[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *c
	return &out, nil
}

func (r *categoryRepo) List(_ context.Context) ([]*entity.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entity.Category, 0, len(r.categories))
	for _, c := range r.categories {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type calculationRepo Store

func (r *calculationRepo) Create(_ context.Context, calc *entity.Calculation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calculations[calc.ID] = cloneCalculation(calc)
	return nil
}

func (r *calculationRepo) CreateBatch(ctx context.Context, calcs []*entity.Calculation) (int64, error) {
	for _, c := range calcs {
		if err := r.Create(ctx, c); err != nil {
			return 0, err
		}
	}
	return int64(len(calcs)), nil
}

func (r *calculationRepo) GetByID(_ context.Context, id uuid.UUID) (*entity.Calculation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.calculations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneCalculation(c), nil
}

func (r *calculationRepo) matching(filter entity.CalculationFilter) []*entity.Calculation {
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	var out []*entity.Calculation
	for _, c := range r.calculations {
		if filter.CategoryID != nil && (c.CategoryID == nil || *c.CategoryID != *filter.CategoryID) {
			continue
		}
		if filter.ActiveOnly && !c.IsActive {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(c.Name), search) &&
			!strings.Contains(strings.ToLower(c.Description), search) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ViewCount != out[j].ViewCount {
			return out[i].ViewCount > out[j].ViewCount
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (r *calculationRepo) List(_ context.Context, filter entity.CalculationFilter, limit, offset int) ([]*entity.Calculation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := r.matching(filter)
	var out []*entity.Calculation
	for _, c := range page(all, limit, offset) {
		out = append(out, cloneCalculation(c))
	}
	return out, nil
}

func (r *calculationRepo) Count(_ context.Context, filter entity.CalculationFilter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.matching(filter))), nil
}

func (r *calculationRepo) ListIDs(_ context.Context, limit, offset int) ([]uuid.UUID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(r.calculations))
	for id := range r.calculations {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return page(ids, limit, offset), nil
}

func (r *calculationRepo) Update(_ context.Context, calc *entity.Calculation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.calculations[calc.ID]
	if !ok {
		return repository.ErrNotFound
	}
	c := cloneCalculation(calc)
	c.ViewCount = existing.ViewCount
	c.CreatedAt = existing.CreatedAt
	r.calculations[calc.ID] = c
	return nil
}

func (r *calculationRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.calculations[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.calculations, id)
	for logID, l := range r.logs {
		if l.CalculationID == id {
			delete(r.logs, logID)
		}
	}
	return nil
}

func (r *calculationRepo) IncrementViews(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.calculations[id]; ok {
		c.ViewCount++
	}
	return nil
}

func (r *calculationRepo) UpdateValidationBatch(_ context.Context, results []*entity.ValidationResult) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, v := range results {
		c, ok := r.calculations[v.CalculationID]
		if !ok || c.VersionHash != v.VersionHash {
			continue
		}
		c.IsActive = v.IsActive
		c.ValidationError = v.ValidationError
		c.UpdatedAt = v.CheckedAt
		n++
	}
	return n, nil
}

type logRepo Store

func (r *logRepo) Create(_ context.Context, entry *entity.CalculationLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := *entry
	r.logs[e.ID] = &e
	return nil
}

func (r *logRepo) ListByCalculation(_ context.Context, calculationID uuid.UUID, limit, offset int) ([]*entity.CalculationLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var all []*entity.CalculationLog
	for _, l := range r.logs {
		if l.CalculationID == calculationID {
			cp := *l
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return page(all, limit, offset), nil
}

func (r *logRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.logs[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.logs, id)
	return nil
}

func (r *logRepo) DeleteByCalculation(_ context.Context, calculationID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, l := range r.logs {
		if l.CalculationID == calculationID {
			delete(r.logs, id)
			n++
		}
	}
	return n, nil
}

type jobRepo Store

func (r *jobRepo) Create(_ context.Context, job *entity.BatchJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j := *job
	r.jobs[j.ID] = &j
	return nil
}

func (r *jobRepo) GetByID(_ context.Context, id uuid.UUID) (*entity.BatchJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *j
	return &out, nil
}

func (r *jobRepo) update(id uuid.UUID, fn func(j *entity.BatchJob)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(j)
	return nil
}

func (r *jobRepo) Claim(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	if j.Status != entity.JobStatusPending {
		return false, nil
	}
	now := time.Now()
	j.Status = entity.JobStatusRunning
	j.StartedAt = &now
	return true, nil
}

func (r *jobRepo) UpdateStatus(_ context.Context, id uuid.UUID, status entity.JobStatus, total, processed, failed int64) error {
	return r.update(id, func(j *entity.BatchJob) {
		j.Status = status
		j.TotalRecords = total
		j.ProcessedRecords = processed
		j.FailedRecords = failed
		if j.StartedAt == nil {
			now := time.Now()
			j.StartedAt = &now
		}
	})
}

func (r *jobRepo) UpdateProgress(_ context.Context, id uuid.UUID, processed, failed int64) error {
	return r.update(id, func(j *entity.BatchJob) {
		j.ProcessedRecords += processed
		j.FailedRecords += failed
	})
}

func (r *jobRepo) Complete(_ context.Context, id uuid.UUID) error {
	return r.update(id, func(j *entity.BatchJob) {
		now := time.Now()
		j.Status = entity.JobStatusCompleted
		j.FinishedAt = &now
	})
}

func (r *jobRepo) Fail(_ context.Context, id uuid.UUID, errorMsg string) error {
	return r.update(id, func(j *entity.BatchJob) {
		now := time.Now()
		j.Status = entity.JobStatusFailed
		j.ErrorMessage = errorMsg
		j.FinishedAt = &now
	})
}

func (r *jobRepo) sorted(keep func(j *entity.BatchJob) bool, newestFirst bool, limit int) []*entity.BatchJob {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*entity.BatchJob
	for _, j := range r.jobs {
		if keep(j) {
			cp := *j
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, k int) bool {
		if newestFirst {
			return out[i].CreatedAt.After(out[k].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[k].CreatedAt)
	})
	return page(out, limit, 0)
}

func (r *jobRepo) ListRecent(_ context.Context, limit int) ([]*entity.BatchJob, error) {
	return r.sorted(func(*entity.BatchJob) bool { return true }, true, limit), nil
}

func (r *jobRepo) ListPending(_ context.Context, limit int) ([]*entity.BatchJob, error) {
	return r.sorted(func(j *entity.BatchJob) bool { return j.Status == entity.JobStatusPending }, false, limit), nil
}

func cloneCalculation(c *entity.Calculation) *entity.Calculation {
	out := *c
	out.Tags = slices.Clone(c.Tags)
	out.Definition.Parameters = slices.Clone(c.Definition.Parameters)
	out.Definition.Results = slices.Clone(c.Definition.Results)
	out.Definition.AdditionalResults = slices.Clone(c.Definition.AdditionalResults)
	return &out
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
