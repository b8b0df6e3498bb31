package calculator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ilramdhan/farmcalc/internal/domain/entity"
	"github.com/ilramdhan/farmcalc/internal/domain/repository"
	"github.com/ilramdhan/farmcalc/pkg/calculation"
	"github.com/ilramdhan/farmcalc/pkg/formula"
)

var (
	// ErrInvalidRequest rejects malformed requests that never reach the formula engine
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInactive rejects calculating a calculation that failed revalidation
	ErrInactive = errors.New("calculation is inactive")
)

// Options tunes the service
type Options struct {
	StrictInputs   bool
	LogSubmissions bool
}

// Service handles calculator definitions and submissions
type Service struct {
	calcRepo     repository.CalculationRepository
	categoryRepo repository.CategoryRepository
	logRepo      repository.CalculationLogRepository
	parser       *formula.Parser
	normalized   sync.Map // version hash -> []calculation.NormalizedResult
	opts         Options
	logger       *slog.Logger
}

// NewService creates a new calculator service. A nil logger discards output.
func NewService(
	calcRepo repository.CalculationRepository,
	categoryRepo repository.CategoryRepository,
	logRepo repository.CalculationLogRepository,
	opts Options,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		calcRepo:     calcRepo,
		categoryRepo: categoryRepo,
		logRepo:      logRepo,
		parser:       formula.NewParser(),
		opts:         opts,
		logger:       logger,
	}
}

// VersionHash fingerprints a definition for change detection
func VersionHash(def calculation.Definition) string {
	data, _ := json.Marshal(def)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// SaveResult is a stored calculation plus the authoring warnings it produced
type SaveResult struct {
	Calculation         *entity.Calculation `json:"calculation"`
	UndeclaredVariables []string            `json:"undeclared_variables,omitempty"`
	UnusedParameters    []string            `json:"unused_parameters,omitempty"`
	RenamedParameters   map[string]string   `json:"renamed_parameters,omitempty"`
}

// Create validates and stores a new calculation
func (s *Service) Create(ctx context.Context, calc *entity.Calculation) (*SaveResult, error) {
	result, err := s.prepare(ctx, calc)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	calc.ID = uuid.New()
	calc.ViewCount = 0
	calc.CreatedAt = now
	calc.UpdatedAt = now
	if err := s.calcRepo.Create(ctx, calc); err != nil {
		return nil, fmt.Errorf("failed to create calculation: %w", err)
	}
	s.logger.Info("calculation created", "id", calc.ID, "name", calc.Name, "results", len(calc.Definition.Results))
	return result, nil
}

// Update validates and replaces an existing calculation
func (s *Service) Update(ctx context.Context, calc *entity.Calculation) (*SaveResult, error) {
	existing, err := s.calcRepo.GetByID(ctx, calc.ID)
	if err != nil {
		return nil, err
	}
	result, err := s.prepare(ctx, calc)
	if err != nil {
		return nil, err
	}
	calc.CreatedAt = existing.CreatedAt
	calc.ViewCount = existing.ViewCount
	calc.UpdatedAt = time.Now()
	if err := s.calcRepo.Update(ctx, calc); err != nil {
		return nil, fmt.Errorf("failed to update calculation: %w", err)
	}
	s.logger.Info("calculation updated", "id", calc.ID, "version", calc.VersionHash[:12])
	return result, nil
}

// prepare migrates multi-word parameter names, validates the definition and
// stamps the version hash. Malformed definitions are never stored.
func (s *Service) prepare(ctx context.Context, calc *entity.Calculation) (*SaveResult, error) {
	calc.Name = strings.TrimSpace(calc.Name)
	if calc.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidRequest)
	}
	if calc.CategoryID != nil {
		if _, err := s.categoryRepo.GetByID(ctx, *calc.CategoryID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("%w: unknown category %s", ErrInvalidRequest, calc.CategoryID)
			}
			return nil, err
		}
	}

	def, renamed := calculation.MigrateNames(calc.Definition)
	if len(renamed) > 0 {
		s.logger.Info("parameter names migrated", "name", calc.Name, "renamed", renamed)
	}

	report, err := calculation.Validate(def, s.parser)
	if err != nil {
		return nil, err
	}

	calc.Definition = def
	calc.VersionHash = VersionHash(def)
	calc.IsActive = true
	calc.ValidationError = ""
	s.normalized.Store(calc.VersionHash, report.Results)

	result := &SaveResult{
		Calculation:         calc,
		UndeclaredVariables: report.UndeclaredVariables,
		UnusedParameters:    report.UnusedParameters,
	}
	if len(renamed) > 0 {
		result.RenamedParameters = renamed
	}
	return result, nil
}

// Get retrieves a calculation
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*entity.Calculation, error) {
	return s.calcRepo.GetByID(ctx, id)
}

// List retrieves a page of calculations and the total matching count
func (s *Service) List(ctx context.Context, filter entity.CalculationFilter, limit, offset int) ([]*entity.Calculation, int64, error) {
	calcs, err := s.calcRepo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list calculations: %w", err)
	}
	total, err := s.calcRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count calculations: %w", err)
	}
	return calcs, total, nil
}

// Delete removes a calculation and its submission logs
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.logRepo.DeleteByCalculation(ctx, id); err != nil {
		return fmt.Errorf("failed to delete logs: %w", err)
	}
	return s.calcRepo.Delete(ctx, id)
}

// ListCategories retrieves all categories
func (s *Service) ListCategories(ctx context.Context) ([]*entity.Category, error) {
	return s.categoryRepo.List(ctx)
}

// CreateCategory stores a new category
func (s *Service) CreateCategory(ctx context.Context, category *entity.Category) error {
	category.Name = strings.TrimSpace(category.Name)
	if category.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRequest)
	}
	category.ID = uuid.New()
	category.CreatedAt = time.Now()
	return s.categoryRepo.Create(ctx, category)
}

// ResultValue is one evaluated result as returned to callers
type ResultValue struct {
	Name        string   `json:"name"`
	Unit        string   `json:"unit,omitempty"`
	Description string   `json:"description,omitempty"`
	Value       *float64 `json:"value"`
	Formatted   string   `json:"formatted,omitempty"`
	Error       string   `json:"error,omitempty"`
	Kind        string   `json:"kind,omitempty"`
}

// CalculationResult is the outcome of one submission
type CalculationResult struct {
	CalculationID uuid.UUID     `json:"calculation_id"`
	Name          string        `json:"name"`
	Results       []ResultValue `json:"results"`
}

// Calculate evaluates every result of a stored calculation against form
// inputs. Each result succeeds or fails on its own.
func (s *Service) Calculate(ctx context.Context, id uuid.UUID, inputs map[string]string) (*CalculationResult, error) {
	calc, results, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	env, err := calculation.BuildEnvironment(calc.Definition.Parameters, inputs, calculation.EnvOptions{Strict: s.opts.StrictInputs})
	if err != nil {
		return nil, err
	}

	outcomes := calculation.Evaluate(results, env)
	out := &CalculationResult{CalculationID: calc.ID, Name: calc.Name, Results: make([]ResultValue, len(outcomes))}
	for i, o := range outcomes {
		out.Results[i] = toResultValue(o)
	}

	if err := s.calcRepo.IncrementViews(ctx, calc.ID); err != nil {
		s.logger.Warn("failed to increment views", "id", calc.ID, "error", err)
	}
	if s.opts.LogSubmissions {
		s.logSubmission(ctx, calc.ID, inputs, out.Results)
	}
	return out, nil
}

// Preview renders every result of a stored calculation with the submitted
// values substituted for the parameter names.
func (s *Service) Preview(ctx context.Context, id uuid.UUID, inputs map[string]string) ([]calculation.Preview, error) {
	calc, results, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return calculation.PreviewAll(results, calculation.RawValues(calc.Definition.Parameters, inputs)), nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*entity.Calculation, []calculation.NormalizedResult, error) {
	calc, err := s.calcRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !calc.IsActive {
		return nil, nil, fmt.Errorf("%w: %s", ErrInactive, calc.ValidationError)
	}
	results, err := s.normalize(calc)
	if err != nil {
		return nil, nil, err
	}
	return calc, results, nil
}

// normalize parses a calculation's results once per definition version
func (s *Service) normalize(calc *entity.Calculation) ([]calculation.NormalizedResult, error) {
	hash := calc.VersionHash
	if hash == "" {
		hash = VersionHash(calc.Definition)
	}
	if cached, ok := s.normalized.Load(hash); ok {
		return cached.([]calculation.NormalizedResult), nil
	}
	results, err := calculation.Normalize(calc.Definition, s.parser)
	if err != nil {
		return nil, err
	}
	s.normalized.Store(hash, results)
	return results, nil
}

func (s *Service) logSubmission(ctx context.Context, calcID uuid.UUID, inputs map[string]string, values []ResultValue) {
	entry := &entity.CalculationLog{
		ID:            uuid.New(),
		CalculationID: calcID,
		Inputs:        inputs,
		Results:       make([]entity.LogResult, len(values)),
		CreatedAt:     time.Now(),
	}
	if entry.Inputs == nil {
		entry.Inputs = map[string]string{}
	}
	for i, v := range values {
		entry.Results[i] = entity.LogResult{Name: v.Name, Unit: v.Unit, Value: v.Value, Error: v.Error, Kind: v.Kind}
	}
	if err := s.logRepo.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to log submission", "id", calcID, "error", err)
	}
}

func toResultValue(o calculation.Outcome) ResultValue {
	rv := ResultValue{Name: o.Name, Unit: o.Unit, Description: o.Description}
	if o.Err != nil {
		rv.Error = o.Err.Error()
		rv.Kind = formula.Kind(o.Err)
		return rv
	}
	rv.Formatted = formula.FormatNumber(o.Value)
	if !math.IsInf(o.Value, 0) && !math.IsNaN(o.Value) {
		v := o.Value
		rv.Value = &v
	}
	return rv
}

// ExpressionReport describes an ad-hoc formula
type ExpressionReport struct {
	Variables  []string `json:"variables"`
	Undeclared []string `json:"undeclared,omitempty"`
}

// ValidateExpression checks that expression parses and lists the variables it
// references that are not in declared.
func (s *Service) ValidateExpression(expression string, declared []string) (*ExpressionReport, error) {
	expr, err := s.parser.Parse(expression)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(declared))
	for _, d := range declared {
		known[d] = true
	}
	report := &ExpressionReport{Variables: expr.Variables()}
	for _, v := range report.Variables {
		if !known[v] {
			report.Undeclared = append(report.Undeclared, v)
		}
	}
	if report.Variables == nil {
		report.Variables = []string{}
	}
	return report, nil
}

// EvaluateExpression evaluates an ad-hoc formula against numeric variables
func (s *Service) EvaluateExpression(expression string, vars map[string]float64) (float64, error) {
	return s.parser.Evaluate(expression, formula.Env(vars))
}

// PreviewExpression renders an ad-hoc formula with vars substituted
func (s *Service) PreviewExpression(expression string, vars map[string]string) (string, error) {
	return s.parser.Preview(expression, vars)
}

// ListLogs retrieves recent submissions of a calculation
func (s *Service) ListLogs(ctx context.Context, calcID uuid.UUID, limit, offset int) ([]*entity.CalculationLog, error) {
	if _, err := s.calcRepo.GetByID(ctx, calcID); err != nil {
		return nil, err
	}
	return s.logRepo.ListByCalculation(ctx, calcID, limit, offset)
}

// DeleteLog removes one submission log
func (s *Service) DeleteLog(ctx context.Context, id uuid.UUID) error {
	return s.logRepo.Delete(ctx, id)
}

// ClearLogs removes every submission log of a calculation
func (s *Service) ClearLogs(ctx context.Context, calcID uuid.UUID) (int64, error) {
	return s.logRepo.DeleteByCalculation(ctx, calcID)
}

// Check re-validates a stored definition without touching the store
func (s *Service) Check(calc *entity.Calculation) *entity.ValidationResult {
	result := &entity.ValidationResult{
		CalculationID: calc.ID,
		IsActive:      true,
		VersionHash:   calc.VersionHash,
		CheckedAt:     time.Now(),
	}
	if _, err := calculation.Validate(calc.Definition, s.parser); err != nil {
		result.IsActive = false
		result.ValidationError = err.Error()
	}
	return result
}
