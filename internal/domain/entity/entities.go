package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/ilramdhan/farmcalc/pkg/calculation"
)

// Category groups calculations in the catalogue
type Category struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Icon        string    `json:"icon,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Calculation is a stored calculator: its parameters, results and formulas
type Calculation struct {
	ID              uuid.UUID              `json:"id"`
	CategoryID      *uuid.UUID             `json:"category_id,omitempty"`
	Name            string                 `json:"name"`
	Description     string                 `json:"description,omitempty"`
	Tags            []string               `json:"tags,omitempty"`
	Definition      calculation.Definition `json:"definition"` // stored as JSONB
	IsActive        bool                   `json:"is_active"`
	ValidationError string                 `json:"validation_error,omitempty"`
	ViewCount       int64                  `json:"view_count"`
	VersionHash     string                 `json:"version_hash,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// CalculationFilter narrows calculation listings
type CalculationFilter struct {
	CategoryID *uuid.UUID
	Search     string
	ActiveOnly bool
}

// ValidationResult is the revalidation outcome of one calculation
type ValidationResult struct {
	CalculationID   uuid.UUID `json:"calculation_id"`
	IsActive        bool      `json:"is_active"`
	ValidationError string    `json:"validation_error,omitempty"`
	VersionHash     string    `json:"version_hash"`
	CheckedAt       time.Time `json:"checked_at"`
}

// LogResult is one evaluated result as recorded in a submission log
type LogResult struct {
	Name  string   `json:"name"`
	Unit  string   `json:"unit,omitempty"`
	Value *float64 `json:"value"` // nil when the result failed or is not finite
	Error string   `json:"error,omitempty"`
	Kind  string   `json:"kind,omitempty"`
}

// CalculationLog records one form submission and what it produced
type CalculationLog struct {
	ID            uuid.UUID         `json:"id"`
	CalculationID uuid.UUID         `json:"calculation_id"`
	Inputs        map[string]string `json:"inputs"`
	Results       []LogResult       `json:"results"`
	CreatedAt     time.Time         `json:"created_at"`
}

// JobStatus represents the status of a batch job
type JobStatus string

const (
	JobStatusPending   JobStatus = "PENDING"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusFailed    JobStatus = "FAILED"
)

// JobType represents the type of batch job
type JobType string

const (
	// JobTypeRevalidate re-validates every stored calculation
	JobTypeRevalidate JobType = "REVALIDATE_ALL"
)

// BatchJob represents a background job over the whole catalogue
type BatchJob struct {
	ID               uuid.UUID              `json:"id"`
	JobType          JobType                `json:"job_type"`
	Status           JobStatus              `json:"status"`
	TotalRecords     int64                  `json:"total_records"`
	ProcessedRecords int64                  `json:"processed_records"`
	FailedRecords    int64                  `json:"failed_records"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
	ErrorMessage     string                 `json:"error_message,omitempty"`
	StartedAt        *time.Time             `json:"started_at,omitempty"`
	FinishedAt       *time.Time             `json:"finished_at,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
}

// Progress returns the progress percentage
func (b *BatchJob) Progress() float64 {
	if b.TotalRecords == 0 {
		return 0
	}
	return float64(b.ProcessedRecords) / float64(b.TotalRecords) * 100
}

// Finished reports whether the job reached a terminal status
func (b *BatchJob) Finished() bool {
	return b.Status == JobStatusCompleted || b.Status == JobStatusFailed
}
