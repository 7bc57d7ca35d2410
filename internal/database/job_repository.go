package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/flipscout/internal/domain"
)

// ErrJobNotFound is returned when a job lookup matches no row.
var ErrJobNotFound = errors.New("job not found")

// JobRepository handles database operations for scrape jobs.
type JobRepository struct {
	db *sqlx.DB
}

// NewJobRepository creates a new job repository.
func NewJobRepository(db *sqlx.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts a new job in RUNNING state. The row exists before any
// network call is made so a crash mid-scan is always observable.
func (r *JobRepository) Create(ctx context.Context, job *domain.ScrapeJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.Status = domain.JobStatusRunning

	query := `
		INSERT INTO scrape_jobs (id, owner_id, platform, keywords, category, location, min_price, max_price, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING started_at
	`

	err := r.db.QueryRowContext(ctx, query,
		job.ID, job.OwnerID, job.Platform,
		job.Keywords, job.Category, job.Location, job.MinPrice, job.MaxPrice,
		job.Status,
	).Scan(&job.StartedAt)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}

	return nil
}

// MarkCompleted transitions a job to COMPLETED with its aggregate counts.
func (r *JobRepository) MarkCompleted(ctx context.Context, jobID string, listingsFound, opportunitiesFound int) error {
	query := `
		UPDATE scrape_jobs
		SET status = $1, listings_found = $2, opportunities_found = $3, completed_at = NOW()
		WHERE id = $4 AND status = $5
	`

	result, err := r.db.ExecContext(ctx, query,
		domain.JobStatusCompleted, listingsFound, opportunitiesFound, jobID, domain.JobStatusRunning)
	if err != nil {
		return fmt.Errorf("mark job completed: %w", err)
	}

	return r.checkTransition(result, jobID)
}

// MarkFailed transitions a job to FAILED, recording the causing error's
// message.
func (r *JobRepository) MarkFailed(ctx context.Context, jobID, errorMessage string) error {
	query := `
		UPDATE scrape_jobs
		SET status = $1, error_message = $2, completed_at = NOW()
		WHERE id = $3 AND status = $4
	`

	result, err := r.db.ExecContext(ctx, query,
		domain.JobStatusFailed, errorMessage, jobID, domain.JobStatusRunning)
	if err != nil {
		return fmt.Errorf("mark job failed: %w", err)
	}

	return r.checkTransition(result, jobID)
}

// checkTransition verifies the terminal update touched exactly one running
// row; terminal jobs are never reopened.
func (r *JobRepository) checkTransition(result sql.Result, jobID string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: no running job with id %s", ErrJobNotFound, jobID)
	}
	return nil
}

// GetByID retrieves a job by its id.
func (r *JobRepository) GetByID(ctx context.Context, id string) (*domain.ScrapeJob, error) {
	var job domain.ScrapeJob
	query := `
		SELECT id, owner_id, platform, keywords, category, location, min_price, max_price,
		       status, listings_found, opportunities_found, error_message, started_at, completed_at
		FROM scrape_jobs
		WHERE id = $1
	`

	err := r.db.GetContext(ctx, &job, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
		}
		return nil, fmt.Errorf("get job: %w", err)
	}

	return &job, nil
}

// ListByOwner retrieves an owner's jobs, newest first.
func (r *JobRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*domain.ScrapeJob, error) {
	var jobs []*domain.ScrapeJob
	query := `
		SELECT id, owner_id, platform, keywords, category, location, min_price, max_price,
		       status, listings_found, opportunities_found, error_message, started_at, completed_at
		FROM scrape_jobs
		WHERE owner_id = $1
		ORDER BY started_at DESC
		LIMIT $2 OFFSET $3
	`

	err := r.db.SelectContext(ctx, &jobs, query, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	if jobs == nil {
		jobs = []*domain.ScrapeJob{}
	}

	return jobs, nil
}
