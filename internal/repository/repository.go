package repository

import (
	"context"

	"github.com/progreswwa/ekipa-strategow-back/internal/domain"
)

// BriefsRepository persists submitted briefs.
type BriefsRepository interface {
	InsertBrief(ctx context.Context, brief *domain.Brief) error
	GetBrief(ctx context.Context, briefID string) (*domain.Brief, error)
}

// JobsRepository abstracts job persistence and query operations.
// UpdateJob must refuse to move a job out of a terminal status.
type JobsRepository interface {
	InsertJob(ctx context.Context, job *domain.Job) error
	UpdateJob(ctx context.Context, jobID string, update domain.JobUpdate) (*domain.Job, error)
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)
	ListJobs(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error)
}

// Repository is the record store used by the services.
type Repository interface {
	BriefsRepository
	JobsRepository
}
