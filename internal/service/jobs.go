package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/progreswwa/ekipa-strategow-back/internal/domain"
	"github.com/progreswwa/ekipa-strategow-back/internal/repository"
)

// JobsService answers status queries straight from the record store.
type JobsService struct {
	repo repository.JobsRepository
}

func NewJobsService(repo repository.JobsRepository) *JobsService {
	return &JobsService{repo: repo}
}

func (s *JobsService) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, fmt.Errorf("%w: jobId is required", domain.ErrInvalidRequest)
	}
	return s.repo.GetJob(ctx, jobID)
}

func (s *JobsService) ListJobs(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidRequest, filter.Status)
	}
	return s.repo.ListJobs(ctx, filter.Normalize())
}
