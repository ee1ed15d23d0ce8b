package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/progreswwa/ekipa-strategow-back/internal/domain"
)

// MemoryRepository stores briefs and jobs in memory for local development.
type MemoryRepository struct {
	mu     sync.RWMutex
	briefs map[string]*domain.Brief
	jobs   map[string]*domain.Job
	now    func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		briefs: make(map[string]*domain.Brief),
		jobs:   make(map[string]*domain.Job),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryRepository) InsertBrief(_ context.Context, brief *domain.Brief) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.briefs[brief.ID]; exists {
		return fmt.Errorf("%w: brief %s already exists", domain.ErrStore, brief.ID)
	}
	r.briefs[brief.ID] = cloneBrief(brief)
	return nil
}

func (r *MemoryRepository) GetBrief(_ context.Context, briefID string) (*domain.Brief, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	brief, ok := r.briefs[briefID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneBrief(brief), nil
}

func (r *MemoryRepository) InsertJob(_ context.Context, job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[job.ID]; exists {
		return fmt.Errorf("%w: job %s already exists", domain.ErrStore, job.ID)
	}
	if job.BriefID != "" {
		if _, ok := r.briefs[job.BriefID]; !ok {
			return fmt.Errorf("brief %s: %w", job.BriefID, domain.ErrNotFound)
		}
	}
	r.jobs[job.ID] = cloneJob(job)
	return nil
}

func (r *MemoryRepository) UpdateJob(_ context.Context, jobID string, update domain.JobUpdate) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if job.Status.IsTerminal() {
		return nil, domain.ErrJobFinalized
	}
	if !domain.CanTransition(job.Status, update.Status) {
		return nil, fmt.Errorf("job %s: invalid transition %s -> %s", jobID, job.Status, update.Status)
	}

	job.Status = update.Status
	job.Result = cloneRaw(update.Result)
	job.ErrorMessage = update.ErrorMessage
	job.UpdatedAt = r.now()
	return cloneJob(job), nil
}

func (r *MemoryRepository) GetJob(_ context.Context, jobID string) (*domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneJob(job), nil
}

func (r *MemoryRepository) ListJobs(_ context.Context, filter domain.JobFilter) ([]domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	filter = filter.Normalize()
	items := make([]domain.Job, 0)
	for _, job := range r.jobs {
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		if filter.BriefID != "" && job.BriefID != filter.BriefID {
			continue
		}
		items = append(items, *cloneJob(job))
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	if len(items) > filter.Limit {
		items = items[:filter.Limit]
	}
	return items, nil
}

func cloneJob(job *domain.Job) *domain.Job {
	if job == nil {
		return nil
	}
	clone := *job
	clone.Result = cloneRaw(job.Result)
	return &clone
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	return append(json.RawMessage(nil), raw...)
}

func cloneBrief(brief *domain.Brief) *domain.Brief {
	if brief == nil {
		return nil
	}
	clone := *brief
	clone.Colors = make(map[string]string, len(brief.Colors))
	for key, value := range brief.Colors {
		clone.Colors[key] = value
	}
	clone.Products = make([]map[string]any, 0, len(brief.Products))
	for _, product := range brief.Products {
		copied := make(map[string]any, len(product))
		for key, value := range product {
			copied[key] = value
		}
		clone.Products = append(clone.Products, copied)
	}
	return &clone
}
