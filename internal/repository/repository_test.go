package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/progreswwa/ekipa-strategow-back/internal/domain"
)

func TestMemoryRepository(t *testing.T) {
	testRepositoryContract(t, func(t *testing.T) Repository {
		return NewMemoryRepository()
	})
}

// testRepositoryContract runs the behaviour every Repository implementation must share.
func testRepositoryContract(t *testing.T, newRepo func(t *testing.T) Repository) {
	t.Run("brief round-trips colors and products", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		brief := newTestBrief()
		brief.Colors = map[string]string{"primary": "#ff0000"}
		brief.Products = []map[string]any{{"name": "Sourdough"}}
		if err := repo.InsertBrief(ctx, brief); err != nil {
			t.Fatalf("insert brief: %v", err)
		}

		stored, err := repo.GetBrief(ctx, brief.ID)
		if err != nil {
			t.Fatalf("get brief: %v", err)
		}
		if stored.Colors["primary"] != "#ff0000" {
			t.Fatalf("expected colors to round-trip, got %v", stored.Colors)
		}
		if len(stored.Products) != 1 || stored.Products[0]["name"] != "Sourdough" {
			t.Fatalf("expected products to round-trip, got %v", stored.Products)
		}
		if stored.Status != domain.BriefStatusPending {
			t.Fatalf("expected pending brief status, got %q", stored.Status)
		}
	})

	t.Run("missing records are not found", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		if _, err := repo.GetBrief(ctx, uuid.NewString()); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected brief not found, got %v", err)
		}
		if _, err := repo.GetJob(ctx, uuid.NewString()); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected job not found, got %v", err)
		}
		if _, err := repo.UpdateJob(ctx, uuid.NewString(), domain.JobUpdate{Status: domain.JobStatusFailed}); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected update of missing job to be not found, got %v", err)
		}
	})

	t.Run("job with unknown brief is rejected", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		job := newTestJob("")
		job.BriefID = uuid.NewString()
		if err := repo.InsertJob(ctx, job); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected not found for unknown brief, got %v", err)
		}
	})

	t.Run("terminal job is never rewritten", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		job := newTestJob("")
		if err := repo.InsertJob(ctx, job); err != nil {
			t.Fatalf("insert job: %v", err)
		}

		result := json.RawMessage(`{"deployment":{"address":"https://site.example"}}`)
		updated, err := repo.UpdateJob(ctx, job.ID, domain.JobUpdate{Status: domain.JobStatusCompleted, Result: result})
		if err != nil {
			t.Fatalf("complete job: %v", err)
		}
		if updated.Status != domain.JobStatusCompleted || updated.ErrorMessage != "" {
			t.Fatalf("unexpected completed job %+v", updated)
		}

		_, err = repo.UpdateJob(ctx, job.ID, domain.JobUpdate{Status: domain.JobStatusFailed, ErrorMessage: "late"})
		if !errors.Is(err, domain.ErrJobFinalized) {
			t.Fatalf("expected finalized error, got %v", err)
		}

		first, err := repo.GetJob(ctx, job.ID)
		if err != nil {
			t.Fatalf("get job: %v", err)
		}
		second, err := repo.GetJob(ctx, job.ID)
		if err != nil {
			t.Fatalf("get job: %v", err)
		}
		if first.Status != domain.JobStatusCompleted || second.Status != domain.JobStatusCompleted {
			t.Fatalf("expected stable completed status, got %s and %s", first.Status, second.Status)
		}
		if string(first.Result) != string(second.Result) || !first.UpdatedAt.Equal(second.UpdatedAt) {
			t.Fatalf("expected identical reads")
		}
		var decoded map[string]map[string]string
		if err := json.Unmarshal(first.Result, &decoded); err != nil {
			t.Fatalf("decode result: %v", err)
		}
		if decoded["deployment"]["address"] != "https://site.example" {
			t.Fatalf("unexpected result %s", first.Result)
		}
	})

	t.Run("list jobs filters and orders newest first", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		brief := newTestBrief()
		if err := repo.InsertBrief(ctx, brief); err != nil {
			t.Fatalf("insert brief: %v", err)
		}

		base := time.Now().UTC().Truncate(time.Millisecond)
		ids := make([]string, 0, 3)
		for i := 0; i < 3; i++ {
			job := newTestJob(brief.ID)
			job.CreatedAt = base.Add(time.Duration(i) * time.Second)
			job.UpdatedAt = job.CreatedAt
			if err := repo.InsertJob(ctx, job); err != nil {
				t.Fatalf("insert job: %v", err)
			}
			ids = append(ids, job.ID)
		}
		other := newTestJob("")
		if err := repo.InsertJob(ctx, other); err != nil {
			t.Fatalf("insert job: %v", err)
		}
		if _, err := repo.UpdateJob(ctx, ids[0], domain.JobUpdate{Status: domain.JobStatusFailed, ErrorMessage: "boom"}); err != nil {
			t.Fatalf("fail job: %v", err)
		}

		jobs, err := repo.ListJobs(ctx, domain.JobFilter{BriefID: brief.ID})
		if err != nil {
			t.Fatalf("list jobs: %v", err)
		}
		if len(jobs) != 3 {
			t.Fatalf("expected 3 jobs for brief, got %d", len(jobs))
		}
		if jobs[0].ID != ids[2] || jobs[2].ID != ids[0] {
			t.Fatalf("expected newest first ordering")
		}

		failed, err := repo.ListJobs(ctx, domain.JobFilter{Status: domain.JobStatusFailed})
		if err != nil {
			t.Fatalf("list failed jobs: %v", err)
		}
		if len(failed) != 1 || failed[0].ErrorMessage != "boom" {
			t.Fatalf("expected one failed job, got %+v", failed)
		}

		limited, err := repo.ListJobs(ctx, domain.JobFilter{Limit: 2})
		if err != nil {
			t.Fatalf("list limited jobs: %v", err)
		}
		if len(limited) != 2 {
			t.Fatalf("expected limit to apply, got %d", len(limited))
		}
	})
}

func newTestBrief() *domain.Brief {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &domain.Brief{
		ID:          uuid.NewString(),
		Name:        "Acme",
		Email:       "hello@acme.example",
		Industry:    "food",
		PageType:    domain.PageTypeLanding,
		Description: "We bake bread every morning.",
		Colors:      map[string]string{},
		Products:    []map[string]any{},
		Status:      domain.BriefStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func newTestJob(briefID string) *domain.Job {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &domain.Job{
		ID:        uuid.NewString(),
		BriefID:   briefID,
		Status:    domain.JobStatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
