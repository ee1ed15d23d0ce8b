package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/progreswwa/ekipa-strategow-back/internal/domain"
	"github.com/progreswwa/ekipa-strategow-back/internal/policy"
	"github.com/progreswwa/ekipa-strategow-back/internal/repository"
)

const EventBriefSubmitted = "brief_submitted"

// Notifier delivers best-effort events. It reports the outcome instead of
// failing.
type Notifier interface {
	Emit(ctx context.Context, event domain.Event) domain.NotifyResult
}

type BriefsService struct {
	repo          repository.BriefsRepository
	notifier      Notifier
	notifyTimeout time.Duration
	logger        zerolog.Logger
	now           func() time.Time

	inflight sync.WaitGroup
}

func NewBriefsService(repo repository.BriefsRepository, notifier Notifier, logger zerolog.Logger) *BriefsService {
	return &BriefsService{
		repo:          repo,
		notifier:      notifier,
		notifyTimeout: 15 * time.Second,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// SubmitBrief validates and stores a brief, then notifies the workflow
// webhook in the background.
func (s *BriefsService) SubmitBrief(ctx context.Context, input policy.BriefInput) (*domain.Brief, error) {
	brief, err := policy.PrepareBrief(input)
	if err != nil {
		return nil, err
	}

	now := s.now()
	brief.ID = uuid.NewString()
	brief.Status = domain.BriefStatusPending
	brief.CreatedAt = now
	brief.UpdatedAt = now

	if err := s.repo.InsertBrief(ctx, &brief); err != nil {
		return nil, fmt.Errorf("store brief: %w", err)
	}

	s.logger.Info().
		Str("brief_id", brief.ID).
		Str("email", policy.MaskEmail(brief.Email)).
		Str("page_type", string(brief.PageType)).
		Msg("brief submitted")

	s.notifyAsync(ctx, brief)
	return &brief, nil
}

func (s *BriefsService) GetBrief(ctx context.Context, briefID string) (*domain.Brief, error) {
	briefID = strings.TrimSpace(briefID)
	if briefID == "" {
		return nil, fmt.Errorf("%w: briefId is required", domain.ErrInvalidRequest)
	}
	return s.repo.GetBrief(ctx, briefID)
}

// Wait blocks until background notifications have finished.
func (s *BriefsService) Wait() {
	s.inflight.Wait()
}

func (s *BriefsService) notifyAsync(ctx context.Context, brief domain.Brief) {
	if s.notifier == nil {
		return
	}

	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer cancel()

		result := s.notifier.Emit(notifyCtx, domain.Event{
			Type: EventBriefSubmitted,
			Data: map[string]any{
				"briefId": brief.ID,
				"brief":   brief,
			},
		})
		s.logger.Debug().
			Str("brief_id", brief.ID).
			Bool("delivered", result.Delivered).
			Bool("skipped", result.Skipped).
			Str("reason", policy.MaskPIIString(result.Message)).
			Msg("brief notification finished")
	}()
}
