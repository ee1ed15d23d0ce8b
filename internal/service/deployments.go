package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/progreswwa/ekipa-strategow-back/internal/domain"
	"github.com/progreswwa/ekipa-strategow-back/internal/policy"
	"github.com/progreswwa/ekipa-strategow-back/internal/publish"
	"github.com/progreswwa/ekipa-strategow-back/internal/queue"
	"github.com/progreswwa/ekipa-strategow-back/internal/repository"
)

var (
	ErrNoContent       = errors.New("no content available for deployment")
	ErrJobNotCompleted = errors.New("job has not completed")
)

// WebsiteGenerator produces a site artifact from a brief.
type WebsiteGenerator interface {
	Generate(ctx context.Context, brief domain.Brief) (domain.Website, error)
}

// Publisher allocates hosting targets and pushes artifacts to them.
type Publisher interface {
	AllocateTarget(ctx context.Context, name string) (domain.Site, error)
	Push(ctx context.Context, site domain.Site, website domain.Website) (domain.Deploy, error)
	PollStatus(ctx context.Context, site domain.Site, deployID string) (domain.Deploy, error)
}

// ArtifactArchive keeps a copy of a published artifact.
type ArtifactArchive interface {
	Store(ctx context.Context, jobID string, website domain.Website) (string, error)
}

type DeployInput struct {
	BriefID      string
	Brief        *policy.BriefInput
	AutoGenerate *bool
	Website      *domain.Website
}

type DeploymentDependencies struct {
	Repo       repository.Repository
	Producer   queue.Producer
	Generator  WebsiteGenerator
	Publisher  Publisher
	Archive    ArtifactArchive
	SitePrefix string
	Logger     zerolog.Logger
}

// DeploymentService accepts deployment requests and runs the
// generate-then-publish pipeline for each accepted job.
type DeploymentService struct {
	repo       repository.Repository
	producer   queue.Producer
	generator  WebsiteGenerator
	publisher  Publisher
	archive    ArtifactArchive
	sitePrefix string
	logger     zerolog.Logger
	now        func() time.Time
}

func NewDeploymentService(deps DeploymentDependencies) *DeploymentService {
	prefix := strings.TrimSpace(deps.SitePrefix)
	if prefix == "" {
		prefix = publish.DefaultSitePrefix
	}
	return &DeploymentService{
		repo:       deps.Repo,
		producer:   deps.Producer,
		generator:  deps.Generator,
		publisher:  deps.Publisher,
		archive:    deps.Archive,
		sitePrefix: prefix,
		logger:     deps.Logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// StartDeployment records a processing job and dispatches its pipeline.
// It returns as soon as the message is handed to the queue.
func (s *DeploymentService) StartDeployment(ctx context.Context, input DeployInput) (*domain.Job, error) {
	briefID := strings.TrimSpace(input.BriefID)
	if briefID == "" && input.Brief == nil {
		return nil, fmt.Errorf("%w: briefId or brief is required", domain.ErrInvalidRequest)
	}

	var brief domain.Brief
	if briefID != "" {
		stored, err := s.repo.GetBrief(ctx, briefID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("brief %s: %w", briefID, domain.ErrNotFound)
			}
			return nil, fmt.Errorf("load brief: %w", err)
		}
		brief = *stored
	} else {
		inline, err := policy.PrepareInlineBrief(*input.Brief)
		if err != nil {
			return nil, err
		}
		brief = inline
	}

	autoGenerate := true
	if input.AutoGenerate != nil {
		autoGenerate = *input.AutoGenerate
	}

	now := s.now()
	job := &domain.Job{
		ID:        uuid.NewString(),
		BriefID:   briefID,
		Status:    domain.JobStatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.InsertJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	message := domain.DeployMessage{
		JobID:        job.ID,
		BriefID:      briefID,
		Brief:        brief,
		AutoGenerate: autoGenerate,
		Website:      input.Website,
		RequestedAt:  now,
	}
	if err := s.producer.Enqueue(ctx, message); err != nil {
		// The row stays processing; a dispatch failure is not a job outcome.
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("deployment dispatch failed")
		return nil, fmt.Errorf("%w: %v", domain.ErrScheduling, err)
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Str("brief_id", briefID).
		Bool("auto_generate", autoGenerate).
		Bool("website_supplied", input.Website != nil).
		Msg("deployment accepted")
	return job, nil
}

// Reject fails a job whose dispatched message can no longer be processed.
// A job that already reached a terminal state is left as is.
func (s *DeploymentService) Reject(ctx context.Context, jobID, reason string) {
	_, err := s.repo.UpdateJob(ctx, jobID, domain.JobUpdate{
		Status:       domain.JobStatusFailed,
		ErrorMessage: "undeliverable deployment message: " + reason,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("job_id", jobID).Msg("failed to record rejected deployment")
		return
	}
	s.logger.Warn().Str("job_id", jobID).Str("reason", reason).Msg("deployment message rejected")
}

// Run executes the pipeline for one message and writes the terminal state
// exactly once. The returned error only reports a failed terminal write.
func (s *DeploymentService) Run(ctx context.Context, message domain.DeployMessage) (*domain.Job, error) {
	logger := s.logger.With().Str("job_id", message.JobID).Logger()
	started := time.Now()

	result, runErr := s.execute(ctx, message, logger)

	update := domain.JobUpdate{Status: domain.JobStatusCompleted, Result: result}
	if runErr != nil {
		update = domain.JobUpdate{Status: domain.JobStatusFailed, ErrorMessage: runErr.Error()}
	}

	job, err := s.repo.UpdateJob(ctx, message.JobID, update)
	if err != nil {
		logger.Error().Err(err).Str("status", string(update.Status)).Msg("failed to record terminal job state")
		return nil, fmt.Errorf("record terminal state for job %s: %w", message.JobID, err)
	}

	event := logger.Info()
	if runErr != nil {
		event = logger.Warn().Str("reason", runErr.Error())
	}
	event.Str("status", string(job.Status)).Dur("duration", time.Since(started)).Msg("deployment finished")
	return job, nil
}

func (s *DeploymentService) execute(
	ctx context.Context,
	message domain.DeployMessage,
	logger zerolog.Logger,
) (json.RawMessage, error) {
	website := message.Website
	if website == nil && message.AutoGenerate {
		if s.generator == nil {
			return nil, fmt.Errorf("%w: no generator configured", domain.ErrGeneration)
		}
		generated, err := s.generator.Generate(ctx, message.Brief)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrGeneration, err)
		}
		website = &generated
		logger.Debug().Msg("website generated")
	}
	if website == nil || strings.TrimSpace(website.HTML) == "" {
		return nil, ErrNoContent
	}

	name := publish.SiteName(s.sitePrefix, message.Brief.Name, message.RequestedAt)

	var archiveKey string
	if s.archive != nil {
		key, err := s.archive.Store(ctx, message.JobID, *website)
		if err != nil {
			logger.Warn().Err(err).Msg("artifact archive failed")
		} else {
			archiveKey = key
		}
	}

	if s.publisher == nil {
		return nil, fmt.Errorf("%w: no publisher configured", domain.ErrPublish)
	}
	site, err := s.publisher.AllocateTarget(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPublish, err)
	}
	logger.Debug().Str("site_id", site.ID).Str("site_name", name).Msg("publishing target allocated")

	deploy, err := s.publisher.Push(ctx, site, *website)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPublish, err)
	}

	return encodeDeploymentResult(name, site, deploy, *website, archiveKey)
}

// DeploymentStatus polls the publisher for the live state of a completed
// job's deploy.
func (s *DeploymentService) DeploymentStatus(ctx context.Context, jobID string) (domain.Deploy, error) {
	job, err := s.repo.GetJob(ctx, jobID)
	if err != nil {
		return domain.Deploy{}, err
	}
	if job.Status != domain.JobStatusCompleted {
		return domain.Deploy{}, ErrJobNotCompleted
	}

	var result deploymentResult
	if err := json.Unmarshal(job.Result, &result); err != nil {
		return domain.Deploy{}, fmt.Errorf("%w: decode job result: %v", domain.ErrStore, err)
	}
	if result.Deployment.SiteID == "" || result.Deployment.DeployID == "" {
		return domain.Deploy{}, fmt.Errorf("%w: job result has no deploy reference", domain.ErrNotFound)
	}
	if s.publisher == nil {
		return domain.Deploy{}, fmt.Errorf("%w: no publisher configured", domain.ErrPublish)
	}

	site := domain.Site{ID: result.Deployment.SiteID, Name: result.Deployment.SiteName, URL: result.Deployment.SiteURL}
	deploy, err := s.publisher.PollStatus(ctx, site, result.Deployment.DeployID)
	if err != nil {
		return domain.Deploy{}, fmt.Errorf("%w: %v", domain.ErrPublish, err)
	}
	return deploy, nil
}

type deploymentResult struct {
	Deployment    deploymentSummary    `json:"deployment"`
	GeneratedCode generatedCodeSummary `json:"generatedCode"`
	Archive       *archiveSummary      `json:"archive,omitempty"`
}

type deploymentSummary struct {
	Address   string     `json:"address"`
	DeployID  string     `json:"deployId"`
	State     string     `json:"state"`
	SiteID    string     `json:"siteId"`
	SiteName  string     `json:"siteName"`
	SiteURL   string     `json:"siteUrl,omitempty"`
	AdminURL  string     `json:"adminUrl,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

type generatedCodeSummary struct {
	Metadata map[string]any `json:"metadata"`
}

type archiveSummary struct {
	Key string `json:"key"`
}

func encodeDeploymentResult(
	name string,
	site domain.Site,
	deploy domain.Deploy,
	website domain.Website,
	archiveKey string,
) (json.RawMessage, error) {
	address := deploy.URL
	if address == "" {
		address = site.URL
	}
	siteName := site.Name
	if siteName == "" {
		siteName = name
	}
	metadata := website.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	result := deploymentResult{
		Deployment: deploymentSummary{
			Address:   address,
			DeployID:  deploy.ID,
			State:     deploy.State,
			SiteID:    site.ID,
			SiteName:  siteName,
			SiteURL:   site.URL,
			AdminURL:  site.AdminURL,
			CreatedAt: deploy.CreatedAt,
		},
		GeneratedCode: generatedCodeSummary{Metadata: metadata},
	}
	if archiveKey != "" {
		result.Archive = &archiveSummary{Key: archiveKey}
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode deployment result: %w", err)
	}
	return encoded, nil
}
