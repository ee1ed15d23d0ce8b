package domain

import (
	"encoding/json"
	"time"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

var jobTransitions = map[JobStatus][]JobStatus{
	JobStatusPending:    {JobStatusProcessing, JobStatusFailed},
	JobStatusProcessing: {JobStatusCompleted, JobStatusFailed},
}

// IsTerminal reports whether no further transition is allowed from s.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusProcessing, JobStatusCompleted, JobStatusFailed:
		return true
	}
	return false
}

// CanTransition reports whether a job may move from one status to another.
func CanTransition(from, to JobStatus) bool {
	for _, allowed := range jobTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Job tracks one deployment attempt from acceptance to its terminal state.
type Job struct {
	ID           string
	BriefID      string
	Status       JobStatus
	Result       json.RawMessage
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// JobUpdate is the terminal write applied by the pipeline.
type JobUpdate struct {
	Status       JobStatus
	Result       json.RawMessage
	ErrorMessage string
}

type JobFilter struct {
	Status  JobStatus
	BriefID string
	Limit   int
}

const (
	DefaultJobListLimit = 50
	MaxJobListLimit     = 500
)

// Normalize clamps the limit into [1, MaxJobListLimit].
func (f JobFilter) Normalize() JobFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultJobListLimit
	}
	if f.Limit > MaxJobListLimit {
		f.Limit = MaxJobListLimit
	}
	return f
}

// DeployMessage is the transport format sent to queue backends.
type DeployMessage struct {
	JobID        string    `json:"job_id"`
	BriefID      string    `json:"brief_id,omitempty"`
	Brief        Brief     `json:"brief"`
	AutoGenerate bool      `json:"auto_generate"`
	Website      *Website  `json:"website,omitempty"`
	RequestedAt  time.Time `json:"requested_at"`
}
