package domain

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to JobStatus
		want     bool
	}{
		{JobStatusPending, JobStatusProcessing, true},
		{JobStatusPending, JobStatusFailed, true},
		{JobStatusPending, JobStatusCompleted, false},
		{JobStatusProcessing, JobStatusCompleted, true},
		{JobStatusProcessing, JobStatusFailed, true},
		{JobStatusProcessing, JobStatusPending, false},
		{JobStatusCompleted, JobStatusFailed, false},
		{JobStatusCompleted, JobStatusProcessing, false},
		{JobStatusFailed, JobStatusCompleted, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Fatalf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestJobStatusIsTerminal(t *testing.T) {
	if JobStatusPending.IsTerminal() || JobStatusProcessing.IsTerminal() {
		t.Fatalf("expected pending and processing to be non-terminal")
	}
	if !JobStatusCompleted.IsTerminal() || !JobStatusFailed.IsTerminal() {
		t.Fatalf("expected completed and failed to be terminal")
	}
}

func TestJobFilterNormalize(t *testing.T) {
	if got := (JobFilter{}).Normalize().Limit; got != DefaultJobListLimit {
		t.Fatalf("expected default limit, got %d", got)
	}
	if got := (JobFilter{Limit: 10_000}).Normalize().Limit; got != MaxJobListLimit {
		t.Fatalf("expected capped limit, got %d", got)
	}
	if got := (JobFilter{Limit: 7}).Normalize().Limit; got != 7 {
		t.Fatalf("expected limit 7, got %d", got)
	}
}
