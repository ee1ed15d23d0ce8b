package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/progreswwa/ekipa-strategow-back/internal/domain"
)

func TestLocalQueueDeliversOnceAndDeadLettersFailures(t *testing.T) {
	q := NewLocalQueue(4, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := q.Enqueue(ctx, domain.DeployMessage{JobID: "ok"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := q.Enqueue(ctx, domain.DeployMessage{JobID: "bad"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	calls := make(chan string, 4)
	done := make(chan error, 1)
	go func() {
		done <- q.Consume(ctx, func(_ context.Context, message domain.DeployMessage) error {
			calls <- message.JobID
			if message.JobID == "bad" {
				return errors.New("handler failed")
			}
			return nil
		})
	}()

	for _, expected := range []string{"ok", "bad"} {
		select {
		case got := <-calls:
			if got != expected {
				t.Fatalf("expected %s, got %s", expected, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %s", expected)
		}
	}

	select {
	case extra := <-calls:
		t.Fatalf("expected no redelivery, got %s", extra)
	case <-time.After(100 * time.Millisecond):
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	if q.DLQSize() != 1 || q.DeadLetters()[0].Message.JobID != "bad" {
		t.Fatalf("expected failed message in DLQ, got %+v", q.DeadLetters())
	}
}

func TestLocalQueueEnqueueDoesNotBlockWhenFull(t *testing.T) {
	q := NewLocalQueue(1, zerolog.Nop())
	if err := q.Enqueue(context.Background(), domain.DeployMessage{JobID: "1"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := q.Enqueue(context.Background(), domain.DeployMessage{JobID: "2"}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestStreamMessageRoundTrip(t *testing.T) {
	requestedAt := time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)
	message := domain.DeployMessage{
		JobID:        "job-1",
		BriefID:      "brief-1",
		Brief:        domain.Brief{Name: "Acme", Colors: map[string]string{"primary": "#ff0000"}},
		AutoGenerate: true,
		Website:      &domain.Website{HTML: "<h1>Acme</h1>"},
		RequestedAt:  requestedAt,
	}

	values, err := streamValues(message)
	if err != nil {
		t.Fatalf("stream values: %v", err)
	}
	parsed, err := parseStreamMessage(redis.XMessage{ID: "1-0", Values: values})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.JobID != "job-1" || parsed.Brief.Colors["primary"] != "#ff0000" || parsed.Website == nil || !parsed.RequestedAt.Equal(requestedAt) {
		t.Fatalf("unexpected parsed message %+v", parsed)
	}

	if _, err := parseStreamMessage(redis.XMessage{ID: "2-0", Values: map[string]any{"job_id": "x"}}); err == nil {
		t.Fatalf("expected missing payload to fail")
	}
}

func TestStreamJobIDFromUndecodableEntry(t *testing.T) {
	item := redis.XMessage{ID: "3-0", Values: map[string]any{"job_id": " job-9 ", "payload": "{broken"}}
	if _, err := parseStreamMessage(item); err == nil {
		t.Fatalf("expected broken payload to fail")
	}
	if got := streamJobID(item); got != "job-9" {
		t.Fatalf("expected job-9, got %q", got)
	}
	if got := streamJobID(redis.XMessage{ID: "4-0", Values: map[string]any{"payload": "{}"}}); got != "" {
		t.Fatalf("expected empty job id, got %q", got)
	}
}
