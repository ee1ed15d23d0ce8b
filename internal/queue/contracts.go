package queue

import (
	"context"

	"github.com/progreswwa/ekipa-strategow-back/internal/domain"
)

// Producer hands deployment messages to a queue backend.
type Producer interface {
	Enqueue(ctx context.Context, message domain.DeployMessage) error
}

// Handler runs one message. A non-nil error moves the message to the
// dead-letter store; messages are never redelivered.
type Handler func(ctx context.Context, message domain.DeployMessage) error

// Consumer receives deployment messages and executes handlers.
type Consumer interface {
	Consume(ctx context.Context, handler Handler) error
}
