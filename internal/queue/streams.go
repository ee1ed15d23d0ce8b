package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/progreswwa/ekipa-strategow-back/internal/domain"
)

type StreamsConfig struct {
	Addr      string
	Password  string
	DB        int
	Stream    string
	DLQStream string
	Group     string
	Consumer  string

	// Rejected is called for undecodable entries that still carry a job_id.
	Rejected RejectFunc
}

// RejectFunc records that the job behind a dead-lettered entry will never run.
type RejectFunc func(ctx context.Context, jobID, reason string)

// StreamsQueue implements Producer+Consumer backed by Redis Streams.
type StreamsQueue struct {
	client    *redis.Client
	stream    string
	dlqStream string
	group     string
	consumer  string
	rejected  RejectFunc
}

func NewStreamsQueue(ctx context.Context, cfg StreamsConfig) (*StreamsQueue, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}
	if cfg.Stream == "" {
		cfg.Stream = "deploy_jobs"
	}
	if cfg.DLQStream == "" {
		cfg.DLQStream = "deploy_jobs_dlq"
	}
	if cfg.Group == "" {
		cfg.Group = "deploy_workers"
	}
	if cfg.Consumer == "" {
		cfg.Consumer = "api-1"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	queue := &StreamsQueue{
		client:    client,
		stream:    cfg.Stream,
		dlqStream: cfg.DLQStream,
		group:     cfg.Group,
		consumer:  cfg.Consumer,
		rejected:  cfg.Rejected,
	}
	if err := queue.ensureGroup(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return queue, nil
}

func (q *StreamsQueue) Close() error {
	return q.client.Close()
}

func (q *StreamsQueue) Enqueue(ctx context.Context, message domain.DeployMessage) error {
	values, err := streamValues(message)
	if err != nil {
		return err
	}
	_, err = q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		Values: values,
	}).Result()
	if err != nil {
		return fmt.Errorf("enqueue to stream: %w", err)
	}
	return nil
}

// Consume acknowledges and deletes each entry once its handler returns,
// whatever the outcome.
func (q *StreamsQueue) Consume(ctx context.Context, handler Handler) error {
	if err := q.ensureGroup(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    q.group,
			Consumer: q.consumer,
			Streams:  []string{q.stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()

		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return fmt.Errorf("xreadgroup: %w", err)
		}

		for _, stream := range streams {
			for _, item := range stream.Messages {
				message, parseErr := parseStreamMessage(item)
				if parseErr != nil {
					_ = q.sendToDLQ(ctx, item, parseErr.Error())
					if jobID := streamJobID(item); jobID != "" && q.rejected != nil {
						q.rejected(ctx, jobID, parseErr.Error())
					}
					_ = q.ackAndDelete(ctx, item.ID)
					continue
				}

				if handleErr := handler(ctx, message); handleErr != nil {
					_ = q.sendToDLQ(ctx, item, handleErr.Error())
				}
				_ = q.ackAndDelete(ctx, item.ID)
			}
		}
	}
}

func (q *StreamsQueue) ensureGroup(ctx context.Context) error {
	err := q.client.XGroupCreateMkStream(ctx, q.stream, q.group, "$").Err()
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "BUSYGROUP") {
		return nil
	}
	return fmt.Errorf("ensure stream group: %w", err)
}

func (q *StreamsQueue) ackAndDelete(ctx context.Context, streamID string) error {
	if err := q.client.XAck(ctx, q.stream, q.group, streamID).Err(); err != nil {
		return fmt.Errorf("xack: %w", err)
	}
	if err := q.client.XDel(ctx, q.stream, streamID).Err(); err != nil {
		return fmt.Errorf("xdel: %w", err)
	}
	return nil
}

func (q *StreamsQueue) sendToDLQ(ctx context.Context, item redis.XMessage, errorMessage string) error {
	values := map[string]any{
		"stream_id": item.ID,
		"error":     errorMessage,
		"moved_at":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	for key, value := range item.Values {
		values[key] = value
	}
	if _, err := q.client.XAdd(ctx, &redis.XAddArgs{Stream: q.dlqStream, Values: values}).Result(); err != nil {
		return fmt.Errorf("send to dlq: %w", err)
	}
	return nil
}

func streamValues(message domain.DeployMessage) (map[string]any, error) {
	payload, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("encode deploy message: %w", err)
	}
	return map[string]any{
		"job_id":       message.JobID,
		"payload":      string(payload),
		"requested_at": message.RequestedAt.Format(time.RFC3339Nano),
	}, nil
}

func streamJobID(item redis.XMessage) string {
	switch value := item.Values["job_id"].(type) {
	case string:
		return strings.TrimSpace(value)
	case []byte:
		return strings.TrimSpace(string(value))
	default:
		return ""
	}
}

func parseStreamMessage(item redis.XMessage) (domain.DeployMessage, error) {
	value, ok := item.Values["payload"]
	if !ok {
		return domain.DeployMessage{}, errors.New("missing field payload")
	}

	var raw string
	switch casted := value.(type) {
	case string:
		raw = casted
	case []byte:
		raw = string(casted)
	default:
		raw = fmt.Sprintf("%v", casted)
	}

	var message domain.DeployMessage
	if err := json.Unmarshal([]byte(raw), &message); err != nil {
		return domain.DeployMessage{}, fmt.Errorf("invalid payload: %w", err)
	}
	if message.JobID == "" {
		return domain.DeployMessage{}, errors.New("missing job_id")
	}
	return message, nil
}
