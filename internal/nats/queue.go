package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/capitalize-ai/supportbot-workspace/internal/model"
	"github.com/capitalize-ai/supportbot-workspace/pkg/metrics"
)

const (
	// StreamName is the stream holding queued bot replies.
	StreamName = "BOT_REPLIES"

	// SubjectPrefix is the prefix for reply job subjects.
	SubjectPrefix = "bot.replies"

	// ConsumerName is the durable consumer shared by every bot instance.
	ConsumerName = "bot-responder"
)

// JobHandler processes one reply job.
type JobHandler func(ctx context.Context, job model.ReplyJob) error

// ReplySubject returns the subject for a conversation's reply jobs.
func ReplySubject(conversationID string) string {
	return fmt.Sprintf("%s.%s", SubjectPrefix, conversationID)
}

// ReplyQueue publishes reply jobs to JetStream and consumes them with a
// durable work-queue consumer.
type ReplyQueue struct {
	client *Client
	cc     jetstream.ConsumeContext
}

// NewReplyQueue creates a reply queue on an open client.
func NewReplyQueue(client *Client) *ReplyQueue {
	return &ReplyQueue{client: client}
}

// EnsureStream creates the reply stream when it does not exist.
func (q *ReplyQueue) EnsureStream(ctx context.Context) error {
	js := q.client.JetStream()

	if _, err := js.Stream(ctx, StreamName); err == nil {
		return nil
	} else if !errors.Is(err, jetstream.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream: %w", err)
	}

	_, err := js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{SubjectPrefix + ".>"},
		Retention:   jetstream.WorkQueuePolicy,
		MaxAge:      24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Description: "Queued bot replies for customer messages",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// Enqueue publishes a reply job.
func (q *ReplyQueue) Enqueue(ctx context.Context, job model.ReplyJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal reply job: %w", err)
	}
	if _, err := q.client.JetStream().Publish(ctx, ReplySubject(job.ConversationID), data, jetstream.WithMsgID(job.ID)); err != nil {
		return fmt.Errorf("failed to publish reply job: %w", err)
	}
	return nil
}

// Consume starts delivering jobs to handle until Stop is called. Jobs are
// acknowledged after the handler returns, even on failure, so a failed LLM
// call is never repeated.
func (q *ReplyQueue) Consume(ctx context.Context, handle JobHandler) error {
	consumer, err := q.client.JetStream().CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		Durable:       ConsumerName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       2 * time.Minute,
		MaxDeliver:    3,
		FilterSubject: SubjectPrefix + ".>",
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	log := q.client.logger.Named("reply_consumer")
	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		var job model.ReplyJob
		if err := json.Unmarshal(msg.Data(), &job); err != nil {
			log.Error("dropping malformed reply job", zap.String("subject", msg.Subject()), zap.Error(err))
			_ = msg.Term()
			return
		}
		if err := handle(ctx, job); err != nil {
			log.Error("reply job failed",
				zap.String("job_id", job.ID),
				zap.String("conversation_id", job.ConversationID),
				zap.Error(err),
			)
			metrics.RecordReplyJob("error")
		} else {
			metrics.RecordReplyJob("done")
		}
		if err := msg.Ack(); err != nil {
			log.Warn("failed to ack reply job", zap.String("job_id", job.ID), zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	q.cc = cc
	return nil
}

// Stop stops delivering jobs.
func (q *ReplyQueue) Stop() {
	if q.cc != nil {
		q.cc.Stop()
	}
}
