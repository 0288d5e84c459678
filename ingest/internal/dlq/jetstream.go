package dlq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/asbrown77/bagile-platform-sub001/common/logging"
	"github.com/asbrown77/bagile-platform-sub001/common/messaging"
	"github.com/asbrown77/bagile-platform-sub001/common/messaging/nats"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/model"
)

// JetStreamQueue publishes failed envelopes to the ingest.dlq.<reason>
// subjects. Safe for use across multiple ingest instances.
type JetStreamQueue struct {
	pub     messaging.Publisher
	stream  jetstream.Stream
	logger  *logging.Logger
	written atomic.Uint64
}

// NewJetStreamQueue creates a DLQ backed by NATS JetStream, creating the
// DLQ stream if needed.
func NewJetStreamQueue(ctx context.Context, js *nats.JetStreamClient, logger *logging.Logger) (*JetStreamQueue, error) {
	if js == nil {
		return nil, fmt.Errorf("jetstream client is nil")
	}

	stream, err := js.CreateOrUpdateStream(ctx, nats.IngestDLQStream)
	if err != nil {
		return nil, fmt.Errorf("create dlq stream: %w", err)
	}

	q := NewPublisherQueue(js, logger)
	q.stream = stream
	q.logger.Info("dlq stream ready", "stream", nats.IngestDLQStream.Name)
	return q, nil
}

// NewPublisherQueue creates a DLQ that only publishes. Stats, List and
// Purge need a stream and report ErrDisabled without one.
func NewPublisherQueue(pub messaging.Publisher, logger *logging.Logger) *JetStreamQueue {
	if logger == nil {
		logger = logging.Discard()
	}
	return &JetStreamQueue{pub: pub, logger: logger}
}

// Write publishes a failed envelope.
func (q *JetStreamQueue) Write(ctx context.Context, env model.Envelope, err error, reason string) error {
	if q == nil {
		return nil
	}

	data, marshalErr := json.Marshal(newFailed(env, err, reason))
	if marshalErr != nil {
		return fmt.Errorf("marshal dlq entry: %w", marshalErr)
	}

	subject := messaging.DLQSubject(reason)
	msg := messaging.NewMessage(subject, data,
		messaging.WithHeader(messaging.HeaderSource, env.Source),
		messaging.WithHeader(messaging.HeaderExternalID, env.ExternalID),
	)
	if pubErr := q.pub.PublishMsg(ctx, msg); pubErr != nil {
		return fmt.Errorf("publish dlq entry: %w", pubErr)
	}

	q.written.Add(1)
	q.logger.WarnContext(ctx, "envelope dead-lettered",
		logging.Source(env.Source), logging.ExternalID(env.ExternalID), logging.Reason(reason), logging.Subject(subject))
	return nil
}

// Stats returns DLQ metrics from JetStream.
func (q *JetStreamQueue) Stats(ctx context.Context) map[string]interface{} {
	if q == nil {
		return map[string]interface{}{"enabled": false, "backend": "jetstream"}
	}
	stats := map[string]interface{}{
		"enabled":       true,
		"backend":       "jetstream",
		"written_local": q.written.Load(),
	}
	if q.stream == nil {
		return stats
	}

	info, err := q.stream.Info(ctx)
	if err != nil {
		stats["error"] = err.Error()
		return stats
	}
	stats["total_messages"] = info.State.Msgs
	stats["total_bytes"] = info.State.Bytes
	stats["first_seq"] = info.State.FirstSeq
	stats["last_seq"] = info.State.LastSeq
	return stats
}

// List reads up to limit failed envelopes from the stream.
func (q *JetStreamQueue) List(ctx context.Context, limit int) ([]FailedEnvelope, error) {
	if q == nil || q.stream == nil {
		return nil, ErrDisabled
	}
	if limit <= 0 {
		limit = 100
	}

	consumer, err := q.stream.OrderedConsumer(ctx, jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{messaging.Wildcard(messaging.SubjectDLQPrefix)},
		DeliverPolicy:  jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("create list consumer: %w", err)
	}

	msgs, err := consumer.Fetch(limit, jetstream.FetchMaxWait(2*time.Second))
	if err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}

	var out []FailedEnvelope
	for msg := range msgs.Messages() {
		var failed FailedEnvelope
		if err := json.Unmarshal(msg.Data(), &failed); err != nil {
			q.logger.Error("failed to parse dlq message", logging.Subject(msg.Subject()), logging.Error(err))
			continue
		}
		out = append(out, failed)
	}
	if err := msgs.Error(); err != nil {
		q.logger.Warn("dlq fetch completed with error", logging.Error(err))
	}
	return out, nil
}

// Purge removes all entries from the DLQ stream.
func (q *JetStreamQueue) Purge(ctx context.Context) error {
	if q == nil || q.stream == nil {
		return ErrDisabled
	}
	if err := q.stream.Purge(ctx); err != nil {
		return fmt.Errorf("purge dlq stream: %w", err)
	}
	q.logger.Info("dlq stream purged")
	return nil
}
