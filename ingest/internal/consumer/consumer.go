// Package consumer feeds envelopes from the JetStream work queue into
// the processor.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/asbrown77/bagile-platform-sub001/common/logging"
	"github.com/asbrown77/bagile-platform-sub001/common/messaging"
	natsclient "github.com/asbrown77/bagile-platform-sub001/common/messaging/nats"
	"github.com/asbrown77/bagile-platform-sub001/common/middleware"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/model"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/receiver"
)

// EnvelopeProcessor handles one envelope end to end.
type EnvelopeProcessor interface {
	Process(ctx context.Context, env model.Envelope) (receiver.Outcome, error)
}

// Handler consumes the envelope stream.
type Handler struct {
	consumer  messaging.Consumer
	processor EnvelopeProcessor
	stream    string
	name      string
	stop      func()
	logger    *logging.Logger
}

// NewHandler creates a Handler bound to the ingest workers consumer.
func NewHandler(consumer messaging.Consumer, processor EnvelopeProcessor, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Handler{
		consumer:  consumer,
		processor: processor,
		stream:    natsclient.EnvelopesStream.Name,
		name:      messaging.ConsumerIngestWorkers,
		logger:    logger.With(slog.String("component", "envelope-consumer")),
	}
}

// Start begins consuming. Messages are acked once processed and NAKed
// for redelivery when processing fails.
func (h *Handler) Start(ctx context.Context) error {
	stop, err := h.consumer.Consume(ctx, h.stream, h.name, h.HandleMessage)
	if err != nil {
		return fmt.Errorf("failed to consume %s: %w", h.stream, err)
	}
	h.stop = stop

	h.logger.Info("envelope consumer started",
		slog.String("stream", h.stream),
		slog.String("consumer", h.name),
		logging.Subject(messaging.Wildcard(messaging.SubjectEnvelopesPrefix)))
	return nil
}

// Stop halts consumption.
func (h *Handler) Stop() {
	if h.stop != nil {
		h.stop()
		h.stop = nil
		h.logger.Info("envelope consumer stopped")
	}
}

// HandleMessage processes one queued envelope.
func (h *Handler) HandleMessage(ctx context.Context, msg *messaging.Message) error {
	ctx = middleware.WithRequestID(ctx, msg.Header(messaging.HeaderRequestID))

	env := Decode(msg)
	outcome, err := h.processor.Process(ctx, env)
	if err != nil {
		return err
	}

	h.logger.DebugContext(ctx, "envelope processed",
		logging.Source(env.Source), logging.ExternalID(env.ExternalID),
		logging.Outcome(string(outcome.Status)),
		logging.Records(len(outcome.Records)),
		slog.Uint64("deliveries", msg.Deliveries))
	return nil
}

// Decode turns a message into an envelope. A message carrying the source
// header has the raw payload as its body with the other envelope fields
// in headers; any other body is decoded as an envelope document. Bodies
// that fail to decode become payloads of an envelope whose source is the
// subject's last token, so the processor dead-letters them.
func Decode(msg *messaging.Message) model.Envelope {
	if source := msg.Header(messaging.HeaderSource); source != "" {
		return model.Envelope{
			Source:     source,
			ExternalID: msg.Header(messaging.HeaderExternalID),
			EventType:  msg.Header(messaging.HeaderEventType),
			Payload:    string(msg.Data),
			ReceivedAt: msg.Timestamp.UTC(),
		}
	}

	var env model.Envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		return model.Envelope{
			Source:     subjectSource(msg.Subject),
			Payload:    string(msg.Data),
			ReceivedAt: msg.Timestamp.UTC(),
		}
	}
	if env.ReceivedAt.IsZero() {
		env.ReceivedAt = msg.Timestamp.UTC()
	}
	return env
}

func subjectSource(subject string) string {
	if i := strings.LastIndexByte(subject, '.'); i >= 0 {
		return subject[i+1:]
	}
	return subject
}
