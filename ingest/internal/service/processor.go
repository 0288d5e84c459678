// Package service drives envelopes through the receiver and hands the
// results to storage or the dead-letter queue.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/asbrown77/bagile-platform-sub001/common/logging"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/canonical"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/dedupe"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/dlq"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/metrics"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/model"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/receiver"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/sink"
)

// ErrDuplicate is carried by skipped outcomes for repeated deliveries.
var ErrDuplicate = errors.New("duplicate delivery")

// DeadLetter stores envelopes that could not be normalized.
type DeadLetter interface {
	Write(ctx context.Context, env model.Envelope, err error, reason string) error
}

// Dependencies wires a Processor. Receiver and Sink are required; the
// rest fall back to no-ops.
type Dependencies struct {
	Receiver *receiver.Receiver
	Sink     sink.Sink
	DLQ      DeadLetter
	Dedupe   dedupe.Store
	Logger   *logging.Logger
}

// Processor wraps the receiver and captures basic telemetry.
type Processor struct {
	receiver *receiver.Receiver
	sink     sink.Sink
	dlq      DeadLetter
	dedupe   dedupe.Store
	logger   *logging.Logger

	startedAt  time.Time
	lastSeen   atomic.Int64
	received   atomic.Uint64
	accepted   atomic.Uint64
	skipped    atomic.Uint64
	duplicates atomic.Uint64
	failed     atomic.Uint64
	records    atomic.Uint64
}

// NewProcessor creates a new Processor instance.
func NewProcessor(deps Dependencies) (*Processor, error) {
	if deps.Receiver == nil {
		return nil, fmt.Errorf("receiver is required")
	}
	if deps.Sink == nil {
		return nil, fmt.Errorf("sink is required")
	}
	if deps.Dedupe == nil {
		deps.Dedupe = dedupe.NoOp{}
	}
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	return &Processor{
		receiver:  deps.Receiver,
		sink:      deps.Sink,
		dlq:       deps.DLQ,
		dedupe:    deps.Dedupe,
		logger:    deps.Logger,
		startedAt: time.Now().UTC(),
	}, nil
}

// Process runs one envelope end to end. The returned error means the
// envelope was not durably handled and should be redelivered.
func (p *Processor) Process(ctx context.Context, env model.Envelope) (receiver.Outcome, error) {
	outcomes, err := p.ProcessBatch(ctx, []model.Envelope{env})
	if err != nil {
		return receiver.Outcome{}, err
	}
	return outcomes[0], nil
}

// ProcessBatch runs envelopes end to end. Records from every accepted
// envelope are stored in a single sink call; if that fails nothing in
// the batch counts as handled.
func (p *Processor) ProcessBatch(ctx context.Context, envs []model.Envelope) ([]receiver.Outcome, error) {
	outcomes := make([]receiver.Outcome, len(envs))
	var fresh []model.Envelope
	var freshIdx []int

	for i, env := range envs {
		p.received.Add(1)
		metrics.EnvelopeBytesTotal.Add(float64(len(env.Payload)))

		dup, err := p.dedupe.Seen(ctx, env)
		if err != nil {
			p.logger.WarnContext(ctx, "dedupe check failed, processing anyway",
				logging.Source(env.Source), logging.ExternalID(env.ExternalID), logging.Error(err))
		}
		if dup {
			p.duplicates.Add(1)
			metrics.DuplicatesTotal.WithLabelValues(env.SourceKey()).Inc()
			outcomes[i] = receiver.Outcome{
				Status:     receiver.StatusSkipped,
				Source:     env.SourceKey(),
				ExternalID: env.ExternalID,
				Err:        ErrDuplicate,
			}
			continue
		}
		fresh = append(fresh, env)
		freshIdx = append(freshIdx, i)
	}
	p.lastSeen.Store(time.Now().UnixNano())

	if len(fresh) == 0 {
		return outcomes, nil
	}

	start := time.Now()
	received, err := p.receiver.ReceiveBatch(ctx, fresh)
	metrics.NormalizationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		p.forget(ctx, fresh)
		return nil, err
	}

	var records []canonical.Record
	var stored []model.Envelope
	for j, outcome := range received {
		env := fresh[j]
		outcomes[freshIdx[j]] = outcome

		switch outcome.Status {
		case receiver.StatusAccepted:
			records = append(records, outcome.Records...)
			stored = append(stored, env)
		case receiver.StatusSkipped:
			p.skipped.Add(1)
			p.logger.DebugContext(ctx, "envelope skipped",
				logging.Source(env.Source), logging.ExternalID(env.ExternalID),
				logging.Reason(outcome.Reason()))
		default:
			if err := p.deadLetter(ctx, env, outcome); err != nil {
				p.forget(ctx, append(stored, fresh[j:]...))
				return nil, err
			}
		}
		metrics.EnvelopesTotal.WithLabelValues(outcome.Source, string(outcome.Status)).Inc()
	}

	if len(records) == 0 {
		return outcomes, nil
	}

	start = time.Now()
	err = p.sink.Store(ctx, records)
	metrics.SinkDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SinkErrors.Inc()
		p.failed.Add(uint64(len(stored)))
		p.forget(ctx, stored)
		p.logger.ErrorContext(ctx, "record handoff failed",
			logging.Records(len(records)), logging.Error(err))
		return nil, fmt.Errorf("store records: %w", err)
	}

	p.accepted.Add(uint64(len(stored)))
	p.records.Add(uint64(len(records)))
	for _, rec := range records {
		metrics.RecordsTotal.WithLabelValues(string(rec.Kind())).Inc()
	}
	p.logger.DebugContext(ctx, "records stored",
		logging.Records(len(records)), slog.Int("envelopes", len(stored)))

	return outcomes, nil
}

func (p *Processor) deadLetter(ctx context.Context, env model.Envelope, outcome receiver.Outcome) error {
	p.failed.Add(1)
	reason := dlq.ReasonUnparseable
	if outcome.Status == receiver.StatusUnrecognized {
		reason = dlq.ReasonUnrecognized
	}

	p.logger.WarnContext(ctx, "envelope rejected",
		logging.Source(env.Source), logging.ExternalID(env.ExternalID),
		logging.Outcome(string(outcome.Status)), logging.Error(outcome.Err))

	if p.dlq == nil {
		return nil
	}
	if err := p.dlq.Write(ctx, env, outcome.Err, reason); err != nil {
		return fmt.Errorf("dead-letter envelope: %w", err)
	}
	metrics.DLQWrites.WithLabelValues(reason).Inc()
	return nil
}

// forget releases dedupe claims so redelivered envelopes are processed.
func (p *Processor) forget(ctx context.Context, envs []model.Envelope) {
	ctx = context.WithoutCancel(ctx)
	for _, env := range envs {
		if err := p.dedupe.Forget(ctx, env); err != nil {
			p.logger.WarnContext(ctx, "dedupe release failed",
				logging.Source(env.Source), logging.ExternalID(env.ExternalID), logging.Error(err))
		}
	}
}

// Sources lists the sources the processor can route.
func (p *Processor) Sources() []string {
	return p.receiver.Sources()
}

// Stats returns a snapshot of processor metrics.
type Stats struct {
	UptimeSeconds int64     `json:"uptime_seconds"`
	Received      uint64    `json:"received"`
	Accepted      uint64    `json:"accepted"`
	Skipped       uint64    `json:"skipped"`
	Duplicates    uint64    `json:"duplicates"`
	Failed        uint64    `json:"failed"`
	Records       uint64    `json:"records"`
	LastEnvelope  time.Time `json:"last_envelope"`
}

// Health returns live status for health checks.
func (p *Processor) Health() Stats {
	s := Stats{
		UptimeSeconds: int64(time.Since(p.startedAt).Seconds()),
		Received:      p.received.Load(),
		Accepted:      p.accepted.Load(),
		Skipped:       p.skipped.Load(),
		Duplicates:    p.duplicates.Load(),
		Failed:        p.failed.Load(),
		Records:       p.records.Load(),
	}
	if ns := p.lastSeen.Load(); ns != 0 {
		s.LastEnvelope = time.Unix(0, ns).UTC()
	}
	return s
}
