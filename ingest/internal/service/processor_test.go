package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/canonical"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/dedupe"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/dlq"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/model"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/normalizer"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/receiver"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/skus"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/validator"
)

const courseRunJSON = `{"id": 501, "sku": "PSM-201125-AB", "title": "Professional Scrum Master", "start": "2025-11-20", "end": "2025-11-21", "capacity": 12}`

type recordingSink struct {
	mu      sync.Mutex
	records []canonical.Record
	calls   int
	err     error
}

func (s *recordingSink) Store(_ context.Context, records []canonical.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, records...)
	return nil
}

type deadLetter struct {
	env    model.Envelope
	reason string
}

type recordingDLQ struct {
	written []deadLetter
	err     error
}

func (d *recordingDLQ) Write(_ context.Context, env model.Envelope, _ error, reason string) error {
	if d.err != nil {
		return d.err
	}
	d.written = append(d.written, deadLetter{env: env, reason: reason})
	return nil
}

func newReceiver() *receiver.Receiver {
	resolver := skus.NewResolver(skus.DefaultTrainers())
	registry := normalizer.NewRegistry(
		normalizer.NewXero(resolver),
		normalizer.NewWooCommerce(resolver),
		normalizer.NewSchedule(resolver),
	)
	return receiver.New(registry, validator.NewChain(validator.BasicValidator{}))
}

func newProcessor(t *testing.T, s *recordingSink, q *recordingDLQ, store dedupe.Store) *Processor {
	t.Helper()
	deps := Dependencies{Receiver: newReceiver(), Sink: s, Dedupe: store}
	if q != nil {
		deps.DLQ = q
	}
	p, err := NewProcessor(deps)
	require.NoError(t, err)
	return p
}

func newDedupe(t *testing.T) *dedupe.Redis {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return dedupe.NewRedis(client, 0)
}

func TestNewProcessor_RequiresDependencies(t *testing.T) {
	_, err := NewProcessor(Dependencies{Sink: &recordingSink{}})
	assert.Error(t, err)
	_, err = NewProcessor(Dependencies{Receiver: newReceiver()})
	assert.Error(t, err)
}

func TestProcess_Accepted(t *testing.T) {
	s := &recordingSink{}
	p := newProcessor(t, s, &recordingDLQ{}, nil)

	outcome, err := p.Process(context.Background(), model.Envelope{Source: "schedule", Payload: courseRunJSON})
	require.NoError(t, err)

	assert.Equal(t, receiver.StatusAccepted, outcome.Status)
	require.Len(t, s.records, 1)
	assert.Equal(t, canonical.KindCourseSchedule, s.records[0].Kind())

	stats := p.Health()
	assert.Equal(t, uint64(1), stats.Received)
	assert.Equal(t, uint64(1), stats.Accepted)
	assert.Equal(t, uint64(1), stats.Records)
	assert.False(t, stats.LastEnvelope.IsZero())
}

func TestProcess_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		env    model.Envelope
		status receiver.Status
		reason string
	}{
		{
			name:   "unknown source",
			env:    model.Envelope{Source: "shopify", Payload: "{}"},
			status: receiver.StatusUnrecognized,
			reason: dlq.ReasonUnrecognized,
		},
		{
			name:   "malformed payload",
			env:    model.Envelope{Source: "schedule", Payload: "not json"},
			status: receiver.StatusUnparseable,
			reason: dlq.ReasonUnparseable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &recordingSink{}
			q := &recordingDLQ{}
			p := newProcessor(t, s, q, nil)

			outcome, err := p.Process(context.Background(), tt.env)
			require.NoError(t, err)
			assert.Equal(t, tt.status, outcome.Status)

			require.Len(t, q.written, 1)
			assert.Equal(t, tt.reason, q.written[0].reason)
			assert.Equal(t, tt.env, q.written[0].env)
			assert.Zero(t, s.calls)
			assert.Equal(t, uint64(1), p.Health().Failed)
		})
	}
}

func TestProcess_Skipped(t *testing.T) {
	s := &recordingSink{}
	q := &recordingDLQ{}
	p := newProcessor(t, s, q, nil)

	outcome, err := p.Process(context.Background(), model.Envelope{
		Source:  "woocommerce",
		Payload: `{"id": 77, "status": "checkout-draft", "total": "0.00", "line_items": []}`,
	})
	require.NoError(t, err)

	assert.Equal(t, receiver.StatusSkipped, outcome.Status)
	assert.ErrorIs(t, outcome.Err, normalizer.ErrNotCaptured)
	assert.Empty(t, q.written)
	assert.Zero(t, s.calls)
	assert.Equal(t, uint64(1), p.Health().Skipped)
}

func TestProcess_WithoutDLQ(t *testing.T) {
	p := newProcessor(t, &recordingSink{}, nil, nil)

	outcome, err := p.Process(context.Background(), model.Envelope{Source: "unknown"})
	require.NoError(t, err)
	assert.Equal(t, receiver.StatusUnrecognized, outcome.Status)
}

func TestProcess_DLQFailureIsReturned(t *testing.T) {
	q := &recordingDLQ{err: errors.New("stream unavailable")}
	p := newProcessor(t, &recordingSink{}, q, nil)

	_, err := p.Process(context.Background(), model.Envelope{Source: "unknown"})
	assert.Error(t, err)
}

func TestProcess_Duplicates(t *testing.T) {
	s := &recordingSink{}
	p := newProcessor(t, s, &recordingDLQ{}, newDedupe(t))
	env := model.Envelope{Source: "schedule", ExternalID: "501", Payload: courseRunJSON}

	first, err := p.Process(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, receiver.StatusAccepted, first.Status)

	second, err := p.Process(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, receiver.StatusSkipped, second.Status)
	assert.ErrorIs(t, second.Err, ErrDuplicate)

	assert.Len(t, s.records, 1)
	assert.Equal(t, uint64(1), p.Health().Duplicates)
}

func TestProcess_SinkFailureReleasesDedupe(t *testing.T) {
	s := &recordingSink{err: errors.New("opensearch down")}
	p := newProcessor(t, s, &recordingDLQ{}, newDedupe(t))
	env := model.Envelope{Source: "schedule", ExternalID: "501", Payload: courseRunJSON}

	_, err := p.Process(context.Background(), env)
	require.Error(t, err)
	assert.Equal(t, uint64(1), p.Health().Failed)

	// A redelivery after the sink recovers is processed, not dropped.
	s.err = nil
	outcome, err := p.Process(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, receiver.StatusAccepted, outcome.Status)
	assert.Len(t, s.records, 1)
}

func TestProcessBatch(t *testing.T) {
	s := &recordingSink{}
	q := &recordingDLQ{}
	p := newProcessor(t, s, q, nil)

	envs := []model.Envelope{
		{Source: "schedule", Payload: courseRunJSON},
		{Source: "shopify", Payload: "{}"},
		{Source: "schedule", Payload: `{"id": 502, "sku": "PSPO-011225-CB", "start": "2025-12-01"}`},
	}

	outcomes, err := p.ProcessBatch(context.Background(), envs)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	assert.Equal(t, receiver.StatusAccepted, outcomes[0].Status)
	assert.Equal(t, receiver.StatusUnrecognized, outcomes[1].Status)
	assert.Equal(t, receiver.StatusAccepted, outcomes[2].Status)

	assert.Equal(t, 1, s.calls, "accepted records are stored in one call")
	assert.Len(t, s.records, 2)
	assert.Len(t, q.written, 1)
}

func TestProcessBatch_Cancelled(t *testing.T) {
	s := &recordingSink{}
	p := newProcessor(t, s, &recordingDLQ{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes, err := p.ProcessBatch(ctx, []model.Envelope{{Source: "schedule", Payload: courseRunJSON}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, outcomes)
	assert.Zero(t, s.calls)
}

func TestSources(t *testing.T) {
	p := newProcessor(t, &recordingSink{}, nil, nil)
	assert.Equal(t, []string{"schedule", "woocommerce", "xero"}, p.Sources())
}
