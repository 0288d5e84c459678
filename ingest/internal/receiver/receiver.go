// Package receiver routes ingestion envelopes to the normalizer for their
// source and reports a typed outcome. It performs no I/O; handing the
// produced records to storage is the caller's job.
package receiver

import (
	"context"
	"errors"
	"fmt"

	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/canonical"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/model"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/normalizer"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/transform"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/validator"
)

// ErrUnknownSource is carried by unrecognized outcomes.
var ErrUnknownSource = errors.New("unknown source")

// Status classifies what happened to an envelope.
type Status string

const (
	// StatusAccepted means at least one record was produced.
	StatusAccepted Status = "accepted"
	// StatusSkipped means the envelope was understood but is not captured.
	StatusSkipped Status = "skipped"
	// StatusUnrecognized means no normalizer is registered for the source.
	StatusUnrecognized Status = "unrecognized"
	// StatusUnparseable means the payload does not fit the source's shape.
	StatusUnparseable Status = "unparseable"
)

// Outcome is the result of receiving one envelope.
type Outcome struct {
	Status     Status             `json:"status"`
	Source     string             `json:"source"`
	ExternalID string             `json:"externalId,omitempty"`
	Records    []canonical.Record `json:"records,omitempty"`
	Err        error              `json:"-"`
}

// Reason returns a human-readable explanation for non-accepted outcomes.
func (o Outcome) Reason() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// Accepted reports whether records were produced.
func (o Outcome) Accepted() bool {
	return o.Status == StatusAccepted
}

// Receiver routes envelopes by source.
type Receiver struct {
	registry   *normalizer.Registry
	validators *validator.Chain
}

// New creates a Receiver. A nil chain skips record validation.
func New(registry *normalizer.Registry, validators *validator.Chain) *Receiver {
	return &Receiver{registry: registry, validators: validators}
}

// Receive normalizes one envelope. The error is non-nil only when ctx is
// done; every other problem is reported through the Outcome.
func (r *Receiver) Receive(ctx context.Context, env model.Envelope) (Outcome, error) {
	outcomes, err := r.ReceiveBatch(ctx, []model.Envelope{env})
	if err != nil {
		return Outcome{}, err
	}
	return outcomes[0], nil
}

// ReceiveBatch normalizes envelopes, sending each source's envelopes
// through its normalizer as one batch. Outcomes are returned in input
// order. When ctx ends mid-batch no outcomes are returned.
func (r *Receiver) ReceiveBatch(ctx context.Context, envs []model.Envelope) ([]Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	outcomes := make([]Outcome, len(envs))
	groups := make(map[string][]int)
	var order []string

	for i, env := range envs {
		key := env.SourceKey()
		if r.registry.Find(key) == nil {
			outcomes[i] = Outcome{
				Status:     StatusUnrecognized,
				Source:     key,
				ExternalID: env.ExternalID,
				Err:        fmt.Errorf("%w: %q", ErrUnknownSource, env.Source),
			}
			continue
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}

	for _, key := range order {
		idx := groups[key]
		batch := make([]model.Envelope, len(idx))
		for j, i := range idx {
			batch[j] = envs[i]
		}

		results, err := r.registry.Find(key).Transform(ctx, batch)
		if err != nil {
			return nil, err
		}
		for j, i := range idx {
			outcomes[i] = r.outcome(ctx, envs[i], results[j])
		}
	}

	return outcomes, nil
}

func (r *Receiver) outcome(ctx context.Context, env model.Envelope, res transform.Result[canonical.Record]) Outcome {
	o := Outcome{Source: env.SourceKey(), ExternalID: env.ExternalID}

	switch {
	case errors.Is(res.Err, normalizer.ErrNotCaptured):
		o.Status, o.Err = StatusSkipped, res.Err
		return o
	case res.Err != nil:
		o.Status, o.Err = StatusUnparseable, res.Err
		return o
	case len(res.Outputs) == 0:
		o.Status, o.Err = StatusSkipped, errors.New("no records produced")
		return o
	}

	for _, rec := range res.Outputs {
		if err := r.validators.Validate(ctx, rec); err != nil {
			o.Status, o.Err = StatusUnparseable, err
			return o
		}
	}

	o.Status, o.Records = StatusAccepted, res.Outputs
	return o
}

// Sources lists the sources this receiver can route.
func (r *Receiver) Sources() []string {
	return r.registry.Sources()
}
