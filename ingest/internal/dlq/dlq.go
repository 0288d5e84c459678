// Package dlq stores envelopes that no normalizer could accept so they
// can be inspected and replayed.
package dlq

import (
	"errors"
	"time"

	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/model"
)

// Reasons used as DLQ subjects and file tags.
const (
	ReasonUnrecognized = "unrecognized"
	ReasonUnparseable  = "unparseable"
)

// ErrDisabled is returned by read operations on a nil queue.
var ErrDisabled = errors.New("dlq not enabled")

// FailedEnvelope captures a rejected envelope with its failure details.
type FailedEnvelope struct {
	Timestamp   time.Time      `json:"timestamp"`
	Envelope    model.Envelope `json:"envelope"`
	Error       string         `json:"error"`
	Reason      string         `json:"reason"`
	Attempts    int            `json:"attempts"`
	LastAttempt time.Time      `json:"last_attempt"`
}

func newFailed(env model.Envelope, err error, reason string) FailedEnvelope {
	now := time.Now().UTC()
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return FailedEnvelope{
		Timestamp:   now,
		Envelope:    env,
		Error:       msg,
		Reason:      reason,
		Attempts:    1,
		LastAttempt: now,
	}
}
