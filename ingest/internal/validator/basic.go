package validator

import (
	"context"
	"errors"
	"fmt"

	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/canonical"
)

// ErrInvalidRecord wraps every structural validation failure.
var ErrInvalidRecord = errors.New("invalid record")

// BasicValidator ensures the fields downstream consumers key on exist.
type BasicValidator struct{}

// Supports returns true for all known kinds.
func (BasicValidator) Supports(kind canonical.Kind) bool {
	switch kind {
	case canonical.KindOrder, canonical.KindEnrolment, canonical.KindTransfer, canonical.KindCourseSchedule:
		return true
	}
	return false
}

// Validate performs structural validation.
func (BasicValidator) Validate(_ context.Context, record canonical.Record) error {
	if record.RecordID() == "" {
		return invalid(record, "missing id")
	}

	switch r := record.(type) {
	case canonical.Order:
		if r.Source == "" || r.ExternalID == "" {
			return invalid(record, "missing source or external id")
		}
		switch r.Status {
		case canonical.OrderPending, canonical.OrderPaid, canonical.OrderCancelled, canonical.OrderRefunded:
		default:
			return invalid(record, "unknown status %q", r.Status)
		}
	case canonical.Enrolment:
		if r.OrderExternalID == "" || r.Sku == "" {
			return invalid(record, "missing order or sku")
		}
		if r.Quantity <= 0 {
			return invalid(record, "quantity %d", r.Quantity)
		}
	case canonical.Transfer:
		if r.FromSku == "" {
			return invalid(record, "missing original sku")
		}
	case canonical.CourseSchedule:
		if r.Sku == "" || r.Start.IsZero() {
			return invalid(record, "missing sku or start")
		}
		if r.End.Before(r.Start) {
			return invalid(record, "ends before it starts")
		}
		if r.Capacity < 0 {
			return invalid(record, "negative capacity")
		}
	}
	return nil
}

func invalid(record canonical.Record, format string, args ...any) error {
	return fmt.Errorf("%w: %s %s: %s", ErrInvalidRecord, record.Kind(), record.RecordID(), fmt.Sprintf(format, args...))
}
