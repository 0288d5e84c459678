package logging

import "log/slog"

// Field names shared by every service so log queries stay stable.
const (
	FieldService    = "service"
	FieldRequestID  = "request_id"
	FieldSource     = "source"
	FieldExternalID = "external_id"
	FieldEventType  = "event_type"
	FieldOutcome    = "outcome"
	FieldRecords    = "records"
	FieldRecordKind = "record_kind"
	FieldReason     = "reason"
	FieldSubject    = "subject"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// Source returns a slog attribute for the origin system of an envelope.
func Source(source string) slog.Attr {
	return slog.String(FieldSource, source)
}

// ExternalID returns a slog attribute for the origin system's record key.
func ExternalID(id string) slog.Attr {
	return slog.String(FieldExternalID, id)
}

// EventType returns a slog attribute for the envelope event tag.
func EventType(eventType string) slog.Attr {
	return slog.String(FieldEventType, eventType)
}

// Outcome returns a slog attribute for a receiver outcome status.
func Outcome(status string) slog.Attr {
	return slog.String(FieldOutcome, status)
}

// Records returns a slog attribute for a produced record count.
func Records(n int) slog.Attr {
	return slog.Int(FieldRecords, n)
}

// RecordKind returns a slog attribute for a canonical record kind.
func RecordKind(kind string) slog.Attr {
	return slog.String(FieldRecordKind, kind)
}

// Reason returns a slog attribute explaining a skip or dead-letter.
func Reason(reason string) slog.Attr {
	return slog.String(FieldReason, reason)
}

// Subject returns a slog attribute for a message bus subject.
func Subject(subject string) slog.Attr {
	return slog.String(FieldSubject, subject)
}

// Duration returns a slog attribute for duration in milliseconds.
func Duration(ms int64) slog.Attr {
	return slog.Int64(FieldDuration, ms)
}

// Error returns a slog attribute for an error. A nil error yields an
// empty value rather than panicking.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(FieldError, "")
	}
	return slog.String(FieldError, err.Error())
}
