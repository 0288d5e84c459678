package messaging

import "strings"

// Subject prefixes for the ingestion message bus.
// Follow the pattern: {domain}.{action}.{token}
const (
	// SubjectEnvelopesPrefix carries raw ingestion envelopes, one subject per source.
	SubjectEnvelopesPrefix = "ingest.envelopes"

	// SubjectRecordsPrefix carries canonical records, one subject per record kind.
	SubjectRecordsPrefix = "records"

	// SubjectDLQPrefix carries dead-lettered envelopes, one subject per reason.
	SubjectDLQPrefix = "ingest.dlq"
)

// Durable consumer names.
const (
	ConsumerIngestWorkers = "ingest-workers"
)

// Header keys set on published messages.
const (
	HeaderRequestID  = "X-Request-ID"
	HeaderSource     = "Bagile-Source"
	HeaderExternalID = "Bagile-External-ID"
	HeaderEventType  = "Bagile-Event-Type"
	HeaderRecordID   = "Bagile-Record-ID"
)

// EnvelopeSubject returns the subject for envelopes from source.
// Example: ingest.envelopes.woocommerce
func EnvelopeSubject(source string) string {
	return SubjectEnvelopesPrefix + "." + Token(source)
}

// RecordSubject returns the subject for canonical records of kind.
// Example: records.enrolment
func RecordSubject(kind string) string {
	return SubjectRecordsPrefix + "." + Token(kind)
}

// DLQSubject returns the dead-letter subject for reason.
// Example: ingest.dlq.unparseable
func DLQSubject(reason string) string {
	return SubjectDLQPrefix + "." + Token(reason)
}

// Wildcard returns the subject filter matching everything below prefix.
func Wildcard(prefix string) string {
	return prefix + ".>"
}

// Token lower-cases s and replaces characters that are not valid inside a
// single subject token. An empty input becomes "unknown".
func Token(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, s)
}
