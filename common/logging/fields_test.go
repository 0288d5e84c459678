package logging

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFieldHelpers(t *testing.T) {
	tests := []struct {
		name string
		attr slog.Attr
		key  string
		want any
	}{
		{"service", Service("ingest"), FieldService, "ingest"},
		{"source", Source("woocommerce"), FieldSource, "woocommerce"},
		{"external id", ExternalID("1234"), FieldExternalID, "1234"},
		{"event type", EventType("order.updated"), FieldEventType, "order.updated"},
		{"outcome", Outcome("accepted"), FieldOutcome, "accepted"},
		{"records", Records(3), FieldRecords, int64(3)},
		{"record kind", RecordKind("enrolment"), FieldRecordKind, "enrolment"},
		{"reason", Reason("not_captured"), FieldReason, "not_captured"},
		{"subject", Subject("ingest.envelopes.xero"), FieldSubject, "ingest.envelopes.xero"},
		{"duration", Duration(150), FieldDuration, int64(150)},
		{"error", Error(errors.New("boom")), FieldError, "boom"},
		{"nil error", Error(nil), FieldError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.key, tt.attr.Key)
			assert.Equal(t, tt.want, tt.attr.Value.Any())
		})
	}
}
