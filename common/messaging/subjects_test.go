package messaging

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubjectBuilders(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"envelope", EnvelopeSubject("WooCommerce"), "ingest.envelopes.woocommerce"},
		{"envelope trims", EnvelopeSubject("  xero "), "ingest.envelopes.xero"},
		{"record", RecordSubject("course_schedule"), "records.course_schedule"},
		{"dlq", DLQSubject("unparseable"), "ingest.dlq.unparseable"},
		{"empty token", DLQSubject(""), "ingest.dlq.unknown"},
		{"wildcard", Wildcard(SubjectRecordsPrefix), "records.>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestToken_StripsSubjectSyntax(t *testing.T) {
	tok := Token("shop.example.com *> x")
	assert.False(t, strings.ContainsAny(tok, ".*> "), "token %q still contains subject syntax", tok)
	assert.Equal(t, "shop_example_com____x", tok)
}

func TestSubjects_StayInsideStreamPrefix(t *testing.T) {
	assert.True(t, strings.HasPrefix(EnvelopeSubject("a.b"), SubjectEnvelopesPrefix+"."))
	assert.Len(t, strings.Split(EnvelopeSubject("a.b"), "."), 3)
}
