package designation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Classification
	}{
		{
			name: "cancelled course",
			text: "Transfer from cancelled PSM-061125-CB",
			want: Classification{IsTransfer: true, OriginalSku: "PSM-061125-CB", Reason: ReasonCourseCancelled, RefundEligible: true},
		},
		{
			name: "attendee requested",
			text: "Transfer from PSM-061125-CB",
			want: Classification{IsTransfer: true, OriginalSku: "PSM-061125-CB", Reason: ReasonAttendeeRequested},
		},
		{
			name: "lower case keywords keep sku casing",
			text: "transfer from cancelled psm-061125-cb",
			want: Classification{IsTransfer: true, OriginalSku: "psm-061125-cb", Reason: ReasonCourseCancelled, RefundEligible: true},
		},
		{
			name: "mixed case keywords",
			text: "TRANSFER FROM CANCELLED Pspo-0312-AB",
			want: Classification{IsTransfer: true, OriginalSku: "Pspo-0312-AB", Reason: ReasonCourseCancelled, RefundEligible: true},
		},
		{
			name: "extra spaces around sku are trimmed",
			text: "Transfer from   PSM-061125-CB  ",
			want: Classification{IsTransfer: true, OriginalSku: "PSM-061125-CB", Reason: ReasonAttendeeRequested},
		},
		{
			name: "phrase without sku",
			text: "Transfer from",
			want: Classification{IsTransfer: true, Reason: ReasonAttendeeRequested},
		},
		{
			name: "cancelled without sku",
			text: "Transfer from cancelled",
			want: Classification{IsTransfer: true, Reason: ReasonCourseCancelled, RefundEligible: true},
		},
		{
			name: "cancelled glued to sku",
			text: "Transfer from cancelledPSM-1-CB",
			want: Classification{IsTransfer: true, OriginalSku: "PSM-1-CB", Reason: ReasonCourseCancelled, RefundEligible: true},
		},
		{name: "other text", text: "Some other text", want: Classification{}},
		{name: "empty", text: "", want: Classification{}},
		{name: "phrase not at start", text: "Please transfer from PSM-1-CB", want: Classification{}},
		{
			name: "phrase glued to following text",
			text: "transfer fromage",
			want: Classification{IsTransfer: true, OriginalSku: "age", Reason: ReasonAttendeeRequested},
		},
		{name: "truncated phrase", text: "transfer fro", want: Classification{}},
		{name: "non-ascii input", text: "trànsfer from PSM-1-CB", want: Classification{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.text)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got.Reason == ReasonCourseCancelled, got.RefundEligible)
			assert.Equal(t, got, Parse(tt.text), "parse must be repeatable")
		})
	}
}

func TestParse_NotTransferDefault(t *testing.T) {
	got := Parse("Some other text")

	assert.False(t, got.IsTransfer)
	assert.Empty(t, got.OriginalSku)
	assert.Equal(t, ReasonUnknown, got.Reason)
	assert.False(t, got.RefundEligible)
}

func TestReason_String(t *testing.T) {
	assert.Equal(t, "unknown", ReasonUnknown.String())
	assert.Equal(t, "course_cancelled", ReasonCourseCancelled.String())
	assert.Equal(t, "attendee_requested", ReasonAttendeeRequested.String())
	assert.Equal(t, "unknown", Reason(42).String())
}

func TestClassification_JSON(t *testing.T) {
	data, err := json.Marshal(Parse("Transfer from cancelled PSM-061125-CB"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"isTransfer":true,"originalSku":"PSM-061125-CB","reason":"course_cancelled","refundEligible":true}`, string(data))

	var back Classification
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, ReasonCourseCancelled, back.Reason)
}
