package normalizer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/canonical"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/designation"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/model"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/validator"
)

const xeroInvoiceJSON = `{
	"InvoiceID": "inv-42",
	"InvoiceNumber": "INV-0042",
	"Type": "ACCREC",
	"Status": "PAID",
	"Reference": "PO-9",
	"Date": "/Date(1762387200000+0000)/",
	"CurrencyCode": "GBP",
	"Total": 2400.00,
	"Contact": {"Name": "Acme Ltd", "EmailAddress": "ops@acme.test"},
	"LineItems": [
		{"LineItemID": "l1", "ItemCode": "PSM-061125-CB", "Description": "Professional Scrum Master", "Quantity": 1, "UnitAmount": 1200.00},
		{"LineItemID": "l2", "Description": "Venue surcharge", "Quantity": 1, "UnitAmount": 0},
		{"LineItemID": "l3", "ItemCode": "PSPO-201125-AB", "Description": "Transfer from cancelled PSPO-101125-AB", "Quantity": 1.0, "UnitAmount": 1200.00}
	]
}`

func TestXero_Normalize(t *testing.T) {
	recs, err := normalizeOne(t, NewXero(testResolver()), model.Envelope{Source: "xero", ExternalID: "inv-42", Payload: xeroInvoiceJSON})
	require.NoError(t, err)
	require.Len(t, recs, 4)

	order, ok := recs[0].(canonical.Order)
	require.True(t, ok)
	assert.Equal(t, "inv-42", order.ExternalID)
	assert.Equal(t, canonical.OrderPaid, order.Status)
	assert.Equal(t, canonical.Money{Amount: 240000, Currency: "GBP"}, order.Total)
	assert.Equal(t, "Acme Ltd", order.Customer.Name)
	assert.True(t, order.PlacedAt.Equal(time.Date(2025, 11, 6, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, canonical.NewID(canonical.KindOrder, "xero", "inv-42"), order.ID)

	first, ok := recs[1].(canonical.Enrolment)
	require.True(t, ok)
	assert.Equal(t, "PSM-061125-CB", first.Sku)
	assert.Equal(t, "PSM", first.CourseCode)
	assert.Equal(t, "Chris Bexon", first.Trainer)
	assert.Equal(t, int64(120000), first.UnitPrice.Amount)

	second, ok := recs[2].(canonical.Enrolment)
	require.True(t, ok)
	assert.Equal(t, "l3", second.LineID)
	assert.Equal(t, "Alex Brown", second.Trainer)

	transfer, ok := recs[3].(canonical.Transfer)
	require.True(t, ok)
	assert.Equal(t, "PSPO-101125-AB", transfer.FromSku)
	assert.Equal(t, "PSPO-201125-AB", transfer.ToSku)
	assert.Equal(t, designation.ReasonCourseCancelled, transfer.Reason)
	assert.True(t, transfer.RefundEligible)
}

func TestXero_NotCaptured(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"bill", `{"InvoiceID":"a","Type":"ACCPAY","Status":"PAID"}`},
		{"draft", `{"InvoiceID":"a","Type":"ACCREC","Status":"DRAFT"}`},
		{"webstore reference", `{"InvoiceID":"a","Type":"ACCREC","Status":"PAID","Reference":"#10421"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := normalizeOne(t, NewXero(testResolver()), model.Envelope{Source: "xero", Payload: tt.payload})
			assert.ErrorIs(t, err, ErrNotCaptured)
			assert.Empty(t, recs)
		})
	}
}

func TestXero_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `<Invoice/>`},
		{"no id", `{"Type":"ACCREC","Status":"PAID"}`},
		{"bad date", `{"InvoiceID":"a","Type":"ACCREC","Status":"PAID","Date":"soon"}`},
		{"fractional quantity", `{"InvoiceID":"a","Type":"ACCREC","Status":"PAID","LineItems":[{"ItemCode":"PSM-1-CB","Quantity":1.5}]}`},
		{"sub-penny amount", `{"InvoiceID":"a","Type":"ACCREC","Status":"PAID","Total":10.005}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := normalizeOne(t, NewXero(testResolver()), model.Envelope{Source: "xero", Payload: tt.payload})
			assert.ErrorIs(t, err, ErrMalformedPayload)
		})
	}
}

func TestXero_ExternalIDFallback(t *testing.T) {
	recs, err := normalizeOne(t, NewXero(testResolver()), model.Envelope{
		Source:     "xero",
		ExternalID: "from-envelope",
		Payload:    `{"Type":"ACCREC","Status":"AUTHORISED","Total":"0"}`,
	})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "from-envelope", recs[0].(canonical.Order).ExternalID)
	assert.Equal(t, canonical.OrderPending, recs[0].(canonical.Order).Status)
}

func TestXero_LineAmounts(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantQty  int
		wantUnit int64
		wantLine int64
	}{
		{
			name:     "four decimal unit amount uses line amount",
			line:     `{"LineItemID":"l1","ItemCode":"PSM-061125-CB","Quantity":3,"UnitAmount":333.3333,"LineAmount":1000.00}`,
			wantQty:  3,
			wantUnit: 33333,
			wantLine: 100000,
		},
		{
			name:     "zero quantity counts as one",
			line:     `{"LineItemID":"l1","ItemCode":"PSM-061125-CB","Quantity":0,"UnitAmount":450.00,"LineAmount":450.00}`,
			wantQty:  1,
			wantUnit: 45000,
			wantLine: 45000,
		},
		{
			name:     "unit amount when line amount absent",
			line:     `{"LineItemID":"l1","ItemCode":"PSM-061125-CB","Quantity":2,"UnitAmount":750.00}`,
			wantQty:  2,
			wantUnit: 75000,
			wantLine: 150000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := `{"InvoiceID":"a","Type":"ACCREC","Status":"PAID","CurrencyCode":"GBP","LineItems":[` + tt.line + `]}`
			recs, err := normalizeOne(t, NewXero(testResolver()), model.Envelope{Source: "xero", Payload: payload})
			require.NoError(t, err)
			require.Len(t, recs, 2)

			enrolment := recs[1].(canonical.Enrolment)
			assert.Equal(t, tt.wantQty, enrolment.Quantity)
			assert.Equal(t, canonical.Money{Amount: tt.wantUnit, Currency: "GBP"}, enrolment.UnitPrice)
			assert.Equal(t, canonical.Money{Amount: tt.wantLine, Currency: "GBP"}, enrolment.LineTotal)
			assert.NoError(t, validator.BasicValidator{}.Validate(context.Background(), enrolment))
		})
	}
}
