package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/canonical"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/designation"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/model"
)

const wooOrderJSON = `{
	"id": 10421,
	"number": "10421",
	"status": "processing",
	"currency": "GBP",
	"total": "1350.00",
	"date_created_gmt": "2025-10-01T09:15:00",
	"customer_note": "Transfer from PSM-061125-CB",
	"billing": {"first_name": "Sam", "last_name": "Taylor", "company": "Taylor & Co", "email": "sam@taylor.test"},
	"line_items": [
		{"id": 1, "name": "PSM 20 Nov", "sku": "PSM-201125-AB", "quantity": 1, "total": "1200.00"},
		{"id": 2, "name": "Workbook", "sku": "", "quantity": 1, "total": "150.00"}
	]
}`

const wooDraftJSON = `{"id": 77, "status": "checkout-draft", "total": "0.00", "line_items": []}`

func TestWooCommerce_Normalize(t *testing.T) {
	recs, err := normalizeOne(t, NewWooCommerce(testResolver()), model.Envelope{Source: "woocommerce", Payload: wooOrderJSON})
	require.NoError(t, err)
	require.Len(t, recs, 3)

	order := recs[0].(canonical.Order)
	assert.Equal(t, "10421", order.ExternalID)
	assert.Equal(t, canonical.OrderPaid, order.Status)
	assert.Equal(t, int64(135000), order.Total.Amount)
	assert.Equal(t, "Sam Taylor", order.Customer.Name)
	assert.Equal(t, 2025, order.PlacedAt.Year())

	enrolment := recs[1].(canonical.Enrolment)
	assert.Equal(t, "PSM-201125-AB", enrolment.Sku)
	assert.Equal(t, "Alex Brown", enrolment.Trainer)
	assert.Equal(t, "1", enrolment.LineID)
	assert.Equal(t, int64(120000), enrolment.UnitPrice.Amount)

	transfer := recs[2].(canonical.Transfer)
	assert.Equal(t, "PSM-061125-CB", transfer.FromSku)
	assert.Equal(t, "PSM-201125-AB", transfer.ToSku)
	assert.Equal(t, designation.ReasonAttendeeRequested, transfer.Reason)
	assert.False(t, transfer.RefundEligible)
}

func TestWooCommerce_StatusMapping(t *testing.T) {
	tests := []struct {
		status string
		want   canonical.OrderStatus
	}{
		{"pending", canonical.OrderPending},
		{"on-hold", canonical.OrderPending},
		{"completed", canonical.OrderPaid},
		{"Cancelled", canonical.OrderCancelled},
		{"failed", canonical.OrderCancelled},
		{"refunded", canonical.OrderRefunded},
		{"custom-status", canonical.OrderPending},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			payload := `{"id": 5, "status": "` + tt.status + `", "total": "10.00", "line_items": []}`
			recs, err := normalizeOne(t, NewWooCommerce(testResolver()), model.Envelope{Payload: payload})
			require.NoError(t, err)
			assert.Equal(t, tt.want, recs[0].(canonical.Order).Status)
		})
	}
}

func TestWooCommerce_NotCaptured(t *testing.T) {
	for _, payload := range []string{wooDraftJSON, `{"id": 78, "status": "trash", "total": "0.00"}`} {
		_, err := normalizeOne(t, NewWooCommerce(testResolver()), model.Envelope{Payload: payload})
		assert.ErrorIs(t, err, ErrNotCaptured)
	}
}

func TestWooCommerce_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `{`},
		{"id is an object", `{"id": {}, "status": "processing"}`},
		{"missing id", `{"status": "processing", "total": "1.00"}`},
		{"bad total", `{"id": 1, "status": "processing", "total": "lots"}`},
		{"bad date", `{"id": 1, "status": "processing", "total": "1.00", "date_created_gmt": "tomorrow"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := normalizeOne(t, NewWooCommerce(testResolver()), model.Envelope{Payload: tt.payload})
			assert.ErrorIs(t, err, ErrMalformedPayload)
		})
	}
}

func TestWooCommerce_TransferWithoutSkuIsDropped(t *testing.T) {
	payload := `{"id": 9, "status": "processing", "total": "0.00", "customer_note": "Transfer from", "line_items": []}`
	recs, err := normalizeOne(t, NewWooCommerce(testResolver()), model.Envelope{Payload: payload})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, canonical.KindOrder, recs[0].Kind())
}

func TestWooCommerce_MultiSeatLineKeepsTotal(t *testing.T) {
	payload := `{"id": 12, "status": "processing", "currency": "GBP", "total": "100.00",
		"line_items": [{"id": 3, "name": "PSM", "sku": "PSM-201125-AB", "quantity": 3, "total": "100.00"}]}`
	recs, err := normalizeOne(t, NewWooCommerce(testResolver()), model.Envelope{Payload: payload})
	require.NoError(t, err)
	require.Len(t, recs, 2)

	enrolment := recs[1].(canonical.Enrolment)
	assert.Equal(t, 3, enrolment.Quantity)
	assert.Equal(t, canonical.Money{Amount: 10000, Currency: "GBP"}, enrolment.LineTotal)
	assert.Equal(t, int64(3333), enrolment.UnitPrice.Amount, "unit price rounds toward zero")
}
