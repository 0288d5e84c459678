package accounting

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"/Date(1704067200000+0000)/", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"/Date(1704067200000)/", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"2024-01-05T00:00:00", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)},
		{"2024-01-05T10:30:00.123", time.Date(2024, 1, 5, 10, 30, 0, 123000000, time.UTC)},
		{"2024-01-05T10:30:00+01:00", time.Date(2024, 1, 5, 9, 30, 0, 0, time.UTC)},
		{"2024-01-05", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}

	_, err := ParseDate("yesterday")
	assert.Error(t, err)
}

func TestInvoice_Unmarshal(t *testing.T) {
	raw := `{
		"InvoiceID": "243216c5-369e-4056-ac67-05388f86dc81",
		"InvoiceNumber": "INV-0042",
		"Type": "ACCREC",
		"Status": "PAID",
		"Reference": "PO-9",
		"Date": "/Date(1704067200000+0000)/",
		"UpdatedDateUTC": "2024-01-02T08:00:00",
		"CurrencyCode": "GBP",
		"Total": 1500.00,
		"Contact": {"Name": "Acme Ltd", "EmailAddress": "ops@acme.test"},
		"LineItems": [{"LineItemID": "l1", "ItemCode": "PSM-061125-CB", "Description": "PSM", "Quantity": 2, "UnitAmount": 750.00}]
	}`

	var inv Invoice
	require.NoError(t, json.Unmarshal([]byte(raw), &inv))

	assert.Equal(t, "ACCREC", inv.Type)
	assert.Equal(t, 2024, inv.Date.Year())
	assert.Equal(t, 8, inv.UpdatedDateUTC.Hour())
	assert.Equal(t, "1500.00", inv.Total.String())
	require.Len(t, inv.LineItems, 1)
	assert.Equal(t, "PSM-061125-CB", inv.LineItems[0].ItemCode)
	assert.True(t, inv.DueDate.IsZero())
}

func TestDate_RejectsNonString(t *testing.T) {
	var d Date
	assert.Error(t, json.Unmarshal([]byte(`12345`), &d))
	assert.Error(t, json.Unmarshal([]byte(`"not a date"`), &d))
}
