// Package accounting models accounting-system invoices and decides which
// of them are captured by ingestion.
package accounting

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Invoice is an accounting-system invoice as returned by the Xero
// Invoices API. Only Type, Status, Reference and Date take part in the
// capture decision.
type Invoice struct {
	InvoiceID      string      `json:"InvoiceID"`
	InvoiceNumber  string      `json:"InvoiceNumber,omitempty"`
	Type           string      `json:"Type"`
	Status         string      `json:"Status"`
	Reference      string      `json:"Reference,omitempty"`
	Date           Date        `json:"Date"`
	DueDate        Date        `json:"DueDate,omitempty"`
	UpdatedDateUTC Date        `json:"UpdatedDateUTC,omitempty"`
	CurrencyCode   string      `json:"CurrencyCode,omitempty"`
	Total          json.Number `json:"Total,omitempty"`
	AmountCredited json.Number `json:"AmountCredited,omitempty"`
	Contact        Contact     `json:"Contact"`
	LineItems      []LineItem  `json:"LineItems,omitempty"`
}

// Contact is the invoiced party.
type Contact struct {
	ContactID    string `json:"ContactID,omitempty"`
	Name         string `json:"Name,omitempty"`
	EmailAddress string `json:"EmailAddress,omitempty"`
}

// LineItem is one invoice line. ItemCode carries the course SKU.
type LineItem struct {
	LineItemID  string      `json:"LineItemID,omitempty"`
	ItemCode    string      `json:"ItemCode,omitempty"`
	Description string      `json:"Description,omitempty"`
	Quantity    json.Number `json:"Quantity,omitempty"`
	UnitAmount  json.Number `json:"UnitAmount,omitempty"`
	LineAmount  json.Number `json:"LineAmount,omitempty"`
}

// InvoicesPage is the envelope of a paged Invoices API response.
type InvoicesPage struct {
	Invoices []Invoice `json:"Invoices"`
}

// Date accepts both date encodings the accounting API emits: the legacy
// "/Date(1700000000000+0000)/" form and ISO-8601 with or without a zone.
type Date struct {
	time.Time
}

var legacyDate = regexp.MustCompile(`^/Date\((-?\d+)([+-]\d{4})?\)/$`)

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDate parses either accepted encoding. Times without a zone are UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if m := legacyDate.FindStringSubmatch(s); m != nil {
		ms, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
		}
		return time.UnixMilli(ms).UTC(), nil
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse date %q: unrecognized format", s)
}

// UnmarshalJSON implements json.Unmarshaler. null and "" leave the zero time.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	t, err := ParseDate(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// MarshalJSON emits RFC3339, or "" for the zero time.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return json.Marshal("")
	}
	return json.Marshal(d.Time.Format(time.RFC3339))
}
