package normalizer

import (
	"context"
	"encoding/json"
	"math"
	"strconv"

	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/accounting"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/canonical"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/designation"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/model"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/skus"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/transform"
)

// Xero normalizes accounting invoices. Invoices failing
// accounting.ShouldCapture are not captured.
type Xero struct {
	transform.Transformer[model.Envelope, canonical.Record]
	trainers *skus.Resolver
}

// NewXero creates the accounting invoice normalizer.
func NewXero(trainers *skus.Resolver) *Xero {
	x := &Xero{trainers: trainers}
	x.Transformer = transform.Each(x.normalize)
	return x
}

func (x *Xero) Source() string { return SourceXero }

var xeroOrderStatus = map[string]canonical.OrderStatus{
	accounting.StatusAuthorised: canonical.OrderPending,
	accounting.StatusPaid:       canonical.OrderPaid,
	accounting.StatusVoided:     canonical.OrderCancelled,
}

func (x *Xero) normalize(_ context.Context, env model.Envelope) ([]canonical.Record, error) {
	var inv accounting.Invoice
	if err := json.Unmarshal([]byte(env.Payload), &inv); err != nil {
		return nil, malformed(SourceXero, "decode invoice: %v", err)
	}

	invoiceID := firstNonEmpty(inv.InvoiceID, env.ExternalID)
	if invoiceID == "" {
		return nil, malformed(SourceXero, "missing InvoiceID")
	}
	if !accounting.ShouldCapture(inv) {
		return nil, notCaptured(SourceXero, "invoice %s type=%q status=%q reference=%q", invoiceID, inv.Type, inv.Status, inv.Reference)
	}

	total, err := canonical.MinorUnits(inv.Total.String())
	if err != nil {
		return nil, malformed(SourceXero, "invoice %s total: %v", invoiceID, err)
	}

	customer := canonical.Customer{Name: inv.Contact.Name, Email: inv.Contact.EmailAddress}
	records := []canonical.Record{canonical.Order{
		ID:         canonical.NewID(canonical.KindOrder, SourceXero, invoiceID),
		Source:     SourceXero,
		ExternalID: invoiceID,
		Number:     inv.InvoiceNumber,
		Reference:  inv.Reference,
		Status:     xeroOrderStatus[inv.Status],
		Customer:   customer,
		Total:      canonical.Money{Amount: total, Currency: inv.CurrencyCode},
		PlacedAt:   inv.Date.Time,
		UpdatedAt:  inv.UpdatedDateUTC.Time,
	}}

	for i, line := range inv.LineItems {
		if line.ItemCode == "" {
			continue
		}
		lineID := firstNonEmpty(line.LineItemID, strconv.Itoa(i))

		qty, err := quantity(line.Quantity)
		if err != nil {
			return nil, malformed(SourceXero, "invoice %s line %s quantity: %v", invoiceID, lineID, err)
		}
		lineTotal, err := lineAmount(line, qty)
		if err != nil {
			return nil, malformed(SourceXero, "invoice %s line %s amount: %v", invoiceID, lineID, err)
		}

		trainer, _ := x.trainers.FromSku(line.ItemCode)
		records = append(records, canonical.Enrolment{
			ID:              canonical.NewID(canonical.KindEnrolment, SourceXero, invoiceID, lineID),
			Source:          SourceXero,
			OrderExternalID: invoiceID,
			LineID:          lineID,
			Sku:             line.ItemCode,
			CourseCode:      skus.CourseCode(line.ItemCode),
			Description:     line.Description,
			Trainer:         trainer,
			Quantity:        qty,
			UnitPrice:       canonical.Money{Amount: lineTotal / int64(qty), Currency: inv.CurrencyCode},
			LineTotal:       canonical.Money{Amount: lineTotal, Currency: inv.CurrencyCode},
			Attendee:        customer,
		})

		if t, ok := transferFrom(SourceXero, invoiceID, lineID, line.Description, line.ItemCode); ok {
			records = append(records, t)
		}
	}

	return records, nil
}

// quantity reads a line quantity. Absent or zero means one; fractional
// quantities are rejected.
func quantity(n json.Number) (int, error) {
	if n == "" {
		return 1, nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || f < 0 || f > math.MaxInt32 {
		return 0, strconv.ErrRange
	}
	if f == 0 {
		return 1, nil
	}
	return int(f), nil
}

// lineAmount returns the line total in minor units. LineAmount is already
// rounded to two places by the ledger; UnitAmount may carry four, so it is
// only consulted when LineAmount is absent.
func lineAmount(line accounting.LineItem, qty int) (int64, error) {
	if line.LineAmount != "" {
		return canonical.MinorUnits(line.LineAmount.String())
	}
	unit, err := canonical.MinorUnits(line.UnitAmount.String())
	if err != nil {
		return 0, err
	}
	return unit * int64(qty), nil
}

// transferFrom builds a Transfer when note designates one with a known
// original SKU.
func transferFrom(source, orderID, key, note, toSku string) (canonical.Transfer, bool) {
	c := designation.Parse(note)
	if !c.IsTransfer || c.OriginalSku == "" {
		return canonical.Transfer{}, false
	}
	return canonical.Transfer{
		ID:              canonical.NewID(canonical.KindTransfer, source, orderID, key),
		Source:          source,
		OrderExternalID: orderID,
		FromSku:         c.OriginalSku,
		ToSku:           toSku,
		Reason:          c.Reason,
		RefundEligible:  c.RefundEligible,
		Note:            note,
	}, true
}
