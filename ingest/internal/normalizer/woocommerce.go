package normalizer

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/accounting"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/canonical"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/model"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/skus"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/transform"
)

// WooOrder is the subset of a WooCommerce REST order the webstore
// normalizer reads.
type WooOrder struct {
	ID              json.Number   `json:"id"`
	Number          string        `json:"number,omitempty"`
	Status          string        `json:"status"`
	Currency        string        `json:"currency"`
	Total           string        `json:"total"`
	DateCreatedGMT  string        `json:"date_created_gmt,omitempty"`
	DateModifiedGMT string        `json:"date_modified_gmt,omitempty"`
	CustomerNote    string        `json:"customer_note,omitempty"`
	Billing         WooBilling    `json:"billing"`
	LineItems       []WooLineItem `json:"line_items"`
}

type WooBilling struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Company   string `json:"company,omitempty"`
	Email     string `json:"email,omitempty"`
}

type WooLineItem struct {
	ID       json.Number `json:"id"`
	Name     string      `json:"name"`
	Sku      string      `json:"sku"`
	Quantity int         `json:"quantity"`
	Total    string      `json:"total"`
}

// WooStatusesNotCaptured are order states that never reach the pipeline.
var WooStatusesNotCaptured = map[string]bool{
	"checkout-draft": true,
	"trash":          true,
}

var wooOrderStatus = map[string]canonical.OrderStatus{
	"pending":    canonical.OrderPending,
	"on-hold":    canonical.OrderPending,
	"processing": canonical.OrderPaid,
	"completed":  canonical.OrderPaid,
	"cancelled":  canonical.OrderCancelled,
	"failed":     canonical.OrderCancelled,
	"refunded":   canonical.OrderRefunded,
}

// WooCommerce normalizes webstore orders.
type WooCommerce struct {
	transform.Transformer[model.Envelope, canonical.Record]
	trainers *skus.Resolver
}

// NewWooCommerce creates the webstore order normalizer.
func NewWooCommerce(trainers *skus.Resolver) *WooCommerce {
	w := &WooCommerce{trainers: trainers}
	w.Transformer = transform.Each(w.normalize)
	return w
}

func (w *WooCommerce) Source() string { return SourceWooCommerce }

func (w *WooCommerce) normalize(_ context.Context, env model.Envelope) ([]canonical.Record, error) {
	var order WooOrder
	if err := json.Unmarshal([]byte(env.Payload), &order); err != nil {
		return nil, malformed(SourceWooCommerce, "decode order: %v", err)
	}

	orderID := firstNonEmpty(order.ID.String(), env.ExternalID)
	if orderID == "" {
		return nil, malformed(SourceWooCommerce, "missing order id")
	}
	status := strings.ToLower(strings.TrimSpace(order.Status))
	if WooStatusesNotCaptured[status] {
		return nil, notCaptured(SourceWooCommerce, "order %s status=%q", orderID, order.Status)
	}
	orderStatus, ok := wooOrderStatus[status]
	if !ok {
		orderStatus = canonical.OrderPending
	}

	total, err := canonical.MinorUnits(order.Total)
	if err != nil {
		return nil, malformed(SourceWooCommerce, "order %s total: %v", orderID, err)
	}
	placedAt, err := optionalDate(order.DateCreatedGMT)
	if err != nil {
		return nil, malformed(SourceWooCommerce, "order %s date_created_gmt: %v", orderID, err)
	}
	updatedAt, err := optionalDate(order.DateModifiedGMT)
	if err != nil {
		return nil, malformed(SourceWooCommerce, "order %s date_modified_gmt: %v", orderID, err)
	}

	customer := canonical.Customer{
		Name:    strings.TrimSpace(order.Billing.FirstName + " " + order.Billing.LastName),
		Email:   order.Billing.Email,
		Company: order.Billing.Company,
	}
	records := []canonical.Record{canonical.Order{
		ID:         canonical.NewID(canonical.KindOrder, SourceWooCommerce, orderID),
		Source:     SourceWooCommerce,
		ExternalID: orderID,
		Number:     order.Number,
		Status:     orderStatus,
		Customer:   customer,
		Total:      canonical.Money{Amount: total, Currency: order.Currency},
		PlacedAt:   placedAt,
		UpdatedAt:  updatedAt,
	}}

	firstSku := ""
	for i, line := range order.LineItems {
		if line.Sku == "" {
			continue
		}
		if firstSku == "" {
			firstSku = line.Sku
		}
		lineID := firstNonEmpty(line.ID.String(), strconv.Itoa(i))

		lineTotal, err := canonical.MinorUnits(line.Total)
		if err != nil {
			return nil, malformed(SourceWooCommerce, "order %s line %s total: %v", orderID, lineID, err)
		}
		qty := line.Quantity
		if qty <= 0 {
			qty = 1
		}

		trainer, _ := w.trainers.FromSku(line.Sku)
		records = append(records, canonical.Enrolment{
			ID:              canonical.NewID(canonical.KindEnrolment, SourceWooCommerce, orderID, lineID),
			Source:          SourceWooCommerce,
			OrderExternalID: orderID,
			LineID:          lineID,
			Sku:             line.Sku,
			CourseCode:      skus.CourseCode(line.Sku),
			Description:     line.Name,
			Trainer:         trainer,
			Quantity:        qty,
			UnitPrice:       canonical.Money{Amount: lineTotal / int64(qty), Currency: order.Currency},
			LineTotal:       canonical.Money{Amount: lineTotal, Currency: order.Currency},
			Attendee:        customer,
		})
	}

	if t, ok := transferFrom(SourceWooCommerce, orderID, "note", order.CustomerNote, firstSku); ok {
		records = append(records, t)
	}

	return records, nil
}

func optionalDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return accounting.ParseDate(s)
}
