// Package canonical defines the normalized facts produced by ingestion.
// Records are values; a change upstream arrives as a new record with the
// same ID rather than a mutation.
package canonical

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/designation"
)

// Kind names a canonical record type.
type Kind string

const (
	KindOrder          Kind = "order"
	KindEnrolment      Kind = "enrolment"
	KindTransfer       Kind = "transfer"
	KindCourseSchedule Kind = "course_schedule"
)

// Record is a normalized fact ready for persistence.
type Record interface {
	Kind() Kind
	RecordID() string
}

var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://bagile.co.uk/canonical"))

// NewID derives a stable record ID from the record kind, its source and
// the source-side keys that identify it.
func NewID(kind Kind, source string, keys ...string) string {
	name := string(kind) + "\x1f" + strings.ToLower(source) + "\x1f" + strings.Join(keys, "\x1f")
	return uuid.NewSHA1(idNamespace, []byte(name)).String()
}

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderCancelled OrderStatus = "cancelled"
	OrderRefunded  OrderStatus = "refunded"
)

// Money is an amount in minor currency units.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// Customer is the billing party of an order.
type Customer struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Company string `json:"company,omitempty"`
}

type Order struct {
	ID         string      `json:"id"`
	Source     string      `json:"source"`
	ExternalID string      `json:"externalId"`
	Number     string      `json:"number,omitempty"`
	Reference  string      `json:"reference,omitempty"`
	Status     OrderStatus `json:"status"`
	Customer   Customer    `json:"customer"`
	Total      Money       `json:"total"`
	PlacedAt   time.Time   `json:"placedAt"`
	UpdatedAt  time.Time   `json:"updatedAt,omitempty"`
}

func (o Order) Kind() Kind       { return KindOrder }
func (o Order) RecordID() string { return o.ID }

// Enrolment is one attendee place on a course run, derived from an order line.
// LineTotal is the amount charged for the whole line. UnitPrice is LineTotal
// divided by Quantity, rounded toward zero, so it may not sum back exactly.
type Enrolment struct {
	ID              string   `json:"id"`
	Source          string   `json:"source"`
	OrderExternalID string   `json:"orderExternalId"`
	LineID          string   `json:"lineId"`
	Sku             string   `json:"sku"`
	CourseCode      string   `json:"courseCode,omitempty"`
	Description     string   `json:"description,omitempty"`
	Trainer         string   `json:"trainer,omitempty"`
	Quantity        int      `json:"quantity"`
	UnitPrice       Money    `json:"unitPrice"`
	LineTotal       Money    `json:"lineTotal"`
	Attendee        Customer `json:"attendee"`
}

func (e Enrolment) Kind() Kind       { return KindEnrolment }
func (e Enrolment) RecordID() string { return e.ID }

// Transfer moves a booking from one course run to another.
type Transfer struct {
	ID              string             `json:"id"`
	Source          string             `json:"source"`
	OrderExternalID string             `json:"orderExternalId"`
	FromSku         string             `json:"fromSku"`
	ToSku           string             `json:"toSku,omitempty"`
	Reason          designation.Reason `json:"reason"`
	RefundEligible  bool               `json:"refundEligible"`
	Note            string             `json:"note,omitempty"`
}

func (t Transfer) Kind() Kind       { return KindTransfer }
func (t Transfer) RecordID() string { return t.ID }

// CourseSchedule is a scheduled run of a course.
type CourseSchedule struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	ExternalID string    `json:"externalId"`
	Sku        string    `json:"sku"`
	CourseCode string    `json:"courseCode"`
	Title      string    `json:"title,omitempty"`
	Trainer    string    `json:"trainer,omitempty"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Location   string    `json:"location,omitempty"`
	Capacity   int       `json:"capacity"`
	Status     string    `json:"status,omitempty"`
}

func (c CourseSchedule) Kind() Kind       { return KindCourseSchedule }
func (c CourseSchedule) RecordID() string { return c.ID }
