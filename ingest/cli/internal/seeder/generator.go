// Package seeder generates synthetic webstore orders for exercising a
// running ingest service.
package seeder

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/model"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/normalizer"
)

// EventType tags every generated envelope.
const EventType = "order.created"

var courses = []string{"PSM", "PSPO", "PSK", "PAL", "APS"}

var statuses = []string{"processing", "completed", "pending", "on-hold", "cancelled", "refunded"}

// Options controls order generation.
type Options struct {
	Seed int64
	// TrainerCodes become the trailing SKU segment. Empty uses "AB".
	TrainerCodes []string
	// TransferRate is the fraction of orders carrying a transfer note.
	TransferRate float64
	// FirstOrderID numbers the generated orders consecutively.
	FirstOrderID int
	Now          time.Time
}

type Generator struct {
	faker    *gofakeit.Faker
	trainers []string
	opts     Options
	next     int
}

func NewGenerator(opts Options) *Generator {
	trainers := append([]string(nil), opts.TrainerCodes...)
	if len(trainers) == 0 {
		trainers = []string{"AB"}
	}
	sort.Strings(trainers)
	if opts.FirstOrderID <= 0 {
		opts.FirstOrderID = 10000
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now().UTC()
	}
	return &Generator{
		faker:    gofakeit.New(opts.Seed),
		trainers: trainers,
		opts:     opts,
		next:     opts.FirstOrderID,
	}
}

// Sku returns a random course SKU such as "PSM-201125-AB".
func (g *Generator) Sku() string {
	start := g.opts.Now.AddDate(0, 0, g.faker.Number(7, 120))
	return fmt.Sprintf("%s-%s-%s",
		g.faker.RandomString(courses),
		start.Format("020106"),
		g.faker.RandomString(g.trainers))
}

// Order returns the next synthetic order.
func (g *Generator) Order() normalizer.WooOrder {
	id := g.next
	g.next++

	created := g.opts.Now.Add(-time.Duration(g.faker.Number(0, 72*60)) * time.Minute)
	quantity := g.faker.Number(1, 3)
	unit := g.faker.Number(495, 1495)
	total := strconv.Itoa(unit*quantity) + ".00"

	order := normalizer.WooOrder{
		ID:              json.Number(strconv.Itoa(id)),
		Number:          strconv.Itoa(id),
		Status:          g.faker.RandomString(statuses),
		Currency:        "GBP",
		Total:           total,
		DateCreatedGMT:  created.Format("2006-01-02T15:04:05"),
		DateModifiedGMT: created.Add(5 * time.Minute).Format("2006-01-02T15:04:05"),
		Billing: normalizer.WooBilling{
			FirstName: g.faker.FirstName(),
			LastName:  g.faker.LastName(),
			Company:   g.faker.Company(),
			Email:     g.faker.Email(),
		},
		LineItems: []normalizer.WooLineItem{{
			ID:       json.Number(strconv.Itoa(id*10 + 1)),
			Name:     g.faker.RandomString(courses) + " course",
			Sku:      g.Sku(),
			Quantity: quantity,
			Total:    total,
		}},
	}

	if g.opts.TransferRate > 0 && g.faker.Float64Range(0, 1) < g.opts.TransferRate {
		keyword := ""
		if g.faker.Bool() {
			keyword = "cancelled "
		}
		order.CustomerNote = "Transfer from " + keyword + g.Sku()
	}

	return order
}

// Envelope wraps the next synthetic order for the webstore source.
func (g *Generator) Envelope() (model.Envelope, error) {
	order := g.Order()
	payload, err := json.Marshal(order)
	if err != nil {
		return model.Envelope{}, err
	}
	return model.Envelope{
		Source:     normalizer.SourceWooCommerce,
		ExternalID: order.ID.String(),
		EventType:  EventType,
		Payload:    string(payload),
		ReceivedAt: g.opts.Now,
	}, nil
}

// Envelopes returns count synthetic envelopes.
func (g *Generator) Envelopes(count int) ([]model.Envelope, error) {
	envs := make([]model.Envelope, 0, count)
	for i := 0; i < count; i++ {
		env, err := g.Envelope()
		if err != nil {
			return nil, err
		}
		envs = append(envs, env)
	}
	return envs, nil
}
