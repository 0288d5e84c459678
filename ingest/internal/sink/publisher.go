package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/asbrown77/bagile-platform-sub001/common/messaging"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/canonical"
)

// Publisher publishes each record to records.<kind> for the persistence
// collaborator to consume.
type Publisher struct {
	pub messaging.Publisher
	now func() time.Time
}

// NewPublisher creates a Publisher over pub.
func NewPublisher(pub messaging.Publisher) *Publisher {
	return &Publisher{pub: pub, now: time.Now}
}

func (p *Publisher) Store(ctx context.Context, records []canonical.Record) error {
	if len(records) == 0 {
		return ErrNoRecords
	}
	now := p.now()
	for _, rec := range records {
		data, err := encode(rec, now)
		if err != nil {
			return err
		}
		msg := messaging.NewMessage(messaging.RecordSubject(string(rec.Kind())), data,
			messaging.WithHeader(messaging.HeaderRecordID, rec.RecordID()),
		)
		if err := p.pub.PublishMsg(ctx, msg); err != nil {
			return fmt.Errorf("publish %s %s: %w", rec.Kind(), rec.RecordID(), err)
		}
	}
	return nil
}
