// Package sink hands canonical records to downstream storage.
package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/canonical"
)

// ErrNoRecords is returned when Store is called with nothing to store.
var ErrNoRecords = errors.New("no records")

// Sink persists canonical records. Store either hands off every record or
// returns an error; callers redeliver on error, and record IDs are stable
// so a repeated Store overwrites rather than duplicates.
type Sink interface {
	Store(ctx context.Context, records []canonical.Record) error
}

// Document is the stored and published form of a record.
type Document struct {
	ID         string           `json:"id"`
	Kind       canonical.Kind   `json:"kind"`
	IngestedAt time.Time        `json:"ingestedAt"`
	Record     canonical.Record `json:"record"`
}

// NewDocument wraps record for storage.
func NewDocument(record canonical.Record, now time.Time) Document {
	return Document{
		ID:         record.RecordID(),
		Kind:       record.Kind(),
		IngestedAt: now.UTC(),
		Record:     record,
	}
}

func encode(record canonical.Record, now time.Time) ([]byte, error) {
	data, err := json.Marshal(NewDocument(record, now))
	if err != nil {
		return nil, fmt.Errorf("encode %s %s: %w", record.Kind(), record.RecordID(), err)
	}
	return data, nil
}

// Fanout stores records in every sink in order, stopping at the first
// failure.
type Fanout []Sink

func (f Fanout) Store(ctx context.Context, records []canonical.Record) error {
	if len(records) == 0 {
		return ErrNoRecords
	}
	for _, s := range f {
		if err := s.Store(ctx, records); err != nil {
			return err
		}
	}
	return nil
}

// Discard accepts and drops records.
type Discard struct{}

func (Discard) Store(_ context.Context, records []canonical.Record) error {
	if len(records) == 0 {
		return ErrNoRecords
	}
	return nil
}
