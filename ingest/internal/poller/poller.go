// Package poller pulls invoices from the accounting system on a schedule
// and feeds them through the processor.
package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/asbrown77/bagile-platform-sub001/common/logging"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/accounting"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/cursor"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/metrics"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/model"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/normalizer"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/receiver"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/xeroclient"
)

const (
	// CursorName identifies the invoice watermark in the cursor store.
	CursorName = "xero.invoices"
	// EventTypePolled tags envelopes produced by polling.
	EventTypePolled = "invoice.polled"
	// MaxPages bounds a single sync run.
	MaxPages = 500
)

// ErrPageLimit is returned when a sync run is still receiving full pages
// after its page budget. The cursor is not advanced so the next run
// starts from the same point.
var ErrPageLimit = errors.New("page limit reached before last page")

// InvoiceSource fetches one page of raw invoices matching a where clause
// and modified at or after modifiedSince. A zero modifiedSince means all.
type InvoiceSource interface {
	Invoices(ctx context.Context, where string, modifiedSince time.Time, page int) ([]json.RawMessage, error)
}

// BatchProcessor handles a batch of envelopes end to end.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, envs []model.Envelope) ([]receiver.Outcome, error)
}

// Poller syncs accounting invoices into the pipeline.
type Poller struct {
	source    InvoiceSource
	processor BatchProcessor
	cursors   cursor.Store
	logger    *logging.Logger
	now       func() time.Time
	maxPages  int
}

// New creates a Poller. A nil logger discards output.
func New(source InvoiceSource, processor BatchProcessor, cursors cursor.Store, logger *logging.Logger) *Poller {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Poller{
		source:    source,
		processor: processor,
		cursors:   cursors,
		logger:    logger,
		now:       time.Now,
		maxPages:  MaxPages,
	}
}

// SyncResult summarizes one sync run.
type SyncResult struct {
	Since    time.Time
	Cursor   time.Time
	Pages    int
	Fetched  int
	Filtered int
	Outcomes map[receiver.Status]int
}

// Sync fetches every invoice changed since the stored cursor, hands the
// captured ones to the processor, and advances the cursor to the time
// the run started. The cursor is left untouched if any page fails or the
// page budget runs out.
//
// The cursor travels as the modified-since filter rather than as a date
// clause in where: the Date field is the issue date, and an invoice issued
// before the cursor can still change status afterwards.
func (p *Poller) Sync(ctx context.Context) (SyncResult, error) {
	started := p.now().UTC()

	since, err := p.cursors.Get(ctx, CursorName)
	if err != nil {
		return SyncResult{}, fmt.Errorf("read cursor: %w", err)
	}

	result := SyncResult{Since: since, Cursor: since, Outcomes: make(map[receiver.Status]int)}
	where := accounting.ToQueryPredicate(time.Time{})

	complete := false
	for page := 1; page <= p.maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		raw, err := p.source.Invoices(ctx, where, since, page)
		if err != nil {
			return result, fmt.Errorf("fetch page %d: %w", page, err)
		}
		result.Pages++
		result.Fetched += len(raw)
		metrics.PollerInvoices.Add(float64(len(raw)))

		envs := p.envelopes(raw, started, &result)
		if len(envs) > 0 {
			outcomes, err := p.processor.ProcessBatch(ctx, envs)
			if err != nil {
				return result, fmt.Errorf("process page %d: %w", page, err)
			}
			for _, o := range outcomes {
				result.Outcomes[o.Status]++
			}
		}

		if len(raw) < xeroclient.PageSize {
			complete = true
			break
		}
	}
	if !complete {
		return result, fmt.Errorf("%w: %d pages", ErrPageLimit, p.maxPages)
	}

	if err := p.cursors.Advance(ctx, CursorName, started); err != nil {
		return result, fmt.Errorf("advance cursor: %w", err)
	}
	result.Cursor = started
	return result, nil
}

// envelopes applies the capture rules client-side. Invoices that do not
// decode are passed through so the processor dead-letters them.
func (p *Poller) envelopes(raw []json.RawMessage, received time.Time, result *SyncResult) []model.Envelope {
	envs := make([]model.Envelope, 0, len(raw))
	for _, item := range raw {
		var inv accounting.Invoice
		if err := json.Unmarshal(item, &inv); err == nil && !accounting.ShouldCapture(inv) {
			result.Filtered++
			continue
		}
		envs = append(envs, model.Envelope{
			Source:     normalizer.SourceXero,
			ExternalID: inv.InvoiceID,
			EventType:  EventTypePolled,
			Payload:    string(item),
			ReceivedAt: received,
		})
	}
	return envs
}

// Run syncs immediately and then every interval until ctx is done.
func (p *Poller) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		p.runOnce(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *Poller) runOnce(ctx context.Context) {
	start := time.Now()
	result, err := p.Sync(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		metrics.PollerRuns.WithLabelValues("error").Inc()
		p.logger.ErrorContext(ctx, "invoice sync failed",
			slog.Int("pages", result.Pages), logging.Error(err))
		return
	}

	metrics.PollerRuns.WithLabelValues("ok").Inc()
	p.logger.InfoContext(ctx, "invoice sync complete",
		slog.Int("pages", result.Pages),
		slog.Int("fetched", result.Fetched),
		slog.Int("filtered", result.Filtered),
		slog.Int("accepted", result.Outcomes[receiver.StatusAccepted]),
		slog.Time("cursor", result.Cursor),
		logging.Duration(time.Since(start).Milliseconds()))
}
