// Package normalizer holds the per-source transformers that turn raw
// envelopes into canonical records.
//
// Each source parses its own payload shape. A payload that cannot be read
// fails with ErrMalformedPayload; a well-formed payload the pipeline does
// not capture fails with ErrNotCaptured. Both are per-item errors and never
// stop a batch.
package normalizer

import (
	"errors"
	"fmt"
	"sort"

	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/canonical"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/model"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/transform"
)

// Source identifiers, compared after model.NormalizeSource.
const (
	SourceXero        = "xero"
	SourceWooCommerce = "woocommerce"
	SourceSchedule    = "schedule"
)

var (
	ErrMalformedPayload = errors.New("malformed payload")
	ErrNotCaptured      = errors.New("not captured")
)

// Normalizer is a source-specific envelope transformer.
type Normalizer interface {
	transform.Transformer[model.Envelope, canonical.Record]
	Source() string
}

// Registry holds normalizers keyed by source.
type Registry struct {
	items map[string]Normalizer
}

// NewRegistry constructs a registry with provided normalizers. A later
// normalizer for the same source replaces an earlier one.
func NewRegistry(items ...Normalizer) *Registry {
	r := &Registry{items: make(map[string]Normalizer, len(items))}
	for _, n := range items {
		r.items[model.NormalizeSource(n.Source())] = n
	}
	return r
}

// Find returns the normalizer for source, or nil.
func (r *Registry) Find(source string) Normalizer {
	if r == nil {
		return nil
	}
	return r.items[model.NormalizeSource(source)]
}

// Sources lists registered sources in sorted order.
func (r *Registry) Sources() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.items))
	for s := range r.items {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func malformed(source, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrMalformedPayload, source, fmt.Sprintf(format, args...))
}

func notCaptured(source, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrNotCaptured, source, fmt.Sprintf(format, args...))
}

// firstNonEmpty returns the first argument that is not "".
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
