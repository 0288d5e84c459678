package validator

import (
	"context"

	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/canonical"
)

// Validator checks a canonical record before it is handed to the sink.
type Validator interface {
	Validate(ctx context.Context, record canonical.Record) error
	Supports(kind canonical.Kind) bool
}

// Chain applies a list of validators sequentially.
type Chain struct {
	validators []Validator
}

// NewChain constructs a validator chain.
func NewChain(validators ...Validator) *Chain {
	return &Chain{validators: validators}
}

// Validate executes validators in order until an error occurs.
func (c *Chain) Validate(ctx context.Context, record canonical.Record) error {
	if c == nil {
		return nil
	}
	for _, v := range c.validators {
		if v.Supports(record.Kind()) {
			if err := v.Validate(ctx, record); err != nil {
				return err
			}
		}
	}
	return nil
}
