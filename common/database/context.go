// Package database holds timeout conventions shared by the SQL-backed
// stores.
package database

import (
	"context"
	"time"
)

const (
	// QueryTimeout bounds single-row reads.
	QueryTimeout = 5 * time.Second
	// WriteTimeout bounds upserts.
	WriteTimeout = 10 * time.Second
)

// QueryContext derives a read context bounded by QueryTimeout.
func QueryContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, QueryTimeout)
}

// WriteContext derives a write context bounded by WriteTimeout.
func WriteContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, WriteTimeout)
}
