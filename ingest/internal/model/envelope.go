package model

import (
	"strings"
	"time"
)

// Envelope carries one raw event from an external commerce or accounting
// system. Payload is opaque until a source transformer interprets it.
type Envelope struct {
	Source     string    `json:"source"`
	ExternalID string    `json:"externalId"`
	EventType  string    `json:"eventType"`
	Payload    string    `json:"payload"`
	ReceivedAt time.Time `json:"receivedAt,omitempty"`
}

// SourceKey returns the routing key for the envelope's source.
func (e Envelope) SourceKey() string {
	return NormalizeSource(e.Source)
}

// NormalizeSource lower-cases and trims a source identifier.
func NormalizeSource(source string) string {
	return strings.ToLower(strings.TrimSpace(source))
}
