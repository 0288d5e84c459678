// Package messaging provides abstractions for message broker communication.
// It defines interfaces that allow services to publish and consume messages
// without being coupled to a specific broker implementation.
package messaging

import (
	"context"
	"time"
)

// Message represents a message received from or sent to a message broker.
type Message struct {
	// Subject is the topic the message was published to.
	Subject string

	// Data is the raw message payload.
	Data []byte

	// Metadata contains optional key-value pairs for message headers.
	Metadata map[string]string

	// Timestamp is when the message was published.
	Timestamp time.Time

	// Deliveries is how many times the broker has handed this message out,
	// starting at 1. Zero when the broker does not track redelivery.
	Deliveries uint64
}

// Header returns the metadata value for key, or "" if absent.
func (m *Message) Header(key string) string {
	if m == nil || m.Metadata == nil {
		return ""
	}
	return m.Metadata[key]
}

// MessageHandler processes a received message.
// Returning an error asks the broker to redeliver the message later.
type MessageHandler func(ctx context.Context, msg *Message) error

// Publisher publishes messages to subjects.
type Publisher interface {
	// Publish sends data to the specified subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// PublishMsg sends a Message with headers.
	PublishMsg(ctx context.Context, msg *Message) error
}

// Consumer pulls messages from a durable consumer and hands them to a handler.
type Consumer interface {
	// Consume starts delivering messages to handler until the returned stop
	// function is called or ctx ends.
	Consume(ctx context.Context, stream, consumer string, handler MessageHandler) (stop func(), err error)
}

// Connection reports broker connectivity.
type Connection interface {
	IsConnected() bool
}

// PublishOption configures message publishing behavior.
type PublishOption func(*Message)

// WithHeader adds a header to the published message.
func WithHeader(key, value string) PublishOption {
	return func(m *Message) {
		if m.Metadata == nil {
			m.Metadata = make(map[string]string)
		}
		m.Metadata[key] = value
	}
}

// NewMessage builds a Message for subject with the given options applied.
func NewMessage(subject string, data []byte, opts ...PublishOption) *Message {
	m := &Message{Subject: subject, Data: data}
	for _, opt := range opts {
		opt(m)
	}
	return m
}
