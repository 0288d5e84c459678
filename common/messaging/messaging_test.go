package messaging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewMessage(t *testing.T) {
	msg := NewMessage("records.order", []byte(`{}`),
		WithHeader(HeaderSource, "xero"),
		WithHeader(HeaderRecordID, "abc"),
	)

	assert.Equal(t, "records.order", msg.Subject)
	assert.Equal(t, []byte(`{}`), msg.Data)
	assert.Equal(t, "xero", msg.Header(HeaderSource))
	assert.Equal(t, "abc", msg.Header(HeaderRecordID))
}

func TestWithHeader_Overwrite(t *testing.T) {
	msg := NewMessage("x.y.z", nil, WithHeader("X-Key", "original"), WithHeader("X-Key", "updated"))
	assert.Equal(t, "updated", msg.Header("X-Key"))
}

func TestMessage_HeaderZeroValue(t *testing.T) {
	var nilMsg *Message
	assert.Empty(t, nilMsg.Header("anything"))

	var msg Message
	assert.Empty(t, msg.Header("anything"))
}

type fakeConn bool

func (f fakeConn) IsConnected() bool { return bool(f) }

func TestCheckHealth(t *testing.T) {
	tests := []struct {
		name      string
		conn      Connection
		connected bool
		wantErr   string
	}{
		{"nil connection", nil, false, "messaging disabled"},
		{"disconnected", fakeConn(false), false, "not connected to message broker"},
		{"connected", fakeConn(true), true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := CheckHealth(tt.conn)
			assert.Equal(t, tt.connected, status.Connected)
			assert.Equal(t, tt.wantErr, status.Error)
		})
	}
}
