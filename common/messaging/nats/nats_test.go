package nats

import (
	"strings"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"

	"github.com/asbrown77/bagile-platform-sub001/common/messaging"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, nats.DefaultURL, cfg.URL)
	assert.Equal(t, -1, cfg.MaxReconnects)
	assert.Equal(t, 2*time.Second, cfg.ReconnectWait)
	assert.Nil(t, cfg.Logger)
}

func TestToNatsMsg(t *testing.T) {
	msg := messaging.NewMessage("records.order", []byte("data"),
		messaging.WithHeader(messaging.HeaderRecordID, "rid-1"))

	natsMsg := toNatsMsg(msg)

	assert.Equal(t, "records.order", natsMsg.Subject)
	assert.Equal(t, []byte("data"), natsMsg.Data)
	assert.Equal(t, "rid-1", natsMsg.Header.Get(messaging.HeaderRecordID))
}

func TestToNatsMsg_NoHeaders(t *testing.T) {
	natsMsg := toNatsMsg(&messaging.Message{Subject: "a.b.c"})
	assert.Nil(t, natsMsg.Header)
}

func TestHeaderToMetadata(t *testing.T) {
	assert.Nil(t, headerToMetadata(nil))

	h := nats.Header{}
	h.Set(messaging.HeaderSource, "xero")
	md := headerToMetadata(h)
	assert.Equal(t, "xero", md[messaging.HeaderSource])
}

func TestPredefinedStreams(t *testing.T) {
	streams := []StreamConfig{EnvelopesStream, RecordsStream, IngestDLQStream}
	seen := map[string]bool{}

	for _, s := range streams {
		t.Run(s.Name, func(t *testing.T) {
			assert.False(t, seen[s.Name], "duplicate stream name")
			seen[s.Name] = true
			assert.NotEmpty(t, s.Subjects)
			for _, subj := range s.Subjects {
				assert.True(t, strings.HasSuffix(subj, ".>"))
			}
			assert.Greater(t, s.MaxAge, time.Duration(0))
		})
	}

	assert.Equal(t, jetstream.WorkQueuePolicy, EnvelopesStream.Retention)
	assert.Equal(t, []string{"ingest.dlq.>"}, IngestDLQStream.Subjects)
}

func TestConsumerConfig_Jetstream(t *testing.T) {
	cfg := DefaultConsumerConfig(messaging.ConsumerIngestWorkers, "ingest.envelopes.>")
	js := cfg.jetstream()

	assert.Equal(t, cfg.Name, js.Durable)
	assert.Equal(t, "ingest.envelopes.>", js.FilterSubject)
	assert.Equal(t, jetstream.AckExplicitPolicy, js.AckPolicy)
	assert.Equal(t, 5, js.MaxDeliver)
}
