package sink

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchutil"

	"github.com/asbrown77/bagile-platform-sub001/common/logging"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/canonical"
)

// OpenSearchConfig holds connection and index settings.
type OpenSearchConfig struct {
	URL           string
	Username      string
	Password      string
	TLSSkipVerify bool
	IndexPrefix   string
	ShardCount    int
	ReplicaCount  int
	FlushInterval time.Duration
}

// DefaultOpenSearchConfig returns development defaults.
func DefaultOpenSearchConfig() OpenSearchConfig {
	return OpenSearchConfig{
		URL:           "https://localhost:9200",
		Username:      "admin",
		Password:      "admin",
		TLSSkipVerify: true,
		IndexPrefix:   "bagile-records",
		ShardCount:    1,
		ReplicaCount:  0,
		FlushInterval: time.Second,
	}
}

// OpenSearch indexes records into one index per kind, using the record
// ID as the document ID.
type OpenSearch struct {
	client *opensearch.Client
	cfg    OpenSearchConfig
	logger *logging.Logger
	now    func() time.Time
}

// NewOpenSearch creates an OpenSearch sink.
func NewOpenSearch(cfg OpenSearchConfig, logger *logging.Logger) (*OpenSearch, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: cfg.TLSSkipVerify},
	}

	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}

	return &OpenSearch{client: client, cfg: cfg, logger: logger, now: time.Now}, nil
}

// IndexName returns the index that stores records of kind.
func (o *OpenSearch) IndexName(kind canonical.Kind) string {
	return o.cfg.IndexPrefix + "-" + string(kind)
}

// Ping reports whether the cluster answers.
func (o *OpenSearch) Ping(ctx context.Context) error {
	res, err := o.client.Ping(o.client.Ping.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("opensearch ping: %s", res.Status())
	}
	return nil
}

// Initialize checks connectivity and installs the index template.
func (o *OpenSearch) Initialize(ctx context.Context) error {
	info, err := o.client.Info(o.client.Info.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to connect to opensearch: %w", err)
	}
	defer info.Body.Close()
	if info.IsError() {
		return fmt.Errorf("opensearch returned error: %s", info.Status())
	}

	template := map[string]interface{}{
		"index_patterns": []string{o.cfg.IndexPrefix + "-*"},
		"template": map[string]interface{}{
			"settings": map[string]interface{}{
				"number_of_shards":   o.cfg.ShardCount,
				"number_of_replicas": o.cfg.ReplicaCount,
			},
			"mappings": recordMappings(),
		},
		"priority": 100,
	}
	body, err := json.Marshal(template)
	if err != nil {
		return err
	}

	res, err := o.client.Indices.PutIndexTemplate(
		o.cfg.IndexPrefix+"-template",
		bytes.NewReader(body),
		o.client.Indices.PutIndexTemplate.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("put index template: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		b, _ := io.ReadAll(res.Body)
		return fmt.Errorf("failed to create index template: %s - %s", res.Status(), string(b))
	}

	o.logger.Info("opensearch index template ready", "prefix", o.cfg.IndexPrefix)
	return nil
}

func recordMappings() map[string]interface{} {
	keyword := map[string]interface{}{"type": "keyword"}
	date := map[string]interface{}{"type": "date"}
	return map[string]interface{}{
		"dynamic": true,
		"properties": map[string]interface{}{
			"id":         keyword,
			"kind":       keyword,
			"ingestedAt": date,
			"record": map[string]interface{}{
				"properties": map[string]interface{}{
					"id":              keyword,
					"source":          keyword,
					"externalId":      keyword,
					"orderExternalId": keyword,
					"sku":             keyword,
					"courseCode":      keyword,
					"fromSku":         keyword,
					"toSku":           keyword,
					"status":          keyword,
					"reason":          keyword,
					"placedAt":        date,
					"start":           date,
					"end":             date,
				},
			},
		},
	}
}

// Store bulk-indexes records. Any per-document failure fails the call.
func (o *OpenSearch) Store(ctx context.Context, records []canonical.Record) error {
	if len(records) == 0 {
		return ErrNoRecords
	}

	bi, err := opensearchutil.NewBulkIndexer(opensearchutil.BulkIndexerConfig{
		Client:        o.client,
		NumWorkers:    1,
		FlushInterval: o.cfg.FlushInterval,
	})
	if err != nil {
		return fmt.Errorf("create bulk indexer: %w", err)
	}

	var (
		mu       sync.Mutex
		failures []error
	)
	fail := func(err error) {
		mu.Lock()
		failures = append(failures, err)
		mu.Unlock()
	}

	now := o.now()
	for _, rec := range records {
		data, err := encode(rec, now)
		if err != nil {
			fail(err)
			continue
		}
		err = bi.Add(ctx, opensearchutil.BulkIndexerItem{
			Action:     "index",
			Index:      o.IndexName(rec.Kind()),
			DocumentID: rec.RecordID(),
			Body:       bytes.NewReader(data),
			OnFailure: func(_ context.Context, item opensearchutil.BulkIndexerItem, res opensearchutil.BulkIndexerResponseItem, err error) {
				if err == nil {
					err = fmt.Errorf("%s: %s", res.Error.Type, res.Error.Reason)
				}
				fail(fmt.Errorf("index %s/%s: %w", item.Index, item.DocumentID, err))
			},
		})
		if err != nil {
			fail(fmt.Errorf("add to bulk indexer: %w", err))
		}
	}

	if err := bi.Close(ctx); err != nil {
		fail(fmt.Errorf("bulk indexer close: %w", err))
	}

	stats := bi.Stats()
	o.logger.DebugContext(ctx, "records indexed",
		logging.Records(int(stats.NumIndexed)), "failed", stats.NumFailed)

	return errors.Join(failures...)
}
