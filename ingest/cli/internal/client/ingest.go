package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/model"
	"github.com/asbrown77/bagile-platform-sub001/ingest/pkg/api"
)

type IngestClient struct {
	baseURL string
	client  *http.Client
}

func NewIngestClient(baseURL string) *IngestClient {
	return &IngestClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// SendEnvelopes posts envs as one JSON array batch and returns the
// decoded service response.
func (c *IngestClient) SendEnvelopes(ctx context.Context, envs []model.Envelope) (*api.Response, error) {
	body, err := json.Marshal(envs)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/envelopes", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out api.Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("ingest failed with status %d", resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return &out, fmt.Errorf("ingest failed with status %d: %s", resp.StatusCode, out.Text)
	}

	return &out, nil
}
