package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asbrown77/bagile-platform-sub001/common/middleware"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/handlers"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/model"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/receiver"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/service"
)

type mockProcessor struct {
	envs []model.Envelope
}

func (m *mockProcessor) ProcessBatch(_ context.Context, envs []model.Envelope) ([]receiver.Outcome, error) {
	m.envs = append(m.envs, envs...)
	outcomes := make([]receiver.Outcome, len(envs))
	for i, env := range envs {
		outcomes[i] = receiver.Outcome{Status: receiver.StatusSkipped, Source: env.SourceKey()}
	}
	return outcomes, nil
}

func (m *mockProcessor) Sources() []string { return []string{"woocommerce", "xero"} }

func (m *mockProcessor) Health() service.Stats { return service.Stats{} }

func newRouter() (http.Handler, *mockProcessor) {
	proc := &mockProcessor{}
	return NewRouter(handlers.NewHandler(proc, handlers.Options{})), proc
}

func TestRouter_Routes(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{name: "envelopes", method: http.MethodPost, path: "/api/v1/envelopes", body: `{"source":"xero"}`, want: http.StatusOK},
		{name: "webhook", method: http.MethodPost, path: "/webhooks/woocommerce", body: `{"id":1}`, want: http.StatusOK},
		{name: "webhook unknown source", method: http.MethodPost, path: "/webhooks/shopify", body: `{}`, want: http.StatusNotFound},
		{name: "healthz", method: http.MethodGet, path: "/healthz", want: http.StatusOK},
		{name: "readyz", method: http.MethodGet, path: "/readyz", want: http.StatusOK},
		{name: "metrics", method: http.MethodGet, path: "/metrics", want: http.StatusOK},
		{name: "envelopes wrong method", method: http.MethodGet, path: "/api/v1/envelopes", want: http.StatusMethodNotAllowed},
		{name: "unknown path", method: http.MethodGet, path: "/services/collector/event", want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := newRouter()
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			rr := httptest.NewRecorder()

			router.ServeHTTP(rr, req)

			assert.Equal(t, tt.want, rr.Code)
			assert.NotEmpty(t, rr.Header().Get(middleware.HeaderRequestID))
		})
	}
}

func TestRouter_WebhookSourceFromPath(t *testing.T) {
	router, proc := newRouter()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/WooCommerce", strings.NewReader(`{"id":10421}`))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, proc.envs, 1)
	assert.Equal(t, "woocommerce", proc.envs[0].Source)
}
