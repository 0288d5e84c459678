package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID(t *testing.T) {
	tests := []struct {
		name              string
		existingRequestID string
		expectNewID       bool
	}{
		{
			name:              "generates new request ID when not present",
			existingRequestID: "",
			expectNewID:       true,
		},
		{
			name:              "propagates existing request ID",
			existingRequestID: "existing-req-123",
			expectNewID:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured string
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				captured = GetRequestID(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, "http://example.com/webhooks/woocommerce", nil)
			if tt.existingRequestID != "" {
				req.Header.Set(HeaderRequestID, tt.existingRequestID)
			}
			w := httptest.NewRecorder()

			RequestID(handler).ServeHTTP(w, req)

			responseID := w.Header().Get(HeaderRequestID)
			require.NotEmpty(t, responseID)
			assert.Equal(t, responseID, captured)

			if tt.expectNewID {
				_, err := uuid.Parse(responseID)
				assert.NoError(t, err, "generated request ID should be a UUID")
			} else {
				assert.Equal(t, tt.existingRequestID, responseID)
			}
		})
	}
}

func TestWithRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "msg-42")
	assert.Equal(t, "msg-42", GetRequestID(ctx))

	unchanged := WithRequestID(context.Background(), "")
	assert.Empty(t, GetRequestID(unchanged))
}

func TestGetRequestID_WrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), RequestIDKey, 12345)
	assert.Empty(t, GetRequestID(ctx))
}
