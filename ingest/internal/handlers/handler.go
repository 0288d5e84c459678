package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/asbrown77/bagile-platform-sub001/common/httputil"
	"github.com/asbrown77/bagile-platform-sub001/common/logging"
	"github.com/asbrown77/bagile-platform-sub001/common/messaging"
	"github.com/asbrown77/bagile-platform-sub001/common/middleware"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/model"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/ratelimit"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/receiver"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/service"
	"github.com/asbrown77/bagile-platform-sub001/ingest/pkg/api"
)

// DefaultMaxBodyBytes caps request bodies.
const DefaultMaxBodyBytes = 5 << 20

// HeaderWooTopic carries the WooCommerce webhook topic, e.g. "order.updated".
const HeaderWooTopic = "X-WC-Webhook-Topic"

// EnvelopeProcessor handles envelopes synchronously.
type EnvelopeProcessor interface {
	ProcessBatch(ctx context.Context, envs []model.Envelope) ([]receiver.Outcome, error)
	Sources() []string
	Health() service.Stats
}

// ReadinessCheck reports whether a dependency is usable.
type ReadinessCheck func(ctx context.Context) error

// Options configures optional handler behaviour.
type Options struct {
	// Queue, when set, receives envelopes instead of processing them inline.
	Queue        messaging.Publisher
	Limiter      ratelimit.RateLimiter
	Checks       map[string]ReadinessCheck
	MaxBodyBytes int64
	Logger       *logging.Logger
}

type Handler struct {
	processor EnvelopeProcessor
	queue     messaging.Publisher
	limiter   ratelimit.RateLimiter
	checks    map[string]ReadinessCheck
	maxBody   int64
	logger    *logging.Logger
	now       func() time.Time
}

func NewHandler(processor EnvelopeProcessor, opts Options) *Handler {
	h := &Handler{
		processor: processor,
		queue:     opts.Queue,
		limiter:   opts.Limiter,
		checks:    opts.Checks,
		maxBody:   opts.MaxBodyBytes,
		logger:    opts.Logger,
		now:       time.Now,
	}
	if h.limiter == nil {
		h.limiter = &ratelimit.NoOpRateLimiter{}
	}
	if h.maxBody <= 0 {
		h.maxBody = DefaultMaxBodyBytes
	}
	if h.logger == nil {
		h.logger = logging.Discard()
	}
	return h
}

// HandleEnvelopes accepts one or more envelopes as a JSON object, a JSON
// array or newline-delimited JSON.
func (h *Handler) HandleEnvelopes(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}

	envs, err := api.DecodeEnvelopes(body)
	if err != nil {
		h.sendError(w, api.AsError(err), http.StatusBadRequest)
		return
	}

	received := h.now().UTC()
	for i := range envs {
		if envs[i].ReceivedAt.IsZero() {
			envs[i].ReceivedAt = received
		}
	}
	h.dispatch(w, r, envs)
}

// HandleWebhook accepts a raw payload pushed by the source named in the
// path.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	source := model.NormalizeSource(r.PathValue("source"))
	if !slices.Contains(h.processor.Sources(), source) {
		h.sendError(w, api.ErrUnknownSource, http.StatusNotFound)
		return
	}

	allowed, err := h.limiter.Allow(r.Context(), source+":"+httputil.ClientIP(r))
	if err != nil {
		h.logger.WarnContext(r.Context(), "rate limit check failed", logging.Source(source), logging.Error(err))
	} else if !allowed {
		h.sendError(w, api.ErrRateLimited, http.StatusTooManyRequests)
		return
	}

	body, ok := h.readBody(w, r)
	if !ok {
		return
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		h.sendError(w, api.ErrNoData, http.StatusBadRequest)
		return
	}
	if isDeliveryPing(r, body) {
		httputil.WriteJSON(w, http.StatusOK, api.Success())
		return
	}

	env := model.Envelope{
		Source:     source,
		ExternalID: r.Header.Get(messaging.HeaderExternalID),
		EventType:  firstNonEmpty(r.Header.Get(messaging.HeaderEventType), r.Header.Get(HeaderWooTopic)),
		Payload:    string(body),
		ReceivedAt: h.now().UTC(),
	}
	h.dispatch(w, r, []model.Envelope{env})
}

func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request, envs []model.Envelope) {
	ctx := r.Context()

	if h.queue != nil {
		for i, env := range envs {
			if err := h.enqueue(ctx, env); err != nil {
				h.logger.ErrorContext(ctx, "failed to queue envelope",
					logging.Source(env.Source), logging.ExternalID(env.ExternalID), logging.Error(err))
				resp := api.Failure(api.ErrServerBusy)
				resp.Queued = i
				httputil.WriteJSON(w, http.StatusServiceUnavailable, resp)
				return
			}
		}
		resp := api.Success()
		resp.Queued = len(envs)
		httputil.WriteJSON(w, http.StatusAccepted, resp)
		return
	}

	outcomes, err := h.processor.ProcessBatch(ctx, envs)
	if err != nil {
		h.logger.ErrorContext(ctx, "envelope processing failed",
			slog.Int("envelopes", len(envs)), logging.Error(err))
		h.sendError(w, api.ErrServerBusy, http.StatusServiceUnavailable)
		return
	}

	views := make([]api.Outcome, len(outcomes))
	for i, o := range outcomes {
		views[i] = toView(o)
	}
	httputil.WriteJSON(w, http.StatusOK, api.Success(views...))
}

func (h *Handler) enqueue(ctx context.Context, env model.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	msg := messaging.NewMessage(messaging.EnvelopeSubject(env.SourceKey()), data,
		messaging.WithHeader(messaging.HeaderRequestID, middleware.GetRequestID(ctx)))
	return h.queue.PublishMsg(ctx, msg)
}

func (h *Handler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	defer r.Body.Close()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.sendError(w, api.ErrTooLarge, http.StatusRequestEntityTooLarge)
		} else {
			h.sendError(w, api.ErrInvalidEnvelope, http.StatusBadRequest)
		}
		return nil, false
	}
	return body, true
}

// Health reports liveness with processor counters.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"stats":  h.processor.Health(),
	})
}

// Ready runs readiness checks; any failure answers 503.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	httputil.WriteJSON(w, code, map[string]interface{}{
		"status":  status,
		"checks":  results,
		"sources": h.processor.Sources(),
	})
}

func (h *Handler) sendError(w http.ResponseWriter, apiErr *api.Error, status int) {
	httputil.WriteJSON(w, status, api.Failure(apiErr))
}

func toView(o receiver.Outcome) api.Outcome {
	view := api.Outcome{
		Status:     string(o.Status),
		Source:     o.Source,
		ExternalID: o.ExternalID,
		Reason:     o.Reason(),
	}
	for _, rec := range o.Records {
		view.RecordIDs = append(view.RecordIDs, rec.RecordID())
	}
	return view
}

// isDeliveryPing recognizes the form-encoded request WooCommerce sends
// when a webhook is first saved.
func isDeliveryPing(r *http.Request, body []byte) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") &&
		strings.HasPrefix(string(body), "webhook_id=")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
