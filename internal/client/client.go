// Package client implements the resilient Lumora API client. Every outbound
// request passes through its orchestration loop: bounded attempts with
// per-attempt deadlines, credential injection from the token store, error
// classification, and policy-driven backoff.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apierr "github.com/lumora-app/lumora-client/internal/errors"
	"github.com/lumora-app/lumora-client/internal/metrics"
	"github.com/lumora-app/lumora-client/internal/retry"
	"github.com/lumora-app/lumora-client/pkg/tokenstore"
)

// DefaultAttemptTimeout bounds each individual transport attempt. The
// deadline cancels exactly that attempt; the expiry classifies as timed_out
// and the policy decides whether another attempt follows.
const DefaultAttemptTimeout = 30 * time.Second

// HTTPClient abstracts HTTP calls for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client wraps the Lumora backend API.
type Client struct {
	baseURL        string
	httpClient     HTTPClient
	tokens         *tokenstore.Store
	events         EventSink
	metrics        *metrics.Metrics
	logger         zerolog.Logger
	attemptTimeout time.Duration

	standard retry.Policy
	critical retry.Policy
	advisory retry.Policy
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client (for testing).
func WithHTTPClient(hc HTTPClient) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithEventSink sets the observability event sink.
func WithEventSink(s EventSink) Option {
	return func(c *Client) { c.events = s }
}

// WithMetrics wires Prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithAttemptTimeout overrides the per-attempt deadline.
func WithAttemptTimeout(d time.Duration) Option {
	return func(c *Client) { c.attemptTimeout = d }
}

// WithStandardPolicy overrides the policy for ordinary reads.
func WithStandardPolicy(p retry.Policy) Option {
	return func(c *Client) { c.standard = p.Normalize() }
}

// WithCriticalPolicy overrides the policy for user-blocking operations.
func WithCriticalPolicy(p retry.Policy) Option {
	return func(c *Client) { c.critical = p.Normalize() }
}

// WithAdvisoryPolicy overrides the policy for non-essential checks.
func WithAdvisoryPolicy(p retry.Policy) Option {
	return func(c *Client) { c.advisory = p.Normalize() }
}

// New creates a Lumora API client.
func New(baseURL string, tokens *tokenstore.Store, logger zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		httpClient:     &http.Client{},
		tokens:         tokens,
		logger:         logger.With().Str("component", "client").Logger(),
		attemptTimeout: DefaultAttemptTimeout,
		standard:       retry.Standard(),
		critical:       retry.Critical(),
		advisory:       retry.Advisory(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.events == nil {
		c.events = NewLogSink(logger)
	}
	return c
}

// operation describes one logical backend call.
type operation struct {
	name   string
	method string
	path   string
	body   any
}

// execute runs one logical call under pol. It returns the raw success payload
// or the terminal canonical error after retries are exhausted or a
// non-retryable kind is hit.
func (c *Client) execute(ctx context.Context, op operation, pol retry.Policy) ([]byte, error) {
	pol = pol.Normalize()
	callID := uuid.NewString()
	log := c.logger.With().Str("call_id", callID).Str("operation", op.name).Logger()
	start := time.Now()

	st := Start()
	for {
		if c.metrics != nil {
			c.metrics.RecordAttempt(op.name)
		}
		payload, attemptErr := c.attempt(ctx, op)
		st = st.Observe(attemptErr, pol)

		switch st.Phase {
		case PhaseSucceeded:
			if st.Attempt > 1 {
				log.Info().Int("attempts", st.Attempt).Msg("call recovered after retry")
				if c.metrics != nil {
					c.metrics.RecordRecovery(op.name)
				}
				c.emit(ctx, Event{
					Type:      EventRecovered,
					CallID:    callID,
					Operation: op.name,
					Attempts:  st.Attempt,
				})
			}
			if c.metrics != nil {
				c.metrics.RecordCall(op.name, "success")
				c.metrics.ObserveCallDuration(op.name, time.Since(start).Seconds())
			}
			return payload, nil

		case PhaseFailed:
			log.Error().
				Str("kind", string(st.Err.Kind)).
				Int("attempts", st.Attempt).
				Str("raw", st.Err.RawMessage).
				Msg("call failed")
			if c.metrics != nil {
				c.metrics.RecordCall(op.name, "failure")
				c.metrics.RecordError(string(st.Err.Kind), st.Err.Kind.Family())
				c.metrics.ObserveCallDuration(op.name, time.Since(start).Seconds())
			}
			c.emit(ctx, Event{
				Type:      EventExhausted,
				CallID:    callID,
				Operation: op.name,
				Attempts:  st.Attempt,
				Kind:      st.Err.Kind,
				Message:   st.Err.RawMessage,
			})
			return nil, st.Err

		case PhaseRetrying:
			log.Warn().
				Str("kind", string(st.Err.Kind)).
				Int("attempt", st.Attempt).
				Dur("delay", st.Delay).
				Msg("attempt failed, backing off")
			if c.metrics != nil {
				c.metrics.RecordRetry(string(st.Err.Kind))
			}
			select {
			case <-time.After(st.Delay):
			case <-ctx.Done():
				return nil, apierr.Classify(apierr.TransportFailure{TimedOut: true, Err: ctx.Err()})
			}
			st = st.Advance()
		}
	}
}

// attempt issues exactly one transport call under its own deadline. The
// credential is re-read from the token store on every attempt so a concurrent
// refresh takes effect mid-call. Absence is allowed; the backend's rejection
// classifies normally.
func (c *Client) attempt(ctx context.Context, op operation) ([]byte, *apierr.APIError) {
	actx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	var body io.Reader
	if op.body != nil {
		raw, err := json.Marshal(op.body)
		if err != nil {
			return nil, apierr.New(apierr.KindBadRequest, "encoding request body", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(actx, op.method, c.baseURL+op.path, body)
	if err != nil {
		return nil, apierr.New(apierr.KindBadRequest, "building request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if tok, ok := c.tokens.Get(actx); ok {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apierr.Classify(apierr.TransportFailure{
			TimedOut: actx.Err() == context.DeadlineExceeded || isTimeout(err),
			Err:      err,
		})
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apierr.Classify(apierr.TransportFailure{
			TimedOut: actx.Err() == context.DeadlineExceeded,
			Err:      err,
		})
	}

	if resp.StatusCode >= 400 {
		return nil, apierr.Classify(statusFailure(resp.StatusCode, payload))
	}
	return payload, nil
}

// call runs a logical call and decodes the JSON success payload into out.
func (c *Client) call(ctx context.Context, op operation, pol retry.Policy, out any) error {
	payload, err := c.execute(ctx, op, pol)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return apierr.New(apierr.KindDecodeFailure, "decoding "+op.name+" response", err)
	}
	return nil
}

// Do runs an arbitrary backend call under an explicit policy, for call sites
// that need something other than the named resource methods.
func (c *Client) Do(ctx context.Context, method, path string, body any, pol retry.Policy, out any) error {
	return c.call(ctx, operation{name: method + " " + path, method: method, path: path, body: body}, pol, out)
}

// errorEnvelope is the backend's structured failure payload.
type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func statusFailure(status int, payload []byte) apierr.StatusResponse {
	var env errorEnvelope
	if err := json.Unmarshal(payload, &env); err == nil && (env.Error.Message != "" || env.Error.Code != "") {
		return apierr.StatusResponse{Status: status, Message: env.Error.Message, Code: env.Error.Code}
	}
	return apierr.StatusResponse{Status: status, Message: strings.TrimSpace(string(payload))}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
