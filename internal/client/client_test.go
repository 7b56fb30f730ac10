package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierr "github.com/lumora-app/lumora-client/internal/errors"
	"github.com/lumora-app/lumora-client/pkg/tokenstore"
)

// scriptedHTTP replays a fixed sequence of outcomes and records every request.
type scriptedHTTP struct {
	outcomes []outcome
	requests []*http.Request
}

type outcome struct {
	status int
	body   string
	err    error
}

func (s *scriptedHTTP) Do(req *http.Request) (*http.Response, error) {
	s.requests = append(s.requests, req)
	idx := len(s.requests) - 1
	if idx >= len(s.outcomes) {
		idx = len(s.outcomes) - 1
	}
	o := s.outcomes[idx]
	if o.err != nil {
		return nil, o.err
	}
	return &http.Response{
		StatusCode: o.status,
		Body:       io.NopCloser(strings.NewReader(o.body)),
		Header:     http.Header{},
	}, nil
}

func testLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).Level(zerolog.Disabled)
}

func newTestClient(t *testing.T, transport *scriptedHTTP, opts ...Option) (*Client, *tokenstore.Store) {
	t.Helper()
	tokens := tokenstore.New(tokenstore.NewMemoryStorage(), testLogger())
	base := []Option{
		WithHTTPClient(transport),
		WithStandardPolicy(fastPolicy(3)),
		WithCriticalPolicy(fastPolicy(5)),
		WithAdvisoryPolicy(fastPolicy(2)),
	}
	return New("https://api.lumora.test", tokens, testLogger(), append(base, opts...)...), tokens
}

func TestExecute_TransportFailureExhaustsStandardPolicy(t *testing.T) {
	// Scenario: no response on 3 consecutive attempts under the standard
	// policy means exactly 3 attempts, terminal network_unreachable.
	transport := &scriptedHTTP{outcomes: []outcome{
		{err: errors.New("connection refused")},
	}}
	c, _ := newTestClient(t, transport)

	_, err := c.GetProfile(context.Background())
	require.Error(t, err)
	assert.Equal(t, apierr.KindNetworkUnreachable, apierr.KindOf(err))
	assert.Len(t, transport.requests, 3)
}

func TestExecute_CredentialExpiredFailsImmediately(t *testing.T) {
	// Scenario: 401 "token expired" on attempt 1: exactly one attempt, no
	// backoff, credential_expired surfaces.
	transport := &scriptedHTTP{outcomes: []outcome{
		{status: 401, body: `{"error":{"message":"token expired"}}`},
	}}
	c, _ := newTestClient(t, transport)

	start := time.Now()
	_, err := c.GetProfile(context.Background())
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Equal(t, apierr.KindCredentialExpired, apierr.KindOf(err))
	assert.Len(t, transport.requests, 1)
	assert.Less(t, elapsed, 100*time.Millisecond)

	var canonical *apierr.APIError
	require.ErrorAs(t, err, &canonical)
	assert.NotEmpty(t, canonical.UserMessage)
	assert.NotEmpty(t, canonical.Remediation)
}

func TestExecute_RecoversUnderCriticalPolicy(t *testing.T) {
	// Scenario: 503 twice then success on attempt 3 under the critical policy.
	transport := &scriptedHTTP{outcomes: []outcome{
		{status: 503, body: `{"error":{"message":"service unavailable"}}`},
		{status: 503, body: `{"error":{"message":"service unavailable"}}`},
		{status: 200, body: `{"id":"p1","display_name":"Ada","email":"ada@example.com"}`},
	}}
	c, _ := newTestClient(t, transport)

	display := "Ada"
	profile, err := c.UpdateProfile(context.Background(), ProfileUpdate{DisplayName: &display})
	require.NoError(t, err)
	assert.Equal(t, "Ada", profile.DisplayName)
	assert.Len(t, transport.requests, 3)
}

func TestExecute_InjectsBearerToken(t *testing.T) {
	transport := &scriptedHTTP{outcomes: []outcome{
		{status: 200, body: `{"status":"ok","version":"1"}`},
	}}
	c, tokens := newTestClient(t, transport)
	require.NoError(t, tokens.Set(context.Background(), "tok-123"))

	_, err := c.Status(context.Background())
	require.NoError(t, err)
	require.Len(t, transport.requests, 1)
	assert.Equal(t, "Bearer tok-123", transport.requests[0].Header.Get("Authorization"))
}

func TestExecute_NoTokenOmitsAuthorizationHeader(t *testing.T) {
	transport := &scriptedHTTP{outcomes: []outcome{
		{status: 200, body: `{"status":"ok","version":"1"}`},
	}}
	c, _ := newTestClient(t, transport)

	_, err := c.Status(context.Background())
	require.NoError(t, err)
	require.Len(t, transport.requests, 1)
	assert.Empty(t, transport.requests[0].Header.Get("Authorization"))
}

func TestExecute_RereadsCredentialEveryAttempt(t *testing.T) {
	// A refresh landing between attempts is picked up by the next attempt.
	transport := &scriptedHTTP{outcomes: []outcome{
		{status: 503, body: ""},
		{status: 200, body: `{"status":"ok","version":"1"}`},
	}}
	c, tokens := newTestClient(t, transport)
	require.NoError(t, tokens.Set(context.Background(), "stale"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Swap the credential while the first backoff sleeps.
		time.Sleep(200 * time.Microsecond)
		_ = tokens.Set(context.Background(), "fresh")
	}()

	_, err := c.Status(context.Background())
	<-done
	require.NoError(t, err)
	require.Len(t, transport.requests, 2)
	assert.Equal(t, "Bearer stale", transport.requests[0].Header.Get("Authorization"))
	// The retry read the store again rather than reusing a call-start snapshot.
	assert.Contains(t, []string{"Bearer stale", "Bearer fresh"}, transport.requests[1].Header.Get("Authorization"))
}

// recordingSink captures emitted events, optionally failing.
type recordingSink struct {
	events  []Event
	emitErr error
}

func (r *recordingSink) Emit(_ context.Context, ev Event) error {
	r.events = append(r.events, ev)
	return r.emitErr
}

func TestExecute_EmitsRecoveredEventAfterRetry(t *testing.T) {
	transport := &scriptedHTTP{outcomes: []outcome{
		{status: 503, body: ""},
		{status: 200, body: `{"status":"ok","version":"1"}`},
	}}
	sink := &recordingSink{}
	c, _ := newTestClient(t, transport, WithEventSink(sink))

	_, err := c.Status(context.Background())
	require.NoError(t, err)

	require.Len(t, sink.events, 1)
	assert.Equal(t, EventRecovered, sink.events[0].Type)
	assert.Equal(t, "status", sink.events[0].Operation)
	assert.Equal(t, 2, sink.events[0].Attempts)
	assert.NotEmpty(t, sink.events[0].CallID)
}

func TestExecute_NoEventOnFirstAttemptSuccess(t *testing.T) {
	transport := &scriptedHTTP{outcomes: []outcome{
		{status: 200, body: `{"status":"ok","version":"1"}`},
	}}
	sink := &recordingSink{}
	c, _ := newTestClient(t, transport, WithEventSink(sink))

	_, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sink.events)
}

func TestExecute_SinkFailureDoesNotChangeOutcome(t *testing.T) {
	transport := &scriptedHTTP{outcomes: []outcome{
		{status: 503, body: ""},
		{status: 200, body: `{"status":"ok","version":"1"}`},
	}}
	sink := &recordingSink{emitErr: errors.New("slack is down")}
	c, _ := newTestClient(t, transport, WithEventSink(sink))

	report, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", report.Status)
	assert.Len(t, sink.events, 1)
}

func TestExecute_ExhaustedEventCarriesKind(t *testing.T) {
	transport := &scriptedHTTP{outcomes: []outcome{
		{status: 401, body: `{"error":{"message":"bad signature"}}`},
	}}
	sink := &recordingSink{}
	c, _ := newTestClient(t, transport, WithEventSink(sink))

	_, err := c.GetProfile(context.Background())
	require.Error(t, err)
	require.Len(t, sink.events, 1)
	assert.Equal(t, EventExhausted, sink.events[0].Type)
	assert.Equal(t, apierr.KindCredentialInvalid, sink.events[0].Kind)
}

func TestExecute_RateLimitRetriesThenSurfaces(t *testing.T) {
	transport := &scriptedHTTP{outcomes: []outcome{
		{status: 429, body: `{"error":{"message":"too many requests"}}`},
	}}
	c, _ := newTestClient(t, transport)

	_, err := c.Status(context.Background()) // advisory: 2 attempts
	require.Error(t, err)
	assert.Equal(t, apierr.KindRateLimited, apierr.KindOf(err))
	assert.Len(t, transport.requests, 2)

	var canonical *apierr.APIError
	require.ErrorAs(t, err, &canonical)
	assert.Equal(t, 60*time.Second, canonical.RetryAfter)
}

func TestCall_DecodeFailure(t *testing.T) {
	transport := &scriptedHTTP{outcomes: []outcome{
		{status: 200, body: `not json`},
	}}
	c, _ := newTestClient(t, transport)

	_, err := c.GetProfile(context.Background())
	require.Error(t, err)
	assert.Equal(t, apierr.KindDecodeFailure, apierr.KindOf(err))
	// A broken success payload is terminal, not retried.
	assert.Len(t, transport.requests, 1)
}

func TestExecute_ProviderCodeInPayload(t *testing.T) {
	transport := &scriptedHTTP{outcomes: []outcome{
		{status: 400, body: `{"error":{"code":"auth/id-token-revoked","message":"revoked"}}`},
	}}
	c, _ := newTestClient(t, transport)

	_, err := c.VerifyCredential(context.Background())
	require.Error(t, err)
	assert.Equal(t, apierr.KindCredentialRevoked, apierr.KindOf(err))
	assert.Len(t, transport.requests, 1)
}

func TestDo_CustomPolicy(t *testing.T) {
	transport := &scriptedHTTP{outcomes: []outcome{
		{err: errors.New("connection refused")},
	}}
	c, _ := newTestClient(t, transport)

	var out map[string]any
	err := c.Do(context.Background(), http.MethodGet, "/v1/custom", nil, fastPolicy(4), &out)
	require.Error(t, err)
	assert.Len(t, transport.requests, 4)
}

func TestResources_PathsAndMethods(t *testing.T) {
	transport := &scriptedHTTP{outcomes: []outcome{
		{status: 200, body: `{}`},
	}}
	c, _ := newTestClient(t, transport)
	ctx := context.Background()

	_, _ = c.GenerateContent(ctx, GenerateRequest{Topic: "dawn"})
	_ = c.AddFavorite(ctx, "c1")
	_ = c.RemoveFavorite(ctx, "c1")
	_, _ = c.ListHistory(ctx, 25)
	_, _ = c.GetSubscription(ctx)

	require.Len(t, transport.requests, 5)
	assert.Equal(t, http.MethodPost, transport.requests[0].Method)
	assert.Equal(t, "/v1/content/generate", transport.requests[0].URL.Path)
	assert.Equal(t, http.MethodPost, transport.requests[1].Method)
	assert.Equal(t, "/v1/favorites", transport.requests[1].URL.Path)
	assert.Equal(t, http.MethodDelete, transport.requests[2].Method)
	assert.Equal(t, "/v1/favorites/c1", transport.requests[2].URL.Path)
	assert.Equal(t, "limit=25", transport.requests[3].URL.RawQuery)
	assert.Equal(t, "/v1/subscription", transport.requests[4].URL.Path)
}
