package client

import (
	"context"

	"github.com/rs/zerolog"

	apierr "github.com/lumora-app/lumora-client/internal/errors"
)

// Event types emitted by the orchestrator.
const (
	EventRecovered = "recovered_after_retry"
	EventExhausted = "call_failed"
)

// Event is a best-effort observability record about one logical call.
type Event struct {
	Type      string
	CallID    string
	Operation string
	Attempts  int
	Kind      apierr.Kind
	Message   string
}

// EventSink receives orchestrator events. Emission is best-effort: a sink
// failure never changes a call's outcome.
type EventSink interface {
	Emit(ctx context.Context, ev Event) error
}

// LogSink writes events to the structured log.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink creates a sink that logs events.
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger.With().Str("component", "events").Logger()}
}

func (s *LogSink) Emit(_ context.Context, ev Event) error {
	s.logger.Info().
		Str("event", ev.Type).
		Str("call_id", ev.CallID).
		Str("operation", ev.Operation).
		Int("attempts", ev.Attempts).
		Str("kind", string(ev.Kind)).
		Msg("call event")
	return nil
}

// emit delivers ev to the sink, isolating failures: a sink error is itself
// classified and logged once, without re-entering the retry loop.
func (c *Client) emit(ctx context.Context, ev Event) {
	if c.events == nil {
		return
	}
	if err := c.events.Emit(ctx, ev); err != nil {
		c.logger.Warn().
			Err(err).
			Str("kind", string(apierr.KindOf(err))).
			Str("event", ev.Type).
			Msg("event emission failed")
	}
}
