// Package slacknotify posts orchestrator events to a Slack ops channel.
package slacknotify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"

	"github.com/lumora-app/lumora-client/internal/client"
)

// Notifier implements client.EventSink by posting to one channel.
type Notifier struct {
	api     *slack.Client
	channel string
	logger  zerolog.Logger
}

// New creates a notifier for the given bot token and channel.
func New(botToken, channel string, logger zerolog.Logger) *Notifier {
	return &Notifier{
		api:     slack.New(botToken),
		channel: channel,
		logger:  logger.With().Str("component", "slacknotify").Logger(),
	}
}

// Emit posts one event. Delivery is best-effort; the caller isolates
// failures.
func (n *Notifier) Emit(ctx context.Context, ev client.Event) error {
	_, _, err := n.api.PostMessageContext(ctx, n.channel, slack.MsgOptionText(Format(ev), false))
	if err != nil {
		return fmt.Errorf("posting slack event: %w", err)
	}
	n.logger.Debug().Str("event", ev.Type).Str("call_id", ev.CallID).Msg("event posted")
	return nil
}

// Format renders one event as message text.
func Format(ev client.Event) string {
	switch ev.Type {
	case client.EventRecovered:
		return fmt.Sprintf(":recycle: `%s` recovered after %d attempts (call %s)", ev.Operation, ev.Attempts, ev.CallID)
	default:
		return fmt.Sprintf(":x: `%s` failed after %d attempts: %s (%s)", ev.Operation, ev.Attempts, ev.Kind, ev.Message)
	}
}
