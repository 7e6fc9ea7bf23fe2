/*
Package notify delivers leave transition events.

PURPOSE:
  Implementations of leave.Notifier. The Service emits events only after
  the storage transaction commits, and delivery is fire-and-forget: a
  notifier that fails logs the failure and nothing else. A transition can
  never be blocked or rolled back by its notification.
*/
package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/warp/leave-ledger/leave"
)

// LogNotifier writes each event to the structured log. It stands in for a
// mail or chat integration in deployments that have none.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With().Str("component", "notify").Logger()}
}

func (n *LogNotifier) Notify(_ context.Context, ev leave.Event) {
	n.log.Info().
		Str("event", string(ev.Type)).
		Str("request_id", string(ev.Request.ID)).
		Str("user_id", string(ev.Request.UserID)).
		Str("category", string(ev.Request.Category)).
		Str("actor_id", string(ev.Actor.ID)).
		Str("days", ev.Request.Days.String()).
		Msg("leave transition")
}

var _ leave.Notifier = (*LogNotifier)(nil)

// Fanout delivers each event to every wrapped notifier in turn.
type Fanout []leave.Notifier

func (f Fanout) Notify(ctx context.Context, ev leave.Event) {
	for _, n := range f {
		n.Notify(ctx, ev)
	}
}

var _ leave.Notifier = (Fanout)(nil)
