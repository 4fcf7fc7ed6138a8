package lifecycle

import (
	"context"

	"heist/server/logging"
)

const (
	// EventMatchCreated is emitted when a room is set up from a roster.
	EventMatchCreated logging.EventType = "lifecycle.match_created"
	// EventMatchStarted is emitted when the tick loop begins.
	EventMatchStarted logging.EventType = "lifecycle.match_started"
	// EventPhaseChanged is emitted when head start gives way to play.
	EventPhaseChanged logging.EventType = "lifecycle.phase_changed"
	// EventMatchEnded is emitted once with the final result.
	EventMatchEnded logging.EventType = "lifecycle.match_ended"
	// EventPlayerAttached is emitted when a client takes control of a player.
	EventPlayerAttached logging.EventType = "lifecycle.player_attached"
	// EventBotTakeover is emitted when a disconnected player is handed to a bot.
	EventBotTakeover logging.EventType = "lifecycle.bot_takeover"
)

type MatchCreatedPayload struct {
	Layout  string `json:"layout"`
	Players int    `json:"players"`
	Bots    int    `json:"bots"`
}

type MatchStartedPayload struct {
	TickMillis int64 `json:"tickMillis"`
}

type PhaseChangedPayload struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type MatchEndedPayload struct {
	WinningTeam     string  `json:"winningTeam"`
	Reason          string  `json:"reason"`
	StolenCoins     float64 `json:"stolenCoins"`
	PayoutPerWinner uint64  `json:"payoutPerWinner"`
	Winners         int     `json:"winners"`
}

type PlayerAttachedPayload struct {
	Team string `json:"team"`
}

type BotTakeoverPayload struct {
	Reason string `json:"reason"`
}

func publish(ctx context.Context, pub logging.Publisher, event logging.Event) {
	if pub == nil {
		return
	}
	event.Category = logging.CategoryLifecycle
	if event.Severity == 0 {
		event.Severity = logging.SeverityInfo
	}
	pub.Publish(ctx, event)
}

func MatchCreated(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload MatchCreatedPayload, extra map[string]any) {
	publish(ctx, pub, logging.Event{Type: EventMatchCreated, Actor: actor, Payload: payload, Extra: extra})
}

func MatchStarted(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload MatchStartedPayload, extra map[string]any) {
	publish(ctx, pub, logging.Event{Type: EventMatchStarted, Tick: tick, Actor: actor, Payload: payload, Extra: extra})
}

func PhaseChanged(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PhaseChangedPayload, extra map[string]any) {
	publish(ctx, pub, logging.Event{Type: EventPhaseChanged, Tick: tick, Actor: actor, Payload: payload, Extra: extra})
}

// MatchEnded lists the winners as targets.
func MatchEnded(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, winners []logging.EntityRef, payload MatchEndedPayload, extra map[string]any) {
	publish(ctx, pub, logging.Event{Type: EventMatchEnded, Tick: tick, Actor: actor, Targets: winners, Payload: payload, Extra: extra})
}

func PlayerAttached(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PlayerAttachedPayload, extra map[string]any) {
	publish(ctx, pub, logging.Event{Type: EventPlayerAttached, Tick: tick, Actor: actor, Payload: payload, Extra: extra})
}

func BotTakeover(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload BotTakeoverPayload, extra map[string]any) {
	publish(ctx, pub, logging.Event{Type: EventBotTakeover, Tick: tick, Actor: actor, Severity: logging.SeverityWarn, Payload: payload, Extra: extra})
}
