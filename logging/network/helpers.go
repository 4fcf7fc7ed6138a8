package network

import (
	"context"

	"heist/server/logging"
)

const (
	// EventClientConnected is emitted when a websocket session is accepted.
	EventClientConnected logging.EventType = "network.client_connected"
	// EventClientDisconnected is emitted when a websocket session closes.
	EventClientDisconnected logging.EventType = "network.client_disconnected"
	// EventClientRejected is emitted when a join attempt fails authentication.
	EventClientRejected logging.EventType = "network.client_rejected"
	// EventMessageRejected is emitted for malformed or rate limited client messages.
	EventMessageRejected logging.EventType = "network.message_rejected"
)

// ConnectionPayload describes a session transition.
type ConnectionPayload struct {
	Remote string `json:"remote,omitempty"`
	Codec  string `json:"codec,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// MessagePayload describes a rejected inbound message.
type MessagePayload struct {
	MessageType string `json:"messageType,omitempty"`
	Reason      string `json:"reason"`
}

func ClientConnected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ConnectionPayload, extra map[string]any) {
	emit(ctx, pub, EventClientConnected, logging.SeverityInfo, tick, actor, payload, extra)
}

func ClientDisconnected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ConnectionPayload, extra map[string]any) {
	emit(ctx, pub, EventClientDisconnected, logging.SeverityInfo, tick, actor, payload, extra)
}

func ClientRejected(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload ConnectionPayload, extra map[string]any) {
	emit(ctx, pub, EventClientRejected, logging.SeverityWarn, 0, actor, payload, extra)
}

// MessageRejected is debug level: a misbehaving client can produce many.
func MessageRejected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload MessagePayload, extra map[string]any) {
	emit(ctx, pub, EventMessageRejected, logging.SeverityDebug, tick, actor, payload, extra)
}

func emit(ctx context.Context, pub logging.Publisher, eventType logging.EventType, severity logging.Severity, tick uint64, actor logging.EntityRef, payload any, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     eventType,
		Tick:     tick,
		Actor:    actor,
		Severity: severity,
		Category: logging.CategoryNetwork,
		Payload:  payload,
		Extra:    extra,
	})
}
