package ws

import (
	"context"
	"encoding/json"
	"log/slog"
)

// BroadcastEvent marshals payload and sends it to all connected clients
// wrapped in a typed Message envelope. Implements broadcast.Broadcaster.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("websocket event marshal failed", "type", eventType, "error", err)
		return
	}
	h.Broadcast(ctx, Message{Type: eventType, Payload: data})
}
