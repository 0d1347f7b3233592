package realtime

import (
	"context"
	"encoding/json"

	"github.com/praxishealth/praxis/internal/events"
	"github.com/praxishealth/praxis/pkg/logging"
)

// Frame is the JSON envelope sent to stream subscribers.
type Frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Broadcaster adapts the hub to the outbox deliverer: appointment events are
// pushed to every open calendar stream for the org. It implements
// events.DeliveryHandler and never returns an error; a missed frame is
// harmless since clients refetch on reconnect.
type Broadcaster struct {
	hub    *Hub
	logger *logging.Logger
}

// NewBroadcaster creates the outbox-to-websocket bridge.
func NewBroadcaster(hub *Hub, logger *logging.Logger) *Broadcaster {
	if logger == nil {
		logger = logging.Default()
	}
	return &Broadcaster{hub: hub, logger: logger}
}

// Handle implements events.DeliveryHandler.
func (b *Broadcaster) Handle(ctx context.Context, entry events.OutboxEntry) error {
	switch entry.Type {
	case events.TypeAppointmentBooked, events.TypeAppointmentCanceled:
	default:
		return nil
	}

	frame, err := json.Marshal(Frame{Type: entry.Type, Data: entry.Payload})
	if err != nil {
		b.logger.Error("realtime: marshal frame", "error", err, "outbox_id", entry.ID)
		return nil
	}
	n := b.hub.Broadcast(entry.OrgID, frame)
	if n > 0 {
		b.logger.Debug("realtime: frame broadcast", "org_id", entry.OrgID, "type", entry.Type, "subscribers", n)
	}
	return nil
}
