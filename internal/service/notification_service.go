package service

import (
	"context"

	"docchat-client/internal/pkg/logger"
	"docchat-client/pkg/events"
)

// NotificationDelivery pushes a frame to one tab. Implemented by the
// WebSocket Hub.
type NotificationDelivery interface {
	Send(tabID string, frame interface{})
}

// EventSubscriber is the receiving side of the event bus.
type EventSubscriber interface {
	Subscribe(ctx context.Context) (<-chan events.Event, error)
}

// NotificationFrame is what a tab receives over its socket.
type NotificationFrame struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
}

type NotificationService struct {
	bus      EventSubscriber
	delivery NotificationDelivery
	logger   logger.ILogger
}

func NewNotificationService(bus EventSubscriber, delivery NotificationDelivery, log logger.ILogger) *NotificationService {
	return &NotificationService{
		bus:      bus,
		delivery: delivery,
		logger:   log,
	}
}

// Start relays tab-addressed bus events to their sockets until ctx ends.
func (s *NotificationService) Start(ctx context.Context) error {
	ch, err := s.bus.Subscribe(ctx)
	if err != nil {
		s.logger.Error("NotificationService", "Failed to subscribe to event bus", map[string]interface{}{"error": err.Error()})
		return err
	}

	go func() {
		for event := range ch {
			s.handleEvent(event)
		}
	}()

	s.logger.Info("NotificationService", "Notification service started", nil)
	return nil
}

func (s *NotificationService) handleEvent(event events.Event) {
	tabID := events.TabID(event)
	if tabID == "" {
		s.logger.Debug("NotificationService", "Dropping event without tab id", map[string]interface{}{"type": event.EventType()})
		return
	}

	s.delivery.Send(tabID, NotificationFrame{
		Type: event.EventType(),
		Data: event.Payload(),
	})
}
