package service

import (
	"context"
	"fmt"
	"time"

	"archelon-assistant-be/internal/model"
	"archelon-assistant-be/internal/pkg/logger"
	"archelon-assistant-be/pkg/events"
	pktNats "archelon-assistant-be/pkg/nats"

	"github.com/google/uuid"
)

// NotificationDelivery pushes a notification to a user's connected clients.
// The websocket Hub implements it.
type NotificationDelivery interface {
	Send(userID uuid.UUID, notification model.Notification)
}

// NotificationService bridges the event bus to websocket delivery: ingestion
// completions and session deletions become push notifications for the owner.
type NotificationService struct {
	sub      *pktNats.Subscriber
	delivery NotificationDelivery
	logger   logger.ILogger
}

func NewNotificationService(sub *pktNats.Subscriber, delivery NotificationDelivery, log logger.ILogger) *NotificationService {
	return &NotificationService{
		sub:      sub,
		delivery: delivery,
		logger:   log,
	}
}

func (s *NotificationService) Start() {
	if err := s.sub.Subscribe("events.>", "notification-worker", s.handleEvent); err != nil {
		s.logger.Error("NotificationService", "Failed to start notification subscriber", map[string]interface{}{"error": err.Error()})
		return
	}
	s.logger.Info("NotificationService", "Notification service started, listening to events.>", nil)
}

func (s *NotificationService) handleEvent(ctx context.Context, event events.Event) error {
	payload := event.Payload()

	userIdRaw, _ := payload["user_id"].(string)
	userId, err := uuid.Parse(userIdRaw)
	if err != nil {
		// Event without an owner; nothing to deliver, and nothing a retry
		// would fix.
		s.logger.Warn("NotificationService", "Event without valid user_id, skipping", map[string]interface{}{"type": event.EventType()})
		return nil
	}

	var notification model.Notification
	switch event.EventType() {
	case "INGESTION_COMPLETED":
		sourceId, _ := payload["source_id"].(string)
		notification = model.Notification{
			Type:      "ingestion_completed",
			Title:     "Document ready",
			Body:      fmt.Sprintf("Document %s has been indexed and is available for questions.", sourceId),
			Data:      payload,
			CreatedAt: time.Now(),
		}
	case "SESSION_DELETED":
		notification = model.Notification{
			Type:      "session_deleted",
			Title:     "Session deleted",
			Body:      "A chat session and its documents were removed.",
			Data:      payload,
			CreatedAt: time.Now(),
		}
	default:
		return nil
	}

	s.delivery.Send(userId, notification)
	return nil
}
