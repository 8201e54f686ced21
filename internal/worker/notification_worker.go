package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/account-api/internal/events"
	"github.com/spec-kit/account-api/internal/service"
)

var auditedEvents = []events.EventType{
	events.EventUserRegistered,
	events.EventUserUpdated,
	events.EventUserDeleted,
	events.EventUserLoggedIn,
	events.EventUserLoggedOut,
}

// StartNotificationWorker registers notification handlers and the audit trail subscriber.
func StartNotificationWorker(dispatcher events.Dispatcher, notificationService *service.NotificationService, logger *zap.Logger) {
	if dispatcher == nil {
		return
	}
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}

	audit := logger.Named("audit")
	for _, eventType := range auditedEvents {
		dispatcher.Subscribe(eventType, func(_ context.Context, e events.Event) error {
			fields := []zap.Field{
				zap.String("event_id", e.ID),
				zap.String("event_type", string(e.Type)),
				zap.Int64("user_id", e.UserID),
				zap.Time("at", e.Timestamp),
			}
			if e.Actor != nil {
				fields = append(fields, zap.Int64("actor_id", e.Actor.UserID), zap.String("actor", e.Actor.Username))
			}
			audit.Info("account event", fields...)
			return nil
		})
	}
}
