package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/account-api/internal/config"
	"github.com/spec-kit/account-api/internal/domain"
	"github.com/spec-kit/account-api/internal/events"
	"github.com/spec-kit/account-api/internal/service"
)

func TestStartNotificationWorker(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)
	dispatcher := events.NewInMemoryDispatcher(logger)
	notifications := service.NewNotificationService(dispatcher, logger, config.NotificationConfig{
		EmailFrom:  "noreply@example.com",
		WebhookURL: "http://hooks.local/accounts",
	})

	StartNotificationWorker(dispatcher, notifications, logger)

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{
		ID:        "evt-1",
		Type:      events.EventUserRegistered,
		UserID:    7,
		Timestamp: time.Now(),
		Payload:   events.UserRegisteredPayload{Email: "ann@example.com", Username: "ann"},
	}))

	assert.Equal(t, 1, logs.FilterMessage("UserRegistered").Len())
	assert.Equal(t, 1, logs.FilterMessage("sendWelcomeEmailStub").Len())
	assert.Equal(t, 1, logs.FilterMessage("sendWebhookNotificationStub").Len())

	audit := logs.FilterLoggerName("audit").FilterMessage("account event").All()
	require.Len(t, audit, 1)
	assert.Equal(t, "user_registered", audit[0].ContextMap()["event_type"])
}

func TestStartNotificationWorker_AuditsActor(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)
	dispatcher := events.NewInMemoryDispatcher(logger)

	StartNotificationWorker(dispatcher, nil, logger)

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{
		Type:   events.EventUserDeleted,
		UserID: 3,
		Actor:  &domain.Actor{UserID: 1, Username: "admin"},
	}))

	audit := logs.FilterLoggerName("audit").All()
	require.Len(t, audit, 1)
	assert.Equal(t, "admin", audit[0].ContextMap()["actor"])
	assert.Equal(t, int64(1), audit[0].ContextMap()["actor_id"])
}

func TestStartNotificationWorker_NilDispatcher(t *testing.T) {
	assert.NotPanics(t, func() { StartNotificationWorker(nil, nil, zap.NewNop()) })
}
