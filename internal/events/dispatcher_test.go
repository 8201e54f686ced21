package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestDispatcher_DeliversToSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher(zap.NewNop())

	var got []string
	d.Subscribe(EventUserRegistered, func(_ context.Context, e Event) error {
		got = append(got, "first:"+string(e.Type))
		return errors.New("handler failure")
	})
	d.Subscribe(EventUserRegistered, func(_ context.Context, e Event) error {
		got = append(got, "second:"+string(e.Type))
		return nil
	})
	d.Subscribe(EventUserDeleted, func(context.Context, Event) error {
		got = append(got, "unrelated")
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventUserRegistered, UserID: 1}))
	assert.Equal(t, []string{"first:user_registered", "second:user_registered"}, got)
}

func TestDispatcher_NoSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	require.NoError(t, d.Publish(context.Background(), Event{Type: EventUserLoggedIn}))
}

func TestDispatcher_PanickingHandlerIsIsolated(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	d := NewInMemoryDispatcher(zap.New(core))

	delivered := false
	d.Subscribe(EventUserDeleted, func(context.Context, Event) error {
		panic("webhook client exploded")
	})
	d.Subscribe(EventUserDeleted, func(context.Context, Event) error {
		delivered = true
		return nil
	})

	require.NotPanics(t, func() {
		require.NoError(t, d.Publish(context.Background(), Event{ID: "evt-9", Type: EventUserDeleted, UserID: 2}))
	})
	assert.True(t, delivered)

	entries := logs.FilterMessage("event handler failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "evt-9", entries[0].ContextMap()["event_id"])
	assert.Contains(t, entries[0].ContextMap()["error"], "webhook client exploded")
}
