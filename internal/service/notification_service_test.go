package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"docchat-client/internal/constant"
	"docchat-client/internal/pkg/logger"
	"docchat-client/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentFrame struct {
	tabID string
	frame NotificationFrame
}

type recordingDelivery struct {
	mu   sync.Mutex
	sent []sentFrame
}

func (d *recordingDelivery) Send(tabID string, frame interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, sentFrame{tabID: tabID, frame: frame.(NotificationFrame)})
}

func (d *recordingDelivery) frames() []sentFrame {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]sentFrame(nil), d.sent...)
}

func TestNotificationServiceRelaysTabEvents(t *testing.T) {
	bus := events.NewBus()
	t.Cleanup(func() { _ = bus.Close() })
	delivery := &recordingDelivery{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, NewNotificationService(bus, delivery, logger.NewNopLogger()).Start(ctx))

	require.NoError(t, bus.Publish(ctx, events.NewNotification("tab-1", constant.NotificationLevelWarning, "Still indexing")))
	require.NoError(t, bus.Publish(ctx, events.BaseEvent{Type: "system.tick", Data: map[string]interface{}{}}))

	require.Eventually(t, func() bool { return len(delivery.frames()) == 1 }, time.Second, 5*time.Millisecond)

	got := delivery.frames()[0]
	assert.Equal(t, "tab-1", got.tabID)
	assert.Equal(t, constant.EventNotification, got.frame.Type)
	assert.Equal(t, "Still indexing", got.frame.Data["message"])
	assert.Equal(t, constant.NotificationLevelWarning, got.frame.Data["level"])
}
