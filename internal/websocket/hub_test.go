package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"docchat-client/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(nil, logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func connect(t *testing.T, hub *Hub, tabID string, buffer int) *Client {
	t.Helper()
	client := &Client{Hub: hub, TabID: tabID, Send: make(chan []byte, buffer)}
	hub.register <- client
	require.Eventually(t, func() bool { return hub.Connected(tabID) }, time.Second, 5*time.Millisecond)
	return client
}

func TestSendReachesOnlyTheAddressedTab(t *testing.T) {
	hub := startHub(t)
	a := connect(t, hub, "tab-a", 4)
	b := connect(t, hub, "tab-b", 4)

	hub.Send("tab-a", map[string]string{"type": "notification"})

	select {
	case data := <-a.Send:
		var frame map[string]string
		require.NoError(t, json.Unmarshal(data, &frame))
		assert.Equal(t, "notification", frame["type"])
	case <-time.After(time.Second):
		t.Fatal("tab-a received nothing")
	}
	assert.Empty(t, b.Send)
}

func TestSendReachesEveryConnectionOfATab(t *testing.T) {
	hub := startHub(t)
	first := connect(t, hub, "tab-a", 4)
	second := connect(t, hub, "tab-a", 4)

	hub.Send("tab-a", "ping")

	assert.Len(t, first.Send, 1)
	assert.Len(t, second.Send, 1)
}

func TestUnregisterClosesClientChannel(t *testing.T) {
	hub := startHub(t)
	client := connect(t, hub, "tab-a", 1)

	hub.unregister <- client

	require.Eventually(t, func() bool { return !hub.Connected("tab-a") }, time.Second, 5*time.Millisecond)
	_, open := <-client.Send
	assert.False(t, open)
}

func TestFullBufferDropsClient(t *testing.T) {
	hub := startHub(t)
	connect(t, hub, "tab-a", 1)

	hub.Send("tab-a", "one")
	hub.Send("tab-a", "two")

	require.Eventually(t, func() bool { return !hub.Connected("tab-a") }, time.Second, 5*time.Millisecond)
}

func TestSendToUnknownTabIsIgnored(t *testing.T) {
	hub := startHub(t)

	assert.NotPanics(t, func() { hub.Send("nobody", "hello") })
}

func TestSendDuringDisconnectDoesNotPanic(t *testing.T) {
	hub := startHub(t)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					hub.Send("tab-a", "tick")
				}
			}
		}()
	}

	assert.NotPanics(t, func() {
		for i := 0; i < 2000; i++ {
			client := &Client{Hub: hub, TabID: "tab-a", Send: make(chan []byte, 1)}
			hub.register <- client
			hub.unregister <- client
		}
	})
	close(stop)
	wg.Wait()
}

func TestClusterFrameFromThisInstanceIsSkipped(t *testing.T) {
	hub := startHub(t)
	client := connect(t, hub, "tab-a", 4)

	own, err := json.Marshal(clusterFrame{Origin: hub.instanceID, TargetTabID: "tab-a", Message: json.RawMessage(`"mine"`)})
	require.NoError(t, err)
	hub.handleClusterMessage(string(own))
	assert.Empty(t, client.Send)

	other, err := json.Marshal(clusterFrame{Origin: "other-instance", TargetTabID: "tab-a", Message: json.RawMessage(`"theirs"`)})
	require.NoError(t, err)
	hub.handleClusterMessage(string(other))
	require.Len(t, client.Send, 1)
	assert.JSONEq(t, `"theirs"`, string(<-client.Send))
}

func TestMalformedClusterFrameIsIgnored(t *testing.T) {
	hub := startHub(t)
	client := connect(t, hub, "tab-a", 4)

	hub.handleClusterMessage("{not json")
	assert.Empty(t, client.Send)
}
