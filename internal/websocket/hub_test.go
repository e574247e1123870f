package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func runHub(t *testing.T) (*Hub, context.CancelFunc, <-chan struct{}) {
	t.Helper()
	hub := NewHub(nil, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	return hub, cancel, stopped
}

func TestHubReleasesClientsAfterShutdown(t *testing.T) {
	hub, cancel, stopped := runHub(t)

	auth, err := hub.AuthenticateClient("")
	require.NoError(t, err)
	client := NewClient(hub, nil, auth)

	require.True(t, hub.Register(client))
	assert.Eventually(t, func() bool { return hub.TotalClients() == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
	assert.Zero(t, hub.TotalClients())

	left := make(chan struct{})
	go func() {
		hub.leave(client)
		close(left)
	}()
	select {
	case <-left:
	case <-time.After(time.Second):
		t.Fatal("leave blocked after shutdown")
	}

	assert.False(t, hub.Register(NewClient(hub, nil, auth)))
}

func TestHubUnregistersWhileRunning(t *testing.T) {
	hub, cancel, _ := runHub(t)
	defer cancel()

	auth, err := hub.AuthenticateClient("")
	require.NoError(t, err)
	client := NewClient(hub, nil, auth)

	require.True(t, hub.Register(client))
	hub.leave(client)
	assert.Eventually(t, func() bool { return hub.TotalClients() == 0 }, time.Second, 10*time.Millisecond)
}
