package app

import (
	"context"
	"testing"
	"time"

	"obcampaign-service/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestShutdownBeforeStart(t *testing.T) {
	srv := NewServer(config.AppConfig{
		AppEnv:      "development",
		HTTPAddr:    "127.0.0.1:0",
		DatabaseURL: "postgres://nobody@127.0.0.1:1/none",
	}, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	done := make(chan error, 1)
	go func() { done <- srv.Start() }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start served after Shutdown")
	}

	assert.NoError(t, srv.Shutdown(ctx))
	assert.Error(t, srv.ctx.Err())
}
