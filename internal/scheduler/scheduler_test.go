package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"obcampaign-service/internal/domain/campaign"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type request struct {
	uuid   string
	action campaign.Action
	reason string
}

type fakeCampaigns struct {
	mu        sync.Mutex
	starts    []campaign.Campaign
	stops     []campaign.Campaign
	startErr  error
	failFor   map[string]bool
	requested []request
}

func (f *fakeCampaigns) EligibleToStart(ctx context.Context) ([]campaign.Campaign, error) {
	return f.starts, f.startErr
}

func (f *fakeCampaigns) EligibleToStop(ctx context.Context) ([]campaign.Campaign, error) {
	return f.stops, nil
}

func (f *fakeCampaigns) RequestTransition(ctx context.Context, uuid string, action campaign.Action, reason string) (*campaign.TransitionRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requested = append(f.requested, request{uuid, action, reason})
	if f.failFor[uuid] {
		return nil, errors.New("publish failed")
	}
	return &campaign.TransitionRequest{CampaignUUID: uuid, Action: action, Reason: reason}, nil
}

type fakeLocker struct {
	held bool
	err  error
	keys []string
	ttls []time.Duration
}

func (l *fakeLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	l.keys = append(l.keys, key)
	l.ttls = append(l.ttls, ttl)
	if l.err != nil {
		return false, l.err
	}
	return !l.held, nil
}

func campaigns(uuids ...string) []campaign.Campaign {
	out := make([]campaign.Campaign, 0, len(uuids))
	for _, u := range uuids {
		out = append(out, campaign.Campaign{UUID: u})
	}
	return out
}

func TestTick(t *testing.T) {
	fc := &fakeCampaigns{
		starts:  campaigns("a", "b"),
		stops:   campaigns("c", "d"),
		failFor: map[string]bool{"d": true},
	}
	locker := &fakeLocker{}
	s := New(fc, locker, Config{Interval: time.Second}, zap.NewNop())

	res, err := s.Tick(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Result{Started: 2, Stopped: 1, Failed: 1}, res)
	assert.Equal(t, []request{
		{"a", campaign.ActionStart, campaign.ReasonSchedule},
		{"b", campaign.ActionStart, campaign.ReasonSchedule},
		{"c", campaign.ActionStop, campaign.ReasonSchedule},
		{"d", campaign.ActionStop, campaign.ReasonSchedule},
	}, fc.requested)
	assert.Equal(t, []string{LockKey}, locker.keys)
	assert.Equal(t, []time.Duration{900 * time.Millisecond}, locker.ttls)
}

func TestTickSkippedWhenLockHeld(t *testing.T) {
	fc := &fakeCampaigns{starts: campaigns("a")}
	s := New(fc, &fakeLocker{held: true}, Config{}, zap.NewNop())

	res, err := s.Tick(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Empty(t, fc.requested)
}

func TestTickLockError(t *testing.T) {
	fc := &fakeCampaigns{starts: campaigns("a")}
	s := New(fc, &fakeLocker{err: errors.New("redis down")}, Config{}, zap.NewNop())

	_, err := s.Tick(context.Background())
	assert.Error(t, err)
	assert.Empty(t, fc.requested)
}

func TestTickWithoutLocker(t *testing.T) {
	fc := &fakeCampaigns{stops: campaigns("a")}
	s := New(fc, nil, Config{}, zap.NewNop())

	res, err := s.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Stopped: 1}, res)
}

func TestTickEvaluationError(t *testing.T) {
	fc := &fakeCampaigns{startErr: errors.New("store down"), stops: campaigns("a")}
	s := New(fc, nil, Config{}, zap.NewNop())

	_, err := s.Tick(context.Background())
	assert.Error(t, err)
	assert.Empty(t, fc.requested)
}

func TestNewDefaults(t *testing.T) {
	s := New(&fakeCampaigns{}, nil, Config{}, zap.NewNop())
	assert.Equal(t, 10*time.Second, s.cfg.Interval)
	assert.Equal(t, 9*time.Second, s.cfg.LockTTL)

	s = New(&fakeCampaigns{}, nil, Config{Interval: time.Minute, LockTTL: 2 * time.Minute}, zap.NewNop())
	assert.Equal(t, 54*time.Second, s.cfg.LockTTL)

	s = New(&fakeCampaigns{}, nil, Config{Interval: time.Minute, LockTTL: 30 * time.Second}, zap.NewNop())
	assert.Equal(t, 30*time.Second, s.cfg.LockTTL)
}

func TestRunStopsOnCancel(t *testing.T) {
	fc := &fakeCampaigns{}
	s := New(fc, nil, Config{Interval: time.Hour}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
