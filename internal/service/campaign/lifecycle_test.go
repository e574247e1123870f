package campaign

import (
	"context"
	"errors"
	"testing"

	"obcampaign-service/internal/domain/campaign"
	xerrors "obcampaign-service/internal/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetStatus(t *testing.T) {
	f := newFixture(live("c-1", campaign.StatusStop))

	updated, err := f.svc.SetStatus(context.Background(), "c-1", campaign.StatusStart)
	require.NoError(t, err)
	assert.Equal(t, campaign.StatusStart, updated.Status)
	assert.Equal(t, campaign.StatusStart, f.store.get("c-1").Status)
	assert.Equal(t, []campaign.ChangeKind{campaign.ChangeStatus}, f.notifier.kinds())
}

func TestSetStatusRejectsUnknownStatusWithoutIO(t *testing.T) {
	f := newFixture(live("c-1", campaign.StatusStop))

	_, err := f.svc.SetStatus(context.Background(), "c-1", campaign.Status("running"))
	assert.True(t, errors.Is(err, xerrors.ErrInvalidInput))
	assert.Zero(t, f.store.calls)
	assert.Equal(t, campaign.StatusStop, f.store.get("c-1").Status)
}

func TestSetStatusOnDeletedCampaign(t *testing.T) {
	deleted := live("c-1", campaign.StatusStop)
	deleted.InUse = false
	f := newFixture(deleted)

	_, err := f.svc.SetStatus(context.Background(), "c-1", campaign.StatusStart)
	assert.True(t, errors.Is(err, xerrors.ErrNotFound))
}

func TestRequestTransition(t *testing.T) {
	tests := []struct {
		name   string
		from   campaign.Status
		action campaign.Action
		to     campaign.Status
		verb   string
	}{
		{"start stopped", campaign.StatusStop, campaign.ActionStart, campaign.StatusStarting, "running"},
		{"stop running", campaign.StatusStart, campaign.ActionStop, campaign.StatusStopping, "stopping"},
		{"pause running", campaign.StatusStart, campaign.ActionPause, campaign.StatusPausing, "pausing"},
		{"resume paused", campaign.StatusPause, campaign.ActionResume, campaign.StatusStarting, "running"},
		{"start paused", campaign.StatusPause, campaign.ActionStart, campaign.StatusStarting, "running"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(live("c-1", tt.from))

			req, err := f.svc.RequestTransition(context.Background(), "c-1", tt.action, campaign.ReasonManual)
			require.NoError(t, err)

			assert.NotEmpty(t, req.ID)
			assert.Equal(t, "c-1", req.CampaignUUID)
			assert.Equal(t, tt.from, req.From)
			assert.Equal(t, tt.to, req.To)
			assert.Equal(t, tt.verb, req.Verb)
			assert.Equal(t, campaign.ReasonManual, req.Reason)
			assert.Equal(t, testNow, req.RequestedAt)

			assert.Equal(t, tt.to, f.store.get("c-1").Status)
			require.Len(t, f.publisher.requests, 1)
			assert.Equal(t, req, f.publisher.requests[0])
			assert.Equal(t, []campaign.ChangeKind{campaign.ChangeTransitionRequested}, f.notifier.kinds())
		})
	}
}

func TestRequestTransitionRejectsInvalidTransition(t *testing.T) {
	tests := []struct {
		from   campaign.Status
		action campaign.Action
	}{
		{campaign.StatusStop, campaign.ActionStop},
		{campaign.StatusStop, campaign.ActionPause},
		{campaign.StatusStart, campaign.ActionStart},
		{campaign.StatusStarting, campaign.ActionStop},
		{campaign.StatusStopping, campaign.ActionStart},
		{campaign.StatusPausing, campaign.ActionResume},
		{campaign.StatusPause, campaign.ActionStop},
	}

	for _, tt := range tests {
		f := newFixture(live("c-1", tt.from))

		_, err := f.svc.RequestTransition(context.Background(), "c-1", tt.action, campaign.ReasonManual)
		assert.True(t, errors.Is(err, xerrors.ErrInvalidTransition), "%s on %s", tt.action, tt.from)
		assert.Equal(t, tt.from, f.store.get("c-1").Status)
		assert.Empty(t, f.publisher.requests)
	}
}

func TestRequestTransitionManualStopWithActiveDials(t *testing.T) {
	f := newFixture(live("c-1", campaign.StatusStart))
	f.dialing.active["c-1"] = 3

	_, err := f.svc.RequestTransition(context.Background(), "c-1", campaign.ActionStop, campaign.ReasonManual)
	assert.True(t, errors.Is(err, xerrors.ErrConflict))
	assert.Equal(t, campaign.StatusStart, f.store.get("c-1").Status)
	assert.Empty(t, f.publisher.requests)

	// The schedule does not consult the manual guard.
	req, err := f.svc.RequestTransition(context.Background(), "c-1", campaign.ActionStop, campaign.ReasonSchedule)
	require.NoError(t, err)
	assert.Equal(t, campaign.StatusStopping, req.To)
}

func TestRequestTransitionActiveDialCountFailure(t *testing.T) {
	f := newFixture(live("c-1", campaign.StatusStart))
	f.dialing.failActive = true

	_, err := f.svc.RequestTransition(context.Background(), "c-1", campaign.ActionStop, campaign.ReasonManual)
	assert.True(t, errors.Is(err, xerrors.ErrStore))
	assert.Equal(t, campaign.StatusStart, f.store.get("c-1").Status)
}

func TestRequestTransitionPublishFailureRestoresStatus(t *testing.T) {
	f := newFixture(live("c-1", campaign.StatusStop))
	f.publisher.fail = true

	_, err := f.svc.RequestTransition(context.Background(), "c-1", campaign.ActionStart, campaign.ReasonSchedule)
	assert.True(t, errors.Is(err, xerrors.ErrInternal))
	assert.True(t, errors.Is(err, errBoom))
	assert.Equal(t, campaign.StatusStop, f.store.get("c-1").Status)
	assert.Empty(t, f.notifier.changes)
}

func TestRequestTransitionWithoutPublisher(t *testing.T) {
	f := newFixture(live("c-1", campaign.StatusStop))
	f.svc.publisher = nil

	req, err := f.svc.RequestTransition(context.Background(), "c-1", campaign.ActionStart, campaign.ReasonManual)
	require.NoError(t, err)
	assert.Equal(t, campaign.StatusStarting, req.To)
}

func TestEligibleToStart(t *testing.T) {
	// testNow is Monday 2024-01-01 10:00:00 UTC.
	inWindow := scheduled("c-window", campaign.StatusStop)
	inWindow.ScTimeStart = strp("09:00:00")
	inWindow.ScTimeEnd = strp("18:00:00")
	inWindow.ScDayList = campaign.DayList{1, 2, 3, 4, 5}

	excepted := scheduled("c-except", campaign.StatusStop)
	excepted.ScDateList = campaign.DateList{"2024-01-01"}
	excepted.ScDateListExcept = campaign.DateList{"2024-01-01"}

	included := scheduled("c-include", campaign.StatusStop)
	included.ScTimeStart = strp("20:00:00")
	included.ScDayList = campaign.DayList{0}
	included.ScDateList = campaign.DateList{"2024-01-01"}

	weekend := scheduled("c-weekend", campaign.StatusStop)
	weekend.ScDayList = campaign.DayList{0, 6}

	manual := live("c-manual", campaign.StatusStop)

	running := scheduled("c-running", campaign.StatusStart)

	deleted := scheduled("c-deleted", campaign.StatusStop)
	deleted.InUse = false

	f := newFixture(inWindow, excepted, included, weekend, manual, running, deleted)

	got, err := f.svc.EligibleToStart(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"c-include", "c-window"}, uuidsOf(got))
}

func TestEligibleToStop(t *testing.T) {
	// testNow is Monday 2024-01-01 10:00:00 UTC.
	inWindow := scheduled("c-window", campaign.StatusStart)
	inWindow.ScTimeStart = strp("09:00:00")
	inWindow.ScTimeEnd = strp("18:00:00")

	// Include dates only bypass the start check.
	included := scheduled("c-include", campaign.StatusStart)
	included.ScTimeEnd = strp("09:00:00")
	included.ScDateList = campaign.DateList{"2024-01-01"}

	ended := scheduled("c-ended", campaign.StatusStart)
	ended.ScDateEnd = strp("2023-12-31")

	// Except dates are not consulted when stopping.
	excepted := scheduled("c-except", campaign.StatusStart)
	excepted.ScDateListExcept = campaign.DateList{"2024-01-01"}

	stopped := scheduled("c-stopped", campaign.StatusStop)
	stopped.ScDateEnd = strp("2023-12-31")

	f := newFixture(inWindow, included, ended, excepted, stopped)

	got, err := f.svc.EligibleToStop(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"c-ended", "c-include"}, uuidsOf(got))
}

func TestEligibleStoreFailure(t *testing.T) {
	f := newFixture(scheduled("c-1", campaign.StatusStop))
	f.store.failFind = true

	_, err := f.svc.EligibleToStart(context.Background())
	assert.True(t, errors.Is(err, xerrors.ErrStore))
}

func TestIsManuallyStoppable(t *testing.T) {
	f := newFixture()
	c := live("c-1", campaign.StatusStart)

	ok, err := f.svc.IsManuallyStoppable(context.Background(), c)
	require.NoError(t, err)
	assert.True(t, ok)

	f.dialing.active["c-1"] = 1
	ok, err = f.svc.IsManuallyStoppable(context.Background(), c)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.svc.IsManuallyStoppable(context.Background(), nil)
	assert.True(t, errors.Is(err, xerrors.ErrInvalidInput))

	assert.True(t, f.svc.IsManuallyStartable(c))
	assert.False(t, f.svc.IsManuallyStartable(nil))
}

func uuidsOf(cs []campaign.Campaign) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.UUID)
	}
	return out
}
