// internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"time"

	"obcampaign-service/internal/domain/campaign"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const LockKey = "obcampaign:scheduler:tick"

var (
	schedulerTicks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "obcampaign_scheduler_ticks_total",
			Help: "Scheduler ticks by outcome",
		},
		[]string{"result"},
	)

	schedulerEligible = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "obcampaign_scheduler_eligible_total",
			Help: "Campaigns found eligible by the schedule evaluator",
		},
		[]string{"action"},
	)

	transitionRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "obcampaign_transition_requests_total",
			Help: "Transition requests issued by the scheduler",
		},
		[]string{"action", "result"},
	)
)

// Campaigns is the part of the campaign service the scheduler drives.
type Campaigns interface {
	EligibleToStart(ctx context.Context) ([]campaign.Campaign, error)
	EligibleToStop(ctx context.Context) ([]campaign.Campaign, error)
	RequestTransition(ctx context.Context, uuid string, action campaign.Action, reason string) (*campaign.TransitionRequest, error)
}

// Locker grants at most one holder per key for ttl.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type Config struct {
	Interval time.Duration
	LockTTL  time.Duration
}

// Result counts what one tick did.
type Result struct {
	Skipped bool
	Started int
	Stopped int
	Failed  int
}

type Scheduler struct {
	campaigns Campaigns
	locker    Locker
	cfg       Config
	logger    *zap.Logger
}

// New returns a scheduler. A nil locker runs every tick.
func New(campaigns Campaigns, locker Locker, cfg Config, logger *zap.Logger) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.LockTTL <= 0 || cfg.LockTTL > cfg.Interval {
		cfg.LockTTL = cfg.Interval * 9 / 10
	}
	return &Scheduler{campaigns: campaigns, locker: locker, cfg: cfg, logger: logger}
}

// Run ticks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("campaign scheduler started", zap.Duration("interval", s.cfg.Interval))

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := s.Tick(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("scheduler tick failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			s.logger.Info("campaign scheduler stopped")
			return
		case <-ticker.C:
		}
	}
}

// Tick requests a start for every campaign whose schedule opened and a stop
// for every campaign whose schedule closed.
func (s *Scheduler) Tick(ctx context.Context) (Result, error) {
	var res Result

	if s.locker != nil {
		ok, err := s.locker.TryLock(ctx, LockKey, s.cfg.LockTTL)
		if err != nil {
			schedulerTicks.WithLabelValues("error").Inc()
			return res, err
		}
		if !ok {
			schedulerTicks.WithLabelValues("skipped").Inc()
			s.logger.Debug("scheduler tick held by another replica")
			res.Skipped = true
			return res, nil
		}
	}

	starts, err := s.campaigns.EligibleToStart(ctx)
	if err != nil {
		schedulerTicks.WithLabelValues("error").Inc()
		return res, err
	}
	res.Started, res.Failed = s.request(ctx, starts, campaign.ActionStart)

	stops, err := s.campaigns.EligibleToStop(ctx)
	if err != nil {
		schedulerTicks.WithLabelValues("error").Inc()
		return res, err
	}
	stopped, failed := s.request(ctx, stops, campaign.ActionStop)
	res.Stopped = stopped
	res.Failed += failed

	schedulerTicks.WithLabelValues("run").Inc()
	if res.Started+res.Stopped+res.Failed > 0 {
		s.logger.Info("scheduler tick done",
			zap.Int("started", res.Started),
			zap.Int("stopped", res.Stopped),
			zap.Int("failed", res.Failed),
		)
	}
	return res, nil
}

func (s *Scheduler) request(ctx context.Context, campaigns []campaign.Campaign, action campaign.Action) (int, int) {
	schedulerEligible.WithLabelValues(string(action)).Add(float64(len(campaigns)))

	var ok, failed int
	for _, c := range campaigns {
		if _, err := s.campaigns.RequestTransition(ctx, c.UUID, action, campaign.ReasonSchedule); err != nil {
			transitionRequests.WithLabelValues(string(action), "error").Inc()
			s.logger.Warn("scheduled transition failed",
				zap.String("uuid", c.UUID),
				zap.String("action", string(action)),
				zap.Error(err),
			)
			failed++
			continue
		}
		transitionRequests.WithLabelValues(string(action), "ok").Inc()
		ok++
	}
	return ok, failed
}
