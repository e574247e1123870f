package campaign

import (
	"context"
	"fmt"

	"obcampaign-service/internal/domain/campaign"
	xerrors "obcampaign-service/internal/pkg/errors"
	"obcampaign-service/internal/pkg/ids"

	"go.uber.org/zap"
)

// SetStatus writes status directly. Callers outside the executor should use
// RequestTransition.
func (s *CampaignService) SetStatus(ctx context.Context, uuid string, status campaign.Status) (*campaign.Campaign, error) {
	if !status.Valid() {
		return nil, xerrors.Invalid("unknown campaign status %q", status)
	}

	c, err := s.GetCampaign(ctx, uuid)
	if err != nil {
		return nil, err
	}

	prev := c.Status
	c.Status = status
	updated, err := s.save(ctx, c)
	if err != nil {
		return nil, err
	}

	s.logger.Info("campaign status changed",
		zap.String("uuid", uuid),
		zap.String("from", string(prev)),
		zap.String("to", string(status)),
		zap.String("verb", status.Verb()),
	)
	s.notify(campaign.ChangeStatus, updated)
	return updated, nil
}

// RequestTransition records the transitional marker for action and hands
// the request to the executor. If the hand-off fails the previous status is
// restored.
func (s *CampaignService) RequestTransition(ctx context.Context, uuid string, action campaign.Action, reason string) (*campaign.TransitionRequest, error) {
	c, err := s.GetCampaign(ctx, uuid)
	if err != nil {
		return nil, err
	}

	to, err := campaign.RequestTransition(c.Status, action)
	if err != nil {
		return nil, err
	}

	if reason == campaign.ReasonManual {
		if err := s.guardManual(ctx, c, action); err != nil {
			return nil, err
		}
	}

	from := c.Status
	c.Status = to
	if _, err := s.save(ctx, c); err != nil {
		return nil, err
	}

	req := &campaign.TransitionRequest{
		ID:           ids.ULID(),
		CampaignUUID: uuid,
		Action:       action,
		From:         from,
		To:           to,
		Verb:         to.Verb(),
		Reason:       reason,
		RequestedAt:  s.clock.Now(),
	}

	if s.publisher != nil {
		if err := s.publisher.PublishTransition(ctx, req); err != nil {
			s.logger.Error("failed to publish transition",
				zap.String("uuid", uuid),
				zap.String("action", string(action)),
				zap.Error(err),
			)
			s.restoreStatus(ctx, uuid, from)
			return nil, fmt.Errorf("failed to publish transition: %w: %w", xerrors.ErrInternal, err)
		}
	}

	s.logger.Info("campaign transition requested",
		zap.String("uuid", uuid),
		zap.String("id", req.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("verb", req.Verb),
		zap.String("reason", reason),
	)
	s.notifyTransition(c, req)
	return req, nil
}

// EligibleToStart returns the stopped, scheduled campaigns whose schedule
// admits the current moment.
func (s *CampaignService) EligibleToStart(ctx context.Context) ([]campaign.Campaign, error) {
	return s.eligible(ctx, campaign.StatusStop, campaign.IsStartable)
}

// EligibleToStop returns the running, scheduled campaigns whose schedule no
// longer admits the current moment.
func (s *CampaignService) EligibleToStop(ctx context.Context) ([]campaign.Campaign, error) {
	return s.eligible(ctx, campaign.StatusStart, campaign.IsStoppable)
}

// IsManuallyStartable always admits a manual start.
func (s *CampaignService) IsManuallyStartable(c *campaign.Campaign) bool {
	return c != nil
}

// IsManuallyStoppable reports whether c has no dial attempts in flight.
func (s *CampaignService) IsManuallyStoppable(ctx context.Context, c *campaign.Campaign) (bool, error) {
	if c == nil {
		return false, xerrors.Invalid("campaign is required")
	}

	n, err := s.dialing.ActiveDialCount(ctx, c.UUID)
	if err != nil {
		s.logger.Error("could not count active dialings", zap.String("uuid", c.UUID), zap.Error(err))
		return false, xerrors.Store(err, "failed to count active dialings")
	}
	return n == 0, nil
}

func (s *CampaignService) eligible(
	ctx context.Context,
	status campaign.Status,
	admit func(*campaign.Campaign, campaign.Moment) bool,
) ([]campaign.Campaign, error) {
	uuids, err := s.store.FindUUIDs(ctx, campaign.ByStatusSchedule(status, campaign.ScheduleOn).Live())
	if err != nil {
		return nil, xerrors.Store(err, "failed to list scheduled campaigns")
	}

	now := campaign.MomentOf(s.clock.Now())
	var out []campaign.Campaign
	for _, c := range s.resolve(ctx, uuids) {
		if c.Status != status || c.ScheduleMode != campaign.ScheduleOn {
			continue
		}
		if admit(&c, now) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *CampaignService) guardManual(ctx context.Context, c *campaign.Campaign, action campaign.Action) error {
	switch action {
	case campaign.ActionStart, campaign.ActionResume:
		if !s.IsManuallyStartable(c) {
			return fmt.Errorf("%w: campaign cannot be started", xerrors.ErrConflict)
		}
	case campaign.ActionStop:
		ok, err := s.IsManuallyStoppable(ctx, c)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: campaign has dial attempts in progress", xerrors.ErrConflict)
		}
	}
	return nil
}

func (s *CampaignService) restoreStatus(ctx context.Context, uuid string, status campaign.Status) {
	c, err := s.store.FindOne(ctx, campaign.ByUUID(uuid).Live())
	if err != nil {
		s.logger.Error("could not reload campaign to restore status", zap.String("uuid", uuid), zap.Error(err))
		return
	}
	c.Status = status
	if _, err := s.save(ctx, c); err != nil {
		s.logger.Error("could not restore campaign status",
			zap.String("uuid", uuid),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}

func (s *CampaignService) notifyTransition(c *campaign.Campaign, req *campaign.TransitionRequest) {
	if s.notifier == nil {
		return
	}
	s.notifier.NotifyCampaignChange(&campaign.Change{
		Kind:     campaign.ChangeTransitionRequested,
		UUID:     c.UUID,
		Status:   req.To,
		Campaign: c,
		At:       req.RequestedAt,
	})
}
