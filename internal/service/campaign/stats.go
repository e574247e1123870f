package campaign

import (
	"context"
	"errors"
	"fmt"

	"obcampaign-service/internal/domain/campaign"
	"obcampaign-service/internal/domain/dialing"
	xerrors "obcampaign-service/internal/pkg/errors"

	"go.uber.org/zap"
)

// GetCampaignStat builds the dialing statistics of a live campaign. A
// campaign without a resolvable plan or destination list has no statistics
// and yields ErrNotFound.
func (s *CampaignService) GetCampaignStat(ctx context.Context, uuid string) (*campaign.Stat, error) {
	c, err := s.GetCampaign(ctx, uuid)
	if err != nil {
		return nil, err
	}
	return s.stat(ctx, c)
}

// GetCampaignStats returns statistics for every live campaign, skipping
// the ones that cannot be computed.
func (s *CampaignService) GetCampaignStats(ctx context.Context) ([]campaign.Stat, error) {
	campaigns, err := s.ListCampaigns(ctx)
	if err != nil {
		return nil, err
	}

	stats := make([]campaign.Stat, 0, len(campaigns))
	for i := range campaigns {
		st, err := s.stat(ctx, &campaigns[i])
		if err != nil {
			s.logger.Debug("skipping campaign stat",
				zap.String("uuid", campaigns[i].UUID),
				zap.Error(err),
			)
			continue
		}
		stats = append(stats, *st)
	}
	return stats, nil
}

func (s *CampaignService) stat(ctx context.Context, c *campaign.Campaign) (*campaign.Stat, error) {
	plan, dlma, err := s.dialingContext(ctx, c)
	if err != nil {
		return nil, err
	}

	st := &campaign.Stat{UUID: c.UUID}
	counters := []struct {
		name  string
		dst   *int64
		count func() (int64, error)
	}{
		{"total", &st.DialTotalCount, func() (int64, error) { return s.dialList.CountTotal(ctx, dlma) }},
		{"finished", &st.DialFinishedCount, func() (int64, error) { return s.dialList.CountFinished(ctx, dlma, plan) }},
		{"available", &st.DialAvailableCount, func() (int64, error) { return s.dialList.CountAvailable(ctx, dlma, plan) }},
		{"dialing", &st.DialDialingCount, func() (int64, error) { return s.dialList.CountDialing(ctx, dlma) }},
		{"tried", &st.DialCalledCount, func() (int64, error) { return s.dialList.CountTried(ctx, dlma) }},
	}
	for _, ctr := range counters {
		n, err := ctr.count()
		if err != nil {
			s.logger.Error("failed to count dial list entries",
				zap.String("uuid", c.UUID),
				zap.String("counter", ctr.name),
				zap.Error(err),
			)
			return nil, xerrors.Store(err, fmt.Sprintf("failed to count %s entries", ctr.name))
		}
		*ctr.dst = n
	}
	return st, nil
}

func (s *CampaignService) dialingContext(ctx context.Context, c *campaign.Campaign) (*dialing.Plan, *dialing.Dlma, error) {
	if c.Plan == nil || *c.Plan == "" {
		return nil, nil, fmt.Errorf("%w: campaign %s has no plan", xerrors.ErrNotFound, c.UUID)
	}
	if c.Dlma == nil || *c.Dlma == "" {
		return nil, nil, fmt.Errorf("%w: campaign %s has no destination list", xerrors.ErrNotFound, c.UUID)
	}

	plan, err := s.plans.FindPlan(ctx, *c.Plan)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: plan %s of campaign %s", xerrors.ErrNotFound, *c.Plan, c.UUID)
		}
		return nil, nil, xerrors.Store(err, "failed to load plan")
	}

	dlma, err := s.dlmas.FindDlma(ctx, *c.Dlma)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: destination list %s of campaign %s", xerrors.ErrNotFound, *c.Dlma, c.UUID)
		}
		return nil, nil, xerrors.Store(err, "failed to load destination list")
	}
	return plan, dlma, nil
}
