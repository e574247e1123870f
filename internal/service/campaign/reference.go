package campaign

import (
	"context"
	"strings"

	"obcampaign-service/internal/domain/campaign"
	xerrors "obcampaign-service/internal/pkg/errors"

	"go.uber.org/zap"
)

// IsReferenced reports whether any live campaign holds id in the kind field.
func (s *CampaignService) IsReferenced(ctx context.Context, kind campaign.RefKind, id string) (bool, error) {
	if err := checkReference(kind, id); err != nil {
		return false, err
	}

	n, err := s.store.Count(ctx, campaign.ByReference(kind, id).Live())
	if err != nil {
		s.logger.Error("could not count referencing campaigns",
			zap.String("kind", string(kind)),
			zap.String("id", id),
			zap.Error(err),
		)
		return false, xerrors.Store(err, "failed to check reference")
	}
	return n > 0, nil
}

// ClearReference unsets id from the kind field of every live campaign and
// returns how many were changed.
func (s *CampaignService) ClearReference(ctx context.Context, kind campaign.RefKind, id string) (int64, error) {
	if err := checkReference(kind, id); err != nil {
		return 0, err
	}

	n, err := s.store.ClearReference(ctx, campaign.Reference{Kind: kind, ID: id}, s.clock.Now())
	if err != nil {
		s.logger.Error("could not clear campaign reference",
			zap.String("kind", string(kind)),
			zap.String("id", id),
			zap.Error(err),
		)
		return 0, xerrors.Store(err, "failed to clear reference")
	}

	if n > 0 {
		s.logger.Info("campaign reference cleared",
			zap.String("kind", string(kind)),
			zap.String("id", id),
			zap.Int64("campaigns", n),
		)
	}
	return n, nil
}

func checkReference(kind campaign.RefKind, id string) error {
	if !kind.Valid() {
		return xerrors.Invalid("unknown reference kind %q", kind)
	}
	if strings.TrimSpace(id) == "" {
		return xerrors.Invalid("%s id is required", kind)
	}
	return nil
}

func (s *CampaignService) IsPlanReferenced(ctx context.Context, planID string) (bool, error) {
	return s.IsReferenced(ctx, campaign.RefPlan, planID)
}

func (s *CampaignService) IsDlmaReferenced(ctx context.Context, dlmaID string) (bool, error) {
	return s.IsReferenced(ctx, campaign.RefDlma, dlmaID)
}

func (s *CampaignService) IsDestReferenced(ctx context.Context, destID string) (bool, error) {
	return s.IsReferenced(ctx, campaign.RefDest, destID)
}

func (s *CampaignService) ClearPlan(ctx context.Context, planID string) (int64, error) {
	return s.ClearReference(ctx, campaign.RefPlan, planID)
}

func (s *CampaignService) ClearDlma(ctx context.Context, dlmaID string) (int64, error) {
	return s.ClearReference(ctx, campaign.RefDlma, dlmaID)
}

func (s *CampaignService) ClearDest(ctx context.Context, destID string) (int64, error) {
	return s.ClearReference(ctx, campaign.RefDest, destID)
}
