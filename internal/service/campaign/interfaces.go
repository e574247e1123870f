package campaign

import (
	"context"
	"time"

	"obcampaign-service/internal/domain/campaign"
	"obcampaign-service/internal/domain/dialing"
)

// CampaignStore persists campaign snapshots. Lookups that match nothing
// return xerrors.ErrNotFound.
type CampaignStore interface {
	Insert(ctx context.Context, c *campaign.Campaign) error
	FindOne(ctx context.Context, filter campaign.Filter) (*campaign.Campaign, error)
	FindMany(ctx context.Context, filter campaign.Filter) ([]campaign.Campaign, error)
	FindUUIDs(ctx context.Context, filter campaign.Filter) ([]string, error)
	FindRandom(ctx context.Context, filter campaign.Filter) (*campaign.Campaign, error)
	Count(ctx context.Context, filter campaign.Filter) (int64, error)
	// Update writes the full snapshot of a live campaign.
	Update(ctx context.Context, c *campaign.Campaign) error
	SoftDelete(ctx context.Context, uuid string, at time.Time) error
	// ClearReference unsets the reference on every live campaign holding it
	// and stamps tm_update with at.
	ClearReference(ctx context.Context, ref campaign.Reference, at time.Time) (int64, error)
}

type PlanLookup interface {
	FindPlan(ctx context.Context, uuid string) (*dialing.Plan, error)
}

type DlmaLookup interface {
	FindDlma(ctx context.Context, uuid string) (*dialing.Dlma, error)
}

// DialListCounter aggregates the destination entries of a destination list.
type DialListCounter interface {
	CountTotal(ctx context.Context, dlma *dialing.Dlma) (int64, error)
	CountFinished(ctx context.Context, dlma *dialing.Dlma, plan *dialing.Plan) (int64, error)
	CountAvailable(ctx context.Context, dlma *dialing.Dlma, plan *dialing.Plan) (int64, error)
	CountDialing(ctx context.Context, dlma *dialing.Dlma) (int64, error)
	CountTried(ctx context.Context, dlma *dialing.Dlma) (int64, error)
}

// DialingCounter reports in-flight dial attempts of a campaign.
type DialingCounter interface {
	ActiveDialCount(ctx context.Context, campaignUUID string) (int64, error)
}

// TransitionPublisher hands a transition request to the executor.
type TransitionPublisher interface {
	PublishTransition(ctx context.Context, req *campaign.TransitionRequest) error
}

// ChangeNotifier fans campaign changes out to connected operators.
type ChangeNotifier interface {
	NotifyCampaignChange(change *campaign.Change)
}
