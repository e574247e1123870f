// internal/service/campaign/campaign.go
package campaign

import (
	"context"
	"errors"
	"strings"

	"obcampaign-service/internal/domain/campaign"
	"obcampaign-service/internal/pkg/clock"
	xerrors "obcampaign-service/internal/pkg/errors"
	"obcampaign-service/internal/pkg/ids"

	"go.uber.org/zap"
)

// Deps are the collaborators of CampaignService. Store is required; the
// lookups are required for statistics and the manual stop guard.
// Publisher and Notifier are optional.
type Deps struct {
	Store     CampaignStore
	Plans     PlanLookup
	Dlmas     DlmaLookup
	DialList  DialListCounter
	Dialing   DialingCounter
	Publisher TransitionPublisher
	Notifier  ChangeNotifier
	Clock     clock.Clock
	IDs       ids.Generator
}

type CampaignService struct {
	store     CampaignStore
	plans     PlanLookup
	dlmas     DlmaLookup
	dialList  DialListCounter
	dialing   DialingCounter
	publisher TransitionPublisher
	notifier  ChangeNotifier
	clock     clock.Clock
	ids       ids.Generator
	logger    *zap.Logger
}

func NewCampaignService(deps Deps, logger *zap.Logger) *CampaignService {
	if deps.Clock == nil {
		deps.Clock = clock.System{}
	}
	if deps.IDs == nil {
		deps.IDs = ids.UUID{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CampaignService{
		store:     deps.Store,
		plans:     deps.Plans,
		dlmas:     deps.Dlmas,
		dialList:  deps.DialList,
		dialing:   deps.Dialing,
		publisher: deps.Publisher,
		notifier:  deps.Notifier,
		clock:     deps.Clock,
		ids:       deps.IDs,
		logger:    logger,
	}
}

// ========== Record Operations ==========

// CreateCampaign overlays req on the default snapshot and stores it under a
// fresh uuid.
func (s *CampaignService) CreateCampaign(ctx context.Context, req *campaign.CampaignRequest) (*campaign.Campaign, error) {
	if err := s.ValidateCampaign(req); err != nil {
		return nil, err
	}

	c := campaign.Default()
	if err := req.ApplyTo(c); err != nil {
		return nil, err
	}
	c.UUID = s.ids.NewID()
	c.TmCreate = s.clock.Now()
	c.InUse = true

	if err := s.store.Insert(ctx, c); err != nil {
		s.logger.Error("failed to create campaign", zap.String("uuid", c.UUID), zap.Error(err))
		return nil, xerrors.Store(err, "failed to create campaign")
	}

	s.logger.Info("campaign created",
		zap.String("uuid", c.UUID),
		zap.Stringp("name", c.Name),
	)

	created, err := s.store.FindOne(ctx, campaign.ByUUID(c.UUID).Live())
	if err != nil {
		s.logger.Error("could not read back created campaign", zap.String("uuid", c.UUID), zap.Error(err))
		return nil, s.lookupError(err, "failed to read created campaign")
	}

	s.notify(campaign.ChangeCreated, created)
	return created, nil
}

// GetCampaign returns a live campaign.
func (s *CampaignService) GetCampaign(ctx context.Context, uuid string) (*campaign.Campaign, error) {
	if err := requireUUID(uuid); err != nil {
		return nil, err
	}

	c, err := s.store.FindOne(ctx, campaign.ByUUID(uuid).Live())
	if err != nil {
		return nil, s.lookupError(err, "failed to get campaign")
	}
	return c, nil
}

// GetDeletedCampaign returns a soft deleted campaign.
func (s *CampaignService) GetDeletedCampaign(ctx context.Context, uuid string) (*campaign.Campaign, error) {
	if err := requireUUID(uuid); err != nil {
		return nil, err
	}

	c, err := s.store.FindOne(ctx, campaign.ByUUID(uuid).Deleted())
	if err != nil {
		return nil, s.lookupError(err, "failed to get deleted campaign")
	}
	return c, nil
}

func (s *CampaignService) ListCampaigns(ctx context.Context) ([]campaign.Campaign, error) {
	campaigns, err := s.store.FindMany(ctx, campaign.Filter{}.Live())
	if err != nil {
		return nil, xerrors.Store(err, "failed to list campaigns")
	}
	return campaigns, nil
}

func (s *CampaignService) ListCampaignUUIDs(ctx context.Context) ([]string, error) {
	uuids, err := s.store.FindUUIDs(ctx, campaign.Filter{}.Live())
	if err != nil {
		return nil, xerrors.Store(err, "failed to list campaign uuids")
	}
	return uuids, nil
}

// ListCampaignsByStatus resolves every live campaign in status. Entries
// that disappear between the two lookups are skipped.
func (s *CampaignService) ListCampaignsByStatus(ctx context.Context, status campaign.Status) ([]campaign.Campaign, error) {
	if !status.Valid() {
		return nil, xerrors.Invalid("unknown campaign status %q", status)
	}

	uuids, err := s.store.FindUUIDs(ctx, campaign.ByStatus(status).Live())
	if err != nil {
		return nil, xerrors.Store(err, "failed to list campaigns by status")
	}
	return s.resolve(ctx, uuids), nil
}

// PickCampaignForDialing returns one random running campaign.
func (s *CampaignService) PickCampaignForDialing(ctx context.Context) (*campaign.Campaign, error) {
	c, err := s.store.FindRandom(ctx, campaign.ByStatus(campaign.StatusStart).Live())
	if err != nil {
		return nil, s.lookupError(err, "failed to pick campaign for dialing")
	}
	return c, nil
}

// DeleteCampaign soft deletes a live campaign and returns the deleted record.
func (s *CampaignService) DeleteCampaign(ctx context.Context, uuid string) (*campaign.Campaign, error) {
	if err := requireUUID(uuid); err != nil {
		return nil, err
	}

	if err := s.store.SoftDelete(ctx, uuid, s.clock.Now()); err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, err
		}
		s.logger.Warn("could not delete campaign", zap.String("uuid", uuid), zap.Error(err))
		return nil, xerrors.Store(err, "failed to delete campaign")
	}

	deleted, err := s.GetDeletedCampaign(ctx, uuid)
	if err != nil {
		s.logger.Error("could not get deleted campaign", zap.String("uuid", uuid), zap.Error(err))
		return nil, err
	}

	s.logger.Info("campaign deleted", zap.String("uuid", uuid))
	s.notify(campaign.ChangeDeleted, deleted)
	return deleted, nil
}

// UpdateCampaign writes the full snapshot c. Deleted campaigns are not updated.
func (s *CampaignService) UpdateCampaign(ctx context.Context, c *campaign.Campaign) (*campaign.Campaign, error) {
	updated, err := s.save(ctx, c)
	if err != nil {
		return nil, err
	}
	s.notify(campaign.ChangeUpdated, updated)
	return updated, nil
}

// PatchCampaign overlays req on the stored snapshot and writes it back.
func (s *CampaignService) PatchCampaign(ctx context.Context, uuid string, req *campaign.CampaignRequest) (*campaign.Campaign, error) {
	if err := s.ValidateCampaign(req); err != nil {
		return nil, err
	}

	c, err := s.GetCampaign(ctx, uuid)
	if err != nil {
		return nil, err
	}
	if err := req.ApplyTo(c); err != nil {
		return nil, err
	}
	return s.UpdateCampaign(ctx, c)
}

// ValidateCampaign is the validate-on-write check applied to caller input.
func (s *CampaignService) ValidateCampaign(req *campaign.CampaignRequest) error {
	if err := req.Validate(); err != nil {
		s.logger.Info("rejected campaign input", zap.Error(err))
		return err
	}
	return nil
}

// CampaignExists reports whether a live campaign with uuid exists.
func (s *CampaignService) CampaignExists(ctx context.Context, uuid string) (bool, error) {
	if err := requireUUID(uuid); err != nil {
		return false, err
	}

	n, err := s.store.Count(ctx, campaign.ByUUID(uuid).Live())
	if err != nil {
		s.logger.Error("could not count campaign", zap.String("uuid", uuid), zap.Error(err))
		return false, xerrors.Store(err, "failed to check campaign existence")
	}
	return n > 0, nil
}

// ========== Helper Methods ==========

func (s *CampaignService) save(ctx context.Context, c *campaign.Campaign) (*campaign.Campaign, error) {
	if c == nil {
		return nil, xerrors.Invalid("campaign is required")
	}
	if err := requireUUID(c.UUID); err != nil {
		return nil, err
	}
	if !c.Status.Valid() {
		return nil, xerrors.Invalid("unknown campaign status %q", c.Status)
	}
	if c.Variables == nil {
		c.Variables = map[string]interface{}{}
	}

	now := s.clock.Now()
	c.TmUpdate = &now

	if err := s.store.Update(ctx, c); err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, err
		}
		s.logger.Error("failed to update campaign", zap.String("uuid", c.UUID), zap.Error(err))
		return nil, xerrors.Store(err, "failed to update campaign")
	}

	updated, err := s.store.FindOne(ctx, campaign.ByUUID(c.UUID).Live())
	if err != nil {
		s.logger.Warn("could not get updated campaign", zap.String("uuid", c.UUID), zap.Error(err))
		return nil, s.lookupError(err, "failed to read updated campaign")
	}
	return updated, nil
}

// resolve loads each uuid, skipping the ones that no longer resolve.
func (s *CampaignService) resolve(ctx context.Context, uuids []string) []campaign.Campaign {
	out := make([]campaign.Campaign, 0, len(uuids))
	for _, uuid := range uuids {
		if uuid == "" {
			continue
		}
		c, err := s.store.FindOne(ctx, campaign.ByUUID(uuid).Live())
		if err != nil {
			s.logger.Debug("skipping unresolved campaign", zap.String("uuid", uuid), zap.Error(err))
			continue
		}
		out = append(out, *c)
	}
	return out
}

func (s *CampaignService) notify(kind campaign.ChangeKind, c *campaign.Campaign) {
	if s.notifier == nil || c == nil {
		return
	}
	s.notifier.NotifyCampaignChange(&campaign.Change{
		Kind:     kind,
		UUID:     c.UUID,
		Status:   c.Status,
		Campaign: c,
		At:       s.clock.Now(),
	})
}

func (s *CampaignService) lookupError(err error, message string) error {
	if errors.Is(err, xerrors.ErrNotFound) {
		return err
	}
	return xerrors.Store(err, message)
}

func requireUUID(uuid string) error {
	if strings.TrimSpace(uuid) == "" {
		return xerrors.Invalid("campaign uuid is required")
	}
	return nil
}
