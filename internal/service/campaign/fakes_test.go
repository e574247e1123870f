package campaign

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"obcampaign-service/internal/domain/campaign"
	"obcampaign-service/internal/domain/dialing"
	xerrors "obcampaign-service/internal/pkg/errors"
)

var errBoom = errors.New("boom")

type memStore struct {
	mu        sync.Mutex
	campaigns map[string]*campaign.Campaign
	calls     int

	failInsert bool
	failFind   bool
	failUpdate bool
	failCount  bool
	// failFindFor makes FindOne fail for one uuid only.
	failFindFor string
}

func newMemStore(cs ...*campaign.Campaign) *memStore {
	s := &memStore{campaigns: map[string]*campaign.Campaign{}}
	for _, c := range cs {
		s.campaigns[c.UUID] = clone(c)
	}
	return s
}

func clone(c *campaign.Campaign) *campaign.Campaign {
	cp := *c
	cp.Variables = make(map[string]interface{}, len(c.Variables))
	for k, v := range c.Variables {
		cp.Variables[k] = v
	}
	return &cp
}

func matches(c *campaign.Campaign, f campaign.Filter) bool {
	if f.UUID != nil && c.UUID != *f.UUID {
		return false
	}
	if f.Status != nil && c.Status != *f.Status {
		return false
	}
	if f.ScheduleMode != nil && c.ScheduleMode != *f.ScheduleMode {
		return false
	}
	if f.InUse != nil && c.InUse != *f.InUse {
		return false
	}
	if f.Reference != nil {
		ref := c.Reference(f.Reference.Kind)
		if ref == nil || *ref != f.Reference.ID {
			return false
		}
	}
	return true
}

func (s *memStore) sorted(f campaign.Filter) []*campaign.Campaign {
	var out []*campaign.Campaign
	for _, c := range s.campaigns {
		if matches(c, f) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UUID < out[j].UUID })
	return out
}

func (s *memStore) Insert(ctx context.Context, c *campaign.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failInsert {
		return errBoom
	}
	s.campaigns[c.UUID] = clone(c)
	return nil
}

func (s *memStore) FindOne(ctx context.Context, f campaign.Filter) (*campaign.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failFind || (f.UUID != nil && *f.UUID == s.failFindFor) {
		return nil, errBoom
	}
	found := s.sorted(f)
	if len(found) == 0 {
		return nil, xerrors.ErrNotFound
	}
	return clone(found[0]), nil
}

func (s *memStore) FindMany(ctx context.Context, f campaign.Filter) ([]campaign.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failFind {
		return nil, errBoom
	}
	out := []campaign.Campaign{}
	for _, c := range s.sorted(f) {
		out = append(out, *clone(c))
	}
	return out, nil
}

func (s *memStore) FindUUIDs(ctx context.Context, f campaign.Filter) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failFind {
		return nil, errBoom
	}
	out := []string{}
	for _, c := range s.sorted(f) {
		out = append(out, c.UUID)
	}
	return out, nil
}

func (s *memStore) FindRandom(ctx context.Context, f campaign.Filter) (*campaign.Campaign, error) {
	return s.FindOne(ctx, f)
}

func (s *memStore) Count(ctx context.Context, f campaign.Filter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failCount {
		return 0, errBoom
	}
	return int64(len(s.sorted(f))), nil
}

func (s *memStore) Update(ctx context.Context, c *campaign.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failUpdate {
		return errBoom
	}
	cur, ok := s.campaigns[c.UUID]
	if !ok || !cur.InUse {
		return xerrors.ErrNotFound
	}
	next := clone(c)
	next.TmCreate, next.TmDelete, next.InUse = cur.TmCreate, cur.TmDelete, cur.InUse
	s.campaigns[c.UUID] = next
	return nil
}

func (s *memStore) SoftDelete(ctx context.Context, uuid string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	cur, ok := s.campaigns[uuid]
	if !ok || !cur.InUse {
		return xerrors.ErrNotFound
	}
	cur.InUse = false
	cur.Status = campaign.StatusStop
	cur.TmDelete = &at
	return nil
}

func (s *memStore) ClearReference(ctx context.Context, ref campaign.Reference, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failUpdate {
		return 0, errBoom
	}
	var n int64
	for _, c := range s.sorted(campaign.ByReference(ref.Kind, ref.ID).Live()) {
		c.ClearReference(ref.Kind)
		stamp := at
		c.TmUpdate = &stamp
		n++
	}
	return n, nil
}

func (s *memStore) get(uuid string) *campaign.Campaign {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.campaigns[uuid])
}

// fakeDialing serves plans, destination lists and counters from maps.
type fakeDialing struct {
	plans  map[string]*dialing.Plan
	dlmas  map[string]*dialing.Dlma
	counts map[string]int64
	active map[string]int64

	failCounter string
	failActive  bool
}

func newFakeDialing() *fakeDialing {
	return &fakeDialing{
		plans:  map[string]*dialing.Plan{},
		dlmas:  map[string]*dialing.Dlma{},
		counts: map[string]int64{},
		active: map[string]int64{},
	}
}

func (f *fakeDialing) FindPlan(ctx context.Context, uuid string) (*dialing.Plan, error) {
	if p, ok := f.plans[uuid]; ok {
		return p, nil
	}
	return nil, xerrors.ErrNotFound
}

func (f *fakeDialing) FindDlma(ctx context.Context, uuid string) (*dialing.Dlma, error) {
	if d, ok := f.dlmas[uuid]; ok {
		return d, nil
	}
	return nil, xerrors.ErrNotFound
}

func (f *fakeDialing) count(name string, dlma *dialing.Dlma) (int64, error) {
	if f.failCounter == name {
		return 0, errBoom
	}
	return f.counts[dlma.UUID+"/"+name], nil
}

func (f *fakeDialing) CountTotal(ctx context.Context, dlma *dialing.Dlma) (int64, error) {
	return f.count("total", dlma)
}

func (f *fakeDialing) CountFinished(ctx context.Context, dlma *dialing.Dlma, plan *dialing.Plan) (int64, error) {
	return f.count("finished", dlma)
}

func (f *fakeDialing) CountAvailable(ctx context.Context, dlma *dialing.Dlma, plan *dialing.Plan) (int64, error) {
	return f.count("available", dlma)
}

func (f *fakeDialing) CountDialing(ctx context.Context, dlma *dialing.Dlma) (int64, error) {
	return f.count("dialing", dlma)
}

func (f *fakeDialing) CountTried(ctx context.Context, dlma *dialing.Dlma) (int64, error) {
	return f.count("tried", dlma)
}

func (f *fakeDialing) ActiveDialCount(ctx context.Context, campaignUUID string) (int64, error) {
	if f.failActive {
		return 0, errBoom
	}
	return f.active[campaignUUID], nil
}

type fakePublisher struct {
	mu       sync.Mutex
	requests []*campaign.TransitionRequest
	fail     bool
}

func (p *fakePublisher) PublishTransition(ctx context.Context, req *campaign.TransitionRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errBoom
	}
	p.requests = append(p.requests, req)
	return nil
}

type fakeNotifier struct {
	changes []*campaign.Change
}

func (n *fakeNotifier) NotifyCampaignChange(change *campaign.Change) {
	n.changes = append(n.changes, change)
}

func (n *fakeNotifier) kinds() []campaign.ChangeKind {
	out := make([]campaign.ChangeKind, 0, len(n.changes))
	for _, c := range n.changes {
		out = append(out, c.Kind)
	}
	return out
}

type seqIDs struct{ n int }

func (g *seqIDs) NewID() string {
	g.n++
	return "uuid-" + string(rune('0'+g.n))
}
