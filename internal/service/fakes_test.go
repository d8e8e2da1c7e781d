package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"floodwatch/internal/domain"
	"floodwatch/internal/occupancy"
	"floodwatch/internal/realtime"
	"floodwatch/internal/repository"
)

var fixedNow = time.Date(2024, 7, 24, 8, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

type recordingPublisher struct {
	mu      sync.Mutex
	changes []realtime.Change
}

func (p *recordingPublisher) Publish(_ context.Context, c realtime.Change) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, c)
	return nil
}

func (p *recordingPublisher) tables() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.changes))
	for i, c := range p.changes {
		out[i] = c.Table
	}
	return out
}

type recordingStream struct {
	mu     sync.Mutex
	events []RescueEvent
}

func (s *recordingStream) Append(_ context.Context, ev RescueEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

// fakeRequests in-memory rescue_requests with the same conditional-update
// semantics as the Postgres repository.
type fakeRequests struct {
	mu      sync.Mutex
	rows    map[string]*domain.RescueRequest
	failErr error
}

func newFakeRequests() *fakeRequests {
	return &fakeRequests{rows: map[string]*domain.RescueRequest{}}
}

func (f *fakeRequests) Create(_ context.Context, r *domain.RescueRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	if r.RequestID == "" {
		r.RequestID = uuid.New().String()
	}
	cp := *r
	f.rows[r.RequestID] = &cp
	return nil
}

func (f *fakeRequests) Get(_ context.Context, id string) (*domain.RescueRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return nil, fmt.Errorf("rescue request not found: %w", domain.ErrNotFound)
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRequests) List(_ context.Context, filter repository.RescueRequestsFilter) ([]*domain.RescueRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.RescueRequest
	for _, r := range f.rows {
		if filter.RequesterID != "" && r.RequesterID != filter.RequesterID {
			continue
		}
		if filter.RescuerID != "" && (r.AssignedRescuerID == nil || *r.AssignedRescuerID != filter.RescuerID) {
			continue
		}
		if len(filter.Statuses) > 0 {
			match := false
			for _, s := range filter.Statuses {
				match = match || r.Status == s
			}
			if !match {
				continue
			}
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PriorityScore != out[j].PriorityScore {
			return out[i].PriorityScore > out[j].PriorityScore
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (f *fakeRequests) Claim(_ context.Context, id, rescuerID string, at time.Time) (*domain.RescueRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if r.Status != domain.StatusPending || r.AssignedRescuerID != nil {
		return nil, domain.ErrAlreadyClaimed
	}
	r.Status = domain.StatusAssigned
	r.AssignedRescuerID = &rescuerID
	r.AssignedAt = &at
	r.UpdatedAt = at
	cp := *r
	return &cp, nil
}

func (f *fakeRequests) UpdateStatus(_ context.Context, id string, from, to domain.RequestStatus, at time.Time) (*domain.RescueRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if r.Status != from {
		return nil, domain.ErrInvalidTransition
	}
	r.Status = to
	r.UpdatedAt = at
	if to.Terminal() {
		r.CompletedAt = &at
	}
	cp := *r
	return &cp, nil
}

type fakeAlerts struct {
	mu      sync.Mutex
	rows    []*domain.WeatherAlert
	listErr error
}

func (f *fakeAlerts) Create(_ context.Context, a *domain.WeatherAlert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a.AlertID == "" {
		a.AlertID = uuid.New().String()
	}
	f.rows = append(f.rows, a)
	return nil
}

func (f *fakeAlerts) Get(_ context.Context, id string) (*domain.WeatherAlert, error) {
	for _, a := range f.rows {
		if a.AlertID == id {
			return a, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeAlerts) ListActive(_ context.Context, zone string, now time.Time) ([]*domain.WeatherAlert, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*domain.WeatherAlert
	for _, a := range f.rows {
		if a.IsActive && (a.ExpiresAt == nil || a.ExpiresAt.After(now)) && a.Targets(zone) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAlerts) ListAll(context.Context, int) ([]*domain.WeatherAlert, error) {
	return f.rows, nil
}

func (f *fakeAlerts) Deactivate(_ context.Context, id string) error {
	a, err := f.Get(context.Background(), id)
	if err != nil {
		return err
	}
	a.IsActive = false
	return nil
}

func (f *fakeAlerts) Delete(_ context.Context, id string) error {
	for i, a := range f.rows {
		if a.AlertID == id {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *fakeAlerts) ExpireDue(_ context.Context, now time.Time) ([]string, error) {
	var ids []string
	for _, a := range f.rows {
		if a.IsActive && a.ExpiresAt != nil && !a.ExpiresAt.After(now) {
			a.IsActive = false
			ids = append(ids, a.AlertID)
		}
	}
	return ids, nil
}

type fakeProfiles struct {
	mu   sync.Mutex
	rows map[string]*domain.Profile
}

func newFakeProfiles(ps ...*domain.Profile) *fakeProfiles {
	f := &fakeProfiles{rows: map[string]*domain.Profile{}}
	for _, p := range ps {
		f.rows[p.UserID] = p
	}
	return f
}

func (f *fakeProfiles) Create(_ context.Context, p *domain.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.rows {
		if existing.Email == strings.ToLower(p.Email) {
			return domain.ErrConflict
		}
	}
	if p.UserID == "" {
		p.UserID = uuid.New().String()
	}
	f.rows[p.UserID] = p
	return nil
}

func (f *fakeProfiles) Get(_ context.Context, id string) (*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProfiles) GetByEmail(_ context.Context, email string) (*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.rows {
		if p.Email == strings.ToLower(strings.TrimSpace(email)) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeProfiles) ListByRole(_ context.Context, role domain.Role) ([]*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Profile
	for _, p := range f.rows {
		if role == "" || p.Role == role {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeProfiles) UpdateContact(_ context.Context, id string, upd repository.ContactUpdate, at time.Time) (*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if upd.FullName != nil {
		p.FullName = *upd.FullName
	}
	if upd.Phone != nil {
		p.Phone = upd.Phone
	}
	if upd.LastKnownAddress != nil {
		p.LastKnownAddress = upd.LastKnownAddress
	}
	if upd.AssignedZone != nil {
		p.AssignedZone = upd.AssignedZone
	}
	p.UpdatedAt = at
	cp := *p
	return &cp, nil
}

func (f *fakeProfiles) UpdateLocation(_ context.Context, id string, lat, lng float64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.LastKnownLat, p.LastKnownLng, p.LastActiveAt = &lat, &lng, &at
	return nil
}

func (f *fakeProfiles) Touch(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.LastActiveAt = &at
	return nil
}

// fakeEvacuation applies the same occupancy arithmetic as the SQL.
type fakeEvacuation struct {
	mu       sync.Mutex
	centers  map[string]*domain.EvacuationCenter
	evacuees map[string]*domain.Evacuee
}

func newFakeEvacuation(cs ...*domain.EvacuationCenter) *fakeEvacuation {
	f := &fakeEvacuation{centers: map[string]*domain.EvacuationCenter{}, evacuees: map[string]*domain.Evacuee{}}
	for _, c := range cs {
		f.centers[c.CenterID] = c
	}
	return f
}

func (f *fakeEvacuation) CreateCenter(_ context.Context, c *domain.EvacuationCenter) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.CenterID == "" {
		c.CenterID = uuid.New().String()
	}
	cp := *c
	f.centers[c.CenterID] = &cp
	return nil
}

func (f *fakeEvacuation) GetCenter(_ context.Context, id string) (*domain.EvacuationCenter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.centers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeEvacuation) ListCenters(_ context.Context, filter repository.CentersFilter) ([]*domain.EvacuationCenter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.EvacuationCenter
	for _, c := range f.centers {
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeEvacuation) UpdateCenter(_ context.Context, c *domain.EvacuationCenter) (*domain.EvacuationCenter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.centers[c.CenterID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	cp.CurrentOccupancy = stored.CurrentOccupancy
	cp.CreatedAt = stored.CreatedAt
	cp.Status = occupancy.DeriveStatus(c.Status, stored.CurrentOccupancy, c.Capacity)
	f.centers[c.CenterID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeEvacuation) DeleteCenter(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.centers[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.centers, id)
	return nil
}

func (f *fakeEvacuation) CheckIn(_ context.Context, e *domain.Evacuee) (*domain.EvacuationCenter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.centers[e.EvacuationCenterID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if c.Status == domain.CenterClosed {
		return nil, domain.ErrConflict
	}
	if e.EvacueeID == "" {
		e.EvacueeID = uuid.New().String()
	}
	c.CurrentOccupancy += e.Headcount()
	c.Status = occupancy.DeriveStatus(c.Status, c.CurrentOccupancy, c.Capacity)
	cp := *e
	f.evacuees[e.EvacueeID] = &cp
	cc := *c
	return &cc, nil
}

func (f *fakeEvacuation) CheckOut(_ context.Context, id string, at time.Time) (*domain.Evacuee, *domain.EvacuationCenter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.evacuees[id]
	if !ok {
		return nil, nil, domain.ErrNotFound
	}
	if e.CheckedOutAt != nil {
		return nil, nil, domain.ErrConflict
	}
	e.CheckedOutAt = &at
	c := f.centers[e.EvacuationCenterID]
	c.CurrentOccupancy = occupancy.Clamp(c.CurrentOccupancy, -e.Headcount())
	c.Status = occupancy.DeriveStatus(c.Status, c.CurrentOccupancy, c.Capacity)
	ec, cc := *e, *c
	return &ec, &cc, nil
}

func (f *fakeEvacuation) ListEvacuees(_ context.Context, centerID string, includeCheckedOut bool) ([]*domain.Evacuee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Evacuee
	for _, e := range f.evacuees {
		if centerID != "" && e.EvacuationCenterID != centerID {
			continue
		}
		if !includeCheckedOut && e.CheckedOutAt != nil {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

type fakeGeocoder struct {
	lat, lng float64
	err      error
	calls    int
}

func (g *fakeGeocoder) Geocode(context.Context, string) (float64, float64, error) {
	g.calls++
	return g.lat, g.lng, g.err
}

type devicePublish struct {
	topic    string
	retained bool
	payload  []byte
}

type fakeDevices struct {
	mu   sync.Mutex
	msgs []devicePublish
}

func (d *fakeDevices) Publish(topic string, _ byte, retained bool, payload []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.msgs = append(d.msgs, devicePublish{topic, retained, payload})
	return nil
}

func ptr[T any](v T) *T { return &v }

func resident(id string) *domain.Profile {
	return &domain.Profile{UserID: id, Role: domain.RoleResident, FullName: "Resident " + id, Email: id + "@example.com"}
}

func rescuer(id string) *domain.Profile {
	return &domain.Profile{UserID: id, Role: domain.RoleRescuer, FullName: "Rescuer " + id, Email: id + "@example.com"}
}

func admin(id string) *domain.Profile {
	return &domain.Profile{UserID: id, Role: domain.RoleMDRRMOAdmin, FullName: "Admin " + id, Email: id + "@example.com"}
}
