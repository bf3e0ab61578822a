// Package memory provides an in-memory store for local development and
// unit tests. It mirrors the postgres backend's observable behavior,
// including the spherical radius predicate.
package memory

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/k1nque/org-directory/internal/domain"
)

type orgRecord struct {
	id          int64
	name        string
	buildingID  int64
	phones      []string
	activityIDs []int64
	createdAt   time.Time
	updatedAt   time.Time
}

// Store keeps the whole directory in maps guarded by one RWMutex. The
// per-entity repository views share its state.
type Store struct {
	mu         sync.RWMutex
	activities map[int64]domain.Activity
	buildings  map[int64]domain.Building
	orgs       map[int64]orgRecord

	nextActivityID int64
	nextBuildingID int64
	nextOrgID      int64
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		activities: make(map[int64]domain.Activity),
		buildings:  make(map[int64]domain.Building),
		orgs:       make(map[int64]orgRecord),
	}
}

// Activities returns the taxonomy view of the store.
func (s *Store) Activities() domain.ActivityRepository { return activityRepo{s} }

// Buildings returns the building view of the store.
func (s *Store) Buildings() domain.BuildingRepository { return buildingRepo{s} }

// Organizations returns the organization view of the store.
func (s *Store) Organizations() domain.OrganizationRepository { return organizationRepo{s} }

// PutBuilding registers a building and returns it with an assigned id.
// Building writes are outside the service surface, so fixtures and local
// seeding go through this instead of a repository.
func (s *Store) PutBuilding(address string, location domain.Point) domain.Building {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextBuildingID++
	now := time.Now().UTC()
	building := domain.Building{
		ID:        s.nextBuildingID,
		Address:   address,
		Location:  location,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.buildings[building.ID] = building
	return building
}

type activityRepo struct{ s *Store }

func (r activityRepo) Get(ctx context.Context, id int64) (*domain.Activity, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	activity, ok := r.s.activities[id]
	if !ok {
		return nil, nil
	}
	return &activity, nil
}

func (r activityRepo) ChildrenOf(ctx context.Context, parentID int64) ([]domain.Activity, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	children := make([]domain.Activity, 0)
	for _, activity := range r.s.activities {
		if activity.ParentID != nil && *activity.ParentID == parentID {
			children = append(children, activity)
		}
	}
	sort.Slice(children, func(i, j int) bool { return children[i].ID < children[j].ID })
	return children, nil
}

func (r activityRepo) ListAll(ctx context.Context) ([]domain.Activity, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	all := make([]domain.Activity, 0, len(r.s.activities))
	for _, activity := range r.s.activities {
		all = append(all, activity)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all, nil
}

// List orders by (level, name, id); level 0 means all levels.
func (r activityRepo) List(ctx context.Context, level int, page domain.PageRequest) ([]domain.Activity, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	selected := make([]domain.Activity, 0, len(r.s.activities))
	for _, activity := range r.s.activities {
		if level != 0 && activity.Level != level {
			continue
		}
		selected = append(selected, activity)
	}
	sort.Slice(selected, func(i, j int) bool {
		a, b := selected[i], selected[j]
		if a.Level != b.Level {
			return a.Level < b.Level
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
	return slicePage(selected, page), nil
}

func (r activityRepo) Insert(ctx context.Context, activity domain.Activity) (*domain.Activity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.activities {
		if strings.EqualFold(existing.Name, activity.Name) {
			return nil, domain.ErrConflict
		}
	}

	r.s.nextActivityID++
	now := time.Now().UTC()
	activity.ID = r.s.nextActivityID
	activity.CreatedAt = now
	activity.UpdatedAt = now
	r.s.activities[activity.ID] = activity
	return &activity, nil
}

type buildingRepo struct{ s *Store }

func (r buildingRepo) Get(ctx context.Context, id int64) (*domain.Building, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	building, ok := r.s.buildings[id]
	if !ok {
		return nil, nil
	}
	return &building, nil
}

func (r buildingRepo) List(ctx context.Context, page domain.PageRequest) ([]domain.Building, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	all := make([]domain.Building, 0, len(r.s.buildings))
	for _, building := range r.s.buildings {
		all = append(all, building)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return slicePage(all, page), int64(len(all)), nil
}

type organizationRepo struct{ s *Store }

func (r organizationRepo) Get(ctx context.Context, id int64) (*domain.Organization, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	record, ok := r.s.orgs[id]
	if !ok {
		return nil, nil
	}
	org := r.s.hydrate(record)
	return &org, nil
}

// List evaluates the composed filter over all organizations and returns a
// deterministic page ordered by id ascending, plus the total match count.
func (r organizationRepo) List(ctx context.Context, filter domain.OrganizationFilter, page domain.PageRequest) ([]domain.Organization, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matched := make([]orgRecord, 0)
	for _, record := range r.s.orgs {
		if r.s.matches(record, filter) {
			matched = append(matched, record)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].id < matched[j].id })

	out := make([]domain.Organization, 0)
	for _, record := range slicePage(matched, page) {
		out = append(out, r.s.hydrate(record))
	}
	return out, int64(len(matched)), nil
}

// Create verifies references and stores the record. Holding the write
// lock makes the check-then-insert atomic, matching the postgres
// transaction boundary.
func (r organizationRepo) Create(ctx context.Context, input domain.NewOrganization) (*domain.Organization, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.buildings[input.BuildingID]; !ok {
		return nil, domain.NotFoundByID("building", input.BuildingID)
	}
	var missing []int64
	for _, id := range input.ActivityIDs {
		if _, ok := r.s.activities[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
		return nil, &domain.NotFoundError{Entity: "activity", IDs: missing}
	}

	r.s.nextOrgID++
	now := time.Now().UTC()
	record := orgRecord{
		id:          r.s.nextOrgID,
		name:        input.Name,
		buildingID:  input.BuildingID,
		phones:      append([]string(nil), input.Phones...),
		activityIDs: append([]int64(nil), input.ActivityIDs...),
		createdAt:   now,
		updatedAt:   now,
	}
	r.s.orgs[record.id] = record
	org := r.s.hydrate(record)
	return &org, nil
}

func (s *Store) matches(record orgRecord, filter domain.OrganizationFilter) bool {
	if filter.BuildingID != nil && record.buildingID != *filter.BuildingID {
		return false
	}
	if filter.Name != "" && !strings.Contains(strings.ToLower(record.name), strings.ToLower(filter.Name)) {
		return false
	}
	if filter.ActivityIDs != nil && !intersects(record.activityIDs, filter.ActivityIDs) {
		return false
	}
	if filter.Radius != nil || filter.Bounds != nil {
		building, ok := s.buildings[record.buildingID]
		if !ok {
			return false
		}
		if filter.Radius != nil && greatCircleMeters(filter.Radius.Center, building.Location) > filter.Radius.Meters {
			return false
		}
		if filter.Bounds != nil && !filter.Bounds.Contains(building.Location) {
			return false
		}
	}
	return true
}

func (s *Store) hydrate(record orgRecord) domain.Organization {
	building := s.buildings[record.buildingID]

	refs := make([]domain.ActivityRef, 0, len(record.activityIDs))
	for _, id := range record.activityIDs {
		if activity, ok := s.activities[id]; ok {
			refs = append(refs, domain.ActivityRef{ID: activity.ID, Name: activity.Name, Level: activity.Level})
		}
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })

	return domain.Organization{
		ID:         record.id,
		Name:       record.name,
		BuildingID: record.buildingID,
		Building:   building,
		Phones:     append([]string(nil), record.phones...),
		Activities: refs,
		CreatedAt:  record.createdAt,
		UpdatedAt:  record.updatedAt,
	}
}

func intersects(a, b []int64) bool {
	set := make(map[int64]struct{}, len(b))
	for _, id := range b {
		set[id] = struct{}{}
	}
	for _, id := range a {
		if _, ok := set[id]; ok {
			return true
		}
	}
	return false
}

func slicePage[T any](items []T, page domain.PageRequest) []T {
	if page.Offset >= len(items) {
		return []T{}
	}
	end := page.Offset + page.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[page.Offset:end]
}

// earthRadiusMeters is the IUGG mean radius.
const earthRadiusMeters = 6371008.8

// greatCircleMeters computes the haversine distance between two WGS84
// points. Identical coordinates yield exactly zero, so a zero radius
// matches buildings at the exact center point.
func greatCircleMeters(a, b domain.Point) float64 {
	if a == b {
		return 0
	}
	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(latA)*math.Cos(latB)*sinLon*sinLon
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}
