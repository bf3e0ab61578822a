package domain

import (
	"context"
	"strings"
)

// Service is the single query facade: it composes name, building,
// activity-closure and spatial filters into one storage retrieval and
// returns fully hydrated organization pages.
type Service struct {
	orgs      OrganizationRepository
	buildings BuildingRepository
	hierarchy *Hierarchy
}

// NewService constructs a Service.
func NewService(orgs OrganizationRepository, buildings BuildingRepository, hierarchy *Hierarchy) *Service {
	return &Service{orgs: orgs, buildings: buildings, hierarchy: hierarchy}
}

// Hierarchy exposes the taxonomy component for callers that wire both.
func (s *Service) Hierarchy() *Hierarchy { return s.hierarchy }

// ListByActivity returns organizations attached to the activity or any of
// its descendants. An empty intersection yields an empty page.
func (s *Service) ListByActivity(ctx context.Context, activityID int64, page PageRequest) (*Page, error) {
	page, err := page.Normalize()
	if err != nil {
		return nil, err
	}
	closure, err := s.hierarchy.ExpandDescendants(ctx, activityID)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, OrganizationFilter{ActivityIDs: closure}, page)
}

// ListByName matches the organization name case-insensitively as a
// substring. An empty substring matches everything.
func (s *Service) ListByName(ctx context.Context, substring string, page PageRequest) (*Page, error) {
	page, err := page.Normalize()
	if err != nil {
		return nil, err
	}
	return s.list(ctx, OrganizationFilter{Name: strings.TrimSpace(substring)}, page)
}

// ListByBuilding returns organizations hosted by the building.
func (s *Service) ListByBuilding(ctx context.Context, buildingID int64, page PageRequest) (*Page, error) {
	page, err := page.Normalize()
	if err != nil {
		return nil, err
	}
	building, err := s.buildings.Get(ctx, buildingID)
	if err != nil {
		return nil, err
	}
	if building == nil {
		return nil, NotFoundByID("building", buildingID)
	}
	return s.list(ctx, OrganizationFilter{BuildingID: &buildingID}, page)
}

// SearchByLocation evaluates a point-radius or bounding-box predicate over
// building locations. Validation happens before any storage call.
func (s *Service) SearchByLocation(ctx context.Context, req SearchRequest) (*Page, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	page, err := req.Page.Normalize()
	if err != nil {
		return nil, err
	}
	return s.list(ctx, OrganizationFilter{Radius: req.Radius, Bounds: req.Bounds}, page)
}

// ListOrganizations returns all organizations, paginated.
func (s *Service) ListOrganizations(ctx context.Context, page PageRequest) (*Page, error) {
	page, err := page.Normalize()
	if err != nil {
		return nil, err
	}
	return s.list(ctx, OrganizationFilter{}, page)
}

// GetOrganization fetches one organization by id, hydrated.
func (s *Service) GetOrganization(ctx context.Context, id int64) (*Organization, error) {
	org, err := s.orgs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, NotFoundByID("organization", id)
	}
	return org, nil
}

// CreateOrganization verifies the building and every referenced activity
// exist, then persists the organization with its phones and memberships as
// a single all-or-nothing unit.
func (s *Service) CreateOrganization(ctx context.Context, input NewOrganization) (*Organization, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, Validation("name is required")
	}
	if input.BuildingID <= 0 {
		return nil, Validation("building_id is required")
	}
	input.ActivityIDs = dedupeIDs(input.ActivityIDs)
	return s.orgs.Create(ctx, input)
}

// GetBuilding fetches one building by id.
func (s *Service) GetBuilding(ctx context.Context, id int64) (*Building, error) {
	building, err := s.buildings.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if building == nil {
		return nil, NotFoundByID("building", id)
	}
	return building, nil
}

// ListBuildings returns all buildings with the total count.
func (s *Service) ListBuildings(ctx context.Context, page PageRequest) ([]Building, int64, error) {
	page, err := page.Normalize()
	if err != nil {
		return nil, 0, err
	}
	return s.buildings.List(ctx, page)
}

func (s *Service) list(ctx context.Context, filter OrganizationFilter, page PageRequest) (*Page, error) {
	items, total, err := s.orgs.List(ctx, filter, page)
	if err != nil {
		return nil, err
	}
	return &Page{Items: items, Limit: page.Limit, Offset: page.Offset, Total: total}, nil
}

func dedupeIDs(ids []int64) []int64 {
	if len(ids) < 2 {
		return ids
	}
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
