package api

import (
	"errors"
	"strings"

	"github.com/k1nque/org-directory/internal/domain"
)

// BuildingView is the building summary embedded in responses.
type BuildingView struct {
	ID      int64   `json:"id"`
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// ActivityRefView is the compact membership entry on an organization.
type ActivityRefView struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Level int    `json:"level"`
}

// OrganizationView exposes a fully hydrated organization.
type OrganizationView struct {
	ID         int64             `json:"id"`
	Name       string            `json:"name"`
	Building   BuildingView      `json:"building"`
	Phones     []string          `json:"phones"`
	Activities []ActivityRefView `json:"activities"`
}

// OrganizationListResponse packages one page of organizations.
type OrganizationListResponse struct {
	Items  []OrganizationView `json:"items"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
	Total  int64              `json:"total"`
}

// ActivityView exposes a flat taxonomy node.
type ActivityView struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id,omitempty"`
	Level    int    `json:"level"`
}

// ActivityNodeView is an ActivityView with nested children.
type ActivityNodeView struct {
	ActivityView
	Children []ActivityNodeView `json:"children"`
}

// ActivityTreeResponse is the full forest.
type ActivityTreeResponse struct {
	Activities []ActivityNodeView `json:"activities"`
}

// BuildingListResponse packages one page of buildings.
type BuildingListResponse struct {
	Items  []BuildingView `json:"items"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
	Total  int64          `json:"total"`
}

// CreateOrganizationRequest is the payload for POST /v1/organizations.
type CreateOrganizationRequest struct {
	Name        string   `json:"name"`
	BuildingID  int64    `json:"building_id"`
	Phones      []string `json:"phones"`
	ActivityIDs []int64  `json:"activity_ids"`
}

// Validate ensures request correctness.
func (r CreateOrganizationRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	if r.BuildingID <= 0 {
		return errors.New("building_id is required")
	}
	return nil
}

// CreateActivityRequest is the payload for POST /v1/activities.
type CreateActivityRequest struct {
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id"`
}

// Validate ensures request correctness.
func (r CreateActivityRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	return nil
}

// LocationSearchRequest is the payload for POST
// /v1/organizations/search/by-location. Radius mode uses lat/lon/radius_m;
// bounding-box mode uses the four min/max fields. Exactly one mode must
// be supplied.
type LocationSearchRequest struct {
	Lat     *float64 `json:"lat"`
	Lon     *float64 `json:"lon"`
	RadiusM *float64 `json:"radius_m"`
	MinLat  *float64 `json:"min_lat"`
	MaxLat  *float64 `json:"max_lat"`
	MinLon  *float64 `json:"min_lon"`
	MaxLon  *float64 `json:"max_lon"`
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
}

// toDomain maps the wire shape onto a domain SearchRequest. Mode
// exclusivity itself is validated by the domain.
func (r LocationSearchRequest) toDomain() (domain.SearchRequest, error) {
	req := domain.SearchRequest{Page: domain.PageRequest{Limit: r.Limit, Offset: r.Offset}}

	if r.RadiusM != nil {
		if r.Lat == nil || r.Lon == nil {
			return req, errors.New("lat and lon are required for a radius search")
		}
		req.Radius = &domain.RadiusFilter{
			Center: domain.Point{Lat: *r.Lat, Lon: *r.Lon},
			Meters: *r.RadiusM,
		}
	}

	boxFields := []*float64{r.MinLat, r.MaxLat, r.MinLon, r.MaxLon}
	present := 0
	for _, f := range boxFields {
		if f != nil {
			present++
		}
	}
	switch present {
	case 0:
	case len(boxFields):
		req.Bounds = &domain.Bounds{MinLat: *r.MinLat, MaxLat: *r.MaxLat, MinLon: *r.MinLon, MaxLon: *r.MaxLon}
	default:
		return req, errors.New("all four bounding box parameters must be provided")
	}

	return req, nil
}

func toOrganizationView(org domain.Organization) OrganizationView {
	refs := make([]ActivityRefView, 0, len(org.Activities))
	for _, ref := range org.Activities {
		refs = append(refs, ActivityRefView(ref))
	}
	phones := org.Phones
	if phones == nil {
		phones = []string{}
	}
	return OrganizationView{
		ID:         org.ID,
		Name:       org.Name,
		Building:   toBuildingView(org.Building),
		Phones:     phones,
		Activities: refs,
	}
}

func toBuildingView(b domain.Building) BuildingView {
	return BuildingView{ID: b.ID, Address: b.Address, Lat: b.Location.Lat, Lon: b.Location.Lon}
}

func toActivityView(a domain.Activity) ActivityView {
	return ActivityView{ID: a.ID, Name: a.Name, ParentID: a.ParentID, Level: a.Level}
}

func toActivityNodeView(node *domain.ActivityNode) ActivityNodeView {
	children := make([]ActivityNodeView, 0, len(node.Children))
	for _, child := range node.Children {
		children = append(children, toActivityNodeView(child))
	}
	return ActivityNodeView{ActivityView: toActivityView(node.Activity), Children: children}
}

func toOrganizationListResponse(page *domain.Page) OrganizationListResponse {
	items := make([]OrganizationView, 0, len(page.Items))
	for _, org := range page.Items {
		items = append(items, toOrganizationView(org))
	}
	return OrganizationListResponse{Items: items, Limit: page.Limit, Offset: page.Offset, Total: page.Total}
}
