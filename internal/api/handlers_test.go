package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/k1nque/org-directory/internal/domain"
	"github.com/k1nque/org-directory/internal/persistence/memory"
)

type fixture struct {
	store *memory.Store
	mux   *http.ServeMux

	building domain.Building
	food     domain.Activity
	meat     domain.Activity
	dairy    domain.Activity
}

// newFixture wires handlers over the in-memory store with a small food
// taxonomy and one Moscow building.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	building := store.PutBuilding("г. Москва, ул. Ленина 1, офис 3", domain.Point{Lat: 55.7558, Lon: 37.6173})

	food, err := store.Activities().Insert(ctx, domain.Activity{Name: "Еда", Level: 1})
	if err != nil {
		t.Fatalf("insert activity: %v", err)
	}
	meat, err := store.Activities().Insert(ctx, domain.Activity{Name: "Мясная продукция", ParentID: &food.ID, Level: 2})
	if err != nil {
		t.Fatalf("insert activity: %v", err)
	}
	dairy, err := store.Activities().Insert(ctx, domain.Activity{Name: "Молочная продукция", ParentID: &food.ID, Level: 2})
	if err != nil {
		t.Fatalf("insert activity: %v", err)
	}

	hierarchy := domain.NewHierarchy(store.Activities(), nil)
	service := domain.NewService(store.Organizations(), store.Buildings(), hierarchy)

	mux := http.NewServeMux()
	NewHandler(service, hierarchy).RegisterRoutes(mux)

	return &fixture{
		store:    store,
		mux:      mux,
		building: building,
		food:     *food,
		meat:     *meat,
		dairy:    *dairy,
	}
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rr := httptest.NewRecorder()
	f.mux.ServeHTTP(rr, req)
	return rr
}

func (f *fixture) createOrg(t *testing.T, name string, activityIDs ...int64) OrganizationView {
	t.Helper()
	rr := f.do(t, http.MethodPost, "/v1/organizations", CreateOrganizationRequest{
		Name:        name,
		BuildingID:  f.building.ID,
		Phones:      []string{"2-222-222"},
		ActivityIDs: activityIDs,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rr.Code, rr.Body.String())
	}
	var view OrganizationView
	if err := json.Unmarshal(rr.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return view
}

func decodeList(t *testing.T, rr *httptest.ResponseRecorder) OrganizationListResponse {
	t.Helper()
	var resp OrganizationListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestCreateOrganizationReturnsHydratedView(t *testing.T) {
	f := newFixture(t)

	view := f.createOrg(t, "ООО Рога и Копыта", f.meat.ID)
	if view.ID == 0 {
		t.Fatalf("expected assigned id")
	}
	if view.Building.Address != f.building.Address {
		t.Fatalf("expected building address %q got %q", f.building.Address, view.Building.Address)
	}
	if len(view.Activities) != 1 || view.Activities[0].Name != "Мясная продукция" {
		t.Fatalf("unexpected activities: %+v", view.Activities)
	}
}

func TestCreateOrganizationMissingActivities(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodPost, "/v1/organizations", CreateOrganizationRequest{
		Name:        "лавка",
		BuildingID:  f.building.ID,
		ActivityIDs: []int64{f.meat.ID, 777},
	})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "777") {
		t.Fatalf("expected missing id in response: %s", rr.Body.String())
	}

	list := decodeList(t, f.do(t, http.MethodGet, "/v1/organizations", nil))
	if list.Total != 0 {
		t.Fatalf("expected no organizations persisted, got total %d", list.Total)
	}
}

func TestCreateOrganizationValidation(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodPost, "/v1/organizations", CreateOrganizationRequest{BuildingID: f.building.ID})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestGetOrganizationNotFound(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodGet, "/v1/organizations/12345", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestListByActivityIncludesDescendants(t *testing.T) {
	f := newFixture(t)

	meatShop := f.createOrg(t, "мясная лавка", f.meat.ID)
	dairyShop := f.createOrg(t, "молочная лавка", f.dairy.ID)
	f.createOrg(t, "без деятельности")

	rr := f.do(t, http.MethodGet, fmt.Sprintf("/v1/organizations/by-activity/%d", f.food.ID), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decodeList(t, rr)
	if resp.Total != 2 {
		t.Fatalf("expected 2 matches got %d", resp.Total)
	}
	if resp.Items[0].ID != meatShop.ID || resp.Items[1].ID != dairyShop.ID {
		t.Fatalf("unexpected order: %+v", resp.Items)
	}

	rr = f.do(t, http.MethodGet, fmt.Sprintf("/v1/organizations/by-activity/%d", f.meat.ID), nil)
	resp = decodeList(t, rr)
	if resp.Total != 1 || resp.Items[0].ID != meatShop.ID {
		t.Fatalf("leaf query should match the meat shop only: %+v", resp.Items)
	}
}

func TestListByActivityUnknownID(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodGet, "/v1/organizations/by-activity/999", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestListByBuildingUnknownID(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodGet, "/v1/organizations/by-building/999", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestSearchByNameIsCaseInsensitive(t *testing.T) {
	f := newFixture(t)

	created := f.createOrg(t, "ООО Horns and Hooves")
	f.createOrg(t, "ЗАО Ромашка")

	rr := f.do(t, http.MethodGet, "/v1/organizations/search/by-name?name=HORNS", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decodeList(t, rr)
	if resp.Total != 1 || resp.Items[0].ID != created.ID {
		t.Fatalf("unexpected matches: %+v", resp.Items)
	}
}

func TestSearchByLocationRadius(t *testing.T) {
	f := newFixture(t)
	f.createOrg(t, "ООО Рога и Копыта")

	lat, lon, radius := 55.7558, 37.6173, 100.0
	rr := f.do(t, http.MethodPost, "/v1/organizations/search/by-location", LocationSearchRequest{
		Lat: &lat, Lon: &lon, RadiusM: &radius,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}
	if resp := decodeList(t, rr); resp.Total != 1 {
		t.Fatalf("expected 1 match got %d", resp.Total)
	}

	farLat, farLon := 0.0, 0.0
	rr = f.do(t, http.MethodPost, "/v1/organizations/search/by-location", LocationSearchRequest{
		Lat: &farLat, Lon: &farLon, RadiusM: &radius,
	})
	if resp := decodeList(t, rr); resp.Total != 0 {
		t.Fatalf("expected no matches got %d", resp.Total)
	}
}

func TestSearchByLocationRejectsBothModes(t *testing.T) {
	f := newFixture(t)

	v := 1.0
	rr := f.do(t, http.MethodPost, "/v1/organizations/search/by-location", LocationSearchRequest{
		Lat: &v, Lon: &v, RadiusM: &v,
		MinLat: &v, MaxLat: &v, MinLon: &v, MaxLon: &v,
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestSearchByLocationRejectsNeitherMode(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodPost, "/v1/organizations/search/by-location", LocationSearchRequest{})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestSearchByLocationPartialBox(t *testing.T) {
	f := newFixture(t)

	v := 55.0
	rr := f.do(t, http.MethodPost, "/v1/organizations/search/by-location", LocationSearchRequest{
		MinLat: &v, MaxLat: &v,
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestCreateActivityRejectsFourthLevel(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodPost, "/v1/activities", CreateActivityRequest{Name: "Парное мясо", ParentID: &f.meat.ID})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rr.Code, rr.Body.String())
	}
	var third ActivityView
	if err := json.Unmarshal(rr.Body.Bytes(), &third); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if third.Level != 3 {
		t.Fatalf("expected level 3 got %d", third.Level)
	}

	rr = f.do(t, http.MethodPost, "/v1/activities", CreateActivityRequest{Name: "Вырезка", ParentID: &third.ID})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestActivityTreeShape(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodGet, "/v1/activities/tree", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp ActivityTreeResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Activities) != 1 {
		t.Fatalf("expected 1 root got %d", len(resp.Activities))
	}
	root := resp.Activities[0]
	if root.Name != "Еда" || len(root.Children) != 2 {
		t.Fatalf("unexpected root: %+v", root)
	}
}

func TestListBuildings(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodGet, "/v1/buildings", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}
	var resp BuildingListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 1 || len(resp.Items) != 1 {
		t.Fatalf("expected one building, got %+v", resp)
	}
	if resp.Items[0].Lat != f.building.Location.Lat {
		t.Fatalf("expected lat %v got %v", f.building.Location.Lat, resp.Items[0].Lat)
	}
}

func TestInvalidIDYieldsBadRequest(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodGet, "/v1/organizations/not-a-number", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestNegativeLimitRejected(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodGet, "/v1/organizations?limit=-1", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d: %s", rr.Code, rr.Body.String())
	}
}
