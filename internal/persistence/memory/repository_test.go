package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/k1nque/org-directory/internal/domain"
)

func seedOrg(t *testing.T, store *Store, name string, buildingID int64, activityIDs ...int64) domain.Organization {
	t.Helper()
	org, err := store.Organizations().Create(context.Background(), domain.NewOrganization{
		Name:        name,
		BuildingID:  buildingID,
		Phones:      []string{"2-222-222"},
		ActivityIDs: activityIDs,
	})
	require.NoError(t, err)
	return *org
}

func TestRadiusSearchIncludesNearbyAndExcludesFar(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	moscow := store.PutBuilding("г. Москва, Красная площадь 1", domain.Point{Lat: 55.7558, Lon: 37.6173})
	seedOrg(t, store, "ООО Рога и Копыта", moscow.ID)

	page := domain.PageRequest{Limit: 10}

	near, total, err := store.Organizations().List(ctx, domain.OrganizationFilter{
		Radius: &domain.RadiusFilter{Center: domain.Point{Lat: 55.7558, Lon: 37.6173}, Meters: 100},
	}, page)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Len(t, near, 1)
	require.Equal(t, "ООО Рога и Копыта", near[0].Name)

	far, total, err := store.Organizations().List(ctx, domain.OrganizationFilter{
		Radius: &domain.RadiusFilter{Center: domain.Point{Lat: 0, Lon: 0}, Meters: 100},
	}, page)
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, far)
}

func TestZeroRadiusMatchesExactPointOnly(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	exact := store.PutBuilding("точка", domain.Point{Lat: 55.7558, Lon: 37.6173})
	nearby := store.PutBuilding("рядом", domain.Point{Lat: 55.7560, Lon: 37.6173})
	seedOrg(t, store, "в точке", exact.ID)
	seedOrg(t, store, "в двадцати метрах", nearby.ID)

	items, total, err := store.Organizations().List(ctx, domain.OrganizationFilter{
		Radius: &domain.RadiusFilter{Center: domain.Point{Lat: 55.7558, Lon: 37.6173}, Meters: 0},
	}, domain.PageRequest{Limit: 10})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	require.Equal(t, "в точке", items[0].Name)
}

func TestBoundingBoxIncludesEdges(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	onEdge := store.PutBuilding("на границе", domain.Point{Lat: 55, Lon: 37})
	inside := store.PutBuilding("внутри", domain.Point{Lat: 55.5, Lon: 37.5})
	outside := store.PutBuilding("снаружи", domain.Point{Lat: 57, Lon: 37.5})
	seedOrg(t, store, "edge", onEdge.ID)
	seedOrg(t, store, "inside", inside.ID)
	seedOrg(t, store, "outside", outside.ID)

	items, total, err := store.Organizations().List(ctx, domain.OrganizationFilter{
		Bounds: &domain.Bounds{MinLat: 55, MaxLat: 56, MinLon: 37, MaxLon: 38},
	}, domain.PageRequest{Limit: 10})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, items, 2)
	require.Equal(t, "edge", items[0].Name)
	require.Equal(t, "inside", items[1].Name)
}

func TestPaginationIsDeterministic(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	building := store.PutBuilding("дом", domain.Point{Lat: 55, Lon: 37})
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		seedOrg(t, store, name, building.ID)
	}

	page := domain.PageRequest{Limit: 2, Offset: 2}
	first, total, err := store.Organizations().List(ctx, domain.OrganizationFilter{}, page)
	require.NoError(t, err)
	require.Equal(t, int64(5), total)

	second, _, err := store.Organizations().List(ctx, domain.OrganizationFilter{}, page)
	require.NoError(t, err)
	require.Equal(t, first, second)

	require.Len(t, first, 2)
	require.Equal(t, "c", first[0].Name)
	require.Equal(t, "d", first[1].Name)
}

func TestNameFilterIsCaseInsensitive(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	building := store.PutBuilding("дом", domain.Point{Lat: 55, Lon: 37})
	seedOrg(t, store, "ООО Horns and Hooves", building.ID)
	seedOrg(t, store, "ЗАО Ромашка", building.ID)

	items, total, err := store.Organizations().List(ctx, domain.OrganizationFilter{Name: "horns"}, domain.PageRequest{Limit: 10})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "ООО Horns and Hooves", items[0].Name)

	all, total, err := store.Organizations().List(ctx, domain.OrganizationFilter{Name: ""}, domain.PageRequest{Limit: 10})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, all, 2)
}

func TestCreateOrganizationMissingBuilding(t *testing.T) {
	store := NewStore()

	_, err := store.Organizations().Create(context.Background(), domain.NewOrganization{
		Name:       "в никуда",
		BuildingID: 999,
		Phones:     []string{"1-111-111"},
	})
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, total, listErr := store.Organizations().List(context.Background(), domain.OrganizationFilter{}, domain.PageRequest{Limit: 10})
	require.NoError(t, listErr)
	require.Zero(t, total, "no orphaned rows may persist")
}

func TestCreateOrganizationReportsMissingActivityIDs(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	building := store.PutBuilding("дом", domain.Point{Lat: 55, Lon: 37})
	food, err := store.Activities().Insert(ctx, domain.Activity{Name: "Еда", Level: 1})
	require.NoError(t, err)

	_, err = store.Organizations().Create(ctx, domain.NewOrganization{
		Name:        "лавка",
		BuildingID:  building.ID,
		ActivityIDs: []int64{food.ID, 77, 42},
	})
	require.ErrorIs(t, err, domain.ErrNotFound)

	var notFound *domain.NotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, "activity", notFound.Entity)
	require.Equal(t, []int64{42, 77}, notFound.IDs)

	_, total, listErr := store.Organizations().List(ctx, domain.OrganizationFilter{}, domain.PageRequest{Limit: 10})
	require.NoError(t, listErr)
	require.Zero(t, total)
}

func TestActivityMembershipFilter(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	building := store.PutBuilding("дом", domain.Point{Lat: 55, Lon: 37})
	food, err := store.Activities().Insert(ctx, domain.Activity{Name: "Еда", Level: 1})
	require.NoError(t, err)
	meat, err := store.Activities().Insert(ctx, domain.Activity{Name: "Мясная продукция", ParentID: &food.ID, Level: 2})
	require.NoError(t, err)

	seedOrg(t, store, "мясная лавка", building.ID, meat.ID)
	seedOrg(t, store, "без деятельности", building.ID)

	items, total, err := store.Organizations().List(ctx, domain.OrganizationFilter{
		ActivityIDs: []int64{food.ID, meat.ID},
	}, domain.PageRequest{Limit: 10})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "мясная лавка", items[0].Name)
}

func TestInsertActivityDuplicateName(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	_, err := store.Activities().Insert(ctx, domain.Activity{Name: "Еда", Level: 1})
	require.NoError(t, err)

	_, err = store.Activities().Insert(ctx, domain.Activity{Name: "еда", Level: 1})
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestHydrationIsEager(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	building := store.PutBuilding("г. Москва, ул. Ленина 1", domain.Point{Lat: 55.7558, Lon: 37.6173})
	food, err := store.Activities().Insert(ctx, domain.Activity{Name: "Еда", Level: 1})
	require.NoError(t, err)

	created, err := store.Organizations().Create(ctx, domain.NewOrganization{
		Name:        "ООО Рога и Копыта",
		BuildingID:  building.ID,
		Phones:      []string{"2-222-222", "3-333-333"},
		ActivityIDs: []int64{food.ID},
	})
	require.NoError(t, err)

	fetched, err := store.Organizations().Get(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	require.Equal(t, []string{"2-222-222", "3-333-333"}, fetched.Phones)
	require.Equal(t, building.Address, fetched.Building.Address)
	require.Equal(t, building.Location, fetched.Building.Location)
	require.Len(t, fetched.Activities, 1)
	require.Equal(t, domain.ActivityRef{ID: food.ID, Name: "Еда", Level: 1}, fetched.Activities[0])
}

func TestGreatCircleDistance(t *testing.T) {
	moscow := domain.Point{Lat: 55.7558, Lon: 37.6173}
	spb := domain.Point{Lat: 59.9343, Lon: 30.3351}

	d := greatCircleMeters(moscow, spb)
	// Moscow to Saint Petersburg is roughly 634 km.
	require.InDelta(t, 634_000, d, 5_000)

	require.Zero(t, greatCircleMeters(moscow, moscow))
}
