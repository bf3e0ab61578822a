package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/k1nque/org-directory/internal/domain"
	"github.com/k1nque/org-directory/internal/events"
	"github.com/k1nque/org-directory/internal/observability"
)

// OrganizationRepository provides Postgres-backed organization
// persistence. Listing composes the facade's filter into one WHERE
// clause; hydration is an explicit batch-fetch by id sets rather than
// per-row lookups.
type OrganizationRepository struct {
	pool *pgxpool.Pool
}

// NewOrganizationRepository constructs an OrganizationRepository.
func NewOrganizationRepository(pool *pgxpool.Pool) *OrganizationRepository {
	return &OrganizationRepository{pool: pool}
}

const orgSelect = `SELECT o.id, o.name, o.building_id, o.created_at, o.updated_at,
        b.address, ST_Y(b.location::geometry), ST_X(b.location::geometry), b.created_at, b.updated_at
        FROM organizations o JOIN buildings b ON b.id = o.building_id`

// Get returns the hydrated organization or nil when the id is unknown.
func (r *OrganizationRepository) Get(ctx context.Context, id int64) (*domain.Organization, error) {
	row := r.pool.QueryRow(ctx, orgSelect+` WHERE o.id=$1`, id)
	org, err := scanOrganization(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storageErr("get organization", err)
	}

	hydrated, err := r.attach(ctx, []domain.Organization{*org})
	if err != nil {
		return nil, err
	}
	return &hydrated[0], nil
}

// List executes the composed predicate and returns one deterministic page
// ordered by organization id ascending, plus the total match count.
func (r *OrganizationRepository) List(ctx context.Context, filter domain.OrganizationFilter, page domain.PageRequest) ([]domain.Organization, int64, error) {
	where, args := buildFilter(filter)

	var total int64
	countQuery := `SELECT COUNT(*) FROM organizations o JOIN buildings b ON b.id = o.building_id` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, storageErr("count organizations", err)
	}

	pageQuery := fmt.Sprintf("%s%s ORDER BY o.id LIMIT $%d OFFSET $%d", orgSelect, where, len(args)+1, len(args)+2)
	args = append(args, page.Limit, page.Offset)

	rows, err := r.pool.Query(ctx, pageQuery, args...)
	if err != nil {
		return nil, 0, storageErr("list organizations", err)
	}
	defer rows.Close()

	orgs := make([]domain.Organization, 0, page.Limit)
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, 0, storageErr("list organizations", err)
		}
		orgs = append(orgs, *org)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, storageErr("list organizations", err)
	}

	orgs, err = r.attach(ctx, orgs)
	if err != nil {
		return nil, 0, err
	}
	return orgs, total, nil
}

// Create verifies the building and activity references, then inserts the
// organization, its phones, its memberships and the outbox event as one
// transaction. Nothing persists when any referenced id is missing.
func (r *OrganizationRepository) Create(ctx context.Context, input domain.NewOrganization) (*domain.Organization, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, storageErr("create organization", err)
	}
	defer tx.Rollback(ctx)

	var building domain.Building
	err = tx.QueryRow(ctx, `SELECT `+buildingColumns+` FROM buildings WHERE id=$1`, input.BuildingID).
		Scan(&building.ID, &building.Address, &building.Location.Lat, &building.Location.Lon, &building.CreatedAt, &building.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFoundByID("building", input.BuildingID)
		}
		return nil, storageErr("create organization", err)
	}

	refs, missing, err := lookupActivityRefs(ctx, tx, input.ActivityIDs)
	if err != nil {
		return nil, storageErr("create organization", err)
	}
	if len(missing) > 0 {
		return nil, &domain.NotFoundError{Entity: "activity", IDs: missing}
	}

	now := time.Now().UTC()
	org := domain.Organization{
		Name:       input.Name,
		BuildingID: input.BuildingID,
		Building:   building,
		Phones:     append([]string(nil), input.Phones...),
		Activities: refs,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	const insertOrg = `INSERT INTO organizations (name, building_id, created_at, updated_at)
        VALUES ($1,$2,$3,$3) RETURNING id`
	if err := tx.QueryRow(ctx, insertOrg, org.Name, org.BuildingID, now).Scan(&org.ID); err != nil {
		return nil, mapInsertError("create organization", err)
	}

	for _, phone := range input.Phones {
		if _, err := tx.Exec(ctx, `INSERT INTO organization_phones (organization_id, phone_number) VALUES ($1,$2)`, org.ID, phone); err != nil {
			return nil, storageErr("create organization phones", err)
		}
	}
	for _, activityID := range input.ActivityIDs {
		if _, err := tx.Exec(ctx, `INSERT INTO organization_activities (organization_id, activity_id) VALUES ($1,$2)`, org.ID, activityID); err != nil {
			return nil, storageErr("create organization memberships", err)
		}
	}

	if err := insertOutboxEvent(ctx, tx, "organization", org.ID, events.TypeOrganizationCreated, events.TopicOrganizations, events.OrganizationCreated{
		OrganizationID: org.ID,
		Name:           org.Name,
		BuildingID:     org.BuildingID,
		ActivityIDs:    input.ActivityIDs,
		OccurredAt:     now,
	}); err != nil {
		return nil, storageErr("create organization outbox", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storageErr("create organization", err)
	}
	observability.RecordOrganizationPersisted(now)
	return &org, nil
}

// buildFilter renders active filter fields into a WHERE clause. At most
// one of Radius and Bounds arrives here; the facade validated that.
func buildFilter(filter domain.OrganizationFilter) (string, []interface{}) {
	clauses := make([]string, 0, 4)
	args := make([]interface{}, 0, 8)

	if filter.ActivityIDs != nil {
		args = append(args, filter.ActivityIDs)
		clauses = append(clauses, fmt.Sprintf(
			"o.id IN (SELECT organization_id FROM organization_activities WHERE activity_id = ANY($%d))", len(args)))
	}
	if filter.Name != "" {
		args = append(args, filter.Name)
		clauses = append(clauses, fmt.Sprintf("o.name ILIKE '%%' || $%d || '%%'", len(args)))
	}
	if filter.BuildingID != nil {
		args = append(args, *filter.BuildingID)
		clauses = append(clauses, fmt.Sprintf("o.building_id = $%d", len(args)))
	}
	if filter.Radius != nil {
		args = append(args, filter.Radius.Center.Lon, filter.Radius.Center.Lat, filter.Radius.Meters)
		clauses = append(clauses, fmt.Sprintf(
			"ST_DWithin(b.location, ST_SetSRID(ST_MakePoint($%d,$%d),4326)::geography, $%d)",
			len(args)-2, len(args)-1, len(args)))
	}
	if filter.Bounds != nil {
		args = append(args, filter.Bounds.MinLat, filter.Bounds.MaxLat, filter.Bounds.MinLon, filter.Bounds.MaxLon)
		clauses = append(clauses, fmt.Sprintf(
			"ST_Y(b.location::geometry) BETWEEN $%d AND $%d AND ST_X(b.location::geometry) BETWEEN $%d AND $%d",
			len(args)-3, len(args)-2, len(args)-1, len(args)))
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanOrganization(row pgx.Row) (*domain.Organization, error) {
	var org domain.Organization
	err := row.Scan(&org.ID, &org.Name, &org.BuildingID, &org.CreatedAt, &org.UpdatedAt,
		&org.Building.Address, &org.Building.Location.Lat, &org.Building.Location.Lon,
		&org.Building.CreatedAt, &org.Building.UpdatedAt)
	if err != nil {
		return nil, err
	}
	org.Building.ID = org.BuildingID
	return &org, nil
}

// attach batch-fetches phones and activity refs for the page by id set.
func (r *OrganizationRepository) attach(ctx context.Context, orgs []domain.Organization) ([]domain.Organization, error) {
	if len(orgs) == 0 {
		return orgs, nil
	}

	ids := make([]int64, 0, len(orgs))
	index := make(map[int64]int, len(orgs))
	for i := range orgs {
		orgs[i].Phones = []string{}
		orgs[i].Activities = []domain.ActivityRef{}
		ids = append(ids, orgs[i].ID)
		index[orgs[i].ID] = i
	}

	phoneRows, err := r.pool.Query(ctx,
		`SELECT organization_id, phone_number FROM organization_phones WHERE organization_id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, storageErr("fetch phones", err)
	}
	defer phoneRows.Close()
	for phoneRows.Next() {
		var orgID int64
		var phone string
		if err := phoneRows.Scan(&orgID, &phone); err != nil {
			return nil, storageErr("fetch phones", err)
		}
		i := index[orgID]
		orgs[i].Phones = append(orgs[i].Phones, phone)
	}
	if err := phoneRows.Err(); err != nil {
		return nil, storageErr("fetch phones", err)
	}

	activityRows, err := r.pool.Query(ctx,
		`SELECT oa.organization_id, a.id, a.name, a.level
        FROM organization_activities oa JOIN activities a ON a.id = oa.activity_id
        WHERE oa.organization_id = ANY($1) ORDER BY a.id`, ids)
	if err != nil {
		return nil, storageErr("fetch memberships", err)
	}
	defer activityRows.Close()
	for activityRows.Next() {
		var orgID int64
		var ref domain.ActivityRef
		if err := activityRows.Scan(&orgID, &ref.ID, &ref.Name, &ref.Level); err != nil {
			return nil, storageErr("fetch memberships", err)
		}
		i := index[orgID]
		orgs[i].Activities = append(orgs[i].Activities, ref)
	}
	if err := activityRows.Err(); err != nil {
		return nil, storageErr("fetch memberships", err)
	}

	return orgs, nil
}

func lookupActivityRefs(ctx context.Context, tx pgx.Tx, ids []int64) ([]domain.ActivityRef, []int64, error) {
	refs := make([]domain.ActivityRef, 0, len(ids))
	if len(ids) == 0 {
		return refs, nil, nil
	}

	rows, err := tx.Query(ctx, `SELECT id, name, level FROM activities WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	found := make(map[int64]struct{}, len(ids))
	for rows.Next() {
		var ref domain.ActivityRef
		if err := rows.Scan(&ref.ID, &ref.Name, &ref.Level); err != nil {
			return nil, nil, err
		}
		refs = append(refs, ref)
		found[ref.ID] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var missing []int64
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	return refs, missing, nil
}
