package domain

import "context"

// ActivityRepository captures taxonomy persistence. Lookups return nil
// without an error when the id does not exist.
type ActivityRepository interface {
	Get(ctx context.Context, id int64) (*Activity, error)
	ChildrenOf(ctx context.Context, parentID int64) ([]Activity, error)
	ListAll(ctx context.Context) ([]Activity, error)
	List(ctx context.Context, level int, page PageRequest) ([]Activity, error)
	Insert(ctx context.Context, activity Activity) (*Activity, error)
}

// BuildingRepository captures building reads.
type BuildingRepository interface {
	Get(ctx context.Context, id int64) (*Building, error)
	List(ctx context.Context, page PageRequest) ([]Building, int64, error)
}

// OrganizationFilter is the composed predicate the facade hands to
// storage. Zero-value fields are inactive; at most one of Radius and
// Bounds is set by the time a filter reaches a repository.
type OrganizationFilter struct {
	// ActivityIDs, when non-nil, restricts results to organizations whose
	// membership set intersects the ids (a descendant closure).
	ActivityIDs []int64
	// Name, when non-empty, is matched case-insensitively as a substring.
	Name string
	// BuildingID, when non-nil, restricts results to one building.
	BuildingID *int64
	Radius     *RadiusFilter
	Bounds     *Bounds
}

// NewOrganization is the payload for organization creation. The insert is
// all-or-nothing: the organization row, its phone rows and its membership
// rows land in one transaction or not at all.
type NewOrganization struct {
	Name        string
	BuildingID  int64
	Phones      []string
	ActivityIDs []int64
}

// OrganizationRepository captures organization persistence. List returns
// fully hydrated records in a stable order (id ascending) plus the total
// match count for the filter.
type OrganizationRepository interface {
	Get(ctx context.Context, id int64) (*Organization, error)
	List(ctx context.Context, filter OrganizationFilter, page PageRequest) ([]Organization, int64, error)
	Create(ctx context.Context, org NewOrganization) (*Organization, error)
}

// TreeCache is a read-through cache for the assembled activity forest.
// Get returns (nil, nil) on a miss.
type TreeCache interface {
	Get(ctx context.Context) ([]*ActivityNode, error)
	Set(ctx context.Context, forest []*ActivityNode) error
	Invalidate(ctx context.Context) error
}
