package domain

import "time"

// Activity is a node in the business-category taxonomy. The tree is at
// most three levels deep; Level is derived from the parent chain on
// insert and never changes afterwards.
type Activity struct {
	ID        int64
	Name      string
	ParentID  *int64
	Level     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ActivityNode is an Activity together with its direct children,
// recursively. Siblings are ordered by id ascending.
type ActivityNode struct {
	Activity
	Children []*ActivityNode
}

// ActivityRef is the compact membership view embedded in organizations.
type ActivityRef struct {
	ID    int64
	Name  string
	Level int
}

// Building is a physical location hosting zero or more organizations.
type Building struct {
	ID        int64
	Address   string
	Location  Point
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Organization is a directory entry. Reads always return it fully
// hydrated: phones, activity memberships and the building summary.
type Organization struct {
	ID         int64
	Name       string
	BuildingID int64
	Building   Building
	Phones     []string
	Activities []ActivityRef
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Point is a WGS84 coordinate pair in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// Valid reports whether the point lies in the latitude/longitude range.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Bounds is an axis-aligned latitude/longitude rectangle.
type Bounds struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Contains reports whether the point falls inside the box, edges included.
func (b Bounds) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}

// RadiusFilter selects locations within Meters great-circle distance of
// Center. Meters of zero matches only buildings at the exact point.
type RadiusFilter struct {
	Center Point
	Meters float64
}

// PageRequest carries limit/offset pagination. A zero Limit means "use the
// configured default"; negative values are rejected during normalization.
type PageRequest struct {
	Limit  int
	Offset int
}

const (
	// DefaultPageLimit applies when the caller leaves Limit unset.
	DefaultPageLimit = 100
	// MaxPageLimit caps the page size regardless of what was requested.
	MaxPageLimit = 1000
)

// Normalize validates the request and applies default/max bounds.
func (p PageRequest) Normalize() (PageRequest, error) {
	if p.Limit < 0 {
		return PageRequest{}, Validation("limit must be > 0")
	}
	if p.Offset < 0 {
		return PageRequest{}, Validation("offset must be >= 0")
	}
	if p.Limit == 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p, nil
}

// Page is one slice of a stable total ordering, with the overall match
// count so callers can paginate.
type Page struct {
	Items  []Organization
	Limit  int
	Offset int
	Total  int64
}
