package domain

// SearchRequest selects organizations by geography. Exactly one of Radius
// and Bounds must be set; supplying neither or both is a validation error.
type SearchRequest struct {
	Radius *RadiusFilter
	Bounds *Bounds
	Page   PageRequest
}

// Mode names the active selection mode, for logs and metrics.
func (r SearchRequest) Mode() string {
	if r.Radius != nil {
		return "radius"
	}
	return "bounds"
}

func (r SearchRequest) validate() error {
	if (r.Radius == nil) == (r.Bounds == nil) {
		return Validation("exactly one of radius or bounding box parameters must be provided")
	}
	if r.Radius != nil {
		if !r.Radius.Center.Valid() {
			return Validation("center must have latitude in [-90,90] and longitude in [-180,180]")
		}
		// Zero is a legal boundary case: it matches only buildings at the
		// exact center point.
		if r.Radius.Meters < 0 {
			return Validation("radius_m must not be negative")
		}
	}
	if b := r.Bounds; b != nil {
		if !(Point{Lat: b.MinLat, Lon: b.MinLon}).Valid() || !(Point{Lat: b.MaxLat, Lon: b.MaxLon}).Valid() {
			return Validation("bounding box coordinates are out of range")
		}
		if b.MinLat > b.MaxLat {
			return Validation("min_lat must not exceed max_lat")
		}
		if b.MinLon > b.MaxLon {
			return Validation("min_lon must not exceed max_lon")
		}
	}
	return nil
}
