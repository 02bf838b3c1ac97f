package models

// Coordinates is a WGS84 latitude/longitude pair. The zero value (0,0) is a
// reserved "unknown" sentinel and is never treated as a real fix.
type Coordinates struct {
	Lat float64 `json:"lat" db:"lat"`
	Lng float64 `json:"lng" db:"lng"`
}

// IsZero reports whether the coordinates are the reserved unknown sentinel.
func (c Coordinates) IsZero() bool {
	return c.Lat == 0 && c.Lng == 0
}

// Address is a resolved postal address with its coordinates. Once attached to
// a request or a mechanic's availability it is never mutated.
type Address struct {
	Formatted   string      `json:"formatted"`
	Street      string      `json:"street,omitempty"`
	City        string      `json:"city"`
	Country     string      `json:"country"`
	PostalCode  string      `json:"postal_code,omitempty"`
	Coordinates Coordinates `json:"coordinates"`
}

// GeofenceKind distinguishes what a circular region is used for.
type GeofenceKind string

const (
	GeofenceServiceArea  GeofenceKind = "service_area"
	GeofenceRestriction  GeofenceKind = "restriction"
	GeofenceNotification GeofenceKind = "notification"
)

// GeofenceRegion is a circular region on the sphere. A point is inside iff
// its great-circle distance to Center does not exceed RadiusM.
type GeofenceRegion struct {
	Center  Coordinates  `json:"center"`
	RadiusM float64      `json:"radius_m"`
	Enabled bool         `json:"enabled"`
	Kind    GeofenceKind `json:"kind"`
}
