package types

import "fmt"

// Coordinates is a WGS84 point. Persisted as two plain columns when embedded
// into a model.
type Coordinates struct {
	Lat float64 `json:"lat" gorm:"column:lat"`
	Lng float64 `json:"lng" gorm:"column:lng"`
}

// Validate bounds-checks the point.
func (c Coordinates) Validate() error {
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("latitude %f out of range", c.Lat)
	}
	if c.Lng < -180 || c.Lng > 180 {
		return fmt.Errorf("longitude %f out of range", c.Lng)
	}
	return nil
}

// IsZero reports whether the point is the zero value. The platform operates
// nowhere near (0,0), so the zero value doubles as "unset".
func (c Coordinates) IsZero() bool {
	return c.Lat == 0 && c.Lng == 0
}
