package types

import "strings"

// Address is a delivery destination snapshot. Stored as jsonb.
type Address struct {
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city"`
	Region     string  `json:"region"`
	PostalCode string  `json:"postal_code,omitempty"`
	Country    string  `json:"country"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
}

// Normalize fills defaults and trims whitespace in place.
func (a *Address) Normalize() {
	a.Line1 = strings.TrimSpace(a.Line1)
	a.City = strings.TrimSpace(a.City)
	a.Region = strings.TrimSpace(a.Region)
	if strings.TrimSpace(a.Country) == "" {
		a.Country = "EC"
	}
}

// Coordinates returns the geocoded point of the address.
func (a Address) Coordinates() Coordinates {
	return Coordinates{Lat: a.Lat, Lng: a.Lng}
}
