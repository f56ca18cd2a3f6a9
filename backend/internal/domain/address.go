package domain

import "fmt"

// Address is an immutable postal address with an optional geocoded Coordinate.
type Address struct {
	Street     string      `json:"street"`
	City       string      `json:"city"`
	State      string      `json:"state"`
	PostalCode string      `json:"postal_code"`
	Country    string      `json:"country"`
	Coordinate *Coordinate `json:"coordinate,omitempty"`
}

// String renders a human-readable single-line address, matching the
// "street, city, state" shape the teacher builds in property_service.go.
func (a Address) String() string {
	return fmt.Sprintf("%s, %s, %s %s", a.Street, a.City, a.State, a.PostalCode)
}

// HasCoordinate reports whether the address has been geocoded.
func (a Address) HasCoordinate() bool {
	return a.Coordinate != nil
}
