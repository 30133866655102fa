package model

import (
	"fmt"
	"strings"
)

// Location is a geographic point.
type Location struct {
	Latitude  float64
	Longitude float64
}

// String formats the location as "lat,lng" with six decimals.
func (l Location) String() string {
	return fmt.Sprintf("%.6f,%.6f", l.Latitude, l.Longitude)
}

// DistanceUnit is the unit the search API reports distances in.
type DistanceUnit string

const (
	UnitKilometer DistanceUnit = "KILOMETER"
	UnitMile      DistanceUnit = "MILE"
)

// ParseDistanceUnit normalizes user input ("km", "mile", "KILOMETER") to a DistanceUnit.
func ParseDistanceUnit(s string) (DistanceUnit, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "KILOMETER", "KILOMETERS", "KM":
		return UnitKilometer, nil
	case "MILE", "MILES", "MI":
		return UnitMile, nil
	default:
		return "", fmt.Errorf("unknown distance unit %q", s)
	}
}

// Address is the postal address of an ATM.
type Address struct {
	Line1           string
	Line2           string
	City            string
	SubdivisionCode string
	SubdivisionName string
	PostalCode      string
	CountryCode     string
	CountryName     string
}

// ServiceFlags are the named boolean capabilities of an ATM.
type ServiceFlags struct {
	HandicapAccessible           bool
	Camera                       bool
	SharedDeposit                bool
	SurchargeFreeAlliance        bool
	SupportEMV                   bool
	InternationalMaestroAccepted bool
}

// AtmRecord is one ATM location as returned by the search API.
// Records are never mutated after creation.
type AtmRecord struct {
	ID           string
	Name         string
	Distance     float64
	DistanceUnit string
	Address      Address
	Point        Location
	Services     ServiceFlags
	Availability string
	AccessFees   string
}

// SearchQuery is one page request against the search API.
type SearchQuery struct {
	Origin     Location
	Unit       DistanceUnit
	PostalCode string
	Country    string
	PageLength int
	PageOffset int
}

// Page is one page of search results.
type Page struct {
	PageOffset int
	TotalCount int
	Atms       []AtmRecord
}

// SearchCursor tracks pagination progress for a session.
type SearchCursor struct {
	PageOffset int
	PageLength int
	Exhausted  bool
}

// FetchState is the in-flight state of the fetch controller.
type FetchState int

const (
	FetchIdle FetchState = iota
	FetchInFlight
)

func (s FetchState) String() string {
	switch s {
	case FetchIdle:
		return "idle"
	case FetchInFlight:
		return "in_flight"
	default:
		return "unknown"
	}
}
