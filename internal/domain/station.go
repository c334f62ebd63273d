package domain

import "slices"

// Station is a checkpoint code broadcast by one reader on the course.
type Station string

const (
	// StationA is the course entry. Seeing it always opens a new journey.
	StationA Station = "A"
	StationB Station = "B"
	StationC Station = "C"
	StationV Station = "V"
	// StationH is the course exit. Seeing it always closes the journey.
	StationH Station = "H"
)

// Stations lists every recognised station in course order.
// B, C and V have no required order relative to each other.
var Stations = []Station{StationA, StationB, StationC, StationV, StationH}

// Valid reports whether s is one of the recognised stations.
func (s Station) Valid() bool {
	return slices.Contains(Stations, s)
}

// IsEntry reports whether s opens a journey.
func (s Station) IsEntry() bool { return s == StationA }

// IsExit reports whether s closes a journey.
func (s Station) IsExit() bool { return s == StationH }
