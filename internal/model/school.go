package model

// Sector identifies the administering body of a school.
type Sector string

const (
	SectorMOE     Sector = "moe"     // Ministry of Education
	SectorMORA    Sector = "mora"    // Ministry of Religious Affairs
	SectorPrivate Sector = "private" // private and international schools
)

// School is a geocoded point entity. Schools are read-only inputs: they are
// used to populate the study variable of enclosing regions via a
// point-in-polygon join and are not otherwise mutated.
type School struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Sector  Sector  `json:"sector"`
	Cluster int     `json:"cluster"` // school cluster 1-6
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}
