package model

import (
	"github.com/twpayne/go-geom"
)

// Level identifies the granularity of a spatial unit.
type Level string

const (
	LevelMukim   Level = "mukim"   // sub-district
	LevelKampong Level = "kampong" // village
	LevelGrid    Level = "grid"    // generated square grid cell
)

// Region is an immutable spatial unit of analysis: an administrative polygon
// (mukim or kampong) or a generated grid cell. The study variable SchoolCount
// is computed once by spatial join and never updated afterward.
type Region struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Level       Level   `json:"level"`
	Geometry    geom.T  `json:"-"` // Polygon or MultiPolygon, WGS84
	SchoolCount int     `json:"school_count"`
	Population  float64 `json:"population,omitempty"`
}

// Centroid returns the arithmetic mean of the region's exterior ring
// vertices. Good enough for labeling and distance ordering; not an
// area-weighted centroid.
func (r *Region) Centroid() (lng, lat float64) {
	if r.Geometry == nil {
		return 0, 0
	}
	flat := r.Geometry.FlatCoords()
	stride := r.Geometry.Stride()
	if len(flat) < stride || stride < 2 {
		return 0, 0
	}
	n := len(flat) / stride
	for i := 0; i < len(flat); i += stride {
		lng += flat[i]
		lat += flat[i+1]
	}
	return lng / float64(n), lat / float64(n)
}
