package geospatial

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"

	"github.com/ubd-geolab/spatial-cli/internal/model"
)

// JoinResult is the outcome of a point-in-polygon join of schools onto
// regions. Counts is indexed like the region slice the join ran over.
// Unmatched schools are tracked, not silently dropped, since they affect
// the validity of the study variable.
type JoinResult struct {
	Counts    []int
	Assigned  map[string]string // school ID -> region ID
	Unmatched []model.School
}

// Contains reports whether the point (lng, lat) lies inside the polygonal
// geometry, using the even-odd rule over all rings. Boundary points follow
// the ring test's convention.
func Contains(g geom.T, lng, lat float64) bool {
	if g == nil {
		return false
	}
	p := geom.Coord{lng, lat}
	inside := false
	for _, ring := range ringsOf(g) {
		if xy.IsPointInRing(geom.XY, p, ring) {
			inside = !inside
		}
	}
	return inside
}

// JoinSchools assigns each school to the first region containing it and
// returns per-region school counts. Regions are prefiltered by bounding box
// before the precise containment test.
func JoinSchools(regions []model.Region, schools []model.School) *JoinResult {
	res := &JoinResult{
		Counts:   make([]int, len(regions)),
		Assigned: make(map[string]string, len(schools)),
	}

	bounds := make([]*geom.Bounds, len(regions))
	for i := range regions {
		if regions[i].Geometry != nil {
			bounds[i] = regions[i].Geometry.Bounds()
		}
	}

	for _, s := range schools {
		matched := false
		for i := range regions {
			if bounds[i] == nil {
				continue
			}
			if !bounds[i].OverlapsPoint(geom.XY, geom.Coord{s.Lng, s.Lat}) {
				continue
			}
			if Contains(regions[i].Geometry, s.Lng, s.Lat) {
				res.Counts[i]++
				res.Assigned[s.ID] = regions[i].ID
				matched = true
				break
			}
		}
		if !matched {
			res.Unmatched = append(res.Unmatched, s)
		}
	}

	if len(res.Unmatched) > 0 {
		zap.L().Warn("geospatial: schools outside every region boundary",
			zap.Int("unmatched", len(res.Unmatched)),
			zap.Int("total", len(schools)),
		)
	}

	return res
}

// ApplyCounts returns a copy of regions with the study variable populated
// from a join result. The inputs are left unmodified.
func ApplyCounts(regions []model.Region, res *JoinResult) []model.Region {
	out := make([]model.Region, len(regions))
	copy(out, regions)
	for i := range out {
		out[i].SchoolCount = res.Counts[i]
	}
	return out
}
