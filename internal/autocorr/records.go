package autocorr

import (
	"github.com/ubd-geolab/spatial-cli/internal/model"
)

// HotspotRecord binds a Gi* result to the region (grid cell) it was computed
// for. Records are produced in one pass and never mutated.
type HotspotRecord struct {
	RegionID string `json:"region_id"`
	GiStarResult
}

// BindRegions attaches region identifiers to Gi* results. The results slice
// must be indexed like regions.
func BindRegions(results []GiStarResult, regions []model.Region) []HotspotRecord {
	out := make([]HotspotRecord, 0, len(results))
	for _, r := range results {
		rec := HotspotRecord{GiStarResult: r}
		if r.Index >= 0 && r.Index < len(regions) {
			rec.RegionID = regions[r.Index].ID
		}
		out = append(out, rec)
	}
	return out
}
