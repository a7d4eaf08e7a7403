package geospatial

import (
	"fmt"
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/ubd-geolab/spatial-cli/internal/model"
)

// DegreesPerKM is an approximate conversion factor for latitude degrees to
// kilometers. At mid-latitudes, 1 degree of latitude is approximately 111 km.
const DegreesPerKM = 1.0 / 111.0

// GenerateGrid tessellates the bounding box of the study area into square
// cells of the given size in kilometers, keeping only cells that intersect
// the study-area polygon. Cell IDs encode the row/column position so the
// output is deterministic for a given area and cell size.
func GenerateGrid(area geom.T, cellKM float64) ([]model.Region, error) {
	if cellKM <= 0 {
		return nil, eris.New("grid: cell_km must be positive")
	}
	if area == nil {
		return nil, eris.New("grid: study area is required")
	}

	step := cellKM * DegreesPerKM
	b := area.Bounds()
	minX, minY := b.Min(0), b.Min(1)
	maxX, maxY := b.Max(0), b.Max(1)

	cols := int(math.Ceil((maxX - minX) / step))
	rows := int(math.Ceil((maxY - minY) / step))
	if cols <= 0 || rows <= 0 {
		return nil, eris.New("grid: study area has empty extent")
	}

	var cells []model.Region
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			x0 := minX + float64(c)*step
			y0 := minY + float64(r)*step
			cell := squareCell(x0, y0, step)
			if !IntersectsArea(cell, area) {
				continue
			}
			cells = append(cells, model.Region{
				ID:       fmt.Sprintf("cell-%03d-%03d", r, c),
				Name:     fmt.Sprintf("grid cell r%d c%d", r, c),
				Level:    model.LevelGrid,
				Geometry: cell,
			})
		}
	}

	if len(cells) == 0 {
		return nil, eris.New("grid: no cells intersect the study area")
	}

	zap.L().Info("grid: generated cells",
		zap.Float64("cell_km", cellKM),
		zap.Int("rows", rows),
		zap.Int("cols", cols),
		zap.Int("kept", len(cells)),
	)
	return cells, nil
}

// ClipToArea filters regions to those intersecting the study-area polygon,
// discarding out-of-scope cells. The relative order of survivors is kept.
func ClipToArea(regions []model.Region, area geom.T) []model.Region {
	if area == nil {
		return regions
	}
	var out []model.Region
	for _, r := range regions {
		if r.Geometry != nil && IntersectsArea(r.Geometry, area) {
			out = append(out, r)
		}
	}
	return out
}

// IntersectsArea reports whether geometry g intersects the study area. The
// test is conservative for convex cells over a fine tessellation: bounding
// boxes must overlap, and either a cell corner or center lies in the area,
// or an area boundary vertex lies within the cell's bounding box.
func IntersectsArea(g, area geom.T) bool {
	if g == nil || area == nil {
		return false
	}
	gb, ab := g.Bounds(), area.Bounds()
	if !gb.Overlaps(geom.XY, ab) {
		return false
	}

	// Cell corners and center against the area.
	cx := (gb.Min(0) + gb.Max(0)) / 2
	cy := (gb.Min(1) + gb.Max(1)) / 2
	probes := [][2]float64{
		{cx, cy},
		{gb.Min(0), gb.Min(1)},
		{gb.Min(0), gb.Max(1)},
		{gb.Max(0), gb.Min(1)},
		{gb.Max(0), gb.Max(1)},
	}
	for _, p := range probes {
		if Contains(area, p[0], p[1]) {
			return true
		}
	}

	// Area boundary passing through the cell.
	for _, ring := range ringsOf(area) {
		for i := 0; i+1 < len(ring); i += 2 {
			if gb.OverlapsPoint(geom.XY, geom.Coord{ring[i], ring[i+1]}) {
				return true
			}
		}
	}
	return false
}

func squareCell(x0, y0, step float64) *geom.Polygon {
	return geom.NewPolygonFlat(geom.XY, []float64{
		x0, y0,
		x0 + step, y0,
		x0 + step, y0 + step,
		x0, y0 + step,
		x0, y0,
	}, []int{10}).SetSRID(4326)
}
