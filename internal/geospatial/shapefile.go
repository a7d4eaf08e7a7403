package geospatial

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/ubd-geolab/spatial-cli/internal/model"
)

// LoadRegions reads polygon features from a shapefile and returns them as
// Regions at the given level. The id and name attribute fields are matched
// case-insensitively; a feature with a missing or empty id field is rejected
// rather than coerced. Records with missing or non-polygon geometry are
// skipped and counted.
func LoadRegions(shpPath string, level model.Level, idField, nameField string) ([]model.Region, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "geospatial: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}

	idIdx, ok := fieldIdx[strings.ToLower(idField)]
	if !ok {
		return nil, eris.Errorf("geospatial: shapefile %s has no field %q", shpPath, idField)
	}
	nameIdx, hasName := fieldIdx[strings.ToLower(nameField)]

	var regions []model.Region
	var skipped int
	seq := 0

	for reader.Next() {
		_, shape := reader.Shape()
		seq++

		poly, ok := shape.(*shp.Polygon)
		if !ok || poly == nil {
			skipped++
			continue
		}
		g := polygonToMultiPolygon(poly)
		if g == nil {
			skipped++
			continue
		}

		id := strings.TrimSpace(strings.TrimRight(reader.Attribute(idIdx), "\x00"))
		if id == "" {
			skipped++
			continue
		}
		name := id
		if hasName {
			if v := strings.TrimSpace(strings.TrimRight(reader.Attribute(nameIdx), "\x00")); v != "" {
				name = v
			}
		}

		regions = append(regions, model.Region{
			ID:       id,
			Name:     name,
			Level:    level,
			Geometry: g,
		})
	}

	if skipped > 0 {
		zap.L().Warn("geospatial: rejected shapefile records",
			zap.String("path", shpPath),
			zap.Int("rejected", skipped),
		)
	}
	if len(regions) == 0 {
		return nil, eris.Errorf("geospatial: no usable polygon records in %s", shpPath)
	}

	return regions, nil
}

// LoadBoundary reads the first polygon feature from a shapefile, for use as
// a study-area outline.
func LoadBoundary(shpPath string) (geom.T, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "geospatial: open boundary shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok || poly == nil {
			continue
		}
		if g := polygonToMultiPolygon(poly); g != nil {
			return g, nil
		}
	}
	return nil, eris.Errorf("geospatial: no polygon records in %s", shpPath)
}

// polygonToMultiPolygon converts a shapefile Polygon to a geom.MultiPolygon.
// Each shapefile part becomes a single-ring polygon; hole association is not
// reconstructed, which is sufficient for contiguity and containment over
// administrative boundary files without islands-in-lakes.
func polygonToMultiPolygon(p *shp.Polygon) geom.T {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		var end int32
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		} else {
			end = int32(len(p.Points))
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("geospatial: skipping malformed polygon ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("geospatial: skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

// ringsOf returns the flat coordinate rings of a Polygon or MultiPolygon.
func ringsOf(g geom.T) [][]float64 {
	switch t := g.(type) {
	case *geom.Polygon:
		rings := make([][]float64, 0, t.NumLinearRings())
		for i := 0; i < t.NumLinearRings(); i++ {
			rings = append(rings, t.LinearRing(i).FlatCoords())
		}
		return rings
	case *geom.MultiPolygon:
		var rings [][]float64
		for i := 0; i < t.NumPolygons(); i++ {
			p := t.Polygon(i)
			for j := 0; j < p.NumLinearRings(); j++ {
				rings = append(rings, p.LinearRing(j).FlatCoords())
			}
		}
		return rings
	default:
		return nil
	}
}
