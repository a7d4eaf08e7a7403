package geospatial

import (
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubd-geolab/spatial-cli/internal/model"
)

// writeTestShapefile writes a two-feature polygon shapefile with MUKIM_ID
// and MUKIM attributes, plus a third feature with an empty id.
func writeTestShapefile(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "mukims.shp")
	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)

	require.NoError(t, w.SetFields([]shp.Field{
		shp.StringField("MUKIM_ID", 16),
		shp.StringField("MUKIM", 32),
	}))

	features := []struct {
		id, name string
		x, y     float64
	}{
		{"mk-001", "Kianggeh", 0, 0},
		{"mk-002", "Berakas A", 1, 0},
		{"", "Nameless", 2, 0},
	}
	for i, f := range features {
		pl := shp.NewPolyLine([][]shp.Point{{
			{X: f.x, Y: f.y},
			{X: f.x + 1, Y: f.y},
			{X: f.x + 1, Y: f.y + 1},
			{X: f.x, Y: f.y + 1},
			{X: f.x, Y: f.y},
		}})
		poly := shp.Polygon(*pl)
		w.Write(&poly)
		require.NoError(t, w.WriteAttribute(i, 0, f.id))
		require.NoError(t, w.WriteAttribute(i, 1, f.name))
	}
	w.Close()

	return path
}

func TestLoadRegions(t *testing.T) {
	path := writeTestShapefile(t)

	regions, err := LoadRegions(path, model.LevelMukim, "mukim_id", "mukim")
	require.NoError(t, err)

	// The record with an empty id is rejected.
	require.Len(t, regions, 2)
	assert.Equal(t, "mk-001", regions[0].ID)
	assert.Equal(t, "Kianggeh", regions[0].Name)
	assert.Equal(t, model.LevelMukim, regions[0].Level)
	assert.Equal(t, "mk-002", regions[1].ID)
	require.NotNil(t, regions[0].Geometry)

	assert.True(t, Contains(regions[0].Geometry, 0.5, 0.5))
	assert.False(t, Contains(regions[0].Geometry, 1.5, 0.5))
}

func TestLoadRegions_MissingIDField(t *testing.T) {
	path := writeTestShapefile(t)

	_, err := LoadRegions(path, model.LevelMukim, "no_such_field", "mukim")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no field")
}

func TestLoadRegions_MissingNameFallsBackToID(t *testing.T) {
	path := writeTestShapefile(t)

	regions, err := LoadRegions(path, model.LevelMukim, "mukim_id", "absent")
	require.NoError(t, err)
	assert.Equal(t, "mk-001", regions[0].Name)
}

func TestLoadRegions_NoSuchFile(t *testing.T) {
	_, err := LoadRegions(filepath.Join(t.TempDir(), "nope.shp"), model.LevelMukim, "id", "name")
	assert.Error(t, err)
}

func TestLoadBoundary(t *testing.T) {
	path := writeTestShapefile(t)

	g, err := LoadBoundary(path)
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.True(t, Contains(g, 0.5, 0.5))
}

func TestLoadedRegionsAreContiguous(t *testing.T) {
	path := writeTestShapefile(t)

	regions, err := LoadRegions(path, model.LevelMukim, "mukim_id", "mukim")
	require.NoError(t, err)

	rel, err := BuildNeighbors(t.Context(), regions)
	require.NoError(t, err)
	assert.True(t, rel.Are(0, 1))
}
