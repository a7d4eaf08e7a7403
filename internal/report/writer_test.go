package report

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/ubd-geolab/spatial-cli/internal/autocorr"
	"github.com/ubd-geolab/spatial-cli/internal/model"
	"github.com/ubd-geolab/spatial-cli/internal/regress"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestNewWriter_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	_, err := NewWriter(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestWriteRegionCounts(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)

	regions := []model.Region{
		{ID: "mk-001", Name: "Kianggeh", Level: model.LevelMukim, SchoolCount: 7, Population: 12500},
		{ID: "mk-002", Name: "Berakas A", Level: model.LevelMukim, SchoolCount: 3, Population: 8000},
	}

	path, err := w.WriteRegionCounts(regions)
	require.NoError(t, err)

	rows := readCSV(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"region_id", "name", "level", "school_count", "population"}, rows[0])
	assert.Equal(t, []string{"mk-001", "Kianggeh", "mukim", "7", "12500"}, rows[1])
	assert.Equal(t, "3", rows[2][3])
}

func TestWriteMoran(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)

	path, err := w.WriteMoran(&autocorr.MoranResult{
		I: 0.5, Expected: -0.04, Variance: 0.01, ZScore: 5.4, PValue: 0.0001,
		Assumption: autocorr.AssumptionRandomization, N: 26,
	})
	require.NoError(t, err)

	rows := readCSV(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, "0.5", rows[1][0])
	assert.Equal(t, "randomization", rows[1][5])
	assert.Equal(t, "26", rows[1][6])
}

func TestWriteHotspots(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)

	recs := []autocorr.HotspotRecord{
		{RegionID: "cell-001-002", GiStarResult: autocorr.GiStarResult{
			Ratio: 0.25, ZScore: 3.1, PValue: 0.002, Class: autocorr.ClassHotspot, Defined: true,
		}},
	}
	path, err := w.WriteHotspots(recs)
	require.NoError(t, err)

	rows := readCSV(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"cell-001-002", "0.25", "3.1", "0.002", "hotspot", "true"}, rows[1])
}

func TestWriteWorkbook(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)

	regions := []model.Region{{ID: "mk-001", Name: "Kianggeh", SchoolCount: 7, Population: 12500}}
	moran := &autocorr.MoranResult{I: 0.5, Assumption: autocorr.AssumptionNormality, N: 26}
	recs := []autocorr.HotspotRecord{{RegionID: "cell-001-002", GiStarResult: autocorr.GiStarResult{
		Ratio: 0.25, ZScore: 3.1, PValue: 0.002, Class: autocorr.ClassHotspot, Defined: true,
	}}}
	reg := &regress.Result{Slope: 0.002, Intercept: 1.5, R2: 0.64, N: 26}

	path, err := w.WriteWorkbook(regions, moran, recs, reg)
	require.NoError(t, err)

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)

	names := make([]string, 0, len(f.Sheets))
	for _, s := range f.Sheets {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"region_counts", "moran", "hotspots", "regression"}, names)

	// Spot-check one value per sheet.
	assert.Equal(t, "mk-001", f.Sheets[0].Rows[1].Cells[0].String())
	assert.Equal(t, "normality", f.Sheets[1].Rows[1].Cells[5].String())
	assert.Equal(t, "hotspot", f.Sheets[2].Rows[1].Cells[4].String())
}

func TestWriteWorkbook_SkipsMissingSections(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)

	path, err := w.WriteWorkbook(nil, &autocorr.MoranResult{I: 0.1, N: 5}, nil, nil)
	require.NoError(t, err)

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)
	assert.Equal(t, "moran", f.Sheets[0].Name)
}
