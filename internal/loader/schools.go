// Package loader reads the tabular inputs: the school listing, the
// population table, and analysis parameter profiles. Malformed rows are
// rejected at load time and counted, never coerced at use time.
package loader

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/ubd-geolab/spatial-cli/internal/model"
)

// SchoolColumns maps school listing columns to their zero-based positions.
type SchoolColumns struct {
	Name    int
	Sector  int
	Cluster int
	Lat     int
	Lng     int
}

// DefaultSchoolColumns matches the listing layout: name, sector, cluster,
// latitude, longitude.
var DefaultSchoolColumns = SchoolColumns{Name: 0, Sector: 1, Cluster: 2, Lat: 3, Lng: 4}

// SchoolLoadResult carries the parsed schools plus the count of rows
// rejected as malformed.
type SchoolLoadResult struct {
	Schools  []model.School
	Rejected int
}

// ReadSchoolsXLSX reads the school listing from the first sheet of an XLSX
// workbook, skipping one header row.
func ReadSchoolsXLSX(path string, cols SchoolColumns) (*SchoolLoadResult, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: open school listing %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("loader: school listing %s has no sheets", path)
	}

	res := &SchoolLoadResult{}
	for i, row := range f.Sheets[0].Rows {
		if i == 0 {
			continue // header
		}
		cells := make([]string, len(row.Cells))
		for j, c := range row.Cells {
			cells[j] = strings.TrimSpace(c.String())
		}
		s, err := parseSchool(cells, cols, i)
		if err != nil {
			zap.L().Debug("loader: rejected school row", zap.Int("row", i), zap.Error(err))
			res.Rejected++
			continue
		}
		res.Schools = append(res.Schools, *s)
	}

	if res.Rejected > 0 {
		zap.L().Warn("loader: rejected malformed school rows",
			zap.String("path", path),
			zap.Int("rejected", res.Rejected),
			zap.Int("loaded", len(res.Schools)),
		)
	}
	if len(res.Schools) == 0 {
		return nil, eris.Errorf("loader: no usable school rows in %s", path)
	}
	return res, nil
}

func parseSchool(cells []string, cols SchoolColumns, rowIdx int) (*model.School, error) {
	maxIdx := cols.Name
	for _, c := range []int{cols.Sector, cols.Cluster, cols.Lat, cols.Lng} {
		if c > maxIdx {
			maxIdx = c
		}
	}
	if len(cells) <= maxIdx {
		return nil, eris.Errorf("row has %d cells, need %d", len(cells), maxIdx+1)
	}

	name := cells[cols.Name]
	if name == "" {
		return nil, eris.New("empty school name")
	}

	sector, err := parseSector(cells[cols.Sector])
	if err != nil {
		return nil, err
	}

	cluster, err := strconv.Atoi(cells[cols.Cluster])
	if err != nil || cluster < 1 || cluster > 6 {
		return nil, eris.Errorf("invalid cluster %q", cells[cols.Cluster])
	}

	lat, err := strconv.ParseFloat(cells[cols.Lat], 64)
	if err != nil || lat < -90 || lat > 90 {
		return nil, eris.Errorf("invalid latitude %q", cells[cols.Lat])
	}
	lng, err := strconv.ParseFloat(cells[cols.Lng], 64)
	if err != nil || lng < -180 || lng > 180 {
		return nil, eris.Errorf("invalid longitude %q", cells[cols.Lng])
	}

	return &model.School{
		ID:      fmt.Sprintf("school-%04d", rowIdx),
		Name:    name,
		Sector:  sector,
		Cluster: cluster,
		Lat:     lat,
		Lng:     lng,
	}, nil
}

func parseSector(s string) (model.Sector, error) {
	switch strings.ToLower(s) {
	case "moe", "government":
		return model.SectorMOE, nil
	case "mora", "religious":
		return model.SectorMORA, nil
	case "private", "international":
		return model.SectorPrivate, nil
	default:
		return "", eris.Errorf("unknown sector %q", s)
	}
}
