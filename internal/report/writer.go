// Package report writes analysis result tables for downstream
// visualization. Rendering itself (maps, charts) is out of scope.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/ubd-geolab/spatial-cli/internal/autocorr"
	"github.com/ubd-geolab/spatial-cli/internal/model"
	"github.com/ubd-geolab/spatial-cli/internal/regress"
)

// Writer emits result tables into a target directory.
type Writer struct {
	dir string
}

// NewWriter creates a Writer, ensuring the output directory exists.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "report: create output dir %s", dir)
	}
	return &Writer{dir: dir}, nil
}

// WriteRegionCounts writes the per-region study variable table.
func (w *Writer) WriteRegionCounts(regions []model.Region) (string, error) {
	path := filepath.Join(w.dir, "region_counts.csv")
	rows := [][]string{{"region_id", "name", "level", "school_count", "population"}}
	for _, r := range regions {
		rows = append(rows, []string{
			r.ID, r.Name, string(r.Level),
			strconv.Itoa(r.SchoolCount),
			formatFloat(r.Population),
		})
	}
	return path, w.writeCSV(path, rows)
}

// WriteMoran writes the global statistic as a one-row table.
func (w *Writer) WriteMoran(res *autocorr.MoranResult) (string, error) {
	path := filepath.Join(w.dir, "moran.csv")
	rows := [][]string{
		{"i", "expected", "variance", "z_score", "p_value", "assumption", "n"},
		{
			formatFloat(res.I), formatFloat(res.Expected), formatFloat(res.Variance),
			formatFloat(res.ZScore), formatFloat(res.PValue),
			string(res.Assumption), strconv.Itoa(res.N),
		},
	}
	return path, w.writeCSV(path, rows)
}

// WriteHotspots writes the per-cell Gi* table.
func (w *Writer) WriteHotspots(recs []autocorr.HotspotRecord) (string, error) {
	path := filepath.Join(w.dir, "hotspots.csv")
	rows := [][]string{{"region_id", "ratio", "z_score", "p_value", "class", "defined"}}
	for _, rec := range recs {
		rows = append(rows, []string{
			rec.RegionID,
			formatFloat(rec.Ratio), formatFloat(rec.ZScore), formatFloat(rec.PValue),
			string(rec.Class), strconv.FormatBool(rec.Defined),
		})
	}
	return path, w.writeCSV(path, rows)
}

// WriteWorkbook writes a single XLSX workbook with one sheet per result
// table, mirroring the CSV outputs for spreadsheet consumers.
func (w *Writer) WriteWorkbook(regions []model.Region, moran *autocorr.MoranResult, recs []autocorr.HotspotRecord, reg *regress.Result) (string, error) {
	path := filepath.Join(w.dir, "results.xlsx")
	f := xlsx.NewFile()

	if regions != nil {
		sheet, err := f.AddSheet("region_counts")
		if err != nil {
			return "", eris.Wrap(err, "report: add region sheet")
		}
		addRow(sheet, "region_id", "name", "school_count", "population")
		for _, r := range regions {
			row := sheet.AddRow()
			row.AddCell().Value = r.ID
			row.AddCell().Value = r.Name
			row.AddCell().SetInt(r.SchoolCount)
			row.AddCell().SetFloat(r.Population)
		}
	}

	if moran != nil {
		sheet, err := f.AddSheet("moran")
		if err != nil {
			return "", eris.Wrap(err, "report: add moran sheet")
		}
		addRow(sheet, "i", "expected", "variance", "z_score", "p_value", "assumption", "n")
		row := sheet.AddRow()
		row.AddCell().SetFloat(moran.I)
		row.AddCell().SetFloat(moran.Expected)
		row.AddCell().SetFloat(moran.Variance)
		row.AddCell().SetFloat(moran.ZScore)
		row.AddCell().SetFloat(moran.PValue)
		row.AddCell().Value = string(moran.Assumption)
		row.AddCell().SetInt(moran.N)
	}

	if recs != nil {
		sheet, err := f.AddSheet("hotspots")
		if err != nil {
			return "", eris.Wrap(err, "report: add hotspot sheet")
		}
		addRow(sheet, "region_id", "ratio", "z_score", "p_value", "class")
		for _, rec := range recs {
			row := sheet.AddRow()
			row.AddCell().Value = rec.RegionID
			row.AddCell().SetFloat(rec.Ratio)
			row.AddCell().SetFloat(rec.ZScore)
			row.AddCell().SetFloat(rec.PValue)
			row.AddCell().Value = string(rec.Class)
		}
	}

	if reg != nil {
		sheet, err := f.AddSheet("regression")
		if err != nil {
			return "", eris.Wrap(err, "report: add regression sheet")
		}
		addRow(sheet, "slope", "intercept", "r", "r2", "t_stat", "p_value", "n")
		row := sheet.AddRow()
		row.AddCell().SetFloat(reg.Slope)
		row.AddCell().SetFloat(reg.Intercept)
		row.AddCell().SetFloat(reg.R)
		row.AddCell().SetFloat(reg.R2)
		row.AddCell().SetFloat(reg.TStat)
		row.AddCell().SetFloat(reg.PValue)
		row.AddCell().SetInt(reg.N)
	}

	if err := f.Save(path); err != nil {
		return "", eris.Wrapf(err, "report: save workbook %s", path)
	}
	zap.L().Info("report: wrote workbook", zap.String("path", path))
	return path, nil
}

func (w *Writer) writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "report: create %s", path)
	}
	defer func() { _ = f.Close() }()

	cw := csv.NewWriter(f)
	if err := cw.WriteAll(rows); err != nil {
		return eris.Wrapf(err, "report: write %s", path)
	}
	cw.Flush()
	return eris.Wrapf(cw.Error(), "report: flush %s", path)
}

func addRow(sheet *xlsx.Sheet, cells ...string) {
	row := sheet.AddRow()
	for _, c := range cells {
		row.AddCell().Value = c
	}
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%g", v)
}
