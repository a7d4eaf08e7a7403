package loader

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ReadPopulationCSV reads a population table keyed by region identifier.
// The expected layout is region_id,population with a single header row.
// Rows with unparseable or negative population are rejected and counted.
func ReadPopulationCSV(path string) (map[string]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: open population table %s", path)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	pop := make(map[string]float64)
	var rejected int
	line := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "loader: read population table %s", path)
		}
		line++
		if line == 1 {
			continue // header
		}
		if len(rec) < 2 {
			rejected++
			continue
		}
		id := strings.TrimSpace(rec[0])
		v, perr := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if id == "" || perr != nil || v < 0 {
			rejected++
			continue
		}
		pop[id] = v
	}

	if rejected > 0 {
		zap.L().Warn("loader: rejected malformed population rows",
			zap.String("path", path),
			zap.Int("rejected", rejected),
		)
	}
	if len(pop) == 0 {
		return nil, eris.Errorf("loader: no usable population rows in %s", path)
	}
	return pop, nil
}
