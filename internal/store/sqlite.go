package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/ubd-geolab/spatial-cli/internal/autocorr"
	"github.com/ubd-geolab/spatial-cli/internal/model"
	"github.com/ubd-geolab/spatial-cli/internal/regress"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	error      TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS moran_results (
	run_id     TEXT PRIMARY KEY REFERENCES runs(id),
	i          REAL NOT NULL,
	expected   REAL NOT NULL,
	variance   REAL NOT NULL,
	z_score    REAL NOT NULL,
	p_value    REAL NOT NULL,
	assumption TEXT NOT NULL,
	n          INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS regression_results (
	run_id    TEXT PRIMARY KEY REFERENCES runs(id),
	slope     REAL NOT NULL,
	intercept REAL NOT NULL,
	r         REAL NOT NULL,
	r2        REAL NOT NULL,
	t_stat    REAL NOT NULL,
	p_value   REAL NOT NULL,
	n         INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS regions (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	level        TEXT NOT NULL,
	school_count INTEGER NOT NULL DEFAULT 0,
	population   REAL NOT NULL DEFAULT 0,
	centroid_lng REAL NOT NULL,
	centroid_lat REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS schools (
	id        TEXT PRIMARY KEY,
	name      TEXT NOT NULL,
	sector    TEXT NOT NULL,
	cluster   INTEGER NOT NULL,
	lat       REAL NOT NULL,
	lng       REAL NOT NULL,
	region_id TEXT
);

CREATE TABLE IF NOT EXISTS hotspots (
	id        TEXT PRIMARY KEY,
	run_id    TEXT NOT NULL REFERENCES runs(id),
	region_id TEXT NOT NULL,
	ratio     REAL NOT NULL,
	z_score   REAL NOT NULL,
	p_value   REAL NOT NULL,
	class     TEXT NOT NULL,
	defined   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_kind ON runs(kind);
CREATE INDEX IF NOT EXISTS idx_schools_region_id ON schools(region_id);
CREATE INDEX IF NOT EXISTS idx_hotspots_run_id ON hotspots(run_id);
CREATE INDEX IF NOT EXISTS idx_hotspots_class ON hotspots(class);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, kind model.RunKind) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, kind, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, string(kind), string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Kind:      kind,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(status), errMsg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: run %s not found", runID)
	}
	return nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	var r model.Run
	var errMsg sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, kind, status, error, created_at, updated_at FROM runs WHERE id = ?`, runID,
	).Scan(&r.ID, &r.Kind, &r.Status, &errMsg, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("sqlite: run %s not found", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	r.Error = errMsg.String
	return &r, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, status, error, created_at, updated_at FROM runs ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var errMsg sql.NullString
		if err := rows.Scan(&r.ID, &r.Kind, &r.Status, &errMsg, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		r.Error = errMsg.String
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}

func (s *SQLiteStore) SaveRegions(ctx context.Context, regions []model.Region) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin region tx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO regions (id, name, level, school_count, population, centroid_lng, centroid_lat)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare region insert")
	}
	defer stmt.Close()

	for i := range regions {
		r := &regions[i]
		lng, lat := r.Centroid()
		if _, err := stmt.ExecContext(ctx,
			r.ID, r.Name, string(r.Level), r.SchoolCount, r.Population, lng, lat,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert region %s", r.ID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit regions")
}

func (s *SQLiteStore) SaveSchools(ctx context.Context, schools []model.School, assigned map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin school tx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO schools (id, name, sector, cluster, lat, lng, region_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare school insert")
	}
	defer stmt.Close()

	for _, sc := range schools {
		var regionID any
		if id, ok := assigned[sc.ID]; ok {
			regionID = id
		}
		if _, err := stmt.ExecContext(ctx,
			sc.ID, sc.Name, string(sc.Sector), sc.Cluster, sc.Lat, sc.Lng, regionID,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert school %s", sc.ID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit schools")
}

func (s *SQLiteStore) SaveMoran(ctx context.Context, runID string, res *autocorr.MoranResult) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO moran_results (run_id, i, expected, variance, z_score, p_value, assumption, n)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, res.I, res.Expected, res.Variance, res.ZScore, res.PValue, string(res.Assumption), res.N,
	)
	return eris.Wrapf(err, "sqlite: save moran result for run %s", runID)
}

func (s *SQLiteStore) SaveRegression(ctx context.Context, runID string, res *regress.Result) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO regression_results (run_id, slope, intercept, r, r2, t_stat, p_value, n)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, res.Slope, res.Intercept, res.R, res.R2, res.TStat, res.PValue, res.N,
	)
	return eris.Wrapf(err, "sqlite: save regression result for run %s", runID)
}

func (s *SQLiteStore) SaveHotspots(ctx context.Context, runID string, recs []autocorr.HotspotRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin hotspot tx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO hotspots (id, run_id, region_id, ratio, z_score, p_value, class, defined)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare hotspot insert")
	}
	defer stmt.Close()

	for _, rec := range recs {
		if _, err := stmt.ExecContext(ctx,
			uuid.New().String(), runID, rec.RegionID,
			rec.Ratio, rec.ZScore, rec.PValue, string(rec.Class), boolToInt(rec.Defined),
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert hotspot %s", rec.RegionID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit hotspots")
}

func (s *SQLiteStore) ListHotspots(ctx context.Context, runID string) ([]autocorr.HotspotRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT region_id, ratio, z_score, p_value, class, defined FROM hotspots WHERE run_id = ? ORDER BY z_score DESC`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list hotspots for run %s", runID)
	}
	defer rows.Close()

	var recs []autocorr.HotspotRecord
	for rows.Next() {
		var rec autocorr.HotspotRecord
		var class string
		var defined int
		if err := rows.Scan(&rec.RegionID, &rec.Ratio, &rec.ZScore, &rec.PValue, &class, &defined); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan hotspot")
		}
		rec.Class = autocorr.HotspotClass(class)
		rec.Defined = defined != 0
		recs = append(recs, rec)
	}
	return recs, eris.Wrap(rows.Err(), "sqlite: iterate hotspots")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
