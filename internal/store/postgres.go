package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/ubd-geolab/spatial-cli/internal/autocorr"
	"github.com/ubd-geolab/spatial-cli/internal/db"
	"github.com/ubd-geolab/spatial-cli/internal/model"
	"github.com/ubd-geolab/spatial-cli/internal/regress"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 4
	pgxCfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	error      TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS moran_results (
	run_id     TEXT PRIMARY KEY REFERENCES runs(id),
	i          DOUBLE PRECISION NOT NULL,
	expected   DOUBLE PRECISION NOT NULL,
	variance   DOUBLE PRECISION NOT NULL,
	z_score    DOUBLE PRECISION NOT NULL,
	p_value    DOUBLE PRECISION NOT NULL,
	assumption TEXT NOT NULL,
	n          INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS regression_results (
	run_id    TEXT PRIMARY KEY REFERENCES runs(id),
	slope     DOUBLE PRECISION NOT NULL,
	intercept DOUBLE PRECISION NOT NULL,
	r         DOUBLE PRECISION NOT NULL,
	r2        DOUBLE PRECISION NOT NULL,
	t_stat    DOUBLE PRECISION NOT NULL,
	p_value   DOUBLE PRECISION NOT NULL,
	n         INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS regions (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	level        TEXT NOT NULL,
	school_count INTEGER NOT NULL DEFAULT 0,
	population   DOUBLE PRECISION NOT NULL DEFAULT 0,
	centroid_lng DOUBLE PRECISION NOT NULL,
	centroid_lat DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS schools (
	id        TEXT PRIMARY KEY,
	name      TEXT NOT NULL,
	sector    TEXT NOT NULL,
	cluster   INTEGER NOT NULL,
	lat       DOUBLE PRECISION NOT NULL,
	lng       DOUBLE PRECISION NOT NULL,
	region_id TEXT
);

CREATE TABLE IF NOT EXISTS hotspots (
	id        TEXT PRIMARY KEY,
	run_id    TEXT NOT NULL REFERENCES runs(id),
	region_id TEXT NOT NULL,
	ratio     DOUBLE PRECISION NOT NULL,
	z_score   DOUBLE PRECISION NOT NULL,
	p_value   DOUBLE PRECISION NOT NULL,
	class     TEXT NOT NULL,
	defined   BOOLEAN NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_kind ON runs(kind);
CREATE INDEX IF NOT EXISTS idx_schools_region_id ON schools(region_id);
CREATE INDEX IF NOT EXISTS idx_hotspots_run_id ON hotspots(run_id);
CREATE INDEX IF NOT EXISTS idx_hotspots_class ON hotspots(class);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, kind model.RunKind) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, kind, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		id, string(kind), string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Kind:      kind,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
		string(status), errMsg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run %s not found", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	var r model.Run
	var errMsg *string
	err := s.pool.QueryRow(ctx,
		`SELECT id, kind, status, error, created_at, updated_at FROM runs WHERE id = $1`, runID,
	).Scan(&r.ID, &r.Kind, &r.Status, &errMsg, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("postgres: run %s not found", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	if errMsg != nil {
		r.Error = *errMsg
	}
	return &r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, kind, status, error, created_at, updated_at FROM runs ORDER BY created_at DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var errMsg *string
		if err := rows.Scan(&r.ID, &r.Kind, &r.Status, &errMsg, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if errMsg != nil {
			r.Error = *errMsg
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: iterate runs")
}

func (s *PostgresStore) SaveRegions(ctx context.Context, regions []model.Region) error {
	for i := range regions {
		r := &regions[i]
		lng, lat := r.Centroid()
		_, err := s.pool.Exec(ctx,
			`INSERT INTO regions (id, name, level, school_count, population, centroid_lng, centroid_lat)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (id) DO UPDATE SET
			   name = EXCLUDED.name, level = EXCLUDED.level,
			   school_count = EXCLUDED.school_count, population = EXCLUDED.population,
			   centroid_lng = EXCLUDED.centroid_lng, centroid_lat = EXCLUDED.centroid_lat`,
			r.ID, r.Name, string(r.Level), r.SchoolCount, r.Population, lng, lat,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: upsert region %s", r.ID)
		}
	}
	return nil
}

// SaveSchools replaces the school table wholesale. The listing is a full
// snapshot, so COPY after truncate beats per-row upserts.
func (s *PostgresStore) SaveSchools(ctx context.Context, schools []model.School, assigned map[string]string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM schools`); err != nil {
		return eris.Wrap(err, "postgres: clear schools")
	}

	rows := make([][]any, 0, len(schools))
	for _, sc := range schools {
		var regionID any
		if id, ok := assigned[sc.ID]; ok {
			regionID = id
		}
		rows = append(rows, []any{
			sc.ID, sc.Name, string(sc.Sector), sc.Cluster, sc.Lat, sc.Lng, regionID,
		})
	}
	_, err := db.CopyFrom(ctx, s.pool, "schools",
		[]string{"id", "name", "sector", "cluster", "lat", "lng", "region_id"},
		rows,
	)
	return eris.Wrap(err, "postgres: save schools")
}

func (s *PostgresStore) SaveMoran(ctx context.Context, runID string, res *autocorr.MoranResult) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO moran_results (run_id, i, expected, variance, z_score, p_value, assumption, n)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		runID, res.I, res.Expected, res.Variance, res.ZScore, res.PValue, string(res.Assumption), res.N,
	)
	return eris.Wrapf(err, "postgres: save moran result for run %s", runID)
}

func (s *PostgresStore) SaveRegression(ctx context.Context, runID string, res *regress.Result) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO regression_results (run_id, slope, intercept, r, r2, t_stat, p_value, n)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		runID, res.Slope, res.Intercept, res.R, res.R2, res.TStat, res.PValue, res.N,
	)
	return eris.Wrapf(err, "postgres: save regression result for run %s", runID)
}

func (s *PostgresStore) SaveHotspots(ctx context.Context, runID string, recs []autocorr.HotspotRecord) error {
	rows := make([][]any, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, []any{
			uuid.New().String(), runID, rec.RegionID,
			rec.Ratio, rec.ZScore, rec.PValue, string(rec.Class), rec.Defined,
		})
	}
	_, err := db.CopyFrom(ctx, s.pool, "hotspots",
		[]string{"id", "run_id", "region_id", "ratio", "z_score", "p_value", "class", "defined"},
		rows,
	)
	return eris.Wrapf(err, "postgres: save hotspots for run %s", runID)
}

func (s *PostgresStore) ListHotspots(ctx context.Context, runID string) ([]autocorr.HotspotRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT region_id, ratio, z_score, p_value, class, defined FROM hotspots WHERE run_id = $1 ORDER BY z_score DESC`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list hotspots for run %s", runID)
	}
	defer rows.Close()

	var recs []autocorr.HotspotRecord
	for rows.Next() {
		var rec autocorr.HotspotRecord
		var class string
		if err := rows.Scan(&rec.RegionID, &rec.Ratio, &rec.ZScore, &rec.PValue, &class, &rec.Defined); err != nil {
			return nil, eris.Wrap(err, "postgres: scan hotspot")
		}
		rec.Class = autocorr.HotspotClass(class)
		recs = append(recs, rec)
	}
	return recs, eris.Wrap(rows.Err(), "postgres: iterate hotspots")
}
