package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/calibration-engine/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It backs local
// development and single-operator installs where running Postgres is not
// worth the trouble.
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
CREATE TABLE IF NOT EXISTS scans (
	id                            TEXT PRIMARY KEY,
	region_key                    TEXT NOT NULL DEFAULT 'unknown',
	region_source                 TEXT NOT NULL DEFAULT 'fallback_unknown',
	region_state                  TEXT,
	raw_confidence                REAL NOT NULL DEFAULT 0,
	predicted_age                 REAL,
	recommendation                TEXT,
	deer_sex                      TEXT,
	antler_points                 INTEGER,
	antler_points_left            INTEGER,
	antler_points_right           INTEGER,
	raw_age_confidence            INTEGER,
	raw_recommendation_confidence INTEGER,
	age_confidence                INTEGER NOT NULL DEFAULT 0,
	recommendation_confidence     INTEGER NOT NULL DEFAULT 0,
	age_uncertain                 INTEGER NOT NULL DEFAULT 0,
	adjusted_age                  REAL,
	calibration_version           TEXT NOT NULL DEFAULT '',
	calibration_strategy          TEXT NOT NULL DEFAULT '',
	calibration_fallback_reason   TEXT,
	created_at                    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_scans_region_key ON scans(region_key);
CREATE INDEX IF NOT EXISTS idx_scans_created_at ON scans(created_at);

CREATE TABLE IF NOT EXISTS scan_labels (
	id                     TEXT PRIMARY KEY,
	scan_id                TEXT NOT NULL REFERENCES scans(id),
	trust_source           TEXT NOT NULL DEFAULT 'unknown',
	age_correct            INTEGER,
	recommendation_correct INTEGER,
	created_at             DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_scan_labels_scan_id ON scan_labels(scan_id);

CREATE TABLE IF NOT EXISTS calibration_curves (
	id                   TEXT PRIMARY KEY,
	calibration_version  TEXT NOT NULL,
	curve_type           TEXT NOT NULL,
	region_key           TEXT,
	method               TEXT NOT NULL DEFAULT 'binning',
	bins                 TEXT NOT NULL,
	sample_count         INTEGER NOT NULL DEFAULT 0,
	min_samples_required INTEGER NOT NULL DEFAULT 0,
	is_active            INTEGER NOT NULL DEFAULT 0,
	created_at           DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at           DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_curves_version ON calibration_curves(calibration_version);
CREATE UNIQUE INDEX IF NOT EXISTS idx_curves_one_active
	ON calibration_curves(curve_type, COALESCE(region_key, '')) WHERE is_active;

CREATE TABLE IF NOT EXISTS drift_events (
	id                  TEXT PRIMARY KEY,
	region_key          TEXT NOT NULL,
	calibration_version TEXT NOT NULL,
	confidence_type     TEXT NOT NULL,
	expected_accuracy   REAL NOT NULL,
	observed_accuracy   REAL NOT NULL,
	drift_percentage    REAL NOT NULL,
	severity            TEXT NOT NULL,
	sample_size         INTEGER NOT NULL,
	window_days         INTEGER NOT NULL,
	season_bucket       TEXT,
	created_at          DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_drift_events_created_at ON drift_events(created_at);

CREATE TABLE IF NOT EXISTS region_maturity (
	region_key                   TEXT PRIMARY KEY,
	maturity_level               TEXT NOT NULL,
	labeled_sample_count         INTEGER NOT NULL DEFAULT 0,
	label_source_diversity_score REAL NOT NULL DEFAULT 0,
	stability_score              REAL NOT NULL DEFAULT 0,
	last_computed_at             DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS model_recommendations (
	id                  TEXT PRIMARY KEY,
	region_key          TEXT,
	confidence_type     TEXT NOT NULL,
	recommendation_type TEXT NOT NULL,
	supporting_metrics  TEXT NOT NULL,
	severity            TEXT NOT NULL,
	created_at          DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_recommendations_created_at ON model_recommendations(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func checkRowsAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "sqlite: rows affected for %s %s", kind, id)
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", kind, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func sqliteScanRow(row rowScanner) (*model.Scan, error) {
	var sc model.Scan
	err := row.Scan(
		&sc.ID, &sc.RegionKey, &sc.RegionSource, &sc.RegionState, &sc.RawConfidence,
		&sc.PredictedAge, &sc.Recommendation, &sc.DeerSex,
		&sc.AntlerPoints, &sc.AntlerPointsLeft, &sc.AntlerPointsRight,
		&sc.RawAgeConfidence, &sc.RawRecommendationConfidence,
		&sc.AgeConfidence, &sc.RecommendationConfidence, &sc.AgeUncertain, &sc.AdjustedAge,
		&sc.CalibrationVersion, &sc.CalibrationStrategy, &sc.CalibrationFallback, &sc.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sc, nil
}

func (s *SQLiteStore) GetScan(ctx context.Context, scanID string) (*model.Scan, error) {
	sc, err := sqliteScanRow(s.db.QueryRowContext(ctx,
		`SELECT `+scanColumns+` FROM scans WHERE id = ?`, scanID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get scan %s", scanID)
	}
	return sc, nil
}

func (s *SQLiteStore) ListScans(ctx context.Context, filter ScanFilter) ([]model.Scan, error) {
	query := `SELECT ` + scanColumns + ` FROM scans WHERE 1=1`
	args := []any{}

	if filter.RegionKey != "" {
		query += ` AND region_key = ?`
		args = append(args, filter.RegionKey)
	}
	if !filter.Since.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, filter.Since)
	}
	query += ` ORDER BY created_at ASC, id ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list scans")
	}
	defer rows.Close()

	var scans []model.Scan
	for rows.Next() {
		sc, err := sqliteScanRow(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan row")
		}
		scans = append(scans, *sc)
	}
	return scans, eris.Wrap(rows.Err(), "sqlite: list scans iterate")
}

func (s *SQLiteStore) CountScans(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scans`).Scan(&count)
	return count, eris.Wrap(err, "sqlite: count scans")
}

func (s *SQLiteStore) UpdateScanCalibration(ctx context.Context, scanID string, fields model.CalibrationFields) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scans SET
		 age_confidence = ?, recommendation_confidence = ?, age_uncertain = ?, adjusted_age = ?,
		 calibration_version = ?, calibration_strategy = ?, calibration_fallback_reason = ?
		 WHERE id = ?`,
		fields.AgeConfidence, fields.RecommendationConfidence, fields.AgeUncertain, fields.AdjustedAge,
		fields.CalibrationVersion, fields.CalibrationStrategy, fields.CalibrationFallback, scanID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update scan calibration %s", scanID)
	}
	return checkRowsAffected(res, "scan", scanID)
}

func (s *SQLiteStore) ListLabeledScans(ctx context.Context, filter LabelFilter) ([]model.LabeledScan, error) {
	query := `SELECT s.id, s.region_key, s.calibration_version, s.raw_confidence,
		s.age_confidence, s.recommendation_confidence,
		l.trust_source, l.age_correct, l.recommendation_correct, s.created_at
		FROM scan_labels l JOIN scans s ON s.id = l.scan_id WHERE 1=1`
	args := []any{}

	if filter.RegionKey != "" {
		query += ` AND s.region_key = ?`
		args = append(args, filter.RegionKey)
	}
	if !filter.Since.IsZero() {
		query += ` AND s.created_at >= ?`
		args = append(args, filter.Since)
	}
	query += ` ORDER BY s.created_at ASC, l.id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list labeled scans")
	}
	defer rows.Close()

	var labeled []model.LabeledScan
	for rows.Next() {
		var l model.LabeledScan
		if err := rows.Scan(&l.ScanID, &l.RegionKey, &l.CalibrationVersion, &l.RawConfidence,
			&l.AgeConfidence, &l.RecConfidence,
			&l.TrustSource, &l.AgeCorrect, &l.RecommendationCorrect, &l.ScanCreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan labeled row")
		}
		labeled = append(labeled, l)
	}
	return labeled, eris.Wrap(rows.Err(), "sqlite: list labeled scans iterate")
}

func (s *SQLiteStore) InsertCurves(ctx context.Context, curves []model.CalibrationCurve) error {
	for _, c := range curves {
		binsJSON, err := json.Marshal(c.Bins)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal bins")
		}
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO calibration_curves
			 (id, calibration_version, curve_type, region_key, method, bins,
			  sample_count, min_samples_required, is_active, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.CalibrationVersion, string(c.CurveType), c.RegionKey, c.Method, string(binsJSON),
			c.SampleCount, c.MinSamplesRequired, c.IsActive, c.CreatedAt, c.UpdatedAt,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert curve %s", c.ID)
		}
	}
	return nil
}

func sqliteCurveRow(row rowScanner) (*model.CalibrationCurve, error) {
	var c model.CalibrationCurve
	var binsJSON []byte
	err := row.Scan(&c.ID, &c.CalibrationVersion, &c.CurveType, &c.RegionKey, &c.Method, &binsJSON,
		&c.SampleCount, &c.MinSamplesRequired, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(binsJSON, &c.Bins); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal bins")
	}
	return &c, nil
}

func (s *SQLiteStore) GetCurve(ctx context.Context, curveID string) (*model.CalibrationCurve, error) {
	c, err := sqliteCurveRow(s.db.QueryRowContext(ctx,
		`SELECT `+curveColumns+` FROM calibration_curves WHERE id = ?`, curveID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get curve %s", curveID)
	}
	return c, nil
}

func (s *SQLiteStore) ListCurves(ctx context.Context, filter CurveFilter) ([]model.CalibrationCurve, error) {
	query := `SELECT ` + curveColumns + ` FROM calibration_curves WHERE 1=1`
	args := []any{}

	if filter.Version != "" {
		query += ` AND calibration_version = ?`
		args = append(args, filter.Version)
	}
	if filter.ActiveOnly {
		query += ` AND is_active`
	}
	query += ` ORDER BY created_at DESC, curve_type ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list curves")
	}
	defer rows.Close()

	var curves []model.CalibrationCurve
	for rows.Next() {
		c, err := sqliteCurveRow(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan curve row")
		}
		curves = append(curves, *c)
	}
	return curves, eris.Wrap(rows.Err(), "sqlite: list curves iterate")
}

func (s *SQLiteStore) ActiveCurves(ctx context.Context) (model.CurveLookup, error) {
	curves, err := s.ListCurves(ctx, CurveFilter{ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	lookup := make(model.CurveLookup, len(curves))
	for i := range curves {
		c := curves[i]
		lookup[c.Scope()] = &c
	}
	return lookup, nil
}

func (s *SQLiteStore) ActivateCurve(ctx context.Context, curveID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: activate curve: begin tx")
	}
	defer tx.Rollback()

	var curveType string
	var regionKey *string
	err = tx.QueryRowContext(ctx,
		`SELECT curve_type, region_key FROM calibration_curves WHERE id = ?`,
		curveID,
	).Scan(&curveType, &regionKey)
	if err != nil {
		if err == sql.ErrNoRows {
			return eris.Errorf("curve not found: %s", curveID)
		}
		return eris.Wrapf(err, "sqlite: activate curve %s", curveID)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE calibration_curves SET is_active = 0, updated_at = datetime('now')
		 WHERE is_active AND curve_type = ? AND COALESCE(region_key, '') = COALESCE(?, '') AND id <> ?`,
		curveType, regionKey, curveID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: deactivate siblings of %s", curveID)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE calibration_curves SET is_active = 1, updated_at = datetime('now') WHERE id = ?`,
		curveID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: activate curve %s", curveID)
	}

	return eris.Wrap(tx.Commit(), "sqlite: activate curve: commit")
}

func (s *SQLiteStore) DeactivateCurve(ctx context.Context, curveID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE calibration_curves SET is_active = 0, updated_at = datetime('now') WHERE id = ?`,
		curveID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: deactivate curve %s", curveID)
	}
	return checkRowsAffected(res, "curve", curveID)
}

func (s *SQLiteStore) InsertDriftEvents(ctx context.Context, events []model.DriftEvent) (int, error) {
	var n int
	for _, e := range events {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO drift_events
			 (id, region_key, calibration_version, confidence_type,
			  expected_accuracy, observed_accuracy, drift_percentage, severity,
			  sample_size, window_days, season_bucket, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.RegionKey, e.CalibrationVersion, string(e.ConfidenceType),
			e.ExpectedAccuracy, e.ObservedAccuracy, e.DriftPercentage, string(e.Severity),
			e.SampleSize, e.WindowDays, e.SeasonBucket, e.CreatedAt,
		)
		if err != nil {
			return n, eris.Wrapf(err, "sqlite: insert drift event %s", e.ID)
		}
		n++
	}
	return n, nil
}

func (s *SQLiteStore) ListDriftEvents(ctx context.Context, since time.Time) ([]model.DriftEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, region_key, calibration_version, confidence_type,
		 expected_accuracy, observed_accuracy, drift_percentage, severity,
		 sample_size, window_days, season_bucket, created_at
		 FROM drift_events WHERE created_at >= ? ORDER BY created_at ASC`,
		since,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list drift events")
	}
	defer rows.Close()

	var events []model.DriftEvent
	for rows.Next() {
		var e model.DriftEvent
		if err := rows.Scan(&e.ID, &e.RegionKey, &e.CalibrationVersion, &e.ConfidenceType,
			&e.ExpectedAccuracy, &e.ObservedAccuracy, &e.DriftPercentage, &e.Severity,
			&e.SampleSize, &e.WindowDays, &e.SeasonBucket, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan drift event")
		}
		events = append(events, e)
	}
	return events, eris.Wrap(rows.Err(), "sqlite: list drift events iterate")
}

func (s *SQLiteStore) UpsertRegionMaturity(ctx context.Context, m model.RegionMaturity) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO region_maturity
		 (region_key, maturity_level, labeled_sample_count, label_source_diversity_score, stability_score, last_computed_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (region_key) DO UPDATE SET
		   maturity_level = excluded.maturity_level,
		   labeled_sample_count = excluded.labeled_sample_count,
		   label_source_diversity_score = excluded.label_source_diversity_score,
		   stability_score = excluded.stability_score,
		   last_computed_at = excluded.last_computed_at`,
		m.RegionKey, string(m.MaturityLevel), m.LabeledSampleCount,
		m.LabelSourceDiversityScore, m.StabilityScore, m.LastComputedAt,
	)
	return eris.Wrapf(err, "sqlite: upsert region maturity %s", m.RegionKey)
}

func (s *SQLiteStore) ListRegionMaturity(ctx context.Context) ([]model.RegionMaturity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT region_key, maturity_level, labeled_sample_count,
		 label_source_diversity_score, stability_score, last_computed_at
		 FROM region_maturity ORDER BY region_key ASC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list region maturity")
	}
	defer rows.Close()

	var out []model.RegionMaturity
	for rows.Next() {
		var m model.RegionMaturity
		if err := rows.Scan(&m.RegionKey, &m.MaturityLevel, &m.LabeledSampleCount,
			&m.LabelSourceDiversityScore, &m.StabilityScore, &m.LastComputedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan region maturity")
		}
		out = append(out, m)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list region maturity iterate")
}

func (s *SQLiteStore) InsertRecommendations(ctx context.Context, recs []model.ModelRecommendation) (int, error) {
	var n int
	for _, r := range recs {
		metricsJSON, err := json.Marshal(r.SupportingMetrics)
		if err != nil {
			return n, eris.Wrap(err, "sqlite: marshal supporting metrics")
		}
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO model_recommendations
			 (id, region_key, confidence_type, recommendation_type, supporting_metrics, severity, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.ID, r.RegionKey, string(r.ConfidenceType), string(r.RecommendationType),
			string(metricsJSON), string(r.Severity), r.CreatedAt,
		)
		if err != nil {
			return n, eris.Wrapf(err, "sqlite: insert recommendation %s", r.ID)
		}
		n++
	}
	return n, nil
}

func (s *SQLiteStore) ListRecommendations(ctx context.Context, since time.Time) ([]model.ModelRecommendation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, region_key, confidence_type, recommendation_type, supporting_metrics, severity, created_at
		 FROM model_recommendations WHERE created_at >= ? ORDER BY created_at ASC`,
		since,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list recommendations")
	}
	defer rows.Close()

	var recs []model.ModelRecommendation
	for rows.Next() {
		var r model.ModelRecommendation
		var metricsJSON []byte
		if err := rows.Scan(&r.ID, &r.RegionKey, &r.ConfidenceType, &r.RecommendationType,
			&metricsJSON, &r.Severity, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan recommendation")
		}
		if err := json.Unmarshal(metricsJSON, &r.SupportingMetrics); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal supporting metrics")
		}
		recs = append(recs, r)
	}
	return recs, eris.Wrap(rows.Err(), "sqlite: list recommendations iterate")
}
