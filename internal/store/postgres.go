package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/calibration-engine/internal/db"
	"github.com/sells-group/calibration-engine/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot recalibration path.
var preparedStatements = map[string]string{
	"get_scan":                `SELECT ` + scanColumns + ` FROM scans WHERE id = $1`,
	"update_scan_calibration": updateScanCalibrationSQL,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool, used by tests with pgxmock.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS scans (
	id                            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	region_key                    TEXT NOT NULL DEFAULT 'unknown',
	region_source                 TEXT NOT NULL DEFAULT 'fallback_unknown',
	region_state                  TEXT,
	raw_confidence                DOUBLE PRECISION NOT NULL DEFAULT 0,
	predicted_age                 DOUBLE PRECISION,
	recommendation                TEXT,
	deer_sex                      TEXT,
	antler_points                 INTEGER,
	antler_points_left            INTEGER,
	antler_points_right           INTEGER,
	raw_age_confidence            INTEGER,
	raw_recommendation_confidence INTEGER,
	age_confidence                INTEGER NOT NULL DEFAULT 0,
	recommendation_confidence     INTEGER NOT NULL DEFAULT 0,
	age_uncertain                 BOOLEAN NOT NULL DEFAULT false,
	adjusted_age                  DOUBLE PRECISION,
	calibration_version           TEXT NOT NULL DEFAULT '',
	calibration_strategy          TEXT NOT NULL DEFAULT '',
	calibration_fallback_reason   TEXT,
	created_at                    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_scans_region_key ON scans(region_key);
CREATE INDEX IF NOT EXISTS idx_scans_created_at ON scans(created_at);
CREATE INDEX IF NOT EXISTS idx_scans_calibration_version ON scans(calibration_version);

CREATE TABLE IF NOT EXISTS scan_labels (
	id                     TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	scan_id                TEXT NOT NULL REFERENCES scans(id),
	trust_source           TEXT NOT NULL DEFAULT 'unknown',
	age_correct            BOOLEAN,
	recommendation_correct BOOLEAN,
	created_at             TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_scan_labels_scan_id ON scan_labels(scan_id);
CREATE INDEX IF NOT EXISTS idx_scan_labels_created_at ON scan_labels(created_at);

CREATE TABLE IF NOT EXISTS calibration_curves (
	id                   TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	calibration_version  TEXT NOT NULL,
	curve_type           TEXT NOT NULL,
	region_key           TEXT,
	method               TEXT NOT NULL DEFAULT 'binning',
	bins                 JSONB NOT NULL,
	sample_count         INTEGER NOT NULL DEFAULT 0,
	min_samples_required INTEGER NOT NULL DEFAULT 0,
	is_active            BOOLEAN NOT NULL DEFAULT false,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_curves_version ON calibration_curves(calibration_version);
CREATE UNIQUE INDEX IF NOT EXISTS idx_curves_one_active
	ON calibration_curves(curve_type, COALESCE(region_key, '')) WHERE is_active;

CREATE TABLE IF NOT EXISTS drift_events (
	id                  TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	region_key          TEXT NOT NULL,
	calibration_version TEXT NOT NULL,
	confidence_type     TEXT NOT NULL,
	expected_accuracy   DOUBLE PRECISION NOT NULL,
	observed_accuracy   DOUBLE PRECISION NOT NULL,
	drift_percentage    DOUBLE PRECISION NOT NULL,
	severity            TEXT NOT NULL,
	sample_size         INTEGER NOT NULL,
	window_days         INTEGER NOT NULL,
	season_bucket       TEXT,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_drift_events_created_at ON drift_events(created_at);
CREATE INDEX IF NOT EXISTS idx_drift_events_region_key ON drift_events(region_key);

CREATE TABLE IF NOT EXISTS region_maturity (
	region_key                   TEXT PRIMARY KEY,
	maturity_level               TEXT NOT NULL,
	labeled_sample_count         INTEGER NOT NULL DEFAULT 0,
	label_source_diversity_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	stability_score              DOUBLE PRECISION NOT NULL DEFAULT 0,
	last_computed_at             TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS model_recommendations (
	id                  TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	region_key          TEXT,
	confidence_type     TEXT NOT NULL,
	recommendation_type TEXT NOT NULL,
	supporting_metrics  JSONB NOT NULL,
	severity            TEXT NOT NULL,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_recommendations_created_at ON model_recommendations(created_at);
`

const scanColumns = `id, region_key, region_source, region_state, raw_confidence,
	predicted_age, recommendation, deer_sex, antler_points, antler_points_left, antler_points_right,
	raw_age_confidence, raw_recommendation_confidence,
	age_confidence, recommendation_confidence, age_uncertain, adjusted_age,
	calibration_version, calibration_strategy, calibration_fallback_reason, created_at`

const updateScanCalibrationSQL = `UPDATE scans SET
	age_confidence = $1, recommendation_confidence = $2, age_uncertain = $3, adjusted_age = $4,
	calibration_version = $5, calibration_strategy = $6, calibration_fallback_reason = $7
	WHERE id = $8`

const curveColumns = `id, calibration_version, curve_type, region_key, method, bins,
	sample_count, min_samples_required, is_active, created_at, updated_at`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func scanRow(row pgx.Row) (*model.Scan, error) {
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

func (s *PostgresStore) GetScan(ctx context.Context, scanID string) (*model.Scan, error) {
	sc, err := scanRow(s.pool.QueryRow(ctx,
		`SELECT `+scanColumns+` FROM scans WHERE id = $1`, scanID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get scan %s", scanID)
	}
	return sc, nil
}

func (s *PostgresStore) ListScans(ctx context.Context, filter ScanFilter) ([]model.Scan, error) {
	query := `SELECT ` + scanColumns + ` FROM scans WHERE true`
	args := []any{}
	argIdx := 1

	if filter.RegionKey != "" {
		query += fmt.Sprintf(` AND region_key = $%d`, argIdx)
		args = append(args, filter.RegionKey)
		argIdx++
	}
	if !filter.Since.IsZero() {
		query += fmt.Sprintf(` AND created_at >= $%d`, argIdx)
		args = append(args, filter.Since)
		argIdx++
	}
	query += ` ORDER BY created_at ASC, id ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list scans")
	}
	defer rows.Close()

	var scans []model.Scan
	for rows.Next() {
		sc, err := scanRow(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan row")
		}
		scans = append(scans, *sc)
	}
	return scans, eris.Wrap(rows.Err(), "postgres: list scans iterate")
}

func (s *PostgresStore) CountScans(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM scans`).Scan(&count)
	return count, eris.Wrap(err, "postgres: count scans")
}

func (s *PostgresStore) UpdateScanCalibration(ctx context.Context, scanID string, fields model.CalibrationFields) error {
	tag, err := s.pool.Exec(ctx, updateScanCalibrationSQL,
		fields.AgeConfidence, fields.RecommendationConfidence, fields.AgeUncertain, fields.AdjustedAge,
		fields.CalibrationVersion, fields.CalibrationStrategy, fields.CalibrationFallback, scanID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update scan calibration %s", scanID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("scan not found: %s", scanID)
	}
	return nil
}

func (s *PostgresStore) ListLabeledScans(ctx context.Context, filter LabelFilter) ([]model.LabeledScan, error) {
	query := `SELECT s.id, s.region_key, s.calibration_version, s.raw_confidence,
		s.age_confidence, s.recommendation_confidence,
		l.trust_source, l.age_correct, l.recommendation_correct, s.created_at
		FROM scan_labels l JOIN scans s ON s.id = l.scan_id WHERE true`
	args := []any{}
	argIdx := 1

	if filter.RegionKey != "" {
		query += fmt.Sprintf(` AND s.region_key = $%d`, argIdx)
		args = append(args, filter.RegionKey)
		argIdx++
	}
	if !filter.Since.IsZero() {
		query += fmt.Sprintf(` AND s.created_at >= $%d`, argIdx)
		args = append(args, filter.Since)
	}
	query += ` ORDER BY s.created_at ASC, l.id ASC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list labeled scans")
	}
	defer rows.Close()

	var labeled []model.LabeledScan
	for rows.Next() {
		var l model.LabeledScan
		if err := rows.Scan(&l.ScanID, &l.RegionKey, &l.CalibrationVersion, &l.RawConfidence,
			&l.AgeConfidence, &l.RecConfidence,
			&l.TrustSource, &l.AgeCorrect, &l.RecommendationCorrect, &l.ScanCreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan labeled row")
		}
		labeled = append(labeled, l)
	}
	return labeled, eris.Wrap(rows.Err(), "postgres: list labeled scans iterate")
}

func (s *PostgresStore) InsertCurves(ctx context.Context, curves []model.CalibrationCurve) error {
	for _, c := range curves {
		binsJSON, err := json.Marshal(c.Bins)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal bins")
		}
		_, err = s.pool.Exec(ctx,
			`INSERT INTO calibration_curves
			 (id, calibration_version, curve_type, region_key, method, bins,
			  sample_count, min_samples_required, is_active, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			c.ID, c.CalibrationVersion, string(c.CurveType), c.RegionKey, c.Method, binsJSON,
			c.SampleCount, c.MinSamplesRequired, c.IsActive, c.CreatedAt, c.UpdatedAt,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert curve %s", c.ID)
		}
	}
	return nil
}

func curveFromRow(row pgx.Row) (*model.CalibrationCurve, error) {
	var c model.CalibrationCurve
	var binsJSON []byte
	err := row.Scan(&c.ID, &c.CalibrationVersion, &c.CurveType, &c.RegionKey, &c.Method, &binsJSON,
		&c.SampleCount, &c.MinSamplesRequired, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(binsJSON, &c.Bins); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal bins")
	}
	return &c, nil
}

func (s *PostgresStore) GetCurve(ctx context.Context, curveID string) (*model.CalibrationCurve, error) {
	c, err := curveFromRow(s.pool.QueryRow(ctx,
		`SELECT `+curveColumns+` FROM calibration_curves WHERE id = $1`, curveID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get curve %s", curveID)
	}
	return c, nil
}

func (s *PostgresStore) ListCurves(ctx context.Context, filter CurveFilter) ([]model.CalibrationCurve, error) {
	query := `SELECT ` + curveColumns + ` FROM calibration_curves WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Version != "" {
		query += fmt.Sprintf(` AND calibration_version = $%d`, argIdx)
		args = append(args, filter.Version)
	}
	if filter.ActiveOnly {
		query += ` AND is_active`
	}
	query += ` ORDER BY created_at DESC, curve_type ASC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list curves")
	}
	defer rows.Close()

	var curves []model.CalibrationCurve
	for rows.Next() {
		c, err := curveFromRow(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan curve row")
		}
		curves = append(curves, *c)
	}
	return curves, eris.Wrap(rows.Err(), "postgres: list curves iterate")
}

func (s *PostgresStore) ActiveCurves(ctx context.Context) (model.CurveLookup, error) {
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

// ActivateCurve atomically deactivates any active curve sharing the target's
// scope and activates the target, inside one transaction.
func (s *PostgresStore) ActivateCurve(ctx context.Context, curveID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: activate curve: begin tx")
	}
	defer tx.Rollback(ctx)

	var curveType string
	var regionKey *string
	err = tx.QueryRow(ctx,
		`SELECT curve_type, region_key FROM calibration_curves WHERE id = $1 FOR UPDATE`,
		curveID,
	).Scan(&curveType, &regionKey)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return eris.Errorf("curve not found: %s", curveID)
		}
		return eris.Wrapf(err, "postgres: activate curve %s", curveID)
	}

	_, err = tx.Exec(ctx,
		`UPDATE calibration_curves SET is_active = false, updated_at = now()
		 WHERE is_active AND curve_type = $1 AND COALESCE(region_key, '') = COALESCE($2, '') AND id <> $3`,
		curveType, regionKey, curveID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: deactivate siblings of %s", curveID)
	}

	_, err = tx.Exec(ctx,
		`UPDATE calibration_curves SET is_active = true, updated_at = now() WHERE id = $1`,
		curveID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: activate curve %s", curveID)
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: activate curve: commit")
}

func (s *PostgresStore) DeactivateCurve(ctx context.Context, curveID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE calibration_curves SET is_active = false, updated_at = now() WHERE id = $1`,
		curveID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: deactivate curve %s", curveID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("curve not found: %s", curveID)
	}
	return nil
}

func (s *PostgresStore) InsertDriftEvents(ctx context.Context, events []model.DriftEvent) (int, error) {
	rows := make([][]any, 0, len(events))
	for _, e := range events {
		rows = append(rows, []any{
			e.ID, e.RegionKey, e.CalibrationVersion, string(e.ConfidenceType),
			e.ExpectedAccuracy, e.ObservedAccuracy, e.DriftPercentage, string(e.Severity),
			e.SampleSize, e.WindowDays, e.SeasonBucket, e.CreatedAt,
		})
	}
	n, err := db.CopyFrom(ctx, s.pool, "drift_events",
		[]string{"id", "region_key", "calibration_version", "confidence_type",
			"expected_accuracy", "observed_accuracy", "drift_percentage", "severity",
			"sample_size", "window_days", "season_bucket", "created_at"},
		rows,
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: insert drift events")
	}
	return int(n), nil
}

func (s *PostgresStore) ListDriftEvents(ctx context.Context, since time.Time) ([]model.DriftEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, region_key, calibration_version, confidence_type,
		 expected_accuracy, observed_accuracy, drift_percentage, severity,
		 sample_size, window_days, season_bucket, created_at
		 FROM drift_events WHERE created_at >= $1 ORDER BY created_at ASC`,
		since,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list drift events")
	}
	defer rows.Close()

	var events []model.DriftEvent
	for rows.Next() {
		var e model.DriftEvent
		if err := rows.Scan(&e.ID, &e.RegionKey, &e.CalibrationVersion, &e.ConfidenceType,
			&e.ExpectedAccuracy, &e.ObservedAccuracy, &e.DriftPercentage, &e.Severity,
			&e.SampleSize, &e.WindowDays, &e.SeasonBucket, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan drift event")
		}
		events = append(events, e)
	}
	return events, eris.Wrap(rows.Err(), "postgres: list drift events iterate")
}

func (s *PostgresStore) UpsertRegionMaturity(ctx context.Context, m model.RegionMaturity) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO region_maturity
		 (region_key, maturity_level, labeled_sample_count, label_source_diversity_score, stability_score, last_computed_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (region_key) DO UPDATE SET
		   maturity_level = $2, labeled_sample_count = $3,
		   label_source_diversity_score = $4, stability_score = $5, last_computed_at = $6`,
		m.RegionKey, string(m.MaturityLevel), m.LabeledSampleCount,
		m.LabelSourceDiversityScore, m.StabilityScore, m.LastComputedAt,
	)
	return eris.Wrapf(err, "postgres: upsert region maturity %s", m.RegionKey)
}

func (s *PostgresStore) ListRegionMaturity(ctx context.Context) ([]model.RegionMaturity, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT region_key, maturity_level, labeled_sample_count,
		 label_source_diversity_score, stability_score, last_computed_at
		 FROM region_maturity ORDER BY region_key ASC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list region maturity")
	}
	defer rows.Close()

	var out []model.RegionMaturity
	for rows.Next() {
		var m model.RegionMaturity
		if err := rows.Scan(&m.RegionKey, &m.MaturityLevel, &m.LabeledSampleCount,
			&m.LabelSourceDiversityScore, &m.StabilityScore, &m.LastComputedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan region maturity")
		}
		out = append(out, m)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list region maturity iterate")
}

func (s *PostgresStore) InsertRecommendations(ctx context.Context, recs []model.ModelRecommendation) (int, error) {
	rows := make([][]any, 0, len(recs))
	for _, r := range recs {
		metricsJSON, err := json.Marshal(r.SupportingMetrics)
		if err != nil {
			return 0, eris.Wrap(err, "postgres: marshal supporting metrics")
		}
		rows = append(rows, []any{
			r.ID, r.RegionKey, string(r.ConfidenceType), string(r.RecommendationType),
			metricsJSON, string(r.Severity), r.CreatedAt,
		})
	}
	n, err := db.CopyFrom(ctx, s.pool, "model_recommendations",
		[]string{"id", "region_key", "confidence_type", "recommendation_type",
			"supporting_metrics", "severity", "created_at"},
		rows,
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: insert recommendations")
	}
	return int(n), nil
}

func (s *PostgresStore) ListRecommendations(ctx context.Context, since time.Time) ([]model.ModelRecommendation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, region_key, confidence_type, recommendation_type, supporting_metrics, severity, created_at
		 FROM model_recommendations WHERE created_at >= $1 ORDER BY created_at ASC`,
		since,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list recommendations")
	}
	defer rows.Close()

	var recs []model.ModelRecommendation
	for rows.Next() {
		var r model.ModelRecommendation
		var metricsJSON []byte
		if err := rows.Scan(&r.ID, &r.RegionKey, &r.ConfidenceType, &r.RecommendationType,
			&metricsJSON, &r.Severity, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan recommendation")
		}
		if err := json.Unmarshal(metricsJSON, &r.SupportingMetrics); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal supporting metrics")
		}
		recs = append(recs, r)
	}
	return recs, eris.Wrap(rows.Err(), "postgres: list recommendations iterate")
}
