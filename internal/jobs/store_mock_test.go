package jobs

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/calibration-engine/internal/model"
	"github.com/sells-group/calibration-engine/internal/store"
)

// fakeStore is an in-memory store.Store for job tests.
type fakeStore struct {
	scans    []model.Scan
	labeled  []model.LabeledScan
	curves   map[string]*model.CalibrationCurve
	drift    []model.DriftEvent
	maturity map[string]model.RegionMaturity
	recs     []model.ModelRecommendation

	failScanIDs map[string]bool // scan IDs whose update should error
	updateCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		curves:      make(map[string]*model.CalibrationCurve),
		maturity:    make(map[string]model.RegionMaturity),
		failScanIDs: make(map[string]bool),
	}
}

func (f *fakeStore) GetScan(_ context.Context, scanID string) (*model.Scan, error) {
	for i := range f.scans {
		if f.scans[i].ID == scanID {
			sc := f.scans[i]
			return &sc, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ListScans(_ context.Context, filter store.ScanFilter) ([]model.Scan, error) {
	var matched []model.Scan
	for _, sc := range f.scans {
		if filter.RegionKey != "" && sc.RegionKey != filter.RegionKey {
			continue
		}
		if !filter.Since.IsZero() && sc.CreatedAt.Before(filter.Since) {
			continue
		}
		matched = append(matched, sc)
	}
	if filter.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (f *fakeStore) CountScans(_ context.Context) (int, error) {
	return len(f.scans), nil
}

func (f *fakeStore) UpdateScanCalibration(_ context.Context, scanID string, fields model.CalibrationFields) error {
	if f.failScanIDs[scanID] {
		return eris.Errorf("forced failure: %s", scanID)
	}
	for i := range f.scans {
		if f.scans[i].ID == scanID {
			sc := &f.scans[i]
			sc.AgeConfidence = fields.AgeConfidence
			sc.RecommendationConfidence = fields.RecommendationConfidence
			sc.AgeUncertain = fields.AgeUncertain
			sc.AdjustedAge = fields.AdjustedAge
			sc.CalibrationVersion = fields.CalibrationVersion
			sc.CalibrationStrategy = fields.CalibrationStrategy
			sc.CalibrationFallback = fields.CalibrationFallback
			f.updateCalls++
			return nil
		}
	}
	return eris.Errorf("scan not found: %s", scanID)
}

func (f *fakeStore) ListLabeledScans(_ context.Context, filter store.LabelFilter) ([]model.LabeledScan, error) {
	var out []model.LabeledScan
	for _, l := range f.labeled {
		if filter.RegionKey != "" && l.RegionKey != filter.RegionKey {
			continue
		}
		if !filter.Since.IsZero() && l.ScanCreatedAt.Before(filter.Since) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (f *fakeStore) InsertCurves(_ context.Context, curves []model.CalibrationCurve) error {
	for i := range curves {
		c := curves[i]
		f.curves[c.ID] = &c
	}
	return nil
}

func (f *fakeStore) GetCurve(_ context.Context, curveID string) (*model.CalibrationCurve, error) {
	c, ok := f.curves[curveID]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (f *fakeStore) ListCurves(_ context.Context, filter store.CurveFilter) ([]model.CalibrationCurve, error) {
	var out []model.CalibrationCurve
	for _, c := range f.curves {
		if filter.Version != "" && c.CalibrationVersion != filter.Version {
			continue
		}
		if filter.ActiveOnly && !c.IsActive {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) ActiveCurves(_ context.Context) (model.CurveLookup, error) {
	lookup := make(model.CurveLookup)
	for _, c := range f.curves {
		if c.IsActive {
			cp := *c
			lookup[cp.Scope()] = &cp
		}
	}
	return lookup, nil
}

func (f *fakeStore) ActivateCurve(_ context.Context, curveID string) error {
	target, ok := f.curves[curveID]
	if !ok {
		return eris.Errorf("curve not found: %s", curveID)
	}
	for _, c := range f.curves {
		if c.Scope() == target.Scope() && c.ID != curveID {
			c.IsActive = false
		}
	}
	target.IsActive = true
	return nil
}

func (f *fakeStore) DeactivateCurve(_ context.Context, curveID string) error {
	c, ok := f.curves[curveID]
	if !ok {
		return eris.Errorf("curve not found: %s", curveID)
	}
	c.IsActive = false
	return nil
}

func (f *fakeStore) InsertDriftEvents(_ context.Context, events []model.DriftEvent) (int, error) {
	f.drift = append(f.drift, events...)
	return len(events), nil
}

func (f *fakeStore) ListDriftEvents(_ context.Context, since time.Time) ([]model.DriftEvent, error) {
	var out []model.DriftEvent
	for _, e := range f.drift {
		if e.CreatedAt.Before(since) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeStore) UpsertRegionMaturity(_ context.Context, m model.RegionMaturity) error {
	f.maturity[m.RegionKey] = m
	return nil
}

func (f *fakeStore) ListRegionMaturity(_ context.Context) ([]model.RegionMaturity, error) {
	var out []model.RegionMaturity
	for _, m := range f.maturity {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegionKey < out[j].RegionKey })
	return out, nil
}

func (f *fakeStore) InsertRecommendations(_ context.Context, recs []model.ModelRecommendation) (int, error) {
	f.recs = append(f.recs, recs...)
	return len(recs), nil
}

func (f *fakeStore) ListRecommendations(_ context.Context, since time.Time) ([]model.ModelRecommendation, error) {
	var out []model.ModelRecommendation
	for _, r := range f.recs {
		if r.CreatedAt.Before(since) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeStore) Migrate(context.Context) error { return nil }
func (f *fakeStore) Ping(context.Context) error    { return nil }
func (f *fakeStore) Close() error                  { return nil }

var _ store.Store = (*fakeStore)(nil)
