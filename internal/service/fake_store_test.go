package service

import (
	"context"
	"encoding/json"
	"sync"

	"transit-analytics/internal/metric"
	"transit-analytics/internal/model"
)

// fakeStore serves canned rows. Methods a test does not configure are left to
// the embedded nil Store and panic if reached.
type fakeStore struct {
	Store

	mu    sync.Mutex
	calls []string

	rankItems      []model.RankingItem
	lastSource     metric.Source
	operatorTotals []model.OperatorTotals
	options        []model.Option

	totals         *model.EntityTotals
	periods        model.ActivePeriods
	weekday        []model.WeekdayBucket
	justifications []model.ChartPoint
	topLines       []model.RankingItem
	topVehicles    []model.RankingItem
	yearly         []model.ChartPoint
	linesServed    int64
	lineProfile    model.LineProfile
	vehicleProfile model.VehicleProfile
	hoodProfile    model.NeighborhoodProfile
	justProfile    model.JustificationProfile

	snapshot *model.Snapshot
	stops    []model.StopPointRow
	polygons []model.PolygonRow

	failOn string
	err    error
}

func (f *fakeStore) record(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	if f.failOn == name {
		return f.err
	}
	return nil
}

func (f *fakeStore) called(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (f *fakeStore) Rank(_ context.Context, src metric.Source, _ model.DateRange, _ int) ([]model.RankingItem, error) {
	f.mu.Lock()
	f.lastSource = src
	f.mu.Unlock()
	return f.rankItems, f.record("Rank")
}

func (f *fakeStore) OperatorTotals(context.Context, model.EntityType, model.DateRange) ([]model.OperatorTotals, error) {
	return f.operatorTotals, f.record("OperatorTotals")
}

func (f *fakeStore) Options(context.Context, model.EntityType) ([]model.Option, error) {
	return f.options, f.record("Options")
}

func (f *fakeStore) EntityTotals(context.Context, model.EntityType, int64, model.DateRange) (*model.EntityTotals, error) {
	return f.totals, f.record("EntityTotals")
}

func (f *fakeStore) ActivePeriods(context.Context, model.EntityType, int64, model.DateRange) (model.ActivePeriods, error) {
	return f.periods, f.record("ActivePeriods")
}

func (f *fakeStore) WeekdayBuckets(context.Context, model.EntityType, int64, model.DateRange) ([]model.WeekdayBucket, error) {
	return f.weekday, f.record("WeekdayBuckets")
}

func (f *fakeStore) JustificationBreakdown(context.Context, model.EntityType, int64, model.DateRange) ([]model.ChartPoint, error) {
	return f.justifications, f.record("JustificationBreakdown")
}

func (f *fakeStore) TopLines(context.Context, model.EntityType, int64, model.DateRange, int) ([]model.RankingItem, error) {
	return f.topLines, f.record("TopLines")
}

func (f *fakeStore) TopVehicles(context.Context, int64, model.DateRange, int) ([]model.RankingItem, error) {
	return f.topVehicles, f.record("TopVehicles")
}

func (f *fakeStore) YearlyPassengers(context.Context, int64, model.DateRange) ([]model.ChartPoint, error) {
	return f.yearly, f.record("YearlyPassengers")
}

func (f *fakeStore) LinesServed(context.Context, model.EntityType, int64, model.DateRange) (int64, error) {
	return f.linesServed, f.record("LinesServed")
}

func (f *fakeStore) LineProfile(context.Context, int64, model.DateRange) (model.LineProfile, error) {
	return f.lineProfile, f.record("LineProfile")
}

func (f *fakeStore) VehicleProfile(context.Context, int64) (model.VehicleProfile, error) {
	return f.vehicleProfile, f.record("VehicleProfile")
}

func (f *fakeStore) NeighborhoodProfile(context.Context, int64, model.DateRange) (model.NeighborhoodProfile, error) {
	return f.hoodProfile, f.record("NeighborhoodProfile")
}

func (f *fakeStore) JustificationProfile(context.Context, int64, model.DateRange) (model.JustificationProfile, error) {
	return f.justProfile, f.record("JustificationProfile")
}

func (f *fakeStore) LatestSnapshot(context.Context) (*model.Snapshot, error) {
	return f.snapshot, f.record("LatestSnapshot")
}

func (f *fakeStore) StopPoints(context.Context, model.Snapshot, model.Scope) ([]model.StopPointRow, error) {
	return f.stops, f.record("StopPoints")
}

func (f *fakeStore) Polygons(context.Context, model.Scope) ([]model.PolygonRow, error) {
	return f.polygons, f.record("Polygons")
}

// mapCache stores JSON like the Redis cache does.
type mapCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMapCache() *mapCache {
	return &mapCache{entries: map[string][]byte{}}
}

func (c *mapCache) Get(_ context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *mapCache) Set(_ context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = raw
	return nil
}

func ptr[T any](v T) *T { return &v }
