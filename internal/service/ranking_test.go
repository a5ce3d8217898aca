package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transit-analytics/internal/metric"
	"transit-analytics/internal/model"
)

var january = model.NewDateRange(
	time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
)

func newTestService(store Store) *AnalyticsService {
	return NewAnalyticsService(store, Options{
		Parallelism: 4,
		Now:         func() time.Time { return time.Date(2024, 3, 15, 13, 0, 0, 0, time.UTC) },
	})
}

func TestRankBreaksTiesByAscendingID(t *testing.T) {
	store := &fakeStore{rankItems: []model.RankingItem{
		{ID: 1, Code: "L1", Value: 500},
		{ID: 3, Code: "L3", Value: 900},
		{ID: 4, Code: "L4", Value: 1500},
		{ID: 2, Code: "L2", Value: 1500},
	}}
	svc := newTestService(store)

	ranking, err := svc.Rank(context.Background(), model.EntityLine, model.MetricPassengers, january, 3)
	require.NoError(t, err)

	codes := make([]string, 0, len(ranking.Items))
	for _, item := range ranking.Items {
		codes = append(codes, item.Code)
	}
	assert.Equal(t, []string{"L2", "L4", "L3"}, codes)
	assert.Equal(t, "2024-01-01", ranking.From)
	assert.Equal(t, "2024-01-31", ranking.To)
	assert.Equal(t, "agg_metricas_linhas_diarias", store.lastSource.Table)
}

func TestRankTruncatesToLimit(t *testing.T) {
	store := &fakeStore{rankItems: []model.RankingItem{
		{ID: 1, Value: 10}, {ID: 2, Value: 30}, {ID: 3, Value: 20},
	}}
	ranking, err := newTestService(store).Rank(context.Background(), model.EntityLine, model.MetricTrips, january, 2)
	require.NoError(t, err)
	require.Len(t, ranking.Items, 2)
	assert.Equal(t, int64(2), ranking.Items[0].ID)
	assert.Equal(t, int64(3), ranking.Items[1].ID)
}

func TestRankValidatesBeforeQuerying(t *testing.T) {
	cases := []struct {
		name   string
		entity model.EntityType
		metric model.Metric
		limit  int
		want   error
	}{
		{"limit zero", model.EntityLine, model.MetricPassengers, 0, model.ErrInvalidArgument},
		{"limit above max", model.EntityLine, model.MetricPassengers, model.MaxLimit + 1, model.ErrInvalidArgument},
		{"metric outside set", model.EntityLine, model.MetricDistanceKm, 5, model.ErrInvalidMetric},
		{"entity without metrics", model.EntityCompany, model.MetricPassengers, 5, model.ErrInvalidArgument},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeStore{}
			_, err := newTestService(store).Rank(context.Background(), tc.entity, tc.metric, january, tc.limit)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
			assert.Zero(t, store.called("Rank"))
		})
	}
}

func TestRankRejectsInvertedRange(t *testing.T) {
	rng := model.NewDateRange(january.To, january.From)
	_, err := newTestService(&fakeStore{}).Rank(context.Background(), model.EntityLine, model.MetricPassengers, rng, 5)
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
}

func TestRankDefaultsEmptyRange(t *testing.T) {
	ranking, err := newTestService(&fakeStore{}).Rank(context.Background(), model.EntityLine, model.MetricPassengers, model.DateRange{}, 5)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-15", ranking.From)
	assert.Equal(t, "2024-03-15", ranking.To)
	assert.NotNil(t, ranking.Items)
}

func TestRankOccurrencesByEntityDropsSentinel(t *testing.T) {
	store := &fakeStore{rankItems: []model.RankingItem{
		{ID: 1, Code: "0", Name: "NAO IDENTIFICADA", Value: 9000},
		{ID: 2, Code: "12", Name: "Viação Norte", Value: 40},
		{ID: 3, Code: "15", Name: "Viação Sul", Value: -3},
	}}
	ranking, err := newTestService(store).RankOccurrencesByEntity(context.Background(), model.EntityCompany, january, 10)
	require.NoError(t, err)

	require.Len(t, ranking.Items, 2)
	assert.Equal(t, "12", ranking.Items[0].Code)
	assert.Equal(t, 0.0, ranking.Items[1].Value)
	assert.Equal(t, metric.ModeSum, store.lastSource.Mode)
}

func TestRankOccurrencesByEntityRejectsVehicle(t *testing.T) {
	_, err := newTestService(&fakeStore{}).RankOccurrencesByEntity(context.Background(), model.EntityVehicle, january, 10)
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
}

func TestRankUsesCache(t *testing.T) {
	store := &fakeStore{rankItems: []model.RankingItem{{ID: 1, Code: "L1", Value: 5}}}
	svc := NewAnalyticsService(store, Options{Cache: newMapCache()})

	first, err := svc.Rank(context.Background(), model.EntityLine, model.MetricPassengers, january, 5)
	require.NoError(t, err)
	second, err := svc.Rank(context.Background(), model.EntityLine, model.MetricPassengers, january, 5)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.called("Rank"))
}

func TestRankStopsPerLineWithoutSnapshot(t *testing.T) {
	ranking, err := newTestService(&fakeStore{}).RankStopsPerLine(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, ranking.Items)
	assert.NotNil(t, ranking.Items)
}

func TestFinalizeRankingKeepsSentinelForLines(t *testing.T) {
	items := finalizeRanking(model.EntityLine, []model.RankingItem{{ID: 1, Code: "0", Value: 1}}, 5)
	assert.Len(t, items, 1)
}
