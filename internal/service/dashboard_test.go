package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transit-analytics/internal/model"
)

func TestVehicleDashboardNotFound(t *testing.T) {
	store := &fakeStore{}
	_, err := newTestService(store).VehicleDashboard(context.Background(), 99, january)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Zero(t, store.called("VehicleProfile"))
}

func TestVehicleDashboardWithoutActivity(t *testing.T) {
	store := &fakeStore{
		totals:         &model.EntityTotals{EntityRef: model.EntityRef{ID: 7, Code: "V7", Name: "V7"}},
		vehicleProfile: model.VehicleProfile{AgeYears: 3, ExtraMonths: 7, InOperation: true, Company: "Viação Norte"},
	}
	dash, err := newTestService(store).VehicleDashboard(context.Background(), 7, january)
	require.NoError(t, err)

	assert.False(t, dash.HasData)
	assert.Equal(t, 3, dash.AgeYears)
	assert.Equal(t, 7, dash.ExtraMonths)
	assert.Zero(t, dash.Trips)
	assert.Zero(t, dash.Averages.PerTrip)
	assert.NotNil(t, dash.TopLines)
	assert.Empty(t, dash.TopLines)
	assert.NotNil(t, dash.WeekdayPassengers)
	assert.NotNil(t, dash.Justifications)
}

func TestVehicleDashboardWeekdayIsPerTrip(t *testing.T) {
	store := &fakeStore{
		totals:  &model.EntityTotals{EntityRef: model.EntityRef{ID: 7}, RollupRows: 3, Passengers: 300, Trips: 10},
		periods: model.ActivePeriods{Months: 1, Days: 3},
		weekday: []model.WeekdayBucket{{Ordinal: 1, Label: "Segunda", Total: 120, Days: 2, Trips: 4}},
	}
	dash, err := newTestService(store).VehicleDashboard(context.Background(), 7, january)
	require.NoError(t, err)

	assert.True(t, dash.HasData)
	assert.Equal(t, []model.ChartPoint{{Category: "Segunda", Value: 30}}, dash.WeekdayPassengers)
	assert.Equal(t, model.Averages{PerMonth: 300, PerDay: 100, PerTrip: 30}, dash.Averages)
}

func TestLineDashboard(t *testing.T) {
	store := &fakeStore{
		totals:      &model.EntityTotals{EntityRef: model.EntityRef{ID: 4, Code: "L4", Name: "Centro"}, RollupRows: 2, Passengers: 1000, Trips: 50},
		periods:     model.ActivePeriods{Months: 1, Days: 2},
		lineProfile: model.LineProfile{Company: "Viação Norte", TripsNotPerformed: 5, Neighborhoods: 3},
		weekday: []model.WeekdayBucket{
			{Ordinal: 2, Label: "Terça", Total: 400, Days: 1},
			{Ordinal: 1, Label: "Segunda", Total: 600, Days: 1},
		},
		snapshot: &model.Snapshot{Year: 2024, Month: 2},
		stops: []model.StopPointRow{
			{RowID: 1, StopID: "A", Year: 2024, Month: 2, GeoJSON: ptr(`{"type":"Point","coordinates":[1,2]}`)},
			{RowID: 2, StopID: "B", Year: 2024, Month: 2},
		},
		polygons: []model.PolygonRow{{ID: 8, Name: "Centro", GeoJSON: ptr(`{"type":"Polygon","coordinates":[]}`)}},
	}
	dash, err := newTestService(store).LineDashboard(context.Background(), 4, january)
	require.NoError(t, err)

	assert.Equal(t, 45.0, dash.TripsPerformed)
	assert.Equal(t, int64(2), dash.StopPoints)
	assert.Len(t, dash.StopsMap.Features, 1)
	assert.Len(t, dash.NeighborhoodsMap.Features, 1)
	assert.Equal(t, int64(3), dash.NeighborhoodsTraversed)
	assert.Equal(t, "Segunda", dash.WeekdayPassengers[0].Category)
	assert.Equal(t, 20.0, dash.Averages.PerTrip)
}

func TestJustificationDashboardMostAffectedLine(t *testing.T) {
	store := &fakeStore{
		totals: &model.EntityTotals{EntityRef: model.EntityRef{ID: 2, Name: "Quebra"}, RollupRows: 4, Occurrences: 4},
		topLines: []model.RankingItem{
			{ID: 11, Code: "L11", Value: 1},
			{ID: 12, Code: "L12", Value: 3},
		},
		justProfile: model.JustificationProfile{OccurrenceType: "Mecânica", TripsNotPerformed: 2},
	}
	dash, err := newTestService(store).JustificationDashboard(context.Background(), 2, january)
	require.NoError(t, err)

	require.NotNil(t, dash.MostAffectedLineID)
	assert.Equal(t, int64(12), *dash.MostAffectedLineID)
	assert.Equal(t, "Mecânica", dash.OccurrenceType)
	assert.NotNil(t, dash.TopVehicles)
}

func TestJustificationDashboardWithoutLines(t *testing.T) {
	store := &fakeStore{totals: &model.EntityTotals{EntityRef: model.EntityRef{ID: 2}}}
	dash, err := newTestService(store).JustificationDashboard(context.Background(), 2, january)
	require.NoError(t, err)
	assert.Nil(t, dash.MostAffectedLineID)
}

func TestCompanyDashboardPropagatesSubQueryError(t *testing.T) {
	boom := errors.New("boom")
	store := &fakeStore{
		totals: &model.EntityTotals{EntityRef: model.EntityRef{ID: 1}},
		failOn: "YearlyPassengers",
		err:    boom,
	}
	_, err := newTestService(store).CompanyDashboard(context.Background(), 1, january)
	assert.ErrorIs(t, err, boom)
}

func TestNeighborhoodDashboardMaps(t *testing.T) {
	store := &fakeStore{
		totals:      &model.EntityTotals{EntityRef: model.EntityRef{ID: 8, Name: "Centro"}, RollupRows: 1, Passengers: 50},
		hoodProfile: model.NeighborhoodProfile{Population: 1200, Lines: 4},
		polygons:    []model.PolygonRow{{ID: 8, Name: "Centro"}},
	}
	dash, err := newTestService(store).NeighborhoodDashboard(context.Background(), 8, january)
	require.NoError(t, err)

	assert.Equal(t, int64(1200), dash.Population)
	assert.NotNil(t, dash.PolygonMap.Features)
	assert.Empty(t, dash.PolygonMap.Features)
	assert.NotNil(t, dash.StopsMap.Features)
}
