package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transit-analytics/internal/model"
)

const point = `{"type":"Point","coordinates":[-49.27,-25.43]}`

func TestAssembleStopsKeepsLowestRowPerStop(t *testing.T) {
	snap := model.Snapshot{Year: 2024, Month: 5}
	res := assembleStops(snap, []model.StopPointRow{
		{RowID: 9, StopID: "B", Year: 2024, Month: 5, GeoJSON: ptr(point)},
		{RowID: 4, StopID: "B", Year: 2024, Month: 5, GeoJSON: ptr(point)},
		{RowID: 2, StopID: "A", Year: 2024, Month: 5, GeoJSON: ptr("null")},
		{RowID: 3, StopID: "A", Year: 2024, Month: 5, GeoJSON: ptr(point)},
		{RowID: 5, StopID: "C", Year: 2024, Month: 5},
		{RowID: 1, StopID: "D", Year: 2024, Month: 4, GeoJSON: ptr(point)},
	})

	require.Len(t, res.collection.Features, 2)
	assert.Equal(t, "A", res.collection.Features[0].Properties["stop_id"])
	assert.Equal(t, "B", res.collection.Features[1].Properties["stop_id"])
	assert.Equal(t, 5, res.collection.Features[1].Properties["snapshot_month"])
	assert.Equal(t, int64(3), res.stops)
}

func TestFeatureCollectionWithoutSnapshotIsEmpty(t *testing.T) {
	fc, err := newTestService(&fakeStore{}).FeatureCollection(context.Background(), model.GeoLineStops, "L4")
	require.NoError(t, err)
	assert.Equal(t, "FeatureCollection", fc.Type)
	assert.NotNil(t, fc.Features)
	assert.Empty(t, fc.Features)
}

func TestFeatureCollectionRejectsReference(t *testing.T) {
	cases := []struct {
		kind model.GeoKind
		ref  string
	}{
		{model.GeoLineStops, "  "},
		{model.GeoNeighborhoodPolygon, "abc"},
		{model.GeoKind("bogus"), "1"},
	}
	for _, tc := range cases {
		_, err := newTestService(&fakeStore{}).FeatureCollection(context.Background(), tc.kind, tc.ref)
		assert.ErrorIs(t, err, model.ErrInvalidArgument, "%s %q", tc.kind, tc.ref)
	}
}

func TestPolygonsDropMissingGeometry(t *testing.T) {
	store := &fakeStore{polygons: []model.PolygonRow{
		{ID: 5, Name: "Batel", GeoJSON: ptr(point)},
		{ID: 2, Name: "Centro", GeoJSON: ptr(point)},
		{ID: 3, Name: "Água Verde"},
	}}
	fc, err := newTestService(store).FeatureCollection(context.Background(), model.GeoLineNeighborhoods, "4")
	require.NoError(t, err)
	require.Len(t, fc.Features, 2)
	assert.Equal(t, int64(2), fc.Features[0].Properties["neighborhood_id"])
}
