package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"transit-analytics/internal/model"
)

// FeatureCollection builds the GeoJSON collection of one kind. ref is a line
// code for line stops and a numeric id otherwise.
func (s *AnalyticsService) FeatureCollection(ctx context.Context, kind model.GeoKind, ref string) (model.FeatureCollection, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return model.FeatureCollection{}, fmt.Errorf("%w: geometry reference is required", model.ErrInvalidArgument)
	}

	if kind == model.GeoLineStops {
		stops, err := s.stopCollection(ctx, "line_stops", model.LineScope(0, ref))
		return stops.collection, err
	}

	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		return model.FeatureCollection{}, fmt.Errorf("%w: %q is not a numeric id", model.ErrInvalidArgument, ref)
	}

	switch kind {
	case model.GeoLineNeighborhoods:
		return s.polygonCollection(ctx, "line_neighborhoods", model.LineScope(id, ""))
	case model.GeoNeighborhoodPolygon:
		return s.polygonCollection(ctx, "neighborhood_polygon", model.NeighborhoodScope(id))
	case model.GeoNeighborhoodStops:
		stops, err := s.stopCollection(ctx, "neighborhood_stops", model.NeighborhoodScope(id))
		return stops.collection, err
	default:
		return model.FeatureCollection{}, fmt.Errorf("%w: unknown geometry kind %q", model.ErrInvalidArgument, kind)
	}
}

type stopResult struct {
	collection model.FeatureCollection
	// distinct stop identifiers in the snapshot, with or without geometry
	stops int64
}

func (s *AnalyticsService) stopCollection(ctx context.Context, operation string, scope model.Scope) (stopResult, error) {
	var res stopResult
	err := s.query(ctx, operation, func(ctx context.Context) (err error) {
		res, err = s.loadStops(ctx, scope)
		return err
	})
	return res, err
}

// loadStops resolves the latest snapshot once and reads every stop of scope
// from it.
func (s *AnalyticsService) loadStops(ctx context.Context, scope model.Scope) (stopResult, error) {
	snap, err := s.store.LatestSnapshot(ctx)
	if err != nil {
		return stopResult{}, err
	}
	if snap == nil {
		return stopResult{collection: model.NewFeatureCollection(nil)}, nil
	}
	rows, err := s.store.StopPoints(ctx, *snap, scope)
	if err != nil {
		return stopResult{}, err
	}
	return assembleStops(*snap, rows), nil
}

// assembleStops keeps rows of snap only, drops rows without geometry, and
// keeps one row per stop identifier: the one with the lowest row id.
func assembleStops(snap model.Snapshot, rows []model.StopPointRow) stopResult {
	inSnapshot := lo.Filter(rows, func(row model.StopPointRow, _ int) bool {
		return row.Year == snap.Year && row.Month == snap.Month
	})
	distinct := len(lo.Uniq(lo.Map(inSnapshot, func(row model.StopPointRow, _ int) string { return row.StopID })))

	located := lo.Filter(inSnapshot, func(row model.StopPointRow, _ int) bool {
		return hasGeometry(row.GeoJSON)
	})
	sort.SliceStable(located, func(i, j int) bool {
		if located[i].StopID != located[j].StopID {
			return located[i].StopID < located[j].StopID
		}
		return located[i].RowID < located[j].RowID
	})
	representatives := lo.UniqBy(located, func(row model.StopPointRow) string { return row.StopID })

	features := lo.Map(representatives, func(row model.StopPointRow, _ int) model.Feature {
		return model.NewFeature(*row.GeoJSON, map[string]any{
			"stop_id":        row.StopID,
			"snapshot_year":  snap.Year,
			"snapshot_month": snap.Month,
		})
	})
	return stopResult{collection: model.NewFeatureCollection(features), stops: int64(distinct)}
}

func (s *AnalyticsService) polygonCollection(ctx context.Context, operation string, scope model.Scope) (model.FeatureCollection, error) {
	var res model.FeatureCollection
	err := s.query(ctx, operation, func(ctx context.Context) (err error) {
		res, err = s.loadPolygons(ctx, scope)
		return err
	})
	return res, err
}

func (s *AnalyticsService) loadPolygons(ctx context.Context, scope model.Scope) (model.FeatureCollection, error) {
	rows, err := s.store.Polygons(ctx, scope)
	if err != nil {
		return model.FeatureCollection{}, err
	}
	return assemblePolygons(rows), nil
}

func assemblePolygons(rows []model.PolygonRow) model.FeatureCollection {
	located := lo.Filter(rows, func(row model.PolygonRow, _ int) bool { return hasGeometry(row.GeoJSON) })
	sort.SliceStable(located, func(i, j int) bool { return located[i].ID < located[j].ID })

	features := lo.Map(located, func(row model.PolygonRow, _ int) model.Feature {
		return model.NewFeature(*row.GeoJSON, map[string]any{
			"neighborhood_id": row.ID,
			"name":            row.Name,
		})
	})
	return model.NewFeatureCollection(features)
}

func hasGeometry(geo *string) bool {
	if geo == nil {
		return false
	}
	trimmed := strings.TrimSpace(*geo)
	return trimmed != "" && trimmed != "null"
}
