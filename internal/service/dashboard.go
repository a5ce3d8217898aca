package service

import (
	"context"
	"fmt"

	"transit-analytics/internal/cache"
	"transit-analytics/internal/model"
	"transit-analytics/internal/rates"
)

// Every dashboard first checks that the dimension row exists (NotFound
// otherwise), then fans out its independent sub-computations. HasData tells
// an idle entity apart from a missing one.

func (s *AnalyticsService) baseTotals(ctx context.Context, entity model.EntityType, id int64, rng model.DateRange) (*model.EntityTotals, error) {
	var totals *model.EntityTotals
	err := s.query(ctx, string(entity)+"_dashboard.totals", func(ctx context.Context) (err error) {
		totals, err = s.store.EntityTotals(ctx, entity, id, rng)
		return err
	})
	if err != nil {
		return nil, err
	}
	if totals == nil {
		return nil, fmt.Errorf("%w: %s %d", model.ErrNotFound, entity, id)
	}
	return totals, nil
}

func dashboard[T any](ctx context.Context, s *AnalyticsService, entity model.EntityType, id int64, rng model.DateRange, build func(ctx context.Context, rng model.DateRange) (T, error)) (T, error) {
	rng, err := s.normalizeRange(rng)
	if err != nil {
		var zero T
		return zero, err
	}
	key := cache.Key("dashboard", entity, id, rng)
	return cached(ctx, s, "dashboard", key, func(ctx context.Context) (T, error) {
		return build(ctx, rng)
	})
}

func topN(items []model.RankingItem) []model.RankingItem {
	return finalizeRanking(model.EntityLine, items, model.DashboardTopN)
}

func (s *AnalyticsService) LineDashboard(ctx context.Context, id int64, rng model.DateRange) (*model.LineDashboard, error) {
	return dashboard(ctx, s, model.EntityLine, id, rng, func(ctx context.Context, rng model.DateRange) (*model.LineDashboard, error) {
		totals, err := s.baseTotals(ctx, model.EntityLine, id, rng)
		if err != nil {
			return nil, err
		}

		var (
			periods        model.ActivePeriods
			profile        model.LineProfile
			justifications []model.ChartPoint
			weekday        []model.WeekdayBucket
			stops          stopResult
			neighborhoods  model.FeatureCollection
		)
		err = s.fanOut(ctx, "line_dashboard",
			task{"periods", func(ctx context.Context) (err error) {
				periods, err = s.store.ActivePeriods(ctx, model.EntityLine, id, rng)
				return err
			}},
			task{"profile", func(ctx context.Context) (err error) {
				profile, err = s.store.LineProfile(ctx, id, rng)
				return err
			}},
			task{"justifications", func(ctx context.Context) (err error) {
				justifications, err = s.store.JustificationBreakdown(ctx, model.EntityLine, id, rng)
				return err
			}},
			task{"weekday", func(ctx context.Context) (err error) {
				weekday, err = s.store.WeekdayBuckets(ctx, model.EntityLine, id, rng)
				return err
			}},
			task{"stops_map", func(ctx context.Context) (err error) {
				stops, err = s.loadStops(ctx, model.LineScope(id, totals.Code))
				return err
			}},
			task{"neighborhoods_map", func(ctx context.Context) (err error) {
				neighborhoods, err = s.loadPolygons(ctx, model.LineScope(id, totals.Code))
				return err
			}},
		)
		if err != nil {
			return nil, err
		}

		return &model.LineDashboard{
			Line:                   totals.EntityRef,
			HasData:                totals.RollupRows > 0,
			Origin:                 profile.Origin,
			Company:                profile.Company,
			Concessionaire:         profile.Concessionaire,
			LengthKm:               profile.LengthKm,
			Passengers:             totals.Passengers,
			Trips:                  totals.Trips,
			TripsPerformed:         rates.NonNegative(totals.Trips - profile.TripsNotPerformed),
			TripsNotPerformed:      profile.TripsNotPerformed,
			TripsInterrupted:       profile.TripsInterrupted,
			ZeroPassengerTrips:     profile.ZeroPassengerTrips,
			Occurrences:            totals.Occurrences,
			NeighborhoodsTraversed: profile.Neighborhoods,
			StopPoints:             stops.stops,
			Averages:               averages(totals.Passengers, totals.Trips, periods),
			Justifications:         orEmpty(justifications),
			WeekdayPassengers:      weekdayChart(weekday, perActiveDay),
			StopsMap:               stops.collection,
			NeighborhoodsMap:       neighborhoods,
		}, nil
	})
}

func (s *AnalyticsService) VehicleDashboard(ctx context.Context, id int64, rng model.DateRange) (*model.VehicleDashboard, error) {
	return dashboard(ctx, s, model.EntityVehicle, id, rng, func(ctx context.Context, rng model.DateRange) (*model.VehicleDashboard, error) {
		totals, err := s.baseTotals(ctx, model.EntityVehicle, id, rng)
		if err != nil {
			return nil, err
		}

		var (
			periods        model.ActivePeriods
			profile        model.VehicleProfile
			justifications []model.ChartPoint
			lines          []model.RankingItem
			weekday        []model.WeekdayBucket
		)
		err = s.fanOut(ctx, "vehicle_dashboard",
			task{"periods", func(ctx context.Context) (err error) {
				periods, err = s.store.ActivePeriods(ctx, model.EntityVehicle, id, rng)
				return err
			}},
			task{"profile", func(ctx context.Context) (err error) {
				profile, err = s.store.VehicleProfile(ctx, id)
				return err
			}},
			task{"justifications", func(ctx context.Context) (err error) {
				justifications, err = s.store.JustificationBreakdown(ctx, model.EntityVehicle, id, rng)
				return err
			}},
			task{"top_lines", func(ctx context.Context) (err error) {
				lines, err = s.store.TopLines(ctx, model.EntityVehicle, id, rng, model.DashboardTopN)
				return err
			}},
			task{"weekday", func(ctx context.Context) (err error) {
				weekday, err = s.store.WeekdayBuckets(ctx, model.EntityVehicle, id, rng)
				return err
			}},
		)
		if err != nil {
			return nil, err
		}

		return &model.VehicleDashboard{
			Vehicle:           totals.EntityRef,
			HasData:           totals.RollupRows > 0,
			Company:           profile.Company,
			AgeYears:          profile.AgeYears,
			ExtraMonths:       profile.ExtraMonths,
			InOperation:       profile.InOperation,
			Passengers:        totals.Passengers,
			Trips:             totals.Trips,
			Occurrences:       totals.Occurrences,
			DistanceKm:        totals.DistanceKm,
			Averages:          averages(totals.Passengers, totals.Trips, periods),
			Justifications:    orEmpty(justifications),
			TopLines:          topN(lines),
			WeekdayPassengers: weekdayChart(weekday, perTrip),
		}, nil
	})
}

func (s *AnalyticsService) CompanyDashboard(ctx context.Context, id int64, rng model.DateRange) (*model.CompanyDashboard, error) {
	return dashboard(ctx, s, model.EntityCompany, id, rng, func(ctx context.Context, rng model.DateRange) (*model.CompanyDashboard, error) {
		totals, err := s.baseTotals(ctx, model.EntityCompany, id, rng)
		if err != nil {
			return nil, err
		}

		var (
			periods        model.ActivePeriods
			linesServed    int64
			justifications []model.ChartPoint
			lines          []model.RankingItem
			weekday        []model.WeekdayBucket
			yearly         []model.ChartPoint
		)
		err = s.fanOut(ctx, "company_dashboard",
			task{"periods", func(ctx context.Context) (err error) {
				periods, err = s.store.ActivePeriods(ctx, model.EntityCompany, id, rng)
				return err
			}},
			task{"lines_served", func(ctx context.Context) (err error) {
				linesServed, err = s.store.LinesServed(ctx, model.EntityCompany, id, rng)
				return err
			}},
			task{"justifications", func(ctx context.Context) (err error) {
				justifications, err = s.store.JustificationBreakdown(ctx, model.EntityCompany, id, rng)
				return err
			}},
			task{"top_lines", func(ctx context.Context) (err error) {
				lines, err = s.store.TopLines(ctx, model.EntityCompany, id, rng, model.DashboardTopN)
				return err
			}},
			task{"weekday", func(ctx context.Context) (err error) {
				weekday, err = s.store.WeekdayBuckets(ctx, model.EntityCompany, id, rng)
				return err
			}},
			task{"yearly", func(ctx context.Context) (err error) {
				yearly, err = s.store.YearlyPassengers(ctx, id, rng)
				return err
			}},
		)
		if err != nil {
			return nil, err
		}

		return &model.CompanyDashboard{
			Company:           totals.EntityRef,
			HasData:           totals.RollupRows > 0,
			Passengers:        totals.Passengers,
			Trips:             totals.Trips,
			Occurrences:       totals.Occurrences,
			LinesServed:       linesServed,
			Averages:          averages(totals.Passengers, totals.Trips, periods),
			Justifications:    orEmpty(justifications),
			TopLines:          topN(lines),
			WeekdayPassengers: weekdayChart(weekday, perActiveDay),
			YearlyPassengers:  orEmpty(yearly),
		}, nil
	})
}

func (s *AnalyticsService) ConcessionaireDashboard(ctx context.Context, id int64, rng model.DateRange) (*model.ConcessionaireDashboard, error) {
	return dashboard(ctx, s, model.EntityConcessionaire, id, rng, func(ctx context.Context, rng model.DateRange) (*model.ConcessionaireDashboard, error) {
		totals, err := s.baseTotals(ctx, model.EntityConcessionaire, id, rng)
		if err != nil {
			return nil, err
		}

		var (
			periods     model.ActivePeriods
			linesServed int64
			lines       []model.RankingItem
			weekday     []model.WeekdayBucket
		)
		err = s.fanOut(ctx, "concessionaire_dashboard",
			task{"periods", func(ctx context.Context) (err error) {
				periods, err = s.store.ActivePeriods(ctx, model.EntityConcessionaire, id, rng)
				return err
			}},
			task{"lines_served", func(ctx context.Context) (err error) {
				linesServed, err = s.store.LinesServed(ctx, model.EntityConcessionaire, id, rng)
				return err
			}},
			task{"top_lines", func(ctx context.Context) (err error) {
				lines, err = s.store.TopLines(ctx, model.EntityConcessionaire, id, rng, model.DashboardTopN)
				return err
			}},
			task{"weekday", func(ctx context.Context) (err error) {
				weekday, err = s.store.WeekdayBuckets(ctx, model.EntityConcessionaire, id, rng)
				return err
			}},
		)
		if err != nil {
			return nil, err
		}

		return &model.ConcessionaireDashboard{
			Concessionaire:    totals.EntityRef,
			HasData:           totals.RollupRows > 0,
			Passengers:        totals.Passengers,
			Trips:             totals.Trips,
			Occurrences:       totals.Occurrences,
			LinesServed:       linesServed,
			Averages:          averages(totals.Passengers, totals.Trips, periods),
			TopLines:          topN(lines),
			WeekdayPassengers: weekdayChart(weekday, perActiveDay),
		}, nil
	})
}

func (s *AnalyticsService) NeighborhoodDashboard(ctx context.Context, id int64, rng model.DateRange) (*model.NeighborhoodDashboard, error) {
	return dashboard(ctx, s, model.EntityNeighborhood, id, rng, func(ctx context.Context, rng model.DateRange) (*model.NeighborhoodDashboard, error) {
		totals, err := s.baseTotals(ctx, model.EntityNeighborhood, id, rng)
		if err != nil {
			return nil, err
		}

		var (
			profile model.NeighborhoodProfile
			lines   []model.RankingItem
			weekday []model.WeekdayBucket
			polygon model.FeatureCollection
			stops   stopResult
		)
		scope := model.NeighborhoodScope(id)
		err = s.fanOut(ctx, "neighborhood_dashboard",
			task{"profile", func(ctx context.Context) (err error) {
				profile, err = s.store.NeighborhoodProfile(ctx, id, rng)
				return err
			}},
			task{"top_lines", func(ctx context.Context) (err error) {
				lines, err = s.store.TopLines(ctx, model.EntityNeighborhood, id, rng, model.DashboardTopN)
				return err
			}},
			task{"weekday", func(ctx context.Context) (err error) {
				weekday, err = s.store.WeekdayBuckets(ctx, model.EntityNeighborhood, id, rng)
				return err
			}},
			task{"polygon_map", func(ctx context.Context) (err error) {
				polygon, err = s.loadPolygons(ctx, scope)
				return err
			}},
			task{"stops_map", func(ctx context.Context) (err error) {
				stops, err = s.loadStops(ctx, scope)
				return err
			}},
		)
		if err != nil {
			return nil, err
		}

		return &model.NeighborhoodDashboard{
			Neighborhood:      totals.EntityRef,
			HasData:           totals.RollupRows > 0,
			Population:        profile.Population,
			Households:        profile.Households,
			AreaKm2:           profile.AreaKm2,
			Density:           profile.Density,
			Lines:             profile.Lines,
			StopPoints:        profile.StopPoints,
			Companies:         profile.Companies,
			Concessionaires:   profile.Concessionaires,
			Passengers:        totals.Passengers,
			Occurrences:       totals.Occurrences,
			TopLines:          topN(lines),
			WeekdayPassengers: weekdayChart(weekday, perActiveDay),
			PolygonMap:        polygon,
			StopsMap:          stops.collection,
		}, nil
	})
}

// JustificationDashboard profiles one occurrence justification. Its most
// affected line is the head of the top lines chart so a caller can fetch that
// line's geometry next.
func (s *AnalyticsService) JustificationDashboard(ctx context.Context, id int64, rng model.DateRange) (*model.JustificationDashboard, error) {
	return dashboard(ctx, s, model.EntityJustification, id, rng, func(ctx context.Context, rng model.DateRange) (*model.JustificationDashboard, error) {
		totals, err := s.baseTotals(ctx, model.EntityJustification, id, rng)
		if err != nil {
			return nil, err
		}

		var (
			profile  model.JustificationProfile
			lines    []model.RankingItem
			vehicles []model.RankingItem
			weekday  []model.WeekdayBucket
		)
		err = s.fanOut(ctx, "justification_dashboard",
			task{"profile", func(ctx context.Context) (err error) {
				profile, err = s.store.JustificationProfile(ctx, id, rng)
				return err
			}},
			task{"top_lines", func(ctx context.Context) (err error) {
				lines, err = s.store.TopLines(ctx, model.EntityJustification, id, rng, model.DashboardTopN)
				return err
			}},
			task{"top_vehicles", func(ctx context.Context) (err error) {
				vehicles, err = s.store.TopVehicles(ctx, id, rng, model.DashboardTopN)
				return err
			}},
			task{"weekday", func(ctx context.Context) (err error) {
				weekday, err = s.store.WeekdayBuckets(ctx, model.EntityJustification, id, rng)
				return err
			}},
		)
		if err != nil {
			return nil, err
		}

		topLines := topN(lines)
		dash := &model.JustificationDashboard{
			Justification:      totals.EntityRef,
			HasData:            totals.RollupRows > 0,
			OccurrenceType:     profile.OccurrenceType,
			Occurrences:        totals.Occurrences,
			PassengersAffected: totals.Passengers,
			TripsNotPerformed:  profile.TripsNotPerformed,
			TopLines:           topLines,
			TopVehicles:        finalizeRanking(model.EntityVehicle, vehicles, model.DashboardTopN),
			WeekdayOccurrences: weekdayChart(weekday, tripCount),
		}
		if len(topLines) > 0 {
			mostAffected := topLines[0].ID
			dash.MostAffectedLineID = &mostAffected
		}
		return dash, nil
	})
}
