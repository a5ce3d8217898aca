package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/samber/lo"

	"transit-analytics/internal/cache"
	"transit-analytics/internal/model"
	"transit-analytics/internal/rates"
)

// CompareOperators returns every company or concessionaire side by side,
// zero-filled when an operator had no activity in rng.
func (s *AnalyticsService) CompareOperators(ctx context.Context, entity model.EntityType, rng model.DateRange) ([]model.OperatorComparison, error) {
	if !entity.HasSentinel() {
		return nil, invalidEntity(entity, model.EntityCompany, model.EntityConcessionaire)
	}
	rng, err := s.normalizeRange(rng)
	if err != nil {
		return nil, err
	}

	key := cache.Key("compare", entity, rng)
	return cached(ctx, s, "compare", key, func(ctx context.Context) ([]model.OperatorComparison, error) {
		var totals []model.OperatorTotals
		err := s.query(ctx, "compare_"+string(entity), func(ctx context.Context) (err error) {
			totals, err = s.store.OperatorTotals(ctx, entity, rng)
			return err
		})
		if err != nil {
			return nil, err
		}
		return compareOperators(totals), nil
	})
}

func compareOperators(totals []model.OperatorTotals) []model.OperatorComparison {
	out := lo.FilterMap(totals, func(t model.OperatorTotals, _ int) (model.OperatorComparison, bool) {
		if t.Code == model.SentinelCode {
			return model.OperatorComparison{}, false
		}
		return model.OperatorComparison{
			EntityRef:              t.EntityRef,
			Lines:                  t.Lines,
			Passengers:             rates.NonNegative(t.Passengers),
			Trips:                  rates.NonNegative(t.Trips),
			Occurrences:            rates.NonNegative(t.Occurrences),
			OccurrencesPer10kTrips: rates.Per10k(t.Occurrences, t.Trips),
		}, true
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LineEfficiency reports passengers per km and per minute for each line,
// most efficient first.
func (s *AnalyticsService) LineEfficiency(ctx context.Context, rng model.DateRange) ([]model.LineEfficiency, error) {
	rng, err := s.normalizeRange(rng)
	if err != nil {
		return nil, err
	}

	var totals []model.EfficiencyTotals
	err = s.query(ctx, "line_efficiency", func(ctx context.Context) (err error) {
		totals, err = s.store.LineEfficiency(ctx, rng)
		return err
	})
	if err != nil {
		return nil, err
	}

	out := lo.Map(totals, func(t model.EfficiencyTotals, _ int) model.LineEfficiency {
		return model.LineEfficiency{
			EntityRef:           t.EntityRef,
			Passengers:          t.Passengers,
			DistanceKm:          t.DistanceKm,
			DurationMinutes:     t.DurationMinutes,
			PassengersPerKm:     rates.Div(t.Passengers, t.DistanceKm),
			PassengersPerMinute: rates.Div(t.Passengers, t.DurationMinutes),
		}
	})
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PassengersPerKm != out[j].PassengersPerKm {
			return out[i].PassengersPerKm > out[j].PassengersPerKm
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *AnalyticsService) Overview(ctx context.Context, rng model.DateRange) (*model.Overview, error) {
	rng, err := s.normalizeRange(rng)
	if err != nil {
		return nil, err
	}

	var totals model.OverviewTotals
	err = s.query(ctx, "overview", func(ctx context.Context) (err error) {
		totals, err = s.store.OverviewTotals(ctx, rng)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &model.Overview{
		From:                   rng.From.Format("2006-01-02"),
		To:                     rng.To.Format("2006-01-02"),
		Passengers:             totals.Passengers,
		Trips:                  totals.Trips,
		Occurrences:            totals.Occurrences,
		DistanceKm:             totals.DistanceKm,
		ActiveLines:            totals.Lines,
		PassengersPerKm:        rates.Div(totals.Passengers, totals.DistanceKm),
		PassengersPerTrip:      rates.Div(totals.Passengers, totals.Trips),
		OccurrencesPer10kTrips: rates.Per10k(totals.Occurrences, totals.Trips),
	}, nil
}

// FailureRates reports mechanical failures per 10k trips for each company,
// highest rate first.
func (s *AnalyticsService) FailureRates(ctx context.Context, rng model.DateRange) ([]model.FailureRate, error) {
	rng, err := s.normalizeRange(rng)
	if err != nil {
		return nil, err
	}

	var totals []model.FailureTotals
	err = s.query(ctx, "failure_rates", func(ctx context.Context) (err error) {
		totals, err = s.store.FailureTotalsByCompany(ctx, rng)
		return err
	})
	if err != nil {
		return nil, err
	}

	out := lo.FilterMap(totals, func(t model.FailureTotals, _ int) (model.FailureRate, bool) {
		if t.Code == model.SentinelCode {
			return model.FailureRate{}, false
		}
		return model.FailureRate{
			EntityRef:           t.EntityRef,
			Failures:            t.Failures,
			Trips:               t.Trips,
			FailuresPer10kTrips: rates.Per10k(t.Failures, t.Trips),
		}, true
	})
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FailuresPer10kTrips != out[j].FailuresPer10kTrips {
			return out[i].FailuresPer10kTrips > out[j].FailuresPer10kTrips
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *AnalyticsService) FailureJustifications(ctx context.Context, rng model.DateRange) ([]model.ChartPoint, error) {
	return s.chart(ctx, "failure_justifications", rng, s.store.FailureJustifications)
}

func (s *AnalyticsService) OccurrenceTrend(ctx context.Context, rng model.DateRange) ([]model.ChartPoint, error) {
	return s.chart(ctx, "occurrence_trend", rng, s.store.OccurrenceTrend)
}

func (s *AnalyticsService) OccurrencesByDayType(ctx context.Context, rng model.DateRange) ([]model.ChartPoint, error) {
	return s.chart(ctx, "occurrences_by_day_type", rng, s.store.OccurrencesByDayType)
}

func (s *AnalyticsService) chart(ctx context.Context, operation string, rng model.DateRange, load func(context.Context, model.DateRange) ([]model.ChartPoint, error)) ([]model.ChartPoint, error) {
	rng, err := s.normalizeRange(rng)
	if err != nil {
		return nil, err
	}
	var points []model.ChartPoint
	err = s.query(ctx, operation, func(ctx context.Context) (err error) {
		points, err = load(ctx, rng)
		return err
	})
	if err != nil {
		return nil, err
	}
	return orEmpty(points), nil
}

func (s *AnalyticsService) VehicleAgeFailures(ctx context.Context, rng model.DateRange) ([]model.VehicleAgeFailures, error) {
	rng, err := s.normalizeRange(rng)
	if err != nil {
		return nil, err
	}
	var rows []model.VehicleAgeFailures
	err = s.query(ctx, "vehicle_age_failures", func(ctx context.Context) (err error) {
		rows, err = s.store.VehicleAgeFailures(ctx, rng)
		return err
	})
	if err != nil {
		return nil, err
	}
	return orEmpty(rows), nil
}

// Options lists the entities of one type for filter dropdowns.
func (s *AnalyticsService) Options(ctx context.Context, entity model.EntityType) ([]model.Option, error) {
	switch entity {
	case model.EntityLine, model.EntityCompany, model.EntityConcessionaire, model.EntityVehicle, model.EntityNeighborhood, model.EntityJustification:
	default:
		return nil, invalidEntity(entity)
	}

	key := cache.Key("options", entity)
	return cached(ctx, s, "options", key, func(ctx context.Context) ([]model.Option, error) {
		var options []model.Option
		err := s.query(ctx, "options_"+string(entity), func(ctx context.Context) (err error) {
			options, err = s.store.Options(ctx, entity)
			return err
		})
		if err != nil {
			return nil, err
		}
		return lo.Reject(options, func(o model.Option, _ int) bool {
			return entity.HasSentinel() && o.Code == model.SentinelCode
		}), nil
	})
}

func invalidEntity(got model.EntityType, allowed ...model.EntityType) error {
	if len(allowed) == 0 {
		return fmt.Errorf("%w: unsupported entity type %q", model.ErrInvalidArgument, got)
	}
	return fmt.Errorf("%w: entity %q is not one of %v", model.ErrInvalidArgument, got, allowed)
}
