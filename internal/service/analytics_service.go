package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"transit-analytics/internal/cache"
	"transit-analytics/internal/metric"
	"transit-analytics/internal/model"
)

type RankingStore interface {
	Rank(ctx context.Context, src metric.Source, rng model.DateRange, limit int) ([]model.RankingItem, error)
	RankJustifications(ctx context.Context, rng model.DateRange, limit int) ([]model.RankingItem, error)
	RankStopsPerLine(ctx context.Context, snap model.Snapshot, limit int) ([]model.RankingItem, error)
	LinesPerOperator(ctx context.Context, entity model.EntityType, rng model.DateRange) ([]model.RankingItem, error)
	LinesByFailures(ctx context.Context, rng model.DateRange, limit int) ([]model.RankingItem, error)
}

type StudyStore interface {
	OperatorTotals(ctx context.Context, entity model.EntityType, rng model.DateRange) ([]model.OperatorTotals, error)
	LineEfficiency(ctx context.Context, rng model.DateRange) ([]model.EfficiencyTotals, error)
	OverviewTotals(ctx context.Context, rng model.DateRange) (model.OverviewTotals, error)
	FailureTotalsByCompany(ctx context.Context, rng model.DateRange) ([]model.FailureTotals, error)
	FailureJustifications(ctx context.Context, rng model.DateRange) ([]model.ChartPoint, error)
	VehicleAgeFailures(ctx context.Context, rng model.DateRange) ([]model.VehicleAgeFailures, error)
	OccurrenceTrend(ctx context.Context, rng model.DateRange) ([]model.ChartPoint, error)
	OccurrencesByDayType(ctx context.Context, rng model.DateRange) ([]model.ChartPoint, error)
	Options(ctx context.Context, entity model.EntityType) ([]model.Option, error)
}

type DashboardStore interface {
	EntityTotals(ctx context.Context, entity model.EntityType, id int64, rng model.DateRange) (*model.EntityTotals, error)
	ActivePeriods(ctx context.Context, entity model.EntityType, id int64, rng model.DateRange) (model.ActivePeriods, error)
	WeekdayBuckets(ctx context.Context, entity model.EntityType, id int64, rng model.DateRange) ([]model.WeekdayBucket, error)
	JustificationBreakdown(ctx context.Context, entity model.EntityType, id int64, rng model.DateRange) ([]model.ChartPoint, error)
	TopLines(ctx context.Context, entity model.EntityType, id int64, rng model.DateRange, limit int) ([]model.RankingItem, error)
	TopVehicles(ctx context.Context, justificationID int64, rng model.DateRange, limit int) ([]model.RankingItem, error)
	YearlyPassengers(ctx context.Context, companyID int64, rng model.DateRange) ([]model.ChartPoint, error)
	LinesServed(ctx context.Context, entity model.EntityType, id int64, rng model.DateRange) (int64, error)
	LineProfile(ctx context.Context, lineID int64, rng model.DateRange) (model.LineProfile, error)
	VehicleProfile(ctx context.Context, vehicleID int64) (model.VehicleProfile, error)
	NeighborhoodProfile(ctx context.Context, neighborhoodID int64, rng model.DateRange) (model.NeighborhoodProfile, error)
	JustificationProfile(ctx context.Context, justificationID int64, rng model.DateRange) (model.JustificationProfile, error)
}

type GeoStore interface {
	LatestSnapshot(ctx context.Context) (*model.Snapshot, error)
	StopPoints(ctx context.Context, snap model.Snapshot, scope model.Scope) ([]model.StopPointRow, error)
	Polygons(ctx context.Context, scope model.Scope) ([]model.PolygonRow, error)
}

// Store is the read-only warehouse the service aggregates over.
type Store interface {
	RankingStore
	StudyStore
	DashboardStore
	GeoStore
}

// Observer receives timings of store calls and cache outcomes.
type Observer interface {
	ObserveQuery(operation string, elapsed time.Duration, err error)
	CacheLookup(operation string, hit bool)
}

type noopObserver struct{}

func (noopObserver) ObserveQuery(string, time.Duration, error) {}

func (noopObserver) CacheLookup(string, bool) {}

type Options struct {
	DefaultRangeDays int
	Parallelism      int
	QueryTimeout     time.Duration
	Cache            cache.Cache
	Observer         Observer
	Logger           zerolog.Logger
	Now              func() time.Time
}

type AnalyticsService struct {
	store        Store
	cache        cache.Cache
	observer     Observer
	log          zerolog.Logger
	defaultRange int
	parallelism  int
	queryTimeout time.Duration
	now          func() time.Time
}

func NewAnalyticsService(store Store, opts Options) *AnalyticsService {
	s := &AnalyticsService{
		store:        store,
		cache:        opts.Cache,
		observer:     opts.Observer,
		log:          opts.Logger,
		defaultRange: opts.DefaultRangeDays,
		parallelism:  opts.Parallelism,
		queryTimeout: opts.QueryTimeout,
		now:          opts.Now,
	}
	if s.cache == nil {
		s.cache = cache.Noop{}
	}
	if s.observer == nil {
		s.observer = noopObserver{}
	}
	if s.defaultRange <= 0 {
		s.defaultRange = 30
	}
	if s.parallelism <= 0 {
		s.parallelism = 1
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *AnalyticsService) normalizeRange(rng model.DateRange) (model.DateRange, error) {
	rng = rng.WithDefault(s.defaultRange, s.now())
	if err := rng.Validate(); err != nil {
		return model.DateRange{}, err
	}
	return model.NewDateRange(rng.From, rng.To), nil
}

// query runs one store call under the per-query deadline and records it.
func (s *AnalyticsService) query(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	if s.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
	}
	start := time.Now()
	err := fn(ctx)
	s.observer.ObserveQuery(operation, time.Since(start), err)
	return err
}

type task struct {
	name string
	run  func(ctx context.Context) error
}

// fanOut runs independent sub-computations with bounded parallelism. Once the
// request is cancelled or a sibling fails, tasks that have not started are
// skipped; tasks already running finish so no sub-result is half applied.
func (s *AnalyticsService) fanOut(ctx context.Context, operation string, tasks ...task) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for _, t := range tasks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return s.query(context.WithoutCancel(gctx), operation+"."+t.name, t.run)
		})
	}
	return g.Wait()
}

// cached serves key from the result cache, computing and storing it on a miss.
// Cache failures are logged and never fail the request.
func cached[T any](ctx context.Context, s *AnalyticsService, operation, key string, load func(ctx context.Context) (T, error)) (T, error) {
	var value T
	hit, err := s.cache.Get(ctx, key, &value)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
	}
	s.observer.CacheLookup(operation, hit && err == nil)
	if hit && err == nil {
		return value, nil
	}

	value, err = load(ctx)
	if err != nil {
		return value, err
	}
	if err := s.cache.Set(ctx, key, value); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
	return value, nil
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
