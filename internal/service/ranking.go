package service

import (
	"context"
	"sort"

	"github.com/samber/lo"

	"transit-analytics/internal/cache"
	"transit-analytics/internal/metric"
	"transit-analytics/internal/model"
	"transit-analytics/internal/rates"
)

// Rank orders entities of one type by a metric summed over rng.
func (s *AnalyticsService) Rank(ctx context.Context, entity model.EntityType, name model.Metric, rng model.DateRange, limit int) (*model.Ranking, error) {
	src, err := metric.Resolve(entity, name)
	if err != nil {
		return nil, err
	}
	return s.rankSource(ctx, "rank", src, rng, limit)
}

// RankOccurrencesByEntity ranks lines, companies or concessionaires by the
// occurrences recorded against them.
func (s *AnalyticsService) RankOccurrencesByEntity(ctx context.Context, entity model.EntityType, rng model.DateRange, limit int) (*model.Ranking, error) {
	src, err := metric.ResolveEntityRanking(entity, model.MetricOccurrences)
	if err != nil {
		return nil, err
	}
	return s.rankSource(ctx, "rank_entity", src, rng, limit)
}

func (s *AnalyticsService) rankSource(ctx context.Context, operation string, src metric.Source, rng model.DateRange, limit int) (*model.Ranking, error) {
	if err := model.ValidateLimit(limit); err != nil {
		return nil, err
	}
	rng, err := s.normalizeRange(rng)
	if err != nil {
		return nil, err
	}

	key := cache.Key(operation, src.Entity, src.Metric, rng, limit)
	return cached(ctx, s, operation, key, func(ctx context.Context) (*model.Ranking, error) {
		var items []model.RankingItem
		err := s.query(ctx, operation, func(ctx context.Context) (err error) {
			items, err = s.store.Rank(ctx, src, rng, limit)
			return err
		})
		if err != nil {
			return nil, err
		}
		return newRanking(src.Entity, src.Metric, rng, finalizeRanking(src.Entity, items, limit)), nil
	})
}

func (s *AnalyticsService) RankJustifications(ctx context.Context, rng model.DateRange, limit int) (*model.Ranking, error) {
	if err := model.ValidateLimit(limit); err != nil {
		return nil, err
	}
	rng, err := s.normalizeRange(rng)
	if err != nil {
		return nil, err
	}

	var items []model.RankingItem
	err = s.query(ctx, "rank_justifications", func(ctx context.Context) (err error) {
		items, err = s.store.RankJustifications(ctx, rng, limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	return newRanking(model.EntityJustification, model.MetricOccurrences, rng, finalizeRanking(model.EntityJustification, items, limit)), nil
}

// RankStopsPerLine counts stops per line in the latest stop snapshot.
func (s *AnalyticsService) RankStopsPerLine(ctx context.Context, limit int) (*model.Ranking, error) {
	if err := model.ValidateLimit(limit); err != nil {
		return nil, err
	}

	var items []model.RankingItem
	err := s.query(ctx, "rank_stops_per_line", func(ctx context.Context) error {
		snap, err := s.store.LatestSnapshot(ctx)
		if err != nil || snap == nil {
			return err
		}
		items, err = s.store.RankStopsPerLine(ctx, *snap, limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &model.Ranking{
		Entity: model.EntityLine,
		Metric: model.MetricStops,
		Items:  finalizeRanking(model.EntityLine, items, limit),
	}, nil
}

// LinesPerOperator counts the distinct lines every company or concessionaire ran.
func (s *AnalyticsService) LinesPerOperator(ctx context.Context, entity model.EntityType, rng model.DateRange) (*model.Ranking, error) {
	if !entity.HasSentinel() {
		return nil, invalidEntity(entity, model.EntityCompany, model.EntityConcessionaire)
	}
	rng, err := s.normalizeRange(rng)
	if err != nil {
		return nil, err
	}

	var items []model.RankingItem
	err = s.query(ctx, "lines_per_operator", func(ctx context.Context) (err error) {
		items, err = s.store.LinesPerOperator(ctx, entity, rng)
		return err
	})
	if err != nil {
		return nil, err
	}
	return newRanking(entity, model.MetricLines, rng, finalizeRanking(entity, items, len(items))), nil
}

func (s *AnalyticsService) LinesByFailures(ctx context.Context, rng model.DateRange, limit int) (*model.Ranking, error) {
	if err := model.ValidateLimit(limit); err != nil {
		return nil, err
	}
	rng, err := s.normalizeRange(rng)
	if err != nil {
		return nil, err
	}

	var items []model.RankingItem
	err = s.query(ctx, "lines_by_failures", func(ctx context.Context) (err error) {
		items, err = s.store.LinesByFailures(ctx, rng, limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	return newRanking(model.EntityLine, model.MetricFailures, rng, finalizeRanking(model.EntityLine, items, limit)), nil
}

// finalizeRanking enforces the ranking contract on whatever the store
// returned: sentinel operators removed, no negative values, value descending
// with ties broken by ascending id, at most limit items.
func finalizeRanking(entity model.EntityType, items []model.RankingItem, limit int) []model.RankingItem {
	out := lo.FilterMap(items, func(item model.RankingItem, _ int) (model.RankingItem, bool) {
		if entity.HasSentinel() && item.Code == model.SentinelCode {
			return item, false
		}
		item.Value = rates.NonNegative(item.Value)
		return item, true
	})

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].ID < out[j].ID
	})

	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return orEmpty(out)
}

func newRanking(entity model.EntityType, name model.Metric, rng model.DateRange, items []model.RankingItem) *model.Ranking {
	return &model.Ranking{
		Entity: entity,
		Metric: name,
		From:   rng.From.Format("2006-01-02"),
		To:     rng.To.Format("2006-01-02"),
		Items:  items,
	}
}
