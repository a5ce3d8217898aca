package repository

import (
	"context"
	"fmt"

	"transit-analytics/internal/metric"
	"transit-analytics/internal/model"
	"transit-analytics/internal/rates"
)

type rankingRow struct {
	refRow
	Value    *float64
	Company  *string
	AgeYears *int
}

func (row rankingRow) item() model.RankingItem {
	ref := row.ref()
	return model.RankingItem{
		ID:       ref.ID,
		Code:     ref.Code,
		Name:     ref.Name,
		Value:    rates.Value(row.Value),
		Company:  deref(row.Company),
		AgeYears: row.AgeYears,
	}
}

func rankingItems(rows []rankingRow) []model.RankingItem {
	items := make([]model.RankingItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.item())
	}
	return items
}

// Rank aggregates src per entity. Sum sources are bounded by rng; relation
// counts read static bridges and ignore it.
func (r *AnalyticsRepository) Rank(ctx context.Context, src metric.Source, rng model.DateRange, limit int) ([]model.RankingItem, error) {
	spec, err := specFor(src.Entity)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).
		Table(src.Table+" agg").
		Joins(fmt.Sprintf("JOIN %s d ON d.%s = agg.%s", spec.dim, spec.id, src.KeyColumn))

	var value string
	switch src.Mode {
	case metric.ModeSum:
		value = "COALESCE(SUM(agg." + src.Column + "), 0)"
		query = query.Where("agg.data BETWEEN ? AND ?", rng.From, rng.To)
	case metric.ModeCountRelation:
		value = "COUNT(DISTINCT agg." + src.Column + ")"
	default:
		return nil, fmt.Errorf("%w: unknown aggregation mode %s", model.ErrInvalidMetric, src.Mode)
	}

	selects := spec.refColumns() + ", " + value + " AS value"
	group := spec.groupColumns()
	if src.Entity == model.EntityVehicle {
		selects += ", e.nome_empresa AS company, d.idade_veiculo_anos AS age_years"
		group += ", e.nome_empresa, d.idade_veiculo_anos"
		query = query.
			Joins("LEFT JOIN mv_empresa_principal_veiculo epv ON epv.id_veiculo = d.id_veiculo").
			Joins("LEFT JOIN dim_empresa e ON e.id_empresa = epv.id_empresa")
	}
	if spec.sentinel != "" {
		query = query.Where(spec.sentinel)
	}

	var rows []rankingRow
	err = query.
		Select(selects).
		Group(group).
		Order("value DESC").
		Order(spec.idColumn() + " ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, dataAccess("rank "+string(src.Entity)+" by "+string(src.Metric), err)
	}
	return rankingItems(rows), nil
}

func (r *AnalyticsRepository) RankJustifications(ctx context.Context, rng model.DateRange, limit int) ([]model.RankingItem, error) {
	spec := entitySpecs[model.EntityJustification]
	var rows []rankingRow
	err := r.tripFacts(ctx, rng).
		Select(spec.refColumns() + ", COUNT(f.id_fato_viagem) AS value").
		Joins("JOIN dim_justificativa d ON d.id_justificativa = f.id_justificativa").
		Group(spec.groupColumns()).
		Order("value DESC").
		Order(spec.idColumn() + " ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, dataAccess("rank justifications", err)
	}
	return rankingItems(rows), nil
}

func (r *AnalyticsRepository) RankStopsPerLine(ctx context.Context, snap model.Snapshot, limit int) ([]model.RankingItem, error) {
	spec := entitySpecs[model.EntityLine]
	var rows []rankingRow
	err := r.db.WithContext(ctx).
		Table("staging_pontos_onibus_bh p").
		Select(spec.refColumns()+", COUNT(DISTINCT p.identificador_ponto_onibus) AS value").
		Joins("JOIN dim_linha d ON d.cod_linha = p.cod_linha").
		Where("p.ano_referencia = ? AND p.mes_referencia = ?", snap.Year, snap.Month).
		Group(spec.groupColumns()).
		Order("value DESC").
		Order(spec.idColumn() + " ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, dataAccess("rank stops per line", err)
	}
	return rankingItems(rows), nil
}

// LinesPerOperator counts distinct lines each company or concessionaire ran in rng.
func (r *AnalyticsRepository) LinesPerOperator(ctx context.Context, entity model.EntityType, rng model.DateRange) ([]model.RankingItem, error) {
	if !entity.HasSentinel() {
		return nil, fmt.Errorf("%w: lines per operator needs company or concessionaire, got %q", model.ErrInvalidArgument, entity)
	}
	spec := entitySpecs[entity]
	var rows []rankingRow
	err := r.db.WithContext(ctx).
		Table("agg_metricas_linhas_diarias agg").
		Select(spec.refColumns()+", COUNT(DISTINCT agg.id_linha) AS value").
		Joins(fmt.Sprintf("JOIN %s d ON d.%s = agg.%s", spec.dim, spec.id, spec.id)).
		Where("agg.data BETWEEN ? AND ?", rng.From, rng.To).
		Where(spec.sentinel).
		Group(spec.groupColumns()).
		Order("value DESC").
		Order(spec.idColumn() + " ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, dataAccess("lines per "+string(entity), err)
	}
	return rankingItems(rows), nil
}
