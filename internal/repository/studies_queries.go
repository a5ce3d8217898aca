package repository

import (
	"context"
	"fmt"
	"time"

	"transit-analytics/internal/model"
	"transit-analytics/internal/rates"
)

// OperatorTotals lists every non-sentinel company or concessionaire with its
// sums in rng; operators without rollup rows come back zeroed.
func (r *AnalyticsRepository) OperatorTotals(ctx context.Context, entity model.EntityType, rng model.DateRange) ([]model.OperatorTotals, error) {
	if !entity.HasSentinel() {
		return nil, fmt.Errorf("%w: comparison needs company or concessionaire, got %q", model.ErrInvalidArgument, entity)
	}
	spec := entitySpecs[entity]

	type row struct {
		refRow
		Lines       int64
		Passengers  *float64
		Trips       *float64
		Occurrences *float64
	}
	var rows []row

	err := r.db.WithContext(ctx).
		Table(spec.dim+" d").
		Select(spec.refColumns()+`,
			COALESCE(cl.lines, 0) AS lines,
			ma.passengers, ma.trips, ma.occurrences`).
		Joins(fmt.Sprintf(`LEFT JOIN (
			SELECT %[1]s AS entity_id,
				SUM(total_passageiros) AS passengers,
				SUM(total_viagens) AS trips,
				SUM(total_ocorrencias) AS occurrences
			FROM %[2]s
			WHERE data BETWEEN ? AND ?
			GROUP BY %[1]s
		) AS ma ON ma.entity_id = d.%[1]s`, spec.id, spec.rollup), rng.From, rng.To).
		Joins(fmt.Sprintf(`LEFT JOIN (
			SELECT %[1]s AS entity_id, COUNT(DISTINCT id_linha) AS lines
			FROM agg_metricas_linhas_diarias
			WHERE data BETWEEN ? AND ?
			GROUP BY %[1]s
		) AS cl ON cl.entity_id = d.%[1]s`, spec.id), rng.From, rng.To).
		Where(spec.sentinel).
		Order(spec.idColumn()).
		Scan(&rows).Error
	if err != nil {
		return nil, dataAccess(string(entity)+" comparison", err)
	}

	totals := make([]model.OperatorTotals, 0, len(rows))
	for _, row := range rows {
		totals = append(totals, model.OperatorTotals{
			EntityRef:   row.ref(),
			Lines:       row.Lines,
			Passengers:  rates.Value(row.Passengers),
			Trips:       rates.Value(row.Trips),
			Occurrences: rates.Value(row.Occurrences),
		})
	}
	return totals, nil
}

func (r *AnalyticsRepository) LineEfficiency(ctx context.Context, rng model.DateRange) ([]model.EfficiencyTotals, error) {
	type row struct {
		refRow
		Passengers      *float64
		DistanceKm      *float64
		DurationMinutes *float64
	}
	var rows []row

	line := entitySpecs[model.EntityLine]
	err := r.lineRollup(ctx, rng).
		Select(line.refColumns()+`,
			SUM(agg.total_passageiros) AS passengers,
			SUM(agg.total_extensao_km) AS distance_km,
			SUM(agg.total_duracao_minutos) AS duration_minutes`).
		Where("agg.total_extensao_km > 0 AND agg.total_duracao_minutos > 0").
		Group(line.groupColumns()).
		Order(line.idColumn()).
		Scan(&rows).Error
	if err != nil {
		return nil, dataAccess("line efficiency", err)
	}

	totals := make([]model.EfficiencyTotals, 0, len(rows))
	for _, row := range rows {
		totals = append(totals, model.EfficiencyTotals{
			EntityRef:       row.ref(),
			Passengers:      rates.Value(row.Passengers),
			DistanceKm:      rates.Value(row.DistanceKm),
			DurationMinutes: rates.Value(row.DurationMinutes),
		})
	}
	return totals, nil
}

func (r *AnalyticsRepository) OverviewTotals(ctx context.Context, rng model.DateRange) (model.OverviewTotals, error) {
	var res struct {
		Passengers  *float64
		Trips       *float64
		Occurrences *float64
		DistanceKm  *float64
		Lines       int64
	}
	err := r.db.WithContext(ctx).
		Table("agg_metricas_linhas_diarias agg").
		Select(`SUM(agg.total_passageiros) AS passengers,
			SUM(agg.total_viagens) AS trips,
			SUM(agg.total_ocorrencias) AS occurrences,
			SUM(agg.total_extensao_km) AS distance_km,
			COUNT(DISTINCT agg.id_linha) AS lines`).
		Where("agg.data BETWEEN ? AND ?", rng.From, rng.To).
		Scan(&res).Error
	if err != nil {
		return model.OverviewTotals{}, dataAccess("overview totals", err)
	}
	return model.OverviewTotals{
		Passengers:  rates.Value(res.Passengers),
		Trips:       rates.Value(res.Trips),
		Occurrences: rates.Value(res.Occurrences),
		DistanceKm:  rates.Value(res.DistanceKm),
		Lines:       res.Lines,
	}, nil
}

func (r *AnalyticsRepository) FailureTotalsByCompany(ctx context.Context, rng model.DateRange) ([]model.FailureTotals, error) {
	type row struct {
		refRow
		Failures *float64
		Trips    *float64
	}
	var rows []row

	company := entitySpecs[model.EntityCompany]
	err := r.db.WithContext(ctx).
		Table("dim_empresa d").
		Select(company.refColumns()+", fl.failures, tr.trips").
		Joins(`LEFT JOIN (
			SELECT id_empresa, SUM(total_falhas) AS failures
			FROM agg_falhas_mecanicas_diarias
			WHERE data BETWEEN ? AND ?
			GROUP BY id_empresa
		) AS fl ON fl.id_empresa = d.id_empresa`, rng.From, rng.To).
		Joins(`LEFT JOIN (
			SELECT id_empresa, SUM(total_viagens) AS trips
			FROM agg_metricas_linhas_diarias
			WHERE data BETWEEN ? AND ?
			GROUP BY id_empresa
		) AS tr ON tr.id_empresa = d.id_empresa`, rng.From, rng.To).
		Where(company.sentinel).
		Where("(tr.trips > 0 OR fl.failures > 0)").
		Order(company.idColumn()).
		Scan(&rows).Error
	if err != nil {
		return nil, dataAccess("failure totals by company", err)
	}

	totals := make([]model.FailureTotals, 0, len(rows))
	for _, row := range rows {
		totals = append(totals, model.FailureTotals{
			EntityRef: row.ref(),
			Failures:  rates.Value(row.Failures),
			Trips:     rates.Value(row.Trips),
		})
	}
	return totals, nil
}

func (r *AnalyticsRepository) FailureJustifications(ctx context.Context, rng model.DateRange) ([]model.ChartPoint, error) {
	var points []model.ChartPoint
	err := r.db.WithContext(ctx).
		Table("agg_falhas_mecanicas_diarias agg").
		Select("j.nome_justificativa AS category, COALESCE(SUM(agg.total_falhas), 0) AS value").
		Joins("JOIN dim_justificativa j ON j.id_justificativa = agg.id_justificativa").
		Where("agg.data BETWEEN ? AND ?", rng.From, rng.To).
		Group("j.nome_justificativa").
		Order("value DESC").
		Order("j.nome_justificativa ASC").
		Scan(&points).Error
	if err != nil {
		return nil, dataAccess("failure justifications", err)
	}
	return points, nil
}

func (r *AnalyticsRepository) VehicleAgeFailures(ctx context.Context, rng model.DateRange) ([]model.VehicleAgeFailures, error) {
	type row struct {
		refRow
		Company  *string
		AgeYears *int
		Failures *float64
	}
	var rows []row

	vehicle := entitySpecs[model.EntityVehicle]
	err := r.db.WithContext(ctx).
		Table("dim_veiculo d").
		Select(vehicle.refColumns()+`,
			e.nome_empresa AS company,
			d.idade_veiculo_anos AS age_years,
			COALESCE(fl.failures, 0) AS failures`).
		Joins("JOIN mv_empresa_principal_veiculo epv ON epv.id_veiculo = d.id_veiculo").
		Joins("JOIN dim_empresa e ON e.id_empresa = epv.id_empresa").
		Joins(`LEFT JOIN (
			SELECT id_veiculo, SUM(total_falhas) AS failures
			FROM agg_falhas_mecanicas_diarias
			WHERE data BETWEEN ? AND ?
			GROUP BY id_veiculo
		) AS fl ON fl.id_veiculo = d.id_veiculo`, rng.From, rng.To).
		Where("e.codigo_empresa <> 0").
		Order("failures DESC").
		Order(vehicle.idColumn() + " ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, dataAccess("vehicle age failures", err)
	}

	result := make([]model.VehicleAgeFailures, 0, len(rows))
	for _, row := range rows {
		item := model.VehicleAgeFailures{
			EntityRef: row.ref(),
			Company:   deref(row.Company),
			Failures:  rates.Value(row.Failures),
		}
		if row.AgeYears != nil {
			item.AgeYears = *row.AgeYears
		}
		result = append(result, item)
	}
	return result, nil
}

func (r *AnalyticsRepository) LinesByFailures(ctx context.Context, rng model.DateRange, limit int) ([]model.RankingItem, error) {
	line := entitySpecs[model.EntityLine]
	var rows []rankingRow
	err := r.db.WithContext(ctx).
		Table("agg_falhas_mecanicas_diarias agg").
		Select(line.refColumns()+", COALESCE(SUM(agg.total_falhas), 0) AS value").
		Joins("JOIN dim_linha d ON d.id_linha = agg.id_linha").
		Where("agg.data BETWEEN ? AND ?", rng.From, rng.To).
		Group(line.groupColumns()).
		Order("value DESC").
		Order(line.idColumn() + " ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, dataAccess("lines by failures", err)
	}
	return rankingItems(rows), nil
}

func (r *AnalyticsRepository) OccurrenceTrend(ctx context.Context, rng model.DateRange) ([]model.ChartPoint, error) {
	type row struct {
		Period time.Time
		Value  *float64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Table("agg_metricas_linhas_diarias agg").
		Select("CAST(date_trunc('month', agg.data) AS DATE) AS period, SUM(agg.total_ocorrencias) AS value").
		Where("agg.data BETWEEN ? AND ?", rng.From, rng.To).
		Group("period").
		Order("period").
		Scan(&rows).Error
	if err != nil {
		return nil, dataAccess("occurrence trend", err)
	}

	points := make([]model.ChartPoint, 0, len(rows))
	for _, row := range rows {
		points = append(points, model.ChartPoint{Category: row.Period.Format("2006-01"), Value: rates.Value(row.Value)})
	}
	return points, nil
}

func (r *AnalyticsRepository) OccurrencesByDayType(ctx context.Context, rng model.DateRange) ([]model.ChartPoint, error) {
	var points []model.ChartPoint
	err := r.tripFacts(ctx, rng).
		Select("COALESCE(dd.tipo_dia, '') AS category, COALESCE(SUM(f.flag_possui_ocorrencia), 0) AS value").
		Group("dd.tipo_dia").
		Order("value DESC").
		Order("dd.tipo_dia ASC").
		Scan(&points).Error
	if err != nil {
		return nil, dataAccess("occurrences by day type", err)
	}
	return points, nil
}

func (r *AnalyticsRepository) Options(ctx context.Context, entity model.EntityType) ([]model.Option, error) {
	spec, err := specFor(entity)
	if err != nil {
		return nil, err
	}

	var rows []refRow
	query := r.db.WithContext(ctx).
		Table(spec.dim + " d").
		Select(spec.refColumns())
	if spec.sentinel != "" {
		query = query.Where(spec.sentinel)
	}
	if err := query.Order(spec.name).Order(spec.idColumn()).Scan(&rows).Error; err != nil {
		return nil, dataAccess(string(entity)+" options", err)
	}

	options := make([]model.Option, 0, len(rows))
	for _, row := range rows {
		ref := row.ref()
		options = append(options, model.Option{ID: ref.ID, Code: ref.Code, Name: ref.Name})
	}
	return options, nil
}
