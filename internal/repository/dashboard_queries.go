package repository

import (
	"context"
	"fmt"
	"strconv"

	"gorm.io/gorm"

	"transit-analytics/internal/model"
	"transit-analytics/internal/rates"
)

// EntityTotals sums the rollup of one entity over rng. It returns nil when
// the dimension row itself does not exist; an entity without activity in rng
// comes back with RollupRows == 0.
func (r *AnalyticsRepository) EntityTotals(ctx context.Context, entity model.EntityType, id int64, rng model.DateRange) (*model.EntityTotals, error) {
	spec, err := specFor(entity)
	if err != nil {
		return nil, err
	}

	type row struct {
		refRow
		RollupRows  int64
		Passengers  *float64
		Trips       *float64
		Occurrences *float64
		DistanceKm  *float64
	}
	var rows []row

	query := r.db.WithContext(ctx).Table(spec.dim + " d")
	if entity == model.EntityJustification {
		query = query.
			Select(spec.refColumns()+`,
				COUNT(f.id_fato_viagem) AS rollup_rows,
				SUM(f.passageiros) AS passengers,
				COUNT(f.id_fato_viagem) AS trips,
				COUNT(f.id_fato_viagem) AS occurrences,
				SUM(f.extensao_realizada_km) AS distance_km`).
			Joins(`LEFT JOIN (
				SELECT fv.id_fato_viagem, fv.id_justificativa, fv.passageiros, fv.extensao_realizada_km
				FROM fact_viagens fv
				JOIN dim_data dd ON dd.id_data = fv.id_data
				WHERE dd.data_completa BETWEEN ? AND ?
			) AS f ON f.id_justificativa = d.id_justificativa`, rng.From, rng.To)
	} else {
		query = query.
			Select(fmt.Sprintf(`%s,
				COUNT(agg.data) AS rollup_rows,
				%s AS passengers,
				%s AS trips,
				%s AS occurrences,
				%s AS distance_km`,
				spec.refColumns(), spec.sum(spec.passengers), spec.sum(spec.trips), spec.sum(spec.occurrences), spec.sum(spec.distance))).
			Joins(fmt.Sprintf("LEFT JOIN %s agg ON agg.%s = d.%s AND agg.data BETWEEN ? AND ?", spec.rollup, spec.rollupKey, spec.id), rng.From, rng.To)
	}

	err = query.
		Where(spec.idColumn()+" = ?", id).
		Group(spec.groupColumns()).
		Scan(&rows).Error
	if err != nil {
		return nil, dataAccess(string(entity)+" totals", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	res := rows[0]
	return &model.EntityTotals{
		EntityRef:   res.ref(),
		RollupRows:  res.RollupRows,
		Passengers:  rates.Value(res.Passengers),
		Trips:       rates.Value(res.Trips),
		Occurrences: rates.Value(res.Occurrences),
		DistanceKm:  rates.Value(res.DistanceKm),
	}, nil
}

func (r *AnalyticsRepository) ActivePeriods(ctx context.Context, entity model.EntityType, id int64, rng model.DateRange) (model.ActivePeriods, error) {
	spec, err := specFor(entity)
	if err != nil {
		return model.ActivePeriods{}, err
	}
	if spec.rollup == "" {
		return model.ActivePeriods{}, nil
	}

	var periods model.ActivePeriods
	err = r.db.WithContext(ctx).
		Table(spec.rollup+" agg").
		Select("COUNT(DISTINCT date_trunc('month', agg.data)) AS months, COUNT(DISTINCT agg.data) AS days").
		Where("agg."+spec.rollupKey+" = ?", id).
		Where("agg.data BETWEEN ? AND ?", rng.From, rng.To).
		Scan(&periods).Error
	if err != nil {
		return model.ActivePeriods{}, dataAccess(string(entity)+" active periods", err)
	}
	return periods, nil
}

func (r *AnalyticsRepository) WeekdayBuckets(ctx context.Context, entity model.EntityType, id int64, rng model.DateRange) ([]model.WeekdayBucket, error) {
	spec, err := specFor(entity)
	if err != nil {
		return nil, err
	}

	type row struct {
		Ordinal int
		Label   *string
		Total   *float64
		Days    int64
		Trips   float64
	}
	var rows []row

	query := r.tripFacts(ctx, rng).
		Select(`CAST(EXTRACT(ISODOW FROM dd.data_completa) AS INTEGER) AS ordinal,
			MIN(dd.dia_da_semana) AS label,
			SUM(f.passageiros) AS total,
			COUNT(DISTINCT dd.data_completa) AS days,
			COUNT(f.id_fato_viagem) AS trips`)
	query = spec.factFilter(query, entity, id)

	if err := query.Group("ordinal").Order("ordinal").Scan(&rows).Error; err != nil {
		return nil, dataAccess(string(entity)+" weekday buckets", err)
	}

	buckets := make([]model.WeekdayBucket, 0, len(rows))
	for _, row := range rows {
		buckets = append(buckets, model.WeekdayBucket{
			Ordinal: row.Ordinal,
			Label:   deref(row.Label),
			Total:   rates.Value(row.Total),
			Days:    row.Days,
			Trips:   row.Trips,
		})
	}
	return buckets, nil
}

func (r *AnalyticsRepository) JustificationBreakdown(ctx context.Context, entity model.EntityType, id int64, rng model.DateRange) ([]model.ChartPoint, error) {
	spec, err := specFor(entity)
	if err != nil {
		return nil, err
	}

	var points []model.ChartPoint
	query := r.tripFacts(ctx, rng).
		Select("j.nome_justificativa AS category, COUNT(f.id_fato_viagem) AS value").
		Joins("JOIN dim_justificativa j ON j.id_justificativa = f.id_justificativa")
	query = spec.factFilter(query, entity, id)

	err = query.
		Group("j.nome_justificativa").
		Order("value DESC").
		Order("j.nome_justificativa ASC").
		Scan(&points).Error
	if err != nil {
		return nil, dataAccess(string(entity)+" justification breakdown", err)
	}
	return points, nil
}

func (r *AnalyticsRepository) TopLines(ctx context.Context, entity model.EntityType, id int64, rng model.DateRange, limit int) ([]model.RankingItem, error) {
	line := entitySpecs[model.EntityLine]

	var query *gorm.DB
	switch entity {
	case model.EntityCompany, model.EntityConcessionaire:
		query = r.lineRollup(ctx, rng).
			Select(line.refColumns()+", COALESCE(SUM(agg.total_passageiros), 0) AS value").
			Where("agg."+entitySpecs[entity].id+" = ?", id)
	case model.EntityNeighborhood:
		query = r.lineRollup(ctx, rng).
			Select(line.refColumns()+", COALESCE(SUM(agg.total_passageiros), 0) AS value").
			Where("agg.id_linha IN (SELECT id_linha FROM bridge_linha_bairro WHERE id_bairro = ?)", id)
	case model.EntityVehicle, model.EntityJustification:
		query = r.tripFacts(ctx, rng).
			Select(line.refColumns()+", COUNT(f.id_fato_viagem) AS value").
			Joins("JOIN dim_linha d ON d.id_linha = f.id_linha").
			Where("f."+entitySpecs[entity].factKey+" = ?", id)
	default:
		return nil, fmt.Errorf("%w: no top lines for %q", model.ErrInvalidArgument, entity)
	}

	var rows []rankingRow
	err := query.
		Group(line.groupColumns()).
		Order("value DESC").
		Order(line.idColumn() + " ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, dataAccess(string(entity)+" top lines", err)
	}
	return rankingItems(rows), nil
}

func (r *AnalyticsRepository) lineRollup(ctx context.Context, rng model.DateRange) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("agg_metricas_linhas_diarias agg").
		Joins("JOIN dim_linha d ON d.id_linha = agg.id_linha").
		Where("agg.data BETWEEN ? AND ?", rng.From, rng.To)
}

func (r *AnalyticsRepository) TopVehicles(ctx context.Context, justificationID int64, rng model.DateRange, limit int) ([]model.RankingItem, error) {
	vehicle := entitySpecs[model.EntityVehicle]
	var rows []rankingRow
	err := r.tripFacts(ctx, rng).
		Select(vehicle.refColumns()+", COUNT(f.id_fato_viagem) AS value").
		Joins("JOIN dim_veiculo d ON d.id_veiculo = f.id_veiculo").
		Where("f.id_justificativa = ?", justificationID).
		Group(vehicle.groupColumns()).
		Order("value DESC").
		Order(vehicle.idColumn() + " ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, dataAccess("justification top vehicles", err)
	}
	return rankingItems(rows), nil
}

func (r *AnalyticsRepository) YearlyPassengers(ctx context.Context, companyID int64, rng model.DateRange) ([]model.ChartPoint, error) {
	type row struct {
		Year  int
		Value *float64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Table("agg_metricas_empresas_diarias agg").
		Select("CAST(EXTRACT(YEAR FROM agg.data) AS INTEGER) AS year, SUM(agg.total_passageiros) AS value").
		Where("agg.id_empresa = ?", companyID).
		Where("agg.data BETWEEN ? AND ?", rng.From, rng.To).
		Group("year").
		Order("year").
		Scan(&rows).Error
	if err != nil {
		return nil, dataAccess("company yearly passengers", err)
	}

	points := make([]model.ChartPoint, 0, len(rows))
	for _, row := range rows {
		points = append(points, model.ChartPoint{Category: strconv.Itoa(row.Year), Value: rates.Value(row.Value)})
	}
	return points, nil
}

func (r *AnalyticsRepository) LinesServed(ctx context.Context, entity model.EntityType, id int64, rng model.DateRange) (int64, error) {
	if !entity.HasSentinel() {
		return 0, fmt.Errorf("%w: lines served needs company or concessionaire, got %q", model.ErrInvalidArgument, entity)
	}
	var count int64
	err := r.db.WithContext(ctx).
		Table("agg_metricas_linhas_diarias agg").
		Select("COUNT(DISTINCT agg.id_linha)").
		Where("agg."+entitySpecs[entity].id+" = ?", id).
		Where("agg.data BETWEEN ? AND ?", rng.From, rng.To).
		Scan(&count).Error
	if err != nil {
		return 0, dataAccess(string(entity)+" lines served", err)
	}
	return count, nil
}

func (r *AnalyticsRepository) LineProfile(ctx context.Context, lineID int64, rng model.DateRange) (model.LineProfile, error) {
	type dimRow struct {
		Origin        *string
		LengthKm      *float64
		Neighborhoods int64
	}
	var dim dimRow
	err := r.db.WithContext(ctx).
		Table("dim_linha d").
		Select(`d.origem AS origin, d.extensao_km AS length_km,
			(SELECT COUNT(*) FROM bridge_linha_bairro blb WHERE blb.id_linha = d.id_linha) AS neighborhoods`).
		Where("d.id_linha = ?", lineID).
		Scan(&dim).Error
	if err != nil {
		return model.LineProfile{}, dataAccess("line profile", err)
	}

	type flagRow struct {
		NotPerformed  *float64
		Interrupted   *float64
		ZeroPassenger *float64
	}
	var flags flagRow
	err = r.tripFacts(ctx, rng).
		Select(`SUM(f.flag_viagem_nao_realizada) AS not_performed,
			SUM(f.flag_viagem_interrompida) AS interrupted,
			SUM(CASE WHEN f.passageiros = 0 THEN 1 ELSE 0 END) AS zero_passenger`).
		Where("f.id_linha = ?", lineID).
		Scan(&flags).Error
	if err != nil {
		return model.LineProfile{}, dataAccess("line trip flags", err)
	}

	company, err := r.lineOperator(ctx, model.EntityCompany, lineID, rng)
	if err != nil {
		return model.LineProfile{}, err
	}
	concessionaire, err := r.lineOperator(ctx, model.EntityConcessionaire, lineID, rng)
	if err != nil {
		return model.LineProfile{}, err
	}

	return model.LineProfile{
		Origin:             deref(dim.Origin),
		LengthKm:           rates.Value(dim.LengthKm),
		Company:            company,
		Concessionaire:     concessionaire,
		TripsNotPerformed:  rates.Value(flags.NotPerformed),
		TripsInterrupted:   rates.Value(flags.Interrupted),
		ZeroPassengerTrips: rates.Value(flags.ZeroPassenger),
		Neighborhoods:      dim.Neighborhoods,
	}, nil
}

func (r *AnalyticsRepository) lineOperator(ctx context.Context, entity model.EntityType, lineID int64, rng model.DateRange) (string, error) {
	spec := entitySpecs[entity]
	var names []string
	err := r.db.WithContext(ctx).
		Table("agg_metricas_linhas_diarias agg").
		Joins(fmt.Sprintf("JOIN %s d ON d.%s = agg.%s", spec.dim, spec.id, spec.id)).
		Where("agg.id_linha = ?", lineID).
		Where("agg.data BETWEEN ? AND ?", rng.From, rng.To).
		Group(spec.groupColumns()).
		Order("COALESCE(SUM(agg.total_viagens), 0) DESC").
		Order(spec.idColumn() + " ASC").
		Limit(1).
		Pluck(spec.name, &names).Error
	if err != nil {
		return "", dataAccess("line "+string(entity), err)
	}
	if len(names) == 0 {
		return "", nil
	}
	return names[0], nil
}

func (r *AnalyticsRepository) VehicleProfile(ctx context.Context, vehicleID int64) (model.VehicleProfile, error) {
	type row struct {
		AgeYears    *int
		ExtraMonths *int
		InOperation *bool
		Company     *string
	}
	var res row
	err := r.db.WithContext(ctx).
		Table("dim_veiculo d").
		Select(`d.idade_veiculo_anos AS age_years,
			d.meses_adicionais AS extra_months,
			d.em_operacao AS in_operation,
			e.nome_empresa AS company`).
		Joins("LEFT JOIN mv_empresa_principal_veiculo epv ON epv.id_veiculo = d.id_veiculo").
		Joins("LEFT JOIN dim_empresa e ON e.id_empresa = epv.id_empresa").
		Where("d.id_veiculo = ?", vehicleID).
		Scan(&res).Error
	if err != nil {
		return model.VehicleProfile{}, dataAccess("vehicle profile", err)
	}

	profile := model.VehicleProfile{Company: deref(res.Company)}
	if res.AgeYears != nil {
		profile.AgeYears = *res.AgeYears
	}
	if res.ExtraMonths != nil {
		profile.ExtraMonths = *res.ExtraMonths
	}
	if res.InOperation != nil {
		profile.InOperation = *res.InOperation
	}
	return profile, nil
}

func (r *AnalyticsRepository) NeighborhoodProfile(ctx context.Context, neighborhoodID int64, rng model.DateRange) (model.NeighborhoodProfile, error) {
	type row struct {
		Population      *int64
		Households      *int64
		AreaKm2         *float64
		Density         *float64
		Lines           int64
		StopPoints      int64
		Companies       int64
		Concessionaires int64
	}
	var res row
	err := r.db.WithContext(ctx).
		Table("dim_bairro d").
		Select(`d.populacao AS population,
			d.domicilios AS households,
			d.area_km AS area_km2,
			d.densidade_demografica AS density,
			(SELECT COUNT(*) FROM bridge_linha_bairro blb WHERE blb.id_bairro = d.id_bairro) AS lines,
			(SELECT COUNT(*) FROM bridge_ponto_bairro bpb WHERE bpb.id_bairro = d.id_bairro) AS stop_points,
			(SELECT COUNT(DISTINCT agg.id_empresa)
				FROM agg_metricas_linhas_diarias agg
				JOIN bridge_linha_bairro blb ON blb.id_linha = agg.id_linha
				WHERE blb.id_bairro = d.id_bairro AND agg.data BETWEEN ? AND ?) AS companies,
			(SELECT COUNT(DISTINCT agg.id_concessionaria)
				FROM agg_metricas_linhas_diarias agg
				JOIN bridge_linha_bairro blb ON blb.id_linha = agg.id_linha
				WHERE blb.id_bairro = d.id_bairro AND agg.data BETWEEN ? AND ?) AS concessionaires`,
			rng.From, rng.To, rng.From, rng.To).
		Where("d.id_bairro = ?", neighborhoodID).
		Scan(&res).Error
	if err != nil {
		return model.NeighborhoodProfile{}, dataAccess("neighborhood profile", err)
	}

	profile := model.NeighborhoodProfile{
		AreaKm2:         rates.Value(res.AreaKm2),
		Density:         rates.Value(res.Density),
		Lines:           res.Lines,
		StopPoints:      res.StopPoints,
		Companies:       res.Companies,
		Concessionaires: res.Concessionaires,
	}
	if res.Population != nil {
		profile.Population = *res.Population
	}
	if res.Households != nil {
		profile.Households = *res.Households
	}
	return profile, nil
}

func (r *AnalyticsRepository) JustificationProfile(ctx context.Context, justificationID int64, rng model.DateRange) (model.JustificationProfile, error) {
	var occurrenceType []string
	err := r.db.WithContext(ctx).
		Table("dim_justificativa d").
		Joins("JOIN dim_ocorrencia o ON o.id_ocorrencia = d.id_ocorrencia").
		Where("d.id_justificativa = ?", justificationID).
		Pluck("o.nome_ocorrencia", &occurrenceType).Error
	if err != nil {
		return model.JustificationProfile{}, dataAccess("justification occurrence type", err)
	}

	var flags struct {
		NotPerformed *float64
	}
	err = r.tripFacts(ctx, rng).
		Select("SUM(f.flag_viagem_nao_realizada) AS not_performed").
		Where("f.id_justificativa = ?", justificationID).
		Scan(&flags).Error
	if err != nil {
		return model.JustificationProfile{}, dataAccess("justification trips not performed", err)
	}

	profile := model.JustificationProfile{TripsNotPerformed: rates.Value(flags.NotPerformed)}
	if len(occurrenceType) > 0 {
		profile.OccurrenceType = occurrenceType[0]
	}
	return profile, nil
}
