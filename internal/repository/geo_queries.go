package repository

import (
	"context"

	"gorm.io/gorm"

	"transit-analytics/internal/model"
)

// LatestSnapshot resolves the newest (year, month) of the stop import: the
// maximum year, then the maximum month inside that year. It returns nil when
// no snapshot was ever imported.
func (r *AnalyticsRepository) LatestSnapshot(ctx context.Context) (*model.Snapshot, error) {
	var rows []model.Snapshot
	err := r.db.WithContext(ctx).
		Table("staging_pontos_onibus_bh p").
		Select("p.ano_referencia AS year, MAX(p.mes_referencia) AS month").
		Where("p.ano_referencia = (SELECT MAX(ano_referencia) FROM staging_pontos_onibus_bh)").
		Group("p.ano_referencia").
		Scan(&rows).Error
	if err != nil {
		return nil, dataAccess("latest stop snapshot", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *AnalyticsRepository) StopPoints(ctx context.Context, snap model.Snapshot, scope model.Scope) ([]model.StopPointRow, error) {
	type row struct {
		RowID   int64
		StopID  string
		Year    int
		Month   int
		GeoJSON *string
	}
	var rows []row

	query := r.db.WithContext(ctx).
		Table("staging_pontos_onibus_bh p").
		Select(`p.id_ponto_onibus_linha AS row_id,
			CAST(p.identificador_ponto_onibus AS TEXT) AS stop_id,
			p.ano_referencia AS year,
			p.mes_referencia AS month,
			ST_AsGeoJSON(p.geom) AS geo_json`).
		Where("p.ano_referencia = ? AND p.mes_referencia = ?", snap.Year, snap.Month)
	query = applyStopScope(query, scope)

	err := query.
		Order("p.identificador_ponto_onibus").
		Order("p.id_ponto_onibus_linha").
		Scan(&rows).Error
	if err != nil {
		return nil, dataAccess("stop points", err)
	}

	points := make([]model.StopPointRow, 0, len(rows))
	for _, row := range rows {
		points = append(points, model.StopPointRow{
			RowID:   row.RowID,
			StopID:  row.StopID,
			Year:    row.Year,
			Month:   row.Month,
			GeoJSON: row.GeoJSON,
		})
	}
	return points, nil
}

func (r *AnalyticsRepository) Polygons(ctx context.Context, scope model.Scope) ([]model.PolygonRow, error) {
	type row struct {
		ID      int64
		Name    *string
		GeoJSON *string
	}
	var rows []row

	query := r.db.WithContext(ctx).
		Table("dim_bairro b").
		Select("b.id_bairro AS id, b.nome_bairro AS name, ST_AsGeoJSON(b.geom) AS geo_json")
	switch scope.Type {
	case model.ScopeNeighborhood:
		query = query.Where("b.id_bairro = ?", scope.NeighborhoodID)
	case model.ScopeLine:
		query = query.Where("b.id_bairro IN (SELECT id_bairro FROM bridge_linha_bairro WHERE id_linha = ?)", scope.LineID)
	default:
		query = query.Where("1 = 0")
	}

	if err := query.Order("b.id_bairro").Scan(&rows).Error; err != nil {
		return nil, dataAccess("neighborhood polygons", err)
	}

	polygons := make([]model.PolygonRow, 0, len(rows))
	for _, row := range rows {
		polygons = append(polygons, model.PolygonRow{ID: row.ID, Name: deref(row.Name), GeoJSON: row.GeoJSON})
	}
	return polygons, nil
}

func applyStopScope(query *gorm.DB, scope model.Scope) *gorm.DB {
	switch scope.Type {
	case model.ScopeLine:
		return query.Where("p.cod_linha = ?", scope.LineCode)
	case model.ScopeNeighborhood:
		return query.Where("p.identificador_ponto_onibus IN (SELECT identificador_ponto_onibus FROM bridge_ponto_bairro WHERE id_bairro = ?)", scope.NeighborhoodID)
	}
	return query.Where("1 = 0")
}
