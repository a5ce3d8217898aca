package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"transit-analytics/internal/model"
)

type AnalyticsRepository struct {
	db *gorm.DB
}

func NewAnalyticsRepository(db *gorm.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// entitySpec binds an entity type to its dimension and rollup relations.
// Every dimension is aliased "d", rollups "agg" and the trip fact "f".
type entitySpec struct {
	dim      string
	id       string
	code     string
	name     string
	sentinel string

	rollup      string
	rollupKey   string
	passengers  string
	trips       string
	occurrences string
	distance    string

	factKey string
}

var entitySpecs = map[model.EntityType]entitySpec{
	model.EntityLine: {
		dim:         "dim_linha",
		id:          "id_linha",
		code:        "CAST(d.cod_linha AS TEXT)",
		name:        "d.nome_linha",
		rollup:      "agg_metricas_linhas_diarias",
		rollupKey:   "id_linha",
		passengers:  "total_passageiros",
		trips:       "total_viagens",
		occurrences: "total_ocorrencias",
		distance:    "total_extensao_km",
		factKey:     "id_linha",
	},
	model.EntityCompany: {
		dim:         "dim_empresa",
		id:          "id_empresa",
		code:        "CAST(d.codigo_empresa AS TEXT)",
		name:        "d.nome_empresa",
		sentinel:    "d.codigo_empresa <> 0",
		rollup:      "agg_metricas_empresas_diarias",
		rollupKey:   "id_empresa",
		passengers:  "total_passageiros",
		trips:       "total_viagens",
		occurrences: "total_ocorrencias",
		factKey:     "id_empresa",
	},
	model.EntityConcessionaire: {
		dim:         "dim_concessionaria",
		id:          "id_concessionaria",
		code:        "CAST(d.codigo_concessionaria AS TEXT)",
		name:        "d.nome_concessionaria",
		sentinel:    "d.codigo_concessionaria <> 0",
		rollup:      "agg_metricas_concessionarias_diarias",
		rollupKey:   "id_concessionaria",
		passengers:  "total_passageiros",
		trips:       "total_viagens",
		occurrences: "total_ocorrencias",
		factKey:     "id_concessionaria",
	},
	model.EntityVehicle: {
		dim:         "dim_veiculo",
		id:          "id_veiculo",
		code:        "CAST(d.identificador_veiculo AS TEXT)",
		name:        "CAST(d.identificador_veiculo AS TEXT)",
		rollup:      "agg_metricas_veiculos_diarias",
		rollupKey:   "id_veiculo",
		passengers:  "total_passageiros",
		trips:       "total_viagens",
		occurrences: "total_ocorrencias",
		distance:    "total_extensao_km",
		factKey:     "id_veiculo",
	},
	model.EntityNeighborhood: {
		dim:         "dim_bairro",
		id:          "id_bairro",
		code:        "CAST(d.id_bairro AS TEXT)",
		name:        "d.nome_bairro",
		rollup:      "agg_metricas_bairros_diarias",
		rollupKey:   "id_bairro",
		passengers:  "total_passageiros",
		occurrences: "total_ocorrencias",
	},
	model.EntityJustification: {
		dim:     "dim_justificativa",
		id:      "id_justificativa",
		code:    "CAST(d.id_justificativa AS TEXT)",
		name:    "d.nome_justificativa",
		factKey: "id_justificativa",
	},
}

func specFor(entity model.EntityType) (entitySpec, error) {
	spec, ok := entitySpecs[entity]
	if !ok {
		return entitySpec{}, fmt.Errorf("%w: unsupported entity type %q", model.ErrInvalidArgument, entity)
	}
	return spec, nil
}

// refColumns selects the id/code/name triple of the "d" alias.
func (s entitySpec) refColumns() string {
	return fmt.Sprintf("d.%s AS id, %s AS code, %s AS name", s.id, s.code, s.name)
}

func (s entitySpec) groupColumns() string {
	return fmt.Sprintf("d.%s, %s, %s", s.id, s.code, s.name)
}

func (s entitySpec) idColumn() string {
	return "d." + s.id
}

func (s entitySpec) sum(column string) string {
	if column == "" {
		return "NULL"
	}
	return "SUM(agg." + column + ")"
}

// factFilter restricts the "f" alias to the trips of one entity. Neighborhoods
// own no fact column and are reached through the lines crossing them.
func (s entitySpec) factFilter(query *gorm.DB, entity model.EntityType, id int64) *gorm.DB {
	if entity == model.EntityNeighborhood {
		return query.Where("f.id_linha IN (SELECT id_linha FROM bridge_linha_bairro WHERE id_bairro = ?)", id)
	}
	return query.Where("f."+s.factKey+" = ?", id)
}

func (r *AnalyticsRepository) tripFacts(ctx context.Context, rng model.DateRange) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("fact_viagens f").
		Joins("JOIN dim_data dd ON dd.id_data = f.id_data").
		Where("dd.data_completa BETWEEN ? AND ?", rng.From, rng.To)
}

// Ping checks that the pool can reach the warehouse.
func (r *AnalyticsRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return dataAccess("ping", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return dataAccess("ping", err)
	}
	return nil
}

func dataAccess(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", model.ErrDataAccess, op, err)
}

type refRow struct {
	ID   int64
	Code *string
	Name *string
}

func (row refRow) ref() model.EntityRef {
	return model.EntityRef{ID: row.ID, Code: deref(row.Code), Name: deref(row.Name)}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
