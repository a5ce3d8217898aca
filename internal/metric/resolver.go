// Package metric maps (entity type, metric) pairs onto the warehouse
// relation and column that answer them. It performs no I/O.
package metric

import (
	"fmt"
	"sort"

	"transit-analytics/internal/model"
)

type Mode int

const (
	// ModeSum sums Column of a daily rollup over the requested date range.
	ModeSum Mode = iota
	// ModeCountRelation counts distinct Column values of a bridge relation.
	ModeCountRelation
)

func (m Mode) String() string {
	switch m {
	case ModeSum:
		return "sum"
	case ModeCountRelation:
		return "count"
	default:
		return "unknown"
	}
}

// Source names the relation a ranking aggregates. Table and columns are
// compile-time constants and safe to place into SQL text.
type Source struct {
	Entity    model.EntityType
	Metric    model.Metric
	Mode      Mode
	Table     string
	KeyColumn string
	Column    string
}

const (
	lineRollup           = "agg_metricas_linhas_diarias"
	companyRollup        = "agg_metricas_empresas_diarias"
	concessionaireRollup = "agg_metricas_concessionarias_diarias"
	vehicleRollup        = "agg_metricas_veiculos_diarias"
	neighborhoodRollup   = "agg_metricas_bairros_diarias"
	lineNeighborhoods    = "bridge_linha_bairro"
	stopNeighborhoods    = "bridge_ponto_bairro"
)

var rankingSources = map[model.EntityType]map[model.Metric]Source{
	model.EntityLine: {
		model.MetricPassengers:  {Mode: ModeSum, Table: lineRollup, KeyColumn: "id_linha", Column: "total_passageiros"},
		model.MetricTrips:       {Mode: ModeSum, Table: lineRollup, KeyColumn: "id_linha", Column: "total_viagens"},
		model.MetricOccurrences: {Mode: ModeSum, Table: lineRollup, KeyColumn: "id_linha", Column: "total_ocorrencias"},
	},
	model.EntityVehicle: {
		model.MetricPassengers:  {Mode: ModeSum, Table: vehicleRollup, KeyColumn: "id_veiculo", Column: "total_passageiros"},
		model.MetricOccurrences: {Mode: ModeSum, Table: vehicleRollup, KeyColumn: "id_veiculo", Column: "total_ocorrencias"},
		model.MetricDistanceKm:  {Mode: ModeSum, Table: vehicleRollup, KeyColumn: "id_veiculo", Column: "total_extensao_km"},
	},
	model.EntityNeighborhood: {
		model.MetricLines:       {Mode: ModeCountRelation, Table: lineNeighborhoods, KeyColumn: "id_bairro", Column: "id_linha"},
		model.MetricOccurrences: {Mode: ModeSum, Table: neighborhoodRollup, KeyColumn: "id_bairro", Column: "total_ocorrencias"},
		model.MetricStops:       {Mode: ModeCountRelation, Table: stopNeighborhoods, KeyColumn: "id_bairro", Column: "identificador_ponto_onibus"},
	},
}

// Occurrence rankings across operators read each operator's own rollup.
var entityRankingSources = map[model.EntityType]Source{
	model.EntityLine:           {Mode: ModeSum, Table: lineRollup, KeyColumn: "id_linha", Column: "total_ocorrencias"},
	model.EntityCompany:        {Mode: ModeSum, Table: companyRollup, KeyColumn: "id_empresa", Column: "total_ocorrencias"},
	model.EntityConcessionaire: {Mode: ModeSum, Table: concessionaireRollup, KeyColumn: "id_concessionaria", Column: "total_ocorrencias"},
}

// Resolve returns the source for ranking entity by metric.
func Resolve(entity model.EntityType, metric model.Metric) (Source, error) {
	metrics, ok := rankingSources[entity]
	if !ok {
		return Source{}, fmt.Errorf("%w: entity %q has no ranking metrics", model.ErrInvalidArgument, entity)
	}
	src, ok := metrics[metric]
	if !ok {
		return Source{}, fmt.Errorf("%w: %q is not one of %v for %s", model.ErrInvalidMetric, metric, Allowed(entity), entity)
	}
	src.Entity = entity
	src.Metric = metric
	return src, nil
}

// ResolveEntityRanking backs the generic ranking across lines, companies and
// concessionaires, which only knows the occurrences metric.
func ResolveEntityRanking(entity model.EntityType, metric model.Metric) (Source, error) {
	src, ok := entityRankingSources[entity]
	if !ok {
		return Source{}, fmt.Errorf("%w: entity ranking supports line, company and concessionaire, got %q", model.ErrInvalidArgument, entity)
	}
	if metric != model.MetricOccurrences {
		return Source{}, fmt.Errorf("%w: entity ranking only supports %q", model.ErrInvalidMetric, model.MetricOccurrences)
	}
	src.Entity = entity
	src.Metric = metric
	return src, nil
}

// Allowed lists the metrics entity can be ranked by, sorted by name.
func Allowed(entity model.EntityType) []model.Metric {
	metrics := make([]model.Metric, 0, len(rankingSources[entity]))
	for m := range rankingSources[entity] {
		metrics = append(metrics, m)
	}
	sort.Slice(metrics, func(i, j int) bool { return metrics[i] < metrics[j] })
	return metrics
}
