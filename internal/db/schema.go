package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// warehouseRelations are produced by the ETL. The service never creates or
// alters them; it only checks they are there.
var warehouseRelations = []string{
	"dim_linha",
	"dim_bairro",
	"dim_empresa",
	"dim_concessionaria",
	"dim_veiculo",
	"dim_justificativa",
	"dim_ocorrencia",
	"dim_data",
	"fact_viagens",
	"agg_metricas_linhas_diarias",
	"agg_metricas_empresas_diarias",
	"agg_metricas_concessionarias_diarias",
	"agg_metricas_veiculos_diarias",
	"agg_metricas_bairros_diarias",
	"agg_falhas_mecanicas_diarias",
	"bridge_linha_bairro",
	"bridge_ponto_bairro",
	"staging_pontos_onibus_bh",
	"mv_empresa_principal_veiculo",
}

// VerifySchema returns the warehouse relations that are absent, in
// declaration order.
func VerifySchema(ctx context.Context, db *gorm.DB) ([]string, error) {
	var missing []string
	for _, name := range warehouseRelations {
		ok, err := relationExists(ctx, db, name)
		if err != nil {
			return nil, fmt.Errorf("check relation %s: %w", name, err)
		}
		if !ok {
			missing = append(missing, name)
		}
	}
	return missing, nil
}

// relationExists covers tables, views and materialized views alike.
func relationExists(ctx context.Context, db *gorm.DB, name string) (bool, error) {
	var exists bool
	err := db.WithContext(ctx).
		Raw("SELECT to_regclass(?) IS NOT NULL", "public."+name).
		Scan(&exists).Error
	return exists, err
}
