package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transit-analytics/internal/model"
)

func TestTopLinesTreatsNullSumsAsZero(t *testing.T) {
	for _, entity := range []model.EntityType{model.EntityCompany, model.EntityConcessionaire, model.EntityNeighborhood} {
		t.Run(string(entity), func(t *testing.T) {
			repo, mock := newTestRepository(t)
			mock.ExpectQuery(`COALESCE\(SUM\(agg\.total_passageiros\), 0\) AS value FROM agg_metricas_linhas_diarias agg .*ORDER BY value DESC,d\.id_linha ASC LIMIT`).
				WillReturnRows(sqlmock.NewRows([]string{"id", "code", "name", "value"}).
					AddRow(2, "L2", "Centro", 1500.0).
					AddRow(4, "L4", "Barreiro", 900.0))

			items, err := repo.TopLines(context.Background(), entity, 1, march, model.DashboardTopN)
			require.NoError(t, err)
			require.Len(t, items, 2)
			assert.Equal(t, "L2", items[0].Code)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestTopLinesRejectsLine(t *testing.T) {
	repo, _ := newTestRepository(t)
	_, err := repo.TopLines(context.Background(), model.EntityLine, 1, march, model.DashboardTopN)
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
}

func TestLineOperatorOrdersByNullSafeTripSum(t *testing.T) {
	repo, mock := newTestRepository(t)
	mock.ExpectQuery(`FROM agg_metricas_linhas_diarias agg JOIN dim_empresa d .*ORDER BY COALESCE\(SUM\(agg\.total_viagens\), 0\) DESC,d\.id_empresa ASC LIMIT`).
		WillReturnRows(sqlmock.NewRows([]string{"nome_empresa"}).AddRow("Viação Norte"))

	name, err := repo.lineOperator(context.Background(), model.EntityCompany, 4, march)
	require.NoError(t, err)
	assert.Equal(t, "Viação Norte", name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLineOperatorWithoutTrips(t *testing.T) {
	repo, mock := newTestRepository(t)
	mock.ExpectQuery(`JOIN dim_concessionaria d`).
		WillReturnRows(sqlmock.NewRows([]string{"nome_concessionaria"}))

	name, err := repo.lineOperator(context.Background(), model.EntityConcessionaire, 4, march)
	require.NoError(t, err)
	assert.Empty(t, name)
}
