package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transit-analytics/internal/model"
)

func TestOperatorTotalsZeroFillsIdleOperators(t *testing.T) {
	repo, mock := newTestRepository(t)
	mock.ExpectQuery(`FROM dim_concessionaria d LEFT JOIN`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "name", "lines", "passengers", "trips", "occurrences"}).
			AddRow(1, "11", "Consórcio A", 12, 5000.0, 300.0, 7.0).
			AddRow(2, "12", "Consórcio B", 0, nil, nil, nil))

	totals, err := repo.OperatorTotals(context.Background(), model.EntityConcessionaire, march)
	require.NoError(t, err)
	require.Len(t, totals, 2)
	assert.Equal(t, int64(12), totals[0].Lines)
	assert.Zero(t, totals[1].Passengers)
	assert.Zero(t, totals[1].Trips)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOperatorTotalsRejectsLines(t *testing.T) {
	repo, _ := newTestRepository(t)
	_, err := repo.OperatorTotals(context.Background(), model.EntityLine, march)
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
}

func TestLineEfficiencyFiltersIncompleteDays(t *testing.T) {
	repo, mock := newTestRepository(t)
	mock.ExpectQuery(`agg\.total_extensao_km > 0 AND agg\.total_duracao_minutos > 0`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "name", "passengers", "distance_km", "duration_minutes"}).
			AddRow(4, "L4", "Centro", 900.0, 300.0, 600.0))

	totals, err := repo.LineEfficiency(context.Background(), march)
	require.NoError(t, err)
	require.Len(t, totals, 1)
	assert.Equal(t, 300.0, totals[0].DistanceKm)
}

func TestOptionsExcludeSentinel(t *testing.T) {
	repo, mock := newTestRepository(t)
	mock.ExpectQuery(`FROM dim_empresa d WHERE d\.codigo_empresa <> 0 ORDER BY d\.nome_empresa,d\.id_empresa`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "name"}).AddRow(3, "12", "Viação Norte"))

	options, err := repo.Options(context.Background(), model.EntityCompany)
	require.NoError(t, err)
	assert.Equal(t, []model.Option{{ID: 3, Code: "12", Name: "Viação Norte"}}, options)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLinesByFailuresTreatsNullSumsAsZero(t *testing.T) {
	repo, mock := newTestRepository(t)
	mock.ExpectQuery(`COALESCE\(SUM\(agg\.total_falhas\), 0\) AS value FROM agg_falhas_mecanicas_diarias agg .*ORDER BY value DESC,d\.id_linha ASC LIMIT`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "name", "value"}).AddRow(2, "L2", "Centro", 14))

	items, err := repo.LinesByFailures(context.Background(), march, 2)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 14.0, items[0].Value)
	assert.NoError(t, mock.ExpectationsWereMet())
}
