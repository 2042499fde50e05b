package postgres

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nse-agent/marketagent/internal/domain"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "postgres"), 5*time.Second), mock
}

func TestStore_InsertsAndReturnsID(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("INSERT INTO analyses").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	id, err := s.Store(context.Background(), domain.Analysis{
		Symbol: "infy", Timeframe: domain.TFDaily, Timestamp: time.Now(),
		Trend: domain.TrendBullish, Price: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func rowColumnNames() []string {
	return []string{
		"id", "correlation_id", "symbol", "timeframe", "ts", "trend", "structure", "support", "resistance",
		"momentum", "momentum_condition", "volume_trend", "candlestick_pattern",
		"bias", "reasoning", "key_levels", "price",
		"perception_confidence", "perception_completeness", "perception_conflicts", "critical_conflict",
		"validation_warnings", "full_record",
	}
}

func TestLatest_ReturnsMostRecentAnalysis(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()

	rows := sqlmock.NewRows(rowColumnNames()).AddRow(
		int64(1), "00000000-0000-0000-0000-000000000000", "INFY", "1D", now, "bullish", "higher_high",
		[]byte(`[95.0]`), []byte(`[110.0]`),
		nil, nil, nil, nil,
		nil, nil, nil, 100.0,
		nil, nil, nil, nil,
		nil, []byte(`{}`),
	)
	mock.ExpectQuery("SELECT .* FROM analyses WHERE symbol = \\$1 AND timeframe = \\$2").WillReturnRows(rows)

	a, err := s.Latest(context.Background(), "infy", domain.TFDaily, 0)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "INFY", a.Symbol)
	assert.Equal(t, domain.TrendBullish, a.Trend)
	assert.Equal(t, []float64{95.0}, a.Support)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLatest_NoRowsReturnsNilNotError(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT .* FROM analyses WHERE symbol = \\$1 AND timeframe = \\$2").
		WillReturnRows(sqlmock.NewRows(rowColumnNames()))

	a, err := s.Latest(context.Background(), "infy", domain.TFDaily, 0)
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestGetStats_AggregatesCounts(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM analyses").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
	mock.ExpectQuery("GROUP BY symbol").
		WillReturnRows(sqlmock.NewRows([]string{"key", "count"}).AddRow("INFY", 3).AddRow("TCS", 2))
	mock.ExpectQuery("GROUP BY timeframe").
		WillReturnRows(sqlmock.NewRows([]string{"key", "count"}).AddRow("1D", 5))

	stats, err := s.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, stats.TotalAnalyses)
	assert.Equal(t, 3, stats.BySymbol["INFY"])
	assert.Equal(t, 5, stats.ByTimeframe[domain.TFDaily])
}
