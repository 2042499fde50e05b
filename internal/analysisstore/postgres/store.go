// Package postgres implements the C5 analysis store on the teacher's
// exact persistence stack (jmoiron/sqlx + lib/pq).
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/nse-agent/marketagent/internal/analysisstore"
	"github.com/nse-agent/marketagent/internal/domain"
)

// rowColumns lists every column row scans, explicitly, so an unmapped
// column added to the schema (created_at, say) can never break a
// `SELECT *` scan.
const rowColumns = `
	id, correlation_id, symbol, timeframe, ts, trend, structure, support, resistance,
	momentum, momentum_condition, volume_trend, candlestick_pattern,
	bias, reasoning, key_levels, price,
	perception_confidence, perception_completeness, perception_conflicts, critical_conflict,
	validation_warnings, full_record`

// row is the sqlx scan target for one analyses row.
type row struct {
	ID                 int64           `db:"id"`
	CorrelationID       uuid.UUID       `db:"correlation_id"`
	Symbol              string          `db:"symbol"`
	Timeframe           string          `db:"timeframe"`
	TS                  time.Time       `db:"ts"`
	Trend               sql.NullString  `db:"trend"`
	Structure           sql.NullString  `db:"structure"`
	Support             []byte          `db:"support"`
	Resistance          []byte          `db:"resistance"`
	Momentum            sql.NullString  `db:"momentum"`
	MomentumCondition   sql.NullString  `db:"momentum_condition"`
	VolumeTrend         sql.NullString  `db:"volume_trend"`
	CandlestickPattern  sql.NullString  `db:"candlestick_pattern"`
	Bias                sql.NullString  `db:"bias"`
	Reasoning           sql.NullString  `db:"reasoning"`
	KeyLevels           sql.NullString  `db:"key_levels"`
	Price               sql.NullFloat64 `db:"price"`
	PerceptionConfidence sql.NullFloat64 `db:"perception_confidence"`
	PerceptionCompleteness sql.NullFloat64 `db:"perception_completeness"`
	PerceptionConflicts sql.NullInt32   `db:"perception_conflicts"`
	CriticalConflict    sql.NullBool    `db:"critical_conflict"`
	ValidationWarnings  []byte          `db:"validation_warnings"`
	FullRecord          []byte          `db:"full_record"`
}

func (r row) toAnalysis() (domain.Analysis, error) {
	var support, resistance []float64
	if len(r.Support) > 0 {
		if err := json.Unmarshal(r.Support, &support); err != nil {
			return domain.Analysis{}, fmt.Errorf("unmarshal support: %w", err)
		}
	}
	if len(r.Resistance) > 0 {
		if err := json.Unmarshal(r.Resistance, &resistance); err != nil {
			return domain.Analysis{}, fmt.Errorf("unmarshal resistance: %w", err)
		}
	}
	var warnings []string
	if len(r.ValidationWarnings) > 0 {
		if err := json.Unmarshal(r.ValidationWarnings, &warnings); err != nil {
			return domain.Analysis{}, fmt.Errorf("unmarshal validation_warnings: %w", err)
		}
	}
	return domain.Analysis{
		Symbol:                 r.Symbol,
		Timeframe:              domain.Timeframe(r.Timeframe),
		Timestamp:              r.TS,
		Trend:                  domain.Trend(r.Trend.String),
		Structure:              domain.Structure(r.Structure.String),
		Support:                support,
		Resistance:             resistance,
		Momentum:               r.Momentum.String,
		MomentumCondition:      r.MomentumCondition.String,
		VolumeTrend:            r.VolumeTrend.String,
		CandlestickPattern:     r.CandlestickPattern.String,
		Price:                  r.Price.Float64,
		Reasoning:              r.Reasoning.String,
		Bias:                   r.Bias.String,
		KeyLevels:              r.KeyLevels.String,
		PerceptionConfidence:   r.PerceptionConfidence.Float64,
		PerceptionCompleteness: r.PerceptionCompleteness.Float64,
		PerceptionConflicts:    int(r.PerceptionConflicts.Int32),
		CriticalConflict:       r.CriticalConflict.Bool,
		ValidationWarnings:     warnings,
	}, nil
}

// Store implements analysisstore.Store over a *sqlx.DB.
type Store struct {
	db      *sqlx.DB
	timeout time.Duration
}

// New wraps db with the given per-query timeout.
func New(db *sqlx.DB, timeout time.Duration) *Store {
	return &Store{db: db, timeout: timeout}
}

var _ analysisstore.Store = (*Store)(nil)

// Store persists an Analysis. A duplicate (symbol, timeframe, ts) row
// is reported, not silently ignored, matching the unique index.
func (s *Store) Store(ctx context.Context, a domain.Analysis) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	support, err := json.Marshal(a.Support)
	if err != nil {
		return 0, fmt.Errorf("marshal support: %w", err)
	}
	resistance, err := json.Marshal(a.Resistance)
	if err != nil {
		return 0, fmt.Errorf("marshal resistance: %w", err)
	}
	warnings, err := json.Marshal(a.ValidationWarnings)
	if err != nil {
		return 0, fmt.Errorf("marshal validation_warnings: %w", err)
	}
	full, err := json.Marshal(a)
	if err != nil {
		return 0, fmt.Errorf("marshal full record: %w", err)
	}

	symbol := analysisstore.NormalizeSymbol(a.Symbol)

	const q = `
		INSERT INTO analyses (
			correlation_id, symbol, timeframe, ts, trend, structure, support, resistance,
			momentum, momentum_condition, volume_trend, candlestick_pattern,
			bias, reasoning, key_levels, price,
			perception_confidence, perception_completeness, perception_conflicts, critical_conflict,
			validation_warnings, full_record
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)
		RETURNING id`

	var id int64
	err = s.db.QueryRowxContext(ctx, q,
		uuid.New(), symbol, a.Timeframe, a.Timestamp, a.Trend, a.Structure, support, resistance,
		a.Momentum, a.MomentumCondition, a.VolumeTrend, a.CandlestickPattern,
		a.Bias, a.Reasoning, a.KeyLevels, a.Price,
		a.PerceptionConfidence, a.PerceptionCompleteness, a.PerceptionConflicts, a.CriticalConflict,
		warnings, full,
	).Scan(&id)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return 0, fmt.Errorf("duplicate analysis for %s %s at %s: %w", symbol, a.Timeframe, a.Timestamp, err)
		}
		return 0, fmt.Errorf("insert analysis: %w", err)
	}
	return id, nil
}

// Latest returns the most recent Analysis for (symbol, timeframe), or
// nil if none exists within maxAge (0 means no age filter).
func (s *Store) Latest(ctx context.Context, symbol string, tf domain.Timeframe, maxAge time.Duration) (*domain.Analysis, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	q := `SELECT ` + rowColumns + ` FROM analyses WHERE symbol = $1 AND timeframe = $2`
	args := []any{analysisstore.NormalizeSymbol(symbol), tf}
	if maxAge > 0 {
		q += ` AND ts >= $3`
		args = append(args, time.Now().Add(-maxAge))
	}
	q += ` ORDER BY ts DESC LIMIT 1`

	var r row
	if err := s.db.GetContext(ctx, &r, q, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("latest analysis for %s %s: %w", symbol, tf, err)
	}
	a, err := r.toAnalysis()
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListBySymbol returns up to limit analyses for symbol, newest first.
func (s *Store) ListBySymbol(ctx context.Context, symbol string, limit int) ([]domain.Analysis, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var rows []row
	q := `SELECT ` + rowColumns + ` FROM analyses WHERE symbol = $1 ORDER BY ts DESC LIMIT $2`
	if err := s.db.SelectContext(ctx, &rows, q, analysisstore.NormalizeSymbol(symbol), limit); err != nil {
		return nil, fmt.Errorf("list analyses for %s: %w", symbol, err)
	}
	return rowsToAnalyses(rows)
}

// ListRecent returns up to limit analyses across all symbols within the
// last `since` duration.
func (s *Store) ListRecent(ctx context.Context, since time.Duration, limit int) ([]domain.Analysis, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var rows []row
	q := `SELECT ` + rowColumns + ` FROM analyses WHERE ts >= $1 ORDER BY ts DESC LIMIT $2`
	if err := s.db.SelectContext(ctx, &rows, q, time.Now().Add(-since), limit); err != nil {
		return nil, fmt.Errorf("list recent analyses: %w", err)
	}
	return rowsToAnalyses(rows)
}

// TrendChange compares the most recent trend for symbol to the mode of
// the previous `lookback` trends.
func (s *Store) TrendChange(ctx context.Context, symbol string, currentTrend domain.Trend, lookback int) (analysisstore.TrendChange, error) {
	history, err := s.ListBySymbol(ctx, symbol, lookback+1)
	if err != nil {
		return analysisstore.TrendChange{}, err
	}
	if len(history) <= 1 {
		return analysisstore.TrendChange{Changed: false, Description: "insufficient history"}, nil
	}
	var previousTrends []domain.Trend
	for _, a := range history[1:] {
		previousTrends = append(previousTrends, a.Trend)
	}
	prevMode := analysisstore.ModeTrend(previousTrends)
	changed := prevMode != currentTrend
	desc := fmt.Sprintf("trend unchanged at %s", currentTrend)
	if changed {
		desc = fmt.Sprintf("trend changed from %s to %s", prevMode, currentTrend)
	}
	return analysisstore.TrendChange{Changed: changed, PreviousTrend: prevMode, Description: desc}, nil
}

// GetStats summarizes the store's contents.
func (s *Store) GetStats(ctx context.Context) (analysisstore.Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	stats := analysisstore.Stats{BySymbol: map[string]int{}, ByTimeframe: map[domain.Timeframe]int{}}

	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT count(*) FROM analyses`); err != nil {
		return stats, fmt.Errorf("count analyses: %w", err)
	}
	stats.TotalAnalyses = total

	type agg struct {
		Key   string `db:"key"`
		Count int    `db:"count"`
	}
	var bySymbol []agg
	if err := s.db.SelectContext(ctx, &bySymbol, `SELECT symbol AS key, count(*) AS count FROM analyses GROUP BY symbol`); err != nil {
		return stats, fmt.Errorf("group by symbol: %w", err)
	}
	for _, a := range bySymbol {
		stats.BySymbol[a.Key] = a.Count
	}

	var byTF []agg
	if err := s.db.SelectContext(ctx, &byTF, `SELECT timeframe AS key, count(*) AS count FROM analyses GROUP BY timeframe`); err != nil {
		return stats, fmt.Errorf("group by timeframe: %w", err)
	}
	for _, a := range byTF {
		stats.ByTimeframe[domain.Timeframe(a.Key)] = a.Count
	}

	return stats, nil
}

func rowsToAnalyses(rows []row) ([]domain.Analysis, error) {
	out := make([]domain.Analysis, 0, len(rows))
	for _, r := range rows {
		a, err := r.toAnalysis()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}
