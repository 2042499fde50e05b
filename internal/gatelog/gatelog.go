// Package gatelog persists C8 execution gate evaluations for
// accountability and later review, mirroring the original gate
// logger's append-only evaluation history.
package gatelog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nse-agent/marketagent/internal/domain"
	"github.com/nse-agent/marketagent/internal/gates"
)

// Schema is the DDL for the gate_evaluations table.
const Schema = `
CREATE TABLE IF NOT EXISTS gate_evaluations (
	id                 BIGSERIAL PRIMARY KEY,
	correlation_id     UUID NOT NULL,
	symbol             TEXT NOT NULL,
	ts                 TIMESTAMPTZ NOT NULL,
	alignment          TEXT NOT NULL,
	is_unstable        BOOLEAN NOT NULL,
	prob_continuation  DOUBLE PRECISION NOT NULL,
	prob_pullback      DOUBLE PRECISION NOT NULL,
	prob_failure       DOUBLE PRECISION NOT NULL,
	active_state       TEXT NOT NULL,
	gate_alignment     BOOLEAN NOT NULL,
	gate_dominance     BOOLEAN NOT NULL,
	gate_regime_risk   BOOLEAN NOT NULL,
	gate_structural    BOOLEAN NOT NULL,
	gate_overconfidence BOOLEAN NOT NULL,
	permission_status  TEXT NOT NULL,
	blocked_reasons    JSONB,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_gate_evaluations_symbol_ts ON gate_evaluations (symbol, ts DESC);
CREATE INDEX IF NOT EXISTS idx_gate_evaluations_status_ts ON gate_evaluations (permission_status, ts DESC);
`

// Logger appends GateEvaluations and serves recent-history queries.
type Logger interface {
	Log(ctx context.Context, rec gates.Record) (int64, error)
	Recent(ctx context.Context, symbol string, limit int) ([]gates.Record, error)
}

// PostgresLogger implements Logger over a *sqlx.DB.
type PostgresLogger struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewPostgresLogger constructs a PostgresLogger with a per-query timeout.
func NewPostgresLogger(db *sqlx.DB, timeout time.Duration) *PostgresLogger {
	return &PostgresLogger{db: db, timeout: timeout}
}

var _ Logger = (*PostgresLogger)(nil)

func (l *PostgresLogger) Log(ctx context.Context, rec gates.Record) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	reasons, err := json.Marshal(rec.Evaluation.Permission.Reasons)
	if err != nil {
		return 0, fmt.Errorf("marshal blocked reasons: %w", err)
	}

	const q = `
		INSERT INTO gate_evaluations (
			correlation_id, symbol, ts, alignment, is_unstable,
			prob_continuation, prob_pullback, prob_failure, active_state,
			gate_alignment, gate_dominance, gate_regime_risk, gate_structural, gate_overconfidence,
			permission_status, blocked_reasons
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		RETURNING id`

	var id int64
	err = l.db.QueryRowxContext(ctx, q,
		uuid.New(), rec.Symbol, rec.Timestamp, rec.Inputs.Alignment, rec.Inputs.IsUnstable,
		rec.Inputs.Probability.PContinuation, rec.Inputs.Probability.PPullback, rec.Inputs.Probability.PFailure,
		rec.Inputs.Probability.ActiveState,
		rec.Evaluation.PerGate[domain.GateAlignment], rec.Evaluation.PerGate[domain.GateDominance],
		rec.Evaluation.PerGate[domain.GateRegimeRisk], rec.Evaluation.PerGate[domain.GateStructuralLocation],
		rec.Evaluation.PerGate[domain.GateOverconfidence],
		rec.Evaluation.Permission.Status, reasons,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("log gate evaluation for %s: %w", rec.Symbol, err)
	}
	return id, nil
}

type row struct {
	Symbol             string    `db:"symbol"`
	TS                 time.Time `db:"ts"`
	Alignment          string    `db:"alignment"`
	IsUnstable         bool      `db:"is_unstable"`
	ProbContinuation   float64   `db:"prob_continuation"`
	ProbPullback       float64   `db:"prob_pullback"`
	ProbFailure        float64   `db:"prob_failure"`
	ActiveState        string    `db:"active_state"`
	GateAlignment      bool      `db:"gate_alignment"`
	GateDominance      bool      `db:"gate_dominance"`
	GateRegimeRisk     bool      `db:"gate_regime_risk"`
	GateStructural     bool      `db:"gate_structural"`
	GateOverconfidence bool      `db:"gate_overconfidence"`
	PermissionStatus   string    `db:"permission_status"`
	BlockedReasons     []byte    `db:"blocked_reasons"`
}

func (r row) toRecord() (gates.Record, error) {
	var reasons []string
	if len(r.BlockedReasons) > 0 {
		if err := json.Unmarshal(r.BlockedReasons, &reasons); err != nil {
			return gates.Record{}, fmt.Errorf("unmarshal blocked reasons: %w", err)
		}
	}
	return gates.Record{
		Symbol:    r.Symbol,
		Timestamp: r.TS,
		Inputs: gates.Inputs{
			Symbol:     r.Symbol,
			Alignment:  domain.Alignment(r.Alignment),
			IsUnstable: r.IsUnstable,
			Probability: domain.ProbabilityResult{
				PContinuation: r.ProbContinuation,
				PPullback:     r.ProbPullback,
				PFailure:      r.ProbFailure,
				ActiveState:   domain.ActiveState(r.ActiveState),
			},
		},
		Evaluation: domain.GateEvaluation{
			Symbol: r.Symbol,
			PerGate: map[domain.GateName]bool{
				domain.GateAlignment:          r.GateAlignment,
				domain.GateDominance:          r.GateDominance,
				domain.GateRegimeRisk:         r.GateRegimeRisk,
				domain.GateStructuralLocation: r.GateStructural,
				domain.GateOverconfidence:     r.GateOverconfidence,
			},
			Permission: domain.ExecutionPermission{
				Status:  domain.PermissionStatus(r.PermissionStatus),
				Reasons: reasons,
			},
		},
	}, nil
}

func (l *PostgresLogger) Recent(ctx context.Context, symbol string, limit int) ([]gates.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	var rows []row
	const q = `
		SELECT symbol, ts, alignment, is_unstable,
			prob_continuation, prob_pullback, prob_failure, active_state,
			gate_alignment, gate_dominance, gate_regime_risk, gate_structural, gate_overconfidence,
			permission_status, blocked_reasons
		FROM gate_evaluations WHERE symbol = $1 ORDER BY ts DESC LIMIT $2`
	if err := l.db.SelectContext(ctx, &rows, q, symbol, limit); err != nil {
		return nil, fmt.Errorf("recent gate evaluations for %s: %w", symbol, err)
	}
	out := make([]gates.Record, 0, len(rows))
	for _, r := range rows {
		rec, err := r.toRecord()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
