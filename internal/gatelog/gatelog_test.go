package gatelog

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nse-agent/marketagent/internal/domain"
	"github.com/nse-agent/marketagent/internal/gates"
)

func newMockLogger(t *testing.T) (*PostgresLogger, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	sqlxDB := sqlx.NewDb(db, "postgres")
	return NewPostgresLogger(sqlxDB, 5*time.Second), mock
}

func sampleRecord() gates.Record {
	return gates.Record{
		Symbol:    "INFY",
		Timestamp: time.Now(),
		Inputs: gates.Inputs{
			Symbol: "INFY", Alignment: domain.AlignmentFull, IsUnstable: false,
			Probability: domain.ProbabilityResult{
				PContinuation: 0.5, PPullback: 0.3, PFailure: 0.2, ActiveState: domain.StateContinuation,
			},
		},
		Evaluation: domain.GateEvaluation{
			Symbol: "INFY",
			PerGate: map[domain.GateName]bool{
				domain.GateAlignment: true, domain.GateDominance: true, domain.GateRegimeRisk: true,
				domain.GateStructuralLocation: true, domain.GateOverconfidence: true,
			},
			Permission: domain.ExecutionPermission{Status: domain.PermissionAllowed},
		},
	}
}

func TestLog_InsertsAndReturnsID(t *testing.T) {
	logger, mock := newMockLogger(t)
	rec := sampleRecord()

	mock.ExpectQuery("INSERT INTO gate_evaluations").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	id, err := logger.Log(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecent_ReturnsDecodedRecords(t *testing.T) {
	logger, mock := newMockLogger(t)
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"symbol", "ts", "alignment", "is_unstable",
		"prob_continuation", "prob_pullback", "prob_failure", "active_state",
		"gate_alignment", "gate_dominance", "gate_regime_risk", "gate_structural", "gate_overconfidence",
		"permission_status", "blocked_reasons",
	}).AddRow(
		"INFY", now, "FULL", false,
		0.5, 0.3, 0.2, "CONTINUATION",
		true, true, true, true, true,
		"ALLOWED", []byte(`["r1"]`),
	)

	mock.ExpectQuery("SELECT symbol, ts, alignment").WillReturnRows(rows)

	recs, err := logger.Recent(context.Background(), "INFY", 20)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "INFY", recs[0].Symbol)
	assert.True(t, recs[0].Evaluation.PerGate[domain.GateAlignment])
	assert.Equal(t, domain.PermissionStatus("ALLOWED"), recs[0].Evaluation.Permission.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}
