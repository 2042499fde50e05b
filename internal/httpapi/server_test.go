package httpapi

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nse-agent/marketagent/internal/analysisstore"
	"github.com/nse-agent/marketagent/internal/domain"
	"github.com/nse-agent/marketagent/internal/gates"
)

type fakeStore struct {
	analyses []domain.Analysis
	err      error
}

func (f fakeStore) Store(ctx context.Context, a domain.Analysis) (int64, error) { return 0, nil }
func (f fakeStore) Latest(ctx context.Context, symbol string, tf domain.Timeframe, maxAge time.Duration) (*domain.Analysis, error) {
	return nil, nil
}
func (f fakeStore) ListBySymbol(ctx context.Context, symbol string, limit int) ([]domain.Analysis, error) {
	return f.analyses, f.err
}
func (f fakeStore) ListRecent(ctx context.Context, since time.Duration, limit int) ([]domain.Analysis, error) {
	return f.analyses, f.err
}
func (f fakeStore) TrendChange(ctx context.Context, symbol string, currentTrend domain.Trend, lookback int) (analysisstore.TrendChange, error) {
	return analysisstore.TrendChange{}, nil
}
func (f fakeStore) GetStats(ctx context.Context) (analysisstore.Stats, error) {
	return analysisstore.Stats{}, nil
}

type fakeGateLog struct {
	recs []gates.Record
	err  error
}

func (f fakeGateLog) Log(ctx context.Context, rec gates.Record) (int64, error) { return 0, nil }
func (f fakeGateLog) Recent(ctx context.Context, symbol string, limit int) ([]gates.Record, error) {
	return f.recs, f.err
}

func newTestServerForRoutes(t *testing.T, store analysisstore.Store, gl *fakeGateLog) *Server {
	t.Helper()
	s := &Server{log: zerolog.Nop(), store: store}
	if gl != nil {
		s.gatelog = gl
	}
	s.setupRoutes()
	return s
}

func TestHandleHealthz(t *testing.T) {
	s := newTestServerForRoutes(t, nil, nil)
	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, 200, w.Code)
}

func TestHandleGatesRecent_MissingSymbolReturns400(t *testing.T) {
	s := newTestServerForRoutes(t, nil, nil)
	req := httptest.NewRequest("GET", "/gates/recent", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, 400, w.Code)
}

func TestHandleGatesRecent_UnconfiguredReturns503(t *testing.T) {
	s := newTestServerForRoutes(t, nil, nil)
	req := httptest.NewRequest("GET", "/gates/recent?symbol=INFY", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, 503, w.Code)
}

func TestHandleGatesRecent_ConfiguredReturnsRecords(t *testing.T) {
	gl := &fakeGateLog{recs: []gates.Record{{Symbol: "INFY"}}}
	s := newTestServerForRoutes(t, nil, gl)
	req := httptest.NewRequest("GET", "/gates/recent?symbol=INFY", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), "INFY")
}

func TestHandleAnalyses_UnconfiguredReturns503(t *testing.T) {
	s := newTestServerForRoutes(t, nil, nil)
	req := httptest.NewRequest("GET", "/analyses/INFY", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, 503, w.Code)
}

func TestHandleAnalyses_ConfiguredReturnsRecords(t *testing.T) {
	store := fakeStore{analyses: []domain.Analysis{{Symbol: "INFY"}}}
	s := newTestServerForRoutes(t, store, nil)
	req := httptest.NewRequest("GET", "/analyses/INFY", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), "INFY")
}

func TestNotFoundHandler(t *testing.T) {
	s := newTestServerForRoutes(t, nil, nil)
	req := httptest.NewRequest("GET", "/nonexistent", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, 404, w.Code)
	require.Contains(t, w.Body.String(), "not found")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 8090, cfg.Port)
}
