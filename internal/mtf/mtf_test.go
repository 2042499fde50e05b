package mtf

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nse-agent/marketagent/internal/analysisstore"
	"github.com/nse-agent/marketagent/internal/domain"
)

func analysisAt(tf domain.Timeframe, trend domain.Trend, price float64, support, resistance []float64, momentumCond string) domain.Analysis {
	return domain.Analysis{
		Timeframe:         tf,
		Trend:             trend,
		Price:             price,
		Support:           support,
		Resistance:        resistance,
		MomentumCondition: momentumCond,
		Timestamp:         time.Now(),
	}
}

func TestTimeframeSet(t *testing.T) {
	assert.Equal(t, []domain.Timeframe{domain.TFMonthly, domain.TFWeekly, domain.TFDaily}, TimeframeSet(domain.MTFSwing))
	assert.Equal(t, []domain.Timeframe{domain.TF4Hour, domain.TFHourly, domain.TF15Min}, TimeframeSet(domain.MTFIntraday))
	assert.Equal(t, []domain.Timeframe{domain.TFMonthly, domain.TFWeekly}, TimeframeSet(domain.MTFPositional))
	assert.Nil(t, TimeframeSet(domain.MTFMode("BOGUS")))
}

func TestClassifyAlignment_Full(t *testing.T) {
	analyses := map[domain.Timeframe]domain.Analysis{
		domain.TFMonthly: analysisAt(domain.TFMonthly, domain.TrendBullish, 100, nil, nil, ""),
		domain.TFWeekly:  analysisAt(domain.TFWeekly, domain.TrendBullish, 100, nil, nil, ""),
		domain.TFDaily:   analysisAt(domain.TFDaily, domain.TrendBullish, 100, nil, nil, ""),
	}
	agg := New(nil)
	res := agg.FromLive("INFY", domain.MTFSwing, analyses)
	require.Equal(t, domain.AlignmentFull, res.Alignment)
	assert.Equal(t, domain.TFMonthly, res.Dominant)
}

func TestClassifyAlignment_ConflictMonthlyWeekly(t *testing.T) {
	analyses := map[domain.Timeframe]domain.Analysis{
		domain.TFMonthly: analysisAt(domain.TFMonthly, domain.TrendBullish, 100, nil, nil, ""),
		domain.TFWeekly:  analysisAt(domain.TFWeekly, domain.TrendBearish, 100, nil, nil, ""),
		domain.TFDaily:   analysisAt(domain.TFDaily, domain.TrendBullish, 100, nil, nil, ""),
	}
	agg := New(nil)
	res := agg.FromLive("INFY", domain.MTFSwing, analyses)
	assert.Equal(t, domain.AlignmentConflict, res.Alignment)
}

func TestClassifyAlignment_ConflictMonthlyDailyWeeklyAgreesWithMonthly(t *testing.T) {
	// Monthly+Weekly bullish, Daily bearish: Monthly disagrees with Daily,
	// so this is CONFLICT even though Weekly is present and agrees with
	// Monthly — Weekly's presence must not suppress the Monthly-vs-Daily
	// rule.
	analyses := map[domain.Timeframe]domain.Analysis{
		domain.TFMonthly: analysisAt(domain.TFMonthly, domain.TrendBullish, 100, nil, nil, ""),
		domain.TFWeekly:  analysisAt(domain.TFWeekly, domain.TrendBullish, 100, nil, nil, ""),
		domain.TFDaily:   analysisAt(domain.TFDaily, domain.TrendBearish, 100, nil, nil, ""),
	}
	agg := New(nil)
	res := agg.FromLive("INFY", domain.MTFSwing, analyses)
	assert.Equal(t, domain.AlignmentConflict, res.Alignment)
}

func TestClassifyAlignment_PartialWeeklyDailyDivergeWithoutMonthly(t *testing.T) {
	analyses := map[domain.Timeframe]domain.Analysis{
		domain.TFWeekly: analysisAt(domain.TFWeekly, domain.TrendBullish, 100, nil, nil, ""),
		domain.TFDaily:  analysisAt(domain.TFDaily, domain.TrendBearish, 100, nil, nil, ""),
	}
	agg := New(nil)
	res := agg.FromLive("INFY", domain.MTFSwing, analyses)
	assert.Equal(t, domain.AlignmentPartial, res.Alignment)
}

func TestIsUnstable_RequiresFullAlignmentAndExtremeMomentum(t *testing.T) {
	analyses := map[domain.Timeframe]domain.Analysis{
		domain.TFMonthly: analysisAt(domain.TFMonthly, domain.TrendBullish, 101, nil, []float64{102}, ""),
		domain.TFWeekly:  analysisAt(domain.TFWeekly, domain.TrendBullish, 101, nil, []float64{102}, ""),
		domain.TFDaily:   analysisAt(domain.TFDaily, domain.TrendBullish, 101, nil, nil, "overbought"),
	}
	agg := New(nil)
	res := agg.FromLive("INFY", domain.MTFSwing, analyses)
	assert.True(t, res.IsUnstable)
	assert.Equal(t, domain.AlignmentUnstable, res.Alignment)
}

func TestIsUnstable_FalseWhenMomentumNotExtreme(t *testing.T) {
	analyses := map[domain.Timeframe]domain.Analysis{
		domain.TFMonthly: analysisAt(domain.TFMonthly, domain.TrendBullish, 101, nil, []float64{102}, ""),
		domain.TFWeekly:  analysisAt(domain.TFWeekly, domain.TrendBullish, 101, nil, []float64{102}, ""),
		domain.TFDaily:   analysisAt(domain.TFDaily, domain.TrendBullish, 101, nil, nil, "neutral"),
	}
	agg := New(nil)
	res := agg.FromLive("INFY", domain.MTFSwing, analyses)
	assert.False(t, res.IsUnstable)
	assert.Equal(t, domain.AlignmentFull, res.Alignment)
}

func TestHTFLocation(t *testing.T) {
	cases := []struct {
		name     string
		price    float64
		support  []float64
		resist   []float64
		expected domain.HTFLocation
	}{
		{"near resistance", 99, []float64{80}, []float64{100}, domain.HTFResistance},
		{"near support", 81, []float64{80}, []float64{120}, domain.HTFSupport},
		{"mid range", 100, []float64{80}, []float64{150}, domain.HTFMid},
		{"zero price unknown", 0, []float64{80}, []float64{150}, domain.HTFUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := analysisAt(domain.TFMonthly, domain.TrendBullish, tc.price, tc.support, tc.resist, "")
			assert.Equal(t, tc.expected, htfLocation(a))
		})
	}
}

type stubStore struct {
	latest map[domain.Timeframe]*domain.Analysis
}

func (s stubStore) Store(ctx context.Context, a domain.Analysis) (int64, error) { return 0, nil }

func (s stubStore) Latest(ctx context.Context, symbol string, tf domain.Timeframe, maxAge time.Duration) (*domain.Analysis, error) {
	return s.latest[tf], nil
}

func (s stubStore) ListBySymbol(ctx context.Context, symbol string, limit int) ([]domain.Analysis, error) {
	return nil, nil
}

func (s stubStore) ListRecent(ctx context.Context, since time.Duration, limit int) ([]domain.Analysis, error) {
	return nil, nil
}

func (s stubStore) TrendChange(ctx context.Context, symbol string, currentTrend domain.Trend, lookback int) (analysisstore.TrendChange, error) {
	return analysisstore.TrendChange{}, nil
}

func (s stubStore) GetStats(ctx context.Context) (analysisstore.Stats, error) {
	return analysisstore.Stats{}, nil
}

func TestFromStored_ReportsMissingSlots(t *testing.T) {
	store := stubStore{latest: map[domain.Timeframe]*domain.Analysis{
		domain.TFMonthly: {Trend: domain.TrendBullish, Timeframe: domain.TFMonthly},
	}}
	agg := New(store)
	res, err := agg.FromStored(context.Background(), "INFY", domain.MTFSwing)
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.Timeframe{domain.TFWeekly, domain.TFDaily}, res.Missing)
	assert.Empty(t, res.Alignment)
}

func TestFromStored_ClassifiesWhenAllSlotsPresent(t *testing.T) {
	store := stubStore{latest: map[domain.Timeframe]*domain.Analysis{
		domain.TFMonthly: {Trend: domain.TrendBullish, Timeframe: domain.TFMonthly, Price: 100},
		domain.TFWeekly:  {Trend: domain.TrendBullish, Timeframe: domain.TFWeekly, Price: 100},
		domain.TFDaily:   {Trend: domain.TrendBullish, Timeframe: domain.TFDaily, Price: 100},
	}}
	agg := New(store)
	res, err := agg.FromStored(context.Background(), "INFY", domain.MTFSwing)
	require.NoError(t, err)
	assert.Empty(t, res.Missing)
	assert.Equal(t, domain.AlignmentFull, res.Alignment)
}
