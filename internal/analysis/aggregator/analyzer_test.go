package aggregator

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/skalibog/bfsignal/internal/analysis/technical"
	"github.com/skalibog/bfsignal/internal/config"
	"github.com/skalibog/bfsignal/internal/storage"
	"github.com/skalibog/bfsignal/pkg/logger"
	"github.com/skalibog/bfsignal/pkg/models"
)

func TestMain(m *testing.M) {
	logger.Replace(zap.NewNop())
	os.Exit(m.Run())
}

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func walk(symbol string, n int, seed int64) []*models.Candle {
	rng := rand.New(rand.NewSource(seed))
	t0 := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	price := 200.0
	out := make([]*models.Candle, n)
	for i := range out {
		open := price
		closePrice := open + rng.NormFloat64()
		out[i] = &models.Candle{
			Symbol:   symbol,
			Interval: "1m",
			OpenTime: t0.Add(time.Duration(i) * time.Minute),
			Open:     open,
			High:     math.Max(open, closePrice) + rng.Float64()*0.3,
			Low:      math.Min(open, closePrice) - rng.Float64()*0.3,
			Close:    closePrice,
		}
		price = closePrice
	}
	return out
}

type failingSave struct {
	storage.Storage
}

func (failingSave) SaveSignal(context.Context, *models.SignalResult) error {
	return errors.New("запись недоступна")
}

func newTestAnalyzer(store storage.Storage, symbols ...string) *Analyzer {
	a := NewAnalyzer(
		config.AnalysisConfig{IntervalSeconds: 60, Signal: config.DefaultSignalConfig()},
		config.TradingConfig{Symbols: symbols, Interval: "1m", History: 200},
		store,
	)
	a.now = func() time.Time { return fixedNow }
	return a
}

func TestGenerateSignals_SummarisesLastRecord(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	btc := walk("BTCUSDT", 300, 1)
	require.NoError(t, store.SaveCandles(ctx, btc))
	require.NoError(t, store.SaveCandles(ctx, walk("ETHUSDT", 300, 2)))

	a := newTestAnalyzer(store, "BTCUSDT", "ETHUSDT")
	results, err := a.GenerateSignals(ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)

	records, err := technical.ComputeSignals(btc[100:], config.DefaultSignalConfig())
	require.NoError(t, err)
	last := records[len(records)-1]

	got := results["BTCUSDT"]
	assert.Equal(t, last, got.Record)
	assert.Equal(t, last.Close, got.CurrentPrice)
	assert.Equal(t, last.Confidence, got.Confidence)
	assert.Equal(t, Recommendation(last), got.Recommendation)
	assert.Equal(t, "1m", got.Interval)
	assert.Equal(t, fixedNow, got.Timestamp)
	assert.NotEmpty(t, got.RunID)
	assert.Equal(t, got.RunID, results["ETHUSDT"].RunID, "один прогон - один run id")

	history, err := a.GetSignalHistory(ctx, "BTCUSDT", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, got.RunID, history[0].RunID)
}

func TestGenerateSignals_SkipsSymbolsWithoutHistory(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	require.NoError(t, store.SaveCandles(ctx, walk("BTCUSDT", 300, 3)))
	require.NoError(t, store.SaveCandles(ctx, walk("NEWUSDT", 5, 4)))

	results, err := newTestAnalyzer(store, "BTCUSDT", "NEWUSDT", "NONEUSDT").GenerateSignals(ctx)
	require.NoError(t, err)

	assert.Contains(t, results, "BTCUSDT")
	assert.NotContains(t, results, "NEWUSDT")
	assert.NotContains(t, results, "NONEUSDT")

	_, err = store.GetSignalHistory(ctx, "NEWUSDT", 1)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGenerateSignals_SaveFailureStillReturnsSignal(t *testing.T) {
	ctx := context.Background()
	inner := storage.NewMemoryStorage()
	require.NoError(t, inner.SaveCandles(ctx, walk("BTCUSDT", 300, 5)))

	results, err := newTestAnalyzer(failingSave{inner}, "BTCUSDT").GenerateSignals(ctx)
	require.NoError(t, err)
	assert.Contains(t, results, "BTCUSDT")
}

func TestGenerateSignals_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestAnalyzer(storage.NewMemoryStorage(), "BTCUSDT").GenerateSignals(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzer_Symbols(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	require.NoError(t, store.SaveCandles(ctx, walk("ETHUSDT", 3, 1)))

	a := newTestAnalyzer(store, "BTCUSDT", "ETHUSDT")
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, a.Symbols())

	stored, err := a.StoredSymbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ETHUSDT"}, stored)
}

func TestRecommendation(t *testing.T) {
	tests := []struct {
		name   string
		record models.SignalRecord
		want   string
	}{
		{name: "buy", record: models.SignalRecord{BuySignal: true}, want: models.RecommendationBuy},
		{name: "sell", record: models.SignalRecord{SellSignal: true}, want: models.RecommendationSell},
		{name: "neutral", record: models.SignalRecord{Confidence: 3}, want: models.RecommendationNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Recommendation(tt.record))
		})
	}
}
