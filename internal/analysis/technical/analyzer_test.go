package technical

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/skalibog/bfsignal/internal/config"
	"github.com/skalibog/bfsignal/internal/storage"
	"github.com/skalibog/bfsignal/pkg/logger"
	"github.com/skalibog/bfsignal/pkg/models"
)

func TestMain(m *testing.M) {
	logger.Replace(zap.NewNop())
	os.Exit(m.Run())
}

type failingStorage struct {
	storage.Storage
}

func (failingStorage) GetCandles(context.Context, string, string, int) ([]*models.Candle, error) {
	return nil, errors.New("influx недоступен")
}

func TestAnalyzer_AnalyzeUsesLatestCandles(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	candles := randomWalk(250, 9)
	require.NoError(t, store.SaveCandles(ctx, candles))

	a := NewAnalyzer(config.DefaultSignalConfig())
	records, err := a.Analyze(ctx, store, "BTCUSDT", "1m", 100)
	require.NoError(t, err)

	want, err := ComputeSignals(candles[150:], a.Config())
	require.NoError(t, err)
	assert.Equal(t, want, records)
	assert.Equal(t, candles[249].OpenTime, records[len(records)-1].Timestamp)
}

func TestAnalyzer_AnalyzeInsufficientData(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	require.NoError(t, store.SaveCandles(ctx, randomWalk(10, 1)))

	records, err := NewAnalyzer(config.DefaultSignalConfig()).Analyze(ctx, store, "BTCUSDT", "1m", 300)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestAnalyzer_AnalyzeStorageError(t *testing.T) {
	_, err := NewAnalyzer(config.DefaultSignalConfig()).Analyze(context.Background(), failingStorage{}, "BTCUSDT", "1m", 300)
	assert.Error(t, err)
}
