package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/skalibog/bfsignal/pkg/models"
)

// MemoryStorage хранит свечи и сигналы в памяти процесса.
// Используется, когда InfluxDB не настроен, и в тестах.
type MemoryStorage struct {
	mu         sync.RWMutex
	candles    map[string][]*models.Candle
	signals    map[string][]*models.SignalResult
	maxCandles int
	maxSignals int
}

// MemoryOption настройка хранилища в памяти
type MemoryOption func(*MemoryStorage)

// WithMaxCandles ограничивает длину каждой серии свечей, старые свечи вытесняются
func WithMaxCandles(n int) MemoryOption {
	return func(s *MemoryStorage) { s.maxCandles = n }
}

// WithMaxSignals ограничивает историю сигналов по каждому символу
func WithMaxSignals(n int) MemoryOption {
	return func(s *MemoryStorage) { s.maxSignals = n }
}

// NewMemoryStorage создает пустое хранилище в памяти. Без опций размер не ограничен.
func NewMemoryStorage(opts ...MemoryOption) *MemoryStorage {
	s := &MemoryStorage{
		candles: make(map[string][]*models.Candle),
		signals: make(map[string][]*models.SignalResult),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func seriesKey(symbol, interval string) string {
	return symbol + "|" + interval
}

// SaveCandles сохраняет свечи. Свеча с уже известным OpenTime заменяет старую.
// Серия хранится отсортированной по OpenTime.
func (s *MemoryStorage) SaveCandles(_ context.Context, candles []*models.Candle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, candle := range candles {
		if candle == nil {
			continue
		}
		key := seriesKey(candle.Symbol, candle.Interval)
		c := *candle
		s.candles[key] = s.trimCandles(insertCandle(s.candles[key], &c))
	}
	return nil
}

// insertCandle вставляет свечу на место по OpenTime или заменяет свечу с тем же временем
func insertCandle(series []*models.Candle, c *models.Candle) []*models.Candle {
	n := len(series)
	// свежая свеча почти всегда последняя
	if n == 0 || series[n-1].OpenTime.Before(c.OpenTime) {
		return append(series, c)
	}

	i := sort.Search(n, func(i int) bool { return !series[i].OpenTime.Before(c.OpenTime) })
	if i < n && series[i].OpenTime.Equal(c.OpenTime) {
		series[i] = c
		return series
	}

	series = append(series, nil)
	copy(series[i+1:], series[i:])
	series[i] = c
	return series
}

func (s *MemoryStorage) trimCandles(series []*models.Candle) []*models.Candle {
	if s.maxCandles <= 0 || len(series) <= s.maxCandles {
		return series
	}
	// копируем хвост, чтобы не удерживать вытесненные свечи в старом массиве
	return append([]*models.Candle(nil), series[len(series)-s.maxCandles:]...)
}

// GetCandles возвращает последние limit свечей по возрастанию времени
func (s *MemoryStorage) GetCandles(_ context.Context, symbol, interval string, limit int) ([]*models.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series := s.candles[seriesKey(symbol, interval)]
	if limit > 0 && len(series) > limit {
		series = series[len(series)-limit:]
	}

	result := make([]*models.Candle, len(series))
	for i, c := range series {
		cp := *c
		result[i] = &cp
	}
	return result, nil
}

// SaveSignal сохраняет сигнал
func (s *MemoryStorage) SaveSignal(_ context.Context, signal *models.SignalResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sig := *signal
	history := append(s.signals[signal.Symbol], &sig)
	if s.maxSignals > 0 && len(history) > s.maxSignals {
		history = append([]*models.SignalResult(nil), history[len(history)-s.maxSignals:]...)
	}
	s.signals[signal.Symbol] = history
	return nil
}

// GetSignalHistory возвращает последние limit сигналов от новых к старым
func (s *MemoryStorage) GetSignalHistory(_ context.Context, symbol string, limit int) ([]*models.SignalResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.signals[symbol]
	if len(history) == 0 {
		return nil, ErrNotFound
	}

	n := len(history)
	if limit > 0 && n > limit {
		n = limit
	}

	result := make([]*models.SignalResult, 0, n)
	for i := len(history) - 1; i >= 0 && len(result) < n; i-- {
		sig := *history[i]
		result = append(result, &sig)
	}
	return result, nil
}

// GetSymbols возвращает отсортированный список символов со свечами
func (s *MemoryStorage) GetSymbols(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, series := range s.candles {
		for _, c := range series {
			seen[c.Symbol] = struct{}{}
			break
		}
	}

	symbols := make([]string, 0, len(seen))
	for symbol := range seen {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols, nil
}

// Close ничего не делает
func (s *MemoryStorage) Close() {}
