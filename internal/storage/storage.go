package storage

import (
	"context"
	"errors"
	"time"

	"github.com/skalibog/bfsignal/internal/config"
	"github.com/skalibog/bfsignal/pkg/models"
)

// ErrNotFound данные не найдены
var ErrNotFound = errors.New("данные не найдены")

// Storage интерфейс для работы с хранилищем данных
type Storage interface {
	// Методы для свечей
	SaveCandles(ctx context.Context, candles []*models.Candle) error
	// GetCandles возвращает последние limit свечей по возрастанию времени
	GetCandles(ctx context.Context, symbol, interval string, limit int) ([]*models.Candle, error)

	// Методы для сигналов
	SaveSignal(ctx context.Context, signal *models.SignalResult) error
	// GetSignalHistory возвращает сигналы от новых к старым
	GetSignalHistory(ctx context.Context, symbol string, limit int) ([]*models.SignalResult, error)

	// Вспомогательные методы
	GetSymbols(ctx context.Context) ([]string, error)
	Close()
}

// getIntervalDuration конвертирует строковый интервал в duration, неизвестный интервал считается часовым
func getIntervalDuration(interval string) time.Duration {
	if d, ok := config.IntervalDuration(interval); ok {
		return d
	}
	return time.Hour
}

// Границы окна Flux-запроса
const (
	minLookback = 24 * time.Hour
	maxLookback = 10 * 365 * 24 * time.Hour
)

// lookbackRange подбирает окно Flux-запроса так, чтобы в него поместились limit свечей
func lookbackRange(interval string, limit int) time.Duration {
	step := 2 * getIntervalDuration(interval)
	if limit <= 0 {
		return minLookback
	}
	if int64(limit) > int64(maxLookback/step) {
		return maxLookback
	}
	return max(step*time.Duration(limit), minLookback)
}

// reverseCandles разворачивает срез на месте
func reverseCandles(candles []*models.Candle) {
	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}
}
