package exchange

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2/futures"

	"github.com/skalibog/bfsignal/internal/config"
	"github.com/skalibog/bfsignal/pkg/models"
)

// BinanceClient клиент для взаимодействия с фьючерсами Binance
type BinanceClient struct {
	futures *futures.Client
}

// NewBinanceClient создает новый клиент Binance
func NewBinanceClient(cfg config.BinanceConfig) (*BinanceClient, error) {
	// Переключатель тестовой сети глобальный для пакета futures и читается в NewClient
	futures.UseTestnet = cfg.Testnet

	return &BinanceClient{
		futures: futures.NewClient(cfg.APIKey, cfg.APISecret),
	}, nil
}

// GetKlines получает исторические свечи по возрастанию времени
func (c *BinanceClient) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]*models.Candle, error) {
	klines, err := c.futures.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения свечей: %w", err)
	}

	candles := make([]*models.Candle, 0, len(klines))
	for _, k := range klines {
		candle, err := klineToCandle(symbol, interval, k)
		if err != nil {
			return nil, err
		}
		candles = append(candles, candle)
	}

	return candles, nil
}

// klineToCandle переводит строковые цены Binance в свечу
func klineToCandle(symbol, interval string, k *futures.Kline) (*models.Candle, error) {
	fields := [5]float64{}
	for i, raw := range [5]string{k.Open, k.High, k.Low, k.Close, k.Volume} {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("ошибка парсинга свечи %s %d: %w", symbol, k.OpenTime, err)
		}
		fields[i] = v
	}

	return &models.Candle{
		Symbol:    symbol,
		Interval:  interval,
		OpenTime:  time.UnixMilli(k.OpenTime).UTC(),
		Open:      fields[0],
		High:      fields[1],
		Low:       fields[2],
		Close:     fields[3],
		Volume:    fields[4],
		CloseTime: time.UnixMilli(k.CloseTime).UTC(),
	}, nil
}
