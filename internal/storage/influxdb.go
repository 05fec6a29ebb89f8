// internal/storage/influxdb.go
package storage

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/skalibog/bfsignal/internal/config"
	"github.com/skalibog/bfsignal/pkg/models"
)

// InfluxDBStorage реализует интерфейс Storage с использованием InfluxDB
type InfluxDBStorage struct {
	client   influxdb2.Client
	queryAPI api.QueryAPI
	writeAPI api.WriteAPIBlocking
	org      string
	bucket   string
	now      func() time.Time
}

// NewInfluxDBStorage создает новое хранилище InfluxDB
func NewInfluxDBStorage(ctx context.Context, cfg config.StorageConfig) (*InfluxDBStorage, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	// Проверка соединения
	health, err := client.Health(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ошибка соединения с InfluxDB: %w", err)
	}
	if health == nil || health.Status != "pass" {
		client.Close()
		return nil, fmt.Errorf("InfluxDB не в состоянии 'pass': %+v", health)
	}

	return &InfluxDBStorage{
		client:   client,
		queryAPI: client.QueryAPI(cfg.Organization),
		writeAPI: client.WriteAPIBlocking(cfg.Organization, cfg.Bucket),
		org:      cfg.Organization,
		bucket:   cfg.Bucket,
		now:      time.Now,
	}, nil
}

// Close закрывает соединение с базой данных
func (s *InfluxDBStorage) Close() {
	s.client.Close()
}

// candlePoint создает точку свечи
func candlePoint(candle *models.Candle) *write.Point {
	return influxdb2.NewPoint(
		"candles",
		map[string]string{
			"symbol":   candle.Symbol,
			"interval": candle.Interval,
		},
		map[string]interface{}{
			"open":   candle.Open,
			"high":   candle.High,
			"low":    candle.Low,
			"close":  candle.Close,
			"volume": candle.Volume,
		},
		candle.OpenTime,
	)
}

// signalPoint создает точку сигнала
func signalPoint(signal *models.SignalResult) *write.Point {
	r := signal.Record
	fields := map[string]interface{}{
		"run_id":          signal.RunID,
		"recommendation":  signal.Recommendation,
		"confidence":      int64(signal.Confidence),
		"price":           signal.CurrentPrice,
		"bar_time":        r.Timestamp.UnixMilli(),
		"buy":             r.BuySignal,
		"sell":            r.SellSignal,
		"ema_filter":      r.EMAFilter,
		"chop":            r.Chop,
		"strong_trend":    r.StrongTrend,
		"bullish_trend":   r.BullishTrend,
		"bearish_trend":   r.BearishTrend,
		"high_volatility": r.HighVolatility,
		"momentum_buy":    r.MomentumBuy,
		"momentum_sell":   r.MomentumSell,
	}
	if r.ADX != nil {
		fields["adx"] = *r.ADX
	}
	if r.ATR != nil {
		fields["atr"] = *r.ATR
	}

	return influxdb2.NewPoint(
		"signals",
		map[string]string{
			"symbol":   signal.Symbol,
			"interval": signal.Interval,
		},
		fields,
		signal.Timestamp,
	)
}

// SaveCandles сохраняет множество свечей.
// Повторная запись свечи с тем же OpenTime перезаписывает точку.
func (s *InfluxDBStorage) SaveCandles(ctx context.Context, candles []*models.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	points := make([]*write.Point, 0, len(candles))
	for _, candle := range candles {
		points = append(points, candlePoint(candle))
	}

	if err := s.writeAPI.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("ошибка записи свечей: %w", err)
	}
	return nil
}

// Flux-запросы. Значения подставляет сервер из params, текст запроса не собирается из строк.
const (
	candlesQuery = `
		from(bucket: params.bucket)
			|> range(start: time(v: params.start))
			|> filter(fn: (r) => r._measurement == "candles")
			|> filter(fn: (r) => r.symbol == params.symbol)
			|> filter(fn: (r) => r.interval == params.interval)
			|> pivot(rowKey:["_time"], columnKey: ["_field"], valueColumn: "_value")
			|> group()
			|> sort(columns: ["_time"], desc: true)
			|> limit(n: params.limit)
	`

	signalHistoryQuery = `
		from(bucket: params.bucket)
			|> range(start: time(v: params.start))
			|> filter(fn: (r) => r._measurement == "signals")
			|> filter(fn: (r) => r.symbol == params.symbol)
			|> pivot(rowKey:["_time"], columnKey: ["_field"], valueColumn: "_value")
			|> group()
			|> sort(columns: ["_time"], desc: true)
			|> limit(n: params.limit)
	`

	symbolsQuery = `
		import "influxdata/influxdb/schema"
		schema.tagValues(bucket: params.bucket, tag: "symbol", predicate: (r) => r._measurement == "candles", start: -1d)
	`
)

const signalHistoryLookback = 30 * 24 * time.Hour

// queryParams параметры Flux-запросов
type queryParams struct {
	Bucket   string    `json:"bucket"`
	Start    time.Time `json:"start"`
	Symbol   string    `json:"symbol,omitempty"`
	Interval string    `json:"interval,omitempty"`
	Limit    int       `json:"limit"`
}

// GetCandles получает последние свечи по возрастанию времени
func (s *InfluxDBStorage) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]*models.Candle, error) {
	params := queryParams{
		Bucket:   s.bucket,
		Start:    s.now().Add(-lookbackRange(interval, limit)),
		Symbol:   symbol,
		Interval: interval,
		Limit:    limit,
	}

	result, err := s.queryAPI.QueryWithParams(ctx, candlesQuery, params)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса свечей: %w", err)
	}
	defer result.Close()

	// Обрабатываем результаты
	var candles []*models.Candle
	for result.Next() {
		record := result.Record()

		timestamp := record.Time()
		open, _ := record.ValueByKey("open").(float64)
		high, _ := record.ValueByKey("high").(float64)
		low, _ := record.ValueByKey("low").(float64)
		close, _ := record.ValueByKey("close").(float64)
		volume, _ := record.ValueByKey("volume").(float64)

		candles = append(candles, &models.Candle{
			Symbol:    symbol,
			Interval:  interval,
			OpenTime:  timestamp,
			Open:      open,
			High:      high,
			Low:       low,
			Close:     close,
			Volume:    volume,
			CloseTime: timestamp.Add(getIntervalDuration(interval)),
		})
	}

	// Проверяем на ошибки при обработке результатов
	if result.Err() != nil {
		return nil, fmt.Errorf("ошибка при обработке результатов: %w", result.Err())
	}

	// Запрос отдает свечи от новых к старым, движку нужен обратный порядок
	reverseCandles(candles)
	return candles, nil
}

// SaveSignal сохраняет сигнал
func (s *InfluxDBStorage) SaveSignal(ctx context.Context, signal *models.SignalResult) error {
	if err := s.writeAPI.WritePoint(ctx, signalPoint(signal)); err != nil {
		return fmt.Errorf("ошибка записи сигнала: %w", err)
	}
	return nil
}

// GetSignalHistory получает историю сигналов
func (s *InfluxDBStorage) GetSignalHistory(ctx context.Context, symbol string, limit int) ([]*models.SignalResult, error) {
	params := queryParams{
		Bucket: s.bucket,
		Start:  s.now().Add(-signalHistoryLookback),
		Symbol: symbol,
		Limit:  limit,
	}

	result, err := s.queryAPI.QueryWithParams(ctx, signalHistoryQuery, params)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса истории сигналов: %w", err)
	}
	defer result.Close()

	var signals []*models.SignalResult
	for result.Next() {
		values := result.Record().Values()
		signals = append(signals, signalFromValues(symbol, result.Record().Time(), values))
	}

	if result.Err() != nil {
		return nil, fmt.Errorf("ошибка при обработке результатов: %w", result.Err())
	}

	if len(signals) == 0 {
		return nil, ErrNotFound
	}
	return signals, nil
}

// signalFromValues восстанавливает сигнал из строки pivot-таблицы
func signalFromValues(symbol string, timestamp time.Time, values map[string]interface{}) *models.SignalResult {
	str := func(key string) string { v, _ := values[key].(string); return v }
	num := func(key string) float64 { v, _ := values[key].(float64); return v }
	flag := func(key string) bool { v, _ := values[key].(bool); return v }
	opt := func(key string) *float64 {
		if v, ok := values[key].(float64); ok {
			return &v
		}
		return nil
	}

	confidence, _ := values["confidence"].(int64)
	barTime, _ := values["bar_time"].(int64)

	return &models.SignalResult{
		Symbol:         symbol,
		Interval:       str("interval"),
		RunID:          str("run_id"),
		Timestamp:      timestamp,
		Recommendation: str("recommendation"),
		Confidence:     int(confidence),
		CurrentPrice:   num("price"),
		Record: models.SignalRecord{
			Timestamp:      time.UnixMilli(barTime).UTC(),
			Close:          num("price"),
			BuySignal:      flag("buy"),
			SellSignal:     flag("sell"),
			Confidence:     int(confidence),
			EMAFilter:      num("ema_filter"),
			ADX:            opt("adx"),
			ATR:            opt("atr"),
			Chop:           flag("chop"),
			StrongTrend:    flag("strong_trend"),
			BullishTrend:   flag("bullish_trend"),
			BearishTrend:   flag("bearish_trend"),
			HighVolatility: flag("high_volatility"),
			MomentumBuy:    flag("momentum_buy"),
			MomentumSell:   flag("momentum_sell"),
		},
	}
}

// GetSymbols возвращает список символов, по которым есть свечи
func (s *InfluxDBStorage) GetSymbols(ctx context.Context) ([]string, error) {
	result, err := s.queryAPI.QueryWithParams(ctx, symbolsQuery, map[string]interface{}{"bucket": s.bucket})
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса символов: %w", err)
	}
	defer result.Close()

	var symbols []string
	for result.Next() {
		if symbol, ok := result.Record().Value().(string); ok {
			symbols = append(symbols, symbol)
		}
	}

	if result.Err() != nil {
		return nil, fmt.Errorf("ошибка при обработке результатов: %w", result.Err())
	}

	return symbols, nil
}
