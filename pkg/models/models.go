package models

import (
	"time"
)

// Candle представляет свечу
type Candle struct {
	Symbol    string    `json:"symbol"`
	Interval  string    `json:"interval"`
	OpenTime  time.Time `json:"openTime"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume,omitempty"` // 0 - объем не передан
	CloseTime time.Time `json:"closeTime"`
}

// SignalRecord результат движка сигналов для одного бара
type SignalRecord struct {
	Timestamp  time.Time `json:"timestamp"`
	Close      float64   `json:"close"`
	BuySignal  bool      `json:"buySignal"`
	SellSignal bool      `json:"sellSignal"`
	Confidence int       `json:"confidence"`

	// Диагностика
	EMAFilter      float64  `json:"emaFilter"`
	ADX            *float64 `json:"adx"`
	ATR            *float64 `json:"atr"`
	Chop           bool     `json:"chop"`
	StrongTrend    bool     `json:"strongTrend"`
	BullishTrend   bool     `json:"bullishTrend"`
	BearishTrend   bool     `json:"bearishTrend"`
	HighVolatility bool     `json:"highVolatility"`
	MomentumBuy    bool     `json:"momentumBuy"`
	MomentumSell   bool     `json:"momentumSell"`
}

// Рекомендации по последнему бару
const (
	RecommendationBuy     = "ПОКУПКА"
	RecommendationSell    = "ПРОДАЖА"
	RecommendationNeutral = "НЕЙТРАЛЬНО"
)

// SignalResult представляет итоговый сигнал по символу
type SignalResult struct {
	Symbol         string       `json:"symbol"`
	Interval       string       `json:"interval"`
	RunID          string       `json:"runId"`
	Timestamp      time.Time    `json:"timestamp"`
	Recommendation string       `json:"recommendation"`
	Confidence     int          `json:"confidence"`
	CurrentPrice   float64      `json:"currentPrice"`
	Record         SignalRecord `json:"record"`
}
