package config

import (
	"fmt"
	"math"
)

// SignalConfig параметры движка сигналов. Передается в каждый вызов целиком.
type SignalConfig struct {
	// Sensitivity зарезервирован, в логике решений не участвует
	Sensitivity      float64 `yaml:"sensitivity" json:"sensitivity"`
	TrendLength      int     `yaml:"trend_length" json:"trendLength"`
	EMAFilterLength  int     `yaml:"ema_filter_length" json:"emaFilterLength"`
	ATRLength        int     `yaml:"atr_length" json:"atrLength"`
	VolatilityFactor float64 `yaml:"volatility_factor" json:"volatilityFactor"`
	MACDFast         int     `yaml:"macd_fast" json:"macdFast"`
	MACDSlow         int     `yaml:"macd_slow" json:"macdSlow"`
	MACDSignal       int     `yaml:"macd_signal" json:"macdSignal"`
	ADXLength        int     `yaml:"adx_length" json:"adxLength"`
	ADXThreshold     float64 `yaml:"adx_threshold" json:"adxThreshold"`
}

// DefaultSignalConfig возвращает параметры по умолчанию
func DefaultSignalConfig() SignalConfig {
	return SignalConfig{
		Sensitivity:      1.0,
		TrendLength:      21,
		EMAFilterLength:  34,
		ATRLength:        14,
		VolatilityFactor: 1.5,
		MACDFast:         12,
		MACDSlow:         26,
		MACDSignal:       9,
		ADXLength:        14,
		ADXThreshold:     20,
	}
}

// InvalidConfigError ошибка неверного параметра движка
type InvalidConfigError struct {
	Field string
	Value float64
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("неверный параметр %s: %v (должен быть положительным)", e.Field, e.Value)
}

// Validate проверяет, что все параметры положительны.
// Значения не подменяются значениями по умолчанию.
func (c SignalConfig) Validate() error {
	periods := []struct {
		field string
		value int
	}{
		{"trend_length", c.TrendLength},
		{"ema_filter_length", c.EMAFilterLength},
		{"atr_length", c.ATRLength},
		{"macd_fast", c.MACDFast},
		{"macd_slow", c.MACDSlow},
		{"macd_signal", c.MACDSignal},
		{"adx_length", c.ADXLength},
	}
	for _, p := range periods {
		if p.value <= 0 {
			return &InvalidConfigError{Field: p.field, Value: float64(p.value)}
		}
	}

	reals := []struct {
		field string
		value float64
	}{
		{"sensitivity", c.Sensitivity},
		{"volatility_factor", c.VolatilityFactor},
		{"adx_threshold", c.ADXThreshold},
	}
	for _, r := range reals {
		if !(r.value > 0) || math.IsInf(r.value, 0) {
			return &InvalidConfigError{Field: r.field, Value: r.value}
		}
	}
	return nil
}

// WarmupBars количество баров, после которых все окна индикаторов прогреты
func (c SignalConfig) WarmupBars() int {
	return max(c.EMAFilterLength, c.ATRLength, c.MACDSlow, c.ADXLength) - 1
}
