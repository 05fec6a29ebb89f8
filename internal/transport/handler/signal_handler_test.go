package handler_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/skalibog/bfsignal/internal/analysis/technical"
	"github.com/skalibog/bfsignal/internal/config"
	"github.com/skalibog/bfsignal/internal/storage"
	"github.com/skalibog/bfsignal/internal/transport/handler"
	"github.com/skalibog/bfsignal/pkg/logger"
	"github.com/skalibog/bfsignal/pkg/models"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logger.Replace(zap.NewNop())
	os.Exit(m.Run())
}

// mockSignalService мок источника сигналов
type mockSignalService struct {
	StoredFunc  func(ctx context.Context) ([]string, error)
	SignalsFunc func(ctx context.Context, symbol, interval string, limit int) ([]models.SignalRecord, error)
	HistoryFunc func(ctx context.Context, symbol string, limit int) ([]*models.SignalResult, error)
}

func (m *mockSignalService) Symbols() []string {
	return trading.Symbols
}

func (m *mockSignalService) StoredSymbols(ctx context.Context) ([]string, error) {
	return m.StoredFunc(ctx)
}

func (m *mockSignalService) Signals(ctx context.Context, symbol, interval string, limit int) ([]models.SignalRecord, error) {
	return m.SignalsFunc(ctx, symbol, interval, limit)
}

func (m *mockSignalService) GetSignalHistory(ctx context.Context, symbol string, limit int) ([]*models.SignalResult, error) {
	return m.HistoryFunc(ctx, symbol, limit)
}

var trading = config.TradingConfig{Symbols: []string{"BTCUSDT", "ETHUSDT", "XRPUSDT"}, Interval: "1m", History: 300}

func serve(svc handler.SignalService, target string) *httptest.ResponseRecorder {
	router := handler.NewRouter(handler.NewSignalHandler(svc, trading))
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, target, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := serve(&mockSignalService{}, "/health")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestSignalHandler_GetSignals(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 0, 0, time.UTC)
	adx := 25.0

	tests := []struct {
		name           string
		url            string
		signalsFn      func(ctx context.Context, symbol, interval string, limit int) ([]models.SignalRecord, error)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "success: explicit parameters",
			url:  "/api/v1/signals/ETHUSDT?interval=5m&limit=100",
			signalsFn: func(ctx context.Context, symbol, interval string, limit int) ([]models.SignalRecord, error) {
				assert.Equal(t, "ETHUSDT", symbol)
				assert.Equal(t, "5m", interval)
				assert.Equal(t, 100, limit)
				return []models.SignalRecord{{
					Timestamp: ts, Close: 10, BuySignal: true, Confidence: 4, EMAFilter: 9, ADX: &adx,
					StrongTrend: true, BullishTrend: true, HighVolatility: true, MomentumBuy: true,
				}}, nil
			},
			expectedStatus: http.StatusOK,
			expectedBody: `[{"timestamp":"2024-01-02T03:04:00Z","close":10,"buySignal":true,"sellSignal":false,
				"confidence":4,"emaFilter":9,"adx":25,"atr":null,"chop":false,"strongTrend":true,"bullishTrend":true,
				"bearishTrend":false,"highVolatility":true,"momentumBuy":true,"momentumSell":false}]`,
		},
		{
			name: "success: defaults from trading config",
			url:  "/api/v1/signals/BTCUSDT",
			signalsFn: func(ctx context.Context, symbol, interval string, limit int) ([]models.SignalRecord, error) {
				assert.Equal(t, "1m", interval)
				assert.Equal(t, 300, limit)
				return []models.SignalRecord{}, nil
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `[]`,
		},
		{
			name:           "error: limit is zero",
			url:            "/api/v1/signals/BTCUSDT?limit=0",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "error: untracked symbol",
			url:            "/api/v1/signals/DOGEUSDT",
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"символ не отслеживается: DOGEUSDT"}`,
		},
		{
			name:           "error: flux fragment in symbol",
			url:            "/api/v1/signals/" + url.PathEscape(`BTCUSDT") |> yield(name: "x") |> drop(columns: ["`),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "error: unknown interval",
			url:            "/api/v1/signals/BTCUSDT?interval=7m",
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"неизвестный интервал свечей: 7m"}`,
		},
		{
			name:           "error: flux fragment in interval",
			url:            "/api/v1/signals/BTCUSDT?interval=" + url.QueryEscape(`1m" or r.symbol != "`),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "error: limit is not a number",
			url:            "/api/v1/signals/BTCUSDT?limit=abc",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "error: limit above maximum",
			url:            fmt.Sprintf("/api/v1/signals/BTCUSDT?limit=%d", handler.MaxLimit+1),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "error: invalid config",
			url:  "/api/v1/signals/BTCUSDT",
			signalsFn: func(ctx context.Context, symbol, interval string, limit int) ([]models.SignalRecord, error) {
				return nil, fmt.Errorf("ошибка расчета сигналов: %w", &config.InvalidConfigError{Field: "atr_length", Value: 0})
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "error: malformed candle",
			url:  "/api/v1/signals/BTCUSDT",
			signalsFn: func(ctx context.Context, symbol, interval string, limit int) ([]models.SignalRecord, error) {
				return nil, fmt.Errorf("ошибка расчета сигналов: %w", &technical.MalformedCandleError{Index: 3, Reason: "nan"})
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "error: storage failure",
			url:  "/api/v1/signals/BTCUSDT",
			signalsFn: func(ctx context.Context, symbol, interval string, limit int) ([]models.SignalRecord, error) {
				return nil, errors.New("influx недоступен")
			},
			expectedStatus: http.StatusBadGateway,
			expectedBody:   `{"error":"influx недоступен"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			svc := &mockSignalService{
				SignalsFunc: func(ctx context.Context, symbol, interval string, limit int) ([]models.SignalRecord, error) {
					called = true
					return tt.signalsFn(ctx, symbol, interval, limit)
				},
			}

			w := serve(svc, tt.url)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedBody != "" {
				assert.JSONEq(t, tt.expectedBody, w.Body.String())
			}
			assert.Equal(t, tt.signalsFn != nil, called)
		})
	}
}

func TestSignalHandler_GetHistory(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := &mockSignalService{
			HistoryFunc: func(ctx context.Context, symbol string, limit int) ([]*models.SignalResult, error) {
				assert.Equal(t, "BTCUSDT", symbol)
				assert.Equal(t, 50, limit)
				return []*models.SignalResult{{Symbol: "BTCUSDT", RunID: "r1", Recommendation: models.RecommendationNeutral}}, nil
			},
		}

		w := serve(svc, "/api/v1/signals/BTCUSDT/history")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"runId":"r1"`)
	})

	t.Run("not found", func(t *testing.T) {
		svc := &mockSignalService{
			HistoryFunc: func(ctx context.Context, symbol string, limit int) ([]*models.SignalResult, error) {
				return nil, storage.ErrNotFound
			},
		}

		w := serve(svc, "/api/v1/signals/XRPUSDT/history?limit=5")

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("untracked symbol", func(t *testing.T) {
		svc := &mockSignalService{
			HistoryFunc: func(ctx context.Context, symbol string, limit int) ([]*models.SignalResult, error) {
				t.Fatal("хранилище не должно вызываться")
				return nil, nil
			},
		}

		w := serve(svc, "/api/v1/signals/"+url.PathEscape(`x") or true or ("`)+"/history")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("limit above maximum", func(t *testing.T) {
		w := serve(&mockSignalService{}, fmt.Sprintf("/api/v1/signals/BTCUSDT/history?limit=%d", handler.MaxLimit+1))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSignalHandler_GetSymbols(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := &mockSignalService{
			StoredFunc: func(ctx context.Context) ([]string, error) {
				return []string{"BTCUSDT"}, nil
			},
		}

		w := serve(svc, "/api/v1/symbols")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"configured":["BTCUSDT","ETHUSDT","XRPUSDT"],"collected":["BTCUSDT"]}`, w.Body.String())
	})

	t.Run("nothing collected yet", func(t *testing.T) {
		svc := &mockSignalService{
			StoredFunc: func(ctx context.Context) ([]string, error) { return nil, nil },
		}

		w := serve(svc, "/api/v1/symbols")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"collected":[]`)
	})

	t.Run("storage failure", func(t *testing.T) {
		svc := &mockSignalService{
			StoredFunc: func(ctx context.Context) ([]string, error) { return nil, errors.New("influx недоступен") },
		}

		w := serve(svc, "/api/v1/symbols")

		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}
