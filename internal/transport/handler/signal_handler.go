// Package handler отдает ряды сигналов по HTTP для графических виджетов.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/skalibog/bfsignal/internal/analysis/technical"
	"github.com/skalibog/bfsignal/internal/config"
	"github.com/skalibog/bfsignal/internal/storage"
	"github.com/skalibog/bfsignal/pkg/logger"
	"github.com/skalibog/bfsignal/pkg/models"
)

// MaxLimit наибольшее число свечей, которое можно запросить за раз
const MaxLimit = 5000

const defaultHistoryLimit = 50

// SignalService источник сигналов для хендлера
type SignalService interface {
	Symbols() []string
	StoredSymbols(ctx context.Context) ([]string, error)
	Signals(ctx context.Context, symbol, interval string, limit int) ([]models.SignalRecord, error)
	GetSignalHistory(ctx context.Context, symbol string, limit int) ([]*models.SignalResult, error)
}

// ErrorResponse тело ответа с ошибкой
type ErrorResponse struct {
	Error string `json:"error"`
}

// SignalHandler обрабатывает запросы сигналов
type SignalHandler struct {
	svc             SignalService
	symbols         map[string]struct{}
	defaultInterval string
	defaultLimit    int
}

// NewSignalHandler создает хендлер. Интервал и глубина истории по умолчанию берутся из trading.
// Запросы принимаются только по символам, которые отслеживает svc.
func NewSignalHandler(svc SignalService, trading config.TradingConfig) *SignalHandler {
	symbols := make(map[string]struct{})
	for _, s := range svc.Symbols() {
		symbols[s] = struct{}{}
	}
	return &SignalHandler{
		svc:             svc,
		symbols:         symbols,
		defaultInterval: trading.Interval,
		defaultLimit:    trading.History,
	}
}

// GetSymbols возвращает отслеживаемые символы и символы с накопленными свечами.
//
// GET /api/v1/symbols
func (h *SignalHandler) GetSymbols(c *gin.Context) {
	collected, err := h.svc.StoredSymbols(c.Request.Context())
	if err != nil {
		writeError(c, "", err)
		return
	}
	if collected == nil {
		collected = []string{}
	}

	c.JSON(http.StatusOK, SymbolsResponse{
		Configured: h.svc.Symbols(),
		Collected:  collected,
	})
}

// GetSignals возвращает ряд сигналов по последним свечам символа.
//
// GET /api/v1/signals/:symbol?interval=1m&limit=300
func (h *SignalHandler) GetSignals(c *gin.Context) {
	symbol, ok := h.bindSymbol(c)
	if !ok {
		return
	}

	var query signalsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		badLimit(c)
		return
	}

	interval := query.Interval
	if interval == "" {
		interval = h.defaultInterval
	}
	if _, known := config.IntervalDuration(interval); !known {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "неизвестный интервал свечей: " + interval})
		return
	}

	limit := h.defaultLimit
	if query.Limit != nil {
		limit = *query.Limit
	}

	records, err := h.svc.Signals(c.Request.Context(), symbol, interval, limit)
	if err != nil {
		writeError(c, symbol, err)
		return
	}

	c.JSON(http.StatusOK, records)
}

// GetHistory возвращает сохраненные сигналы символа от новых к старым.
//
// GET /api/v1/signals/:symbol/history?limit=50
func (h *SignalHandler) GetHistory(c *gin.Context) {
	symbol, ok := h.bindSymbol(c)
	if !ok {
		return
	}

	var query historyQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		badLimit(c)
		return
	}

	limit := defaultHistoryLimit
	if query.Limit != nil {
		limit = *query.Limit
	}

	history, err := h.svc.GetSignalHistory(c.Request.Context(), symbol, limit)
	if err != nil {
		writeError(c, symbol, err)
		return
	}

	c.JSON(http.StatusOK, history)
}

// bindSymbol читает символ из пути; неизвестный или некорректный символ получает 400
func (h *SignalHandler) bindSymbol(c *gin.Context) (string, bool) {
	var uri symbolURI
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "символ должен состоять из латинских букв и цифр"})
		return "", false
	}
	if _, ok := h.symbols[uri.Symbol]; !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "символ не отслеживается: " + uri.Symbol})
		return "", false
	}
	return uri.Symbol, true
}

func badLimit(c *gin.Context) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit должен быть целым числом от 1 до " + strconv.Itoa(MaxLimit)})
}

func writeError(c *gin.Context, symbol string, err error) {
	var cfgErr *config.InvalidConfigError
	var candleErr *technical.MalformedCandleError

	switch {
	case errors.As(err, &cfgErr), errors.As(err, &candleErr):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	default:
		logger.Error("Ошибка обработки запроса сигналов", zap.String("symbol", symbol), zap.Error(err))
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: err.Error()})
	}
}
