package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/skalibog/bfsignal/pkg/logger"
)

// NewRouter собирает gin-роутер с маршрутами сигналов
func NewRouter(h *SignalHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	{
		v1.GET("/symbols", h.GetSymbols)
		v1.GET("/signals/:symbol", h.GetSignals)
		v1.GET("/signals/:symbol/history", h.GetHistory)
	}

	return r
}

// requestLogger пишет запросы в общий zap-логгер вместо stdout gin
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Debug("HTTP запрос",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
