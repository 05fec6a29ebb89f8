package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/skalibog/bfsignal/internal/analysis/aggregator"
	"github.com/skalibog/bfsignal/internal/cache"
	"github.com/skalibog/bfsignal/internal/config"
	"github.com/skalibog/bfsignal/internal/exchange"
	"github.com/skalibog/bfsignal/internal/storage"
	"github.com/skalibog/bfsignal/internal/transport/handler"
	"github.com/skalibog/bfsignal/internal/ui"
	"github.com/skalibog/bfsignal/pkg/logger"
)

func main() {
	logger.Init()
	defer logger.Sync()

	// Обработка флагов командной строки
	configPath := flag.String("config", "config.yaml", "путь к файлу конфигурации")
	flag.Parse()

	logger.Info("Загрузка конфигурации", zap.String("path", *configPath))
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("Ошибка загрузки конфигурации", zap.Error(err))
	}
	if err := logger.SetLevel(cfg.Log.Level); err != nil {
		logger.Warn("Неизвестный уровень логирования, оставлен debug", zap.String("level", cfg.Log.Level))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := newStorage(ctx, cfg)
	if err != nil {
		logger.Fatal("Ошибка инициализации хранилища", zap.Error(err))
	}
	defer store.Close()

	// Инициализируем клиент биржи
	client, err := exchange.NewBinanceClient(cfg.Binance)
	if err != nil {
		logger.Fatal("Ошибка инициализации клиента биржи", zap.Error(err))
	}

	analyzer := aggregator.NewAnalyzer(cfg.Analysis, cfg.Trading, store)

	// Запускаем сборщики данных в отдельных горутинах
	dataCollectors := []exchange.DataCollector{
		exchange.NewCandleCollector(client, store, cfg.Trading.Symbols, cfg.Trading.Interval,
			cfg.Trading.History, time.Duration(cfg.Analysis.IntervalSeconds)*time.Second),
	}
	for _, collector := range dataCollectors {
		go func() {
			defer collector.Stop()
			if err := collector.Start(ctx); err != nil {
				logger.Error("Ошибка сборщика данных", zap.Error(err))
			}
		}()
	}

	var termUI *ui.TermUI
	if cfg.UI.Enabled {
		termUI = ui.NewTermUI(ctx, cfg.UI)
	}

	go runAnalysis(ctx, analyzer, termUI, time.Duration(cfg.Analysis.IntervalSeconds)*time.Second)

	if cfg.Server.Enabled {
		srv := &http.Server{
			Addr:    cfg.Server.Addr,
			Handler: handler.NewRouter(handler.NewSignalHandler(analyzer, cfg.Trading)),
		}
		go func() {
			logger.Info("HTTP сервер запущен", zap.String("addr", cfg.Server.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Ошибка HTTP сервера", zap.Error(err))
				stop()
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("Ошибка остановки HTTP сервера", zap.Error(err))
			}
		}()
	}

	if termUI != nil {
		// UI занимает терминал до выхода пользователя
		if err := termUI.Start(); err != nil {
			logger.Error("Ошибка UI", zap.Error(err))
		}
		stop()
		return
	}

	<-ctx.Done()
	logger.Info("Завершение работы...")
}

const memoryHistoryFactor = 4

// newStorage выбирает хранилище по конфигурации и при необходимости оборачивает его кэшем Redis
func newStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	var store storage.Storage
	switch cfg.Storage.Type {
	case "influxdb":
		influx, err := storage.NewInfluxDBStorage(ctx, cfg.Storage)
		if err != nil {
			return nil, err
		}
		store = influx
	default:
		// держим несколько окон истории, старые свечи вытесняются
		store = storage.NewMemoryStorage(
			storage.WithMaxCandles(memoryHistoryFactor*cfg.Trading.History),
			storage.WithMaxSignals(memoryHistoryFactor*cfg.Trading.History),
		)
	}

	if !cfg.Cache.Enabled {
		return store, nil
	}

	var rdb *redis.Client
	if client, err := cache.NewRedisClient(ctx, cfg.Cache); err != nil {
		logger.Warn("Redis недоступен, работаем без кэша", zap.Error(err))
	} else {
		rdb = client
	}
	return &closingCache{
		CachingStorage: cache.NewCachingStorage(rdb, cfg.Cache.TTL, store, cfg.Cache.Namespace),
		rdb:            rdb,
	}, nil
}

// closingCache закрывает клиент Redis вместе с хранилищем
type closingCache struct {
	*cache.CachingStorage
	rdb *redis.Client
}

func (c *closingCache) Close() {
	c.CachingStorage.Close()
	if c.rdb != nil {
		if err := c.rdb.Close(); err != nil {
			logger.Warn("Ошибка закрытия Redis", zap.Error(err))
		}
	}
}

// runAnalysis периодически пересчитывает сигналы и передает их в UI
func runAnalysis(ctx context.Context, analyzer *aggregator.Analyzer, termUI *ui.TermUI, period time.Duration) {
	// Отложенный старт для накопления данных
	select {
	case <-time.After(5 * time.Second):
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		signals, err := analyzer.GenerateSignals(ctx)
		if err != nil {
			logger.Warn("Ошибка при генерации сигналов", zap.Error(err))
		} else if termUI != nil && len(signals) > 0 {
			termUI.UpdateSignals(signals)
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func init() {
	gin.SetMode(gin.ReleaseMode)
}
