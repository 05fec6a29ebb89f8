package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"github.com/skalibog/bfsignal/pkg/logger"
)

// Config представляет полную конфигурацию приложения
type Config struct {
	EnvFile  string         `yaml:"env_file"`
	Binance  BinanceConfig  `yaml:"binance"`
	Trading  TradingConfig  `yaml:"trading"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Storage  StorageConfig  `yaml:"storage"`
	Cache    CacheConfig    `yaml:"cache"`
	Server   ServerConfig   `yaml:"server"`
	UI       UIConfig       `yaml:"ui"`
	Log      LogConfig      `yaml:"log"`
}

// BinanceConfig содержит настройки подключения к Binance
type BinanceConfig struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	Testnet   bool   `yaml:"testnet"`
}

// TradingConfig содержит список инструментов и таймфрейм
type TradingConfig struct {
	Symbols  []string `yaml:"symbols"`
	Interval string   `yaml:"interval"`
	// History - сколько последних свечей подается в движок сигналов
	History int `yaml:"history"`
}

// AnalysisConfig содержит настройки аналитики
type AnalysisConfig struct {
	IntervalSeconds int          `yaml:"interval_seconds"`
	Signal          SignalConfig `yaml:"signal"`
}

// StorageConfig настройки хранения данных
type StorageConfig struct {
	Type         string `yaml:"type"` // influxdb | memory
	URL          string `yaml:"url"`
	Token        string `yaml:"token"`
	Organization string `yaml:"organization"`
	Bucket       string `yaml:"bucket"`
}

// CacheConfig настройки кэша свечей в Redis
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	TTL       time.Duration `yaml:"ttl"`
	Namespace string        `yaml:"namespace"`
}

// ServerConfig настройки HTTP API для графиков
type ServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// UIConfig настройки пользовательского интерфейса
type UIConfig struct {
	Enabled     bool `yaml:"enabled"`
	RefreshRate int  `yaml:"refresh_rate_ms"`
}

// LogConfig настройки логирования
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default возвращает конфигурацию по умолчанию
func Default() Config {
	return Config{
		EnvFile: ".env",
		Trading: TradingConfig{
			Interval: "1m",
			History:  300,
		},
		Analysis: AnalysisConfig{
			IntervalSeconds: 60,
			Signal:          DefaultSignalConfig(),
		},
		Storage: StorageConfig{
			Type: "memory",
		},
		Cache: CacheConfig{
			Addr:      "localhost:6379",
			TTL:       time.Minute,
			Namespace: "candles",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		UI: UIConfig{
			Enabled:     true,
			RefreshRate: 1000,
		},
		Log: LogConfig{
			Level: "debug",
		},
	}
}

// Load загружает конфигурацию из файла.
// Поля, отсутствующие в файле, сохраняют значения по умолчанию.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла конфигурации: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("ошибка разбора файла конфигурации: %w", err)
	}

	if config.EnvFile != "" {
		if err := godotenv.Load(config.EnvFile); err != nil {
			logger.Warn("Не удалось загрузить .env файл", zap.String("path", config.EnvFile), zap.Error(err))
		}
	}
	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	logger.Debug("Загружена конфигурация", zap.String("path", path), zap.Any("signal", config.Analysis.Signal))
	logger.Info("Загружена конфигурация", zap.Strings("symbols", config.Trading.Symbols))
	return &config, nil
}

// applyEnv переопределяет секреты из переменных окружения
func (c *Config) applyEnv() {
	overrides := map[string]*string{
		"BINANCE_API_KEY":    &c.Binance.APIKey,
		"BINANCE_API_SECRET": &c.Binance.APISecret,
		"INFLUXDB_TOKEN":     &c.Storage.Token,
		"REDIS_PASSWORD":     &c.Cache.Password,
	}
	for key, field := range overrides {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*field = v
		}
	}
}

// Validate проверяет конфигурацию целиком
func (c *Config) Validate() error {
	if len(c.Trading.Symbols) == 0 {
		return fmt.Errorf("не задан список символов (trading.symbols)")
	}
	if _, ok := IntervalDuration(c.Trading.Interval); !ok {
		return fmt.Errorf("неизвестный интервал свечей (trading.interval): %q", c.Trading.Interval)
	}
	if c.Trading.History <= 0 {
		return fmt.Errorf("trading.history должен быть положительным: %d", c.Trading.History)
	}
	if c.Analysis.IntervalSeconds <= 0 {
		return fmt.Errorf("analysis.interval_seconds должен быть положительным: %d", c.Analysis.IntervalSeconds)
	}

	switch c.Storage.Type {
	case "memory":
	case "influxdb":
		if c.Storage.URL == "" || c.Storage.Bucket == "" || c.Storage.Organization == "" {
			return fmt.Errorf("для InfluxDB нужны storage.url, storage.organization и storage.bucket")
		}
	default:
		return fmt.Errorf("неизвестный тип хранилища: %q", c.Storage.Type)
	}

	if err := c.Analysis.Signal.Validate(); err != nil {
		return fmt.Errorf("analysis.signal: %w", err)
	}

	// С меньшей историей движок никогда не выдаст ни одной записи
	if need := c.Analysis.Signal.WarmupBars() + 1; c.Trading.History < need {
		return fmt.Errorf("trading.history (%d) меньше прогрева индикаторов: нужно не меньше %d свечей", c.Trading.History, need)
	}
	return nil
}
