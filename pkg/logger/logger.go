package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Файлы логов. JSON-файл читает терминальный интерфейс.
const (
	ReadableLogFile = "app.log"
	JSONLogFile     = "app.json.log"

	// TimeLayout формат времени в обоих файлах
	TimeLayout = "02.01.2006 - 15:04:05.000000000Z07:00"
)

// Глобальный экземпляр логгера
var (
	globalLogger *zap.Logger
	level        = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	mu           sync.RWMutex
	once         sync.Once
)

// Init инициализирует глобальный логгер
func Init() {
	once.Do(func() {
		// Очистка JSON-логов при перезапуске
		if err := os.Truncate(JSONLogFile, 0); err != nil && !os.IsNotExist(err) {
			panic(err)
		}

		l := newLogger()
		mu.Lock()
		if globalLogger == nil {
			globalLogger = l
		}
		mu.Unlock()
	})
}

// GetLogger возвращает глобальный экземпляр логгера
func GetLogger() *zap.Logger {
	mu.RLock()
	l := globalLogger
	mu.RUnlock()
	if l != nil {
		return l
	}

	Init()

	mu.RLock()
	defer mu.RUnlock()
	return globalLogger
}

// Replace подменяет глобальный логгер (используется в тестах)
func Replace(l *zap.Logger) {
	mu.Lock()
	globalLogger = l
	mu.Unlock()
}

// SetLevel меняет уровень логирования: debug, info, warn, error
func SetLevel(name string) error {
	lvl, err := zapcore.ParseLevel(name)
	if err != nil {
		return err
	}
	level.SetLevel(lvl)
	return nil
}

// Вспомогательные функции для удобства использования
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

func Fatal(msg string, fields ...zap.Field) {
	GetLogger().Fatal(msg, fields...)
}

// Sync сбрасывает буферы логгера
func Sync() {
	_ = GetLogger().Sync()
}

// newLogger создает новый экземпляр логгера
func newLogger() *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(TimeLayout)
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	readableConfig := encoderConfig
	readableConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	jsonConfig := encoderConfig
	jsonConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	readableFile, err := os.OpenFile(ReadableLogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		panic(err)
	}
	jsonFile, err := os.OpenFile(JSONLogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		panic(err)
	}

	// Tee: читаемый файл + JSON файл
	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(readableConfig), zapcore.AddSync(readableFile), level),
		zapcore.NewCore(zapcore.NewJSONEncoder(jsonConfig), zapcore.AddSync(jsonFile), level),
	)

	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
}
