package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestReplace(t *testing.T) {
	nop := zap.NewNop()
	Replace(nop)

	assert.Same(t, nop, GetLogger())
	// Вспомогательные функции не должны паниковать на nop-логгере
	Info("info", zap.String("k", "v"))
	Debug("debug")
	Warn("warn")
	Error("error")
}

func TestSetLevel(t *testing.T) {
	t.Cleanup(func() { level.SetLevel(zapcore.DebugLevel) })

	tests := []struct {
		name    string
		input   string
		want    zapcore.Level
		wantErr bool
	}{
		{name: "info", input: "info", want: zapcore.InfoLevel},
		{name: "upper case", input: "WARN", want: zapcore.WarnLevel},
		{name: "unknown level", input: "verbose", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SetLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, level.Level())
		})
	}
}
