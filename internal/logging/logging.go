// Package logging adapts zap to the runtime.Logger interface used across the
// game packages, so code outside Nakama logs the same way as inside it.
package logging

import (
	"maps"

	"github.com/heroiclabs/nakama-common/runtime"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger implements runtime.Logger on top of a zap logger.
type Logger struct {
	base   *zap.Logger
	sugar  *zap.SugaredLogger
	fields map[string]interface{}
}

var _ runtime.Logger = (*Logger)(nil)

// New wraps a zap logger. A nil logger yields a no-op logger.
func New(base *zap.Logger) *Logger {
	if base == nil {
		base = zap.NewNop()
	}
	return &Logger{base: base, sugar: base.Sugar(), fields: map[string]interface{}{}}
}

// NewDevelopment builds a console logger at the given level ("debug",
// "info", "warn" or "error").
func NewDevelopment(level string) (*Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true
	base, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return New(base), nil
}

func (l *Logger) Debug(format string, v ...interface{}) { l.sugar.Debugf(format, v...) }
func (l *Logger) Info(format string, v ...interface{})  { l.sugar.Infof(format, v...) }
func (l *Logger) Warn(format string, v ...interface{})  { l.sugar.Warnf(format, v...) }
func (l *Logger) Error(format string, v ...interface{}) { l.sugar.Errorf(format, v...) }

func (l *Logger) WithField(key string, v interface{}) runtime.Logger {
	return l.WithFields(map[string]interface{}{key: v})
}

func (l *Logger) WithFields(fields map[string]interface{}) runtime.Logger {
	merged := maps.Clone(l.fields)
	zf := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		merged[k] = v
		zf = append(zf, zap.Any(k, v))
	}
	base := l.base.With(zf...)
	return &Logger{base: base, sugar: base.Sugar(), fields: merged}
}

func (l *Logger) Fields() map[string]interface{} {
	return maps.Clone(l.fields)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error { return l.base.Sync() }
