package zapadapter

import (
	"github.com/OdyseeTeam/gondola/pkg/logging"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"logur.dev/logur"
)

// kvLogger adapts zap to logging.KVLogger.
type kvLogger struct {
	logger *zap.SugaredLogger
	core   zapcore.Core
}

// NewKV wraps logger into a logging.KVLogger.
// A nil logger falls back to the global zap logger.
func NewKV(logger *zap.Logger) logging.KVLogger {
	if logger == nil {
		logger = zap.L()
	}
	return newKV(logger.WithOptions(zap.AddCallerSkip(1)))
}

// Named is a shortcut for wrapping a named child of logger.
func Named(logger *zap.SugaredLogger, name string) logging.KVLogger {
	return NewKV(logger.Desugar().Named(name))
}

func newKV(logger *zap.Logger) *kvLogger {
	return &kvLogger{
		logger: logger.Sugar(),
		core:   logger.Core(),
	}
}

func (l *kvLogger) Debug(msg string, keyvals ...interface{}) {
	if !l.core.Enabled(zap.DebugLevel) {
		return
	}
	l.logger.Debugw(msg, keyvals...)
}

func (l *kvLogger) Info(msg string, keyvals ...interface{}) {
	if !l.core.Enabled(zap.InfoLevel) {
		return
	}
	l.logger.Infow(msg, keyvals...)
}

func (l *kvLogger) Warn(msg string, keyvals ...interface{}) {
	if !l.core.Enabled(zap.WarnLevel) {
		return
	}
	l.logger.Warnw(msg, keyvals...)
}

func (l *kvLogger) Error(msg string, keyvals ...interface{}) {
	if !l.core.Enabled(zap.ErrorLevel) {
		return
	}
	l.logger.Errorw(msg, keyvals...)
}

func (l *kvLogger) With(keyvals ...interface{}) logging.KVLogger {
	// Caller skip is already applied to l.logger.
	return newKV(l.logger.With(keyvals...).Desugar())
}

// LevelEnabled implements the Logur LevelEnabler interface.
func (l *kvLogger) LevelEnabled(level logur.Level) bool {
	switch level {
	case logur.Trace, logur.Debug:
		return l.core.Enabled(zap.DebugLevel)
	case logur.Info:
		return l.core.Enabled(zap.InfoLevel)
	case logur.Warn:
		return l.core.Enabled(zap.WarnLevel)
	case logur.Error:
		return l.core.Enabled(zap.ErrorLevel)
	}
	return true
}
