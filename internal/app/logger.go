package app

import (
	"sync"

	"go.uber.org/zap"
)

// Logger interface for app layer
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// sugarLogger adapts a zap.SugaredLogger to Logger
type sugarLogger struct {
	s *zap.SugaredLogger
}

// NewZapLogger wraps a zap sugared logger
func NewZapLogger(s *zap.SugaredLogger) Logger {
	if s == nil {
		s = zap.NewNop().Sugar()
	}
	return &sugarLogger{s: s}
}

func (l *sugarLogger) Debug(format string, args ...interface{}) { l.s.Debugf(format, args...) }
func (l *sugarLogger) Info(format string, args ...interface{})  { l.s.Infof(format, args...) }
func (l *sugarLogger) Warn(format string, args ...interface{})  { l.s.Warnf(format, args...) }
func (l *sugarLogger) Error(format string, args ...interface{}) { l.s.Errorf(format, args...) }

var (
	loggerMu     sync.RWMutex
	globalLogger Logger = NewZapLogger(nil)
)

// SetLogger sets the global logger for app layer
func SetLogger(logger Logger) {
	if logger == nil {
		return
	}
	loggerMu.Lock()
	globalLogger = logger
	loggerMu.Unlock()
}

// GetLogger returns the current logger
func GetLogger() Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return globalLogger
}
