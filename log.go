package rx

import (
	"os"

	"go.uber.org/atomic"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger = atomic.NewPointer(defaultLogger())

func defaultLogger() *zap.Logger {
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.Lock(os.Stderr),
		zapcore.WarnLevel,
	)
	return zap.New(core).Named("rx")
}

// Logger returns the logger used for unhandled errors.
func Logger() *zap.Logger {
	return logger.Load()
}

// SetLogger replaces the package logger. nil silences it.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger.Store(l)
}
