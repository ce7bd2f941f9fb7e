package logger

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	base  *zap.Logger
	sugar *zap.SugaredLogger
	mu    sync.RWMutex
)

func init() {
	Setup(os.Getenv("ENVIRONMENT") == "development")
}

// Setup rebuilds the process logger. Development mode logs at debug level with a console encoder.
func Setup(development bool) {
	encCfg := zapcore.EncoderConfig{
		TimeKey:      "ts",
		LevelKey:     "level",
		NameKey:      "logger",
		CallerKey:    "caller",
		MessageKey:   "msg",
		LineEnding:   zapcore.DefaultLineEnding,
		EncodeTime:   zapcore.ISO8601TimeEncoder,
		EncodeLevel:  zapcore.CapitalLevelEncoder,
		EncodeCaller: zapcore.ShortCallerEncoder,
	}

	level := zapcore.InfoLevel
	encoder := zapcore.NewJSONEncoder(encCfg)
	if development {
		level = zapcore.DebugLevel
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level)
	Replace(zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)))
}

// Replace swaps the process logger, e.g. for an observer in tests.
func Replace(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	base = l
	sugar = l.Sugar()
}

// L returns the structured logger for call sites that want typed fields.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base.WithOptions(zap.AddCallerSkip(-1))
}

func s() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

func Info(format string, v ...interface{}) {
	s().Infof(format, v...)
}

func Error(format string, v ...interface{}) {
	s().Errorf(format, v...)
}

func Debug(format string, v ...interface{}) {
	s().Debugf(format, v...)
}

func Warn(format string, v ...interface{}) {
	s().Warnf(format, v...)
}

// WithContext prefixes a message with a request or entity reference.
func WithContext(ctx interface{}, format string, v ...interface{}) string {
	if ctx == nil {
		return fmt.Sprintf(format, v...)
	}
	return fmt.Sprintf("[%v] %s", ctx, fmt.Sprintf(format, v...))
}

func Sync() {
	_ = s().Sync()
}
