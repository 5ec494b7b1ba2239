package log

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level specifies the log level
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarningLevel
	ErrorLevel
	FatalLevel
)

// DefaultLogger writes info and above to stdout
var DefaultLogger = New(InfoLevel, os.Stdout)

// DiscardLogger swallows everything. used in tests
var DiscardLogger = New(InfoLevel, io.Discard)

// Logger is the logging sink used by the runtime and the pool.
type Logger interface {
	Debug(...interface{})
	Debugf(string, ...interface{})
	Info(...interface{})
	Infof(string, ...interface{})
	Warn(...interface{})
	Warnf(string, ...interface{})
	Error(...interface{})
	Errorf(string, ...interface{})
	// With returns a child logger carrying the given key/value pairs
	With(keyValues ...interface{}) Logger
	LogLevel() Level
}

// Log implements Logger on top of zap's sugared logger
type Log struct {
	sugar *zap.SugaredLogger
	level Level
}

var _ Logger = (*Log)(nil)

// New creates a JSON logger writing to the given writers
func New(level Level, writers ...io.Writer) *Log {
	syncers := make([]zapcore.WriteSyncer, 0, len(writers))
	for _, w := range writers {
		syncers = append(syncers, zapcore.AddSync(w))
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.NewMultiWriteSyncer(syncers...),
		zap.NewAtomicLevelAt(level.zapLevel()),
	)
	return &Log{
		sugar: zap.New(core).Sugar(),
		level: level,
	}
}

func (l *Log) Debug(v ...interface{})                 { l.sugar.Debug(v...) }
func (l *Log) Debugf(format string, v ...interface{}) { l.sugar.Debugf(format, v...) }
func (l *Log) Info(v ...interface{})                  { l.sugar.Info(v...) }
func (l *Log) Infof(format string, v ...interface{})  { l.sugar.Infof(format, v...) }
func (l *Log) Warn(v ...interface{})                  { l.sugar.Warn(v...) }
func (l *Log) Warnf(format string, v ...interface{})  { l.sugar.Warnf(format, v...) }
func (l *Log) Error(v ...interface{})                 { l.sugar.Error(v...) }
func (l *Log) Errorf(format string, v ...interface{}) { l.sugar.Errorf(format, v...) }

func (l *Log) With(keyValues ...interface{}) Logger {
	return &Log{sugar: l.sugar.With(keyValues...), level: l.level}
}

func (l *Log) LogLevel() Level {
	return l.level
}

// ParseLevel maps a textual level to a Level
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarningLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

func (lvl Level) String() string {
	switch lvl {
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarningLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	case FatalLevel:
		return "fatal"
	default:
		return "unknown"
	}
}

func (lvl Level) zapLevel() zapcore.Level {
	switch lvl {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarningLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	case FatalLevel:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}
