package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logLevelNames = map[LogLevel]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

func (l LogLevel) String() string {
	return logLevelNames[l]
}

// New returns a Logger writing console-encoded zap entries to stderr.
func New(level LogLevel) *Logger {
	return &Logger{MinLevel: level}
}

// NewWithZap wraps an existing zap logger. The zap core should accept every level;
// filtering happens against MinLevel.
func NewWithZap(z *zap.Logger, level LogLevel) *Logger {
	l := &Logger{MinLevel: level, base: z.Sugar()}
	l.once.Do(func() {})
	return l
}

// ParseLevel maps debug|info|warn|error to a LogLevel, defaulting to info.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// SetLogLevel sets the minimum log level
func (l *Logger) SetLogLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.MinLevel = level
}

func (l *Logger) sugar() *zap.SugaredLogger {
	l.once.Do(func() {
		if l.base != nil {
			return
		}
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.TimeKey = "ts"
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		core := zapcore.NewCore(
			zapcore.NewConsoleEncoder(encCfg),
			zapcore.Lock(os.Stderr),
			zapcore.DebugLevel,
		)
		l.base = zap.New(core).Sugar()
	})
	return l.base
}

func (l *Logger) log(level LogLevel, component, message string, args ...interface{}) {
	l.mu.Lock()
	minLevel := l.MinLevel
	l.mu.Unlock()
	if level < minLevel {
		return
	}

	s := l.sugar()
	if component != "" {
		s = s.With("component", component)
	}

	switch level {
	case LevelDebug:
		s.Debugf(message, args...)
	case LevelInfo:
		s.Infof(message, args...)
	case LevelWarn:
		s.Warnf(message, args...)
	default:
		s.Errorf(message, args...)
	}
}

// Debug logs a debug message
func (l *Logger) Debug(component, message string, args ...interface{}) {
	l.log(LevelDebug, component, message, args...)
}

// Info logs an info message
func (l *Logger) Info(component, message string, args ...interface{}) {
	l.log(LevelInfo, component, message, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(component, message string, args ...interface{}) {
	l.log(LevelWarn, component, message, args...)
}

// Error logs an error message
func (l *Logger) Error(component, message string, args ...interface{}) {
	l.log(LevelError, component, message, args...)
}

// Fatal logs an error message and exits
func (l *Logger) Fatal(component, message string, args ...interface{}) {
	l.log(LevelError, component, message, args...)
	_ = l.sugar().Sync()
	os.Exit(1)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.sugar().Sync()
}
