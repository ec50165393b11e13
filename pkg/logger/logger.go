// Package logger provides a small structured logging interface backed by zap.
package logger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger defines the logging interface.
type Logger interface {
	Info(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
	Debug(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Fatal(ctx context.Context, msg string, fields ...Field)

	Named(name string) Logger
}

// Field represents a key-value pair for structured logging.
type Field struct {
	Key   string
	Value interface{}
}

// Field constructors.
func String(key, val string) Field                 { return Field{Key: key, Value: val} }
func Int(key string, val int) Field                { return Field{Key: key, Value: val} }
func Float64(key string, val float64) Field        { return Field{Key: key, Value: val} }
func Bool(key string, val bool) Field              { return Field{Key: key, Value: val} }
func Duration(key string, val time.Duration) Field { return Field{Key: key, Value: val} }
func Any(key string, val interface{}) Field        { return Field{Key: key, Value: val} }
func Error(err error) Field                        { return Field{Key: "error", Value: err} }

// zapLogger implements Logger on top of a zap.Logger.
type zapLogger struct {
	z *zap.Logger
}

func (l *zapLogger) Named(name string) Logger {
	return &zapLogger{z: l.z.Named(name)}
}

func (l *zapLogger) Info(_ context.Context, msg string, fields ...Field) {
	l.z.Info(msg, convertFields(fields)...)
}

func (l *zapLogger) Error(_ context.Context, msg string, fields ...Field) {
	l.z.Error(msg, convertFields(fields)...)
}

func (l *zapLogger) Debug(_ context.Context, msg string, fields ...Field) {
	l.z.Debug(msg, convertFields(fields)...)
}

func (l *zapLogger) Warn(_ context.Context, msg string, fields ...Field) {
	l.z.Warn(msg, convertFields(fields)...)
}

func (l *zapLogger) Fatal(_ context.Context, msg string, fields ...Field) {
	l.z.Fatal(msg, convertFields(fields)...)
}

// convertFields converts our Field type to zap fields.
func convertFields(fields []Field) []zap.Field {
	out := make([]zap.Field, len(fields))
	for i, f := range fields {
		if err, ok := f.Value.(error); ok && f.Key == "error" {
			out[i] = zap.Error(err)
			continue
		}
		out[i] = zap.Any(f.Key, f.Value)
	}
	return out
}

var (
	global Logger
	zl     *zap.Logger
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// Option applies a configuration option to Init.
type Option func(*settings)

type settings struct {
	development bool
	core        zapcore.Core
}

// WithDevelopment switches to zap's human-readable console encoder.
func WithDevelopment() Option {
	return func(s *settings) { s.development = true }
}

// WithCore routes all entries to core instead of stderr. Used by tests.
func WithCore(core zapcore.Core) Option {
	return func(s *settings) { s.core = core }
}

// Init initializes the global logger. The level defaults to info and can be
// changed later with SetLevelString.
func Init(opts ...Option) error {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}

	var (
		z   *zap.Logger
		err error
	)
	switch {
	case s.core != nil:
		z = zap.New(s.core, zap.AddCaller(), zap.AddCallerSkip(1))
	case s.development:
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = level
		z, err = cfg.Build(zap.AddCallerSkip(1))
	default:
		cfg := zap.NewProductionConfig()
		cfg.Level = level
		z, err = cfg.Build(zap.AddCallerSkip(1))
	}
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}

	zl = z
	zap.ReplaceGlobals(z)
	global = &zapLogger{z: z}
	return nil
}

// Get returns the global logger.
func Get() Logger {
	if global == nil {
		// The logger should be explicitly initialized by the application
		panic("logger not initialized. Call logger.Init() first")
	}
	return global
}

// Named creates a named logger.
func Named(name string) Logger {
	return Get().Named(name)
}

// Sync flushes buffered log entries.
func Sync() error {
	if zl == nil {
		return nil
	}
	err := zl.Sync()
	// stdout/stderr cannot be fsynced on most platforms
	if err != nil && (strings.Contains(err.Error(), "invalid argument") ||
		strings.Contains(err.Error(), "inappropriate ioctl")) {
		return nil
	}
	return err
}

// SetLevelString parses and sets the logging level.
// Accepts: debug, info, warn/warning, error (case-insensitive).
func SetLevelString(l string) error {
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "debug":
		level.SetLevel(zapcore.DebugLevel)
	case "", "info":
		level.SetLevel(zapcore.InfoLevel)
	case "warn", "warning":
		level.SetLevel(zapcore.WarnLevel)
	case "error":
		level.SetLevel(zapcore.ErrorLevel)
	default:
		return fmt.Errorf("unknown log level: %s", l)
	}
	return nil
}

// Level returns the current logging level.
func Level() string {
	return level.Level().String()
}
