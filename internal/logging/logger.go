// Package logging provides config-driven categorized logging for fixturelint.
// Every category shares one zap core; the category is attached as a field.
// Logging is off unless a level is configured (or -v is passed).
package logging

import (
	"fmt"
	"sync"

	"fixturelint/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot     Category = "boot"     // Startup, config loading
	CategoryWorld    Category = "world"    // File discovery, conftest lookup
	CategoryParser   Category = "parser"   // Tree-sitter parsing
	CategoryAnalysis Category = "analysis" // Fixture checks, runner
	CategoryStore    Category = "store"    // Result cache
	CategoryWatch    Category = "watch"    // File watcher
)

// Logger is a category-scoped printf-style logger.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu      sync.RWMutex
	base    = zap.NewNop()
	cfg     config.LoggingConfig
	loggers = make(map[Category]*Logger)
	closer  func() error
)

// Initialize builds the shared zap logger from cfg. Calling it again
// replaces the previous logger.
func Initialize(c config.LoggingConfig) error {
	mu.Lock()
	defer mu.Unlock()

	if closer != nil {
		_ = closer()
		closer = nil
	}
	loggers = make(map[Category]*Logger)
	cfg = c

	if !c.Enabled() {
		base = zap.NewNop()
		return nil
	}

	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Level, err)
	}

	var zc zap.Config
	if c.Format == "text" {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	if c.File != "" {
		zc.OutputPaths = []string{c.File}
	}

	logger, err := zc.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	base = logger
	closer = logger.Sync
	return nil
}

// UseLogger installs an already built zap logger. Tests use it with zaptest/observer.
func UseLogger(l *zap.Logger, c config.LoggingConfig) {
	mu.Lock()
	defer mu.Unlock()
	base = l
	cfg = c
	loggers = make(map[Category]*Logger)
	closer = nil
}

// Sync flushes buffered entries.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	if closer != nil {
		// Sync on a terminal stderr returns EINVAL on linux.
		_ = closer()
	}
}

// Get returns (or creates) a logger for the given category.
// Disabled categories get a no-op logger.
func Get(category Category) *Logger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	enabled := cfg.IsCategoryEnabled(string(category))
	b := base
	mu.RUnlock()

	if !enabled {
		b = zap.NewNop()
	}
	l := &Logger{
		category: category,
		sugar:    b.With(zap.String("cat", string(category))).Sugar(),
	}

	mu.Lock()
	defer mu.Unlock()
	if existing, ok := loggers[category]; ok {
		return existing
	}
	loggers[category] = l
	return l
}

// With returns a child logger carrying extra key/value fields.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// Boot logs to the boot category.
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}

// WorldDebug logs debug to the world category.
func WorldDebug(format string, args ...interface{}) {
	Get(CategoryWorld).Debug(format, args...)
}

// ParserDebug logs debug to the parser category.
func ParserDebug(format string, args ...interface{}) {
	Get(CategoryParser).Debug(format, args...)
}

// AnalysisDebug logs debug to the analysis category.
func AnalysisDebug(format string, args ...interface{}) {
	Get(CategoryAnalysis).Debug(format, args...)
}

// Store logs to the store category.
func Store(format string, args ...interface{}) {
	Get(CategoryStore).Info(format, args...)
}

// StoreDebug logs debug to the store category.
func StoreDebug(format string, args ...interface{}) {
	Get(CategoryStore).Debug(format, args...)
}

// Watch logs to the watch category.
func Watch(format string, args ...interface{}) {
	Get(CategoryWatch).Info(format, args...)
}
