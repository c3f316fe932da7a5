// Package logging provides categorized loggers for the dataworks agent.
// Each subsystem logs under its own named zap logger; the level is shared
// and can be changed at runtime (config live reload).
package logging

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/subsystem.
type Category string

const (
	CategoryBoot   Category = "boot"   // Startup, config loading
	CategoryAPI    Category = "api"    // Completion-service calls
	CategoryLoop   Category = "loop"   // Control loop iterations
	CategoryTools  Category = "tools"  // Tool registration and dispatch
	CategoryTrace  Category = "trace"  // Trace append and persistence
	CategoryServer Category = "server" // HTTP shell
)

var (
	mu      sync.RWMutex
	root    *zap.Logger
	level   zap.AtomicLevel
	loggers = make(map[Category]*zap.SugaredLogger)
)

func init() {
	level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	cfg := zap.NewProductionConfig()
	cfg.Level = level
	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		logger = zap.NewNop()
	}
	root = logger
}

// Initialize replaces the root logger. verbose enables debug output in the
// human-readable development format; otherwise production JSON is used.
func Initialize(verbose bool) error {
	mu.Lock()
	defer mu.Unlock()

	cfg := zap.NewProductionConfig()
	if verbose {
		cfg = zap.NewDevelopmentConfig()
		level.SetLevel(zapcore.DebugLevel)
	}
	cfg.Level = level
	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	root = logger
	loggers = make(map[Category]*zap.SugaredLogger)
	return nil
}

// SetLevel changes the shared log level at runtime.
func SetLevel(lvl string) error {
	parsed, err := zapcore.ParseLevel(lvl)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", lvl, err)
	}
	level.SetLevel(parsed)
	return nil
}

// Get returns the sugared logger for a category.
func Get(category Category) *zap.SugaredLogger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	l := root.Named(string(category)).Sugar()
	loggers[category] = l
	return l
}

// Sync flushes buffered log entries. Call before process exit.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = root.Sync()
}

// Convenience helpers, one pair per category.

func Boot(format string, args ...interface{})        { Get(CategoryBoot).Infof(format, args...) }
func BootDebug(format string, args ...interface{})   { Get(CategoryBoot).Debugf(format, args...) }
func API(format string, args ...interface{})         { Get(CategoryAPI).Infof(format, args...) }
func APIDebug(format string, args ...interface{})    { Get(CategoryAPI).Debugf(format, args...) }
func APIError(format string, args ...interface{})    { Get(CategoryAPI).Errorf(format, args...) }
func Loop(format string, args ...interface{})        { Get(CategoryLoop).Infof(format, args...) }
func LoopDebug(format string, args ...interface{})   { Get(CategoryLoop).Debugf(format, args...) }
func LoopWarn(format string, args ...interface{})    { Get(CategoryLoop).Warnf(format, args...) }
func Tools(format string, args ...interface{})       { Get(CategoryTools).Infof(format, args...) }
func ToolsDebug(format string, args ...interface{})  { Get(CategoryTools).Debugf(format, args...) }
func Trace(format string, args ...interface{})       { Get(CategoryTrace).Infof(format, args...) }
func TraceDebug(format string, args ...interface{})  { Get(CategoryTrace).Debugf(format, args...) }
func Server(format string, args ...interface{})      { Get(CategoryServer).Infof(format, args...) }
func ServerDebug(format string, args ...interface{}) { Get(CategoryServer).Debugf(format, args...) }
func ServerError(format string, args ...interface{}) { Get(CategoryServer).Errorf(format, args...) }
