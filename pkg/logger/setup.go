package logger

import (
	"sync"
)

var (
	defaultLogger Logger
	defaultMu     sync.RWMutex
)

// SetupLogger initializes the process-wide default logger from CLI flags.
func SetupLogger(logLevel string, logJSON, logSource bool) {
	cfg := DefaultConfig()
	cfg.Level = LogLevel(logLevel)
	cfg.JSON = logJSON
	cfg.AddSource = logSource
	SetDefault(NewLogger(cfg))
}

// SetDefault replaces the process-wide default logger.
func SetDefault(log Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = log
}

func getDefault() Logger {
	defaultMu.RLock()
	log := defaultLogger
	defaultMu.RUnlock()
	if log != nil {
		return log
	}
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		defaultLogger = NewLogger(nil)
	}
	return defaultLogger
}
