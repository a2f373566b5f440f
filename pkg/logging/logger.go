package logging

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
)

var (
	logger   *slog.Logger
	mu       sync.RWMutex
	inited   bool
	initOnce sync.Once
)

// Init installs the process-wide logger at the given level, writing
// text-formatted records to stdout. It returns an error if a logger is
// already installed; call Close first to reinstall at a different level.
func Init(level slog.Level) error {
	mu.Lock()
	defer mu.Unlock()

	if inited {
		return fmt.Errorf("logging: already initialized; call Close() first")
	}

	logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	inited = true
	return nil
}

// InitDefault installs the process-wide logger at INFO level writing to
// stdout. It is safe to call multiple times; only the first call has any
// effect.
func InitDefault() {
	mu.Lock()
	defer mu.Unlock()

	if inited {
		return
	}

	logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	inited = true
}

// Close tears down the process-wide logger so a later Init/InitDefault call
// can install a fresh one. Safe to call multiple times.
func Close() error {
	mu.Lock()
	defer mu.Unlock()

	logger = nil
	inited = false
	initOnce = sync.Once{}
	return nil
}

// GetLogger returns the process-wide logger in a thread-safe manner,
// lazily installing the default one via sync.Once if nothing has called
// Init or InitDefault yet.
func GetLogger() *slog.Logger {
	mu.RLock()
	if inited {
		l := logger
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	initOnce.Do(InitDefault)

	mu.RLock()
	l := logger
	mu.RUnlock()
	return l
}
