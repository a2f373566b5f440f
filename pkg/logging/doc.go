// Package logging provides a process-wide structured logger for heapstore.
//
// The package wraps [log/slog] and exposes a single global logger instance
// that is initialized once and then retrieved via GetLogger. Subsystems
// obtain a logger through this package rather than constructing their own
// slog.Logger values, so that log level and output destination are
// controlled from a single place.
//
// # Initialisation
//
// Call InitDefault (INFO level, stdout) once at program startup, or Init
// for a specific level:
//
//	logging.InitDefault()
//	defer logging.Close()
//
// If GetLogger is called before either, a default stdout logger is created
// lazily via sync.Once so that packages that log during init are safe.
//
// # Context helpers
//
// A few helpers in context.go return child loggers pre-populated with
// structured fields:
//
//	log := logging.WithComponent("buffer.Manager")
//	log.Warn("frame still pinned at shutdown", "file", id, "page", pageNo)
package logging
