package neighgo

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with neighgo-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithNumNeighbors adds a num_neighbors field to the logger.
func (l *Logger) WithNumNeighbors(numNeighbors int) *Logger {
	return &Logger{
		Logger: l.Logger.With("num_neighbors", numNeighbors),
	}
}

// WithCutoffRadius adds a cutoff_radius field to the logger.
func (l *Logger) WithCutoffRadius(cutoffRadius float64) *Logger {
	return &Logger{
		Logger: l.Logger.With("cutoff_radius", cutoffRadius),
	}
}

// WithAtoms adds an atom count field to the logger.
func (l *Logger) WithAtoms(atoms int) *Logger {
	return &Logger{
		Logger: l.Logger.With("atoms", atoms),
	}
}

// LogQuery logs a neighbor query.
func (l *Logger) LogQuery(positions, numNeighbors int, err error) {
	if err != nil {
		l.Error("neighbor query failed",
			"positions", positions,
			"num_neighbors", numNeighbors,
			"error", err,
		)
	} else {
		l.Debug("neighbor query completed",
			"positions", positions,
			"num_neighbors", numNeighbors,
		)
	}
}

// LogClustering logs a shell refinement clustering.
func (l *Logger) LogClustering(kind string, entries, clusters int, err error) {
	if err != nil {
		l.Error("shell clustering failed",
			"kind", kind,
			"entries", entries,
			"error", err,
		)
	} else {
		l.Debug("shell clustering completed",
			"kind", kind,
			"entries", entries,
			"clusters", clusters,
		)
	}
}

// LogOrderParameter logs a spherical-harmonic evaluation.
func (l *Logger) LogOrderParameter(degree, atoms int, err error) {
	if err != nil {
		l.Error("order parameter failed",
			"degree", degree,
			"atoms", atoms,
			"error", err,
		)
	} else {
		l.Debug("order parameter completed",
			"degree", degree,
			"atoms", atoms,
		)
	}
}

// WarnSaturated warns that rows filled every neighbor slot below the cutoff
// radius, so neighbors beyond the slot count may be missing.
func (l *Logger) WarnSaturated(rows int) {
	l.Warn("all neighbor slots saturated within the cutoff radius; increase num neighbors or the width buffer to find all neighbors",
		"rows", rows,
	)
}

// WarnSearchGrown warns that a query requested a larger search than the one
// the spatial index was built for.
func (l *Logger) WarnSearchGrown(requested, frozen int) {
	l.Warn("taking a larger search area after initialization risks missing neighborhood atoms",
		"requested", requested,
		"frozen", frozen,
	)
}
