// Package enginelog wraps log/slog with dialogue-engine-specific helpers so
// call sites log structured events ("rule fired", "phase reached fixpoint")
// instead of ad hoc string formatting.
package enginelog

import (
	"log/slog"
)

// Logger wraps a *slog.Logger with helpers for the engine's recurring event
// shapes. The zero value is not usable; construct with New.
type Logger struct {
	base *slog.Logger
}

// New wraps base. If base is nil, slog.Default() is used.
func New(base *slog.Logger) *Logger {
	if base == nil {
		base = slog.Default()
	}
	return &Logger{base: base}
}

// With returns a Logger with the given attributes attached to every
// subsequent call, mirroring slog.Logger.With.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{base: l.base.With(args...)}
}

// RuleFired logs a single rule application within a phase.
func (l *Logger) RuleFired(phase, rule string, priority int32, sessionID string) {
	l.base.Debug("rule fired",
		"phase", phase,
		"rule", rule,
		"priority", priority,
		"session_id", sessionID,
	)
}

// PhaseFixpoint logs that a phase's fixpoint loop settled.
func (l *Logger) PhaseFixpoint(phase, sessionID string, iterations int) {
	l.base.Debug("phase reached fixpoint",
		"phase", phase,
		"session_id", sessionID,
		"iterations", iterations,
	)
}

// TurnRolledBack logs that a turn was aborted and the IS snapshot restored.
func (l *Logger) TurnRolledBack(sessionID string, reason error) {
	l.base.Warn("turn rolled back",
		"session_id", sessionID,
		"reason", reason,
	)
}

// AdapterFailure logs a soft adapter error that was converted to an ICM move.
func (l *Logger) AdapterFailure(adapter, sessionID string, err error) {
	l.base.Warn("adapter failure converted to ICM",
		"adapter", adapter,
		"session_id", sessionID,
		"error", err,
	)
}

// Reraise logs that a move was reinserted into QUD after exceeding its
// grounding retry budget.
func (l *Logger) Reraise(sessionID, moveID string, attempts int) {
	l.base.Info("move reraised",
		"session_id", sessionID,
		"move_id", moveID,
		"attempts", attempts,
	)
}
