// Package telemetry is the ambient structured-logging layer shared by
// both container types (spec §4.G). It wraps a *zap.Logger the same way
// the teacher repository's cmd/parse wraps its CLI output: one small
// adapter type so call sites never touch the zap API directly, and a
// nil *zap.Logger degrades to zap.NewNop() rather than requiring every
// caller to check for nil.
package telemetry

import "go.uber.org/zap"

// T is a thin, nil-safe wrapper around a *zap.Logger, scoped to the
// handful of structured events the containers emit.
type T struct {
	log *zap.Logger
}

// New wraps l, or a no-op logger if l is nil.
func New(l *zap.Logger) *T {
	if l == nil {
		l = zap.NewNop()
	}
	return &T{log: l}
}

// Growth logs a sequence buffer event: the initial allocation and each
// growth on push/insert.
func (t *T) Growth(op string, from, to uint64) {
	t.log.Debug("buffer grown",
		zap.String("op", op),
		zap.Uint64("from_capacity", from),
		zap.Uint64("to_capacity", to),
	)
}

// Rehash logs a hash table rehash event.
func (t *T) Rehash(op string, from, to uint64, size uint64) {
	t.log.Debug("table rehashed",
		zap.String("op", op),
		zap.Uint64("from_capacity", from),
		zap.Uint64("to_capacity", to),
		zap.Uint64("size", size),
	)
}

// ConcurrentModification logs a detected iterator/mod_count mismatch
// just before the caller returns ConcurrentModification, since that
// error is usually a programming bug worth surfacing in logs even
// though it's also returned to the caller.
func (t *T) ConcurrentModification(op string) {
	t.log.Warn("concurrent modification detected", zap.String("op", op))
}
