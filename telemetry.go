package memlayout

import (
	"go.uber.org/zap"

	tel "github.com/alexhholmes/memlayout/internal/telemetry"
)

// Logger is the structured logger type accepted by WithSequenceLogger
// and WithMapLogger; pass nil (or omit the option) for the default
// no-op logger.
type Logger = zap.Logger

type telemetry = tel.T

func newTelemetry(l *Logger) *telemetry { return tel.New(l) }
