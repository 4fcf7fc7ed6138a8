package telemetry

import (
	"log"

	"heist/server/logging"
)

// Logger is the printf-style logger handed to long-lived components.
type Logger interface {
	Printf(format string, args ...any)
}

type LoggerFunc func(format string, args ...any)

func (f LoggerFunc) Printf(format string, args ...any) {
	if f == nil {
		return
	}
	f(format, args...)
}

// WrapLogger adapts a standard library logger. A nil logger discards output.
func WrapLogger(logger *log.Logger) Logger {
	if logger == nil {
		return LoggerFunc(nil)
	}
	return logger
}

// Metrics records counters and gauges.
type Metrics interface {
	Add(key string, delta uint64)
	Store(key string, value uint64)
}

type nopMetrics struct{}

func (nopMetrics) Add(string, uint64)   {}
func (nopMetrics) Store(string, uint64) {}

// WrapMetrics exposes a logging.Metrics set through the Metrics interface. A
// nil set discards updates.
func WrapMetrics(metrics *logging.Metrics) Metrics {
	if metrics == nil {
		return nopMetrics{}
	}
	return metrics
}

// NopMetrics discards every update.
func NopMetrics() Metrics { return nopMetrics{} }
