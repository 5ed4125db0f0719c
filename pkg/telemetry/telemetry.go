// Package telemetry records operational events and exceptions. Reporters are
// consulted only for observability, never for control flow.
package telemetry

import "github.com/sjkp/locker/pkg/interfaces/logger"

// Reporter receives success events and exceptions from the workflow.
type Reporter interface {
	TrackEvent(name string, props map[string]string)
	TrackException(err error, props map[string]string)
}

// Nop discards everything. Useful for tests.
type Nop struct{}

var _ Reporter = (*Nop)(nil)

func (n *Nop) TrackEvent(name string, props map[string]string)   {}
func (n *Nop) TrackException(err error, props map[string]string) {}

// LogReporter forwards telemetry to a structured logger.
type LogReporter struct {
	logger logger.Logger
}

var _ Reporter = (*LogReporter)(nil)

func NewLogReporter(l logger.Logger) *LogReporter {
	if l == nil {
		l = &logger.Nop{}
	}
	return &LogReporter{logger: l}
}

func (r *LogReporter) TrackEvent(name string, props map[string]string) {
	r.logger.Info("telemetry event", fields(name, props)...)
}

func (r *LogReporter) TrackException(err error, props map[string]string) {
	all := append(fields("", props), logger.F("error", err))
	r.logger.Error("telemetry exception", all...)
}

func fields(name string, props map[string]string) []logger.Field {
	out := make([]logger.Field, 0, len(props)+1)
	if name != "" {
		out = append(out, logger.F("event", name))
	}
	for k, v := range props {
		out = append(out, logger.F(k, v))
	}
	return out
}

// Multi fans telemetry out to several reporters.
type Multi []Reporter

var _ Reporter = (Multi)(nil)

func (m Multi) TrackEvent(name string, props map[string]string) {
	for _, r := range m {
		if r != nil {
			r.TrackEvent(name, props)
		}
	}
}

func (m Multi) TrackException(err error, props map[string]string) {
	for _, r := range m {
		if r != nil {
			r.TrackException(err, props)
		}
	}
}
