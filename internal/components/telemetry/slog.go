package telemetry

import (
	"log/slog"
	"strconv"
)

// SlogAPI implements API on top of a slog logger.
type SlogAPI struct {
	logger *slog.Logger
}

// NewSlogAPI creates a SlogAPI, a nil logger means slog.Default() at the time of each report.
func NewSlogAPI(logger *slog.Logger) SlogAPI {
	return SlogAPI{logger: logger}
}

func (s SlogAPI) log() *slog.Logger {
	if s.logger == nil {
		return slog.Default()
	}
	return s.logger
}

// attrs turns params into slog key value pairs: KVs keep their key, everything else is keyed
// by position.
func attrs(prefix []any, params []any) []any {
	out := append([]any{}, prefix...)
	for i, p := range params {
		switch v := p.(type) {
		case KV:
			out = append(out, v.Key, v.Value)
		case error:
			out = append(out, "params."+strconv.Itoa(i), v.Error())
		default:
			out = append(out, "params."+strconv.Itoa(i), p)
		}
	}
	return out
}

func (s SlogAPI) ReportBroken(id string, params ...any) {
	s.log().Error("broken component", attrs([]any{"id", id}, params)...)
}

func (s SlogAPI) ReportWarning(id string, params ...any) {
	s.log().Warn("warning", attrs([]any{"id", id}, params)...)
}

func (s SlogAPI) ReportDebug(message string, params ...any) {
	s.log().Debug(message, attrs(nil, params)...)
}

func (s SlogAPI) ReportCount(id string, count int64) {
	s.log().Debug("count", "id", id, "n", count)
}
