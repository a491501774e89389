package telemetry

import (
	"context"
	"fmt"
	"log/slog"
)

// SlogAPI implements API using the log/slog package.
type SlogAPI struct {
	logger *slog.Logger
}

// NewSlogAPI creates a SlogAPI writing to the given logger, a nil logger means slog.Default().
func NewSlogAPI(logger *slog.Logger) SlogAPI {
	return SlogAPI{logger: logger}
}

func (s SlogAPI) emit(level slog.Level, message string, attrs []slog.Attr) {
	logger := s.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.LogAttrs(context.Background(), level, message, attrs...)
}

// paramAttrs gives errors the "err" key and every other param a positional key.
func paramAttrs(attrs []slog.Attr, params []any) []slog.Attr {
	for i, p := range params {
		if err, ok := p.(error); ok {
			attrs = append(attrs, slog.String("err", err.Error()))
			continue
		}
		attrs = append(attrs, slog.Any(fmt.Sprintf("params.%d", i), p))
	}
	return attrs
}

func (s SlogAPI) ReportBroken(id string, params ...any) {
	s.emit(slog.LevelError, "broken component", paramAttrs([]slog.Attr{slog.String("id", id)}, params))
}

func (s SlogAPI) ReportWarning(id string, params ...any) {
	s.emit(slog.LevelWarn, "warning", paramAttrs([]slog.Attr{slog.String("id", id)}, params))
}

func (s SlogAPI) ReportDebug(message string, params ...any) {
	s.emit(slog.LevelDebug, message, paramAttrs(nil, params))
}

func (s SlogAPI) ReportCount(id string, count int64) {
	s.emit(slog.LevelInfo, "count", []slog.Attr{slog.String("id", id), slog.Int64("n", count)})
}
