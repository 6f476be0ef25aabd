package export

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"panorama/internal/report"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Sink receives consolidated report rows.
type Sink interface {
	Append(tenant, survey string, row report.ConsolidatedRow)
	Close()
}

// jsonLineHandler writes every record as one JSON object: the time in
// "2006-01-02 15:04:05" format plus the record attributes at top level.
// Level and message are omitted.
type jsonLineHandler struct {
	out io.Writer
}

func newJSONLineHandler(out io.Writer) *jsonLineHandler {
	return &jsonLineHandler{out: out}
}

func (h *jsonLineHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, r.NumAttrs()+1)
	attrs["time"] = r.Time.Format(time.DateTime)

	r.Attrs(func(a slog.Attr) bool {
		if a.Key != "" && a.Value.Any() != nil {
			attrs[a.Key] = a.Value.Any()
		}
		return true
	})

	data, err := json.Marshal(attrs)
	if err != nil {
		return err
	}

	_, err = h.out.Write(append(data, '\n'))
	return err
}

// WithAttrs is not supported
func (h *jsonLineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	panic("WithAttrs is not supported by jsonLineHandler")
}

// WithGroup is not supported
func (h *jsonLineHandler) WithGroup(name string) slog.Handler {
	panic("WithGroup is not supported by jsonLineHandler")
}

func (h *jsonLineHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

// JSONLSink appends rows to a rotating, compressed JSONL file.
// Each line holds "time", "tenant", "survey" and "row". Safe for concurrent use.
type JSONLSink struct {
	lumberjack *lumberjack.Logger
	logger     *slog.Logger
}

// NewJSONLSink writes to file, rotating at maxSize megabytes and keeping
// maxBackups old files.
func NewJSONLSink(file string, maxSize, maxBackups int) *JSONLSink {
	sink := JSONLSink{}
	sink.lumberjack = &lumberjack.Logger{
		Filename:   file,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
		Compress:   true,
	}
	sink.logger = slog.New(newJSONLineHandler(sink.lumberjack))
	return &sink
}

// Append writes row as one JSON line tagged with tenant and survey.
func (s *JSONLSink) Append(tenant, survey string, row report.ConsolidatedRow) {
	s.logger.Info("", "tenant", tenant, "survey", survey, "row", row)
}

// Close closes the current file.
func (s *JSONLSink) Close() {
	s.lumberjack.Close()
}

// Discard drops every row. It is used when no export file is configured.
type Discard struct{}

func (Discard) Append(string, string, report.ConsolidatedRow) {}
func (Discard) Close()                                        {}
